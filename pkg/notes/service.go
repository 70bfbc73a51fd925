// Package notes implements the top-level note operations. Each call runs in
// a single store transaction and keeps tags, children and cross links in
// step with note content through the graph engine.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kittclouds/notegraph/internal/store"
	"github.com/kittclouds/notegraph/pkg/graph"
	"github.com/kittclouds/notegraph/pkg/parser"
)

// Service handles note operations for any number of owners.
type Service struct {
	store      *store.SQLiteStore
	logger     *slog.Logger
	reconciler *graph.Reconciler

	mu    sync.RWMutex
	stats Stats
}

// NewService creates a Service over an open store. The caller keeps ownership
// of the store and closes it.
func NewService(s *store.SQLiteStore, opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		store:      s,
		logger:     o.logger,
		reconciler: graph.NewReconciler(o.logger),
	}
}

// CreateNote inserts a note and derives its tags, children and links.
// When in.ParentUUID is set the note is placed under that parent and a
// [[Title]] reference is appended to the parent's content, so the parent's
// next reconciliation keeps it.
func (s *Service) CreateNote(ctx context.Context, owner int64, in NoteInput) (*NoteView, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		s.failed("create", err)
		return nil, err
	}

	var view *NoteView
	err = s.store.Update(ctx, func(tx *store.Tx) error {
		note := &store.Note{OwnerID: owner, Title: title, Content: in.Content}

		var parent *store.Note
		if in.ParentUUID != "" {
			p, err := tx.GetNoteByUUID(ctx, owner, in.ParentUUID)
			if err != nil {
				return fmt.Errorf("failed to get parent note: %w", err)
			}
			if p == nil {
				return fmt.Errorf("parent %s: %w", in.ParentUUID, ErrNotFound)
			}
			parent = p
			note.ParentID = &parent.ID
		}

		taken, err := tx.TitleTaken(ctx, owner, note.ParentID, title, 0)
		if err != nil {
			return fmt.Errorf("failed to check title: %w", err)
		}
		if taken {
			return fmt.Errorf("%q: %w", title, ErrTitleTaken)
		}

		if err := tx.InsertNote(ctx, note); err != nil {
			return err
		}

		if parent != nil {
			content := appendChildRef(parent.Content, title)
			if err := tx.UpdateContent(ctx, parent.ID, content); err != nil {
				return err
			}
		}

		if err := s.reconciler.Reconcile(ctx, tx, note, parser.Parse(note.Content)); err != nil {
			return err
		}

		view, err = rehydrate(ctx, tx, note.ID)
		return err
	})
	if err != nil {
		s.failed("create", err)
		return nil, err
	}

	s.record(func(st *Stats) { st.Created++; st.Reconciled++ })
	s.logger.Info("note created", "owner", owner, "note", view.UUID, "title", view.Title)
	return view, nil
}

// UpdateNote merges patch into a note. Tags, children and links are only
// reconciled when the content changed. Renaming a child also renames its
// [[reference]] in the parent's content.
func (s *Service) UpdateNote(ctx context.Context, owner int64, noteUUID string, patch NotePatch) (*NoteView, error) {
	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			s.failed("update", err)
			return nil, err
		}
		patch.Title = &title
	}

	var view *NoteView
	var reconciled bool
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		note, err := s.lookup(ctx, tx, owner, noteUUID)
		if err != nil {
			return err
		}

		oldTitle := note.Title
		titleChanged, contentChanged := patch.Apply(note)

		if titleChanged {
			taken, err := tx.TitleTaken(ctx, owner, note.ParentID, note.Title, note.ID)
			if err != nil {
				return fmt.Errorf("failed to check title: %w", err)
			}
			if taken {
				return fmt.Errorf("%q: %w", note.Title, ErrTitleTaken)
			}
		}

		if titleChanged || contentChanged {
			if err := tx.UpdateNote(ctx, note); err != nil {
				return err
			}
		}

		if titleChanged && note.ParentID != nil {
			if err := renameInParent(ctx, tx, *note.ParentID, oldTitle, note.Title); err != nil {
				return err
			}
		}

		if contentChanged {
			if err := s.reconciler.Reconcile(ctx, tx, note, parser.Parse(note.Content)); err != nil {
				return err
			}
			reconciled = true
		}

		view, err = rehydrate(ctx, tx, note.ID)
		return err
	})
	if err != nil {
		s.failed("update", err)
		return nil, err
	}

	s.record(func(st *Stats) {
		st.Updated++
		if reconciled {
			st.Reconciled++
		}
	})
	s.logger.Info("note updated", "owner", owner, "note", noteUUID, "reconciled", reconciled)
	return view, nil
}

// DeleteNote removes a note and its whole subtree, tombstoning every link
// that pointed into it. It returns the number of notes removed.
func (s *Service) DeleteNote(ctx context.Context, owner int64, noteUUID string) (int, error) {
	var deleted int
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		note, err := s.lookup(ctx, tx, owner, noteUUID)
		if err != nil {
			return err
		}

		d := graph.NewDeleter(s.logger)
		if err := d.DeleteSubtree(ctx, tx, note); err != nil {
			return err
		}
		deleted = d.Deleted()
		return nil
	})
	if err != nil {
		s.failed("delete", err)
		return 0, err
	}

	s.record(func(st *Stats) { st.Deleted += deleted })
	s.logger.Info("note deleted", "owner", owner, "note", noteUUID, "removed", deleted)
	return deleted, nil
}

// GetNote returns a note with its tags, children, links and backlinks.
func (s *Service) GetNote(ctx context.Context, owner int64, noteUUID string) (*NoteView, error) {
	var view *NoteView
	err := s.store.View(ctx, func(tx *store.Tx) error {
		note, err := s.lookup(ctx, tx, owner, noteUUID)
		if err != nil {
			return err
		}
		view, err = hydrate(ctx, tx, note)
		return err
	})
	return view, err
}

// ListFilter narrows ListNotes. ParentUUID wins over RootsOnly.
// Skip and Limit page through the result; a zero Limit means no limit.
type ListFilter struct {
	ParentUUID string
	RootsOnly  bool
	Tag        string
	Skip       int
	Limit      int
}

// ListNotes returns an owner's notes, most recently updated first.
func (s *Service) ListNotes(ctx context.Context, owner int64, f ListFilter) ([]NoteSummary, error) {
	if f.Skip < 0 || f.Limit < 0 {
		return nil, fmt.Errorf("skip and limit must not be negative: %w", ErrInvalidInput)
	}

	var out []NoteSummary
	err := s.store.View(ctx, func(tx *store.Tx) error {
		filter := store.NoteFilter{
			RootsOnly: f.RootsOnly,
			TagName:   f.Tag,
			Offset:    f.Skip,
			Limit:     f.Limit,
		}
		if f.ParentUUID != "" {
			parent, err := s.lookup(ctx, tx, owner, f.ParentUUID)
			if err != nil {
				return err
			}
			filter.ParentID = &parent.ID
		}

		notes, err := tx.ListNotes(ctx, owner, filter)
		if err != nil {
			return fmt.Errorf("failed to list notes: %w", err)
		}
		out = make([]NoteSummary, 0, len(notes))
		for _, n := range notes {
			out = append(out, summaryOf(n))
		}
		return nil
	})
	return out, err
}

// LinkedNotes returns the notes a note links to.
func (s *Service) LinkedNotes(ctx context.Context, owner int64, noteUUID string) ([]LinkView, error) {
	return s.links(ctx, owner, noteUUID, (*store.Tx).ListOutboundLinks)
}

// Backlinks returns the notes linking to a note.
func (s *Service) Backlinks(ctx context.Context, owner int64, noteUUID string) ([]LinkView, error) {
	return s.links(ctx, owner, noteUUID, (*store.Tx).ListBacklinks)
}

func (s *Service) links(ctx context.Context, owner int64, noteUUID string,
	list func(*store.Tx, context.Context, int64) ([]*store.LinkedRef, error)) ([]LinkView, error) {
	var out []LinkView
	err := s.store.View(ctx, func(tx *store.Tx) error {
		note, err := s.lookup(ctx, tx, owner, noteUUID)
		if err != nil {
			return err
		}
		refs, err := list(tx, ctx, note.ID)
		if err != nil {
			return fmt.Errorf("failed to list links: %w", err)
		}
		out = linkViews(refs)
		return nil
	})
	return out, err
}

// ListTags returns an owner's tags with usage counts, by name.
func (s *Service) ListTags(ctx context.Context, owner int64) ([]TagView, error) {
	var out []TagView
	err := s.store.View(ctx, func(tx *store.Tx) error {
		tags, err := tx.ListTags(ctx, owner)
		if err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}
		out = make([]TagView, 0, len(tags))
		for _, tg := range tags {
			out = append(out, TagView{UUID: tg.UUID, Name: tg.Name, Notes: tg.NoteCount})
		}
		return nil
	})
	return out, err
}

// lookup fetches an owner's note by UUID, mapping absence to ErrNotFound.
func (s *Service) lookup(ctx context.Context, tx *store.Tx, owner int64, noteUUID string) (*store.Note, error) {
	note, err := tx.GetNoteByUUID(ctx, owner, noteUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	if note == nil {
		return nil, fmt.Errorf("%s: %w", noteUUID, ErrNotFound)
	}
	return note, nil
}

// rehydrate rereads a note before rendering it, since reconciliation may have
// rewritten its content in the store.
func rehydrate(ctx context.Context, tx *store.Tx, id int64) (*NoteView, error) {
	note, err := tx.GetNote(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload note: %w", err)
	}
	if note == nil {
		return nil, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	return hydrate(ctx, tx, note)
}

func (s *Service) failed(op string, err error) {
	s.record(func(st *Stats) { st.Failed++ })
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTitleTaken), errors.Is(err, ErrInvalidInput):
		s.logger.Warn("note "+op+" rejected", "error", err)
	default:
		s.logger.Error("note "+op+" failed", "error", err)
	}
}

func appendChildRef(content, title string) string {
	ref := "[[" + title + "]]"
	if content == "" {
		return ref
	}
	return content + "\n" + ref
}

func renameInParent(ctx context.Context, tx *store.Tx, parentID int64, oldTitle, newTitle string) error {
	parent, err := tx.GetNote(ctx, parentID)
	if err != nil {
		return fmt.Errorf("failed to get parent note: %w", err)
	}
	if parent == nil {
		return nil
	}
	content := parser.RenameChild(parent.Content, oldTitle, newTitle)
	if content == parent.Content {
		return nil
	}
	return tx.UpdateContent(ctx, parent.ID, content)
}
