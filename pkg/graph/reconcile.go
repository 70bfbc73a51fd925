package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kittclouds/notegraph/internal/store"
	"github.com/kittclouds/notegraph/pkg/parser"
)

// Reconciler makes a note's persisted tags, children and outbound links match
// what was parsed from its content.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler creates a Reconciler. A nil logger discards output.
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{logger: logger}
}

// Reconcile applies parsed to note within sess. Children whose marker was
// removed are deleted last, after the new outbound links are written, so a
// link that now points at a removed child is tombstoned with it. Any error
// aborts and must be followed by a rollback of the enclosing transaction.
func (r *Reconciler) Reconcile(ctx context.Context, sess Session, note *store.Note, parsed parser.Parsed) error {
	if err := r.reconcileTags(ctx, sess, note, parsed.Tags); err != nil {
		return fmt.Errorf("failed to reconcile tags of note %s: %w", note.UUID, err)
	}
	removed, err := r.reconcileChildren(ctx, sess, note, parsed.Children)
	if err != nil {
		return fmt.Errorf("failed to reconcile children of note %s: %w", note.UUID, err)
	}
	if err := r.reconcileLinks(ctx, sess, note, parsed.Links); err != nil {
		return fmt.Errorf("failed to reconcile links of note %s: %w", note.UUID, err)
	}
	if err := r.removeChildren(ctx, sess, note, removed); err != nil {
		return fmt.Errorf("failed to remove children of note %s: %w", note.UUID, err)
	}
	return nil
}

// =============================================================================
// Tags
// =============================================================================

func (r *Reconciler) reconcileTags(ctx context.Context, sess Session, note *store.Note, tags []string) error {
	if err := sess.DeleteNoteTags(ctx, note.ID); err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}

	names := dedupe(tags)
	if err := sess.InsertTagsIgnore(ctx, note.OwnerID, names); err != nil {
		return err
	}

	ids, err := sess.ResolveTagIDs(ctx, note.OwnerID, names)
	if err != nil {
		return err
	}

	pairs := make([]store.NoteTag, 0, len(names))
	for _, name := range names {
		id, ok := ids[name]
		if !ok {
			r.logger.Warn("tag did not resolve after insert", "note", note.UUID, "tag", name)
			continue
		}
		pairs = append(pairs, store.NoteTag{NoteID: note.ID, TagID: id})
	}

	if err := sess.InsertNoteTags(ctx, pairs); err != nil {
		return err
	}

	r.logger.Debug("tags reconciled", "note", note.UUID, "tags", len(pairs))
	return nil
}

// =============================================================================
// Children
// =============================================================================

// reconcileChildren creates a child for every wanted title not already
// present and returns the existing children that are no longer wanted.
func (r *Reconciler) reconcileChildren(ctx context.Context, sess Session, note *store.Note, titles []string) ([]*store.Note, error) {
	existing, err := sess.ListChildren(ctx, note.ID)
	if err != nil {
		return nil, err
	}

	wanted := dedupe(titles)
	wantedSet := make(map[string]bool, len(wanted))
	for _, t := range wanted {
		wantedSet[t] = true
	}

	existingSet := make(map[string]bool, len(existing))
	var removed []*store.Note
	for _, child := range existing {
		existingSet[child.Title] = true
		if !wantedSet[child.Title] {
			removed = append(removed, child)
		}
	}

	created := 0
	for _, title := range wanted {
		if existingSet[title] {
			continue
		}

		unique, err := UniqueChildTitle(ctx, sess, note, title)
		if err != nil {
			return nil, err
		}

		parentID := note.ID
		child := &store.Note{
			UUID:     uuid.New().String(),
			OwnerID:  note.OwnerID,
			ParentID: &parentID,
			Title:    unique,
			Content:  "",
		}
		if err := sess.InsertNote(ctx, child); err != nil {
			return nil, err
		}
		created++
	}

	r.logger.Debug("children reconciled", "note", note.UUID, "created", created, "removed", len(removed))
	return removed, nil
}

func (r *Reconciler) removeChildren(ctx context.Context, sess Session, note *store.Note, removed []*store.Note) error {
	if len(removed) == 0 {
		return nil
	}
	deleter := NewDeleter(r.logger)
	for _, child := range removed {
		if err := deleter.DeleteSubtree(ctx, sess, child); err != nil {
			return err
		}
	}
	r.logger.Debug("removed children deleted", "note", note.UUID, "notes", deleter.Deleted())
	return nil
}

// UniqueChildTitle returns title, or title with " (2)", " (3)", ... appended,
// whichever is first unused among the children of parent.
func UniqueChildTitle(ctx context.Context, sess Session, parent *store.Note, title string) (string, error) {
	parentID := parent.ID
	candidate := title
	for n := 2; ; n++ {
		taken, err := sess.TitleTaken(ctx, parent.OwnerID, &parentID, candidate, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)", title, n)
	}
}

// =============================================================================
// Links
// =============================================================================

func (r *Reconciler) reconcileLinks(ctx context.Context, sess Session, note *store.Note, links []parser.Link) error {
	if err := sess.DeleteOutboundLinks(ctx, note.ID); err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}

	// Canonical UUID text -> display title, applied in order of appearance so
	// the last spelling of a target wins. Only the hyphenated 36-character
	// form is accepted, in any case: that is the only form the tombstone
	// rewrite recognizes, and anything else would outlive its target.
	targets := make(map[string]string, len(links))
	keys := make([]string, 0, len(links))
	for _, l := range links {
		id, err := uuid.Parse(l.Target)
		if err != nil || !strings.EqualFold(l.Target, id.String()) {
			continue
		}
		key := id.String()
		if _, seen := targets[key]; !seen {
			keys = append(keys, key)
		}
		targets[key] = l.Title
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	resolved, err := sess.ResolveNoteUUIDs(ctx, note.OwnerID, keys)
	if err != nil {
		return err
	}

	rows := make([]*store.CrossLink, 0, len(resolved))
	for _, target := range keys {
		linkedID, ok := resolved[target]
		if !ok {
			continue
		}
		title := targets[target]
		if strings.TrimSpace(title) == "" {
			title = "Link to " + target
		}
		rows = append(rows, &store.CrossLink{
			NoteID:       note.ID,
			LinkedNoteID: linkedID,
			Title:        title,
		})
	}

	if err := sess.InsertCrossLinks(ctx, rows); err != nil {
		return err
	}

	r.logger.Debug("links reconciled", "note", note.UUID, "parsed", len(links), "linked", len(rows))
	return nil
}

// dedupe drops repeated strings, keeping first occurrences in order.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
