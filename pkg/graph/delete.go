package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kittclouds/notegraph/internal/store"
	"github.com/kittclouds/notegraph/pkg/parser"
)

// Deleter removes a note together with all of its descendants.
// Notes that linked to a removed note get the link rewritten into a tombstone.
//
// A Deleter remembers every note it has visited; use a fresh one for each
// top-level deletion.
type Deleter struct {
	logger  *slog.Logger
	visited map[int64]struct{}
}

// NewDeleter creates a Deleter. A nil logger discards output.
func NewDeleter(logger *slog.Logger) *Deleter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Deleter{
		logger:  logger,
		visited: make(map[int64]struct{}),
	}
}

// Deleted reports how many notes this Deleter has removed or is removing.
func (d *Deleter) Deleted() int {
	return len(d.visited)
}

// DeleteSubtree deletes note and everything under it, depth first.
// Revisiting a note is a no-op, which also stops runaway recursion on a
// corrupted parent chain.
func (d *Deleter) DeleteSubtree(ctx context.Context, sess Session, note *store.Note) error {
	if _, seen := d.visited[note.ID]; seen {
		return nil
	}
	d.visited[note.ID] = struct{}{}

	// 1. Children go first so no row ever points at a missing parent.
	children, err := sess.ListChildren(ctx, note.ID)
	if err != nil {
		return fmt.Errorf("failed to list children of note %d: %w", note.ID, err)
	}
	for _, child := range children {
		if err := d.DeleteSubtree(ctx, sess, child); err != nil {
			return err
		}
	}

	// 2. Neutralize inline references before their edges disappear.
	if err := d.tombstoneReferrers(ctx, sess, note); err != nil {
		return err
	}

	// 3. Association rows, both link directions.
	if err := sess.DeleteNoteTags(ctx, note.ID); err != nil {
		return err
	}
	if err := sess.DeleteOutboundLinks(ctx, note.ID); err != nil {
		return err
	}
	if err := sess.DeleteInboundLinks(ctx, note.ID); err != nil {
		return err
	}

	// 4. The note itself.
	if err := sess.DeleteNote(ctx, note.ID); err != nil {
		return err
	}
	if err := sess.Flush(ctx); err != nil {
		return err
	}

	d.logger.Debug("note deleted", "note", note.UUID, "title", note.Title, "children", len(children))
	return nil
}

func (d *Deleter) tombstoneReferrers(ctx context.Context, sess Session, note *store.Note) error {
	referrers, err := sess.FindReferrers(ctx, note.ID)
	if err != nil {
		return fmt.Errorf("failed to find referrers of note %d: %w", note.ID, err)
	}

	rewritten := 0
	for _, ref := range referrers {
		if ref.ID == note.ID {
			continue
		}
		content := parser.ReplaceLinkTarget(ref.Content, note.UUID, note.Title)
		if content == ref.Content {
			continue
		}
		if err := sess.UpdateContent(ctx, ref.ID, content); err != nil {
			return err
		}
		rewritten++
	}

	if rewritten > 0 {
		if err := sess.Flush(ctx); err != nil {
			return err
		}
		d.logger.Debug("links tombstoned", "target", note.UUID, "referrers", rewritten)
	}
	return nil
}
