// Package graph keeps a note's tags, children and cross links in step with its
// content, and removes note subtrees without leaving dangling references.
//
// Nothing here commits. Every call runs inside the caller's transaction and
// returns the first persistence error it meets; the caller rolls back.
package graph

import (
	"context"

	"github.com/kittclouds/notegraph/internal/store"
)

// Session is the transactional view of the relational store the engine needs.
// *store.Tx implements it.
type Session interface {
	// Notes
	ListChildren(ctx context.Context, parentID int64) ([]*store.Note, error)
	TitleTaken(ctx context.Context, ownerID int64, parentID *int64, title string, excludeID int64) (bool, error)
	InsertNote(ctx context.Context, n *store.Note) error
	UpdateContent(ctx context.Context, id int64, content string) error
	DeleteNote(ctx context.Context, id int64) error
	ResolveNoteUUIDs(ctx context.Context, ownerID int64, uuids []string) (map[string]int64, error)

	// Tags
	InsertTagsIgnore(ctx context.Context, ownerID int64, names []string) error
	ResolveTagIDs(ctx context.Context, ownerID int64, names []string) (map[string]int64, error)
	DeleteNoteTags(ctx context.Context, noteID int64) error
	InsertNoteTags(ctx context.Context, pairs []store.NoteTag) error

	// Cross links
	DeleteOutboundLinks(ctx context.Context, noteID int64) error
	DeleteInboundLinks(ctx context.Context, noteID int64) error
	InsertCrossLinks(ctx context.Context, links []*store.CrossLink) error
	FindReferrers(ctx context.Context, noteID int64) ([]*store.Note, error)

	Flush(ctx context.Context) error
}

var _ Session = (*store.Tx)(nil)
