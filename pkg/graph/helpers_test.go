package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/notegraph/internal/store"
	"github.com/kittclouds/notegraph/pkg/parser"
)

const (
	ownerA int64 = 1
	ownerB int64 = 2
)

// newTestTx opens an in-memory store and a transaction that is rolled back
// when the test ends.
func newTestTx(t *testing.T) (*store.SQLiteStore, *store.Tx) {
	t.Helper()

	s, err := store.NewSQLiteStore()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { tx.Rollback() })

	return s, tx
}

func insertNote(t *testing.T, tx *store.Tx, owner int64, parent *store.Note, title, content string) *store.Note {
	t.Helper()

	n := &store.Note{OwnerID: owner, Title: title, Content: content}
	if parent != nil {
		pid := parent.ID
		n.ParentID = &pid
	}
	require.NoError(t, tx.InsertNote(context.Background(), n))
	return n
}

// setContent stores content on n and reconciles it, like a content update would.
func setContent(t *testing.T, tx *store.Tx, n *store.Note, content string) {
	t.Helper()

	ctx := context.Background()
	n.Content = content
	require.NoError(t, tx.UpdateNote(ctx, n))
	require.NoError(t, NewReconciler(nil).Reconcile(ctx, tx, n, parser.Parse(content)))
}

func tagNames(t *testing.T, tx *store.Tx, n *store.Note) []string {
	t.Helper()

	tags, err := tx.ListNoteTags(context.Background(), n.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(tags))
	for _, tg := range tags {
		names = append(names, tg.Name)
	}
	return names
}

func childTitles(t *testing.T, tx *store.Tx, n *store.Note) []string {
	t.Helper()

	children, err := tx.ListChildren(context.Background(), n.ID)
	require.NoError(t, err)
	titles := make([]string, 0, len(children))
	for _, c := range children {
		titles = append(titles, c.Title)
	}
	return titles
}

func childByTitle(t *testing.T, tx *store.Tx, n *store.Note, title string) *store.Note {
	t.Helper()

	children, err := tx.ListChildren(context.Background(), n.ID)
	require.NoError(t, err)
	for _, c := range children {
		if c.Title == title {
			return c
		}
	}
	t.Fatalf("note %q has no child %q", n.Title, title)
	return nil
}

func outbound(t *testing.T, tx *store.Tx, n *store.Note) []*store.LinkedRef {
	t.Helper()

	refs, err := tx.ListOutboundLinks(context.Background(), n.ID)
	require.NoError(t, err)
	return refs
}

func reload(t *testing.T, tx *store.Tx, n *store.Note) *store.Note {
	t.Helper()

	got, err := tx.GetNote(context.Background(), n.ID)
	require.NoError(t, err)
	return got
}
