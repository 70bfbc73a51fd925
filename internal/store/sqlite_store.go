// Package store provides SQLite-backed persistence for notegraph.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// SQLiteStore is the process-scoped handle to the note database.
// Create it once at startup and share it; every operation runs in its own Tx.
type SQLiteStore struct {
	db *sql.DB
}

// schema defines the note graph tables.
// Foreign keys carry no ON DELETE actions: cascades are performed explicitly
// by the subtree deleter, and enforcement catches any ordering mistake.
const schema = `
CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT NOT NULL UNIQUE,
    owner_id INTEGER NOT NULL,
    parent_id INTEGER REFERENCES notes(id),
    title TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Sibling-scoped titles: root notes share the pseudo-parent 0
CREATE UNIQUE INDEX IF NOT EXISTS idx_notes_sibling_title
    ON notes(owner_id, IFNULL(parent_id, 0), title);
CREATE INDEX IF NOT EXISTS idx_notes_parent ON notes(parent_id);
CREATE INDEX IF NOT EXISTS idx_notes_owner ON notes(owner_id);

CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT NOT NULL UNIQUE,
    owner_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE (owner_id, name)
);

-- Note/Tag junction table
CREATE TABLE IF NOT EXISTS note_tags (
    note_id INTEGER NOT NULL REFERENCES notes(id),
    tag_id INTEGER NOT NULL REFERENCES tags(id),
    PRIMARY KEY (note_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag_id);

CREATE TABLE IF NOT EXISTS cross_links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    note_id INTEGER NOT NULL REFERENCES notes(id),
    linked_note_id INTEGER NOT NULL REFERENCES notes(id),
    title TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cross_links_note ON cross_links(note_id);
CREATE INDEX IF NOT EXISTS idx_cross_links_linked ON cross_links(linked_note_id);
`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database lives and dies with its connection,
	// and connection-scoped pragmas must apply to every statement.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Begin opens a transaction. The caller owns it and must Commit or Rollback.
// Do not call Begin again on the same goroutine before the Tx is finished:
// the store has a single connection.
func (s *SQLiteStore) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Update runs fn in a transaction, committing if fn returns nil and rolling
// back otherwise.
func (s *SQLiteStore) Update(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// View runs fn in a transaction that is always rolled back.
func (s *SQLiteStore) View(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	return fn(tx)
}

// Versions reports the SQLite library and sqlite-vec extension versions.
func (s *SQLiteStore) Versions(ctx context.Context) (Versions, error) {
	var v Versions
	if err := s.db.QueryRowContext(ctx, "SELECT sqlite_version(), vec_version()").Scan(&v.SQLite, &v.Vec); err != nil {
		return Versions{}, fmt.Errorf("failed to read versions: %w", err)
	}
	return v, nil
}
