package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tx is one unit of work against the store. All reads made through a Tx see
// the writes made earlier in the same Tx.
type Tx struct {
	tx *sql.Tx
}

// Commit makes the transaction's writes durable.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the transaction. Calling it after Commit is harmless.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// Flush makes pending writes visible to later reads of this Tx.
// SQLite statements execute eagerly, so there is nothing buffered to push.
func (t *Tx) Flush(ctx context.Context) error {
	return ctx.Err()
}

// NowMillis is the timestamp source for created_at/updated_at.
var NowMillis = func() int64 {
	return time.Now().UnixMilli()
}

// =============================================================================
// Notes
// =============================================================================

const noteColumns = `id, uuid, owner_id, parent_id, title, content, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (*Note, error) {
	var n Note
	var parentID sql.NullInt64
	if err := r.Scan(&n.ID, &n.UUID, &n.OwnerID, &parentID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		n.ParentID = &parentID.Int64
	}
	return &n, nil
}

func (t *Tx) queryNotes(ctx context.Context, query string, args ...any) ([]*Note, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// GetNote retrieves a note by internal ID. Returns nil if it does not exist.
func (t *Tx) GetNote(ctx context.Context, id int64) (*Note, error) {
	n, err := scanNote(t.tx.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// GetNoteByUUID retrieves an owner's note by its stable UUID.
// Returns nil if it does not exist or belongs to someone else.
func (t *Tx) GetNoteByUUID(ctx context.Context, ownerID int64, noteUUID string) (*Note, error) {
	n, err := scanNote(t.tx.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE uuid = ? AND owner_id = ?`, noteUUID, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListChildren returns the notes whose parent is parentID, oldest first.
func (t *Tx) ListChildren(ctx context.Context, parentID int64) ([]*Note, error) {
	return t.queryNotes(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE parent_id = ? ORDER BY id`, parentID)
}

// ListNotes returns an owner's notes, most recently updated first. Ties are
// broken by id so paging is stable.
func (t *Tx) ListNotes(ctx context.Context, ownerID int64, f NoteFilter) ([]*Note, error) {
	var where []string
	var args []any

	where = append(where, "n.owner_id = ?")
	args = append(args, ownerID)

	switch {
	case f.ParentID != nil:
		where = append(where, "n.parent_id = ?")
		args = append(args, *f.ParentID)
	case f.RootsOnly:
		where = append(where, "n.parent_id IS NULL")
	}

	from := "notes n"
	if f.TagName != "" {
		from += " JOIN note_tags nt ON nt.note_id = n.id JOIN tags tg ON tg.id = nt.tag_id"
		where = append(where, "tg.name = ?")
		args = append(args, f.TagName)
	}

	query := `SELECT n.id, n.uuid, n.owner_id, n.parent_id, n.title, n.content, n.created_at, n.updated_at
		FROM ` + from + ` WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY n.updated_at DESC, n.id`

	// SQLite only accepts OFFSET after LIMIT; -1 lifts the cap.
	if f.Limit > 0 || f.Offset > 0 {
		limit := -1
		if f.Limit > 0 {
			limit = f.Limit
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, f.Offset)
	}
	return t.queryNotes(ctx, query, args...)
}

// TitleTaken reports whether title is already used by a sibling in the
// (owner, parent) scope. excludeID skips one note, so a note never collides
// with itself on rename; pass 0 to exclude nothing.
func (t *Tx) TitleTaken(ctx context.Context, ownerID int64, parentID *int64, title string, excludeID int64) (bool, error) {
	var parent int64
	if parentID != nil {
		parent = *parentID
	}

	var exists int
	err := t.tx.QueryRowContext(ctx, `
		SELECT 1 FROM notes
		WHERE owner_id = ? AND IFNULL(parent_id, 0) = ? AND title = ? AND id != ?
		LIMIT 1
	`, ownerID, parent, title, excludeID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertNote creates a note row and fills in ID, and UUID and timestamps when unset.
func (t *Tx) InsertNote(ctx context.Context, n *Note) error {
	if n.UUID == "" {
		n.UUID = uuid.New().String()
	}
	now := NowMillis()
	if n.CreatedAt == 0 {
		n.CreatedAt = now
	}
	if n.UpdatedAt == 0 {
		n.UpdatedAt = n.CreatedAt
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO notes (uuid, owner_id, parent_id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.UUID, n.OwnerID, n.ParentID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert note %q: %w", n.Title, err)
	}

	n.ID, err = res.LastInsertId()
	return err
}

// UpdateNote persists a note's title and content and refreshes updated_at.
func (t *Tx) UpdateNote(ctx context.Context, n *Note) error {
	n.UpdatedAt = NowMillis()
	_, err := t.tx.ExecContext(ctx, `
		UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ?
	`, n.Title, n.Content, n.UpdatedAt, n.ID)
	if err != nil {
		return fmt.Errorf("failed to update note %d: %w", n.ID, err)
	}
	return nil
}

// UpdateContent replaces a note's content and refreshes updated_at.
func (t *Tx) UpdateContent(ctx context.Context, id int64, content string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE notes SET content = ?, updated_at = ? WHERE id = ?`, content, NowMillis(), id)
	if err != nil {
		return fmt.Errorf("failed to update content of note %d: %w", id, err)
	}
	return nil
}

// DeleteNote removes a single note row. Association rows and children must
// already be gone.
func (t *Tx) DeleteNote(ctx context.Context, id int64) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete note %d: %w", id, err)
	}
	return nil
}

// ResolveNoteUUIDs maps the given UUIDs to note IDs of the same owner.
// UUIDs that do not resolve are absent from the result.
func (t *Tx) ResolveNoteUUIDs(ctx context.Context, ownerID int64, uuids []string) (map[string]int64, error) {
	out := make(map[string]int64, len(uuids))
	if len(uuids) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(uuids)+1)
	args = append(args, ownerID)
	for _, u := range uuids {
		args = append(args, u)
	}

	rows, err := t.tx.QueryContext(ctx,
		`SELECT uuid, id FROM notes WHERE owner_id = ? AND uuid IN (`+placeholders(len(uuids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		var id int64
		if err := rows.Scan(&u, &id); err != nil {
			return nil, err
		}
		out[u] = id
	}
	return out, rows.Err()
}

// CountNotes returns the number of notes an owner has.
func (t *Tx) CountNotes(ctx context.Context, ownerID int64) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes WHERE owner_id = ?", ownerID).Scan(&count)
	return count, err
}

// =============================================================================
// Tags
// =============================================================================

// InsertTagsIgnore creates the named tags for an owner, skipping names that
// already exist. Safe against a concurrent writer creating the same tag.
func (t *Tx) InsertTagsIgnore(ctx context.Context, ownerID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}

	now := NowMillis()
	values := make([]string, 0, len(names))
	args := make([]any, 0, len(names)*4)
	for _, name := range names {
		values = append(values, "(?, ?, ?, ?)")
		args = append(args, uuid.New().String(), ownerID, name, now)
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tags (uuid, owner_id, name, created_at)
		VALUES `+strings.Join(values, ", ")+`
		ON CONFLICT(owner_id, name) DO NOTHING
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to insert tags: %w", err)
	}
	return nil
}

// ResolveTagIDs maps tag names of an owner to their IDs.
func (t *Tx) ResolveTagIDs(ctx context.Context, ownerID int64, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	if len(names) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(names)+1)
	args = append(args, ownerID)
	for _, name := range names {
		args = append(args, name)
	}

	rows, err := t.tx.QueryContext(ctx,
		`SELECT name, id FROM tags WHERE owner_id = ? AND name IN (`+placeholders(len(names))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, err
		}
		out[name] = id
	}
	return out, rows.Err()
}

// DeleteNoteTags detaches every tag from a note. Tag rows themselves stay.
func (t *Tx) DeleteNoteTags(ctx context.Context, noteID int64) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM note_tags WHERE note_id = ?", noteID)
	if err != nil {
		return fmt.Errorf("failed to delete tag associations of note %d: %w", noteID, err)
	}
	return nil
}

// InsertNoteTags bulk-inserts junction rows. Duplicate pairs are ignored.
func (t *Tx) InsertNoteTags(ctx context.Context, pairs []NoteTag) error {
	if len(pairs) == 0 {
		return nil
	}

	values := make([]string, 0, len(pairs))
	args := make([]any, 0, len(pairs)*2)
	for _, p := range pairs {
		values = append(values, "(?, ?)")
		args = append(args, p.NoteID, p.TagID)
	}

	_, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES `+strings.Join(values, ", "), args...)
	if err != nil {
		return fmt.Errorf("failed to insert tag associations: %w", err)
	}
	return nil
}

// ListNoteTags returns the tags attached to a note, by name.
func (t *Tx) ListNoteTags(ctx context.Context, noteID int64) ([]*Tag, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT tg.id, tg.uuid, tg.owner_id, tg.name, tg.created_at
		FROM tags tg JOIN note_tags nt ON nt.tag_id = tg.id
		WHERE nt.note_id = ?
		ORDER BY tg.name
	`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*Tag
	for rows.Next() {
		var tg Tag
		if err := rows.Scan(&tg.ID, &tg.UUID, &tg.OwnerID, &tg.Name, &tg.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, &tg)
	}
	return tags, rows.Err()
}

// ListTags returns every tag of an owner with its note count, by name.
func (t *Tx) ListTags(ctx context.Context, ownerID int64) ([]*TagUsage, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT tg.id, tg.uuid, tg.owner_id, tg.name, tg.created_at, COUNT(nt.note_id)
		FROM tags tg LEFT JOIN note_tags nt ON nt.tag_id = tg.id
		WHERE tg.owner_id = ?
		GROUP BY tg.id
		ORDER BY tg.name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*TagUsage
	for rows.Next() {
		var tu TagUsage
		if err := rows.Scan(&tu.ID, &tu.UUID, &tu.OwnerID, &tu.Name, &tu.CreatedAt, &tu.NoteCount); err != nil {
			return nil, err
		}
		tags = append(tags, &tu)
	}
	return tags, rows.Err()
}

// =============================================================================
// Cross links
// =============================================================================

// DeleteOutboundLinks removes the links whose source is noteID.
func (t *Tx) DeleteOutboundLinks(ctx context.Context, noteID int64) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM cross_links WHERE note_id = ?", noteID)
	if err != nil {
		return fmt.Errorf("failed to delete outbound links of note %d: %w", noteID, err)
	}
	return nil
}

// DeleteInboundLinks removes the links whose target is noteID.
func (t *Tx) DeleteInboundLinks(ctx context.Context, noteID int64) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM cross_links WHERE linked_note_id = ?", noteID)
	if err != nil {
		return fmt.Errorf("failed to delete inbound links of note %d: %w", noteID, err)
	}
	return nil
}

// InsertCrossLinks bulk-inserts link rows and fills in their IDs.
func (t *Tx) InsertCrossLinks(ctx context.Context, links []*CrossLink) error {
	for _, l := range links {
		res, err := t.tx.ExecContext(ctx, `
			INSERT INTO cross_links (note_id, linked_note_id, title) VALUES (?, ?, ?)
		`, l.NoteID, l.LinkedNoteID, l.Title)
		if err != nil {
			return fmt.Errorf("failed to insert link %d -> %d: %w", l.NoteID, l.LinkedNoteID, err)
		}
		if l.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}

// FindReferrers returns the notes holding at least one link to noteID.
func (t *Tx) FindReferrers(ctx context.Context, noteID int64) ([]*Note, error) {
	return t.queryNotes(ctx, `
		SELECT DISTINCT n.id, n.uuid, n.owner_id, n.parent_id, n.title, n.content, n.created_at, n.updated_at
		FROM notes n JOIN cross_links cl ON cl.note_id = n.id
		WHERE cl.linked_note_id = ?
		ORDER BY n.id
	`, noteID)
}

// ListOutboundLinks returns noteID's links joined with their target notes.
func (t *Tx) ListOutboundLinks(ctx context.Context, noteID int64) ([]*LinkedRef, error) {
	return t.queryLinked(ctx, `
		SELECT cl.id, cl.title, n.id, n.uuid, n.owner_id, n.parent_id, n.title, n.content, n.created_at, n.updated_at
		FROM cross_links cl JOIN notes n ON n.id = cl.linked_note_id
		WHERE cl.note_id = ?
		ORDER BY cl.id
	`, noteID)
}

// ListBacklinks returns the links pointing at noteID joined with their source notes.
func (t *Tx) ListBacklinks(ctx context.Context, noteID int64) ([]*LinkedRef, error) {
	return t.queryLinked(ctx, `
		SELECT cl.id, cl.title, n.id, n.uuid, n.owner_id, n.parent_id, n.title, n.content, n.created_at, n.updated_at
		FROM cross_links cl JOIN notes n ON n.id = cl.note_id
		WHERE cl.linked_note_id = ?
		ORDER BY cl.id
	`, noteID)
}

// CountLinks returns the number of link rows touching noteID on either side.
func (t *Tx) CountLinks(ctx context.Context, noteID int64) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cross_links WHERE note_id = ? OR linked_note_id = ?", noteID, noteID).Scan(&count)
	return count, err
}

func (t *Tx) queryLinked(ctx context.Context, query string, args ...any) ([]*LinkedRef, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []*LinkedRef
	for rows.Next() {
		var ref LinkedRef
		var parentID sql.NullInt64
		n := &ref.Note
		if err := rows.Scan(&ref.LinkID, &ref.Title,
			&n.ID, &n.UUID, &n.OwnerID, &parentID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		if parentID.Valid {
			n.ParentID = &parentID.Int64
		}
		refs = append(refs, &ref)
	}
	return refs, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
