// Package store provides SQLite-backed persistence for notegraph.
// It is the relational store the graph engine reads and writes through.
package store

// Note is a single note row. A nil ParentID marks a root note.
type Note struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	OwnerID   int64  `json:"ownerId"`
	ParentID  *int64 `json:"parentId,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Tag is a per-owner label. Names are unique per owner, not globally.
type Tag struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	OwnerID   int64  `json:"ownerId"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// TagUsage is a tag together with the number of notes carrying it.
type TagUsage struct {
	Tag
	NoteCount int `json:"noteCount"`
}

// CrossLink is a directed, titled edge from NoteID to LinkedNoteID.
// Rows are owned by the source note.
type CrossLink struct {
	ID           int64  `json:"id"`
	NoteID       int64  `json:"noteId"`
	LinkedNoteID int64  `json:"linkedNoteId"`
	Title        string `json:"title"`
}

// LinkedRef is a cross link joined with the note on its far side.
type LinkedRef struct {
	LinkID int64  `json:"linkId"`
	Title  string `json:"title"` // anchor text of the link
	Note   Note   `json:"note"`
}

// NoteTag is a row of the note/tag junction table.
type NoteTag struct {
	NoteID int64 `json:"noteId"`
	TagID  int64 `json:"tagId"`
}

// NoteFilter narrows ListNotes. Zero value lists every note of the owner.
// Offset skips that many rows of the ordered result; Limit caps it, 0 meaning
// no cap.
type NoteFilter struct {
	ParentID  *int64
	RootsOnly bool
	TagName   string
	Offset    int
	Limit     int
}

// Versions reports the engine versions backing a store.
type Versions struct {
	SQLite string `json:"sqlite"`
	Vec    string `json:"vec"`
}
