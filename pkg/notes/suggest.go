package notes

import (
	"context"
	"fmt"

	"github.com/kittclouds/notegraph/internal/store"
	"github.com/kittclouds/notegraph/pkg/mentions"
	"github.com/kittclouds/notegraph/pkg/parser"
)

// Suggestion is a plain-text mention of another note's title that could be
// turned into a link.
type Suggestion struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Text  string  `json:"text"`
	Note  NoteRef `json:"note"`
}

// SuggestLinks finds titles of the owner's other notes mentioned in a note's
// content outside existing markup. Notes already linked from it, and the note
// itself, are not suggested. Each note is suggested at most once, at its
// first mention.
func (s *Service) SuggestLinks(ctx context.Context, owner int64, noteUUID string) ([]Suggestion, error) {
	var out []Suggestion
	err := s.store.View(ctx, func(tx *store.Tx) error {
		note, err := s.lookup(ctx, tx, owner, noteUUID)
		if err != nil {
			return err
		}

		all, err := tx.ListNotes(ctx, owner, store.NoteFilter{})
		if err != nil {
			return fmt.Errorf("failed to list notes: %w", err)
		}
		linked, err := tx.ListOutboundLinks(ctx, note.ID)
		if err != nil {
			return fmt.Errorf("failed to list links: %w", err)
		}

		skip := map[string]struct{}{note.UUID: {}}
		for _, l := range linked {
			skip[l.Note.UUID] = struct{}{}
		}

		byUUID := make(map[string]*store.Note, len(all))
		entries := make([]mentions.Entry, 0, len(all))
		for _, n := range all {
			if _, ok := skip[n.UUID]; ok {
				continue
			}
			byUUID[n.UUID] = n
			entries = append(entries, mentions.Entry{UUID: n.UUID, Title: n.Title})
		}

		dict, err := mentions.Compile(entries)
		if err != nil {
			return fmt.Errorf("failed to compile title dictionary: %w", err)
		}

		for _, m := range dict.Scan(parser.Mask(note.Content)) {
			for _, id := range m.UUIDs {
				if _, ok := skip[id]; ok {
					continue
				}
				skip[id] = struct{}{}
				out = append(out, Suggestion{
					Start: m.Start,
					End:   m.End,
					Text:  note.Content[m.Start:m.End],
					Note:  refOf(byUUID[id]),
				})
			}
		}

		s.logger.Debug("link suggestions", "note", noteUUID, "titles", dict.Len(), "found", len(out))
		return nil
	})
	return out, err
}
