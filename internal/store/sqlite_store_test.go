package store

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// tickingClock makes NowMillis advance by one millisecond per call.
func tickingClock(t *testing.T) {
	t.Helper()
	prev := NowMillis
	var now int64 = 1700000000000
	NowMillis = func() int64 {
		now++
		return now
	}
	t.Cleanup(func() { NowMillis = prev })
}

func TestNoteCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	prev := NowMillis
	NowMillis = func() int64 { return 1700000000000 }
	t.Cleanup(func() { NowMillis = prev })

	note := &Note{OwnerID: 1, Title: "Test Note", Content: "Content"}
	err := s.Update(ctx, func(tx *Tx) error {
		return tx.InsertNote(ctx, note)
	})
	if err != nil {
		t.Fatalf("InsertNote failed: %v", err)
	}
	if note.ID == 0 || note.UUID == "" {
		t.Fatalf("InsertNote did not fill identity: %+v", note)
	}
	if note.CreatedAt != 1700000000000 || note.UpdatedAt != note.CreatedAt {
		t.Errorf("unexpected timestamps: created=%d updated=%d", note.CreatedAt, note.UpdatedAt)
	}

	// Read by ID and by UUID
	err = s.View(ctx, func(tx *Tx) error {
		got, err := tx.GetNote(ctx, note.ID)
		if err != nil {
			return err
		}
		if got == nil || got.Title != "Test Note" || got.ParentID != nil {
			t.Errorf("GetNote mismatch: %+v", got)
		}

		got, err = tx.GetNoteByUUID(ctx, 1, note.UUID)
		if err != nil {
			return err
		}
		if got == nil || got.ID != note.ID {
			t.Errorf("GetNoteByUUID mismatch: %+v", got)
		}

		// Other owners cannot see it
		got, err = tx.GetNoteByUUID(ctx, 2, note.UUID)
		if err != nil {
			return err
		}
		if got != nil {
			t.Errorf("note leaked across owners")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}

	// Update
	NowMillis = func() int64 { return 1700000000500 }
	note.Title = "Renamed"
	note.Content = "Changed"
	if err := s.Update(ctx, func(tx *Tx) error { return tx.UpdateNote(ctx, note) }); err != nil {
		t.Fatalf("UpdateNote failed: %v", err)
	}
	_ = s.View(ctx, func(tx *Tx) error {
		got, _ := tx.GetNote(ctx, note.ID)
		if got.Title != "Renamed" || got.Content != "Changed" || got.UpdatedAt != 1700000000500 {
			t.Errorf("update not persisted: %+v", got)
		}
		return nil
	})

	// Delete
	if err := s.Update(ctx, func(tx *Tx) error { return tx.DeleteNote(ctx, note.ID) }); err != nil {
		t.Fatalf("DeleteNote failed: %v", err)
	}
	_ = s.View(ctx, func(tx *Tx) error {
		got, err := tx.GetNote(ctx, note.ID)
		if err != nil {
			t.Fatalf("GetNote failed: %v", err)
		}
		if got != nil {
			t.Errorf("note not deleted")
		}
		return nil
	})
}

func TestSiblingTitlesAreUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx *Tx) error {
		root := &Note{OwnerID: 1, Title: "Root"}
		if err := tx.InsertNote(ctx, root); err != nil {
			return err
		}
		child := &Note{OwnerID: 1, ParentID: &root.ID, Title: "Same"}
		if err := tx.InsertNote(ctx, child); err != nil {
			return err
		}

		// Same title at the root level and for another owner is fine
		if err := tx.InsertNote(ctx, &Note{OwnerID: 1, Title: "Same"}); err != nil {
			return err
		}
		if err := tx.InsertNote(ctx, &Note{OwnerID: 2, Title: "Root"}); err != nil {
			return err
		}

		if err := tx.InsertNote(ctx, &Note{OwnerID: 1, ParentID: &root.ID, Title: "Same"}); err == nil {
			t.Errorf("duplicate sibling title was accepted")
		}

		taken, err := tx.TitleTaken(ctx, 1, &root.ID, "Same", 0)
		if err != nil {
			return err
		}
		if !taken {
			t.Errorf("TitleTaken should see the existing child")
		}
		taken, _ = tx.TitleTaken(ctx, 1, &root.ID, "Same", child.ID)
		if taken {
			t.Errorf("TitleTaken should exclude the note itself")
		}
		taken, _ = tx.TitleTaken(ctx, 1, nil, "Root", 0)
		if !taken {
			t.Errorf("TitleTaken should see root titles")
		}
		taken, _ = tx.TitleTaken(ctx, 3, nil, "Root", 0)
		if taken {
			t.Errorf("TitleTaken should be scoped per owner")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var root, child Note
	err := s.Update(ctx, func(tx *Tx) error {
		root = Note{OwnerID: 1, Title: "Root"}
		if err := tx.InsertNote(ctx, &root); err != nil {
			return err
		}
		child = Note{OwnerID: 1, ParentID: &root.ID, Title: "Child"}
		if err := tx.InsertNote(ctx, &child); err != nil {
			return err
		}
		return tx.InsertCrossLinks(ctx, []*CrossLink{{NoteID: child.ID, LinkedNoteID: root.ID, Title: "up"}})
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	err = s.Update(ctx, func(tx *Tx) error { return tx.DeleteNote(ctx, root.ID) })
	if err == nil {
		t.Fatalf("deleting a parent with children should fail")
	}

	err = s.Update(ctx, func(tx *Tx) error {
		return tx.InsertCrossLinks(ctx, []*CrossLink{{NoteID: child.ID, LinkedNoteID: 9999, Title: "dangling"}})
	})
	if err == nil {
		t.Fatalf("link to a missing note should fail")
	}
}

func TestTagsAndLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx *Tx) error {
		a := &Note{OwnerID: 1, Title: "A"}
		b := &Note{OwnerID: 1, Title: "B"}
		if err := tx.InsertNote(ctx, a); err != nil {
			return err
		}
		if err := tx.InsertNote(ctx, b); err != nil {
			return err
		}

		if err := tx.InsertTagsIgnore(ctx, 1, []string{"go", "sql"}); err != nil {
			return err
		}
		// Second insert of an existing name is ignored
		if err := tx.InsertTagsIgnore(ctx, 1, []string{"go"}); err != nil {
			return err
		}
		ids, err := tx.ResolveTagIDs(ctx, 1, []string{"go", "sql", "missing"})
		if err != nil {
			return err
		}
		if len(ids) != 2 {
			t.Errorf("expected 2 resolved tags, got %v", ids)
		}

		pairs := []NoteTag{{a.ID, ids["go"]}, {a.ID, ids["go"]}, {b.ID, ids["go"]}}
		if err := tx.InsertNoteTags(ctx, pairs); err != nil {
			return err
		}

		usage, err := tx.ListTags(ctx, 1)
		if err != nil {
			return err
		}
		if len(usage) != 2 || usage[0].Name != "go" || usage[0].NoteCount != 2 || usage[1].NoteCount != 0 {
			t.Errorf("unexpected tag usage: %+v %+v", usage[0], usage[1])
		}

		tagged, err := tx.ListNotes(ctx, 1, NoteFilter{TagName: "go"})
		if err != nil {
			return err
		}
		if len(tagged) != 2 {
			t.Errorf("expected 2 notes tagged go, got %d", len(tagged))
		}

		if err := tx.InsertCrossLinks(ctx, []*CrossLink{
			{NoteID: a.ID, LinkedNoteID: b.ID, Title: "to b"},
			{NoteID: a.ID, LinkedNoteID: b.ID, Title: "again"},
		}); err != nil {
			return err
		}

		out, err := tx.ListOutboundLinks(ctx, a.ID)
		if err != nil {
			return err
		}
		if len(out) != 2 || out[0].Note.ID != b.ID || out[0].Title != "to b" {
			t.Errorf("unexpected outbound links: %+v", out)
		}
		back, err := tx.ListBacklinks(ctx, b.ID)
		if err != nil {
			return err
		}
		if len(back) != 2 || back[0].Note.ID != a.ID {
			t.Errorf("unexpected backlinks: %+v", back)
		}

		refs, err := tx.FindReferrers(ctx, b.ID)
		if err != nil {
			return err
		}
		if len(refs) != 1 || refs[0].ID != a.ID {
			t.Errorf("referrers should be distinct: %+v", refs)
		}

		if err := tx.DeleteInboundLinks(ctx, b.ID); err != nil {
			return err
		}
		n, err := tx.CountLinks(ctx, a.ID)
		if err != nil {
			return err
		}
		if n != 0 {
			t.Errorf("expected no links left, got %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func TestListNotesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tickingClock(t)

	err := s.Update(ctx, func(tx *Tx) error {
		beta := &Note{OwnerID: 1, Title: "beta"}
		alpha := &Note{OwnerID: 1, Title: "alpha"}
		for _, n := range []*Note{beta, alpha, {OwnerID: 2, Title: "other"}} {
			if err := tx.InsertNote(ctx, n); err != nil {
				return err
			}
		}
		if err := tx.InsertNote(ctx, &Note{OwnerID: 1, ParentID: &beta.ID, Title: "child"}); err != nil {
			return err
		}

		all, err := tx.ListNotes(ctx, 1, NoteFilter{})
		if err != nil {
			return err
		}
		if got := titles(all); len(got) != 3 || got[0] != "child" || got[1] != "alpha" || got[2] != "beta" {
			t.Errorf("expected newest first, got %v", got)
		}

		roots, _ := tx.ListNotes(ctx, 1, NoteFilter{RootsOnly: true})
		if len(roots) != 2 {
			t.Errorf("expected 2 roots, got %d", len(roots))
		}

		kids, _ := tx.ListNotes(ctx, 1, NoteFilter{ParentID: &beta.ID})
		if len(kids) != 1 || kids[0].Title != "child" {
			t.Errorf("unexpected children: %+v", kids)
		}

		count, err := tx.CountNotes(ctx, 1)
		if err != nil {
			return err
		}
		if count != 3 {
			t.Errorf("expected 3 notes, got %d", count)
		}

		ids, err := tx.ResolveNoteUUIDs(ctx, 1, []string{alpha.UUID, "nope"})
		if err != nil {
			return err
		}
		if len(ids) != 1 || ids[alpha.UUID] != alpha.ID {
			t.Errorf("unexpected resolution: %v", ids)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Update(ctx, func(tx *Tx) error {
		if err := tx.InsertNote(ctx, &Note{OwnerID: 1, Title: "Ghost"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	// View never commits either
	_ = s.View(ctx, func(tx *Tx) error {
		return tx.InsertNote(ctx, &Note{OwnerID: 1, Title: "Phantom"})
	})

	_ = s.View(ctx, func(tx *Tx) error {
		count, err := tx.CountNotes(ctx, 1)
		if err != nil {
			t.Fatalf("CountNotes failed: %v", err)
		}
		if count != 0 {
			t.Errorf("expected no notes after rollback, got %d", count)
		}
		return nil
	})
}

func TestVersions(t *testing.T) {
	s := newTestStore(t)

	v, err := s.Versions(context.Background())
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if v.SQLite == "" || v.Vec == "" {
		t.Errorf("expected both versions, got %+v", v)
	}
}

func titles(notes []*Note) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Title)
	}
	return out
}

func TestListNotesPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tickingClock(t)

	err := s.Update(ctx, func(tx *Tx) error {
		var notes []*Note
		for _, title := range []string{"n1", "n2", "n3", "n4", "n5"} {
			n := &Note{OwnerID: 1, Title: title}
			if err := tx.InsertNote(ctx, n); err != nil {
				return err
			}
			notes = append(notes, n)
		}
		// touching n2 moves it to the front
		notes[1].Content = "edited"
		if err := tx.UpdateNote(ctx, notes[1]); err != nil {
			return err
		}

		cases := []struct {
			name   string
			filter NoteFilter
			want   []string
		}{
			{"everything", NoteFilter{}, []string{"n2", "n5", "n4", "n3", "n1"}},
			{"first page", NoteFilter{Limit: 2}, []string{"n2", "n5"}},
			{"middle page", NoteFilter{Offset: 2, Limit: 2}, []string{"n4", "n3"}},
			{"skip only", NoteFilter{Offset: 3}, []string{"n3", "n1"}},
			{"past the end", NoteFilter{Offset: 10, Limit: 2}, []string{}},
			{"limit above total", NoteFilter{Limit: 50}, []string{"n2", "n5", "n4", "n3", "n1"}},
		}
		for _, tc := range cases {
			got, err := tx.ListNotes(ctx, 1, tc.filter)
			if err != nil {
				return err
			}
			if g := titles(got); strings.Join(g, ",") != strings.Join(tc.want, ",") {
				t.Errorf("%s: got %v, want %v", tc.name, g, tc.want)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func TestListNotesSameTimestampOrderedByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	prev := NowMillis
	NowMillis = func() int64 { return 1700000000000 }
	t.Cleanup(func() { NowMillis = prev })

	err := s.Update(ctx, func(tx *Tx) error {
		for _, title := range []string{"zeta", "alpha", "mu"} {
			if err := tx.InsertNote(ctx, &Note{OwnerID: 1, Title: title}); err != nil {
				return err
			}
		}
		first, err := tx.ListNotes(ctx, 1, NoteFilter{Limit: 2})
		if err != nil {
			return err
		}
		rest, err := tx.ListNotes(ctx, 1, NoteFilter{Offset: 2})
		if err != nil {
			return err
		}
		if got := strings.Join(append(titles(first), titles(rest)...), ","); got != "zeta,alpha,mu" {
			t.Errorf("expected insertion order across pages, got %s", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}
