package notes

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/kittclouds/notegraph/internal/store"
)

// NoteRef identifies a note in responses.
type NoteRef struct {
	UUID  string `json:"uuid"`
	Title string `json:"title"`
}

// LinkView is one cross link as seen from one of its ends: Note is the far side.
type LinkView struct {
	Title string  `json:"title"`
	Note  NoteRef `json:"note"`
}

// NoteView is a note with its whole neighbourhood resolved.
type NoteView struct {
	UUID       string     `json:"uuid"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	ParentUUID string     `json:"parentUuid,omitempty"`
	CreatedAt  int64      `json:"createdAt"`
	UpdatedAt  int64      `json:"updatedAt"`
	Excerpt    string     `json:"excerpt"`
	Tags       []string   `json:"tags"`
	Children   []NoteRef  `json:"children"`
	Links      []LinkView `json:"links"`
	Backlinks  []LinkView `json:"backlinks"`
}

// NoteSummary is the list form of a note.
type NoteSummary struct {
	UUID      string `json:"uuid"`
	Title     string `json:"title"`
	Root      bool   `json:"root"`
	UpdatedAt int64  `json:"updatedAt"`
	Excerpt   string `json:"excerpt"`
}

// TagView is a tag with the number of notes using it.
type TagView struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Notes int    `json:"notes"`
}

func refOf(n *store.Note) NoteRef {
	return NoteRef{UUID: n.UUID, Title: n.Title}
}

func summaryOf(n *store.Note) NoteSummary {
	return NoteSummary{
		UUID:      n.UUID,
		Title:     n.Title,
		Root:      n.ParentID == nil,
		UpdatedAt: n.UpdatedAt,
		Excerpt:   Excerpt(n.Content),
	}
}

func linkViews(refs []*store.LinkedRef) []LinkView {
	out := make([]LinkView, 0, len(refs))
	for _, r := range refs {
		out = append(out, LinkView{Title: r.Title, Note: refOf(&r.Note)})
	}
	return out
}

// hydrate assembles the full view of n from tx.
func hydrate(ctx context.Context, tx *store.Tx, n *store.Note) (*NoteView, error) {
	v := &NoteView{
		UUID:      n.UUID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		Excerpt:   Excerpt(n.Content),
	}

	if n.ParentID != nil {
		parent, err := tx.GetNote(ctx, *n.ParentID)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			v.ParentUUID = parent.UUID
		}
	}

	tags, err := tx.ListNoteTags(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	v.Tags = make([]string, 0, len(tags))
	for _, tg := range tags {
		v.Tags = append(v.Tags, tg.Name)
	}

	children, err := tx.ListChildren(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	v.Children = make([]NoteRef, 0, len(children))
	for _, c := range children {
		v.Children = append(v.Children, refOf(c))
	}

	out, err := tx.ListOutboundLinks(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	v.Links = linkViews(out)

	back, err := tx.ListBacklinks(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	v.Backlinks = linkViews(back)

	return v, nil
}

const (
	excerptLength     = 120
	excerptParagraphs = 2
)

// Excerpt returns the plain text of the first top-level paragraphs of
// markdown content, cut to a short preview. Headings, lists, quotes and code
// blocks are not part of it.
func Excerpt(markdown string) string {
	source := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var parts []string
	for block := doc.FirstChild(); block != nil && len(parts) < excerptParagraphs; block = block.NextSibling() {
		if block.Kind() != ast.KindParagraph {
			continue
		}
		if t := plainText(block, source); t != "" {
			parts = append(parts, t)
		}
	}
	return truncateRunes(strings.Join(parts, " "), excerptLength)
}

// plainText flattens the inline nodes under n to their literal text. Line
// breaks read as spaces and runs of whitespace collapse to one.
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(source))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.AutoLink:
			b.Write(c.Label(source))
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-3]) + "..."
}
