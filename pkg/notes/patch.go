package notes

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kittclouds/notegraph/internal/store"
)

// MaxTitleLength is the longest title a note may carry, in characters.
const MaxTitleLength = 100

// NoteInput describes a note to create. ParentUUID is optional.
type NoteInput struct {
	Title      string `json:"title" yaml:"title"`
	Content    string `json:"content" yaml:"content"`
	ParentUUID string `json:"parentUuid,omitempty" yaml:"parent,omitempty"`
}

// NotePatch is a partial update. Nil fields are left untouched; nothing else
// about a note can be changed through it.
type NotePatch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Apply merges p into n and reports which fields actually changed.
func (p NotePatch) Apply(n *store.Note) (titleChanged, contentChanged bool) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title != n.Title {
			n.Title = title
			titleChanged = true
		}
	}
	if p.Content != nil && *p.Content != n.Content {
		n.Content = *p.Content
		contentChanged = true
	}
	return titleChanged, contentChanged
}

// validateTitle trims title and checks it against the title rules.
func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, MaxTitleLength)
	}
	if strings.Contains(title, "[[") || strings.Contains(title, "]]") {
		return "", fmt.Errorf("%w: title may not contain [[ or ]]", ErrInvalidInput)
	}
	return title, nil
}
