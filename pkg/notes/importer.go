package notes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// DefaultImportPattern selects every markdown file below the import root.
const DefaultImportPattern = "**/*.md"

// ImportReport summarises an import run.
type ImportReport struct {
	Imported []NoteRef       `json:"imported"`
	Skipped  []ImportSkipped `json:"skipped,omitempty"`
}

// ImportSkipped is a file that did not become a note.
type ImportSkipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ImportFiles creates one root note per file in fsys matching pattern, in
// lexical path order. Files whose title is invalid or already taken are
// reported as skipped; any other failure stops the run.
func (s *Service) ImportFiles(ctx context.Context, owner int64, fsys fs.FS, pattern string) (*ImportReport, error) {
	if pattern == "" {
		pattern = DefaultImportPattern
	}

	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to match %q: %w", pattern, err)
	}
	sort.Strings(matches)

	report := &ImportReport{}
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return report, fmt.Errorf("failed to read %s: %w", name, err)
		}

		in := ParseMarkdownFile(name, data)
		view, err := s.CreateNote(ctx, owner, in)
		switch {
		case err == nil:
			report.Imported = append(report.Imported, NoteRef{UUID: view.UUID, Title: view.Title})
		case errors.Is(err, ErrTitleTaken), errors.Is(err, ErrInvalidInput):
			report.Skipped = append(report.Skipped, ImportSkipped{Path: name, Reason: err.Error()})
		default:
			return report, err
		}
	}

	s.logger.Info("import finished", "owner", owner, "pattern", pattern,
		"imported", len(report.Imported), "skipped", len(report.Skipped))
	return report, nil
}

type fileFrontmatter struct {
	Title string `yaml:"title"`
}

// ParseMarkdownFile turns a markdown file into a note: the title comes from
// the frontmatter `title` or the file name, the content is the body after
// the frontmatter.
func ParseMarkdownFile(name string, data []byte) NoteInput {
	body, fm := splitFrontmatter(data)

	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title = titleFromFilename(name)
	}

	return NoteInput{Title: title, Content: string(body)}
}

func splitFrontmatter(content []byte) ([]byte, fileFrontmatter) {
	var fm fileFrontmatter
	lines := bytes.Split(content, []byte("\n"))

	if len(lines) == 0 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, fm
	}

	var fmEnd int
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			fmEnd = i
			break
		}
	}
	if fmEnd == 0 {
		return content, fm
	}

	fmBytes := bytes.Join(lines[1:fmEnd], []byte("\n"))
	if err := yaml.Unmarshal(fmBytes, &fm); err != nil {
		// not frontmatter after all
		return content, fileFrontmatter{}
	}

	body := bytes.Join(lines[fmEnd+1:], []byte("\n"))
	return bytes.TrimLeft(body, "\r\n"), fm
}

func titleFromFilename(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))

	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.TrimSpace(base)

	if base == "" {
		return "Note"
	}
	return base
}
