// Package mentions finds plain-text occurrences of note titles in content,
// the raw material for link suggestions.
// A single Aho-Corasick automaton over canonicalized titles scans a document
// in one pass.
package mentions

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"
)

// ============================================================================
// Canonicalization - shared by pattern compilation and document scanning
// ============================================================================

// isJoiner reports punctuation that stays inside a term: "O'Brien", "Jean-Luc", "snake_case", "R&D".
func isJoiner(r rune) bool {
	switch r {
	case '\'', '-', '_', '&':
		return true
	default:
		return false
	}
}

// fold lowercases r and maps typographic apostrophes and dashes to ASCII.
func fold(r rune) rune {
	c := unicode.ToLower(r)
	switch c {
	case '\u2019', '\u2018':
		return '\''
	case '\u2013', '\u2014':
		return '-'
	}
	return c
}

func isTermRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c)
}

// Canonicalize lowercases s, keeps letters, digits and joiners, and collapses
// every other run of characters into a single space.
func Canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	lastWasSpace := true
	for _, ch := range s {
		c := fold(ch)
		if isTermRune(c) {
			out.WriteRune(c)
			lastWasSpace = false
		} else if !lastWasSpace {
			out.WriteByte(' ')
			lastWasSpace = true
		}
	}

	return strings.TrimSuffix(out.String(), " ")
}

// offsetMap maps each byte of Canonicalize(original) back to a byte offset in
// original. The final element is len(original).
func offsetMap(original string) []int {
	mapping := make([]int, 0, len(original)+1)

	lastWasSpace := true
	for pos, ch := range original {
		c := fold(ch)
		if isTermRune(c) {
			for i := 0; i < utf8.RuneLen(c); i++ {
				mapping = append(mapping, pos)
			}
			lastWasSpace = false
		} else if !lastWasSpace {
			mapping = append(mapping, pos)
			lastWasSpace = true
		}
	}

	return append(mapping, len(original))
}

// ============================================================================
// Dictionary
// ============================================================================

// Entry is a note that may be mentioned.
type Entry struct {
	UUID  string
	Title string
}

// Mention is a title occurrence in scanned text.
type Mention struct {
	Start int    // byte offset in the original text
	End   int    // exclusive
	Text  string // original slice, casing preserved
	UUIDs []string
}

// Dictionary matches note titles in text.
type Dictionary struct {
	ac       *ahocorasick.Automaton
	patterns []string
	uuids    [][]string // pattern index -> notes sharing that title
}

var english = stopwords.MustGet("en")

// Compile builds a Dictionary. Titles that canonicalize to nothing, or to a
// single English stopword, are skipped: they would match everywhere.
func Compile(entries []Entry) (*Dictionary, error) {
	d := &Dictionary{}
	index := make(map[string]int)

	for _, e := range entries {
		key := Canonicalize(e.Title)
		if key == "" {
			continue
		}
		if !strings.Contains(key, " ") && english.Contains(key) {
			continue
		}

		if idx, ok := index[key]; ok {
			d.uuids[idx] = appendUnique(d.uuids[idx], e.UUID)
			continue
		}
		index[key] = len(d.patterns)
		d.patterns = append(d.patterns, key)
		d.uuids = append(d.uuids, []string{e.UUID})
	}

	if len(d.patterns) == 0 {
		return d, nil
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(d.patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	d.ac = automaton

	return d, nil
}

// Len returns the number of distinct titles in the dictionary.
func (d *Dictionary) Len() int {
	return len(d.patterns)
}

// Scan returns the titles mentioned in text, left to right. Matches must
// start and end on word boundaries; among overlapping candidates the
// leftmost, then longest, wins.
func (d *Dictionary) Scan(text string) []Mention {
	if d.ac == nil {
		return nil
	}

	canon := Canonicalize(text)
	haystack := []byte(canon)
	canonToOrig := offsetMap(text)

	type span struct{ start, end, pattern int }
	var spans []span
	for _, m := range d.ac.FindAllOverlapping(haystack) {
		if m.Start > 0 && haystack[m.Start-1] != ' ' {
			continue
		}
		if m.End < len(haystack) && haystack[m.End] != ' ' {
			continue
		}
		spans = append(spans, span{m.Start, m.End, m.PatternID})
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	var out []Mention
	next := 0
	for _, s := range spans {
		if s.start < next {
			continue
		}
		next = s.end

		start := mapOffset(s.start, canonToOrig, len(text))
		// the last matched byte, not the separator after it
		end := mapOffset(s.end-1, canonToOrig, len(text))
		_, w := utf8.DecodeRuneInString(text[end:])
		end += w

		out = append(out, Mention{
			Start: start,
			End:   end,
			Text:  text[start:end],
			UUIDs: d.uuids[s.pattern],
		})
	}
	return out
}

func mapOffset(canonOffset int, mapping []int, originalLen int) int {
	if canonOffset >= len(mapping) {
		return originalLen
	}
	if canonOffset < 0 {
		return 0
	}
	return mapping[canonOffset]
}

func appendUnique(slice []string, item string) []string {
	for _, s := range slice {
		if s == item {
			return slice
		}
	}
	return append(slice, item)
}
