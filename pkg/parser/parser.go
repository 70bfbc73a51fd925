// Package parser extracts tags, child titles and cross links from raw note content.
// Everything here is pure: no I/O, no errors. Malformed markup is simply not matched.
package parser

import (
	"regexp"
	"strings"
)

var (
	// #tag: a hash immediately followed by ASCII letters, digits or underscores
	tagPattern = regexp.MustCompile(`#(\w+)`)

	// [[Child Title]]
	childPattern = regexp.MustCompile(`\[\[(.*?)\]\]`)

	// [Display text](target) with no brackets in the text and no spaces in the target
	linkPattern = regexp.MustCompile(`\[([^\[\]]*)\]\(([^()\s]+)\)`)
)

// TombstonePrefix starts the marker that replaces a link to a deleted note.
const TombstonePrefix = "DELETED: "

// Link is one inline [Title](Target) occurrence.
type Link struct {
	Target string
	Title  string
}

// Parsed is everything derived from one version of a note's content.
type Parsed struct {
	Tags     []string // in order of appearance, duplicates kept
	Children []string // trimmed titles, duplicates kept
	Links    []Link   // in order of appearance, duplicates kept
}

// Parse runs all three extractors over text.
func Parse(text string) Parsed {
	return Parsed{
		Tags:     ParseTags(text),
		Children: ParseChildren(text),
		Links:    ParseLinkList(text),
	}
}

// ParseTags returns the name of every #tag in text.
func ParseTags(text string) []string {
	matches := tagPattern.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}

// ParseChildren returns the title inside every [[...]] in text.
// Titles that are empty after trimming are skipped.
func ParseChildren(text string) []string {
	matches := childPattern.FindAllStringSubmatch(text, -1)
	children := make([]string, 0, len(matches))
	for _, m := range matches {
		title := strings.TrimSpace(m[1])
		if title == "" {
			continue
		}
		children = append(children, title)
	}
	return children
}

// ParseLinks returns every inline [text](target) link in text keyed by target.
// When a target repeats, the later display text overwrites the earlier one.
func ParseLinks(text string) map[string]string {
	list := ParseLinkList(text)
	links := make(map[string]string, len(list))
	for _, l := range list {
		links[l.Target] = l.Title
	}
	return links
}

// ParseLinkList returns every inline link in text in order of appearance,
// display text trimmed. Callers that fold targets together (by case, say)
// apply later entries over earlier ones to keep "last occurrence wins".
func ParseLinkList(text string) []Link {
	matches := linkPattern.FindAllStringSubmatch(text, -1)
	links := make([]Link, 0, len(matches))
	for _, m := range matches {
		links = append(links, Link{Target: m[2], Title: strings.TrimSpace(m[1])})
	}
	return links
}

// Tombstone is the marker left behind in place of a link to a deleted note.
func Tombstone(title string) string {
	return "[" + TombstonePrefix + title + "]"
}

// ReplaceLinkTarget rewrites every inline link pointing at target into the
// tombstone for title. Other links are left alone. Target matching ignores
// case, since UUIDs may be written in either.
func ReplaceLinkTarget(content, target, title string) string {
	if target == "" {
		return content
	}
	pattern := regexp.MustCompile(`\[[^\[\]]*\]\((?i:` + regexp.QuoteMeta(target) + `)\)`)
	return pattern.ReplaceAllLiteralString(content, Tombstone(title))
}

// RenameChild rewrites every [[oldTitle]] reference in content to [[newTitle]].
// Whitespace padding inside the brackets is not preserved.
func RenameChild(content, oldTitle, newTitle string) string {
	if oldTitle == "" || oldTitle == newTitle {
		return content
	}
	pattern := regexp.MustCompile(`\[\[\s*` + regexp.QuoteMeta(oldTitle) + `\s*\]\]`)
	return pattern.ReplaceAllLiteralString(content, "[["+newTitle+"]]")
}

// Mask blanks out every tag, child reference and inline link in text with
// spaces. Byte offsets into the result are valid offsets into text.
func Mask(text string) string {
	b := []byte(text)
	for _, re := range []*regexp.Regexp{childPattern, linkPattern, tagPattern} {
		for _, loc := range re.FindAllIndex(b, -1) {
			for i := loc[0]; i < loc[1]; i++ {
				b[i] = ' '
			}
		}
	}
	return string(b)
}
