package parser

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", []string{}},
		{"#go is #fun", []string{"go", "fun"}},
		{"#a-b", []string{"a"}},
		{"#dup and #dup", []string{"dup", "dup"}},
		{"snake #snake_case_1 tag", []string{"snake_case_1"}},
		{"lonely # hash and ## double", []string{}},
		{"mid#word", []string{"word"}},
		{"#ünicode", []string{}},
	}

	for _, tc := range tests {
		got := ParseTags(tc.input)
		if !reflect.DeepEqual(got, tc.expected) {
			t.Errorf("ParseTags(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestParseChildren(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", []string{}},
		{"[[A]] [[B]] [[A]]", []string{"A", "B", "A"}},
		{"[[  Spaced Title  ]]", []string{"Spaced Title"}},
		{"[[]] and [[   ]]", []string{}},
		{"[[unclosed and [single]", []string{}},
		{"multi\n[[First Child Note]]\n[[Second Child Note]]", []string{"First Child Note", "Second Child Note"}},
	}

	for _, tc := range tests {
		got := ParseChildren(tc.input)
		if !reflect.DeepEqual(got, tc.expected) {
			t.Errorf("ParseChildren(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestParseLinks(t *testing.T) {
	tests := []struct {
		input    string
		expected map[string]string
	}{
		{"", map[string]string{}},
		{"[x](u1) [y](u1)", map[string]string{"u1": "y"}},
		{"[one](u1) and [two](u2)", map[string]string{"u1": "one", "u2": "two"}},
		{"[](u3)", map[string]string{"u3": ""}},
		{"[[Child]](u4)", map[string]string{}},
		{"[broken](has space)", map[string]string{}},
		{"[open](u5", map[string]string{}},
	}

	for _, tc := range tests {
		got := ParseLinks(tc.input)
		if !reflect.DeepEqual(got, tc.expected) {
			t.Errorf("ParseLinks(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestParse(t *testing.T) {
	p := Parse("#t1 [[Child]] [link](b-uuid)")

	if !reflect.DeepEqual(p.Tags, []string{"t1"}) {
		t.Errorf("Tags = %v", p.Tags)
	}
	if !reflect.DeepEqual(p.Children, []string{"Child"}) {
		t.Errorf("Children = %v", p.Children)
	}
	if !reflect.DeepEqual(p.Links, []Link{{Target: "b-uuid", Title: "link"}}) {
		t.Errorf("Links = %v", p.Links)
	}
}

func TestReplaceLinkTarget(t *testing.T) {
	const target = "3f2b8c1e-0000-4000-8000-000000000001"

	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "single link",
			content:  "see [the target](" + target + ") here",
			expected: "see [DELETED: Old Note] here",
		},
		{
			name:     "every occurrence",
			content:  "[a](" + target + ") and [b](" + target + ")",
			expected: "[DELETED: Old Note] and [DELETED: Old Note]",
		},
		{
			name:     "other links untouched",
			content:  "[keep](other-uuid) [drop](" + target + ")",
			expected: "[keep](other-uuid) [DELETED: Old Note]",
		},
		{
			name:     "upper case target",
			content:  "[shout](3F2B8C1E-0000-4000-8000-000000000001)",
			expected: "[DELETED: Old Note]",
		},
		{
			name:     "no links",
			content:  "plain text",
			expected: "plain text",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ReplaceLinkTarget(tc.content, target, "Old Note")
			if got != tc.expected {
				t.Errorf("got %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestReplaceLinkTargetLiteralTitle(t *testing.T) {
	got := ReplaceLinkTarget("[x](u1)", "u1", "costs $1")
	if got != "[DELETED: costs $1]" {
		t.Errorf("got %q", got)
	}

	// the tombstone is not itself a link, so it survives re-parsing
	if links := ParseLinks(got); len(links) != 0 {
		t.Errorf("tombstone parsed as link: %v", links)
	}
}

func TestRenameChild(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"plain", "see [[Old]]", "see [[New]]"},
		{"padded", "[[  Old ]] and [[Old]]", "[[New]] and [[New]]"},
		{"prefix is not a match", "[[Older]]", "[[Older]]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RenameChild(tc.content, "Old", "New")
			if got != tc.expected {
				t.Errorf("got %q, want %q", got, tc.expected)
			}
		})
	}

	if got := RenameChild("[[a.b (2)]]", "a.b (2)", "$1"); got != "[[$1]]" {
		t.Errorf("got %q", got)
	}
}

func TestMask(t *testing.T) {
	text := "Go #golang [[Go Child]] [Go link](u1) and Go"
	masked := Mask(text)

	if len(masked) != len(text) {
		t.Fatalf("length changed: %d != %d", len(masked), len(text))
	}
	if strings.Contains(masked, "golang") || strings.Contains(masked, "Child") || strings.Contains(masked, "link") {
		t.Errorf("markup not masked: %q", masked)
	}
	if !strings.HasPrefix(masked, "Go ") || !strings.HasSuffix(masked, "and Go") {
		t.Errorf("plain text altered: %q", masked)
	}
}

func TestParseLinkListKeepsOrder(t *testing.T) {
	got := ParseLinkList("[first](U1) [ mid ](u2) [second](u1)")
	want := []Link{
		{Target: "U1", Title: "first"},
		{Target: "u2", Title: "mid"},
		{Target: "u1", Title: "second"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseLinkList = %v, want %v", got, want)
	}

	if links := ParseLinkList("no links here"); len(links) != 0 {
		t.Errorf("expected no links, got %v", links)
	}
}
