package catalog

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Span is a half-open byte range [Start, End) of a matched substring in the
// original, unfolded text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Matcher performs case-insensitive substring matching for one search term.
// Both sides are NFC-normalised and case-folded, so "STRASSE" finds "straße".
type Matcher struct {
	folder cases.Caser
	term   string
}

// NewMatcher prepares a matcher for term. An empty term matches everything.
func NewMatcher(term string) *Matcher {
	m := &Matcher{folder: cases.Fold()}
	m.term = m.fold(term)
	return m
}

func (m *Matcher) fold(s string) string {
	return m.folder.String(norm.NFC.String(s))
}

// Term is the folded search term.
func (m *Matcher) Term() string {
	return m.term
}

// Matches reports whether text contains the term.
func (m *Matcher) Matches(text string) bool {
	if m.term == "" {
		return true
	}
	return strings.Contains(m.fold(text), m.term)
}

// Highlight returns the non-overlapping spans of text matching the term, left
// to right. Spans begin and end on normalisation boundaries of text, so a
// base letter is never split from its combining marks.
func (m *Matcher) Highlight(text string) []Span {
	if m.term == "" || text == "" {
		return nil
	}

	var spans []Span
	for start := 0; start < len(text); {
		if end, ok := m.matchAt(text, start); ok {
			spans = append(spans, Span{Start: start, End: end})
			start = end
			continue
		}
		start += segmentLen(text[start:])
	}
	return spans
}

// matchAt folds ever longer windows of text starting at start until the
// folded window is no longer a prefix of the term, and reports where the
// match ends if a window equals it.
func (m *Matcher) matchAt(text string, start int) (int, bool) {
	for end := start; end < len(text); {
		end += segmentLen(text[end:])

		got := m.fold(text[start:end])
		if got == m.term {
			return end, true
		}
		if !strings.HasPrefix(m.term, got) {
			return 0, false
		}
	}
	return 0, false
}

// segmentLen is the byte length of the first normalisation segment of s.
func segmentLen(s string) int {
	if n := norm.NFC.NextBoundaryInString(s, true); n > 0 {
		return n
	}
	_, size := utf8.DecodeRuneInString(s)
	return size
}

// NormalizeSearchTerm turns raw input into the stored search term: trimmed
// and lower-cased.
func NormalizeSearchTerm(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
