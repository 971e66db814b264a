// Package search implements the query-time pipeline: hybrid message search
// via the message repository, snippet extraction, conversation grouping,
// adjacent-context enrichment, recency-decay re-ranking, and cross-entity
// file search.
package search

import (
	"strings"
	"unicode/utf8"
)

// ContextChars is the number of characters kept on each side of the first
// matched position when building a snippet.
const ContextChars = 200

// Highlight is a half-open byte range into the snippet string.
type Highlight struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// BuildSnippet locates the full query phrase in content if present, else the
// earliest individual term occurrence, and returns a symmetric window of
// ContextChars around it with "..." markers when truncated. Highlight ranges
// are recomputed relative to the returned snippet (ellipsis included) by
// re-scanning each term inside the snippet text, never by shifting offsets
// from the full content.
//
// When no term occurs at all the snippet is simply the leading 2*ContextChars
// of content with no highlights.
func BuildSnippet(content, query string, contextChars int) (string, []Highlight) {
	if contextChars <= 0 {
		contextChars = ContextChars
	}
	lower := strings.ToLower(content)
	phrase := strings.ToLower(strings.TrimSpace(query))
	terms := splitTerms(phrase)

	pos, matchLen := -1, 0
	if phrase != "" {
		if i := strings.Index(lower, phrase); i >= 0 {
			pos, matchLen = i, len(phrase)
		}
	}
	if pos < 0 {
		for _, t := range terms {
			if i := strings.Index(lower, t); i >= 0 && (pos < 0 || i < pos) {
				pos, matchLen = i, len(t)
			}
		}
	}

	if pos < 0 {
		limit := 2 * contextChars
		if limit > len(content) {
			limit = len(content)
		}
		return content[:runeStart(content, limit)], nil
	}

	start := pos - contextChars
	if start < 0 {
		start = 0
	}
	start = runeStart(content, start)
	end := pos + matchLen + contextChars
	if end > len(content) {
		end = len(content)
	}
	end = runeStart(content, end)

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet = snippet + "..."
	}

	return snippet, highlightTerms(snippet, terms, phrase)
}

// highlightTerms scans the snippet for every term occurrence. The full
// phrase is included as a term so exact matches highlight as one range.
func highlightTerms(snippet string, terms []string, phrase string) []Highlight {
	lower := strings.ToLower(snippet)
	scan := terms
	if phrase != "" && !contains(terms, phrase) {
		scan = append([]string{phrase}, terms...)
	}

	var ranges []Highlight
	seen := make(map[Highlight]bool)
	for _, t := range scan {
		if t == "" {
			continue
		}
		from := 0
		for {
			i := strings.Index(lower[from:], t)
			if i < 0 {
				break
			}
			h := Highlight{Start: from + i, End: from + i + len(t)}
			if !seen[h] {
				seen[h] = true
				ranges = append(ranges, h)
			}
			from = h.Start + 1
		}
	}

	sortHighlights(ranges)
	return ranges
}

func sortHighlights(hs []Highlight) {
	for i := 1; i < len(hs); i++ {
		for j := i; j > 0 && less(hs[j], hs[j-1]); j-- {
			hs[j], hs[j-1] = hs[j-1], hs[j]
		}
	}
}

func less(a, b Highlight) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End < b.End
}

// runeStart backs a byte cut point off to the nearest rune boundary so
// windows never split a multi-byte character.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// splitTerms mirrors the substring-fallback tokenization: lower-cased
// whitespace fields longer than two characters.
func splitTerms(q string) []string {
	var terms []string
	for _, f := range strings.Fields(q) {
		if len(f) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}
