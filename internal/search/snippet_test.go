package search

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildSnippet_ShortContent(t *testing.T) {
	content := "the quick brown fox jumps"
	snippet, highlights := BuildSnippet(content, "brown", 200)

	if snippet != content {
		t.Errorf("snippet = %q, want full content", snippet)
	}
	if len(highlights) != 1 {
		t.Fatalf("got %d highlights, want 1", len(highlights))
	}
	h := highlights[0]
	if snippet[h.Start:h.End] != "brown" {
		t.Errorf("highlight covers %q, want %q", snippet[h.Start:h.End], "brown")
	}
}

func TestBuildSnippet_WindowAndEllipses(t *testing.T) {
	content := strings.Repeat("x", 500) + " needle " + strings.Repeat("y", 500)
	snippet, highlights := BuildSnippet(content, "needle", 50)

	if !strings.HasPrefix(snippet, "...") || !strings.HasSuffix(snippet, "...") {
		t.Errorf("truncated snippet missing ellipsis markers: %q", snippet)
	}
	if !strings.Contains(snippet, "needle") {
		t.Fatalf("snippet does not contain the match: %q", snippet)
	}
	// The window is 50 chars each side plus the match and markers.
	if len(snippet) > 6+50+len("needle")+50 {
		t.Errorf("snippet length %d exceeds the window", len(snippet))
	}
	if len(highlights) != 1 {
		t.Fatalf("got %d highlights, want 1", len(highlights))
	}
	if got := snippet[highlights[0].Start:highlights[0].End]; got != "needle" {
		t.Errorf("highlight covers %q, want %q after ellipsis shift", got, "needle")
	}
}

func TestBuildSnippet_PhrasePreferredOverTerm(t *testing.T) {
	content := "first bug appears here, then the auth bug shows up much later in the text"
	snippet, highlights := BuildSnippet(content, "auth bug", 15)

	if !strings.Contains(snippet, "auth bug") {
		t.Fatalf("snippet %q not centered on the phrase", snippet)
	}
	found := false
	for _, h := range highlights {
		if snippet[h.Start:h.End] == "auth bug" {
			found = true
		}
	}
	if !found {
		t.Errorf("no highlight covering the full phrase in %v", highlights)
	}
}

func TestBuildSnippet_CaseInsensitive(t *testing.T) {
	snippet, highlights := BuildSnippet("The AUTH handler failed", "auth", 200)
	if len(highlights) != 1 {
		t.Fatalf("got %d highlights, want 1", len(highlights))
	}
	if got := snippet[highlights[0].Start:highlights[0].End]; got != "AUTH" {
		t.Errorf("highlight covers %q, want original-case %q", got, "AUTH")
	}
}

func TestBuildSnippet_NoMatch(t *testing.T) {
	content := strings.Repeat("abc ", 200)
	snippet, highlights := BuildSnippet(content, "zzz", 50)

	if len(highlights) != 0 {
		t.Errorf("no-match snippet has highlights: %v", highlights)
	}
	if len(snippet) != 100 {
		t.Errorf("no-match snippet length = %d, want leading 2*contextChars", len(snippet))
	}
}

func TestBuildSnippet_MultiByteBoundaries(t *testing.T) {
	// Window edges land mid-rune on both sides of the match; the cut must
	// back off to a rune boundary instead of splitting a character.
	content := strings.Repeat("α", 4) + "match" + strings.Repeat("β", 4)
	snippet, highlights := BuildSnippet(content, "match", 3)

	if !utf8.ValidString(snippet) {
		t.Fatalf("snippet is not valid UTF-8: %q", snippet)
	}
	if !strings.Contains(snippet, "match") {
		t.Fatalf("snippet does not contain the match: %q", snippet)
	}
	if len(highlights) != 1 {
		t.Fatalf("got %d highlights, want 1", len(highlights))
	}

	// No-match path truncates too.
	snippet, _ = BuildSnippet(strings.Repeat("€", 5), "zzz", 2)
	if !utf8.ValidString(snippet) {
		t.Errorf("no-match snippet is not valid UTF-8: %q", snippet)
	}
}

func TestBuildSnippet_AllHighlightsInBounds(t *testing.T) {
	content := "retry the migration, the retry loop keeps looping, retry again"
	snippet, highlights := BuildSnippet(content, "retry loop", 20)

	for _, h := range highlights {
		if h.Start < 0 || h.End > len(snippet) || h.Start >= h.End {
			t.Errorf("highlight %+v out of bounds for snippet of length %d", h, len(snippet))
		}
	}
	for i := 1; i < len(highlights); i++ {
		if highlights[i].Start < highlights[i-1].Start {
			t.Errorf("highlights not sorted: %v", highlights)
		}
	}
}
