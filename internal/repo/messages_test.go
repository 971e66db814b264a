package repo

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/mfeldheim/hindsight/internal/store"
)

func TestSearchTerms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"simple", "auth bug", []string{"auth", "bug"}},
		{"short terms dropped", "fix a db io bug", []string{"fix", "bug"}},
		{"lowercased", "Auth BUG", []string{"auth", "bug"}},
		{"all short", "a of it", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchTerms(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("term %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDegradable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"embedder unavailable", errors.New("embedder not configured"), true},
		{"embedding backend down", errors.New("embed query: connection refused"), true},
		{"transient exhausted", fmt.Errorf("vector query: %w", store.ErrTransient), false},
		{"index corruption", fmt.Errorf("fts query: %w", store.ErrIndexCorruption), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := degradable(tt.err); got != tt.want {
				t.Errorf("degradable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSubstringScore(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		content string
		want    float64
		wantOK  bool
	}{
		{"all terms", "auth bug", "found an Auth bug in login", 1.0, true},
		{"half terms", "auth timeout", "the auth flow works", 0.5, true},
		{"case folded", "AUTH", "authentication handler", 1.0, true},
		{"no terms match", "database", "frontend styling", 0, false},
		{"empty query", "", "anything", 0, false},
		{"only short terms", "a of", "a of things", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SubstringScore(tt.query, tt.content)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("score = %v, want %v", got, tt.want)
			}
		})
	}
}
