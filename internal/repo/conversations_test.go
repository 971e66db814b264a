package repo

import (
	"testing"

	"github.com/mfeldheim/hindsight/internal/models"
)

func conv(source, model, workspace, updatedAt string) models.Conversation {
	return models.Conversation{
		Source:        source,
		Model:         model,
		WorkspacePath: workspace,
		UpdatedAt:     updatedAt,
	}
}

func TestFilterConversations(t *testing.T) {
	rows := []models.Conversation{
		conv("claude-code", "claude-sonnet-4", "/home/dev/api", "2026-08-10T09:00:00Z"),
		conv("claude-code", "claude-opus-4", "/home/dev/web", "2026-08-15T12:30:00Z"),
		conv("cursor", "gpt-4o", "/home/dev/api", "2026-07-01T08:00:00Z"),
	}

	tests := []struct {
		name    string
		filters ListFilters
		want    int
	}{
		{"no filters", ListFilters{}, 3},
		{"source exact-ish", ListFilters{Source: "cursor"}, 1},
		{"model substring case-insensitive", ListFilters{Model: "SONNET"}, 1},
		{"project substring", ListFilters{Project: "api"}, 2},
		{"from date", ListFilters{FromDate: "2026-08-01"}, 2},
		{"to date includes whole day", ListFilters{ToDate: "2026-08-15"}, 3},
		{"to date excludes later", ListFilters{ToDate: "2026-08-09"}, 1},
		{"window", ListFilters{FromDate: "2026-08-01", ToDate: "2026-08-12"}, 1},
		{"combined", ListFilters{Source: "claude-code", Project: "web"}, 1},
		{"nothing matches", ListFilters{Source: "copilot"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterConversations(rows, tt.filters)
			if len(got) != tt.want {
				t.Errorf("got %d rows, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFilterConversations_MalformedDateKeepsRows(t *testing.T) {
	rows := []models.Conversation{
		conv("claude-code", "m", "/w", "2026-08-10T09:00:00Z"),
	}
	got := FilterConversations(rows, ListFilters{ToDate: "not-a-date"})
	// A filter that cannot parse must not silently drop the whole corpus.
	if len(got) != 1 {
		t.Errorf("malformed to-date dropped rows: got %d, want 1", len(got))
	}
}

func TestSortByUpdatedAtDesc(t *testing.T) {
	rows := []models.Conversation{
		conv("a", "", "", "2026-01-01T00:00:00Z"),
		conv("b", "", "", "2026-03-01T00:00:00Z"),
		conv("c", "", "", "2026-02-01T00:00:00Z"),
		conv("d", "", "", "2026-03-01T00:00:00Z"),
	}
	SortByUpdatedAtDesc(rows)

	wantSources := []string{"b", "d", "c", "a"}
	for i, want := range wantSources {
		if rows[i].Source != want {
			t.Errorf("position %d = %q, want %q (stable desc order)", i, rows[i].Source, want)
		}
	}
}

func TestPaginate(t *testing.T) {
	rows := []models.Conversation{
		conv("a", "", "", ""), conv("b", "", "", ""), conv("c", "", "", ""),
	}

	tests := []struct {
		name          string
		offset, limit int
		want          []string
	}{
		{"all", 0, 0, []string{"a", "b", "c"}},
		{"limit", 0, 2, []string{"a", "b"}},
		{"offset", 1, 0, []string{"b", "c"}},
		{"offset and limit", 1, 1, []string{"b"}},
		{"offset past end", 5, 10, nil},
		{"limit past end", 2, 10, []string{"c"}},
		{"negative offset clamped", -1, 2, []string{"a", "b"}},
		{"negative offset no limit", -3, 0, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(rows, tt.offset, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(got), len(tt.want))
			}
			for i, want := range tt.want {
				if got[i].Source != want {
					t.Errorf("position %d = %q, want %q", i, got[i].Source, want)
				}
			}
		})
	}
}

func TestAddDays(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"bare date", "2026-08-15", 1, "2026-08-16"},
		{"month rollover", "2026-08-31", 1, "2026-09-01"},
		{"timestamp truncated", "2026-08-15T10:00:00Z", 1, "2026-08-16"},
		{"unparsable unchanged", "soon", 1, "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := addDays(tt.in, tt.n); got != tt.want {
				t.Errorf("addDays(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}
