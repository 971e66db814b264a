package ingest

import (
	"strings"
	"testing"
)

func TestStripToolOutput(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "no tool output",
			content: "just a normal answer",
			want:    "just a normal answer",
		},
		{
			name:    "tagged block removed",
			content: "before <tool_output>ls -la\ntotal 48</tool_output> after",
			want:    "before  after",
		},
		{
			name:    "fenced block removed",
			content: "look:\n```tool_output\n$ go test\nok\n```\ndone",
			want:    "look:\n\ndone",
		},
		{
			name:    "multiple blocks",
			content: "<tool_output>a</tool_output>x<tool_output>b</tool_output>",
			want:    "x",
		},
		{
			name:    "only tool output leaves empty",
			content: "<tool_output>everything</tool_output>",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripToolOutput(tt.content); got != tt.want {
				t.Errorf("StripToolOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractFileMentions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "backtick quoted path",
			content: "the bug is in `internal/auth/session.go` somewhere",
			want:    []string{"internal/auth/session.go"},
		},
		{
			name:    "bare absolute path",
			content: "check /etc/hosts.conf for overrides",
			want:    []string{"/etc/hosts.conf"},
		},
		{
			name:    "relative dotted path",
			content: "run ./scripts/deploy.sh first",
			want:    []string{"./scripts/deploy.sh"},
		},
		{
			name:    "duplicates collapsed",
			content: "`cmd/main.go` calls into `cmd/main.go` twice",
			want:    []string{"cmd/main.go"},
		},
		{
			name:    "no paths",
			content: "nothing filesystem related here",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFileMentions(tt.content)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("mention %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractFileMentions_OrderPreserved(t *testing.T) {
	content := "see `b/second.go` and also `a/first.go`"
	got := ExtractFileMentions(content)
	if len(got) != 2 || got[0] != "b/second.go" {
		t.Errorf("first-occurrence order lost: %v", got)
	}
}

func TestStripToolOutput_Trimmed(t *testing.T) {
	got := StripToolOutput("  <tool_output>x</tool_output>  hello  ")
	if strings.HasPrefix(got, " ") || strings.HasSuffix(got, " ") {
		t.Errorf("result not trimmed: %q", got)
	}
}
