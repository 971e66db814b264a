package ingest

import (
	"strings"
	"testing"
)

func TestReadRecords(t *testing.T) {
	input := `{"source":"claude-code","original_id":"s1","messages":[{"role":"user","content":"hi"}]}
{"source":"claude-code","original_id":"s2"}

{"source":"cursor","original_id":"s3","title":"fix auth"}`

	records, err := ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 (blank lines skipped)", len(records))
	}
	if records[0].Messages[0].Content != "hi" {
		t.Errorf("message content = %q, want %q", records[0].Messages[0].Content, "hi")
	}
	if records[2].Title != "fix auth" {
		t.Errorf("title = %q, want %q", records[2].Title, "fix auth")
	}
}

func TestReadRecords_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"broken json", `{"source":"x"`},
		{"missing source", `{"original_id":"s1"}`},
		{"missing original id", `{"source":"claude-code"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadRecords(strings.NewReader(tt.input)); err == nil {
				t.Error("expected an error for invalid input")
			}
		})
	}
}

func TestReadBillingRecords(t *testing.T) {
	input := `{"timestamp":"2026-08-01T10:00:00Z","model":"claude-sonnet-4","kind":"api_call","input_tokens":100,"output_tokens":20,"cost_usd":0.01}
{"timestamp":"2026-08-01T11:00:00Z","model":"claude-opus-4","kind":"api_call","input_tokens":500,"output_tokens":80,"cost_usd":0.08}`

	records, err := ReadBillingRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadBillingRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[1].CostUSD != 0.08 {
		t.Errorf("cost = %v, want 0.08", records[1].CostUSD)
	}
}

func TestReadRecords_Empty(t *testing.T) {
	records, err := ReadRecords(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from empty input", len(records))
	}
}
