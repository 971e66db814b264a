package models

import "testing"

func TestIsValidBillingEvent(t *testing.T) {
	valid := BillingEvent{
		Timestamp:    "2026-08-01T10:00:00Z",
		Model:        "claude-sonnet-4",
		Kind:         "api_call",
		InputTokens:  1200,
		OutputTokens: 300,
		CostUSD:      0.012,
	}

	tests := []struct {
		name   string
		mutate func(*BillingEvent)
		want   bool
	}{
		{"clean event", func(e *BillingEvent) {}, true},
		{"empty timestamp", func(e *BillingEvent) { e.Timestamp = "" }, false},
		{"empty model", func(e *BillingEvent) { e.Model = "" }, false},
		{"dunder prefix in model", func(e *BillingEvent) { e.Model = "__index_meta" }, false},
		{"fragment marker in kind", func(e *BillingEvent) { e.Kind = "Fragment(42)" }, false},
		{"rowid leak in timestamp", func(e *BillingEvent) { e.Timestamp = "tb_rowid_7" }, false},
		{"json blob in model", func(e *BillingEvent) { e.Model = `{"k":"v"}` }, false},
		{"negative input tokens", func(e *BillingEvent) { e.InputTokens = -1 }, false},
		{"negative cost", func(e *BillingEvent) { e.CostUSD = -0.5 }, false},
		{"unattributed is fine", func(e *BillingEvent) { e.Conversation = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			if got := IsValidBillingEvent(e); got != tt.want {
				t.Errorf("IsValidBillingEvent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBillingTotals_Add(t *testing.T) {
	var totals BillingTotals
	totals.Add(BillingEvent{InputTokens: 100, OutputTokens: 20, CostUSD: 0.01})
	totals.Add(BillingEvent{InputTokens: 50, OutputTokens: 5, CacheReadTokens: 400, CostUSD: 0.002})

	if totals.Events != 2 {
		t.Errorf("Events = %d, want 2", totals.Events)
	}
	if totals.InputTokens != 150 || totals.OutputTokens != 25 {
		t.Errorf("token sums = %d/%d, want 150/25", totals.InputTokens, totals.OutputTokens)
	}
	if totals.CacheReadTokens != 400 {
		t.Errorf("CacheReadTokens = %d, want 400", totals.CacheReadTokens)
	}
}
