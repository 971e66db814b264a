package models

import (
	"strings"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// BillingEvent is one billed API call imported from a provider CSV. The
// conversation attribution is optional; events can be legitimately
// unattributed when no local transcript matches.
type BillingEvent struct {
	ID           surrealmodels.RecordID `json:"id"`
	Conversation string                 `json:"conversation"`
	Timestamp    string                 `json:"timestamp"`
	Model        string                 `json:"model"`
	Kind         string                 `json:"kind"`

	InputTokens       int64 `json:"input_tokens"`
	OutputTokens      int64 `json:"output_tokens"`
	CacheCreateTokens int64 `json:"cache_create_tokens"`
	CacheReadTokens   int64 `json:"cache_read_tokens"`

	CostUSD float64 `json:"cost_usd"`

	// OriginBatch tags the import batch that produced this row.
	OriginBatch string `json:"origin_batch"`
}

// IsValidBillingEvent rejects rows whose fields look like raw storage-engine
// metadata leaked into data columns, a known corruption signature. Stored
// rows are validated on every read instead of being trusted blindly.
func IsValidBillingEvent(e BillingEvent) bool {
	if e.Timestamp == "" || e.Model == "" {
		return false
	}
	for _, v := range []string{e.Timestamp, e.Model, e.Kind} {
		lower := strings.ToLower(v)
		if strings.HasPrefix(lower, "__") ||
			strings.Contains(lower, "fragment") ||
			strings.Contains(lower, "_rowid") ||
			strings.HasPrefix(lower, "{\"") {
			return false
		}
	}
	if e.InputTokens < 0 || e.OutputTokens < 0 || e.CostUSD < 0 {
		return false
	}
	return true
}

// BillingTotals aggregates billing events.
type BillingTotals struct {
	Events            int     `json:"events"`
	InputTokens       int64   `json:"input_tokens"`
	OutputTokens      int64   `json:"output_tokens"`
	CacheCreateTokens int64   `json:"cache_create_tokens"`
	CacheReadTokens   int64   `json:"cache_read_tokens"`
	CostUSD           float64 `json:"cost_usd"`
}

// Add folds one event into the totals.
func (t *BillingTotals) Add(e BillingEvent) {
	t.Events++
	t.InputTokens += e.InputTokens
	t.OutputTokens += e.OutputTokens
	t.CacheCreateTokens += e.CacheCreateTokens
	t.CacheReadTokens += e.CacheReadTokens
	t.CostUSD += e.CostUSD
}
