package repo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mfeldheim/hindsight/internal/models"
	"github.com/mfeldheim/hindsight/internal/store"
)

// BillingEvents is the billing event repository. Events arrive from provider
// CSV imports; each import batch carries a provenance tag (origin batch)
// which is the unit of re-import and deletion.
//
// Every read path validates rows with models.IsValidBillingEvent and drops
// the ones matching the known corruption signature instead of trusting
// stored rows blindly.
type BillingEvents struct {
	c   *store.Client
	log *slog.Logger
}

// NewBillingEvents creates the billing event repository.
func NewBillingEvents(c *store.Client, log *slog.Logger) *BillingEvents {
	return &BillingEvents{c: c, log: log}
}

// BulkInsert inserts events in one batch.
func (r *BillingEvents) BulkInsert(ctx context.Context, events []models.BillingEvent) error {
	if len(events) == 0 {
		return nil
	}
	return store.WithRetryNoResult(ctx, r.log, r.c, "billing.bulkInsert", func(ctx context.Context) error {
		if err := exec(ctx, r.c, `INSERT INTO billing_event $docs`, map[string]any{"docs": events}); err != nil {
			return fmt.Errorf("bulk insert billing events: %w", err)
		}
		return nil
	})
}

// DeleteBySource removes every event sharing one origin batch tag, making
// re-imports idempotent at batch granularity.
func (r *BillingEvents) DeleteBySource(ctx context.Context, originBatch string) error {
	return store.WithRetryNoResult(ctx, r.log, r.c, "billing.deleteBySource", func(ctx context.Context) error {
		if err := exec(ctx, r.c, `DELETE billing_event WHERE origin_batch = $batch`,
			map[string]any{"batch": originBatch}); err != nil {
			return fmt.Errorf("delete billing batch: %w", err)
		}
		return nil
	})
}

// Count returns the number of stored events, valid or not.
func (r *BillingEvents) Count(ctx context.Context) (int, error) {
	return store.WithRetry(ctx, r.log, r.c, "billing.count", func(ctx context.Context) (int, error) {
		return countTable(ctx, r.c, "billing_event")
	})
}

// CountBySource returns the number of events sharing one origin batch tag.
func (r *BillingEvents) CountBySource(ctx context.Context, originBatch string) (int, error) {
	return store.WithRetry(ctx, r.log, r.c, "billing.countBySource", func(ctx context.Context) (int, error) {
		rows, err := query[struct {
			C int `json:"c"`
		}](ctx, r.c, `SELECT count() AS c FROM billing_event WHERE origin_batch = $batch GROUP ALL`,
			map[string]any{"batch": originBatch})
		if err != nil {
			return 0, fmt.Errorf("count billing batch: %w", err)
		}
		if len(rows) == 0 {
			return 0, nil
		}
		return rows[0].C, nil
	})
}

// GetTotals aggregates all valid events.
func (r *BillingEvents) GetTotals(ctx context.Context) (models.BillingTotals, error) {
	events, err := r.all(ctx)
	if err != nil {
		return models.BillingTotals{}, err
	}
	var totals models.BillingTotals
	for _, e := range events {
		totals.Add(e)
	}
	return totals, nil
}

// GetByConversation returns the valid events attributed to one conversation.
func (r *BillingEvents) GetByConversation(ctx context.Context, conversationID string) ([]models.BillingEvent, error) {
	rows, err := store.WithRetry(ctx, r.log, r.c, "billing.getByConversation", func(ctx context.Context) ([]models.BillingEvent, error) {
		return query[models.BillingEvent](ctx, r.c,
			`SELECT * FROM billing_event WHERE conversation = $conv`,
			map[string]any{"conv": conversationID})
	})
	if err != nil {
		return nil, fmt.Errorf("billing by conversation: %w", err)
	}
	return r.validated(rows), nil
}

// GetTokensByConversation sums token counts of one conversation's valid events.
func (r *BillingEvents) GetTokensByConversation(ctx context.Context, conversationID string) (models.BillingTotals, error) {
	events, err := r.GetByConversation(ctx, conversationID)
	if err != nil {
		return models.BillingTotals{}, err
	}
	var totals models.BillingTotals
	for _, e := range events {
		totals.Add(e)
	}
	return totals, nil
}

// GetDistinctConversationIDs returns the attributed conversation ids present
// in valid events. Unattributed events are skipped, not errors.
func (r *BillingEvents) GetDistinctConversationIDs(ctx context.Context) ([]string, error) {
	events, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range events {
		if e.Conversation == "" || seen[e.Conversation] {
			continue
		}
		seen[e.Conversation] = true
		out = append(out, e.Conversation)
	}
	return out, nil
}

func (r *BillingEvents) all(ctx context.Context) ([]models.BillingEvent, error) {
	rows, err := store.WithRetry(ctx, r.log, r.c, "billing.all", func(ctx context.Context) ([]models.BillingEvent, error) {
		return query[models.BillingEvent](ctx, r.c, `SELECT * FROM billing_event`, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("scan billing events: %w", err)
	}
	return r.validated(rows), nil
}

func (r *BillingEvents) validated(rows []models.BillingEvent) []models.BillingEvent {
	valid := make([]models.BillingEvent, 0, len(rows))
	dropped := 0
	for _, e := range rows {
		if models.IsValidBillingEvent(e) {
			valid = append(valid, e)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		r.log.Warn("dropped invalid billing rows on read", "dropped", dropped)
	}
	return valid
}
