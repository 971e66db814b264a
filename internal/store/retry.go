package store

import (
	"context"
	"log/slog"
	"time"
)

// Retry policy. Transient failures back off exponentially; corruption is
// repaired at most once per operation, then the operation is re-attempted
// against the rebuilt index.
const (
	maxAttempts = 3
	baseBackoff = 50 * time.Millisecond
)

// Repairer is the slice of Client the retry layer needs. Defined as an
// interface so retry behavior is testable without a live connection.
type Repairer interface {
	RepairSearchIndex(ctx context.Context) error
}

// WithRetry runs op with the resilience policy applied. It is the single
// place retry/repair behavior lives; repositories wrap every store-touching
// operation in it rather than duplicating policy per call site.
func WithRetry[T any](ctx context.Context, log *slog.Logger, r Repairer, label string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	repaired := false

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		err = WrapQueryError(err)
		if IsRetryStopper(err) {
			return zero, err
		}

		switch {
		case IsCorruption(err) && !repaired:
			log.Warn("search index corruption detected, repairing",
				"op", label, "error", err)
			if repairErr := r.RepairSearchIndex(ctx); repairErr != nil {
				log.Error("index repair failed", "op", label, "error", repairErr)
				return zero, err
			}
			repaired = true
			// Re-attempt the original operation against the repaired index.
			continue

		case IsTransient(err) && attempt < maxAttempts:
			backoff := baseBackoff * time.Duration(1<<(attempt-1))
			log.Warn("transient storage error, retrying",
				"op", label, "attempt", attempt, "backoff", backoff, "error", err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			continue

		default:
			return zero, err
		}
	}
}

// WithRetryNoResult adapts WithRetry for operations without a return value.
func WithRetryNoResult(ctx context.Context, log *slog.Logger, r Repairer, label string, op func(context.Context) error) error {
	_, err := WithRetry(ctx, log, r, label, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
