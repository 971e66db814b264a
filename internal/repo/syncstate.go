package repo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mfeldheim/hindsight/internal/models"
	"github.com/mfeldheim/hindsight/internal/store"
)

// SyncStates tracks per-origin-file sync bookkeeping.
type SyncStates struct {
	c   *store.Client
	log *slog.Logger
}

// NewSyncStates creates the sync state repository.
func NewSyncStates(c *store.Client, log *slog.Logger) *SyncStates {
	return &SyncStates{c: c, log: log}
}

// Upsert records the latest sync of one (source, origin path) pair.
func (r *SyncStates) Upsert(ctx context.Context, s models.SyncState) error {
	return store.WithRetryNoResult(ctx, r.log, r.c, "syncState.upsert", func(ctx context.Context) error {
		if err := exec(ctx, r.c, `
			UPSERT type::record("sync_state", $id) SET
				source = $source,
				origin_path = $origin_path,
				last_synced_at = $last_synced_at,
				last_modified = $last_modified
		`, map[string]any{
			"id":             models.SyncStateID(s.Source, s.OriginPath),
			"source":         s.Source,
			"origin_path":    s.OriginPath,
			"last_synced_at": s.LastSyncedAt,
			"last_modified":  s.LastModified,
		}); err != nil {
			return fmt.Errorf("upsert sync state: %w", err)
		}
		return nil
	})
}

// Get returns the recorded state for one origin file, or nil when never synced.
func (r *SyncStates) Get(ctx context.Context, source, originPath string) (*models.SyncState, error) {
	return store.WithRetry(ctx, r.log, r.c, "syncState.get", func(ctx context.Context) (*models.SyncState, error) {
		rows, err := query[models.SyncState](ctx, r.c,
			`SELECT * FROM type::record("sync_state", $id)`,
			map[string]any{"id": models.SyncStateID(source, originPath)})
		if err != nil {
			return nil, fmt.Errorf("get sync state: %w", err)
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return &rows[0], nil
	})
}

// ListBySource returns all recorded states for one source.
func (r *SyncStates) ListBySource(ctx context.Context, source string) ([]models.SyncState, error) {
	return store.WithRetry(ctx, r.log, r.c, "syncState.listBySource", func(ctx context.Context) ([]models.SyncState, error) {
		rows, err := query[models.SyncState](ctx, r.c,
			`SELECT * FROM sync_state WHERE source = $source`,
			map[string]any{"source": source})
		if err != nil {
			return nil, fmt.Errorf("list sync states: %w", err)
		}
		return rows, nil
	})
}

// DeleteBySource drops the bookkeeping for one source, forcing the next sync
// to re-extract everything.
func (r *SyncStates) DeleteBySource(ctx context.Context, source string) error {
	return store.WithRetryNoResult(ctx, r.log, r.c, "syncState.deleteBySource", func(ctx context.Context) error {
		if err := exec(ctx, r.c, `DELETE sync_state WHERE source = $source`,
			map[string]any{"source": source}); err != nil {
			return fmt.Errorf("delete sync states: %w", err)
		}
		return nil
	})
}
