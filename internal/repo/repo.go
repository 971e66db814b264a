// Package repo provides typed repositories over the store: CRUD, bulk
// insert, existing-id diffing for idempotent incremental sync, and in-memory
// filter/sort/paginate.
//
// The store cannot reliably ORDER BY or evaluate compound predicates, so
// list-shaped operations fetch and then filter in memory. That boundary is
// deliberate and load-bearing: per-user corpora are thousands to low tens of
// thousands of rows, not web scale, and keeping the scan-then-filter shape
// here stops ad hoc filtering from leaking into callers.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/mfeldheim/hindsight/internal/models"
	"github.com/mfeldheim/hindsight/internal/store"
)

// deleteChunk bounds the size of id disjunctions in DELETE predicates.
const deleteChunk = 100

// row is any persisted record with a derived string id.
type row interface {
	RowID() string
}

// query runs a SurrealQL query and returns the first statement's rows.
func query[T any](ctx context.Context, c *store.Client, sql string, vars map[string]any) ([]T, error) {
	started := time.Now()
	results, err := surrealdb.Query[[]T](ctx, c.DB(), sql, vars)
	c.Observe(time.Since(started))
	if err != nil {
		return nil, store.WrapQueryError(err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// exec runs a SurrealQL statement, discarding results.
func exec(ctx context.Context, c *store.Client, sql string, vars map[string]any) error {
	started := time.Now()
	_, err := surrealdb.Query[any](ctx, c.DB(), sql, vars)
	c.Observe(time.Since(started))
	if err != nil {
		return store.WrapQueryError(err)
	}
	return nil
}

// recordIDs converts plain string ids into record ids for IN-predicates.
func recordIDs(table string, ids []string) []surrealmodels.RecordID {
	out := make([]surrealmodels.RecordID, len(ids))
	for i, id := range ids {
		out[i] = models.RID(table, id)
	}
	return out
}

// chunk splits ids into bounded groups to respect predicate-length limits.
func chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = deleteChunk
	}
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// idSet queries which of the candidate ids already exist in table.
func idSet(ctx context.Context, c *store.Client, table string, candidates []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(candidates))
	for _, group := range chunk(candidates, deleteChunk) {
		rows, err := query[struct {
			ID surrealmodels.RecordID `json:"id"`
		}](ctx, c, fmt.Sprintf("SELECT id FROM %s WHERE id IN $ids", table), map[string]any{
			"ids": recordIDs(table, group),
		})
		if err != nil {
			return nil, fmt.Errorf("existing ids %s: %w", table, err)
		}
		for _, r := range rows {
			existing[models.IDString(r.ID)] = true
		}
	}
	return existing, nil
}

// countTable returns the row count of a table.
func countTable(ctx context.Context, c *store.Client, table string) (int, error) {
	rows, err := query[struct {
		C int `json:"c"`
	}](ctx, c, fmt.Sprintf("SELECT count() AS c FROM %s GROUP ALL", table), nil)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].C, nil
}
