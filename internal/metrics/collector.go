// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpEmbedding  = "embedding"
	OpStoreQuery = "store_query"
	OpSearch     = "search"
	OpSync       = "sync"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Rows processed, only tracked for sync operations.
	TotalRows int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
	TotalRows   *int64
}

// Snapshot represents the full process statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Embedding     *OperationSnapshot
	StoreQuery    *OperationSnapshot
	Search        *OperationSnapshot
	Sync          *OperationSnapshot
}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// Record records timing for an operation.
func (c *Collector) Record(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(op, duration)
}

// RecordRows records timing plus a row count for a bulk operation.
func (c *Collector) RecordRows(op string, duration time.Duration, rows int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.record(op, duration)
	m.TotalRows += rows
}

func (c *Collector) record(op string, duration time.Duration) *OperationMetrics {
	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
	return m
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	snap := &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
	if m.TotalRows > 0 {
		rows := m.TotalRows
		snap.TotalRows = &rows
	}
	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Embedding:     snapshotOp(c.ops[OpEmbedding]),
		StoreQuery:    snapshotOp(c.ops[OpStoreQuery]),
		Search:        snapshotOp(c.ops[OpSearch]),
		Sync:          snapshotOp(c.ops[OpSync]),
	}
}
