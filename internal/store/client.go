// Package store provides SurrealDB connectivity, schema management and the
// resilience layer shared by all repositories.
package store

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

func init() {
	// Force HTTP/1.1 for WSS connections to prevent HTTP/2 ALPN negotiation.
	// WebSocket upgrade requires HTTP/1.1 semantics which fail under HTTP/2.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// Config holds SurrealDB connection configuration.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string // "root" or "database"

	// EmbedDimension sizes the vector column; must match the embedder.
	EmbedDimension int
}

// Client wraps a SurrealDB connection with auto-reconnect and an explicit
// connect/close lifecycle. One Client is constructed at startup and passed to
// repository constructors; there is no process-wide singleton handle.
type Client struct {
	mu     sync.Mutex
	conn   *rews.Connection[*gorillaws.Connection]
	db     *surrealdb.DB
	cfg    Config
	logger logger.Logger

	// OnQuery, when set, observes the duration of every repository query.
	OnQuery func(time.Duration)
}

// Observe reports one query duration to the OnQuery hook, if any.
func (c *Client) Observe(d time.Duration) {
	if c.OnQuery != nil {
		c.OnQuery(d)
	}
}

// NewClient creates a new SurrealDB client with an auto-reconnecting WebSocket.
func NewClient(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	var sdkLogger logger.Logger
	if log != nil {
		sdkLogger = logger.New(log.Handler())
	} else {
		sdkLogger = logger.New(slog.Default().Handler())
	}

	c := &Client{cfg: cfg, logger: sdkLogger}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	// Use surrealcbor for CBOR encoding/decoding (handles SurrealDB custom tags)
	codec := surrealcbor.New()

	// gorillaws requires ws:// or wss:// URL without /rpc suffix (it adds /rpc internally)
	baseURL := strings.TrimSuffix(c.cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			ws := gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      c.logger,
			})
			return ws, nil
		},
		5*time.Second,
		codec,
		c.logger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	c.logger.Info("connecting to SurrealDB", "url", c.cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("from connection: %w", err)
	}

	if c.cfg.AuthLevel == "database" {
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Namespace: c.cfg.Namespace,
			Database:  c.cfg.Database,
			Username:  c.cfg.Username,
			Password:  c.cfg.Password,
		})
	} else {
		// Default to root auth
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Username: c.cfg.Username,
			Password: c.cfg.Password,
		})
	}
	if err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, c.cfg.Namespace, c.cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("use: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.db = db
	c.mu.Unlock()

	c.logger.Info("SurrealDB connection established")
	return nil
}

// Close closes the SurrealDB connection.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.logger.Info("closing SurrealDB connection")
	return conn.Close(ctx)
}

// Cycle closes and reopens the connection. Bulk importers call this every
// fixed batch so a concurrently-running writer (the source tool still
// appending to its own files, or the interactive UI) is not starved of the
// underlying locks. Throughput is traded for fairness.
func (c *Client) Cycle(ctx context.Context) error {
	if err := c.Close(ctx); err != nil {
		c.logger.Warn("cycle: close failed", "error", err)
	}
	// Cooperative yield between close and reconnect.
	select {
	case <-time.After(10 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.connect(ctx)
}

// DB returns the underlying SurrealDB handle for queries.
func (c *Client) DB() *surrealdb.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db
}

// InitSchema initializes the database schema. The vector index dimension is
// taken from Config.EmbedDimension.
func (c *Client) InitSchema(ctx context.Context) error {
	dim := c.cfg.EmbedDimension
	if dim <= 0 {
		dim = DefaultEmbedDimension
	}
	c.logger.Info("initializing database schema", "embed_dimension", dim)
	if _, err := surrealdb.Query[any](ctx, c.DB(), SchemaSQL(dim), nil); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	c.logger.Info("schema initialization complete")
	return nil
}

// Query executes a SurrealQL query with parameters.
func (c *Client) Query(ctx context.Context, sql string, vars map[string]any) (*[]surrealdb.QueryResult[any], error) {
	return surrealdb.Query[any](ctx, c.DB(), sql, vars)
}

// RepairSearchIndex rebuilds the full-text and vector indexes on the message
// table. It is invoked by the retry layer when a query fails with a
// fragment-not-found error, which indicates the index points at a missing
// physical segment (typically left behind by a crashed concurrent writer).
func (c *Client) RepairSearchIndex(ctx context.Context) error {
	c.logger.Warn("repairing search indexes on message table")
	sql := `
		REBUILD INDEX IF EXISTS message_content_ft ON message;
		REBUILD INDEX IF EXISTS message_embedding ON message;
	`
	if _, err := surrealdb.Query[any](ctx, c.DB(), sql, nil); err != nil {
		return fmt.Errorf("rebuild search indexes: %w", err)
	}
	c.logger.Info("search index repair complete")
	return nil
}

// WipeData deletes all data while preserving schema. Use for testing only.
func (c *Client) WipeData(ctx context.Context) error {
	c.logger.Warn("wiping all data from database")
	for _, table := range Tables {
		if _, err := surrealdb.Query[any](ctx, c.DB(), "DELETE "+table, nil); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}
