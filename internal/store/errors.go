package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for store operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates the requested row does not exist. Repositories
	// translate this into a nil result or empty collection; it never reaches
	// callers as an error.
	ErrNotFound = errors.New("not found")

	// ErrTransient indicates lock contention or momentary unavailability.
	// The retry layer re-attempts these a bounded number of times.
	ErrTransient = errors.New("transient storage error")

	// ErrIndexCorruption indicates the full-text index points at a missing
	// physical fragment, typically left behind by a crashed concurrent
	// writer. The retry layer repairs the index and re-attempts once.
	ErrIndexCorruption = errors.New("search index corruption")

	// ErrInvalidArgument indicates a caller mistake (bad id, bad filter).
	// Never retried.
	ErrInvalidArgument = errors.New("invalid argument")
)

// transientPatterns are SurrealDB error messages that resolve on retry.
var transientPatterns = []string{
	"transaction conflict",
	"resource busy",
	"database is locked",
	"connection reset",
	"connection refused",
	"broken pipe",
	"timed out",
	"temporarily unavailable",
}

// corruptionPatterns signal index/storage desync. The canonical signature is
// the FTS index referencing a fragment the storage layer no longer has.
var corruptionPatterns = []string{
	"fragment not found",
	"missing fragment",
	"index corrupted",
	"corrupted index",
}

// WrapQueryError inspects a SurrealDB error and wraps it with the matching
// sentinel so callers can branch with errors.Is. Unknown errors pass through
// unchanged and are treated as fatal by the retry layer.
func WrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg = queryErr.Message
	}
	lower := strings.ToLower(msg)

	for _, p := range corruptionPatterns {
		if strings.Contains(lower, p) {
			return fmt.Errorf("%w: %s", ErrIndexCorruption, msg)
		}
	}
	for _, p := range transientPatterns {
		if strings.Contains(lower, p) {
			return fmt.Errorf("%w: %s", ErrTransient, msg)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrTransient, msg)
	}

	return err
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(WrapQueryError(err), ErrTransient)
}

// IsCorruption reports whether err indicates a corrupted search index.
func IsCorruption(err error) bool {
	return errors.Is(WrapQueryError(err), ErrIndexCorruption)
}

// IsRetryStopper reports whether err must propagate immediately: caller
// errors and context cancellation are never retried.
func IsRetryStopper(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
