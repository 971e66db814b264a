package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

type fakeRepairer struct {
	repairs   int
	repairErr error
}

func (f *fakeRepairer) RepairSearchIndex(ctx context.Context) error {
	f.repairs++
	return f.repairErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWithRetry_SuccessFirstAttempt(t *testing.T) {
	r := &fakeRepairer{}
	calls := 0
	got, err := WithRetry(context.Background(), discardLogger(), r, "test", func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("got (%d, %v), want (42, nil)", got, err)
	}
	if calls != 1 || r.repairs != 0 {
		t.Errorf("calls = %d, repairs = %d, want 1 and 0", calls, r.repairs)
	}
}

func TestWithRetry_TransientRecovers(t *testing.T) {
	r := &fakeRepairer{}
	calls := 0
	got, err := WithRetry(context.Background(), discardLogger(), r, "test", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("database is locked")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got (%q, %v), want recovery on third attempt", got, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetry_TransientExhausted(t *testing.T) {
	r := &fakeRepairer{}
	calls := 0
	_, err := WithRetry(context.Background(), discardLogger(), r, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("transaction conflict")
	})
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v, want transient sentinel after exhaustion", err)
	}
	if calls != maxAttempts {
		t.Errorf("calls = %d, want %d", calls, maxAttempts)
	}
	if r.repairs != 0 {
		t.Errorf("repairs = %d, transient errors must not trigger repair", r.repairs)
	}
}

func TestWithRetry_CorruptionRepairsThenSucceeds(t *testing.T) {
	r := &fakeRepairer{}
	calls := 0
	got, err := WithRetry(context.Background(), discardLogger(), r, "test", func(ctx context.Context) (int, error) {
		calls++
		if r.repairs == 0 {
			return 0, errors.New("fragment not found")
		}
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("got (%d, %v), want success after repair", got, err)
	}
	if r.repairs != 1 {
		t.Errorf("repairs = %d, want exactly 1", r.repairs)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestWithRetry_CorruptionRepairsOnlyOnce(t *testing.T) {
	r := &fakeRepairer{}
	_, err := WithRetry(context.Background(), discardLogger(), r, "test", func(ctx context.Context) (int, error) {
		return 0, errors.New("fragment not found")
	})
	if !errors.Is(err, ErrIndexCorruption) {
		t.Fatalf("err = %v, want corruption sentinel when repair does not help", err)
	}
	if r.repairs != 1 {
		t.Errorf("repairs = %d, want 1, repair must not loop", r.repairs)
	}
}

func TestWithRetry_FailedRepairPropagatesOriginalError(t *testing.T) {
	r := &fakeRepairer{repairErr: errors.New("rebuild refused")}
	_, err := WithRetry(context.Background(), discardLogger(), r, "test", func(ctx context.Context) (int, error) {
		return 0, errors.New("index corrupted")
	})
	if !errors.Is(err, ErrIndexCorruption) {
		t.Errorf("err = %v, want the original corruption error", err)
	}
}

func TestWithRetry_InvalidArgumentNeverRetried(t *testing.T) {
	r := &fakeRepairer{}
	calls := 0
	_, err := WithRetry(context.Background(), discardLogger(), r, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("empty query: %w", ErrInvalidArgument)
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want invalid-argument sentinel", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, caller errors must not retry", calls)
	}
}

func TestWithRetry_ContextCancellationStops(t *testing.T) {
	r := &fakeRepairer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := WithRetry(ctx, discardLogger(), r, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("database is locked")
	})
	if err == nil {
		t.Fatal("expected an error after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1, canceled context must not retry", calls)
	}
}

func TestWithRetryNoResult(t *testing.T) {
	r := &fakeRepairer{}
	calls := 0
	err := WithRetryNoResult(context.Background(), discardLogger(), r, "test", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("resource busy")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, want recovery", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
