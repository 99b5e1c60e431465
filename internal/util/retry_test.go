package util

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func TestRetryWithBackoff(t *testing.T) {
	errBadRequest := errors.New("bad request")

	tests := []struct {
		name       string
		maxRetries int
		failUntil  int // attempts below this fail; -1 fails forever
		permanent  bool
		wantCalls  int
		wantErr    error
	}{
		{"success on first try", 3, 0, false, 1, nil},
		{"success after two failures", 3, 2, false, 3, nil},
		{"retries exhausted", 2, -1, false, 3, errTransient},
		{"zero retries", 0, -1, false, 1, errTransient},
		{"permanent error stops at once", 5, -1, true, 1, errBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(context.Background(), tt.maxRetries, time.Millisecond, func(attempt int) error {
				calls++
				if tt.failUntil >= 0 && attempt >= tt.failUntil {
					return nil
				}
				if tt.permanent {
					return Permanent(errBadRequest)
				}
				return errTransient
			})

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryWithBackoff_ExhaustedErrorCountsRetries(t *testing.T) {
	err := RetryWithBackoff(context.Background(), 2, time.Millisecond, func(int) error { return errTransient })
	if err == nil || !strings.Contains(err.Error(), "failed after 2 retries") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRetryWithBackoff_PermanentIsUnwrapped(t *testing.T) {
	sentinel := errors.New("401 unauthorized")
	err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(int) error { return Permanent(sentinel) })
	if err != sentinel {
		t.Errorf("expected the bare sentinel, got %#v", err)
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryWithBackoff(ctx, 3, time.Second, func(int) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected only the first attempt to run, got %d", calls)
	}
}

func TestRetryWithBackoff_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := RetryWithBackoff(ctx, 3, time.Hour, func(int) error { return errTransient })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("backoff should stop when the context ends")
	}
}

func TestRetryWithBackoff_BackoffDoubles(t *testing.T) {
	start := time.Now()
	_ = RetryWithBackoff(context.Background(), 2, 20*time.Millisecond, func(int) error { return errTransient })
	// 20ms + 40ms
	if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
		t.Errorf("expected at least ~60ms of backoff, got %v", elapsed)
	}
}
