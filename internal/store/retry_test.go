package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"
)

func fastRetries(t *testing.T) {
	t.Helper()
	orig := retryPolicy
	retryPolicy = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, maxWriteRetries)
	}
	t.Cleanup(func() { retryPolicy = orig })
}

func TestWithRetry_RetriesBusy(t *testing.T) {
	fastRetries(t)
	s := createTestStore(t)

	calls := 0
	err := s.withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("write export: commit: %w", sqlite3.Error{Code: sqlite3.ErrBusy})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	fastRetries(t)
	s := createTestStore(t)

	calls := 0
	err := s.withRetry(context.Background(), func() error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrLocked}
	})
	if !isTransient(err) {
		t.Fatalf("expected locked error, got %v", err)
	}
	if calls != maxWriteRetries+1 {
		t.Errorf("calls = %d, want %d", calls, maxWriteRetries+1)
	}
}

func TestWithRetry_PermanentErrorNotRetried(t *testing.T) {
	fastRetries(t)
	s := createTestStore(t)

	sentinel := errors.New("constraint failed")
	calls := 0
	err := s.withRetry(context.Background(), func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	fastRetries(t)
	s := createTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := s.withRetry(ctx, func() error {
		calls++
		cancel()
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked wrapped", fmt.Errorf("commit: %w", sqlite3.Error{Code: sqlite3.ErrLocked}), true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
