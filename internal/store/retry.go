package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"
)

// maxWriteRetries bounds how often a busy write transaction is re-run on top
// of the busy_timeout pragma.
const maxWriteRetries = 5

// retryPolicy builds the backoff for one write. Tests shorten it.
var retryPolicy = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxRetries(b, maxWriteRetries)
}

// withRetry runs op until it succeeds, fails with a non-transient error, or
// ctx is done.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil || isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(retryPolicy(), ctx))
}

// isTransient reports whether err is SQLite lock contention.
func isTransient(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}
