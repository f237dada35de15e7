// Package retry provides a small bounded-retry helper for the HTTP
// collaborator clients. Transient transport failures are retried with
// linear backoff; errors wrapped with Fatal stop immediately.
package retry

import (
	"context"
	"errors"
	"time"
)

// Config controls retry behavior.
type Config struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Backoff is the wait between attempts, multiplied by the attempt
	// number (attempt 1 waits Backoff, attempt 2 waits 2*Backoff, ...).
	Backoff time.Duration
}

// Defaults is the retry policy the API clients use.
var Defaults = Config{MaxAttempts: 3, Backoff: 500 * time.Millisecond}

// fatalError marks an error as non-retryable.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal wraps err so Do stops retrying and returns it as-is.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Do runs fn until it succeeds, returns a fatal error, exhausts the
// attempt budget, or ctx is cancelled. The last error is returned with
// the Fatal wrapper removed.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}

		var fatal *fatalError
		if errors.As(err, &fatal) {
			return fatal.err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * cfg.Backoff):
		}
	}
	return lastErr
}
