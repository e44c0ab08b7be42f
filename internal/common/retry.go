package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-ledger/internal/service"
)

var (
	// ErrRateLimit marks a provider throttling response. WithRetry waits the
	// full MaxDelay before trying again.
	ErrRateLimit  = errors.New("rate limit exceeded")
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError tags an error with whether another attempt can help.
// Untagged errors are retried.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// Permanent marks err so that WithRetry gives up immediately.
func Permanent(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is explicitly worth another attempt.
func IsRetryable(err error) bool {
	var tagged *RetryableError
	if errors.As(err, &tagged) {
		return tagged.Retryable
	}
	return errors.Is(err, ErrRateLimit) || errors.Is(err, context.DeadlineExceeded)
}

// backoff produces exponentially growing waits capped at max.
type backoff struct {
	next   time.Duration
	max    time.Duration
	factor float64
}

func (b *backoff) wait(err error) time.Duration {
	if errors.Is(err, ErrRateLimit) {
		return b.max
	}
	d := b.next
	b.next = min(time.Duration(float64(b.next)*b.factor), b.max)
	return d
}

func retryDefaults(opts service.RetryOptions) service.RetryOptions {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2
	}
	return opts
}

// WithRetry runs op until it succeeds, returns a Permanent error, the context
// ends, or MaxAttempts is used up. Zero fields in opts take defaults.
func WithRetry(ctx context.Context, op func() error, opts service.RetryOptions) error {
	opts = retryDefaults(opts)
	b := backoff{next: opts.InitialDelay, max: opts.MaxDelay, factor: opts.Multiplier}

	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		var tagged *RetryableError
		if errors.As(err, &tagged) && !tagged.Retryable {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempt, err)
		}

		d := b.wait(err)
		slog.Warn("Retrying after failure", "attempt", attempt, "of", opts.MaxAttempts, "wait", d, "error", err)

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
