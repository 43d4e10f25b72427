// Package retry implements bounded retries with exponential backoff and
// jitter. It is used by the outbound HTTP clients (blob storage); the engine
// itself never retries caller requests.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryableError marks an error as transient. The Retrier re-attempts the
// operation when it sees one.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err so the Retrier will re-attempt the operation.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries a RetryableError anywhere in its
// chain.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// PermanentError marks an error as final. The Retrier stops immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the Retrier gives up without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError anywhere in its
// chain.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Config controls the retry schedule. Zero values fall back to the defaults
// documented on each field.
type Config struct {
	// MaxAttempts counts the first try too. Default 3.
	MaxAttempts int

	// BaseDelay is the wait before the first re-attempt. Default 100ms.
	BaseDelay time.Duration

	// MaxDelay caps the wait between attempts. Default 30s.
	MaxDelay time.Duration

	// Jitter is the fraction of the delay randomized on each wait,
	// in [0, 1]. Default 0.1.
	Jitter float64
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		c.Jitter = 0.1
	}
	return c
}

// Retrier runs operations under a retry schedule. Safe for concurrent use.
type Retrier struct {
	cfg Config
}

// New returns a Retrier for the given schedule.
func New(cfg Config) *Retrier {
	return &Retrier{cfg: cfg.withDefaults()}
}

// Do runs op until it succeeds, returns a non-retryable error, exhausts the
// attempt budget, or ctx is done. Only errors wrapped with Retryable are
// re-attempted; everything else is returned as-is. The retry markers are
// stripped before the error reaches the caller.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	delay := r.cfg.BaseDelay

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = unwrapMarker(err)

		if IsPermanent(err) || !IsRetryable(err) || attempt == r.cfg.MaxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(jittered(delay, r.cfg.Jitter)):
		}

		delay *= 2
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}
}

func unwrapMarker(err error) error {
	var re *RetryableError
	if errors.As(err, &re) {
		return re.Err
	}
	var pe *PermanentError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// jittered spreads d by ±(d * fraction) so concurrent clients desynchronize.
func jittered(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	spread := float64(d) * fraction
	out := float64(d) + (rand.Float64()*2-1)*spread
	if out < 0 {
		return 0
	}
	return time.Duration(out)
}

// BlobStoreRetrier is tuned for Supabase Storage calls: slow enough to stay
// under the rate limit, bounded so a photo upload fails within seconds.
func BlobStoreRetrier() *Retrier {
	return New(Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      0.2,
	})
}
