// Package circuitbreaker guards outbound calls to the blob storage service.
// When the store keeps failing, the breaker opens and calls fail fast instead
// of stacking timeouts behind a struggling dependency.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of the breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects every call until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a single probe call through to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned for calls rejected while the breaker is open or while
// a half-open probe is already in flight.
var ErrOpen = errors.New("circuit breaker open")

// Config tunes the breaker. Zero values fall back to the defaults documented
// on each field.
type Config struct {
	// Name tags state-change notifications.
	Name string

	// FailureThreshold is the run of consecutive failures that opens the
	// breaker. Default 5.
	FailureThreshold int

	// SuccessThreshold is the run of consecutive probe successes that
	// closes it again. Default 2.
	SuccessThreshold int

	// Cooldown is how long the breaker stays open before probing.
	// Default 30s.
	Cooldown time.Duration

	// OnStateChange is invoked outside the lock on every transition.
	OnStateChange func(name string, from, to State)
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	return c
}

// CircuitBreaker tracks consecutive outcomes of a guarded call. Safe for
// concurrent use.
type CircuitBreaker struct {
	cfg Config

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	openedAt      time.Time
	probeInFlight bool
}

// New returns a closed breaker.
func New(cfg Config) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg.withDefaults(), state: StateClosed}
}

// Execute runs fn if the breaker admits the call and records its outcome.
// Rejected calls return ErrOpen without invoking fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()

	switch cb.state {
	case StateClosed:
		cb.mu.Unlock()
		return nil
	case StateOpen:
		if time.Since(cb.openedAt) < cb.cfg.Cooldown {
			cb.mu.Unlock()
			return ErrOpen
		}
		notify := cb.transition(StateHalfOpen)
		cb.probeInFlight = true
		cb.mu.Unlock()
		notify()
		return nil
	default: // StateHalfOpen
		if cb.probeInFlight {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.probeInFlight = true
		cb.mu.Unlock()
		return nil
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	cb.probeInFlight = false

	notify := func() {}
	if err != nil {
		cb.failures++
		cb.successes = 0
		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.cfg.FailureThreshold {
				notify = cb.transition(StateOpen)
			}
		case StateHalfOpen:
			// The probe failed: back to waiting out the cooldown.
			notify = cb.transition(StateOpen)
		}
	} else {
		cb.successes++
		cb.failures = 0
		if cb.state == StateHalfOpen && cb.successes >= cb.cfg.SuccessThreshold {
			notify = cb.transition(StateClosed)
		}
	}
	cb.mu.Unlock()
	notify()
}

// transition switches state and returns the notification to run after the
// lock is released. Caller must hold cb.mu.
func (cb *CircuitBreaker) transition(to State) func() {
	from := cb.state
	if from == to {
		return func() {}
	}
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	if to == StateOpen {
		cb.openedAt = time.Now()
	}
	if cb.cfg.OnStateChange == nil {
		return func() {}
	}
	name := cb.cfg.Name
	return func() { cb.cfg.OnStateChange(name, from, to) }
}

// BlobStoreBreaker is tuned for Supabase Storage: it opens quickly (uploads
// are user-facing) and waits a full minute before probing so a rate-limited
// store gets room to recover.
func BlobStoreBreaker(onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(Config{
		Name:             "blob-store",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Cooldown:         time.Minute,
		OnStateChange:    onStateChange,
	})
}
