// Package breaker implements a consecutive-failure circuit breaker and a
// keyed group of breakers, one per upstream resource.
package breaker

import (
	"errors"
	"sync"
	"time"

	"agrimarket/internal/clock"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = 0 // Normal operation: requests pass through
	StateOpen     State = 1 // Circuit tripped: requests rejected immediately
	StateHalfOpen State = 2 // Testing: one request allowed through to probe
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

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker implements a simple circuit breaker pattern.
// After maxFailures consecutive failures, the breaker opens and rejects all
// calls for resetTimeout. After the timeout, it enters half-open state and
// allows one probe call through. If the probe succeeds, the breaker closes;
// if it fails, it reopens.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	lastFailure  time.Time
	clock        clock.Clock

	// Callbacks (optional)
	OnStateChange func(from, to State) // called on state transitions
}

// New creates a circuit breaker.
// maxFailures: consecutive failures before opening (e.g., 3)
// resetTimeout: time to wait before half-open probe (e.g., 30m)
func New(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		clock:        clock.Real{},
	}
}

// WithClock swaps the time source; intended for tests.
func (cb *CircuitBreaker) WithClock(c clock.Clock) *CircuitBreaker {
	cb.mu.Lock()
	cb.clock = c
	cb.mu.Unlock()
	return cb
}

// Execute runs fn through the circuit breaker.
// Returns ErrCircuitOpen if the breaker is open and the timeout hasn't elapsed.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()

	if cb.state == StateOpen {
		// Check if reset timeout has elapsed → transition to half-open
		if cb.clock.Now().Sub(cb.lastFailure) >= cb.resetTimeout {
			cb.transition(StateHalfOpen)
		} else {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.clock.Now()

		if cb.state == StateHalfOpen {
			// Probe failed: reopen
			cb.transition(StateOpen)
		} else if cb.state == StateClosed && cb.failures >= cb.maxFailures {
			cb.transition(StateOpen)
		}
		return err
	}

	if cb.state == StateHalfOpen {
		cb.transition(StateClosed)
	}
	cb.failures = 0
	return nil
}

// CurrentState returns the current circuit breaker state.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}
