package breaker

import (
	"sync"
	"time"

	"agrimarket/internal/clock"
)

// Group lazily creates one CircuitBreaker per key with shared settings.
type Group struct {
	mu           sync.Mutex
	breakers     map[string]*CircuitBreaker
	maxFailures  int
	resetTimeout time.Duration
	clock        clock.Clock

	// OnStateChange, if set, is called for every transition of every breaker.
	OnStateChange func(key string, from, to State)
}

// NewGroup creates an empty group.
func NewGroup(maxFailures int, resetTimeout time.Duration) *Group {
	return &Group{
		breakers:     make(map[string]*CircuitBreaker),
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		clock:        clock.Real{},
	}
}

// WithClock sets the time source used by breakers created afterwards.
func (g *Group) WithClock(c clock.Clock) *Group {
	g.mu.Lock()
	g.clock = c
	g.mu.Unlock()
	return g
}

// Get returns the breaker for key, creating it on first use.
func (g *Group) Get(key string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cb, ok := g.breakers[key]; ok {
		return cb
	}
	cb := New(g.maxFailures, g.resetTimeout).WithClock(g.clock)
	if g.OnStateChange != nil {
		hook := g.OnStateChange
		cb.OnStateChange = func(from, to State) { hook(key, from, to) }
	}
	g.breakers[key] = cb
	return cb
}

// Execute runs fn through the breaker for key.
func (g *Group) Execute(key string, fn func() error) error {
	return g.Get(key).Execute(fn)
}

// Open returns the keys whose breaker is currently open.
func (g *Group) Open() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var keys []string
	for k, cb := range g.breakers {
		if cb.CurrentState() == StateOpen {
			keys = append(keys, k)
		}
	}
	return keys
}
