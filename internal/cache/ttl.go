// Package cache provides the process-wide TTL cache shared by every
// data-producing service. Expiry is lazy: entries are checked on read and
// superseded on refresh, never swept in the background, so the key space is
// unbounded.
package cache

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"agrimarket/internal/clock"
	"agrimarket/internal/metrics"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value     any
	createdAt time.Time
}

// ComputeFunc produces a fresh value for a key.
type ComputeFunc func(ctx context.Context) (any, error)

// Option configures a TTL cache.
type Option func(*TTL)

// WithClock sets the time source used for entry ages.
func WithClock(c clock.Clock) Option {
	return func(t *TTL) { t.clock = c }
}

// WithDefaultTTL sets the lifetime Get applies. Zero means entries never
// expire through Get.
func WithDefaultTTL(d time.Duration) Option {
	return func(t *TTL) { t.defaultTTL = d }
}

// WithSingleFlight coalesces concurrent misses on the same key into one
// compute call.
func WithSingleFlight(on bool) Option {
	return func(t *TTL) {
		if on {
			t.sf = &singleflight.Group{}
		} else {
			t.sf = nil
		}
	}
}

// WithMetrics records hits, misses and computes per key category.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *TTL) { t.metrics = m }
}

// TTL is an in-memory key/value cache with per-read lifetimes.
// Safe for concurrent use; entries are replaced whole on write.
type TTL struct {
	mu         sync.RWMutex
	items      map[string]entry
	clock      clock.Clock
	defaultTTL time.Duration
	sf         *singleflight.Group
	metrics    *metrics.Metrics
}

// New creates an empty cache.
func New(opts ...Option) *TTL {
	t := &TTL{
		items: make(map[string]entry),
		clock: clock.Real{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get returns the value for key if it is younger than the default TTL.
// With no default TTL stored entries never expire through Get.
func (t *TTL) Get(key string) (any, bool) {
	if t.defaultTTL <= 0 {
		return t.load(key)
	}
	return t.lookup(key, t.defaultTTL)
}

// Put stores value under key, stamped with the current time.
func (t *TTL) Put(key string, value any) {
	t.mu.Lock()
	t.items[key] = entry{value: value, createdAt: t.clock.Now()}
	n := len(t.items)
	t.mu.Unlock()
	t.metrics.SetCacheEntries(n)
}

// GetOrCompute returns the cached value for key when it exists, is younger
// than ttl and force is false. Otherwise it calls compute, stores the result
// with a fresh timestamp and returns it. Compute errors are returned and
// nothing is stored. A ttl of zero or less never hits.
//
// With single-flight on, the shared compute runs detached from the caller's
// cancellation so one departing caller does not fail the others.
func (t *TTL) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc, force bool) (any, error) {
	category := Category(key)

	if !force {
		if v, ok := t.lookup(key, ttl); ok {
			t.metrics.CacheHit(category)
			return v, nil
		}
	}
	t.metrics.CacheMiss(category)

	if t.sf == nil {
		return t.compute(ctx, key, category, compute)
	}

	ch := t.sf.DoChan(key, func() (any, error) {
		if !force {
			// Another flight may have filled the entry while we queued.
			if v, ok := t.lookup(key, ttl); ok {
				return v, nil
			}
		}
		return t.compute(context.WithoutCancel(ctx), key, category, compute)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (t *TTL) compute(ctx context.Context, key, category string, compute ComputeFunc) (any, error) {
	v, err := compute(ctx)
	t.metrics.CacheCompute(category, err)
	if err != nil {
		return nil, err
	}
	t.Put(key, v)
	return v, nil
}

// lookup reports a hit only while now - createdAt < ttl.
func (t *TTL) lookup(key string, ttl time.Duration) (any, bool) {
	if ttl <= 0 {
		return nil, false
	}
	t.mu.RLock()
	e, ok := t.items[key]
	t.mu.RUnlock()
	if !ok || t.clock.Now().Sub(e.createdAt) >= ttl {
		return nil, false
	}
	return e.value, true
}

func (t *TTL) load(key string) (any, bool) {
	t.mu.RLock()
	e, ok := t.items[key]
	t.mu.RUnlock()
	return e.value, ok
}

// Len returns the number of stored entries, expired ones included.
func (t *TTL) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Age returns how long ago key was stored.
func (t *TTL) Age(key string) (time.Duration, bool) {
	t.mu.RLock()
	e, ok := t.items[key]
	t.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return t.clock.Now().Sub(e.createdAt), true
}

// Fetch is GetOrCompute with a typed result. A cached value of another type
// is treated as a miss and recomputed.
func Fetch[T any](ctx context.Context, c *TTL, key string, ttl time.Duration, force bool, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !force {
		if v, ok := c.lookup(key, ttl); ok {
			if tv, ok := v.(T); ok {
				c.metrics.CacheHit(Category(key))
				return tv, nil
			}
			force = true
		}
	}

	v, err := c.GetOrCompute(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return compute(ctx)
	}, force)
	if err != nil {
		return zero, err
	}
	tv, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return tv, nil
}

// Key builds a stable key from a category and parameters. Each part is
// query-escaped so separators inside parameters cannot collide.
func Key(category string, params ...string) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, url.QueryEscape(category))
	for _, p := range params {
		parts = append(parts, url.QueryEscape(p))
	}
	return strings.Join(parts, ":")
}

// Category returns the category part of a key built by Key.
func Category(key string) string {
	cat, _, _ := strings.Cut(key, ":")
	if u, err := url.QueryUnescape(cat); err == nil {
		return u
	}
	return cat
}
