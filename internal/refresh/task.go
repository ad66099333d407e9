// Package refresh runs the recurring cache refreshes: each Task forces a
// recompute and hands the fresh result to its sinks.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"agrimarket/internal/clock"
	"agrimarket/internal/logger"
	"agrimarket/internal/metrics"
)

// RunFunc produces a fresh result for a task.
type RunFunc func(ctx context.Context) (any, error)

// Sink receives every successful result of a task, in run order.
type Sink func(ctx context.Context, task string, result any)

// TaskOption configures a Task.
type TaskOption func(*Task)

func WithSink(s Sink) TaskOption {
	return func(t *Task) { t.sinks = append(t.sinks, s) }
}

func WithMetrics(m *metrics.Metrics) TaskOption {
	return func(t *Task) { t.metrics = m }
}

func WithHealth(h *metrics.HealthStatus) TaskOption {
	return func(t *Task) { t.health = h }
}

func WithClock(c clock.Clock) TaskOption {
	return func(t *Task) { t.clock = c }
}

// Task is one named refresh job. A tick that arrives while the previous run
// is still in flight is skipped, never queued.
type Task struct {
	name    string
	run     RunFunc
	sinks   []Sink
	metrics *metrics.Metrics
	health  *metrics.HealthStatus
	clock   clock.Clock

	running atomic.Bool

	mu      sync.RWMutex
	last    any
	lastAt  time.Time
	lastErr error
	runs    int64
}

// NewTask creates a task.
func NewTask(name string, run RunFunc, opts ...TaskOption) *Task {
	t := &Task{name: name, run: run, clock: clock.Real{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Task) Name() string { return t.name }

// Tick runs the task once under a fresh trace id, which the run and the
// sinks see through ctx. It returns false when the tick was skipped because
// a run is already in progress.
func (t *Task) Tick(ctx context.Context) bool {
	if !t.running.CompareAndSwap(false, true) {
		t.metrics.RefreshSkip(t.name)
		slog.Debug("refresh skipped, previous run in flight", "task", t.name)
		return false
	}
	defer t.running.Store(false)

	start := t.clock.Now()
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(t.name, start))
	res, err := t.run(ctx)
	end := t.clock.Now()

	t.metrics.ObserveRefresh(t.name, end.Sub(start), err)
	if t.health != nil {
		t.health.RecordRefresh(end, err)
	}

	t.mu.Lock()
	t.lastErr = err
	if err == nil {
		t.last = res
		t.lastAt = start
		t.runs++
	}
	t.mu.Unlock()

	if err != nil {
		slog.Warn("refresh failed", append([]any{"task", t.name, "error", err}, logger.LogWithTrace(ctx)...)...)
		return true
	}

	for _, s := range t.sinks {
		s(ctx, t.name, res)
	}
	slog.Debug("refresh done", append([]any{"task", t.name, "duration", end.Sub(start)}, logger.LogWithTrace(ctx)...)...)
	return true
}

// Last returns the latest successful result, when it started, and the error
// of the most recent run.
func (t *Task) Last() (any, time.Time, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last, t.lastAt, t.lastErr
}

// Runs returns how many runs have succeeded.
func (t *Task) Runs() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.runs
}
