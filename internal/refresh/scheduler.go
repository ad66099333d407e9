package refresh

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger routes cron's own logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

// Scheduler triggers tasks on cron specs. Specs take a seconds field and
// the @every descriptors, e.g. "@every 60s".
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	tasks  []*Task
}

// NewScheduler creates a scheduler whose runs inherit ctx.
func NewScheduler(ctx context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	l := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers t to run on spec.
func (s *Scheduler) Add(spec string, t *Task) error {
	if _, err := s.cron.AddFunc(spec, func() { t.Tick(s.ctx) }); err != nil {
		return fmt.Errorf("register %s task: %w", t.Name(), err)
	}
	s.tasks = append(s.tasks, t)
	return nil
}

// RunNow ticks every registered task once, in registration order.
func (s *Scheduler) RunNow() {
	for _, t := range s.tasks {
		t.Tick(s.ctx)
	}
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "tasks", len(s.tasks))
}

// Stop cancels in-flight runs and waits for them to return, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	slog.Info("scheduler stopped")
}
