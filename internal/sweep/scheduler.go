package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// DefaultCron fires one minute after midnight.
const DefaultCron = "1 0 * * *"

// Scheduler runs jobs on cron expressions in one timezone. Jobs never
// overlap with themselves and a panicking job is logged, not fatal.
type Scheduler struct {
	cron   *gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a stopped scheduler for loc.
func NewScheduler(loc *time.Location) *Scheduler {
	cron := gocron.NewScheduler(loc)
	cron.SingletonModeAll()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{cron: cron, ctx: ctx, cancel: cancel}
}

// Add registers fn under name on a cron expression.
func (s *Scheduler) Add(name, expr string, fn func(context.Context) error) error {
	_, err := s.cron.Cron(expr).Tag(name).Do(func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("scheduled job panicked", "job", name, "panic", r)
			}
		}()
		if err := fn(s.ctx); err != nil {
			slog.Error("scheduled job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// AddSweep runs the completion sweep on expr. A run skipped because another
// instance holds the lock is not an error.
func (s *Scheduler) AddSweep(sw *Sweeper, expr string) error {
	return s.Add("completion-sweep", expr, func(ctx context.Context) error {
		_, err := sw.Run(ctx)
		if errors.Is(err, ErrSweepInProgress) {
			slog.Info("completion sweep skipped, another run holds the lock")
			return nil
		}
		return err
	})
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
	for _, j := range s.cron.Jobs() {
		slog.Info("scheduled job", "job", j.Tags(), "next_run", j.NextRun())
	}
}

// Stop cancels running jobs' context and stops scheduling new runs.
func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
}
