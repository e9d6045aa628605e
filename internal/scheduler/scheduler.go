// Package scheduler runs the pipeline's periodic jobs. Jobs receive
// the current instant from an injectable clock so their logic can be
// driven with fixed times in tests.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Job is one unit of scheduled work.
type Job func(ctx context.Context, now time.Time) error

// Scheduler invokes a job on a fixed interval for the lifetime of the
// process. A failing or panicking tick is logged and the loop keeps
// going.
type Scheduler struct {
	name     string
	interval time.Duration
	clock    Clock
	job      Job
	logger   *zap.Logger

	// ticks overrides the interval ticker when set, so tests can
	// drive the loop without real time passing.
	ticks <-chan time.Time
}

// New creates a scheduler. A nil clock defaults to the system clock.
func New(name string, interval time.Duration, clock Clock, job Job, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		clock:    clock,
		job:      job,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled. Intended to be called with `go`.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		zap.String("job", s.name),
		zap.Duration("interval", s.interval))

	ticks := s.ticks
	if ticks == nil {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", zap.String("job", s.name))
			return
		case <-ticks:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled job panicked",
				zap.String("job", s.name),
				zap.Any("panic", r))
		}
	}()

	if err := s.job(ctx, s.clock.Now()); err != nil {
		s.logger.Error("scheduled job failed",
			zap.String("job", s.name),
			zap.Error(err))
	}
}
