// Package scheduler runs the periodic lease expiry sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/robfig/cron/v3"
)

// LeaseExpirer moves leases past their end date to EXPIRED.
type LeaseExpirer interface {
	ExpireDue(ctx context.Context, actor models.Actor, today time.Time) (int, error)
}

// Scheduler owns the cron runner for background lease maintenance.
type Scheduler struct {
	cron    *cron.Cron
	expirer LeaseExpirer
	now     func() time.Time
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

// New validates schedule (standard five-field cron syntax, evaluated in UTC) and
// registers the expiry sweep. The runner is idle until Start.
func New(schedule string, expirer LeaseExpirer) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		expirer: expirer,
		now:     time.Now,
		timeout: 5 * time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid expiry sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running scheduled jobs in their own goroutines.
func (s *Scheduler) Start() {
	middleware.Logger.Info("scheduler started", slog.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop halts the runner. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) tick() {
	// overlapping sweeps would fight over the same rows
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		middleware.Logger.Warn("expiry sweep still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.RunExpirySweep(ctx)
}

// RunExpirySweep expires every overdue ACTIVE lease as the system actor.
func (s *Scheduler) RunExpirySweep(ctx context.Context) (int, error) {
	start := time.Now()
	today := s.now().UTC()
	n, err := s.expirer.ExpireDue(ctx, models.SystemActor(), today)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "expiry sweep failed",
			slog.Int("expired", n),
			slog.String("error", err.Error()),
		)
		return n, err
	}
	middleware.Logger.InfoContext(ctx, "expiry sweep completed",
		slog.Int("expired", n),
		slog.String("day", today.Format(time.DateOnly)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return n, nil
}
