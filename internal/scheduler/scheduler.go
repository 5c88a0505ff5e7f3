// Package scheduler runs the periodic retention sweep over the conversation log.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/codeflow/internal/logging"
)

// Pruner deletes entries created before a cutoff. Satisfied by
// store.ConversationLog.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config controls the sweep.
type Config struct {
	Spec      string        // cron spec or descriptor, e.g. "@every 10m"
	Retention time.Duration // entries older than this are dropped; 0 disables the sweep
	Logger    *slog.Logger
	Now       func() time.Time
}

// Scheduler drives Prune on a cron schedule.
type Scheduler struct {
	pruner    Pruner
	retention time.Duration
	schedule  cron.Schedule
	spec      string
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New validates the spec and returns an unstarted Scheduler.
func New(p Pruner, cfg Config) (*Scheduler, error) {
	schedule, err := parser.Parse(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", cfg.Spec, err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		pruner:    p,
		retention: cfg.Retention,
		schedule:  schedule,
		spec:      cfg.Spec,
		logger:    logging.OrDefault(cfg.Logger),
		now:       now,
	}, nil
}

// Start schedules the sweep. It is a no-op when retention is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}
	if s.retention <= 0 {
		s.logger.Info("history retention disabled")
		return nil
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.Sweep(sweepCtx); err != nil {
			s.logger.Error("history sweep failed", slog.String("error", err.Error()))
		}
	}))
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.logger.Info("scheduler started", slog.String("spec", s.spec), slog.Duration("retention", s.retention))
	return nil
}

// Sweep drops entries older than the retention window once.
func (s *Scheduler) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		s.logger.Info("history pruned", slog.Int64("removed", n), slog.Time("cutoff", cutoff))
	}
	return n, nil
}

// NextRun reports when the sweep fires next after from.
func (s *Scheduler) NextRun(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// Stop waits for a running sweep and stops the schedule.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cancel()
	s.cron = nil
	s.cancel = nil
	s.logger.Info("scheduler stopped")
}
