package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/courtbooking/config"
	"github.com/Domenick1991/courtbooking/internal/logger"
	"github.com/robfig/cron/v3"
)

// Sweeper expires payments that outlived the payment window.
type Sweeper interface {
	SweepExpiredPayments(ctx context.Context) (int, error)
}

// Scheduler runs the periodic background jobs of the worker.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	sweeper Sweeper
	timeout time.Duration
}

// NewScheduler registers the jobs described by cfg. ctx bounds every job run.
func NewScheduler(ctx context.Context, cfg config.SchedulerConfig, sweeper Sweeper) (*Scheduler, error) {
	// UTC with seconds precision; a sweep still running blocks the next tick
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron:    c,
		ctx:     ctx,
		sweeper: sweeper,
		timeout: time.Minute,
	}

	if _, err := s.cron.AddFunc(cfg.SweepExpiredPayments, s.sweepExpiredPayments); err != nil {
		return nil, fmt.Errorf("register sweep job %q: %w", cfg.SweepExpiredPayments, err)
	}
	logger.Info("cron jobs registered", "sweep_expired_payments", cfg.SweepExpiredPayments)
	return s, nil
}

func (s *Scheduler) sweepExpiredPayments() {
	if s.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	n, err := s.sweeper.SweepExpiredPayments(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "sweep expired payments failed", "error", err)
		return
	}
	if n > 0 {
		logger.InfoContext(ctx, "expired payments released", "count", n)
	}
}

func (s *Scheduler) Start() {
	logger.Info("starting cron scheduler")
	s.cron.Start()
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("cron scheduler stopped")
}

func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}
