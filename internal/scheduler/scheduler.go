// Package scheduler runs the confirmation sweep on a cron schedule. Every run
// takes a lock first so that only one replica sweeps at a time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

// Sweeper is the use case the scheduler drives.
type Sweeper interface {
	SweepConfirmations(ctx context.Context) (model.SweepResult, error)
}

// Job is one guarded sweep run.
type Job struct {
	sweeper Sweeper
	lock    Locker
	ttl     time.Duration
	logger  *slog.Logger
}

func NewJob(sweeper Sweeper, lock Locker, ttl time.Duration, logger *slog.Logger) *Job {
	return &Job{sweeper: sweeper, lock: lock, ttl: ttl, logger: logger}
}

// Run sweeps once if the lock is free. The sweep is bounded by the lock ttl.
func (j *Job) Run(ctx context.Context) {
	release, ok, err := j.lock.TryLock(ctx, j.ttl)
	if err != nil {
		j.logger.ErrorContext(ctx, "confirmation sweep lock failed", "error", err)
		return
	}
	if !ok {
		j.logger.InfoContext(ctx, "confirmation sweep already running elsewhere, skipping")
		return
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			j.logger.WarnContext(ctx, "confirmation sweep lock release failed", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, j.ttl)
	defer cancel()
	if _, err := j.sweeper.SweepConfirmations(ctx); err != nil {
		j.logger.ErrorContext(ctx, "confirmation sweep failed", "error", err)
	}
}

// Scheduler triggers a Job on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	job    *Job
	logger *slog.Logger
	ctx    context.Context
}

// New parses the five-field cron schedule and evaluates it in loc.
func New(job *Job, schedule string, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{job: job, logger: logger, ctx: context.Background()}
	cronLogger := slogAdapter{logger: logger}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := s.cron.AddFunc(schedule, func() { s.job.Run(s.ctx) }); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is done and the running job,
// if any, has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.logger.InfoContext(ctx, "confirmation sweep scheduled", "next", s.cron.Entries()[0].Next)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("confirmation sweep scheduler stopped")
	return nil
}

type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	a.logger.Error(msg, append(keysAndValues, "error", err)...)
}
