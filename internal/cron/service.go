package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/metrics"
)

const (
	defaultInterval = 60 * time.Second
	releaseTimeout  = 5 * time.Second
)

// Job is one unit of work run inside a cron cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger  *logger.Logger
	Jobs    []Job
	Lock    Lock
	Metrics *metrics.CronJobMetrics
	// Interval between cycles; zero means one minute.
	Interval time.Duration
}

// Service runs its jobs in order every interval while holding a lock, so
// only one instance sweeps at a time. A failing job does not stop the jobs
// after it.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron logger required")
	case params.Lock == nil:
		return nil, errors.New("cron lock required")
	}
	s := &Service{
		logg:     params.Logger,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	for _, job := range params.Jobs {
		if job != nil {
			s.jobs = append(s.jobs, job)
		}
	}
	return s, nil
}

// Run starts with a cycle right away, then one per tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil && ctx.Err() == nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	held, err := s.lock.Acquire(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("acquire cron lock: %w", err)
	case !held:
		s.logg.Info(ctx, "cron lock held elsewhere; skipping cycle")
		return nil
	}
	defer s.release(ctx)

	for _, job := range s.jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.runJob(ctx, job)
	}
	return nil
}

// release frees the lock even when ctx is already canceled.
func (s *Service) release(ctx context.Context) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.lock.Release(releaseCtx); err != nil {
		s.logg.Error(ctx, "cron lock release failed", err)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	started := time.Now()
	err := job.Run(ctx)
	took := time.Since(started)
	s.metrics.Record(job.Name(), took, err)

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron job failed", err)
		return
	}
	s.logg.Info(ctx, "cron job completed")
}
