package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jortega-dev/riverside-backend/pkg/logger"
	"github.com/jortega-dev/riverside-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// LockFactory builds the distributed lock for one job.
type LockFactory func(jobName string) (Lock, error)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locks    LockFactory
	Metrics  *metrics.CronJobMetrics
}

// Service runs every registered job on its own cadence. Jobs never share
// in-process state; each run acquires that job's lock so only one worker
// instance sweeps at a time.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locks    LockFactory
	metrics  *metrics.CronJobMetrics
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock factory required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locks:    params.Locks,
		metrics:  params.Metrics,
	}, nil
}

// Run schedules all registered jobs until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var wg sync.WaitGroup
	for _, job := range s.registry.Jobs() {
		lock, err := s.locks(job.Name())
		if err != nil {
			return fmt.Errorf("building lock for %s: %w", job.Name(), err)
		}
		wg.Add(1)
		go func(job Job, lock Lock) {
			defer wg.Done()
			s.loop(ctx, job, lock)
		}(job, lock)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Service) loop(ctx context.Context, job Job, lock Lock) {
	interval := job.Interval()
	if interval <= 0 {
		interval = defaultInterval
	}
	s.runLocked(ctx, job, lock)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runLocked(ctx, job, lock)
		}
	}
}

func (s *Service) runLocked(ctx context.Context, job Job, lock Lock) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")

	locked, err := lock.Acquire(jobCtx)
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		s.recordFailure(job.Name())
		return
	}
	if !locked {
		s.logg.Info(jobCtx, "another instance holds the lock; skipping")
		return
	}
	defer func() {
		if relErr := lock.Release(jobCtx); relErr != nil {
			s.logg.Error(jobCtx, "failed to release job lock", relErr)
		}
	}()

	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err = job.Run(jobCtx)
	duration := time.Since(start)
	s.observeDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.recordFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.recordSuccess(job.Name())
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}
