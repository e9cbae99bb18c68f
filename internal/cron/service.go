package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
	"github.com/angelmondragon/littlemirai-storefront/pkg/metrics"
)

const defaultInterval = 5 * time.Minute

// ServiceParams configure the scheduler.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Service runs registered housekeeping jobs on a fixed cadence.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
}

// NewService builds a scheduler. A nil lock defaults to a LocalLock and a
// non-positive interval to five minutes.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.lock == nil {
		s.lock = &LocalLock{}
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	return s, nil
}

// Run ticks until ctx is canceled and returns ctx.Err().
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logg.Info(s.logg.WithField(ctx, "interval", s.interval.String()), "job scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "job scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunCycle(ctx); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "scheduled cycle had failures")
			}
		}
	}
}

// RunCycle runs every job once, concurrently, each bounded by the tick
// interval. Failures are combined; one failing job never stops another.
// A cycle that finds the previous one still running is skipped.
func (s *Service) RunCycle(ctx context.Context) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !acquired {
		s.logg.Debug(ctx, "previous cycle still running; skipping")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "failed to release job lock", err)
		}
	}()

	var (
		mu       sync.Mutex
		failures error
		group    errgroup.Group
	)
	for _, job := range s.registry.Jobs() {
		group.Go(func() error {
			if err := s.runJob(ctx, job); err != nil {
				mu.Lock()
				failures = multierr.Append(failures, fmt.Errorf("%s: %w", job.Name(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()
	return failures
}

func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	name := job.Name()
	jobCtx, cancel := context.WithTimeout(s.logg.WithField(ctx, "job", name), s.interval)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		elapsed := time.Since(start)
		s.metrics.ObserveDuration(name, elapsed)
		logCtx := s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
		if err != nil {
			s.metrics.IncFailure(name)
			s.logg.Error(logCtx, "job failed", err)
			return
		}
		s.metrics.IncSuccess(name)
		s.logg.Debug(logCtx, "job completed")
	}()
	return job.Run(jobCtx)
}
