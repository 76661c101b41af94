package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/metrics"
)

const (
	defaultInterval   = 24 * time.Hour
	defaultJobTimeout = 5 * time.Minute
)

var (
	ErrJobNotFound = errors.New("cron job not found")
	ErrJobLocked   = errors.New("cron job already running")
)

// ServiceParams configure the cron service. Periods and Clock are optional;
// without Periods every replica runs every tick.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Locks      LockFactory
	Periods    PeriodClaimer
	Metrics    *metrics.CronJobMetrics
	JobTimeout time.Duration
	Clock      func() time.Time
}

// Service runs each registered job on its own cadence. The lock keeps runs
// from overlapping; the period claim keeps a job to one scheduled run per
// interval window across replicas.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	locks      LockFactory
	periods    PeriodClaimer
	metrics    *metrics.CronJobMetrics
	jobTimeout time.Duration
	now        func() time.Time
}

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
	timeout := params.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		logg:       params.Logger,
		registry:   registry,
		locks:      params.Locks,
		periods:    params.Periods,
		metrics:    params.Metrics,
		jobTimeout: timeout,
		now:        clock,
	}, nil
}

// Run starts one loop per job and blocks until the context is canceled.
// Each job runs once at start and then on every tick of its interval.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, entry := range s.registry.Entries() {
		wg.Add(1)
		go func(entry Entry) {
			defer wg.Done()
			s.loop(ctx, entry)
		}(entry)
	}
	wg.Wait()
	s.logg.Info(ctx, "cron service context canceled")
	return ctx.Err()
}

func (s *Service) loop(ctx context.Context, entry Entry) {
	s.runScheduled(ctx, entry)
	ticker := time.NewTicker(entry.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runScheduled(ctx, entry)
		}
	}
}

func (s *Service) runScheduled(ctx context.Context, entry Entry) {
	job := entry.Job
	logCtx := s.logg.WithField(ctx, "job", job.Name())
	if s.periods != nil {
		window := s.now().UTC().Truncate(entry.Interval)
		claimed, err := s.periods(ctx, job.Name(), window, entry.Interval)
		if err != nil {
			s.logg.Error(logCtx, "failed to claim cron window", err)
			return
		}
		if !claimed {
			s.metrics.IncSkipped(job.Name())
			s.logg.Info(s.logg.WithField(logCtx, "window", window.Format(time.RFC3339)), "cron window already taken by another instance; skipping")
			return
		}
	}
	_, err := s.execute(ctx, job)
	if errors.Is(err, ErrJobLocked) {
		s.logg.Info(logCtx, "another cron instance is running this job; skipping")
	}
}

// RunJob runs the named job once under its lock. Manual runs ignore the
// period claim.
func (s *Service) RunJob(ctx context.Context, name string) (Report, error) {
	entry, ok := s.registry.Lookup(name)
	if !ok {
		return nil, ErrJobNotFound
	}
	return s.execute(ctx, entry.Job)
}

func (s *Service) execute(ctx context.Context, job Job) (Report, error) {
	lock, err := s.locks(job.Name())
	if err != nil {
		return nil, fmt.Errorf("build lock: %w", err)
	}
	locked, err := lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.metrics.IncSkipped(job.Name())
		return nil, ErrJobLocked
	}
	defer func() {
		if relErr := lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()
	return s.runJob(ctx, job)
}

func (s *Service) runJob(ctx context.Context, job Job) (Report, error) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	runCtx, cancel := context.WithTimeout(jobCtx, s.jobTimeout)
	defer cancel()

	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	report, err := job.Run(runCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)

	fields := map[string]any{"duration_ms": duration.Milliseconds()}
	for k, v := range report {
		fields[k] = v
	}
	jobCtx = s.logg.WithFields(jobCtx, fields)
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return report, err
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
	return report, nil
}
