package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/orderdesk/pkg/logger"
	"github.com/angelmondragon/orderdesk/pkg/metrics"
)

const defaultInterval = time.Minute

// holder is implemented by locks that can name their current owner.
type holder interface {
	Holder(ctx context.Context) (string, error)
}

// ServiceParams configure the cron service. Metrics is optional.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Service runs every registered job once per cycle while holding the lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
}

// Cycle summarizes one pass over the registry.
type Cycle struct {
	Skipped bool
	Holder  string
	Ran     []string
	Failed  []string
	Err     error
}

// NewService validates params and applies the default one-minute interval.
func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Lock == nil:
		return nil, fmt.Errorf("lock required")
	}
	svc := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
	}
	if svc.registry == nil {
		svc.registry = &Registry{}
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	return svc, nil
}

// Run cycles immediately and then on every tick until ctx ends. Job failures
// are logged and never stop the loop.
func (s *Service) Run(ctx context.Context) error {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":     s.registry.Names(),
		"interval": s.interval.String(),
	}), "cron service started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.cycle(ctx); err != nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs a single cycle for schedulers that own the cadence. Job
// failures are combined into the returned error.
func (s *Service) RunOnce(ctx context.Context) error {
	report, err := s.cycle(ctx)
	if err != nil {
		return err
	}
	return report.Err
}

// cycle errors only when the lock itself is unusable.
func (s *Service) cycle(ctx context.Context) (Cycle, error) {
	var report Cycle
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		report.Skipped = true
		if h, ok := s.lock.(holder); ok {
			report.Holder, _ = h.Holder(ctx)
		}
		s.metrics.IncSkippedCycle()
		skipCtx := ctx
		if report.Holder != "" {
			skipCtx = s.logg.WithField(ctx, "lock_holder", report.Holder)
		}
		s.logg.Info(skipCtx, "another cron instance is running; skipping this cycle")
		return report, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()

	started := time.Now()
	for _, job := range s.registry.Jobs() {
		report.Ran = append(report.Ran, job.Name())
		if err := s.runJob(ctx, job); err != nil {
			report.Failed = append(report.Failed, job.Name())
			report.Err = multierr.Append(report.Err, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"ran":         len(report.Ran),
		"failed":      report.Failed,
		"duration_ms": time.Since(started).Milliseconds(),
	}), "scheduled run complete")
	return report, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "cron.job",
	})
	started := time.Now()
	err := job.Run(jobCtx)
	took := time.Since(started)
	s.metrics.ObserveRun(job.Name(), took, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return err
	}
	s.logg.Info(jobCtx, "job completed")
	return nil
}
