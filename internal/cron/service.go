package cron

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
	"github.com/dealerbridge/dealerdesk-backend/pkg/logger"
	"github.com/dealerbridge/dealerdesk-backend/pkg/metrics"
)

// Service drives the registered jobs on a fixed interval. Ticks run the
// whole registry synchronously, so a slow batch delays the next tick
// instead of overlapping it.
type Service struct {
	registry *Registry
	lock     Locker
	log      *logger.Logger
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

type ServiceParams struct {
	Registry *Registry
	Lock     Locker
	Log      *logger.Logger
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	if p.Registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cron service requires a registry")
	}
	if p.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cron service requires a logger")
	}
	if p.Lock == nil {
		p.Lock = NoopLock{}
	}
	if p.Interval <= 0 {
		p.Interval = time.Hour
	}
	return &Service{
		registry: p.Registry,
		lock:     p.Lock,
		log:      p.Log,
		metrics:  p.Metrics,
		interval: p.Interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start blocks until Stop is called or the context ends. The first pass
// runs immediately rather than waiting a full interval.
func (s *Service) Start(ctx context.Context) {
	defer close(s.done)
	s.log.Info(ctx, fmt.Sprintf("cron worker started with %d job(s), interval %s", len(s.registry.Jobs()), s.interval))

	s.runAll(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "cron worker stopping: context cancelled")
			return
		case <-s.stop:
			s.log.Info(ctx, "cron worker stopping")
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

// Stop signals the loop and waits for the in-flight tick to finish.
func (s *Service) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Service) runAll(ctx context.Context) {
	for _, job := range s.registry.Jobs() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.runOne(ctx, job)
	}
}

func (s *Service) runOne(ctx context.Context, job Job) {
	name := job.Name()
	jobCtx := s.log.WithField(ctx, "job", name)

	// lock TTL outlives the tick so a second worker skips rather than
	// doubling up; a crashed holder frees it after two intervals
	acquired, err := s.lock.Acquire(jobCtx, name, 2*s.interval)
	if err != nil {
		s.log.Error(jobCtx, "acquiring cron lock failed", err)
		return
	}
	if !acquired {
		s.log.Info(jobCtx, "skipping job: another worker holds the lock")
		return
	}
	defer func() {
		if err := s.lock.Release(jobCtx, name); err != nil {
			s.log.Error(jobCtx, "releasing cron lock failed", err)
		}
	}()

	started := time.Now()
	err = job.Run(jobCtx)
	elapsed := time.Since(started)
	if s.metrics != nil {
		s.metrics.ObserveDuration(name, elapsed)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncFailure(name)
		}
		s.log.Error(jobCtx, fmt.Sprintf("job failed after %s", elapsed), err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncSuccess(name)
	}
	s.log.Info(jobCtx, fmt.Sprintf("job finished in %s", elapsed))
}
