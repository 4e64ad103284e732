package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dealerbridge/dealerdesk-backend/internal/orders"
	"github.com/dealerbridge/dealerdesk-backend/pkg/config"
	"github.com/dealerbridge/dealerdesk-backend/pkg/db/models"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
	"github.com/dealerbridge/dealerdesk-backend/pkg/logger"
	"github.com/dealerbridge/dealerdesk-backend/pkg/metrics"
)

const AutoCancelJobName = "auto_cancel_stale_orders"

// failure rate above this threshold in one run escalates to a warning
const failureRateThreshold = 0.2

type staleOrderFinder interface {
	FindStuckEditedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderCanceller interface {
	AutoCancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

// AutoCancelJob expires orders that sat in edited-pending-approval
// longer than the configured TTL. Each order is cancelled through the
// lifecycle service; one bad order never stops the rest of the batch.
type AutoCancelJob struct {
	finder    staleOrderFinder
	canceller orderCanceller
	cfg       config.AutoCancelConfig
	log       *logger.Logger
	metrics   *metrics.AutoCancelMetrics
	now       func() time.Time
}

type AutoCancelParams struct {
	Finder    staleOrderFinder
	Canceller orderCanceller
	Cfg       config.AutoCancelConfig
	Log       *logger.Logger
	Metrics   *metrics.AutoCancelMetrics

	// Now defaults to time.Now; tests override it.
	Now func() time.Time
}

func NewAutoCancelJob(p AutoCancelParams) (*AutoCancelJob, error) {
	if p.Finder == nil || p.Canceller == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "auto-cancel job requires order collaborators")
	}
	if p.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "auto-cancel job requires a logger")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &AutoCancelJob{
		finder:    p.Finder,
		canceller: p.Canceller,
		cfg:       p.Cfg,
		log:       p.Log,
		metrics:   p.Metrics,
		now:       p.Now,
	}, nil
}

func (j *AutoCancelJob) Name() string {
	return AutoCancelJobName
}

func (j *AutoCancelJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.cfg.TTL())
	batch, err := j.finder.FindStuckEditedBefore(ctx, cutoff, j.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		if j.metrics != nil {
			j.metrics.ObserveRun(0, 0, 0)
		}
		return nil
	}

	var cancelled, failed int
	var errs error
	for _, order := range batch {
		octx := j.log.WithOrderID(ctx, order.ID.String())
		if _, err := j.canceller.AutoCancel(octx, order.ID); err != nil {
			failed++
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			j.log.Error(octx, "auto-cancel failed", err)
			continue
		}
		cancelled++
	}

	if j.metrics != nil {
		j.metrics.ObserveRun(len(batch), cancelled, failed)
	}
	summary := fmt.Sprintf("auto-cancel run: examined %d, cancelled %d, failed %d (cutoff %s)",
		len(batch), cancelled, failed, cutoff.UTC().Format(time.RFC3339))
	if rate := float64(failed) / float64(len(batch)); rate > failureRateThreshold {
		j.log.Warn(ctx, summary+fmt.Sprintf(", failure rate %.0f%% exceeds threshold", rate*100))
	} else {
		j.log.Info(ctx, summary)
	}
	return errs
}

var (
	_ staleOrderFinder = (*orders.Repo)(nil)
	_ orderCanceller   = orders.Service(nil)
)
