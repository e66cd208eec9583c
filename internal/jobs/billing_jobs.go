package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"rentbill-backend/internal/domain"
	ierr "rentbill-backend/internal/errors"
	"rentbill-backend/internal/logger"
)

// RecalcResult summarizes one recalculation run.
type RecalcResult struct {
	Processed    int64
	Recalculated int64
	Unchanged    int64 // nothing new since the last calculation, not saved
	Skipped      int64 // moved past CALCULATED while the job ran
	Failed       int64
}

// RecalculateOpenPeriods recalculates every DRAFT and CALCULATED period so
// timesheets verified after the last calculation are picked up.
func (jr *JobRunner) RecalculateOpenPeriods() {
	jr.runWithRecovery("RecalculateOpenPeriods", func() {
		res, err := jr.RecalculateOpenPeriodsContext(context.Background())
		if err != nil {
			logger.Error("Failed to recalculate open periods", "error", err)
			return
		}
		logger.Info("Recalculated open periods",
			"processed", res.Processed,
			"recalculated", res.Recalculated,
			"unchanged", res.Unchanged,
			"skipped", res.Skipped,
			"failed", res.Failed)
	})
}

func (jr *JobRunner) RecalculateOpenPeriodsContext(ctx context.Context) (RecalcResult, error) {
	cfg := jr.config.Billing

	periods, err := jr.billing.ListOpenPeriods(ctx, cfg.RecalcBatchSize)
	if err != nil {
		return RecalcResult{}, err
	}

	var res RecalcResult
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.RecalcConcurrency)

	for _, p := range periods {
		p := p
		g.Go(func() error {
			atomic.AddInt64(&res.Processed, 1)
			changed, err := jr.recalculateWithRetry(gctx, p, cfg.RecalcMaxRetries)
			switch {
			case err == nil && !changed:
				atomic.AddInt64(&res.Unchanged, 1)
			case err == nil:
				atomic.AddInt64(&res.Recalculated, 1)
			case ierr.IsInvalidState(err):
				atomic.AddInt64(&res.Skipped, 1)
			default:
				atomic.AddInt64(&res.Failed, 1)
				logger.Error("Failed to recalculate billing period", "periodID", p.ID, "rentalID", p.RentalID, "error", err)
			}
			// One bad period must not stop the others.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, ctx.Err()
}

// recalculateWithRetry retries only lost compare-and-swaps; every other error
// is permanent. changed is false when the stored calculation was kept as is.
func (jr *JobRunner) recalculateWithRetry(ctx context.Context, p domain.BillingPeriod, maxRetries int) (changed bool, err error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 50 * time.Millisecond
	eb.MaxInterval = 2 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(maxRetries)), ctx)

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		updated, err := jr.billing.CalculatePeriod(ctx, nil, p.ID)
		if err == nil {
			changed = updated.Version != p.Version
			return nil
		}
		if ierr.IsConcurrentModification(err) {
			logger.Warn("Billing period changed during recalculation, retrying", "periodID", p.ID, "attempt", attempt)
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	return changed, err
}
