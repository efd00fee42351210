package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RateRefresher refreshes FEED currency rates of one organization
type RateRefresher interface {
	RefreshForTenant(ctx context.Context, tenantID uuid.UUID) error
}

// QuoteExpirer expires quotes past their deadline and reports how many it touched
type QuoteExpirer interface {
	ExpireDueQuotes(ctx context.Context, now time.Time, limit int) (int, error)
}

// Executor routes jobs to the application services that perform them
type Executor struct {
	rates       RateRefresher
	quotes      QuoteExpirer
	expiryBatch int
	now         func() time.Time
}

// NewExecutor creates an executor. Either collaborator may be nil to disable its jobs.
func NewExecutor(rates RateRefresher, quotes QuoteExpirer, expiryBatch int) *Executor {
	if expiryBatch <= 0 {
		expiryBatch = 200
	}
	return &Executor{rates: rates, quotes: quotes, expiryBatch: expiryBatch, now: time.Now}
}

// Execute implements JobExecutor
func (e *Executor) Execute(ctx context.Context, job *Job) error {
	switch job.Kind {
	case JobKindRateRefresh:
		if e.rates == nil || job.TenantID == nil {
			return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
		}
		return e.rates.RefreshForTenant(ctx, *job.TenantID)
	case JobKindQuoteExpiry:
		if e.quotes == nil {
			return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
		}
		// drain in batches until a short batch
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := e.quotes.ExpireDueQuotes(ctx, e.now(), e.expiryBatch)
			if err != nil {
				return err
			}
			if n < e.expiryBatch {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
}
