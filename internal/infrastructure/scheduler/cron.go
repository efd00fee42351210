package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TenantProvider lists the organizations per-tenant jobs fan out to
type TenantProvider interface {
	ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CronTrigger turns cron schedules into jobs on a Scheduler
type CronTrigger struct {
	cron      *cron.Cron
	scheduler *Scheduler
	tenants   TenantProvider
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[JobKind]cron.EntryID
	baseCtx context.Context
}

// NewCronTrigger creates a trigger; schedules are registered with Every*
func NewCronTrigger(scheduler *Scheduler, tenants TenantProvider, logger *zap.Logger) *CronTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DiscardLogger),
		)),
		scheduler: scheduler,
		tenants:   tenants,
		logger:    logger,
		entries:   make(map[JobKind]cron.EntryID),
		baseCtx:   context.Background(),
	}
}

// EveryTenant submits one job of kind per active tenant on each tick of spec
func (c *CronTrigger) EveryTenant(spec string, kind JobKind) error {
	return c.add(spec, kind, func() { c.fanOut(kind) })
}

// Every submits one cross-tenant job of kind on each tick of spec
func (c *CronTrigger) Every(spec string, kind JobKind) error {
	return c.add(spec, kind, func() {
		if err := c.scheduler.Submit(NewJob(kind, nil, c.scheduler.config.MaxAttempts)); err != nil {
			c.logger.Warn("failed to submit job", zap.String("kind", string(kind)), zap.Error(err))
		}
	})
}

func (c *CronTrigger) add(spec string, kind JobKind, fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.entries[kind]; ok {
		c.cron.Remove(id)
	}
	id, err := c.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, spec, err)
	}
	c.entries[kind] = id
	c.logger.Info("job scheduled", zap.String("kind", string(kind)), zap.String("spec", spec))
	return nil
}

func (c *CronTrigger) fanOut(kind JobKind) {
	c.mu.Lock()
	ctx := c.baseCtx
	c.mu.Unlock()

	ids, err := c.tenants.ActiveTenantIDs(ctx)
	if err != nil {
		c.logger.Error("failed to list tenants", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	for _, id := range ids {
		tenantID := id
		if err := c.scheduler.Submit(NewJob(kind, &tenantID, c.scheduler.config.MaxAttempts)); err != nil {
			c.logger.Warn("failed to submit tenant job",
				zap.String("kind", string(kind)),
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}
}

// Start begins firing schedules
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	c.baseCtx = context.WithoutCancel(ctx)
	c.mu.Unlock()
	c.cron.Start()
	return nil
}

// Stop halts the schedule and waits for in-flight triggers, bounded by ctx
func (c *CronTrigger) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
