package vault

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RateService applies the FX feed to an organization's FEED currencies
type RateService struct {
	orgRepo      identity.OrganizationRepository
	currencyRepo vault.CurrencyRepository
	provider     vault.FXRateProvider
	publisher    shared.EventPublisher
	logger       *zap.Logger
	now          func() time.Time
}

// NewRateService creates a new RateService
func NewRateService(
	orgRepo identity.OrganizationRepository,
	currencyRepo vault.CurrencyRepository,
	provider vault.FXRateProvider,
	logger *zap.Logger,
) *RateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateService{
		orgRepo:      orgRepo,
		currencyRepo: currencyRepo,
		provider:     provider,
		logger:       logger,
		now:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *RateService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Refresh fetches the latest rates against the organization's base currency and applies them
func (s *RateService) Refresh(ctx context.Context, tenantID uuid.UUID) (*RefreshResult, error) {
	org, err := s.orgRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !org.IsActive() {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "Organization is inactive")
	}

	feed, err := s.currencyRepo.FindByRateSource(ctx, tenantID, vault.RateSourceFeed)
	if err != nil {
		return nil, err
	}
	result := &RefreshResult{
		Base:      org.BaseCurrency,
		Updated:   []string{},
		Unchanged: []string{},
		Missing:   []string{},
	}
	if len(feed) == 0 {
		result.FetchedAt = s.now()
		return result, nil
	}

	table, err := s.provider.Latest(ctx, org.BaseCurrency)
	if err != nil {
		return nil, err
	}
	if !table.IsQuotedIn(org.BaseCurrency) {
		s.logger.Error("rate table quoted in the wrong base",
			zap.String("tenant_id", tenantID.String()),
			zap.String("base", org.BaseCurrency),
			zap.String("table_base", table.Base))
		return nil, shared.NewDomainError(shared.ErrExternalService.Code,
			"Rate feed answered in "+table.Base+" instead of "+org.BaseCurrency)
	}
	result.FetchedAt = table.FetchedAt
	if result.FetchedAt.IsZero() {
		result.FetchedAt = s.now()
	}

	now := s.now()
	touched := make([]vault.Currency, 0, len(feed))
	var events []shared.DomainEvent
	for i := range feed {
		c := &feed[i]
		rate, ok := table.Rate(c.Code)
		if !ok {
			result.Missing = append(result.Missing, c.Code)
			continue
		}
		changed, err := c.ApplyFeedRate(rate, now)
		if err != nil {
			s.logger.Warn("feed rate rejected",
				zap.String("tenant_id", tenantID.String()),
				zap.String("code", c.Code),
				zap.String("rate", rate.String()),
				zap.Error(err))
			result.Missing = append(result.Missing, c.Code)
			continue
		}
		if changed {
			result.Updated = append(result.Updated, c.Code)
		} else {
			result.Unchanged = append(result.Unchanged, c.Code)
		}
		events = append(events, c.GetDomainEvents()...)
		c.ClearDomainEvents()
		touched = append(touched, *c)
	}

	if len(touched) > 0 {
		if err := s.currencyRepo.UpdateRates(ctx, tenantID, touched, now); err != nil {
			return nil, fmt.Errorf("failed to store refreshed rates: %w", err)
		}
	}

	snapshots := make([]vault.RateSnapshot, 0, len(touched))
	for _, c := range touched {
		snapshots = append(snapshots, vault.RateSnapshot{Code: c.Code, Rate: c.Rate})
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Code < snapshots[j].Code })
	events = append(events, vault.NewRatesRefreshedEvent(tenantID, org.BaseCurrency, snapshots, len(result.Updated), result.FetchedAt))

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("failed to publish rate events", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		}
	}

	s.logger.Info("rates refreshed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("base", org.BaseCurrency),
		zap.Int("updated", len(result.Updated)),
		zap.Int("unchanged", len(result.Unchanged)),
		zap.Int("missing", len(result.Missing)))
	return result, nil
}

// RefreshForTenant is the scheduler entry point for Refresh
func (s *RateService) RefreshForTenant(ctx context.Context, tenantID uuid.UUID) error {
	_, err := s.Refresh(ctx, tenantID)
	return err
}
