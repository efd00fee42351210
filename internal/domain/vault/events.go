package vault

import (
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeRepository = "Repository"
	AggregateTypeCurrency   = "Currency"
)

// Event type constants
const (
	EventTypeRepositoryCreated       = "RepositoryCreated"
	EventTypeRepositoryAccessChanged = "RepositoryAccessChanged"
	EventTypeCurrencyCreated         = "CurrencyCreated"
	EventTypeCurrencyRateChanged     = "CurrencyRateChanged"
	EventTypeRatesRefreshed          = "currency.rates_refreshed"
)

// RepositoryCreatedEvent is published when a repository is created
type RepositoryCreatedEvent struct {
	shared.BaseDomainEvent
	Key  string         `json:"key"`
	Name string         `json:"name"`
	Type RepositoryType `json:"type"`
}

// NewRepositoryCreatedEvent creates a new RepositoryCreatedEvent
func NewRepositoryCreatedEvent(r *Repository) *RepositoryCreatedEvent {
	return &RepositoryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRepositoryCreated, AggregateTypeRepository, r.ID, r.TenantID),
		Key:             r.Key,
		Name:            r.Name,
		Type:            r.Type,
	}
}

// RepositoryAccessChangedEvent is published when a user is authorized or revoked
type RepositoryAccessChangedEvent struct {
	shared.BaseDomainEvent
	UserID  uuid.UUID `json:"user_id"`
	Granted bool      `json:"granted"`
}

// NewRepositoryAccessChangedEvent creates a new RepositoryAccessChangedEvent
func NewRepositoryAccessChangedEvent(r *Repository, userID uuid.UUID, granted bool) *RepositoryAccessChangedEvent {
	return &RepositoryAccessChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRepositoryAccessChanged, AggregateTypeRepository, r.ID, r.TenantID),
		UserID:          userID,
		Granted:         granted,
	}
}

// CurrencyCreatedEvent is published when a currency is added
type CurrencyCreatedEvent struct {
	shared.BaseDomainEvent
	Code string       `json:"code"`
	Type CurrencyType `json:"type"`
}

// NewCurrencyCreatedEvent creates a new CurrencyCreatedEvent
func NewCurrencyCreatedEvent(c *Currency) *CurrencyCreatedEvent {
	return &CurrencyCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCurrencyCreated, AggregateTypeCurrency, c.ID, c.TenantID),
		Code:            c.Code,
		Type:            c.Type,
	}
}

// CurrencyRateChangedEvent is published when a currency's rate changes
type CurrencyRateChangedEvent struct {
	shared.BaseDomainEvent
	Code    string          `json:"code"`
	OldRate decimal.Decimal `json:"old_rate"`
	NewRate decimal.Decimal `json:"new_rate"`
	Source  RateSource      `json:"source"`
}

// NewCurrencyRateChangedEvent creates a new CurrencyRateChangedEvent
func NewCurrencyRateChangedEvent(c *Currency, oldRate decimal.Decimal) *CurrencyRateChangedEvent {
	return &CurrencyRateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCurrencyRateChanged, AggregateTypeCurrency, c.ID, c.TenantID),
		Code:            c.Code,
		OldRate:         oldRate,
		NewRate:         c.Rate,
		Source:          c.RateSource,
	}
}

// RateSnapshot is one currency's rate after a refresh
type RateSnapshot struct {
	Code string          `json:"code"`
	Rate decimal.Decimal `json:"rate"`
}

// RatesRefreshedEvent is published after the FX feed has been applied to an organization
type RatesRefreshedEvent struct {
	shared.BaseDomainEvent
	Base      string         `json:"base"`
	Rates     []RateSnapshot `json:"rates"`
	Changed   int            `json:"changed"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// NewRatesRefreshedEvent creates a new RatesRefreshedEvent
func NewRatesRefreshedEvent(tenantID uuid.UUID, base string, rates []RateSnapshot, changed int, fetchedAt time.Time) *RatesRefreshedEvent {
	return &RatesRefreshedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRatesRefreshed, AggregateTypeCurrency, tenantID, tenantID),
		Base:            base,
		Rates:           rates,
		Changed:         changed,
		FetchedAt:       fetchedAt,
	}
}
