package trade

import (
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusQuote     OrderStatus = "QUOTE"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusExpired   OrderStatus = "EXPIRED"
)

// IsValid checks if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusQuote, OrderStatusCompleted, OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

// Order is a currency exchange between a customer and the organization.
// It starts as a quote with a fixed rate and expiry and is then completed,
// cancelled or left to expire.
type Order struct {
	shared.TenantAggregateRoot
	OrderNumber    string
	SessionID      uuid.UUID
	RepositoryID   uuid.UUID
	CustomerID     *uuid.UUID
	Side           Side
	FromCurrency   string
	ToCurrency     string
	InputAmount    decimal.Decimal
	OutputAmount   decimal.Decimal
	MarketRate     decimal.Decimal
	MarginPct      decimal.Decimal
	QuotedRate     decimal.Decimal
	BaseAmount     decimal.Decimal
	Status         OrderStatus
	QuoteExpiresAt time.Time
	CompletedAt    *time.Time
	CompletedBy    *uuid.UUID
	CancelledAt    *time.Time
	CancelReason   string
}

// NewQuoteOrder creates an order in QUOTE status valid for ttl
func NewQuoteOrder(tenantID uuid.UUID, orderNumber string, sessionID, repositoryID uuid.UUID, customerID *uuid.UUID,
	from, to string, quote Quote, ttl time.Duration, now time.Time) (*Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if sessionID == uuid.Nil || repositoryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SESSION", "Session and repository are required")
	}
	if ttl <= 0 {
		return nil, shared.NewDomainError("INVALID_TTL", "Quote validity must be positive")
	}

	o := &Order{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderNumber:         orderNumber,
		SessionID:           sessionID,
		RepositoryID:        repositoryID,
		CustomerID:          customerID,
		Side:                quote.Side,
		FromCurrency:        from,
		ToCurrency:          to,
		InputAmount:         quote.InputAmount,
		OutputAmount:        quote.OutputAmount,
		MarketRate:          quote.MarketRate,
		MarginPct:           quote.MarginPct,
		QuotedRate:          quote.QuotedRate,
		BaseAmount:          quote.BaseAmount,
		Status:              OrderStatusQuote,
		QuoteExpiresAt:      now.Add(ttl),
	}
	o.AddDomainEvent(NewOrderQuotedEvent(o))
	return o, nil
}

// IsExpired reports whether the quote's validity has lapsed
func (o *Order) IsExpired(now time.Time) bool {
	return o.Status == OrderStatusQuote && !now.Before(o.QuoteExpiresAt)
}

// Complete executes the quote. A lapsed quote is moved to EXPIRED and
// QUOTE_EXPIRED is returned; the caller should still persist the order.
func (o *Order) Complete(by uuid.UUID, now time.Time) error {
	if o.Status != OrderStatusQuote {
		return shared.NewDomainError("INVALID_ORDER_STATE", "Only quotes can be completed, order is "+string(o.Status))
	}
	if o.IsExpired(now) {
		o.expire()
		return ErrQuoteExpired
	}
	o.Status = OrderStatusCompleted
	o.CompletedAt = &now
	o.CompletedBy = &by
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderCompletedEvent(o))
	return nil
}

// Cancel abandons a quote
func (o *Order) Cancel(reason string, now time.Time) error {
	if o.Status != OrderStatusQuote {
		return shared.NewDomainError("INVALID_ORDER_STATE", "Only quotes can be cancelled, order is "+string(o.Status))
	}
	if len(reason) > 500 {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason cannot exceed 500 characters")
	}
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = strings.TrimSpace(reason)
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderCancelledEvent(o))
	return nil
}

// ExpireIfDue moves a lapsed quote to EXPIRED and reports whether it did
func (o *Order) ExpireIfDue(now time.Time) bool {
	if !o.IsExpired(now) {
		return false
	}
	o.expire()
	return true
}

func (o *Order) expire() {
	o.Status = OrderStatusExpired
	o.IncrementVersion()
}

// InputMoney returns what the customer hands over
func (o *Order) InputMoney() valueobject.Money {
	return valueobject.MustNewMoney(o.InputAmount, o.FromCurrency)
}

// OutputMoney returns what the customer receives
func (o *Order) OutputMoney() valueobject.Money {
	return valueobject.MustNewMoney(o.OutputAmount, o.ToCurrency)
}

// ErrQuoteExpired is returned when completing a lapsed quote
var ErrQuoteExpired = shared.NewDomainError("QUOTE_EXPIRED", "Quote has expired, request a new one")
