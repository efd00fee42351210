package trade

import (
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderQuoted    = "OrderQuoted"
	EventTypeOrderCompleted = "OrderCompleted"
	EventTypeOrderCancelled = "OrderCancelled"
)

// OrderQuotedEvent is published when a quote is issued
type OrderQuotedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	SessionID   uuid.UUID       `json:"session_id"`
	QuotedRate  decimal.Decimal `json:"quoted_rate"`
}

// NewOrderQuotedEvent creates a new OrderQuotedEvent
func NewOrderQuotedEvent(o *Order) *OrderQuotedEvent {
	return &OrderQuotedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderQuoted, AggregateTypeOrder, o.ID, o.TenantID),
		OrderNumber:     o.OrderNumber,
		SessionID:       o.SessionID,
		QuotedRate:      o.QuotedRate,
	}
}

// OrderCompletedEvent is published when an order executes
type OrderCompletedEvent struct {
	shared.BaseDomainEvent
	OrderNumber  string          `json:"order_number"`
	SessionID    uuid.UUID       `json:"session_id"`
	CustomerID   *uuid.UUID      `json:"customer_id,omitempty"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	InputAmount  decimal.Decimal `json:"input_amount"`
	OutputAmount decimal.Decimal `json:"output_amount"`
	BaseAmount   decimal.Decimal `json:"base_amount"`
}

// NewOrderCompletedEvent creates a new OrderCompletedEvent
func NewOrderCompletedEvent(o *Order) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCompleted, AggregateTypeOrder, o.ID, o.TenantID),
		OrderNumber:     o.OrderNumber,
		SessionID:       o.SessionID,
		CustomerID:      o.CustomerID,
		FromCurrency:    o.FromCurrency,
		ToCurrency:      o.ToCurrency,
		InputAmount:     o.InputAmount,
		OutputAmount:    o.OutputAmount,
		BaseAmount:      o.BaseAmount,
	}
}

// OrderCancelledEvent is published when a quote is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason,omitempty"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *Order) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID, o.TenantID),
		OrderNumber:     o.OrderNumber,
		Reason:          o.CancelReason,
	}
}
