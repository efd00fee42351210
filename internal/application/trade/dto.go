package trade

import (
	"time"

	"github.com/fxoffice/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actor is the authenticated user performing an order operation
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// =============================================================================
// Order DTOs
// =============================================================================

// CreateQuoteRequest prices an exchange against an open session
type CreateQuoteRequest struct {
	SessionID    uuid.UUID       `json:"session_id" binding:"required"`
	CustomerID   *uuid.UUID      `json:"customer_id"`
	FromCurrency string          `json:"from_currency" binding:"required,currency_code"`
	ToCurrency   string          `json:"to_currency" binding:"required,currency_code,nefield=FromCurrency"`
	InputAmount  decimal.Decimal `json:"input_amount"`
}

// CancelOrderRequest cancels a quote
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderListFilter represents filter options for the order list
type OrderListFilter struct {
	Search     string     `form:"search"`
	SessionID  string     `form:"session_id" binding:"omitempty,uuid"`
	CustomerID string     `form:"customer_id" binding:"omitempty,uuid"`
	Status     string     `form:"status" binding:"omitempty,oneof=QUOTE COMPLETED CANCELLED EXPIRED"`
	Side       string     `form:"side" binding:"omitempty,oneof=BUY SELL CROSS"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by" binding:"omitempty,oneof=created_at order_number input_amount status"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	OrderNumber    string          `json:"order_number"`
	SessionID      uuid.UUID       `json:"session_id"`
	RepositoryID   uuid.UUID       `json:"repository_id"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty"`
	Side           string          `json:"side"`
	FromCurrency   string          `json:"from_currency"`
	ToCurrency     string          `json:"to_currency"`
	InputAmount    decimal.Decimal `json:"input_amount"`
	OutputAmount   decimal.Decimal `json:"output_amount"`
	MarketRate     decimal.Decimal `json:"market_rate"`
	MarginPct      decimal.Decimal `json:"margin_pct"`
	QuotedRate     decimal.Decimal `json:"quoted_rate"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
	Status         string          `json:"status"`
	QuoteExpiresAt time.Time       `json:"quote_expires_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CompletedBy    *uuid.UUID      `json:"completed_by,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason   string          `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// ReceiptResponse is a rendered receipt document
type ReceiptResponse struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *trade.Order) OrderResponse {
	return OrderResponse{
		ID:             o.ID,
		TenantID:       o.TenantID,
		OrderNumber:    o.OrderNumber,
		SessionID:      o.SessionID,
		RepositoryID:   o.RepositoryID,
		CustomerID:     o.CustomerID,
		Side:           string(o.Side),
		FromCurrency:   o.FromCurrency,
		ToCurrency:     o.ToCurrency,
		InputAmount:    o.InputAmount,
		OutputAmount:   o.OutputAmount,
		MarketRate:     o.MarketRate,
		MarginPct:      o.MarginPct,
		QuotedRate:     o.QuotedRate,
		BaseAmount:     o.BaseAmount,
		Status:         string(o.Status),
		QuoteExpiresAt: o.QuoteExpiresAt,
		CompletedAt:    o.CompletedAt,
		CompletedBy:    o.CompletedBy,
		CancelledAt:    o.CancelledAt,
		CancelReason:   o.CancelReason,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		Version:        o.Version,
	}
}

// ToOrderResponses converts a slice of orders
func ToOrderResponses(orders []trade.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}

// =============================================================================
// Note DTOs
// =============================================================================

// CreateNoteRequest attaches a note to an order, customer or session
type CreateNoteRequest struct {
	SubjectType string    `json:"subject_type" binding:"required,oneof=ORDER CUSTOMER SESSION"`
	SubjectID   uuid.UUID `json:"subject_id" binding:"required"`
	Body        string    `json:"body" binding:"required,min=1,max=4000"`
}

// UpdateNoteRequest edits a note body
type UpdateNoteRequest struct {
	Body string `json:"body" binding:"required,min=1,max=4000"`
}

// NoteListFilter selects the notes of one subject
type NoteListFilter struct {
	SubjectType string `form:"subject_type" binding:"required,oneof=ORDER CUSTOMER SESSION"`
	SubjectID   string `form:"subject_id" binding:"required,uuid"`
}

// NoteResponse represents a note in API responses
type NoteResponse struct {
	ID          uuid.UUID  `json:"id"`
	SubjectType string     `json:"subject_type"`
	SubjectID   uuid.UUID  `json:"subject_id"`
	AuthorID    uuid.UUID  `json:"author_id"`
	Body        string     `json:"body"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToNoteResponse converts a domain Note to NoteResponse
func ToNoteResponse(n *trade.Note) NoteResponse {
	return NoteResponse{
		ID:          n.ID,
		SubjectType: string(n.SubjectType),
		SubjectID:   n.SubjectID,
		AuthorID:    n.AuthorID,
		Body:        n.Body,
		EditedAt:    n.EditedAt,
		CreatedAt:   n.CreatedAt,
	}
}
