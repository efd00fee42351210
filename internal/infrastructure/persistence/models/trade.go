package models

import (
	"time"

	"github.com/fxoffice/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for FX orders and quotes
type OrderModel struct {
	TenantAggregateModel
	OrderNumber    string            `gorm:"type:varchar(32);not null;index:idx_orders_number"`
	SessionID      uuid.UUID         `gorm:"type:uuid;not null;index"`
	RepositoryID   uuid.UUID         `gorm:"type:uuid;not null"`
	CustomerID     *uuid.UUID        `gorm:"type:uuid;index"`
	Side           trade.Side        `gorm:"type:varchar(10);not null"`
	FromCurrency   string            `gorm:"type:varchar(10);not null"`
	ToCurrency     string            `gorm:"type:varchar(10);not null"`
	InputAmount    decimal.Decimal   `gorm:"type:decimal(30,8);not null"`
	OutputAmount   decimal.Decimal   `gorm:"type:decimal(30,8);not null"`
	MarketRate     decimal.Decimal   `gorm:"type:decimal(30,12);not null"`
	MarginPct      decimal.Decimal   `gorm:"type:decimal(7,4);not null"`
	QuotedRate     decimal.Decimal   `gorm:"type:decimal(30,12);not null"`
	BaseAmount     decimal.Decimal   `gorm:"type:decimal(30,8);not null"`
	Status         trade.OrderStatus `gorm:"type:varchar(20);not null;index:idx_orders_status_expiry,priority:1"`
	QuoteExpiresAt time.Time         `gorm:"not null;index:idx_orders_status_expiry,priority:2"`
	CompletedAt    *time.Time
	CompletedBy    *uuid.UUID `gorm:"type:uuid"`
	CancelledAt    *time.Time
	CancelReason   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model to a domain Order
func (m *OrderModel) ToDomain() *trade.Order {
	return &trade.Order{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		OrderNumber:         m.OrderNumber,
		SessionID:           m.SessionID,
		RepositoryID:        m.RepositoryID,
		CustomerID:          m.CustomerID,
		Side:                m.Side,
		FromCurrency:        m.FromCurrency,
		ToCurrency:          m.ToCurrency,
		InputAmount:         m.InputAmount,
		OutputAmount:        m.OutputAmount,
		MarketRate:          m.MarketRate,
		MarginPct:           m.MarginPct,
		QuotedRate:          m.QuotedRate,
		BaseAmount:          m.BaseAmount,
		Status:              m.Status,
		QuoteExpiresAt:      m.QuoteExpiresAt,
		CompletedAt:         m.CompletedAt,
		CompletedBy:         m.CompletedBy,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
	}
}

// OrderModelFromDomain creates a model from a domain Order
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{
		OrderNumber:    o.OrderNumber,
		SessionID:      o.SessionID,
		RepositoryID:   o.RepositoryID,
		CustomerID:     o.CustomerID,
		Side:           o.Side,
		FromCurrency:   o.FromCurrency,
		ToCurrency:     o.ToCurrency,
		InputAmount:    o.InputAmount,
		OutputAmount:   o.OutputAmount,
		MarketRate:     o.MarketRate,
		MarginPct:      o.MarginPct,
		QuotedRate:     o.QuotedRate,
		BaseAmount:     o.BaseAmount,
		Status:         o.Status,
		QuoteExpiresAt: o.QuoteExpiresAt,
		CompletedAt:    o.CompletedAt,
		CompletedBy:    o.CompletedBy,
		CancelledAt:    o.CancelledAt,
		CancelReason:   o.CancelReason,
	}
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	return m
}

// NoteModel is the persistence model for notes attached to orders, customers and sessions
type NoteModel struct {
	TenantAggregateModel
	SubjectType trade.SubjectType `gorm:"type:varchar(20);not null;index:idx_notes_subject,priority:1"`
	SubjectID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_notes_subject,priority:2"`
	AuthorID    uuid.UUID         `gorm:"type:uuid;not null"`
	Body        string            `gorm:"type:text;not null"`
	EditedAt    *time.Time
}

// TableName returns the table name for GORM
func (NoteModel) TableName() string {
	return "notes"
}

// ToDomain converts the model to a domain Note
func (m *NoteModel) ToDomain() *trade.Note {
	return &trade.Note{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		SubjectType:         m.SubjectType,
		SubjectID:           m.SubjectID,
		AuthorID:            m.AuthorID,
		Body:                m.Body,
		EditedAt:            m.EditedAt,
	}
}

// NoteModelFromDomain creates a model from a domain Note
func NoteModelFromDomain(n *trade.Note) *NoteModel {
	m := &NoteModel{
		SubjectType: n.SubjectType,
		SubjectID:   n.SubjectID,
		AuthorID:    n.AuthorID,
		Body:        n.Body,
		EditedAt:    n.EditedAt,
	}
	m.FromDomainTenantAggregateRoot(n.TenantAggregateRoot)
	return m
}
