package trade

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptFormat selects how a receipt is rendered
type ReceiptFormat string

const (
	ReceiptFormatHTML ReceiptFormat = "html"
	ReceiptFormatPDF  ReceiptFormat = "pdf"
)

// IsValid checks if the format is supported
func (f ReceiptFormat) IsValid() bool {
	return f == ReceiptFormatHTML || f == ReceiptFormatPDF
}

// Receipt is the printable view of an order
type Receipt struct {
	OrganizationName string
	RepositoryName   string
	OrderNumber      string
	Status           OrderStatus
	Side             Side
	CustomerName     string
	FromCurrency     string
	FromDecimals     int
	ToCurrency       string
	ToDecimals       int
	InputAmount      decimal.Decimal
	OutputAmount     decimal.Decimal
	QuotedRate       decimal.Decimal
	IssuedAt         time.Time
	CompletedAt      *time.Time
}

// NewReceipt fills the order fields of a receipt
func NewReceipt(o *Order) Receipt {
	return Receipt{
		OrderNumber:  o.OrderNumber,
		Status:       o.Status,
		Side:         o.Side,
		FromCurrency: o.FromCurrency,
		ToCurrency:   o.ToCurrency,
		InputAmount:  o.InputAmount,
		OutputAmount: o.OutputAmount,
		QuotedRate:   o.QuotedRate,
		IssuedAt:     o.CreatedAt,
		CompletedAt:  o.CompletedAt,
		FromDecimals: 2,
		ToDecimals:   2,
	}
}
