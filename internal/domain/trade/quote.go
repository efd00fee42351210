package trade

import (
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Side describes the order from the organization's point of view
type Side string

const (
	// SideBuy: the organization receives foreign currency and pays out base currency
	SideBuy Side = "BUY"
	// SideSell: the organization receives base currency and pays out foreign currency
	SideSell Side = "SELL"
	// SideCross: neither leg is the base currency
	SideCross Side = "CROSS"
)

// RatePrecision is the number of decimal places kept on quoted rates
const RatePrecision = 8

var hundred = decimal.NewFromInt(100)

// CurrencyQuote is the rate data of one leg of a quote
type CurrencyQuote struct {
	Code          string
	Rate          decimal.Decimal // units per one unit of base currency
	DecimalPlaces int
	BuyMarginPct  decimal.Decimal
	SellMarginPct decimal.Decimal
	IsBase        bool
}

// Quote is the result of pricing an exchange
type Quote struct {
	Side         Side
	MarketRate   decimal.Decimal
	MarginPct    decimal.Decimal
	QuotedRate   decimal.Decimal
	InputAmount  decimal.Decimal
	OutputAmount decimal.Decimal
	// BaseAmount is the input expressed in the organization's base currency
	BaseAmount decimal.Decimal
}

// CalculateQuote prices converting amount of from into to.
//
//	market = rate(to) / rate(from)
//	quoted = market × (1 − margin/100)
//	output = amount × quoted, truncated to the target currency's decimal places
//
// The margin is the foreign leg's buy margin when the organization buys, its
// sell margin when it sells, and the sum of both for cross trades.
func CalculateQuote(from, to CurrencyQuote, amount decimal.Decimal) (Quote, error) {
	if from.Code == to.Code {
		return Quote{}, shared.NewDomainError("SAME_CURRENCY", "Cannot exchange a currency for itself")
	}
	if !amount.IsPositive() {
		return Quote{}, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if !from.Rate.IsPositive() || !to.Rate.IsPositive() {
		return Quote{}, shared.NewDomainError("RATE_UNAVAILABLE", "Both currencies need a positive rate")
	}

	side, margin := sideAndMargin(from, to)
	if margin.IsNegative() || margin.GreaterThanOrEqual(hundred) {
		return Quote{}, shared.NewDomainError("INVALID_MARGIN", "Combined margin must be at least 0 and below 100 percent")
	}

	market := to.Rate.DivRound(from.Rate, RatePrecision)
	factor := decimal.NewFromInt(1).Sub(margin.Div(hundred))
	quoted := market.Mul(factor).Round(RatePrecision)
	output := amount.Mul(quoted).Truncate(int32(to.DecimalPlaces))
	if !output.IsPositive() {
		return Quote{}, shared.NewDomainError("AMOUNT_TOO_SMALL", "Amount is too small to produce any output")
	}

	return Quote{
		Side:         side,
		MarketRate:   market,
		MarginPct:    margin,
		QuotedRate:   quoted,
		InputAmount:  amount,
		OutputAmount: output,
		BaseAmount:   amount.DivRound(from.Rate, RatePrecision),
	}, nil
}

func sideAndMargin(from, to CurrencyQuote) (Side, decimal.Decimal) {
	switch {
	case from.IsBase:
		return SideSell, to.SellMarginPct
	case to.IsBase:
		return SideBuy, from.BuyMarginPct
	default:
		return SideCross, from.BuyMarginPct.Add(to.SellMarginPct)
	}
}
