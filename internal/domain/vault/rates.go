package vault

import (
	"context"
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// rebaseScale matches the stored rate precision
const rebaseScale = 12

// RateTable holds quotes of other currencies against one base: units of code per 1 unit of Base.
type RateTable struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetched_at"`
}

// Rate looks up a code, treating the base itself as 1
func (t RateTable) Rate(code string) (decimal.Decimal, bool) {
	code = strings.ToUpper(code)
	if code == strings.ToUpper(t.Base) {
		return decimal.NewFromInt(1), true
	}
	r, ok := t.Rates[code]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

// IsQuotedIn reports whether the table's rates are per 1 unit of base
func (t RateTable) IsQuotedIn(base string) bool {
	return strings.EqualFold(strings.TrimSpace(t.Base), strings.TrimSpace(base))
}

// Rebase re-expresses the table against base by dividing through base's rate.
// The old base joins the table; base itself drops out of Rates.
func (t RateTable) Rebase(base string) (RateTable, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if t.IsQuotedIn(base) {
		return t, nil
	}
	if strings.TrimSpace(t.Base) == "" {
		return RateTable{}, shared.NewDomainError(shared.ErrExternalService.Code, "Rate table has no base currency")
	}
	pivot, ok := t.Rate(base)
	if !ok {
		return RateTable{}, shared.NewDomainError(shared.ErrExternalService.Code,
			"Rates quoted in "+strings.ToUpper(t.Base)+" have no rate for "+base)
	}

	out := RateTable{
		Base:      base,
		Rates:     make(map[string]decimal.Decimal, len(t.Rates)),
		FetchedAt: t.FetchedAt,
	}
	out.Rates[strings.ToUpper(t.Base)] = decimal.NewFromInt(1).DivRound(pivot, rebaseScale)
	for code, r := range t.Rates {
		code = strings.ToUpper(code)
		if code == base || !r.IsPositive() {
			continue
		}
		out.Rates[code] = r.DivRound(pivot, rebaseScale)
	}
	return out, nil
}

// FXRateProvider fetches the latest rates for a base currency
type FXRateProvider interface {
	Latest(ctx context.Context, base string) (RateTable, error)
}
