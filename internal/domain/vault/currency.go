package vault

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrencyType distinguishes fiat from crypto
type CurrencyType string

const (
	CurrencyTypeFiat   CurrencyType = "FIAT"
	CurrencyTypeCrypto CurrencyType = "CRYPTO"
)

// IsValid checks if the currency type is valid
func (t CurrencyType) IsValid() bool {
	return t == CurrencyTypeFiat || t == CurrencyTypeCrypto
}

// RateSource says where a currency's rate comes from
type RateSource string

const (
	RateSourceManual RateSource = "MANUAL"
	RateSourceFeed   RateSource = "FEED"
)

// IsValid checks if the rate source is valid
func (s RateSource) IsValid() bool {
	return s == RateSourceManual || s == RateSourceFeed
}

// CurrencyStatus represents whether the currency can be traded
type CurrencyStatus string

const (
	CurrencyStatusActive   CurrencyStatus = "ACTIVE"
	CurrencyStatusInactive CurrencyStatus = "INACTIVE"
)

// MaxDecimalPlaces bounds currency precision
const MaxDecimalPlaces = 8

var (
	fiatCodePattern   = regexp.MustCompile(`^[A-Z]{3}$`)
	cryptoCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)
	hundred           = decimal.NewFromInt(100)
)

// Currency is a currency an organization trades. Rate is expressed as units of
// this currency per one unit of the organization's base currency.
type Currency struct {
	shared.TenantAggregateRoot
	Code          string
	Name          string
	Symbol        string
	Type          CurrencyType
	DecimalPlaces int
	Rate          decimal.Decimal
	BuyMarginPct  decimal.Decimal
	SellMarginPct decimal.Decimal
	RateSource    RateSource
	RateUpdatedAt *time.Time
	IsBase        bool
	Status        CurrencyStatus
	Denominations []Denomination
}

// NewCurrency creates a currency with a rate of 1 and no margins.
// The rate must be set before the currency can be quoted.
func NewCurrency(tenantID uuid.UUID, code, name string, currencyType CurrencyType, decimalPlaces int) (*Currency, error) {
	if !currencyType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY_TYPE", "Currency type must be FIAT or CRYPTO")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := ValidateCurrencyCode(code, currencyType); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Currency name must be 1-100 characters")
	}
	if err := validateDecimalPlaces(decimalPlaces); err != nil {
		return nil, err
	}

	c := &Currency{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Type:                currencyType,
		DecimalPlaces:       decimalPlaces,
		Rate:                decimal.NewFromInt(1),
		BuyMarginPct:        decimal.Zero,
		SellMarginPct:       decimal.Zero,
		RateSource:          RateSourceManual,
		Status:              CurrencyStatusActive,
		Denominations:       make([]Denomination, 0),
	}
	c.AddDomainEvent(NewCurrencyCreatedEvent(c))
	return c, nil
}

// NewBaseCurrency creates the organization's base currency, whose rate is fixed at 1
func NewBaseCurrency(tenantID uuid.UUID, code, name string, decimalPlaces int) (*Currency, error) {
	c, err := NewCurrency(tenantID, code, name, CurrencyTypeFiat, decimalPlaces)
	if err != nil {
		return nil, err
	}
	c.IsBase = true
	return c, nil
}

// ValidateCurrencyCode checks the code format for the currency type
func ValidateCurrencyCode(code string, currencyType CurrencyType) error {
	switch currencyType {
	case CurrencyTypeFiat:
		if !fiatCodePattern.MatchString(code) {
			return shared.NewDomainError("INVALID_CURRENCY_CODE", "Fiat currency code must be a three-letter ISO 4217 code")
		}
	case CurrencyTypeCrypto:
		if !cryptoCodePattern.MatchString(code) {
			return shared.NewDomainError("INVALID_CURRENCY_CODE", "Crypto currency code must be 2-10 uppercase letters or digits")
		}
	default:
		return shared.NewDomainError("INVALID_CURRENCY_TYPE", "Currency type must be FIAT or CRYPTO")
	}
	return nil
}

// Update changes the display fields and precision
func (c *Currency) Update(name, symbol string, decimalPlaces int) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Currency name must be 1-100 characters")
	}
	if len(symbol) > 10 {
		return shared.NewDomainError("INVALID_SYMBOL", "Symbol cannot exceed 10 characters")
	}
	if err := validateDecimalPlaces(decimalPlaces); err != nil {
		return err
	}
	c.Name = name
	c.Symbol = symbol
	c.DecimalPlaces = decimalPlaces
	c.IncrementVersion()
	return nil
}

// SetRate sets a manual rate. The base currency only accepts 1.
func (c *Currency) SetRate(rate decimal.Decimal, at time.Time) error {
	if !rate.IsPositive() {
		return shared.NewDomainError("INVALID_RATE", "Rate must be positive")
	}
	if c.IsBase && !rate.Equal(decimal.NewFromInt(1)) {
		return shared.NewDomainError("BASE_CURRENCY_RATE", "Base currency rate is fixed at 1")
	}
	old := c.Rate
	c.Rate = rate
	c.RateUpdatedAt = &at
	c.IncrementVersion()
	c.AddDomainEvent(NewCurrencyRateChangedEvent(c, old))
	return nil
}

// ApplyFeedRate applies a rate from the FX feed. It returns false, without
// error, when the currency is not feed-driven or the rate did not change.
func (c *Currency) ApplyFeedRate(rate decimal.Decimal, at time.Time) (bool, error) {
	if c.RateSource != RateSourceFeed || c.IsBase {
		return false, nil
	}
	if c.Rate.Equal(rate) {
		c.RateUpdatedAt = &at
		return false, nil
	}
	if err := c.SetRate(rate, at); err != nil {
		return false, err
	}
	return true, nil
}

// SetRateSource switches between manual and feed rates
func (c *Currency) SetRateSource(source RateSource) error {
	if !source.IsValid() {
		return shared.NewDomainError("INVALID_RATE_SOURCE", "Rate source must be MANUAL or FEED")
	}
	if c.IsBase && source == RateSourceFeed {
		return shared.NewDomainError("BASE_CURRENCY_RATE", "Base currency rate is fixed at 1")
	}
	c.RateSource = source
	c.IncrementVersion()
	return nil
}

// SetMargins sets the buy and sell margin percentages, each in [0, 100)
func (c *Currency) SetMargins(buyPct, sellPct decimal.Decimal) error {
	for _, m := range []decimal.Decimal{buyPct, sellPct} {
		if m.IsNegative() || m.GreaterThanOrEqual(hundred) {
			return shared.NewDomainError("INVALID_MARGIN", "Margin must be at least 0 and below 100 percent")
		}
	}
	c.BuyMarginPct = buyPct
	c.SellMarginPct = sellPct
	c.IncrementVersion()
	return nil
}

// Activate allows the currency to be quoted
func (c *Currency) Activate() {
	if c.Status == CurrencyStatusActive {
		return
	}
	c.Status = CurrencyStatusActive
	c.IncrementVersion()
}

// Deactivate stops the currency from being quoted. The base currency cannot be deactivated.
func (c *Currency) Deactivate() error {
	if c.IsBase {
		return shared.NewDomainError("BASE_CURRENCY", "Base currency cannot be deactivated")
	}
	c.Status = CurrencyStatusInactive
	c.IncrementVersion()
	return nil
}

// IsActive returns true if the currency can be quoted
func (c *Currency) IsActive() bool {
	return c.Status == CurrencyStatusActive
}

// CanDelete returns an error if the currency must not be removed
func (c *Currency) CanDelete() error {
	if c.IsBase {
		return shared.NewDomainError("BASE_CURRENCY", "Base currency cannot be deleted")
	}
	return nil
}

// AddDenomination adds a note, coin or unit value. Values are unique per currency.
func (c *Currency) AddDenomination(value decimal.Decimal, label string, kind DenominationKind) (*Denomination, error) {
	d, err := NewDenomination(c.ID, value, label, kind)
	if err != nil {
		return nil, err
	}
	if !value.Equal(value.Truncate(int32(c.DecimalPlaces))) {
		return nil, shared.NewDomainError("INVALID_DENOMINATION", "Denomination has more decimal places than the currency")
	}
	for _, existing := range c.Denominations {
		if existing.Value.Equal(value) {
			return nil, shared.NewDomainError("DENOMINATION_EXISTS", "A denomination with this value already exists")
		}
	}
	c.Denominations = append(c.Denominations, *d)
	c.sortDenominations()
	c.IncrementVersion()
	return d, nil
}

// RemoveDenomination removes a denomination by ID
func (c *Currency) RemoveDenomination(id uuid.UUID) error {
	idx := c.denominationIndex(id)
	if idx < 0 {
		return shared.NewDomainError("DENOMINATION_NOT_FOUND", "Denomination not found")
	}
	c.Denominations = slices.Delete(c.Denominations, idx, idx+1)
	c.IncrementVersion()
	return nil
}

// SetDenominationActive toggles whether a denomination is counted in new float stacks
func (c *Currency) SetDenominationActive(id uuid.UUID, active bool) error {
	idx := c.denominationIndex(id)
	if idx < 0 {
		return shared.NewDomainError("DENOMINATION_NOT_FOUND", "Denomination not found")
	}
	c.Denominations[idx].Active = active
	c.IncrementVersion()
	return nil
}

// ActiveDenominations returns active denominations, highest value first
func (c *Currency) ActiveDenominations() []Denomination {
	out := make([]Denomination, 0, len(c.Denominations))
	for _, d := range c.Denominations {
		if d.Active {
			out = append(out, d)
		}
	}
	return out
}

func (c *Currency) denominationIndex(id uuid.UUID) int {
	return slices.IndexFunc(c.Denominations, func(d Denomination) bool { return d.ID == id })
}

func (c *Currency) sortDenominations() {
	slices.SortFunc(c.Denominations, func(a, b Denomination) int {
		return b.Value.Cmp(a.Value)
	})
}

func validateDecimalPlaces(places int) error {
	if places < 0 || places > MaxDecimalPlaces {
		return shared.NewDomainError("INVALID_DECIMAL_PLACES", "Decimal places must be between 0 and 8")
	}
	return nil
}
