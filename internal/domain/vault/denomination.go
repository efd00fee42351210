package vault

import (
	"strings"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DenominationKind is the physical form of a denomination
type DenominationKind string

const (
	DenominationKindNote DenominationKind = "NOTE"
	DenominationKindCoin DenominationKind = "COIN"
	DenominationKindUnit DenominationKind = "UNIT" // crypto or uncounted units
)

// IsValid checks if the kind is valid
func (k DenominationKind) IsValid() bool {
	switch k {
	case DenominationKindNote, DenominationKindCoin, DenominationKindUnit:
		return true
	}
	return false
}

// Denomination is a discrete value counted in a float stack
type Denomination struct {
	shared.BaseEntity
	CurrencyID uuid.UUID
	Value      decimal.Decimal
	Label      string
	Kind       DenominationKind
	Active     bool
}

// NewDenomination creates an active denomination
func NewDenomination(currencyID uuid.UUID, value decimal.Decimal, label string, kind DenominationKind) (*Denomination, error) {
	if !value.IsPositive() {
		return nil, shared.NewDomainError("INVALID_DENOMINATION", "Denomination value must be positive")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_DENOMINATION_KIND", "Kind must be NOTE, COIN or UNIT")
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = value.String()
	}
	if len(label) > 50 {
		return nil, shared.NewDomainError("INVALID_DENOMINATION", "Label cannot exceed 50 characters")
	}
	return &Denomination{
		BaseEntity: shared.NewBaseEntity(),
		CurrencyID: currencyID,
		Value:      value,
		Label:      label,
		Kind:       kind,
		Active:     true,
	}, nil
}
