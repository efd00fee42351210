package vault

import (
	"time"

	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Repository DTOs
// =============================================================================

// CreateRepositoryRequest represents a request to create a repository
type CreateRepositoryRequest struct {
	Key         string     `json:"key" binding:"required,repo_key"`
	Name        string     `json:"name" binding:"required,min=1,max=100"`
	Type        string     `json:"type" binding:"required,oneof=CASH CRYPTO"`
	Description string     `json:"description" binding:"max=500"`
	CreatedBy   *uuid.UUID `json:"-"`
}

// UpdateRepositoryRequest represents a request to update a repository
type UpdateRepositoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// AuthorizeUserRequest grants a member access to a repository
type AuthorizeUserRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// RepositoryListFilter represents filter options for repository list
type RepositoryListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	Type     string `form:"type" binding:"omitempty,oneof=CASH CRYPTO"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=key name created_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// RepositoryResponse represents a repository in API responses
type RepositoryResponse struct {
	ID              uuid.UUID   `json:"id"`
	TenantID        uuid.UUID   `json:"tenant_id"`
	Key             string      `json:"key"`
	Name            string      `json:"name"`
	Type            string      `json:"type"`
	Description     string      `json:"description"`
	Status          string      `json:"status"`
	AuthorizedUsers []uuid.UUID `json:"authorized_users"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Version         int         `json:"version"`
}

// AuthorizedUserResponse is a user on a repository's access list
type AuthorizedUserResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

// ToRepositoryResponse converts a domain Repository to RepositoryResponse
func ToRepositoryResponse(r *vault.Repository) RepositoryResponse {
	users := make([]uuid.UUID, len(r.AuthorizedUsers))
	copy(users, r.AuthorizedUsers)
	return RepositoryResponse{
		ID:              r.ID,
		TenantID:        r.TenantID,
		Key:             r.Key,
		Name:            r.Name,
		Type:            string(r.Type),
		Description:     r.Description,
		Status:          string(r.Status),
		AuthorizedUsers: users,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Version:         r.Version,
	}
}

// ToRepositoryResponses converts a slice of repositories
func ToRepositoryResponses(repos []vault.Repository) []RepositoryResponse {
	out := make([]RepositoryResponse, len(repos))
	for i := range repos {
		out[i] = ToRepositoryResponse(&repos[i])
	}
	return out
}

// =============================================================================
// Currency DTOs
// =============================================================================

// CreateCurrencyRequest represents a request to add a currency
type CreateCurrencyRequest struct {
	Code          string           `json:"code" binding:"required,currency_code"`
	Name          string           `json:"name" binding:"required,min=1,max=100"`
	Symbol        string           `json:"symbol" binding:"max=10"`
	Type          string           `json:"type" binding:"required,oneof=FIAT CRYPTO"`
	DecimalPlaces *int             `json:"decimal_places" binding:"omitempty,min=0,max=8"`
	Rate          *decimal.Decimal `json:"rate"`
	RateSource    string           `json:"rate_source" binding:"omitempty,oneof=MANUAL FEED"`
	BuyMarginPct  *decimal.Decimal `json:"buy_margin_pct"`
	SellMarginPct *decimal.Decimal `json:"sell_margin_pct"`
}

// UpdateCurrencyRequest represents a partial currency update
type UpdateCurrencyRequest struct {
	Name          *string `json:"name" binding:"omitempty,min=1,max=100"`
	Symbol        *string `json:"symbol" binding:"omitempty,max=10"`
	DecimalPlaces *int    `json:"decimal_places" binding:"omitempty,min=0,max=8"`
	RateSource    *string `json:"rate_source" binding:"omitempty,oneof=MANUAL FEED"`
	Status        *string `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

// SetRateRequest sets a manual rate
type SetRateRequest struct {
	Rate decimal.Decimal `json:"rate" binding:"required"`
}

// SetMarginsRequest sets buy and sell margins in percent
type SetMarginsRequest struct {
	BuyMarginPct  decimal.Decimal `json:"buy_margin_pct"`
	SellMarginPct decimal.Decimal `json:"sell_margin_pct"`
}

// AddDenominationRequest adds a note, coin or unit value
type AddDenominationRequest struct {
	Value decimal.Decimal `json:"value" binding:"required"`
	Label string          `json:"label" binding:"max=50"`
	Kind  string          `json:"kind" binding:"required,oneof=NOTE COIN UNIT"`
}

// SetDenominationActiveRequest toggles a denomination
type SetDenominationActiveRequest struct {
	Active bool `json:"active"`
}

// CurrencyListFilter represents filter options for currency list
type CurrencyListFilter struct {
	Search     string `form:"search"`
	Status     string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	Type       string `form:"type" binding:"omitempty,oneof=FIAT CRYPTO"`
	RateSource string `form:"rate_source" binding:"omitempty,oneof=MANUAL FEED"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=code name created_at"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// DenominationResponse represents a denomination in API responses
type DenominationResponse struct {
	ID     uuid.UUID       `json:"id"`
	Value  decimal.Decimal `json:"value"`
	Label  string          `json:"label"`
	Kind   string          `json:"kind"`
	Active bool            `json:"active"`
}

// CurrencyResponse represents a currency in API responses
type CurrencyResponse struct {
	ID            uuid.UUID              `json:"id"`
	TenantID      uuid.UUID              `json:"tenant_id"`
	Code          string                 `json:"code"`
	Name          string                 `json:"name"`
	Symbol        string                 `json:"symbol"`
	Type          string                 `json:"type"`
	DecimalPlaces int                    `json:"decimal_places"`
	Rate          decimal.Decimal        `json:"rate"`
	BuyMarginPct  decimal.Decimal        `json:"buy_margin_pct"`
	SellMarginPct decimal.Decimal        `json:"sell_margin_pct"`
	RateSource    string                 `json:"rate_source"`
	RateUpdatedAt *time.Time             `json:"rate_updated_at,omitempty"`
	IsBase        bool                   `json:"is_base"`
	Status        string                 `json:"status"`
	Denominations []DenominationResponse `json:"denominations"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	Version       int                    `json:"version"`
}

// ToCurrencyResponse converts a domain Currency to CurrencyResponse
func ToCurrencyResponse(c *vault.Currency) CurrencyResponse {
	denoms := make([]DenominationResponse, len(c.Denominations))
	for i, d := range c.Denominations {
		denoms[i] = DenominationResponse{
			ID:     d.ID,
			Value:  d.Value,
			Label:  d.Label,
			Kind:   string(d.Kind),
			Active: d.Active,
		}
	}
	return CurrencyResponse{
		ID:            c.ID,
		TenantID:      c.TenantID,
		Code:          c.Code,
		Name:          c.Name,
		Symbol:        c.Symbol,
		Type:          string(c.Type),
		DecimalPlaces: c.DecimalPlaces,
		Rate:          c.Rate,
		BuyMarginPct:  c.BuyMarginPct,
		SellMarginPct: c.SellMarginPct,
		RateSource:    string(c.RateSource),
		RateUpdatedAt: c.RateUpdatedAt,
		IsBase:        c.IsBase,
		Status:        string(c.Status),
		Denominations: denoms,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		Version:       c.Version,
	}
}

// ToCurrencyResponses converts a slice of currencies
func ToCurrencyResponses(currencies []vault.Currency) []CurrencyResponse {
	out := make([]CurrencyResponse, len(currencies))
	for i := range currencies {
		out[i] = ToCurrencyResponse(&currencies[i])
	}
	return out
}

// =============================================================================
// Rate DTOs
// =============================================================================

// RefreshResult summarizes a rate refresh
type RefreshResult struct {
	Base      string    `json:"base"`
	Updated   []string  `json:"updated"`
	Unchanged []string  `json:"unchanged"`
	Missing   []string  `json:"missing"`
	FetchedAt time.Time `json:"fetched_at"`
}
