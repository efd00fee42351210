package vault

import (
	"context"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
	"golang.org/x/text/currency"
)

// CurrencyService handles currency and denomination operations
type CurrencyService struct {
	currencyRepo vault.CurrencyRepository
	publisher    shared.EventPublisher
	now          func() time.Time
}

// NewCurrencyService creates a new CurrencyService
func NewCurrencyService(currencyRepo vault.CurrencyRepository) *CurrencyService {
	return &CurrencyService{
		currencyRepo: currencyRepo,
		now:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *CurrencyService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Create adds a currency to the organization
func (s *CurrencyService) Create(ctx context.Context, tenantID uuid.UUID, req CreateCurrencyRequest) (*CurrencyResponse, error) {
	currencyType := vault.CurrencyType(req.Type)
	places := defaultDecimalPlaces(req.Code, currencyType)
	if req.DecimalPlaces != nil {
		places = *req.DecimalPlaces
	}

	c, err := vault.NewCurrency(tenantID, req.Code, req.Name, currencyType, places)
	if err != nil {
		return nil, err
	}

	exists, err := s.currencyRepo.ExistsByCode(ctx, tenantID, c.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "Currency with this code already exists")
	}

	if req.Symbol != "" {
		if err := c.Update(c.Name, req.Symbol, c.DecimalPlaces); err != nil {
			return nil, err
		}
	}
	if req.RateSource != "" {
		if err := c.SetRateSource(vault.RateSource(req.RateSource)); err != nil {
			return nil, err
		}
	}
	if req.Rate != nil {
		if err := c.SetRate(*req.Rate, s.now()); err != nil {
			return nil, err
		}
	}
	if req.BuyMarginPct != nil || req.SellMarginPct != nil {
		buy, sell := c.BuyMarginPct, c.SellMarginPct
		if req.BuyMarginPct != nil {
			buy = *req.BuyMarginPct
		}
		if req.SellMarginPct != nil {
			sell = *req.SellMarginPct
		}
		if err := c.SetMargins(buy, sell); err != nil {
			return nil, err
		}
	}

	if err := s.currencyRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, c); err != nil {
		return nil, err
	}
	resp := ToCurrencyResponse(c)
	return &resp, nil
}

// GetByID retrieves a currency by ID
func (s *CurrencyService) GetByID(ctx context.Context, tenantID, currencyID uuid.UUID) (*CurrencyResponse, error) {
	c, err := s.currencyRepo.FindByIDForTenant(ctx, tenantID, currencyID)
	if err != nil {
		return nil, err
	}
	resp := ToCurrencyResponse(c)
	return &resp, nil
}

// GetByCode retrieves a currency by its code
func (s *CurrencyService) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*CurrencyResponse, error) {
	c, err := s.currencyRepo.FindByCode(ctx, tenantID, normalizeCode(code))
	if err != nil {
		return nil, err
	}
	resp := ToCurrencyResponse(c)
	return &resp, nil
}

// List retrieves currencies with filtering and pagination
func (s *CurrencyService) List(ctx context.Context, tenantID uuid.UUID, filter CurrencyListFilter) ([]CurrencyResponse, int64, error) {
	domainFilter := toDomainFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, "code", "asc")
	domainFilter.Search = filter.Search
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Type != "" {
		domainFilter.Filters["type"] = filter.Type
	}
	if filter.RateSource != "" {
		domainFilter.Filters["rate_source"] = filter.RateSource
	}

	currencies, err := s.currencyRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.currencyRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToCurrencyResponses(currencies), total, nil
}

// Update applies a partial update
func (s *CurrencyService) Update(ctx context.Context, tenantID, currencyID uuid.UUID, req UpdateCurrencyRequest) (*CurrencyResponse, error) {
	c, err := s.currencyRepo.FindByIDForTenant(ctx, tenantID, currencyID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Symbol != nil || req.DecimalPlaces != nil {
		name, symbol, places := c.Name, c.Symbol, c.DecimalPlaces
		if req.Name != nil {
			name = *req.Name
		}
		if req.Symbol != nil {
			symbol = *req.Symbol
		}
		if req.DecimalPlaces != nil {
			places = *req.DecimalPlaces
		}
		if err := c.Update(name, symbol, places); err != nil {
			return nil, err
		}
	}
	if req.RateSource != nil {
		if err := c.SetRateSource(vault.RateSource(*req.RateSource)); err != nil {
			return nil, err
		}
	}
	if req.Status != nil {
		switch vault.CurrencyStatus(*req.Status) {
		case vault.CurrencyStatusActive:
			c.Activate()
		case vault.CurrencyStatusInactive:
			if err := c.Deactivate(); err != nil {
				return nil, err
			}
		default:
			return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Status must be ACTIVE or INACTIVE")
		}
	}

	return s.save(ctx, c)
}

// SetRate sets a manual rate
func (s *CurrencyService) SetRate(ctx context.Context, tenantID, currencyID uuid.UUID, req SetRateRequest) (*CurrencyResponse, error) {
	c, err := s.currencyRepo.FindByIDForTenant(ctx, tenantID, currencyID)
	if err != nil {
		return nil, err
	}
	if err := c.SetRate(req.Rate, s.now()); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// SetMargins sets buy and sell margins
func (s *CurrencyService) SetMargins(ctx context.Context, tenantID, currencyID uuid.UUID, req SetMarginsRequest) (*CurrencyResponse, error) {
	c, err := s.currencyRepo.FindByIDForTenant(ctx, tenantID, currencyID)
	if err != nil {
		return nil, err
	}
	if err := c.SetMargins(req.BuyMarginPct, req.SellMarginPct); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// Delete removes a currency. The base currency cannot be deleted.
func (s *CurrencyService) Delete(ctx context.Context, tenantID, currencyID uuid.UUID) error {
	c, err := s.currencyRepo.FindByIDForTenant(ctx, tenantID, currencyID)
	if err != nil {
		return err
	}
	if err := c.CanDelete(); err != nil {
		return err
	}
	return s.currencyRepo.DeleteForTenant(ctx, tenantID, currencyID)
}

// AddDenomination adds a denomination to a currency
func (s *CurrencyService) AddDenomination(ctx context.Context, tenantID, currencyID uuid.UUID, req AddDenominationRequest) (*CurrencyResponse, error) {
	c, err := s.currencyRepo.FindByIDForTenant(ctx, tenantID, currencyID)
	if err != nil {
		return nil, err
	}
	if _, err := c.AddDenomination(req.Value, req.Label, vault.DenominationKind(req.Kind)); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// RemoveDenomination removes a denomination from a currency
func (s *CurrencyService) RemoveDenomination(ctx context.Context, tenantID, currencyID, denominationID uuid.UUID) (*CurrencyResponse, error) {
	c, err := s.currencyRepo.FindByIDForTenant(ctx, tenantID, currencyID)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveDenomination(denominationID); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// SetDenominationActive toggles a denomination
func (s *CurrencyService) SetDenominationActive(ctx context.Context, tenantID, currencyID, denominationID uuid.UUID, active bool) (*CurrencyResponse, error) {
	c, err := s.currencyRepo.FindByIDForTenant(ctx, tenantID, currencyID)
	if err != nil {
		return nil, err
	}
	if err := c.SetDenominationActive(denominationID, active); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// EnsureBaseCurrency creates the organization's base currency if it has none
func (s *CurrencyService) EnsureBaseCurrency(ctx context.Context, tenantID uuid.UUID, code string) error {
	existing, err := s.currencyRepo.FindBase(ctx, tenantID)
	if err != nil && !isNotFound(err) {
		return err
	}
	if existing != nil {
		return nil
	}
	return s.createBase(ctx, tenantID, code)
}

// ReplaceBaseCurrency swaps the base currency. Every rate is quoted against the base,
// so this is only allowed while the base is the organization's only currency.
func (s *CurrencyService) ReplaceBaseCurrency(ctx context.Context, tenantID uuid.UUID, code string) error {
	code = normalizeCode(code)
	existing, err := s.currencyRepo.FindBase(ctx, tenantID)
	if err != nil && !isNotFound(err) {
		return err
	}
	if existing != nil && existing.Code == code {
		return nil
	}

	count, err := s.currencyRepo.CountForTenant(ctx, tenantID, shared.DefaultFilter())
	if err != nil {
		return err
	}
	allowed := int64(0)
	if existing != nil {
		allowed = 1
	}
	if count > allowed {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Base currency can only be changed before other currencies are added")
	}

	if existing != nil {
		if err := s.currencyRepo.DeleteForTenant(ctx, tenantID, existing.ID); err != nil {
			return err
		}
	}
	return s.createBase(ctx, tenantID, code)
}

func (s *CurrencyService) createBase(ctx context.Context, tenantID uuid.UUID, code string) error {
	code = normalizeCode(code)
	unit, err := currency.ParseISO(code)
	if err != nil {
		return shared.NewDomainError("INVALID_CURRENCY_CODE", "Base currency must be an ISO 4217 code")
	}
	places, _ := currency.Standard.Rounding(unit)

	c, err := vault.NewBaseCurrency(tenantID, code, code, places)
	if err != nil {
		return err
	}
	if err := s.currencyRepo.Save(ctx, c); err != nil {
		return err
	}
	return shared.PublishAndClear(ctx, s.publisher, c)
}

func (s *CurrencyService) save(ctx context.Context, c *vault.Currency) (*CurrencyResponse, error) {
	if err := s.currencyRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, c); err != nil {
		return nil, err
	}
	resp := ToCurrencyResponse(c)
	return &resp, nil
}

// defaultDecimalPlaces uses the ISO 4217 minor unit for fiat and 8 for crypto
func defaultDecimalPlaces(code string, t vault.CurrencyType) int {
	if t == vault.CurrencyTypeCrypto {
		return vault.MaxDecimalPlaces
	}
	unit, err := currency.ParseISO(normalizeCode(code))
	if err != nil {
		return 2
	}
	places, _ := currency.Standard.Rounding(unit)
	return places
}

func isNotFound(err error) bool {
	de, ok := shared.AsDomainError(err)
	return ok && de.Code == shared.ErrNotFound.Code
}
