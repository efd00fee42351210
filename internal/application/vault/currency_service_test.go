package vault

import (
	"context"
	"testing"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCurrencyService_Create(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	tests := []struct {
		name       string
		req        CreateCurrencyRequest
		wantPlaces int
	}{
		{"fiat uses iso minor unit", CreateCurrencyRequest{Code: "jpy", Name: "Yen", Type: "FIAT"}, 0},
		{"fiat with cents", CreateCurrencyRequest{Code: "EUR", Name: "Euro", Type: "FIAT"}, 2},
		{"crypto defaults to eight", CreateCurrencyRequest{Code: "BTC", Name: "Bitcoin", Type: "CRYPTO"}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockCurrencyRepository)
			repo.On("ExistsByCode", ctx, tenantID, mock.Anything).Return(false, nil)
			repo.On("Save", ctx, mock.AnythingOfType("*vault.Currency")).Return(nil)

			resp, err := NewCurrencyService(repo).Create(ctx, tenantID, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlaces, resp.DecimalPlaces)
			assert.Equal(t, "MANUAL", resp.RateSource)
		})
	}

	t.Run("rate, margins and feed source", func(t *testing.T) {
		repo := new(MockCurrencyRepository)
		repo.On("ExistsByCode", ctx, tenantID, "GBP").Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*vault.Currency")).Return(nil)

		rate := decimal.RequireFromString("0.79")
		buy := decimal.RequireFromString("1.5")
		resp, err := NewCurrencyService(repo).Create(ctx, tenantID, CreateCurrencyRequest{
			Code: "GBP", Name: "Pound", Type: "FIAT", Symbol: "£", RateSource: "FEED",
			Rate: &rate, BuyMarginPct: &buy,
		})
		require.NoError(t, err)
		assert.True(t, resp.Rate.Equal(rate))
		assert.True(t, resp.BuyMarginPct.Equal(buy))
		assert.True(t, resp.SellMarginPct.IsZero())
		assert.Equal(t, "FEED", resp.RateSource)
		assert.NotNil(t, resp.RateUpdatedAt)
	})

	t.Run("duplicate code", func(t *testing.T) {
		repo := new(MockCurrencyRepository)
		repo.On("ExistsByCode", ctx, tenantID, "EUR").Return(true, nil)

		_, err := NewCurrencyService(repo).Create(ctx, tenantID, CreateCurrencyRequest{Code: "EUR", Name: "Euro", Type: "FIAT"})
		assert.Equal(t, "ALREADY_EXISTS", domainCode(err))
	})
}

func TestCurrencyService_BaseCurrency(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("ensure creates missing base", func(t *testing.T) {
		repo := new(MockCurrencyRepository)
		repo.On("FindBase", ctx, tenantID).Return(nil, shared.ErrNotFound)
		repo.On("Save", ctx, mock.MatchedBy(func(c *vault.Currency) bool {
			return c.IsBase && c.Code == "USD" && c.DecimalPlaces == 2 && c.Rate.Equal(decimal.NewFromInt(1))
		})).Return(nil)

		require.NoError(t, NewCurrencyService(repo).EnsureBaseCurrency(ctx, tenantID, "usd"))
		repo.AssertExpectations(t)
	})

	t.Run("ensure keeps existing base", func(t *testing.T) {
		base, err := vault.NewBaseCurrency(tenantID, "EUR", "Euro", 2)
		require.NoError(t, err)
		repo := new(MockCurrencyRepository)
		repo.On("FindBase", ctx, tenantID).Return(base, nil)

		require.NoError(t, NewCurrencyService(repo).EnsureBaseCurrency(ctx, tenantID, "USD"))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("replace refused once other currencies exist", func(t *testing.T) {
		base, err := vault.NewBaseCurrency(tenantID, "USD", "US Dollar", 2)
		require.NoError(t, err)
		repo := new(MockCurrencyRepository)
		repo.On("FindBase", ctx, tenantID).Return(base, nil)
		repo.On("CountForTenant", ctx, tenantID, mock.Anything).Return(int64(3), nil)

		err = NewCurrencyService(repo).ReplaceBaseCurrency(ctx, tenantID, "GBP")
		assert.Equal(t, "INVALID_STATE", domainCode(err))
	})

	t.Run("replace swaps lone base", func(t *testing.T) {
		base, err := vault.NewBaseCurrency(tenantID, "USD", "US Dollar", 2)
		require.NoError(t, err)
		repo := new(MockCurrencyRepository)
		repo.On("FindBase", ctx, tenantID).Return(base, nil)
		repo.On("CountForTenant", ctx, tenantID, mock.Anything).Return(int64(1), nil)
		repo.On("DeleteForTenant", ctx, tenantID, base.ID).Return(nil)
		repo.On("Save", ctx, mock.MatchedBy(func(c *vault.Currency) bool { return c.Code == "GBP" && c.IsBase })).Return(nil)

		require.NoError(t, NewCurrencyService(repo).ReplaceBaseCurrency(ctx, tenantID, "GBP"))
		repo.AssertExpectations(t)
	})

	t.Run("base cannot be deleted or re-rated", func(t *testing.T) {
		base, err := vault.NewBaseCurrency(tenantID, "USD", "US Dollar", 2)
		require.NoError(t, err)
		repo := new(MockCurrencyRepository)
		repo.On("FindByIDForTenant", ctx, tenantID, base.ID).Return(base, nil)
		svc := NewCurrencyService(repo)

		assert.Equal(t, "BASE_CURRENCY", domainCode(svc.Delete(ctx, tenantID, base.ID)))
		_, err = svc.SetRate(ctx, tenantID, base.ID, SetRateRequest{Rate: decimal.NewFromInt(2)})
		assert.Equal(t, "BASE_CURRENCY_RATE", domainCode(err))
	})
}

func TestCurrencyService_Denominations(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	c, err := vault.NewCurrency(tenantID, "EUR", "Euro", vault.CurrencyTypeFiat, 2)
	require.NoError(t, err)

	repo := new(MockCurrencyRepository)
	repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
	repo.On("Save", ctx, c).Return(nil)
	svc := NewCurrencyService(repo)

	_, err = svc.AddDenomination(ctx, tenantID, c.ID, AddDenominationRequest{Value: decimal.NewFromInt(5), Kind: "NOTE"})
	require.NoError(t, err)
	resp, err := svc.AddDenomination(ctx, tenantID, c.ID, AddDenominationRequest{Value: decimal.NewFromInt(50), Kind: "NOTE"})
	require.NoError(t, err)
	require.Len(t, resp.Denominations, 2)
	assert.Equal(t, "50", resp.Denominations[0].Label, "highest value first")

	_, err = svc.AddDenomination(ctx, tenantID, c.ID, AddDenominationRequest{Value: decimal.NewFromInt(5), Kind: "COIN"})
	assert.Equal(t, "DENOMINATION_EXISTS", domainCode(err))

	fifty := resp.Denominations[0].ID
	resp, err = svc.SetDenominationActive(ctx, tenantID, c.ID, fifty, false)
	require.NoError(t, err)
	assert.False(t, resp.Denominations[0].Active)

	resp, err = svc.RemoveDenomination(ctx, tenantID, c.ID, fifty)
	require.NoError(t, err)
	assert.Len(t, resp.Denominations, 1)
}

func TestCurrencyService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	c, err := vault.NewCurrency(tenantID, "CHF", "Franc", vault.CurrencyTypeFiat, 2)
	require.NoError(t, err)

	repo := new(MockCurrencyRepository)
	repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
	repo.On("Save", ctx, c).Return(nil)

	inactive := "INACTIVE"
	symbol := "Fr."
	resp, err := NewCurrencyService(repo).Update(ctx, tenantID, c.ID, UpdateCurrencyRequest{Status: &inactive, Symbol: &symbol})
	require.NoError(t, err)
	assert.Equal(t, "INACTIVE", resp.Status)
	assert.Equal(t, "Fr.", resp.Symbol)
	assert.Equal(t, "Franc", resp.Name)
}

func TestCurrencyService_SetMargins(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	c, err := vault.NewCurrency(tenantID, "CHF", "Franc", vault.CurrencyTypeFiat, 2)
	require.NoError(t, err)

	repo := new(MockCurrencyRepository)
	repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
	repo.On("Save", ctx, c).Return(nil)
	svc := NewCurrencyService(repo)
	svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	_, err = svc.SetMargins(ctx, tenantID, c.ID, SetMarginsRequest{BuyMarginPct: decimal.NewFromInt(100)})
	assert.Equal(t, "INVALID_MARGIN", domainCode(err))

	resp, err := svc.SetMargins(ctx, tenantID, c.ID, SetMarginsRequest{
		BuyMarginPct: decimal.RequireFromString("2"), SellMarginPct: decimal.RequireFromString("2.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2.5", resp.SellMarginPct.String())
}
