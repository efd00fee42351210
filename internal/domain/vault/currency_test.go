package vault

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCurrency(t *testing.T) *Currency {
	t.Helper()
	c, err := NewCurrency(uuid.New(), "eur", "Euro", CurrencyTypeFiat, 2)
	require.NoError(t, err)
	return c
}

func TestNewCurrency(t *testing.T) {
	tenantID := uuid.New()

	t.Run("normalizes code", func(t *testing.T) {
		c, err := NewCurrency(tenantID, " eur ", "Euro", CurrencyTypeFiat, 2)
		require.NoError(t, err)
		assert.Equal(t, "EUR", c.Code)
		assert.True(t, c.Rate.Equal(decimal.NewFromInt(1)))
		assert.Equal(t, RateSourceManual, c.RateSource)
		assert.True(t, c.IsActive())
		assert.Len(t, c.GetDomainEvents(), 1)
	})

	t.Run("crypto codes allow digits and longer tickers", func(t *testing.T) {
		c, err := NewCurrency(tenantID, "USDT", "Tether", CurrencyTypeCrypto, 6)
		require.NoError(t, err)
		assert.Equal(t, "USDT", c.Code)
	})

	t.Run("fiat code must be three letters", func(t *testing.T) {
		_, err := NewCurrency(tenantID, "USDT", "Tether", CurrencyTypeFiat, 2)
		assert.Error(t, err)
	})

	t.Run("decimal places bounded", func(t *testing.T) {
		_, err := NewCurrency(tenantID, "BTC", "Bitcoin", CurrencyTypeCrypto, 9)
		assert.Error(t, err)
	})
}

func TestCurrency_SetRate(t *testing.T) {
	c := newTestCurrency(t)
	c.ClearDomainEvents()
	now := time.Now()

	require.NoError(t, c.SetRate(decimal.RequireFromString("0.92"), now))
	assert.True(t, c.Rate.Equal(decimal.RequireFromString("0.92")))
	require.NotNil(t, c.RateUpdatedAt)

	events := c.GetDomainEvents()
	require.Len(t, events, 1)
	ev := events[0].(*CurrencyRateChangedEvent)
	assert.True(t, ev.OldRate.Equal(decimal.NewFromInt(1)))

	assert.Error(t, c.SetRate(decimal.Zero, now))
	assert.Error(t, c.SetRate(decimal.NewFromInt(-1), now))
}

func TestCurrency_BaseCurrencyRules(t *testing.T) {
	base, err := NewBaseCurrency(uuid.New(), "USD", "US Dollar", 2)
	require.NoError(t, err)

	assert.Error(t, base.SetRate(decimal.NewFromInt(2), time.Now()))
	assert.NoError(t, base.SetRate(decimal.NewFromInt(1), time.Now()))
	assert.Error(t, base.SetRateSource(RateSourceFeed))
	assert.Error(t, base.Deactivate())
	assert.Error(t, base.CanDelete())

	applied, err := base.ApplyFeedRate(decimal.NewFromInt(3), time.Now())
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestCurrency_ApplyFeedRate(t *testing.T) {
	c := newTestCurrency(t)

	applied, err := c.ApplyFeedRate(decimal.RequireFromString("0.9"), time.Now())
	require.NoError(t, err)
	assert.False(t, applied, "manual currencies ignore the feed")

	require.NoError(t, c.SetRateSource(RateSourceFeed))
	applied, err = c.ApplyFeedRate(decimal.RequireFromString("0.9"), time.Now())
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = c.ApplyFeedRate(decimal.RequireFromString("0.90"), time.Now())
	require.NoError(t, err)
	assert.False(t, applied, "unchanged rate is not an update")
}

func TestCurrency_SetMargins(t *testing.T) {
	c := newTestCurrency(t)

	require.NoError(t, c.SetMargins(decimal.RequireFromString("1.5"), decimal.RequireFromString("2")))
	assert.True(t, c.BuyMarginPct.Equal(decimal.RequireFromString("1.5")))

	assert.Error(t, c.SetMargins(decimal.NewFromInt(-1), decimal.Zero))
	assert.Error(t, c.SetMargins(decimal.Zero, decimal.NewFromInt(100)))
}

func TestCurrency_Denominations(t *testing.T) {
	c := newTestCurrency(t)

	five, err := c.AddDenomination(decimal.NewFromInt(5), "", DenominationKindNote)
	require.NoError(t, err)
	assert.Equal(t, "5", five.Label)

	_, err = c.AddDenomination(decimal.NewFromInt(50), "50 note", DenominationKindNote)
	require.NoError(t, err)
	cent, err := c.AddDenomination(decimal.RequireFromString("0.01"), "1c", DenominationKindCoin)
	require.NoError(t, err)

	t.Run("sorted highest first", func(t *testing.T) {
		require.Len(t, c.Denominations, 3)
		assert.True(t, c.Denominations[0].Value.Equal(decimal.NewFromInt(50)))
		assert.True(t, c.Denominations[2].Value.Equal(decimal.RequireFromString("0.01")))
	})

	t.Run("duplicate value rejected", func(t *testing.T) {
		_, err := c.AddDenomination(decimal.RequireFromString("5.00"), "", DenominationKindNote)
		assert.Error(t, err)
	})

	t.Run("precision beyond currency rejected", func(t *testing.T) {
		_, err := c.AddDenomination(decimal.RequireFromString("0.005"), "", DenominationKindCoin)
		assert.Error(t, err)
	})

	t.Run("inactive excluded from active list", func(t *testing.T) {
		require.NoError(t, c.SetDenominationActive(cent.ID, false))
		assert.Len(t, c.ActiveDenominations(), 2)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, c.RemoveDenomination(five.ID))
		assert.Len(t, c.Denominations, 2)
		assert.Error(t, c.RemoveDenomination(five.ID))
	})
}
