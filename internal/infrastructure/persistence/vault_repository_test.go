package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormVaultRepository_AccessList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormVaultRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	alice, bob := uuid.New(), uuid.New()

	till, err := vault.NewRepository(tenantID, "till-1", "Front till", vault.RepositoryTypeCash)
	require.NoError(t, err)
	require.NoError(t, till.Authorize(alice))
	require.NoError(t, till.Authorize(bob))
	require.NoError(t, repo.Save(ctx, till))

	t.Run("access list is loaded with the repository", func(t *testing.T) {
		found, err := repo.FindByKey(ctx, tenantID, "TILL-1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{alice, bob}, found.AuthorizedUsers)
		assert.True(t, found.IsAuthorized(alice))
	})

	t.Run("revoking rewrites the join rows", func(t *testing.T) {
		found, err := repo.FindByIDForTenant(ctx, tenantID, till.ID)
		require.NoError(t, err)
		require.NoError(t, found.Revoke(bob))
		require.NoError(t, repo.Save(ctx, found))

		reloaded, err := repo.FindByIDForTenant(ctx, tenantID, till.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{alice}, reloaded.AuthorizedUsers)

		forBob, err := repo.FindAuthorizedForUser(ctx, tenantID, bob)
		require.NoError(t, err)
		assert.Empty(t, forBob)

		forAlice, err := repo.FindAuthorizedForUser(ctx, tenantID, alice)
		require.NoError(t, err)
		require.Len(t, forAlice, 1)
		assert.Equal(t, till.ID, forAlice[0].ID)
	})

	t.Run("other tenants cannot see the repository", func(t *testing.T) {
		_, err := repo.FindByIDForTenant(ctx, uuid.New(), till.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		exists, err := repo.ExistsByKey(ctx, uuid.New(), "TILL-1")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("list filters and counts", func(t *testing.T) {
		wallet, err := vault.NewRepository(tenantID, "BTC_WALLET", "Cold wallet", vault.RepositoryTypeCrypto)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, wallet))

		filter := shared.DefaultFilter()
		filter.Filters["type"] = string(vault.RepositoryTypeCrypto)
		list, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "BTC_WALLET", list[0].Key)

		filter = shared.DefaultFilter()
		filter.Search = "till"
		count, err := repo.CountForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("delete removes the access list", func(t *testing.T) {
		require.NoError(t, repo.DeleteForTenant(ctx, tenantID, till.ID))
		assert.ErrorIs(t, repo.DeleteForTenant(ctx, tenantID, till.ID), shared.ErrNotFound)

		forAlice, err := repo.FindAuthorizedForUser(ctx, tenantID, alice)
		require.NoError(t, err)
		assert.Empty(t, forAlice)
	})
}

func TestGormCurrencyRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCurrencyRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	usd, err := vault.NewBaseCurrency(tenantID, "USD", "US Dollar", 2)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, usd))

	eur, err := vault.NewCurrency(tenantID, "eur", "Euro", vault.CurrencyTypeFiat, 2)
	require.NoError(t, err)
	require.NoError(t, eur.SetRate(decimal.RequireFromString("0.92"), time.Now()))
	require.NoError(t, eur.SetRateSource(vault.RateSourceFeed))
	fifty, err := eur.AddDenomination(decimal.NewFromInt(50), "50", vault.DenominationKindNote)
	require.NoError(t, err)
	_, err = eur.AddDenomination(decimal.NewFromInt(10), "10", vault.DenominationKindNote)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, eur))

	t.Run("loads denominations highest value first", func(t *testing.T) {
		found, err := repo.FindByCode(ctx, tenantID, "EUR")
		require.NoError(t, err)
		require.Len(t, found.Denominations, 2)
		assert.True(t, found.Denominations[0].Value.Equal(decimal.NewFromInt(50)))
		assert.True(t, found.Rate.Equal(decimal.RequireFromString("0.92")))
	})

	t.Run("removed denominations are deleted", func(t *testing.T) {
		found, err := repo.FindByIDForTenant(ctx, tenantID, eur.ID)
		require.NoError(t, err)
		require.NoError(t, found.RemoveDenomination(fifty.ID))
		require.NoError(t, repo.Save(ctx, found))

		reloaded, err := repo.FindByIDForTenant(ctx, tenantID, eur.ID)
		require.NoError(t, err)
		require.Len(t, reloaded.Denominations, 1)
		assert.True(t, reloaded.Denominations[0].Value.Equal(decimal.NewFromInt(10)))
	})

	t.Run("base and rate source lookups", func(t *testing.T) {
		base, err := repo.FindBase(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, "USD", base.Code)

		feed, err := repo.FindByRateSource(ctx, tenantID, vault.RateSourceFeed)
		require.NoError(t, err)
		require.Len(t, feed, 1)
		assert.Equal(t, "EUR", feed[0].Code)

		exists, err := repo.ExistsByCode(ctx, tenantID, "usd")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("update rates writes only rate columns", func(t *testing.T) {
		feed, err := repo.FindByRateSource(ctx, tenantID, vault.RateSourceFeed)
		require.NoError(t, err)
		at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		changed, err := feed[0].ApplyFeedRate(decimal.RequireFromString("0.95"), at)
		require.NoError(t, err)
		require.True(t, changed)

		require.NoError(t, repo.UpdateRates(ctx, tenantID, feed, at))

		reloaded, err := repo.FindByCode(ctx, tenantID, "EUR")
		require.NoError(t, err)
		assert.True(t, reloaded.Rate.Equal(decimal.RequireFromString("0.95")))
		require.NotNil(t, reloaded.RateUpdatedAt)
		assert.Len(t, reloaded.Denominations, 1)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteForTenant(ctx, tenantID, eur.ID))
		_, err := repo.FindByCode(ctx, tenantID, "EUR")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		count, err := repo.CountForTenant(ctx, tenantID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
