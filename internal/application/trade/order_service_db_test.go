package trade

import (
	"context"
	"testing"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/trade"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/fxoffice/backend/internal/infrastructure/persistence"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTradeDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.CxSessionModel{},
		&models.FloatStackModel{},
		&models.FloatEntryModel{},
		&models.OrderModel{},
	))
	return db
}

// cancellingOrders cancels the stored order right after handing out a copy,
// as a second till cancelling the same quote would
type cancellingOrders struct {
	*persistence.GormOrderRepository
	cancelNext bool
	now        time.Time
}

func (r *cancellingOrders) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.Order, error) {
	order, err := r.GormOrderRepository.FindByIDForTenant(ctx, tenantID, id)
	if err != nil || !r.cancelNext {
		return order, err
	}
	r.cancelNext = false

	other, err := r.GormOrderRepository.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := other.Cancel("customer left", r.now); err != nil {
		return nil, err
	}
	if err := r.GormOrderRepository.Save(ctx, other); err != nil {
		return nil, err
	}
	return order, nil
}

func TestOrderService_CompleteOrder_IsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	db := openTradeDB(t)

	sessions := persistence.NewGormSessionRepository(db)
	require.NoError(t, sessions.SaveWithLock(ctx, f.session))
	orders := &cancellingOrders{GormOrderRepository: persistence.NewGormOrderRepository(db), now: f.now}

	svc := NewOrderService(orders, sessions,
		&fakeCurrencies{byCode: map[string]*vault.Currency{"USD": f.usd, "EUR": f.eur}},
		f.customers, &fakeRepositories{repo: f.repo}, &fakeOrganizations{},
		OrderServiceConfig{QuoteTTL: 15 * time.Minute, KYCThreshold: decimal.NewFromInt(1000)})
	svc.SetTransactor(persistence.NewTransactor(db))
	svc.now = func() time.Time { return f.now }

	quote, err := svc.CreateQuote(ctx, f.tenantID, f.teller, CreateQuoteRequest{
		SessionID: f.session.ID, FromCurrency: "USD", ToCurrency: "EUR", InputAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	t.Run("failed order save leaves the float untouched", func(t *testing.T) {
		orders.cancelNext = true

		_, err := svc.CompleteOrder(ctx, f.tenantID, quote.ID, f.teller)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		stored, err := orders.GormOrderRepository.FindByIDForTenant(ctx, f.tenantID, quote.ID)
		require.NoError(t, err)
		assert.Equal(t, trade.OrderStatusCancelled, stored.Status)

		session, err := sessions.FindByIDForTenant(ctx, f.tenantID, f.session.ID)
		require.NoError(t, err)
		assert.True(t, session.StackForCurrency("USD").Bought.IsZero())
		assert.True(t, session.StackForCurrency("EUR").Sold.IsZero())
		assert.Equal(t, f.session.LoadedVersion(), session.Version)
	})

	t.Run("completion books both sides", func(t *testing.T) {
		next, err := svc.CreateQuote(ctx, f.tenantID, f.teller, CreateQuoteRequest{
			SessionID: f.session.ID, FromCurrency: "USD", ToCurrency: "EUR", InputAmount: decimal.NewFromInt(100),
		})
		require.NoError(t, err)
		assert.Equal(t, "FX-20260302-0002", next.OrderNumber)

		done, err := svc.CompleteOrder(ctx, f.tenantID, next.ID, f.teller)
		require.NoError(t, err)
		assert.Equal(t, "COMPLETED", done.Status)

		session, err := sessions.FindByIDForTenant(ctx, f.tenantID, f.session.ID)
		require.NoError(t, err)
		assert.True(t, session.StackForCurrency("USD").Bought.Equal(decimal.NewFromInt(100)))
		assert.True(t, session.StackForCurrency("EUR").Sold.Equal(next.OutputAmount))
	})
}
