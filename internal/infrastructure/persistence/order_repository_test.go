package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestQuoteOrder(t *testing.T, tenantID, sessionID uuid.UUID, number string, now time.Time, ttl time.Duration) *trade.Order {
	t.Helper()
	usd := trade.CurrencyQuote{Code: "USD", Rate: decimal.NewFromInt(1), DecimalPlaces: 2, IsBase: true}
	eur := trade.CurrencyQuote{Code: "EUR", Rate: decimal.RequireFromString("0.9"), DecimalPlaces: 2, SellMarginPct: decimal.NewFromInt(2)}
	quote, err := trade.CalculateQuote(usd, eur, decimal.NewFromInt(100))
	require.NoError(t, err)

	order, err := trade.NewQuoteOrder(tenantID, number, sessionID, uuid.New(), nil, "USD", "EUR", quote, ttl, now)
	require.NoError(t, err)
	return order
}

func TestGormOrderRepository_GenerateOrderNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	day := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	first, err := repo.GenerateOrderNumber(ctx, tenantID, day)
	require.NoError(t, err)
	assert.Equal(t, "FX-20260302-0001", first)

	require.NoError(t, repo.Save(ctx, newTestQuoteOrder(t, tenantID, uuid.New(), first, day, time.Minute)))

	second, err := repo.GenerateOrderNumber(ctx, tenantID, day)
	require.NoError(t, err)
	assert.Equal(t, "FX-20260302-0002", second)

	otherTenant, err := repo.GenerateOrderNumber(ctx, uuid.New(), day)
	require.NoError(t, err)
	assert.Equal(t, "FX-20260302-0001", otherTenant)

	nextDay, err := repo.GenerateOrderNumber(ctx, tenantID, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "FX-20260303-0001", nextDay)

	t.Run("suffix widens past four digits", func(t *testing.T) {
		busy := uuid.New()
		for _, n := range []string{"FX-20260302-9998", "FX-20260302-9999", "FX-20260302-10000"} {
			require.NoError(t, repo.Save(ctx, newTestQuoteOrder(t, busy, uuid.New(), n, day, time.Minute)))
		}

		next, err := repo.GenerateOrderNumber(ctx, busy, day)
		require.NoError(t, err)
		assert.Equal(t, "FX-20260302-10001", next)
	})

	t.Run("unparseable suffix is an error", func(t *testing.T) {
		odd := uuid.New()
		require.NoError(t, repo.Save(ctx, newTestQuoteOrder(t, odd, uuid.New(), "FX-20260302-0001", day, time.Minute)))
		require.NoError(t, repo.Save(ctx, newTestQuoteOrder(t, odd, uuid.New(), "FX-20260302-MANUAL", day, time.Minute)))

		_, err := repo.GenerateOrderNumber(ctx, odd, day)
		assert.Error(t, err)
	})
}

func TestGormOrderRepository_SaveAndQuery(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	tenantID, sessionID := uuid.New(), uuid.New()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	live := newTestQuoteOrder(t, tenantID, sessionID, "FX-20260302-0001", now, 15*time.Minute)
	lapsed := newTestQuoteOrder(t, tenantID, sessionID, "FX-20260302-0002", now.Add(-time.Hour), 15*time.Minute)
	require.NoError(t, repo.Save(ctx, live))
	require.NoError(t, repo.Save(ctx, lapsed))

	t.Run("round trips amounts", func(t *testing.T) {
		found, err := repo.FindByOrderNumber(ctx, tenantID, "fx-20260302-0001")
		require.NoError(t, err)
		assert.Equal(t, trade.SideSell, found.Side)
		assert.True(t, found.OutputAmount.Equal(live.OutputAmount))
		assert.True(t, found.QuotedRate.Equal(live.QuotedRate))
	})

	t.Run("finds expired quotes", func(t *testing.T) {
		expired, err := repo.FindExpiredQuotes(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, lapsed.ID, expired[0].ID)
	})

	t.Run("completion is version checked", func(t *testing.T) {
		first, err := repo.FindByIDForTenant(ctx, tenantID, live.ID)
		require.NoError(t, err)
		second, err := repo.FindByIDForTenant(ctx, tenantID, live.ID)
		require.NoError(t, err)

		require.NoError(t, first.Complete(uuid.New(), now.Add(time.Minute)))
		require.NoError(t, repo.Save(ctx, first))

		require.NoError(t, second.Cancel("customer left", now.Add(time.Minute)))
		assert.ErrorIs(t, repo.Save(ctx, second), shared.ErrConcurrencyConflict)

		current, err := repo.FindByIDForTenant(ctx, tenantID, live.ID)
		require.NoError(t, err)
		assert.Equal(t, trade.OrderStatusCompleted, current.Status)
	})

	t.Run("filters by session and status", func(t *testing.T) {
		bySession, err := repo.FindBySession(ctx, tenantID, sessionID)
		require.NoError(t, err)
		assert.Len(t, bySession, 2)

		filter := shared.DefaultFilter()
		filter.Filters["status"] = string(trade.OrderStatusQuote)
		quotes, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Len(t, quotes, 1)
		assert.Equal(t, lapsed.ID, quotes[0].ID)

		filter = shared.DefaultFilter()
		filter.Search = "0002"
		count, err := repo.CountForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func newMockOrderRepository(t *testing.T) (*GormOrderRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return NewGormOrderRepository(gormDB), mock, mockDB
}

func TestGormOrderRepository_DatabaseErrors(t *testing.T) {
	t.Run("query failure is returned as is", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		dbErr := errors.New("connection reset")
		mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnError(dbErr)

		_, err := repo.FindByIDForTenant(context.Background(), uuid.New(), uuid.New())
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByIDForTenant(context.Background(), uuid.New(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("update touching no rows is a conflict", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		order := newTestQuoteOrder(t, uuid.New(), uuid.New(), "FX-20260302-0001", time.Now(), time.Minute)
		order.MarkLoaded()
		require.NoError(t, order.Cancel("test", time.Now()))

		mock.ExpectExec(`UPDATE "orders"`).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Save(context.Background(), order), shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate order number is already exists", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		order := newTestQuoteOrder(t, uuid.New(), uuid.New(), "FX-20260302-0001", time.Now(), time.Minute)
		mock.ExpectExec(`INSERT INTO "orders"`).WillReturnError(&pgconn.PgError{
			Code:           "23505",
			ConstraintName: "idx_orders_tenant_number",
		})

		err := repo.Save(context.Background(), order)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.Zero(t, order.LoadedVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
