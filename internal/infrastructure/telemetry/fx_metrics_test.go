package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/fxoffice/backend/internal/domain/float"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/trade"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestFXMetrics(t *testing.T) (*FXMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	m, err := NewFXMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestFXMetrics_Orders(t *testing.T) {
	m, reader := newTestFXMetrics(t)
	ctx := context.Background()
	tenantID := uuid.New()
	orderID := uuid.New()

	events := []shared.DomainEvent{
		&trade.OrderQuotedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(trade.EventTypeOrderQuoted, trade.AggregateTypeOrder, orderID, tenantID),
		},
		&trade.OrderCompletedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(trade.EventTypeOrderCompleted, trade.AggregateTypeOrder, orderID, tenantID),
			FromCurrency:    "USD",
			ToCurrency:      "EUR",
			BaseAmount:      decimal.NewFromInt(100),
		},
		&trade.OrderCancelledEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(trade.EventTypeOrderCancelled, trade.AggregateTypeOrder, uuid.New(), tenantID),
		},
	}
	for _, ev := range events {
		require.NoError(t, m.Handle(ctx, ev))
	}

	data := collect(t, reader)
	assert.Equal(t, int64(1), sumOf(t, data["fx.orders.quoted"]))
	assert.Equal(t, int64(1), sumOf(t, data["fx.orders.completed"]))
	assert.Equal(t, int64(1), sumOf(t, data["fx.orders.cancelled"]))
	assert.Equal(t, int64(1), sumOf(t, data["fx.orders.currency_flow"]))

	hist, ok := data["fx.orders.base_amount"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 100.0, hist.DataPoints[0].Sum, 0.0001)
}

func TestFXMetrics_Sessions(t *testing.T) {
	m, reader := newTestFXMetrics(t)
	ctx := context.Background()
	tenantID := uuid.New()
	sessionID := uuid.New()

	status := func(old, next float.SessionStatus) shared.DomainEvent {
		return &float.SessionStatusChangedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(float.EventTypeSessionStatusChanged, float.AggregateTypeCxSession, sessionID, tenantID),
			OldStatus:       old,
			NewStatus:       next,
		}
	}
	require.NoError(t, m.Handle(ctx, status(float.SessionStatusDormant, float.SessionStatusFloatOpenStart)))
	require.NoError(t, m.Handle(ctx, status(float.SessionStatusFloatOpenStart, float.SessionStatusFloatOpenComplete)))

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["fx.sessions.transitions"]))
	assert.Equal(t, int64(1), sumOf(t, data["fx.sessions.trading"]))

	require.NoError(t, m.Handle(ctx, status(float.SessionStatusFloatOpenComplete, float.SessionStatusFloatCloseStart)))
	require.NoError(t, m.Handle(ctx, &float.SessionClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(float.EventTypeSessionClosed, float.AggregateTypeCxSession, sessionID, tenantID),
		Variances: []float.StackVariance{
			{CurrencyCode: "USD", Variance: decimal.Zero},
			{CurrencyCode: "EUR", Variance: decimal.NewFromInt(-5)},
		},
	}))

	data = collect(t, reader)
	assert.Equal(t, int64(0), sumOf(t, data["fx.sessions.trading"]))
	assert.Equal(t, int64(1), sumOf(t, data["fx.sessions.variances"]))
}

func TestFXMetrics_RatesRefreshed(t *testing.T) {
	m, reader := newTestFXMetrics(t)
	ev := vault.NewRatesRefreshedEvent(uuid.New(), "USD", []vault.RateSnapshot{
		{Code: "EUR", Rate: decimal.RequireFromString("0.91")},
		{Code: "GBP", Rate: decimal.RequireFromString("0.78")},
	}, 2, time.Now())

	require.NoError(t, m.Handle(context.Background(), ev))

	data := collect(t, reader)
	assert.Equal(t, int64(1), sumOf(t, data["fx.rates.refreshes"]))
	assert.Equal(t, int64(2), sumOf(t, data["fx.rates.changed"]))
}

func TestFXMetrics_EventTypes(t *testing.T) {
	m, _ := newTestFXMetrics(t)
	assert.ElementsMatch(t, []string{
		trade.EventTypeOrderQuoted,
		trade.EventTypeOrderCompleted,
		trade.EventTypeOrderCancelled,
		float.EventTypeSessionStatusChanged,
		float.EventTypeSessionClosed,
		vault.EventTypeRatesRefreshed,
	}, m.EventTypes())
}
