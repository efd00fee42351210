package telemetry

import (
	"context"

	"github.com/fxoffice/backend/internal/domain/float"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/trade"
	"github.com/fxoffice/backend/internal/domain/vault"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// FXMetrics turns trade, float and rate events into business metrics.
// Subscribe it to the event bus; it never fails event delivery.
type FXMetrics struct {
	quotes        *Counter
	completions   *Counter
	cancellations *Counter
	baseVolume    *Histogram
	currencyFlow  *Counter
	transitions   *Counter
	openSessions  *UpDownCounter
	variances     *Counter
	rateRefreshes *Counter
	ratesChanged  *Counter
}

// NewFXMetrics creates the instruments on meter
func NewFXMetrics(meter metric.Meter) (*FXMetrics, error) {
	m := &FXMetrics{}
	var err error
	if m.quotes, err = NewCounter(meter, "fx.orders.quoted", "Quotes issued", "{order}"); err != nil {
		return nil, err
	}
	if m.completions, err = NewCounter(meter, "fx.orders.completed", "Orders completed", "{order}"); err != nil {
		return nil, err
	}
	if m.cancellations, err = NewCounter(meter, "fx.orders.cancelled", "Orders cancelled", "{order}"); err != nil {
		return nil, err
	}
	if m.baseVolume, err = NewHistogram(meter, HistogramOpts{
		Name:        "fx.orders.base_amount",
		Description: "Completed order size in the organization base currency",
		Unit:        "{base_unit}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if m.currencyFlow, err = NewCounter(meter, "fx.orders.currency_flow", "Completed orders per currency pair", "{order}"); err != nil {
		return nil, err
	}
	if m.transitions, err = NewCounter(meter, "fx.sessions.transitions", "Session status transitions", "{transition}"); err != nil {
		return nil, err
	}
	if m.openSessions, err = NewUpDownCounter(meter, "fx.sessions.trading", "Sessions currently open for trading", "{session}"); err != nil {
		return nil, err
	}
	if m.variances, err = NewCounter(meter, "fx.sessions.variances", "Stacks closed with a non-zero count variance", "{stack}"); err != nil {
		return nil, err
	}
	if m.rateRefreshes, err = NewCounter(meter, "fx.rates.refreshes", "Rate feed refreshes applied", "{refresh}"); err != nil {
		return nil, err
	}
	if m.ratesChanged, err = NewCounter(meter, "fx.rates.changed", "Currency rates changed by refreshes", "{currency}"); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes implements shared.EventHandler
func (m *FXMetrics) EventTypes() []string {
	return []string{
		trade.EventTypeOrderQuoted,
		trade.EventTypeOrderCompleted,
		trade.EventTypeOrderCancelled,
		float.EventTypeSessionStatusChanged,
		float.EventTypeSessionClosed,
		vault.EventTypeRatesRefreshed,
	}
}

// Handle implements shared.EventHandler
func (m *FXMetrics) Handle(ctx context.Context, ev shared.DomainEvent) error {
	tenant := AttrTenantID.String(ev.TenantID().String())
	switch e := ev.(type) {
	case *trade.OrderQuotedEvent:
		m.quotes.Inc(ctx, tenant)
	case *trade.OrderCompletedEvent:
		m.completions.Inc(ctx, tenant)
		m.currencyFlow.Inc(ctx, tenant,
			AttrFromCurrency.String(e.FromCurrency),
			AttrToCurrency.String(e.ToCurrency))
		m.baseVolume.Record(ctx, e.BaseAmount.InexactFloat64(), tenant)
	case *trade.OrderCancelledEvent:
		m.cancellations.Inc(ctx, tenant)
	case *float.SessionStatusChangedEvent:
		m.transitions.Inc(ctx, tenant, AttrSessionState.String(string(e.NewStatus)))
		switch {
		case e.NewStatus.IsTrading():
			m.openSessions.Add(ctx, 1, tenant)
		case e.OldStatus.IsTrading():
			m.openSessions.Add(ctx, -1, tenant)
		}
	case *float.SessionClosedEvent:
		for _, v := range e.Variances {
			if !v.Variance.IsZero() {
				m.variances.Inc(ctx, tenant, AttrCurrency.String(v.CurrencyCode))
			}
		}
	case *vault.RatesRefreshedEvent:
		m.rateRefreshes.Inc(ctx, tenant, attribute.String("fx.base_currency", e.Base))
		m.ratesChanged.Add(ctx, int64(e.Changed), tenant)
	}
	return nil
}

var _ shared.EventHandler = (*FXMetrics)(nil)
