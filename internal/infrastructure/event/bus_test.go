package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Order", uuid.New(), uuid.New())}
}

type recordingHandler struct {
	mu      sync.Mutex
	types   []string
	handled []string
	err     error
	panics  bool
}

func (h *recordingHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, ev.EventType())
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	orders := &recordingHandler{types: []string{"OrderCompleted"}}
	all := &recordingHandler{}
	bus.Subscribe(orders)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderCompleted"), newTestEvent("CurrencyRateChanged")))

	assert.Equal(t, []string{"OrderCompleted"}, orders.handled)
	assert.Equal(t, []string{"OrderCompleted", "CurrencyRateChanged"}, all.handled)
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := &recordingHandler{err: errors.New("nope")}
	panicking := &recordingHandler{panics: true}
	ok := &recordingHandler{}
	bus.Subscribe(failing, "OrderQuoted")
	bus.Subscribe(panicking, "OrderQuoted")
	bus.Subscribe(ok, "OrderQuoted")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderQuoted")))

	assert.Len(t, ok.handled, 1)
	assert.Equal(t, 2, logs.FilterMessage("event handler failed").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := &recordingHandler{}
	bus.Subscribe(h, "A", "B")
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("A")))
	assert.Empty(t, h.handled)
	assert.Empty(t, bus.registry.byType)
}

func TestInMemoryEventBus_StopDropsEvents(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := &recordingHandler{}
	bus.Subscribe(h, "A")

	require.NoError(t, bus.Stop(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("A")))
	assert.Empty(t, h.handled)

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("A")))
	assert.Len(t, h.handled, 1)
}

func TestAuditLogHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewAuditLogHandler(zap.New(core))
	ev := newTestEvent("CustomerCreated")

	require.NoError(t, h.Handle(context.Background(), ev))
	entries := logs.FilterMessage("domain event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "CustomerCreated", entries[0].ContextMap()["event_type"])
	assert.Nil(t, h.EventTypes())
}
