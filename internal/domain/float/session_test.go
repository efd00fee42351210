package float

import (
	"testing"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	session *CxSession
	usd     StackTemplate
	eur     StackTemplate
	usd20   uuid.UUID
	usd1    uuid.UUID
	eur50   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := NewCxSession(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)

	f := &fixture{session: s, usd20: uuid.New(), usd1: uuid.New(), eur50: uuid.New()}
	f.usd = StackTemplate{
		CurrencyID:   uuid.New(),
		CurrencyCode: "USD",
		Denominations: []DenominationRef{
			{ID: f.usd20, Value: decimal.NewFromInt(20), Label: "$20"},
			{ID: f.usd1, Value: decimal.NewFromInt(1), Label: "$1"},
		},
		CarryForward: map[uuid.UUID]int{f.usd20: 10},
	}
	f.eur = StackTemplate{
		CurrencyID:    uuid.New(),
		CurrencyCode:  "EUR",
		Denominations: []DenominationRef{{ID: f.eur50, Value: decimal.NewFromInt(50), Label: "€50"}},
	}
	return f
}

// openFloat walks the fixture session to FLOAT_OPEN_COMPLETE
func (f *fixture) openFloat(t *testing.T) {
	t.Helper()
	now := time.Now()
	require.NoError(t, f.session.StartOpen([]StackTemplate{f.usd, f.eur}, now))
	for _, st := range f.session.Stacks {
		require.NoError(t, f.session.ConfirmOpenStack(st.ID))
	}
	require.NoError(t, f.session.CompleteOpen(now))
}

func codeOf(err error) string {
	if de, ok := shared.AsDomainError(err); ok {
		return de.Code
	}
	return ""
}

func TestSessionStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to SessionStatus
		want     bool
	}{
		{SessionStatusDormant, SessionStatusFloatOpenStart, true},
		{SessionStatusDormant, SessionStatusFloatOpenComplete, false},
		{SessionStatusFloatOpenStart, SessionStatusFloatOpenComplete, true},
		{SessionStatusFloatOpenComplete, SessionStatusFloatCloseStart, true},
		{SessionStatusFloatCloseStart, SessionStatusFloatOpenComplete, true},
		{SessionStatusFloatCloseStart, SessionStatusFloatCloseComplete, true},
		{SessionStatusFloatCloseComplete, SessionStatusDormant, false},
		{SessionStatusFloatOpenComplete, SessionStatusFloatOpenStart, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.True(t, SessionStatusFloatCloseComplete.IsTerminal())
	assert.Len(t, NonTerminalStatuses(), 4)
}

func TestCxSession_OpenFlow(t *testing.T) {
	f := newFixture(t)
	s := f.session
	assert.Equal(t, SessionStatusDormant, s.Status)
	assert.True(t, s.IsActive())

	t.Run("cannot complete open before starting", func(t *testing.T) {
		err := s.CompleteOpen(time.Now())
		assert.Equal(t, "INVALID_TRANSITION", codeOf(err))
	})

	t.Run("start open requires currencies", func(t *testing.T) {
		assert.Error(t, s.StartOpen(nil, time.Now()))
	})

	t.Run("duplicate currency rejected", func(t *testing.T) {
		assert.Error(t, s.StartOpen([]StackTemplate{f.usd, f.usd}, time.Now()))
		assert.Equal(t, SessionStatusDormant, s.Status)
	})

	require.NoError(t, s.StartOpen([]StackTemplate{f.usd, f.eur}, time.Now()))
	assert.Equal(t, SessionStatusFloatOpenStart, s.Status)
	require.Len(t, s.Stacks, 2)

	usd := s.StackForCurrency("USD")
	require.NotNil(t, usd)
	assert.True(t, usd.OpenTotal().Equal(decimal.NewFromInt(200)), "carry forward pre-fills counts")

	t.Run("record and confirm counts", func(t *testing.T) {
		require.NoError(t, s.RecordOpenCount(usd.ID, map[uuid.UUID]int{f.usd1: 15}))
		assert.True(t, usd.OpenTotal().Equal(decimal.NewFromInt(215)))

		require.NoError(t, s.ConfirmOpenStack(usd.ID))
		assert.True(t, usd.OpenConfirmed)

		require.NoError(t, s.RecordOpenCount(usd.ID, map[uuid.UUID]int{f.usd1: 16}))
		assert.False(t, usd.OpenConfirmed, "recount clears confirmation")
	})

	t.Run("invalid counts", func(t *testing.T) {
		assert.Equal(t, "INVALID_COUNTS", codeOf(s.RecordOpenCount(usd.ID, map[uuid.UUID]int{f.usd1: -1})))
		assert.Equal(t, "UNKNOWN_DENOMINATION", codeOf(s.RecordOpenCount(usd.ID, map[uuid.UUID]int{f.eur50: 1})))
		assert.Equal(t, "STACK_NOT_FOUND", codeOf(s.RecordOpenCount(uuid.New(), map[uuid.UUID]int{f.usd1: 1})))
	})

	t.Run("every stack must be confirmed", func(t *testing.T) {
		err := s.CompleteOpen(time.Now())
		assert.Equal(t, "UNCONFIRMED_STACK", codeOf(err))
	})

	for _, st := range s.Stacks {
		require.NoError(t, s.ConfirmOpenStack(st.ID))
	}
	require.NoError(t, s.CompleteOpen(time.Now()))
	assert.Equal(t, SessionStatusFloatOpenComplete, s.Status)
	assert.NotNil(t, s.OpenedAt)

	t.Run("opening counts are frozen", func(t *testing.T) {
		assert.Error(t, s.RecordOpenCount(usd.ID, map[uuid.UUID]int{f.usd1: 1}))
	})
}

func TestCxSession_MiddayCount(t *testing.T) {
	f := newFixture(t)
	s := f.session

	assert.Error(t, s.RecordMiddayCount(uuid.New(), map[uuid.UUID]int{}, time.Now()))
	f.openFloat(t)

	usd := s.StackForCurrency("USD")
	at := time.Now()
	require.NoError(t, s.RecordMiddayCount(usd.ID, map[uuid.UUID]int{f.usd20: 9}, at))
	assert.True(t, usd.MiddayTotal().Equal(decimal.NewFromInt(180)))
	assert.Equal(t, at, *usd.MiddayCountedAt)
	assert.Equal(t, SessionStatusFloatOpenComplete, s.Status)
}

func TestCxSession_CloseFlow(t *testing.T) {
	f := newFixture(t)
	s := f.session
	f.openFloat(t)
	closer := uuid.New()

	require.NoError(t, s.RecordTrade("EUR", decimal.NewFromInt(100), "USD", decimal.NewFromInt(105)))

	require.NoError(t, s.StartClose(time.Now()))
	assert.Equal(t, SessionStatusFloatCloseStart, s.Status)
	assert.Equal(t, "SESSION_NOT_TRADING", codeOf(s.RecordTrade("EUR", decimal.NewFromInt(1), "USD", decimal.NewFromInt(1))))

	usd := s.StackForCurrency("USD")
	eur := s.StackForCurrency("EUR")
	require.NoError(t, s.RecordCloseCount(usd.ID, map[uuid.UUID]int{f.usd20: 4, f.usd1: 15}))
	require.NoError(t, s.ConfirmCloseStack(usd.ID))

	t.Run("cancel close resets close counts", func(t *testing.T) {
		require.NoError(t, s.CancelClose())
		assert.Equal(t, SessionStatusFloatOpenComplete, s.Status)
		assert.False(t, usd.CloseConfirmed)
		assert.True(t, usd.CloseTotal().IsZero())
		assert.Nil(t, s.CloseStartedAt)
		assert.Error(t, s.CancelClose())
	})

	require.NoError(t, s.StartClose(time.Now()))
	require.NoError(t, s.RecordCloseCount(usd.ID, map[uuid.UUID]int{f.usd20: 4, f.usd1: 15}))
	require.NoError(t, s.ConfirmCloseStack(usd.ID))
	assert.Equal(t, "UNCONFIRMED_STACK", codeOf(s.CompleteClose(closer, time.Now())))

	require.NoError(t, s.RecordCloseCount(eur.ID, map[uuid.UUID]int{f.eur50: 2}))
	require.NoError(t, s.ConfirmCloseStack(eur.ID))
	s.ClearDomainEvents()
	require.NoError(t, s.CompleteClose(closer, time.Now()))
	assert.Equal(t, SessionStatusFloatCloseComplete, s.Status)
	assert.False(t, s.IsActive())
	assert.Equal(t, closer, *s.ClosedBy)

	t.Run("summary shows expected close and variance", func(t *testing.T) {
		summary := s.Summary()
		require.Len(t, summary, 2)
		usdSum := summary[0]
		assert.Equal(t, "USD", usdSum.CurrencyCode)
		// open 200, sold 105, expected 95, counted 95
		assert.True(t, usdSum.ExpectedClose.Equal(decimal.NewFromInt(95)))
		assert.True(t, usdSum.Variance.IsZero())

		eurSum := summary[1]
		// open 0, bought 100, counted 100
		assert.True(t, eurSum.ExpectedClose.Equal(decimal.NewFromInt(100)))
		assert.True(t, eurSum.Variance.IsZero())
	})

	t.Run("closed event carries variances", func(t *testing.T) {
		events := s.GetDomainEvents()
		require.Len(t, events, 2)
		closed, ok := events[1].(*SessionClosedEvent)
		require.True(t, ok)
		assert.Len(t, closed.Variances, 2)
	})

	t.Run("carry forward", func(t *testing.T) {
		carry := s.CarryForward()
		assert.Equal(t, 4, carry[f.usd.CurrencyID][f.usd20])
		assert.Equal(t, 2, carry[f.eur.CurrencyID][f.eur50])
	})

	t.Run("terminal", func(t *testing.T) {
		assert.Error(t, s.StartClose(time.Now()))
		assert.Error(t, s.StartOpen([]StackTemplate{f.usd}, time.Now()))
	})
}

func TestCxSession_RecordTradeRequiresStacks(t *testing.T) {
	f := newFixture(t)
	f.openFloat(t)

	err := f.session.RecordTrade("GBP", decimal.NewFromInt(1), "USD", decimal.NewFromInt(1))
	assert.Equal(t, "NO_FLOAT_STACK", codeOf(err))
}
