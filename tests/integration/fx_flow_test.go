package integration

import (
	"context"
	"testing"
	"time"

	floatapp "github.com/fxoffice/backend/internal/application/float"
	tradeapp "github.com/fxoffice/backend/internal/application/trade"
	vaultapp "github.com/fxoffice/backend/internal/application/vault"
	"github.com/fxoffice/backend/internal/domain/float"
	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/domain/trade"
	"github.com/fxoffice/backend/internal/infrastructure/crypto"
	"github.com/fxoffice/backend/internal/infrastructure/event"
	"github.com/fxoffice/backend/internal/infrastructure/persistence"
	"github.com/fxoffice/backend/internal/infrastructure/printing"
	"github.com/fxoffice/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fxStack wires the services the way cmd/server does, minus HTTP
type fxStack struct {
	DB         *TestDB
	Currencies *vaultapp.CurrencyService
	Repos      *vaultapp.RepositoryService
	Sessions   *floatapp.SessionService
	Orders     *tradeapp.OrderService
	Notes      *tradeapp.NoteService
	Events     *testutil.EventRecorder
}

func newFXStack(t *testing.T) *fxStack {
	t.Helper()

	testDB := NewTestDB(t)
	db := testDB.DB

	cipher, err := crypto.NewSecretboxCipher(crypto.EphemeralKey())
	require.NoError(t, err)

	orgRepo := persistence.NewGormOrganizationRepository(db)
	userRepo := persistence.NewGormUserRepository(db)
	memberRepo := persistence.NewGormMembershipRepository(db)
	repoRepo := persistence.NewGormVaultRepository(db)
	currencyRepo := persistence.NewGormCurrencyRepository(db)
	sessionRepo := persistence.NewGormSessionRepository(db)
	orderRepo := persistence.NewGormOrderRepository(db)
	customerRepo := persistence.NewGormCustomerRepository(db, cipher)
	noteRepo := persistence.NewGormNoteRepository(db)

	bus := event.NewInMemoryEventBus(zap.NewNop())
	recorder := testutil.NewEventRecorder()
	bus.Subscribe(recorder)

	currencies := vaultapp.NewCurrencyService(currencyRepo)
	currencies.SetEventPublisher(bus)
	sessions := floatapp.NewSessionService(sessionRepo, repoRepo, currencyRepo)
	sessions.SetEventPublisher(bus)
	repos := vaultapp.NewRepositoryService(repoRepo, memberRepo, userRepo, sessions)
	repos.SetEventPublisher(bus)

	orders := tradeapp.NewOrderService(orderRepo, sessionRepo, currencyRepo, customerRepo, repoRepo, orgRepo,
		tradeapp.OrderServiceConfig{QuoteTTL: 15 * time.Minute, KYCThreshold: decimal.NewFromInt(1000)})
	orders.SetEventPublisher(bus)
	orders.SetTransactor(persistence.NewTransactor(testDB.DB))
	renderer, err := printing.NewReceiptRenderer(printing.ReceiptRendererConfig{Locale: "en", Location: time.UTC}, nil)
	require.NoError(t, err)
	orders.SetReceiptRenderer(renderer)

	return &fxStack{
		DB:         testDB,
		Currencies: currencies,
		Repos:      repos,
		Sessions:   sessions,
		Orders:     orders,
		Notes:      tradeapp.NewNoteService(noteRepo),
		Events:     recorder,
	}
}

// seedTenant creates an organization with USD as base, EUR at 0.9 and one till
func (s *fxStack) seedTenant(t *testing.T, name string) (orgID, repoID, usdID, eurID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	org := s.DB.CreateTestOrganization(name)

	require.NoError(t, s.Currencies.EnsureBaseCurrency(ctx, org.ID, "USD"))
	usd, err := s.Currencies.GetByCode(ctx, org.ID, "USD")
	require.NoError(t, err)
	_, err = s.Currencies.AddDenomination(ctx, org.ID, usd.ID, vaultapp.AddDenominationRequest{
		Value: decimal.NewFromInt(20), Label: "$20", Kind: "NOTE",
	})
	require.NoError(t, err)

	rate := decimal.RequireFromString("0.9")
	margin := decimal.NewFromInt(2)
	eur, err := s.Currencies.Create(ctx, org.ID, vaultapp.CreateCurrencyRequest{
		Code: "EUR", Name: "Euro", Symbol: "€", Type: "FIAT",
		Rate: &rate, BuyMarginPct: &margin, SellMarginPct: &margin,
	})
	require.NoError(t, err)
	_, err = s.Currencies.AddDenomination(ctx, org.ID, eur.ID, vaultapp.AddDenominationRequest{
		Value: decimal.NewFromInt(50), Label: "€50", Kind: "NOTE",
	})
	require.NoError(t, err)

	till, err := s.Repos.Create(ctx, org.ID, vaultapp.CreateRepositoryRequest{
		Key: "TILL-1", Name: "Front till", Type: "CASH",
	})
	require.NoError(t, err)

	return org.ID, till.ID, usd.ID, eur.ID
}

// openSession takes a new session on repoID through to FLOAT_OPEN_COMPLETE
func (s *fxStack) openSession(t *testing.T, tenantID, repoID uuid.UUID, actor floatapp.Actor, currencyIDs ...uuid.UUID) *floatapp.SessionResponse {
	t.Helper()
	ctx := context.Background()

	session, err := s.Sessions.CreateSession(ctx, tenantID, actor, floatapp.CreateSessionRequest{RepositoryID: repoID})
	require.NoError(t, err)
	assert.Equal(t, string(float.SessionStatusDormant), session.Status)

	session, err = s.Sessions.StartOpen(ctx, tenantID, session.ID, actor, floatapp.StartOpenRequest{CurrencyIDs: currencyIDs})
	require.NoError(t, err)
	require.Len(t, session.Stacks, len(currencyIDs))

	for _, stack := range session.Stacks {
		counts := make(map[uuid.UUID]int, len(stack.Entries))
		for _, e := range stack.Entries {
			counts[e.DenominationID] = 10
		}
		_, err = s.Sessions.RecordOpenCount(ctx, tenantID, session.ID, stack.ID, actor, floatapp.CountRequest{Counts: counts})
		require.NoError(t, err)
		_, err = s.Sessions.ConfirmOpenStack(ctx, tenantID, session.ID, stack.ID, actor)
		require.NoError(t, err)
	}

	session, err = s.Sessions.CompleteOpen(ctx, tenantID, session.ID, actor)
	require.NoError(t, err)
	require.Equal(t, string(float.SessionStatusFloatOpenComplete), session.Status)
	return session
}

func TestFXFlow_QuoteToReceipt(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	stack := newFXStack(t)
	ctx := context.Background()
	teller := stack.DB.CreateTestUser("user_teller", "teller@example.com")
	tenantID, repoID, usdID, eurID := stack.seedTenant(t, "Harbour Exchange")
	stack.DB.AddTestMember(tenantID, teller, identity.RoleMember)
	_, err := stack.Repos.AuthorizeUser(ctx, tenantID, repoID, teller.ID)
	require.NoError(t, err)

	floatActor := floatapp.Actor{UserID: teller.ID}
	tradeActor := tradeapp.Actor{UserID: teller.ID}

	session := stack.openSession(t, tenantID, repoID, floatActor, usdID, eurID)

	t.Run("members without repository access cannot quote", func(t *testing.T) {
		outsider := stack.DB.CreateTestUser("user_outsider", "outsider@example.com")
		stack.DB.AddTestMember(tenantID, outsider, identity.RoleMember)
		_, err := stack.Orders.CreateQuote(ctx, tenantID, tradeapp.Actor{UserID: outsider.ID}, tradeapp.CreateQuoteRequest{
			SessionID: session.ID, FromCurrency: "USD", ToCurrency: "EUR", InputAmount: decimal.NewFromInt(10),
		})
		assert.Error(t, err)
	})

	t.Run("a second session on the same repository is refused", func(t *testing.T) {
		_, err := stack.Sessions.CreateSession(ctx, tenantID, floatActor, floatapp.CreateSessionRequest{RepositoryID: repoID})
		assert.Error(t, err)
	})

	quote, err := stack.Orders.CreateQuote(ctx, tenantID, tradeActor, tradeapp.CreateQuoteRequest{
		SessionID:    session.ID,
		FromCurrency: "USD",
		ToCurrency:   "EUR",
		InputAmount:  decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, string(trade.OrderStatusQuote), quote.Status)
	assert.True(t, quote.OutputAmount.IsPositive())
	assert.True(t, quote.OutputAmount.LessThan(decimal.NewFromInt(90)), "margin is applied on top of the market rate")

	completed, err := stack.Orders.CompleteOrder(ctx, tenantID, quote.ID, tradeActor)
	require.NoError(t, err)
	assert.Equal(t, string(trade.OrderStatusCompleted), completed.Status)
	require.NotNil(t, completed.CompletedBy)
	assert.Equal(t, teller.ID, *completed.CompletedBy)

	t.Run("a completed order cannot be completed again", func(t *testing.T) {
		_, err := stack.Orders.CompleteOrder(ctx, tenantID, quote.ID, tradeActor)
		assert.Error(t, err)
	})

	t.Run("session summary carries the trade flows", func(t *testing.T) {
		summary, err := stack.Sessions.Summary(ctx, tenantID, session.ID)
		require.NoError(t, err)
		for _, st := range summary.Stacks {
			switch st.CurrencyCode {
			case "USD":
				assert.True(t, st.Bought.Equal(decimal.NewFromInt(100)), "bought %s", st.Bought)
			case "EUR":
				assert.True(t, st.Sold.Equal(completed.OutputAmount), "sold %s", st.Sold)
			}
		}
	})

	t.Run("receipt renders as html", func(t *testing.T) {
		receipt, err := stack.Orders.Receipt(ctx, tenantID, quote.ID, "html")
		require.NoError(t, err)
		assert.Contains(t, receipt.ContentType, "text/html")
		assert.Contains(t, string(receipt.Content), completed.OrderNumber)
		assert.Contains(t, string(receipt.Content), "Harbour Exchange")
	})

	t.Run("notes attach to the order", func(t *testing.T) {
		_, err := stack.Notes.AddNote(ctx, tenantID, tradeActor, tradeapp.CreateNoteRequest{
			SubjectType: "ORDER", SubjectID: quote.ID, Body: "Customer asked for small notes",
		})
		require.NoError(t, err)
		notes, err := stack.Notes.ListNotes(ctx, tenantID, "ORDER", quote.ID)
		require.NoError(t, err)
		assert.Len(t, notes, 1)
	})

	t.Run("events reach subscribers", func(t *testing.T) {
		assert.True(t, stack.Events.Has(trade.EventTypeOrderQuoted))
		assert.True(t, stack.Events.Has(trade.EventTypeOrderCompleted))
		assert.True(t, stack.Events.Has(float.EventTypeSessionStatusChanged))
	})
}

func TestFXFlow_CloseCarriesCountsForward(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	stack := newFXStack(t)
	ctx := context.Background()
	admin := stack.DB.CreateTestUser("user_admin", "admin@example.com")
	tenantID, repoID, usdID, _ := stack.seedTenant(t, "Pier Bureau")
	actor := floatapp.Actor{UserID: admin.ID, IsAdmin: true}

	session := stack.openSession(t, tenantID, repoID, actor, usdID)
	stackID := session.Stacks[0].ID
	denomID := session.Stacks[0].Entries[0].DenominationID

	_, err := stack.Sessions.StartClose(ctx, tenantID, session.ID, actor)
	require.NoError(t, err)

	t.Run("close can be cancelled back to trading", func(t *testing.T) {
		resp, err := stack.Sessions.CancelClose(ctx, tenantID, session.ID, actor)
		require.NoError(t, err)
		assert.Equal(t, string(float.SessionStatusFloatOpenComplete), resp.Status)
		_, err = stack.Sessions.StartClose(ctx, tenantID, session.ID, actor)
		require.NoError(t, err)
	})

	_, err = stack.Sessions.RecordCloseCount(ctx, tenantID, session.ID, stackID, actor,
		floatapp.CountRequest{Counts: map[uuid.UUID]int{denomID: 7}})
	require.NoError(t, err)

	_, err = stack.Sessions.CompleteClose(ctx, tenantID, session.ID, actor)
	assert.Error(t, err, "closing needs every stack confirmed")

	_, err = stack.Sessions.ConfirmCloseStack(ctx, tenantID, session.ID, stackID, actor)
	require.NoError(t, err)
	closed, err := stack.Sessions.CompleteClose(ctx, tenantID, session.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, string(float.SessionStatusFloatCloseComplete), closed.Status)
	require.NotNil(t, closed.ClosedBy)

	next, err := stack.Sessions.CreateSession(ctx, tenantID, actor, floatapp.CreateSessionRequest{RepositoryID: repoID})
	require.NoError(t, err)
	next, err = stack.Sessions.StartOpen(ctx, tenantID, next.ID, actor, floatapp.StartOpenRequest{CurrencyIDs: []uuid.UUID{usdID}})
	require.NoError(t, err)
	require.Len(t, next.Stacks, 1)
	assert.Equal(t, 7, next.Stacks[0].Entries[0].OpenCount)
}

func TestFXFlow_ExpireDueQuotes(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	stack := newFXStack(t)
	ctx := context.Background()
	admin := stack.DB.CreateTestUser("user_sweeper", "sweeper@example.com")
	tenantID, repoID, usdID, eurID := stack.seedTenant(t, "Station Cambio")
	session := stack.openSession(t, tenantID, repoID, floatapp.Actor{UserID: admin.ID, IsAdmin: true}, usdID, eurID)

	quote, err := stack.Orders.CreateQuote(ctx, tenantID, tradeapp.Actor{UserID: admin.ID, IsAdmin: true}, tradeapp.CreateQuoteRequest{
		SessionID: session.ID, FromCurrency: "EUR", ToCurrency: "USD", InputAmount: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	n, err := stack.Orders.ExpireDueQuotes(ctx, time.Now().Add(time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := stack.Orders.GetByID(ctx, tenantID, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, string(trade.OrderStatusExpired), got.Status)
}
