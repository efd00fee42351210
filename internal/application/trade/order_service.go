package trade

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/float"
	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/domain/partner"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/trade"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultQuoteTTL is how long a quote may be completed when no TTL is configured
const DefaultQuoteTTL = 15 * time.Minute

// orderNumberAttempts bounds retries when two tills take the same order number
const orderNumberAttempts = 3

// ReceiptRenderer turns a receipt into an HTML or PDF document
type ReceiptRenderer interface {
	Render(ctx context.Context, format trade.ReceiptFormat, receipt trade.Receipt) ([]byte, error)
}

// OrderServiceConfig holds the trading rules
type OrderServiceConfig struct {
	QuoteTTL time.Duration
	// KYCThreshold is the base currency amount from which a verified customer is required
	KYCThreshold decimal.Decimal
}

// OrderService handles quotes and orders
type OrderService struct {
	orderRepo    trade.OrderRepository
	sessionRepo  float.SessionRepository
	currencyRepo vault.CurrencyRepository
	customerRepo partner.CustomerRepository
	repoRepo     vault.RepositoryRepository
	orgRepo      identity.OrganizationRepository
	renderer     ReceiptRenderer
	publisher    shared.EventPublisher
	tx           shared.Transactor
	logger       *zap.Logger
	cfg          OrderServiceConfig
	now          func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo trade.OrderRepository,
	sessionRepo float.SessionRepository,
	currencyRepo vault.CurrencyRepository,
	customerRepo partner.CustomerRepository,
	repoRepo vault.RepositoryRepository,
	orgRepo identity.OrganizationRepository,
	cfg OrderServiceConfig,
) *OrderService {
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = DefaultQuoteTTL
	}
	return &OrderService{
		orderRepo:    orderRepo,
		sessionRepo:  sessionRepo,
		currencyRepo: currencyRepo,
		customerRepo: customerRepo,
		repoRepo:     repoRepo,
		orgRepo:      orgRepo,
		tx:           shared.NoTransaction,
		logger:       zap.NewNop(),
		cfg:          cfg,
		now:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetTransactor makes order completion and its float booking commit together
func (s *OrderService) SetTransactor(tx shared.Transactor) {
	if tx != nil {
		s.tx = tx
	}
}

// SetReceiptRenderer enables receipt rendering
func (s *OrderService) SetReceiptRenderer(renderer ReceiptRenderer) {
	s.renderer = renderer
}

// SetLogger sets the logger
func (s *OrderService) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// CreateQuote prices an exchange against an open session and records it as a quote
func (s *OrderService) CreateQuote(ctx context.Context, tenantID uuid.UUID, actor Actor, req CreateQuoteRequest) (*OrderResponse, error) {
	session, err := s.sessionRepo.FindByIDForTenant(ctx, tenantID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, tenantID, session.RepositoryID, actor); err != nil {
		return nil, err
	}
	if !session.Status.IsTrading() {
		return nil, shared.NewDomainError("SESSION_NOT_TRADING", "Quotes can only be issued while the float is open")
	}

	fromCode := strings.ToUpper(strings.TrimSpace(req.FromCurrency))
	toCode := strings.ToUpper(strings.TrimSpace(req.ToCurrency))
	if !session.HasCurrency(fromCode) || !session.HasCurrency(toCode) {
		return nil, shared.NewDomainError("NO_FLOAT_STACK", "Both currencies must be in the session float")
	}
	from, err := s.tradableCurrency(ctx, tenantID, fromCode)
	if err != nil {
		return nil, err
	}
	to, err := s.tradableCurrency(ctx, tenantID, toCode)
	if err != nil {
		return nil, err
	}

	quote, err := trade.CalculateQuote(currencyQuote(from), currencyQuote(to), req.InputAmount)
	if err != nil {
		return nil, err
	}
	if err := s.checkCustomer(ctx, tenantID, req.CustomerID, quote.BaseAmount); err != nil {
		return nil, err
	}

	now := s.now()
	var order *trade.Order
	for attempt := 1; ; attempt++ {
		order, err = s.newQuoteOrder(ctx, tenantID, actor, session, req.CustomerID, fromCode, toCode, quote, now)
		if err != nil {
			return nil, err
		}
		err = s.orderRepo.Save(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrAlreadyExists) || attempt == orderNumberAttempts {
			return nil, err
		}
		s.logger.Debug("order number taken, retrying",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt))
	}
	if err := shared.PublishAndClear(ctx, s.publisher, order); err != nil {
		return nil, err
	}

	resp := ToOrderResponse(order)
	return &resp, nil
}

// CompleteOrder executes a quote and books its flows against the session float.
// A lapsed quote is stored as EXPIRED and QUOTE_EXPIRED is returned.
func (s *OrderService) CompleteOrder(ctx context.Context, tenantID, orderID uuid.UUID, actor Actor) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, tenantID, order.RepositoryID, actor); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.FindByIDForTenant(ctx, tenantID, order.SessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if order.Status == trade.OrderStatusQuote && !order.IsExpired(now) {
		if !session.Status.IsTrading() {
			return nil, shared.NewDomainError("SESSION_NOT_TRADING", "Orders can only be completed while the float is open")
		}
		// the customer may have been rejected since the quote was issued
		if err := s.checkCustomer(ctx, tenantID, order.CustomerID, order.BaseAmount); err != nil {
			return nil, err
		}
	}

	if err := order.Complete(actor.UserID, now); err != nil {
		if errors.Is(err, trade.ErrQuoteExpired) {
			if saveErr := s.orderRepo.Save(ctx, order); saveErr != nil {
				return nil, saveErr
			}
		}
		return nil, err
	}

	if err := session.RecordTrade(order.FromCurrency, order.InputAmount, order.ToCurrency, order.OutputAmount); err != nil {
		return nil, err
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.sessionRepo.SaveWithLock(ctx, session); err != nil {
			return err
		}
		return s.orderRepo.Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, order); err != nil {
		return nil, err
	}

	resp := ToOrderResponse(order)
	return &resp, nil
}

// CancelOrder abandons a quote
func (s *OrderService) CancelOrder(ctx context.Context, tenantID, orderID uuid.UUID, actor Actor, req CancelOrderRequest) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, tenantID, order.RepositoryID, actor); err != nil {
		return nil, err
	}
	if err := order.Cancel(req.Reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, order); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// GetByID retrieves an order
func (s *OrderService) GetByID(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// List retrieves orders by session, customer, status and date range
func (s *OrderService) List(ctx context.Context, tenantID uuid.UUID, filter OrderListFilter) ([]OrderResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]any),
	}
	if filter.SessionID != "" {
		domainFilter.Filters["session_id"] = filter.SessionID
	}
	if filter.CustomerID != "" {
		domainFilter.Filters["customer_id"] = filter.CustomerID
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Side != "" {
		domainFilter.Filters["side"] = filter.Side
	}
	if filter.From != nil {
		domainFilter.Filters["from"] = *filter.From
	}
	if filter.To != nil {
		// the date range is inclusive of the whole "to" day
		domainFilter.Filters["to"] = filter.To.AddDate(0, 0, 1)
	}

	orders, err := s.orderRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orderRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderResponses(orders), total, nil
}

// ExpireDueQuotes moves lapsed quotes of every tenant to EXPIRED, at most limit per call
func (s *OrderService) ExpireDueQuotes(ctx context.Context, now time.Time, limit int) (int, error) {
	orders, err := s.orderRepo.FindExpiredQuotes(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for i := range orders {
		order := &orders[i]
		if !order.ExpireIfDue(now) {
			continue
		}
		if err := s.orderRepo.Save(ctx, order); err != nil {
			s.logger.Warn("failed to expire quote",
				zap.String("order_number", order.OrderNumber),
				zap.String("tenant_id", order.TenantID.String()),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		expired++
	}
	return expired, errors.Join(errs...)
}

// Receipt renders an order receipt as HTML or PDF
func (s *OrderService) Receipt(ctx context.Context, tenantID, orderID uuid.UUID, format string) (*ReceiptResponse, error) {
	f := trade.ReceiptFormat(strings.ToLower(format))
	if f == "" {
		f = trade.ReceiptFormatHTML
	}
	if !f.IsValid() {
		return nil, shared.NewDomainError("INVALID_FORMAT", "Receipt format must be html or pdf")
	}
	if s.renderer == nil {
		return nil, shared.NewDomainError("RECEIPT_UNAVAILABLE", "Receipt rendering is not configured")
	}

	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == trade.OrderStatusCancelled || order.Status == trade.OrderStatusExpired {
		return nil, shared.NewDomainError("INVALID_ORDER_STATE", "No receipt is issued for a "+strings.ToLower(string(order.Status))+" order")
	}

	receipt := trade.NewReceipt(order)
	if org, err := s.orgRepo.FindByID(ctx, tenantID); err == nil {
		receipt.OrganizationName = org.Name
	}
	if repo, err := s.repoRepo.FindByIDForTenant(ctx, tenantID, order.RepositoryID); err == nil {
		receipt.RepositoryName = repo.Name
	}
	if order.CustomerID != nil {
		if c, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, *order.CustomerID); err == nil {
			receipt.CustomerName = c.FullName()
		}
	}
	if c, err := s.currencyRepo.FindByCode(ctx, tenantID, order.FromCurrency); err == nil {
		receipt.FromDecimals = c.DecimalPlaces
	}
	if c, err := s.currencyRepo.FindByCode(ctx, tenantID, order.ToCurrency); err == nil {
		receipt.ToDecimals = c.DecimalPlaces
	}

	content, err := s.renderer.Render(ctx, f, receipt)
	if err != nil {
		return nil, err
	}

	contentType := "text/html; charset=utf-8"
	if f == trade.ReceiptFormatPDF {
		contentType = "application/pdf"
	}
	return &ReceiptResponse{
		Filename:    "receipt-" + order.OrderNumber + "." + string(f),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func (s *OrderService) newQuoteOrder(ctx context.Context, tenantID uuid.UUID, actor Actor, session *float.CxSession,
	customerID *uuid.UUID, fromCode, toCode string, quote trade.Quote, now time.Time) (*trade.Order, error) {
	orderNumber, err := s.orderRepo.GenerateOrderNumber(ctx, tenantID, now)
	if err != nil {
		return nil, err
	}
	order, err := trade.NewQuoteOrder(tenantID, orderNumber, session.ID, session.RepositoryID, customerID,
		fromCode, toCode, quote, s.cfg.QuoteTTL, now)
	if err != nil {
		return nil, err
	}
	order.SetCreatedBy(actor.UserID)
	return order, nil
}

func (s *OrderService) authorize(ctx context.Context, tenantID, repositoryID uuid.UUID, actor Actor) error {
	if actor.IsAdmin {
		return nil
	}
	repo, err := s.repoRepo.FindByIDForTenant(ctx, tenantID, repositoryID)
	if err != nil {
		return err
	}
	if !repo.IsAuthorized(actor.UserID) {
		return shared.NewDomainError(shared.ErrForbidden.Code, "You are not authorized on this repository")
	}
	return nil
}

func (s *OrderService) tradableCurrency(ctx context.Context, tenantID uuid.UUID, code string) (*vault.Currency, error) {
	c, err := s.currencyRepo.FindByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if !c.IsActive() {
		return nil, shared.NewDomainError("CURRENCY_INACTIVE", "Currency "+code+" is not active")
	}
	return c, nil
}

// checkCustomer applies the KYC rules for an order worth baseAmount in base currency
func (s *OrderService) checkCustomer(ctx context.Context, tenantID uuid.UUID, customerID *uuid.UUID, baseAmount decimal.Decimal) error {
	requireVerified := baseAmount.GreaterThanOrEqual(s.cfg.KYCThreshold)
	if customerID == nil {
		if requireVerified {
			return shared.NewDomainError("KYC_REQUIRED", "A verified customer is required for this amount")
		}
		return nil
	}
	customer, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, *customerID)
	if err != nil {
		return err
	}
	return customer.CanTrade(requireVerified)
}

func currencyQuote(c *vault.Currency) trade.CurrencyQuote {
	return trade.CurrencyQuote{
		Code:          c.Code,
		Rate:          c.Rate,
		DecimalPlaces: c.DecimalPlaces,
		BuyMarginPct:  c.BuyMarginPct,
		SellMarginPct: c.SellMarginPct,
		IsBase:        c.IsBase,
	}
}
