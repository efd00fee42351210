package float

import (
	"context"
	"errors"
	"time"

	"github.com/fxoffice/backend/internal/domain/float"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
)

// SessionService drives Cx sessions through the float state machine
type SessionService struct {
	sessionRepo  float.SessionRepository
	repoRepo     vault.RepositoryRepository
	currencyRepo vault.CurrencyRepository
	publisher    shared.EventPublisher
	now          func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(
	sessionRepo float.SessionRepository,
	repoRepo vault.RepositoryRepository,
	currencyRepo vault.CurrencyRepository,
) *SessionService {
	return &SessionService{
		sessionRepo:  sessionRepo,
		repoRepo:     repoRepo,
		currencyRepo: currencyRepo,
		now:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *SessionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CreateSession starts a dormant session on a repository the actor may use
func (s *SessionService) CreateSession(ctx context.Context, tenantID uuid.UUID, actor Actor, req CreateSessionRequest) (*SessionResponse, error) {
	repo, err := s.authorizedRepository(ctx, tenantID, req.RepositoryID, actor)
	if err != nil {
		return nil, err
	}
	if !repo.IsActive() {
		return nil, shared.NewDomainError("REPOSITORY_INACTIVE", "Repository is not active")
	}

	active, err := s.HasActiveSession(ctx, tenantID, repo.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, shared.NewDomainError("SESSION_ACTIVE", "Repository already has an active session")
	}

	session, err := float.NewCxSession(tenantID, repo.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, session)
}

// StartOpen builds the float stacks. Opening counts are pre-filled from the
// closing counts of the repository's last closed session.
func (s *SessionService) StartOpen(ctx context.Context, tenantID, sessionID uuid.UUID, actor Actor, req StartOpenRequest) (*SessionResponse, error) {
	session, err := s.authorizedSession(ctx, tenantID, sessionID, actor)
	if err != nil {
		return nil, err
	}

	templates, err := s.stackTemplates(ctx, tenantID, session.RepositoryID, req.CurrencyIDs)
	if err != nil {
		return nil, err
	}
	if err := session.StartOpen(templates, s.now()); err != nil {
		return nil, err
	}
	return s.save(ctx, session)
}

// RecordOpenCount sets the opening counts of a stack
func (s *SessionService) RecordOpenCount(ctx context.Context, tenantID, sessionID, stackID uuid.UUID, actor Actor, req CountRequest) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, actor, func(session *float.CxSession) error {
		return session.RecordOpenCount(stackID, req.Counts)
	})
}

// ConfirmOpenStack marks a stack's opening count as checked
func (s *SessionService) ConfirmOpenStack(ctx context.Context, tenantID, sessionID, stackID uuid.UUID, actor Actor) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, actor, func(session *float.CxSession) error {
		return session.ConfirmOpenStack(stackID)
	})
}

// CompleteOpen opens the float for trading
func (s *SessionService) CompleteOpen(ctx context.Context, tenantID, sessionID uuid.UUID, actor Actor) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, actor, func(session *float.CxSession) error {
		return session.CompleteOpen(s.now())
	})
}

// RecordMiddayCount records an intra-day count of a stack
func (s *SessionService) RecordMiddayCount(ctx context.Context, tenantID, sessionID, stackID uuid.UUID, actor Actor, req CountRequest) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, actor, func(session *float.CxSession) error {
		return session.RecordMiddayCount(stackID, req.Counts, s.now())
	})
}

// StartClose stops trading and begins the closing count
func (s *SessionService) StartClose(ctx context.Context, tenantID, sessionID uuid.UUID, actor Actor) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, actor, func(session *float.CxSession) error {
		return session.StartClose(s.now())
	})
}

// RecordCloseCount sets the closing counts of a stack
func (s *SessionService) RecordCloseCount(ctx context.Context, tenantID, sessionID, stackID uuid.UUID, actor Actor, req CountRequest) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, actor, func(session *float.CxSession) error {
		return session.RecordCloseCount(stackID, req.Counts)
	})
}

// ConfirmCloseStack marks a stack's closing count as checked
func (s *SessionService) ConfirmCloseStack(ctx context.Context, tenantID, sessionID, stackID uuid.UUID, actor Actor) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, actor, func(session *float.CxSession) error {
		return session.ConfirmCloseStack(stackID)
	})
}

// CancelClose resumes trading and discards the closing counts
func (s *SessionService) CancelClose(ctx context.Context, tenantID, sessionID uuid.UUID, actor Actor) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, actor, func(session *float.CxSession) error {
		return session.CancelClose()
	})
}

// CompleteClose closes the float
func (s *SessionService) CompleteClose(ctx context.Context, tenantID, sessionID uuid.UUID, actor Actor) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, actor, func(session *float.CxSession) error {
		return session.CompleteClose(actor.UserID, s.now())
	})
}

// Summary returns the per-currency reconciliation of a session
func (s *SessionService) Summary(ctx context.Context, tenantID, sessionID uuid.UUID) (*SessionSummaryResponse, error) {
	session, err := s.sessionRepo.FindByIDForTenant(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	resp := ToSessionSummaryResponse(session)
	return &resp, nil
}

// GetByID retrieves a session
func (s *SessionService) GetByID(ctx context.Context, tenantID, sessionID uuid.UUID) (*SessionResponse, error) {
	session, err := s.sessionRepo.FindByIDForTenant(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	resp := ToSessionResponse(session)
	return &resp, nil
}

// List retrieves sessions filtered by repository and status
func (s *SessionService) List(ctx context.Context, tenantID uuid.UUID, filter SessionListFilter) ([]SessionResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "created_at",
		OrderDir: filter.OrderDir,
		Filters:  make(map[string]any),
	}
	if filter.RepositoryID != "" {
		domainFilter.Filters["repository_id"] = filter.RepositoryID
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}

	sessions, err := s.sessionRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.sessionRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToSessionResponses(sessions), total, nil
}

// ActiveForRepository returns the repository's non-terminal session
func (s *SessionService) ActiveForRepository(ctx context.Context, tenantID, repositoryID uuid.UUID) (*SessionResponse, error) {
	session, err := s.sessionRepo.FindActiveByRepository(ctx, tenantID, repositoryID)
	if err != nil {
		return nil, err
	}
	resp := ToSessionResponse(session)
	return &resp, nil
}

// HasActiveSession reports whether the repository has a non-terminal session
func (s *SessionService) HasActiveSession(ctx context.Context, tenantID, repositoryID uuid.UUID) (bool, error) {
	_, err := s.sessionRepo.FindActiveByRepository(ctx, tenantID, repositoryID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *SessionService) mutate(ctx context.Context, tenantID, sessionID uuid.UUID, actor Actor, fn func(*float.CxSession) error) (*SessionResponse, error) {
	session, err := s.authorizedSession(ctx, tenantID, sessionID, actor)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	return s.save(ctx, session)
}

func (s *SessionService) save(ctx context.Context, session *float.CxSession) (*SessionResponse, error) {
	if err := s.sessionRepo.SaveWithLock(ctx, session); err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, session); err != nil {
		return nil, err
	}
	resp := ToSessionResponse(session)
	return &resp, nil
}

func (s *SessionService) authorizedSession(ctx context.Context, tenantID, sessionID uuid.UUID, actor Actor) (*float.CxSession, error) {
	session, err := s.sessionRepo.FindByIDForTenant(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizedRepository(ctx, tenantID, session.RepositoryID, actor); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) authorizedRepository(ctx context.Context, tenantID, repositoryID uuid.UUID, actor Actor) (*vault.Repository, error) {
	repo, err := s.repoRepo.FindByIDForTenant(ctx, tenantID, repositoryID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !repo.IsAuthorized(actor.UserID) {
		return nil, shared.NewDomainError(shared.ErrForbidden.Code, "You are not authorized on this repository")
	}
	return repo, nil
}

func (s *SessionService) stackTemplates(ctx context.Context, tenantID, repositoryID uuid.UUID, currencyIDs []uuid.UUID) ([]float.StackTemplate, error) {
	if len(currencyIDs) == 0 {
		return nil, shared.NewDomainError("NO_CURRENCIES", "At least one currency is required to open the float")
	}
	currencies, err := s.currencyRepo.FindByIDs(ctx, tenantID, currencyIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*vault.Currency, len(currencies))
	for i := range currencies {
		byID[currencies[i].ID] = &currencies[i]
	}

	carry := map[uuid.UUID]map[uuid.UUID]int{}
	last, err := s.sessionRepo.FindLastClosedByRepository(ctx, tenantID, repositoryID)
	switch {
	case err == nil:
		carry = last.CarryForward()
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	templates := make([]float.StackTemplate, 0, len(currencyIDs))
	for _, id := range currencyIDs {
		c, ok := byID[id]
		if !ok {
			return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Currency "+id.String()+" not found")
		}
		if !c.IsActive() {
			return nil, shared.NewDomainError("CURRENCY_INACTIVE", "Currency "+c.Code+" is not active")
		}
		denoms := c.ActiveDenominations()
		refs := make([]float.DenominationRef, len(denoms))
		for i, d := range denoms {
			refs[i] = float.DenominationRef{ID: d.ID, Value: d.Value, Label: d.Label}
		}
		templates = append(templates, float.StackTemplate{
			CurrencyID:    c.ID,
			CurrencyCode:  c.Code,
			Denominations: refs,
			CarryForward:  carry[c.ID],
		})
	}
	return templates, nil
}
