package vault

import (
	"context"
	"sync"
	"time"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockRepositoryRepository struct {
	mock.Mock
}

func (m *MockRepositoryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*vault.Repository, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vault.Repository), args.Error(1)
}

func (m *MockRepositoryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]vault.Repository, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]vault.Repository), args.Error(1)
}

func (m *MockRepositoryRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepositoryRepository) Save(ctx context.Context, repo *vault.Repository) error {
	return m.Called(ctx, repo).Error(0)
}

func (m *MockRepositoryRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockRepositoryRepository) FindByKey(ctx context.Context, tenantID uuid.UUID, key string) (*vault.Repository, error) {
	args := m.Called(ctx, tenantID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vault.Repository), args.Error(1)
}

func (m *MockRepositoryRepository) FindAuthorizedForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]vault.Repository, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Get(0).([]vault.Repository), args.Error(1)
}

func (m *MockRepositoryRepository) ExistsByKey(ctx context.Context, tenantID uuid.UUID, key string) (bool, error) {
	args := m.Called(ctx, tenantID, key)
	return args.Bool(0), args.Error(1)
}

type MockCurrencyRepository struct {
	mock.Mock
}

func (m *MockCurrencyRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*vault.Currency, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vault.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]vault.Currency, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]vault.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCurrencyRepository) Save(ctx context.Context, c *vault.Currency) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCurrencyRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockCurrencyRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*vault.Currency, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vault.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]vault.Currency, error) {
	args := m.Called(ctx, tenantID, ids)
	return args.Get(0).([]vault.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) FindByRateSource(ctx context.Context, tenantID uuid.UUID, source vault.RateSource) ([]vault.Currency, error) {
	args := m.Called(ctx, tenantID, source)
	return args.Get(0).([]vault.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) FindBase(ctx context.Context, tenantID uuid.UUID) (*vault.Currency, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vault.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	args := m.Called(ctx, tenantID, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockCurrencyRepository) UpdateRates(ctx context.Context, tenantID uuid.UUID, currencies []vault.Currency, at time.Time) error {
	return m.Called(ctx, tenantID, currencies, at).Error(0)
}

type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Find(ctx context.Context, orgID, userID uuid.UUID) (*identity.Membership, error) {
	args := m.Called(ctx, orgID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Membership), args.Error(1)
}

func (m *MockMembershipRepository) FindByExternalID(ctx context.Context, externalID string) (*identity.Membership, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Membership), args.Error(1)
}

func (m *MockMembershipRepository) FindByOrganization(ctx context.Context, orgID uuid.UUID) ([]identity.Membership, error) {
	args := m.Called(ctx, orgID)
	return args.Get(0).([]identity.Membership), args.Error(1)
}

func (m *MockMembershipRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]identity.Membership, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]identity.Membership), args.Error(1)
}

func (m *MockMembershipRepository) Save(ctx context.Context, membership *identity.Membership) error {
	return m.Called(ctx, membership).Error(0)
}

func (m *MockMembershipRepository) Delete(ctx context.Context, orgID, userID uuid.UUID) error {
	return m.Called(ctx, orgID, userID).Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByExternalID(ctx context.Context, externalID string) (*identity.User, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]identity.User, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) FindByExternalID(ctx context.Context, externalID string) (*identity.Organization, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) FindBySlug(ctx context.Context, slug string) (*identity.Organization, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]identity.Organization, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) FindActive(ctx context.Context, filter shared.Filter) ([]identity.Organization, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) Save(ctx context.Context, org *identity.Organization) error {
	return m.Called(ctx, org).Error(0)
}

func (m *MockOrganizationRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) Latest(ctx context.Context, base string) (vault.RateTable, error) {
	args := m.Called(ctx, base)
	return args.Get(0).(vault.RateTable), args.Error(1)
}

type stubSessions struct {
	active bool
}

func (s stubSessions) HasActiveSession(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return s.active, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func domainCode(err error) string {
	if de, ok := shared.AsDomainError(err); ok {
		return de.Code
	}
	return ""
}
