package identity

import (
	"context"
	"errors"
	"time"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseCurrencySeeder keeps an organization's base currency record in step
// with Organization.BaseCurrency.
type BaseCurrencySeeder interface {
	EnsureBaseCurrency(ctx context.Context, tenantID uuid.UUID, code string) error
	ReplaceBaseCurrency(ctx context.Context, tenantID uuid.UUID, code string) error
}

// SessionRevoker invalidates provider sessions ahead of token expiry
type SessionRevoker interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
}

// OrganizationService manages organizations, users and memberships.
// Writes go to the identity provider first and are mirrored locally.
type OrganizationService struct {
	orgRepo     identity.OrganizationRepository
	userRepo    identity.UserRepository
	memberRepo  identity.MembershipRepository
	provider    identity.Provider
	currencies  BaseCurrencySeeder
	idempotency shared.IdempotencyStore
	revocations SessionRevoker
	publisher   shared.EventPublisher
	tx          shared.Transactor
	logger      *zap.Logger
}

// OrganizationServiceOption configures optional collaborators
type OrganizationServiceOption func(*OrganizationService)

// WithEventPublisher publishes identity events after each write
func WithEventPublisher(p shared.EventPublisher) OrganizationServiceOption {
	return func(s *OrganizationService) { s.publisher = p }
}

// WithSessionRevoker revokes sessions reported as ended by the provider
func WithSessionRevoker(r SessionRevoker) OrganizationServiceOption {
	return func(s *OrganizationService) { s.revocations = r }
}

// WithTransactor makes the local organization writes commit together
func WithTransactor(tx shared.Transactor) OrganizationServiceOption {
	return func(s *OrganizationService) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) OrganizationServiceOption {
	return func(s *OrganizationService) { s.logger = l }
}

// NewOrganizationService creates a new OrganizationService
func NewOrganizationService(
	orgRepo identity.OrganizationRepository,
	userRepo identity.UserRepository,
	memberRepo identity.MembershipRepository,
	provider identity.Provider,
	currencies BaseCurrencySeeder,
	idempotency shared.IdempotencyStore,
	opts ...OrganizationServiceOption,
) *OrganizationService {
	s := &OrganizationService{
		orgRepo:     orgRepo,
		userRepo:    userRepo,
		memberRepo:  memberRepo,
		provider:    provider,
		currencies:  currencies,
		idempotency: idempotency,
		tx:          shared.NoTransaction,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrganization creates the organization at the provider, mirrors it locally
// and makes the creator its first admin.
func (s *OrganizationService) CreateOrganization(ctx context.Context, creatorID uuid.UUID, req CreateOrganizationRequest) (*OrganizationResponse, error) {
	creator, err := s.userRepo.FindByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	org, err := identity.NewOrganization(req.Name, req.Slug)
	if err != nil {
		return nil, err
	}
	if req.BaseCurrency != "" {
		if err := org.SetBaseCurrency(req.BaseCurrency); err != nil {
			return nil, err
		}
	}

	exists, err := s.orgRepo.ExistsBySlug(ctx, org.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "Organization with this slug already exists")
	}

	remote, err := s.provider.CreateOrganization(ctx, identity.ProviderOrganizationInput{
		Name:      org.Name,
		Slug:      org.Slug,
		CreatedBy: creator.ExternalID,
	})
	if err != nil {
		return nil, err
	}
	if err := org.LinkExternal(remote.ID); err != nil {
		return nil, err
	}

	membership, err := identity.NewMembership(org.ID, creator.ID, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.orgRepo.Save(ctx, org); err != nil {
			return err
		}
		if err := s.memberRepo.Save(ctx, membership); err != nil {
			return err
		}
		return s.currencies.EnsureBaseCurrency(ctx, org.ID, org.BaseCurrency)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, org)
	s.publishEvents(ctx, identity.NewMembershipChangedEvent(membership, identity.MembershipAdded))

	resp := ToOrganizationResponse(org)
	resp.Role = string(identity.RoleAdmin)
	return &resp, nil
}

// UpdateOrganization applies a partial update at the provider and locally
func (s *OrganizationService) UpdateOrganization(ctx context.Context, orgID uuid.UUID, req UpdateOrganizationRequest) (*OrganizationResponse, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !org.IsActive() {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "Organization is inactive")
	}

	name, slug := org.Name, org.Slug
	if req.Name != nil {
		name = *req.Name
	}
	if req.Slug != nil {
		slug = *req.Slug
	}
	identityChanged := name != org.Name || slug != org.Slug
	if identityChanged {
		if slug != org.Slug {
			existing, err := s.orgRepo.FindBySlug(ctx, slug)
			if err != nil && !isNotFound(err) {
				return nil, err
			}
			if existing != nil && existing.ID != org.ID {
				return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "Organization with this slug already exists")
			}
		}
		if err := org.Update(name, slug); err != nil {
			return nil, err
		}
	}
	if req.ImageURL != nil {
		if err := org.SetImageURL(*req.ImageURL); err != nil {
			return nil, err
		}
	}

	previousBase := org.BaseCurrency
	if req.BaseCurrency != nil {
		if err := org.SetBaseCurrency(*req.BaseCurrency); err != nil {
			return nil, err
		}
	}

	if identityChanged && org.ExternalID != "" {
		if _, err := s.provider.UpdateOrganization(ctx, org.ExternalID, identity.ProviderOrganizationInput{
			Name: org.Name,
			Slug: org.Slug,
		}); err != nil {
			return nil, err
		}
	}

	// the currencies table and org.BaseCurrency must agree
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if org.BaseCurrency != previousBase {
			if err := s.currencies.ReplaceBaseCurrency(ctx, org.ID, org.BaseCurrency); err != nil {
				return err
			}
		}
		return s.orgRepo.Save(ctx, org)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, org)

	resp := ToOrganizationResponse(org)
	return &resp, nil
}

// DeleteOrganization deletes the organization at the provider and deactivates the local record
func (s *OrganizationService) DeleteOrganization(ctx context.Context, orgID uuid.UUID) error {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return err
	}
	if !org.IsActive() {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Organization is already deleted")
	}

	if org.ExternalID != "" {
		if err := s.provider.DeleteOrganization(ctx, org.ExternalID); err != nil && !isNotFound(err) {
			return err
		}
	}

	if err := org.Deactivate(); err != nil {
		return err
	}
	if err := s.orgRepo.Save(ctx, org); err != nil {
		return err
	}
	s.publish(ctx, org)
	return nil
}

// GetOrganization returns one organization
func (s *OrganizationService) GetOrganization(ctx context.Context, orgID uuid.UUID) (*OrganizationResponse, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	resp := ToOrganizationResponse(org)
	return &resp, nil
}

// ListOrganizationsForUser returns the active organizations a user belongs to, with their role
func (s *OrganizationService) ListOrganizationsForUser(ctx context.Context, userID uuid.UUID) ([]OrganizationResponse, error) {
	memberships, err := s.memberRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []OrganizationResponse{}, nil
	}

	roles := make(map[uuid.UUID]identity.Role, len(memberships))
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		roles[m.OrganizationID] = m.Role
		ids = append(ids, m.OrganizationID)
	}

	orgs, err := s.orgRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]OrganizationResponse, 0, len(orgs))
	for i := range orgs {
		if !orgs[i].IsActive() {
			continue
		}
		resp := ToOrganizationResponse(&orgs[i])
		resp.Role = string(roles[orgs[i].ID])
		result = append(result, resp)
	}
	return result, nil
}

// ListMembers returns the organization's members joined with their user records
func (s *OrganizationService) ListMembers(ctx context.Context, orgID uuid.UUID) ([]MemberResponse, error) {
	memberships, err := s.memberRepo.FindByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		userIDs = append(userIDs, m.UserID)
	}
	users, err := s.userRepo.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*identity.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	result := make([]MemberResponse, 0, len(memberships))
	for _, m := range memberships {
		result = append(result, ToMemberResponse(m, byID[m.UserID]))
	}
	return result, nil
}

// AddMember adds a known provider user to the organization
func (s *OrganizationService) AddMember(ctx context.Context, orgID uuid.UUID, req AddMemberRequest) (*MemberResponse, error) {
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	org, err := s.activeOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByExternalID(ctx, req.UserExternalID)
	if err != nil {
		return nil, err
	}

	existing, err := s.memberRepo.Find(ctx, org.ID, user.ID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "User is already a member of this organization")
	}

	remote, err := s.provider.CreateMembership(ctx, org.ExternalID, user.ExternalID, role)
	if err != nil {
		return nil, err
	}

	membership, err := identity.NewMembership(org.ID, user.ID, role)
	if err != nil {
		return nil, err
	}
	membership.ExternalID = remote.ID
	if err := s.memberRepo.Save(ctx, membership); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, identity.NewMembershipChangedEvent(membership, identity.MembershipAdded))

	resp := ToMemberResponse(*membership, user)
	return &resp, nil
}

// UpdateMemberRole changes a member's role. The last admin cannot be demoted.
func (s *OrganizationService) UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, req UpdateMemberRoleRequest) (*MemberResponse, error) {
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	org, err := s.activeOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	membership, err := s.memberRepo.Find(ctx, org.ID, userID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if membership.Role == role {
		resp := ToMemberResponse(*membership, user)
		return &resp, nil
	}

	members, err := s.memberRepo.FindByOrganization(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	if err := identity.EnsureAdminRemains(members, userID, &role); err != nil {
		return nil, err
	}

	if _, err := s.provider.UpdateMembership(ctx, org.ExternalID, user.ExternalID, role); err != nil {
		return nil, err
	}
	if err := membership.ChangeRole(role); err != nil {
		return nil, err
	}
	if err := s.memberRepo.Save(ctx, membership); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, identity.NewMembershipChangedEvent(membership, identity.MembershipRoleChanged))

	resp := ToMemberResponse(*membership, user)
	return &resp, nil
}

// RemoveMember removes a user from the organization. The last admin cannot be removed.
func (s *OrganizationService) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	org, err := s.activeOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	membership, err := s.memberRepo.Find(ctx, org.ID, userID)
	if err != nil {
		return err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	members, err := s.memberRepo.FindByOrganization(ctx, org.ID)
	if err != nil {
		return err
	}
	if err := identity.EnsureAdminRemains(members, userID, nil); err != nil {
		return err
	}

	if err := s.provider.DeleteMembership(ctx, org.ExternalID, user.ExternalID); err != nil && !isNotFound(err) {
		return err
	}
	if err := s.memberRepo.Delete(ctx, org.ID, userID); err != nil {
		return err
	}
	s.publishEvents(ctx, identity.NewMembershipChangedEvent(membership, identity.MembershipRemoved))
	return nil
}

// SetActiveOrganization switches the organization carried by the caller's session tokens
func (s *OrganizationService) SetActiveOrganization(ctx context.Context, userID uuid.UUID, sessionID string, orgID uuid.UUID) (*OrganizationResponse, error) {
	if sessionID == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Session ID is required")
	}
	org, err := s.activeOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	membership, err := s.memberRepo.Find(ctx, org.ID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, shared.NewDomainError(shared.ErrForbidden.Code, "You are not a member of this organization")
		}
		return nil, err
	}

	if err := s.provider.SetActiveOrganization(ctx, sessionID, org.ExternalID); err != nil {
		return nil, err
	}

	resp := ToOrganizationResponse(org)
	resp.Role = string(membership.Role)
	return &resp, nil
}

func (s *OrganizationService) activeOrganization(ctx context.Context, orgID uuid.UUID) (*identity.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !org.IsActive() {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "Organization is inactive")
	}
	return org, nil
}

func (s *OrganizationService) publish(ctx context.Context, agg shared.AggregateRoot) {
	if err := shared.PublishAndClear(ctx, s.publisher, agg); err != nil {
		s.logger.Warn("failed to publish identity events", zap.Error(err))
	}
}

func (s *OrganizationService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish identity events", zap.Error(err))
	}
}

func isNotFound(err error) bool {
	if errors.Is(err, shared.ErrNotFound) {
		return true
	}
	de, ok := shared.AsDomainError(err)
	return ok && de.Code == shared.ErrNotFound.Code
}

// ActiveTenantIDs lists every active organization, for scheduled per-tenant jobs
func (s *OrganizationService) ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	const pageSize = 200
	ids := make([]uuid.UUID, 0)
	for page := 1; ; page++ {
		filter := shared.DefaultFilter()
		filter.Page = page
		filter.PageSize = pageSize
		filter.OrderBy = "created_at"
		filter.OrderDir = "asc"
		orgs, err := s.orgRepo.FindActive(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, o := range orgs {
			ids = append(ids, o.ID)
		}
		if len(orgs) < pageSize {
			return ids, nil
		}
	}
}
