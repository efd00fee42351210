package identity

import (
	"context"
	"time"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// lastSeenResolution limits how often a user's LastSeenAt is written
const lastSeenResolution = 5 * time.Minute

// PrincipalQuery identifies the caller and the organization they act in.
// OrgExternalID comes from the token's organization claim; TenantID is the
// X-Tenant-ID fallback used when the token carries no organization.
type PrincipalQuery struct {
	UserExternalID string
	OrgExternalID  string
	TenantID       uuid.UUID
}

// ResolvePrincipal maps a verified token to local user, organization and role.
// A query without any organization resolves to a principal with a nil TenantID.
func (s *OrganizationService) ResolvePrincipal(ctx context.Context, q PrincipalQuery) (*Principal, error) {
	user, err := s.userRepo.FindByExternalID(ctx, q.UserExternalID)
	if err != nil {
		if isNotFound(err) {
			return nil, shared.NewDomainError(shared.ErrUnauthorized.Code, "User is not provisioned")
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, shared.NewDomainError(shared.ErrForbidden.Code, "User is disabled")
	}
	s.touch(ctx, user)

	p := &Principal{UserID: user.ID, UserExternalID: user.ExternalID}

	var org *identity.Organization
	switch {
	case q.OrgExternalID != "":
		org, err = s.orgRepo.FindByExternalID(ctx, q.OrgExternalID)
	case q.TenantID != uuid.Nil:
		org, err = s.orgRepo.FindByID(ctx, q.TenantID)
	default:
		return p, nil
	}
	if err != nil {
		if isNotFound(err) {
			return nil, shared.NewDomainError(shared.ErrForbidden.Code, "Organization not found")
		}
		return nil, err
	}
	if !org.IsActive() {
		return nil, shared.NewDomainError(shared.ErrForbidden.Code, "Organization is inactive")
	}

	membership, err := s.memberRepo.Find(ctx, org.ID, user.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, shared.NewDomainError(shared.ErrForbidden.Code, "You are not a member of this organization")
		}
		return nil, err
	}

	p.TenantID = org.ID
	p.Role = membership.Role
	return p, nil
}

func (s *OrganizationService) touch(ctx context.Context, user *identity.User) {
	now := time.Now()
	if user.LastSeenAt != nil && now.Sub(*user.LastSeenAt) < lastSeenResolution {
		return
	}
	user.Touch(now)
	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Debug("failed to record user last seen", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}
