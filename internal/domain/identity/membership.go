package identity

import (
	"strings"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Role is a user's role within one organization
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole accepts both plain role names and the provider's "org:" prefixed form
func ParseRole(s string) (Role, error) {
	switch Role(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "org:")) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	}
	return "", shared.NewDomainError("INVALID_ROLE", "Role must be admin or member")
}

// ProviderRole returns the role key used by the identity provider
func (r Role) ProviderRole() string {
	return "org:" + string(r)
}

// Membership links a user to an organization with a role
type Membership struct {
	shared.BaseEntity
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	ExternalID     string
	Role           Role
}

// NewMembership creates a membership
func NewMembership(orgID, userID uuid.UUID, role Role) (*Membership, error) {
	if orgID == uuid.Nil || userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEMBERSHIP", "Organization and user are required")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	return &Membership{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	}, nil
}

// IsAdmin returns true for organization admins
func (m *Membership) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// ChangeRole updates the role. Use EnsureAdminRemains before demoting.
func (m *Membership) ChangeRole(role Role) error {
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	m.Role = role
	return nil
}

// EnsureAdminRemains fails if applying newRole to userID (nil meaning removal)
// would leave the organization without an admin.
func EnsureAdminRemains(members []Membership, userID uuid.UUID, newRole *Role) error {
	admins := 0
	targetIsAdmin := false
	for _, m := range members {
		if !m.IsAdmin() {
			continue
		}
		admins++
		if m.UserID == userID {
			targetIsAdmin = true
		}
	}
	if !targetIsAdmin {
		return nil
	}
	if newRole != nil && *newRole == RoleAdmin {
		return nil
	}
	if admins <= 1 {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "An organization must keep at least one admin")
	}
	return nil
}
