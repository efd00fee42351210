package identity

import (
	"context"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrganizationRepository defines the interface for organization persistence
type OrganizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	FindByExternalID(ctx context.Context, externalID string) (*Organization, error)
	FindBySlug(ctx context.Context, slug string) (*Organization, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Organization, error)
	// FindActive pages through active organizations
	FindActive(ctx context.Context, filter shared.Filter) ([]Organization, error)
	Save(ctx context.Context, org *Organization) error
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByExternalID(ctx context.Context, externalID string) (*User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error)
	Save(ctx context.Context, user *User) error
}

// MembershipRepository defines the interface for membership persistence
type MembershipRepository interface {
	Find(ctx context.Context, orgID, userID uuid.UUID) (*Membership, error)
	FindByExternalID(ctx context.Context, externalID string) (*Membership, error)
	FindByOrganization(ctx context.Context, orgID uuid.UUID) ([]Membership, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error)
	Save(ctx context.Context, m *Membership) error
	Delete(ctx context.Context, orgID, userID uuid.UUID) error
}
