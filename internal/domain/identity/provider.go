package identity

import "context"

// ProviderOrganization is an organization as the identity provider reports it
type ProviderOrganization struct {
	ID       string
	Name     string
	Slug     string
	ImageURL string
}

// ProviderMembership is an organization membership as the identity provider reports it
type ProviderMembership struct {
	ID             string
	OrganizationID string
	UserID         string
	Role           Role
	Email          string
	FirstName      string
	LastName       string
	ImageURL       string
}

// ProviderOrganizationInput carries the mutable organization fields sent to the provider
type ProviderOrganizationInput struct {
	Name      string
	Slug      string
	CreatedBy string
}

// Provider is the identity provider's management API.
// All IDs are provider-side external IDs.
type Provider interface {
	CreateOrganization(ctx context.Context, in ProviderOrganizationInput) (*ProviderOrganization, error)
	UpdateOrganization(ctx context.Context, orgID string, in ProviderOrganizationInput) (*ProviderOrganization, error)
	DeleteOrganization(ctx context.Context, orgID string) error

	ListMemberships(ctx context.Context, orgID string) ([]ProviderMembership, error)
	CreateMembership(ctx context.Context, orgID, userID string, role Role) (*ProviderMembership, error)
	UpdateMembership(ctx context.Context, orgID, userID string, role Role) (*ProviderMembership, error)
	DeleteMembership(ctx context.Context, orgID, userID string) error

	// SetActiveOrganization switches the organization later session tokens are minted for
	SetActiveOrganization(ctx context.Context, sessionID, orgID string) error
}
