package identity

import (
	"time"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// CreateOrganizationRequest represents a request to create an organization
type CreateOrganizationRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=200"`
	Slug         string `json:"slug" binding:"omitempty,min=2,max=64"`
	BaseCurrency string `json:"base_currency" binding:"omitempty,len=3"`
}

// UpdateOrganizationRequest represents a partial organization update
type UpdateOrganizationRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=200"`
	Slug         *string `json:"slug" binding:"omitempty,min=2,max=64"`
	ImageURL     *string `json:"image_url" binding:"omitempty,max=500"`
	BaseCurrency *string `json:"base_currency" binding:"omitempty,len=3"`
}

// OrganizationResponse represents an organization in API responses
type OrganizationResponse struct {
	ID           uuid.UUID `json:"id"`
	ExternalID   string    `json:"external_id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	ImageURL     string    `json:"image_url,omitempty"`
	BaseCurrency string    `json:"base_currency"`
	Status       string    `json:"status"`
	Role         string    `json:"role,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AddMemberRequest adds a provider user to an organization
type AddMemberRequest struct {
	UserExternalID string `json:"user_external_id" binding:"required"`
	Role           string `json:"role" binding:"required,oneof=admin member org:admin org:member"`
}

// UpdateMemberRoleRequest changes a member's role
type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin member org:admin org:member"`
}

// MemberResponse represents a membership joined with its user
type MemberResponse struct {
	UserID         uuid.UUID `json:"user_id"`
	UserExternalID string    `json:"user_external_id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	ImageURL       string    `json:"image_url,omitempty"`
	Role           string    `json:"role"`
	JoinedAt       time.Time `json:"joined_at"`
}

// SetActiveOrganizationRequest switches the organization of the caller's session
type SetActiveOrganizationRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
}

// WebhookEvent is a verified provider delivery
type WebhookEvent struct {
	MessageID string
	Type      string
	Data      []byte
}

// Principal is the authenticated caller resolved to local records
type Principal struct {
	UserID         uuid.UUID
	UserExternalID string
	TenantID       uuid.UUID
	Role           identity.Role
}

// IsAdmin reports whether the caller administers the active organization
func (p Principal) IsAdmin() bool {
	return p.Role == identity.RoleAdmin
}

// ToOrganizationResponse converts a domain organization
func ToOrganizationResponse(o *identity.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:           o.ID,
		ExternalID:   o.ExternalID,
		Name:         o.Name,
		Slug:         o.Slug,
		ImageURL:     o.ImageURL,
		BaseCurrency: o.BaseCurrency,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// ToMemberResponse joins a membership with its user
func ToMemberResponse(m identity.Membership, u *identity.User) MemberResponse {
	r := MemberResponse{
		UserID:   m.UserID,
		Role:     string(m.Role),
		JoinedAt: m.CreatedAt,
	}
	if u != nil {
		r.UserExternalID = u.ExternalID
		r.Email = u.Email
		r.FirstName = u.FirstName
		r.LastName = u.LastName
		r.ImageURL = u.ImageURL
	}
	return r
}
