package identity

import (
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constants
const (
	AggregateTypeOrganization = "Organization"
	AggregateTypeUser         = "User"
)

// Event type constants
const (
	EventTypeOrganizationCreated     = "OrganizationCreated"
	EventTypeOrganizationUpdated     = "OrganizationUpdated"
	EventTypeOrganizationDeactivated = "OrganizationDeactivated"
	EventTypeUserSynced              = "UserSynced"
	EventTypeMembershipChanged       = "MembershipChanged"
)

// OrganizationCreatedEvent is published when an organization is created
type OrganizationCreatedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// NewOrganizationCreatedEvent creates a new OrganizationCreatedEvent
func NewOrganizationCreatedEvent(org *Organization) *OrganizationCreatedEvent {
	return &OrganizationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrganizationCreated, AggregateTypeOrganization, org.ID, org.ID),
		Name:            org.Name,
		Slug:            org.Slug,
	}
}

// OrganizationUpdatedEvent is published when an organization's profile changes
type OrganizationUpdatedEvent struct {
	shared.BaseDomainEvent
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	BaseCurrency string `json:"base_currency"`
}

// NewOrganizationUpdatedEvent creates a new OrganizationUpdatedEvent
func NewOrganizationUpdatedEvent(org *Organization) *OrganizationUpdatedEvent {
	return &OrganizationUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrganizationUpdated, AggregateTypeOrganization, org.ID, org.ID),
		Name:            org.Name,
		Slug:            org.Slug,
		BaseCurrency:    org.BaseCurrency,
	}
}

// OrganizationDeactivatedEvent is published when an organization is deleted at the provider
type OrganizationDeactivatedEvent struct {
	shared.BaseDomainEvent
	Slug string `json:"slug"`
}

// NewOrganizationDeactivatedEvent creates a new OrganizationDeactivatedEvent
func NewOrganizationDeactivatedEvent(org *Organization) *OrganizationDeactivatedEvent {
	return &OrganizationDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrganizationDeactivated, AggregateTypeOrganization, org.ID, org.ID),
		Slug:            org.Slug,
	}
}

// UserSyncedEvent is published when a user is created or its profile changes
type UserSyncedEvent struct {
	shared.BaseDomainEvent
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
}

// NewUserSyncedEvent creates a new UserSyncedEvent. Users are not tenant scoped.
func NewUserSyncedEvent(u *User) *UserSyncedEvent {
	return &UserSyncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserSynced, AggregateTypeUser, u.ID, uuid.Nil),
		ExternalID:      u.ExternalID,
		Email:           u.Email,
	}
}

// MembershipAction describes what happened to a membership
type MembershipAction string

const (
	MembershipAdded       MembershipAction = "added"
	MembershipRoleChanged MembershipAction = "role_changed"
	MembershipRemoved     MembershipAction = "removed"
)

// MembershipChangedEvent is published when a user joins, leaves or changes role
type MembershipChangedEvent struct {
	shared.BaseDomainEvent
	UserID uuid.UUID        `json:"user_id"`
	Role   Role             `json:"role"`
	Action MembershipAction `json:"action"`
}

// NewMembershipChangedEvent creates a new MembershipChangedEvent
func NewMembershipChangedEvent(m *Membership, action MembershipAction) *MembershipChangedEvent {
	return &MembershipChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMembershipChanged, AggregateTypeOrganization, m.OrganizationID, m.OrganizationID),
		UserID:          m.UserID,
		Role:            m.Role,
		Action:          action,
	}
}
