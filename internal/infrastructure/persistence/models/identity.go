package models

import (
	"time"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// OrganizationModel is the persistence model for organizations (tenants)
type OrganizationModel struct {
	AggregateModel
	ExternalID   *string                     `gorm:"type:varchar(100);uniqueIndex:idx_organizations_external_id"`
	Name         string                      `gorm:"type:varchar(200);not null"`
	Slug         string                      `gorm:"type:varchar(64);not null;uniqueIndex:idx_organizations_slug"`
	ImageURL     string                      `gorm:"type:varchar(500)"`
	BaseCurrency string                      `gorm:"type:varchar(10);not null;default:'USD'"`
	Status       identity.OrganizationStatus `gorm:"type:varchar(20);not null;default:'active';index"`
}

// TableName returns the table name for GORM
func (OrganizationModel) TableName() string {
	return "organizations"
}

// ToDomain converts the model to a domain Organization
func (m *OrganizationModel) ToDomain() *identity.Organization {
	org := &identity.Organization{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		Slug:              m.Slug,
		ImageURL:          m.ImageURL,
		BaseCurrency:      m.BaseCurrency,
		Status:            m.Status,
	}
	if m.ExternalID != nil {
		org.ExternalID = *m.ExternalID
	}
	return org
}

// OrganizationModelFromDomain creates a model from a domain Organization
func OrganizationModelFromDomain(o *identity.Organization) *OrganizationModel {
	m := &OrganizationModel{
		Name:         o.Name,
		Slug:         o.Slug,
		ImageURL:     o.ImageURL,
		BaseCurrency: o.BaseCurrency,
		Status:       o.Status,
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.ExternalID = nullableString(o.ExternalID)
	return m
}

// UserModel is the persistence model for users mirrored from the identity provider
type UserModel struct {
	AggregateModel
	ExternalID string              `gorm:"type:varchar(100);not null;uniqueIndex:idx_users_external_id"`
	Email      string              `gorm:"type:varchar(200);not null;index"`
	FirstName  string              `gorm:"type:varchar(100)"`
	LastName   string              `gorm:"type:varchar(100)"`
	ImageURL   string              `gorm:"type:varchar(500)"`
	Status     identity.UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	LastSeenAt *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ExternalID:        m.ExternalID,
		Email:             m.Email,
		FirstName:         m.FirstName,
		LastName:          m.LastName,
		ImageURL:          m.ImageURL,
		Status:            m.Status,
		LastSeenAt:        m.LastSeenAt,
	}
}

// UserModelFromDomain creates a model from a domain User
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		ExternalID: u.ExternalID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		ImageURL:   u.ImageURL,
		Status:     u.Status,
		LastSeenAt: u.LastSeenAt,
	}
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	return m
}

// MembershipModel is the persistence model for organization memberships
type MembershipModel struct {
	BaseModel
	OrganizationID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_org_user,priority:1"`
	UserID         uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_org_user,priority:2;index"`
	ExternalID     *string       `gorm:"type:varchar(100);uniqueIndex:idx_memberships_external_id"`
	Role           identity.Role `gorm:"type:varchar(20);not null;default:'member'"`
}

// TableName returns the table name for GORM
func (MembershipModel) TableName() string {
	return "memberships"
}

// ToDomain converts the model to a domain Membership
func (m *MembershipModel) ToDomain() *identity.Membership {
	ms := &identity.Membership{
		BaseEntity:     m.BaseModel.ToDomain(),
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		Role:           m.Role,
	}
	if m.ExternalID != nil {
		ms.ExternalID = *m.ExternalID
	}
	return ms
}

// MembershipModelFromDomain creates a model from a domain Membership
func MembershipModelFromDomain(ms *identity.Membership) *MembershipModel {
	m := &MembershipModel{
		OrganizationID: ms.OrganizationID,
		UserID:         ms.UserID,
		ExternalID:     nullableString(ms.ExternalID),
		Role:           ms.Role,
	}
	m.FromDomainBaseEntity(ms.BaseEntity)
	return m
}

// nullableString keeps empty provider ids out of unique indexes
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
