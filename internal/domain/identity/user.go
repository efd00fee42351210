package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
)

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User mirrors an identity provider account. Credentials live at the provider;
// the local record exists for membership, authorization and audit.
type User struct {
	shared.BaseAggregateRoot
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	ImageURL   string
	Status     UserStatus
	LastSeenAt *time.Time
}

// NewUser creates a user linked to a provider account
func NewUser(externalID, email string) (*User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External ID cannot be empty")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ExternalID:        externalID,
		Email:             email,
		Status:            UserStatusActive,
	}
	user.AddDomainEvent(NewUserSyncedEvent(user))
	return user, nil
}

// UpdateProfile replaces the user's profile fields
func (u *User) UpdateProfile(email, firstName, lastName, imageURL string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return err
	}
	if len(firstName) > 100 || len(lastName) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Names cannot exceed 100 characters")
	}

	u.Email = email
	u.FirstName = strings.TrimSpace(firstName)
	u.LastName = strings.TrimSpace(lastName)
	u.ImageURL = imageURL
	u.IncrementVersion()
	u.AddDomainEvent(NewUserSyncedEvent(u))
	return nil
}

// Disable prevents the user from acting in any organization
func (u *User) Disable() {
	if u.Status == UserStatusDisabled {
		return
	}
	u.Status = UserStatusDisabled
	u.IncrementVersion()
}

// Enable re-enables a disabled user
func (u *User) Enable() {
	if u.Status == UserStatusActive {
		return
	}
	u.Status = UserStatusActive
	u.IncrementVersion()
}

// Touch records that the user was seen at the given time
func (u *User) Touch(at time.Time) {
	u.LastSeenAt = &at
}

// IsActive returns true if the user is active
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// FullName returns "First Last", falling back to the email
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
