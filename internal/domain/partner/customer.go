package partner

import (
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// KYCStatus is the customer's know-your-customer verification status
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "PENDING"
	KYCStatusVerified KYCStatus = "VERIFIED"
	KYCStatusRejected KYCStatus = "REJECTED"
)

// RiskLevel is the compliance risk assigned at verification
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// IsValid checks if the risk level is valid
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh:
		return true
	}
	return false
}

var (
	phonePattern   = regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

// Customer is a person who exchanges currency with the organization
type Customer struct {
	shared.TenantAggregateRoot
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	DateOfBirth     *time.Time
	Nationality     string
	Occupation      string
	Address         valueobject.Address
	KYCStatus       KYCStatus
	RiskLevel       RiskLevel
	RejectionReason string
	VerifiedAt      *time.Time
	VerifiedBy      *uuid.UUID
	Identifications []Identification
}

// NewCustomer creates a customer pending verification
func NewCustomer(tenantID uuid.UUID, firstName, lastName string) (*Customer, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if err := validatePersonName(firstName, lastName); err != nil {
		return nil, err
	}

	c := &Customer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		FirstName:           firstName,
		LastName:            lastName,
		KYCStatus:           KYCStatusPending,
		RiskLevel:           RiskLevelLow,
		Identifications:     make([]Identification, 0),
	}
	c.AddDomainEvent(NewCustomerCreatedEvent(c))
	return c, nil
}

// FullName returns "First Last"
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// UpdateName changes the customer's legal name
func (c *Customer) UpdateName(firstName, lastName string) error {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if err := validatePersonName(firstName, lastName); err != nil {
		return err
	}
	c.FirstName = firstName
	c.LastName = lastName
	c.IncrementVersion()
	return nil
}

// SetContact sets email and phone; empty values clear them
func (c *Customer) SetContact(email, phone string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)
	if email != "" {
		if len(email) > 200 {
			return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
		}
		if _, err := mail.ParseAddress(email); err != nil {
			return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
		}
	}
	if phone != "" {
		if len(phone) > 50 || !phonePattern.MatchString(phone) {
			return shared.NewDomainError("INVALID_PHONE", "Invalid phone number format")
		}
	}
	c.Email = email
	c.Phone = phone
	c.IncrementVersion()
	return nil
}

// SetPersonalDetails sets date of birth, nationality and occupation
func (c *Customer) SetPersonalDetails(dob *time.Time, nationality, occupation string) error {
	nationality = strings.ToUpper(strings.TrimSpace(nationality))
	if nationality != "" && !countryPattern.MatchString(nationality) {
		return shared.NewDomainError("INVALID_NATIONALITY", "Nationality must be a two-letter ISO 3166 code")
	}
	if dob != nil && dob.After(time.Now()) {
		return shared.NewDomainError("INVALID_DATE_OF_BIRTH", "Date of birth cannot be in the future")
	}
	if len(occupation) > 100 {
		return shared.NewDomainError("INVALID_OCCUPATION", "Occupation cannot exceed 100 characters")
	}
	c.DateOfBirth = dob
	c.Nationality = nationality
	c.Occupation = strings.TrimSpace(occupation)
	c.IncrementVersion()
	return nil
}

// SetAddress replaces the customer's address
func (c *Customer) SetAddress(addr valueobject.Address) {
	c.Address = addr
	c.IncrementVersion()
}

// AddIdentification adds an identity document. The first one becomes primary.
func (c *Customer) AddIdentification(idType IdentificationType, number, issuingCountry string, issueDate, expiryDate *time.Time) (*Identification, error) {
	ident, err := NewIdentification(c.ID, idType, number, issuingCountry, issueDate, expiryDate)
	if err != nil {
		return nil, err
	}
	for _, existing := range c.Identifications {
		if existing.Type == ident.Type && existing.Number == ident.Number && existing.IssuingCountry == ident.IssuingCountry {
			return nil, shared.NewDomainError("IDENTIFICATION_EXISTS", "This identification is already on file")
		}
	}
	ident.Primary = len(c.Identifications) == 0
	c.Identifications = append(c.Identifications, *ident)
	c.IncrementVersion()
	return ident, nil
}

// RemoveIdentification removes an identification. If the primary one is removed
// the next remaining identification is promoted. A verified customer left without
// a valid identification falls back to pending.
func (c *Customer) RemoveIdentification(id uuid.UUID) error {
	idx := c.identificationIndex(id)
	if idx < 0 {
		return shared.NewDomainError("IDENTIFICATION_NOT_FOUND", "Identification not found")
	}
	wasPrimary := c.Identifications[idx].Primary
	c.Identifications = slices.Delete(c.Identifications, idx, idx+1)
	if wasPrimary && len(c.Identifications) > 0 {
		c.Identifications[0].Primary = true
	}
	if c.KYCStatus == KYCStatusVerified && !c.HasValidIdentification(time.Now()) {
		c.KYCStatus = KYCStatusPending
		c.VerifiedAt = nil
		c.VerifiedBy = nil
	}
	c.IncrementVersion()
	return nil
}

// SetPrimaryIdentification marks one identification as primary
func (c *Customer) SetPrimaryIdentification(id uuid.UUID) error {
	idx := c.identificationIndex(id)
	if idx < 0 {
		return shared.NewDomainError("IDENTIFICATION_NOT_FOUND", "Identification not found")
	}
	for i := range c.Identifications {
		c.Identifications[i].Primary = i == idx
	}
	c.IncrementVersion()
	return nil
}

// AttachDocument records the object storage key of a scanned document
func (c *Customer) AttachDocument(identificationID uuid.UUID, key string) error {
	idx := c.identificationIndex(identificationID)
	if idx < 0 {
		return shared.NewDomainError("IDENTIFICATION_NOT_FOUND", "Identification not found")
	}
	if strings.TrimSpace(key) == "" {
		return shared.NewDomainError("INVALID_DOCUMENT_KEY", "Document key cannot be empty")
	}
	c.Identifications[idx].DocumentKey = key
	c.IncrementVersion()
	return nil
}

// Identification returns the identification with the given ID
func (c *Customer) Identification(id uuid.UUID) (*Identification, error) {
	idx := c.identificationIndex(id)
	if idx < 0 {
		return nil, shared.NewDomainError("IDENTIFICATION_NOT_FOUND", "Identification not found")
	}
	return &c.Identifications[idx], nil
}

// PrimaryIdentification returns the primary identification, if any
func (c *Customer) PrimaryIdentification() *Identification {
	for i := range c.Identifications {
		if c.Identifications[i].Primary {
			return &c.Identifications[i]
		}
	}
	return nil
}

// HasValidIdentification reports whether any identification is unexpired at the given time
func (c *Customer) HasValidIdentification(at time.Time) bool {
	for _, ident := range c.Identifications {
		if !ident.IsExpired(at) {
			return true
		}
	}
	return false
}

// Verify marks the customer as KYC verified with the assessed risk level
func (c *Customer) Verify(risk RiskLevel, verifiedBy uuid.UUID, at time.Time) error {
	if c.KYCStatus == KYCStatusVerified {
		return shared.NewDomainError("INVALID_KYC_TRANSITION", "Customer is already verified")
	}
	if !risk.IsValid() {
		return shared.NewDomainError("INVALID_RISK_LEVEL", "Risk level must be LOW, MEDIUM or HIGH")
	}
	if !c.HasValidIdentification(at) {
		return shared.NewDomainError("IDENTIFICATION_REQUIRED", "At least one unexpired identification is required for verification")
	}

	old := c.KYCStatus
	c.KYCStatus = KYCStatusVerified
	c.RiskLevel = risk
	c.RejectionReason = ""
	c.VerifiedAt = &at
	c.VerifiedBy = &verifiedBy
	c.IncrementVersion()
	c.AddDomainEvent(NewCustomerKYCStatusChangedEvent(c, old))
	return nil
}

// Reject marks the customer as rejected. Rejected customers cannot trade.
func (c *Customer) Reject(reason string) error {
	if c.KYCStatus == KYCStatusRejected {
		return shared.NewDomainError("INVALID_KYC_TRANSITION", "Customer is already rejected")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}
	if len(reason) > 500 {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason cannot exceed 500 characters")
	}

	old := c.KYCStatus
	c.KYCStatus = KYCStatusRejected
	c.RejectionReason = reason
	c.VerifiedAt = nil
	c.VerifiedBy = nil
	c.IncrementVersion()
	c.AddDomainEvent(NewCustomerKYCStatusChangedEvent(c, old))
	return nil
}

// IsVerified returns true if the customer passed KYC
func (c *Customer) IsVerified() bool {
	return c.KYCStatus == KYCStatusVerified
}

// CanTrade returns an error if the customer may not be party to an order.
// requireVerified is set when the order is above the KYC threshold.
func (c *Customer) CanTrade(requireVerified bool) error {
	if c.KYCStatus == KYCStatusRejected {
		return shared.NewDomainError("CUSTOMER_REJECTED", "Customer failed KYC and cannot trade")
	}
	if requireVerified && c.KYCStatus != KYCStatusVerified {
		return shared.NewDomainError("KYC_REQUIRED", "Customer must be KYC verified for this amount")
	}
	return nil
}

func (c *Customer) identificationIndex(id uuid.UUID) int {
	return slices.IndexFunc(c.Identifications, func(i Identification) bool { return i.ID == id })
}

func validatePersonName(first, last string) error {
	if first == "" || last == "" {
		return shared.NewDomainError("INVALID_NAME", "First and last name are required")
	}
	if len(first) > 100 || len(last) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Names cannot exceed 100 characters")
	}
	return nil
}
