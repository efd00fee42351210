package partner

import (
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// IdentificationType is the kind of identity document
type IdentificationType string

const (
	IdentificationPassport        IdentificationType = "PASSPORT"
	IdentificationNationalID      IdentificationType = "NATIONAL_ID"
	IdentificationDriversLicense  IdentificationType = "DRIVERS_LICENSE"
	IdentificationResidencePermit IdentificationType = "RESIDENCE_PERMIT"
)

// IsValid checks if the identification type is valid
func (t IdentificationType) IsValid() bool {
	switch t {
	case IdentificationPassport, IdentificationNationalID, IdentificationDriversLicense, IdentificationResidencePermit:
		return true
	}
	return false
}

// Identification is an identity document on file for a customer.
// Number is held in clear only in memory; persistence encrypts it.
type Identification struct {
	shared.BaseEntity
	CustomerID     uuid.UUID
	Type           IdentificationType
	Number         string
	IssuingCountry string
	IssueDate      *time.Time
	ExpiryDate     *time.Time
	DocumentKey    string
	Primary        bool
}

// NewIdentification validates and creates an identification
func NewIdentification(customerID uuid.UUID, idType IdentificationType, number, issuingCountry string, issueDate, expiryDate *time.Time) (*Identification, error) {
	if !idType.IsValid() {
		return nil, shared.NewDomainError("INVALID_IDENTIFICATION_TYPE", "Unsupported identification type")
	}
	number = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(number), " ", ""))
	if len(number) < 4 || len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_IDENTIFICATION_NUMBER", "Identification number must be 4-50 characters")
	}
	issuingCountry = strings.ToUpper(strings.TrimSpace(issuingCountry))
	if !countryPattern.MatchString(issuingCountry) {
		return nil, shared.NewDomainError("INVALID_ISSUING_COUNTRY", "Issuing country must be a two-letter ISO 3166 code")
	}
	if issueDate != nil && expiryDate != nil && !expiryDate.After(*issueDate) {
		return nil, shared.NewDomainError("INVALID_EXPIRY_DATE", "Expiry date must be after issue date")
	}

	return &Identification{
		BaseEntity:     shared.NewBaseEntity(),
		CustomerID:     customerID,
		Type:           idType,
		Number:         number,
		IssuingCountry: issuingCountry,
		IssueDate:      issueDate,
		ExpiryDate:     expiryDate,
	}, nil
}

// IsExpired reports whether the document has expired at the given time.
// Documents without an expiry date never expire.
func (i *Identification) IsExpired(at time.Time) bool {
	return i.ExpiryDate != nil && !at.Before(*i.ExpiryDate)
}

// Last4 returns the last four characters of the number
func (i *Identification) Last4() string {
	if len(i.Number) <= 4 {
		return i.Number
	}
	return i.Number[len(i.Number)-4:]
}

// MaskedNumber hides all but the last four characters
func (i *Identification) MaskedNumber() string {
	last := i.Last4()
	if len(i.Number) <= 4 {
		return last
	}
	return strings.Repeat("*", len(i.Number)-4) + last
}
