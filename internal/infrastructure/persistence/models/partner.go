package models

import (
	"fmt"
	"time"

	"github.com/fxoffice/backend/internal/domain/partner"
	"github.com/fxoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// FieldCipher encrypts individual column values at rest
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// CustomerModel is the persistence model for KYC customers
type CustomerModel struct {
	TenantAggregateModel
	FirstName       string                `gorm:"type:varchar(100);not null"`
	LastName        string                `gorm:"type:varchar(100);not null"`
	Email           string                `gorm:"type:varchar(200);index"`
	Phone           string                `gorm:"type:varchar(50)"`
	DateOfBirth     *time.Time            `gorm:"type:date"`
	Nationality     string                `gorm:"type:varchar(2)"`
	Occupation      string                `gorm:"type:varchar(100)"`
	AddressLine1    string                `gorm:"type:varchar(200)"`
	AddressLine2    string                `gorm:"type:varchar(200)"`
	City            string                `gorm:"type:varchar(100)"`
	Region          string                `gorm:"type:varchar(100)"`
	PostalCode      string                `gorm:"type:varchar(20)"`
	Country         string                `gorm:"type:varchar(2)"`
	KYCStatus       partner.KYCStatus     `gorm:"column:kyc_status;type:varchar(20);not null;default:'PENDING';index"`
	RiskLevel       partner.RiskLevel     `gorm:"type:varchar(10);not null;default:'LOW'"`
	RejectionReason string                `gorm:"type:text"`
	VerifiedAt      *time.Time
	VerifiedBy      *uuid.UUID            `gorm:"type:uuid"`
	Identifications []IdentificationModel `gorm:"foreignKey:CustomerID"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// IdentificationModel is the persistence model for customer identity documents.
// The document number is stored encrypted; only the last four characters are in clear.
type IdentificationModel struct {
	BaseModel
	CustomerID      uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Type            partner.IdentificationType `gorm:"type:varchar(30);not null"`
	NumberEncrypted string                     `gorm:"type:text;not null"`
	NumberLast4     string                     `gorm:"column:number_last4;type:varchar(4);not null"`
	IssuingCountry  string                     `gorm:"type:varchar(2);not null"`
	IssueDate       *time.Time                 `gorm:"type:date"`
	ExpiryDate      *time.Time                 `gorm:"type:date"`
	DocumentKey     string                     `gorm:"type:varchar(500)"`
	IsPrimary       bool                       `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (IdentificationModel) TableName() string {
	return "identifications"
}

// ToDomain converts the model to a domain Customer, decrypting identification numbers
func (m *CustomerModel) ToDomain(cipher FieldCipher) (*partner.Customer, error) {
	addr, err := valueobject.AddressFromDTO(valueobject.AddressDTO{
		Line1:      m.AddressLine1,
		Line2:      m.AddressLine2,
		City:       m.City,
		Region:     m.Region,
		PostalCode: m.PostalCode,
		Country:    m.Country,
	})
	if err != nil {
		// stored rows were validated on write; keep the record readable
		addr = valueobject.EmptyAddress()
	}

	ids := make([]partner.Identification, 0, len(m.Identifications))
	for _, im := range m.Identifications {
		number, err := cipher.Decrypt(im.NumberEncrypted)
		if err != nil {
			return nil, fmt.Errorf("decrypt identification %s: %w", im.ID, err)
		}
		ids = append(ids, partner.Identification{
			BaseEntity:     im.BaseModel.ToDomain(),
			CustomerID:     im.CustomerID,
			Type:           im.Type,
			Number:         number,
			IssuingCountry: im.IssuingCountry,
			IssueDate:      im.IssueDate,
			ExpiryDate:     im.ExpiryDate,
			DocumentKey:    im.DocumentKey,
			Primary:        im.IsPrimary,
		})
	}

	return &partner.Customer{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		FirstName:           m.FirstName,
		LastName:            m.LastName,
		Email:               m.Email,
		Phone:               m.Phone,
		DateOfBirth:         m.DateOfBirth,
		Nationality:         m.Nationality,
		Occupation:          m.Occupation,
		Address:             addr,
		KYCStatus:           m.KYCStatus,
		RiskLevel:           m.RiskLevel,
		RejectionReason:     m.RejectionReason,
		VerifiedAt:          m.VerifiedAt,
		VerifiedBy:          m.VerifiedBy,
		Identifications:     ids,
	}, nil
}

// CustomerModelFromDomain creates a model from a domain Customer, encrypting identification numbers
func CustomerModelFromDomain(c *partner.Customer, cipher FieldCipher) (*CustomerModel, error) {
	m := &CustomerModel{
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		Email:           c.Email,
		Phone:           c.Phone,
		DateOfBirth:     c.DateOfBirth,
		Nationality:     c.Nationality,
		Occupation:      c.Occupation,
		AddressLine1:    c.Address.Line1(),
		AddressLine2:    c.Address.Line2(),
		City:            c.Address.City(),
		Region:          c.Address.Region(),
		PostalCode:      c.Address.PostalCode(),
		Country:         c.Address.Country(),
		KYCStatus:       c.KYCStatus,
		RiskLevel:       c.RiskLevel,
		RejectionReason: c.RejectionReason,
		VerifiedAt:      c.VerifiedAt,
		VerifiedBy:      c.VerifiedBy,
	}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)

	for i := range c.Identifications {
		id := &c.Identifications[i]
		enc, err := cipher.Encrypt(id.Number)
		if err != nil {
			return nil, fmt.Errorf("encrypt identification %s: %w", id.ID, err)
		}
		im := IdentificationModel{
			CustomerID:      c.ID,
			Type:            id.Type,
			NumberEncrypted: enc,
			NumberLast4:     id.Last4(),
			IssuingCountry:  id.IssuingCountry,
			IssueDate:       id.IssueDate,
			ExpiryDate:      id.ExpiryDate,
			DocumentKey:     id.DocumentKey,
			IsPrimary:       id.Primary,
		}
		im.FromDomainBaseEntity(id.BaseEntity)
		m.Identifications = append(m.Identifications, im)
	}
	return m, nil
}
