package partner

import (
	"time"

	"github.com/fxoffice/backend/internal/domain/partner"
	"github.com/fxoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// =============================================================================
// Customer DTOs
// =============================================================================

// AddressRequest represents a postal address in requests
type AddressRequest struct {
	Line1      string `json:"line1" binding:"max=200"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"max=100"`
	Region     string `json:"region" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	Country    string `json:"country" binding:"omitempty,len=2"`
}

func (a AddressRequest) toDTO() valueobject.AddressDTO {
	return valueobject.AddressDTO{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// CreateCustomerRequest represents a request to create a new customer
type CreateCustomerRequest struct {
	FirstName   string          `json:"first_name" binding:"required,min=1,max=100"`
	LastName    string          `json:"last_name" binding:"required,min=1,max=100"`
	Email       string          `json:"email" binding:"omitempty,email,max=200"`
	Phone       string          `json:"phone" binding:"max=50"`
	DateOfBirth *time.Time      `json:"date_of_birth"`
	Nationality string          `json:"nationality" binding:"omitempty,len=2"`
	Occupation  string          `json:"occupation" binding:"max=100"`
	Address     *AddressRequest `json:"address"`
	CreatedBy   *uuid.UUID      `json:"-"` // Set from JWT context, not from request body
}

// UpdateCustomerRequest represents a partial customer update
type UpdateCustomerRequest struct {
	FirstName   *string    `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName    *string    `json:"last_name" binding:"omitempty,min=1,max=100"`
	Email       *string    `json:"email" binding:"omitempty,max=200"`
	Phone       *string    `json:"phone" binding:"omitempty,max=50"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Nationality *string    `json:"nationality" binding:"omitempty,max=2"`
	Occupation  *string    `json:"occupation" binding:"omitempty,max=100"`
}

// CustomerListFilter represents filter options for customer list
type CustomerListFilter struct {
	Search    string `form:"search"`
	KYCStatus string `form:"kyc_status" binding:"omitempty,oneof=PENDING VERIFIED REJECTED"`
	RiskLevel string `form:"risk_level" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string `form:"order_by" binding:"omitempty,oneof=last_name first_name created_at kyc_status"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// AddIdentificationRequest adds an identity document
type AddIdentificationRequest struct {
	Type           string     `json:"type" binding:"required,oneof=PASSPORT NATIONAL_ID DRIVERS_LICENSE RESIDENCE_PERMIT"`
	Number         string     `json:"number" binding:"required,min=4,max=50"`
	IssuingCountry string     `json:"issuing_country" binding:"required,len=2"`
	IssueDate      *time.Time `json:"issue_date"`
	ExpiryDate     *time.Time `json:"expiry_date"`
}

// DocumentUploadRequest asks for a presigned upload URL
type DocumentUploadRequest struct {
	ContentType string `json:"content_type" binding:"required,oneof=image/jpeg image/png application/pdf"`
}

// VerifyCustomerRequest marks a customer verified
type VerifyCustomerRequest struct {
	RiskLevel string `json:"risk_level" binding:"required,oneof=LOW MEDIUM HIGH"`
}

// RejectCustomerRequest marks a customer rejected
type RejectCustomerRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// IdentificationResponse represents an identification in API responses.
// Number is only filled for callers allowed to see it in clear.
type IdentificationResponse struct {
	ID             uuid.UUID  `json:"id"`
	Type           string     `json:"type"`
	Number         string     `json:"number,omitempty"`
	MaskedNumber   string     `json:"masked_number"`
	NumberLast4    string     `json:"number_last4"`
	IssuingCountry string     `json:"issuing_country"`
	IssueDate      *time.Time `json:"issue_date,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	Expired        bool       `json:"expired"`
	HasDocument    bool       `json:"has_document"`
	Primary        bool       `json:"primary"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID              uuid.UUID                `json:"id"`
	TenantID        uuid.UUID                `json:"tenant_id"`
	FirstName       string                   `json:"first_name"`
	LastName        string                   `json:"last_name"`
	FullName        string                   `json:"full_name"`
	Email           string                   `json:"email"`
	Phone           string                   `json:"phone"`
	DateOfBirth     *time.Time               `json:"date_of_birth,omitempty"`
	Nationality     string                   `json:"nationality"`
	Occupation      string                   `json:"occupation"`
	Address         valueobject.AddressDTO   `json:"address"`
	KYCStatus       string                   `json:"kyc_status"`
	RiskLevel       string                   `json:"risk_level"`
	RejectionReason string                   `json:"rejection_reason,omitempty"`
	VerifiedAt      *time.Time               `json:"verified_at,omitempty"`
	VerifiedBy      *uuid.UUID               `json:"verified_by,omitempty"`
	Identifications []IdentificationResponse `json:"identifications"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	Version         int                      `json:"version"`
}

// CustomerListResponse is the list view of a customer
type CustomerListResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	KYCStatus string    `json:"kyc_status"`
	RiskLevel string    `json:"risk_level"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentURLResponse is a presigned object storage URL
type DocumentURLResponse struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToCustomerResponse converts a domain Customer. revealNumbers controls whether
// identification numbers are included in clear.
func ToCustomerResponse(c *partner.Customer, revealNumbers bool, now time.Time) CustomerResponse {
	idents := make([]IdentificationResponse, len(c.Identifications))
	for i := range c.Identifications {
		ident := &c.Identifications[i]
		r := IdentificationResponse{
			ID:             ident.ID,
			Type:           string(ident.Type),
			MaskedNumber:   ident.MaskedNumber(),
			NumberLast4:    ident.Last4(),
			IssuingCountry: ident.IssuingCountry,
			IssueDate:      ident.IssueDate,
			ExpiryDate:     ident.ExpiryDate,
			Expired:        ident.IsExpired(now),
			HasDocument:    ident.DocumentKey != "",
			Primary:        ident.Primary,
		}
		if revealNumbers {
			r.Number = ident.Number
		}
		idents[i] = r
	}
	return CustomerResponse{
		ID:              c.ID,
		TenantID:        c.TenantID,
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		FullName:        c.FullName(),
		Email:           c.Email,
		Phone:           c.Phone,
		DateOfBirth:     c.DateOfBirth,
		Nationality:     c.Nationality,
		Occupation:      c.Occupation,
		Address:         c.Address.ToDTO(),
		KYCStatus:       string(c.KYCStatus),
		RiskLevel:       string(c.RiskLevel),
		RejectionReason: c.RejectionReason,
		VerifiedAt:      c.VerifiedAt,
		VerifiedBy:      c.VerifiedBy,
		Identifications: idents,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		Version:         c.Version,
	}
}

// ToCustomerListResponses converts a slice of customers to list responses
func ToCustomerListResponses(customers []partner.Customer) []CustomerListResponse {
	out := make([]CustomerListResponse, len(customers))
	for i := range customers {
		c := &customers[i]
		out[i] = CustomerListResponse{
			ID:        c.ID,
			FullName:  c.FullName(),
			Email:     c.Email,
			Phone:     c.Phone,
			KYCStatus: string(c.KYCStatus),
			RiskLevel: string(c.RiskLevel),
			CreatedAt: c.CreatedAt,
		}
	}
	return out
}
