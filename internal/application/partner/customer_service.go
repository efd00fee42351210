package partner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/partner"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPresignExpiry = 15 * time.Minute

var documentExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// DocumentStorage is the object store holding scanned identity documents
type DocumentStorage interface {
	GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error)
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
	DeleteObject(ctx context.Context, key string) error
}

// CustomerService handles customer and KYC operations
type CustomerService struct {
	customerRepo  partner.CustomerRepository
	storage       DocumentStorage
	publisher     shared.EventPublisher
	logger        *zap.Logger
	presignExpiry time.Duration
	now           func() time.Time
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customerRepo partner.CustomerRepository) *CustomerService {
	return &CustomerService{
		customerRepo:  customerRepo,
		logger:        zap.NewNop(),
		presignExpiry: defaultPresignExpiry,
		now:           time.Now,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *CustomerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetDocumentStorage enables document uploads. Without storage the document
// endpoints return STORAGE_DISABLED.
func (s *CustomerService) SetDocumentStorage(storage DocumentStorage, expiry time.Duration) {
	s.storage = storage
	if expiry > 0 {
		s.presignExpiry = expiry
	}
}

// SetLogger sets the logger
func (s *CustomerService) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Create creates a new customer pending verification
func (s *CustomerService) Create(ctx context.Context, tenantID uuid.UUID, req CreateCustomerRequest) (*CustomerResponse, error) {
	if req.Email != "" {
		exists, err := s.customerRepo.ExistsByEmail(ctx, tenantID, strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "Customer with this email already exists")
		}
	}

	customer, err := partner.NewCustomer(tenantID, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	if err := customer.SetContact(req.Email, req.Phone); err != nil {
		return nil, err
	}
	if err := customer.SetPersonalDetails(req.DateOfBirth, req.Nationality, req.Occupation); err != nil {
		return nil, err
	}
	if req.Address != nil {
		addr, err := valueobject.AddressFromDTO(req.Address.toDTO())
		if err != nil {
			return nil, invalidAddress(err)
		}
		customer.SetAddress(addr)
	}
	if req.CreatedBy != nil {
		customer.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, customer); err != nil {
		return nil, err
	}

	resp := ToCustomerResponse(customer, true, s.now())
	return &resp, nil
}

// GetByID retrieves a customer. Identification numbers are only included when reveal is set.
func (s *CustomerService) GetByID(ctx context.Context, tenantID, customerID uuid.UUID, reveal bool) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(customer, reveal, s.now())
	return &resp, nil
}

// List retrieves a list of customers with filtering and pagination
func (s *CustomerService) List(ctx context.Context, tenantID uuid.UUID, filter CustomerListFilter) ([]CustomerListResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "last_name"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]any),
	}
	if filter.KYCStatus != "" {
		domainFilter.Filters["kyc_status"] = filter.KYCStatus
	}
	if filter.RiskLevel != "" {
		domainFilter.Filters["risk_level"] = filter.RiskLevel
	}

	customers, err := s.customerRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.customerRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToCustomerListResponses(customers), total, nil
}

// Update applies a partial update to a customer's personal details
func (s *CustomerService) Update(ctx context.Context, tenantID, customerID uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil || req.LastName != nil {
		first, last := customer.FirstName, customer.LastName
		if req.FirstName != nil {
			first = *req.FirstName
		}
		if req.LastName != nil {
			last = *req.LastName
		}
		if err := customer.UpdateName(first, last); err != nil {
			return nil, err
		}
	}

	if req.Email != nil || req.Phone != nil {
		email, phone := customer.Email, customer.Phone
		if req.Email != nil {
			email = strings.ToLower(strings.TrimSpace(*req.Email))
			if email != "" && email != customer.Email {
				exists, err := s.customerRepo.ExistsByEmail(ctx, tenantID, email)
				if err != nil {
					return nil, err
				}
				if exists {
					return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "Customer with this email already exists")
				}
			}
		}
		if req.Phone != nil {
			phone = *req.Phone
		}
		if err := customer.SetContact(email, phone); err != nil {
			return nil, err
		}
	}

	if req.DateOfBirth != nil || req.Nationality != nil || req.Occupation != nil {
		dob, nationality, occupation := customer.DateOfBirth, customer.Nationality, customer.Occupation
		if req.DateOfBirth != nil {
			dob = req.DateOfBirth
		}
		if req.Nationality != nil {
			nationality = *req.Nationality
		}
		if req.Occupation != nil {
			occupation = *req.Occupation
		}
		if err := customer.SetPersonalDetails(dob, nationality, occupation); err != nil {
			return nil, err
		}
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	resp := ToCustomerResponse(customer, true, s.now())
	return &resp, nil
}

// UpdateAddress replaces the customer's address. An empty request clears it.
func (s *CustomerService) UpdateAddress(ctx context.Context, tenantID, customerID uuid.UUID, req AddressRequest) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	addr, err := valueobject.AddressFromDTO(req.toDTO())
	if err != nil {
		return nil, invalidAddress(err)
	}
	customer.SetAddress(addr)

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(customer, true, s.now())
	return &resp, nil
}

// Delete removes a customer and, best effort, their stored documents
func (s *CustomerService) Delete(ctx context.Context, tenantID, customerID uuid.UUID) error {
	customer, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, customerID)
	if err != nil {
		return err
	}
	if err := s.customerRepo.DeleteForTenant(ctx, tenantID, customerID); err != nil {
		return err
	}

	for _, ident := range customer.Identifications {
		s.deleteDocument(ctx, ident.DocumentKey)
	}

	if s.publisher != nil {
		return s.publisher.Publish(ctx, partner.NewCustomerDeletedEvent(customer))
	}
	return nil
}

// AddIdentification adds an identity document to a customer
func (s *CustomerService) AddIdentification(ctx context.Context, tenantID, customerID uuid.UUID, req AddIdentificationRequest) (*IdentificationResponse, error) {
	customer, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	ident, err := customer.AddIdentification(partner.IdentificationType(req.Type), req.Number, req.IssuingCountry, req.IssueDate, req.ExpiryDate)
	if err != nil {
		return nil, err
	}
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	return s.identificationResponse(customer, ident.ID)
}

// RemoveIdentification removes an identification and its stored document
func (s *CustomerService) RemoveIdentification(ctx context.Context, tenantID, customerID, identificationID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	ident, err := customer.Identification(identificationID)
	if err != nil {
		return nil, err
	}
	documentKey := ident.DocumentKey

	if err := customer.RemoveIdentification(identificationID); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	s.deleteDocument(ctx, documentKey)

	resp := ToCustomerResponse(customer, true, s.now())
	return &resp, nil
}

// SetPrimaryIdentification marks one identification as primary
func (s *CustomerService) SetPrimaryIdentification(ctx context.Context, tenantID, customerID, identificationID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if err := customer.SetPrimaryIdentification(identificationID); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(customer, true, s.now())
	return &resp, nil
}

// RequestDocumentUpload returns a presigned URL the client uploads the scan to.
// The key is attached to the identification immediately; a previous document is replaced.
func (s *CustomerService) RequestDocumentUpload(ctx context.Context, tenantID, customerID, identificationID uuid.UUID, req DocumentUploadRequest) (*DocumentURLResponse, error) {
	if s.storage == nil {
		return nil, errStorageDisabled
	}
	ext, ok := documentExtensions[req.ContentType]
	if !ok {
		return nil, shared.NewDomainError("INVALID_CONTENT_TYPE", "Document must be a JPEG, PNG or PDF")
	}

	customer, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	ident, err := customer.Identification(identificationID)
	if err != nil {
		return nil, err
	}
	previous := ident.DocumentKey

	key := fmt.Sprintf("kyc/%s/%s/%s/%s%s", tenantID, customerID, identificationID, uuid.New(), ext)
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, req.ContentType, s.presignExpiry)
	if err != nil {
		return nil, shared.NewDomainError(shared.ErrExternalService.Code, "Failed to prepare document upload")
	}

	if err := customer.AttachDocument(identificationID, key); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	if previous != "" && previous != key {
		s.deleteDocument(ctx, previous)
	}

	return &DocumentURLResponse{URL: url, Key: key, Method: "PUT", ExpiresAt: expiresAt}, nil
}

// DocumentDownloadURL returns a short-lived URL for viewing a stored document
func (s *CustomerService) DocumentDownloadURL(ctx context.Context, tenantID, customerID, identificationID uuid.UUID) (*DocumentURLResponse, error) {
	if s.storage == nil {
		return nil, errStorageDisabled
	}
	customer, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	ident, err := customer.Identification(identificationID)
	if err != nil {
		return nil, err
	}
	if ident.DocumentKey == "" {
		return nil, shared.NewDomainError("DOCUMENT_NOT_FOUND", "No document has been uploaded for this identification")
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, ident.DocumentKey, s.presignExpiry)
	if err != nil {
		return nil, shared.NewDomainError(shared.ErrExternalService.Code, "Failed to prepare document download")
	}
	return &DocumentURLResponse{URL: url, Key: ident.DocumentKey, Method: "GET", ExpiresAt: expiresAt}, nil
}

// Verify marks a customer KYC verified
func (s *CustomerService) Verify(ctx context.Context, tenantID, customerID, verifiedBy uuid.UUID, req VerifyCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if err := customer.Verify(partner.RiskLevel(req.RiskLevel), verifiedBy, s.now()); err != nil {
		return nil, err
	}
	return s.saveAndPublish(ctx, customer)
}

// Reject marks a customer KYC rejected
func (s *CustomerService) Reject(ctx context.Context, tenantID, customerID uuid.UUID, req RejectCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByIDForTenant(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if err := customer.Reject(req.Reason); err != nil {
		return nil, err
	}
	return s.saveAndPublish(ctx, customer)
}

// CountByKYCStatus returns customer counts keyed by KYC status
func (s *CustomerService) CountByKYCStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	statuses := []partner.KYCStatus{partner.KYCStatusPending, partner.KYCStatusVerified, partner.KYCStatusRejected}
	counts := make(map[string]int64, len(statuses))
	for _, status := range statuses {
		n, err := s.customerRepo.CountByKYCStatus(ctx, tenantID, status)
		if err != nil {
			return nil, err
		}
		counts[string(status)] = n
	}
	return counts, nil
}

func (s *CustomerService) saveAndPublish(ctx context.Context, customer *partner.Customer) (*CustomerResponse, error) {
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, customer); err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(customer, true, s.now())
	return &resp, nil
}

func (s *CustomerService) identificationResponse(customer *partner.Customer, id uuid.UUID) (*IdentificationResponse, error) {
	resp := ToCustomerResponse(customer, true, s.now())
	for i := range resp.Identifications {
		if resp.Identifications[i].ID == id {
			return &resp.Identifications[i], nil
		}
	}
	return nil, shared.NewDomainError("IDENTIFICATION_NOT_FOUND", "Identification not found")
}

func (s *CustomerService) deleteDocument(ctx context.Context, key string) {
	if key == "" || s.storage == nil {
		return
	}
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		s.logger.Warn("failed to delete identification document",
			zap.String("key", key),
			zap.Error(err))
	}
}

var errStorageDisabled = shared.NewDomainError("STORAGE_DISABLED", "Document storage is not configured")

func invalidAddress(err error) error {
	return shared.NewDomainError("INVALID_ADDRESS", err.Error())
}
