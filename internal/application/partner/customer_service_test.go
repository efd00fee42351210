package partner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fxoffice/backend/internal/domain/partner"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mocks
// =============================================================================

// MockCustomerRepository is a mock implementation of CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Customer, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]partner.Customer, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockCustomerRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*partner.Customer, error) {
	args := m.Called(ctx, tenantID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error) {
	args := m.Called(ctx, tenantID, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustomerRepository) CountByKYCStatus(ctx context.Context, tenantID uuid.UUID, status partner.KYCStatus) (int64, error) {
	args := m.Called(ctx, tenantID, status)
	return args.Get(0).(int64), args.Error(1)
}

// MockDocumentStorage is a mock implementation of DocumentStorage
type MockDocumentStorage struct {
	mock.Mock
}

func (m *MockDocumentStorage) GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockDocumentStorage) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockDocumentStorage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func domainCode(err error) string {
	if de, ok := shared.AsDomainError(err); ok {
		return de.Code
	}
	return ""
}

// =============================================================================
// Helpers
// =============================================================================

func newTestCustomer(t *testing.T, tenantID uuid.UUID) *partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer(tenantID, "Ada", "Lovelace")
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

func withPassport(t *testing.T, c *partner.Customer) *partner.Identification {
	t.Helper()
	expiry := time.Now().AddDate(5, 0, 0)
	ident, err := c.AddIdentification(partner.IdentificationType("PASSPORT"), "X1234567", "GB", nil, &expiry)
	require.NoError(t, err)
	return ident
}

func setupService() (*CustomerService, *MockCustomerRepository, *recordingPublisher) {
	repo := new(MockCustomerRepository)
	pub := &recordingPublisher{}
	svc := NewCustomerService(repo)
	svc.SetEventPublisher(pub)
	return svc, repo, pub
}

// =============================================================================
// Tests
// =============================================================================

func TestCustomerService_Create(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("creates pending customer with address", func(t *testing.T) {
		svc, repo, pub := setupService()
		creator := uuid.New()
		repo.On("ExistsByEmail", ctx, tenantID, "ada@example.com").Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*partner.Customer")).Return(nil)

		resp, err := svc.Create(ctx, tenantID, CreateCustomerRequest{
			FirstName:   "Ada",
			LastName:    "Lovelace",
			Email:       " Ada@Example.com ",
			Phone:       "+44 20 7946 0000",
			Nationality: "gb",
			Address:     &AddressRequest{Line1: "12 St James's Square", City: "London", Country: "GB"},
			CreatedBy:   &creator,
		})

		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", resp.FullName)
		assert.Equal(t, "ada@example.com", resp.Email)
		assert.Equal(t, "GB", resp.Nationality)
		assert.Equal(t, "PENDING", resp.KYCStatus)
		assert.Equal(t, "London", resp.Address.City)
		assert.Equal(t, []string{partner.EventTypeCustomerCreated}, pub.types())
		repo.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, repo, _ := setupService()
		repo.On("ExistsByEmail", ctx, tenantID, "ada@example.com").Return(true, nil)

		_, err := svc.Create(ctx, tenantID, CreateCustomerRequest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})

		assert.Equal(t, "ALREADY_EXISTS", domainCode(err))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("incomplete address", func(t *testing.T) {
		svc, repo, _ := setupService()

		_, err := svc.Create(ctx, tenantID, CreateCustomerRequest{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Address:   &AddressRequest{Line1: "12 St James's Square"},
		})

		assert.Equal(t, "INVALID_ADDRESS", domainCode(err))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("invalid phone", func(t *testing.T) {
		svc, _, _ := setupService()

		_, err := svc.Create(ctx, tenantID, CreateCustomerRequest{FirstName: "Ada", LastName: "Lovelace", Phone: "call me"})

		assert.Equal(t, "INVALID_PHONE", domainCode(err))
	})
}

func TestCustomerService_GetByID_MasksNumbers(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	svc, repo, _ := setupService()
	c := newTestCustomer(t, tenantID)
	withPassport(t, c)
	repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)

	masked, err := svc.GetByID(ctx, tenantID, c.ID, false)
	require.NoError(t, err)
	require.Len(t, masked.Identifications, 1)
	assert.Empty(t, masked.Identifications[0].Number)
	assert.Equal(t, "4567", masked.Identifications[0].NumberLast4)
	assert.NotContains(t, masked.Identifications[0].MaskedNumber, "X123")
	assert.True(t, masked.Identifications[0].Primary)

	revealed, err := svc.GetByID(ctx, tenantID, c.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "X1234567", revealed.Identifications[0].Number)
}

func TestCustomerService_List(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	svc, repo, _ := setupService()
	c := newTestCustomer(t, tenantID)

	matchFilter := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 1 && f.PageSize == 20 && f.OrderBy == "last_name" &&
			f.Filters["kyc_status"] == "VERIFIED" && f.Search == "love"
	})
	repo.On("FindAllForTenant", ctx, tenantID, matchFilter).Return([]partner.Customer{*c}, nil)
	repo.On("CountForTenant", ctx, tenantID, matchFilter).Return(int64(1), nil)

	items, total, err := svc.List(ctx, tenantID, CustomerListFilter{Search: "love", KYCStatus: "VERIFIED"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "Ada Lovelace", items[0].FullName)
}

func TestCustomerService_Update(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("partial update keeps other fields", func(t *testing.T) {
		svc, repo, _ := setupService()
		c := newTestCustomer(t, tenantID)
		require.NoError(t, c.SetContact("ada@example.com", "+44 1"))
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		repo.On("Save", ctx, c).Return(nil)

		occupation := "Mathematician"
		resp, err := svc.Update(ctx, tenantID, c.ID, UpdateCustomerRequest{Occupation: &occupation})

		require.NoError(t, err)
		assert.Equal(t, "Mathematician", resp.Occupation)
		assert.Equal(t, "ada@example.com", resp.Email)
		assert.Equal(t, "Lovelace", resp.LastName)
	})

	t.Run("email change checks uniqueness", func(t *testing.T) {
		svc, repo, _ := setupService()
		c := newTestCustomer(t, tenantID)
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		repo.On("ExistsByEmail", ctx, tenantID, "taken@example.com").Return(true, nil)

		email := "Taken@example.com"
		_, err := svc.Update(ctx, tenantID, c.ID, UpdateCustomerRequest{Email: &email})

		assert.Equal(t, "ALREADY_EXISTS", domainCode(err))
	})

	t.Run("clearing address", func(t *testing.T) {
		svc, repo, _ := setupService()
		c := newTestCustomer(t, tenantID)
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		repo.On("Save", ctx, c).Return(nil)

		resp, err := svc.UpdateAddress(ctx, tenantID, c.ID, AddressRequest{})

		require.NoError(t, err)
		assert.Empty(t, resp.Address.City)
	})
}

func TestCustomerService_Identifications(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("add then duplicate", func(t *testing.T) {
		svc, repo, _ := setupService()
		c := newTestCustomer(t, tenantID)
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		repo.On("Save", ctx, c).Return(nil)

		req := AddIdentificationRequest{Type: "PASSPORT", Number: "x123 4567", IssuingCountry: "GB"}
		ident, err := svc.AddIdentification(ctx, tenantID, c.ID, req)
		require.NoError(t, err)
		assert.True(t, ident.Primary)
		assert.Equal(t, "X1234567", ident.Number)

		_, err = svc.AddIdentification(ctx, tenantID, c.ID, req)
		assert.Equal(t, "IDENTIFICATION_EXISTS", domainCode(err))
	})

	t.Run("remove deletes stored document", func(t *testing.T) {
		svc, repo, _ := setupService()
		storage := new(MockDocumentStorage)
		svc.SetDocumentStorage(storage, time.Minute)
		c := newTestCustomer(t, tenantID)
		ident := withPassport(t, c)
		require.NoError(t, c.AttachDocument(ident.ID, "kyc/doc.pdf"))
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		repo.On("Save", ctx, c).Return(nil)
		storage.On("DeleteObject", ctx, "kyc/doc.pdf").Return(errors.New("boom"))

		resp, err := svc.RemoveIdentification(ctx, tenantID, c.ID, ident.ID)

		require.NoError(t, err)
		assert.Empty(t, resp.Identifications)
		storage.AssertExpectations(t)
	})

	t.Run("set primary on unknown identification", func(t *testing.T) {
		svc, repo, _ := setupService()
		c := newTestCustomer(t, tenantID)
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)

		_, err := svc.SetPrimaryIdentification(ctx, tenantID, c.ID, uuid.New())

		assert.Equal(t, "IDENTIFICATION_NOT_FOUND", domainCode(err))
	})
}

func TestCustomerService_Documents(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	expires := time.Now().Add(time.Minute)

	t.Run("storage disabled", func(t *testing.T) {
		svc, _, _ := setupService()

		_, err := svc.RequestDocumentUpload(ctx, tenantID, uuid.New(), uuid.New(), DocumentUploadRequest{ContentType: "image/png"})

		assert.Equal(t, "STORAGE_DISABLED", domainCode(err))
	})

	t.Run("upload attaches key and replaces previous document", func(t *testing.T) {
		svc, repo, _ := setupService()
		storage := new(MockDocumentStorage)
		svc.SetDocumentStorage(storage, time.Minute)
		c := newTestCustomer(t, tenantID)
		ident := withPassport(t, c)
		require.NoError(t, c.AttachDocument(ident.ID, "kyc/old.png"))

		prefix := "kyc/" + tenantID.String() + "/" + c.ID.String() + "/" + ident.ID.String() + "/"
		keyMatch := mock.MatchedBy(func(k string) bool {
			return strings.HasPrefix(k, prefix) && strings.HasSuffix(k, ".pdf")
		})
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		repo.On("Save", ctx, c).Return(nil)
		storage.On("GenerateUploadURL", ctx, keyMatch, "application/pdf", time.Minute).Return("https://s3/put", expires, nil)
		storage.On("DeleteObject", ctx, "kyc/old.png").Return(nil)

		resp, err := svc.RequestDocumentUpload(ctx, tenantID, c.ID, ident.ID, DocumentUploadRequest{ContentType: "application/pdf"})

		require.NoError(t, err)
		assert.Equal(t, "https://s3/put", resp.URL)
		assert.Equal(t, "PUT", resp.Method)
		assert.True(t, strings.HasPrefix(resp.Key, prefix))
		attached, err := c.Identification(ident.ID)
		require.NoError(t, err)
		assert.Equal(t, resp.Key, attached.DocumentKey)
		storage.AssertExpectations(t)
	})

	t.Run("unsupported content type", func(t *testing.T) {
		svc, _, _ := setupService()
		svc.SetDocumentStorage(new(MockDocumentStorage), 0)

		_, err := svc.RequestDocumentUpload(ctx, tenantID, uuid.New(), uuid.New(), DocumentUploadRequest{ContentType: "text/plain"})

		assert.Equal(t, "INVALID_CONTENT_TYPE", domainCode(err))
	})

	t.Run("download requires an uploaded document", func(t *testing.T) {
		svc, repo, _ := setupService()
		storage := new(MockDocumentStorage)
		svc.SetDocumentStorage(storage, time.Minute)
		c := newTestCustomer(t, tenantID)
		ident := withPassport(t, c)
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)

		_, err := svc.DocumentDownloadURL(ctx, tenantID, c.ID, ident.ID)
		assert.Equal(t, "DOCUMENT_NOT_FOUND", domainCode(err))

		require.NoError(t, c.AttachDocument(ident.ID, "kyc/scan.png"))
		storage.On("GenerateDownloadURL", ctx, "kyc/scan.png", time.Minute).Return("https://s3/get", expires, nil)

		resp, err := svc.DocumentDownloadURL(ctx, tenantID, c.ID, ident.ID)
		require.NoError(t, err)
		assert.Equal(t, "GET", resp.Method)
		assert.Equal(t, "https://s3/get", resp.URL)
	})
}

func TestCustomerService_KYC(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	officer := uuid.New()

	t.Run("verify requires identification", func(t *testing.T) {
		svc, repo, _ := setupService()
		c := newTestCustomer(t, tenantID)
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)

		_, err := svc.Verify(ctx, tenantID, c.ID, officer, VerifyCustomerRequest{RiskLevel: "LOW"})

		assert.Equal(t, "IDENTIFICATION_REQUIRED", domainCode(err))
	})

	t.Run("verify then reject", func(t *testing.T) {
		svc, repo, pub := setupService()
		c := newTestCustomer(t, tenantID)
		withPassport(t, c)
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		repo.On("Save", ctx, c).Return(nil)

		resp, err := svc.Verify(ctx, tenantID, c.ID, officer, VerifyCustomerRequest{RiskLevel: "MEDIUM"})
		require.NoError(t, err)
		assert.Equal(t, "VERIFIED", resp.KYCStatus)
		assert.Equal(t, "MEDIUM", resp.RiskLevel)
		require.NotNil(t, resp.VerifiedBy)
		assert.Equal(t, officer, *resp.VerifiedBy)

		resp, err = svc.Reject(ctx, tenantID, c.ID, RejectCustomerRequest{Reason: "Sanctions hit"})
		require.NoError(t, err)
		assert.Equal(t, "REJECTED", resp.KYCStatus)
		assert.Nil(t, resp.VerifiedBy)

		assert.Equal(t, []string{
			partner.EventTypeCustomerKYCStatusChanged,
			partner.EventTypeCustomerKYCStatusChanged,
		}, pub.types())
	})

	t.Run("count by status", func(t *testing.T) {
		svc, repo, _ := setupService()
		repo.On("CountByKYCStatus", ctx, tenantID, partner.KYCStatusPending).Return(int64(3), nil)
		repo.On("CountByKYCStatus", ctx, tenantID, partner.KYCStatusVerified).Return(int64(2), nil)
		repo.On("CountByKYCStatus", ctx, tenantID, partner.KYCStatusRejected).Return(int64(0), nil)

		counts, err := svc.CountByKYCStatus(ctx, tenantID)

		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"PENDING": 3, "VERIFIED": 2, "REJECTED": 0}, counts)
	})
}

func TestCustomerService_Delete(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	svc, repo, pub := setupService()
	storage := new(MockDocumentStorage)
	svc.SetDocumentStorage(storage, time.Minute)
	c := newTestCustomer(t, tenantID)
	ident := withPassport(t, c)
	require.NoError(t, c.AttachDocument(ident.ID, "kyc/a.png"))

	repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
	repo.On("DeleteForTenant", ctx, tenantID, c.ID).Return(nil)
	storage.On("DeleteObject", ctx, "kyc/a.png").Return(nil)

	require.NoError(t, svc.Delete(ctx, tenantID, c.ID))
	assert.Equal(t, []string{partner.EventTypeCustomerDeleted}, pub.types())
	storage.AssertExpectations(t)

	repo2 := new(MockCustomerRepository)
	svc2 := NewCustomerService(repo2)
	missing := uuid.New()
	repo2.On("FindByIDForTenant", ctx, tenantID, missing).Return(nil, shared.ErrNotFound)
	assert.ErrorIs(t, svc2.Delete(ctx, tenantID, missing), shared.ErrNotFound)
}
