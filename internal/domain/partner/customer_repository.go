package partner

import (
	"context"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerRepository defines the interface for customer persistence.
// Identifications are loaded and saved with the aggregate.
type CustomerRepository interface {
	shared.TenantRepository[Customer]

	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Customer, error)
	ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error)
	CountByKYCStatus(ctx context.Context, tenantID uuid.UUID, status KYCStatus) (int64, error)
}
