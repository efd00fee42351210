package vault

import (
	"context"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RepositoryRepository defines the interface for repository persistence.
// Authorized users are loaded and saved with the aggregate.
type RepositoryRepository interface {
	shared.TenantRepository[Repository]

	FindByKey(ctx context.Context, tenantID uuid.UUID, key string) (*Repository, error)

	// FindAuthorizedForUser returns the repositories the user is on the access list of
	FindAuthorizedForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Repository, error)

	ExistsByKey(ctx context.Context, tenantID uuid.UUID, key string) (bool, error)
}

// CurrencyRepository defines the interface for currency persistence.
// Denominations are loaded and saved with the aggregate.
type CurrencyRepository interface {
	shared.TenantRepository[Currency]

	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Currency, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Currency, error)
	FindByRateSource(ctx context.Context, tenantID uuid.UUID, source RateSource) ([]Currency, error)
	FindBase(ctx context.Context, tenantID uuid.UUID) (*Currency, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)

	// UpdateRates writes only the rate columns of the given currencies
	UpdateRates(ctx context.Context, tenantID uuid.UUID, currencies []Currency, at time.Time) error
}
