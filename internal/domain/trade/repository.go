package trade

import (
	"context"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	shared.TenantRepository[Order]

	FindByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*Order, error)
	FindBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]Order, error)

	// FindExpiredQuotes returns quotes whose expiry is before the given time
	FindExpiredQuotes(ctx context.Context, before time.Time, limit int) ([]Order, error)

	// GenerateOrderNumber returns the next FX-YYYYMMDD-NNNN number for the tenant
	GenerateOrderNumber(ctx context.Context, tenantID uuid.UUID, at time.Time) (string, error)
}

// NoteRepository defines the interface for note persistence
type NoteRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Note, error)
	FindBySubject(ctx context.Context, tenantID uuid.UUID, subjectType SubjectType, subjectID uuid.UUID) ([]Note, error)
	Save(ctx context.Context, note *Note) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
