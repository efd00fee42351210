package float

import (
	"context"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SessionRepository defines the interface for Cx session persistence.
// Stacks and entries are loaded and saved with the session.
type SessionRepository interface {
	shared.TenantRepository[CxSession]

	// FindActiveByRepository returns the non-terminal session on a repository,
	// or shared.ErrNotFound when the repository is idle.
	FindActiveByRepository(ctx context.Context, tenantID, repositoryID uuid.UUID) (*CxSession, error)

	// FindLastClosedByRepository returns the most recently closed session
	FindLastClosedByRepository(ctx context.Context, tenantID, repositoryID uuid.UUID) (*CxSession, error)

	// SaveWithLock saves only if the stored version matches, returning
	// shared.ErrConcurrencyConflict otherwise.
	SaveWithLock(ctx context.Context, session *CxSession) error
}
