package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers message IDs that have already been handled.
// Webhook deliveries are retried by the provider, so handlers consult it before applying changes.
type IdempotencyStore interface {
	// MarkProcessed returns true if the id was newly marked, false if it was seen before
	MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, id string) (bool, error)
	// Forget removes a mark so a failed delivery can be retried
	Forget(ctx context.Context, id string) error
	Close() error
}

// DefaultIdempotencyTTL is how long a processed id is remembered
const DefaultIdempotencyTTL = 72 * time.Hour
