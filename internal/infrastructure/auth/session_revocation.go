package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionRevocations tracks provider sessions that ended before their tokens expired.
// Entries only need to live as long as the longest token lifetime.
type SessionRevocations interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// RedisSessionRevocations shares revocations across instances.
type RedisSessionRevocations struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisSessionRevocations wraps an existing redis client.
func NewRedisSessionRevocations(client redis.UniversalClient) *RedisSessionRevocations {
	return &RedisSessionRevocations{
		client:    client,
		keyPrefix: "fxo:session:revoked:",
	}
}

func (r *RedisSessionRevocations) key(sessionID string) string {
	return r.keyPrefix + sessionID
}

// Revoke marks a session as revoked for ttl.
func (r *RedisSessionRevocations) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if sessionID == "" {
		return nil
	}
	if err := r.client.Set(ctx, r.key(sessionID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked checks whether the session was revoked.
func (r *RedisSessionRevocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return n > 0, nil
}

var _ SessionRevocations = (*RedisSessionRevocations)(nil)

// InMemorySessionRevocations is a single-instance fallback used when redis is not configured.
type InMemorySessionRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewInMemorySessionRevocations creates an empty revocation list.
func NewInMemorySessionRevocations() *InMemorySessionRevocations {
	return &InMemorySessionRevocations{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke marks a session as revoked for ttl.
func (r *InMemorySessionRevocations) Revoke(_ context.Context, sessionID string, ttl time.Duration) error {
	if sessionID == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[sessionID] = r.now().Add(ttl)
	return nil
}

// IsRevoked checks whether the session was revoked, dropping expired entries.
func (r *InMemorySessionRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.revoked[sessionID]
	if !ok {
		return false, nil
	}
	if r.now().After(until) {
		delete(r.revoked, sessionID)
		return false, nil
	}
	return true, nil
}

var _ SessionRevocations = (*InMemorySessionRevocations)(nil)
