package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRatePrefix = "fxo:rates:"

// RateCache stores fetched rate tables by base currency
type RateCache interface {
	Get(ctx context.Context, base string) (*vault.RateTable, bool, error)
	Set(ctx context.Context, table vault.RateTable, ttl time.Duration) error
}

// RedisRateCache keeps rate tables as JSON under fxo:rates:<BASE>
type RedisRateCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisRateCache creates a rate cache over an existing client
func NewRedisRateCache(client redis.UniversalClient, keyPrefix string) *RedisRateCache {
	if keyPrefix == "" {
		keyPrefix = defaultRatePrefix
	}
	return &RedisRateCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the cached table for base, if any
func (c *RedisRateCache) Get(ctx context.Context, base string) (*vault.RateTable, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+strings.ToUpper(base)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached rates: %w", err)
	}
	var table vault.RateTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached rates: %w", err)
	}
	return &table, true, nil
}

// Set caches a table for ttl
func (c *RedisRateCache) Set(ctx context.Context, table vault.RateTable, ttl time.Duration) error {
	raw, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to encode rates: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+strings.ToUpper(table.Base), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache rates: %w", err)
	}
	return nil
}

// InMemoryRateCache is the single-instance fallback
type InMemoryRateCache struct {
	mu      sync.RWMutex
	entries map[string]rateEntry
	now     func() time.Time
}

type rateEntry struct {
	table     vault.RateTable
	expiresAt time.Time
}

// NewInMemoryRateCache creates an empty cache
func NewInMemoryRateCache() *InMemoryRateCache {
	return &InMemoryRateCache{entries: make(map[string]rateEntry), now: time.Now}
}

// Get returns the cached table for base, if unexpired
func (c *InMemoryRateCache) Get(_ context.Context, base string) (*vault.RateTable, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[strings.ToUpper(base)]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false, nil
	}
	t := e.table
	return &t, true, nil
}

// Set caches a table for ttl
func (c *InMemoryRateCache) Set(_ context.Context, table vault.RateTable, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[strings.ToUpper(table.Base)] = rateEntry{table: table, expiresAt: c.now().Add(ttl)}
	return nil
}

// CachingRateProvider serves rate tables from cache and falls through to the upstream provider.
// Cache failures are logged and never fail a refresh.
type CachingRateProvider struct {
	upstream vault.FXRateProvider
	cache    RateCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCachingRateProvider wraps upstream with cache. A non-positive ttl disables caching.
func NewCachingRateProvider(upstream vault.FXRateProvider, cache RateCache, ttl time.Duration, logger *zap.Logger) *CachingRateProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingRateProvider{upstream: upstream, cache: cache, ttl: ttl, logger: logger}
}

// Latest implements vault.FXRateProvider
func (p *CachingRateProvider) Latest(ctx context.Context, base string) (vault.RateTable, error) {
	if p.ttl > 0 && p.cache != nil {
		table, ok, err := p.cache.Get(ctx, base)
		if err != nil {
			p.logger.Warn("rate cache read failed", zap.String("base", base), zap.Error(err))
		} else if ok {
			return *table, nil
		}
	}

	table, err := p.upstream.Latest(ctx, base)
	if err != nil {
		return vault.RateTable{}, err
	}

	// a table in another base would be stored under the wrong key
	if p.ttl > 0 && p.cache != nil && table.IsQuotedIn(base) {
		if err := p.cache.Set(ctx, table, p.ttl); err != nil {
			p.logger.Warn("rate cache write failed", zap.String("base", base), zap.Error(err))
		}
	}
	return table, nil
}

var (
	_ RateCache            = (*RedisRateCache)(nil)
	_ RateCache            = (*InMemoryRateCache)(nil)
	_ vault.FXRateProvider = (*CachingRateProvider)(nil)
)
