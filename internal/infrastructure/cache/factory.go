package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores bundles the cache-backed stores the service needs.
// Client is nil when running without redis.
type Stores struct {
	Client      *redis.Client
	Idempotency shared.IdempotencyStore
	Rates       RateCache
}

// Close releases the redis connection or stops in-memory janitors
func (s *Stores) Close() error {
	if s.Idempotency != nil {
		_ = s.Idempotency.Close()
	}
	if s.Client != nil {
		return s.Client.Close()
	}
	return nil
}

// NewRedisClient connects to redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewStores uses redis when configured and reachable, otherwise in-memory stores.
// In-memory stores do not share state across instances, so duplicate webhook
// deliveries may be applied twice in multi-instance deployments.
func NewStores(cfg config.RedisConfig, logger *zap.Logger) *Stores {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host != "" {
		client, err := NewRedisClient(cfg)
		if err == nil {
			logger.Info("using Redis cache", zap.String("addr", cfg.Addr()))
			return &Stores{
				Client:      client,
				Idempotency: NewRedisIdempotencyStore(client, ""),
				Rates:       NewRedisRateCache(client, ""),
			}
		}
		logger.Warn("Redis unavailable, falling back to in-memory stores", zap.Error(err))
	}
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(),
		Rates:       NewInMemoryRateCache(),
	}
}
