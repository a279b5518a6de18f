package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/artisanmarket/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis and verifies the connection with PING
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// Stores bundles the Redis-backed components, or their in-memory fallbacks
type Stores struct {
	Client      *redis.Client // nil when running on fallbacks
	Responses   ResponseCache
	Idempotency shared.IdempotencyStore
}

// Close releases the Redis client and the idempotency store
func (s *Stores) Close() error {
	_ = s.Idempotency.Close()
	if s.Client != nil {
		return s.Client.Close()
	}
	return nil
}

// StoreFactoryOption configures NewStores
type StoreFactoryOption func(*storeFactory)

type storeFactory struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *storeFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// process-local stores. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *storeFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStores connects to Redis and builds the response cache and idempotency store
func NewStores(ctx context.Context, cfg config.RedisConfig, opts ...StoreFactoryOption) (*Stores, error) {
	f := &storeFactory{logger: zap.NewNop(), allowInMemoryFallback: true}
	for _, opt := range opts {
		opt(f)
	}

	client, err := NewRedisClient(ctx, cfg)
	if err == nil {
		f.logger.Info("using Redis cache and idempotency store", zap.String("addr", cfg.Addr()))
		return &Stores{
			Client:      client,
			Responses:   NewRedisResponseCache(client, f.logger),
			Idempotency: NewRedisIdempotencyStore(client, ""),
		}, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory cache and idempotency store. "+
		"Duplicate checkouts are only detected per instance.",
		zap.Error(err),
	)
	return &Stores{
		Responses:   NewInMemoryResponseCache(),
		Idempotency: NewInMemoryIdempotencyStore(),
	}, nil
}
