package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultScanBatchSize = 100

// ResponseCache stores JSON-encoded read models under string keys
type ResponseCache interface {
	// Get decodes the cached value into dest. Returns false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key that starts with prefix
	DeletePrefix(ctx context.Context, prefix string) error
}

// RedisResponseCache implements ResponseCache on Redis
type RedisResponseCache struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisResponseCache creates a cache on an existing Redis client
func NewRedisResponseCache(client redis.UniversalClient, logger *zap.Logger) *RedisResponseCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisResponseCache{client: client, logger: logger.Named("response_cache")}
}

// Get retrieves and decodes a cached value
func (c *RedisResponseCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// Drop the corrupted entry so the next read repopulates it
		_ = c.client.Del(ctx, key).Err()
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

// Set stores value as JSON with ttl
func (c *RedisResponseCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	c.logger.Debug("cached response", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// Delete removes keys
func (c *RedisResponseCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// DeletePrefix scans for prefix* and deletes matches in batches
func (c *RedisResponseCache) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", defaultScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys %s*: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys %s*: %w", prefix, err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Debug("invalidated cache prefix", zap.String("prefix", prefix), zap.Int("keys", deleted))
	return nil
}

var _ ResponseCache = (*RedisResponseCache)(nil)

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryResponseCache is a process-local ResponseCache used when Redis is not configured
type InMemoryResponseCache struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewInMemoryResponseCache creates an empty in-memory cache
func NewInMemoryResponseCache() *InMemoryResponseCache {
	return &InMemoryResponseCache{items: make(map[string]memoryItem), now: time.Now}
}

// Get retrieves and decodes a cached value
func (c *InMemoryResponseCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || c.now().After(item.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(item.data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

// Set stores value as JSON with ttl
func (c *InMemoryResponseCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}
	c.mu.Lock()
	c.items[key] = memoryItem{data: data, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete removes keys
func (c *InMemoryResponseCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

// DeletePrefix removes every key that starts with prefix
func (c *InMemoryResponseCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *InMemoryResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

var _ ResponseCache = (*InMemoryResponseCache)(nil)
