package shared

import (
	"context"
	"time"
)

// IdempotencyStore records keys that have already been claimed so that a
// repeated submission can be detected.
type IdempotencyStore interface {
	// MarkProcessed claims the key with a TTL.
	// Returns true if the key was newly claimed, false if it was already taken.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been claimed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release frees a claimed key so that a failed attempt can be retried
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
