package cache

import (
	"context"
	"sync"
	"time"

	"github.com/artisanmarket/backend/internal/domain/shared"
)

const sweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore keeps checkout keys in a TTLSet. Keys are only
// deduplicated within one process, so it is meant for development and tests.
type InMemoryIdempotencyStore struct {
	keys *TTLSet
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts sweeping expired keys
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		keys: NewTTLSet(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.sweep(sweepInterval)
	return s
}

func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return s.keys.Claim(key, ttl), nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	return s.keys.Has(key), nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.keys.Delete(key)
	return nil
}

// Close stops the sweeper. It may be called more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}

// Size counts stored keys, including expired ones not yet swept
func (s *InMemoryIdempotencyStore) Size() int {
	return s.keys.Len()
}

func (s *InMemoryIdempotencyStore) sweep(every time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.keys.Sweep()
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
