package cache

import (
	"sync"
	"time"
)

// TTLSet is a process-local set of keys that expire. It backs the in-memory
// stand-ins for the Redis stores (checkout idempotency keys, revoked tokens).
type TTLSet struct {
	mu     sync.Mutex
	expiry map[string]time.Time
	now    func() time.Time
}

func NewTTLSet() *TTLSet {
	return &TTLSet{expiry: make(map[string]time.Time), now: time.Now}
}

// Claim adds key unless a live entry exists, like SET NX PX
func (s *TTLSet) Claim(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if exp, ok := s.expiry[key]; ok && now.Before(exp) {
		return false
	}
	s.expiry[key] = now.Add(ttl)
	return true
}

// Put adds or refreshes key
func (s *TTLSet) Put(key string, ttl time.Duration) {
	s.mu.Lock()
	s.expiry[key] = s.now().Add(ttl)
	s.mu.Unlock()
}

// Has reports whether key is present and not expired. Expired keys are dropped.
func (s *TTLSet) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expiry[key]
	if !ok {
		return false
	}
	if !s.now().Before(exp) {
		delete(s.expiry, key)
		return false
	}
	return true
}

func (s *TTLSet) Delete(key string) {
	s.mu.Lock()
	delete(s.expiry, key)
	s.mu.Unlock()
}

// Sweep removes expired keys and returns how many were removed
func (s *TTLSet) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, exp := range s.expiry {
		if !now.Before(exp) {
			delete(s.expiry, key)
			removed++
		}
	}
	return removed
}

// Len counts stored keys, expired or not
func (s *TTLSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiry)
}
