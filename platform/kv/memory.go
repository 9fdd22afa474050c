package kv

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It is used by tests and by
// development setups that run without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string]string
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string]string),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	if !ok {
		return "", false, nil
	}
	if expiry, hasExpiry := s.expires[key]; hasExpiry && !s.now().Before(expiry) {
		delete(s.values, key)
		delete(s.expires, key)
		return "", false, nil
	}
	return value, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	delete(s.expires, key)
	return nil
}

func (s *MemoryStore) PutTTL(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	s.expires[key] = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	delete(s.expires, key)
	return nil
}
