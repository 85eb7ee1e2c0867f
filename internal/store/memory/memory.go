// Package memory provides an in-process implementation of the keyed store
// for tests and development mode. Retention horizons are tracked but never
// enforced by eviction; entries live until the process exits.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

type entry struct {
	value       []byte
	retainUntil time.Time
}

// KVStore is a map-backed domain.KVStore.
type KVStore struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewKVStore creates an empty in-memory store.
func NewKVStore() *KVStore {
	return &KVStore{entries: make(map[string]entry)}
}

// Get returns the value stored under key, or domain.ErrNotFound.
func (s *KVStore) Get(_ context.Context, key domain.StorageKey) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key.Encode()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, nil
}

// Set writes value under key.
func (s *KVStore) Set(_ context.Context, key domain.StorageKey, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	e := s.entries[key.Encode()]
	e.value = stored
	s.entries[key.Encode()] = e
	return nil
}

// ExtendLifetime records the new retention horizon. The horizon never moves
// backward. Missing entries are a no-op.
func (s *KVStore) ExtendLifetime(_ context.Context, key domain.StorageKey, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key.Encode()]
	if !ok {
		return nil
	}
	horizon := time.Now().Add(ttl)
	if horizon.After(e.retainUntil) {
		e.retainUntil = horizon
		s.entries[key.Encode()] = e
	}
	return nil
}

// RetainUntil reports the recorded retention horizon for key. Zero time
// means the key is absent or was never extended.
func (s *KVStore) RetainUntil(key domain.StorageKey) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[key.Encode()].retainUntil
}

// Len returns the number of stored entries.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Compile-time interface check.
var _ domain.KVStore = (*KVStore)(nil)
