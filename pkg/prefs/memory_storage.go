package prefs

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and development.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[int64]Preference
}

// NewMemoryStore creates an empty in-memory preference store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[int64]Preference)}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, userID int64) (*Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(ctx context.Context, p Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.prefs[p.UserID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	s.prefs[p.UserID] = p
	return nil
}
