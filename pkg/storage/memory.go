package storage

import (
	"context"
	"sync"
)

// MemoryCursorStore keeps cursors for the life of the process
type MemoryCursorStore struct {
	mu      sync.RWMutex
	cursors map[string]string
}

// NewMemoryCursorStore creates an empty store
func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{cursors: make(map[string]string)}
}

func (s *MemoryCursorStore) Load(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	next, ok := s.cursors[key]
	if !ok {
		return "", ErrCursorNotFound
	}
	return next, nil
}

func (s *MemoryCursorStore) Save(_ context.Context, key, nextURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[key] = nextURL
	return nil
}

func (s *MemoryCursorStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, key)
	return nil
}

func (s *MemoryCursorStore) Close() error { return nil }
