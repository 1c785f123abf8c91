package storage

import (
	"context"
	"sync"
)

// MemoryStore is a process-local KeyValueStore. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]string
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]string{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.items[key] = value
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
