// Package memory provides an in-process KeyValueStore for single-instance mode
// and tests. Contents are lost when the process exits.
package memory

import (
	"context"
	"maps"
	"sync"
)

type Store struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewStore() *Store {
	return &Store{entries: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	return value, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dump returns a copy of all entries.
func (s *Store) Dump() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.entries)
}
