package watch

import (
	"context"
	"sync"
)

type stateKey struct {
	blockID  string
	viewerID string
}

// NewInMemoryStore returns a Store backed by an in-memory map.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{counts: make(map[stateKey]int)}
}

// InMemoryStore implements Store for tests and local development.
type InMemoryStore struct {
	mu     sync.Mutex
	counts map[stateKey]int
}

// Increment adds one to the viewer's count for the block.
func (s *InMemoryStore) Increment(_ context.Context, blockID, viewerID string) (int, error) {
	key := stateKey{blockID: blockID, viewerID: viewerID}
	s.mu.Lock()
	s.counts[key]++
	count := s.counts[key]
	s.mu.Unlock()
	return count, nil
}

// Count returns the viewer's count for the block.
func (s *InMemoryStore) Count(_ context.Context, blockID, viewerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[stateKey{blockID: blockID, viewerID: viewerID}], nil
}
