package testutil

import (
	"context"
	"sync"

	"github.com/levyline/levyline/internal/domain/rate"
)

// InMemoryRateStore implements rate.Repository
type InMemoryRateStore struct {
	mu      sync.RWMutex
	entries []*rate.RateTableEntry
	listErr error
}

func NewInMemoryRateStore() *InMemoryRateStore {
	return &InMemoryRateStore{}
}

// Add seeds entries into the store
func (s *InMemoryRateStore) Add(entries ...*rate.RateTableEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
}

// WithListError makes every List call fail, for exercising registry
// failure paths
func (s *InMemoryRateStore) WithListError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

func (s *InMemoryRateStore) List(_ context.Context) ([]*rate.RateTableEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*rate.RateTableEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Clear removes all entries from the store
func (s *InMemoryRateStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.listErr = nil
}
