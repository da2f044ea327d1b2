package testutil

import (
	"context"
	"sync"

	"github.com/levyline/levyline/internal/domain/penaltyrule"
)

// InMemoryPenaltyRuleStore implements penaltyrule.Repository
type InMemoryPenaltyRuleStore struct {
	mu      sync.RWMutex
	rules   []*penaltyrule.PenaltyRule
	listErr error
}

func NewInMemoryPenaltyRuleStore() *InMemoryPenaltyRuleStore {
	return &InMemoryPenaltyRuleStore{}
}

// Add seeds rules into the store
func (s *InMemoryPenaltyRuleStore) Add(rules ...*penaltyrule.PenaltyRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rules...)
}

// WithListError makes every List call fail
func (s *InMemoryPenaltyRuleStore) WithListError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

func (s *InMemoryPenaltyRuleStore) List(_ context.Context) ([]*penaltyrule.PenaltyRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*penaltyrule.PenaltyRule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

// Clear removes all rules from the store
func (s *InMemoryPenaltyRuleStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = nil
	s.listErr = nil
}
