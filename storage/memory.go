package storage

import (
	"context"
	"sync"

	"github.com/richinex/prompter/model"
)

// InMemoryStore implements HistoryStore in memory.
// Data is lost when process terminates.
type InMemoryStore struct {
	mu      sync.RWMutex
	history model.History
	saves   int
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{history: model.History{}}
}

// Save replaces the stored history.
func (s *InMemoryStore) Save(ctx context.Context, history model.History) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Make a copy to avoid external mutations
	s.history = append(model.History{}, history...)
	s.saves++
	return nil
}

// Load returns a copy of the stored history.
func (s *InMemoryStore) Load(ctx context.Context) (model.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append(model.History{}, s.history...), nil
}

// Saves returns how many times Save was called.
func (s *InMemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

var _ HistoryStore = (*InMemoryStore)(nil)
