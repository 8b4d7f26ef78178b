package trust

import (
	"context"
	"sync"
)

// InMemory implements Store for tests and DSN-less runs.
type InMemory struct {
	mu    sync.RWMutex
	items map[string]Standing
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]Standing)}
}

func (s *InMemory) Get(ctx context.Context, userID string) (Standing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.items[userID]
	if !ok {
		return Standing{}, ErrNotFound
	}
	return st, nil
}

func (s *InMemory) Save(ctx context.Context, st Standing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[st.UserID] = st
	return nil
}
