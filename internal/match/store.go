package match

import (
	"context"
	"sort"
	"sync"
	"time"

	"studyswap.org/internal/ids"
)

// Store persists matches. UpdateStatus is a compare-and-swap: the write
// lands only while the stored status still equals from, which keeps two
// concurrent accept/reject calls from both succeeding.
type Store interface {
	Save(ctx context.Context, m Match) (Match, error)
	Find(ctx context.Context, id string) (Match, error)
	FindByUser(ctx context.Context, userID string) ([]Match, error)
	FindExpired(ctx context.Context, now time.Time) ([]Match, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) (Match, error)
}

// InMemory implements Store with in-process concurrency safety. Used in
// tests and when the API runs without a database DSN.
type InMemory struct {
	mu    sync.RWMutex
	items map[string]Match
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]Match)}
}

func (s *InMemory) Save(ctx context.Context, m Match) (Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = ids.NewAt(m.CreatedAt)
	}
	s.items[m.ID] = m
	return m, nil
}

func (s *InMemory) Find(ctx context.Context, id string) (Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.items[id]
	if !ok {
		return Match{}, ErrNotFound
	}
	return m, nil
}

func (s *InMemory) FindByUser(ctx context.Context, userID string) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Match
	for _, m := range s.items {
		if m.IsParticipant(userID) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *InMemory) FindExpired(ctx context.Context, now time.Time) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Match
	for _, m := range s.items {
		if !m.Status.Terminal() && now.After(m.ExpiredAt) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) UpdateStatus(ctx context.Context, id string, from, to Status) (Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[id]
	if !ok {
		return Match{}, ErrNotFound
	}
	if m.Status != from {
		return Match{}, ErrInvalidTransition
	}
	m.Status = to
	s.items[id] = m
	return m, nil
}
