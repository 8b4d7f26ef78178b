package catalog

import (
	"context"
	"sort"
	"sync"

	"studyswap.org/internal/ids"
)

// InMemory implements Store for tests and DSN-less runs.
type InMemory struct {
	mu    sync.RWMutex
	items map[string]Material
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]Material)}
}

func (s *InMemory) Find(ctx context.Context, id string) (Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.items[id]
	if !ok {
		return Material{}, ErrNotFound
	}
	return m, nil
}

func (s *InMemory) FindApprovedBySubjectExam(ctx context.Context, subject, examType string) ([]Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Material
	for _, m := range s.items {
		if m.Approved() && m.Subject == subject && m.ExamType == examType {
			out = append(out, m)
		}
	}
	// newest first, id tiebreak, so results are stable for a fixed snapshot
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *InMemory) Save(ctx context.Context, m Material) (Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = ids.NewAt(m.CreatedAt)
	}
	s.items[m.ID] = m
	return m, nil
}

func (s *InMemory) SetApproval(ctx context.Context, id string, a Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	m.Approval = a
	s.items[id] = m
	return nil
}
