package notify

import (
	"context"
	"sort"
	"sync"

	"studyswap.org/internal/ids"
)

// Store describes persistence for notification records. The dispatcher
// owns creation; read-flag updates and deletes go through the Dispatcher
// methods so ownership is checked in one place.
type Store interface {
	Save(ctx context.Context, n Notification) (Notification, error)
	Find(ctx context.Context, id string) (Notification, error)
	FindByUser(ctx context.Context, userID string) ([]Notification, error)
	FindUnreadByUser(ctx context.Context, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, id string) error
}

// InMemory implements Store with in-process concurrency safety. Used in
// tests and when the API runs without a database DSN.
type InMemory struct {
	mu    sync.RWMutex
	items map[string]Notification
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]Notification)}
}

func (s *InMemory) Save(ctx context.Context, n Notification) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = ids.NewAt(n.CreatedAt)
	}
	s.items[n.ID] = n
	return n, nil
}

func (s *InMemory) Find(ctx context.Context, id string) (Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.items[id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

func (s *InMemory) FindByUser(ctx context.Context, userID string) ([]Notification, error) {
	return s.list(userID, false)
}

func (s *InMemory) FindUnreadByUser(ctx context.Context, userID string) ([]Notification, error) {
	return s.list(userID, true)
}

func (s *InMemory) list(userID string, unreadOnly bool) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Notification
	for _, n := range s.items {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	// newest first; id breaks created_at ties deterministically
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *InMemory) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	n.Read = true
	s.items[id] = n
	return nil
}

func (s *InMemory) MarkAllRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.items {
		if n.UserID == userID && !n.Read {
			n.Read = true
			s.items[id] = n
		}
	}
	return nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}
