// Package fanout keeps the per-user registry of live notification streams
// and multicasts emitted notifications to every attached connection.
package fanout

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"studyswap.org/internal/notify"
	"studyswap.org/internal/obs"
)

// DefaultBuffer is the per-connection backpressure buffer. A slow consumer
// risks losing live deliveries, never blocking the producer; the persisted
// record stays authoritative.
const DefaultBuffer = 16

// Registry maps a user id to that user's broadcast entry. An entry is
// created lazily on first subscription, shared by all of the user's
// devices, and removed only by Cleanup — a single connection dropping must
// not tear it down while other devices may still be attached.
type Registry struct {
	mu     sync.RWMutex
	users  map[string]*entry
	buffer int
	log    *zap.Logger
}

type entry struct {
	subs map[int]chan notify.Notification
	next int
}

// New creates an empty registry. Each test constructs its own instance;
// there is no package-level state.
func New(buffer int, log *zap.Logger) *Registry {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Registry{
		users:  make(map[string]*entry),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe attaches a new connection for the user and returns its channel.
// Every live connection of the user receives every emission independently.
// The channel closes when ctx ends or the user's entry is cleaned up;
// cancelling one subscription leaves the others untouched.
func (r *Registry) Subscribe(ctx context.Context, userID string) <-chan notify.Notification {
	ch := make(chan notify.Notification, r.buffer)

	r.mu.Lock()
	e, ok := r.users[userID]
	if !ok {
		e = &entry{subs: make(map[int]chan notify.Notification)}
		r.users[userID] = e
	}
	id := e.next
	e.next++
	e.subs[id] = ch
	r.mu.Unlock()

	obs.StreamSubscribers.Inc()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		e, ok := r.users[userID]
		if !ok {
			return // Cleanup already closed everything
		}
		// Slot ids restart at zero for every fresh entry, so the channel
		// itself is the identity: a stale watcher from before a
		// cleanup/resubscribe cycle must not touch the new occupant.
		if cur, live := e.subs[id]; !live || cur != ch {
			return
		}
		delete(e.subs, id)
		close(ch)
		obs.StreamSubscribers.Dec()
	}()

	return ch
}

// Emit delivers n to every live connection of the user. Publishing is
// non-blocking: a full buffer drops the live delivery, logged and counted.
// No entry for the user means the user is offline and Emit is a no-op.
func (r *Registry) Emit(userID string, n notify.Notification) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.users[userID]
	if !ok {
		return
	}
	for _, ch := range e.subs {
		select {
		case ch <- n:
		default:
			obs.NotificationsDropped.Inc()
			r.log.Warn("live delivery dropped: subscriber buffer full",
				zap.String("user_id", userID),
				zap.String("notification_id", n.ID))
		}
	}
}

// Cleanup closes every connection of the user and removes the entry.
// Meant for explicit logout; a later Subscribe starts a fresh entry with
// no replay of anything emitted in between.
func (r *Registry) Cleanup(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[userID]
	if !ok {
		return
	}
	for _, ch := range e.subs {
		close(ch)
		obs.StreamSubscribers.Dec()
	}
	delete(r.users, userID)
}

// IsConnected reports whether the user has at least one live connection.
func (r *Registry) IsConnected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.users[userID]
	return ok && len(e.subs) > 0
}

// ConnectedCount returns the number of users with at least one live
// connection.
func (r *Registry) ConnectedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.users {
		if len(e.subs) > 0 {
			n++
		}
	}
	return n
}
