package match

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSweepExpiresOverdueMatches(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	svc := NewService(store, nil, nil, nil, nil, zap.NewNop())

	overduePending, err := store.Save(ctx, New("alice", "mat-a", "bob", "mat-b", t0.Add(-2*TTL)))
	if err != nil {
		t.Fatal(err)
	}
	overdueAccepted := New("carol", "mat-c", "dave", "mat-d", t0.Add(-2*TTL))
	overdueAccepted.Status = StatusAccepted
	overdueAccepted, err = store.Save(ctx, overdueAccepted)
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := store.Save(ctx, New("erin", "mat-e", "frank", "mat-f", t0))
	if err != nil {
		t.Fatal(err)
	}

	sw := NewSweeper(store, svc, zap.NewNop())
	sw.now = func() time.Time { return t0 }
	sw.sweep(ctx)

	for _, id := range []string{overduePending.ID, overdueAccepted.ID} {
		m, err := store.Find(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if m.Status != StatusExpired {
			t.Fatalf("match %s status = %s, want EXPIRED", id, m.Status)
		}
	}

	got, err := store.Find(ctx, fresh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusPending {
		t.Fatalf("fresh match status = %s, want PENDING", got.Status)
	}
}

func TestSweepToleratesConcurrentTransition(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	svc := NewService(store, nil, nil, nil, nil, zap.NewNop())

	m, err := store.Save(ctx, New("alice", "mat-a", "bob", "mat-b", t0.Add(-2*TTL)))
	if err != nil {
		t.Fatal(err)
	}

	// racingStore reports the match as expired but flips it terminal before
	// the sweep gets to it.
	rs := &racingStore{Store: store, flip: func() {
		_, _ = store.UpdateStatus(ctx, m.ID, StatusPending, StatusRejected)
	}}
	sw := NewSweeper(rs, svc, zap.NewNop())
	sw.now = func() time.Time { return t0 }
	sw.sweep(ctx)

	got, err := store.Find(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusRejected {
		t.Fatalf("status = %s, want REJECTED to survive the sweep", got.Status)
	}
}

type racingStore struct {
	Store
	flip func()
}

func (s *racingStore) FindExpired(ctx context.Context, now time.Time) ([]Match, error) {
	out, err := s.Store.FindExpired(ctx, now)
	s.flip()
	return out, err
}

func TestRunStopsOnCancel(t *testing.T) {
	store := NewInMemory()
	svc := NewService(store, nil, nil, nil, nil, zap.NewNop())
	sw := NewSweeper(store, svc, zap.NewNop())
	sw.SetTickInterval(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
