package fanout

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"studyswap.org/internal/notify"
)

func note(id string) notify.Notification {
	return notify.Notification{ID: id, UserID: "alice", Type: notify.TypeSystem}
}

func recvOne(t *testing.T, ch <-chan notify.Notification) notify.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return n
	case <-time.After(time.Second):
		t.Fatal("no delivery")
	}
	return notify.Notification{}
}

func TestEmitToOfflineUserIsNoop(t *testing.T) {
	r := New(4, zap.NewNop())
	r.Emit("alice", note("n-1"))

	if r.IsConnected("alice") {
		t.Fatal("offline user reported connected")
	}
}

func TestMulticastToAllDevices(t *testing.T) {
	r := New(4, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	phone := r.Subscribe(ctx, "alice")
	laptop := r.Subscribe(ctx, "alice")

	r.Emit("alice", note("n-1"))

	if got := recvOne(t, phone); got.ID != "n-1" {
		t.Fatalf("phone got %s", got.ID)
	}
	if got := recvOne(t, laptop); got.ID != "n-1" {
		t.Fatalf("laptop got %s", got.ID)
	}
	if !r.IsConnected("alice") || r.ConnectedCount() != 1 {
		t.Fatalf("connected = %v count = %d", r.IsConnected("alice"), r.ConnectedCount())
	}
}

func TestCancelOneDeviceLeavesOthersAttached(t *testing.T) {
	r := New(4, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	phoneCtx, dropPhone := context.WithCancel(ctx)
	phone := r.Subscribe(phoneCtx, "alice")
	laptop := r.Subscribe(ctx, "alice")

	dropPhone()
	// the phone channel closes once the watcher runs
	select {
	case _, ok := <-phone:
		if ok {
			t.Fatal("unexpected delivery on the cancelled device")
		}
	case <-time.After(time.Second):
		t.Fatal("phone channel never closed")
	}

	r.Emit("alice", note("n-1"))
	if got := recvOne(t, laptop); got.ID != "n-1" {
		t.Fatalf("laptop got %s", got.ID)
	}
	if !r.IsConnected("alice") {
		t.Fatal("alice should still be connected via laptop")
	}
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	r := New(1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := r.Subscribe(ctx, "alice")
	done := make(chan struct{})
	go func() {
		r.Emit("alice", note("n-1"))
		r.Emit("alice", note("n-2")) // buffer full, dropped
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
	if got := recvOne(t, ch); got.ID != "n-1" {
		t.Fatalf("got %s, want the first delivery", got.ID)
	}
	select {
	case n := <-ch:
		t.Fatalf("unexpected second delivery %s", n.ID)
	default:
	}
}

func TestCleanupClosesAllAndForgetsUser(t *testing.T) {
	r := New(4, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	phone := r.Subscribe(ctx, "alice")
	laptop := r.Subscribe(ctx, "alice")

	r.Cleanup("alice")

	for _, ch := range []<-chan notify.Notification{phone, laptop} {
		if _, ok := <-ch; ok {
			t.Fatal("channel still open after cleanup")
		}
	}
	if r.IsConnected("alice") || r.ConnectedCount() != 0 {
		t.Fatal("registry still tracks alice after cleanup")
	}

	// emissions between cleanup and the next subscribe vanish, no replay
	r.Emit("alice", note("missed"))
	fresh := r.Subscribe(ctx, "alice")
	select {
	case n := <-fresh:
		t.Fatalf("replayed %s to a fresh subscription", n.ID)
	default:
	}

	r.Emit("alice", note("n-new"))
	if got := recvOne(t, fresh); got.ID != "n-new" {
		t.Fatalf("got %s", got.ID)
	}
}

func TestCleanupOfUnknownUserIsNoop(t *testing.T) {
	r := New(4, zap.NewNop())
	r.Cleanup("nobody")
}

// A logout followed by a reconnect reuses slot id 0 in a fresh entry. The
// first connection's late context cancellation must neither close the old
// channel twice nor detach the reconnected subscription.
func TestStaleCancelAfterCleanupAndResubscribe(t *testing.T) {
	r := New(4, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oldCtx, cancelOld := context.WithCancel(ctx)
	old := r.Subscribe(oldCtx, "alice")

	r.Cleanup("alice")
	if _, ok := <-old; ok {
		t.Fatal("old channel still open after cleanup")
	}

	fresh := r.Subscribe(ctx, "alice")

	cancelOld()
	// let the stale watcher observe the cancellation
	time.Sleep(100 * time.Millisecond)

	if !r.IsConnected("alice") {
		t.Fatal("stale cancel detached the reconnected subscription")
	}
	r.Emit("alice", note("n-after"))
	if got := recvOne(t, fresh); got.ID != "n-after" {
		t.Fatalf("got %s, want delivery on the fresh subscription", got.ID)
	}
}
