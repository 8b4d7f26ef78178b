package match

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestMatch() Match {
	return New("alice", "mat-a", "bob", "mat-b", t0)
}

func TestNewMatchWindow(t *testing.T) {
	m := newTestMatch()
	if m.Status != StatusPending {
		t.Fatalf("status = %s, want PENDING", m.Status)
	}
	if got := m.ExpiredAt.Sub(m.CreatedAt); got != TTL {
		t.Fatalf("expiry window = %s, want %s", got, TTL)
	}
}

func TestAcceptWithinWindow(t *testing.T) {
	m := newTestMatch()
	got, err := m.Accept(t0.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusAccepted {
		t.Fatalf("status = %s, want ACCEPTED", got.Status)
	}
	// the original value is untouched
	if m.Status != StatusPending {
		t.Fatalf("receiver mutated: %s", m.Status)
	}
}

func TestAcceptPastExpiryNeverAccepts(t *testing.T) {
	m := newTestMatch()
	got, err := m.Accept(t0.Add(TTL + time.Second))
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if got.Status != StatusExpired {
		t.Fatalf("status = %s, want EXPIRED", got.Status)
	}
}

func TestRejectIgnoresExpiry(t *testing.T) {
	m := newTestMatch()
	got, err := m.Reject()
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusRejected {
		t.Fatalf("status = %s, want REJECTED", got.Status)
	}
}

func TestOnlyEnumeratedTransitionsReachable(t *testing.T) {
	accepted, _ := newTestMatch().Accept(t0)

	cases := []struct {
		name string
		m    Match
		op   func(Match) (Match, error)
	}{
		{"accept accepted", accepted, func(m Match) (Match, error) { return m.Accept(t0) }},
		{"reject accepted", accepted, func(m Match) (Match, error) { return m.Reject() }},
		{"complete pending", newTestMatch(), func(m Match) (Match, error) { return m.Complete() }},
		{"accept rejected", mustStatus(t, StatusRejected), func(m Match) (Match, error) { return m.Accept(t0) }},
		{"complete rejected", mustStatus(t, StatusRejected), func(m Match) (Match, error) { return m.Complete() }},
		{"expire completed", mustStatus(t, StatusCompleted), func(m Match) (Match, error) { return m.Expire() }},
		{"expire expired", mustStatus(t, StatusExpired), func(m Match) (Match, error) { return m.Expire() }},
	}
	for _, tc := range cases {
		if _, err := tc.op(tc.m); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s: err = %v, want ErrInvalidTransition", tc.name, err)
		}
	}
}

func mustStatus(t *testing.T, s Status) Match {
	t.Helper()
	m := newTestMatch()
	m.Status = s
	return m
}

func TestExpireFromPendingAndAccepted(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusAccepted} {
		m := mustStatus(t, s)
		got, err := m.Expire()
		if err != nil {
			t.Fatalf("expire from %s: %v", s, err)
		}
		if got.Status != StatusExpired {
			t.Fatalf("expire from %s: status = %s", s, got.Status)
		}
	}
}

func TestParticipantQueries(t *testing.T) {
	m := newTestMatch()

	if !m.IsParticipant("alice") || !m.IsParticipant("bob") {
		t.Fatal("participants not recognized")
	}
	if m.IsParticipant("mallory") {
		t.Fatal("stranger recognized as participant")
	}

	other, err := m.OtherParticipant("alice")
	if err != nil || other != "bob" {
		t.Fatalf("other of alice = %q, %v", other, err)
	}
	if _, err := m.OtherParticipant("mallory"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}

	mat, err := m.MaterialOf("bob")
	if err != nil || mat != "mat-b" {
		t.Fatalf("material of bob = %q, %v", mat, err)
	}
	if _, err := m.MaterialOf("mallory"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
}

func TestActive(t *testing.T) {
	m := newTestMatch()
	if !m.Active(t0.Add(time.Hour)) {
		t.Fatal("pending within window should be active")
	}
	if m.Active(t0.Add(TTL + time.Second)) {
		t.Fatal("pending past window should be inactive")
	}
	if mustStatus(t, StatusCompleted).Active(t0) {
		t.Fatal("terminal match should be inactive")
	}
}
