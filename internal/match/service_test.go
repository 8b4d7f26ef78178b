package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"studyswap.org/internal/catalog"
	"studyswap.org/internal/discovery"
	"studyswap.org/internal/notify"
	"studyswap.org/internal/trust"
)

// noticeRecorder captures lifecycle notifications instead of delivering
// them.
type noticeRecorder struct {
	mu   sync.Mutex
	sent []sentNotice
}

type sentNotice struct {
	userID string
	draft  notify.Draft
}

func (r *noticeRecorder) Send(ctx context.Context, userID string, d notify.Draft) (notify.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotice{userID: userID, draft: d})
	return notify.Notification{UserID: userID, Type: d.Type}, nil
}

func (r *noticeRecorder) byType(t notify.Type) []sentNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentNotice
	for _, s := range r.sent {
		if s.draft.Type == t {
			out = append(out, s)
		}
	}
	return out
}

type fixture struct {
	svc     *Service
	store   *InMemory
	cat     *catalog.InMemory
	ledger  *trust.Ledger
	notices *noticeRecorder

	aliceMat catalog.Material
	bobMat   catalog.Material
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	f := &fixture{
		store:   NewInMemory(),
		cat:     catalog.NewInMemory(),
		notices: &noticeRecorder{},
	}
	f.ledger = trust.NewLedger(trust.NewInMemory(), nil, logger)
	f.svc = NewService(f.store, f.cat, discovery.NewService(f.cat), f.ledger, f.notices, logger)
	f.svc.now = func() time.Time { return t0 }

	var err error
	f.aliceMat, err = f.cat.Save(ctx, catalog.Material{
		OwnerID: "alice", Subject: "CS201", ExamType: "MIDTERM",
		Approval: catalog.ApprovalApproved, CreatedAt: t0.Add(-time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	f.bobMat, err = f.cat.Save(ctx, catalog.Material{
		OwnerID: "bob", Subject: "CS201", ExamType: "MIDTERM",
		Approval: catalog.ApprovalApproved, CreatedAt: t0.Add(-time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) request(t *testing.T) Match {
	t.Helper()
	m, err := f.svc.Request(context.Background(), "alice", f.aliceMat.ID, "bob")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return m
}

func TestRequestCreatesPendingAndNotifiesReceiver(t *testing.T) {
	f := newFixture(t)
	m := f.request(t)

	if m.Status != StatusPending {
		t.Fatalf("status = %s, want PENDING", m.Status)
	}
	if m.ReceiverMaterialID != f.bobMat.ID {
		t.Fatalf("receiver material = %s, want %s", m.ReceiverMaterialID, f.bobMat.ID)
	}
	if got := m.ExpiredAt.Sub(m.CreatedAt); got != TTL {
		t.Fatalf("expiry window = %s, want %s", got, TTL)
	}

	got := f.notices.byType(notify.TypeMatchRequestReceived)
	if len(got) != 1 || got[0].userID != "bob" {
		t.Fatalf("request notices = %+v, want one to bob", got)
	}
	if got[0].draft.RelatedID != m.ID {
		t.Fatalf("notice related id = %s, want %s", got[0].draft.RelatedID, m.ID)
	}
}

func TestRequestSelfMatch(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Request(context.Background(), "alice", f.aliceMat.ID, "alice"); !errors.Is(err, ErrSelfMatch) {
		t.Fatalf("err = %v, want ErrSelfMatch", err)
	}
}

func TestRequestRejectsBorrowedMaterial(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Request(context.Background(), "alice", f.bobMat.ID, "bob"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestRequestRejectsUnapprovedMaterial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, a := range []catalog.Approval{catalog.ApprovalPending, catalog.ApprovalRejected} {
		mat, err := f.cat.Save(ctx, catalog.Material{
			OwnerID: "alice", Subject: "CS201", ExamType: "MIDTERM",
			Approval: a, CreatedAt: t0.Add(-time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.svc.Request(ctx, "alice", mat.ID, "bob"); !errors.Is(err, ErrNotApproved) {
			t.Errorf("%s material: err = %v, want ErrNotApproved", a, err)
		}
	}
}

func TestRequestGatesOnTrust(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.ledger.Penalize(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Request(ctx, "alice", f.aliceMat.ID, "bob"); !errors.Is(err, ErrInsufficientTrust) {
		t.Fatalf("err = %v, want ErrInsufficientTrust", err)
	}
}

func TestRequestNoMatchingArtifact(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Request(context.Background(), "alice", f.aliceMat.ID, "carol"); !errors.Is(err, discovery.ErrNoMatchingArtifact) {
		t.Fatalf("err = %v, want ErrNoMatchingArtifact", err)
	}
}

func TestAcceptOnlyByReceiver(t *testing.T) {
	f := newFixture(t)
	m := f.request(t)

	if _, err := f.svc.Accept(context.Background(), m.ID, "alice"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("requester accept err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Accept(context.Background(), m.ID, "mallory"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger accept err = %v, want ErrForbidden", err)
	}

	got, err := f.svc.Accept(context.Background(), m.ID, "bob")
	if err != nil {
		t.Fatalf("receiver accept: %v", err)
	}
	if got.Status != StatusAccepted {
		t.Fatalf("status = %s, want ACCEPTED", got.Status)
	}
	if n := f.notices.byType(notify.TypeSystem); len(n) != 1 || n[0].userID != "alice" {
		t.Fatalf("accept notices = %+v, want one SYSTEM to alice", n)
	}
}

func TestAcceptPastExpiryPersistsExpired(t *testing.T) {
	f := newFixture(t)
	m := f.request(t)

	f.svc.now = func() time.Time { return t0.Add(TTL + time.Minute) }
	_, err := f.svc.Accept(context.Background(), m.ID, "bob")
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}

	stored, err := f.store.Find(context.Background(), m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != StatusExpired {
		t.Fatalf("stored status = %s, want EXPIRED", stored.Status)
	}
}

func TestRejectAllowedPastExpiry(t *testing.T) {
	f := newFixture(t)
	m := f.request(t)

	f.svc.now = func() time.Time { return t0.Add(TTL + time.Minute) }
	got, err := f.svc.Reject(context.Background(), m.ID, "bob")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != StatusRejected {
		t.Fatalf("status = %s, want REJECTED", got.Status)
	}
}

func TestCompleteRewardsBothParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.request(t)
	if _, err := f.svc.Accept(ctx, m.ID, "bob"); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.Complete(ctx, m.ID, "alice")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}

	for _, user := range []string{"alice", "bob"} {
		st, err := f.ledger.Get(ctx, user)
		if err != nil {
			t.Fatal(err)
		}
		if st.Score != 1 {
			t.Fatalf("trust %s = %d, want 1", user, st.Score)
		}
	}

	if n := f.notices.byType(notify.TypeMatchCompleted); len(n) != 1 || n[0].userID != "bob" {
		t.Fatalf("completion notices = %+v, want one to bob", n)
	}
}

func TestDoubleCompleteDoesNotDoubleReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.request(t)
	if _, err := f.svc.Accept(ctx, m.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Complete(ctx, m.ID, "alice"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Complete(ctx, m.ID, "bob"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second complete err = %v, want ErrInvalidTransition", err)
	}
	st, err := f.ledger.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if st.Score != 1 {
		t.Fatalf("trust alice = %d after double complete, want 1", st.Score)
	}
}

func TestCompleteByNonParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.request(t)
	if _, err := f.svc.Accept(ctx, m.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Complete(ctx, m.ID, "mallory"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

// failingTrust completes the eligibility gate but refuses every update.
type failingTrust struct{}

func (failingTrust) Eligible(ctx context.Context, userID string) (bool, error) { return true, nil }
func (failingTrust) Reward(ctx context.Context, userID string) error {
	return errors.New("ledger unavailable")
}
func (failingTrust) Penalize(ctx context.Context, userID string) error {
	return errors.New("ledger unavailable")
}

func TestCompleteSurvivesTrustFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.trust = failingTrust{}
	ctx := context.Background()

	m := f.request(t)
	if _, err := f.svc.Accept(ctx, m.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.Complete(ctx, m.ID, "alice")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED despite trust failure", got.Status)
	}
}

func TestConcurrentAcceptRejectSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.request(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); _, errs[0] = f.svc.Accept(ctx, m.ID, "bob") }()
	go func() { defer wg.Done(); _, errs[1] = f.svc.Reject(ctx, m.ID, "bob") }()
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("loser err = %v, want ErrInvalidTransition", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}

	stored, err := f.store.Find(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != StatusAccepted && stored.Status != StatusRejected {
		t.Fatalf("final status = %s", stored.Status)
	}
}

func TestReportPenalizesCounterpart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.request(t)

	if err := f.svc.Report(ctx, m.ID, "mallory"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger report err = %v, want ErrForbidden", err)
	}
	if err := f.svc.Report(ctx, m.ID, "alice"); err != nil {
		t.Fatalf("report: %v", err)
	}

	st, err := f.ledger.Get(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if st.Score != -1 {
		t.Fatalf("trust bob = %d, want -1", st.Score)
	}
}

func TestListActiveFiltersTerminalAndStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := f.request(t)
	rejected := f.request(t)
	if _, err := f.svc.Reject(ctx, rejected.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	stale := New("alice", f.aliceMat.ID, "bob", f.bobMat.ID, t0.Add(-2*TTL))
	if _, err := f.store.Save(ctx, stale); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.ListActiveByUser(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != active.ID {
		t.Fatalf("active = %+v, want only %s", got, active.ID)
	}
}
