package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"studyswap.org/internal/notify"
)

type moderationRecorder struct {
	mu   sync.Mutex
	sent []notify.Draft
	err  error
}

func (r *moderationRecorder) Send(ctx context.Context, userID string, d notify.Draft) (notify.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, d)
	return notify.Notification{}, r.err
}

func seedMaterial(t *testing.T, store *InMemory) Material {
	t.Helper()
	m, err := store.Save(context.Background(), Material{
		OwnerID: "alice", Title: "CS201 midterm notes",
		Subject: "CS201", ExamType: "MIDTERM",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestApproveNotifiesUploader(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	rec := &moderationRecorder{}
	svc := NewService(store, rec, zap.NewNop())
	m := seedMaterial(t, store)

	got, err := svc.Approve(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Approval != ApprovalApproved {
		t.Fatalf("approval = %s, want APPROVED", got.Approval)
	}

	stored, err := store.Find(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Approved() {
		t.Fatal("approval not persisted")
	}

	if len(rec.sent) != 1 || rec.sent[0].Type != notify.TypeMaterialApproved {
		t.Fatalf("notices = %+v, want one MATERIAL_APPROVED", rec.sent)
	}
	if rec.sent[0].RelatedID != m.ID {
		t.Fatalf("related id = %s, want %s", rec.sent[0].RelatedID, m.ID)
	}
}

func TestRejectNotifiesUploader(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	rec := &moderationRecorder{}
	svc := NewService(store, rec, zap.NewNop())
	m := seedMaterial(t, store)

	got, err := svc.Reject(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Approval != ApprovalRejected {
		t.Fatalf("approval = %s, want REJECTED", got.Approval)
	}
	if len(rec.sent) != 1 || rec.sent[0].Type != notify.TypeMaterialRejected {
		t.Fatalf("notices = %+v, want one MATERIAL_REJECTED", rec.sent)
	}
}

func TestReviewSurvivesNotifierFailure(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	rec := &moderationRecorder{err: errors.New("dispatcher down")}
	svc := NewService(store, rec, zap.NewNop())
	m := seedMaterial(t, store)

	if _, err := svc.Approve(ctx, m.ID); err != nil {
		t.Fatalf("notifier failure leaked: %v", err)
	}
	stored, err := store.Find(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Approved() {
		t.Fatal("approval not persisted")
	}
}

func TestReviewUnknownMaterial(t *testing.T) {
	svc := NewService(NewInMemory(), nil, zap.NewNop())
	if _, err := svc.Approve(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
