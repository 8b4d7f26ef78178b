package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"studyswap.org/internal/notify"
)

// Notifier delivers moderation notices. Satisfied by *notify.Dispatcher.
type Notifier interface {
	Send(ctx context.Context, userID string, d notify.Draft) (notify.Notification, error)
}

// Service covers the moderation operations on the catalog. Review results
// notify the uploader best-effort.
type Service struct {
	store    Store
	notifier Notifier
	log      *zap.Logger

	now func() time.Time
}

func NewService(store Store, notifier Notifier, log *zap.Logger) *Service {
	return &Service{store: store, notifier: notifier, log: log, now: time.Now}
}

// Get returns a material by id.
func (s *Service) Get(ctx context.Context, id string) (Material, error) {
	return s.store.Find(ctx, id)
}

// Approve marks the material APPROVED and notifies its uploader.
func (s *Service) Approve(ctx context.Context, id string) (Material, error) {
	return s.review(ctx, id, ApprovalApproved)
}

// Reject marks the material REJECTED and notifies its uploader.
func (s *Service) Reject(ctx context.Context, id string) (Material, error) {
	return s.review(ctx, id, ApprovalRejected)
}

func (s *Service) review(ctx context.Context, id string, a Approval) (Material, error) {
	m, err := s.store.Find(ctx, id)
	if err != nil {
		return Material{}, err
	}
	if err := s.store.SetApproval(ctx, id, a); err != nil {
		return Material{}, err
	}
	m.Approval = a

	if s.notifier != nil {
		draft := notify.MaterialReviewed(m.ID, m.Title, a == ApprovalApproved)
		if _, err := s.notifier.Send(ctx, m.OwnerID, draft); err != nil {
			s.log.Warn("moderation notice failed",
				zap.String("material_id", m.ID),
				zap.String("owner_id", m.OwnerID),
				zap.Error(err))
		}
	}
	return m, nil
}
