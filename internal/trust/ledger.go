package trust

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"studyswap.org/internal/notify"
)

// Store persists trust standings as read-modify-write rows keyed by user.
type Store interface {
	Get(ctx context.Context, userID string) (Standing, error)
	Save(ctx context.Context, s Standing) error
}

// Notifier delivers the promotion notice. Satisfied by *notify.Dispatcher.
type Notifier interface {
	Send(ctx context.Context, userID string, d notify.Draft) (notify.Notification, error)
}

// Ledger applies bounded score updates and answers the eligibility gate.
type Ledger struct {
	store    Store
	notifier Notifier
	log      *zap.Logger

	now func() time.Time
}

// NewLedger builds a Ledger. notifier may be nil; promotion notices are
// then skipped.
func NewLedger(store Store, notifier Notifier, log *zap.Logger) *Ledger {
	return &Ledger{store: store, notifier: notifier, log: log, now: time.Now}
}

// Get returns the user's standing, defaulting to the zero score for users
// with no record yet.
func (l *Ledger) Get(ctx context.Context, userID string) (Standing, error) {
	s, err := l.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Standing{UserID: userID}, nil
	}
	return s, err
}

// Eligible reports whether the user may participate in matches.
func (l *Ledger) Eligible(ctx context.Context, userID string) (bool, error) {
	s, err := l.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.Score.Eligible(), nil
}

// Reward increments the user's score (capped). When the increment lifts the
// user from below the threshold to eligible, a USER_PROMOTED notification
// is sent best-effort.
func (l *Ledger) Reward(ctx context.Context, userID string) error {
	return l.apply(ctx, userID, Score.Inc)
}

// Penalize decrements the user's score (floored). Invoked on an explicit
// bad-match report.
func (l *Ledger) Penalize(ctx context.Context, userID string) error {
	return l.apply(ctx, userID, Score.Dec)
}

func (l *Ledger) apply(ctx context.Context, userID string, step func(Score) Score) error {
	s, err := l.Get(ctx, userID)
	if err != nil {
		return err
	}
	old := s.Score
	s.Score = step(old)
	s.UpdatedAt = l.now().UTC()
	if err := l.store.Save(ctx, s); err != nil {
		return err
	}

	if l.notifier != nil && !old.Eligible() && s.Score.Eligible() {
		if _, err := l.notifier.Send(ctx, userID, notify.UserPromoted()); err != nil {
			l.log.Warn("promotion notice failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
	return nil
}
