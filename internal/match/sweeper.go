package match

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically forces EXPIRED on matches whose window has passed
// while they were still PENDING or ACCEPTED.
type Sweeper struct {
	store Store
	svc   *Service
	log   *zap.Logger
	tick  time.Duration
	now   func() time.Time
}

func NewSweeper(store Store, svc *Service, log *zap.Logger) *Sweeper {
	return &Sweeper{
		store: store,
		svc:   svc,
		log:   log,
		tick:  time.Minute,
		now:   time.Now,
	}
}

// SetTickInterval overrides the default 1-minute sweep interval.
func (s *Sweeper) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run sweeps once immediately and then on every tick, blocking until ctx
// is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.store.FindExpired(ctx, s.now())
	if err != nil {
		s.log.Error("list expired matches", zap.Error(err))
		return
	}

	for _, m := range expired {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.svc.Expire(ctx, m.ID); err != nil {
			// A concurrent transition may have beaten the sweep.
			if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
				continue
			}
			s.log.Error("expire match", zap.String("match_id", m.ID), zap.Error(err))
		}
	}

	if len(expired) > 0 {
		s.log.Info("expiry sweep", zap.Int("candidates", len(expired)))
	}
}
