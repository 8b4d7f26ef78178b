package match

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"studyswap.org/internal/catalog"
	"studyswap.org/internal/notify"
	"studyswap.org/internal/obs"
)

// Catalog is the read view of materials the lifecycle needs for the
// ownership check.
type Catalog interface {
	Find(ctx context.Context, id string) (catalog.Material, error)
}

// Discovery resolves the receiver's matching artifact.
type Discovery interface {
	FindPartnerArtifact(ctx context.Context, partnerUserID, requesterArtifactID string) (catalog.Material, error)
}

// Trust gates participation and applies reputation effects.
type Trust interface {
	Eligible(ctx context.Context, userID string) (bool, error)
	Reward(ctx context.Context, userID string) error
	Penalize(ctx context.Context, userID string) error
}

// Notifier delivers lifecycle notices. Satisfied by *notify.Dispatcher.
type Notifier interface {
	Send(ctx context.Context, userID string, d notify.Draft) (notify.Notification, error)
}

// Service owns every status transition. Transitions are computed as pure
// functions on the Match value and persisted with a compare-and-swap, so
// concurrent callers cannot both win the same transition.
type Service struct {
	store     Store
	catalog   Catalog
	discovery Discovery
	trust     Trust
	notifier  Notifier
	log       *zap.Logger

	now func() time.Time
}

func NewService(store Store, cat Catalog, disc Discovery, trust Trust, notifier Notifier, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		catalog:   cat,
		discovery: disc,
		trust:     trust,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

// Request creates a PENDING match between the requester's material and the
// receiver's artifact in the same subject/exam-type peer group.
func (s *Service) Request(ctx context.Context, requesterID, requesterMaterialID, receiverID string) (Match, error) {
	if requesterID == receiverID {
		return Match{}, ErrSelfMatch
	}

	ok, err := s.trust.Eligible(ctx, requesterID)
	if err != nil {
		return Match{}, err
	}
	if !ok {
		return Match{}, ErrInsufficientTrust
	}

	own, err := s.catalog.Find(ctx, requesterMaterialID)
	if err != nil {
		return Match{}, err
	}
	if own.OwnerID != requesterID {
		return Match{}, ErrNotOwner
	}
	if !own.Approved() {
		return Match{}, ErrNotApproved
	}

	theirs, err := s.discovery.FindPartnerArtifact(ctx, receiverID, requesterMaterialID)
	if err != nil {
		return Match{}, err
	}

	m, err := s.store.Save(ctx, New(requesterID, requesterMaterialID, receiverID, theirs.ID, s.now()))
	if err != nil {
		return Match{}, err
	}
	obs.MatchesCreated.Inc()

	s.sendNotice(ctx, m.ReceiverID, notify.MatchRequested(m.ID, own.Subject))
	return m, nil
}

// Accept moves a PENDING match to ACCEPTED. Only the receiver may accept.
// Past the expiry instant the match is persisted as EXPIRED instead and
// ErrExpired is returned.
func (s *Service) Accept(ctx context.Context, matchID, actingUserID string) (Match, error) {
	m, err := s.store.Find(ctx, matchID)
	if err != nil {
		return Match{}, err
	}
	if actingUserID != m.ReceiverID {
		return Match{}, ErrForbidden
	}

	next, terr := m.Accept(s.now())
	if errors.Is(terr, ErrExpired) {
		expired, err := s.store.UpdateStatus(ctx, m.ID, StatusPending, StatusExpired)
		if err != nil {
			// Lost a race with the sweeper or a concurrent call; the
			// caller still sees the time-window violation.
			s.log.Debug("expiry side effect not persisted",
				zap.String("match_id", m.ID), zap.Error(err))
			return next, ErrExpired
		}
		obs.MatchTransitions.WithLabelValues(string(StatusExpired)).Inc()
		s.sendNotice(ctx, m.RequesterID, notify.MatchExpired(m.ID))
		return expired, ErrExpired
	}
	if terr != nil {
		return Match{}, terr
	}

	accepted, err := s.store.UpdateStatus(ctx, m.ID, StatusPending, StatusAccepted)
	if err != nil {
		return Match{}, err
	}
	obs.MatchTransitions.WithLabelValues(string(StatusAccepted)).Inc()

	s.sendNotice(ctx, m.RequesterID, notify.MatchAccepted(m.ID))
	return accepted, nil
}

// Reject moves a PENDING match to REJECTED. Only the receiver may reject;
// rejection is allowed past the expiry instant.
func (s *Service) Reject(ctx context.Context, matchID, actingUserID string) (Match, error) {
	m, err := s.store.Find(ctx, matchID)
	if err != nil {
		return Match{}, err
	}
	if actingUserID != m.ReceiverID {
		return Match{}, ErrForbidden
	}
	if _, err := m.Reject(); err != nil {
		return Match{}, err
	}

	rejected, err := s.store.UpdateStatus(ctx, m.ID, StatusPending, StatusRejected)
	if err != nil {
		return Match{}, err
	}
	obs.MatchTransitions.WithLabelValues(string(StatusRejected)).Inc()

	s.sendNotice(ctx, m.RequesterID, notify.MatchRejected(m.ID))
	return rejected, nil
}

// Complete moves an ACCEPTED match to COMPLETED and rewards both
// participants. Trust updates are best-effort: a failure never rolls back
// the completed transition, but each failed side is logged and counted.
func (s *Service) Complete(ctx context.Context, matchID, actingUserID string) (Match, error) {
	m, err := s.store.Find(ctx, matchID)
	if err != nil {
		return Match{}, err
	}
	if !m.IsParticipant(actingUserID) {
		return Match{}, ErrForbidden
	}
	if _, err := m.Complete(); err != nil {
		return Match{}, err
	}

	completed, err := s.store.UpdateStatus(ctx, m.ID, StatusAccepted, StatusCompleted)
	if err != nil {
		return Match{}, err
	}
	obs.MatchTransitions.WithLabelValues(string(StatusCompleted)).Inc()

	for _, userID := range []string{m.RequesterID, m.ReceiverID} {
		if err := s.trust.Reward(ctx, userID); err != nil {
			obs.TrustUpdateFailures.Inc()
			s.log.Error("trust reward failed after completion",
				zap.String("match_id", m.ID),
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}

	if other, err := m.OtherParticipant(actingUserID); err == nil {
		s.sendNotice(ctx, other, notify.MatchCompleted(m.ID))
	}
	return completed, nil
}

// Expire forces a non-terminal match to EXPIRED and notifies both sides.
// Invoked by the sweeper for matches whose window has passed.
func (s *Service) Expire(ctx context.Context, matchID string) (Match, error) {
	m, err := s.store.Find(ctx, matchID)
	if err != nil {
		return Match{}, err
	}
	if _, err := m.Expire(); err != nil {
		return Match{}, err
	}

	expired, err := s.store.UpdateStatus(ctx, m.ID, m.Status, StatusExpired)
	if err != nil {
		return Match{}, err
	}
	obs.MatchTransitions.WithLabelValues(string(StatusExpired)).Inc()

	s.sendNotice(ctx, m.RequesterID, notify.MatchExpired(m.ID))
	s.sendNotice(ctx, m.ReceiverID, notify.MatchExpired(m.ID))
	return expired, nil
}

// Report records a bad-match signal from a participant, penalizing the
// counterpart's trust score.
func (s *Service) Report(ctx context.Context, matchID, actingUserID string) error {
	m, err := s.store.Find(ctx, matchID)
	if err != nil {
		return err
	}
	if !m.IsParticipant(actingUserID) {
		return ErrForbidden
	}
	other, err := m.OtherParticipant(actingUserID)
	if err != nil {
		return err
	}
	return s.trust.Penalize(ctx, other)
}

// Get returns a match by id.
func (s *Service) Get(ctx context.Context, matchID string) (Match, error) {
	return s.store.Find(ctx, matchID)
}

// ListByUser returns every match the user participates in, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Match, error) {
	return s.store.FindByUser(ctx, userID)
}

// ListActiveByUser returns the user's matches that are PENDING or ACCEPTED
// and not yet past expiry.
func (s *Service) ListActiveByUser(ctx context.Context, userID string) ([]Match, error) {
	all, err := s.store.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]Match, 0, len(all))
	for _, m := range all {
		if m.Active(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

// sendNotice delivers a lifecycle notification best-effort. A dispatcher
// failure never fails the transition that triggered it.
func (s *Service) sendNotice(ctx context.Context, userID string, d notify.Draft) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Send(ctx, userID, d); err != nil {
		s.log.Warn("lifecycle notification failed",
			zap.String("user_id", userID),
			zap.String("type", string(d.Type)),
			zap.Error(err))
	}
}
