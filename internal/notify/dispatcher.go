package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"studyswap.org/internal/obs"
)

// Fanout pushes a notification to any live streams for the user. Emit must
// never block; delivery is best-effort.
type Fanout interface {
	Emit(userID string, n Notification)
}

// Mailer sends an email. Failures never propagate past the dispatcher.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// AddressBook resolves a user id to an email address. Owned by an external
// collaborator; a lookup failure only skips the email leg.
type AddressBook interface {
	EmailOf(ctx context.Context, userID string) (string, error)
}

const mailTimeout = 10 * time.Second

// Dispatcher persists notifications and drives best-effort delivery:
// store first (source of truth), then live stream, then email. The
// notification counts as created once persisted, whatever happens
// downstream.
type Dispatcher struct {
	store  Store
	fanout Fanout
	mailer Mailer
	addrs  AddressBook
	log    *zap.Logger

	now func() time.Time
}

// NewDispatcher wires the delivery pipeline. fanout, mailer and addrs may
// be nil; the corresponding leg is skipped.
func NewDispatcher(store Store, fanout Fanout, mailer Mailer, addrs AddressBook, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		fanout: fanout,
		mailer: mailer,
		addrs:  addrs,
		log:    log,
		now:    time.Now,
	}
}

// Send persists a notification built from the draft and then attempts the
// live-stream and email legs. Only persistence failures are returned.
func (d *Dispatcher) Send(ctx context.Context, userID string, draft Draft) (Notification, error) {
	if !draft.Type.Valid() {
		return Notification{}, ErrInvalidType
	}
	n := Notification{
		UserID:    userID,
		Type:      draft.Type,
		Title:     draft.Title,
		Message:   draft.Message,
		RelatedID: draft.RelatedID,
		CreatedAt: d.now().UTC(),
	}
	n, err := d.store.Save(ctx, n)
	if err != nil {
		return Notification{}, err
	}
	obs.NotificationsCreated.Inc()

	if d.fanout != nil {
		d.fanout.Emit(userID, n)
	}
	if d.mailer != nil && d.addrs != nil {
		// Fire-and-forget: the caller's context may end before the mail
		// provider answers, so detach from cancellation.
		go d.sendMail(context.WithoutCancel(ctx), n)
	}
	return n, nil
}

func (d *Dispatcher) sendMail(ctx context.Context, n Notification) {
	ctx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()

	to, err := d.addrs.EmailOf(ctx, n.UserID)
	if err != nil {
		d.log.Warn("notification email skipped: no address",
			zap.String("user_id", n.UserID), zap.Error(err))
		return
	}
	if err := d.mailer.Send(ctx, to, n.Title, n.Message); err != nil {
		obs.MailFailures.Inc()
		d.log.Warn("notification email failed",
			zap.String("user_id", n.UserID),
			zap.String("notification_id", n.ID),
			zap.Error(err))
	}
}

// ListByUser returns all notifications for the user, newest first.
func (d *Dispatcher) ListByUser(ctx context.Context, userID string) ([]Notification, error) {
	return d.store.FindByUser(ctx, userID)
}

// ListUnread returns unread notifications for the user, newest first.
func (d *Dispatcher) ListUnread(ctx context.Context, userID string) ([]Notification, error) {
	return d.store.FindUnreadByUser(ctx, userID)
}

// MarkRead flips the read flag. Only the owner may do this.
func (d *Dispatcher) MarkRead(ctx context.Context, id, actingUserID string) error {
	n, err := d.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != actingUserID {
		return ErrForbidden
	}
	return d.store.MarkRead(ctx, id)
}

// MarkAllRead marks every unread notification of the user as read.
func (d *Dispatcher) MarkAllRead(ctx context.Context, userID string) error {
	return d.store.MarkAllRead(ctx, userID)
}

// Delete removes a notification. Only the owner may do this.
func (d *Dispatcher) Delete(ctx context.Context, id, actingUserID string) error {
	n, err := d.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != actingUserID {
		return ErrForbidden
	}
	return d.store.Delete(ctx, id)
}
