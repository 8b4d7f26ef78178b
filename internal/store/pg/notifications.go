package pg

import (
	"context"
	"database/sql"
	"errors"

	"studyswap.org/internal/ids"
	"studyswap.org/internal/notify"
)

// NotificationStore persists notification records.
type NotificationStore struct {
	db *sql.DB
}

var _ notify.Store = (*NotificationStore)(nil)

const notificationColumns = `id, user_id, type, title, message, related_id, read, created_at`

func (s *NotificationStore) Save(ctx context.Context, n notify.Notification) (notify.Notification, error) {
	if n.ID == "" {
		n.ID = ids.NewAt(n.CreatedAt)
	}
	_, err := s.db.ExecContext(ctx, `
		insert into notifications (`+notificationColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.RelatedID, n.Read, n.CreatedAt)
	if err != nil {
		return notify.Notification{}, err
	}
	return n, nil
}

func (s *NotificationStore) Find(ctx context.Context, id string) (notify.Notification, error) {
	row := s.db.QueryRowContext(ctx, `select `+notificationColumns+` from notifications where id=$1`, id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return notify.Notification{}, notify.ErrNotFound
	}
	return n, err
}

func (s *NotificationStore) FindByUser(ctx context.Context, userID string) ([]notify.Notification, error) {
	return s.list(ctx, `
		select `+notificationColumns+` from notifications
		where user_id=$1
		order by created_at desc, id desc
	`, userID)
}

func (s *NotificationStore) FindUnreadByUser(ctx context.Context, userID string) ([]notify.Notification, error) {
	return s.list(ctx, `
		select `+notificationColumns+` from notifications
		where user_id=$1 and read=false
		order by created_at desc, id desc
	`, userID)
}

func (s *NotificationStore) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `update notifications set read=true where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notify.ErrNotFound
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `update notifications set read=true where user_id=$1 and read=false`, userID)
	return err
}

func (s *NotificationStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from notifications where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notify.ErrNotFound
	}
	return nil
}

func (s *NotificationStore) list(ctx context.Context, query, userID string) ([]notify.Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notify.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNotification(row rowScanner) (notify.Notification, error) {
	var n notify.Notification
	var typ string
	err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.RelatedID, &n.Read, &n.CreatedAt)
	if err != nil {
		return notify.Notification{}, err
	}
	n.Type = notify.Type(typ)
	return n, nil
}
