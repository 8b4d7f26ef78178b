package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"studyswap.org/internal/ids"
	"studyswap.org/internal/match"
)

// MatchStore persists matches in the matches table.
type MatchStore struct {
	db *sql.DB
}

var _ match.Store = (*MatchStore)(nil)

const matchColumns = `id, requester_id, receiver_id, requester_material_id, receiver_material_id, status, created_at, expired_at`

func (s *MatchStore) Save(ctx context.Context, m match.Match) (match.Match, error) {
	if m.ID == "" {
		m.ID = ids.NewAt(m.CreatedAt)
	}
	_, err := s.db.ExecContext(ctx, `
		insert into matches (`+matchColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
		on conflict (id) do update set status = excluded.status
	`, m.ID, m.RequesterID, m.ReceiverID, m.RequesterMaterialID, m.ReceiverMaterialID,
		string(m.Status), m.CreatedAt, m.ExpiredAt)
	if err != nil {
		return match.Match{}, err
	}
	return m, nil
}

func (s *MatchStore) Find(ctx context.Context, id string) (match.Match, error) {
	row := s.db.QueryRowContext(ctx, `select `+matchColumns+` from matches where id=$1`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return match.Match{}, match.ErrNotFound
	}
	return m, err
}

func (s *MatchStore) FindByUser(ctx context.Context, userID string) ([]match.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+matchColumns+` from matches
		where requester_id=$1 or receiver_id=$1
		order by created_at desc, id desc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMatches(rows)
}

func (s *MatchStore) FindExpired(ctx context.Context, now time.Time) ([]match.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+matchColumns+` from matches
		where status in ('PENDING','ACCEPTED') and expired_at < $1
		order by id
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMatches(rows)
}

// UpdateStatus writes the new status only while the row still holds from.
// Zero rows back means either the row is gone or another caller won the
// transition; the re-read distinguishes the two.
func (s *MatchStore) UpdateStatus(ctx context.Context, id string, from, to match.Status) (match.Match, error) {
	row := s.db.QueryRowContext(ctx, `
		update matches set status=$3
		where id=$1 and status=$2
		returning `+matchColumns+`
	`, id, string(from), string(to))
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, ferr := s.Find(ctx, id); errors.Is(ferr, match.ErrNotFound) {
			return match.Match{}, match.ErrNotFound
		}
		return match.Match{}, match.ErrInvalidTransition
	}
	return m, err
}

func scanMatch(row rowScanner) (match.Match, error) {
	var m match.Match
	var status string
	err := row.Scan(&m.ID, &m.RequesterID, &m.ReceiverID,
		&m.RequesterMaterialID, &m.ReceiverMaterialID,
		&status, &m.CreatedAt, &m.ExpiredAt)
	if err != nil {
		return match.Match{}, err
	}
	m.Status = match.Status(status)
	return m, nil
}

func collectMatches(rows *sql.Rows) ([]match.Match, error) {
	var out []match.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
