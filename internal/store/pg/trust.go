package pg

import (
	"context"
	"database/sql"
	"errors"

	"studyswap.org/internal/trust"
)

// TrustStore persists trust standings, one row per user.
type TrustStore struct {
	db *sql.DB
}

var _ trust.Store = (*TrustStore)(nil)

func (s *TrustStore) Get(ctx context.Context, userID string) (trust.Standing, error) {
	var st trust.Standing
	var score int
	err := s.db.QueryRowContext(ctx, `
		select user_id, score, updated_at from trust_standings where user_id=$1
	`, userID).Scan(&st.UserID, &score, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return trust.Standing{}, trust.ErrNotFound
	}
	if err != nil {
		return trust.Standing{}, err
	}
	st.Score = trust.Score(score)
	return st, nil
}

func (s *TrustStore) Save(ctx context.Context, st trust.Standing) error {
	_, err := s.db.ExecContext(ctx, `
		insert into trust_standings (user_id, score, updated_at)
		values ($1,$2,$3)
		on conflict (user_id) do update
		set score = excluded.score, updated_at = excluded.updated_at
	`, st.UserID, int(st.Score), st.UpdatedAt)
	return err
}
