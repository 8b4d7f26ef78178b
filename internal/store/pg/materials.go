package pg

import (
	"context"
	"database/sql"
	"errors"

	"studyswap.org/internal/catalog"
	"studyswap.org/internal/ids"
)

// MaterialStore persists the matchable view of study materials.
type MaterialStore struct {
	db *sql.DB
}

var _ catalog.Store = (*MaterialStore)(nil)

const materialColumns = `id, owner_id, title, subject, exam_type, approval, created_at`

func (s *MaterialStore) Find(ctx context.Context, id string) (catalog.Material, error) {
	row := s.db.QueryRowContext(ctx, `select `+materialColumns+` from materials where id=$1`, id)
	m, err := scanMaterial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Material{}, catalog.ErrNotFound
	}
	return m, err
}

func (s *MaterialStore) FindApprovedBySubjectExam(ctx context.Context, subject, examType string) ([]catalog.Material, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+materialColumns+` from materials
		where approval='APPROVED' and subject=$1 and exam_type=$2
		order by created_at desc, id desc
	`, subject, examType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *MaterialStore) Save(ctx context.Context, m catalog.Material) (catalog.Material, error) {
	if m.ID == "" {
		m.ID = ids.NewAt(m.CreatedAt)
	}
	_, err := s.db.ExecContext(ctx, `
		insert into materials (`+materialColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7)
		on conflict (id) do update
		set title = excluded.title, approval = excluded.approval
	`, m.ID, m.OwnerID, m.Title, m.Subject, m.ExamType, string(m.Approval), m.CreatedAt)
	if err != nil {
		return catalog.Material{}, err
	}
	return m, nil
}

func (s *MaterialStore) SetApproval(ctx context.Context, id string, a catalog.Approval) error {
	res, err := s.db.ExecContext(ctx, `update materials set approval=$2 where id=$1`, id, string(a))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func scanMaterial(row rowScanner) (catalog.Material, error) {
	var m catalog.Material
	var approval string
	err := row.Scan(&m.ID, &m.OwnerID, &m.Title, &m.Subject, &m.ExamType, &approval, &m.CreatedAt)
	if err != nil {
		return catalog.Material{}, err
	}
	m.Approval = catalog.Approval(approval)
	return m, nil
}
