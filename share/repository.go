package share

import (
	"context"
	"database/sql"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Create(ctx context.Context, l *Link) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO shared_links (token, patient_id, patient_name, created_at, expires_at) VALUES (?,?,?,?,?)`,
		l.Token, l.PatientID, l.PatientName, l.CreatedAt, l.ExpiresAt)
	return err
}

func (r *Repository) GetByToken(ctx context.Context, token string) (*Link, error) {
	var l Link
	err := r.db.QueryRowContext(ctx, `SELECT token, patient_id, patient_name, created_at, expires_at FROM shared_links WHERE token=? LIMIT 1`, token).
		Scan(&l.Token, &l.PatientID, &l.PatientName, &l.CreatedAt, &l.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
