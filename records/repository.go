package records

import (
	"context"
	"database/sql"
)

// Repository is the MySQL Store. aiSummary lives in a JSON column.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

const recordColumns = `id, owner, file_name, stored_file_name, file_url, file_type, upload_date, issued_by, ai_summary`

func nullable(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var (
		rec      Record
		owner    sql.NullString
		stored   sql.NullString
		issuedBy sql.NullString
	)
	if err := row.Scan(&rec.ID, &owner, &rec.FileName, &stored, &rec.FileURL, &rec.FileType, &rec.UploadDate, &issuedBy, &rec.AISummary); err != nil {
		return nil, err
	}
	rec.Owner, rec.StoredFileName, rec.IssuedBy = owner.String, stored.String, issuedBy.String
	return &rec, nil
}

func (r *Repository) Create(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO records (`+recordColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.ID, nullable(rec.Owner), rec.FileName, nullable(rec.StoredFileName), rec.FileURL, rec.FileType,
		rec.UploadDate, nullable(rec.IssuedBy), rec.AISummary)
	return err
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

func (r *Repository) List(ctx context.Context, owner string) ([]Record, error) {
	if owner == "" {
		return r.query(ctx, `SELECT `+recordColumns+` FROM records ORDER BY upload_date DESC`)
	}
	return r.query(ctx, `SELECT `+recordColumns+` FROM records WHERE owner=? ORDER BY upload_date DESC`, owner)
}

func (r *Repository) Recent(ctx context.Context, owner string, n int) ([]Record, error) {
	return r.query(ctx, `SELECT `+recordColumns+` FROM records WHERE owner=? ORDER BY upload_date DESC LIMIT ?`, owner, n)
}

func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id=? LIMIT 1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id=?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) ClaimUnowned(ctx context.Context, owner string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE records SET owner=? WHERE owner IS NULL OR owner=''`, owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
