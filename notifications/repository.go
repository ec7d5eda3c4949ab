package notifications

import (
	"context"
	"database/sql"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Create(ctx context.Context, n *Notification) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO notifications (id, title, message, type, is_read, owner, created_at) VALUES (?,?,?,?,?,?,?)`,
		n.ID, n.Title, n.Message, n.Type, n.Read, n.Owner, n.CreatedAt)
	return err
}

func (r *Repository) ListByOwner(ctx context.Context, owner string) ([]Notification, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, message, type, is_read, owner, created_at FROM notifications WHERE owner=? ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.Read, &n.Owner, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	err := r.db.QueryRowContext(ctx, `SELECT id, title, message, type, is_read, owner, created_at FROM notifications WHERE id=? LIMIT 1`, id).
		Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.Read, &n.Owner, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *Repository) MarkRead(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read=1 WHERE id=?`, id)
	if err != nil {
		return false, err
	}
	// MySQL reports 0 affected rows when the flag was already set.
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	existing, err := r.Get(ctx, id)
	return existing != nil, err
}
