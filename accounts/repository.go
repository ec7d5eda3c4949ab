package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// Repository is the MySQL Store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

const accountColumns = `id, email, password, role, name, joined_date, blood_group, allergies, emergency_contact, specialization, affiliation, license_number`

func scanAccount(row interface{ Scan(...any) error }) (*Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.Email, &a.Password, &a.Role, &a.Name, &a.JoinedDate,
		&a.BloodGroup, &a.Allergies, &a.EmergencyContact, &a.Specialization, &a.Affiliation, &a.LicenseNumber); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email=?`, email).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) Create(ctx context.Context, a *Account) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+accountColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Email, a.Password, a.Role, a.Name, a.JoinedDate,
		a.BloodGroup, a.Allergies, a.EmergencyContact, a.Specialization, a.Affiliation, a.LicenseNumber)
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return ErrDuplicateEmail
	}
	return err
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE email=? LIMIT 1`, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE id=? LIMIT 1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *Repository) Update(ctx context.Context, a *Account) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET name=?, blood_group=?, allergies=?, emergency_contact=?, specialization=?, affiliation=?, license_number=? WHERE id=?`,
		a.Name, a.BloodGroup, a.Allergies, a.EmergencyContact, a.Specialization, a.Affiliation, a.LicenseNumber, a.ID)
	return err
}

func (r *Repository) ListByRole(ctx context.Context, role string) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM users WHERE role=? ORDER BY name ASC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}
