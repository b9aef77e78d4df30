package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/algohackers/saarthi-vault/internal/errs"
	"github.com/algohackers/saarthi-vault/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts the enrollment row. A user_id collision maps to
// errs.ErrDuplicateUser: one template per identifier.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (user_id, first_name, last_name, date_of_birth, phone, face_template, wrapped_kek)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Pool.Exec(ctx, q,
		u.ID, u.FirstName, u.LastName, u.DateOfBirth, u.Phone, u.FaceTemplate, u.WrappedKEK)
	if isUniqueViolation(err) {
		return errs.ErrDuplicateUser
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
SELECT user_id, first_name, last_name, date_of_birth, phone, face_template, wrapped_kek, created_at
FROM users WHERE user_id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var u model.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.DateOfBirth, &u.Phone,
		&u.FaceTemplate, &u.WrappedKEK, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// List returns all enrolled users in enrollment order. Login scans this
// enumeration linearly; the first matching template wins.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	const q = `
SELECT user_id, first_name, last_name, date_of_birth, phone, face_template, wrapped_kek, created_at
FROM users ORDER BY created_at, user_id`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.DateOfBirth, &u.Phone,
			&u.FaceTemplate, &u.WrappedKEK, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
