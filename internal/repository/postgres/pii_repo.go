package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/algohackers/saarthi-vault/internal/errs"
	"github.com/algohackers/saarthi-vault/internal/model"
)

// PIIRepo implements PIIRepository using PostgreSQL.
type PIIRepo struct{ db *DB }

// NewPIIRepo constructs a PII repository.
func NewPIIRepo(db *DB) *PIIRepo { return &PIIRepo{db: db} }

// Store appends a new record inside a transaction, so a crash mid-write
// cannot leave a half-written row. Existing rows are never touched.
func (r *PIIRepo) Store(ctx context.Context, rec *model.PIIRecord) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const ins = `
INSERT INTO pii_records (user_id, data_type, encrypted_data, encrypted_dek)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`
	err = tx.QueryRow(ctx, ins, rec.UserID, rec.DataType, rec.EncryptedData, rec.EncryptedDEK).
		Scan(&rec.ID, &rec.CreatedAt)
	return err
}

// GetLatest returns the newest record for (userID, dataType). Older rows stay
// in place as an audit trail but are never surfaced here.
func (r *PIIRepo) GetLatest(ctx context.Context, userID, dataType string) (*model.PIIRecord, error) {
	const q = `
SELECT id, user_id, data_type, encrypted_data, encrypted_dek, created_at
FROM pii_records
WHERE user_id=$1 AND data_type=$2
ORDER BY created_at DESC, id DESC
LIMIT 1`
	row := r.db.Pool.QueryRow(ctx, q, userID, dataType)
	var rec model.PIIRecord
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.DataType,
		&rec.EncryptedData, &rec.EncryptedDEK, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListDataTypes returns the distinct data types stored for the user.
func (r *PIIRepo) ListDataTypes(ctx context.Context, userID string) ([]string, error) {
	const q = `
SELECT DISTINCT data_type FROM pii_records WHERE user_id=$1 ORDER BY data_type`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var dt string
		if err := rows.Scan(&dt); err != nil {
			return nil, err
		}
		out = append(out, dt)
	}
	return out, rows.Err()
}
