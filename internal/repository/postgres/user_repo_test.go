package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/algohackers/saarthi-vault/internal/errs"
	"github.com/algohackers/saarthi-vault/internal/model"
)

var userCols = []string{"user_id", "first_name", "last_name", "date_of_birth", "phone", "face_template", "wrapped_kek", "created_at"}

func sampleUser() *model.User {
	return &model.User{
		ID: "a1b2c3d4e5f60718",
		Profile: model.Profile{
			FirstName:   "Asha",
			DateOfBirth: "1990-01-02",
			Phone:       "9998887776",
		},
		FaceTemplate: []byte("template"),
		WrappedKEK:   []byte("wrapped"),
	}
}

func TestUserRepo_Create_OK_and_Duplicate(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := sampleUser()

	const insertRe = `INSERT INTO users \(user_id, first_name, last_name, date_of_birth, phone, face_template, wrapped_kek\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)`

	mock.ExpectExec(insertRe).
		WithArgs(u.ID, u.FirstName, u.LastName, u.DateOfBirth, u.Phone, u.FaceTemplate, u.WrappedKEK).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, u))

	mock.ExpectExec(insertRe).
		WithArgs(u.ID, u.FirstName, u.LastName, u.DateOfBirth, u.Phone, u.FaceTemplate, u.WrappedKEK).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, u), errs.ErrDuplicateUser)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := sampleUser()

	const selectRe = `SELECT user_id, first_name, last_name, date_of_birth, phone, face_template, wrapped_kek, created_at FROM users WHERE user_id=\$1`

	mock.ExpectQuery(selectRe).
		WithArgs(u.ID).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(u.ID, u.FirstName, u.LastName, u.DateOfBirth, u.Phone, u.FaceTemplate, u.WrappedKEK, time.Now()))
	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, u.FaceTemplate, got.FaceTemplate)

	mock.ExpectQuery(selectRe).
		WithArgs(u.ID).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, u.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	// a backend failure must not read as "no such user"
	backendErr := errors.New("connection reset")
	mock.ExpectQuery(selectRe).
		WithArgs(u.ID).
		WillReturnError(backendErr)
	_, err = r.GetByID(ctx, u.ID)
	require.ErrorIs(t, err, backendErr)
	require.NotErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT user_id, .* FROM users ORDER BY created_at, user_id`).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow("u1", "Asha", "", "1990-01-02", "9998887776", []byte("t1"), []byte("w1"), time.Now()).
			AddRow("u2", "Ravi", "Kumar", "1985-05-05", "8887776665", []byte("t2"), []byte("w2"), time.Now()))
	users, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "u1", users[0].ID)
	require.Equal(t, "u2", users[1].ID)

	// empty enumeration is a valid outcome, not an error
	mock.ExpectQuery(`SELECT user_id, .* FROM users ORDER BY created_at, user_id`).
		WillReturnRows(pgxmock.NewRows(userCols))
	users, err = r.List(ctx)
	require.NoError(t, err)
	require.Empty(t, users)

	require.NoError(t, mock.ExpectationsWereMet())
}
