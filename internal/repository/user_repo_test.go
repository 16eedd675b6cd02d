package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev-event/internal/domain"
)

var userColumns = []string{"id", "email", "password_hash", "created_at"}

func TestPgUserRepository_Create(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	user := domain.User{ID: "u1", Email: "a@b.com", PasswordHash: "hash", CreatedAt: created}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		anyErr    bool
		errText   string
	}{
		{
			name: "inserts user",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("u1", "a@b.com", "hash", created).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "unique violation maps to duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("u1", "a@b.com", "hash", created).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})
			},
			wantErr: ErrDuplicateEmail,
		},
		{
			name: "primary key collision is not a duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("u1", "a@b.com", "hash", created).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_pkey"})
			},
			anyErr:  true,
			errText: "insert user",
		},
		{
			name: "other errors are wrapped",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("u1", "a@b.com", "hash", created).
					WillReturnError(errors.New("connection refused"))
			},
			anyErr:  true,
			errText: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewPgUserRepository(mock)
			err = repo.Create(context.Background(), user)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrDuplicateEmail)
				assert.Contains(t, err.Error(), tt.errText)
			default:
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPgUserRepository_GetByEmail(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, email, password_hash, created_at`).
			WithArgs("a@b.com").
			WillReturnRows(pgxmock.NewRows(userColumns).AddRow("u1", "a@b.com", "hash", created))

		got, err := NewPgUserRepository(mock).GetByEmail(context.Background(), "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, domain.User{ID: "u1", Email: "a@b.com", PasswordHash: "hash", CreatedAt: created}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing maps to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, email, password_hash, created_at`).
			WithArgs("missing@b.com").
			WillReturnRows(pgxmock.NewRows(userColumns))

		_, err = NewPgUserRepository(mock).GetByEmail(context.Background(), "missing@b.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("query error is wrapped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, email, password_hash, created_at`).
			WithArgs("a@b.com").
			WillReturnError(errors.New("timeout"))

		_, err = NewPgUserRepository(mock).GetByEmail(context.Background(), "a@b.com")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestPgUserRepository_GetByID(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, email, password_hash, created_at`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow("u1", "a@b.com", "hash", created))

	got, err := NewPgUserRepository(mock).GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
