package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount() *Account {
	return &Account{
		ID:           "0b9c1f52-2f5e-4c1e-9d0a-5d3c2b1a0f00",
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: "$2a$12$digest",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPostgresStore_Insert(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface, a *Account)
		wantErr   error
		anyErr    bool
	}{
		{
			name: "inserted",
			setupMock: func(mock pgxmock.PgxPoolIface, a *Account) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(a.ID, a.Username, a.Email, a.PasswordHash, a.CreatedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface, a *Account) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(a.ID, a.Username, a.Email, a.PasswordHash, a.CreatedAt).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_email_unique"})
			},
			wantErr: ErrDuplicateKey,
		},
		{
			name: "connection error",
			setupMock: func(mock pgxmock.PgxPoolIface, a *Account) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(a.ID, a.Username, a.Email, a.PasswordHash, a.CreatedAt).
					WillReturnError(errors.New("connection refused"))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			a := testAccount()
			tt.setupMock(mock, a)

			err = NewPostgresStore(mock).Insert(context.Background(), a)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrDuplicateKey)
				assert.Contains(t, err.Error(), "connection refused")
			default:
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestPostgresStore_InsertSetsCreatedAt(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	store := NewPostgresStore(mock)
	store.now = func() time.Time { return now }

	a := testAccount()
	a.CreatedAt = time.Time{}
	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(a.ID, a.Username, a.Email, a.PasswordHash, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Insert(context.Background(), a))
	assert.Equal(t, now, a.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByIdentifier(t *testing.T) {
	columns := []string{"id", "username", "email", "password_hash"}
	tests := []struct {
		name      string
		field     Identifier
		setupMock func(mock pgxmock.PgxPoolIface)
		want      *Account
		wantErr   error
		anyErr    bool
	}{
		{
			name:  "found by email",
			field: IdentifierEmail,
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM accounts WHERE email = `).
					WithArgs("a@x.com").
					WillReturnRows(pgxmock.NewRows(columns).AddRow("id-1", "alice", "a@x.com", "digest"))
			},
			want: &Account{ID: "id-1", Username: "alice", Email: "a@x.com", PasswordHash: "digest"},
		},
		{
			name:  "found by username",
			field: IdentifierUsername,
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM accounts WHERE username = `).
					WithArgs("a@x.com").
					WillReturnRows(pgxmock.NewRows(columns).AddRow("id-1", "alice", "a@x.com", "digest"))
			},
			want: &Account{ID: "id-1", Username: "alice", Email: "a@x.com", PasswordHash: "digest"},
		},
		{
			name:  "not found",
			field: IdentifierEmail,
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM accounts WHERE email = `).
					WithArgs("a@x.com").
					WillReturnRows(pgxmock.NewRows(columns))
			},
			wantErr: ErrNotFound,
		},
		{
			name:  "ambiguous",
			field: IdentifierEmail,
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM accounts WHERE email = `).
					WithArgs("a@x.com").
					WillReturnRows(pgxmock.NewRows(columns).
						AddRow("id-1", "alice", "a@x.com", "digest").
						AddRow("id-2", "alice2", "a@x.com", "digest"))
			},
			wantErr: ErrAmbiguous,
		},
		{
			name:  "query error",
			field: IdentifierEmail,
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM accounts WHERE email = `).
					WithArgs("a@x.com").
					WillReturnError(errors.New("connection refused"))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			got, err := NewPostgresStore(mock).FindByIdentifier(context.Background(), tt.field, "a@x.com")
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrNotFound)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestPostgresStore_FindByUnknownIdentifier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresStore(mock).FindByIdentifier(context.Background(), Identifier("phone"), "x")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
