package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pool は PostgresStore が使う pgxpool.Pool のメソッドです（pgxmock で差し替え可能）。
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore は accounts テーブルにアカウントを保存します。
type PostgresStore struct {
	pool pool
	now  func() time.Time
}

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(p pool) *PostgresStore {
	return &PostgresStore{pool: p, now: time.Now}
}

// Insert はアカウントを1件挿入します。
func (s *PostgresStore) Insert(ctx context.Context, account *Account) error {
	if account == nil {
		return fmt.Errorf("account is nil")
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = s.now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, username, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.Username, account.Email, account.PasswordHash, account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// FindByIdentifier は識別子に一致するアカウントを取得します。
func (s *PostgresStore) FindByIdentifier(ctx context.Context, field Identifier, value string) (*Account, error) {
	var query string
	switch field {
	case IdentifierEmail:
		query = `SELECT id, username, email, password_hash FROM accounts WHERE email = $1 LIMIT 2`
	case IdentifierUsername:
		query = `SELECT id, username, email, password_hash FROM accounts WHERE username = $1 LIMIT 2`
	default:
		return nil, fmt.Errorf("unknown identifier: %q", field)
	}

	rows, err := s.pool.Query(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	defer rows.Close()

	var found []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		found = append(found, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, ErrAmbiguous
	}
}
