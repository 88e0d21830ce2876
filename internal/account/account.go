// Package account はアカウント（認証情報）の永続化を提供します。
package account

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateKey はユーザー名またはメールアドレスが既に登録済みの場合に返ります。
	ErrDuplicateKey = errors.New("account already exists")
	// ErrNotFound は識別子に一致するアカウントがない場合に返ります。
	ErrNotFound = errors.New("account not found")
	// ErrAmbiguous は識別子に複数のアカウントが一致した場合に返ります（一意制約上は起こりません）。
	ErrAmbiguous = errors.New("identifier matched more than one account")
)

// Identifier はログイン時の検索キーです。
type Identifier string

const (
	IdentifierEmail    Identifier = "email"
	IdentifierUsername Identifier = "username"
)

// ParseIdentifier は設定値から Identifier を返します。
func ParseIdentifier(s string) (Identifier, error) {
	switch Identifier(s) {
	case IdentifierEmail, IdentifierUsername:
		return Identifier(s), nil
	default:
		return "", fmt.Errorf("unknown identifier: %q", s)
	}
}

// Account は登録済みアカウントです。作成後に変更されることはありません。
type Account struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// Store はアカウントの保存先です。
type Store interface {
	// Insert はアカウントを作成します。重複時は ErrDuplicateKey を返します。
	Insert(ctx context.Context, account *Account) error
	// FindByIdentifier は email または username の完全一致で1件取得します。
	FindByIdentifier(ctx context.Context, field Identifier, value string) (*Account, error)
}
