// Package auth は登録・ログイン・ログアウトの認証フローと、その HTTP ハンドラーを提供します。
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/members-portal/internal/account"
	"github.com/yourusername/members-portal/internal/metrics"
	"github.com/yourusername/members-portal/internal/password"
	"github.com/yourusername/members-portal/internal/session"
	"github.com/yourusername/members-portal/internal/validation"
)

// State はリクエスト時点の認証状態です。
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// Options は認証フローの挙動を切り替えます。
type Options struct {
	// LoginIdentifier はログイン時の検索キー（既定は email）です。
	LoginIdentifier account.Identifier
	// AutoLoginOnRegister が true なら登録直後にログイン状態にします。
	AutoLoginOnRegister bool
	// RevealNotFoundDistinctly が true なら存在しないユーザーを ACCOUNT_NOT_FOUND で返します。
	RevealNotFoundDistinctly bool
	// Metrics は任意です。
	Metrics *metrics.Metrics
}

// Result はフロー実行後の状態です。
type Result struct {
	State     State
	Username  string
	ExpiresAt time.Time
}

// Flow は入力検証・パスワード照合・セッション発行をまとめます。
type Flow struct {
	accounts account.Store
	hasher   *password.Hasher
	sessions *session.Manager
	opts     Options
	logger   *zap.Logger

	// dummyDigest は存在しないユーザーの照合に使い、応答時間を揃えます。
	dummyDigest string
}

// NewFlow は Flow を作成します。
func NewFlow(accounts account.Store, hasher *password.Hasher, sessions *session.Manager, opts Options, logger *zap.Logger) (*Flow, error) {
	if accounts == nil {
		return nil, errors.New("accounts is nil")
	}
	if hasher == nil {
		return nil, errors.New("hasher is nil")
	}
	if sessions == nil {
		return nil, errors.New("sessions is nil")
	}
	if opts.LoginIdentifier == "" {
		opts.LoginIdentifier = account.IdentifierEmail
	}
	if _, err := account.ParseIdentifier(string(opts.LoginIdentifier)); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dummyDigest, err := hasher.Hash(context.Background(), uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy digest: %w", err)
	}
	return &Flow{
		accounts:    accounts,
		hasher:      hasher,
		sessions:    sessions,
		opts:        opts,
		logger:      logger,
		dummyDigest: dummyDigest,
	}, nil
}

// LoginIdentifier はログインに使う識別子の種類を返します。
func (f *Flow) LoginIdentifier() account.Identifier {
	return f.opts.LoginIdentifier
}

// Register は新規アカウントを作成します。
func (f *Flow) Register(ctx context.Context, s session.Session, in validation.RegisterInput) (Result, error) {
	if err := validation.Validate(in); err != nil {
		f.logger.Info("registration rejected", zap.Error(err))
		f.opts.Metrics.ObserveAttempt("register", "invalid_input")
		return anonymous(), invalidInput(err)
	}

	digest, err := f.hasher.Hash(ctx, in.Password)
	if err != nil {
		return anonymous(), f.internal("register", err)
	}

	acct := &account.Account{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: digest,
	}
	if err := f.accounts.Insert(ctx, acct); err != nil {
		if errors.Is(err, account.ErrDuplicateKey) {
			f.logger.Info("registration rejected: duplicate account")
			f.opts.Metrics.ObserveAttempt("register", "duplicate")
			return anonymous(), &Error{Code: CodeRegistrationFailed, Message: msgRegistrationFailed, Err: err}
		}
		return anonymous(), f.internal("register", err)
	}

	f.logger.Info("account created", zap.String("username", acct.Username))
	f.opts.Metrics.ObserveAttempt("register", "success")

	if !f.opts.AutoLoginOnRegister {
		return Result{State: StateAnonymous, Username: acct.Username}, nil
	}
	return f.establish(s, "register", acct.Username)
}

// Login は識別子とパスワードを照合し、成功すればセッションを発行します。
func (f *Flow) Login(ctx context.Context, s session.Session, in validation.LoginInput) (Result, error) {
	if err := validation.Validate(in); err != nil {
		f.logger.Info("login rejected", zap.Error(err))
		f.opts.Metrics.ObserveAttempt("login", "invalid_input")
		return anonymous(), invalidInput(err)
	}

	acct, err := f.accounts.FindByIdentifier(ctx, f.opts.LoginIdentifier, in.Identifier)
	if errors.Is(err, account.ErrNotFound) {
		// 存在しない場合も照合と同程度の計算を行う
		f.burnVerify(ctx, in.Password)
		f.logger.Info("login failed: account not found")
		f.opts.Metrics.ObserveAttempt("login", "invalid_credentials")
		if f.opts.RevealNotFoundDistinctly {
			return anonymous(), &Error{Code: CodeAccountNotFound, Message: msgAccountNotFound, Err: err}
		}
		return anonymous(), &Error{Code: CodeInvalidCredentials, Message: msgInvalidCredentials, Err: err}
	}
	if err != nil {
		return anonymous(), f.internal("login", err)
	}

	ok, err := f.hasher.Verify(ctx, in.Password, acct.PasswordHash)
	if err != nil {
		return anonymous(), f.internal("login", err)
	}
	if !ok {
		f.logger.Info("login failed: password mismatch", zap.String("username", acct.Username))
		f.opts.Metrics.ObserveAttempt("login", "invalid_credentials")
		return anonymous(), &Error{Code: CodeInvalidCredentials, Message: msgInvalidCredentials, Err: errWrongPassword}
	}

	return f.establish(s, "login", acct.Username)
}

// Logout はセッションを破棄します。
func (f *Flow) Logout(s session.Session) (Result, error) {
	if err := f.sessions.Destroy(s); err != nil {
		return anonymous(), f.internal("logout", err)
	}
	f.opts.Metrics.ObserveAttempt("logout", "success")
	return anonymous(), nil
}

// Check は現在のセッションの認証状態を返します。
func (f *Flow) Check(s session.Session) Result {
	info, ok := f.sessions.Current(s)
	if !ok {
		return anonymous()
	}
	return Result{State: StateAuthenticated, Username: info.Username, ExpiresAt: info.ExpiresAt}
}

func (f *Flow) establish(s session.Session, flow, username string) (Result, error) {
	expiresAt, err := f.sessions.Establish(s, username)
	if err != nil {
		return anonymous(), f.internal(flow, fmt.Errorf("establish session: %w", err))
	}
	f.logger.Info("session established", zap.String("flow", flow), zap.String("username", username))
	f.opts.Metrics.ObserveAttempt(flow, "authenticated")
	return Result{State: StateAuthenticated, Username: username, ExpiresAt: expiresAt}, nil
}

func (f *Flow) burnVerify(ctx context.Context, secret string) {
	_, _ = f.hasher.Verify(ctx, secret, f.dummyDigest)
}

func (f *Flow) internal(flow string, err error) error {
	f.logger.Error("auth flow failed", zap.String("flow", flow), zap.Error(err))
	f.opts.Metrics.ObserveAttempt(flow, "error")
	return &Error{Code: CodeInternal, Message: msgInternal, Err: err}
}

func invalidInput(err error) error {
	return &Error{Code: CodeInvalidInput, Message: err.Error(), Err: err}
}

func anonymous() Result {
	return Result{State: StateAnonymous}
}
