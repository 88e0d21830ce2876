package auth

import (
	"errors"
	"net/http"
)

// エラーコード
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeRegistrationFailed = "REGISTRATION_FAILED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInternal           = "INTERNAL_ERROR"
)

const (
	msgRegistrationFailed = "アカウントを作成できませんでした。別のユーザー名またはメールアドレスをお試しください。"
	msgInvalidCredentials = "ユーザー名またはパスワードが正しくありません"
	msgAccountNotFound    = "ユーザーが見つかりません"
	msgUnauthorized       = "ログインが必要です"
	msgInternal           = "サーバー内部でエラーが発生しました。"
)

var errWrongPassword = errors.New("password mismatch")

// Error は利用者に返すエラーです。Message はそのまま表示できます。
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode はエラーコードに対応する HTTP ステータスを返します。
func StatusCode(code string) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeRegistrationFailed:
		return http.StatusConflict
	case CodeInvalidCredentials, CodeAccountNotFound, CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// AsError は err を *Error に変換します。*Error でなければ内部エラー扱いです。
func AsError(err error) *Error {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr
	}
	return &Error{Code: CodeInternal, Message: msgInternal, Err: err}
}
