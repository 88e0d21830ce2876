// Package validation は登録・ログイン入力の形式チェックを提供します。
// ストアには一切アクセスしません。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxFieldLength はユーザー名・パスワード・識別子の最大文字数です。
const MaxFieldLength = 20

// MaxPasswordBytes は bcrypt が受け付けるパスワードの最大バイト数です。
const MaxPasswordBytes = 72

// RegisterInput は新規登録の入力です。
type RegisterInput struct {
	Username string `json:"username" validate:"required,alphanum,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=20,maxbytes=72"`
}

// LoginInput はログインの入力です。Identifier はメールアドレスまたはユーザー名です。
type LoginInput struct {
	Identifier string `json:"identifier" validate:"required,max=20"`
	Password   string `json:"password" validate:"required,max=20,maxbytes=72"`
}

// Error は最初に違反したルールを表します。
type Error struct {
	Field   string // json タグ名
	Rule    string // validator のタグ名
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// max は文字数で数えるため、マルチバイト文字は別途バイト数で制限する
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// Validate は入力を検証し、違反があれば最初の1件を *Error で返します。
func Validate(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &Error{
		Field:   fe.Field(),
		Rule:    fe.Tag(),
		Message: message(fe),
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s は必須です", fe.Field())
	case "alphanum":
		return fmt.Sprintf("%s には英数字のみ使用できます", fe.Field())
	case "max":
		return fmt.Sprintf("%s は%s文字以内で入力してください", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s は%sバイト以内で入力してください", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s の形式が正しくありません", fe.Field())
	default:
		return fmt.Sprintf("%s が不正です (%s)", fe.Field(), fe.Tag())
	}
}
