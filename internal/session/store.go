package session

import (
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	ginsessions "github.com/gin-contrib/sessions"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
)

// Store は gin-contrib/sessions の Store 実装です。
// クッキーには署名・暗号化したセッションIDのみを載せ、値は Backend に暗号化して保存します。
type Store struct {
	backend Backend
	codecs  []securecookie.Codec
	options *gsessions.Options
}

var _ ginsessions.Store = (*Store)(nil)

// NewStore は Store を作成します。
// signingSecret は HMAC 署名に、encryptionSecret は SHA-256 で AES-256 鍵に変換して使います。
func NewStore(backend Backend, signingSecret, encryptionSecret string) (*Store, error) {
	if backend == nil {
		return nil, errors.New("backend is nil")
	}
	if signingSecret == "" || encryptionSecret == "" {
		return nil, errors.New("session secrets are required")
	}
	blockKey := sha256.Sum256([]byte(encryptionSecret))
	codec := securecookie.New([]byte(signingSecret), blockKey[:])
	codec.MaxAge(int(TTL.Seconds()))

	return &Store{
		backend: backend,
		codecs:  []securecookie.Codec{codec},
		options: CookieOptions(false).ToGorillaOptions(),
	}, nil
}

// Options は以降に作成されるセッションのクッキー属性を設定します。
func (s *Store) Options(options ginsessions.Options) {
	s.options = options.ToGorillaOptions()
}

// Get はリクエスト単位のレジストリ経由でセッションを返します。
func (s *Store) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

// New はクッキーのIDに対応するレコードを読み込みます。
// クッキーが無い・改ざんされている・レコードが無い場合は新規セッションを返します。
func (s *Store) New(r *http.Request, name string) (*gsessions.Session, error) {
	session := gsessions.NewSession(s, name)
	opts := *s.options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.codecs...); err != nil {
		return session, nil
	}

	payload, err := s.backend.Load(r.Context(), id)
	if errors.Is(err, ErrRecordNotFound) {
		return session, nil
	}
	if err != nil {
		return session, err
	}

	if err := securecookie.DecodeMulti(name, payload, &session.Values, s.codecs...); err != nil {
		return session, nil
	}
	session.ID = id
	session.IsNew = false
	return session, nil
}

// Save はセッションを保存します。MaxAge が負の場合はレコードを削除しクッキーを失効させます。
// ID の付け替えが要求されていれば、旧レコードを削除して新しいIDで保存します。
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *gsessions.Session) error {
	if _, rotate := session.Values[keyRotate]; rotate {
		delete(session.Values, keyRotate)
		if err := s.regenerate(r, session); err != nil {
			return err
		}
	}

	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.backend.Delete(r.Context(), session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, gsessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}
		session.ID = id
	}

	payload, err := securecookie.EncodeMulti(session.Name(), session.Values, s.codecs...)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if ttl <= 0 {
		ttl = TTL
	}
	if err := s.backend.Save(r.Context(), session.ID, payload, ttl); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("encode session id: %w", err)
	}
	http.SetCookie(w, gsessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// regenerate は旧IDのレコードを削除し、次の保存で新しいIDが発行されるようにします。
func (s *Store) regenerate(r *http.Request, session *gsessions.Session) error {
	if session.ID == "" {
		return nil
	}
	if err := s.backend.Delete(r.Context(), session.ID); err != nil {
		return fmt.Errorf("delete previous session: %w", err)
	}
	session.ID = ""
	return nil
}

func newID() (string, error) {
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return "", errors.New("failed to generate session id")
	}
	return strings.TrimRight(base32.StdEncoding.EncodeToString(key), "="), nil
}
