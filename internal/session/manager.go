package session

import (
	"net/http"
	"time"

	ginsessions "github.com/gin-contrib/sessions"
)

const (
	// CookieName はセッションIDを保持するクッキー名です。
	CookieName = "members_session"
	// TTL はログインセッションの有効期間です。延長はしません。
	TTL = time.Hour

	keyAuthenticated = "authenticated"
	keyUsername      = "username"
	keyExpiresAt     = "expires_at"

	// keyRotate が付いたセッションは Store.Save で新しいIDに付け替えられます。
	keyRotate = "_rotate_id"
)

// Session は Manager が扱うセッション操作です。sessions.Default(c) の戻り値が満たします。
type Session interface {
	Get(key any) any
	Set(key any, val any)
	Clear()
	Options(ginsessions.Options)
	Save() error
}

// Info はログイン済みセッションの内容です。
type Info struct {
	Username  string
	ExpiresAt time.Time
}

// CookieOptions はセッションクッキーの属性を返します。
func CookieOptions(secure bool) ginsessions.Options {
	return ginsessions.Options{
		Path:     "/",
		MaxAge:   int(TTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Manager はログインセッションの発行・検証・破棄を行います。
type Manager struct {
	cookie ginsessions.Options
	now    func() time.Time
}

// NewManager は Manager を作成します。
func NewManager(cookie ginsessions.Options) *Manager {
	return &Manager{cookie: cookie, now: time.Now}
}

// WithClock は時刻の取得元を差し替えた Manager を返します。
func (m *Manager) WithClock(now func() time.Time) *Manager {
	clone := *m
	clone.now = now
	return &clone
}

// Establish はセッションをログイン済みにし、有効期限（現在時刻 + TTL）を返します。
// ログイン前のセッションIDは破棄され、新しいIDが発行されます。
func (m *Manager) Establish(s Session, username string) (time.Time, error) {
	expiresAt := m.now().Add(TTL)

	s.Clear()
	s.Set(keyRotate, true)
	s.Set(keyAuthenticated, true)
	s.Set(keyUsername, username)
	s.Set(keyExpiresAt, expiresAt.Unix())

	opts := m.cookie
	opts.MaxAge = int(TTL.Seconds())
	s.Options(opts)

	if err := s.Save(); err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// Current はログイン済みであればその内容を返します。
func (m *Manager) Current(s Session) (Info, bool) {
	if s == nil {
		return Info{}, false
	}
	authenticated, _ := s.Get(keyAuthenticated).(bool)
	username, _ := s.Get(keyUsername).(string)
	expiresAt := readUnix(s.Get(keyExpiresAt))
	if !authenticated || username == "" || expiresAt.IsZero() {
		return Info{}, false
	}
	if !m.now().Before(expiresAt) {
		return Info{}, false
	}
	return Info{Username: username, ExpiresAt: expiresAt}, true
}

// IsAuthenticated はセッションが存在し、ログイン済みで、期限内であれば true を返します。
func (m *Manager) IsAuthenticated(s Session) bool {
	_, ok := m.Current(s)
	return ok
}

// Destroy はセッションを即時に破棄します。
func (m *Manager) Destroy(s Session) error {
	s.Clear()
	opts := m.cookie
	opts.MaxAge = -1
	s.Options(opts)
	return s.Save()
}

func readUnix(v any) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}
