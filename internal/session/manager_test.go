package session

import (
	"errors"
	"testing"
	"time"

	ginsessions "github.com/gin-contrib/sessions"
)

// fakeSession はテスト用のインメモリセッションです。
type fakeSession struct {
	values  map[any]any
	options ginsessions.Options
	saves   int
	saveErr error
}

func newFakeSession() *fakeSession {
	return &fakeSession{values: map[any]any{}}
}

func (f *fakeSession) Get(key any) any { return f.values[key] }

func (f *fakeSession) Set(key any, val any) { f.values[key] = val }

func (f *fakeSession) Clear() { f.values = map[any]any{} }

func (f *fakeSession) Options(o ginsessions.Options) { f.options = o }

func (f *fakeSession) Save() error {
	f.saves++
	return f.saveErr
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEstablishSetsExactExpiry(t *testing.T) {
	created := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	m := NewManager(CookieOptions(true)).WithClock(fixedClock(created))
	s := newFakeSession()

	expiresAt, err := m.Establish(s, "alice")
	if err != nil {
		t.Fatalf("Establish returned error: %v", err)
	}
	if !expiresAt.Equal(created.Add(3600 * time.Second)) {
		t.Fatalf("expiresAt = %v", expiresAt)
	}
	if s.options.MaxAge != 3600 || !s.options.HttpOnly || !s.options.Secure {
		t.Fatalf("unexpected cookie options: %+v", s.options)
	}
	if s.saves != 1 {
		t.Fatalf("expected 1 save, got %d", s.saves)
	}

	info, ok := m.Current(s)
	if !ok {
		t.Fatal("expected authenticated session")
	}
	if info.Username != "alice" || !info.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestEstablishClearsPreviousValues(t *testing.T) {
	m := NewManager(CookieOptions(false))
	s := newFakeSession()
	s.Set("leftover", "x")

	if _, err := m.Establish(s, "alice"); err != nil {
		t.Fatalf("Establish returned error: %v", err)
	}
	if s.Get("leftover") != nil {
		t.Fatal("previous values should be cleared")
	}
}

func TestEstablishSaveError(t *testing.T) {
	m := NewManager(CookieOptions(false))
	s := newFakeSession()
	s.saveErr = errors.New("redis down")

	if _, err := m.Establish(s, "alice"); err == nil {
		t.Fatal("expected save error")
	}
}

func TestIsAuthenticatedHonorsExpiry(t *testing.T) {
	created := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	m := NewManager(CookieOptions(false)).WithClock(fixedClock(created))
	s := newFakeSession()
	if _, err := m.Establish(s, "alice"); err != nil {
		t.Fatalf("Establish returned error: %v", err)
	}

	if !m.WithClock(fixedClock(created.Add(TTL - time.Second))).IsAuthenticated(s) {
		t.Fatal("session should be valid just before expiry")
	}
	if m.WithClock(fixedClock(created.Add(TTL))).IsAuthenticated(s) {
		t.Fatal("session should be invalid at expiry")
	}
}

func TestIsAuthenticatedRequiresFlag(t *testing.T) {
	m := NewManager(CookieOptions(false))

	if m.IsAuthenticated(nil) {
		t.Fatal("nil session must not be authenticated")
	}

	s := newFakeSession()
	s.Set(keyUsername, "alice")
	s.Set(keyExpiresAt, time.Now().Add(time.Hour).Unix())
	if m.IsAuthenticated(s) {
		t.Fatal("session without authenticated flag must not be authenticated")
	}
}

func TestDestroy(t *testing.T) {
	m := NewManager(CookieOptions(false))
	s := newFakeSession()
	if _, err := m.Establish(s, "alice"); err != nil {
		t.Fatalf("Establish returned error: %v", err)
	}

	if err := m.Destroy(s); err != nil {
		t.Fatalf("Destroy returned error: %v", err)
	}
	if s.options.MaxAge != -1 {
		t.Fatalf("expected MaxAge -1, got %d", s.options.MaxAge)
	}
	for i := 0; i < 3; i++ {
		if m.IsAuthenticated(s) {
			t.Fatal("destroyed session must stay unauthenticated")
		}
	}

	if _, err := m.Establish(s, "alice"); err != nil {
		t.Fatalf("Establish returned error: %v", err)
	}
	if !m.IsAuthenticated(s) {
		t.Fatal("re-established session should be authenticated")
	}
}

func TestEstablishRequestsNewID(t *testing.T) {
	m := NewManager(CookieOptions(false))
	s := newFakeSession()

	if _, err := m.Establish(s, "alice"); err != nil {
		t.Fatalf("Establish returned error: %v", err)
	}
	if s.Get(keyRotate) != true {
		t.Fatal("Establish should ask the store for a new session id")
	}
}
