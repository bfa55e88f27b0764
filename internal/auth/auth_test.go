package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tus-lockers/locker-backend/internal/store"
	"github.com/tus-lockers/locker-backend/internal/store/memstore"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("secret")
	token, exp, err := iss.Issue("admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if d := time.Until(exp); d < 59*time.Minute || d > time.Hour {
		t.Errorf("unexpected ttl %v", d)
	}

	claims, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "admin" || claims.IssuedAt == nil {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	iss := NewIssuer("secret")
	token, _, _ := iss.Issue("admin")

	if _, err := NewIssuer("other").Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong key: expected ErrInvalidToken, got %v", err)
	}

	expired := NewIssuer("secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, _ := expired.Issue("admin")
	if _, err := iss.Parse(old); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired: expected ErrInvalidToken, got %v", err)
	}

	if _, err := iss.Parse("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: expected ErrInvalidToken, got %v", err)
	}
}

func TestPHCRoundTrip(t *testing.T) {
	p := Argon2Params{Memory: 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16}
	hash, err := HashPHC("reset-me", p)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", hash)
	}
	if err := VerifyPHC(hash, "reset-me"); err != nil {
		t.Errorf("expected match, got %v", err)
	}
	if err := VerifyPHC(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("expected mismatch, got %v", err)
	}
	if err := VerifyPHC("$2a$10$bcrypt", "x"); !errors.Is(err, ErrMalformedHash) {
		t.Errorf("expected malformed, got %v", err)
	}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	ms := memstore.New()
	hashed, err := HashPassword("TestPass123!")
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if err := ms.Admins().Create(context.Background(), &store.Admin{Username: "admin", HashedPassword: hashed}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return NewHandler(ms.Admins(), NewIssuer("secret"), "lockers.example.jp")
}

func login(h *Handler, username, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	rr := httptest.NewRecorder()
	h.LoginHandler(rr, httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body)))
	return rr
}

func TestLoginSetsTokenCookie(t *testing.T) {
	h := newTestHandler(t)
	rr := login(h, "admin", "TestPass123!")

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	cookie := rr.Header().Get("Set-Cookie")
	for _, want := range []string{"token=", "HttpOnly", "Secure", "SameSite=Strict", "Path=/", "Domain=lockers.example.jp"} {
		if !strings.Contains(cookie, want) {
			t.Errorf("expected Set-Cookie to contain %q, got %q", want, cookie)
		}
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newTestHandler(t)
	if rr := login(h, "admin", "nope"); rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", rr.Code)
	}
	if rr := login(h, "ghost", "TestPass123!"); rr.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: expected 401, got %d", rr.Code)
	}
	if rr := login(h, "", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("empty body: expected 400, got %d", rr.Code)
	}
}

func TestLogoutExpiresCookie(t *testing.T) {
	h := newTestHandler(t)
	rr := httptest.NewRecorder()
	h.LogoutHandler(rr, httptest.NewRequest(http.MethodPost, "/logout", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if c := rr.Header().Get("Set-Cookie"); !strings.Contains(c, "Max-Age=0") {
		t.Errorf("expected expired cookie, got %q", c)
	}
}

func TestSessionInfoResolvesSubject(t *testing.T) {
	iss := NewIssuer("secret")
	token, _, _ := iss.Issue("admin")
	data, err := SessionInfo{Issuer: iss}.FindSessionByToken(token)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if data.Username != "admin" || data.ExpiresAt.IsZero() {
		t.Errorf("unexpected session %+v", data)
	}
}
