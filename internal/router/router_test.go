package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"testing"

	"github.com/tus-lockers/locker-backend/internal/auth"
	"github.com/tus-lockers/locker-backend/internal/captcha"
	"github.com/tus-lockers/locker-backend/internal/config"
	"github.com/tus-lockers/locker-backend/internal/gform"
	"github.com/tus-lockers/locker-backend/internal/mail"
	"github.com/tus-lockers/locker-backend/internal/store"
	"github.com/tus-lockers/locker-backend/internal/store/memstore"
)

const (
	taroMail = "4622999@ed.tus.ac.jp"
	jiroMail = "4622000@ed.tus.ac.jp"
)

type testServer struct {
	handler http.Handler
	store   *memstore.Store
	mail    *mail.Recorder
	cfg     *config.Config
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()
	ctx := context.Background()
	ms := memstore.New()
	rec := &mail.Recorder{}

	resetHash, err := auth.HashPHC("year-end", auth.Argon2Params{Memory: 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16})
	if err != nil {
		t.Fatalf("hash reset password: %v", err)
	}
	adminHash, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash admin password: %v", err)
	}
	if err := ms.Admins().Create(ctx, &store.Admin{Username: "staff", HashedPassword: adminHash}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if err := ms.Lockers().Upsert(ctx, []store.Locker{
		{LockerID: "2001", Location: "2F east", Status: store.StatusVacant},
		{LockerID: "2002", Location: "2F east", Status: store.StatusVacant},
		{LockerID: "3100", Location: "3F west", Status: store.StatusOutOfWork},
	}); err != nil {
		t.Fatalf("seed lockers: %v", err)
	}

	cfg := &config.Config{
		AppURL:            "https://lockers.example.jp",
		Domain:            "lockers.example.jp",
		TokenKey:          "test-key",
		ResetPasswordHash: resetHash,
		TokenGenPerMinute: 100,
	}
	for _, o := range opts {
		o(cfg)
	}
	h := New(Deps{Config: cfg, Store: ms, Mail: rec, Captcha: captcha.Static{}, Form: gform.Noop{}})
	return &testServer{handler: h, store: ms, mail: rec, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := newRequest(method, path, body)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func newRequest(method, path, body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(method, path, nil)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ceremony drives a locker pair through token-gen, both confirmations and
// auth-check, returning the auth id of the verified session.
func (s *testServer) ceremony(t *testing.T) string {
	t.Helper()
	body := `{"main":{"student_id":"4622999","family_name":"テスト","given_name":"太郎"},
		"co":{"student_id":"4622000","family_name":"テスト","given_name":"次郎"},
		"recaptcha_token":"ok"}`
	if rr := s.do(t, http.MethodPost, "/api/locker/token-gen", body); rr.Code != http.StatusCreated {
		t.Fatalf("token-gen: status %d body %q", rr.Code, rr.Body.String())
	}
	if rr := s.do(t, http.MethodGet, "/api/locker/main-auth?token="+s.mail.LastToken(taroMail), ""); rr.Code != http.StatusCreated {
		t.Fatalf("main-auth: status %d body %q", rr.Code, rr.Body.String())
	}
	if rr := s.do(t, http.MethodGet, "/api/locker/co-auth?token="+s.mail.LastToken(jiroMail), ""); rr.Code != http.StatusCreated {
		t.Fatalf("co-auth: status %d body %q", rr.Code, rr.Body.String())
	}
	rr := s.do(t, http.MethodGet, "/api/locker/auth-check?token="+s.mail.LastToken(taroMail), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("auth-check: status %d body %q", rr.Code, rr.Body.String())
	}
	var res struct {
		Data   store.PairInfo `json:"data"`
		AuthID string         `json:"auth_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode auth-check: %v", err)
	}
	if res.Data.MainUser.StudentID != "4622999" || res.Data.CoUser.StudentID != "4622000" {
		t.Fatalf("unexpected pair %+v", res.Data)
	}
	return res.AuthID
}

func (s *testServer) login(t *testing.T) *http.Cookie {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/login", `{"username":"staff","password":"secret"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("login: status %d body %q", rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("login did not set a token cookie")
	return nil
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	if rr := s.do(t, http.MethodGet, "/api/get-healthcheck", ""); rr.Code != http.StatusOK {
		t.Errorf("get-healthcheck: status %d", rr.Code)
	}
	if rr := s.do(t, http.MethodPost, "/api/post-healthcheck", `{"ping":true}`); rr.Code != http.StatusOK {
		t.Errorf("post-healthcheck: status %d", rr.Code)
	}
	if rr := s.do(t, http.MethodGet, "/api/metrics", ""); rr.Code != http.StatusOK {
		t.Errorf("metrics: status %d", rr.Code)
	}
}

func TestLockerClaimEndToEnd(t *testing.T) {
	s := newTestServer(t)
	authID := s.ceremony(t)

	claim := fmt.Sprintf(`{"student_id":"4622999","locker_id":"2001","auth_id":%q}`, authID)
	rr := s.do(t, http.MethodPost, "/api/locker/locker-register", claim)
	if rr.Code != http.StatusCreated {
		t.Fatalf("locker-register: status %d body %q", rr.Code, rr.Body.String())
	}

	// The session is consumed by the claim.
	if rr := s.do(t, http.MethodPost, "/api/locker/locker-register", claim); rr.Code != http.StatusUnauthorized {
		t.Errorf("replayed claim: expected 401, got %d", rr.Code)
	}

	rr = s.do(t, http.MethodGet, "/api/locker/availability?floor=2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("availability: status %d", rr.Code)
	}
	var avail struct {
		Data []struct {
			LockerID string `json:"locker_id"`
			Status   string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &avail); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	status := map[string]string{}
	for _, l := range avail.Data {
		status[l.LockerID] = l.Status
	}
	if status["2001"] != string(store.StatusOccupied) || status["2002"] != string(store.StatusVacant) {
		t.Errorf("unexpected availability %+v", status)
	}
	if _, ok := status["3100"]; ok {
		t.Error("floor filter leaked locker 3100")
	}
}

func TestTokenFromOtherFlowIsUnauthorized(t *testing.T) {
	s := newTestServer(t)
	body := `{"main":{"student_id":"4622999","family_name":"テスト","given_name":"太郎"},
		"co":{"student_id":"4622000","family_name":"テスト","given_name":"次郎"},
		"recaptcha_token":"ok"}`
	if rr := s.do(t, http.MethodPost, "/api/locker/token-gen", body); rr.Code != http.StatusCreated {
		t.Fatalf("token-gen: status %d", rr.Code)
	}
	rr := s.do(t, http.MethodGet, "/api/circle/main-auth?token="+s.mail.LastToken(taroMail), "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestMainAuthReplayIsRejected(t *testing.T) {
	s := newTestServer(t)
	body := `{"main":{"student_id":"4622999","family_name":"テスト","given_name":"太郎"},
		"co":{"student_id":"4622000","family_name":"テスト","given_name":"次郎"},
		"recaptcha_token":"ok"}`
	if rr := s.do(t, http.MethodPost, "/api/locker/token-gen", body); rr.Code != http.StatusCreated {
		t.Fatalf("token-gen: status %d", rr.Code)
	}
	tok := s.mail.LastToken(taroMail)
	if rr := s.do(t, http.MethodGet, "/api/locker/main-auth?token="+tok, ""); rr.Code != http.StatusCreated {
		t.Fatalf("main-auth: status %d", rr.Code)
	}
	if rr := s.do(t, http.MethodGet, "/api/locker/main-auth?token="+tok, ""); rr.Code != http.StatusBadRequest {
		t.Errorf("replay: expected 400, got %d", rr.Code)
	}
}

func TestAdminRequiresSession(t *testing.T) {
	s := newTestServer(t)
	year := s.cfg.Now().Year()

	rr := s.do(t, http.MethodGet, fmt.Sprintf("/api/admin/locker/user-search/%d", year), "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("no cookie: expected 400, got %d", rr.Code)
	}

	bad := &http.Cookie{Name: auth.CookieName, Value: "not-a-jwt"}
	rr = s.do(t, http.MethodGet, fmt.Sprintf("/api/admin/locker/user-search/%d", year), "", bad)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad cookie: expected 401, got %d", rr.Code)
	}

	rr = s.do(t, http.MethodPost, "/api/login", `{"username":"staff","password":"wrong"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", rr.Code)
	}
}

func TestAdminSearchAndReset(t *testing.T) {
	s := newTestServer(t)
	authID := s.ceremony(t)
	claim := fmt.Sprintf(`{"student_id":"4622999","locker_id":"2002","auth_id":%q}`, authID)
	if rr := s.do(t, http.MethodPost, "/api/locker/locker-register", claim); rr.Code != http.StatusCreated {
		t.Fatalf("locker-register: status %d body %q", rr.Code, rr.Body.String())
	}

	cookie := s.login(t)
	year := s.cfg.Now().Year()

	rr := s.do(t, http.MethodGet, fmt.Sprintf("/api/admin/locker/user-search/%d?familyname=%s", year, url.QueryEscape("テ")), "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("user-search: status %d body %q", rr.Code, rr.Body.String())
	}
	var found struct {
		Data []struct {
			LockerID string         `json:"locker_id"`
			MainUser store.UserInfo `json:"main_user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &found); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(found.Data) != 1 || found.Data[0].LockerID != "2002" || found.Data[0].MainUser.StudentID != "4622999" {
		t.Fatalf("unexpected search result %+v", found.Data)
	}

	if rr := s.do(t, http.MethodPost, "/api/admin/locker/reset", `{"password":"nope"}`, cookie); rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong reset password: expected 401, got %d", rr.Code)
	}
	rr = s.do(t, http.MethodPost, "/api/admin/locker/reset", `{"password":"year-end"}`, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("reset: status %d body %q", rr.Code, rr.Body.String())
	}
	var reset struct {
		Reset int64 `json:"reset"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &reset); err != nil {
		t.Fatalf("decode reset: %v", err)
	}
	if reset.Reset != 1 {
		t.Errorf("expected 1 locker reset, got %d", reset.Reset)
	}

	l, err := s.store.Lockers().Get(context.Background(), "3100")
	if err != nil {
		t.Fatalf("get 3100: %v", err)
	}
	if l.Status != store.StatusOutOfWork {
		t.Errorf("out-of-work locker changed to %s", l.Status)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login(t)

	rr := s.do(t, http.MethodPost, "/api/logout", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: status %d", rr.Code)
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName && c.MaxAge >= 0 {
			t.Errorf("cookie not cleared: %+v", c)
		}
	}
}

func TestTokenGenLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.TokenGenPerMinute = 2 })

	limited := 0
	for i := 0; i < 10; i++ {
		req := newRequest(http.MethodPost, "/api/locker/token-gen", "{}")
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
		rr := httptest.NewRecorder()
		s.handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 8 {
		t.Fatalf("expected 8 of 10 requests limited, got %d", limited)
	}
}

func TestTokenGenLimitUsesClientBehindTrustedProxy(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.TokenGenPerMinute = 1
		c.TrustedProxies = []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	})

	send := func(client string) int {
		req := newRequest(http.MethodPost, "/api/locker/token-gen", "{}")
		req.RemoteAddr = "10.0.0.5:40000"
		req.Header.Set("X-Forwarded-For", client)
		rr := httptest.NewRecorder()
		s.handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("198.51.100.1"); code == http.StatusTooManyRequests {
		t.Fatalf("first request from client 1 limited")
	}
	if code := send("198.51.100.2"); code == http.StatusTooManyRequests {
		t.Fatalf("client 2 limited by client 1's budget")
	}
	// A spoofed leading entry does not give client 1 a fresh budget.
	if code := send("192.0.2.99, 198.51.100.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected client 1 to be limited, got %d", code)
	}
}
