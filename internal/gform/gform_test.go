package gform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSendsBearerToken(t *testing.T) {
	var got Submission
	var auth string

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/update", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	n := New(Config{TokenURL: srv.URL + "/token", ClientID: "id", ClientSecret: "secret", UpdateURL: srv.URL + "/update"})
	err := n.Notify(context.Background(), Submission{RegistrationID: "r1", OrganizationName: "天文研究会", Year: 2026})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if auth != "Bearer abc123" {
		t.Errorf("expected bearer token, got %q", auth)
	}
	if got.OrganizationName != "天文研究会" || got.Year != 2026 {
		t.Errorf("unexpected submission %+v", got)
	}
}

func TestClientReportsHTTPError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc123","token_type":"Bearer"}`))
	})
	mux.HandleFunc("/update", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	n := New(Config{TokenURL: srv.URL + "/token", UpdateURL: srv.URL + "/update"})
	if err := n.Notify(context.Background(), Submission{}); err == nil {
		t.Fatal("expected an error on HTTP 429")
	}
}

func TestNewWithoutURLIsNoop(t *testing.T) {
	if _, ok := New(Config{}).(Noop); !ok {
		t.Fatal("expected Noop notifier")
	}
}
