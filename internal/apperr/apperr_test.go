package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tus-lockers/locker-backend/internal/store"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindInvalid:      http.StatusBadRequest,
		KindConflict:     http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindNotFound:     http.StatusInternalServerError,
		KindUnavailable:  http.StatusServiceUnavailable,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.Status(); got != want {
			t.Errorf("%s: want %d, got %d", kind, want, got)
		}
	}
}

func TestWriteWrapped(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("claim: %w", Internal("failed to get student_pair id", cause))

	rec := httptest.NewRecorder()
	Write(rec, err)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "failed to get student_pair id") {
		t.Errorf("expected fixed message, got %q", body)
	}
	if strings.Contains(body, "connection reset") {
		t.Errorf("cause leaked to client: %q", body)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to stay reachable through Unwrap")
	}
}

func TestWritePlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, errors.New("boom"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if KindOf(errors.New("x")) != KindInternal {
		t.Error("expected plain errors to be internal")
	}
}

func TestFromStore(t *testing.T) {
	cases := map[error]Kind{
		store.ErrUnavailable:                        KindUnavailable,
		fmt.Errorf("get: %w", store.ErrNotFound):    KindNotFound,
		errors.New("connection reset"):              KindInternal,
		fmt.Errorf("insert: %w", store.ErrConflict): KindInternal,
	}
	for err, want := range cases {
		if got := FromStore("failed", err).Kind; got != want {
			t.Errorf("FromStore(%v) = %s, want %s", err, got, want)
		}
	}
}
