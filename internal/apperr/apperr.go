package apperr

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/tus-lockers/locker-backend/internal/store"
)

// Kind classifies a failure by how it is reported to the client.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindUnauthorized
	KindNotFound
	KindConflict
	KindUnavailable
)

// Status maps a Kind onto the HTTP status code the handlers answer with.
// Lookups that find nothing are reported as 500, matching the behavior the
// front end was written against.
func (k Kind) Status() int {
	switch k {
	case KindInvalid, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error carries the fixed client-facing message alongside the cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Invalid(msg string) *Error      { return New(KindInvalid, msg, nil) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg, nil) }
func Conflict(msg string) *Error     { return New(KindConflict, msg, nil) }

func NotFound(msg string, err error) *Error    { return New(KindNotFound, msg, err) }
func Internal(msg string, err error) *Error    { return New(KindInternal, msg, err) }
func Unavailable(msg string, err error) *Error { return New(KindUnavailable, msg, err) }

// FromStore classifies a store error: pool exhaustion is 503, a missing row
// is NotFound, anything else Internal. msg is the fixed client message.
func FromStore(msg string, err error) *Error {
	switch {
	case errors.Is(err, store.ErrUnavailable):
		return Unavailable("service unavailable", err)
	case errors.Is(err, store.ErrNotFound):
		return NotFound(msg, err)
	default:
		return Internal(msg, err)
	}
}

// KindOf reports the Kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Write answers the request with the fixed message for err. Internal causes
// are logged, never sent to the client.
func Write(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = Internal("internal server error", err)
	}
	if e.Err != nil {
		log.Printf("[http] %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	http.Error(w, e.Message, e.Kind.Status())
}
