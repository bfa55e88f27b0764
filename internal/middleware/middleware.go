package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tus-lockers/locker-backend/internal/auth"
	"github.com/tus-lockers/locker-backend/internal/store"
	"github.com/tus-lockers/locker-backend/internal/utils"
)

type SessionFetcher interface {
	FindSessionByToken(token string) (utils.SessionData, error)
}

// SessionMiddleware requires a valid admin token cookie. A missing cookie is a
// malformed request (400); a token that does not verify is 401.
func SessionMiddleware(fetcher SessionFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.CookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "Couldn't find token", http.StatusBadRequest)
				return
			}

			session, err := fetcher.FindSessionByToken(cookie.Value)
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			if session.ExpiresAt.Before(time.Now()) {
				http.Error(w, "Session expired", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithUsername(r.Context(), session.Username)))
		})
	}
}

type AdminLookup interface {
	Get(ctx context.Context, username string) (*store.Admin, error)
}

// AdminMiddleware checks that the session's admin account still exists.
func AdminMiddleware(admins AdminLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, ok := utils.GetUsernameFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized: missing admin in context", http.StatusUnauthorized)
				return
			}

			if _, err := admins.Get(r.Context(), username); err != nil {
				switch {
				case errors.Is(err, store.ErrNotFound):
					http.Error(w, "Unauthorized: admin not found", http.StatusUnauthorized)
				case errors.Is(err, store.ErrUnavailable):
					http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
				default:
					http.Error(w, "Failed to verify admin", http.StatusInternalServerError)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware echoes the origin back only when it is in origins.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
