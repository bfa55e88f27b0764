package authflow

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts the ceremony endpoints of h's flow on r. limit, when
// set, guards token-gen since each call sends mail.
func SetupRoutes(r chi.Router, h *Handler, limit func(http.Handler) http.Handler) {
	if limit != nil {
		r.With(limit).Post("/token-gen", h.TokenGenHandler)
	} else {
		r.Post("/token-gen", h.TokenGenHandler)
	}
	r.Get("/main-auth", h.MainAuthHandler)
	r.Get("/co-auth", h.CoAuthHandler)
	r.Get("/auth-check", h.AuthCheckHandler)
}
