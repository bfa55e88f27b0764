package auth

import "github.com/go-chi/chi/v5"

// SetupRoutes registers login and logout on r.
func SetupRoutes(r chi.Router, h *Handler) {
	r.Post("/login", h.LoginHandler)
	r.Post("/logout", h.LogoutHandler)
}
