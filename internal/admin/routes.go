package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes returns the /admin router. guard authenticates the caller.
func SetupRoutes(h *Handler, guard ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(guard...)

	r.Get("/locker/user-search/{year}", h.UserSearchHandler)
	r.Post("/locker/reset", h.ResetHandler)
	r.Put("/period/{name}", h.SetPeriodHandler)
	r.Get("/circle/registrations", h.RegistrationsHandler)
	r.Post("/circle/registrations/{id}/review", h.ReviewHandler)

	return r
}

// SetupPublicRoutes registers the read-only period endpoint.
func SetupPublicRoutes(r chi.Router, h *Handler) {
	r.Get("/period/{name}", h.PeriodHandler)
}
