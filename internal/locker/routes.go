package locker

import "github.com/go-chi/chi/v5"

func SetupRoutes(r chi.Router, h *Handler) {
	r.Get("/availability", h.AvailabilityHandler)
	r.Post("/locker-register", h.RegisterHandler)
}
