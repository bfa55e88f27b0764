package circle

import "github.com/go-chi/chi/v5"

func SetupRoutes(r chi.Router, h *Handler) {
	r.Post("/register", h.RegisterHandler)
}
