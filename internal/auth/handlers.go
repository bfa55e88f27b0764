package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/tus-lockers/locker-backend/internal/store"
)

type Handler struct {
	admins store.Admins
	issuer *Issuer
	domain string
}

func NewHandler(admins store.Admins, issuer *Issuer, domain string) *Handler {
	return &Handler{admins: admins, issuer: issuer, domain: domain}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid Data", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	admin, err := h.admins.Get(r.Context(), req.Username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Invalid Credentials", http.StatusUnauthorized)
		return
	case errors.Is(err, store.ErrUnavailable):
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	case err != nil:
		log.Printf("[auth] login lookup %s: %v", req.Username, err)
		http.Error(w, "Failed to login", http.StatusInternalServerError)
		return
	}

	if err := CheckPassword(admin.HashedPassword, req.Password); err != nil {
		http.Error(w, "Invalid Credentials", http.StatusUnauthorized)
		return
	}

	token, expires, err := h.issuer.Issue(admin.Username)
	if err != nil {
		log.Printf("[auth] issue token: %v", err)
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	SetTokenCookie(w, h.domain, token, expires)

	log.Printf("[auth] admin %s logged in", admin.Username)
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("Login successful"))
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	ClearTokenCookie(w, h.domain)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Logout successful"))
}
