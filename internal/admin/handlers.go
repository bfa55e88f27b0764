package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tus-lockers/locker-backend/internal/apperr"
	"github.com/tus-lockers/locker-backend/internal/circle"
	"github.com/tus-lockers/locker-backend/internal/store"
	"github.com/tus-lockers/locker-backend/internal/utils"
	"github.com/tus-lockers/locker-backend/internal/validate"
)

type Handler struct {
	svc     *Service
	circles *circle.Service
}

func NewHandler(svc *Service, circles *circle.Service) *Handler {
	return &Handler{svc: svc, circles: circles}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) UserSearchHandler(w http.ResponseWriter, r *http.Request) {
	year, err := validate.Year(chi.URLParam(r, "year"))
	if err != nil {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	results, err := h.svc.Search(r.Context(), SearchQuery{
		Year:       year,
		Floor:      q.Get("floor"),
		FamilyName: q.Get("familyname"),
		GivenName:  q.Get("givenname"),
	})
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": results})
}

type resetRequest struct {
	Password string `json:"password"`
}

func (h *Handler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	n, err := h.svc.Reset(r.Context(), req.Password)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"reset": n})
}

func (h *Handler) PeriodHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Period(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type periodRequest struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

func (h *Handler) SetPeriodHandler(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p, err := h.svc.SetPeriod(r.Context(), chi.URLParam(r, "name"), req.StartAt, req.EndAt)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) RegistrationsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}
	regs, err := h.circles.List(r.Context(), year, store.RegistrationStatus(q.Get("status")))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": regs})
}

func (h *Handler) ReviewHandler(w http.ResponseWriter, r *http.Request) {
	var req circle.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	reviewer, _ := utils.GetUsernameFromContext(r.Context())
	reg, err := h.circles.Review(r.Context(), chi.URLParam(r, "id"), reviewer, req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}
