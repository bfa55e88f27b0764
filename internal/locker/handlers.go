package locker

import (
	"encoding/json"
	"net/http"

	"github.com/tus-lockers/locker-backend/internal/apperr"
	"github.com/tus-lockers/locker-backend/internal/store"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type lockerView struct {
	LockerID string             `json:"locker_id"`
	Floor    int                `json:"floor"`
	Location string             `json:"location"`
	Status   store.LockerStatus `json:"status"`
}

func (h *Handler) AvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	lockers, err := h.svc.Availability(r.Context(), r.URL.Query().Get("floor"))
	if err != nil {
		apperr.Write(w, err)
		return
	}

	out := make([]lockerView, 0, len(lockers))
	for _, l := range lockers {
		out = append(out, lockerView{LockerID: l.LockerID, Floor: l.Floor(), Location: l.Location, Status: l.Status})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"data": out}); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := h.svc.Claim(r.Context(), req); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("success create assignment"))
}
