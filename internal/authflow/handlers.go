package authflow

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/tus-lockers/locker-backend/internal/apperr"
	"github.com/tus-lockers/locker-backend/internal/store"
)

type Handler struct {
	svc  *Service
	flow store.Flow
}

func NewHandler(svc *Service, flow store.Flow) *Handler {
	return &Handler{svc: svc, flow: flow}
}

type lockerTokenGenRequest struct {
	Main           store.UserInfo `json:"main"`
	Co             store.UserInfo `json:"co"`
	RecaptchaToken string         `json:"recaptcha_token"`
}

type circleTokenGenRequest struct {
	Main           store.RepresentativeInfo `json:"main"`
	Co             store.RepresentativeInfo `json:"co"`
	Organization   store.OrganizationInfo   `json:"organization"`
	Documents      store.Documents          `json:"documents"`
	RecaptchaToken string                   `json:"recaptcha_token"`
}

func (h *Handler) TokenGenHandler(w http.ResponseWriter, r *http.Request) {
	req := IssueRequest{RemoteIP: remoteIP(r)}

	switch h.flow {
	case store.FlowCircle:
		var body circleTokenGenRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		req.Payload = store.CirclePayload{Main: body.Main, Co: body.Co, Organization: body.Organization, Documents: body.Documents}
		req.RecaptchaToken = body.RecaptchaToken
	default:
		var body lockerTokenGenRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		req.Payload = store.LockerPayload{Main: body.Main, Co: body.Co}
		req.RecaptchaToken = body.RecaptchaToken
	}

	if err := h.svc.Issue(r.Context(), req); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("success token generation"))
}

func (h *Handler) MainAuthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MainAuth(r.Context(), h.flow, r.URL.Query().Get("token")); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("success main auth"))
}

func (h *Handler) CoAuthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CoAuth(r.Context(), h.flow, r.URL.Query().Get("token")); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("success co auth"))
}

func (h *Handler) AuthCheckHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.AuthCheck(r.Context(), h.flow, r.URL.Query().Get("token"))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
