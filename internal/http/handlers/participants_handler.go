package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/http/response"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/service"
)

type ParticipantsHandler struct {
	Registrations *service.RegistrationService
}

func NewParticipantsHandler(registrations *service.RegistrationService) *ParticipantsHandler {
	return &ParticipantsHandler{Registrations: registrations}
}

// PublicRoutes are mounted without authentication: intake and the OTP
// verification round-trip.
func (h *ParticipantsHandler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.register)
	r.Post("/verify-otp", h.verifyOTP)
	r.Post("/resend-otp", h.resendOTP)
	return r
}

// StaffRoutes require an authenticated staff or admin caller.
func (h *ParticipantsHandler) StaffRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Patch("/{id}/approve", h.approve)
	r.Patch("/{id}/check-in", h.checkIn)
	r.Patch("/{id}/activate", h.activate)
	r.Delete("/{id}", h.deactivate)
	return r
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *ParticipantsHandler) register(w http.ResponseWriter, r *http.Request) {
	var in domain.RegistrationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	res, err := h.Registrations.Register(r.Context(), in)
	if err != nil {
		response.FromError(w, err)
		return
	}

	if res.VerificationPending {
		response.WriteJSON(w, http.StatusOK, map[string]any{
			"message":       "OTP sent to email",
			"participantId": res.Participant.ID,
		})
		return
	}
	response.WriteJSON(w, http.StatusCreated, res.Participant)
}

func (h *ParticipantsHandler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ParticipantID int64  `json:"participantId"`
		OTP           string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	p, err := h.Registrations.VerifyOTP(r.Context(), in.ParticipantID, in.OTP)
	if err != nil {
		response.FromError(w, err)
		return
	}

	msg := "registration confirmed"
	if p.Status != domain.ParticipantConfirmed {
		msg = "email verified, awaiting payment confirmation"
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"message":     msg,
		"participant": p,
	})
}

func (h *ParticipantsHandler) resendOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ParticipantID int64 `json:"participantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.ParticipantID == 0 {
		response.BadRequest(w, "participantId is required")
		return
	}

	if err := h.Registrations.ResendOTP(r.Context(), in.ParticipantID); err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "OTP sent to email"})
}

func (h *ParticipantsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.ParticipantFilter{
		Page:  atoiDefault(q.Get("page"), 1),
		Limit: atoiDefault(q.Get("limit"), 10),
	}
	if raw := q.Get("event"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid event filter")
			return
		}
		f.EventID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status, ok := domain.ParseParticipantStatus(raw)
		if !ok {
			response.BadRequest(w, "invalid status filter")
			return
		}
		f.Status = &status
	}

	ps, meta, err := h.Registrations.List(r.Context(), f)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if ps == nil {
		ps = []domain.Participant{}
	}
	response.WriteJSON(w, http.StatusOK, response.ListResponse{Data: ps, Meta: meta})
}

func (h *ParticipantsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid participant id")
		return
	}
	p, err := h.Registrations.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, p)
}

func (h *ParticipantsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid participant id")
		return
	}
	var patch domain.ParticipantPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	p, err := h.Registrations.Update(r.Context(), id, patch)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, p)
}

func (h *ParticipantsHandler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid participant id")
		return
	}
	p, err := h.Registrations.Approve(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, p)
}

func (h *ParticipantsHandler) checkIn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid participant id")
		return
	}
	p, err := h.Registrations.CheckIn(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, p)
}

func (h *ParticipantsHandler) activate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid participant id")
		return
	}
	p, err := h.Registrations.Activate(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, p)
}

func (h *ParticipantsHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid participant id")
		return
	}
	if _, err := h.Registrations.Deactivate(r.Context(), id); err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "participant deactivated"})
}

func atoiDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
