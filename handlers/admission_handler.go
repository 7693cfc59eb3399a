package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aldiyarbek/tournament-bot/middleware"
	"github.com/aldiyarbek/tournament-bot/services"
	"github.com/go-chi/chi/v5"
)

type AdmissionHandler struct {
	admissions *services.AdmissionService
}

func NewAdmissionHandler(admissions *services.AdmissionService) *AdmissionHandler {
	return &AdmissionHandler{admissions: admissions}
}

// ListRecent отдаёт последние заявки для дашборда; ?limit= ограничивает выдачу.
func (h *AdmissionHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			badRequestResponse(w, r, errors.New("limit must be an integer"))
			return
		}
		limit = parsed
	}

	apps, err := h.admissions.ListRecent(r.Context(), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"applications": apps}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdmissionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, services.DecisionApprove)
}

func (h *AdmissionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, services.DecisionReject)
}

func (h *AdmissionHandler) moderate(w http.ResponseWriter, r *http.Request, decision services.ModerationDecision) {
	applicationID, err := strconv.Atoi(chi.URLParam(r, "applicationID"))
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid application ID"))
		return
	}
	adminID, err := middleware.GetAdminIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	result, err := h.admissions.Moderate(r.Context(), applicationID, decision, adminID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
