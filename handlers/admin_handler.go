package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aldiyarbek/tournament-bot/middleware"
	"github.com/aldiyarbek/tournament-bot/services"
	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	admins *services.AdminService
}

func NewAdminHandler(admins *services.AdminService) *AdminHandler {
	return &AdminHandler{admins: admins}
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admins.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"admins": admins}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) Add(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetAdminIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		UserID   int64   `json:"user_id"`
		Username *string `json:"username"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID == 0 {
		badRequestResponse(w, r, errors.New("user_id is required"))
		return
	}

	admin, err := h.admins.AddAdmin(r.Context(), actorID, input.UserID, input.Username)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"admin": admin}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetAdminIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	targetID, err := strconv.ParseInt(chi.URLParam(r, "adminID"), 10, 64)
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid admin ID"))
		return
	}

	if err := h.admins.RemoveAdmin(r.Context(), actorID, targetID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "admin removed"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
