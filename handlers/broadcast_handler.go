package handlers

import (
	"errors"
	"net/http"

	"github.com/aldiyarbek/tournament-bot/middleware"
	"github.com/aldiyarbek/tournament-bot/models"
	"github.com/aldiyarbek/tournament-bot/services"
)

type BroadcastHandler struct {
	broadcasts *services.BroadcastService
}

func NewBroadcastHandler(broadcasts *services.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{broadcasts: broadcasts}
}

// Send запускает рассылку синхронно и возвращает итоговый отчёт.
// Промежуточный прогресс уходит подписчикам WebSocket-хаба.
func (h *BroadcastHandler) Send(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.GetAdminIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		Audience string `json:"audience"`
		Text     string `json:"text"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Text == "" {
		badRequestResponse(w, r, errors.New("text is required"))
		return
	}

	audience := models.BroadcastAudience(input.Audience)
	if audience == "" {
		audience = models.AudienceAll
	}
	switch audience {
	case models.AudienceAll, models.AudienceApproved, models.AudiencePending:
	default:
		badRequestResponse(w, r, errors.New("audience must be one of: all, approved, pending"))
		return
	}

	report, err := h.broadcasts.SendToAudience(r.Context(), adminID, audience, input.Text, nil)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
