package handlers

import (
	"net/http"

	"github.com/aldiyarbek/tournament-bot/middleware"
	"github.com/aldiyarbek/tournament-bot/services"
)

type TournamentHandler struct {
	tournaments *services.TournamentService
}

func NewTournamentHandler(tournaments *services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournaments: tournaments}
}

// Bracket — публичный просмотр сетки, без авторизации.
func (h *TournamentHandler) Bracket(w http.ResponseWriter, r *http.Request) {
	view, err := h.tournaments.Bracket(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.tournaments.Overview(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"overview": overview}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Start(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.GetAdminIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	view, err := h.tournaments.Start(r.Context(), adminID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Reset(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.GetAdminIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	if err := h.tournaments.Reset(r.Context(), adminID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "tournament reset"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.GetAdminIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	view, err := h.tournaments.Regenerate(r.Context(), adminID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.tournaments.Settings(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"settings": settings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateSettings применяет только присланные поля; каждое проходит свою
// валидацию в сервисе.
func (h *TournamentHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.GetAdminIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		MaxTeams *int    `json:"max_teams"`
		TeamSize *int    `json:"team_size"`
		Channel  *string `json:"channel"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.MaxTeams != nil {
		if err := h.tournaments.SetMaxTeams(r.Context(), adminID, *input.MaxTeams); err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
	}
	if input.TeamSize != nil {
		if err := h.tournaments.SetTeamSize(r.Context(), adminID, *input.TeamSize); err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
	}
	if input.Channel != nil {
		if err := h.tournaments.SetChannel(r.Context(), adminID, *input.Channel); err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
	}

	settings, err := h.tournaments.Settings(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"settings": settings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
