package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aldiyarbek/tournament-bot/services"
	"github.com/aldiyarbek/tournament-bot/utils"
	"github.com/golang-jwt/jwt/v4"
)

// AuthHandler выдаёт JWT админам панели. Личность админа задаётся его
// Telegram ID, общий API-ключ хранится только в виде bcrypt-хеша.
type AuthHandler struct {
	admins     *services.AdminService
	apiKeyHash string
	jwtSecret  []byte
}

func NewAuthHandler(admins *services.AdminService, apiKeyHash, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		admins:     admins,
		apiKeyHash: apiKeyHash,
		jwtSecret:  []byte(jwtSecret),
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		AdminID int64  `json:"admin_id"`
		APIKey  string `json:"api_key"`
	}

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.AdminID == 0 || input.APIKey == "" {
		badRequestResponse(w, r, errors.New("admin_id and api_key are required"))
		return
	}

	if !utils.CheckAPIKeyHash(input.APIKey, h.apiKeyHash) {
		mapServiceErrorToHTTP(w, r, services.ErrAuthInvalidCredentials)
		return
	}
	ok, err := h.admins.IsAdmin(r.Context(), input.AdminID)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if !ok {
		mapServiceErrorToHTTP(w, r, services.ErrAuthInvalidCredentials)
		return
	}

	claims := jwt.MapClaims{
		"admin_id": input.AdminID,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"token": tokenString}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
