package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultAPIBaseURL = "https://api.telegram.org"

type TelegramTransportConfig struct {
	Token string
	// APIBaseURL переопределяется в тестах; пустое значение — боевой API.
	APIBaseURL string
	HTTPClient *http.Client
}

type telegramTransport struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewTelegramTransport(cfg TelegramTransportConfig) (Transport, error) {
	if cfg.Token == "" {
		return nil, errors.New("invalid telegram transport configuration: token is required")
	}
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &telegramTransport{
		token:   cfg.Token,
		baseURL: baseURL,
		client:  client,
	}, nil
}

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

func (t *telegramTransport) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("%s rejected by API: %s", method, apiResp.Description)
	}
	if result != nil && apiResp.Result != nil {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

func markupFor(msg Message) *inlineKeyboardMarkup {
	if len(msg.Keyboard) == 0 {
		return nil
	}
	markup := &inlineKeyboardMarkup{InlineKeyboard: make([][]inlineKeyboardButton, 0, len(msg.Keyboard))}
	for _, row := range msg.Keyboard {
		buttons := make([]inlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, inlineKeyboardButton{Text: b.Text, CallbackData: b.CallbackData, URL: b.URL})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

func (t *telegramTransport) SendMessage(ctx context.Context, chatID int64, msg Message) (MessageRef, error) {
	payload := struct {
		ChatID      int64                 `json:"chat_id"`
		Text        string                `json:"text"`
		ParseMode   string                `json:"parse_mode,omitempty"`
		ReplyMarkup *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
	}{
		ChatID:      chatID,
		Text:        msg.Text,
		ParseMode:   "HTML",
		ReplyMarkup: markupFor(msg),
	}

	var sent struct {
		MessageID int `json:"message_id"`
	}
	if err := t.call(ctx, "sendMessage", payload, &sent); err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (t *telegramTransport) EditMessage(ctx context.Context, ref MessageRef, msg Message) error {
	payload := struct {
		ChatID      int64                 `json:"chat_id"`
		MessageID   int                   `json:"message_id"`
		Text        string                `json:"text"`
		ParseMode   string                `json:"parse_mode,omitempty"`
		ReplyMarkup *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
	}{
		ChatID:      ref.ChatID,
		MessageID:   ref.MessageID,
		Text:        msg.Text,
		ParseMode:   "HTML",
		ReplyMarkup: markupFor(msg),
	}
	return t.call(ctx, "editMessageText", payload, nil)
}

func (t *telegramTransport) GetMembershipStatus(ctx context.Context, channel string, userID int64) (MembershipStatus, error) {
	payload := struct {
		ChatID string `json:"chat_id"`
		UserID int64  `json:"user_id"`
	}{
		ChatID: channel,
		UserID: userID,
	}

	var member struct {
		Status string `json:"status"`
	}
	if err := t.call(ctx, "getChatMember", payload, &member); err != nil {
		return StatusUnknown, err
	}
	switch status := MembershipStatus(member.Status); status {
	case StatusCreator, StatusAdministrator, StatusMember, StatusLeft, StatusKicked:
		return status, nil
	default:
		return StatusUnknown, nil
	}
}
