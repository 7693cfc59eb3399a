package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aldiyarbek/tournament-bot/chat"
	"github.com/aldiyarbek/tournament-bot/models"
	"github.com/aldiyarbek/tournament-bot/services"
)

// WebhookHandler принимает апдейты Telegram и переводит их в вызовы сервисов.
// Телеграм ретраит любой не-200 ответ, поэтому хендлер всегда отвечает 200,
// а ошибки обработки только логирует.
type WebhookHandler struct {
	transport     chat.Transport
	registrations *services.RegistrationService
	admissions    *services.AdmissionService
	tournaments   *services.TournamentService
	subscriptions *services.SubscriptionChecker
	logger        *slog.Logger
}

func NewWebhookHandler(
	transport chat.Transport,
	registrations *services.RegistrationService,
	admissions *services.AdmissionService,
	tournaments *services.TournamentService,
	subscriptions *services.SubscriptionChecker,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		transport:     transport,
		registrations: registrations,
		admissions:    admissions,
		tournaments:   tournaments,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update chat.Update
	// Телеграм шлёт поля, которых нет в наших структурах, поэтому строгий
	// декодер readJSON здесь не подходит.
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("failed to decode webhook update", slog.Any("error", err))
		w.WriteHeader(http.StatusOK)
		return
	}

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(r, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		h.handleMessage(r, update.Message)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleCallback(r *http.Request, cb *chat.CallbackQuery) {
	if cb.From == nil {
		return
	}
	ctx := r.Context()

	cmd, err := models.ParseCallback(cb.Data)
	if err != nil {
		h.logger.Warn("unknown callback data",
			slog.String("data", cb.Data),
			slog.Int64("user_id", cb.From.ID),
		)
		return
	}

	switch cmd.Kind {
	case models.CommandApprove, models.CommandReject:
		h.handleModerationCallback(ctx, cb, cmd)
	case models.CommandCheckSubscription:
		h.handleSubscriptionCallback(ctx, cb)
	}
}

// handleModerationCallback применяет решение и редактирует карточку заявки,
// чтобы кнопки исчезли и вердикт остался в чате модерации.
func (h *WebhookHandler) handleModerationCallback(ctx context.Context, cb *chat.CallbackQuery, cmd models.Command) {
	decision := services.DecisionApprove
	if cmd.Kind == models.CommandReject {
		decision = services.DecisionReject
	}

	result, err := h.admissions.Moderate(ctx, cmd.ApplicationID, decision, cb.From.ID)
	if err != nil {
		h.replyToCallback(ctx, cb, moderationErrorText(err))
		return
	}

	var verdict string
	if decision == services.DecisionApprove {
		verdict = fmt.Sprintf("✅ ОДОБРЕНО (%d/%d)", result.ApprovedCount, result.MaxTeams)
		if result.AutoStarted {
			verdict += "\n🎉 Лимит набран, турнир запущен!"
		}
	} else {
		verdict = "❌ ОТКЛОНЕНО"
	}
	h.editCallbackCard(ctx, cb, verdict)
}

func (h *WebhookHandler) handleSubscriptionCallback(ctx context.Context, cb *chat.CallbackQuery) {
	userID := cb.From.ID
	if !h.subscriptions.IsSubscribed(ctx, userID) {
		h.send(ctx, userID, chat.Message{Text: "❌ Подписка не найдена. Подпишитесь на канал и попробуйте ещё раз."})
		return
	}

	username := usernamePtr(cb.From)
	h.send(ctx, userID, h.registrations.Begin(ctx, userID, username))
}

func (h *WebhookHandler) handleMessage(r *http.Request, msg *chat.IncomingMessage) {
	if msg.From == nil {
		return
	}
	ctx := r.Context()
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch models.ParseSlashCommand(text) {
	case models.CommandStart:
		h.send(ctx, chatID, chat.Message{Text: h.welcomeText(ctx)})

	case models.CommandApply:
		h.beginRegistration(ctx, msg)

	case models.CommandCancel:
		h.registrations.Cancel(userID)
		h.send(ctx, chatID, chat.Message{Text: "Регистрация отменена."})

	case models.CommandStatus:
		h.sendStatus(ctx, chatID, userID)

	case models.CommandBracket:
		h.sendBracket(ctx, chatID)

	case models.CommandMyGroup:
		h.sendMyGroup(ctx, chatID, userID)

	default:
		reply, handled := h.registrations.HandleText(ctx, userID, text)
		if !handled {
			reply = chat.Message{Text: "Не понимаю. Используйте /apply для подачи заявки или /status для проверки."}
		}
		h.send(ctx, chatID, reply)
	}
}

func (h *WebhookHandler) welcomeText(ctx context.Context) string {
	text := "👋 Привет! Это бот регистрации на турнир.\n\n" +
		"/apply — подать заявку\n" +
		"/status — статус вашей заявки\n" +
		"/bracket — турнирная сетка\n" +
		"/mygroup — ваша группа\n" +
		"/cancel — отменить регистрацию"

	overview, err := h.tournaments.Overview(ctx)
	if err != nil {
		h.logger.Warn("failed to load overview for welcome message", slog.Any("error", err))
		return text
	}
	return text + fmt.Sprintf("\n\nЗарегистрировано команд: %d/%d",
		overview.Stats.Approved, overview.Settings.MaxTeams)
}

// beginRegistration открывает диалог регистрации, предварительно проверив
// подписку на канал, если она настроена.
func (h *WebhookHandler) beginRegistration(ctx context.Context, msg *chat.IncomingMessage) {
	userID := msg.From.ID
	if !h.subscriptions.IsSubscribed(ctx, userID) {
		channel := h.subscriptions.RequiredChannel(ctx)
		h.send(ctx, msg.Chat.ID, chat.Message{
			Text: fmt.Sprintf("📢 Для участия подпишитесь на канал %s и нажмите кнопку ниже.", channel),
			Keyboard: [][]chat.Button{
				{{Text: "Перейти в канал", URL: "https://t.me/" + strings.TrimPrefix(channel, "@")}},
				{{Text: "✅ Я подписался", CallbackData: "check_subscription"}},
			},
		})
		return
	}

	username := usernamePtr(msg.From)
	h.send(ctx, msg.Chat.ID, h.registrations.Begin(ctx, userID, username))
}

func (h *WebhookHandler) sendStatus(ctx context.Context, chatID, userID int64) {
	app, err := h.admissions.Status(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrApplicationNotFound) {
			h.send(ctx, chatID, chat.Message{Text: "У вас нет заявки. Подайте её командой /apply."})
			return
		}
		h.logger.Error("failed to load application status", slog.Any("error", err))
		h.send(ctx, chatID, chat.Message{Text: "❌ Не удалось получить статус, попробуйте позже."})
		return
	}
	h.send(ctx, chatID, chat.Message{Text: services.FormatApplicantStatus(app)})
}

func (h *WebhookHandler) sendBracket(ctx context.Context, chatID int64) {
	view, err := h.tournaments.Bracket(ctx)
	if err != nil {
		h.logger.Error("failed to load bracket", slog.Any("error", err))
		h.send(ctx, chatID, chat.Message{Text: "❌ Не удалось получить сетку, попробуйте позже."})
		return
	}
	if !view.Started {
		h.send(ctx, chatID, chat.Message{Text: "Турнир ещё не начался, сетки пока нет."})
		return
	}
	h.send(ctx, chatID, chat.Message{Text: services.FormatBracket(view)})
}

func (h *WebhookHandler) sendMyGroup(ctx context.Context, chatID, userID int64) {
	group, app, err := h.tournaments.ApplicantGroup(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrApplicationNotFound):
			h.send(ctx, chatID, chat.Message{Text: "У вас нет заявки. Подайте её командой /apply."})
		case errors.Is(err, services.ErrTournamentNotStarted):
			h.send(ctx, chatID, chat.Message{Text: "Ваша команда пока не распределена по группам."})
		default:
			h.logger.Error("failed to load applicant group", slog.Any("error", err))
			h.send(ctx, chatID, chat.Message{Text: "❌ Не удалось получить группу, попробуйте позже."})
		}
		return
	}
	h.send(ctx, chatID, chat.Message{Text: services.FormatGroup(group, app)})
}

func (h *WebhookHandler) send(ctx context.Context, chatID int64, msg chat.Message) {
	if msg.Text == "" {
		return
	}
	if _, err := h.transport.SendMessage(ctx, chatID, msg); err != nil {
		h.logger.Warn("failed to send chat reply",
			slog.Int64("chat_id", chatID),
			slog.Any("error", err),
		)
	}
}

// editCallbackCard дописывает вердикт в карточку заявки и убирает клавиатуру.
func (h *WebhookHandler) editCallbackCard(ctx context.Context, cb *chat.CallbackQuery, verdict string) {
	if cb.Message == nil {
		return
	}
	ref := chat.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
	text := cb.Message.Text
	if text != "" {
		text += "\n\n"
	}
	if err := h.transport.EditMessage(ctx, ref, chat.Message{Text: text + verdict}); err != nil {
		h.logger.Warn("failed to edit moderation card", slog.Any("error", err))
	}
}

func (h *WebhookHandler) replyToCallback(ctx context.Context, cb *chat.CallbackQuery, text string) {
	if cb.Message == nil {
		return
	}
	h.send(ctx, cb.Message.Chat.ID, chat.Message{Text: text})
}

func moderationErrorText(err error) string {
	switch {
	case errors.Is(err, services.ErrAlreadyProcessed):
		return "⚠️ Заявка уже обработана."
	case errors.Is(err, services.ErrApplicationNotFound):
		return "⚠️ Заявка не найдена."
	case errors.Is(err, services.ErrCapacityExceeded):
		return "⚠️ Лимит команд уже набран, заявка осталась в ожидании."
	case errors.Is(err, services.ErrPermissionDenied):
		return "⛔ У вас нет прав модератора."
	}
	return "❌ Не удалось применить решение, попробуйте позже."
}

func usernamePtr(u *chat.User) *string {
	if u == nil || u.Username == "" {
		return nil
	}
	username := u.Username
	return &username
}
