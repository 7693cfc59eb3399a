package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aldiyarbek/tournament-bot/chat"
	"github.com/aldiyarbek/tournament-bot/models"
)

// Notifier доставляет уведомления после того, как изменение состояния уже
// зафиксировано. Ошибки доставки не фатальны и никогда не откатывают
// зафиксированное изменение, поэтому методы ничего не возвращают.
type Notifier interface {
	// NotifyModerators posts the new-application card with the
	// approve/reject action pair into the moderation chat.
	NotifyModerators(ctx context.Context, app *models.Application)

	// NotifyApplicant delivers a plain status message to one applicant.
	NotifyApplicant(ctx context.Context, userID int64, text string)

	// AnnounceModeration posts a service announcement into the moderation chat.
	AnnounceModeration(ctx context.Context, text string)
}

type chatNotifier struct {
	transport        chat.Transport
	moderationChatID int64
	logger           *slog.Logger
}

func NewChatNotifier(transport chat.Transport, moderationChatID int64, logger *slog.Logger) Notifier {
	return &chatNotifier{
		transport:        transport,
		moderationChatID: moderationChatID,
		logger:           logger,
	}
}

func (n *chatNotifier) NotifyModerators(ctx context.Context, app *models.Application) {
	msg := chat.Message{
		Text: formatNewApplication(app),
		Keyboard: [][]chat.Button{{
			{Text: "✅ Одобрить", CallbackData: models.ModerationCallback(models.CommandApprove, app.ID)},
			{Text: "❌ Отклонить", CallbackData: models.ModerationCallback(models.CommandReject, app.ID)},
		}},
	}
	if _, err := n.transport.SendMessage(ctx, n.moderationChatID, msg); err != nil {
		n.logger.Error("failed to notify moderators",
			slog.Int("application_id", app.ID),
			slog.Any("error", err),
		)
	}
}

func (n *chatNotifier) NotifyApplicant(ctx context.Context, userID int64, text string) {
	if _, err := n.transport.SendMessage(ctx, userID, chat.Message{Text: text}); err != nil {
		n.logger.Warn("failed to notify applicant",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
	}
}

func (n *chatNotifier) AnnounceModeration(ctx context.Context, text string) {
	if _, err := n.transport.SendMessage(ctx, n.moderationChatID, chat.Message{Text: text}); err != nil {
		n.logger.Error("failed to post moderation announcement", slog.Any("error", err))
	}
}

func formatNewApplication(app *models.Application) string {
	username := "нет"
	if app.Username != nil && *app.Username != "" {
		username = *app.Username
	}
	text := fmt.Sprintf(
		"📨 НОВАЯ ЗАЯВКА #%d\n\n"+
			"👤 Игрок: %s\n"+
			"📱 Контакт: %s\n"+
			"👤 Telegram: @%s\n"+
			"🏷️ Команда: %s\n"+
			"👥 Состав:\n",
		app.ID, app.FullName, app.Contact, username, app.TeamName,
	)
	for _, member := range app.Members {
		text += member + "\n"
	}
	text += fmt.Sprintf("\n🆔 User ID: %d", app.UserID)
	return text
}
