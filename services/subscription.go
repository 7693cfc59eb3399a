package services

import (
	"context"
	"log/slog"

	"github.com/aldiyarbek/tournament-bot/chat"
	"github.com/aldiyarbek/tournament-bot/repositories"
)

// SubscriptionChecker решает, пускать ли пользователя к регистрации по
// подписке на канал. Любая ошибка транспорта трактуется как "подписан" —
// fail-open, гейт не должен блокировать регистрацию из-за сбоя API.
type SubscriptionChecker struct {
	settingsRepo repositories.SettingsRepository
	transport    chat.Transport
	logger       *slog.Logger
}

func NewSubscriptionChecker(settingsRepo repositories.SettingsRepository, transport chat.Transport, logger *slog.Logger) *SubscriptionChecker {
	return &SubscriptionChecker{
		settingsRepo: settingsRepo,
		transport:    transport,
		logger:       logger,
	}
}

func (c *SubscriptionChecker) IsSubscribed(ctx context.Context, userID int64) bool {
	settings, err := c.settingsRepo.Get(ctx)
	if err != nil {
		c.logger.Error("subscription check: failed to load settings", slog.Any("error", err))
		return true
	}
	if !settings.SubscriptionRequired() {
		return true
	}

	status, err := c.transport.GetMembershipStatus(ctx, *settings.Channel, userID)
	if err != nil {
		c.logger.Warn("subscription check failed, allowing user",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
		return true
	}
	return status.Subscribed()
}

// RequiredChannel returns the configured channel or "" when the gate is off.
func (c *SubscriptionChecker) RequiredChannel(ctx context.Context) string {
	settings, err := c.settingsRepo.Get(ctx)
	if err != nil || !settings.SubscriptionRequired() {
		return ""
	}
	return *settings.Channel
}
