package services

import (
	"context"
	"log/slog"

	"github.com/aldiyarbek/tournament-bot/brackets"
	"github.com/aldiyarbek/tournament-bot/chat"
	"github.com/aldiyarbek/tournament-bot/models"
	"github.com/aldiyarbek/tournament-bot/repositories"
)

// progressInterval — каждые сколько получателей публикуется прогресс.
const progressInterval = 10

// ProgressFunc получает промежуточные снапшоты рассылки.
type ProgressFunc func(models.BroadcastProgress)

// BroadcastService рассылает одно сообщение набору получателей. Сбой
// доставки одному получателю учитывается и логируется, но не прерывает
// остальных. Ретраев внутри одной рассылки нет; запущенная рассылка
// дорабатывает до конца.
type BroadcastService struct {
	appRepo   repositories.ApplicationRepository
	admins    *AdminService
	transport chat.Transport
	hub       *brackets.Hub
	logger    *slog.Logger
}

func NewBroadcastService(
	appRepo repositories.ApplicationRepository,
	admins *AdminService,
	transport chat.Transport,
	hub *brackets.Hub,
	logger *slog.Logger,
) *BroadcastService {
	return &BroadcastService{
		appRepo:   appRepo,
		admins:    admins,
		transport: transport,
		hub:       hub,
		logger:    logger,
	}
}

// SendToAudience resolves the audience filter to a recipient snapshot and
// dispatches to it.
func (s *BroadcastService) SendToAudience(ctx context.Context, actorID int64, audience models.BroadcastAudience, text string, progress ProgressFunc) (*models.BroadcastReport, error) {
	if err := s.admins.RequireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	recipients, err := s.appRepo.ListRecipients(ctx, audience)
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, recipients, text, progress)
}

// Send delivers text to every recipient independently and returns the final
// tally. Progress is emitted every progressInterval recipients, to the hub
// and to the optional callback.
func (s *BroadcastService) Send(ctx context.Context, recipients []int64, text string, progress ProgressFunc) (*models.BroadcastReport, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	// Запущенная рассылка дорабатывает до конца, даже если инициатор оборвал
	// соединение: доставка идёт на контексте без отмены.
	ctx = context.WithoutCancel(ctx)

	report := &models.BroadcastReport{Total: len(recipients)}
	for i, userID := range recipients {
		if _, err := s.transport.SendMessage(ctx, userID, chat.Message{Text: text}); err != nil {
			report.Failed++
			s.logger.Warn("broadcast delivery failed",
				slog.Int64("user_id", userID),
				slog.Any("error", err),
			)
		} else {
			report.Succeeded++
		}

		if i%progressInterval == 0 {
			s.emitProgress(models.BroadcastProgress{
				Sent:      i + 1,
				Total:     report.Total,
				Succeeded: report.Succeeded,
				Failed:    report.Failed,
			}, progress)
		}
	}

	s.logger.Info("broadcast finished",
		slog.Int("total", report.Total),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *BroadcastService) emitProgress(snapshot models.BroadcastProgress, progress ProgressFunc) {
	s.hub.Publish(brackets.EventBroadcastProgress, snapshot)
	if progress != nil {
		progress(snapshot)
	}
}
