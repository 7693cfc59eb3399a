package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aldiyarbek/tournament-bot/chat"
	"github.com/aldiyarbek/tournament-bot/repositories"
)

// Состояния диалога регистрации. Сессия всегда принимает ровно один ввод и
// либо продвигается, либо переспрашивает тот же шаг.
const (
	stateCollectingName     = "collecting_name"
	stateCollectingTeamName = "collecting_team_name"
	stateCollectingRoster   = "collecting_roster"
	stateCollectingContact  = "collecting_contact"
)

type registrationSession struct {
	// mu сериализует переходы одной сессии: вебхук обрабатывает апдейты
	// параллельно, и два быстрых сообщения одного пользователя не должны
	// менять состояние одновременно.
	mu       sync.Mutex
	State    string
	Username *string
	FullName string
	TeamName string
	Members  []string
}

// RegistrationService ведёт по одному диалогу регистрации на пользователя.
// Сессии живут только в памяти процесса и не имеют таймаута: брошенный
// диалог висит до рестарта.
type RegistrationService struct {
	mu       sync.Mutex
	sessions map[int64]*registrationSession

	admission    *AdmissionService
	settingsRepo repositories.SettingsRepository
	notifier     Notifier
	logger       *slog.Logger
}

func NewRegistrationService(
	admission *AdmissionService,
	settingsRepo repositories.SettingsRepository,
	notifier Notifier,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		sessions:     make(map[int64]*registrationSession),
		admission:    admission,
		settingsRepo: settingsRepo,
		notifier:     notifier,
		logger:       logger,
	}
}

// Active reports whether the user has a registration dialog in progress.
func (s *RegistrationService) Active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}

// Cancel drops the user's dialog, if any.
func (s *RegistrationService) Cancel(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Begin opens a new registration dialog after the submit preconditions pass.
// The same preconditions are re-checked authoritatively at submit time.
func (s *RegistrationService) Begin(ctx context.Context, userID int64, username *string) chat.Message {
	if err := s.admission.Precheck(ctx, userID); err != nil {
		return chat.Message{Text: submitRefusalText(err)}
	}

	s.mu.Lock()
	s.sessions[userID] = &registrationSession{State: stateCollectingName, Username: username}
	s.mu.Unlock()

	return chat.Message{Text: "📋 Начнём регистрацию!\n\nСкажите, как к вам обращаться?"}
}

// HandleText feeds one message into the user's dialog. The second return
// value is false when the user has no active session and the text should be
// routed elsewhere.
func (s *RegistrationService) HandleText(ctx context.Context, userID int64, text string) (chat.Message, bool) {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return chat.Message{}, false
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	text = strings.TrimSpace(text)

	switch session.State {
	case stateCollectingName:
		session.FullName = text
		session.State = stateCollectingTeamName
		return chat.Message{Text: "🏷️ Введите название команды:"}, true

	case stateCollectingTeamName:
		size, err := s.teamSize(ctx)
		if err != nil {
			// Шаг не продвигается: без настроек неизвестен нужный размер состава.
			return chat.Message{Text: storeFailureText}, true
		}
		session.TeamName = text
		session.State = stateCollectingRoster
		return chat.Message{Text: fmt.Sprintf(
			"👥 Введите состав команды (%d игроков):\nФормат: ИГРОК 1, ИГРОК 2, ...", size,
		)}, true

	case stateCollectingRoster:
		size, err := s.teamSize(ctx)
		if err != nil {
			return chat.Message{Text: storeFailureText}, true
		}
		members := parseRoster(text)
		if len(members) != size {
			// Невалидный ввод не продвигает состояние: тот же шаг, подсказка.
			return chat.Message{Text: fmt.Sprintf("❌ Неверное количество игроков! Нужно %d человек.", size)}, true
		}
		session.Members = members
		session.State = stateCollectingContact
		return chat.Message{Text: "📞 Введите ваш контакт для связи (Telegram @ник или телефон):"}, true

	case stateCollectingContact:
		app, err := s.admission.Submit(ctx, SubmitInput{
			UserID:   userID,
			Username: session.Username,
			FullName: session.FullName,
			TeamName: session.TeamName,
			Members:  session.Members,
			Contact:  text,
		})
		s.Cancel(userID)
		if err != nil {
			return chat.Message{Text: submitRefusalText(err)}, true
		}

		s.notifier.NotifyModerators(ctx, app)
		return chat.Message{Text: "✅ Заявка отправлена на модерацию!\nОжидайте решения в течение 24 часов."}, true
	}

	s.logger.Error("registration session in unknown state",
		slog.Int64("user_id", userID),
		slog.String("state", session.State),
	)
	s.Cancel(userID)
	return chat.Message{Text: "❌ Что-то пошло не так, начните регистрацию заново."}, true
}

const storeFailureText = "❌ Временная ошибка, отправьте сообщение ещё раз."

func (s *RegistrationService) teamSize(ctx context.Context) (int, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		s.logger.Error("failed to load settings for roster size", slog.Any("error", err))
		return 0, err
	}
	return settings.TeamSize, nil
}

func parseRoster(text string) []string {
	parts := strings.Split(text, ",")
	members := make([]string, len(parts))
	for i, p := range parts {
		members[i] = strings.TrimSpace(p)
	}
	return members
}

func submitRefusalText(err error) string {
	switch {
	case errors.Is(err, ErrTournamentStarted):
		return "❌ Регистрация закрыта! Турнир уже начался."
	case errors.Is(err, ErrDuplicateApplication):
		return "⏳ У вас уже есть активная заявка!"
	case errors.Is(err, ErrCapacityReached):
		return "❌ Регистрация закрыта! Достигнут лимит команд."
	}
	return "❌ Не удалось принять заявку, попробуйте позже."
}
