package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aldiyarbek/tournament-bot/brackets"
	"github.com/aldiyarbek/tournament-bot/models"
	"github.com/aldiyarbek/tournament-bot/repositories"
	"github.com/aldiyarbek/tournament-bot/storage"
	"golang.org/x/sync/errgroup"
)

type BracketSlot struct {
	Position      int    `json:"position"`
	ApplicationID int    `json:"application_id"`
	TeamName      string `json:"team_name"`
	Captain       string `json:"captain"`
}

type BracketGroup struct {
	Number int           `json:"number"`
	Teams  []BracketSlot `json:"teams"`
}

type BracketView struct {
	Stage   models.TournamentStage `json:"stage"`
	Started bool                   `json:"started"`
	Groups  []BracketGroup         `json:"groups"`
}

type Overview struct {
	Stats    *models.Stats              `json:"stats"`
	Settings *models.TournamentSettings `json:"settings"`
}

// TournamentService управляет стадией турнира и настройками, держит
// read-side (сетка, статистика) и побочные эффекты старта.
type TournamentService struct {
	lock           *TournamentLock
	appRepo        repositories.ApplicationRepository
	settingsRepo   repositories.SettingsRepository
	tournamentRepo repositories.TournamentRepository
	admins         *AdminService
	generator      *brackets.GroupGenerator
	notifier       Notifier
	hub            *brackets.Hub
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTournamentService(
	lock *TournamentLock,
	appRepo repositories.ApplicationRepository,
	settingsRepo repositories.SettingsRepository,
	tournamentRepo repositories.TournamentRepository,
	admins *AdminService,
	generator *brackets.GroupGenerator,
	notifier Notifier,
	hub *brackets.Hub,
	uploader storage.FileUploader,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		lock:           lock,
		appRepo:        appRepo,
		settingsRepo:   settingsRepo,
		tournamentRepo: tournamentRepo,
		admins:         admins,
		generator:      generator,
		notifier:       notifier,
		hub:            hub,
		uploader:       uploader,
		logger:         logger,
	}
}

// Start запускает турнир вручную: нужно минимум 2 одобренные команды.
func (s *TournamentService) Start(ctx context.Context, actorID int64) (*BracketView, error) {
	if err := s.admins.RequireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	s.lock.Lock()
	err := func() error {
		settings, err := s.settingsRepo.Get(ctx)
		if err != nil {
			return err
		}
		if settings.Started {
			return ErrTournamentStarted
		}

		teams, err := s.appRepo.ListByStatus(ctx, models.ApplicationApproved)
		if err != nil {
			return err
		}
		if len(teams) < 2 {
			return ErrNotEnoughTeams
		}

		assignments, err := s.generator.Generate(teams)
		if err != nil {
			if errors.Is(err, brackets.ErrInsufficientTeams) {
				return ErrNotEnoughTeams
			}
			return err
		}
		return s.tournamentRepo.StartWithBracket(ctx, assignments)
	}()
	s.lock.Unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament started", slog.Int64("actor_id", actorID))
	s.announceStarted(ctx, "🎉 ТУРНИР НАЧАЛСЯ! Сетка сформирована.")
	return s.Bracket(ctx)
}

// Reset сбрасывает сетку и возвращает турнир в стадию регистрации.
func (s *TournamentService) Reset(ctx context.Context, actorID int64) error {
	if err := s.admins.RequireAdmin(ctx, actorID); err != nil {
		return err
	}

	s.lock.Lock()
	err := s.tournamentRepo.Reset(ctx)
	s.lock.Unlock()
	if err != nil {
		return err
	}

	s.logger.Info("tournament reset", slog.Int64("actor_id", actorID))
	s.hub.Publish(brackets.EventTournamentReset, nil)
	s.notifier.AnnounceModeration(ctx,
		"🛑 ТУРНИР ЗАВЕРШЕН\n\nВсе турнирные данные сброшены.\nТурнир переведен в стадию регистрации.")
	return nil
}

// Regenerate пересобирает сетку заново по уже начатому турниру, полностью
// перезаписывая прежние группы и позиции.
func (s *TournamentService) Regenerate(ctx context.Context, actorID int64) (*BracketView, error) {
	if err := s.admins.RequireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	s.lock.Lock()
	err := func() error {
		settings, err := s.settingsRepo.Get(ctx)
		if err != nil {
			return err
		}
		if !settings.Started {
			return ErrTournamentNotStarted
		}

		teams, err := s.appRepo.ListByStatus(ctx, models.ApplicationApproved)
		if err != nil {
			return err
		}
		assignments, err := s.generator.Generate(teams)
		if err != nil {
			if errors.Is(err, brackets.ErrInsufficientTeams) {
				return ErrNotEnoughTeams
			}
			return err
		}
		return s.tournamentRepo.RewriteBracket(ctx, assignments)
	}()
	s.lock.Unlock()
	if err != nil {
		return nil, err
	}

	view, err := s.Bracket(ctx)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(brackets.EventBracketUpdated, view)
	s.notifier.AnnounceModeration(ctx, "🔄 ТУРНИРНАЯ СЕТКА ОБНОВЛЕНА\n\n"+FormatBracket(view))
	s.logger.Info("bracket regenerated", slog.Int64("actor_id", actorID))
	return view, nil
}

// Bracket собирает текущую сетку. Настройки и разметка читаются параллельно.
func (s *TournamentService) Bracket(ctx context.Context) (*BracketView, error) {
	var (
		settings *models.TournamentSettings
		placed   []*models.Application
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		settings, err = s.settingsRepo.Get(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		placed, err = s.appRepo.ListBracket(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := &BracketView{Stage: settings.Stage, Started: settings.Started, Groups: make([]BracketGroup, 0)}
	byGroup := make(map[int]int) // group number -> index in view.Groups
	for _, app := range placed {
		if !app.Placed() {
			continue
		}
		idx, ok := byGroup[*app.Group]
		if !ok {
			idx = len(view.Groups)
			byGroup[*app.Group] = idx
			view.Groups = append(view.Groups, BracketGroup{Number: *app.Group})
		}
		view.Groups[idx].Teams = append(view.Groups[idx].Teams, BracketSlot{
			Position:      *app.Position,
			ApplicationID: app.ID,
			TeamName:      app.TeamName,
			Captain:       app.FullName,
		})
	}
	return view, nil
}

// ApplicantGroup returns the group the applicant's approved team plays in.
func (s *TournamentService) ApplicantGroup(ctx context.Context, userID int64) (*BracketGroup, *models.Application, error) {
	app, err := s.appRepo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrApplicationNotFound) {
			return nil, nil, ErrApplicationNotFound
		}
		return nil, nil, err
	}
	if app.Status != models.ApplicationApproved || !app.Placed() {
		return nil, app, ErrTournamentNotStarted
	}

	view, err := s.Bracket(ctx)
	if err != nil {
		return nil, app, err
	}
	for i := range view.Groups {
		if view.Groups[i].Number == *app.Group {
			return &view.Groups[i], app, nil
		}
	}
	return nil, app, ErrTournamentNotStarted
}

// Overview отдаёт статистику и настройки одним ответом для дашборда.
func (s *TournamentService) Overview(ctx context.Context) (*Overview, error) {
	var (
		stats    *models.Stats
		settings *models.TournamentSettings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.appRepo.GetStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = s.settingsRepo.Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Overview{Stats: stats, Settings: settings}, nil
}

func (s *TournamentService) Settings(ctx context.Context) (*models.TournamentSettings, error) {
	return s.settingsRepo.Get(ctx)
}

func (s *TournamentService) SetMaxTeams(ctx context.Context, actorID int64, maxTeams int) error {
	if err := s.admins.RequireAdmin(ctx, actorID); err != nil {
		return err
	}
	if maxTeams < 2 {
		return ErrInvalidMaxTeams
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.settingsRepo.UpdateMaxTeams(ctx, maxTeams)
}

func (s *TournamentService) SetTeamSize(ctx context.Context, actorID int64, teamSize int) error {
	if err := s.admins.RequireAdmin(ctx, actorID); err != nil {
		return err
	}
	if teamSize < 1 {
		return ErrInvalidTeamSize
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.settingsRepo.UpdateTeamSize(ctx, teamSize)
}

// SetChannel настраивает канал подписки; пустая строка выключает проверку.
func (s *TournamentService) SetChannel(ctx context.Context, actorID int64, channel string) error {
	if err := s.admins.RequireAdmin(ctx, actorID); err != nil {
		return err
	}
	channel = strings.TrimSpace(channel)
	if channel == "" || channel == "0" {
		return s.settingsRepo.UpdateChannel(ctx, nil)
	}
	if !strings.HasPrefix(channel, "@") {
		return ErrInvalidChannel
	}
	return s.settingsRepo.UpdateChannel(ctx, &channel)
}

// announceStarted выполняет побочные эффекты старта: событие в хаб, выгрузка
// снапшота сетки в объектное хранилище и анонс в чат модерации. Все они
// происходят после уже зафиксированного старта и не фатальны.
func (s *TournamentService) announceStarted(ctx context.Context, headline string) {
	view, err := s.Bracket(ctx)
	if err != nil {
		s.logger.Error("failed to load bracket for start announcement", slog.Any("error", err))
		s.notifier.AnnounceModeration(ctx, headline)
		return
	}

	s.hub.Publish(brackets.EventTournamentStarted, view)

	text := headline + "\n\n" + FormatBracket(view)
	if url := s.exportSnapshot(ctx, view); url != "" {
		text += "\n\nСнапшот сетки: " + url
	}
	s.notifier.AnnounceModeration(ctx, text)
}

// exportSnapshot publishes the bracket as JSON to object storage and returns
// the public URL, or "" when the uploader is not configured or failed.
func (s *TournamentService) exportSnapshot(ctx context.Context, view *BracketView) string {
	if s.uploader == nil {
		return ""
	}
	payload, err := json.Marshal(view)
	if err != nil {
		s.logger.Error("failed to marshal bracket snapshot", slog.Any("error", err))
		return ""
	}
	key := fmt.Sprintf("brackets/snapshot-%d.json", time.Now().Unix())
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		s.logger.Error("failed to upload bracket snapshot", slog.Any("error", err))
		return ""
	}
	s.logger.Info("bracket snapshot exported", slog.String("key", result.Key))
	return result.Location
}
