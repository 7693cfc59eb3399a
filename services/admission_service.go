package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aldiyarbek/tournament-bot/brackets"
	"github.com/aldiyarbek/tournament-bot/models"
	"github.com/aldiyarbek/tournament-bot/repositories"
)

type ModerationDecision string

const (
	DecisionApprove ModerationDecision = "approve"
	DecisionReject  ModerationDecision = "reject"
)

type SubmitInput struct {
	UserID   int64
	Username *string
	FullName string
	TeamName string
	Members  []string
	Contact  string
}

type ModerationResult struct {
	Application   *models.Application `json:"application"`
	ApprovedCount int                 `json:"approved_count"`
	MaxTeams      int                 `json:"max_teams"`
	AutoStarted   bool                `json:"auto_started"`
}

// AdmissionService принимает заявки и применяет решения модераторов.
// Все мутации капасити/статусов идут под общим TournamentLock; уведомления
// отправляются уже после фиксации изменения и не могут его откатить.
type AdmissionService struct {
	lock           *TournamentLock
	appRepo        repositories.ApplicationRepository
	settingsRepo   repositories.SettingsRepository
	tournamentRepo repositories.TournamentRepository
	admins         *AdminService
	generator      *brackets.GroupGenerator
	tournaments    *TournamentService
	notifier       Notifier
	logger         *slog.Logger
}

func NewAdmissionService(
	lock *TournamentLock,
	appRepo repositories.ApplicationRepository,
	settingsRepo repositories.SettingsRepository,
	tournamentRepo repositories.TournamentRepository,
	admins *AdminService,
	generator *brackets.GroupGenerator,
	tournaments *TournamentService,
	notifier Notifier,
	logger *slog.Logger,
) *AdmissionService {
	return &AdmissionService{
		lock:           lock,
		appRepo:        appRepo,
		settingsRepo:   settingsRepo,
		tournamentRepo: tournamentRepo,
		admins:         admins,
		generator:      generator,
		tournaments:    tournaments,
		notifier:       notifier,
		logger:         logger,
	}
}

// Precheck runs the submit preconditions without inserting anything, so the
// registration dialog can refuse before asking the applicant four questions.
// A previously rejected application is deleted here, freeing the slot for a
// resubmission, exactly as Submit itself would do.
func (s *AdmissionService) Precheck(ctx context.Context, userID int64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.checkSubmitPreconditions(ctx, userID)
}

// checkSubmitPreconditions must be called with the tournament lock held.
func (s *AdmissionService) checkSubmitPreconditions(ctx context.Context, userID int64) error {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return err
	}
	if settings.Started {
		return ErrTournamentStarted
	}

	existing, err := s.appRepo.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, repositories.ErrApplicationNotFound) {
		return err
	}
	if existing != nil {
		if existing.Status != models.ApplicationRejected {
			return ErrDuplicateApplication
		}
		// Отклонённая заявка освобождает место под новую.
		if err := s.appRepo.DeleteByUserAndStatus(ctx, userID, models.ApplicationRejected); err != nil {
			return err
		}
	}

	approved, err := s.appRepo.CountByStatus(ctx, models.ApplicationApproved)
	if err != nil {
		return err
	}
	if approved >= settings.MaxTeams {
		return ErrCapacityReached
	}
	return nil
}

// Submit inserts a pending application after the stage, duplicate, and
// capacity gates. The capacity check here is advisory: the authoritative one
// happens again at moderation time.
func (s *AdmissionService) Submit(ctx context.Context, input SubmitInput) (*models.Application, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.checkSubmitPreconditions(ctx, input.UserID); err != nil {
		return nil, err
	}

	app := &models.Application{
		UserID:   input.UserID,
		Username: input.Username,
		FullName: input.FullName,
		TeamName: input.TeamName,
		Members:  input.Members,
		Contact:  input.Contact,
		Status:   models.ApplicationPending,
	}
	if err := s.appRepo.Create(ctx, app); err != nil {
		if errors.Is(err, repositories.ErrApplicationConflict) {
			return nil, ErrDuplicateApplication
		}
		return nil, err
	}

	s.logger.Info("application submitted",
		slog.Int("application_id", app.ID),
		slog.Int64("user_id", app.UserID),
		slog.String("team", app.TeamName),
	)
	return app, nil
}

// Status returns the applicant's current application, if any.
func (s *AdmissionService) Status(ctx context.Context, userID int64) (*models.Application, error) {
	app, err := s.appRepo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrApplicationNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

// ListRecent returns the newest applications for the admin dashboard.
func (s *AdmissionService) ListRecent(ctx context.Context, limit int) ([]*models.Application, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.appRepo.ListRecent(ctx, limit)
}

// Moderate applies one approve/reject decision. A decision can be applied at
// most once. Approval re-checks capacity at decision time: a submission that
// looked fine can still lose the race to concurrent approvals and come back
// with ErrCapacityExceeded — that is the intended resolution policy. The
// approval that fills the last slot during registration also generates the
// bracket and starts the tournament as one committed action.
func (s *AdmissionService) Moderate(ctx context.Context, applicationID int, decision ModerationDecision, actorID int64) (*ModerationResult, error) {
	if err := s.admins.RequireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	s.lock.Lock()
	result, err := s.moderateLocked(ctx, applicationID, decision)
	s.lock.Unlock()
	if err != nil {
		return nil, err
	}

	// Уведомления — после фиксации, сбой доставки ничего не откатывает.
	app := result.Application
	switch app.Status {
	case models.ApplicationApproved:
		s.notifier.NotifyApplicant(ctx, app.UserID, formatApprovalNotice(app))
	case models.ApplicationRejected:
		s.notifier.NotifyApplicant(ctx, app.UserID, formatRejectionNotice(app))
	}
	if result.AutoStarted {
		s.tournaments.announceStarted(ctx, formatAutoStartAnnouncement(result.ApprovedCount, result.MaxTeams))
	}
	return result, nil
}

// moderateLocked must be called with the tournament lock held.
func (s *AdmissionService) moderateLocked(ctx context.Context, applicationID int, decision ModerationDecision) (*ModerationResult, error) {
	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repositories.ErrApplicationNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	if app.Status != models.ApplicationPending {
		return nil, ErrAlreadyProcessed
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	result := &ModerationResult{Application: app, MaxTeams: settings.MaxTeams}

	if decision == DecisionReject {
		if err := s.appRepo.UpdateStatus(ctx, app.ID, models.ApplicationRejected); err != nil {
			return nil, err
		}
		app.Status = models.ApplicationRejected
		s.logger.Info("application rejected", slog.Int("application_id", app.ID))
		return result, nil
	}

	approved, err := s.tournamentRepo.ApproveWithinCapacity(ctx, app.ID, settings.MaxTeams)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrCapacityExhausted):
			return nil, ErrCapacityExceeded
		case errors.Is(err, repositories.ErrApplicationNotPending):
			return nil, ErrAlreadyProcessed
		case errors.Is(err, repositories.ErrApplicationNotFound):
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	app.Status = models.ApplicationApproved
	result.ApprovedCount = approved
	s.logger.Info("application approved",
		slog.Int("application_id", app.ID),
		slog.Int("approved_count", approved),
		slog.Int("max_teams", settings.MaxTeams),
	)

	if approved == settings.MaxTeams && settings.Stage == models.StageRegistration {
		if err := s.autoStartLocked(ctx); err != nil {
			// Заявка уже одобрена и останется одобренной; авто-старт можно
			// повторить вручную через Start.
			s.logger.Error("auto-start failed after filling capacity", slog.Any("error", err))
			return result, nil
		}
		result.AutoStarted = true
	}
	return result, nil
}

// autoStartLocked generates the bracket and flips the stage in one store
// transaction, so started=true is never observable with a partial bracket.
func (s *AdmissionService) autoStartLocked(ctx context.Context) error {
	teams, err := s.appRepo.ListByStatus(ctx, models.ApplicationApproved)
	if err != nil {
		return fmt.Errorf("failed to load approved teams: %w", err)
	}
	assignments, err := s.generator.Generate(teams)
	if err != nil {
		return fmt.Errorf("failed to generate bracket: %w", err)
	}
	if err := s.tournamentRepo.StartWithBracket(ctx, assignments); err != nil {
		return fmt.Errorf("failed to commit auto-start: %w", err)
	}
	s.logger.Info("tournament auto-started",
		slog.Int("teams", len(teams)),
		slog.Int("groups", brackets.GroupCount(len(teams))),
	)
	return nil
}
