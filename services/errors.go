package services

import "errors"

// Общие ошибки сервисного слоя и их маппинг в HTTP живут в handlers.
var (
	// Бизнес-правила приёма заявок
	ErrTournamentStarted    = errors.New("registration is closed: tournament already started")
	ErrDuplicateApplication = errors.New("applicant already has an active application")
	ErrCapacityReached      = errors.New("registration is closed: team limit reached")
	ErrCapacityExceeded     = errors.New("team limit was reached before this approval")
	ErrAlreadyProcessed     = errors.New("application has already been processed")
	ErrApplicationNotFound  = errors.New("application not found")

	// Управление турниром
	ErrNotEnoughTeams       = errors.New("at least 2 approved teams are required")
	ErrTournamentNotStarted = errors.New("tournament has not started")

	// Настройки
	ErrInvalidMaxTeams = errors.New("max teams must be at least 2")
	ErrInvalidTeamSize = errors.New("team size must be at least 1")
	ErrInvalidChannel  = errors.New("channel username must start with @")

	// Реестр админов
	ErrAdminExists         = errors.New("user is already an admin")
	ErrAdminNotFound       = errors.New("admin not found")
	ErrCannotRemovePrimary = errors.New("cannot remove the primary admin")
	ErrLastAdmin           = errors.New("cannot remove the last admin")

	// Доступ
	ErrPermissionDenied = errors.New("operation not allowed for this user")
	ErrPrimaryAdminOnly = errors.New("only the primary admin can perform this action")

	// Аутентификация админского API
	ErrAuthInvalidCredentials = errors.New("invalid admin id or api key")

	// Рассылка
	ErrNoRecipients = errors.New("broadcast has no recipients")
)
