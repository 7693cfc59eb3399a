package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aldiyarbek/tournament-bot/models"
)

var ErrSettingsNotFound = errors.New("tournament settings row not found")

// SettingsRepository работает с единственной строкой настроек (id = 1).
type SettingsRepository interface {
	Get(ctx context.Context) (*models.TournamentSettings, error)
	EnsureDefaults(ctx context.Context, maxTeams, teamSize int, channel *string) error
	UpdateMaxTeams(ctx context.Context, maxTeams int) error
	UpdateTeamSize(ctx context.Context, teamSize int) error
	UpdateChannel(ctx context.Context, channel *string) error
}

type postgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) SettingsRepository {
	return &postgresSettingsRepository{db: db}
}

func (r *postgresSettingsRepository) Get(ctx context.Context) (*models.TournamentSettings, error) {
	query := `
		SELECT max_teams, team_size, channel_username, tournament_started, tournament_stage
		FROM tournament_settings WHERE id = 1`

	settings := &models.TournamentSettings{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&settings.MaxTeams,
		&settings.TeamSize,
		&settings.Channel,
		&settings.Started,
		&settings.Stage,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to load tournament settings: %w", err)
	}
	return settings, nil
}

func (r *postgresSettingsRepository) EnsureDefaults(ctx context.Context, maxTeams, teamSize int, channel *string) error {
	query := `
		INSERT INTO tournament_settings (id, max_teams, team_size, channel_username)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, maxTeams, teamSize, channel); err != nil {
		return fmt.Errorf("failed to seed tournament settings: %w", err)
	}
	return nil
}

func (r *postgresSettingsRepository) updateColumn(ctx context.Context, query string, value interface{}) error {
	result, err := r.db.ExecContext(ctx, query, value)
	if err != nil {
		return fmt.Errorf("failed to update tournament settings: %w", err)
	}
	return checkAffectedRows(result, ErrSettingsNotFound)
}

func (r *postgresSettingsRepository) UpdateMaxTeams(ctx context.Context, maxTeams int) error {
	return r.updateColumn(ctx, `UPDATE tournament_settings SET max_teams = $1 WHERE id = 1`, maxTeams)
}

func (r *postgresSettingsRepository) UpdateTeamSize(ctx context.Context, teamSize int) error {
	return r.updateColumn(ctx, `UPDATE tournament_settings SET team_size = $1 WHERE id = 1`, teamSize)
}

func (r *postgresSettingsRepository) UpdateChannel(ctx context.Context, channel *string) error {
	return r.updateColumn(ctx, `UPDATE tournament_settings SET channel_username = $1 WHERE id = 1`, channel)
}
