package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aldiyarbek/tournament-bot/models"
	"github.com/lib/pq"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrApplicationConflict = errors.New("application conflict: applicant already has an active application")
)

type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id int) (*models.Application, error)
	FindByUser(ctx context.Context, userID int64) (*models.Application, error)
	UpdateStatus(ctx context.Context, id int, status models.ApplicationStatus) error
	DeleteByUserAndStatus(ctx context.Context, userID int64, status models.ApplicationStatus) error
	ListByStatus(ctx context.Context, status models.ApplicationStatus) ([]*models.Application, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Application, error)
	ListBracket(ctx context.Context) ([]*models.Application, error)
	ListRecipients(ctx context.Context, audience models.BroadcastAudience) ([]int64, error)
	CountByStatus(ctx context.Context, status models.ApplicationStatus) (int, error)
	GetStats(ctx context.Context) (*models.Stats, error)
}

type postgresApplicationRepository struct {
	db *sql.DB
}

func NewPostgresApplicationRepository(db *sql.DB) ApplicationRepository {
	return &postgresApplicationRepository{db: db}
}

const applicationColumns = `id, user_id, username, full_name, team_name, team_members, contact, status, tournament_group, tournament_position, created_at`

func (r *postgresApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (user_id, username, full_name, team_name, team_members, contact, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		app.UserID,
		app.Username,
		app.FullName,
		app.TeamName,
		joinRoster(app.Members),
		app.Contact,
		app.Status,
	).Scan(&app.ID, &app.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			// Частичный уникальный индекс: одна не-отклонённая заявка на пользователя.
			return ErrApplicationConflict
		}
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func scanApplication(rowScanner interface {
	Scan(dest ...interface{}) error
}, app *models.Application) error {
	var rawMembers string
	err := rowScanner.Scan(
		&app.ID,
		&app.UserID,
		&app.Username,
		&app.FullName,
		&app.TeamName,
		&rawMembers,
		&app.Contact,
		&app.Status,
		&app.Group,
		&app.Position,
		&app.CreatedAt,
	)
	if err != nil {
		return err
	}
	app.Members = splitRoster(rawMembers)
	return nil
}

func (r *postgresApplicationRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Application, error) {
	app := &models.Application{}
	row := r.db.QueryRowContext(ctx, query, args...)
	if err := scanApplication(row, app); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return app, nil
}

func (r *postgresApplicationRepository) FindByID(ctx context.Context, id int) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1`, applicationColumns)
	return r.findOne(ctx, query, id)
}

func (r *postgresApplicationRepository) FindByUser(ctx context.Context, userID int64) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, applicationColumns)
	return r.findOne(ctx, query, userID)
}

func (r *postgresApplicationRepository) UpdateStatus(ctx context.Context, id int, status models.ApplicationStatus) error {
	query := `UPDATE applications SET status = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update application status: %w", err)
	}
	return checkAffectedRows(result, ErrApplicationNotFound)
}

func (r *postgresApplicationRepository) DeleteByUserAndStatus(ctx context.Context, userID int64, status models.ApplicationStatus) error {
	query := `DELETE FROM applications WHERE user_id = $1 AND status = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, status); err != nil {
		return fmt.Errorf("failed to delete applications for user %d: %w", userID, err)
	}
	return nil
}

func (r *postgresApplicationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	applications := make([]*models.Application, 0)
	for rows.Next() {
		app := &models.Application{}
		if err := scanApplication(rows, app); err != nil {
			return nil, fmt.Errorf("failed to scan application row: %w", err)
		}
		applications = append(applications, app)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating application rows: %w", err)
	}
	return applications, nil
}

func (r *postgresApplicationRepository) ListByStatus(ctx context.Context, status models.ApplicationStatus) ([]*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE status = $1 ORDER BY id`, applicationColumns)
	return r.list(ctx, query, status)
}

func (r *postgresApplicationRepository) ListRecent(ctx context.Context, limit int) ([]*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications ORDER BY created_at DESC LIMIT $1`, applicationColumns)
	return r.list(ctx, query, limit)
}

func (r *postgresApplicationRepository) ListBracket(ctx context.Context) ([]*models.Application, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM applications
		WHERE status = 'approved' AND tournament_group IS NOT NULL
		ORDER BY tournament_group, tournament_position`, applicationColumns)
	return r.list(ctx, query)
}

func (r *postgresApplicationRepository) ListRecipients(ctx context.Context, audience models.BroadcastAudience) ([]int64, error) {
	query := `SELECT DISTINCT user_id FROM applications`
	args := []interface{}{}
	switch audience {
	case models.AudienceApproved:
		query += ` WHERE status = $1`
		args = append(args, models.ApplicationApproved)
	case models.AudiencePending:
		query += ` WHERE status = $1`
		args = append(args, models.ApplicationPending)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list broadcast recipients: %w", err)
	}
	defer rows.Close()

	recipients := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan recipient row: %w", err)
		}
		recipients = append(recipients, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipient rows: %w", err)
	}
	return recipients, nil
}

func (r *postgresApplicationRepository) CountByStatus(ctx context.Context, status models.ApplicationStatus) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM applications WHERE status = $1`
	if err := r.db.QueryRowContext(ctx, query, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return count, nil
}

func (r *postgresApplicationRepository) GetStats(ctx context.Context) (*models.Stats, error) {
	query := `SELECT status, COUNT(*) FROM applications GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load application stats: %w", err)
	}
	defer rows.Close()

	stats := &models.Stats{}
	for rows.Next() {
		var status models.ApplicationStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		switch status {
		case models.ApplicationPending:
			stats.Pending = count
		case models.ApplicationApproved:
			stats.Approved = count
		case models.ApplicationRejected:
			stats.Rejected = count
		}
		stats.Total += count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats rows: %w", err)
	}
	return stats, nil
}
