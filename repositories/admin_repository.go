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
	ErrAdminNotFound = errors.New("admin not found")
	ErrAdminConflict = errors.New("admin conflict: user is already an admin")
)

type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	Upsert(ctx context.Context, admin *models.Admin) error
	Delete(ctx context.Context, userID int64) error
	Exists(ctx context.Context, userID int64) (bool, error)
	List(ctx context.Context) ([]*models.Admin, error)
	Count(ctx context.Context) (int, error)
}

type postgresAdminRepository struct {
	db *sql.DB
}

func NewPostgresAdminRepository(db *sql.DB) AdminRepository {
	return &postgresAdminRepository{db: db}
}

func (r *postgresAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	query := `INSERT INTO admins (user_id, username) VALUES ($1, $2) RETURNING added_at`
	err := r.db.QueryRowContext(ctx, query, admin.UserID, admin.Username).Scan(&admin.AddedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrAdminConflict
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

// Upsert используется при старте процесса для главного админа.
func (r *postgresAdminRepository) Upsert(ctx context.Context, admin *models.Admin) error {
	query := `
		INSERT INTO admins (user_id, username) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET username = COALESCE(EXCLUDED.username, admins.username)
		RETURNING added_at`
	if err := r.db.QueryRowContext(ctx, query, admin.UserID, admin.Username).Scan(&admin.AddedAt); err != nil {
		return fmt.Errorf("failed to upsert admin: %w", err)
	}
	return nil
}

func (r *postgresAdminRepository) Delete(ctx context.Context, userID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete admin: %w", err)
	}
	return checkAffectedRows(result, ErrAdminNotFound)
}

func (r *postgresAdminRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM admins WHERE user_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check admin existence: %w", err)
	}
	return exists, nil
}

func (r *postgresAdminRepository) List(ctx context.Context) ([]*models.Admin, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, username, added_at FROM admins ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	admins := make([]*models.Admin, 0)
	for rows.Next() {
		admin := &models.Admin{}
		if err := rows.Scan(&admin.UserID, &admin.Username, &admin.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan admin row: %w", err)
		}
		admins = append(admins, admin)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin rows: %w", err)
	}
	return admins, nil
}

func (r *postgresAdminRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}
