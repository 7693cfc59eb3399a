package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aldiyarbek/tournament-bot/brackets"
	"github.com/aldiyarbek/tournament-bot/models"
)

var (
	ErrApplicationNotPending = errors.New("application is not pending")
	ErrCapacityExhausted     = errors.New("approved team capacity exhausted")
)

// TournamentRepository содержит составные операции, которые должны
// фиксироваться одной транзакцией: условное одобрение под лимитом,
// запись сетки вместе с переключением стадии и полный сброс.
type TournamentRepository interface {
	// ApproveWithinCapacity flips a pending application to approved only if
	// the approved count stays under maxTeams, and returns the approved count
	// after the flip. The capacity check here is the authoritative one.
	ApproveWithinCapacity(ctx context.Context, applicationID, maxTeams int) (int, error)

	// StartWithBracket writes the partition and marks the tournament started
	// in one transaction, so a started tournament always has a full bracket.
	StartWithBracket(ctx context.Context, assignments []brackets.Assignment) error

	// RewriteBracket replaces all group/position assignments without
	// touching the stage. Used for admin regeneration after start.
	RewriteBracket(ctx context.Context, assignments []brackets.Assignment) error

	// Reset clears every assignment and returns the tournament to the
	// registration stage in one transaction.
	Reset(ctx context.Context) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) ApproveWithinCapacity(ctx context.Context, applicationID, maxTeams int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin approval transaction: %w", err)
	}
	defer tx.Rollback()

	var status models.ApplicationStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM applications WHERE id = $1 FOR UPDATE`, applicationID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrApplicationNotFound
		}
		return 0, fmt.Errorf("failed to lock application %d: %w", applicationID, err)
	}
	if status != models.ApplicationPending {
		return 0, ErrApplicationNotPending
	}

	var approved int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications WHERE status = $1`, models.ApplicationApproved).Scan(&approved)
	if err != nil {
		return 0, fmt.Errorf("failed to count approved applications: %w", err)
	}
	if approved >= maxTeams {
		return approved, ErrCapacityExhausted
	}

	if _, err = tx.ExecContext(ctx, `UPDATE applications SET status = $1 WHERE id = $2`, models.ApplicationApproved, applicationID); err != nil {
		return 0, fmt.Errorf("failed to approve application %d: %w", applicationID, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit approval: %w", err)
	}
	return approved + 1, nil
}

func writeAssignments(ctx context.Context, exec SQLExecutor, assignments []brackets.Assignment) error {
	if _, err := exec.ExecContext(ctx, `UPDATE applications SET tournament_group = NULL, tournament_position = NULL`); err != nil {
		return fmt.Errorf("failed to clear previous bracket: %w", err)
	}
	for _, a := range assignments {
		result, err := exec.ExecContext(ctx,
			`UPDATE applications SET tournament_group = $1, tournament_position = $2 WHERE id = $3`,
			a.Group, a.Position, a.ApplicationID,
		)
		if err != nil {
			return fmt.Errorf("failed to assign application %d: %w", a.ApplicationID, err)
		}
		if err := checkAffectedRows(result, ErrApplicationNotFound); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresTournamentRepository) StartWithBracket(ctx context.Context, assignments []brackets.Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := writeAssignments(ctx, tx, assignments); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE tournament_settings SET tournament_started = TRUE, tournament_stage = $1 WHERE id = 1`,
		models.StageGroupStage,
	); err != nil {
		return fmt.Errorf("failed to mark tournament started: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tournament start: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) RewriteBracket(ctx context.Context, assignments []brackets.Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin bracket rewrite transaction: %w", err)
	}
	defer tx.Rollback()

	if err := writeAssignments(ctx, tx, assignments); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bracket rewrite: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE applications SET tournament_group = NULL, tournament_position = NULL`); err != nil {
		return fmt.Errorf("failed to clear bracket assignments: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE tournament_settings SET tournament_started = FALSE, tournament_stage = $1 WHERE id = 1`,
		models.StageRegistration,
	); err != nil {
		return fmt.Errorf("failed to reset tournament stage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tournament reset: %w", err)
	}
	return nil
}
