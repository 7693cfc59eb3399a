package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aldiyarbek/tournament-bot/models"
	"github.com/aldiyarbek/tournament-bot/repositories"
)

// AdminService — реестр админов с одним неснимаемым главным админом.
type AdminService struct {
	repo      repositories.AdminRepository
	primaryID int64
	logger    *slog.Logger
}

func NewAdminService(repo repositories.AdminRepository, primaryID int64, logger *slog.Logger) *AdminService {
	return &AdminService{
		repo:      repo,
		primaryID: primaryID,
		logger:    logger,
	}
}

// Bootstrap guarantees the primary admin row exists. Called once at startup;
// after it the admin set is never empty.
func (s *AdminService) Bootstrap(ctx context.Context) error {
	admin := &models.Admin{UserID: s.primaryID}
	if err := s.repo.Upsert(ctx, admin); err != nil {
		return fmt.Errorf("failed to bootstrap primary admin: %w", err)
	}
	return nil
}

func (s *AdminService) IsPrimary(userID int64) bool {
	return userID == s.primaryID
}

func (s *AdminService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.repo.Exists(ctx, userID)
}

func (s *AdminService) List(ctx context.Context) ([]*models.Admin, error) {
	return s.repo.List(ctx)
}

// RequireAdmin — общий гейт для мутирующих операций.
func (s *AdminService) RequireAdmin(ctx context.Context, userID int64) error {
	ok, err := s.repo.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check admin rights: %w", err)
	}
	if !ok {
		s.logger.Warn("permission denied", slog.Int64("user_id", userID))
		return ErrPermissionDenied
	}
	return nil
}

func (s *AdminService) AddAdmin(ctx context.Context, actorID, newAdminID int64, username *string) (*models.Admin, error) {
	if err := s.RequireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	admin := &models.Admin{UserID: newAdminID, Username: username}
	if err := s.repo.Create(ctx, admin); err != nil {
		if errors.Is(err, repositories.ErrAdminConflict) {
			return nil, ErrAdminExists
		}
		return nil, err
	}
	s.logger.Info("admin added",
		slog.Int64("actor_id", actorID),
		slog.Int64("admin_id", newAdminID),
	)
	return admin, nil
}

func (s *AdminService) RemoveAdmin(ctx context.Context, actorID, targetID int64) error {
	if !s.IsPrimary(actorID) {
		s.logger.Warn("non-primary admin attempted removal",
			slog.Int64("actor_id", actorID),
			slog.Int64("target_id", targetID),
		)
		return ErrPrimaryAdminOnly
	}
	if s.IsPrimary(targetID) {
		return ErrCannotRemovePrimary
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count <= 1 {
		return ErrLastAdmin
	}

	if err := s.repo.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			return ErrAdminNotFound
		}
		return err
	}
	s.logger.Info("admin removed",
		slog.Int64("actor_id", actorID),
		slog.Int64("admin_id", targetID),
	)
	return nil
}
