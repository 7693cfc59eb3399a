package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Import postgres driver
)

func Connect(dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	return db, nil
}

// Migrate приводит схему к актуальному виду. Все выражения идемпотентны,
// поэтому миграцию безопасно гонять на каждом старте.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS applications (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			username TEXT,
			full_name TEXT NOT NULL,
			team_name TEXT NOT NULL,
			team_members TEXT NOT NULL DEFAULT '',
			contact TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			tournament_group INT,
			tournament_position INT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		// Одна живая заявка на пользователя; отклонённые место не занимают.
		`CREATE UNIQUE INDEX IF NOT EXISTS applications_active_user_idx
			ON applications (user_id) WHERE status <> 'rejected'`,
		`CREATE TABLE IF NOT EXISTS tournament_settings (
			id INT PRIMARY KEY,
			max_teams INT NOT NULL,
			team_size INT NOT NULL,
			channel_username TEXT,
			tournament_started BOOLEAN NOT NULL DEFAULT FALSE,
			tournament_stage TEXT NOT NULL DEFAULT 'registration'
		)`,
		`CREATE TABLE IF NOT EXISTS admins (
			user_id BIGINT PRIMARY KEY,
			username TEXT,
			added_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
