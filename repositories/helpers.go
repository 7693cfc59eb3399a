package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLExecutor покрывает *sql.DB и *sql.Tx, чтобы методы репозиториев могли
// работать и внутри транзакций.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

const rosterSeparator = ", "

// Состав хранится одной текстовой колонкой, как в исходной схеме.

func joinRoster(members []string) string {
	return strings.Join(members, rosterSeparator)
}

func splitRoster(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	members := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			members = append(members, trimmed)
		}
	}
	return members
}
