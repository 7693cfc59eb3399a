package models

import "time"

type Admin struct {
	UserID   int64     `json:"user_id" db:"user_id"`
	Username *string   `json:"username,omitempty" db:"username"`
	AddedAt  time.Time `json:"added_at" db:"added_at"`
}
