package models

import "time"

// ApplicationStatus представляет статусы заявки, соответствующие ENUM в БД.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application представляет заявку команды на участие в турнире.
type Application struct {
	ID        int               `json:"id" db:"id"`
	UserID    int64             `json:"user_id" db:"user_id"`
	Username  *string           `json:"username,omitempty" db:"username"`
	FullName  string            `json:"full_name" db:"full_name"`
	TeamName  string            `json:"team_name" db:"team_name"`
	Members   []string          `json:"team_members" db:"team_members"`
	Contact   string            `json:"contact" db:"contact"`
	Status    ApplicationStatus `json:"status" db:"status"`
	Group     *int              `json:"tournament_group,omitempty" db:"tournament_group"`
	Position  *int              `json:"tournament_position,omitempty" db:"tournament_position"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// Placed reports whether the application has a bracket slot assigned.
// Group and Position are always set or cleared together.
func (a *Application) Placed() bool {
	return a.Group != nil && a.Position != nil
}
