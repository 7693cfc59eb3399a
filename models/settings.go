package models

// TournamentStage представляет стадии турнира, соответствующие ENUM в БД.
type TournamentStage string

const (
	StageRegistration TournamentStage = "registration"
	StageGroupStage   TournamentStage = "group_stage"
)

// TournamentSettings — единственная строка настроек турнира (id=1).
// Инвариант: Started == true тогда и только тогда, когда Stage == group_stage.
type TournamentSettings struct {
	MaxTeams int             `json:"max_teams" db:"max_teams"`
	TeamSize int             `json:"team_size" db:"team_size"`
	Channel  *string         `json:"channel_username,omitempty" db:"channel_username"`
	Started  bool            `json:"tournament_started" db:"tournament_started"`
	Stage    TournamentStage `json:"tournament_stage" db:"tournament_stage"`
}

// SubscriptionRequired reports whether the subscription gate is configured.
func (s *TournamentSettings) SubscriptionRequired() bool {
	return s.Channel != nil && *s.Channel != ""
}
