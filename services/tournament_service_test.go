package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aldiyarbek/tournament-bot/models"
)

func approveTeams(t *testing.T, env *testEnv, n int) {
	t.Helper()
	for i := int64(1); int(i) <= n; i++ {
		app, err := env.submit(i, "Team")
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		if _, err := env.admissions.Moderate(context.Background(), app.ID, DecisionApprove, testPrimaryAdmin); err != nil {
			t.Fatalf("Moderate %d: %v", i, err)
		}
	}
}

func TestStartNotEnoughTeams(t *testing.T) {
	env := newTestEnv(8, 2)
	approveTeams(t, env, 1)

	if _, err := env.tournaments.Start(context.Background(), testPrimaryAdmin); !errors.Is(err, ErrNotEnoughTeams) {
		t.Errorf("got %v, want ErrNotEnoughTeams", err)
	}
}

func TestStartRequiresAdmin(t *testing.T) {
	env := newTestEnv(8, 2)
	approveTeams(t, env, 3)

	if _, err := env.tournaments.Start(context.Background(), 555); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("got %v, want ErrPermissionDenied", err)
	}
}

func TestStartBuildsBracket(t *testing.T) {
	env := newTestEnv(16, 2)
	approveTeams(t, env, 5)

	view, err := env.tournaments.Start(context.Background(), testPrimaryAdmin)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !view.Started || view.Stage != models.StageGroupStage {
		t.Errorf("view: started=%v stage=%q", view.Started, view.Stage)
	}
	if len(view.Groups) != 2 {
		t.Errorf("5 teams should land in 2 groups, got %d", len(view.Groups))
	}

	teams := 0
	for _, group := range view.Groups {
		teams += len(group.Teams)
	}
	if teams != 5 {
		t.Errorf("bracket holds %d teams, want 5", teams)
	}

	if _, err := env.tournaments.Start(context.Background(), testPrimaryAdmin); !errors.Is(err, ErrTournamentStarted) {
		t.Errorf("second Start: got %v, want ErrTournamentStarted", err)
	}
}

func TestResetReopensRegistration(t *testing.T) {
	env := newTestEnv(16, 2)
	approveTeams(t, env, 4)

	if _, err := env.tournaments.Start(context.Background(), testPrimaryAdmin); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := env.tournaments.Reset(context.Background(), testPrimaryAdmin); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	settings, err := env.tournaments.Settings(context.Background())
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.Started || settings.Stage != models.StageRegistration {
		t.Errorf("settings after reset: started=%v stage=%q", settings.Started, settings.Stage)
	}

	view, err := env.tournaments.Bracket(context.Background())
	if err != nil {
		t.Fatalf("Bracket: %v", err)
	}
	if len(view.Groups) != 0 {
		t.Errorf("bracket should be empty after reset, got %d groups", len(view.Groups))
	}

	// Регистрация снова открыта.
	if _, err := env.submit(50, "Newcomer"); err != nil {
		t.Errorf("Submit after reset: %v", err)
	}
}

func TestRegenerateRequiresStartedTournament(t *testing.T) {
	env := newTestEnv(16, 2)
	approveTeams(t, env, 4)

	if _, err := env.tournaments.Regenerate(context.Background(), testPrimaryAdmin); !errors.Is(err, ErrTournamentNotStarted) {
		t.Errorf("got %v, want ErrTournamentNotStarted", err)
	}

	if _, err := env.tournaments.Start(context.Background(), testPrimaryAdmin); err != nil {
		t.Fatalf("Start: %v", err)
	}
	view, err := env.tournaments.Regenerate(context.Background(), testPrimaryAdmin)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	teams := 0
	for _, group := range view.Groups {
		teams += len(group.Teams)
	}
	if teams != 4 {
		t.Errorf("regenerated bracket holds %d teams, want 4", teams)
	}
}

func TestApplicantGroup(t *testing.T) {
	env := newTestEnv(16, 2)
	approveTeams(t, env, 4)

	if _, _, err := env.tournaments.ApplicantGroup(context.Background(), 1); !errors.Is(err, ErrTournamentNotStarted) {
		t.Errorf("before start: got %v, want ErrTournamentNotStarted", err)
	}

	if _, err := env.tournaments.Start(context.Background(), testPrimaryAdmin); err != nil {
		t.Fatalf("Start: %v", err)
	}

	group, app, err := env.tournaments.ApplicantGroup(context.Background(), 1)
	if err != nil {
		t.Fatalf("ApplicantGroup: %v", err)
	}
	if app.UserID != 1 {
		t.Errorf("returned application for user %d", app.UserID)
	}
	found := false
	for _, slot := range group.Teams {
		if slot.ApplicationID == app.ID {
			found = true
		}
	}
	if !found {
		t.Error("applicant's team missing from its own group")
	}

	if _, _, err := env.tournaments.ApplicantGroup(context.Background(), 999); !errors.Is(err, ErrApplicationNotFound) {
		t.Errorf("unknown user: got %v, want ErrApplicationNotFound", err)
	}
}

func TestOverview(t *testing.T) {
	env := newTestEnv(16, 2)
	approveTeams(t, env, 2)
	if _, err := env.submit(10, "Pending"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	overview, err := env.tournaments.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if overview.Stats.Approved != 2 || overview.Stats.Pending != 1 || overview.Stats.Total != 3 {
		t.Errorf("stats = %+v", overview.Stats)
	}
	if overview.Settings.MaxTeams != 16 {
		t.Errorf("settings.MaxTeams = %d", overview.Settings.MaxTeams)
	}
}

func TestSettingsValidation(t *testing.T) {
	env := newTestEnv(16, 2)
	ctx := context.Background()

	if err := env.tournaments.SetMaxTeams(ctx, testPrimaryAdmin, 1); !errors.Is(err, ErrInvalidMaxTeams) {
		t.Errorf("SetMaxTeams(1): got %v, want ErrInvalidMaxTeams", err)
	}
	if err := env.tournaments.SetMaxTeams(ctx, testPrimaryAdmin, 8); err != nil {
		t.Errorf("SetMaxTeams(8): %v", err)
	}

	if err := env.tournaments.SetTeamSize(ctx, testPrimaryAdmin, 0); !errors.Is(err, ErrInvalidTeamSize) {
		t.Errorf("SetTeamSize(0): got %v, want ErrInvalidTeamSize", err)
	}

	if err := env.tournaments.SetChannel(ctx, testPrimaryAdmin, "no-at-sign"); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("SetChannel without @: got %v, want ErrInvalidChannel", err)
	}
	if err := env.tournaments.SetChannel(ctx, testPrimaryAdmin, "@tournaments"); err != nil {
		t.Errorf("SetChannel(@tournaments): %v", err)
	}

	settings, err := env.tournaments.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.MaxTeams != 8 || settings.Channel == nil || *settings.Channel != "@tournaments" {
		t.Errorf("settings = %+v", settings)
	}

	// "0" и пустая строка выключают проверку подписки.
	if err := env.tournaments.SetChannel(ctx, testPrimaryAdmin, "0"); err != nil {
		t.Fatalf("SetChannel(0): %v", err)
	}
	settings, _ = env.tournaments.Settings(ctx)
	if settings.Channel != nil {
		t.Errorf("channel should be disabled, got %q", *settings.Channel)
	}
}

func TestFormatBracket(t *testing.T) {
	view := &BracketView{
		Started: true,
		Stage:   models.StageGroupStage,
		Groups: []BracketGroup{
			{Number: 1, Teams: []BracketSlot{
				{Position: 1, ApplicationID: 1, TeamName: "Alpha", Captain: "Аян"},
				{Position: 2, ApplicationID: 2, TeamName: "Beta", Captain: "Дамир"},
			}},
		},
	}
	text := FormatBracket(view)
	for _, want := range []string{"Группа 1", "Alpha", "Beta", "Аян"} {
		if !strings.Contains(text, want) {
			t.Errorf("FormatBracket output missing %q:\n%s", want, text)
		}
	}

	if got := FormatBracket(&BracketView{}); !strings.Contains(got, "не сформирована") {
		t.Errorf("empty bracket text = %q", got)
	}
}
