package services

import (
	"fmt"
	"strings"

	"github.com/aldiyarbek/tournament-bot/models"
)

// FormatBracket renders the bracket as chat text, group by group.
func FormatBracket(view *BracketView) string {
	if view == nil || len(view.Groups) == 0 {
		return "Сетка пока не сформирована."
	}

	var b strings.Builder
	b.WriteString("🏆 ТУРНИРНАЯ СЕТКА\n")
	for _, group := range view.Groups {
		fmt.Fprintf(&b, "\nГруппа %d:\n", group.Number)
		for _, team := range group.Teams {
			fmt.Fprintf(&b, "  %d. %s (капитан: %s)\n", team.Position, team.TeamName, team.Captain)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatApplicantStatus renders the /status reply for the applicant.
func FormatApplicantStatus(app *models.Application) string {
	var b strings.Builder
	b.WriteString("📋 Ваша заявка\n\n")
	fmt.Fprintf(&b, "Команда: %s\n", app.TeamName)
	fmt.Fprintf(&b, "Капитан: %s\n", app.FullName)

	switch app.Status {
	case models.ApplicationPending:
		b.WriteString("Статус: ⏳ на модерации")
	case models.ApplicationApproved:
		b.WriteString("Статус: ✅ одобрена")
		if app.Placed() {
			fmt.Fprintf(&b, "\nГруппа: %d, позиция: %d", *app.Group, *app.Position)
		}
	case models.ApplicationRejected:
		b.WriteString("Статус: ❌ отклонена\nВы можете подать заявку повторно.")
	}
	return b.String()
}

// FormatGroup renders one bracket group for the applicant's my-group reply.
func FormatGroup(group *BracketGroup, app *models.Application) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👥 Ваша группа: %d\n\n", group.Number)
	for _, team := range group.Teams {
		marker := ""
		if team.ApplicationID == app.ID {
			marker = " ← вы"
		}
		fmt.Fprintf(&b, "%d. %s%s\n", team.Position, team.TeamName, marker)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatApprovalNotice(app *models.Application) string {
	return fmt.Sprintf(
		"✅ Ваша заявка одобрена!\n\nКоманда «%s» допущена к турниру.\nСледите за анонсами.",
		app.TeamName,
	)
}

func formatRejectionNotice(app *models.Application) string {
	return fmt.Sprintf(
		"❌ Ваша заявка отклонена.\n\nКоманда «%s» не прошла модерацию.\nВы можете подать заявку повторно.",
		app.TeamName,
	)
}

func formatAutoStartAnnouncement(approvedCount, maxTeams int) string {
	return fmt.Sprintf(
		"🎉 ТУРНИР НАЧАЛСЯ АВТОМАТИЧЕСКИ!\n\nНабрано %d/%d команд, сетка сформирована.",
		approvedCount, maxTeams,
	)
}
