package export

import (
	"time"

	"github.com/hackhub/backend/internal/models"
)

// Header is the column layout shared by the CSV and Sheets exports.
var Header = []string{"registration_id", "event_id", "full_name", "email", "team", "team_role", "registered_at"}

// Row flattens a registration into export columns.
func Row(reg models.Registration) []string {
	team, role := "", "solo"
	if reg.Team != nil {
		team = reg.Team.Name
		role = "member"
		if models.NormalizeEmail(reg.Team.CreatorEmail) == models.NormalizeEmail(reg.Email) {
			role = "leader"
		}
	}
	return []string{
		reg.ID.String(),
		reg.EventID.String(),
		reg.FullName,
		reg.Email,
		team,
		role,
		reg.CreatedAt.UTC().Format(time.RFC3339),
	}
}
