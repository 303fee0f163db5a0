package leaderboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads submissions for aggregation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a leaderboard repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Rows returns every submission of an event with its display name.
func (r *Repository) Rows(ctx context.Context, eventID uuid.UUID) ([]Row, error) {
	const q = `SELECT s.submitter_email, COALESCE(t.name, reg.full_name, s.submitter_email),
			s.team_id, s.score, s.status, s.submitted_at
		FROM submissions s
		LEFT JOIN teams t ON t.id = s.team_id
		LEFT JOIN registrations reg ON reg.event_id = s.event_id AND reg.email = s.submitter_email
		WHERE s.event_id = $1`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.SubmitterEmail, &row.Name, &row.TeamID, &row.Score, &row.Status, &row.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
