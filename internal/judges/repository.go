package judges

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackhub/backend/internal/models"
)

// Repository handles judge assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a judges repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByEvent returns the judges of an event with user details.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.JudgeAssignment, error) {
	const q = `SELECT ja.event_id, ja.user_id, u.email, u.full_name, ja.assigned_at
		FROM judge_assignments ja
		INNER JOIN users u ON u.id = ja.user_id
		WHERE ja.event_id = $1
		ORDER BY ja.assigned_at ASC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.JudgeAssignment{}
	for rows.Next() {
		var a models.JudgeAssignment
		if err := rows.Scan(&a.EventID, &a.UserID, &a.Email, &a.FullName, &a.AssignedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// IsJudge reports whether userID is assigned to judge eventID.
func (r *Repository) IsJudge(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM judge_assignments WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID).Scan(&ok)
	return ok, err
}

// Delete removes a judge assignment.
func (r *Repository) Delete(ctx context.Context, eventID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM judge_assignments WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// JudgedEvent is an event the caller is assigned to judge.
type JudgedEvent struct {
	EventID    uuid.UUID          `json:"event_id"`
	Title      string             `json:"title"`
	Status     models.EventStatus `json:"status"`
	AssignedAt time.Time          `json:"assigned_at"`
}

// ListForUser returns the events userID judges, most recent assignment first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]JudgedEvent, error) {
	const q = `SELECT e.id, e.title, e.status, ja.assigned_at
		FROM judge_assignments ja
		INNER JOIN events e ON e.id = ja.event_id
		WHERE ja.user_id = $1
		ORDER BY ja.assigned_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []JudgedEvent{}
	for rows.Next() {
		var j JudgedEvent
		if err := rows.Scan(&j.EventID, &j.Title, &j.Status, &j.AssignedAt); err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}
