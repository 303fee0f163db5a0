package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/database"
)

// Repository handles event and round persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, organizer_id, title, description, venue,
	registration_opens_at, registration_closes_at, starts_at, ends_at, results_at,
	capacity, fee_cents, currency, max_team_size, status, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	t := &e.Timeline
	err := row.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.Venue,
		&t.RegistrationOpensAt, &t.RegistrationClosesAt, &t.StartsAt, &t.EndsAt, &t.ResultsAt,
		&e.Capacity, &e.FeeCents, &e.Currency, &e.MaxTeamSize, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// defaultChannels are created with every event.
var defaultChannels = []struct {
	typ  models.ChannelType
	name string
}{
	{models.ChannelAnnouncements, "Announcements"},
	{models.ChannelGeneral, "General"},
	{models.ChannelJudges, "Judges"},
}

// Create inserts the event, its rounds and default channels in one transaction.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `INSERT INTO events (organizer_id, title, description, venue,
			registration_opens_at, registration_closes_at, starts_at, ends_at, results_at,
			capacity, fee_cents, currency, max_team_size, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id, created_at, updated_at`
		t := e.Timeline
		err := tx.QueryRow(ctx, q, e.OrganizerID, e.Title, e.Description, e.Venue,
			t.RegistrationOpensAt, t.RegistrationClosesAt, t.StartsAt, t.EndsAt, t.ResultsAt,
			e.Capacity, e.FeeCents, e.Currency, e.MaxTeamSize, e.Status).
			Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		for i := range e.Rounds {
			e.Rounds[i].EventID = e.ID
			if err := insertRound(ctx, tx, &e.Rounds[i]); err != nil {
				return err
			}
		}
		for _, ch := range defaultChannels {
			_, err := tx.Exec(ctx, `INSERT INTO channels (event_id, type, name) VALUES ($1, $2, $3)`,
				e.ID, ch.typ, ch.name)
			if err != nil {
				return fmt.Errorf("insert channel %s: %w", ch.typ, err)
			}
		}
		return nil
	})
}

func insertRound(ctx context.Context, tx pgx.Tx, rd *models.Round) error {
	const q = `INSERT INTO rounds (event_id, name, position, submission_deadline)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := tx.QueryRow(ctx, q, rd.EventID, rd.Name, rd.Position, rd.SubmissionDeadline).Scan(&rd.ID, &rd.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

// GetByID returns an event with its rounds ordered by position.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	e.Rounds, err = r.ListRounds(ctx, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListFilter narrows List. Nil fields are ignored.
type ListFilter struct {
	Status      *models.EventStatus
	OrganizerID *uuid.UUID
}

// List returns events, newest start first. Rounds are not loaded.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE ($1::text IS NULL OR status = $1)
		AND ($2::uuid IS NULL OR organizer_id = $2) ORDER BY starts_at DESC`
	rows, err := r.pool.Query(ctx, q, f.Status, f.OrganizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Update writes the editable event fields.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $1, description = $2, venue = $3,
		registration_opens_at = $4, registration_closes_at = $5, starts_at = $6, ends_at = $7, results_at = $8,
		capacity = $9, fee_cents = $10, currency = $11, max_team_size = $12, updated_at = NOW()
		WHERE id = $13 RETURNING updated_at`
	t := e.Timeline
	err := r.pool.QueryRow(ctx, q, e.Title, e.Description, e.Venue,
		t.RegistrationOpensAt, t.RegistrationClosesAt, t.StartsAt, t.EndsAt, t.ResultsAt,
		e.Capacity, e.FeeCents, e.Currency, e.MaxTeamSize, e.ID).Scan(&e.UpdatedAt)
	if database.IsNoRows(err) {
		return models.ErrNotFound
	}
	return err
}

// UpdateStatus moves the event from one status to another. It fails with ErrConflict
// when the stored status is no longer from.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.EventStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	return nil
}

// Delete removes an event and everything that cascades from it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListRounds returns the rounds of an event ordered by position.
func (r *Repository) ListRounds(ctx context.Context, eventID uuid.UUID) ([]models.Round, error) {
	const q = `SELECT id, event_id, name, position, submission_deadline, created_at
		FROM rounds WHERE event_id = $1 ORDER BY position`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Round{}
	for rows.Next() {
		var rd models.Round
		if err := rows.Scan(&rd.ID, &rd.EventID, &rd.Name, &rd.Position, &rd.SubmissionDeadline, &rd.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, rd)
	}
	return list, rows.Err()
}

// CreateRound adds a round. A duplicate position returns ErrConflict.
func (r *Repository) CreateRound(ctx context.Context, rd *models.Round) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return insertRound(ctx, tx, rd)
	})
}

// UpdateRound rewrites name, position and deadline of a round.
func (r *Repository) UpdateRound(ctx context.Context, rd *models.Round) error {
	const q = `UPDATE rounds SET name = $1, position = $2, submission_deadline = $3
		WHERE id = $4 AND event_id = $5`
	tag, err := r.pool.Exec(ctx, q, rd.Name, rd.Position, rd.SubmissionDeadline, rd.ID, rd.EventID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteRound removes a round and its submissions.
func (r *Repository) DeleteRound(ctx context.Context, eventID, roundID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rounds WHERE id = $1 AND event_id = $2`, roundID, eventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Stats returns the organizer dashboard counts for an event.
func (r *Repository) Stats(ctx context.Context, eventID uuid.UUID) (*models.EventStats, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM registrations WHERE event_id = $1),
		(SELECT COUNT(*) FROM teams WHERE event_id = $1),
		(SELECT COUNT(*) FROM judge_assignments WHERE event_id = $1),
		(SELECT COUNT(*) FROM certificates WHERE event_id = $1)`
	s := models.EventStats{SubmissionsByStatus: map[string]int{}}
	if err := r.pool.QueryRow(ctx, q, eventID).Scan(&s.Registrations, &s.Teams, &s.Judges, &s.Certificates); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM submissions WHERE event_id = $1 GROUP BY status`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		s.SubmissionsByStatus[status] = n
	}
	return &s, rows.Err()
}
