package registrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/database"
)

var (
	ErrAlreadyRegistered  = errors.New("already registered for this event")
	ErrEventFull          = errors.New("event is at capacity")
	ErrTeamNameTaken      = errors.New("team name already taken for this event")
	ErrTeamFull           = errors.New("team is full")
	ErrRegistrationClosed = errors.New("registration is not open")
	ErrNotRegistered      = errors.New("not registered for this event")
)

// Repository handles registration and team persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const registrationSelect = `SELECT r.id, r.event_id, r.user_id, r.email, r.full_name, r.team_id, r.created_at,
		t.name, t.creator_email, t.creator_user_id, t.created_at,
		COALESCE((SELECT array_agg(m.email ORDER BY m.created_at) FROM registrations m WHERE m.team_id = t.id), '{}')
	FROM registrations r LEFT JOIN teams t ON t.id = r.team_id`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var (
		reg         models.Registration
		teamName    *string
		creatorMail *string
		creatorID   *uuid.UUID
		teamCreated *time.Time
		members     []string
	)
	err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Email, &reg.FullName, &reg.TeamID, &reg.CreatedAt,
		&teamName, &creatorMail, &creatorID, &teamCreated, &members)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if reg.TeamID != nil && teamName != nil {
		reg.Team = &models.Team{
			ID:            *reg.TeamID,
			EventID:       reg.EventID,
			Name:          *teamName,
			CreatorEmail:  *creatorMail,
			CreatorUserID: *creatorID,
			Members:       members,
			CreatedAt:     *teamCreated,
		}
	}
	return &reg, nil
}

func collect(rows pgx.Rows) ([]models.Registration, error) {
	defer rows.Close()
	list := []models.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *reg)
	}
	return list, rows.Err()
}

// Register inserts a registration, creating its team and team channel when teamName is set.
// The event row is locked so the capacity check and insert are atomic.
func (r *Repository) Register(ctx context.Context, reg *models.Registration, teamName string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockCapacity(ctx, tx, reg.EventID); err != nil {
			return err
		}
		if teamName != "" {
			team := &models.Team{EventID: reg.EventID, Name: teamName, CreatorEmail: reg.Email, CreatorUserID: reg.UserID}
			if err := insertTeam(ctx, tx, team); err != nil {
				return err
			}
			reg.TeamID = &team.ID
			reg.Team = team
		}
		if err := insertRegistration(ctx, tx, reg); err != nil {
			return err
		}
		if reg.Team != nil {
			reg.Team.Members = []string{reg.Email}
		}
		return nil
	})
}

// JoinTeamTx registers reg as a member of reg.TeamID inside an existing transaction,
// enforcing event capacity and the event's max team size.
func JoinTeamTx(ctx context.Context, tx pgx.Tx, reg *models.Registration) error {
	if reg.TeamID == nil {
		return fmt.Errorf("join team: missing team id")
	}
	if err := lockCapacity(ctx, tx, reg.EventID); err != nil {
		return err
	}
	const q = `SELECT e.max_team_size, (SELECT COUNT(*) FROM registrations WHERE team_id = t.id)
		FROM teams t JOIN events e ON e.id = t.event_id
		WHERE t.id = $1 AND t.event_id = $2 FOR UPDATE OF t`
	var maxSize, size int
	if err := tx.QueryRow(ctx, q, *reg.TeamID, reg.EventID).Scan(&maxSize, &size); err != nil {
		if database.IsNoRows(err) {
			return models.ErrNotFound
		}
		return fmt.Errorf("lock team: %w", err)
	}
	if size >= maxSize {
		return ErrTeamFull
	}
	return insertRegistration(ctx, tx, reg)
}

func lockCapacity(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) error {
	var capacity, count int
	err := tx.QueryRow(ctx, `SELECT capacity FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&capacity)
	if err != nil {
		if database.IsNoRows(err) {
			return models.ErrNotFound
		}
		return fmt.Errorf("lock event: %w", err)
	}
	if capacity == 0 {
		return nil
	}
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&count); err != nil {
		return fmt.Errorf("count registrations: %w", err)
	}
	if count >= capacity {
		return ErrEventFull
	}
	return nil
}

func insertTeam(ctx context.Context, tx pgx.Tx, t *models.Team) error {
	const q = `INSERT INTO teams (event_id, name, creator_email, creator_user_id)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	if err := tx.QueryRow(ctx, q, t.EventID, t.Name, t.CreatorEmail, t.CreatorUserID).Scan(&t.ID, &t.CreatedAt); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrTeamNameTaken
		}
		return fmt.Errorf("insert team: %w", err)
	}
	_, err := tx.Exec(ctx, `INSERT INTO channels (event_id, type, name, team_id) VALUES ($1, $2, $3, $4)`,
		t.EventID, models.ChannelTeam, "Team "+t.Name, t.ID)
	if err != nil {
		return fmt.Errorf("insert team channel: %w", err)
	}
	return nil
}

func insertRegistration(ctx context.Context, tx pgx.Tx, reg *models.Registration) error {
	const q = `INSERT INTO registrations (event_id, user_id, email, full_name, team_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := tx.QueryRow(ctx, q, reg.EventID, reg.UserID, reg.Email, reg.FullName, reg.TeamID).Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		if database.ConstraintName(err) == "registrations_event_email_key" {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// GetByEventAndEmail returns the registration of email for an event.
func (r *Repository) GetByEventAndEmail(ctx context.Context, eventID uuid.UUID, email string) (*models.Registration, error) {
	return scanRegistration(r.pool.QueryRow(ctx, registrationSelect+` WHERE r.event_id = $1 AND r.email = $2`, eventID, email))
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	return scanRegistration(r.pool.QueryRow(ctx, registrationSelect+` WHERE r.id = $1`, id))
}

// ListByEvent returns all registrations of an event, oldest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx, registrationSelect+` WHERE r.event_id = $1 ORDER BY r.created_at`, eventID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByUser returns the caller's registrations across events.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx, registrationSelect+` WHERE r.user_id = $1 ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// GetTeam returns a team with member emails.
func (r *Repository) GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	const q = `SELECT t.id, t.event_id, t.name, t.creator_email, t.creator_user_id, t.created_at,
		COALESCE((SELECT array_agg(m.email ORDER BY m.created_at) FROM registrations m WHERE m.team_id = t.id), '{}')
		FROM teams t WHERE t.id = $1`
	var t models.Team
	err := r.pool.QueryRow(ctx, q, teamID).Scan(&t.ID, &t.EventID, &t.Name, &t.CreatorEmail, &t.CreatorUserID, &t.CreatedAt, &t.Members)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Delete removes a registration of an event.
func (r *Repository) Delete(ctx context.Context, eventID, registrationID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM registrations WHERE id = $1 AND event_id = $2`, registrationID, eventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
