package invites

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/registrations"
	"github.com/hackhub/backend/pkg/database"
)

// Repository handles invite persistence and redemption.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invites repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const inviteColumns = `id, kind, code, event_id, team_id, email, created_by, status, expires_at, used_by, used_at, created_at`

func scanInvite(row pgx.Row) (*models.Invite, error) {
	var inv models.Invite
	err := row.Scan(&inv.ID, &inv.Kind, &inv.Code, &inv.EventID, &inv.TeamID, &inv.Email, &inv.CreatedBy,
		&inv.Status, &inv.ExpiresAt, &inv.UsedBy, &inv.UsedAt, &inv.CreatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// Create inserts an invite. A code collision returns models.ErrConflict.
func (r *Repository) Create(ctx context.Context, inv *models.Invite) error {
	const q = `INSERT INTO invites (kind, code, event_id, team_id, email, created_by, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, inv.Kind, inv.Code, inv.EventID, inv.TeamID, inv.Email, inv.CreatedBy, inv.Status, inv.ExpiresAt).
		Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.ErrConflict
		}
		return err
	}
	return nil
}

// GetByCode returns an invite by its code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*models.Invite, error) {
	return scanInvite(r.pool.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invites WHERE code = $1`, code))
}

// ListByEvent returns all invites of an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Invite, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+inviteColumns+` FROM invites WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *inv)
	}
	return list, rows.Err()
}

// MarkExpired flips an active invite to expired.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE invites SET status = 'expired' WHERE id = $1 AND status = 'active'`, id)
	return err
}

// Revoke flips an active invite to revoked. It returns models.ErrConflict when the invite is no longer active.
func (r *Repository) Revoke(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invites SET status = 'revoked' WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	return nil
}

// claim marks the invite used only if it is still active and unexpired at now.
func claim(ctx context.Context, tx pgx.Tx, inviteID, userID uuid.UUID, now time.Time) error {
	const q = `UPDATE invites SET status = 'used', used_by = $2, used_at = $3
		WHERE id = $1 AND status = 'active' AND expires_at > $3`
	tag, err := tx.Exec(ctx, q, inviteID, userID, now)
	if err != nil {
		return fmt.Errorf("claim invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInviteUsed
	}
	return nil
}

// RedeemTeam claims the invite and registers reg into the invite's team in one transaction.
func (r *Repository) RedeemTeam(ctx context.Context, inv *models.Invite, reg *models.Registration, now time.Time) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := claim(ctx, tx, inv.ID, reg.UserID, now); err != nil {
			return err
		}
		reg.TeamID = inv.TeamID
		return registrations.JoinTeamTx(ctx, tx, reg)
	})
}

// RedeemJudge claims the invite and assigns userID as a judge of the event.
func (r *Repository) RedeemJudge(ctx context.Context, inv *models.Invite, userID uuid.UUID, now time.Time) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := claim(ctx, tx, inv.ID, userID, now); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO judge_assignments (event_id, user_id) VALUES ($1, $2)
			ON CONFLICT (event_id, user_id) DO NOTHING`, inv.EventID, userID)
		if err != nil {
			return fmt.Errorf("assign judge: %w", err)
		}
		return nil
	})
}
