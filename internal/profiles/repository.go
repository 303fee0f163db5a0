package profiles

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/database"
)

// Repository handles profile persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a profiles repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the user's profile. Users who never saved one get empty settings.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const q = `SELECT u.id, u.full_name, u.email,
			COALESCE(p.bio, ''), COALESCE(p.organization, ''), COALESCE(p.github_url, ''),
			COALESCE(p.linkedin_url, ''), COALESCE(p.skills, '{}'), COALESCE(p.updated_at, u.updated_at)
		FROM users u LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1`
	var p models.Profile
	err := r.pool.QueryRow(ctx, q, userID).Scan(&p.UserID, &p.FullName, &p.Email,
		&p.Bio, &p.Organization, &p.GithubURL, &p.LinkedinURL, &p.Skills, &p.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Save writes the profile and the user's display name in one transaction.
func (r *Repository) Save(ctx context.Context, p *models.Profile) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET full_name = $2, updated_at = NOW() WHERE id = $1`, p.UserID, p.FullName)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		const q = `INSERT INTO profiles (user_id, bio, organization, github_url, linkedin_url, skills, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (user_id) DO UPDATE SET bio = EXCLUDED.bio, organization = EXCLUDED.organization,
				github_url = EXCLUDED.github_url, linkedin_url = EXCLUDED.linkedin_url,
				skills = EXCLUDED.skills, updated_at = NOW()
			RETURNING updated_at`
		return tx.QueryRow(ctx, q, p.UserID, p.Bio, p.Organization, p.GithubURL, p.LinkedinURL, p.Skills).Scan(&p.UpdatedAt)
	})
}
