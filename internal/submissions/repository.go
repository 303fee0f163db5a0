package submissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/database"
)

// Repository handles submission and review persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a submissions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const submissionColumns = `id, event_id, round_id, submitter_email, user_id, team_id, title, description,
	repo_url, demo_url, artifact_key, status, score, submitted_at, updated_at`

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var s models.Submission
	err := row.Scan(&s.ID, &s.EventID, &s.RoundID, &s.SubmitterEmail, &s.UserID, &s.TeamID, &s.Title, &s.Description,
		&s.RepoURL, &s.DemoURL, &s.ArtifactKey, &s.Status, &s.Score, &s.SubmittedAt, &s.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func collect(rows pgx.Rows) ([]models.Submission, error) {
	defer rows.Close()
	list := []models.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// Upsert creates the submission for (event, round, submitter) or replaces its content
// while it is still editable. A locked existing submission returns ErrSubmissionLocked.
func (r *Repository) Upsert(ctx context.Context, s *models.Submission) error {
	const q = `INSERT INTO submissions (event_id, round_id, submitter_email, user_id, team_id, title, description,
			repo_url, demo_url, artifact_key, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT ON CONSTRAINT submissions_identity_key DO UPDATE SET
			user_id = EXCLUDED.user_id, team_id = EXCLUDED.team_id, title = EXCLUDED.title,
			description = EXCLUDED.description, repo_url = EXCLUDED.repo_url, demo_url = EXCLUDED.demo_url,
			artifact_key = EXCLUDED.artifact_key, status = EXCLUDED.status,
			submitted_at = EXCLUDED.submitted_at, updated_at = NOW()
		WHERE submissions.status IN ('submitted', 'late')
		RETURNING ` + submissionColumns
	got, err := scanSubmission(r.pool.QueryRow(ctx, q, s.EventID, s.RoundID, s.SubmitterEmail, s.UserID, s.TeamID,
		s.Title, s.Description, s.RepoURL, s.DemoURL, s.ArtifactKey, s.Status, s.SubmittedAt))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrSubmissionLocked
		}
		return fmt.Errorf("upsert submission: %w", err)
	}
	*s = *got
	return nil
}

// GetByID returns a submission by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
}

// ListByEvent returns submissions of an event in submission order, optionally for one round.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, roundID *uuid.UUID) ([]models.Submission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+submissionColumns+` FROM submissions
		WHERE event_id = $1 AND ($2::uuid IS NULL OR round_id = $2) ORDER BY submitted_at, id`, eventID, roundID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListBySubmitter returns one identity's submissions for an event.
func (r *Repository) ListBySubmitter(ctx context.Context, eventID uuid.UUID, email string) ([]models.Submission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+submissionColumns+` FROM submissions
		WHERE event_id = $1 AND submitter_email = $2 ORDER BY submitted_at`, eventID, email)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// UpsertReview stores a judge's review and recomputes the submission score as the mean of all reviews.
// The status becomes reviewed unless a decision was already made.
func (r *Repository) UpsertReview(ctx context.Context, rv *models.Review) (*models.Submission, error) {
	var out *models.Submission
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const upsert = `INSERT INTO reviews (submission_id, judge_id, score, feedback)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (submission_id, judge_id) DO UPDATE SET score = EXCLUDED.score,
				feedback = EXCLUDED.feedback, updated_at = NOW()
			RETURNING created_at, updated_at`
		if err := tx.QueryRow(ctx, upsert, rv.SubmissionID, rv.JudgeID, rv.Score, rv.Feedback).
			Scan(&rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return fmt.Errorf("upsert review: %w", err)
		}
		const rescore = `UPDATE submissions SET
				score = (SELECT AVG(score) FROM reviews WHERE submission_id = $1),
				status = CASE WHEN status IN ('approved', 'rejected') THEN status ELSE 'reviewed' END,
				updated_at = NOW()
			WHERE id = $1 RETURNING ` + submissionColumns
		s, err := scanSubmission(tx.QueryRow(ctx, rescore, rv.SubmissionID))
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListReviews returns the reviews of a submission.
func (r *Repository) ListReviews(ctx context.Context, submissionID uuid.UUID) ([]models.Review, error) {
	rows, err := r.pool.Query(ctx, `SELECT submission_id, judge_id, score, feedback, created_at, updated_at
		FROM reviews WHERE submission_id = $1 ORDER BY created_at`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Review{}
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.SubmissionID, &rv.JudgeID, &rv.Score, &rv.Feedback, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, rv)
	}
	return list, rows.Err()
}

// SetStatus records the organizer's decision.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.SubmissionStatus) (*models.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx, `UPDATE submissions SET status = $1, updated_at = NOW()
		WHERE id = $2 RETURNING `+submissionColumns, status, id))
}

// Delete removes a submission and its reviews.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
