package certificates

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/database"
)

// Repository handles certificate persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a certificates repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const certificateColumns = `id, event_id, submission_id, recipient_email, recipient_name, code, status, file_key, issued_at, created_at`

func scanCertificate(row pgx.Row) (*models.Certificate, error) {
	var c models.Certificate
	err := row.Scan(&c.ID, &c.EventID, &c.SubmissionID, &c.RecipientEmail, &c.RecipientName, &c.Code,
		&c.Status, &c.FileKey, &c.IssuedAt, &c.CreatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func collect(rows pgx.Rows) ([]models.Certificate, error) {
	defer rows.Close()
	list := []models.Certificate{}
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// Candidates returns every (submission, recipient) pair of an event in submission order.
// Team submissions expand to every team member; the submitter comes first.
func (r *Repository) Candidates(ctx context.Context, eventID uuid.UUID) ([]Candidate, error) {
	const q = `SELECT s.id, s.status, s.score, s.submitted_at,
			COALESCE(reg.email, s.submitter_email), COALESCE(reg.full_name, s.submitter_email)
		FROM submissions s
		LEFT JOIN registrations reg ON reg.event_id = s.event_id
			AND (reg.email = s.submitter_email OR (s.team_id IS NOT NULL AND reg.team_id = s.team_id))
		WHERE s.event_id = $1
		ORDER BY s.submitted_at, s.id, (reg.email = s.submitter_email) DESC, reg.created_at`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.SubmissionID, &c.Status, &c.Score, &c.SubmittedAt, &c.Email, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertIfAbsent creates the certificate unless the recipient already has one for the event.
// It reports whether a row was created. A code collision returns models.ErrConflict.
func (r *Repository) InsertIfAbsent(ctx context.Context, c *models.Certificate) (bool, error) {
	const q = `INSERT INTO certificates (event_id, submission_id, recipient_email, recipient_name, code)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT certificates_event_recipient_key DO NOTHING
		RETURNING ` + certificateColumns
	got, err := scanCertificate(r.pool.QueryRow(ctx, q, c.EventID, c.SubmissionID, c.RecipientEmail, c.RecipientName, c.Code))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		if database.IsUniqueViolation(err) {
			return false, models.ErrConflict
		}
		return false, err
	}
	*c = *got
	return true, nil
}

// GetByID returns a certificate by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Certificate, error) {
	return scanCertificate(r.pool.QueryRow(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE id = $1`, id))
}

// Verification is the public view of a certificate looked up by code.
type Verification struct {
	Code          string                   `json:"code"`
	RecipientName string                   `json:"recipient_name"`
	EventID       uuid.UUID                `json:"event_id"`
	EventTitle    string                   `json:"event_title"`
	Status        models.CertificateStatus `json:"status"`
	IssuedAt      *time.Time               `json:"issued_at,omitempty"`
}

// Verify looks up a certificate by its verification code.
func (r *Repository) Verify(ctx context.Context, code string) (*Verification, error) {
	const q = `SELECT c.code, c.recipient_name, c.event_id, e.title, c.status, c.issued_at
		FROM certificates c JOIN events e ON e.id = c.event_id WHERE c.code = $1`
	var v Verification
	err := r.pool.QueryRow(ctx, q, code).Scan(&v.Code, &v.RecipientName, &v.EventID, &v.EventTitle, &v.Status, &v.IssuedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// ListByEvent returns an event's certificates.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Certificate, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE event_id = $1 ORDER BY created_at`, eventID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByEmail returns certificates addressed to email across events.
func (r *Repository) ListByEmail(ctx context.Context, email string) ([]models.Certificate, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE recipient_email = $1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// RenderData is what the render worker needs for one certificate.
type RenderData struct {
	Certificate     models.Certificate
	EventTitle      string
	EventEndsAt     time.Time
	SubmissionTitle string
}

// GetRenderData loads a certificate with its event and submission titles.
func (r *Repository) GetRenderData(ctx context.Context, id uuid.UUID) (*RenderData, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &RenderData{Certificate: *c}
	const q = `SELECT e.title, e.ends_at, COALESCE((SELECT title FROM submissions WHERE id = $2), '')
		FROM events e WHERE e.id = $1`
	if err := r.pool.QueryRow(ctx, q, c.EventID, c.SubmissionID).Scan(&d.EventTitle, &d.EventEndsAt, &d.SubmissionTitle); err != nil {
		if database.IsNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// MarkIssued records the rendered file and flips the certificate to issued.
func (r *Repository) MarkIssued(ctx context.Context, id uuid.UUID, fileKey string, issuedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE certificates SET status = 'issued', file_key = $2, issued_at = $3 WHERE id = $1`,
		id, fileKey, issuedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
