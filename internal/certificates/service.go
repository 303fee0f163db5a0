package certificates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/queue"
	"github.com/hackhub/backend/pkg/utils"
)

// CodeLength is the length of certificate verification codes.
const CodeLength = 12

var (
	ErrForbidden          = errors.New("not allowed to access this certificate")
	ErrNotIssued          = errors.New("certificate has not been issued yet")
	ErrStorageUnavailable = errors.New("object storage is not configured")
)

// Candidate is one (submission, recipient) pair considered for a certificate.
type Candidate struct {
	SubmissionID uuid.UUID
	Status       models.SubmissionStatus
	Score        *float64
	SubmittedAt  time.Time
	Email        string
	Name         string
}

// Eligible reports whether a submission earns its recipients a certificate.
func Eligible(status models.SubmissionStatus, score *float64) bool {
	switch status {
	case models.SubmissionApproved, models.SubmissionReviewed:
		return true
	case models.SubmissionSubmitted:
		return score != nil
	}
	return false
}

// EligibleRecipients filters candidates to eligible ones and keeps the first per email.
// Candidates must already be in submitted_at order.
func EligibleRecipients(candidates []Candidate) []Candidate {
	seen := make(map[string]bool, len(candidates))
	var out []Candidate
	for _, c := range candidates {
		if !Eligible(c.Status, c.Score) {
			continue
		}
		email := models.NormalizeEmail(c.Email)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		c.Email = email
		out = append(out, c)
	}
	return out
}

// Store is the certificate persistence the service needs.
type Store interface {
	Candidates(ctx context.Context, eventID uuid.UUID) ([]Candidate, error)
	InsertIfAbsent(ctx context.Context, c *models.Certificate) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Certificate, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Certificate, error)
	ListByEmail(ctx context.Context, email string) ([]models.Certificate, error)
	Verify(ctx context.Context, code string) (*Verification, error)
}

// Enqueuer schedules certificate rendering.
type Enqueuer interface {
	EnqueueCertificateRender(ctx context.Context, payload queue.CertificateRenderPayload) error
}

// EventGetter loads events.
type EventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Storage presigns certificate downloads.
type Storage interface {
	GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	CertificatesBucket() string
	PresignExpire() time.Duration
}

// GenerateResult summarizes a generation run.
type GenerateResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// DownloadURL is a presigned certificate download.
type DownloadURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service issues certificates.
type Service struct {
	store   Store
	events  EventGetter
	jobs    Enqueuer
	storage Storage
	newCode func() (string, error)
	now     func() time.Time
	logger  *zap.Logger
}

// NewService creates a certificates service. storage may be nil when S3 is not configured.
func NewService(store Store, events EventGetter, jobs Enqueuer, storage Storage, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		events:  events,
		jobs:    jobs,
		storage: storage,
		newCode: func() (string, error) { return utils.RandomCode(CodeLength) },
		now:     time.Now,
		logger:  logger,
	}
}

// Generate creates certificates for every eligible recipient of an event that does not have one yet.
// Running it again only fills in recipients that became eligible since.
func (s *Service) Generate(ctx context.Context, eventID uuid.UUID) (*GenerateResult, error) {
	candidates, err := s.store.Candidates(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	res := &GenerateResult{}
	enqueued := map[uuid.UUID]bool{}
	for _, c := range EligibleRecipients(candidates) {
		subID := c.SubmissionID
		cert := &models.Certificate{
			EventID:        eventID,
			SubmissionID:   &subID,
			RecipientEmail: c.Email,
			RecipientName:  c.Name,
		}
		created, err := s.insert(ctx, cert)
		if err != nil {
			return nil, err
		}
		if !created {
			res.Skipped++
			continue
		}
		res.Created++
		s.enqueue(ctx, cert)
		enqueued[cert.ID] = true
	}
	// Pending certificates from earlier runs whose render job was lost get another one.
	existing, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	for i := range existing {
		if existing[i].Status == models.CertificatePending && !enqueued[existing[i].ID] {
			s.enqueue(ctx, &existing[i])
		}
	}
	s.logger.Info("certificates generated",
		zap.String("event_id", eventID.String()), zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
	return res, nil
}

func (s *Service) enqueue(ctx context.Context, cert *models.Certificate) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.EnqueueCertificateRender(ctx, queue.CertificateRenderPayload{CertificateID: cert.ID, EventID: cert.EventID}); err != nil {
		s.logger.Error("enqueue certificate render failed", zap.Error(err), zap.String("certificate_id", cert.ID.String()))
	}
}

func (s *Service) insert(ctx context.Context, cert *models.Certificate) (bool, error) {
	for attempt := 0; attempt < 3; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return false, err
		}
		cert.Code = code
		created, err := s.store.InsertIfAbsent(ctx, cert)
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		return created, err
	}
	return false, fmt.Errorf("certificate code collision after retries")
}

// ListByEvent returns an event's certificates.
func (s *Service) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Certificate, error) {
	return s.store.ListByEvent(ctx, eventID)
}

// Mine returns the caller's certificates.
func (s *Service) Mine(ctx context.Context, email string) ([]models.Certificate, error) {
	return s.store.ListByEmail(ctx, models.NormalizeEmail(email))
}

// Verify looks up a certificate by code.
func (s *Service) Verify(ctx context.Context, code string) (*Verification, error) {
	return s.store.Verify(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// DownloadURL presigns the rendered certificate for its recipient or the event organizer.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID, userID uuid.UUID, email string) (*DownloadURL, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	cert, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cert.RecipientEmail != models.NormalizeEmail(email) {
		e, err := s.events.GetByID(ctx, cert.EventID)
		if err != nil {
			return nil, err
		}
		if e.OrganizerID != userID {
			return nil, ErrForbidden
		}
	}
	if cert.Status != models.CertificateIssued || cert.FileKey == "" {
		return nil, ErrNotIssued
	}
	expires := s.storage.PresignExpire()
	url, err := s.storage.GeneratePresignedDownloadURL(ctx, s.storage.CertificatesBucket(), cert.FileKey, expires)
	if err != nil {
		return nil, err
	}
	return &DownloadURL{URL: url, ExpiresAt: s.now().Add(expires)}, nil
}
