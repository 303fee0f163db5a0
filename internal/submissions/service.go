package submissions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/registrations"
	"github.com/hackhub/backend/pkg/storage"
)

var (
	ErrSubmissionLocked   = errors.New("submission already reviewed and can no longer be changed")
	ErrNotTeamLeader      = errors.New("only team leader can submit")
	ErrEventClosed        = errors.New("event is not accepting submissions")
	ErrRoundNotFound      = errors.New("round not found")
	ErrForbidden          = errors.New("not allowed to access this submission")
	ErrInvalidScore       = errors.New("score must be between 0 and 100")
	ErrInvalidDecision    = errors.New("decision must be approved or rejected")
	ErrInvalidArtifact    = errors.New("artifact must be pdf, zip, png, jpg, jpeg, mp4 or pptx up to 50MB")
	ErrInvalidURL         = errors.New("repo_url and demo_url must be http(s) URLs")
	ErrNoArtifact         = errors.New("submission has no artifact")
	ErrStorageUnavailable = errors.New("object storage is not configured")
)

// ClassifyLateness returns late when now is strictly after the deadline.
func ClassifyLateness(deadline, now time.Time) models.SubmissionStatus {
	if now.After(deadline) {
		return models.SubmissionLate
	}
	return models.SubmissionSubmitted
}

// Store is the submission persistence the service needs.
type Store interface {
	Upsert(ctx context.Context, s *models.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, roundID *uuid.UUID) ([]models.Submission, error)
	ListBySubmitter(ctx context.Context, eventID uuid.UUID, email string) ([]models.Submission, error)
	UpsertReview(ctx context.Context, rv *models.Review) (*models.Submission, error)
	ListReviews(ctx context.Context, submissionID uuid.UUID) ([]models.Review, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.SubmissionStatus) (*models.Submission, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventGetter loads events with rounds.
type EventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Registrations finds a caller's registration.
type Registrations interface {
	GetByEventAndEmail(ctx context.Context, eventID uuid.UUID, email string) (*models.Registration, error)
}

// Judges checks judge assignments.
type Judges interface {
	IsJudge(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
}

// Invalidator drops cached leaderboards after score changes.
type Invalidator interface {
	Invalidate(ctx context.Context, eventID uuid.UUID) error
}

// Storage presigns artifact uploads and downloads.
type Storage interface {
	GeneratePresignedUploadURL(ctx context.Context, bucket, key, contentType string, size int64, expires time.Duration) (string, error)
	GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	ArtifactsBucket() string
	PresignExpire() time.Duration
}

// Caller is the authenticated user.
type Caller struct {
	UserID uuid.UUID
	Email  string
}

// Input is the submitted content.
type Input struct {
	Title       string
	Description string
	RepoURL     string
	DemoURL     string
	ArtifactKey string
}

// UploadURL is a presigned artifact upload target.
type UploadURL struct {
	URL           string    `json:"url"`
	Key           string    `json:"key"`
	ContentType   string    `json:"content_type"`
	ContentLength int64     `json:"content_length"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Service enforces submission and review rules.
type Service struct {
	store   Store
	events  EventGetter
	regs    Registrations
	judges  Judges
	cache   Invalidator
	storage Storage
	now     func() time.Time
	logger  *zap.Logger
}

// NewService creates a submission service. storage may be nil when S3 is not configured.
func NewService(store Store, events EventGetter, regs Registrations, judges Judges, cache Invalidator, storage Storage, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, events: events, regs: regs, judges: judges, cache: cache, storage: storage, now: time.Now, logger: logger}
}

// submitter resolves the caller's registration and requires submit rights.
func (s *Service) submitter(ctx context.Context, e *models.Event, caller Caller) (*models.Registration, error) {
	if !e.Status.Open() {
		return nil, ErrEventClosed
	}
	reg, err := s.regs.GetByEventAndEmail(ctx, e.ID, models.NormalizeEmail(caller.Email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, registrations.ErrNotRegistered
		}
		return nil, err
	}
	if !registrations.CanSubmit(reg) {
		return nil, ErrNotTeamLeader
	}
	return reg, nil
}

// slot is the per-identity artifact folder: the team id, or the user id for solo entries.
func slot(reg *models.Registration) string {
	if reg.TeamID != nil {
		return reg.TeamID.String()
	}
	return reg.UserID.String()
}

func validURL(raw string) bool {
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Submit creates or replaces the caller's submission for a round.
func (s *Service) Submit(ctx context.Context, e *models.Event, roundID uuid.UUID, caller Caller, in Input) (*models.Submission, error) {
	round, ok := e.Round(roundID)
	if !ok {
		return nil, ErrRoundNotFound
	}
	reg, err := s.submitter(ctx, e, caller)
	if err != nil {
		return nil, err
	}
	if !validURL(in.RepoURL) || !validURL(in.DemoURL) {
		return nil, ErrInvalidURL
	}
	if in.ArtifactKey != "" && !storage.ArtifactKeyBelongs(in.ArtifactKey, e.ID.String(), roundID.String(), slot(reg)) {
		return nil, ErrInvalidArtifact
	}
	now := s.now()
	sub := &models.Submission{
		EventID:        e.ID,
		RoundID:        roundID,
		SubmitterEmail: reg.Email,
		UserID:         caller.UserID,
		TeamID:         reg.TeamID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		RepoURL:        in.RepoURL,
		DemoURL:        in.DemoURL,
		ArtifactKey:    in.ArtifactKey,
		Status:         ClassifyLateness(round.SubmissionDeadline, now),
		SubmittedAt:    now,
	}
	if err := s.store.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info("submission saved",
		zap.String("submission_id", sub.ID.String()),
		zap.String("round_id", roundID.String()),
		zap.String("status", string(sub.Status)))
	return sub, nil
}

// ArtifactUploadURL presigns an upload for the caller's round artifact.
func (s *Service) ArtifactUploadURL(ctx context.Context, e *models.Event, roundID uuid.UUID, caller Caller, filename string, size int64) (*UploadURL, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if _, ok := e.Round(roundID); !ok {
		return nil, ErrRoundNotFound
	}
	reg, err := s.submitter(ctx, e, caller)
	if err != nil {
		return nil, err
	}
	contentType, ok := storage.ArtifactContentType(filename)
	if !ok || size <= 0 || size > storage.MaxArtifactSize {
		return nil, ErrInvalidArtifact
	}
	now := s.now()
	key := storage.ArtifactKey(e.ID.String(), roundID.String(), slot(reg), filename, now)
	expires := s.storage.PresignExpire()
	u, err := s.storage.GeneratePresignedUploadURL(ctx, s.storage.ArtifactsBucket(), key, contentType, size, expires)
	if err != nil {
		return nil, fmt.Errorf("presign artifact: %w", err)
	}
	return &UploadURL{URL: u, Key: key, ContentType: contentType, ContentLength: size, ExpiresAt: now.Add(expires)}, nil
}

// access describes what the caller may do with an event's submissions.
type access struct {
	organizer bool
	judge     bool
}

func (s *Service) accessFor(ctx context.Context, eventID uuid.UUID, caller Caller) (*models.Event, access, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, access{}, err
	}
	a := access{organizer: e.OrganizerID == caller.UserID}
	if !a.organizer {
		a.judge, err = s.judges.IsJudge(ctx, eventID, caller.UserID)
		if err != nil {
			return nil, access{}, err
		}
	}
	return e, a, nil
}

// ownsSubmission reports whether the caller's registration is the submitting identity or on its team.
func (s *Service) ownsSubmission(ctx context.Context, sub *models.Submission, caller Caller) (bool, error) {
	reg, err := s.regs.GetByEventAndEmail(ctx, sub.EventID, models.NormalizeEmail(caller.Email))
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if reg.Email == sub.SubmitterEmail {
		return true, nil
	}
	return reg.TeamID != nil && sub.TeamID != nil && *reg.TeamID == *sub.TeamID, nil
}

// Get returns a submission visible to the caller.
func (s *Service) Get(ctx context.Context, id uuid.UUID, caller Caller) (*models.Submission, error) {
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_, a, err := s.accessFor(ctx, sub.EventID, caller)
	if err != nil {
		return nil, err
	}
	if a.organizer || a.judge {
		return sub, nil
	}
	owns, err := s.ownsSubmission(ctx, sub, caller)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, ErrForbidden
	}
	return sub, nil
}

// ListByEvent lists an event's submissions for its organizer and judges.
func (s *Service) ListByEvent(ctx context.Context, eventID uuid.UUID, roundID *uuid.UUID, caller Caller) ([]models.Submission, error) {
	_, a, err := s.accessFor(ctx, eventID, caller)
	if err != nil {
		return nil, err
	}
	if !a.organizer && !a.judge {
		return nil, ErrForbidden
	}
	return s.store.ListByEvent(ctx, eventID, roundID)
}

// Mine lists the submissions of the caller's identity (their team's leader for team members).
func (s *Service) Mine(ctx context.Context, eventID uuid.UUID, caller Caller) ([]models.Submission, error) {
	reg, err := s.regs.GetByEventAndEmail(ctx, eventID, models.NormalizeEmail(caller.Email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, registrations.ErrNotRegistered
		}
		return nil, err
	}
	email := reg.Email
	if reg.Team != nil {
		email = models.NormalizeEmail(reg.Team.CreatorEmail)
	}
	return s.store.ListBySubmitter(ctx, eventID, email)
}

// Review records an assigned judge's score.
func (s *Service) Review(ctx context.Context, id uuid.UUID, caller Caller, score float64, feedback string) (*models.Submission, error) {
	if score < 0 || score > 100 {
		return nil, ErrInvalidScore
	}
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	isJudge, err := s.judges.IsJudge(ctx, sub.EventID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if !isJudge {
		return nil, ErrForbidden
	}
	updated, err := s.store.UpsertReview(ctx, &models.Review{SubmissionID: id, JudgeID: caller.UserID, Score: score, Feedback: feedback})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, sub.EventID)
	return updated, nil
}

// Reviews lists reviews for the organizer and judges.
func (s *Service) Reviews(ctx context.Context, id uuid.UUID, caller Caller) ([]models.Review, error) {
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_, a, err := s.accessFor(ctx, sub.EventID, caller)
	if err != nil {
		return nil, err
	}
	if !a.organizer && !a.judge {
		return nil, ErrForbidden
	}
	return s.store.ListReviews(ctx, id)
}

// Decide approves or rejects a submission. Organizer only.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, caller Caller, status models.SubmissionStatus) (*models.Submission, error) {
	if status != models.SubmissionApproved && status != models.SubmissionRejected {
		return nil, ErrInvalidDecision
	}
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, a, err := s.accessFor(ctx, sub.EventID, caller); err != nil {
		return nil, err
	} else if !a.organizer {
		return nil, ErrForbidden
	}
	updated, err := s.store.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, sub.EventID)
	return updated, nil
}

// Delete removes a submission. Organizer only. The artifact object is removed best-effort.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, caller Caller) error {
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, a, err := s.accessFor(ctx, sub.EventID, caller); err != nil {
		return err
	} else if !a.organizer {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if sub.ArtifactKey != "" && s.storage != nil {
		if err := s.storage.DeleteObject(ctx, s.storage.ArtifactsBucket(), sub.ArtifactKey); err != nil {
			s.logger.Warn("delete artifact failed", zap.Error(err), zap.String("key", sub.ArtifactKey))
		}
	}
	s.invalidate(ctx, sub.EventID)
	return nil
}

// ArtifactDownloadURL presigns a download of the submission artifact.
func (s *Service) ArtifactDownloadURL(ctx context.Context, id uuid.UUID, caller Caller) (string, error) {
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}
	sub, err := s.Get(ctx, id, caller)
	if err != nil {
		return "", err
	}
	if sub.ArtifactKey == "" {
		return "", ErrNoArtifact
	}
	return s.storage.GeneratePresignedDownloadURL(ctx, s.storage.ArtifactsBucket(), sub.ArtifactKey, s.storage.PresignExpire())
}

func (s *Service) invalidate(ctx context.Context, eventID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		s.logger.Warn("leaderboard invalidation failed", zap.Error(err), zap.String("event_id", eventID.String()))
	}
}
