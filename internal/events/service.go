package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackhub/backend/internal/models"
)

var (
	ErrInvalidTimeline   = errors.New("invalid timeline: registration must open before it closes, both before the end; start before end before results")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRoundDeadline     = errors.New("round deadline must fall between event start and results")
	ErrInvalidTeamSize   = errors.New("max_team_size must be at least 1")
)

// transitions lists the allowed next statuses. Completed and cancelled are terminal.
var transitions = map[models.EventStatus][]models.EventStatus{
	models.EventDraft:     {models.EventPublished, models.EventCancelled},
	models.EventPublished: {models.EventDraft, models.EventOngoing, models.EventCancelled},
	models.EventOngoing:   {models.EventCompleted, models.EventCancelled},
}

// CanTransition reports whether an event may move from one status to another.
func CanTransition(from, to models.EventStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTimeline checks the milestone ordering.
func ValidateTimeline(t models.Timeline) error {
	if t.RegistrationOpensAt.After(t.RegistrationClosesAt) ||
		t.RegistrationClosesAt.After(t.EndsAt) ||
		t.StartsAt.After(t.EndsAt) ||
		t.EndsAt.After(t.ResultsAt) {
		return ErrInvalidTimeline
	}
	return nil
}

// validateRound requires the deadline inside [starts_at, results_at].
func validateRound(t models.Timeline, rd models.Round) error {
	if rd.SubmissionDeadline.Before(t.StartsAt) || rd.SubmissionDeadline.After(t.ResultsAt) {
		return ErrRoundDeadline
	}
	return nil
}

// Store is the persistence the event service needs.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, f ListFilter) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.EventStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateRound(ctx context.Context, rd *models.Round) error
	UpdateRound(ctx context.Context, rd *models.Round) error
	DeleteRound(ctx context.Context, eventID, roundID uuid.UUID) error
	Stats(ctx context.Context, eventID uuid.UUID) (*models.EventStats, error)
}

// Service applies event business rules over a Store.
type Service struct {
	store Store
}

// NewService creates an event service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates and stores a new draft event.
func (s *Service) Create(ctx context.Context, e *models.Event) error {
	if err := ValidateTimeline(e.Timeline); err != nil {
		return err
	}
	if e.MaxTeamSize < 1 {
		return ErrInvalidTeamSize
	}
	next := 1
	for i := range e.Rounds {
		if err := validateRound(e.Timeline, e.Rounds[i]); err != nil {
			return err
		}
		if e.Rounds[i].Position >= next {
			next = e.Rounds[i].Position + 1
		}
	}
	for i := range e.Rounds {
		if e.Rounds[i].Position == 0 {
			e.Rounds[i].Position = next
			next++
		}
	}
	if e.Currency == "" {
		e.Currency = "USD"
	}
	e.Currency = strings.ToUpper(e.Currency)
	e.Status = models.EventDraft
	return s.store.Create(ctx, e)
}

// Get returns an event with rounds.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return s.store.GetByID(ctx, id)
}

// List returns events matching f.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Event, error) {
	return s.store.List(ctx, f)
}

// Update re-validates and stores an edited event. Existing rounds must still
// fit the timeline.
func (s *Service) Update(ctx context.Context, e *models.Event) error {
	if err := ValidateTimeline(e.Timeline); err != nil {
		return err
	}
	for _, rd := range e.Rounds {
		if err := validateRound(e.Timeline, rd); err != nil {
			return err
		}
	}
	if e.MaxTeamSize < 1 {
		return ErrInvalidTeamSize
	}
	e.Currency = strings.ToUpper(e.Currency)
	return s.store.Update(ctx, e)
}

// SetStatus applies a lifecycle transition.
func (s *Service) SetStatus(ctx context.Context, e *models.Event, to models.EventStatus) error {
	if !to.Valid() || !CanTransition(e.Status, to) {
		return ErrInvalidTransition
	}
	if err := s.store.UpdateStatus(ctx, e.ID, e.Status, to); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return ErrInvalidTransition
		}
		return err
	}
	e.Status = to
	return nil
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

// AddRound appends a round to e. Position defaults to after the last round.
func (s *Service) AddRound(ctx context.Context, e *models.Event, rd *models.Round) error {
	if err := validateRound(e.Timeline, *rd); err != nil {
		return err
	}
	if rd.Position == 0 {
		rd.Position = 1
		for _, existing := range e.Rounds {
			if existing.Position >= rd.Position {
				rd.Position = existing.Position + 1
			}
		}
	}
	rd.EventID = e.ID
	return s.store.CreateRound(ctx, rd)
}

// UpdateRound edits a round of e. Stored submission statuses are not recomputed.
func (s *Service) UpdateRound(ctx context.Context, e *models.Event, rd *models.Round) error {
	if err := validateRound(e.Timeline, *rd); err != nil {
		return err
	}
	rd.EventID = e.ID
	return s.store.UpdateRound(ctx, rd)
}

// DeleteRound removes a round of e.
func (s *Service) DeleteRound(ctx context.Context, e *models.Event, roundID uuid.UUID) error {
	return s.store.DeleteRound(ctx, e.ID, roundID)
}

// Stats returns dashboard counts.
func (s *Service) Stats(ctx context.Context, eventID uuid.UUID) (*models.EventStats, error) {
	return s.store.Stats(ctx, eventID)
}

// RegistrationOpen reports whether e accepts registrations at now.
func RegistrationOpen(e *models.Event, now time.Time) bool {
	return e.Status.Open() &&
		!now.Before(e.Timeline.RegistrationOpensAt) &&
		!now.After(e.Timeline.RegistrationClosesAt)
}
