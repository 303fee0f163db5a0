package registrations

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackhub/backend/internal/events"
	"github.com/hackhub/backend/internal/models"
)

// CanSubmit reports whether the registrant may submit: solo registrants always,
// team members only when they created the team.
func CanSubmit(reg *models.Registration) bool {
	if !reg.IsTeam() {
		return true
	}
	return reg.Team != nil && models.NormalizeEmail(reg.Email) == models.NormalizeEmail(reg.Team.CreatorEmail)
}

// Store is the persistence the registration service needs.
type Store interface {
	Register(ctx context.Context, reg *models.Registration, teamName string) error
	GetByEventAndEmail(ctx context.Context, eventID uuid.UUID, email string) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error)
	Delete(ctx context.Context, eventID, registrationID uuid.UUID) error
}

// Registrant identifies who is registering.
type Registrant struct {
	UserID   uuid.UUID
	Email    string
	FullName string
}

// Service applies registration rules.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a registration service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Register enrolls who in e, optionally founding a team.
func (s *Service) Register(ctx context.Context, e *models.Event, who Registrant, teamName string) (*models.Registration, error) {
	if !events.RegistrationOpen(e, s.now()) {
		return nil, ErrRegistrationClosed
	}
	reg := &models.Registration{
		EventID:  e.ID,
		UserID:   who.UserID,
		Email:    models.NormalizeEmail(who.Email),
		FullName: strings.TrimSpace(who.FullName),
	}
	if err := s.store.Register(ctx, reg, strings.TrimSpace(teamName)); err != nil {
		return nil, err
	}
	return reg, nil
}

// Mine returns the caller's registration for an event.
func (s *Service) Mine(ctx context.Context, eventID uuid.UUID, email string) (*models.Registration, error) {
	reg, err := s.store.GetByEventAndEmail(ctx, eventID, models.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// ListByEvent returns all registrations of an event.
func (s *Service) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	return s.store.ListByEvent(ctx, eventID)
}

// ListByUser returns the caller's registrations.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error) {
	return s.store.ListByUser(ctx, userID)
}

// Delete removes a registration.
func (s *Service) Delete(ctx context.Context, eventID, registrationID uuid.UUID) error {
	return s.store.Delete(ctx, eventID, registrationID)
}
