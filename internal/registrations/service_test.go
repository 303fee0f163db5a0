package registrations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/models"
)

// fakeStore enforces the same uniqueness and capacity rules as the SQL repository.
type fakeStore struct {
	capacity int
	regs     []models.Registration
	teams    map[string]*models.Team
}

func newFakeStore(capacity int) *fakeStore {
	return &fakeStore{capacity: capacity, teams: map[string]*models.Team{}}
}

func (f *fakeStore) Register(_ context.Context, reg *models.Registration, teamName string) error {
	if f.capacity > 0 && len(f.regs) >= f.capacity {
		return ErrEventFull
	}
	for _, r := range f.regs {
		if r.EventID == reg.EventID && r.Email == reg.Email {
			return ErrAlreadyRegistered
		}
	}
	if teamName != "" {
		if _, ok := f.teams[teamName]; ok {
			return ErrTeamNameTaken
		}
		t := &models.Team{ID: uuid.New(), EventID: reg.EventID, Name: teamName, CreatorEmail: reg.Email, CreatorUserID: reg.UserID}
		f.teams[teamName] = t
		reg.TeamID = &t.ID
		reg.Team = t
	}
	reg.ID = uuid.New()
	f.regs = append(f.regs, *reg)
	return nil
}

func (f *fakeStore) GetByEventAndEmail(_ context.Context, eventID uuid.UUID, email string) (*models.Registration, error) {
	for _, r := range f.regs {
		if r.EventID == eventID && r.Email == email {
			r := r
			return &r, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) ListByEvent(_ context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	var out []models.Registration
	for _, r := range f.regs {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Registration, error) {
	var out []models.Registration
	for _, r := range f.regs {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, eventID, id uuid.UUID) error {
	for i, r := range f.regs {
		if r.ID == id && r.EventID == eventID {
			f.regs = append(f.regs[:i], f.regs[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func openEvent() *models.Event {
	return &models.Event{
		ID:     uuid.New(),
		Status: models.EventPublished,
		Timeline: models.Timeline{
			RegistrationOpensAt:  now.Add(-24 * time.Hour),
			RegistrationClosesAt: now.Add(24 * time.Hour),
			StartsAt:             now.Add(48 * time.Hour),
			EndsAt:               now.Add(72 * time.Hour),
			ResultsAt:            now.Add(96 * time.Hour),
		},
		MaxTeamSize: 3,
	}
}

func newTestService(capacity int) (*Service, *fakeStore) {
	store := newFakeStore(capacity)
	svc := NewService(store)
	svc.now = func() time.Time { return now }
	return svc, store
}

func TestRegisterUniquePerEventEmail(t *testing.T) {
	svc, _ := newTestService(0)
	ctx := context.Background()
	e := openEvent()

	reg, err := svc.Register(ctx, e, Registrant{UserID: uuid.New(), Email: " Ada@X.io ", FullName: "Ada"}, "")
	require.NoError(t, err)
	assert.Equal(t, "ada@x.io", reg.Email)

	_, err = svc.Register(ctx, e, Registrant{UserID: uuid.New(), Email: "ada@x.io", FullName: "Ada again"}, "")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	// same email, different event
	_, err = svc.Register(ctx, openEvent(), Registrant{UserID: uuid.New(), Email: "ada@x.io"}, "")
	assert.NoError(t, err)
}

func TestRegisterOutsideWindow(t *testing.T) {
	svc, _ := newTestService(0)
	e := openEvent()
	e.Timeline.RegistrationClosesAt = now.Add(-time.Minute)
	_, err := svc.Register(context.Background(), e, Registrant{Email: "a@x.io"}, "")
	assert.ErrorIs(t, err, ErrRegistrationClosed)

	e = openEvent()
	e.Status = models.EventDraft
	_, err = svc.Register(context.Background(), e, Registrant{Email: "a@x.io"}, "")
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestRegisterCapacity(t *testing.T) {
	svc, _ := newTestService(1)
	e := openEvent()
	_, err := svc.Register(context.Background(), e, Registrant{Email: "a@x.io"}, "")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), e, Registrant{Email: "b@x.io"}, "")
	assert.ErrorIs(t, err, ErrEventFull)
}

func TestCanSubmit(t *testing.T) {
	solo := &models.Registration{Email: "solo@x.io"}
	assert.True(t, CanSubmit(solo))

	teamID := uuid.New()
	team := &models.Team{ID: teamID, CreatorEmail: "Lead@X.io"}
	leader := &models.Registration{Email: "lead@x.io", TeamID: &teamID, Team: team}
	member := &models.Registration{Email: "mate@x.io", TeamID: &teamID, Team: team}
	assert.True(t, CanSubmit(leader))
	assert.False(t, CanSubmit(member))

	// a team id without a loaded team never grants submission
	assert.False(t, CanSubmit(&models.Registration{Email: "lead@x.io", TeamID: &teamID}))
}

func TestRegisterCreatesTeamLedByRegistrant(t *testing.T) {
	svc, _ := newTestService(0)
	reg, err := svc.Register(context.Background(), openEvent(), Registrant{Email: "lead@x.io"}, "  Rockets ")
	require.NoError(t, err)
	require.NotNil(t, reg.Team)
	assert.Equal(t, "Rockets", reg.Team.Name)
	assert.True(t, CanSubmit(reg))
}
