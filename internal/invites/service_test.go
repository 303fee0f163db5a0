package invites

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/registrations"
)

// fakeStore mirrors the conditional-update semantics of the SQL repository.
type fakeStore struct {
	mu      sync.Mutex
	invites map[string]*models.Invite
	regs    []models.Registration
	judges  map[uuid.UUID]bool
	maxTeam int
	expired int
}

func newFakeStore() *fakeStore {
	return &fakeStore{invites: map[string]*models.Invite{}, judges: map[uuid.UUID]bool{}, maxTeam: 3}
}

func (f *fakeStore) Create(_ context.Context, inv *models.Invite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.invites[inv.Code]; ok {
		return models.ErrConflict
	}
	inv.ID = uuid.New()
	cp := *inv
	f.invites[inv.Code] = &cp
	return nil
}

func (f *fakeStore) GetByCode(_ context.Context, code string) (*models.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invites[code]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeStore) ListByEvent(_ context.Context, eventID uuid.UUID) ([]models.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Invite
	for _, inv := range f.invites {
		if inv.EventID == eventID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeStore) byID(id uuid.UUID) *models.Invite {
	for _, inv := range f.invites {
		if inv.ID == id {
			return inv
		}
	}
	return nil
}

func (f *fakeStore) MarkExpired(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv := f.byID(id); inv != nil && inv.Status == models.InviteActive {
		inv.Status = models.InviteExpired
		f.expired++
	}
	return nil
}

func (f *fakeStore) Revoke(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv := f.byID(id)
	if inv == nil || inv.Status != models.InviteActive {
		return models.ErrConflict
	}
	inv.Status = models.InviteRevoked
	return nil
}

func (f *fakeStore) claim(id, userID uuid.UUID, now time.Time) error {
	inv := f.byID(id)
	if inv == nil || inv.Status != models.InviteActive || !inv.ExpiresAt.After(now) {
		return ErrInviteUsed
	}
	inv.Status = models.InviteUsed
	inv.UsedBy = &userID
	return nil
}

func (f *fakeStore) RedeemTeam(_ context.Context, inv *models.Invite, reg *models.Registration, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.regs {
		if r.EventID == reg.EventID && r.Email == reg.Email {
			return registrations.ErrAlreadyRegistered
		}
	}
	size := 0
	for _, r := range f.regs {
		if r.TeamID != nil && *r.TeamID == *inv.TeamID {
			size++
		}
	}
	if size >= f.maxTeam {
		return registrations.ErrTeamFull
	}
	if err := f.claim(inv.ID, reg.UserID, now); err != nil {
		return err
	}
	reg.ID = uuid.New()
	reg.TeamID = inv.TeamID
	f.regs = append(f.regs, *reg)
	return nil
}

func (f *fakeStore) RedeemJudge(_ context.Context, inv *models.Invite, userID uuid.UUID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.claim(inv.ID, userID, now); err != nil {
		return err
	}
	f.judges[userID] = true
	return nil
}

type fakeEvents map[uuid.UUID]*models.Event

func (f fakeEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := f[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return e, nil
}

type fakeRegs struct {
	store *fakeStore
	teams map[uuid.UUID]*models.Team
}

func (f *fakeRegs) GetByEventAndEmail(_ context.Context, eventID uuid.UUID, email string) (*models.Registration, error) {
	for _, r := range f.store.regs {
		if r.EventID == eventID && r.Email == email {
			r := r
			if r.TeamID != nil {
				r.Team = f.teams[*r.TeamID]
			}
			return &r, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeRegs) GetTeam(_ context.Context, id uuid.UUID) (*models.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return t, nil
}

type fixture struct {
	svc       *Service
	store     *fakeStore
	event     *models.Event
	organizer Caller
	leader    Caller
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	f := &fixture{
		store:     store,
		organizer: Caller{UserID: uuid.New(), Email: "org@x.io", FullName: "Org"},
		leader:    Caller{UserID: uuid.New(), Email: "lead@x.io", FullName: "Lead"},
		clock:     time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
	f.event = &models.Event{ID: uuid.New(), OrganizerID: f.organizer.UserID, Title: "Hack", Status: models.EventPublished, MaxTeamSize: 3}

	teamID := uuid.New()
	team := &models.Team{ID: teamID, EventID: f.event.ID, Name: "Rockets", CreatorEmail: "lead@x.io", CreatorUserID: f.leader.UserID}
	store.regs = append(store.regs, models.Registration{ID: uuid.New(), EventID: f.event.ID, UserID: f.leader.UserID, Email: "lead@x.io", TeamID: &teamID})

	n := 0
	f.svc = NewService(store, fakeEvents{f.event.ID: f.event}, &fakeRegs{store: store, teams: map[uuid.UUID]*models.Team{teamID: team}},
		168*time.Hour, 336*time.Hour, nil)
	f.svc.now = func() time.Time { return f.clock }
	f.svc.newCode = func() (string, error) {
		n++
		return fmt.Sprintf("CODE%04d", n), nil
	}
	return f
}

func TestCheckRedeemable(t *testing.T) {
	now := time.Now()
	active := &models.Invite{Status: models.InviteActive, ExpiresAt: now.Add(time.Hour)}
	assert.NoError(t, CheckRedeemable(active, now))

	// lazy expiry: stored status still active
	stale := &models.Invite{Status: models.InviteActive, ExpiresAt: now.Add(-time.Second)}
	assert.ErrorIs(t, CheckRedeemable(stale, now), ErrInviteExpired)
	atExpiry := &models.Invite{Status: models.InviteActive, ExpiresAt: now}
	assert.ErrorIs(t, CheckRedeemable(atExpiry, now), ErrInviteExpired)

	assert.ErrorIs(t, CheckRedeemable(&models.Invite{Status: models.InviteRevoked, ExpiresAt: now.Add(time.Hour)}, now), ErrInviteRevoked)
	assert.ErrorIs(t, CheckRedeemable(&models.Invite{Status: models.InviteUsed, ExpiresAt: now.Add(time.Hour)}, now), ErrInviteUsed)
}

func TestTeamInviteOnlyByCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.CreateTeamInvite(ctx, f.event.ID, f.leader, "")
	require.NoError(t, err)
	assert.Equal(t, models.InviteTeam, inv.Kind)
	assert.Equal(t, f.clock.Add(168*time.Hour), inv.ExpiresAt)

	mate := Caller{UserID: uuid.New(), Email: "mate@x.io", FullName: "Mate"}
	_, reg, err := f.svc.Accept(ctx, inv.Code, mate)
	require.NoError(t, err)
	assert.Equal(t, inv.TeamID, reg.TeamID)

	_, err = f.svc.CreateTeamInvite(ctx, f.event.ID, mate, "")
	assert.ErrorIs(t, err, ErrNotTeamCreator)

	_, err = f.svc.CreateTeamInvite(ctx, f.event.ID, Caller{UserID: uuid.New(), Email: "ghost@x.io"}, "")
	assert.ErrorIs(t, err, registrations.ErrNotRegistered)
}

func TestAcceptLazilyExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateTeamInvite(ctx, f.event.ID, f.leader, "")
	require.NoError(t, err)

	f.clock = f.clock.Add(169 * time.Hour)
	_, _, err = f.svc.Accept(ctx, inv.Code, Caller{UserID: uuid.New(), Email: "late@x.io"})
	assert.ErrorIs(t, err, ErrInviteExpired)
	assert.Equal(t, models.InviteExpired, f.store.invites[inv.Code].Status)
	assert.Equal(t, 1, f.store.expired)
}

func TestAcceptIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateJudgeInvite(ctx, f.event, f.organizer, "")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Add(336*time.Hour), inv.ExpiresAt)

	judge := Caller{UserID: uuid.New(), Email: "judge@x.io"}
	_, _, err = f.svc.Accept(ctx, inv.Code, judge)
	require.NoError(t, err)
	assert.True(t, f.store.judges[judge.UserID])

	_, _, err = f.svc.Accept(ctx, inv.Code, Caller{UserID: uuid.New(), Email: "other@x.io"})
	assert.ErrorIs(t, err, ErrInviteUsed)
}

func TestConcurrentAcceptRedeemsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateJudgeInvite(ctx, f.event, f.organizer, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := f.svc.Accept(ctx, inv.Code, Caller{UserID: uuid.New(), Email: fmt.Sprintf("j%d@x.io", i)})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrInviteUsed)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, f.store.judges, 1)
}

func TestAcceptEmailMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateJudgeInvite(ctx, f.event, f.organizer, "Judge@X.io")
	require.NoError(t, err)

	_, _, err = f.svc.Accept(ctx, inv.Code, Caller{UserID: uuid.New(), Email: "someone@x.io"})
	assert.ErrorIs(t, err, ErrInviteEmailMismatch)
	_, _, err = f.svc.Accept(ctx, inv.Code, Caller{UserID: uuid.New(), Email: "judge@x.io"})
	assert.NoError(t, err)
}

func TestAcceptTeamRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.maxTeam = 2

	first, err := f.svc.CreateTeamInvite(ctx, f.event.ID, f.leader, "")
	require.NoError(t, err)
	second, err := f.svc.CreateTeamInvite(ctx, f.event.ID, f.leader, "")
	require.NoError(t, err)

	// the leader is already registered for the event
	_, _, err = f.svc.Accept(ctx, first.Code, f.leader)
	assert.ErrorIs(t, err, registrations.ErrAlreadyRegistered)

	_, _, err = f.svc.Accept(ctx, first.Code, Caller{UserID: uuid.New(), Email: "a@x.io"})
	require.NoError(t, err)
	_, _, err = f.svc.Accept(ctx, second.Code, Caller{UserID: uuid.New(), Email: "b@x.io"})
	assert.ErrorIs(t, err, registrations.ErrTeamFull)

	f.event.Status = models.EventCompleted
	third, err := f.svc.CreateTeamInvite(ctx, f.event.ID, f.leader, "")
	require.NoError(t, err)
	_, _, err = f.svc.Accept(ctx, third.Code, Caller{UserID: uuid.New(), Email: "c@x.io"})
	assert.ErrorIs(t, err, ErrEventClosed)
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateTeamInvite(ctx, f.event.ID, f.leader, "")
	require.NoError(t, err)

	_, err = f.svc.Revoke(ctx, inv.Code, Caller{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotAllowed)

	// the organizer may revoke invites they did not create
	revoked, err := f.svc.Revoke(ctx, inv.Code, f.organizer)
	require.NoError(t, err)
	assert.Equal(t, models.InviteRevoked, revoked.Status)

	_, _, err = f.svc.Accept(ctx, inv.Code, Caller{UserID: uuid.New(), Email: "x@x.io"})
	assert.ErrorIs(t, err, ErrInviteRevoked)

	p, err := f.svc.Preview(ctx, inv.Code)
	require.NoError(t, err)
	assert.False(t, p.Redeemable)
	assert.Equal(t, "Rockets", p.TeamName)
	assert.Equal(t, "Hack", p.EventTitle)
}

func TestCodeCollisionRetries(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.svc.newCode = func() (string, error) {
		calls++
		if calls < 3 {
			return "SAMECODE", nil
		}
		return "FRESH001", nil
	}
	_, err := f.svc.CreateJudgeInvite(context.Background(), f.event, f.organizer, "")
	require.NoError(t, err)
	inv, err := f.svc.CreateJudgeInvite(context.Background(), f.event, f.organizer, "")
	require.NoError(t, err)
	assert.Equal(t, "FRESH001", inv.Code)
}
