package submissions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/registrations"
)

type fakeStore struct {
	subs    map[uuid.UUID]*models.Submission
	reviews map[uuid.UUID]map[uuid.UUID]float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{subs: map[uuid.UUID]*models.Submission{}, reviews: map[uuid.UUID]map[uuid.UUID]float64{}}
}

func (f *fakeStore) Upsert(_ context.Context, s *models.Submission) error {
	for _, existing := range f.subs {
		if existing.EventID == s.EventID && existing.RoundID == s.RoundID && existing.SubmitterEmail == s.SubmitterEmail {
			if !existing.Status.Editable() {
				return ErrSubmissionLocked
			}
			s.ID = existing.ID
			s.Score = existing.Score
			cp := *s
			f.subs[s.ID] = &cp
			return nil
		}
	}
	s.ID = uuid.New()
	cp := *s
	f.subs[s.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Submission, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ListByEvent(_ context.Context, eventID uuid.UUID, roundID *uuid.UUID) ([]models.Submission, error) {
	var out []models.Submission
	for _, s := range f.subs {
		if s.EventID == eventID && (roundID == nil || s.RoundID == *roundID) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListBySubmitter(_ context.Context, eventID uuid.UUID, email string) ([]models.Submission, error) {
	var out []models.Submission
	for _, s := range f.subs {
		if s.EventID == eventID && s.SubmitterEmail == email {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertReview(_ context.Context, rv *models.Review) (*models.Submission, error) {
	if f.reviews[rv.SubmissionID] == nil {
		f.reviews[rv.SubmissionID] = map[uuid.UUID]float64{}
	}
	f.reviews[rv.SubmissionID][rv.JudgeID] = rv.Score
	var sum float64
	for _, v := range f.reviews[rv.SubmissionID] {
		sum += v
	}
	mean := sum / float64(len(f.reviews[rv.SubmissionID]))
	s := f.subs[rv.SubmissionID]
	s.Score = &mean
	if s.Status != models.SubmissionApproved && s.Status != models.SubmissionRejected {
		s.Status = models.SubmissionReviewed
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ListReviews(context.Context, uuid.UUID) ([]models.Review, error) { return nil, nil }

func (f *fakeStore) SetStatus(_ context.Context, id uuid.UUID, status models.SubmissionStatus) (*models.Submission, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	s.Status = status
	cp := *s
	return &cp, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.subs[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.subs, id)
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

type fakeRegs map[string]*models.Registration

func (f fakeRegs) GetByEventAndEmail(_ context.Context, _ uuid.UUID, email string) (*models.Registration, error) {
	r, ok := f[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	return r, nil
}

type fakeJudges map[uuid.UUID]bool

func (f fakeJudges) IsJudge(_ context.Context, _ uuid.UUID, userID uuid.UUID) (bool, error) {
	return f[userID], nil
}

type countingCache struct{ calls int }

func (c *countingCache) Invalidate(context.Context, uuid.UUID) error {
	c.calls++
	return errors.New("redis down") // failures are logged, not returned
}

type fakeStorage struct {
	deleted []string
	sizes   []int64
}

func (f *fakeStorage) GeneratePresignedUploadURL(_ context.Context, bucket, key, _ string, size int64, _ time.Duration) (string, error) {
	f.sizes = append(f.sizes, size)
	return "https://s3.test/" + bucket + "/" + key + "?put", nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://s3.test/" + bucket + "/" + key + "?get", nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, _, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) ArtifactsBucket() string       { return "artifacts" }
func (f *fakeStorage) PresignExpire() time.Duration { return 15 * time.Minute }

type fixture struct {
	svc       *Service
	store     *fakeStore
	cache     *countingCache
	storage   *fakeStorage
	event     *models.Event
	round     models.Round
	organizer Caller
	leader    Caller
	member    Caller
	solo      Caller
	judge     Caller
	clock     time.Time
	teamID    uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		store:     newFakeStore(),
		cache:     &countingCache{},
		storage:   &fakeStorage{},
		organizer: Caller{UserID: uuid.New(), Email: "org@x.io"},
		leader:    Caller{UserID: uuid.New(), Email: "lead@x.io"},
		member:    Caller{UserID: uuid.New(), Email: "mate@x.io"},
		solo:      Caller{UserID: uuid.New(), Email: "solo@x.io"},
		judge:     Caller{UserID: uuid.New(), Email: "judge@x.io"},
		teamID:    uuid.New(),
	}
	deadline := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	f.clock = deadline.Add(-time.Hour)
	eventID := uuid.New()
	f.round = models.Round{ID: uuid.New(), EventID: eventID, Name: "Final", Position: 1, SubmissionDeadline: deadline}
	f.event = &models.Event{ID: eventID, OrganizerID: f.organizer.UserID, Status: models.EventOngoing, Rounds: []models.Round{f.round}}

	team := &models.Team{ID: f.teamID, Name: "Rockets", CreatorEmail: "lead@x.io"}
	regs := fakeRegs{
		"lead@x.io": {EventID: eventID, UserID: f.leader.UserID, Email: "lead@x.io", TeamID: &f.teamID, Team: team},
		"mate@x.io": {EventID: eventID, UserID: f.member.UserID, Email: "mate@x.io", TeamID: &f.teamID, Team: team},
		"solo@x.io": {EventID: eventID, UserID: f.solo.UserID, Email: "solo@x.io"},
	}
	f.svc = NewService(f.store, fakeEvents{eventID: f.event}, regs, fakeJudges{f.judge.UserID: true}, f.cache, f.storage, nil)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func TestClassifyLateness(t *testing.T) {
	deadline := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, models.SubmissionSubmitted, ClassifyLateness(deadline, deadline.Add(-time.Second)))
	assert.Equal(t, models.SubmissionSubmitted, ClassifyLateness(deadline, deadline))
	assert.Equal(t, models.SubmissionLate, ClassifyLateness(deadline, deadline.Add(time.Nanosecond)))
}

func TestSubmitOnlyTeamLeader(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.event, f.round.ID, f.member, Input{Title: "Ours"})
	assert.ErrorIs(t, err, ErrNotTeamLeader)

	sub, err := f.svc.Submit(ctx, f.event, f.round.ID, f.leader, Input{Title: "Ours"})
	require.NoError(t, err)
	assert.Equal(t, "lead@x.io", sub.SubmitterEmail)
	assert.Equal(t, &f.teamID, sub.TeamID)
	assert.Equal(t, models.SubmissionSubmitted, sub.Status)

	_, err = f.svc.Submit(ctx, f.event, f.round.ID, Caller{UserID: uuid.New(), Email: "ghost@x.io"}, Input{Title: "x"})
	assert.ErrorIs(t, err, registrations.ErrNotRegistered)
}

func TestSubmitLateAndResubmit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, f.event, f.round.ID, f.solo, Input{Title: "v1"})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionSubmitted, first.Status)

	f.clock = f.round.SubmissionDeadline.Add(time.Minute)
	second, err := f.svc.Submit(ctx, f.event, f.round.ID, f.solo, Input{Title: "v2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.SubmissionLate, second.Status)
	assert.Equal(t, "v2", f.store.subs[first.ID].Title)

	_, err = f.svc.Review(ctx, first.ID, f.judge, 80, "")
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.event, f.round.ID, f.solo, Input{Title: "v3"})
	assert.ErrorIs(t, err, ErrSubmissionLocked)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.event, uuid.New(), f.solo, Input{Title: "x"})
	assert.ErrorIs(t, err, ErrRoundNotFound)

	_, err = f.svc.Submit(ctx, f.event, f.round.ID, f.solo, Input{Title: "x", RepoURL: "javascript:alert(1)"})
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = f.svc.Submit(ctx, f.event, f.round.ID, f.solo, Input{Title: "x", ArtifactKey: "submissions/other/key.zip"})
	assert.ErrorIs(t, err, ErrInvalidArtifact)

	f.event.Status = models.EventCompleted
	_, err = f.svc.Submit(ctx, f.event, f.round.ID, f.solo, Input{Title: "x"})
	assert.ErrorIs(t, err, ErrEventClosed)
}

func TestArtifactUploadRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.ArtifactUploadURL(ctx, f.event, f.round.ID, f.leader, "demo.exe", 10)
	assert.ErrorIs(t, err, ErrInvalidArtifact)
	_, err = f.svc.ArtifactUploadURL(ctx, f.event, f.round.ID, f.leader, "demo.zip", 51*1024*1024)
	assert.ErrorIs(t, err, ErrInvalidArtifact)
	_, err = f.svc.ArtifactUploadURL(ctx, f.event, f.round.ID, f.leader, "demo.zip", 0)
	assert.ErrorIs(t, err, ErrInvalidArtifact)
	_, err = f.svc.ArtifactUploadURL(ctx, f.event, f.round.ID, f.member, "demo.zip", 10)
	assert.ErrorIs(t, err, ErrNotTeamLeader)

	up, err := f.svc.ArtifactUploadURL(ctx, f.event, f.round.ID, f.leader, "demo.zip", 1024)
	require.NoError(t, err)
	assert.Equal(t, "application/zip", up.ContentType)
	assert.Equal(t, int64(1024), up.ContentLength)
	assert.Equal(t, []int64{1024}, f.storage.sizes)
	assert.True(t, strings.HasPrefix(up.Key, "submissions/"+f.event.ID.String()+"/"+f.round.ID.String()+"/"+f.teamID.String()+"/"))

	sub, err := f.svc.Submit(ctx, f.event, f.round.ID, f.leader, Input{Title: "x", ArtifactKey: up.Key})
	require.NoError(t, err)

	// team members may download, outsiders may not
	u, err := f.svc.ArtifactDownloadURL(ctx, sub.ID, f.member)
	require.NoError(t, err)
	assert.Contains(t, u, up.Key)
	_, err = f.svc.ArtifactDownloadURL(ctx, sub.ID, f.solo)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.Delete(ctx, sub.ID, f.organizer))
	assert.Equal(t, []string{up.Key}, f.storage.deleted)
}

func TestStorageDisabled(t *testing.T) {
	f := newFixture()
	f.svc.storage = nil
	_, err := f.svc.ArtifactUploadURL(context.Background(), f.event, f.round.ID, f.solo, "a.pdf", 1)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestReviewMeanAndDecision(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sub, err := f.svc.Submit(ctx, f.event, f.round.ID, f.solo, Input{Title: "x"})
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, sub.ID, f.solo, 90, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Review(ctx, sub.ID, f.judge, 101, "")
	assert.ErrorIs(t, err, ErrInvalidScore)

	second := Caller{UserID: uuid.New()}
	f.svc.judges = fakeJudges{f.judge.UserID: true, second.UserID: true}

	_, err = f.svc.Review(ctx, sub.ID, f.judge, 70, "ok")
	require.NoError(t, err)
	got, err := f.svc.Review(ctx, sub.ID, second, 90, "great")
	require.NoError(t, err)
	require.NotNil(t, got.Score)
	assert.InDelta(t, 80, *got.Score, 1e-9)
	assert.Equal(t, models.SubmissionReviewed, got.Status)

	// a judge re-reviewing replaces their score
	got, err = f.svc.Review(ctx, sub.ID, f.judge, 50, "")
	require.NoError(t, err)
	assert.InDelta(t, 70, *got.Score, 1e-9)

	_, err = f.svc.Decide(ctx, sub.ID, f.judge, models.SubmissionApproved)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Decide(ctx, sub.ID, f.organizer, models.SubmissionLate)
	assert.ErrorIs(t, err, ErrInvalidDecision)
	got, err = f.svc.Decide(ctx, sub.ID, f.organizer, models.SubmissionApproved)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionApproved, got.Status)

	// a later review keeps the decision
	got, err = f.svc.Review(ctx, sub.ID, second, 100, "")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionApproved, got.Status)

	assert.Equal(t, 5, f.cache.calls)
}

func TestListAccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, f.event, f.round.ID, f.leader, Input{Title: "x"})
	require.NoError(t, err)

	_, err = f.svc.ListByEvent(ctx, f.event.ID, nil, f.solo)
	assert.ErrorIs(t, err, ErrForbidden)
	list, err := f.svc.ListByEvent(ctx, f.event.ID, nil, f.judge)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	mine, err := f.svc.Mine(ctx, f.event.ID, f.member)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
