package leaderboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/models"
)

func score(v float64) *float64 { return &v }

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestAggregateSumsAndSkips(t *testing.T) {
	rows := []Row{
		{SubmitterEmail: "a@x.io", Name: "Alpha", Score: score(40), Status: models.SubmissionReviewed, SubmittedAt: t0},
		{SubmitterEmail: "a@x.io", Name: "Alpha", Score: score(35), Status: models.SubmissionApproved, SubmittedAt: t0.Add(time.Hour)},
		{SubmitterEmail: "a@x.io", Name: "Alpha", Score: score(99), Status: models.SubmissionRejected, SubmittedAt: t0},
		{SubmitterEmail: "b@x.io", Name: "Beta", Score: nil, Status: models.SubmissionSubmitted, SubmittedAt: t0},
		{SubmitterEmail: "c@x.io", Name: "Gamma", Score: score(60), Status: models.SubmissionLate, SubmittedAt: t0},
	}
	entries := Aggregate(rows)
	require.Len(t, entries, 2)

	assert.Equal(t, "Alpha", entries[0].Name)
	assert.InDelta(t, 75, entries[0].TotalScore, 1e-9)
	assert.Equal(t, 2, entries[0].RoundsScored)
	assert.Equal(t, t0.Add(time.Hour), entries[0].LastSubmittedAt)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Gamma", entries[1].Name)
	assert.Equal(t, 2, entries[1].Rank)
}

func TestRankCompetitionTies(t *testing.T) {
	entries := []Entry{
		{Name: "late", TotalScore: 90, LastSubmittedAt: t0.Add(time.Hour)},
		{Name: "early", TotalScore: 90, LastSubmittedAt: t0},
		{Name: "third", TotalScore: 70, LastSubmittedAt: t0},
		{Name: "bravo", TotalScore: 50, LastSubmittedAt: t0},
		{Name: "alpha", TotalScore: 50, LastSubmittedAt: t0},
	}
	Rank(entries)

	names := make([]string, len(entries))
	ranks := make([]int, len(entries))
	for i, e := range entries {
		names[i] = e.Name
		ranks[i] = e.Rank
	}
	assert.Equal(t, []string{"early", "late", "third", "alpha", "bravo"}, names)
	assert.Equal(t, []int{1, 1, 3, 4, 4}, ranks)
}

type fakeSource struct {
	rows  []Row
	calls int
}

func (f *fakeSource) Rows(context.Context, uuid.UUID) ([]Row, error) {
	f.calls++
	return f.rows, nil
}

type memCache struct {
	data    map[uuid.UUID][]Entry
	failGet bool
}

func (m *memCache) Get(_ context.Context, id uuid.UUID) ([]Entry, bool, error) {
	if m.failGet {
		return nil, false, errors.New("redis down")
	}
	e, ok := m.data[id]
	return e, ok, nil
}

func (m *memCache) Set(_ context.Context, id uuid.UUID, e []Entry) error {
	m.data[id] = e
	return nil
}

func (m *memCache) Invalidate(_ context.Context, id uuid.UUID) error {
	delete(m.data, id)
	return nil
}

func TestServiceCaches(t *testing.T) {
	src := &fakeSource{rows: []Row{{SubmitterEmail: "a@x.io", Name: "A", Score: score(10), Status: models.SubmissionReviewed, SubmittedAt: t0}}}
	cache := &memCache{data: map[uuid.UUID][]Entry{}}
	svc := NewService(src, cache, nil)
	ctx := context.Background()
	id := uuid.New()

	_, err := svc.Get(ctx, id)
	require.NoError(t, err)
	_, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	require.NoError(t, cache.Invalidate(ctx, id))
	_, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)

	cache.failGet = true
	entries, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 3, src.calls)
}

func TestCacheKey(t *testing.T) {
	id := uuid.MustParse("6f1c1f0e-8a4e-4b8e-9d7c-3c1f8e4a2b10")
	assert.Equal(t, "leaderboard:6f1c1f0e-8a4e-4b8e-9d7c-3c1f8e4a2b10", cacheKey(id))
}
