//go:build integration

package submissions

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/database"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/submissions/
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, 4, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.Migrate(ctx, pool, zap.NewNop()))
	return pool
}

// seedRound inserts a user, an event and one round, removed again on cleanup.
func seedRound(t *testing.T, pool *pgxpool.Pool) (userID, eventID, roundID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	email := uuid.NewString() + "@example.com"
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO users (email, password_hash, full_name, role)
		VALUES ($1, 'x', 'Ada', 'participant') RETURNING id`, email).Scan(&userID))
	now := time.Now().UTC()
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO events (organizer_id, title, registration_opens_at,
			registration_closes_at, starts_at, ends_at, results_at)
		VALUES ($1, 'Hack', $2, $2, $2, $3, $3) RETURNING id`, userID, now, now.Add(48*time.Hour)).Scan(&eventID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO rounds (event_id, name, position, submission_deadline)
		VALUES ($1, 'Final', 1, $2) RETURNING id`, eventID, now.Add(24*time.Hour)).Scan(&roundID))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM events WHERE id = $1`, eventID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, userID)
	})
	return userID, eventID, roundID
}

func TestRepositoryUpsertLocksAfterDecision(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	userID, eventID, roundID := seedRound(t, pool)

	sub := &models.Submission{
		EventID: eventID, RoundID: roundID, SubmitterEmail: "ada@example.com", UserID: userID,
		Title: "v1", Status: models.SubmissionSubmitted, SubmittedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Upsert(ctx, sub))
	firstID := sub.ID

	again := *sub
	again.Title = "v2"
	require.NoError(t, repo.Upsert(ctx, &again))
	assert.Equal(t, firstID, again.ID)
	assert.Equal(t, "v2", again.Title)

	_, err := repo.SetStatus(ctx, firstID, models.SubmissionApproved)
	require.NoError(t, err)

	locked := again
	locked.Title = "v3"
	assert.ErrorIs(t, repo.Upsert(ctx, &locked), ErrSubmissionLocked)

	stored, err := repo.GetByID(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, "v2", stored.Title)
	assert.Equal(t, models.SubmissionApproved, stored.Status)
}
