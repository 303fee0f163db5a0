package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/models"
)

func sampleRegistrations() []models.Registration {
	eventID := uuid.New()
	teamID := uuid.New()
	team := &models.Team{ID: teamID, Name: "Byte, Club", CreatorEmail: "lead@x.io"}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []models.Registration{
		{ID: uuid.New(), EventID: eventID, FullName: "Lead", Email: "lead@x.io", TeamID: &teamID, Team: team, CreatedAt: at},
		{ID: uuid.New(), EventID: eventID, FullName: "Mate", Email: "mate@x.io", TeamID: &teamID, Team: team, CreatedAt: at},
		{ID: uuid.New(), EventID: eventID, FullName: "Solo", Email: "solo@x.io", CreatedAt: at},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRegistrations()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, "Byte, Club", records[1][4])
	assert.Equal(t, "leader", records[1][5])
	assert.Equal(t, "member", records[2][5])
	assert.Equal(t, "solo", records[3][5])
	assert.Equal(t, "2026-01-02T03:04:05Z", records[3][6])
}

func TestValues(t *testing.T) {
	v := Values(sampleRegistrations())
	require.Len(t, v, 4)
	assert.Equal(t, "registration_id", v[0][0])
	assert.Equal(t, "solo@x.io", v[3][3])
}
