package leaderboard

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackhub/backend/internal/models"
)

// Row is one submission as read for aggregation.
type Row struct {
	SubmitterEmail string
	Name           string
	TeamID         *uuid.UUID
	Score          *float64
	Status         models.SubmissionStatus
	SubmittedAt    time.Time
}

// Entry is one ranked submitting identity.
type Entry struct {
	Rank            int        `json:"rank"`
	Name            string     `json:"name"`
	SubmitterEmail  string     `json:"submitter_email"`
	TeamID          *uuid.UUID `json:"team_id,omitempty"`
	TotalScore      float64    `json:"total_score"`
	RoundsScored    int        `json:"rounds_scored"`
	LastSubmittedAt time.Time  `json:"last_submitted_at"`
}

// Aggregate sums scored, non-rejected submissions per identity and ranks them.
// Identities with no counted score are omitted.
func Aggregate(rows []Row) []Entry {
	byIdentity := make(map[string]*Entry)
	for _, r := range rows {
		if r.Score == nil || r.Status == models.SubmissionRejected {
			continue
		}
		e, ok := byIdentity[r.SubmitterEmail]
		if !ok {
			e = &Entry{Name: r.Name, SubmitterEmail: r.SubmitterEmail, TeamID: r.TeamID}
			byIdentity[r.SubmitterEmail] = e
		}
		e.TotalScore += *r.Score
		e.RoundsScored++
		if r.SubmittedAt.After(e.LastSubmittedAt) {
			e.LastSubmittedAt = r.SubmittedAt
		}
	}
	entries := make([]Entry, 0, len(byIdentity))
	for _, e := range byIdentity {
		entries = append(entries, *e)
	}
	Rank(entries)
	return entries
}

// Rank orders entries by total desc, earliest last submission, then name, and
// assigns competition ranks: equal totals share a rank and the next rank skips.
func Rank(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if !a.LastSubmittedAt.Equal(b.LastSubmittedAt) {
			return a.LastSubmittedAt.Before(b.LastSubmittedAt)
		}
		if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
			return an < bn
		}
		return a.SubmitterEmail < b.SubmitterEmail
	})
	for i := range entries {
		if i > 0 && entries[i].TotalScore == entries[i-1].TotalScore {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}
