package models

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the review state of a round submission.
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionLate      SubmissionStatus = "late"
	SubmissionReviewed  SubmissionStatus = "reviewed"
	SubmissionApproved  SubmissionStatus = "approved"
	SubmissionRejected  SubmissionStatus = "rejected"
)

// Editable reports whether the submitter may still replace the content.
func (s SubmissionStatus) Editable() bool {
	return s == SubmissionSubmitted || s == SubmissionLate
}

// Submission is one entry per (event, round, submitting identity).
type Submission struct {
	ID             uuid.UUID        `json:"id"`
	EventID        uuid.UUID        `json:"event_id"`
	RoundID        uuid.UUID        `json:"round_id"`
	SubmitterEmail string           `json:"submitter_email"`
	UserID         uuid.UUID        `json:"user_id"`
	TeamID         *uuid.UUID       `json:"team_id,omitempty"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	RepoURL        string           `json:"repo_url"`
	DemoURL        string           `json:"demo_url"`
	ArtifactKey    string           `json:"artifact_key,omitempty"`
	Status         SubmissionStatus `json:"status"`
	Score          *float64         `json:"score,omitempty"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Review is one judge's score for a submission.
type Review struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	JudgeID      uuid.UUID `json:"judge_id"`
	Score        float64   `json:"score"`
	Feedback     string    `json:"feedback"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
