package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds the editable settings shown on a user's public page.
type Profile struct {
	UserID       uuid.UUID `json:"user_id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email,omitempty"`
	Bio          string    `json:"bio"`
	Organization string    `json:"organization"`
	GithubURL    string    `json:"github_url"`
	LinkedinURL  string    `json:"linkedin_url"`
	Skills       []string  `json:"skills"`
	UpdatedAt    time.Time `json:"updated_at"`
}
