package models

import (
	"time"

	"github.com/google/uuid"
)

// CertificateStatus tracks rendering of the certificate document.
type CertificateStatus string

const (
	CertificatePending CertificateStatus = "pending"
	CertificateIssued  CertificateStatus = "issued"
)

// Certificate is derived from an eligible submission, one per (event, recipient).
type Certificate struct {
	ID             uuid.UUID         `json:"id"`
	EventID        uuid.UUID         `json:"event_id"`
	SubmissionID   *uuid.UUID        `json:"submission_id,omitempty"`
	RecipientEmail string            `json:"recipient_email"`
	RecipientName  string            `json:"recipient_name"`
	Code           string            `json:"code"`
	Status         CertificateStatus `json:"status"`
	FileKey        string            `json:"file_key,omitempty"`
	IssuedAt       *time.Time        `json:"issued_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
