package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobEnvelope(t *testing.T) {
	certID := uuid.New()
	job, err := NewJob(QueueCertificates, JobTypeCertificateRender, CertificateRenderPayload{CertificateID: certID})
	require.NoError(t, err)

	assert.Equal(t, QueueCertificates, job.Queue)
	assert.Equal(t, JobTypeCertificateRender, job.Type)
	assert.Zero(t, job.Attempt)
	_, err = uuid.Parse(job.ID)
	assert.NoError(t, err)

	var payload CertificateRenderPayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, certID, payload.CertificateID)
}

func TestNewJobRejectsUnmarshalablePayload(t *testing.T) {
	_, err := NewJob(QueueCertificates, JobTypeCertificateRender, make(chan int))
	assert.Error(t, err)
}
