package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/certificates"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/queue"
	"github.com/hackhub/backend/pkg/storage"
)

// Store loads certificate render data and records the result.
type Store interface {
	GetRenderData(ctx context.Context, id uuid.UUID) (*certificates.RenderData, error)
	MarkIssued(ctx context.Context, id uuid.UUID, fileKey string, issuedAt time.Time) error
}

// Uploader writes rendered documents to object storage.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) error
	CertificatesBucket() string
}

// Jobs is the queue the processor consumes.
type Jobs interface {
	Dequeue(ctx context.Context, queueName string) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// CertificateProcessor processes certificate render jobs: render HTML, upload to S3, mark issued.
type CertificateProcessor struct {
	store    Store
	uploader Uploader
	jobs     Jobs
	now      func() time.Time
	backoff  time.Duration
	logger   *zap.Logger
}

// NewCertificateProcessor creates a certificate render processor.
func NewCertificateProcessor(store Store, uploader Uploader, jobs Jobs, logger *zap.Logger) *CertificateProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateProcessor{store: store, uploader: uploader, jobs: jobs, now: time.Now, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one certificate render job.
func (p *CertificateProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeCertificateRender {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.CertificateRenderPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	data, err := p.store.GetRenderData(ctx, payload.CertificateID)
	if err != nil {
		return fmt.Errorf("load certificate %s: %w", payload.CertificateID, err)
	}
	cert := data.Certificate
	if cert.Status == models.CertificateIssued {
		p.logger.Info("certificate already issued", zap.String("certificate_id", cert.ID.String()))
		return nil
	}

	issuedAt := p.now().UTC()
	var buf bytes.Buffer
	if err := Render(&buf, data, issuedAt); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	key := storage.CertificateKey(cert.EventID.String(), cert.ID.String())
	if err := p.uploader.Upload(ctx, p.uploader.CertificatesBucket(), key, "text/html; charset=utf-8", &buf); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.store.MarkIssued(ctx, cert.ID, key, issuedAt); err != nil {
		p.logger.Error("mark certificate issued failed", zap.Error(err), zap.String("certificate_id", cert.ID.String()))
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("certificate issued", zap.String("certificate_id", cert.ID.String()), zap.String("s3_key", key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *CertificateProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("certificate worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx, queue.QueueCertificates)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *CertificateProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
