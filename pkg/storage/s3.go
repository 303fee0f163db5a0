package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	// MaxArtifactSize is the maximum allowed submission artifact size (50MB).
	MaxArtifactSize = 50 * 1024 * 1024
	// FolderSubmissions is the S3 prefix for submission artifacts.
	FolderSubmissions = "submissions"
	// FolderCertificates is the S3 prefix for rendered certificates.
	FolderCertificates = "certificates"
)

// AllowedArtifactExtensions maps accepted artifact extensions to their MIME type.
var AllowedArtifactExtensions = map[string]string{
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".mp4":  "video/mp4",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ArtifactsBucket      string
	CertificatesBucket   string
	PresignExpireMinutes int
}

// S3 provides object uploads and pre-signed URLs for artifacts and certificates.
type S3 struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client. Static credentials are used when both keys are set, otherwise the default chain.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
		logger.Info("S3 client using static credentials", zap.String("region", cfg.Region))
	} else {
		logger.Warn("S3 client using default credential chain")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3{
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// ArtifactContentType returns the MIME type for an allowed artifact filename, or false.
func ArtifactContentType(filename string) (string, bool) {
	ct, ok := AllowedArtifactExtensions[strings.ToLower(path.Ext(filename))]
	return ct, ok
}

// ArtifactKey returns the object key: submissions/{event_id}/{round_id}/{submission_slot}/{unix}-{filename}.
func ArtifactKey(eventID, roundID, slot, filename string, now time.Time) string {
	name := fmt.Sprintf("%d-%s", now.Unix(), sanitizeFilename(filename))
	return path.Join(FolderSubmissions, eventID, roundID, slot, name)
}

// CertificateKey returns the object key: certificates/{event_id}/{certificate_id}.html.
func CertificateKey(eventID, certificateID string) string {
	return path.Join(FolderCertificates, eventID, certificateID+".html")
}

// ArtifactKeyBelongs reports whether key was issued for the given event/round/slot prefix.
func ArtifactKeyBelongs(key, eventID, roundID, slot string) bool {
	prefix := path.Join(FolderSubmissions, eventID, roundID, slot) + "/"
	return strings.HasPrefix(key, prefix) && !strings.Contains(strings.TrimPrefix(key, prefix), "/")
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// GeneratePresignedUploadURL returns a pre-signed PUT URL for direct upload.
// Size is signed as Content-Length, so the upload must match it exactly.
func (s *S3) GeneratePresignedUploadURL(ctx context.Context, bucket, key, contentType string, size int64, expires time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

// GeneratePresignedDownloadURL returns a pre-signed GET URL for download.
func (s *S3) GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// ArtifactsBucket returns the submission artifacts bucket name.
func (s *S3) ArtifactsBucket() string { return s.cfg.ArtifactsBucket }

// CertificatesBucket returns the certificates bucket name.
func (s *S3) CertificatesBucket() string { return s.cfg.CertificatesBucket }

// Upload streams a reader to S3.
func (s *S3) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	s.logger.Debug("object uploaded", zap.String("bucket", bucket), zap.String("key", key))
	return nil
}

// DeleteObject removes an object from S3.
func (s *S3) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
