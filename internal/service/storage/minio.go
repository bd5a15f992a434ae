package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"slideshow/internal/config"
	"slideshow/internal/logger"
)

var tracer = otel.Tracer("slideshow/storage")

// Mirror receives a copy of every admitted upload.
type Mirror interface {
	Put(ctx context.Context, name string, data []byte) error
}

// MinioMirror copies admitted uploads into an object store bucket.
type MinioMirror struct {
	client     *minio.Client
	bucketName string
}

// NewMinioMirror connects to the configured endpoint and creates the bucket if needed.
// It returns nil, nil when no endpoint is configured.
func NewMinioMirror(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*MinioMirror, error) {
	if cfg.MinIOEndpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinIOBucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		logger.Info("Creating bucket: %s", cfg.MinIOBucketName)
		if err := client.MakeBucket(ctx, cfg.MinIOBucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinioMirror{client: client, bucketName: cfg.MinIOBucketName}, nil
}

func (m *MinioMirror) Put(ctx context.Context, name string, data []byte) error {
	ctx, span := tracer.Start(ctx, "minio.put_image",
		trace.WithAttributes(
			attribute.String("object_key", name),
			attribute.Int("size_bytes", len(data)),
		),
	)
	defer span.End()

	_, err := m.client.PutObject(ctx, m.bucketName, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}
