package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/pkg/storage"
)

// ArtifactSink delivers an encoded artifact and reports where it went
type ArtifactSink interface {
	Deliver(ctx context.Context, name, contentType string, data []byte) (location string, err error)
}

// ArtifactSource reads back an artifact delivered under name
type ArtifactSource interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// ArtifactStore is a sink that can also read back what it delivered
type ArtifactStore interface {
	ArtifactSink
	ArtifactSource
}

// FileSink writes artifacts into a local directory
type FileSink struct {
	dir    string
	logger *zap.Logger
}

// NewFileSink creates a sink rooted at dir; the directory is created on first write
func NewFileSink(dir string, logger *zap.Logger) *FileSink {
	return &FileSink{dir: dir, logger: logger}
}

// Deliver writes data to dir/name, replacing any previous file of that name
func (s *FileSink) Deliver(_ context.Context, name, _ string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	target := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}

	s.logger.Info("Artifact written", zap.String("path", target), zap.Int("bytes", len(data)))
	return target, nil
}

// Fetch reads dir/name
func (s *FileSink) Fetch(_ context.Context, name string) ([]byte, error) {
	target := filepath.Join(s.dir, filepath.Base(name))
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	return data, nil
}

// S3Sink uploads artifacts to a bucket under an optional key prefix
type S3Sink struct {
	client storage.S3Client
	bucket string
	prefix string
	urlTTL time.Duration
	logger *zap.Logger
}

// NewS3Sink creates a sink for bucket. With a positive urlTTL the delivered
// location is a presigned download URL valid for that long.
func NewS3Sink(client storage.S3Client, bucket, prefix string, urlTTL time.Duration, logger *zap.Logger) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: prefix,
		urlTTL: urlTTL,
		logger: logger,
	}
}

// Deliver uploads data to s3://bucket/prefix/name
func (s *S3Sink) Deliver(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := s.key(name)
	if err := s.client.Upload(ctx, s.bucket, key, bytes.NewReader(data), contentType); err != nil {
		return "", err
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.Info("Artifact uploaded", zap.String("location", location), zap.Int("bytes", len(data)))

	if s.urlTTL <= 0 {
		return location, nil
	}
	url, err := s.client.GetPresignedURL(ctx, s.bucket, key, s.urlTTL)
	if err != nil {
		return "", fmt.Errorf("uploaded to %s but %w", location, err)
	}
	return url, nil
}

// Fetch downloads prefix/name from the bucket
func (s *S3Sink) Fetch(ctx context.Context, name string) ([]byte, error) {
	key := s.key(name)
	body, err := s.client.Download(ctx, s.bucket, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

func (s *S3Sink) key(name string) string {
	return path.Join(s.prefix, path.Base(name))
}
