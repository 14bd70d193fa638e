package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
)

// S3Config holds S3 connection parameters.
type S3Config struct {
	Endpoint        string // host[:port], e.g. s3.amazonaws.com or localhost:9000
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string // used when a target names no bucket
}

// S3Client defines the minimal object store interface used by the adapter.
// This allows injection of a real minio client or test doubles.
type S3Client interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, meta map[string]string) error
}

// S3 is the StorageAdapter backed by an S3-compatible store.
type S3 struct {
	client S3Client
	bucket string
}

// NewS3 creates an S3 adapter.  client must not be nil.
func NewS3(client S3Client, defaultBucket string) (*S3, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 storage: client must not be nil")
	}
	return &S3{client: client, bucket: defaultBucket}, nil
}

// NewMinio builds an S3 adapter talking to cfg.Endpoint through minio-go.
func NewMinio(cfg S3Config) (*S3, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, apperrors.New(apperrors.CategoryConfig, "s3.new", fmt.Errorf("endpoint is required"))
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "s3.new", fmt.Errorf("create minio client: %w", err))
	}
	return NewS3(&minioClient{mc: mc}, cfg.Bucket)
}

func (s *S3) bucketFor(key core.StorageKey) string {
	if key.Bucket != "" {
		return key.Bucket
	}
	return s.bucket
}

func (s *S3) Put(ctx context.Context, key core.StorageKey, r io.Reader, size int64, meta map[string]string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "s3.put", err)
	}
	bucket := s.bucketFor(key)
	if bucket == "" || key.Path == "" {
		return apperrors.New(apperrors.CategoryStorage, "s3.put", fmt.Errorf("bucket and key are required"))
	}
	if err := s.client.PutObject(ctx, bucket, key.Path, r, size, meta); err != nil {
		return apperrors.Transient(apperrors.CategoryStorage, "s3.put", err)
	}
	return nil
}

// minioClient adapts *minio.Client to S3Client.
type minioClient struct {
	mc *minio.Client
}

func (c *minioClient) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, meta map[string]string) error {
	opts := minio.PutObjectOptions{UserMetadata: map[string]string{}}
	for k, v := range meta {
		if strings.EqualFold(k, "Content-Type") {
			opts.ContentType = v
			continue
		}
		opts.UserMetadata[k] = v
	}
	if _, err := c.mc.PutObject(ctx, bucket, key, body, size, opts); err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return nil
}

var _ core.StorageAdapter = (*S3)(nil)
