// Package blob stores uploaded file bytes in an S3-compatible bucket.
package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/onboardhub/engine/internal/services"
	"github.com/onboardhub/engine/pkg/logger"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store is a BlobStore backed by MinIO or any S3 endpoint.
type Store struct {
	client *minio.Client
	bucket string
}

func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

var _ services.BlobStore = (*Store)(nil)

// EnsureBucket creates the bucket when missing.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	logger.L().Info("blob bucket created", zap.String("bucket", s.bucket))
	return nil
}

// Upload streams r to path. A negative size streams with multipart upload.
func (s *Store) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	if size == 0 {
		size = -1
	}
	info, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", path, err)
	}
	logger.L().Debug("blob uploaded", zap.String("path", info.Key), zap.Int64("size", info.Size))
	return info.Key, nil
}

func (s *Store) Download(ctx context.Context, path string) (io.ReadCloser, services.BlobInfo, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, services.BlobInfo{}, fmt.Errorf("get object %s: %w", path, err)
	}
	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, services.BlobInfo{}, fmt.Errorf("stat object %s: %w", path, err)
	}
	return obj, services.BlobInfo{Size: st.Size, ContentType: st.ContentType}, nil
}

// Ping checks the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
