// Package exports archives the provider's bulk export files into
// object storage, keeping a durable raw copy of the telephony history
// independent of the spreadsheet logs.
package exports

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"outreach_backend/platform/config"
)

// PresignedDownloadTTL is the expiration of download links handed out
// for archived exports.
const PresignedDownloadTTL = 15 * time.Minute

// MinIOStore stores export archives in a MinIO (or S3-compatible)
// bucket.
type MinIOStore struct {
	client *minio.Client
}

// NewMinIOStore creates the object-storage client.
func NewMinIOStore(cfg config.StorageConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOStore{client: client}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *MinIOStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// Put uploads one archive under the given key.
func (s *MinIOStore) Put(ctx context.Context, bucket, key, contentType string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Get streams one archived export back. The caller owns the reader.
func (s *MinIOStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	return obj, nil
}

// PresignDownload creates a short-lived download link for an archive.
func (s *MinIOStore) PresignDownload(ctx context.Context, bucket, key string) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, bucket, key, PresignedDownloadTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign download for %s: %w", key, err)
	}
	return presigned.String(), nil
}
