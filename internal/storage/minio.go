package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/noteshelf/noteshelf/config"
)

// minioBackend stores archives in a MinIO or other S3-compatible bucket.
type minioBackend struct {
	api    *minio.Client
	bucket string
}

func newMinioBackend(cfg config.MinioConfig) (*minioBackend, error) {
	if err := missingSettings("minio",
		"endpoint", cfg.Endpoint,
		"access key", cfg.AccessKey,
		"secret key", cfg.SecretKey,
		"bucket", cfg.Bucket,
	); err != nil {
		return nil, err
	}

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: %w", err)
	}
	return &minioBackend{api: api, bucket: cfg.Bucket}, nil
}

func (m *minioBackend) EnsureBucket(ctx context.Context) error {
	found, err := m.api.BucketExists(ctx, m.bucket)
	switch {
	case err != nil:
		return fmt.Errorf("minio: check bucket %s: %w", m.bucket, err)
	case found:
		return nil
	}
	if err := m.api.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("minio: create bucket %s: %w", m.bucket, err)
	}
	return nil
}

func (m *minioBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := m.api.PutObject(ctx, m.bucket, key, r, size, opts); err != nil {
		return fmt.Errorf("minio: put %s: %w", key, err)
	}
	return nil
}

// Get fetches key. GetObject is lazy, so the object is stat'ed before it is
// handed out to surface a missing key as ErrObjectNotFound.
func (m *minioBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.api.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio: get %s: %w", key, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minioNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("minio: stat %s: %w", key, err)
	}
	return obj, nil
}

// Delete removes key. Removing a missing key is not an error.
func (m *minioBackend) Delete(ctx context.Context, key string) error {
	if err := m.api.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio: delete %s: %w", key, err)
	}
	return nil
}

func (m *minioBackend) Bucket() string { return m.bucket }

// Close is a no-op; the MinIO client keeps no long-lived connections.
func (m *minioBackend) Close() error { return nil }

func minioNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
