package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/noteshelf/noteshelf/config"
	"google.golang.org/api/option"
)

// gcsBackend stores archives in a Google Cloud Storage bucket.
type gcsBackend struct {
	api     *gcs.Client
	handle  *gcs.BucketHandle
	bucket  string
	project string
}

func newGCSBackend(ctx context.Context, cfg config.GCSConfig) (*gcsBackend, error) {
	if err := missingSettings("gcs", "bucket", cfg.Bucket); err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	api, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: %w", err)
	}
	return &gcsBackend{
		api:     api,
		handle:  api.Bucket(cfg.Bucket),
		bucket:  cfg.Bucket,
		project: cfg.ProjectID,
	}, nil
}

// EnsureBucket creates the bucket when it is missing, which needs a project.
func (g *gcsBackend) EnsureBucket(ctx context.Context) error {
	_, err := g.handle.Attrs(ctx)
	if !errors.Is(err, gcs.ErrBucketNotExist) {
		if err != nil {
			return fmt.Errorf("gcs: check bucket %s: %w", g.bucket, err)
		}
		return nil
	}
	if g.project == "" {
		return fmt.Errorf("gcs: bucket %s does not exist and no project id is set to create it", g.bucket)
	}
	if err := g.handle.Create(ctx, g.project, nil); err != nil {
		return fmt.Errorf("gcs: create bucket %s: %w", g.bucket, err)
	}
	return nil
}

func (g *gcsBackend) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	w := g.handle.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	_, copyErr := io.Copy(w, r)
	closeErr := w.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return fmt.Errorf("gcs: put %s: %w", key, err)
	}
	return nil
}

func (g *gcsBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.handle.Object(key).NewReader(ctx)
	switch {
	case errors.Is(err, gcs.ErrObjectNotExist):
		return nil, ErrObjectNotFound
	case err != nil:
		return nil, fmt.Errorf("gcs: get %s: %w", key, err)
	}
	return r, nil
}

// Delete removes key. Removing a missing key is not an error, matching S3.
func (g *gcsBackend) Delete(ctx context.Context, key string) error {
	err := g.handle.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("gcs: delete %s: %w", key, err)
	}
	return nil
}

func (g *gcsBackend) Bucket() string { return g.bucket }

func (g *gcsBackend) Close() error { return g.api.Close() }
