package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCS struct {
	client   *storage.Client
	bucket   string
	maxBytes int64
}

// NewGCS uses application default credentials, or an unauthenticated client
// when STORAGE_EMULATOR_HOST points at a local emulator.
func NewGCS(ctx context.Context, bucket string, maxBytes int64) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")) != "" {
		opts = []option.ClientOption{option.WithoutAuthentication()}
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, maxBytes: maxBytes}, nil
}

func (g *GCS) Download(ctx context.Context, path string) ([]byte, error) {
	obj := g.client.Bucket(g.bucket).Object(strings.TrimPrefix(path, "/"))

	if g.maxBytes > 0 {
		attrs, err := obj.Attrs(ctx)
		if err != nil {
			return nil, g.wrap(err, path)
		}
		if attrs.Size > g.maxBytes {
			return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, attrs.Size)
		}
	}

	rc, err := obj.NewReader(ctx)
	if err != nil {
		return nil, g.wrap(err, path)
	}
	defer rc.Close()
	return readLimited(rc, g.maxBytes)
}

func (g *GCS) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	w := g.client.Bucket(g.bucket).Object(strings.TrimPrefix(path, "/")).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", path, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) wrap(err error, path string) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: gs://%s/%s", ErrNotFound, g.bucket, path)
	}
	return fmt.Errorf("gcs %s: %w", path, err)
}
