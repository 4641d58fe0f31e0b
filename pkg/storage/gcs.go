package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCS stores uploads in a bucket and returns their public object URL.
type GCS struct {
	client *gcstorage.Client
	bucket string
}

// NewGCS opens a Cloud Storage client. An empty credsFile uses Application
// Default Credentials.
func NewGCS(ctx context.Context, bucket, credsFile string, logg *logger.Logger) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	var opts []option.ClientOption
	if credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}
	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", bucket), "gcs client initialized")
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Save(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	wc := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType
	wc.ChunkSize = 0
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", objectName, err)
	}
	return PublicURL(g.bucket, objectName), nil
}

func (g *GCS) Delete(ctx context.Context, url string) error {
	prefix := PublicURL(g.bucket, "")
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	err := g.client.Bucket(g.bucket).Object(strings.TrimPrefix(url, prefix)).Delete(ctx)
	if err != nil && !errors.Is(err, gcstorage.ErrObjectNotExist) {
		return err
	}
	return nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// PublicURL builds the public URL for an object in bucket.
func PublicURL(bucket, objectName string) string {
	return fmt.Sprintf("%s/%s/%s", gcsPublicHost, bucket, objectName)
}
