package storage

import (
	"context"
	"errors"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores documents as objects <Prefix>/<key> in a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	Bucket string
	Prefix string
}

// NewGCSClient builds a storage client. An empty credentials file falls back
// to application default credentials.
func NewGCSClient(ctx context.Context, credentialsFile string) (*storage.Client, error) {
	if credentialsFile != "" {
		return storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	}
	return storage.NewClient(ctx)
}

// NewGCS returns a GCS backend using client.
func NewGCS(client *storage.Client, bucket, prefix string) *GCS {
	return &GCS{client: client, Bucket: bucket, Prefix: prefix}
}

func (g *GCS) objectName(key string) string {
	if g.Prefix == "" {
		return key
	}
	return path.Join(g.Prefix, key)
}

func (g *GCS) Read(ctx context.Context, key string) ([]byte, error) {
	rd, err := g.client.Bucket(g.Bucket).Object(g.objectName(key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("read", key, err)
	}
	defer rd.Close()

	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, unavailable("read", key, err)
	}
	return data, nil
}

// Write uploads the whole document; the object is replaced only when Close succeeds.
func (g *GCS) Write(ctx context.Context, key string, data []byte) error {
	w := g.client.Bucket(g.Bucket).Object(g.objectName(key)).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return unavailable("write", key, err)
	}
	if err := w.Close(); err != nil {
		return unavailable("write", key, err)
	}
	return nil
}

// EnsureRoot checks that the bucket exists and is reachable.
func (g *GCS) EnsureRoot(ctx context.Context) error {
	if _, err := g.client.Bucket(g.Bucket).Attrs(ctx); err != nil {
		return unavailable("ensure root", "", err)
	}
	return nil
}

func (g *GCS) String() string {
	return "gcs:" + g.Bucket + "/" + g.Prefix
}

// Close closes the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}
