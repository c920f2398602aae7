package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// GCSStore stores objects in a Google Cloud Storage bucket.  Credentials
// come from Application Default Credentials.
type GCSStore struct {
	client     *gcs.Client
	bucket     string
	publicRead bool
}

// NewGCSStore opens a client for bucket.  With publicRead set, uploaded
// objects get the publicRead ACL so the returned URL is directly readable.
func NewGCSStore(ctx context.Context, bucket string, publicRead bool) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, publicRead: publicRead}, nil
}

func (s *GCSStore) baseURL() string {
	return "https://storage.googleapis.com/" + s.bucket + "/"
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if s.publicRead {
		w.PredefinedACL = "publicRead"
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", key, err)
	}
	return s.baseURL() + key, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *GCSStore) KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, s.baseURL()) {
		return "", false
	}
	return strings.TrimPrefix(url, s.baseURL()), true
}

// Close releases the underlying client.
func (s *GCSStore) Close() error { return s.client.Close() }
