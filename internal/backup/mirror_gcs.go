package backup

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

// GCSMirror replicates snapshots to a Google Cloud Storage bucket.
type GCSMirror struct {
	client *storage.Client
	bucket string
}

// NewGCSMirror creates a GCS-backed snapshot mirror.
func NewGCSMirror(client *storage.Client, bucket string) (*GCSMirror, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCSMirror{client: client, bucket: bucket}, nil
}

// PutObject uploads data and returns a gs:// URI.
func (m *GCSMirror) PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	writer := m.client.Bucket(m.bucket).Object(path).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", m.bucket, path), nil
}
