package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
)

// Uploader publishes built dataset files to a Google Cloud Storage
// bucket. Authentication comes from Application Default Credentials.
type Uploader struct {
	client *storage.Client
	bucket string
}

// NewUploader wraps an existing storage client.
func NewUploader(client *storage.Client, bucket string) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// Connect builds an uploader with a fresh client and verifies the bucket
// is reachable, so misconfiguration fails at startup rather than after
// the dataset has been built.
func Connect(ctx context.Context, bucket string) (*Uploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("access bucket %q: %w", bucket, err)
	}
	return NewUploader(client, bucket)
}

// Upload streams the file at localPath into the bucket under objectName
// and returns the resulting gs:// URI.
func (u *Uploader) Upload(ctx context.Context, localPath, objectName string) (string, error) {
	if strings.TrimSpace(objectName) == "" {
		return "", fmt.Errorf("object name is required")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open dataset file: %w", err)
	}
	defer f.Close()

	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := io.Copy(w, f); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return "", fmt.Errorf("upload object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("upload object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", u.bucket, objectName), nil
}

// Close releases the underlying client.
func (u *Uploader) Close() error {
	return u.client.Close()
}
