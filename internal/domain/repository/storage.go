package repository

import (
	"context"
	"io"
	"time"
)

// ObjectStorage defines the interface for media storage operations.
// Keys are paths relative to the configured media root (bucket).
type ObjectStorage interface {
	// GeneratePresignedUploadURL creates a presigned URL for direct client upload.
	// key is the object path within the bucket (e.g., "originals/{video_id}/movie.mp4").
	GeneratePresignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// Upload stores an object, replacing any existing object under the same key.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Download retrieves an object. Returns ErrObjectNotFound if it does not
	// exist. Caller is responsible for closing the returned ReadCloser.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object. Deleting an object that is already gone
	// succeeds silently.
	Delete(ctx context.Context, key string) error

	// RemoveByPrefix deletes every object whose key starts with prefix.
	// An empty prefix match is success, not an error.
	RemoveByPrefix(ctx context.Context, prefix string) error

	// Exists checks if an object exists in the storage.
	Exists(ctx context.Context, key string) (bool, error)
}
