package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStorage defines the minimal object storage operations required by the
// solution archive flow. It is intentionally small so we can swap MinIO/AWS-S3
// implementations without touching business logic.
type ObjectStorage interface {
	// PutObject stores an object.
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, size int64, contentType string) error

	// GetObject opens a reader for an object.
	// Caller must close the returned reader.
	GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)

	// StatObject returns size and ETag for an object.
	StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error)

	// PresignGetObject returns a presigned URL for downloading an object via HTTP GET.
	PresignGetObject(ctx context.Context, bucket, objectKey string, ttl time.Duration) (string, error)
}

// ObjectStat describes a stored object.
type ObjectStat struct {
	Size         int64
	ETag         string
	LastModified time.Time
	ContentType  string
}
