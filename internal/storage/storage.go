// Package storage provides the object-storage layer Seismetry reads
// input datasets from and publishes run artifacts to.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound     = errors.New("object not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrUploadFailed       = errors.New("upload failed")
	ErrDownloadFailed     = errors.New("download failed")
	ErrDeleteFailed       = errors.New("delete failed")
)

// ObjectStorage abstracts object storage operations. Implementations are
// S3 and the local filesystem; the latter doubles as the test backend.
// Inputs may be fetched as whole objects and every run artifact (CSV
// exports, chart pages, results database, manifest) is published through
// this interface under a per-run prefix.
type ObjectStorage interface {
	// Upload uploads a local file to object storage.
	Upload(ctx context.Context, localPath, objectPath string) error

	// UploadMultipart uploads using multipart for large files and
	// returns the ETag of the stored object.
	UploadMultipart(ctx context.Context, localPath, objectPath string) (string, error)

	// Download downloads an object to a local file.
	Download(ctx context.Context, objectPath, localPath string) error

	// PutBytes stores an in-memory artifact as an object.
	PutBytes(ctx context.Context, objectPath string, data []byte) error

	// GetBytes reads a whole object into memory. Input datasets are
	// small (order 10^4 rows), so whole-object reads are the norm here.
	GetBytes(ctx context.Context, objectPath string) ([]byte, error)

	// Delete removes an object. Deleting a missing object is not an
	// error.
	Delete(ctx context.Context, objectPath string) error

	// Exists checks whether an object exists.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ConditionalPut uploads only if the stored object still carries
	// the given ETag (empty string for create-if-absent semantics).
	// Used to advance the latest-run pointer atomically.
	ConditionalPut(ctx context.Context, localPath, objectPath, etag string) error

	// ListObjects returns all object paths under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// MultipartUploadConfig holds configuration for multipart uploads.
type MultipartUploadConfig struct {
	// PartSize is the size of each part in bytes (default: 5MB).
	PartSize int64
	// Concurrency is the number of concurrent part uploads (default: 5).
	Concurrency int
}

// DefaultMultipartConfig returns the default multipart upload configuration.
func DefaultMultipartConfig() MultipartUploadConfig {
	return MultipartUploadConfig{
		PartSize:    5 * 1024 * 1024, // 5MB
		Concurrency: 5,
	}
}
