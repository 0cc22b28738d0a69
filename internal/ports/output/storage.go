// Package output defines the secondary/driven ports of the application.
package output

import (
	"context"
	"io"
)

// ExportSink defines the secondary port receiving written exports.
type ExportSink interface {
	// Write stores content under key, replacing any previous object.
	Write(ctx context.Context, key string, content []byte) error

	// Open returns a reader for a previously written object.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeAzure StorageType = "azure"
	StorageTypeHTTP  StorageType = "http"
	StorageTypeLocal StorageType = "local"
)
