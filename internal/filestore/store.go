// Package filestore defines the unified interface for object storage
// backends used to publish generated scope catalogs.
//
// All providers (MinIO, S3, …) implement the Store interface. Callers
// depend only on this package — never on a specific provider package.
package filestore

import (
	"context"
	"io"
)

// Store is the single interface all object storage providers must implement.
// Scoped to what report publishing needs: bucket setup and object writes.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// EnsureBucket creates bucket when it does not exist yet.
	EnsureBucket(ctx context.Context, bucket string) error

	// PutObject writes size bytes from r to key inside bucket,
	// overwriting any existing object.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
}

// Config holds all settings needed to connect to an object storage backend.
type Config struct {
	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used by region-aware backends (e.g. AWS S3).
	// Leave empty for MinIO.
	Region string
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
	}
}
