package storage

import (
	"context"
	"errors"
	"io"
)

// DefaultBucket holds post images.
const DefaultBucket = "post-images"

var (
	// ErrInvalidKey indicates an object key that is empty or escapes the bucket.
	ErrInvalidKey = errors.New("invalid object key")

	// ErrObjectNotFound is returned by Remove when the object does not exist.
	ErrObjectNotFound = errors.New("object not found")
)

// Bucket is an object store addressed by key with publicly readable objects.
type Bucket interface {
	// Upload stores r under key. It fails if the key already exists.
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error

	// PublicURL returns the stable public address of key. It does no I/O.
	PublicURL(key string) string

	// Remove deletes key.
	Remove(ctx context.Context, key string) error
}
