// Package objectstore persists attendance and enrolment images and streams
// them back to clients. References are plain keys for the local store,
// "primary://" or "secondary://" prefixed keys for the object stores, and
// absolute URLs for external images.
package objectstore

import (
	"context"
	"io"
)

// Reference prefixes distinguishing storage backends.
const (
	PrefixPrimary   = "primary://"
	PrefixSecondary = "secondary://"
)

// Object is a stored image opened for streaming.
type Object struct {
	Body        io.ReadCloser
	ContentType string
}

// Store is one storage backend for images.
type Store interface {
	// Put stores the bytes under the key and returns the reference to
	// record on the attendance or employee row.
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)

	// Get opens a stored object by reference.
	Get(ctx context.Context, ref string) (*Object, error)
}

// Backend classifies where a stored reference lives.
type Backend string

const (
	BackendLocal     Backend = "local"
	BackendPrimary   Backend = "primary"
	BackendSecondary Backend = "secondary"
	BackendExternal  Backend = "external"
)
