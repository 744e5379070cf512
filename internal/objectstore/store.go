package objectstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotExist is returned by HeadObject when nothing is stored under the key.
var ErrNotExist = errors.New("object does not exist")

// ObjectInfo describes a stored object without its payload.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// Store is the object storage capability used by the attachment core. The
// API process never moves file bytes itself; it only signs URLs for clients,
// probes for existence and removes objects.
type Store interface {
	// SignUpload returns a time-limited URL that permits a single PUT of an
	// object under key. The client must send the given content type.
	SignUpload(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error)

	// SignRead returns a time-limited URL that permits a GET of key.
	SignRead(ctx context.Context, key string, ttl time.Duration) (string, error)

	// HeadObject fetches object metadata. It returns an error wrapping
	// ErrNotExist when the object is absent.
	HeadObject(ctx context.Context, key string) (ObjectInfo, error)

	// DeleteObject removes the object stored under key. Deleting an absent
	// object is not an error.
	DeleteObject(ctx context.Context, key string) error
}
