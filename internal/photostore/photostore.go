package photostore

import (
	"context"
	"io"
)

// PhotoStore is the blob storage boundary: durable bytes in, stable key out.
// Implementations must treat keys as opaque identifiers chosen by the caller.
type PhotoStore interface {
	Save(ctx context.Context, key, mimeType string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
