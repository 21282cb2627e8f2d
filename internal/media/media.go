package media

import (
	"context"
	"io"
)

// Store persists an uploaded file and returns its durable public URL.
type Store interface {
	Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
}
