package session

import (
	"context"
)

// ObjectStore stores uploaded resources and hands back their public URLs.
type ObjectStore interface {
	UploadObject(ctx context.Context, filename, contentType string, data []byte) (string, error)
}
