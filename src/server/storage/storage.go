package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStorage holds uploaded item photos and note files. The portal stores
// the stable PublicURL on the post/note record; PresignedURL is for
// time-limited downloads of non-public files.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	PublicURL(key string) string
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Ping(ctx context.Context) error
}
