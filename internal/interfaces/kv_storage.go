package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key does not exist in storage
var ErrKeyNotFound = errors.New("key not found")

// BlobEntry is a stored binary blob with bookkeeping fields
type BlobEntry struct {
	Key       string    `badgerhold:"key"`
	Data      []byte
	CreatedAt time.Time
}

// KeyValueStorage stores binary blobs (downloaded PDFs) and small string
// values (API keys) in the embedded database.
type KeyValueStorage interface {
	GetBlob(ctx context.Context, key string) ([]byte, error)
	SetBlob(ctx context.Context, key string, data []byte) error
	DeleteBlob(ctx context.Context, key string) error

	// DeleteBlobPrefix removes all blobs whose key starts with prefix.
	// Used to drop a session's leftover PDFs in one call.
	DeleteBlobPrefix(ctx context.Context, prefix string) error
}
