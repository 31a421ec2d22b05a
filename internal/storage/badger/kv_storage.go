package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/scentlab/essentia/internal/interfaces"
)

// KVStorage stores binary blobs (downloaded PDFs) in Badger
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.KeyValueStorage = (*KVStorage)(nil)

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

func (s *KVStorage) normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// GetBlob retrieves a stored blob by key
func (s *KVStorage) GetBlob(ctx context.Context, key string) ([]byte, error) {
	var entry interfaces.BlobEntry
	err := s.db.Store().Get(s.normalizeKey(key), &entry)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return entry.Data, nil
}

// SetBlob inserts or replaces a blob
func (s *KVStorage) SetBlob(ctx context.Context, key string, data []byte) error {
	entry := interfaces.BlobEntry{
		Key:       s.normalizeKey(key),
		Data:      data,
		CreatedAt: time.Now(),
	}
	if err := s.db.Store().Upsert(entry.Key, &entry); err != nil {
		return fmt.Errorf("failed to set blob: %w", err)
	}
	return nil
}

// DeleteBlob removes a blob. Deleting a missing key is not an error.
func (s *KVStorage) DeleteBlob(ctx context.Context, key string) error {
	err := s.db.Store().Delete(s.normalizeKey(key), &interfaces.BlobEntry{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// DeleteBlobPrefix removes all blobs whose key starts with prefix.
// Used to drop a session's leftover PDFs in one call.
func (s *KVStorage) DeleteBlobPrefix(ctx context.Context, prefix string) error {
	prefix = s.normalizeKey(prefix)

	var entries []interfaces.BlobEntry
	query := badgerhold.Where("Key").MatchFunc(func(ra *badgerhold.RecordAccess) (bool, error) {
		entry, ok := ra.Record().(*interfaces.BlobEntry)
		if !ok {
			return false, nil
		}
		return strings.HasPrefix(entry.Key, prefix), nil
	})
	if err := s.db.Store().Find(&entries, query); err != nil {
		return fmt.Errorf("failed to find blobs by prefix: %w", err)
	}

	for _, entry := range entries {
		if err := s.db.Store().Delete(entry.Key, &interfaces.BlobEntry{}); err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to delete blob %s: %w", entry.Key, err)
		}
	}

	s.logger.Debug().
		Str("prefix", prefix).
		Int("deleted", len(entries)).
		Msg("Deleted blobs by prefix")

	return nil
}
