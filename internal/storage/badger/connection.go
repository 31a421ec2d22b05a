// -----------------------------------------------------------------------
// Badger Connection - owns the embedded badgerhold store backing the
// KV blob staging area and the fragrance catalogue.
// -----------------------------------------------------------------------

package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/scentlab/essentia/internal/common"
)

// BadgerDB wraps one open badgerhold store. All storage services share
// a single connection; Badger holds an exclusive directory lock.
type BadgerDB struct {
	store  *badgerhold.Store
	path   string
	logger arbor.ILogger
}

// NewBadgerDB opens the store at the configured path, creating the
// directory when absent. With reset_on_startup the previous database is
// wiped first, which is the default for the PDF staging workload since
// staged blobs never outlive their setup call.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.ResetOnStartup {
		if err := os.RemoveAll(config.Path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", config.Path).Msg("Could not remove previous database")
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	opts := badgerhold.DefaultOptions
	opts.Dir = config.Path
	opts.ValueDir = config.Path
	opts.Logger = nil // arbor handles logging

	store, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store at %s: %w", config.Path, err)
	}

	logger.Info().Str("path", config.Path).Bool("reset", config.ResetOnStartup).Msg("Badger store opened")

	return &BadgerDB{
		store:  store,
		path:   config.Path,
		logger: logger,
	}, nil
}

// Store exposes the badgerhold handle to the storage services
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close releases the store and its directory lock
func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	b.logger.Debug().Str("path", b.path).Msg("Closing Badger store")
	return b.store.Close()
}
