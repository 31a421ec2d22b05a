package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/models"
)

// FragranceStorage persists scraped fragrance records
type FragranceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.FragranceStorage = (*FragranceStorage)(nil)

// NewFragranceStorage creates a fragrance record store
func NewFragranceStorage(db *BadgerDB, logger arbor.ILogger) *FragranceStorage {
	return &FragranceStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert stores a scraped record, replacing any prior scrape of the
// same URL.
func (s *FragranceStorage) Upsert(ctx context.Context, record *models.FragranceRecord) error {
	existing, err := s.GetByURL(ctx, record.URL)
	if err == nil {
		record.ID = existing.ID
	}
	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to upsert fragrance record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID
func (s *FragranceStorage) Get(ctx context.Context, id string) (*models.FragranceRecord, error) {
	var record models.FragranceRecord
	err := s.db.Store().Get(id, &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fragrance record: %w", err)
	}
	return &record, nil
}

// GetByURL retrieves a record by its source page URL
func (s *FragranceStorage) GetByURL(ctx context.Context, pageURL string) (*models.FragranceRecord, error) {
	var records []models.FragranceRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("URL").Eq(pageURL)); err != nil {
		return nil, fmt.Errorf("failed to query fragrance records: %w", err)
	}
	if len(records) == 0 {
		return nil, interfaces.ErrKeyNotFound
	}
	return &records[0], nil
}

// List returns all stored records
func (s *FragranceStorage) List(ctx context.Context) ([]models.FragranceRecord, error) {
	var records []models.FragranceRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list fragrance records: %w", err)
	}
	return records, nil
}
