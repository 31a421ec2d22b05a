package interfaces

import (
	"context"

	"github.com/scentlab/essentia/internal/models"
)

// FragranceStorage persists scraped fragrance records
type FragranceStorage interface {
	// Upsert stores a record, preserving the existing ID when the URL
	// was scraped before.
	Upsert(ctx context.Context, record *models.FragranceRecord) error
	Get(ctx context.Context, id string) (*models.FragranceRecord, error)
	GetByURL(ctx context.Context, pageURL string) (*models.FragranceRecord, error)
	List(ctx context.Context) ([]models.FragranceRecord, error)
}
