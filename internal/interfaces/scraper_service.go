package interfaces

import (
	"context"

	"github.com/scentlab/essentia/internal/models"
)

// FragranceScraper scrapes a fragrance page into a structured record
type FragranceScraper interface {
	Scrape(ctx context.Context, pageURL string) (*models.FragranceRecord, error)
}
