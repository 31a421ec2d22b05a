// -----------------------------------------------------------------------
// Fragrance Scraper Service - renders a fragrance page, parses it into
// a structured record, flattens it to searchable text and persists it.
// -----------------------------------------------------------------------

package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/models"
)

// Service implements interfaces.FragranceScraper
type Service struct {
	renderer PageRenderer
	storage  interfaces.FragranceStorage
	logger   arbor.ILogger
}

var _ interfaces.FragranceScraper = (*Service)(nil)

// NewService creates a scraper. Storage may be nil, in which case
// records are returned without being persisted.
func NewService(config *common.ScraperConfig, storage interfaces.FragranceStorage, logger arbor.ILogger) *Service {
	timeout := common.ParseDuration(config.RequestTimeout, 30*time.Second)

	var renderer PageRenderer
	if config.EnableJavaScript {
		renderer = &chromeRenderer{
			userAgent: config.UserAgent,
			wait:      common.ParseDuration(config.JavaScriptWait, 5*time.Second),
			timeout:   timeout,
			logger:    logger,
		}
	} else {
		renderer = &plainRenderer{
			client:    &http.Client{Timeout: timeout},
			userAgent: config.UserAgent,
		}
	}

	return &Service{
		renderer: renderer,
		storage:  storage,
		logger:   logger,
	}
}

// Scrape fetches and parses one fragrance page
func (s *Service) Scrape(ctx context.Context, pageURL string) (*models.FragranceRecord, error) {
	s.logger.Info().Str("url", pageURL).Msg("Scraping fragrance page")

	html, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}

	record, err := parseFragrance(pageURL, html)
	if err != nil {
		return nil, err
	}

	record.ID = uuid.NewString()
	record.ScrapedAt = time.Now().UTC()
	record.CombinedText = combinedText(record)

	if s.storage != nil {
		if err := s.storage.Upsert(ctx, record); err != nil {
			return nil, fmt.Errorf("persist record: %w", err)
		}
	}

	s.logger.Info().
		Str("name", record.Name).
		Str("brand", record.Brand).
		Int("accords", len(record.MainAccords)).
		Msg("Fragrance page scraped")
	return record, nil
}

// combinedText flattens a record into the searchable text form used by
// dataset rows.
func combinedText(r *models.FragranceRecord) string {
	var b strings.Builder

	b.WriteString(r.Name)
	if r.Brand != "" {
		fmt.Fprintf(&b, " by %s", r.Brand)
	}
	b.WriteString(".")

	if r.Gender != "" {
		fmt.Fprintf(&b, " Gender: %s.", r.Gender)
	}
	if r.RatingValue > 0 {
		fmt.Fprintf(&b, " Rating: %.2f out of 5 from %d votes.", r.RatingValue, r.RatingCount)
	}

	if len(r.MainAccords) > 0 {
		names := make([]string, 0, len(r.MainAccords))
		for _, accord := range r.MainAccords {
			names = append(names, accord.Name)
		}
		fmt.Fprintf(&b, " Main accords: %s.", strings.Join(names, ", "))
	}

	writeNotes := func(label string, notes []string) {
		if len(notes) > 0 {
			fmt.Fprintf(&b, " %s notes: %s.", label, strings.Join(notes, ", "))
		}
	}
	writeNotes("Top", r.Notes.Top)
	writeNotes("Middle", r.Notes.Middle)
	writeNotes("Base", r.Notes.Base)

	if r.Longevity != "" {
		fmt.Fprintf(&b, " Longevity: %s.", r.Longevity)
	}
	if r.Sillage != "" {
		fmt.Fprintf(&b, " Sillage: %s.", r.Sillage)
	}
	if r.Description != "" {
		b.WriteString(" ")
		b.WriteString(r.Description)
	}

	return b.String()
}
