package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/interfaces"
)

// ScrapePayload is the /api/scrape request body
type ScrapePayload struct {
	URL string `json:"url" validate:"required,url"`
}

// ScrapeHandler scrapes fragrance pages on demand
type ScrapeHandler struct {
	scraper interfaces.FragranceScraper
	logger  arbor.ILogger
}

// NewScrapeHandler creates a scrape handler
func NewScrapeHandler(scraper interfaces.FragranceScraper, logger arbor.ILogger) *ScrapeHandler {
	return &ScrapeHandler{
		scraper: scraper,
		logger:  logger,
	}
}

// ScrapeHandler handles POST /api/scrape
func (h *ScrapeHandler) ScrapeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var payload ScrapePayload
	if err := DecodeAndValidate(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.scraper.Scrape(r.Context(), payload.URL)
	if err != nil {
		h.logger.Error().Err(err).Str("url", payload.URL).Msg("Scrape failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"fragrance": record,
	})
}
