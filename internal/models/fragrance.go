package models

import "time"

// Accord is a fragrance accord with its page bar-width percentage
type Accord struct {
	Name       string  `json:"accord"`
	Percentage float64 `json:"percentage"`
}

// NotePyramid holds the top/middle/base note structure of a fragrance
type NotePyramid struct {
	Top    []string `json:"top"`
	Middle []string `json:"middle"`
	Base   []string `json:"base"`
}

// FragranceRecord is a scraped fragrance page, persisted via badgerhold.
// CombinedText is the flattened searchable text used for dataset rows.
type FragranceRecord struct {
	ID           string      `json:"id" badgerhold:"key"`
	URL          string      `json:"url" badgerhold:"unique"`
	Name         string      `json:"name"`
	Brand        string      `json:"brand"`
	Gender       string      `json:"gender"`
	RatingValue  float64     `json:"rating_value"`
	RatingCount  int         `json:"rating_count"`
	MainAccords  []Accord    `json:"main_accords"`
	Notes        NotePyramid `json:"notes"`
	Description  string      `json:"description"` // Markdown converted from the page HTML
	Longevity    string      `json:"longevity"`
	Sillage      string      `json:"sillage"`
	CombinedText string      `json:"combined_text"`
	ScrapedAt    time.Time   `json:"scraped_at"`
}
