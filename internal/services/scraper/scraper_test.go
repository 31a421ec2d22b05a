package scraper

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/models"
)

const fragrancePage = `<!DOCTYPE html>
<html><body>
<h1 itemprop="name">Khamrah for women and men <span itemprop="name">Lattafa Perfumes</span></h1>
<div itemprop="aggregateRating">
  <span itemprop="ratingValue">4.22</span>
  <span itemprop="ratingCount">12,482</span>
</div>
<div class="accords">
  <div class="accord-box"><div class="accord-bar" style="background: #333; width: 100.0%;">cinnamon</div></div>
  <div class="accord-box"><div class="accord-bar" style="width: 87.5%;">vanilla</div></div>
  <div class="accord-box"><div class="accord-bar" style="width: 62.31%;">sweet</div></div>
</div>
<div id="pyramid">
  <h4>Top Notes</h4>
  <div><a href="/notes/cinnamon">Cinnamon</a><a href="/notes/nutmeg">Nutmeg</a><a href="/notes/bergamot">Bergamot</a></div>
  <h4>Middle Notes</h4>
  <div><a href="/notes/dates">Dates</a><a href="/notes/praline">Praline</a></div>
  <h4>Base Notes</h4>
  <div><a href="/notes/vanilla">Vanilla</a><a href="/notes/tonka">Tonka Bean</a></div>
</div>
<div class="vote-bars">
  <div><span class="vote-button-legend">weak</span><div style="width: 12.0%;"></div></div>
  <div><span class="vote-button-legend">long lasting</span><div style="width: 78.0%;"></div></div>
  <div><span class="vote-button-legend">intimate</span><div style="width: 20.0%;"></div></div>
  <div><span class="vote-button-legend">enormous</span><div style="width: 55.0%;"></div></div>
</div>
<div itemprop="description"><p>Khamrah is an <strong>oriental</strong> fragrance.</p></div>
</body></html>`

func TestParseFragrancePage(t *testing.T) {
	record, err := parseFragrance("https://example.com/perfume/khamrah", fragrancePage)
	require.NoError(t, err)

	assert.Equal(t, "Khamrah", record.Name)
	assert.Equal(t, "Lattafa Perfumes", record.Brand)
	assert.Equal(t, "unisex", record.Gender)
	assert.InDelta(t, 4.22, record.RatingValue, 0.001)
	assert.Equal(t, 12482, record.RatingCount)

	require.Len(t, record.MainAccords, 3)
	assert.Equal(t, "cinnamon", record.MainAccords[0].Name)
	assert.InDelta(t, 100.0, record.MainAccords[0].Percentage, 0.001)
	assert.Equal(t, "vanilla", record.MainAccords[1].Name)
	assert.InDelta(t, 87.5, record.MainAccords[1].Percentage, 0.001)

	assert.Equal(t, []string{"Cinnamon", "Nutmeg", "Bergamot"}, record.Notes.Top)
	assert.Equal(t, []string{"Dates", "Praline"}, record.Notes.Middle)
	assert.Equal(t, []string{"Vanilla", "Tonka Bean"}, record.Notes.Base)

	assert.Equal(t, "long lasting", record.Longevity)
	assert.Equal(t, "enormous", record.Sillage)
	assert.Contains(t, record.Description, "**oriental**")
}

func TestParseFragranceGenderVariants(t *testing.T) {
	tests := []struct {
		name       string
		heading    string
		wantName   string
		wantGender string
	}{
		{"unisex", "Khamrah for women and men", "Khamrah", "unisex"},
		{"women", "Delina for women", "Delina", "women"},
		{"men", "Sauvage for men", "Sauvage", "men"},
		{"none", "Molecule 01", "Molecule 01", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := `<html><body><h1 itemprop="name">` + tt.heading + `</h1></body></html>`
			record, err := parseFragrance("https://example.com/p", html)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, record.Name)
			assert.Equal(t, tt.wantGender, record.Gender)
		})
	}
}

func TestParseFragranceMissingName(t *testing.T) {
	_, err := parseFragrance("https://example.com/p", "<html><body><p>blocked</p></body></html>")
	require.Error(t, err)
}

func TestParsePercentage(t *testing.T) {
	assert.InDelta(t, 62.31, parsePercentage("background: red; width: 62.31%;"), 0.001)
	assert.InDelta(t, 0.0, parsePercentage("height: 10px;"), 0.001)
	assert.InDelta(t, 0.0, parsePercentage(""), 0.001)
}

// ----- service -----

type staticRenderer struct {
	html string
}

func (r *staticRenderer) Render(_ context.Context, _ string) (string, error) {
	return r.html, nil
}

type memFragranceStore struct {
	mu      sync.Mutex
	records map[string]*models.FragranceRecord // keyed by URL
}

func (s *memFragranceStore) Upsert(_ context.Context, record *models.FragranceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make(map[string]*models.FragranceRecord)
	}
	if prior, ok := s.records[record.URL]; ok {
		record.ID = prior.ID
	}
	s.records[record.URL] = record
	return nil
}

func (s *memFragranceStore) Get(_ context.Context, id string) (*models.FragranceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (s *memFragranceStore) GetByURL(_ context.Context, pageURL string) (*models.FragranceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[pageURL], nil
}

func (s *memFragranceStore) List(_ context.Context) ([]models.FragranceRecord, error) {
	return nil, nil
}

func TestScrapePersistsAndFlattens(t *testing.T) {
	store := &memFragranceStore{}
	service := NewService(&common.ScraperConfig{EnableJavaScript: false, RequestTimeout: "5s"}, store, arbor.NewLogger())
	service.renderer = &staticRenderer{html: fragrancePage}

	record, err := service.Scrape(context.Background(), "https://example.com/perfume/khamrah")
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.False(t, record.ScrapedAt.IsZero())
	assert.Contains(t, record.CombinedText, "Khamrah by Lattafa Perfumes.")
	assert.Contains(t, record.CombinedText, "Main accords: cinnamon, vanilla, sweet.")
	assert.Contains(t, record.CombinedText, "Top notes: Cinnamon, Nutmeg, Bergamot.")
	assert.Contains(t, record.CombinedText, "Longevity: long lasting.")

	stored, err := store.GetByURL(context.Background(), "https://example.com/perfume/khamrah")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, record.ID, stored.ID)
}

func TestRescrapePreservesID(t *testing.T) {
	store := &memFragranceStore{}
	service := NewService(&common.ScraperConfig{RequestTimeout: "5s"}, store, arbor.NewLogger())
	service.renderer = &staticRenderer{html: fragrancePage}

	first, err := service.Scrape(context.Background(), "https://example.com/perfume/khamrah")
	require.NoError(t, err)
	second, err := service.Scrape(context.Background(), "https://example.com/perfume/khamrah")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}
