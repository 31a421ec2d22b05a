// -----------------------------------------------------------------------
// Paper discovery - arXiv Atom API search with Semantic Scholar
// citation enrichment and a curated offline fallback
// -----------------------------------------------------------------------

package papers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/models"
)

// ArxivClient queries the arXiv Atom API. Outbound requests are rate
// limited per arXiv's usage policy.
type ArxivClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// NewArxivClient creates an arXiv search client
func NewArxivClient(config *common.PapersConfig, logger arbor.ILogger) *ArxivClient {
	interval := common.ParseDuration(config.RateLimit, 3*time.Second)
	return &ArxivClient{
		baseURL:   strings.TrimRight(config.ArxivURL, "/"),
		userAgent: config.UserAgent,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		logger:    logger,
	}
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// Search queries arXiv sorted by relevance. yearFilter, when non-zero,
// restricts results to papers submitted in or after that year.
func (c *ArxivClient) Search(ctx context.Context, query string, maxResults, yearFilter int) ([]models.Paper, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	searchQuery := fmt.Sprintf("all:%s", query)
	if yearFilter > 0 {
		searchQuery += fmt.Sprintf(" AND submittedDate:[%d01010000 TO *]", yearFilter)
	}

	params := url.Values{}
	params.Set("search_query", searchQuery)
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	params.Set("sortBy", "relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create arXiv request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv returned status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode arXiv feed: %w", err)
	}

	papers := make([]models.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		papers = append(papers, entryToPaper(entry))
	}

	c.logger.Info().
		Str("query", query).
		Int("results", len(papers)).
		Msg("arXiv search complete")

	return papers, nil
}

func entryToPaper(entry atomEntry) models.Paper {
	// The entry ID looks like http://arxiv.org/abs/1706.03762v5
	arxivID := entry.ID
	if i := strings.LastIndex(arxivID, "/"); i >= 0 {
		arxivID = arxivID[i+1:]
	}

	names := make([]string, 0, 3)
	for i, author := range entry.Authors {
		if i == 3 {
			break
		}
		names = append(names, author.Name)
	}

	year := 0
	if len(entry.Published) >= 4 {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			year = t.Year()
		}
	}

	abstract := strings.TrimSpace(entry.Summary)
	if len(abstract) > 500 {
		abstract = abstract[:500] + "..."
	}

	pdfURL := ""
	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			pdfURL = link.Href
			break
		}
	}

	return models.Paper{
		Title:    strings.Join(strings.Fields(entry.Title), " "),
		Authors:  strings.Join(names, ", "),
		Year:     year,
		Abstract: abstract,
		PDFURL:   pdfURL,
		ArxivID:  arxivID,
	}
}
