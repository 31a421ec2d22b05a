package papers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/scentlab/essentia/internal/common"
)

// SemanticScholarClient looks up citation counts for arXiv papers
type SemanticScholarClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewSemanticScholarClient creates a Semantic Scholar client
func NewSemanticScholarClient(config *common.PapersConfig, logger arbor.ILogger) *SemanticScholarClient {
	interval := common.ParseDuration(config.RateLimit, 3*time.Second)
	return &SemanticScholarClient{
		baseURL: strings.TrimRight(config.SemanticURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
	}
}

// CitationCount returns the citation count for an arXiv paper. Lookup
// failures degrade to zero; citation data only affects ranking.
func (c *SemanticScholarClient) CitationCount(ctx context.Context, arxivID string) int {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0
	}

	// Strip the version suffix, Semantic Scholar indexes the bare ID
	if i := strings.IndexByte(arxivID, 'v'); i > 0 {
		arxivID = arxivID[:i]
	}

	endpoint := fmt.Sprintf("%s/graph/v1/paper/arXiv:%s?fields=citationCount", c.baseURL, arxivID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("arxiv_id", arxivID).Msg("Citation lookup failed")
		return 0
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0
	}

	var parsed struct {
		CitationCount int `json:"citationCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0
	}
	return parsed.CitationCount
}
