package papers

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/models"
)

// SearchService combines arXiv search with citation enrichment and
// client-side citation filtering.
type SearchService struct {
	arxiv    *ArxivClient
	semantic *SemanticScholarClient
	logger   arbor.ILogger
}

// NewSearchService creates a paper search service
func NewSearchService(config *common.PapersConfig, logger arbor.ILogger) *SearchService {
	return &SearchService{
		arxiv:    NewArxivClient(config, logger),
		semantic: NewSemanticScholarClient(config, logger),
		logger:   logger,
	}
}

// Search finds candidate papers for a topic. When minCitations is set,
// three times the requested count is fetched so the client-side filter
// can still fill the request; the top `limit` survivors are returned.
// A failed search degrades to the curated fallback set rather than an
// error.
func (s *SearchService) Search(ctx context.Context, topic string, limit, yearFilter, minCitations int) []models.Paper {
	fetchLimit := limit
	if minCitations > 0 {
		fetchLimit = limit * 3
	}

	results, err := s.arxiv.Search(ctx, topic, fetchLimit, yearFilter)
	if err != nil || len(results) == 0 {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("arXiv search failed, using curated fallback papers")
		return FallbackPapers(topic)
	}

	for i := range results {
		results[i].CitationCount = s.semantic.CitationCount(ctx, results[i].ArxivID)
	}

	if minCitations > 0 {
		filtered := results[:0]
		for _, paper := range results {
			if paper.CitationCount >= minCitations {
				filtered = append(filtered, paper)
			}
		}
		results = filtered
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
