// -----------------------------------------------------------------------
// Retrieval Pipeline - embeds a query, searches the vector index and
// maps stable vector IDs back to dataset rows, with a bounded LRU cache
// in front
// -----------------------------------------------------------------------

package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/models"
)

// Pipeline answers similarity queries over the perfume corpus. The
// corpus and index are replaced atomically on rebuild; replacement
// purges the result cache so stale hits cannot survive a rebuild.
type Pipeline struct {
	embedder interfaces.Embedder
	defaultK int
	cache    *lruCache
	logger   arbor.ILogger

	mu    sync.RWMutex
	index interfaces.VectorIndex
	rows  map[int]models.PerfumeRow
}

// NewPipeline creates a retrieval pipeline with no corpus attached
func NewPipeline(embedder interfaces.Embedder, config *common.RetrievalConfig, logger arbor.ILogger) *Pipeline {
	defaultK := config.DefaultK
	if defaultK <= 0 {
		defaultK = 3
	}
	return &Pipeline{
		embedder: embedder,
		defaultK: defaultK,
		cache:    newLRUCache(config.CacheCapacity),
		logger:   logger,
	}
}

// SetCorpus installs a freshly built or loaded index with its rows.
// Row IDs must match the IDs stored in the index.
func (p *Pipeline) SetCorpus(rows []models.PerfumeRow, index interfaces.VectorIndex) {
	byID := make(map[int]models.PerfumeRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	p.mu.Lock()
	p.index = index
	p.rows = byID
	p.mu.Unlock()

	p.cache.purge()
	p.logger.Info().
		Int("rows", len(rows)).
		Str("index_kind", index.Kind()).
		Msg("Retrieval corpus installed")
}

// Ready reports whether a corpus has been installed
func (p *Pipeline) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.index != nil
}

// CorpusSize returns the number of indexed rows
func (p *Pipeline) CorpusSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.index == nil {
		return 0
	}
	return p.index.Len()
}

// Retrieve returns the top-k rows for a query, nearest first. k <= 0
// uses the configured default. Embedding or search failures come back
// as ErrRetrieval; an empty result with a nil error means no matches.
func (p *Pipeline) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedPerfume, error) {
	if k <= 0 {
		k = p.defaultK
	}

	key := cacheKey{query: query, k: k}
	if cached, ok := p.cache.get(key); ok {
		p.logger.Debug().Str("query", query).Int("k", k).Msg("Retrieval cache hit")
		return cached, nil
	}

	p.mu.RLock()
	index := p.index
	rows := p.rows
	p.mu.RUnlock()

	if index == nil {
		return nil, fmt.Errorf("%w: no corpus loaded", common.ErrRetrieval)
	}

	vector, err := p.embedder.EncodeQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding failed: %v", common.ErrRetrieval, err)
	}

	neighbors, err := index.Search(vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: index search failed: %v", common.ErrRetrieval, err)
	}

	results := make([]models.RetrievedPerfume, 0, len(neighbors))
	for _, n := range neighbors {
		row, ok := rows[n.ID]
		if !ok {
			// A missing ID means the index and corpus diverged
			return nil, fmt.Errorf("%w: index returned unknown row id %d", common.ErrRetrieval, n.ID)
		}
		results = append(results, models.RetrievedPerfume{Row: row, Distance: n.Distance})
	}

	p.cache.put(key, results)
	return results, nil
}
