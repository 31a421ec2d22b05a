package retrieval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/models"
	"github.com/scentlab/essentia/internal/services/embeddings"
)

const testDim = 128

func corpus() []models.PerfumeRow {
	return []models.PerfumeRow{
		{ID: 0, Title: "Oud Wood", Rating: 9.2, CombinedText: "oud, sandalwood, vetiver, woody, for men"},
		{ID: 1, Title: "Light Blue", Rating: 8.1, CombinedText: "citrus, apple, fresh, summer, for women"},
		{ID: 2, Title: "La Vie Est Belle", Rating: 8.5, CombinedText: "iris, praline, sweet, gourmand, for women"},
	}
}

func newTestPipeline(t *testing.T, rows []models.PerfumeRow, cacheCapacity int) *Pipeline {
	t.Helper()
	logger := arbor.NewLogger()
	embedder := embeddings.NewMockService(testDim)

	pipeline := NewPipeline(embedder, &common.RetrievalConfig{DefaultK: 3, CacheCapacity: cacheCapacity}, logger)

	builder := NewBuilder(embedder, &common.IndexConfig{Kind: "flat"}, logger)
	idx, err := builder.Build(context.Background(), rows)
	require.NoError(t, err)

	pipeline.SetCorpus(rows, idx)
	return pipeline
}

func TestRetrieveSingleRowExactMatch(t *testing.T) {
	rows := []models.PerfumeRow{{ID: 0, Title: "Oud Wood", Rating: 9.2, CombinedText: "oud, sandalwood, vetiver, woody, for men"}}
	pipeline := newTestPipeline(t, rows, 8)

	// Indexing and querying the same text must give distance 0
	results, err := pipeline.Retrieve(context.Background(), "oud, sandalwood, vetiver, woody, for men", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "Oud Wood", results[0].Row.Title)
	assert.InDelta(t, 0.0, float64(results[0].Distance), 1e-5)
}

func TestRetrieveRanksByRelevance(t *testing.T) {
	pipeline := newTestPipeline(t, corpus(), 8)

	results, err := pipeline.Retrieve(context.Background(), "woody oud perfume for men", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Oud Wood", results[0].Row.Title)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i].Distance, results[i-1].Distance)
	}
}

func TestRetrieveDefaultK(t *testing.T) {
	pipeline := newTestPipeline(t, corpus(), 8)

	results, err := pipeline.Retrieve(context.Background(), "fresh scent", 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRetrieveWithoutCorpusIsRetrievalError(t *testing.T) {
	pipeline := NewPipeline(embeddings.NewMockService(testDim), &common.RetrievalConfig{DefaultK: 3}, arbor.NewLogger())

	_, err := pipeline.Retrieve(context.Background(), "anything", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRetrieval)
}

func TestRetrieveCachesResults(t *testing.T) {
	pipeline := newTestPipeline(t, corpus(), 8)

	first, err := pipeline.Retrieve(context.Background(), "sweet gourmand", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, pipeline.cache.len())

	second, err := pipeline.Retrieve(context.Background(), "sweet gourmand", 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, pipeline.cache.len())

	// Different k is a different cache entry
	_, err = pipeline.Retrieve(context.Background(), "sweet gourmand", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, pipeline.cache.len())
}

func TestSetCorpusPurgesCache(t *testing.T) {
	pipeline := newTestPipeline(t, corpus(), 8)

	_, err := pipeline.Retrieve(context.Background(), "sweet gourmand", 2)
	require.NoError(t, err)
	require.Equal(t, 1, pipeline.cache.len())

	rows := corpus()[:2]
	builder := NewBuilder(embeddings.NewMockService(testDim), &common.IndexConfig{Kind: "flat"}, arbor.NewLogger())
	idx, err := builder.Build(context.Background(), rows)
	require.NoError(t, err)

	pipeline.SetCorpus(rows, idx)
	assert.Equal(t, 0, pipeline.cache.len())
}

func TestLRUCacheEviction(t *testing.T) {
	cache := newLRUCache(2)
	a := cacheKey{query: "a", k: 1}
	b := cacheKey{query: "b", k: 1}
	c := cacheKey{query: "c", k: 1}

	cache.put(a, nil)
	cache.put(b, nil)

	// Touch a so b is the eviction victim
	_, ok := cache.get(a)
	require.True(t, ok)

	cache.put(c, nil)
	_, ok = cache.get(b)
	assert.False(t, ok)
	_, ok = cache.get(a)
	assert.True(t, ok)
	_, ok = cache.get(c)
	assert.True(t, ok)
}

func TestBuildOrLoadRoundTrip(t *testing.T) {
	logger := arbor.NewLogger()
	embedder := embeddings.NewMockService(testDim)
	rows := corpus()
	path := filepath.Join(t.TempDir(), "perfumes.esvi")
	hash := [32]byte{42}

	builder := NewBuilder(embedder, &common.IndexConfig{Kind: "flat", Path: path}, logger)

	built, err := builder.BuildOrLoad(context.Background(), rows, hash)
	require.NoError(t, err)
	require.FileExists(t, path)

	// Second call restores from disk
	loaded, err := builder.BuildOrLoad(context.Background(), rows, hash)
	require.NoError(t, err)
	assert.Equal(t, built.Len(), loaded.Len())

	// A changed dataset hash forces a rebuild instead of a stale load
	rebuilt, err := builder.BuildOrLoad(context.Background(), rows, [32]byte{43})
	require.NoError(t, err)
	assert.Equal(t, built.Len(), rebuilt.Len())
}

func TestBuilderAutoSelectsIVFForLargeCorpus(t *testing.T) {
	logger := arbor.NewLogger()
	embedder := embeddings.NewMockService(16)

	rows := make([]models.PerfumeRow, 1200)
	for i := range rows {
		rows[i] = models.PerfumeRow{ID: i, Title: "P", Rating: 5, CombinedText: corpus()[i%3].CombinedText}
	}

	builder := NewBuilder(embedder, &common.IndexConfig{Kind: "auto", IVFThreshold: 1000, IVF: common.IVFConfig{NList: 16, NProbe: 4}}, logger)
	idx, err := builder.Build(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, "ivf", idx.Kind())
	assert.Equal(t, 1200, idx.Len())
}
