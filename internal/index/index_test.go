package index

import (
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
)

func randomVectors(t *testing.T, n, dim int, seed int64) ([]int, [][]float32) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	ids := make([]int, n)
	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		ids[i] = i
		vec := make([]float32, dim)
		for d := range vec {
			vec[d] = rng.Float32()*2 - 1
		}
		vectors[i] = vec
	}
	return ids, vectors
}

// bruteForce computes the exact k nearest neighbors by exhaustive scan
func bruteForce(query []float32, ids []int, vectors [][]float32, k int) []interfaces.Neighbor {
	all := make([]interfaces.Neighbor, len(vectors))
	for i, vec := range vectors {
		all[i] = interfaces.Neighbor{ID: ids[i], Distance: sqL2(query, vec)}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Distance < all[j].Distance })
	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}

func TestFlatMatchesBruteForce(t *testing.T) {
	const dim = 16
	ids, vectors := randomVectors(t, 200, dim, 1)

	f := NewFlat(dim)
	require.NoError(t, f.Add(ids, vectors))
	assert.Equal(t, 200, f.Len())

	_, queries := randomVectors(t, 10, dim, 2)
	for _, query := range queries {
		got, err := f.Search(query, 5)
		require.NoError(t, err)
		want := bruteForce(query, ids, vectors, 5)

		require.Len(t, got, 5)
		for i := range got {
			assert.Equal(t, want[i].ID, got[i].ID)
			assert.InDelta(t, want[i].Distance, got[i].Distance, 1e-5)
		}
	}
}

func TestSearchResultsSortedAscending(t *testing.T) {
	const dim = 8
	ids, vectors := randomVectors(t, 100, dim, 3)

	for _, kind := range []string{"flat", "hnsw"} {
		t.Run(kind, func(t *testing.T) {
			idx, err := New(kind, DefaultOptions(dim))
			require.NoError(t, err)
			require.NoError(t, idx.Add(ids, vectors))

			got, err := idx.Search(vectors[0], 10)
			require.NoError(t, err)
			require.Len(t, got, 10)
			for i := 1; i < len(got); i++ {
				assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
			}
		})
	}
}

func TestSearchReturnsAtMostCorpusSize(t *testing.T) {
	const dim = 4
	ids, vectors := randomVectors(t, 3, dim, 4)

	f := NewFlat(dim)
	require.NoError(t, f.Add(ids, vectors))

	got, err := f.Search(vectors[0], 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestFlatExactMatchHasZeroDistance(t *testing.T) {
	const dim = 8
	ids, vectors := randomVectors(t, 50, dim, 5)

	f := NewFlat(dim)
	require.NoError(t, f.Add(ids, vectors))

	got, err := f.Search(vectors[17], 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 17, got[0].ID)
	assert.InDelta(t, 0.0, float64(got[0].Distance), 1e-6)
}

func TestHNSWFindsExactMatch(t *testing.T) {
	const dim = 16
	ids, vectors := randomVectors(t, 300, dim, 6)

	h := NewHNSW(DefaultOptions(dim))
	require.NoError(t, h.Add(ids, vectors))
	assert.Equal(t, 300, h.Len())

	// An indexed vector queried against itself must come back first
	for _, probe := range []int{0, 42, 150, 299} {
		got, err := h.Search(vectors[probe], 3)
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.Equal(t, probe, got[0].ID)
		assert.InDelta(t, 0.0, float64(got[0].Distance), 1e-6)
	}
}

func TestHNSWRecall(t *testing.T) {
	const dim = 16
	ids, vectors := randomVectors(t, 500, dim, 7)

	h := NewHNSW(DefaultOptions(dim))
	require.NoError(t, h.Add(ids, vectors))

	_, queries := randomVectors(t, 20, dim, 8)
	hits, total := 0, 0
	for _, query := range queries {
		got, err := h.Search(query, 10)
		require.NoError(t, err)
		want := bruteForce(query, ids, vectors, 10)

		exact := make(map[int]bool, len(want))
		for _, n := range want {
			exact[n.ID] = true
		}
		for _, n := range got {
			total++
			if exact[n.ID] {
				hits++
			}
		}
	}
	recall := float64(hits) / float64(total)
	assert.Greater(t, recall, 0.8, "recall@10 too low: %.2f", recall)
}

func TestIVFRequiresTraining(t *testing.T) {
	const dim = 8
	ids, vectors := randomVectors(t, 10, dim, 9)

	v := NewIVF(DefaultOptions(dim))
	assert.False(t, v.Trained())

	err := v.Add(ids, vectors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trained")

	_, err = v.Search(vectors[0], 3)
	require.Error(t, err)
}

func TestIVFSearchAfterTraining(t *testing.T) {
	const dim = 16
	ids, vectors := randomVectors(t, 400, dim, 10)

	opts := DefaultOptions(dim)
	opts.NList = 16
	opts.NProbe = 16 // probe everything for exact results
	v := NewIVF(opts)
	require.NoError(t, v.Train(vectors))
	require.NoError(t, v.Add(ids, vectors))
	assert.Equal(t, 400, v.Len())

	_, queries := randomVectors(t, 5, dim, 11)
	for _, query := range queries {
		got, err := v.Search(query, 5)
		require.NoError(t, err)
		want := bruteForce(query, ids, vectors, 5)
		require.Len(t, got, 5)
		for i := range got {
			assert.Equal(t, want[i].ID, got[i].ID)
		}
	}
}

func TestDimensionMismatchRejected(t *testing.T) {
	f := NewFlat(8)
	err := f.Add([]int{0}, [][]float32{make([]float32, 4)})
	require.Error(t, err)

	_, err = f.Search(make([]float32, 4), 1)
	require.Error(t, err)
}

func TestSelectKind(t *testing.T) {
	tests := []struct {
		name       string
		kind       string
		corpusSize int
		want       string
	}{
		{"explicit flat wins", "flat", 100000, "flat"},
		{"explicit hnsw wins", "hnsw", 10, "hnsw"},
		{"auto small corpus", "auto", 500, "flat"},
		{"auto at threshold", "auto", 1000, "flat"},
		{"auto above threshold", "auto", 1001, "ivf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectKind(tt.kind, tt.corpusSize, 1000))
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	const dim = 8
	ids, vectors := randomVectors(t, 120, dim, 12)
	hash := [32]byte{1, 2, 3}

	build := map[string]func(t *testing.T) interfaces.VectorIndex{
		"flat": func(t *testing.T) interfaces.VectorIndex {
			f := NewFlat(dim)
			require.NoError(t, f.Add(ids, vectors))
			return f
		},
		"hnsw": func(t *testing.T) interfaces.VectorIndex {
			h := NewHNSW(DefaultOptions(dim))
			require.NoError(t, h.Add(ids, vectors))
			return h
		},
		"ivf": func(t *testing.T) interfaces.VectorIndex {
			opts := DefaultOptions(dim)
			opts.NList = 8
			v := NewIVF(opts)
			require.NoError(t, v.Train(vectors))
			require.NoError(t, v.Add(ids, vectors))
			return v
		},
	}

	for kind, buildFn := range build {
		t.Run(kind, func(t *testing.T) {
			orig := buildFn(t)
			path := filepath.Join(t.TempDir(), "index.esvi")
			require.NoError(t, Save(path, orig, hash))

			loaded, err := Load(path, DefaultOptions(dim), hash)
			require.NoError(t, err)
			assert.Equal(t, orig.Kind(), loaded.Kind())
			assert.Equal(t, orig.Len(), loaded.Len())
			assert.Equal(t, dim, loaded.Dimension())

			// Loaded index must answer queries identically
			for _, probe := range []int{0, 50, 119} {
				origRes, err := orig.Search(vectors[probe], 5)
				require.NoError(t, err)
				loadedRes, err := loaded.Search(vectors[probe], 5)
				require.NoError(t, err)
				assert.Equal(t, origRes, loadedRes)
			}
		})
	}
}

func TestLoadRejectsDatasetHashMismatch(t *testing.T) {
	const dim = 8
	ids, vectors := randomVectors(t, 20, dim, 13)

	f := NewFlat(dim)
	require.NoError(t, f.Add(ids, vectors))

	path := filepath.Join(t.TempDir(), "index.esvi")
	require.NoError(t, Save(path, f, [32]byte{1}))

	_, err := Load(path, DefaultOptions(dim), [32]byte{2})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrIndexMismatch)
}
