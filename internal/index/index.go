// -----------------------------------------------------------------------
// Vector Index - squared-L2 similarity search over embedding vectors
// Flat (exact), HNSW (graph approximate) and IVF (coarse quantized)
// -----------------------------------------------------------------------

package index

import (
	"fmt"
	"sort"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
)

// Options carries construction parameters for all index variants
type Options struct {
	Dimension int

	// HNSW parameters
	M              int
	EfConstruction int
	EfSearch       int

	// IVF parameters
	NList       int
	NProbe      int
	TrainSample int
}

// DefaultOptions returns construction parameters matching the configured
// defaults.
func DefaultOptions(dimension int) Options {
	return Options{
		Dimension:      dimension,
		M:              32,
		EfConstruction: 40,
		EfSearch:       64,
		NList:          100,
		NProbe:         10,
		TrainSample:    10000,
	}
}

// New creates an empty index of the requested kind ("flat", "hnsw", "ivf")
func New(kind string, opts Options) (interfaces.VectorIndex, error) {
	switch kind {
	case "flat":
		return NewFlat(opts.Dimension), nil
	case "hnsw":
		return NewHNSW(opts), nil
	case "ivf":
		return NewIVF(opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown index kind %q", common.ErrModelLoad, kind)
	}
}

// SelectKind resolves the "auto" index kind from the corpus size: IVF
// above the threshold, flat otherwise.
func SelectKind(kind string, corpusSize, ivfThreshold int) string {
	if kind != "auto" {
		return kind
	}
	if ivfThreshold > 0 && corpusSize > ivfThreshold {
		return "ivf"
	}
	return "flat"
}

// sqL2 computes squared Euclidean distance between two vectors
func sqL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// topK keeps the k nearest candidates seen so far. Small helper shared by
// the flat and IVF scans; callers feed every candidate and read the sorted
// result once.
type topK struct {
	k     int
	items []interfaces.Neighbor
}

func newTopK(k int) *topK {
	return &topK{k: k, items: make([]interfaces.Neighbor, 0, k+1)}
}

func (t *topK) push(id int, dist float32) {
	if len(t.items) == t.k && dist >= t.items[len(t.items)-1].Distance {
		return
	}
	pos := sort.Search(len(t.items), func(i int) bool {
		return t.items[i].Distance > dist
	})
	t.items = append(t.items, interfaces.Neighbor{})
	copy(t.items[pos+1:], t.items[pos:])
	t.items[pos] = interfaces.Neighbor{ID: id, Distance: dist}
	if len(t.items) > t.k {
		t.items = t.items[:t.k]
	}
}

func (t *topK) result() []interfaces.Neighbor {
	return t.items
}
