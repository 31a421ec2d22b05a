package index

import (
	"fmt"

	"github.com/scentlab/essentia/internal/interfaces"
)

// Flat is an exhaustive exact-search index. Every query computes the
// distance to every stored vector, so results are ground truth.
type Flat struct {
	dim     int
	ids     []int
	vectors [][]float32
}

var _ interfaces.VectorIndex = (*Flat)(nil)

// NewFlat creates an empty flat index
func NewFlat(dimension int) *Flat {
	return &Flat{dim: dimension}
}

// Add appends vectors with their stable IDs
func (f *Flat) Add(ids []int, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids/vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), f.dim)
		}
	}
	f.ids = append(f.ids, ids...)
	f.vectors = append(f.vectors, vectors...)
	return nil
}

// Search returns up to k neighbors ordered ascending by distance
func (f *Flat) Search(query []float32, k int) ([]interfaces.Neighbor, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	best := newTopK(k)
	for i, v := range f.vectors {
		best.push(f.ids[i], sqL2(query, v))
	}
	return best.result(), nil
}

// Len returns the number of stored vectors
func (f *Flat) Len() int { return len(f.vectors) }

// Dimension returns the vector dimensionality
func (f *Flat) Dimension() int { return f.dim }

// Kind returns the index variant name
func (f *Flat) Kind() string { return "flat" }
