package interfaces

// Neighbor is a single k-nearest-neighbor search hit. ID is the stable
// row/chunk ID stored alongside the vector at add time, not the internal
// slot position.
type Neighbor struct {
	ID       int
	Distance float32
}

// VectorIndex is a similarity-search structure over embedding vectors.
// Distance metric is squared Euclidean (L2).
type VectorIndex interface {
	// Add appends vectors with their stable IDs. IVF indexes must be
	// trained before Add.
	Add(ids []int, vectors [][]float32) error

	// Search returns up to k neighbors ordered ascending by distance
	Search(query []float32, k int) ([]Neighbor, error)

	// Len returns the number of stored vectors
	Len() int

	// Dimension returns the vector dimensionality
	Dimension() int

	// Kind returns the index variant name ("flat", "hnsw", "ivf")
	Kind() string
}
