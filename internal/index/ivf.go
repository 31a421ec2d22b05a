package index

import (
	"fmt"

	"github.com/scentlab/essentia/internal/interfaces"
)

// IVF is an inverted-file index: vectors are partitioned into nlist
// clusters around k-means centroids and a search scans only the nprobe
// nearest clusters. Must be trained before Add.
type IVF struct {
	dim     int
	nlist   int
	nprobe  int
	sample  int
	trained bool

	centroids [][]float32
	// lists[c] holds the entries assigned to centroid c
	lists [][]ivfEntry
	count int
}

type ivfEntry struct {
	id  int
	vec []float32
}

var _ interfaces.VectorIndex = (*IVF)(nil)

// NewIVF creates an untrained IVF index
func NewIVF(opts Options) *IVF {
	nlist := opts.NList
	if nlist <= 0 {
		nlist = 100
	}
	nprobe := opts.NProbe
	if nprobe <= 0 {
		nprobe = 10
	}
	return &IVF{
		dim:    opts.Dimension,
		nlist:  nlist,
		nprobe: nprobe,
		sample: opts.TrainSample,
	}
}

// Trained reports whether centroids have been computed
func (v *IVF) Trained() bool { return v.trained }

// Train computes nlist centroids by k-means over a sample of the vectors.
// nlist is clamped to the training set size.
func (v *IVF) Train(vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("cannot train IVF index on empty vector set")
	}
	for i, vec := range vectors {
		if len(vec) != v.dim {
			return fmt.Errorf("training vector %d has dimension %d, want %d", i, len(vec), v.dim)
		}
	}

	train := vectors
	if v.sample > 0 && len(train) > v.sample {
		// Deterministic strided sample
		stride := len(train) / v.sample
		sampled := make([][]float32, 0, v.sample)
		for i := 0; i < len(train) && len(sampled) < v.sample; i += stride {
			sampled = append(sampled, train[i])
		}
		train = sampled
	}

	nlist := v.nlist
	if nlist > len(train) {
		nlist = len(train)
	}

	v.centroids = kmeans(train, nlist, 20)
	v.lists = make([][]ivfEntry, len(v.centroids))
	v.trained = true
	return nil
}

// Add assigns vectors to their nearest centroid's inverted list
func (v *IVF) Add(ids []int, vectors [][]float32) error {
	if !v.trained {
		return fmt.Errorf("IVF index must be trained before adding vectors")
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids/vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != v.dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(vec), v.dim)
		}
		c := v.nearestCentroid(vec)
		v.lists[c] = append(v.lists[c], ivfEntry{id: ids[i], vec: vec})
		v.count++
	}
	return nil
}

func (v *IVF) nearestCentroid(vec []float32) int {
	best := 0
	bestDist := sqL2(vec, v.centroids[0])
	for c := 1; c < len(v.centroids); c++ {
		if d := sqL2(vec, v.centroids[c]); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Search scans the nprobe nearest clusters for up to k neighbors
func (v *IVF) Search(query []float32, k int) ([]interfaces.Neighbor, error) {
	if !v.trained {
		return nil, fmt.Errorf("IVF index is not trained")
	}
	if len(query) != v.dim {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), v.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	nprobe := v.nprobe
	if nprobe > len(v.centroids) {
		nprobe = len(v.centroids)
	}

	// Rank centroids by distance to the query
	probes := newTopK(nprobe)
	for c, centroid := range v.centroids {
		probes.push(c, sqL2(query, centroid))
	}

	best := newTopK(k)
	for _, p := range probes.result() {
		for _, entry := range v.lists[p.ID] {
			best.push(entry.id, sqL2(query, entry.vec))
		}
	}
	return best.result(), nil
}

// Len returns the number of stored vectors
func (v *IVF) Len() int { return v.count }

// Dimension returns the vector dimensionality
func (v *IVF) Dimension() int { return v.dim }

// Kind returns the index variant name
func (v *IVF) Kind() string { return "ivf" }

// kmeans runs Lloyd's algorithm with deterministic strided initialization
func kmeans(vectors [][]float32, k, iterations int) [][]float32 {
	dim := len(vectors[0])

	centroids := make([][]float32, k)
	stride := len(vectors) / k
	if stride == 0 {
		stride = 1
	}
	for i := 0; i < k; i++ {
		src := vectors[(i*stride)%len(vectors)]
		centroids[i] = append([]float32(nil), src...)
	}

	assignments := make([]int, len(vectors))
	for iter := 0; iter < iterations; iter++ {
		changed := false
		for i, vec := range vectors {
			best := 0
			bestDist := sqL2(vec, centroids[0])
			for c := 1; c < k; c++ {
				if d := sqL2(vec, centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, vec := range vectors {
			c := assignments[i]
			counts[c]++
			for d, val := range vec {
				sums[c][d] += float64(val)
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue // keep empty centroid in place
			}
			for d := 0; d < dim; d++ {
				centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
		}
	}

	return centroids
}
