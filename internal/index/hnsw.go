package index

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"

	"github.com/scentlab/essentia/internal/interfaces"
)

// HNSW is a navigable-small-world graph index. Search is approximate:
// results may omit the true nearest neighbor by design. EfSearch trades
// recall for speed at query time, EfConstruction at build time.
type HNSW struct {
	dim            int
	m              int // max links per node on upper layers
	mMax0          int // max links on layer 0 (2*m)
	efConstruction int
	efSearch       int
	levelMult      float64

	nodes    []hnswNode
	entry    int // slot of the entry point, -1 when empty
	maxLevel int
	rng      *rand.Rand
}

type hnswNode struct {
	id    int
	vec   []float32
	level int
	// links[l] holds neighbor slots on layer l, 0 <= l <= level
	links [][]int
}

var _ interfaces.VectorIndex = (*HNSW)(nil)

// NewHNSW creates an empty HNSW index with the given parameters
func NewHNSW(opts Options) *HNSW {
	m := opts.M
	if m <= 0 {
		m = 16
	}
	return &HNSW{
		dim:            opts.Dimension,
		m:              m,
		mMax0:          2 * m,
		efConstruction: max(opts.EfConstruction, m),
		efSearch:       max(opts.EfSearch, 1),
		levelMult:      1.0 / math.Log(float64(m)),
		entry:          -1,
		// Fixed seed keeps level assignment reproducible across builds
		rng: rand.New(rand.NewSource(42)),
	}
}

// Add inserts vectors one at a time into the graph
func (h *HNSW) Add(ids []int, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids/vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != h.dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), h.dim)
		}
		h.insert(ids[i], v)
	}
	return nil
}

func (h *HNSW) randomLevel() int {
	return int(math.Floor(-math.Log(h.rng.Float64()) * h.levelMult))
}

func (h *HNSW) insert(id int, vec []float32) {
	level := h.randomLevel()
	node := hnswNode{id: id, vec: vec, level: level, links: make([][]int, level+1)}
	slot := len(h.nodes)
	h.nodes = append(h.nodes, node)

	if h.entry < 0 {
		h.entry = slot
		h.maxLevel = level
		return
	}

	ep := h.entry
	// Greedy descent through layers above the new node's level
	for l := h.maxLevel; l > level; l-- {
		ep = h.greedyClosest(vec, ep, l)
	}

	// Connect on each layer from min(level, maxLevel) down to 0
	for l := min(level, h.maxLevel); l >= 0; l-- {
		candidates := h.searchLayer(vec, []int{ep}, h.efConstruction, l)
		maxLinks := h.m
		if l == 0 {
			maxLinks = h.mMax0
		}
		neighbors := candidates
		if len(neighbors) > maxLinks {
			neighbors = neighbors[:maxLinks]
		}
		for _, n := range neighbors {
			h.nodes[slot].links[l] = append(h.nodes[slot].links[l], n.slot)
			h.nodes[n.slot].links[l] = append(h.nodes[n.slot].links[l], slot)
			h.pruneLinks(n.slot, l, maxLinks)
		}
		if len(candidates) > 0 {
			ep = candidates[0].slot
		}
	}

	if level > h.maxLevel {
		h.maxLevel = level
		h.entry = slot
	}
}

// pruneLinks trims a node's layer links back to maxLinks, keeping the
// closest neighbors.
func (h *HNSW) pruneLinks(slot, layer, maxLinks int) {
	links := h.nodes[slot].links[layer]
	if len(links) <= maxLinks {
		return
	}
	best := newTopK(maxLinks)
	for _, n := range links {
		best.push(n, sqL2(h.nodes[slot].vec, h.nodes[n].vec))
	}
	pruned := make([]int, 0, maxLinks)
	for _, n := range best.result() {
		pruned = append(pruned, n.ID)
	}
	h.nodes[slot].links[layer] = pruned
}

// greedyClosest walks a single layer greedily toward the query
func (h *HNSW) greedyClosest(query []float32, ep, layer int) int {
	cur := ep
	curDist := sqL2(query, h.nodes[cur].vec)
	for {
		improved := false
		for _, n := range h.nodes[cur].links[layer] {
			if d := sqL2(query, h.nodes[n].vec); d < curDist {
				cur, curDist = n, d
				improved = true
			}
		}
		if !improved {
			return cur
		}
	}
}

type scoredSlot struct {
	slot int
	dist float32
}

// minSlotHeap pops the closest slot first
type minSlotHeap []scoredSlot

func (h minSlotHeap) Len() int            { return len(h) }
func (h minSlotHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h minSlotHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minSlotHeap) Push(x interface{}) { *h = append(*h, x.(scoredSlot)) }
func (h *minSlotHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// maxSlotHeap pops the farthest slot first
type maxSlotHeap []scoredSlot

func (h maxSlotHeap) Len() int            { return len(h) }
func (h maxSlotHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h maxSlotHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxSlotHeap) Push(x interface{}) { *h = append(*h, x.(scoredSlot)) }
func (h *maxSlotHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// searchLayer performs the beam search on a single layer, returning up to
// ef results sorted ascending by distance.
func (h *HNSW) searchLayer(query []float32, entryPoints []int, ef, layer int) []scoredSlot {
	visited := make(map[int]bool, ef*4)
	candidates := &minSlotHeap{}
	results := &maxSlotHeap{}

	for _, ep := range entryPoints {
		if visited[ep] {
			continue
		}
		visited[ep] = true
		d := sqL2(query, h.nodes[ep].vec)
		heap.Push(candidates, scoredSlot{ep, d})
		heap.Push(results, scoredSlot{ep, d})
	}

	for candidates.Len() > 0 {
		closest := heap.Pop(candidates).(scoredSlot)
		if results.Len() >= ef && closest.dist > (*results)[0].dist {
			break
		}
		for _, n := range h.nodes[closest.slot].links[layer] {
			if visited[n] {
				continue
			}
			visited[n] = true
			d := sqL2(query, h.nodes[n].vec)
			if results.Len() < ef || d < (*results)[0].dist {
				heap.Push(candidates, scoredSlot{n, d})
				heap.Push(results, scoredSlot{n, d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	// Drain the max-heap into ascending order
	out := make([]scoredSlot, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(scoredSlot)
	}
	return out
}

// Search returns up to k approximate neighbors ordered ascending by distance
func (h *HNSW) Search(query []float32, k int) ([]interfaces.Neighbor, error) {
	if len(query) != h.dim {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), h.dim)
	}
	if k <= 0 || h.entry < 0 {
		return nil, nil
	}

	ep := h.entry
	for l := h.maxLevel; l > 0; l-- {
		ep = h.greedyClosest(query, ep, l)
	}

	ef := max(h.efSearch, k)
	found := h.searchLayer(query, []int{ep}, ef, 0)
	if len(found) > k {
		found = found[:k]
	}

	neighbors := make([]interfaces.Neighbor, len(found))
	for i, s := range found {
		neighbors[i] = interfaces.Neighbor{ID: h.nodes[s.slot].id, Distance: s.dist}
	}
	return neighbors, nil
}

// Len returns the number of stored vectors
func (h *HNSW) Len() int { return len(h.nodes) }

// Dimension returns the vector dimensionality
func (h *HNSW) Dimension() int { return h.dim }

// Kind returns the index variant name
func (h *HNSW) Kind() string { return "hnsw" }
