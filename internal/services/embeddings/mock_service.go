package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"

	"github.com/scentlab/essentia/internal/interfaces"
)

// MockService produces deterministic unit-norm vectors derived from the
// input text's word set. Identical texts always map to identical
// vectors, and texts sharing words land near each other, which is
// enough structure for offline development and tests.
type MockService struct {
	dimension int
}

var _ interfaces.Embedder = (*MockService)(nil)

// NewMockService creates a mock embedder with the given dimensionality
func NewMockService(dimension int) *MockService {
	return &MockService{dimension: dimension}
}

// Encode embeds each text independently, so batching is trivially
// equivalent to single-item calls.
func (s *MockService) Encode(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = s.embed(text)
	}
	return vectors, nil
}

// EncodeQuery embeds a single query string
func (s *MockService) EncodeQuery(_ context.Context, query string) ([]float32, error) {
	return s.embed(query), nil
}

// embed sums a deterministic pseudo-random vector per word, then
// normalizes. Word order does not matter, matching bag-of-words
// similarity closely enough for retrieval tests.
func (s *MockService) embed(text string) []float32 {
	vec := make([]float64, s.dimension)
	words := strings.Fields(strings.ToLower(text))
	for _, word := range words {
		word = strings.Trim(word, ".,;:!?\"'()")
		if word == "" {
			continue
		}
		h := fnv.New64a()
		h.Write([]byte(word))
		rng := rand.New(rand.NewSource(int64(h.Sum64())))
		for d := range vec {
			vec[d] += rng.NormFloat64()
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	result := make([]float32, s.dimension)
	for d, v := range vec {
		result[d] = float32(v / norm)
	}
	return result
}

// Dimension returns the fixed embedding dimensionality
func (s *MockService) Dimension() int { return s.dimension }

// ModelName identifies the mock backend
func (s *MockService) ModelName() string { return "mock" }

// IsAvailable always succeeds for the mock backend
func (s *MockService) IsAvailable(_ context.Context) bool { return true }
