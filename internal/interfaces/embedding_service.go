package interfaces

import "context"

// Embedder converts batches of text to fixed-dimension vectors.
// Batching affects throughput only, never output values.
type Embedder interface {
	// Encode embeds a batch of texts. len(result) == len(texts).
	Encode(ctx context.Context, texts []string) ([][]float32, error)

	// EncodeQuery embeds a single query string (batch of one)
	EncodeQuery(ctx context.Context, query string) ([]float32, error)

	// Dimension returns the fixed embedding dimensionality
	Dimension() int

	// ModelName returns the embedding model identifier
	ModelName() string

	// IsAvailable checks whether the embedding backend is reachable
	IsAvailable(ctx context.Context) bool
}
