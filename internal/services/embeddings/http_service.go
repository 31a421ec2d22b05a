// -----------------------------------------------------------------------
// Embedding Provider - OpenAI-compatible /v1/embeddings client with a
// CPU fallback endpoint tried when the primary server fails
// -----------------------------------------------------------------------

package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
)

// HTTPService embeds text via an OpenAI-compatible embeddings endpoint
// (llama-server, Ollama and text-embeddings-inference all speak it).
type HTTPService struct {
	primaryURL  string
	fallbackURL string
	model       string
	dimension   int
	batchSize   int
	client      *http.Client
	logger      arbor.ILogger
}

var _ interfaces.Embedder = (*HTTPService)(nil)

// NewHTTPService creates an embedding client from configuration
func NewHTTPService(config *common.EmbeddingsConfig, logger arbor.ILogger) *HTTPService {
	timeout := common.ParseDuration(config.Timeout, 30*time.Second)
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	return &HTTPService{
		primaryURL:  config.URL,
		fallbackURL: config.FallbackURL,
		model:       config.Model,
		dimension:   config.Dimension,
		batchSize:   batchSize,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Encode embeds a batch of texts. The input is split into requests of
// at most the configured batch size; batching never changes output
// values, so results are identical to single-item calls.
func (s *HTTPService) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.encodeBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EncodeQuery embeds a single query string
func (s *HTTPService) EncodeQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.Encode(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// encodeBatch tries the primary endpoint, then the fallback. The
// fallback path mirrors the GPU-unavailable case: the slower CPU server
// answers when the primary is down.
func (s *HTTPService) encodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, primaryErr := s.post(ctx, s.primaryURL, texts)
	if primaryErr == nil {
		return vectors, nil
	}

	if s.fallbackURL == "" || s.fallbackURL == s.primaryURL {
		return nil, fmt.Errorf("%w: embedding request failed: %v", common.ErrModelLoad, primaryErr)
	}

	s.logger.Warn().
		Err(primaryErr).
		Str("fallback_url", s.fallbackURL).
		Msg("Primary embedding endpoint failed, trying fallback")

	vectors, fallbackErr := s.post(ctx, s.fallbackURL, texts)
	if fallbackErr != nil {
		return nil, fmt.Errorf("%w: embedding failed on primary (%v) and fallback (%v)",
			common.ErrModelLoad, primaryErr, fallbackErr)
	}
	return vectors, nil
}

func (s *HTTPService) post(ctx context.Context, baseURL string, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: s.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embeddings endpoint returned %d: %s", resp.StatusCode, string(payload))
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings endpoint returned %d vectors for %d texts", len(parsed.Data), len(texts))
	}

	// The endpoint may return items out of order; the index field is
	// authoritative.
	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })

	vectors := make([][]float32, len(parsed.Data))
	for i, item := range parsed.Data {
		if len(item.Embedding) != s.dimension {
			return nil, fmt.Errorf("embeddings endpoint returned dimension %d, want %d", len(item.Embedding), s.dimension)
		}
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

// Dimension returns the fixed embedding dimensionality
func (s *HTTPService) Dimension() int { return s.dimension }

// ModelName returns the embedding model identifier
func (s *HTTPService) ModelName() string { return s.model }

// IsAvailable checks whether either embedding endpoint is reachable
func (s *HTTPService) IsAvailable(ctx context.Context) bool {
	for _, baseURL := range []string{s.primaryURL, s.fallbackURL} {
		if baseURL == "" {
			continue
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
		if err != nil {
			continue
		}
		resp, err := s.client.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return true
		}
	}
	return false
}
