package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
)

const testDim = 8

// fakeEmbeddingsServer answers /v1/embeddings with per-text vectors
// whose first component encodes the text length, so tests can tell
// results apart.
func fakeEmbeddingsServer(t *testing.T, requestCount *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		*requestCount++

		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i, text := range req.Input {
			vec := make([]float32, testDim)
			vec[0] = float32(len(text))
			data[i] = item{Index: i, Embedding: vec}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}))
}

func newTestService(url, fallbackURL string, batchSize int) *HTTPService {
	return NewHTTPService(&common.EmbeddingsConfig{
		Mode:        "http",
		URL:         url,
		FallbackURL: fallbackURL,
		Model:       "all-MiniLM-L6-v2",
		Dimension:   testDim,
		BatchSize:   batchSize,
		Timeout:     "5s",
	}, arbor.NewLogger())
}

func TestEncodeBatchContract(t *testing.T) {
	requests := 0
	server := fakeEmbeddingsServer(t, &requests)
	defer server.Close()

	svc := newTestService(server.URL, "", 2)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := svc.Encode(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, vectors, len(texts))
	for i, vec := range vectors {
		require.Len(t, vec, testDim)
		assert.Equal(t, float32(len(texts[i])), vec[0])
	}
	// 5 texts at batch size 2 means 3 requests
	assert.Equal(t, 3, requests)
}

func TestEncodeEmptyInput(t *testing.T) {
	svc := newTestService("http://localhost:1", "", 2)
	vectors, err := svc.Encode(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEncodeFallsBackWhenPrimaryDown(t *testing.T) {
	requests := 0
	fallback := fakeEmbeddingsServer(t, &requests)
	defer fallback.Close()

	// Primary points at a closed port
	svc := newTestService("http://127.0.0.1:1", fallback.URL, 8)

	vec, err := svc.EncodeQuery(context.Background(), "woody perfume")
	require.NoError(t, err)
	assert.Len(t, vec, testDim)
	assert.Equal(t, 1, requests)
}

func TestEncodeFailsWhenBothEndpointsDown(t *testing.T) {
	svc := newTestService("http://127.0.0.1:1", "http://127.0.0.1:2", 8)

	_, err := svc.Encode(context.Background(), []string{"anything"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrModelLoad)
}

func TestEncodeRejectsWrongDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 0, "embedding": []float32{1, 2}},
			},
		})
	}))
	defer server.Close()

	svc := newTestService(server.URL, "", 8)
	_, err := svc.Encode(context.Background(), []string{"short vector"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestMockEmbeddingIsDeterministic(t *testing.T) {
	mock := NewMockService(384)

	first, err := mock.EncodeQuery(context.Background(), "woody perfume for men")
	require.NoError(t, err)
	second, err := mock.EncodeQuery(context.Background(), "woody perfume for men")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 384)
}

func TestMockBatchingEquivalentToSingleCalls(t *testing.T) {
	mock := NewMockService(64)
	texts := []string{"oud and sandalwood", "fresh citrus", "vanilla amber"}

	batched, err := mock.Encode(context.Background(), texts)
	require.NoError(t, err)

	for i, text := range texts {
		single, err := mock.EncodeQuery(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, batched[i])
	}
}

func TestMockSimilarTextsAreCloser(t *testing.T) {
	mock := NewMockService(128)
	ctx := context.Background()

	base, err := mock.EncodeQuery(ctx, "woody oud sandalwood")
	require.NoError(t, err)
	near, err := mock.EncodeQuery(ctx, "woody oud vetiver")
	require.NoError(t, err)
	far, err := mock.EncodeQuery(ctx, "sweet fruity strawberry")
	require.NoError(t, err)

	sq := func(a, b []float32) float32 {
		var sum float32
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return sum
	}
	assert.Less(t, sq(base, near), sq(base, far))
}
