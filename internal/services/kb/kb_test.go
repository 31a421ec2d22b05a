package kb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/services/embeddings"
	"github.com/scentlab/essentia/internal/services/generation"
	"github.com/scentlab/essentia/internal/services/llm"
	"github.com/scentlab/essentia/internal/services/papers"
)

// ----- test doubles -----

// memKV is an in-memory KeyValueStorage
type memKV struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{blobs: make(map[string][]byte)}
}

func (m *memKV) GetBlob(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, interfaces.ErrKeyNotFound
	}
	return data, nil
}

func (m *memKV) SetBlob(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return nil
}

func (m *memKV) DeleteBlob(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *memKV) DeleteBlobPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.blobs {
		if strings.HasPrefix(key, prefix) {
			delete(m.blobs, key)
		}
	}
	return nil
}

func (m *memKV) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// stubExtractor returns canned text but insists the staged blob exists,
// proving extraction runs after the PDF is stored.
type stubExtractor struct {
	kv   *memKV
	text string
}

func (e *stubExtractor) ExtractTextFromBytes(_ context.Context, _ []byte, _ int) (string, error) {
	return e.text, nil
}

func (e *stubExtractor) ExtractText(ctx context.Context, storageKey string, _ int) (string, error) {
	if _, err := e.kv.GetBlob(ctx, storageKey); err != nil {
		return "", fmt.Errorf("blob not staged: %w", err)
	}
	return e.text, nil
}

// offlineProvider fails every generation permanently, forcing the
// deterministic fallback path with no retries or sleeps.
type offlineProvider struct{}

func (p *offlineProvider) Generate(_ context.Context, _ *interfaces.GenerateRequest) interfaces.GenerateResult {
	return interfaces.GenerateResult{Failure: interfaces.FailurePermanent, Err: errors.New("model offline")}
}

func (p *offlineProvider) GenerateStream(ctx context.Context, req *interfaces.GenerateRequest, _ func(string)) interfaces.GenerateResult {
	return p.Generate(ctx, req)
}

func (p *offlineProvider) Name() string                      { return "offline" }
func (p *offlineProvider) HealthCheck(context.Context) error { return nil }

var _ interfaces.GenerationProvider = (*offlineProvider)(nil)

// ----- fixtures -----

// paperText is long enough to survive the minimum chunk size
var paperText = strings.Repeat(
	"Neural sequence models learn contextual representations from large corpora of unlabeled text. ", 12)

func atomFeed(pdfBase string, count int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom">`)
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, `<entry>
  <id>http://arxiv.org/abs/2000.0000%dv1</id>
  <title>Paper Number %d</title>
  <summary>Abstract of paper number %d.</summary>
  <published>2020-01-0%dT00:00:00Z</published>
  <author><name>Author %d</name></author>
  <link title="pdf" href="%s/paper%d.pdf" rel="related" type="application/pdf"/>
</entry>`, i, i, i, i+1, i, pdfBase, i)
	}
	b.WriteString(`</feed>`)
	return b.String()
}

func testConfig(arxivURL string) *common.Config {
	config := common.NewDefaultConfig()
	config.Papers.ArxivURL = arxivURL
	config.Papers.SemanticURL = "http://127.0.0.1:1" // citation lookups fail fast to zero
	config.Papers.RateLimit = "1ms"
	config.Papers.DownloadRetries = 1
	config.Papers.DownloadTimeout = "5s"
	config.Papers.Workers = 3
	return config
}

func newTestService(t *testing.T, paperCount int, failPaper func(path string) bool) *Service {
	t.Helper()
	logger := arbor.NewLogger()

	pdfServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failPaper != nil && failPaper(r.URL.Path) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 " + strings.Repeat("x", 600)))
	}))
	t.Cleanup(pdfServer.Close)

	arxivServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, atomFeed(pdfServer.URL, paperCount))
	}))
	t.Cleanup(arxivServer.Close)

	config := testConfig(arxivServer.URL)
	kv := newMemKV()
	generator := generation.NewService(&offlineProvider{}, llm.NewRetryPolicy(logger), logger)

	return NewService(
		papers.NewSearchService(&config.Papers, logger),
		papers.NewDownloader(&config.Papers, logger),
		&stubExtractor{kv: kv, text: paperText},
		kv,
		embeddings.NewMockService(64),
		generator,
		config,
		logger,
	)
}

// ----- tests -----

func TestSetupBuildsSession(t *testing.T) {
	service := newTestService(t, 2, nil)

	result, err := service.Setup(context.Background(), &interfaces.SetupRequest{Topic: "transformers", Limit: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, 2, result.PaperCount)
	assert.Greater(t, result.ChunkCount, 0)
	assert.Len(t, result.Papers, 2)

	status := service.Status(result.SessionID)
	assert.True(t, status.Exists)
	assert.Equal(t, 2, status.PaperCount)
	assert.Equal(t, result.ChunkCount, status.ChunkCount)
}

func TestSetupToleratesPartialDownloadFailure(t *testing.T) {
	service := newTestService(t, 3, func(path string) bool {
		return path != "/paper0.pdf"
	})

	result, err := service.Setup(context.Background(), &interfaces.SetupRequest{Topic: "transformers", Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, 1, result.PaperCount)
	assert.Equal(t, "Paper Number 0", result.Papers[0].Title)
}

func TestSetupFailsWhenNothingSurvives(t *testing.T) {
	service := newTestService(t, 2, func(string) bool { return true })

	_, err := service.Setup(context.Background(), &interfaces.SetupRequest{Topic: "transformers", Limit: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSetup)
}

func TestSetupDeletesStagedBlobs(t *testing.T) {
	service := newTestService(t, 2, nil)
	kv := service.kvStorage.(*memKV)

	_, err := service.Setup(context.Background(), &interfaces.SetupRequest{Topic: "transformers", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, kv.size())
}

func TestSummaryFallsBackToAbstract(t *testing.T) {
	service := newTestService(t, 1, nil)

	result, err := service.Setup(context.Background(), &interfaces.SetupRequest{Topic: "transformers", Limit: 1})
	require.NoError(t, err)

	docs, err := service.Documents(result.SessionID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, docs[0].Abstract, docs[0].Summary)
}

func TestQueryAnswersFromSession(t *testing.T) {
	service := newTestService(t, 2, nil)

	result, err := service.Setup(context.Background(), &interfaces.SetupRequest{Topic: "transformers", Limit: 2})
	require.NoError(t, err)

	answer, chunks, err := service.Query(context.Background(), result.SessionID, "what do sequence models learn?")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	require.NotEmpty(t, chunks)

	seen := make(map[int]bool)
	for _, chunk := range chunks {
		assert.False(t, seen[chunk.Meta.DocIndex], "chunks should cover distinct documents")
		seen[chunk.Meta.DocIndex] = true
	}
}

func TestQueryUnknownSession(t *testing.T) {
	service := newTestService(t, 1, nil)

	_, _, err := service.Query(context.Background(), "no-such-session", "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
}

func TestStatusUnknownSession(t *testing.T) {
	service := newTestService(t, 1, nil)
	assert.False(t, service.Status("no-such-session").Exists)
}

func TestClearCacheIsNoopUnderLimit(t *testing.T) {
	service := newTestService(t, 1, nil)

	_, err := service.Setup(context.Background(), &interfaces.SetupRequest{Topic: "transformers", Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, 0, service.ClearCache())
	assert.Equal(t, 0, service.ClearCache())
	assert.Equal(t, 1, service.SessionCount())
}

func TestEvictKeepsMostRecentSessions(t *testing.T) {
	sessions := newStore()
	base := time.Now()
	for i := 0; i < 7; i++ {
		sessions.put(&session{
			id:        fmt.Sprintf("session-%d", i),
			createdAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	assert.Equal(t, 2, sessions.evict(5))
	assert.Equal(t, 5, sessions.count())
	assert.Nil(t, sessions.get("session-0"))
	assert.Nil(t, sessions.get("session-1"))
	assert.NotNil(t, sessions.get("session-6"))
}
