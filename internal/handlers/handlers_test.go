package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/index"
	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/models"
	"github.com/scentlab/essentia/internal/services/embeddings"
	"github.com/scentlab/essentia/internal/services/generation"
	"github.com/scentlab/essentia/internal/services/llm"
	"github.com/scentlab/essentia/internal/services/retrieval"
)

// ----- test doubles -----

type offlineProvider struct{}

func (p *offlineProvider) Generate(_ context.Context, _ *interfaces.GenerateRequest) interfaces.GenerateResult {
	return interfaces.GenerateResult{Failure: interfaces.FailurePermanent, Err: errors.New("model offline")}
}

func (p *offlineProvider) GenerateStream(ctx context.Context, req *interfaces.GenerateRequest, _ func(string)) interfaces.GenerateResult {
	return p.Generate(ctx, req)
}

func (p *offlineProvider) Name() string { return "offline" }

func (p *offlineProvider) HealthCheck(_ context.Context) error {
	return errors.New("model offline")
}

var _ interfaces.GenerationProvider = (*offlineProvider)(nil)

// stubKB is a canned knowledge base service
type stubKB struct {
	answer string
	chunks []models.RetrievedChunk
}

func (s *stubKB) Setup(_ context.Context, req *interfaces.SetupRequest) (*models.SetupResult, error) {
	return &models.SetupResult{SessionID: "kb_test", PaperCount: req.Limit}, nil
}

func (s *stubKB) Query(_ context.Context, sessionID, _ string) (string, []models.RetrievedChunk, error) {
	if sessionID != "kb_known" {
		return "", nil, fmt.Errorf("%w: %s", common.ErrSessionNotFound, sessionID)
	}
	return s.answer, s.chunks, nil
}

func (s *stubKB) Status(sessionID string) models.SessionStatus {
	return models.SessionStatus{Exists: sessionID == "kb_known"}
}

func (s *stubKB) Documents(sessionID string) ([]models.Document, error) {
	if sessionID != "kb_known" {
		return nil, common.ErrSessionNotFound
	}
	return nil, nil
}

func (s *stubKB) ClearCache() int   { return 0 }
func (s *stubKB) SessionCount() int { return 1 }

// ----- fixtures -----

func testPipeline(t *testing.T, rows []models.PerfumeRow) *retrieval.Pipeline {
	t.Helper()
	logger := arbor.NewLogger()
	embedder := embeddings.NewMockService(32)

	pipeline := retrieval.NewPipeline(embedder, &common.RetrievalConfig{DefaultK: 3, CacheCapacity: 16}, logger)

	idx := index.NewFlat(embedder.Dimension())
	ids := make([]int, len(rows))
	texts := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		texts[i] = row.CombinedText
	}
	vectors, err := embedder.Encode(context.Background(), texts)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ids, vectors))

	pipeline.SetCorpus(rows, idx)
	return pipeline
}

func newQueryHandler(t *testing.T) *QueryHandler {
	t.Helper()
	logger := arbor.NewLogger()
	rows := []models.PerfumeRow{
		{ID: 0, Title: "Oud Wood", Rating: 4.4, CombinedText: "warm woody oud sandalwood"},
		{ID: 1, Title: "Light Blue", Rating: 4.1, CombinedText: "fresh citrus apple summer"},
	}
	generator := generation.NewService(&offlineProvider{}, llm.NewRetryPolicy(logger), logger)
	return NewQueryHandler(testPipeline(t, rows), generator, &stubKB{answer: "from papers"}, logger)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// ----- tests -----

func TestQueryRejectsMissingQuestion(t *testing.T) {
	h := newQueryHandler(t)
	rec := postJSON(t, h.QueryHandler, "/query", `{"mode":"concise"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestQueryRejectsWrongMethod(t *testing.T) {
	h := newQueryHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	rec := httptest.NewRecorder()
	h.QueryHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestQueryFallbackListsRetrievedTitles(t *testing.T) {
	h := newQueryHandler(t)
	rec := postJSON(t, h.QueryHandler, "/query", `{"question":"something woody","mode":"concise"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["fallback"])

	answer := body["answer"].(string)
	assert.Contains(t, answer, "Oud Wood")
	assert.Contains(t, answer, "Light Blue")
}

func TestQueryRoutesAdviceQuestions(t *testing.T) {
	h := newQueryHandler(t)
	rec := postJSON(t, h.QueryHandler, "/query", `{"question":"how do I apply perfume to make it last longer?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["advice"])
}

func TestQueryRoutesSessionQuestions(t *testing.T) {
	h := newQueryHandler(t)
	rec := postJSON(t, h.QueryHandler, "/query", `{"question":"what is attention?","session_id":"kb_known"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "from papers", body["answer"])
}

func TestQueryUnknownSessionIs404(t *testing.T) {
	h := newQueryHandler(t)
	rec := postJSON(t, h.QueryHandler, "/query", `{"question":"anything","session_id":"kb_missing"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetupValidatesLimit(t *testing.T) {
	h := NewSetupHandler(&stubKB{}, arbor.NewLogger())

	for _, body := range []string{
		`{"topic":"transformers","limit":0}`,
		`{"topic":"transformers","limit":11}`,
		`{"limit":3}`,
	} {
		rec := postJSON(t, h.SetupHandler, "/setup", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec := postJSON(t, h.SetupHandler, "/setup", `{"topic":"transformers","limit":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "kb_test", body["session_id"])
}

func TestStatusReportsUnknownSession(t *testing.T) {
	h := NewSessionHandler(&stubKB{}, nil, nil, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/status/kb_missing", nil)
	rec := httptest.NewRecorder()
	h.StatusHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["exists"])
}

func TestClearCacheResponds(t *testing.T) {
	h := NewSessionHandler(&stubKB{}, nil, nil, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/clear_cache", nil)
	rec := httptest.NewRecorder()
	h.ClearCacheHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["evicted"])
}

func TestScrapeRejectsInvalidURL(t *testing.T) {
	h := NewScrapeHandler(nil, arbor.NewLogger())
	rec := postJSON(t, h.ScrapeHandler, "/api/scrape", `{"url":"not a url"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVersionHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()
	VersionHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["version"])
}

func TestPathSuffix(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status/kb_abc", nil)
	assert.Equal(t, "kb_abc", PathSuffix(req, "/status"))

	req = httptest.NewRequest(http.MethodGet, "/status/", nil)
	assert.Equal(t, "", PathSuffix(req, "/status"))
}
