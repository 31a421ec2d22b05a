package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/services/retrieval"
)

// HealthHandler reports component reachability
type HealthHandler struct {
	embedder  interfaces.Embedder
	pipeline  *retrieval.Pipeline
	provider  interfaces.GenerationProvider
	kbService interfaces.KnowledgeBaseService
	logger    arbor.ILogger
}

// NewHealthHandler creates a health handler
func NewHealthHandler(embedder interfaces.Embedder, pipeline *retrieval.Pipeline, provider interfaces.GenerationProvider, kbService interfaces.KnowledgeBaseService, logger arbor.ILogger) *HealthHandler {
	return &HealthHandler{
		embedder:  embedder,
		pipeline:  pipeline,
		provider:  provider,
		kbService: kbService,
		logger:    logger,
	}
}

// HealthHandler handles GET /health
func (h *HealthHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	embedderUp := h.embedder.IsAvailable(r.Context())
	llmUp := h.provider.HealthCheck(r.Context()) == nil
	indexReady := h.pipeline.Ready()

	status := "ok"
	if !embedderUp || !llmUp || !indexReady {
		status = "degraded"
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"status":          status,
		"embedder":        embedderUp,
		"llm":             llmUp,
		"index_ready":     indexReady,
		"corpus_size":     h.pipeline.CorpusSize(),
		"active_sessions": h.kbService.SessionCount(),
		"version":         common.GetVersion(),
	})
}
