// -----------------------------------------------------------------------
// Query Handler - POST /query. Routes questions to the perfume dataset
// pipeline, a session knowledge base, or the advice prompt.
// -----------------------------------------------------------------------

package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/services/generation"
	"github.com/scentlab/essentia/internal/services/prompts"
	"github.com/scentlab/essentia/internal/services/retrieval"
)

// QueryRequest is the /query payload
type QueryRequest struct {
	Question  string `json:"question" validate:"required"`
	SessionID string `json:"session_id"`
	Mode      string `json:"mode" validate:"omitempty,oneof=concise descriptive"`
}

// QueryHandler answers questions
type QueryHandler struct {
	pipeline  *retrieval.Pipeline
	generator *generation.Service
	kbService interfaces.KnowledgeBaseService
	logger    arbor.ILogger
}

// NewQueryHandler creates a query handler
func NewQueryHandler(pipeline *retrieval.Pipeline, generator *generation.Service, kbService interfaces.KnowledgeBaseService, logger arbor.ILogger) *QueryHandler {
	return &QueryHandler{
		pipeline:  pipeline,
		generator: generator,
		kbService: kbService,
		logger:    logger,
	}
}

// QueryHandler handles POST /query
func (h *QueryHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req QueryRequest
	if err := DecodeAndValidate(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info().
		Str("question", req.Question).
		Str("session_id", req.SessionID).
		Str("mode", req.Mode).
		Msg("Query received")

	if req.SessionID != "" {
		h.answerFromSession(w, r, &req)
		return
	}

	if prompts.IsAdviceQuestion(req.Question) {
		resp := h.generator.RespondAdvice(r.Context(), req.Question)
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"answer":      resp.Answer,
			"answer_html": resp.AnswerHTML,
			"fallback":    resp.Fallback,
			"advice":      true,
		})
		return
	}

	rows, err := h.pipeline.Retrieve(r.Context(), req.Question, 0)
	if err != nil {
		h.logger.Error().Err(err).Msg("Retrieval failed")
		WriteError(w, http.StatusInternalServerError, "retrieval failed")
		return
	}

	resp, err := h.generator.RespondPerfume(r.Context(), req.Question, rows, req.Mode)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"answer":      resp.Answer,
		"answer_html": resp.AnswerHTML,
		"fallback":    resp.Fallback,
		"results":     rows,
	})
}

func (h *QueryHandler) answerFromSession(w http.ResponseWriter, r *http.Request, req *QueryRequest) {
	answer, chunks, err := h.kbService.Query(r.Context(), req.SessionID, req.Question)
	if err != nil {
		if errors.Is(err, common.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("Session query failed")
		WriteError(w, http.StatusInternalServerError, "query failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"answer":  answer,
		"sources": chunks,
	})
}
