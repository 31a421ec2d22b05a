package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/interfaces"
)

// SetupPayload is the /setup request body
type SetupPayload struct {
	Topic        string `json:"topic" validate:"required"`
	Limit        int    `json:"limit" validate:"required,min=1,max=10"`
	YearFilter   int    `json:"year_filter" validate:"omitempty,min=1900,max=2100"`
	MinCitations int    `json:"min_citations" validate:"omitempty,min=0"`
}

// SetupHandler builds session knowledge bases
type SetupHandler struct {
	kbService interfaces.KnowledgeBaseService
	logger    arbor.ILogger
}

// NewSetupHandler creates a setup handler
func NewSetupHandler(kbService interfaces.KnowledgeBaseService, logger arbor.ILogger) *SetupHandler {
	return &SetupHandler{
		kbService: kbService,
		logger:    logger,
	}
}

// SetupHandler handles POST /setup
func (h *SetupHandler) SetupHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var payload SetupPayload
	if err := DecodeAndValidate(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.kbService.Setup(r.Context(), &interfaces.SetupRequest{
		Topic:        payload.Topic,
		Limit:        payload.Limit,
		YearFilter:   payload.YearFilter,
		MinCitations: payload.MinCitations,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("topic", payload.Topic).Msg("Knowledge base setup failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"session_id":  result.SessionID,
		"paper_count": result.PaperCount,
		"chunk_count": result.ChunkCount,
		"setup_time":  result.SetupTime,
		"papers":      result.Papers,
	})
}
