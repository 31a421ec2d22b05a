// -----------------------------------------------------------------------
// WebSocket Chat Handler - GET /ws/chat. Streams generation tokens to
// the client as they arrive from the provider.
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/services/generation"
	"github.com/scentlab/essentia/internal/services/prompts"
	"github.com/scentlab/essentia/internal/services/retrieval"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Local tool, any origin
	},
}

// wsQuestion is one inbound chat message
type wsQuestion struct {
	Question string `json:"question"`
	Mode     string `json:"mode"`
}

// wsMessage is one outbound chat frame
type wsMessage struct {
	Type     string `json:"type"` // "token", "done", "error"
	Content  string `json:"content,omitempty"`
	Answer   string `json:"answer,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	Error    string `json:"error,omitempty"`
}

// WSHandler streams chat answers over a websocket
type WSHandler struct {
	pipeline  *retrieval.Pipeline
	generator *generation.Service
	logger    arbor.ILogger
}

// NewWSHandler creates a websocket chat handler
func NewWSHandler(pipeline *retrieval.Pipeline, generator *generation.Service, logger arbor.ILogger) *WSHandler {
	return &WSHandler{
		pipeline:  pipeline,
		generator: generator,
		logger:    logger,
	}
}

// HandleChat handles GET /ws/chat. Each inbound question produces a
// stream of token frames followed by a done frame.
func (h *WSHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.logger.Info().Str("remote", r.RemoteAddr).Msg("Chat websocket connected")

	for {
		var q wsQuestion
		if err := conn.ReadJSON(&q); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("Chat websocket read failed")
			}
			return
		}
		if q.Question == "" {
			conn.WriteJSON(wsMessage{Type: "error", Error: "question required"})
			continue
		}
		h.answer(r, conn, &q)
	}
}

func (h *WSHandler) answer(r *http.Request, conn *websocket.Conn, q *wsQuestion) {
	ctx := r.Context()

	if prompts.IsAdviceQuestion(q.Question) {
		resp := h.generator.RespondAdvice(ctx, q.Question)
		conn.WriteJSON(wsMessage{Type: "token", Content: resp.Answer})
		conn.WriteJSON(wsMessage{Type: "done", Answer: resp.Answer, Fallback: resp.Fallback})
		return
	}

	rows, err := h.pipeline.Retrieve(ctx, q.Question, 0)
	if err != nil {
		h.logger.Error().Err(err).Msg("Retrieval failed for websocket query")
		conn.WriteJSON(wsMessage{Type: "error", Error: "retrieval failed"})
		return
	}

	resp, err := h.generator.Stream(ctx, q.Question, rows, q.Mode, func(token string) {
		conn.WriteJSON(wsMessage{Type: "token", Content: token})
	})
	if err != nil {
		conn.WriteJSON(wsMessage{Type: "error", Error: err.Error()})
		return
	}

	conn.WriteJSON(wsMessage{Type: "done", Answer: resp.Answer, Fallback: resp.Fallback})
}
