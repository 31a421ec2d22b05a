package interfaces

import (
	"context"

	"github.com/scentlab/essentia/internal/models"
)

// SetupRequest parameterizes knowledge base construction
type SetupRequest struct {
	Topic        string
	Limit        int
	YearFilter   int // Zero means no year filter
	MinCitations int // Zero means no citation filter
}

// KnowledgeBaseService builds and queries per-session document corpora
type KnowledgeBaseService interface {
	// Setup searches, downloads, extracts, chunks, embeds and indexes
	// papers for a topic. Partial download failures are tolerated;
	// returns ErrSetup when zero documents survive.
	Setup(ctx context.Context, req *SetupRequest) (*models.SetupResult, error)

	// Query answers a question against a session's corpus.
	// Returns ErrSessionNotFound for unknown sessions.
	Query(ctx context.Context, sessionID, question string) (string, []models.RetrievedChunk, error)

	// Status reports a session's state
	Status(sessionID string) models.SessionStatus

	// Documents returns a session's surviving documents
	Documents(sessionID string) ([]models.Document, error)

	// ClearCache evicts all but the most recently created sessions,
	// returning the number evicted.
	ClearCache() int

	// SessionCount returns the number of live sessions
	SessionCount() int
}
