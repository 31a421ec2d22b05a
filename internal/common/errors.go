package common

import "errors"

// Error taxonomy for the RAG pipeline. Startup errors (schema, model load)
// are fatal; per-request errors are recovered into JSON error envelopes by
// the handlers.
var (
	// ErrSchema indicates a malformed input dataset (missing required column).
	ErrSchema = errors.New("dataset schema error")

	// ErrModelLoad indicates the embedder or vector index failed to initialize.
	ErrModelLoad = errors.New("model load error")

	// ErrRetrieval indicates the embedding or index search call failed.
	ErrRetrieval = errors.New("retrieval error")

	// ErrGeneration indicates the generation endpoint was unreachable,
	// returned a non-200 status, or produced an empty payload after retry.
	ErrGeneration = errors.New("generation error")

	// ErrSetup indicates zero documents survived knowledge base ingestion.
	ErrSetup = errors.New("knowledge base setup error")

	// ErrSessionNotFound indicates an unknown knowledge base session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrIndexMismatch indicates a persisted index was built from a
	// different dataset than the one currently loaded.
	ErrIndexMismatch = errors.New("index dataset hash mismatch")
)
