package models

// SetupResult reports the outcome of a knowledge base setup call
type SetupResult struct {
	SessionID  string  `json:"session_id"`
	PaperCount int     `json:"paper_count"`
	ChunkCount int     `json:"chunk_count"`
	SetupTime  float64 `json:"setup_time"` // Seconds, rounded to one decimal
	Papers     []Paper `json:"papers"`
}

// SessionStatus reports the state of a single session
type SessionStatus struct {
	Exists     bool    `json:"exists"`
	PaperCount int     `json:"paper_count,omitempty"`
	ChunkCount int     `json:"chunk_count,omitempty"`
	SetupTime  float64 `json:"setup_time,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
}
