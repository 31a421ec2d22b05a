package common

import (
	"github.com/google/uuid"
)

// NewSessionID generates a unique knowledge base session ID
// Format: kb_<uuid>
func NewSessionID() string {
	return "kb_" + uuid.New().String()
}
