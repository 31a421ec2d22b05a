package embeddings

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
)

// NewService creates the embedder selected by configuration
func NewService(config *common.EmbeddingsConfig, logger arbor.ILogger) (interfaces.Embedder, error) {
	switch config.Mode {
	case "http":
		return NewHTTPService(config, logger), nil
	case "mock":
		logger.Warn().Msg("Using mock embedding backend")
		return NewMockService(config.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown embeddings mode %q", common.ErrModelLoad, config.Mode)
	}
}
