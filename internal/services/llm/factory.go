package llm

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
)

// NewProvider creates the generation provider selected by configuration.
// A configured model name overrides the default provider by prefix, so
// setting llm.model = "claude-..." switches providers without touching
// default_provider.
func NewProvider(config *common.Config, logger arbor.ILogger) (interfaces.GenerationProvider, error) {
	switch DetectProvider(config.LLM.Model, config.LLM.DefaultProvider) {
	case common.LLMProviderOllama:
		return NewOllamaService(&config.Ollama, logger), nil
	case common.LLMProviderGemini:
		return NewGeminiService(&config.Gemini, logger)
	case common.LLMProviderClaude:
		return NewClaudeService(&config.Claude, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.LLM.DefaultProvider)
	}
}

// DetectProvider infers the provider from a model name prefix, falling
// back to the configured default for unrecognized names.
func DetectProvider(model string, fallback common.LLMProvider) common.LLMProvider {
	switch {
	case strings.HasPrefix(model, "gemini"):
		return common.LLMProviderGemini
	case strings.HasPrefix(model, "claude"):
		return common.LLMProviderClaude
	case model != "":
		return common.LLMProviderOllama
	default:
		return fallback
	}
}
