package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
)

// ClaudeService generates text via the Anthropic API
type ClaudeService struct {
	config *common.ClaudeConfig
	client *anthropic.Client
	logger arbor.ILogger
}

var _ interfaces.GenerationProvider = (*ClaudeService)(nil)

// NewClaudeService creates a Claude generation client
func NewClaudeService(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key)")
	}

	client := anthropic.NewClient(option.WithAPIKey(config.APIKey))
	return &ClaudeService{
		config: config,
		client: &client,
		logger: logger,
	}, nil
}

// Generate performs a single generation attempt
func (s *ClaudeService) Generate(ctx context.Context, req *interfaces.GenerateRequest) interfaces.GenerateResult {
	model := req.Model
	if model == "" {
		model = s.config.Model
	}
	maxTokens := req.Options.NumPredict
	if maxTokens <= 0 {
		maxTokens = s.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Options.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Options.Temperature))
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return transient(fmt.Errorf("Claude API call failed: %w", err))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return transient(fmt.Errorf("Claude returned empty payload"))
	}
	return interfaces.GenerateResult{Text: text.String()}
}

// GenerateStream completes the request, then delivers the text in one
// callback.
func (s *ClaudeService) GenerateStream(ctx context.Context, req *interfaces.GenerateRequest, fn func(token string)) interfaces.GenerateResult {
	result := s.Generate(ctx, req)
	if result.Ok() && fn != nil {
		fn(result.Text)
	}
	return result
}

// Name returns the provider identifier
func (s *ClaudeService) Name() string { return "claude" }

// HealthCheck performs a minimal generation to verify credentials
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	result := s.Generate(ctx, &interfaces.GenerateRequest{
		Prompt:  "ping",
		Options: interfaces.GenerateOptions{NumPredict: 1},
	})
	if !result.Ok() {
		return fmt.Errorf("Claude health check failed: %w", result.Err)
	}
	return nil
}
