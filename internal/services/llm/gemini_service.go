package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
)

// GeminiService generates text via the Google Gemini API
type GeminiService struct {
	config *common.GeminiConfig
	client *genai.Client
	logger arbor.ILogger
}

var _ interfaces.GenerationProvider = (*GeminiService)(nil)

// NewGeminiService creates a Gemini generation client
func NewGeminiService(config *common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key)")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &GeminiService{
		config: config,
		client: client,
		logger: logger,
	}, nil
}

// Generate performs a single generation attempt
func (s *GeminiService) Generate(ctx context.Context, req *interfaces.GenerateRequest) interfaces.GenerateResult {
	model := req.Model
	if model == "" {
		model = s.config.Model
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Options.Temperature),
	}
	if req.System != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Options.NumPredict > 0 {
		genConfig.MaxOutputTokens = int32(req.Options.NumPredict)
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	resp, err := s.client.Models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		// The SDK wraps transport and API errors together; treat all
		// as transient so the retry policy gets one more shot.
		return transient(fmt.Errorf("Gemini generation failed: %w", err))
	}

	var text strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				break
			}
		}
	}
	if text.Len() == 0 {
		return transient(fmt.Errorf("Gemini returned empty payload"))
	}
	return interfaces.GenerateResult{Text: text.String()}
}

// GenerateStream completes the request, then delivers the text in one
// callback. Token-level streaming is only wired for the local provider.
func (s *GeminiService) GenerateStream(ctx context.Context, req *interfaces.GenerateRequest, fn func(token string)) interfaces.GenerateResult {
	result := s.Generate(ctx, req)
	if result.Ok() && fn != nil {
		fn(result.Text)
	}
	return result
}

// Name returns the provider identifier
func (s *GeminiService) Name() string { return "gemini" }

// HealthCheck performs a minimal generation to verify credentials
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	result := s.Generate(ctx, &interfaces.GenerateRequest{
		Prompt:  "ping",
		Options: interfaces.GenerateOptions{NumPredict: 1},
	})
	if !result.Ok() {
		return fmt.Errorf("Gemini health check failed: %w", result.Err)
	}
	return nil
}
