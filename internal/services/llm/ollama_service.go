// -----------------------------------------------------------------------
// Ollama Provider - local generation over the /api/generate endpoint,
// single-shot or newline-delimited streaming.
// -----------------------------------------------------------------------

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
)

// OllamaService calls a local Ollama server
type OllamaService struct {
	baseURL  string
	model    string
	defaults ollamaOptions
	client   *http.Client
	logger   arbor.ILogger
}

var _ interfaces.GenerationProvider = (*OllamaService)(nil)

// NewOllamaService creates an Ollama generation provider
func NewOllamaService(config *common.OllamaConfig, logger arbor.ILogger) *OllamaService {
	timeout := common.ParseDuration(config.Timeout, 120*time.Second)
	return &OllamaService{
		baseURL: strings.TrimSuffix(config.URL, "/"),
		model:   config.Model,
		defaults: ollamaOptions{
			Temperature: config.Temperature,
			TopP:        config.TopP,
			NumPredict:  config.NumPredict,
		},
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type ollamaOptions struct {
	Temperature float32  `json:"temperature,omitempty"`
	TopP        float32  `json:"top_p,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate performs a single non-streaming generation attempt
func (s *OllamaService) Generate(ctx context.Context, req *interfaces.GenerateRequest) interfaces.GenerateResult {
	resp, err := s.post(ctx, req, false)
	if err != nil {
		return transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyHTTPFailure(resp)
	}

	var payload ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return transient(fmt.Errorf("invalid Ollama response: %w", err))
	}
	if payload.Error != "" {
		return transient(fmt.Errorf("Ollama error: %s", payload.Error))
	}

	text := strings.TrimSpace(payload.Response)
	if text == "" {
		return transient(fmt.Errorf("Ollama returned empty payload"))
	}
	return interfaces.GenerateResult{Text: text}
}

// GenerateStream streams newline-delimited JSON chunks, forwarding
// each token to fn.
func (s *OllamaService) GenerateStream(ctx context.Context, req *interfaces.GenerateRequest, fn func(token string)) interfaces.GenerateResult {
	resp, err := s.post(ctx, req, true)
	if err != nil {
		return transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyHTTPFailure(resp)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return transient(fmt.Errorf("invalid stream chunk: %w", err))
		}
		if chunk.Error != "" {
			return transient(fmt.Errorf("Ollama stream error: %s", chunk.Error))
		}

		if chunk.Response != "" {
			full.WriteString(chunk.Response)
			fn(chunk.Response)
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return transient(fmt.Errorf("stream read failed: %w", err))
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return transient(fmt.Errorf("Ollama stream produced no text"))
	}
	return interfaces.GenerateResult{Text: text}
}

// Name returns the provider identifier
func (s *OllamaService) Name() string { return "ollama" }

// HealthCheck verifies the Ollama server responds
func (s *OllamaService) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("Ollama unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *OllamaService) post(ctx context.Context, req *interfaces.GenerateRequest, stream bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = s.model
	}

	opts := ollamaOptions{
		Temperature: req.Options.Temperature,
		TopP:        req.Options.TopP,
		NumPredict:  req.Options.NumPredict,
		Stop:        req.Options.Stop,
	}
	if opts.Temperature == 0 {
		opts.Temperature = s.defaults.Temperature
	}
	if opts.TopP == 0 {
		opts.TopP = s.defaults.TopP
	}
	if opts.NumPredict == 0 {
		opts.NumPredict = s.defaults.NumPredict
	}

	body, err := json.Marshal(ollamaRequest{
		Model:   model,
		Prompt:  req.Prompt,
		System:  req.System,
		Stream:  stream,
		Options: opts,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return s.client.Do(httpReq)
}

// classifyHTTPFailure maps a non-200 response to a failure kind:
// client errors are permanent, everything else may recover.
func classifyHTTPFailure(resp *http.Response) interfaces.GenerateResult {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return permanent(err)
	}
	return transient(err)
}

func transient(err error) interfaces.GenerateResult {
	return interfaces.GenerateResult{Failure: interfaces.FailureTransient, Err: err}
}

func permanent(err error) interfaces.GenerateResult {
	return interfaces.GenerateResult{Failure: interfaces.FailurePermanent, Err: err}
}
