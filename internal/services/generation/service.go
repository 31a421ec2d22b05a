// -----------------------------------------------------------------------
// Generation Client - retry-then-fallback orchestration over a
// generation provider, with Markdown-to-HTML rendering of answers
// -----------------------------------------------------------------------

package generation

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/models"
	"github.com/scentlab/essentia/internal/services/llm"
	"github.com/scentlab/essentia/internal/services/prompts"
)

// Response is a finished answer. Fallback marks answers produced by the
// deterministic template instead of the model.
type Response struct {
	Answer     string `json:"answer"`
	AnswerHTML string `json:"answer_html"`
	Fallback   bool   `json:"fallback"`
}

// Service turns retrieved context into answers
type Service struct {
	provider interfaces.GenerationProvider
	retry    *llm.RetryPolicy
	markdown goldmark.Markdown
	logger   arbor.ILogger
}

// NewService creates a generation service around a provider
func NewService(provider interfaces.GenerationProvider, retry *llm.RetryPolicy, logger arbor.ILogger) *Service {
	return &Service{
		provider: provider,
		retry:    retry,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:   logger,
	}
}

// RespondPerfume answers a perfume recommendation query. Zero retrieved
// rows short-circuit to the fixed no-results message without any
// network call; a permanently failed generation degrades to the
// templated fallback built from the rows.
func (s *Service) RespondPerfume(ctx context.Context, query string, rows []models.RetrievedPerfume, mode string) (*Response, error) {
	if len(rows) == 0 {
		return s.finish(prompts.NoResultsMessage, false), nil
	}

	req, err := prompts.BuildPerfume(query, rows, mode)
	if err != nil {
		return nil, err
	}

	result := s.retry.Execute(ctx, s.provider, req)
	if !result.Ok() {
		s.logger.Warn().
			Err(result.Err).
			Str("provider", s.provider.Name()).
			Msg("Generation failed, using templated fallback")
		return s.finish(prompts.Fallback(rows, mode), true), nil
	}
	return s.finish(result.Text, false), nil
}

// RespondAdvice answers an educational question with no retrieval
// context.
func (s *Service) RespondAdvice(ctx context.Context, query string) *Response {
	result := s.retry.Execute(ctx, s.provider, prompts.BuildAdvice(query))
	if !result.Ok() {
		s.logger.Warn().Err(result.Err).Msg("Advice generation failed")
		return s.finish("Sorry, I was unable to connect to the language model to generate a response.", true)
	}
	return s.finish(result.Text, false)
}

// RespondPapers answers a question against retrieved paper chunks. The
// fallback lists the source excerpts directly.
func (s *Service) RespondPapers(ctx context.Context, question string, chunks []models.RetrievedChunk) *Response {
	result := s.retry.Execute(ctx, s.provider, prompts.BuildPaperQA(question, chunks))
	if result.Ok() {
		answer := result.Text + s.sourcesSuffix(chunks)
		return s.finish(answer, false)
	}

	s.logger.Warn().Err(result.Err).Msg("Paper QA generation failed, returning excerpts")
	var b strings.Builder
	b.WriteString("The language model is unavailable. Closest passages from the papers:\n\n")
	for _, chunk := range chunks {
		text := chunk.Text
		if len(text) > 300 {
			text = text[:300] + "..."
		}
		fmt.Fprintf(&b, "**%s (%d)**\n%s\n\n", chunk.Meta.Title, chunk.Meta.Year, text)
	}
	return s.finish(b.String(), true)
}

// Summarize produces a short summary of one paper's text. Callers fall
// back to the abstract when this fails.
func (s *Service) Summarize(ctx context.Context, text string) (string, error) {
	result := s.retry.Execute(ctx, s.provider, prompts.BuildSummary(text))
	if !result.Ok() {
		return "", fmt.Errorf("%w: summary failed: %v", common.ErrGeneration, result.Err)
	}
	return result.Text, nil
}

// Stream relays a perfume answer token by token. On failure the
// fallback text is delivered through fn in a single piece.
func (s *Service) Stream(ctx context.Context, query string, rows []models.RetrievedPerfume, mode string, fn func(token string)) (*Response, error) {
	if len(rows) == 0 {
		fn(prompts.NoResultsMessage)
		return s.finish(prompts.NoResultsMessage, false), nil
	}

	req, err := prompts.BuildPerfume(query, rows, mode)
	if err != nil {
		return nil, err
	}

	result := s.provider.GenerateStream(ctx, req, fn)
	if !result.Ok() {
		fallback := prompts.Fallback(rows, mode)
		fn(fallback)
		return s.finish(fallback, true), nil
	}
	return s.finish(result.Text, false), nil
}

func (s *Service) sourcesSuffix(chunks []models.RetrievedChunk) string {
	seen := make(map[string]bool)
	var titles []string
	for _, chunk := range chunks {
		title := chunk.Meta.Title
		if len(title) > 50 {
			title = title[:50] + "..."
		}
		if !seen[title] {
			seen[title] = true
			titles = append(titles, title)
		}
	}
	if len(titles) == 0 {
		return ""
	}
	if len(titles) > 2 {
		titles = titles[:2]
	}
	return "\n\nSources: " + strings.Join(titles, ", ")
}

// finish renders the Markdown answer to HTML and wraps the response
func (s *Service) finish(answer string, fallback bool) *Response {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(answer), &buf); err != nil {
		s.logger.Warn().Err(err).Msg("Markdown rendering failed")
		buf.Reset()
		buf.WriteString(answer)
	}
	return &Response{
		Answer:     answer,
		AnswerHTML: buf.String(),
		Fallback:   fallback,
	}
}
