package llm

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/interfaces"
)

// RetryPolicy governs generation attempts: at most MaxAttempts calls,
// retrying only transient failures, with a fixed backoff between
// attempts. Exhausted retries come back as a permanent failure so the
// caller knows to take its fallback path.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	logger      arbor.ILogger
}

// NewRetryPolicy creates the default policy: one retry after a short
// pause.
func NewRetryPolicy(logger arbor.ILogger) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 2,
		Backoff:     500 * time.Millisecond,
		logger:      logger,
	}
}

// Execute runs attempts against the provider until one succeeds, fails
// permanently, or the attempt budget runs out.
func (p *RetryPolicy) Execute(ctx context.Context, provider interfaces.GenerationProvider, req *interfaces.GenerateRequest) interfaces.GenerateResult {
	var last interfaces.GenerateResult
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		last = provider.Generate(ctx, req)
		if last.Ok() || last.Failure == interfaces.FailurePermanent {
			return last
		}

		p.logger.Warn().
			Err(last.Err).
			Str("provider", provider.Name()).
			Int("attempt", attempt).
			Msg("Generation attempt failed")

		if attempt < p.MaxAttempts {
			select {
			case <-time.After(p.Backoff):
			case <-ctx.Done():
				return interfaces.GenerateResult{Failure: interfaces.FailurePermanent, Err: ctx.Err()}
			}
		}
	}

	// Transient failures with no budget left are permanent for the caller
	last.Failure = interfaces.FailurePermanent
	return last
}
