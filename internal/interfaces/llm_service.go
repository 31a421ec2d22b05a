package interfaces

import "context"

// GenerateOptions are sampling parameters forwarded to the generation
// endpoint.
type GenerateOptions struct {
	Temperature float32
	TopP        float32
	NumPredict  int
	Stop        []string
}

// GenerateRequest is a provider-agnostic text generation request
type GenerateRequest struct {
	Model   string
	Prompt  string
	System  string
	Options GenerateOptions
}

// FailureKind classifies a generation failure for the retry policy
type FailureKind int

const (
	// FailureNone means the call succeeded
	FailureNone FailureKind = iota
	// FailureTransient means the call may succeed on retry
	// (timeout, connection refused, 5xx, empty payload)
	FailureTransient
	// FailurePermanent means retrying is pointless
	// (bad request, auth failure, exhausted retries)
	FailurePermanent
)

// GenerateResult is the outcome of a generation call. Exactly one of
// Text or Failure is meaningful: Failure == FailureNone implies a
// non-empty Text.
type GenerateResult struct {
	Text    string
	Failure FailureKind
	Err     error
}

// Ok reports whether the generation succeeded
func (r GenerateResult) Ok() bool {
	return r.Failure == FailureNone
}

// GenerationProvider calls a remote text-generation endpoint
type GenerationProvider interface {
	// Generate performs a single generation attempt without retrying;
	// the retry policy lives in the caller.
	Generate(ctx context.Context, req *GenerateRequest) GenerateResult

	// GenerateStream streams generated tokens to the callback as they
	// arrive, returning the concatenated text.
	GenerateStream(ctx context.Context, req *GenerateRequest, fn func(token string)) GenerateResult

	// Name returns the provider identifier ("ollama", "gemini", "claude")
	Name() string

	// HealthCheck verifies the endpoint is reachable
	HealthCheck(ctx context.Context) error
}
