package schemas

import "context"

// Detector is the adapter contract every analysis backend satisfies. A
// detector must not fail for recoverable conditions: missing tooling, parse
// failures, and timeouts all yield an empty slice. Contributions from a
// detector are never merged by the detector itself; the pipeline executor
// owns all shared state.
type Detector interface {
	// Name returns the stable detector identifier used for provenance.
	Name() string
	// Detect inspects the file corpus under the given analysis context and
	// returns zero or more findings.
	Detect(ctx context.Context, files map[string]string, actx Context) []Finding
}

// ContextProducer derives the per-run analysis Context from the corpus. It
// must return a well-defined default Context rather than fail.
type ContextProducer interface {
	Derive(ctx context.Context, files map[string]string) Context
}

// -- LLM Schemas --

// GenerationRequest carries one prompt exchange to an LLM backend.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// GenerationResult is the model output plus the usage accounting the
// pipeline accumulates across stages.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// LLMClient abstracts the network-backed analyzer used by the semantic
// detector, the context producer, and the explanation enhancer.
type LLMClient interface {
	GenerateResponse(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}
