// File: internal/analyzers/contextual/contextual.go
// Derives the per-run analysis context from a sample of the corpus using the
// LLM backend. Falls back to the documented default context whenever the
// backend is unavailable or the response cannot be parsed.
package contextual

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

const (
	sampleFiles = 2
	sampleBytes = 300
	maxTokens   = 500
)

// Producer asks the LLM to characterize the codebase.
type Producer struct {
	client schemas.LLMClient
	logger *zap.Logger

	// usage from the last Derive call, read by the pipeline stage.
	tokens int
	cost   float64
}

func NewProducer(client schemas.LLMClient, logger *zap.Logger) *Producer {
	return &Producer{client: client, logger: logger.Named("contextual")}
}

// Usage returns token and cost accounting from the most recent Derive.
func (p *Producer) Usage() (int, float64) {
	return p.tokens, p.cost
}

// Derive characterizes the corpus. It never fails: any error path returns
// DefaultContext.
func (p *Producer) Derive(ctx context.Context, files map[string]string) schemas.Context {
	p.tokens, p.cost = 0, 0
	if p.client == nil || len(files) == 0 {
		return schemas.DefaultContext()
	}

	res, err := p.client.GenerateResponse(ctx, schemas.GenerationRequest{
		UserPrompt: buildPrompt(files),
		MaxTokens:  maxTokens,
	})
	if err != nil {
		p.logger.Warn("Context derivation failed, using default", zap.Error(err))
		return schemas.DefaultContext()
	}
	p.tokens = res.PromptTokens + res.CompletionTokens
	p.cost = res.Cost
	return Parse(res.Text)
}

func buildPrompt(files map[string]string) string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var list strings.Builder
	for _, name := range names {
		fmt.Fprintf(&list, "- %s\n", name)
	}

	var sample strings.Builder
	for i, name := range names {
		if i >= sampleFiles {
			break
		}
		code := files[name]
		if len(code) > sampleBytes {
			code = code[:sampleBytes]
		}
		fmt.Fprintf(&sample, "\n%s:\n%s\n", name, code)
	}

	return fmt.Sprintf(`Analyze this codebase:

FILES: %s

SAMPLE: %s

Answer:
Purpose: [what?]
Type: [Library/App/CLI/Service]
Stage: [Prototype/Development/Production]
Performance Critical: [Yes/No]
Domain Complexity: [Yes/No]
Risk Tolerance: [Low/Medium/High]`, list.String(), sample.String())
}

// Parse extracts the labeled answer lines from a model response. Unlabeled
// or malformed lines leave the corresponding default in place.
func Parse(analysis string) schemas.Context {
	actx := schemas.DefaultContext()
	for _, raw := range strings.Split(analysis, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.Contains(line, "Purpose:"):
			actx.Purpose = after(line, "Purpose:")
		case strings.Contains(line, "Type:"):
			actx.ProjectType = after(line, "Type:")
		case strings.Contains(line, "Stage:"):
			actx.Stage = parseStage(after(line, "Stage:"))
		case strings.Contains(line, "Performance Critical:"):
			actx.PerformanceCritical = strings.Contains(strings.ToLower(line), "yes")
		case strings.Contains(line, "Domain Complexity:"):
			actx.DomainComplexity = strings.Contains(strings.ToLower(line), "yes")
		case strings.Contains(line, "Risk Tolerance:"):
			tol := strings.ToLower(after(line, "Risk Tolerance:"))
			if tol == "low" || tol == "medium" || tol == "high" {
				actx.RiskTolerance = tol
			}
		}
	}
	return actx
}

func after(line, label string) string {
	_, rest, _ := strings.Cut(line, label)
	return strings.TrimSpace(rest)
}

func parseStage(s string) schemas.Stage {
	switch strings.ToLower(s) {
	case "prototype":
		return schemas.StagePrototype
	case "production":
		return schemas.StageProduction
	default:
		return schemas.StageDevelopment
	}
}
