// File: internal/enhance/enhance.go
// Attaches model-generated explanations to the highest-risk findings. Only
// findings at CRITICAL or HIGH risk are explained, capped to bound cost.
package enhance

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

const (
	maxExplained = 20
	maxTokens    = 500
)

// Enhancer generates per-finding explanations.
type Enhancer struct {
	client schemas.LLMClient
	logger *zap.Logger

	tokens int
	cost   float64
}

func New(client schemas.LLMClient, logger *zap.Logger) *Enhancer {
	return &Enhancer{client: client, logger: logger.Named("enhance")}
}

// Usage returns token and cost accounting from the most recent Explain.
func (e *Enhancer) Usage() (int, float64) {
	return e.tokens, e.cost
}

// Explain returns a copy of findings with explanations attached to the
// eligible subset. Failures per finding are logged and skipped.
func (e *Enhancer) Explain(ctx context.Context, findings []schemas.Finding) []schemas.Finding {
	e.tokens, e.cost = 0, 0
	out := make([]schemas.Finding, len(findings))
	copy(out, findings)
	if e.client == nil {
		return out
	}

	explained := 0
	for i := range out {
		if explained >= maxExplained {
			break
		}
		if ctx.Err() != nil {
			break
		}
		level := out[i].RiskLevel
		if level != schemas.RiskCritical && level != schemas.RiskHigh {
			continue
		}

		res, err := e.client.GenerateResponse(ctx, schemas.GenerationRequest{
			UserPrompt: buildPrompt(out[i]),
			MaxTokens:  maxTokens,
		})
		if err != nil {
			e.logger.Warn("Failed to generate explanation", zap.String("file", out[i].File), zap.Error(err))
			continue
		}
		e.tokens += res.PromptTokens + res.CompletionTokens
		e.cost += res.Cost
		out[i].Explanation = strings.TrimSpace(res.Text)
		explained++
	}
	e.logger.Debug("Explanations generated", zap.Int("count", explained))
	return out
}

func buildPrompt(f schemas.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a security and code quality expert. Explain this code issue:

**Type:** %s
**Severity:** %s
**Message:** %s
**File:** %s
`, f.Type, f.Severity, f.Message, f.File)
	if f.Line > 0 {
		fmt.Fprintf(&b, "**Line:** %d\n", f.Line)
	}
	if f.CodeSnippet != "" {
		fmt.Fprintf(&b, "**Code:** `%s`\n", f.CodeSnippet)
	}
	b.WriteString(`
Provide:
1. **Why it's a risk:** Explain the security/quality impact (2-3 sentences)
2. **How to fix:** Specific actionable fix (code example if applicable)

Keep it concise and practical.`)
	return b.String()
}
