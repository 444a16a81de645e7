// File: internal/analyzers/semantic/semantic.go
// LLM-backed semantic detector. Each Python file goes to the model with the
// derived context, and the structured reply is parsed into findings. Lines
// that do not match the output contract are skipped.
package semantic

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

const toolName = "llm_enhanced"

// Detector asks the model for actionable bugs per file.
type Detector struct {
	client    schemas.LLMClient
	maxTokens int
	logger    *zap.Logger

	tokens int
	cost   float64
}

func NewDetector(client schemas.LLMClient, maxTokens int, logger *zap.Logger) *Detector {
	return &Detector{client: client, maxTokens: maxTokens, logger: logger.Named("semantic")}
}

func (d *Detector) Name() string { return "semantic_analysis" }

// Usage returns token and cost accounting from the most recent Detect.
func (d *Detector) Usage() (int, float64) {
	return d.tokens, d.cost
}

func (d *Detector) Detect(ctx context.Context, files map[string]string, actx schemas.Context) []schemas.Finding {
	d.tokens, d.cost = 0, 0
	if d.client == nil {
		return nil
	}

	names := make([]string, 0, len(files))
	for name := range files {
		if strings.HasSuffix(name, ".py") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var findings []schemas.Finding
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		res, err := d.client.GenerateResponse(ctx, schemas.GenerationRequest{
			UserPrompt: buildPrompt(name, files[name], actx),
			MaxTokens:  d.maxTokens,
		})
		if err != nil {
			d.logger.Warn("Semantic analysis failed for file", zap.String("file", name), zap.Error(err))
			continue
		}
		d.tokens += res.PromptTokens + res.CompletionTokens
		d.cost += res.Cost
		findings = append(findings, ParseResponse(name, res.Text)...)
	}
	d.logger.Debug("Semantic analysis complete", zap.Int("findings", len(findings)), zap.Int("tokens", d.tokens))
	return findings
}

func buildPrompt(file, code string, actx schemas.Context) string {
	return fmt.Sprintf(`You are a senior code reviewer.

CONTEXT:
- File: %s
- Purpose: %s
- Stage: %s

CODE:
`+"```python\n%s\n```"+`

Find REAL issues only:
1. Security risks (injection, exposed credentials)
2. Logic errors (edge cases, off-by-one)
3. Runtime risks (division by zero, null errors)

OUTPUT:
LINE <num>: [CRITICAL/HIGH/MEDIUM] Description
Impact: What breaks
Fix: How to fix

Only report actionable bugs, not style issues.`, file, actx.Purpose, actx.Stage, code)
}

// ParseResponse turns a model reply into findings. A finding opens with a
// "LINE N:" header and may be followed by Impact: and Fix: continuation
// lines. Anything else between headers is ignored.
func ParseResponse(file, text string) []schemas.Finding {
	var findings []schemas.Finding
	var current *schemas.Finding

	flush := func() {
		if current != nil {
			findings = append(findings, *current)
			current = nil
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "LINE") && strings.Contains(line, ":") {
			flush()
			f, ok := parseHeader(file, line)
			if ok {
				current = &f
			}
			continue
		}

		if current == nil {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Impact:"):
			current.Impact = strings.TrimSpace(strings.TrimPrefix(line, "Impact:"))
		case strings.HasPrefix(line, "Fix:"):
			current.SuggestedFix = strings.TrimSpace(strings.TrimPrefix(line, "Fix:"))
		}
	}
	flush()
	return findings
}

func parseHeader(file, line string) (schemas.Finding, bool) {
	head, rest, ok := strings.Cut(line, ":")
	if !ok {
		return schemas.Finding{}, false
	}

	// The header token must carry a parseable line number; anything else is
	// model prose and gets skipped.
	numText := strings.TrimSpace(strings.TrimPrefix(head, "LINE"))
	lineNum, err := strconv.Atoi(numText)
	if err != nil {
		return schemas.Finding{}, false
	}
	severity := schemas.SeverityMedium
	if strings.Contains(rest, "[CRITICAL]") {
		severity = schemas.SeverityCritical
	} else if strings.Contains(rest, "[HIGH]") {
		severity = schemas.SeverityHigh
	}

	idx := strings.LastIndex(rest, "]")
	message := strings.TrimSpace(rest[idx+1:])
	if message == "" {
		return schemas.Finding{}, false
	}

	return schemas.Finding{
		File:     file,
		Line:     lineNum,
		Type:     schemas.TypeSemantic,
		Severity: severity,
		Message:  message,
		Tool:     toolName,
	}, true
}
