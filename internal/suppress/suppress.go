// File: internal/suppress/suppress.go
// Drops findings that are false positives or acceptable in context, with an
// auditable reason. Rules are an explicitly ordered table evaluated by one
// generic engine; the first matching rule wins and supplies the reason.
package suppress

import (
	"strings"

	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

// Rule pairs a predicate with the human-readable reason attached when it
// matches. Predicates are pure functions of immutable Finding and Context
// fields, which makes the engine idempotent.
type Rule struct {
	Name   string
	Reason string
	Match  func(f schemas.Finding, actx schemas.Context) bool
}

// domainMarkers flag file paths whose complexity is inherent to the problem.
var domainMarkers = []string{"parser", "model", "crypto", "transform"}

// generatedMarkers flag machine-written or vendored paths.
var generatedMarkers = []string{"generated", "_gen.", "migrations/", "vendor/"}

// testMarkers flag test files across the supported language conventions.
var testMarkers = []string{"test_", "_test.", "tests/"}

// DefaultRules returns the rule table in priority order. Order is load
// bearing: when several rules could match, the first supplies the reason.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "performance_critical_complexity",
			Reason: "Performance-critical code - complexity acceptable",
			Match: func(f schemas.Finding, actx schemas.Context) bool {
				if f.Type != schemas.TypeComplexity || !actx.PerformanceCritical {
					return false
				}
				msg := strings.ToLower(f.Message)
				return strings.Contains(msg, "complexity") || strings.Contains(msg, "nesting")
			},
		},
		{
			Name:   "domain_complexity",
			Reason: "Domain-heavy code - complexity expected",
			Match: func(f schemas.Finding, actx schemas.Context) bool {
				if f.Type != schemas.TypeComplexity || !actx.DomainComplexity {
					return false
				}
				if !containsAny(strings.ToLower(f.File), domainMarkers) {
					return false
				}
				return strings.Contains(strings.ToLower(f.Message), "complexity")
			},
		},
		{
			Name:   "generated_code",
			Reason: "Generated code",
			Match: func(f schemas.Finding, _ schemas.Context) bool {
				return containsAny(strings.ToLower(f.File), generatedMarkers)
			},
		},
		{
			Name:   "prototype_style",
			Reason: "Prototype - style not critical",
			Match: func(f schemas.Finding, actx schemas.Context) bool {
				if actx.Stage != schemas.StagePrototype {
					return false
				}
				return containsAny(strings.ToLower(f.Message), []string{"docstring", "naming", "comment"})
			},
		},
		{
			Name:   "test_code",
			Reason: "Test code - relaxed rules",
			Match: func(f schemas.Finding, _ schemas.Context) bool {
				if !containsAny(strings.ToLower(f.File), testMarkers) {
					return false
				}
				msg := strings.ToLower(f.Message)
				return strings.Contains(msg, "complexity") || strings.Contains(msg, "docstring")
			},
		},
	}
}

// Engine evaluates an ordered rule table against findings.
type Engine struct {
	actx   schemas.Context
	rules  []Rule
	logger *zap.Logger
}

// NewEngine creates an engine with the default rule table.
func NewEngine(actx schemas.Context, logger *zap.Logger) *Engine {
	return &Engine{actx: actx, rules: DefaultRules(), logger: logger.Named("suppression")}
}

// Evaluate returns the first matching rule for the finding, or nil.
func (e *Engine) Evaluate(f schemas.Finding) *Rule {
	for i := range e.rules {
		if e.rules[i].Match(f, e.actx) {
			return &e.rules[i]
		}
	}
	return nil
}

// Apply returns only the unsuppressed subset, preserving relative order, and
// the number of findings dropped. Suppressed findings are not retained;
// callers needing an audit trail must capture the input list themselves.
func (e *Engine) Apply(findings []schemas.Finding) ([]schemas.Finding, int) {
	kept := make([]schemas.Finding, 0, len(findings))
	suppressed := 0

	for _, f := range findings {
		if rule := e.Evaluate(f); rule != nil {
			suppressed++
			e.logger.Debug("Finding suppressed",
				zap.String("file", f.File),
				zap.String("rule", rule.Name),
				zap.String("reason", rule.Reason))
			continue
		}
		kept = append(kept, f)
	}
	return kept, suppressed
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
