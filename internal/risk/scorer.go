// File: internal/risk/scorer.go
// Assigns a comparable composite risk score and categorical level to every
// finding, adjusting judgment from the run Context.
package risk

import (
	"math"
	"sort"
	"strings"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

// Weights of the four sub-scores. Fix cost is inverted: a cheap fix raises
// the score.
const (
	impactWeight     = 0.4
	likelihoodWeight = 0.3
	scopeWeight      = 0.2
	fixCostWeight    = 0.1
)

// Scorer computes risk fields for findings under a fixed Context.
type Scorer struct {
	actx schemas.Context
}

// NewScorer creates a scorer bound to the run's analysis context.
func NewScorer(actx schemas.Context) *Scorer {
	return &Scorer{actx: actx}
}

// Score populates the risk fields of a single finding.
func (s *Scorer) Score(f *schemas.Finding) {
	impact := s.impact(f)
	likelihood := likelihood(f)
	fixCost := fixCost(f)
	scope := scope(f)

	score := float64(impact)*impactWeight +
		float64(likelihood)*likelihoodWeight +
		float64(scope)*scopeWeight +
		float64(10-fixCost)*fixCostWeight

	f.RiskScore = math.Round(score*100) / 100
	f.RiskImpact = impact
	f.RiskLikelihood = likelihood
	f.RiskFixCost = fixCost
	f.RiskScope = scope
	f.RiskLevel = Level(f.RiskScore)
}

// ScoreAll scores every finding and returns the list sorted by risk score
// descending. The sort is stable: equal scores keep their relative input
// order, which itself follows the executor's deterministic fan-in order.
func (s *Scorer) ScoreAll(findings []schemas.Finding) []schemas.Finding {
	scored := make([]schemas.Finding, len(findings))
	copy(scored, findings)
	for i := range scored {
		s.Score(&scored[i])
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RiskScore > scored[j].RiskScore
	})
	return scored
}

// Level maps a composite score onto its categorical bucket. Thresholds are
// inclusive lower bounds.
func Level(score float64) schemas.RiskLevel {
	switch {
	case score >= 8:
		return schemas.RiskCritical
	case score >= 6:
		return schemas.RiskHigh
	case score >= 4:
		return schemas.RiskMedium
	case score >= 2:
		return schemas.RiskLow
	default:
		return schemas.RiskMinimal
	}
}

func (s *Scorer) impact(f *schemas.Finding) int {
	msg := strings.ToLower(f.Message)

	switch f.Type {
	case schemas.TypeSecurity:
		if strings.Contains(msg, "sql injection") || strings.Contains(msg, "eval") {
			return 10
		}
		if strings.Contains(msg, "xss") || strings.Contains(msg, "hardcoded") {
			return 8
		}
		return 7
	case schemas.TypeSemantic:
		if strings.Contains(msg, "crash") || strings.Contains(msg, "error") {
			return 7
		}
		return 5
	case schemas.TypeComplexity:
		if s.actx.Stage == schemas.StageProduction {
			return 6
		}
		return 3
	}
	return 4
}

func likelihood(f *schemas.Finding) int {
	msg := strings.ToLower(f.Message)

	switch {
	case strings.Contains(msg, "hardcoded"), strings.Contains(msg, "secret"):
		return 10
	case strings.Contains(msg, "eval"), strings.Contains(msg, "sql injection"):
		return 9
	case strings.Contains(msg, "division by zero"):
		return 7
	case strings.Contains(msg, "xss"):
		return 6
	case strings.Contains(msg, "docstring"):
		return 1
	}
	return 5
}

func fixCost(f *schemas.Finding) int {
	msg := strings.ToLower(f.Message)

	if strings.Contains(msg, "refactor") {
		return 9
	}
	if f.Type == schemas.TypeComplexity {
		if strings.Contains(msg, "long function") {
			return 7
		}
		return 5
	}
	if strings.Contains(msg, "docstring") {
		return 1
	}
	if strings.Contains(msg, "naming") {
		return 2
	}
	return 4
}

func scope(f *schemas.Finding) int {
	msg := strings.ToLower(f.Message)

	if f.Type == schemas.TypeSecurity {
		if strings.Contains(msg, "sql") || strings.Contains(msg, "eval") {
			return 9
		}
		return 6
	}
	if strings.Contains(msg, "function") {
		return 3
	}
	return 5
}
