// File: internal/reporting/report.go
// Final run report: summary metrics plus the surviving findings, rendered as
// JSON or SARIF 2.1.0.
package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

const toolURI = "https://github.com/halcyonsec/guardian-cli"

// Summary aggregates the run's headline numbers.
type Summary struct {
	FilesAnalyzed int               `json:"files_analyzed"`
	TotalFindings int               `json:"total_findings"`
	ByRiskLevel   map[string]int    `json:"by_risk_level"`
	ByType        map[string]int    `json:"by_type"`
	Suppressed    int               `json:"suppressed"`
	StageFailures map[string]string `json:"stage_failures,omitempty"`
	TotalTokens   int               `json:"total_tokens"`
	EstimatedCost float64           `json:"estimated_cost_usd"`
}

// Report is the complete output of one pipeline run.
type Report struct {
	RunID       string            `json:"run_id"`
	Target      string            `json:"target"`
	GeneratedAt time.Time         `json:"generated_at"`
	Context     schemas.Context   `json:"context"`
	Summary     Summary           `json:"summary"`
	Findings    []schemas.Finding `json:"findings"`
}

// Input collects everything the builder needs from the finished run.
type Input struct {
	Target        string
	Context       schemas.Context
	Findings      []schemas.Finding
	FilesAnalyzed int
	Suppressed    int
	Tokens        int
	Cost          float64
	Failures      map[string]error
}

// Build assembles a Report from the run state.
func Build(in Input) *Report {
	summary := Summary{
		FilesAnalyzed: in.FilesAnalyzed,
		TotalFindings: len(in.Findings),
		ByRiskLevel:   make(map[string]int),
		ByType:        make(map[string]int),
		Suppressed:    in.Suppressed,
		TotalTokens:   in.Tokens,
		EstimatedCost: in.Cost,
	}
	for _, f := range in.Findings {
		if f.RiskLevel != "" {
			summary.ByRiskLevel[string(f.RiskLevel)]++
		}
		summary.ByType[string(f.Type)]++
	}
	if len(in.Failures) > 0 {
		summary.StageFailures = make(map[string]string, len(in.Failures))
		for stage, err := range in.Failures {
			summary.StageFailures[stage] = err.Error()
		}
	}

	return &Report{
		RunID:       uuid.NewString(),
		Target:      in.Target,
		GeneratedAt: time.Now().UTC(),
		Context:     in.Context,
		Summary:     summary,
		Findings:    in.Findings,
	}
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteSARIF renders the report in SARIF 2.1.0 for code-scanning consumers.
func (r *Report) WriteSARIF(w io.Writer) error {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("failed to create SARIF document: %w", err)
	}

	run := sarif.NewRunWithInformationURI("guardian-cli", toolURI)

	seenRules := make(map[string]bool)
	for _, f := range r.Findings {
		ruleID := string(f.Type)
		if !seenRules[ruleID] {
			run.AddRule(ruleID).
				WithDescription(ruleDescription(f.Type)).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{
					Level: sarifLevel(f.RiskLevel),
				})
			seenRules[ruleID] = true
		}

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.File)).
				WithRegion(sarif.NewRegion().WithStartLine(max(f.Line, 1))),
		)

		message := f.Message
		if f.Explanation != "" {
			message = fmt.Sprintf("%s\n\n%s", f.Message, f.Explanation)
		}

		result := sarif.NewRuleResult(ruleID).
			WithMessage(sarif.NewTextMessage(message)).
			WithLevel(sarifLevel(f.RiskLevel)).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}

	doc.AddRun(run)
	if err := doc.PrettyWrite(w); err != nil {
		return fmt.Errorf("failed to write SARIF report: %w", err)
	}
	return nil
}

// TopFindings returns the n highest-risk findings for console display.
func (r *Report) TopFindings(n int) []schemas.Finding {
	out := make([]schemas.Finding, len(r.Findings))
	copy(out, r.Findings)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RiskScore > out[j].RiskScore
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func ruleDescription(t schemas.FindingType) string {
	switch t {
	case schemas.TypeSecurity:
		return "Security vulnerability or exposed credential"
	case schemas.TypeStatic:
		return "External linter finding"
	case schemas.TypeComplexity:
		return "Structural complexity metric breach"
	case schemas.TypeSemantic:
		return "Model-detected logic or runtime risk"
	case schemas.TypeBugPattern:
		return "Known error-prone construct"
	case schemas.TypePerformance:
		return "Performance anti-pattern"
	case schemas.TypeBestPractice:
		return "Style or convention breach"
	default:
		return "Code review finding"
	}
}

func sarifLevel(level schemas.RiskLevel) string {
	switch level {
	case schemas.RiskCritical, schemas.RiskHigh:
		return "error"
	case schemas.RiskMedium:
		return "warning"
	case schemas.RiskLow, schemas.RiskMinimal:
		return "note"
	default:
		return "none"
	}
}
