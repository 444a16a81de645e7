package schemas

import (
	"errors"
	"strings"
)

// -- Finding Schemas --

// FindingType categorizes the kind of issue a detector reported. The values
// are lowercase to keep report output and rule tables case-insensitive.
type FindingType string

// Constants defining the standard finding categories.
const (
	TypeStatic       FindingType = "static"        // Output of an external linter.
	TypeSecurity     FindingType = "security"      // Vulnerability or exposed credential.
	TypeComplexity   FindingType = "complexity"    // Structural complexity metric breach.
	TypeSemantic     FindingType = "semantic"      // LLM-detected logic or runtime risk.
	TypeBugPattern   FindingType = "bug_pattern"   // Known error-prone construct.
	TypePerformance  FindingType = "performance"   // Performance anti-pattern.
	TypeBestPractice FindingType = "best_practice" // Style or convention breach.
	TypeFileSummary  FindingType = "file_summary"  // Aggregate record for a noisy file.
)

// Severity is the detector-assigned initial estimate of how bad an issue is.
// It is independent of the risk level computed later in the pipeline.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RiskLevel is the categorical bucket derived from the composite risk score.
type RiskLevel string

const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
	RiskMinimal  RiskLevel = "MINIMAL"
)

// Finding is one normalized detected issue. Detectors populate the core
// fields; deduplication fills the provenance fields; the risk scorer fills
// the Risk* fields; the enhancer may attach free-text explanations.
type Finding struct {
	File        string      `json:"file"`
	Line        int         `json:"line,omitempty"` // 1-based; 0 means file-level.
	Type        FindingType `json:"type"`
	Severity    Severity    `json:"severity"`
	Message     string      `json:"message"`
	CodeSnippet string      `json:"code_snippet,omitempty"`

	// Tool identifies the detector that produced this record.
	Tool string `json:"tool,omitempty"`

	// Impact and SuggestedFix carry the semantic analyzer's continuation
	// lines when present.
	Impact       string `json:"impact,omitempty"`
	SuggestedFix string `json:"suggested_fix,omitempty"`

	// DetectedBy lists every detector that independently produced an
	// equivalent finding. Populated by deduplication; empty before it runs.
	DetectedBy []string `json:"detected_by,omitempty"`
	Confidence int      `json:"confidence,omitempty"`

	RiskScore      float64   `json:"risk_score,omitempty"`
	RiskLevel      RiskLevel `json:"risk_level,omitempty"`
	RiskImpact     int       `json:"risk_impact,omitempty"`
	RiskLikelihood int       `json:"risk_likelihood,omitempty"`
	RiskScope      int       `json:"risk_scope,omitempty"`
	RiskFixCost    int       `json:"risk_fix_cost,omitempty"`

	// Explanation is attached by the downstream explanation enhancer.
	Explanation string `json:"explanation,omitempty"`
}

var (
	// ErrMissingFile indicates a finding was constructed without a file path.
	ErrMissingFile = errors.New("finding requires a file path")
	// ErrMissingMessage indicates a finding was constructed without a message.
	ErrMissingMessage = errors.New("finding requires a non-empty message")
)

// NewFinding constructs a Finding, validating the required core fields.
func NewFinding(file string, typ FindingType, severity Severity, message string) (Finding, error) {
	f := Finding{File: file, Type: typ, Severity: severity, Message: message}
	if err := f.Validate(); err != nil {
		return Finding{}, err
	}
	return f, nil
}

// Validate checks the required core fields.
func (f *Finding) Validate() error {
	if f.File == "" {
		return ErrMissingFile
	}
	if strings.TrimSpace(f.Message) == "" {
		return ErrMissingMessage
	}
	return nil
}

// Origin returns the detector identifier used for provenance tracking,
// falling back to the finding type when the detector did not set one.
func (f *Finding) Origin() string {
	if f.Tool != "" {
		return f.Tool
	}
	return string(f.Type)
}
