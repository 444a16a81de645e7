package schemas

// Stage describes the maturity of the codebase under review.
type Stage string

const (
	StagePrototype   Stage = "prototype"
	StageDevelopment Stage = "development"
	StageProduction  Stage = "production"
)

// Context is the per-run analysis metadata derived once from the corpus and
// treated as immutable by every downstream stage.
type Context struct {
	Purpose             string `json:"purpose"`
	ProjectType         string `json:"project_type"`
	Stage               Stage  `json:"stage"`
	PerformanceCritical bool   `json:"is_performance_critical"`
	DomainComplexity    bool   `json:"has_domain_complexity"`
	RiskTolerance       string `json:"risk_tolerance"` // low, medium, high
}

// DefaultContext returns the documented fallback used whenever the context
// producer cannot run (missing credentials, unreachable analyzer, empty
// corpus). Every downstream rule has a defined behavior under these values.
func DefaultContext() Context {
	return Context{
		Purpose:       "Code review",
		ProjectType:   "Application",
		Stage:         StageDevelopment,
		RiskTolerance: "medium",
	}
}
