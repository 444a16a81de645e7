// File: internal/analyzers/patterns/patterns.go
// Line-oriented regex detectors for known bug patterns, performance
// anti-patterns, and best-practice violations in Python sources.
package patterns

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

type rule struct {
	re      *regexp.Regexp
	message string
}

var bugRules = []rule{
	{regexp.MustCompile(`if\s+.*=\s+.*:`), "Assignment in condition (should be ==)"},
	{regexp.MustCompile(`except\s*:`), "Bare except clause catches all exceptions"},
	{regexp.MustCompile(`time\.sleep\(`), "Blocking sleep in async code"},
	{regexp.MustCompile(`open\([^)]*\)`), "File not closed (use with statement)"},
	{regexp.MustCompile(`==\s*True|==\s*False`), "Explicit boolean comparison (use \"if x:\" instead)"},
	{regexp.MustCompile(`\[\]\s*\+\s*\[`), "Inefficient list concatenation (use extend)"},
	{regexp.MustCompile(`range\(len\(`), "Range over length (use enumerate)"},
}

var perfRules = []rule{
	{regexp.MustCompile(`(?i)for.*in.*:\s*.*\.append\(`), "List comprehension would be faster"},
	{regexp.MustCompile(`(?i)\+\s*str\(`), "String concatenation in loop (use join)"},
	{regexp.MustCompile(`(?i)global\s+\w+`), "Global variable (impacts performance)"},
	{regexp.MustCompile(`(?i)re\.compile.*for.*in`), "Regex compiled in loop (move outside)"},
	{regexp.MustCompile(`(?i)json\.loads.*for.*in`), "JSON parsing in loop (batch if possible)"},
}

var practiceRules = []rule{
	{regexp.MustCompile(`print\(`), "Use logging instead of print"},
	{regexp.MustCompile(`TODO|FIXME|XXX`), "TODO/FIXME comment found"},
	{regexp.MustCompile(`type\(.*\)\s*==`), "Use isinstance() instead of type()"},
	{regexp.MustCompile(`len\(.*\)\s*==\s*0`), "Use \"if not x:\" instead of len() == 0"},
	{regexp.MustCompile(`dict\.keys\(\).*in`), "Redundant .keys() call"},
}

// Detector runs one rule table over every Python line. A single type backs
// the bug-pattern, performance, and best-practice detectors so the pipeline
// wires three independent stages out of the same machinery.
type Detector struct {
	name    string
	typ     schemas.FindingType
	sev     schemas.Severity
	rules   []rule
	prefix  string
	logger  *zap.Logger
}

func NewBugPatternDetector(logger *zap.Logger) *Detector {
	return &Detector{
		name:   "bug_pattern_analysis",
		typ:    schemas.TypeBugPattern,
		sev:    schemas.SeverityMedium,
		rules:  bugRules,
		logger: logger.Named("bugpatterns"),
	}
}

func NewPerformanceDetector(logger *zap.Logger) *Detector {
	return &Detector{
		name:   "performance_analysis",
		typ:    schemas.TypePerformance,
		sev:    schemas.SeverityLow,
		rules:  perfRules,
		prefix: "Performance: ",
		logger: logger.Named("performance"),
	}
}

func NewBestPracticeDetector(logger *zap.Logger) *Detector {
	return &Detector{
		name:   "best_practice_analysis",
		typ:    schemas.TypeBestPractice,
		sev:    schemas.SeverityLow,
		rules:  practiceRules,
		logger: logger.Named("bestpractices"),
	}
}

func (d *Detector) Name() string { return d.name }

func (d *Detector) Detect(ctx context.Context, files map[string]string, _ schemas.Context) []schemas.Finding {
	paths := make([]string, 0, len(files))
	for path := range files {
		if strings.HasSuffix(path, ".py") {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	var findings []schemas.Finding
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		for i, line := range strings.Split(files[path], "\n") {
			for _, r := range d.rules {
				if r.re.MatchString(line) {
					findings = append(findings, schemas.Finding{
						File:        path,
						Line:        i + 1,
						Type:        d.typ,
						Severity:    d.sev,
						Message:     d.prefix + r.message,
						CodeSnippet: strings.TrimSpace(line),
					})
				}
			}
		}
	}
	d.logger.Debug("Pattern scan complete", zap.String("detector", d.name), zap.Int("findings", len(findings)))
	return findings
}
