// File: internal/analyzers/complexity/complexity.go
// Heuristic structural-complexity metrics: brace nesting, indentation depth,
// file size, function length, callback density, and comment ratio.
package complexity

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

const (
	maxNestingLevels  = 5
	maxFileLOC        = 500
	maxFunctionLines  = 50
	minCommentRatio   = 0.1
	commentRatioFloor = 100
)

var (
	callbackPattern = regexp.MustCompile(`function\s*\([^)]*\)\s*\{`)

	functionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`def\s+\w+\(`),
		regexp.MustCompile(`function\s+\w+\(`),
		regexp.MustCompile(`public\s+\w+\s+\w+\(`),
	}
)

// Detector measures structural complexity across the corpus.
type Detector struct {
	logger *zap.Logger
}

func NewDetector(logger *zap.Logger) *Detector {
	return &Detector{logger: logger.Named("complexity")}
}

func (d *Detector) Name() string { return "complexity_analysis" }

func (d *Detector) Detect(ctx context.Context, files map[string]string, _ schemas.Context) []schemas.Finding {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var findings []schemas.Finding
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		code := files[path]
		if isBraceLanguage(path) {
			findings = append(findings, analyzeBraceNesting(path, code)...)
		}
		findings = append(findings, analyzeGeneral(path, code)...)
	}
	d.logger.Debug("Complexity scan complete", zap.Int("findings", len(findings)))
	return findings
}

func isBraceLanguage(path string) bool {
	for _, suffix := range []string{".js", ".jsx", ".ts", ".tsx"} {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func analyzeBraceNesting(path, code string) []schemas.Finding {
	var findings []schemas.Finding

	nesting, maxNesting := 0, 0
	for _, line := range strings.Split(code, "\n") {
		nesting += strings.Count(line, "{") - strings.Count(line, "}")
		if nesting > maxNesting {
			maxNesting = nesting
		}
	}
	if maxNesting > maxNestingLevels {
		findings = append(findings, schemas.Finding{
			File:     path,
			Type:     schemas.TypeComplexity,
			Severity: schemas.SeverityHigh,
			Message:  fmt.Sprintf("Deep nesting detected: %d levels (recommended: <=%d)", maxNesting, maxNestingLevels),
		})
	}

	if n := len(callbackPattern.FindAllString(code, -1)); n > 3 {
		findings = append(findings, schemas.Finding{
			File:     path,
			Type:     schemas.TypeComplexity,
			Severity: schemas.SeverityMedium,
			Message:  fmt.Sprintf("Callback hell detected: %d nested callbacks", n),
		})
	}
	return findings
}

func analyzeGeneral(path, code string) []schemas.Finding {
	var findings []schemas.Finding
	lines := strings.Split(code, "\n")

	loc := 0
	commentLines := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isComment(trimmed) {
			commentLines++
			continue
		}
		loc++
	}

	if loc > maxFileLOC {
		findings = append(findings, schemas.Finding{
			File:     path,
			Type:     schemas.TypeComplexity,
			Severity: schemas.SeverityMedium,
			Message:  fmt.Sprintf("Large file: %d lines of code (recommended: <%d)", loc, maxFileLOC),
		})
	}

	if n, long := longestFunction(code); long {
		findings = append(findings, schemas.Finding{
			File:     path,
			Type:     schemas.TypeComplexity,
			Severity: schemas.SeverityHigh,
			Message:  fmt.Sprintf("Long function detected: ~%d lines (recommended: <%d)", n, maxFunctionLines),
		})
	}

	maxIndent := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent > maxIndent {
			maxIndent = indent
		}
	}
	// 5 levels of 4-space indents.
	if maxIndent > 20 {
		findings = append(findings, schemas.Finding{
			File:     path,
			Type:     schemas.TypeComplexity,
			Severity: schemas.SeverityHigh,
			Message:  fmt.Sprintf("Deep nesting: %d levels (recommended: <=%d)", maxIndent/4, maxNestingLevels),
		})
	}

	if loc > commentRatioFloor && float64(commentLines)/float64(loc) < minCommentRatio {
		ratio := float64(commentLines) / float64(loc) * 100
		findings = append(findings, schemas.Finding{
			File:     path,
			Type:     schemas.TypeComplexity,
			Severity: schemas.SeverityLow,
			Message:  fmt.Sprintf("Low comment ratio: %d/%d = %.1f%% (recommended: >10%%)", commentLines, loc, ratio),
		})
	}

	return findings
}

func isComment(trimmed string) bool {
	for _, prefix := range []string{"#", "//", "/*", "*"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// longestFunction estimates the length of the first overlong function found.
// A rough brace-balance walk capped at 200 lines, matching the heuristic
// nature of the other metrics here.
func longestFunction(code string) (int, bool) {
	for _, pat := range functionPatterns {
		loc := pat.FindStringIndex(code)
		if loc == nil {
			continue
		}
		remaining := strings.Split(code[loc[0]:], "\n")
		if len(remaining) > 200 {
			remaining = remaining[:200]
		}
		braces := 0
		count := 0
		for _, line := range remaining {
			count++
			braces += strings.Count(line, "{") - strings.Count(line, "}")
			if strings.Contains(line, "}") && braces <= 0 && count > 1 {
				break
			}
		}
		if count > maxFunctionLines {
			return count, true
		}
	}
	return 0, false
}
