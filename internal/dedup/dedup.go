// File: internal/dedup/dedup.go
// Collapses findings that are semantically the same detection even when
// different detectors reported them with different wording.
package dedup

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

// prefixLen bounds the normalized message portion of a fingerprint.
const prefixLen = 50

var (
	// Tool-specific rule codes, e.g. "[B603: subprocess_without_shell]".
	toolCodeRe = regexp.MustCompile(`\[b\d+:.*?\]`)
	// Embedded line references, e.g. "line 42:".
	lineRefRe = regexp.MustCompile(`line \d+:`)
	// Remaining bare number prefixes, e.g. "42:".
	numberRe = regexp.MustCompile(`\d+:`)
)

// Fingerprint derives the deterministic key used to identify equivalent
// findings: file, line (0 for file-level findings), and a normalized message
// prefix with tool codes and number tokens stripped.
func Fingerprint(f schemas.Finding) string {
	msg := strings.ToLower(f.Message)
	msg = toolCodeRe.ReplaceAllString(msg, "")
	msg = lineRefRe.ReplaceAllString(msg, "")
	msg = numberRe.ReplaceAllString(msg, "")
	msg = strings.TrimSpace(msg)
	if len(msg) > prefixLen {
		msg = msg[:prefixLen]
	}
	return fmt.Sprintf("%s:%d:%s", f.File, f.Line, msg)
}

// Deduplicate collapses equivalent findings into one canonical (first-seen)
// record per fingerprint, merging provenance from the duplicates. The lookup
// is O(1) amortized per finding. Relative order of canonical records follows
// input order.
func Deduplicate(findings []schemas.Finding) []schemas.Finding {
	index := make(map[string]int, len(findings))
	out := make([]schemas.Finding, 0, len(findings))

	for _, f := range findings {
		fp := Fingerprint(f)
		i, seen := index[fp]
		if !seen {
			index[fp] = len(out)
			out = append(out, f)
			continue
		}
		mergeProvenance(&out[i], &f)
	}
	return out
}

// mergeProvenance appends the duplicate's originating detector into the
// canonical record's detected_by set and refreshes the confidence count.
func mergeProvenance(canonical, duplicate *schemas.Finding) {
	if len(canonical.DetectedBy) == 0 {
		canonical.DetectedBy = []string{canonical.Origin()}
	}
	origin := duplicate.Origin()
	for _, d := range canonical.DetectedBy {
		if d == origin {
			canonical.Confidence = len(canonical.DetectedBy)
			return
		}
	}
	canonical.DetectedBy = append(canonical.DetectedBy, origin)
	canonical.Confidence = len(canonical.DetectedBy)
}

// noisePatterns are message fragments with near-zero review value unless the
// scorer rated the finding as risky anyway.
var noisePatterns = []string{
	"line too long",
	"trailing whitespace",
	"missing final newline",
	"wrong import order",
	"unused import",
	"module level import",
	"lowercase variable",
	`invalid name "i"`,
	`invalid name "x"`,
	`invalid name "f"`,
}

// FilterNoise drops scored findings that match a noise pattern and carry
// negligible risk. It preserves the relative order of survivors and must run
// after scoring so the risk thresholds compare against real scores.
func FilterNoise(findings []schemas.Finding) []schemas.Finding {
	kept := make([]schemas.Finding, 0, len(findings))
	for _, f := range findings {
		if keep(f) {
			kept = append(kept, f)
		}
	}
	return kept
}

func keep(f schemas.Finding) bool {
	msg := strings.ToLower(f.Message)

	for _, p := range noisePatterns {
		if strings.Contains(msg, p) && f.RiskScore < 3 {
			return false
		}
	}
	if f.RiskScore >= 4 {
		return true
	}
	if f.Type == schemas.TypeSecurity {
		return true
	}
	if f.Type == schemas.TypeSemantic && strings.Contains(msg, "critical") {
		return true
	}
	if f.Type == schemas.TypeComplexity && f.RiskScore < 4 {
		return false
	}
	return true
}
