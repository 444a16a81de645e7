// File: internal/analyzers/security/security.go
// Regex-driven security detector covering XSS sinks, SQL injection by string
// concatenation, insecure transport and CORS, and hardcoded credentials.
package security

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

type lineRule struct {
	re       *regexp.Regexp
	message  string
	severity schemas.Severity
}

var xssRules = []lineRule{
	{regexp.MustCompile(`innerHTML\s*=`), "Potential XSS: Using innerHTML without sanitization", schemas.SeverityMedium},
	{regexp.MustCompile(`eval\s*\(`), "Critical: eval() usage - arbitrary code execution", schemas.SeverityHigh},
	{regexp.MustCompile(`document\.write\s*\(`), "Potential XSS: document.write() can inject scripts", schemas.SeverityMedium},
	{regexp.MustCompile(`dangerouslySetInnerHTML`), "Warning: dangerouslySetInnerHTML in React", schemas.SeverityMedium},
}

// sqlRules match against the whole file: concatenated query fragments often
// span lines.
var sqlRules = []lineRule{
	{regexp.MustCompile(`(?i)execute\s*\(\s*["'].*\+.*["']`), "SQL Injection: String concatenation in query", schemas.SeverityCritical},
	{regexp.MustCompile(`(?i)query\s*\(\s*["'].*\+.*["']`), "SQL Injection: String concatenation in query", schemas.SeverityCritical},
	{regexp.MustCompile(`(?i)SELECT.*\+.*FROM`), "SQL Injection: Dynamic SQL with concatenation", schemas.SeverityCritical},
	{regexp.MustCompile(`(?i)f["']SELECT.*\{.*\}.*FROM`), "SQL Injection: f-string in SQL query", schemas.SeverityCritical},
}

var secretRules = []lineRule{
	{regexp.MustCompile(`(?i)password\s*=\s*["'][^"']{3,}["']`), "Hardcoded password detected", schemas.SeverityCritical},
	{regexp.MustCompile(`(?i)api[_-]?key\s*=\s*["'][^"']{10,}["']`), "Hardcoded API key detected", schemas.SeverityCritical},
	{regexp.MustCompile(`(?i)secret\s*=\s*["'][^"']{10,}["']`), "Hardcoded secret detected", schemas.SeverityCritical},
	{regexp.MustCompile(`(?i)token\s*=\s*["'][^"']{10,}["']`), "Hardcoded token detected", schemas.SeverityCritical},
	{regexp.MustCompile(`(?i)aws[_-]?secret`), "AWS secret key detected", schemas.SeverityCritical},
	{regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`), "Potential API secret key", schemas.SeverityCritical},
	{regexp.MustCompile(`pk-[a-zA-Z0-9]{20,}`), "Potential API public key", schemas.SeverityCritical},
}

var (
	corsWildcard = regexp.MustCompile(`Access-Control-Allow-Origin:\s*\*`)
	insecureHTTP = regexp.MustCompile(`(?i)http://`)
	localHTTP    = regexp.MustCompile(`(?i)http://localhost`)
)

// placeholders marks secrets that are documentation, not leaks.
var placeholders = []string{"example", "your_", "placeholder", "xxx", "***", "test"}

// Detector scans the corpus for security findings.
type Detector struct {
	logger *zap.Logger
}

func NewDetector(logger *zap.Logger) *Detector {
	return &Detector{logger: logger.Named("security")}
}

func (d *Detector) Name() string { return "security_analysis" }

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
		if isWebFile(path) {
			findings = append(findings, d.scanWeb(path, code)...)
		}
		findings = append(findings, d.scanSQL(path, code)...)
		findings = append(findings, d.scanSecrets(path, code)...)
	}
	d.logger.Debug("Security scan complete", zap.Int("findings", len(findings)))
	return findings
}

func isWebFile(path string) bool {
	for _, suffix := range []string{".js", ".jsx", ".ts", ".tsx", ".html"} {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func (d *Detector) scanWeb(path, code string) []schemas.Finding {
	var findings []schemas.Finding
	for i, line := range strings.Split(code, "\n") {
		for _, rule := range xssRules {
			if rule.re.MatchString(line) {
				findings = append(findings, schemas.Finding{
					File:        path,
					Line:        i + 1,
					Type:        schemas.TypeSecurity,
					Severity:    rule.severity,
					Message:     rule.message,
					CodeSnippet: strings.TrimSpace(line),
				})
			}
		}
		if corsWildcard.MatchString(line) {
			findings = append(findings, schemas.Finding{
				File:        path,
				Line:        i + 1,
				Type:        schemas.TypeSecurity,
				Severity:    schemas.SeverityMedium,
				Message:     "Insecure CORS: Wildcard (*) allows any origin",
				CodeSnippet: strings.TrimSpace(line),
			})
		}
		if insecureHTTP.MatchString(line) && !localHTTP.MatchString(line) {
			findings = append(findings, schemas.Finding{
				File:        path,
				Line:        i + 1,
				Type:        schemas.TypeSecurity,
				Severity:    schemas.SeverityLow,
				Message:     "Insecure HTTP connection (should use HTTPS)",
				CodeSnippet: truncate(strings.TrimSpace(line), 80),
			})
		}
	}
	return findings
}

func (d *Detector) scanSQL(path, code string) []schemas.Finding {
	var findings []schemas.Finding
	for _, rule := range sqlRules {
		if rule.re.MatchString(code) {
			findings = append(findings, schemas.Finding{
				File:     path,
				Type:     schemas.TypeSecurity,
				Severity: rule.severity,
				Message:  rule.message,
			})
		}
	}
	return findings
}

func (d *Detector) scanSecrets(path, code string) []schemas.Finding {
	var findings []schemas.Finding
	for i, line := range strings.Split(code, "\n") {
		for _, rule := range secretRules {
			for _, match := range rule.re.FindAllString(line, -1) {
				if isPlaceholder(match) {
					continue
				}
				findings = append(findings, schemas.Finding{
					File:        path,
					Line:        i + 1,
					Type:        schemas.TypeSecurity,
					Severity:    rule.severity,
					Message:     fmt.Sprintf("%s: %s...", rule.message, truncate(match, 30)),
					CodeSnippet: strings.TrimSpace(line),
				})
			}
		}
	}
	return findings
}

func isPlaceholder(match string) bool {
	lower := strings.ToLower(match)
	for _, p := range placeholders {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
