// File: internal/analyzers/lint/lint.go
// Adapter for external Python linters (pylint, flake8). Files are staged in
// the workspace and each tool runs under its own deadline. Missing binaries
// are skipped; they must never take the pipeline down.
package lint

import (
	"context"
	"errors"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
	"github.com/halcyonsec/guardian-cli/internal/config"
	"github.com/halcyonsec/guardian-cli/internal/workspace"
)

// pylintCodes are the message-class prefixes worth reporting.
var pylintCodes = []string{"C0", "W0", "E0", "R0", "F0"}

// Detector shells out to the configured linters over a staged copy of the
// corpus.
type Detector struct {
	cfg    config.LintConfig
	ws     *workspace.Handle
	logger *zap.Logger
}

func NewDetector(cfg config.LintConfig, ws *workspace.Handle, logger *zap.Logger) *Detector {
	return &Detector{cfg: cfg, ws: ws, logger: logger.Named("lint")}
}

func (d *Detector) Name() string { return "static_analysis" }

func (d *Detector) Detect(ctx context.Context, files map[string]string, _ schemas.Context) []schemas.Finding {
	pyFiles := make(map[string]string)
	for path, code := range files {
		if strings.HasSuffix(path, ".py") {
			pyFiles[path] = code
		}
	}
	if len(pyFiles) == 0 {
		return nil
	}

	staged, err := d.ws.WriteFiles("lint", pyFiles)
	if err != nil {
		d.logger.Warn("Failed to stage files for linting", zap.Error(err))
		return nil
	}

	rels := make([]string, 0, len(staged))
	for rel := range staged {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	var findings []schemas.Finding
	for _, rel := range rels {
		if ctx.Err() != nil {
			break
		}
		abs := staged[rel]
		for _, tool := range d.cfg.Tools {
			out, err := d.run(ctx, tool, abs)
			if err != nil {
				if errors.Is(err, exec.ErrNotFound) {
					d.logger.Debug("Linter not installed, skipping", zap.String("tool", tool))
					continue
				}
				// Linters exit nonzero when they find issues; output is
				// still usable.
			}
			switch tool {
			case "pylint":
				findings = append(findings, parsePylint(rel, out)...)
			case "flake8":
				findings = append(findings, parseFlake8(rel, out)...)
			default:
				d.logger.Warn("Unknown lint tool configured", zap.String("tool", tool))
			}
		}
	}
	d.logger.Debug("Lint pass complete", zap.Int("findings", len(findings)))
	return findings
}

func (d *Detector) run(ctx context.Context, tool, path string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	args := []string{path}
	if tool == "flake8" {
		args = append(args, "--max-line-length=100")
	}
	cmd := exec.CommandContext(runCtx, tool, args...)
	out, err := cmd.Output()
	return string(out), err
}

func parsePylint(file, out string) []schemas.Finding {
	var findings []schemas.Finding
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, ":") || !containsAny(line, pylintCodes) {
			continue
		}
		parts := strings.SplitN(line, ":", 4)
		msg := strings.TrimSpace(parts[len(parts)-1])
		lineNum := 0
		if len(parts) >= 2 {
			if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
				lineNum = n
			}
		}
		findings = append(findings, schemas.Finding{
			File:     file,
			Line:     lineNum,
			Type:     schemas.TypeStatic,
			Severity: schemas.SeverityLow,
			Message:  msg,
			Tool:     "pylint",
		})
	}
	return findings
}

func parseFlake8(file, out string) []schemas.Finding {
	var findings []schemas.Finding
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" || !strings.Contains(line, ":") {
			continue
		}
		parts := strings.Split(line, ":")
		if len(parts) < 4 {
			continue
		}
		lineNum := 0
		if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			lineNum = n
		}
		msg := strings.TrimSpace(strings.Join(parts[3:], ":"))
		findings = append(findings, schemas.Finding{
			File:     file,
			Line:     lineNum,
			Type:     schemas.TypeStatic,
			Severity: schemas.SeverityLow,
			Message:  msg,
			Tool:     "flake8",
		})
	}
	return findings
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
