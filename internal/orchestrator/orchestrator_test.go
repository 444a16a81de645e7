package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
	"github.com/halcyonsec/guardian-cli/internal/config"
)

// offlineConfig disables the stages that shell out or hit the network so the
// run exercises the built-in detectors end to end.
func offlineConfig(target string) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Analyzers.Lint.Enabled = false
	cfg.LLM.APIKey = ""
	cfg.Scan.Target = target
	cfg.Scan.Format = "json"
	return cfg
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestRun_EndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := writeCorpus(t, map[string]string{
		"app.js":      "const out = eval(userInput);\n",
		"settings.py": `password = "hunter2-prod"` + "\n",
		"clean.py":    "VALUE = 1\n",
	})

	o := New(offlineConfig(root), zap.NewNop())
	report, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.FilesAnalyzed)
	assert.NotEmpty(t, report.RunID)
	require.NotEmpty(t, report.Findings)

	var evalFinding *schemas.Finding
	for i := range report.Findings {
		if report.Findings[i].Message == "Critical: eval() usage - arbitrary code execution" {
			evalFinding = &report.Findings[i]
		}
	}
	require.NotNil(t, evalFinding, "eval() finding must survive the full pipeline")
	assert.Equal(t, "app.js", evalFinding.File)
	assert.InDelta(t, 9.1, evalFinding.RiskScore, 1e-9)
	assert.Equal(t, schemas.RiskCritical, evalFinding.RiskLevel)

	// Findings come out scored and sorted descending.
	for i := 1; i < len(report.Findings); i++ {
		assert.GreaterOrEqual(t, report.Findings[i-1].RiskScore, report.Findings[i].RiskScore)
	}

	// Without credentials the LLM stages contribute nothing.
	assert.Zero(t, report.Summary.TotalTokens)
	assert.Zero(t, report.Summary.EstimatedCost)
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"a.py": "except:\n    pass\nprint(1)\n",
		"b.js": "el.innerHTML = data;\n",
	})

	first, err := New(offlineConfig(root), zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		next, err := New(offlineConfig(root), zap.NewNop()).Run(context.Background())
		require.NoError(t, err)
		require.Len(t, next.Findings, len(first.Findings))
		for j := range first.Findings {
			assert.Equal(t, first.Findings[j].Message, next.Findings[j].Message)
			assert.Equal(t, first.Findings[j].File, next.Findings[j].File)
		}
	}
}

func TestRun_SuppressedFindingsCounted(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"migrations/0001_init.py": "except:\n    pass\n",
		"app.py":                  "except:\n    pass\n",
	})

	report, err := New(offlineConfig(root), zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	for _, f := range report.Findings {
		assert.NotEqual(t, "migrations/0001_init.py", f.File, "generated code findings are suppressed")
	}
	assert.Positive(t, report.Summary.Suppressed)
}

func TestRun_MissingTargetIsFatal(t *testing.T) {
	_, err := New(offlineConfig("/does/not/exist"), zap.NewNop()).Run(context.Background())
	assert.Error(t, err)
}

func TestRun_EmptyCorpusProducesEmptyReport(t *testing.T) {
	root := writeCorpus(t, map[string]string{"README.md": "# nothing scannable"})

	report, err := New(offlineConfig(root), zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Summary.FilesAnalyzed)
	assert.Empty(t, report.Findings)
	assert.Empty(t, report.Summary.StageFailures)
}

func TestRun_CancelledContext(t *testing.T) {
	root := writeCorpus(t, map[string]string{"a.py": "x = 1\n"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := New(offlineConfig(root), zap.NewNop()).Run(ctx)
	assert.Error(t, err)
}

func TestBuildGraph_StageToggles(t *testing.T) {
	cfg := offlineConfig(".")
	cfg.Analyzers.Security.Enabled = false
	cfg.Analyzers.Complexity.Enabled = false
	cfg.Analyzers.BugPatterns.Enabled = false
	cfg.Analyzers.Performance.Enabled = false
	cfg.Analyzers.BestPractice.Enabled = false

	o := New(cfg, zap.NewNop())
	graph, err := o.buildGraph(nil, nil)
	require.NoError(t, err)

	// With every detector disabled the graph still runs: context stage plus
	// the three join stages over an empty detector set.
	state, err := graph.Run(context.Background(), map[string]string{})
	require.NoError(t, err)
	assert.Empty(t, state.Findings)
	assert.Empty(t, state.Failures)
}
