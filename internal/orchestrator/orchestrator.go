// File: internal/orchestrator/orchestrator.go
// Assembles the review pipeline: context derivation, the detector fan-out,
// then the deduplication, risk-scoring, and suppression joins, finishing
// with optional explanation enhancement and report assembly.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
	"github.com/halcyonsec/guardian-cli/internal/analyzers/complexity"
	"github.com/halcyonsec/guardian-cli/internal/analyzers/contextual"
	"github.com/halcyonsec/guardian-cli/internal/analyzers/lint"
	"github.com/halcyonsec/guardian-cli/internal/analyzers/patterns"
	"github.com/halcyonsec/guardian-cli/internal/analyzers/security"
	"github.com/halcyonsec/guardian-cli/internal/analyzers/semantic"
	"github.com/halcyonsec/guardian-cli/internal/config"
	"github.com/halcyonsec/guardian-cli/internal/corpus"
	"github.com/halcyonsec/guardian-cli/internal/dedup"
	"github.com/halcyonsec/guardian-cli/internal/enhance"
	"github.com/halcyonsec/guardian-cli/internal/llmclient"
	"github.com/halcyonsec/guardian-cli/internal/pipeline"
	"github.com/halcyonsec/guardian-cli/internal/reporting"
	"github.com/halcyonsec/guardian-cli/internal/risk"
	"github.com/halcyonsec/guardian-cli/internal/suppress"
	"github.com/halcyonsec/guardian-cli/internal/workspace"
)

// Stage names, referenced by dependency declarations and failure reports.
const (
	StageContext      = "context_analysis"
	StageStatic       = "static_analysis"
	StageSecurity     = "security_analysis"
	StageComplexity   = "complexity_analysis"
	StageSemantic     = "semantic_analysis"
	StageBugPatterns  = "bug_pattern_analysis"
	StagePerformance  = "performance_analysis"
	StageBestPractice = "best_practice_analysis"
	StageDedup        = "deduplication"
	StageRiskScoring  = "risk_scoring"
	StageSuppression  = "suppression"
)

// Orchestrator owns one scan run end to end.
type Orchestrator struct {
	cfg    *config.Config
	logger *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, logger: logger.Named("orchestrator")}
}

// Run loads the target corpus, executes the pipeline, and assembles the
// final report. Only a cyclic stage graph or a failed corpus load is fatal.
func (o *Orchestrator) Run(ctx context.Context) (*reporting.Report, error) {
	ws, err := workspace.New(o.logger)
	if err != nil {
		return nil, err
	}
	defer ws.Cleanup()

	loader := corpus.NewLoader(o.cfg.Corpus, o.logger)
	files, err := loader.Load(ctx, o.cfg.Scan.Target, ws)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	client := o.buildLLMClient()

	graph, err := o.buildGraph(client, ws)
	if err != nil {
		return nil, err
	}

	state, err := graph.Run(ctx, files)
	if err != nil {
		return nil, err
	}

	findings := state.Findings
	tokens, cost := state.Tokens, state.Cost

	if o.cfg.Scan.Explain && client != nil {
		enhancer := enhance.New(client, o.logger)
		findings = enhancer.Explain(ctx, findings)
		t, c := enhancer.Usage()
		tokens += t
		cost += c
	}

	report := reporting.Build(reporting.Input{
		Target:        o.cfg.Scan.Target,
		Context:       state.Context,
		Findings:      findings,
		FilesAnalyzed: len(files),
		Suppressed:    state.Suppressed,
		Tokens:        tokens,
		Cost:          cost,
		Failures:      state.Failures,
	})
	return report, nil
}

// buildLLMClient returns nil when no credentials are configured; the
// model-backed stages degrade to their defaults in that case.
func (o *Orchestrator) buildLLMClient() schemas.LLMClient {
	client, err := llmclient.New(o.cfg.LLM, o.logger)
	if err != nil {
		if errors.Is(err, llmclient.ErrNoCredentials) {
			o.logger.Info("No LLM credentials configured; model-backed stages will use defaults")
		} else {
			o.logger.Warn("Failed to build LLM client; model-backed stages will use defaults", zap.Error(err))
		}
		return nil
	}
	return client
}

func (o *Orchestrator) buildGraph(client schemas.LLMClient, ws *workspace.Handle) (*pipeline.Graph, error) {
	graph := pipeline.New(o.logger, pipeline.WithConcurrency(o.cfg.Engine.DetectorConcurrency))

	producer := contextual.NewProducer(client, o.logger)
	if err := graph.AddStage(StageContext, nil, func(ctx context.Context, snap pipeline.Snapshot) (pipeline.Contribution, error) {
		actx := producer.Derive(ctx, snap.Files)
		tokens, cost := producer.Usage()
		return pipeline.Contribution{Context: &actx, Tokens: tokens, Cost: cost}, nil
	}); err != nil {
		return nil, err
	}

	detectorDeps := []string{StageContext}
	var detectorStages []string
	addDetector := func(name string, enabled bool, d schemas.Detector) error {
		if !enabled {
			return nil
		}
		detectorStages = append(detectorStages, name)
		return graph.AddStage(name, detectorDeps, func(ctx context.Context, snap pipeline.Snapshot) (pipeline.Contribution, error) {
			runCtx, cancel := context.WithTimeout(ctx, o.cfg.Engine.StageTimeout)
			defer cancel()
			return pipeline.Contribution{Findings: d.Detect(runCtx, snap.Files, snap.Context)}, nil
		})
	}

	an := o.cfg.Analyzers
	if err := addDetector(StageStatic, an.Lint.Enabled, lint.NewDetector(an.Lint, ws, o.logger)); err != nil {
		return nil, err
	}
	if err := addDetector(StageSecurity, an.Security.Enabled, security.NewDetector(o.logger)); err != nil {
		return nil, err
	}
	if err := addDetector(StageComplexity, an.Complexity.Enabled, complexity.NewDetector(o.logger)); err != nil {
		return nil, err
	}
	if err := addDetector(StageBugPatterns, an.BugPatterns.Enabled, patterns.NewBugPatternDetector(o.logger)); err != nil {
		return nil, err
	}
	if err := addDetector(StagePerformance, an.Performance.Enabled, patterns.NewPerformanceDetector(o.logger)); err != nil {
		return nil, err
	}
	if err := addDetector(StageBestPractice, an.BestPractice.Enabled, patterns.NewBestPracticeDetector(o.logger)); err != nil {
		return nil, err
	}

	if an.Semantic.Enabled && client != nil {
		sem := semantic.NewDetector(client, o.cfg.LLM.MaxTokens, o.logger)
		detectorStages = append(detectorStages, StageSemantic)
		if err := graph.AddStage(StageSemantic, detectorDeps, func(ctx context.Context, snap pipeline.Snapshot) (pipeline.Contribution, error) {
			findings := sem.Detect(ctx, snap.Files, snap.Context)
			tokens, cost := sem.Usage()
			return pipeline.Contribution{Findings: findings, Tokens: tokens, Cost: cost}, nil
		}); err != nil {
			return nil, err
		}
	}

	// Join stages consume the merged detector output and reshape it.
	if err := graph.AddRewriteStage(StageDedup, detectorStages, func(_ context.Context, snap pipeline.Snapshot) (pipeline.Contribution, error) {
		return pipeline.Contribution{Findings: dedup.Deduplicate(snap.Findings)}, nil
	}); err != nil {
		return nil, err
	}

	if err := graph.AddRewriteStage(StageRiskScoring, []string{StageDedup}, func(_ context.Context, snap pipeline.Snapshot) (pipeline.Contribution, error) {
		scorer := risk.NewScorer(snap.Context)
		return pipeline.Contribution{Findings: scorer.ScoreAll(snap.Findings)}, nil
	}); err != nil {
		return nil, err
	}

	if err := graph.AddRewriteStage(StageSuppression, []string{StageRiskScoring}, func(_ context.Context, snap pipeline.Snapshot) (pipeline.Contribution, error) {
		engine := suppress.NewEngine(snap.Context, o.logger)
		kept, suppressed := engine.Apply(snap.Findings)
		filtered := dedup.FilterNoise(kept)
		return pipeline.Contribution{Findings: filtered, Suppressed: suppressed + (len(kept) - len(filtered))}, nil
	}); err != nil {
		return nil, err
	}

	return graph, nil
}
