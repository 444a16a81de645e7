// File: internal/pipeline/pipeline.go
// The graph executor runs a DAG of named stages: detector stages fan out
// concurrently once their predecessors are done, and their contributions are
// merged back into a single accumulating state by the executor itself,
// single-threaded, in stage declaration order. Stages own no shared state.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

var (
	// ErrCyclicGraph is returned before any stage executes when the declared
	// dependencies contain a cycle. This is the only run-fatal condition.
	ErrCyclicGraph = errors.New("pipeline: stage graph contains a cycle")
	// ErrUnknownStage is returned when a stage declares a predecessor that
	// was never added to the graph.
	ErrUnknownStage = errors.New("pipeline: unknown predecessor stage")
	// ErrDuplicateStage is returned when two stages share a name.
	ErrDuplicateStage = errors.New("pipeline: duplicate stage name")
)

// Snapshot is the read-only view of the pipeline state handed to a stage.
// The Files map must not be mutated; Findings is a copy.
type Snapshot struct {
	Files    map[string]string
	Context  schemas.Context
	Findings []schemas.Finding
}

// Contribution is the partial result a stage returns. The executor merges it
// into the accumulating state under a fixed per-field policy: Findings are
// append-merged (or rewrite the list, for stages declared with
// AddRewriteStage), Context is first-writer-wins, and the scalar counters
// are summed.
type Contribution struct {
	Findings   []schemas.Finding
	Context    *schemas.Context
	Tokens     int
	Cost       float64
	Suppressed int
}

// StageFunc is the unit of work for a single stage.
type StageFunc func(ctx context.Context, snap Snapshot) (Contribution, error)

// State is the data threaded through the executor. It is mutated exclusively
// by the executor at join points.
type State struct {
	Files      map[string]string
	Context    schemas.Context
	Findings   []schemas.Finding
	Tokens     int
	Cost       float64
	Suppressed int

	// Failures records every stage that was recovered rather than completed.
	Failures map[string]error

	contextSet bool
}

func (s *State) snapshot() Snapshot {
	findings := make([]schemas.Finding, len(s.Findings))
	copy(findings, s.Findings)
	return Snapshot{Files: s.Files, Context: s.Context, Findings: findings}
}

type stage struct {
	name    string
	deps    []string
	run     StageFunc
	rewrite bool
}

// Graph is a directed acyclic graph of named stages.
type Graph struct {
	logger      *zap.Logger
	stages      []*stage
	index       map[string]int
	concurrency int
}

// Option configures a Graph.
type Option func(*Graph)

// WithConcurrency caps how many ready stages execute at once.
func WithConcurrency(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// New creates an empty stage graph.
func New(logger *zap.Logger, opts ...Option) *Graph {
	g := &Graph{
		logger:      logger.Named("pipeline"),
		index:       make(map[string]int),
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddStage declares a stage whose finding contribution is append-merged.
func (g *Graph) AddStage(name string, deps []string, fn StageFunc) error {
	return g.add(name, deps, fn, false)
}

// AddRewriteStage declares a stage whose finding contribution replaces the
// accumulated list. Used by the transform stages (deduplication, scoring,
// suppression) that consume the joined findings and emit a reshaped list.
func (g *Graph) AddRewriteStage(name string, deps []string, fn StageFunc) error {
	return g.add(name, deps, fn, true)
}

func (g *Graph) add(name string, deps []string, fn StageFunc, rewrite bool) error {
	if _, exists := g.index[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateStage, name)
	}
	g.index[name] = len(g.stages)
	g.stages = append(g.stages, &stage{name: name, deps: append([]string(nil), deps...), run: fn, rewrite: rewrite})
	return nil
}

// check resolves all predecessor references and rejects cyclic graphs using
// Kahn's algorithm. It runs before any stage executes.
func (g *Graph) check() error {
	indegree := make([]int, len(g.stages))
	for _, st := range g.stages {
		for _, d := range st.deps {
			if _, ok := g.index[d]; !ok {
				return fmt.Errorf("%w: stage %q declares predecessor %q", ErrUnknownStage, st.name, d)
			}
			indegree[g.index[st.name]]++
		}
	}

	queue := make([]int, 0, len(g.stages))
	for i, deg := range indegree {
		if deg == 0 {
			queue = append(queue, i)
		}
	}
	visited := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visited++
		for i, st := range g.stages {
			for _, d := range st.deps {
				if g.index[d] == cur {
					indegree[i]--
					if indegree[i] == 0 {
						queue = append(queue, i)
					}
				}
			}
		}
	}
	if visited != len(g.stages) {
		return ErrCyclicGraph
	}
	return nil
}

// Run executes the graph to completion. Every declared stage either runs or
// is recorded as a recovered failure; no stage failure aborts the run. On
// cancellation the partial state merged so far is returned alongside the
// context error.
func (g *Graph) Run(ctx context.Context, files map[string]string) (*State, error) {
	if err := g.check(); err != nil {
		return nil, err
	}

	state := &State{
		Files:    files,
		Context:  schemas.DefaultContext(),
		Failures: make(map[string]error),
	}

	done := make([]bool, len(g.stages))
	completed := 0

	for completed < len(g.stages) {
		if err := ctx.Err(); err != nil {
			g.logger.Warn("Run cancelled; returning partial state",
				zap.Int("completed", completed), zap.Int("declared", len(g.stages)))
			return state, err
		}

		// Collect the wave of ready stages in declaration order.
		var wave []int
		for i, st := range g.stages {
			if done[i] {
				continue
			}
			ready := true
			for _, d := range st.deps {
				if !done[g.index[d]] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, i)
			}
		}
		// check() guarantees progress on an acyclic graph.

		snap := state.snapshot()
		contributions := make([]Contribution, len(wave))
		failures := make([]error, len(wave))

		var eg errgroup.Group
		eg.SetLimit(g.concurrency)
		for wi, si := range wave {
			wi, si := wi, si
			eg.Go(func() error {
				contributions[wi], failures[wi] = g.runStage(ctx, g.stages[si], snap)
				return nil
			})
		}
		// Stage failures are recovered, never returned.
		_ = eg.Wait()

		// Merge is single-threaded and follows declaration order, never
		// completion order, so the result is reproducible.
		for wi, si := range wave {
			st := g.stages[si]
			if failures[wi] != nil {
				state.Failures[st.name] = failures[wi]
				g.logger.Warn("Stage recovered with empty contribution",
					zap.String("stage", st.name), zap.Error(failures[wi]))
			} else {
				g.merge(st, contributions[wi], state)
			}
			done[si] = true
		}
		completed += len(wave)
	}

	return state, nil
}

func (g *Graph) runStage(ctx context.Context, st *stage, snap Snapshot) (contrib Contribution, err error) {
	defer func() {
		if r := recover(); r != nil {
			contrib = Contribution{}
			err = fmt.Errorf("stage %q panicked: %v", st.name, r)
		}
	}()
	g.logger.Debug("Stage starting", zap.String("stage", st.name))
	contrib, err = st.run(ctx, snap)
	if err != nil {
		return Contribution{}, err
	}
	g.logger.Debug("Stage complete",
		zap.String("stage", st.name), zap.Int("findings", len(contrib.Findings)))
	return contrib, nil
}

func (g *Graph) merge(st *stage, c Contribution, state *State) {
	if c.Context != nil {
		if state.contextSet {
			// First writer wins; a second write is a stage defect.
			g.logger.Warn("Context already set; ignoring re-write", zap.String("stage", st.name))
		} else {
			state.Context = *c.Context
			state.contextSet = true
		}
	}
	if st.rewrite {
		state.Findings = c.Findings
	} else {
		state.Findings = append(state.Findings, c.Findings...)
	}
	state.Tokens += c.Tokens
	state.Cost += c.Cost
	state.Suppressed += c.Suppressed
}
