// Package engine implements the dependency-aware, wave-based check
// execution state machine (spec.md §4.9): Init, WavePlanning, LevelDispatch,
// RoutingApply, Completed, Stopped. It is the orchestration layer tying
// together pkg/graph, pkg/journal, pkg/condition, pkg/routing,
// pkg/foreach, pkg/gate, pkg/stats, and pkg/dispatch.
//
// Grounded on the teacher's execution_checkpoint.go/types.go
// (ExecutionOptions, RetryPolicy/BackoffStrategy, checkpoint-as-progress-
// snapshot idiom) and pkg/engine/interfaces.go's Observer/Event shape —
// reworked from workflow/node execution onto check/scope execution.
package engine

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/checkrun-dev/engine/internal/tracing"
	"github.com/checkrun-dev/engine/pkg/condition"
	"github.com/checkrun-dev/engine/pkg/dispatch"
	"github.com/checkrun-dev/engine/pkg/foreach"
	"github.com/checkrun-dev/engine/pkg/graph"
	"github.com/checkrun-dev/engine/pkg/journal"
	"github.com/checkrun-dev/engine/pkg/models"
	"github.com/checkrun-dev/engine/pkg/routing"
	"github.com/checkrun-dev/engine/pkg/stats"
)

// Options configures engine-wide behavior not carried by RunConfig itself —
// second-line resource guards and evaluation tuning (spec.md §5).
type Options struct {
	// WaveCap bounds total waves per run regardless of loop budgets, the
	// "second-line guard" spec.md §5 calls for.
	WaveCap int
	// DefaultCheckTimeout applies to every check invocation; providers may
	// override it via their own config (outside engine scope).
	DefaultCheckTimeout time.Duration
	// ConditionWallTime bounds if/routing expression evaluation. Zero uses
	// pkg/condition's own default.
	ConditionWallTime time.Duration
}

// DefaultOptions returns the engine's defaults.
func DefaultOptions() Options {
	return Options{
		WaveCap:             500,
		DefaultCheckTimeout: 2 * time.Minute,
	}
}

// Engine runs check configurations to completion.
type Engine struct {
	registry *dispatch.Registry
	opts     Options
	observer Observer
	log      zerolog.Logger
	tracer   *tracing.Provider
}

// New creates an Engine dispatching checks through registry.
func New(registry *dispatch.Registry, opts Options, observer Observer, log zerolog.Logger) *Engine {
	if opts.WaveCap <= 0 {
		opts.WaveCap = DefaultOptions().WaveCap
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Engine{registry: registry, opts: opts, observer: observer, log: log}
}

// WithTracer attaches an OpenTelemetry provider; spans wrap each wave and
// each check execution. A nil provider (the New default) traces as no-ops.
func (e *Engine) WithTracer(t *tracing.Provider) *Engine {
	e.tracer = t
	return e
}

// task is one (check, scope) execution unit queued for a wave.
type task struct {
	checkID    string
	scope      models.Scope
	outOfRange map[string]bool
	// eventOverride is non-empty only for the levels a goto_event jump
	// replays (spec.md §4.4 point 4): event.event_name is substituted for
	// this task's condition/routing env, and nothing beyond it — the
	// override never reaches a later, independently-queued wave.
	eventOverride string
}

func (t task) key() string { return t.checkID + "@" + t.scope.Key() }

// pendingTask is one entry in the wave queue. forcedScope is non-nil when
// routing (retry/run/goto) is re-running a check at a scope it already
// established, bypassing fresh forEach scope planning.
type pendingTask struct {
	checkID       string
	forcedScope   *models.Scope
	eventOverride string
}

// forEachPlan records how a check's scope set was derived from its forEach
// parents, so the aggregation step knows the base scope to collapse onto
// and which forEach parents to credit for on_finish tracking.
type forEachPlan struct {
	base    models.Scope
	parents []string
}

// run holds all per-invocation state threaded through the state machine.
type run struct {
	cfg         *models.RunConfig
	prInfo      *models.PRInfo
	graph       *graph.Graph
	journal     *journal.Journal
	stats       *stats.Manager
	dispatcher  *dispatch.Dispatcher
	condEval    *condition.Evaluator
	routingEval *routing.Evaluator
	finish      *foreach.FinishTracker
	waveIndexOf map[string]int
	scopeSetOf  map[string][]models.Scope
	planOf      map[string]*forEachPlan
	executed    []string
	executedSet map[string]bool
	issues      []models.Issue
	wave        int
}

// Run executes every requested check (expanded to its ancestors) to
// completion and returns the analysis result. Run never returns an error
// for check-level failures — those surface as fatal issues inside the
// returned result (spec.md §7); it only returns an error for Init-phase
// configuration problems (cycles, unknown deps) per testable property 1.
func (e *Engine) Run(ctx context.Context, cfg *models.RunConfig, requested []string, prInfo *models.PRInfo) (*models.AnalysisResult, error) {
	start := time.Now()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	allIDs := make([]string, 0, len(cfg.Checks))
	for id := range cfg.Checks {
		allIDs = append(allIDs, id)
	}
	fullGraph, err := graph.Build(cfg.Checks, allIDs)
	if err != nil {
		return nil, err
	}

	expandedSet := map[string]bool{}
	for _, id := range requested {
		expandedSet[id] = true
		for anc := range fullGraph.AllAncestors(id) {
			expandedSet[anc] = true
		}
	}
	expanded := make([]string, 0, len(expandedSet))
	for id := range expandedSet {
		expanded = append(expanded, id)
	}

	g, err := graph.Build(cfg.Checks, expanded)
	if err != nil {
		return nil, err
	}

	maxLoops := cfg.RoutingMaxLoops
	condEval := condition.New(e.log, e.opts.ConditionWallTime)
	r := &run{
		cfg:         cfg,
		prInfo:      prInfo,
		graph:       g,
		journal:     journal.New(),
		stats:       stats.New(),
		dispatcher:  dispatch.New(e.registry),
		condEval:    condEval,
		routingEval: routing.New(g, condEval, maxLoops),
		finish:      foreach.NewFinishTracker(),
		waveIndexOf: map[string]int{},
		scopeSetOf:  map[string][]models.Scope{},
		planOf:      map[string]*forEachPlan{},
		executedSet: map[string]bool{},
	}
	for idx, level := range g.Waves {
		for _, id := range level {
			r.waveIndexOf[id] = idx
		}
	}

	queue := make([][]pendingTask, len(g.Waves))
	for i, level := range g.Waves {
		sorted := append([]string(nil), level...)
		sort.Strings(sorted)
		pts := make([]pendingTask, len(sorted))
		for j, id := range sorted {
			pts[j] = pendingTask{checkID: id}
		}
		queue[i] = pts
	}

	for len(queue) > 0 {
		if r.wave >= e.opts.WaveCap {
			break
		}
		level := queue[0]
		queue = queue[1:]

		waveCtx, waveSpan := e.tracer.StartWave(ctx, cfg.Version, r.wave)

		e.observer.OnEvent(Event{Type: EventStateTransition, Status: "WavePlanning", Wave: r.wave, Timestamp: time.Now()})

		tasks := e.planLevel(r, level)
		if len(tasks) == 0 {
			waveSpan.End()
			r.wave++
			continue
		}

		e.observer.OnEvent(Event{Type: EventStateTransition, Status: "LevelDispatch", Wave: r.wave, Timestamp: time.Now()})
		results := e.dispatchLevel(waveCtx, r, tasks)
		waveSpan.End()

		e.aggregateForEachOutputs(r, tasks, results)

		if cfg.FailFast && stats.FailFast(valuesOf(results)) {
			e.observer.OnEvent(Event{Type: EventStateTransition, Status: "Stopped", Wave: r.wave, Timestamp: time.Now()})
			r.wave++
			break
		}

		e.observer.OnEvent(Event{Type: EventStateTransition, Status: "RoutingApply", Wave: r.wave, Timestamp: time.Now()})
		queue = e.applyRouting(ctx, r, tasks, results, queue)

		r.wave++
	}

	e.fireOnFinish(ctx, r)

	e.observer.OnEvent(Event{Type: EventStateTransition, Status: "Completed", Wave: r.wave, Timestamp: time.Now()})

	return e.buildResult(r, start), nil
}

func valuesOf(results map[string]*models.CheckResult) []*models.CheckResult {
	out := make([]*models.CheckResult, 0, len(results))
	for _, v := range results {
		out = append(out, v)
	}
	return out
}
