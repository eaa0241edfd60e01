package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/checkrun-dev/engine/pkg/condition"
	"github.com/checkrun-dev/engine/pkg/dispatch"
	"github.com/checkrun-dev/engine/pkg/foreach"
	"github.com/checkrun-dev/engine/pkg/gate"
	"github.com/checkrun-dev/engine/pkg/journal"
	"github.com/checkrun-dev/engine/pkg/models"
	"github.com/checkrun-dev/engine/pkg/routing"
)

// planLevel resolves every pending check id in level to its concrete
// (check, scope) tasks. A pendingTask with forcedScope (a retry/run/goto
// replay) reuses that exact scope; otherwise the scope set is derived from
// the check's forEach parentage (spec.md §4.5).
func (e *Engine) planLevel(r *run, level []pendingTask) []task {
	var tasks []task
	for _, pt := range level {
		def, ok := r.cfg.Checks[pt.checkID]
		if !ok {
			continue
		}

		if pt.forcedScope != nil {
			tasks = append(tasks, task{checkID: pt.checkID, scope: *pt.forcedScope, eventOverride: pt.eventOverride})
			r.scopeSetOf[pt.checkID] = []models.Scope{*pt.forcedScope}
			continue
		}

		var forEachParents []foreach.ParentSpec
		for _, dep := range def.DependsOn {
			depDef, ok := r.cfg.Checks[dep]
			if ok && depDef.ForEach {
				forEachParents = append(forEachParents, foreach.ParentSpec{CheckID: dep, Length: e.forEachLength(r, dep)})
			}
		}

		if len(forEachParents) > 0 {
			base := e.baseScopeOf(r, forEachParents[0].CheckID)
			iterations := foreach.ZipScopes(base, forEachParents)
			scopes := make([]models.Scope, len(iterations))
			for i, it := range iterations {
				scopes[i] = it.Scope
				tasks = append(tasks, task{checkID: pt.checkID, scope: it.Scope, outOfRange: it.OutOfRange})
			}
			r.scopeSetOf[pt.checkID] = scopes
			parentIDs := make([]string, len(forEachParents))
			for i, p := range forEachParents {
				parentIDs[i] = p.CheckID
			}
			r.planOf[pt.checkID] = &forEachPlan{base: base, parents: parentIDs}
			continue
		}

		scopeSet := e.unionScopesOfDeps(r, def.DependsOn)
		if len(scopeSet) == 0 {
			scopeSet = []models.Scope{models.Root()}
		}
		r.scopeSetOf[pt.checkID] = scopeSet
		for _, s := range scopeSet {
			tasks = append(tasks, task{checkID: pt.checkID, scope: s})
		}
	}
	return tasks
}

// forEachLength reads parentID's produced list length at its own base
// scope (the first scope it ran at — multi-level nested forEach fan-out is
// not supported; see DESIGN.md).
func (e *Engine) forEachLength(r *run, parentID string) int {
	base := e.baseScopeOf(r, parentID)
	view := r.journal.View(r.journal.Snapshot(), base)
	result, ok := view.Get(parentID)
	if !ok {
		return 0
	}
	arr, ok := result.Output.([]any)
	if !ok {
		return 0
	}
	return len(arr)
}

func (e *Engine) baseScopeOf(r *run, checkID string) models.Scope {
	scopes := r.scopeSetOf[checkID]
	if len(scopes) == 0 {
		return models.Root()
	}
	return scopes[0]
}

func (e *Engine) unionScopesOfDeps(r *run, deps []string) []models.Scope {
	seen := map[string]bool{}
	var out []models.Scope
	for _, dep := range deps {
		for _, s := range r.scopeSetOf[dep] {
			key := s.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

// dispatchLevel runs every task, honoring session-group sequencing: tasks
// sharing a non-empty sessionProvider run as one serialized group relative
// to other groups, while ungrouped tasks run concurrently up to
// maxParallelism (spec.md §4.8, §5).
func (e *Engine) dispatchLevel(ctx context.Context, r *run, tasks []task) map[string]*models.CheckResult {
	results := make(map[string]*models.CheckResult, len(tasks))
	var mu sync.Mutex

	record := func(t task, res *models.CheckResult) {
		mu.Lock()
		results[t.key()] = res
		r.issues = append(r.issues, res.Issues...)
		if !res.Skipped {
			if !r.executedSet[t.checkID] {
				r.executedSet[t.checkID] = true
				r.executed = append(r.executed, t.checkID)
			}
		}
		mu.Unlock()
	}

	grouped := map[string][]task{}
	var ungrouped []task
	for _, t := range tasks {
		def := r.cfg.Checks[t.checkID]
		if def.SessionProvider != "" {
			grouped[def.SessionProvider] = append(grouped[def.SessionProvider], t)
		} else {
			ungrouped = append(ungrouped, t)
		}
	}

	maxParallelism := r.cfg.MaxParallelism
	if maxParallelism <= 0 {
		maxParallelism = 4
	}

	e.runBounded(ctx, r, ungrouped, maxParallelism, record)

	groupNames := make([]string, 0, len(grouped))
	for name := range grouped {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)
	for _, name := range groupNames {
		e.runBounded(ctx, r, grouped[name], maxParallelism, record)
	}

	return results
}

func (e *Engine) runBounded(ctx context.Context, r *run, tasks []task, maxParallelism int, record func(task, *models.CheckResult)) {
	sem := make(chan struct{}, maxParallelism)
	var wg sync.WaitGroup
	for _, t := range tasks {
		t := t
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			record(t, e.executeTask(ctx, r, t))
		}()
	}
	wg.Wait()
}

// executeTask resolves t's dependencies, evaluates its if-gate, and invokes
// its provider, appending the result to the journal.
func (e *Engine) executeTask(ctx context.Context, r *run, t task) *models.CheckResult {
	def := r.cfg.Checks[t.checkID]
	view := r.journal.View(r.journal.Snapshot(), t.scope)

	gateRes := gate.BuildZipped(view, t.checkID, t.scope, def.DependsOn, t.outOfRange)
	if gateRes.Skip {
		result := models.Skip(models.ErrDependencyFailed)
		r.journal.Append(t.checkID, t.scope, result, r.wave)
		return result
	}

	env := e.buildEnv(r, view, gateRes, t.scope, t.eventOverride)
	if !r.condEval.Evaluate(ctx, def.If, env) {
		result := models.Skip(models.ErrNone)
		r.journal.Append(t.checkID, t.scope, result, r.wave)
		return result
	}

	checkCtx, span := e.tracer.StartCheck(ctx, t.checkID, t.scope.Key())
	defer span.End()

	timeout := e.opts.DefaultCheckTimeout
	execCtx := &dispatch.ExecContext{
		Context: checkCtx,
		Timeout: timeout,
		CheckID: t.checkID,
		Scope:   t.scope,
		Journal: view,
	}

	start := time.Now()
	result := r.dispatcher.Invoke(def, r.prInfo, gateRes.Results, execCtx)
	r.stats.Record(t.checkID, result, time.Since(start))
	r.journal.Append(t.checkID, t.scope, result, r.wave)

	if def.ForEach && !result.Skipped && !result.HasFatalIssue() {
		e.writePerItemEntries(r, t, def, result)
	}

	return result
}

// writePerItemEntries gives a forEach producer's list output its own entry
// at each child scope, so dependents reading checkID at an iteration scope
// get the unwrapped item via the ordinary prefix rule (spec.md §4.2)
// instead of the whole list.
func (e *Engine) writePerItemEntries(r *run, t task, def *models.CheckDefinition, result *models.CheckResult) {
	arr, ok := result.Output.([]any)
	if !ok {
		return
	}
	for i, item := range arr {
		itemScope := t.scope.Extend(t.checkID, i)
		r.journal.Append(t.checkID, itemScope, &models.CheckResult{Output: item}, r.wave)
	}
}

// buildEnv snapshots the read-only expression context for t's scope
// (spec.md §4.3, §4.2): dependency outputs (unwrapped per scope), the
// "-raw" escape hatch back to a forEach parent's full list, outputs.history
// for routing loops, event fields, merged env, PR info. eventOverride, when
// non-empty, is a routing block's goto_event value — it replaces
// event.event_name (normalized via routing.NormalizeGotoEvent) for this one
// task only, never persisting to any other task's env (spec.md §4.4 point 4).
func (e *Engine) buildEnv(r *run, view *journal.View, gateRes gate.Resolution, scope models.Scope, eventOverride string) condition.Env {
	outputs := make(map[string]any, len(gateRes.Results)*2+1)
	history := make(map[string][]any, len(gateRes.Results))
	for id, res := range gateRes.Results {
		outputs[id] = res.Output
		if view != nil {
			if raw, ok := view.RawValue(id); ok {
				outputs[id+"-raw"] = raw.Output
			}
			var vals []any
			for _, h := range view.History(id) {
				vals = append(vals, h.Output)
			}
			history[id] = vals
		}
	}
	outputs["history"] = history

	event := map[string]any{}
	envVars := map[string]string{}
	var branch, baseBranch string
	var filesChanged []string
	if r.prInfo != nil {
		event["event_name"] = r.prInfo.EventName
		branch = r.prInfo.Branch
		baseBranch = r.prInfo.BaseBranch
		filesChanged = r.prInfo.FilesChanged
	}
	if eventOverride != "" {
		event["event_name"] = routing.NormalizeGotoEvent(eventOverride)
	}
	for k, v := range r.cfg.Env {
		envVars[k] = v
	}
	return condition.Env{
		Outputs:      outputs,
		Event:        event,
		Env:          envVars,
		Branch:       branch,
		BaseBranch:   baseBranch,
		FilesChanged: filesChanged,
	}
}

