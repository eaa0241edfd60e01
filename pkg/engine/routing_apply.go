package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/checkrun-dev/engine/pkg/foreach"
	"github.com/checkrun-dev/engine/pkg/gate"
	"github.com/checkrun-dev/engine/pkg/models"
	"github.com/checkrun-dev/engine/pkg/routing"
)

// aggregateForEachOutputs collapses every check that executed at more than
// one scope this wave into a single isForEach journal entry at its base
// scope, per spec.md §4.5. Skipped iterations (condition-skip or
// dependency_failed) are excluded from the ordered output list. Every
// forEach producer in tasks that returned a non-empty list is marked as
// having produced fanned-out results, so its on_finish can fire.
func (e *Engine) aggregateForEachOutputs(r *run, tasks []task, results map[string]*models.CheckResult) {
	for _, t := range tasks {
		if def := r.cfg.Checks[t.checkID]; def != nil && def.ForEach {
			if res, ok := results[t.key()]; ok && !res.Skipped && !res.HasFatalIssue() {
				if arr, ok := res.Output.([]any); ok && len(arr) > 0 {
					r.finish.MarkProduced(t.checkID)
				}
			}
		}
	}

	byCheck := map[string][]task{}
	for _, t := range tasks {
		byCheck[t.checkID] = append(byCheck[t.checkID], t)
	}

	for checkID, plan := range r.planOf {
		group, ok := byCheck[checkID]
		if !ok {
			continue
		}
		scopes := r.scopeSetOf[checkID]
		perIteration := make([]*models.CheckResult, 0, len(scopes))
		any := false
		for _, s := range scopes {
			res, ok := results[(task{checkID: checkID, scope: s}).key()]
			if !ok {
				continue
			}
			if !res.Skipped {
				any = true
			}
			perIteration = append(perIteration, res)
		}
		_ = group
		if !any {
			continue
		}
		agg := foreach.Aggregate(perIteration)
		r.journal.Append(checkID, plan.base, agg, r.wave)
		for _, parentID := range plan.parents {
			r.finish.MarkProduced(parentID)
		}
	}
}

// applyRouting evaluates on_fail/on_success for every settled task and
// translates the decision into new pending levels prepended to queue
// (spec.md §4.4). Skipped results never route.
func (e *Engine) applyRouting(ctx context.Context, r *run, tasks []task, results map[string]*models.CheckResult, queue [][]pendingTask) [][]pendingTask {
	var front [][]pendingTask

	for _, t := range tasks {
		result, ok := results[t.key()]
		if !ok || result.Skipped {
			continue
		}
		def := r.cfg.Checks[t.checkID]
		failed := result.HasFatalIssue()
		var block *models.RoutingBlock
		if failed {
			block = def.OnFail
		} else {
			block = def.OnSuccess
		}
		if !block.HasAnyAction() {
			continue
		}

		view := r.journal.View(r.journal.Snapshot(), t.scope)
		env := e.buildEnv(r, view, gate.Resolution{Results: map[string]*models.CheckResult{t.checkID: result}}, t.scope, "")
		decision := r.routingEval.Evaluate(ctx, t.checkID, t.scope, block, env)

		if decision.Err != nil {
			var engErr *models.EngineError
			ruleID := models.RuleRoutingLoopBudget
			if errors.As(decision.Err, &engErr) {
				ruleID = engErr.RuleID
			}
			fatal := models.WithFatal(ruleID, "%s", decision.Err.Error())
			r.journal.Append(t.checkID, t.scope, fatal, r.wave+1)
			r.issues = append(r.issues, fatal.Issues...)
			continue
		}

		scope := t.scope
		switch decision.Action {
		case routing.ActionRetry:
			if decision.RetryDelay > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(decision.RetryDelay):
				}
			}
			front = append(front, []pendingTask{{checkID: t.checkID, forcedScope: &scope}})

		case routing.ActionRun:
			level := make([]pendingTask, 0, len(decision.RunIDs))
			for _, id := range decision.RunIDs {
				level = append(level, pendingTask{checkID: id, forcedScope: &scope})
			}
			front = append(front, level)
			if failed {
				front = append(front, []pendingTask{{checkID: t.checkID, forcedScope: &scope}})
			}

		case routing.ActionGoto:
			front = append(front, e.gotoReplayLevels(r, t.checkID, decision.GotoTarget, scope, decision.GotoEvent)...)
		}
	}

	return append(front, queue...)
}

// gotoReplayLevels rebuilds the sequence of pending levels for every check
// between target and source (inclusive) in their original topological
// order, re-running them at source's scope (spec.md §4.4: "ancestors
// between target and the source check ... remain visible, but
// currentWaveCompletions is reset so they may re-execute"). gotoEvent, when
// non-empty, is applied to every replayed task — the jump's inline target
// and its immediate re-run — and nowhere else (spec.md §4.4 point 4).
func (e *Engine) gotoReplayLevels(r *run, sourceID, target string, scope models.Scope, gotoEvent string) [][]pendingTask {
	ancestors := r.graph.AllAncestors(sourceID)
	targetWave, ok := r.waveIndexOf[target]
	if !ok {
		return nil
	}
	sourceWave := r.waveIndexOf[sourceID]

	byWave := map[int][]string{}
	for id := range ancestors {
		w, ok := r.waveIndexOf[id]
		if !ok || w < targetWave || w > sourceWave {
			continue
		}
		byWave[w] = append(byWave[w], id)
	}
	byWave[sourceWave] = append(byWave[sourceWave], sourceID)

	waves := make([]int, 0, len(byWave))
	for w := range byWave {
		waves = append(waves, w)
	}
	sort.Ints(waves)

	out := make([][]pendingTask, 0, len(waves))
	for _, w := range waves {
		ids := byWave[w]
		sort.Strings(ids)
		level := make([]pendingTask, len(ids))
		s := scope
		for i, id := range ids {
			level[i] = pendingTask{checkID: id, forcedScope: &s, eventOverride: gotoEvent}
		}
		out = append(out, level)
	}
	return out
}

// fireOnFinish evaluates on_finish for every forEach parent that actually
// produced fanned-out results this run, once the main wave queue has
// drained (spec.md §4.5). A parent with no forEach fan-out this run is
// elided — its on_finish never fires.
func (e *Engine) fireOnFinish(ctx context.Context, r *run) {
	ids := make([]string, 0, len(r.cfg.Checks))
	for id := range r.cfg.Checks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		def := r.cfg.Checks[id]
		if !def.ForEach || !def.OnFinish.HasAnyAction() {
			continue
		}
		if !r.finish.ShouldFireOnFinish(id) {
			continue
		}

		base := e.baseScopeOf(r, id)
		view := r.journal.View(r.journal.Snapshot(), base)
		env := e.buildEnv(r, view, gate.Resolution{}, base, "")
		decision := r.routingEval.Evaluate(ctx, id, base, def.OnFinish, env)
		if decision.Err != nil {
			var engErr *models.EngineError
			ruleID := models.RuleRoutingLoopBudget
			if errors.As(decision.Err, &engErr) {
				ruleID = engErr.RuleID
			}
			fatal := models.WithFatal(ruleID, "%s", decision.Err.Error())
			r.journal.Append(id, base, fatal, r.wave+1)
			r.issues = append(r.issues, fatal.Issues...)
			continue
		}

		switch decision.Action {
		case routing.ActionRun:
			level := make([]pendingTask, 0, len(decision.RunIDs))
			for _, runID := range decision.RunIDs {
				level = append(level, pendingTask{checkID: runID, forcedScope: &base})
			}
			tasks := e.planLevel(r, level)
			results := e.dispatchLevel(ctx, r, tasks)
			e.aggregateForEachOutputs(r, tasks, results)
		case routing.ActionGoto:
			level := []pendingTask{{checkID: decision.GotoTarget, forcedScope: &base, eventOverride: decision.GotoEvent}}
			tasks := e.planLevel(r, level)
			results := e.dispatchLevel(ctx, r, tasks)
			e.aggregateForEachOutputs(r, tasks, results)
		}
	}
}

// buildResult assembles the caller-facing AnalysisResult (spec.md §6).
func (e *Engine) buildResult(r *run, start time.Time) *models.AnalysisResult {
	return &models.AnalysisResult{
		ChecksExecuted: r.executed,
		ExecutionTime:  time.Since(start),
		Timestamp:      start,
		ReviewSummary:  models.ReviewSummary{Issues: r.issues},
		Stats:          r.stats.Snapshot(),
		Journal: models.JournalSummary{
			EntryCount: r.journal.EntryCount(),
			Checks:     r.journal.CheckIDs(),
		},
	}
}
