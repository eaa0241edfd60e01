// Package routing evaluates on_fail/on_success/on_finish blocks into
// scheduling decisions (retry, run, goto), grounded on spec.md §4.4 and on
// the teacher's RetryPolicy/BackoffStrategy shape in
// internal/application/engine/types.go, reworked onto cenkalti/backoff/v4.
package routing

import (
	"context"
	"hash/fnv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/checkrun-dev/engine/pkg/condition"
	"github.com/checkrun-dev/engine/pkg/graph"
	"github.com/checkrun-dev/engine/pkg/models"
)

// Action is the scheduling outcome of evaluating one routing block.
type Action int

const (
	ActionNone Action = iota
	ActionRetry
	ActionRun
	ActionGoto
)

// Decision is what the engine should do next for the check that just
// completed. A non-nil Err means the loop budget was exceeded and the
// scope must be aborted with a fatal issue.
type Decision struct {
	Action     Action
	RetryDelay time.Duration
	RunIDs     []string
	GotoTarget string
	GotoEvent  string
	Err        error
}

// attemptKey identifies one (check, scope) pair's retry attempt counter.
type attemptKey struct {
	checkID string
	scope   string
}

// Evaluator tracks per-scope attempt and loop-budget counters across a run.
// It is not safe for concurrent use from multiple goroutines without
// external synchronization — the engine only ever evaluates routing from
// its single scheduler thread (spec.md §5).
type Evaluator struct {
	graph      *graph.Graph
	exprEval   *condition.Evaluator
	maxLoops   int
	attempts   map[attemptKey]int
	loopCounts map[string]int // keyed by scope.Key()
}

// New creates a routing Evaluator bound to g (for the goto ancestor-only
// rule) with the given per-scope loop budget. maxLoops is honored literally
// — including zero, which disables every routing transition for every
// scope on its first attempt (spec.md's maxLoops:0 scenario). Only a
// negative value is treated as "unset" and falls back to a sane default.
func New(g *graph.Graph, exprEval *condition.Evaluator, maxLoops int) *Evaluator {
	if maxLoops < 0 {
		maxLoops = 50
	}
	return &Evaluator{
		graph:      g,
		exprEval:   exprEval,
		maxLoops:   maxLoops,
		attempts:   make(map[attemptKey]int),
		loopCounts: make(map[string]int),
	}
}

// Evaluate decides what to do after checkID finishes at scope with result,
// given the routing block that applies to this outcome (onFail, onSuccess,
// or onFinish — the caller picks which per spec.md §4.4's outcome rule).
func (e *Evaluator) Evaluate(ctx context.Context, checkID string, scope models.Scope, block *models.RoutingBlock, env condition.Env) Decision {
	if block == nil || !block.HasAnyAction() {
		return Decision{Action: ActionNone}
	}

	scopeKey := scope.Key()
	if e.loopCounts[scopeKey] >= e.maxLoops {
		return Decision{Err: models.NewEngineError(models.RuleRoutingLoopBudget,
			"scope %q exceeded routing.maxLoops (%d)", scopeKey, e.maxLoops)}
	}

	if block.Retry != nil {
		key := attemptKey{checkID: checkID, scope: scopeKey}
		attempt := e.attempts[key]
		if attempt < block.Retry.Max {
			e.attempts[key] = attempt + 1
			e.loopCounts[scopeKey]++
			return Decision{Action: ActionRetry, RetryDelay: computeBackoff(checkID, scopeKey, attempt+1, block.Retry.Backoff)}
		}
	}

	if ids := e.resolveRun(ctx, block, env); len(ids) > 0 {
		e.loopCounts[scopeKey]++
		return Decision{Action: ActionRun, RunIDs: ids}
	}

	target := block.Goto
	if block.GotoExpr != "" {
		if resolved := e.exprEval.EvaluateStringList(ctx, block.GotoExpr, env); len(resolved) > 0 {
			target = resolved[0]
		}
	}
	if target != "" {
		if !e.graph.IsAncestor(checkID, target) {
			return Decision{Err: models.NewEngineError(models.RuleRoutingNonAncestor,
				"goto target %q is not an ancestor of %q", target, checkID)}
		}
		e.loopCounts[scopeKey]++
		return Decision{Action: ActionGoto, GotoTarget: target, GotoEvent: block.GotoEvent}
	}

	return Decision{Action: ActionNone}
}

// NormalizeGotoEvent maps a routing block's goto_event override to the
// canonical event name a condition expression sees as event.event_name,
// for the jump's inline target and its immediate re-run only (spec.md §4.4
// point 4). Any pr_-prefixed override collapses to "pull_request"; anything
// else passes through unchanged, so a config that already names a concrete
// event keeps working.
func NormalizeGotoEvent(override string) string {
	if strings.HasPrefix(override, "pr_") {
		return "pull_request"
	}
	return override
}

func (e *Evaluator) resolveRun(ctx context.Context, block *models.RoutingBlock, env condition.Env) []string {
	if len(block.Run) > 0 {
		seen := make(map[string]bool, len(block.Run))
		ids := make([]string, 0, len(block.Run))
		for _, id := range block.Run {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		return ids
	}
	if block.RunExpr != "" {
		return e.exprEval.EvaluateStringList(ctx, block.RunExpr, env)
	}
	return nil
}

// computeBackoff implements spec.md §4.4's delay formula: fixed delayMs, or
// exponential delayMs × 2^(attempt-1), each with a small deterministic
// jitter so retries of the same check/scope/attempt always produce the same
// delay (useful for tests and reproducible runs) while still avoiding
// multiple checks retrying in perfect lockstep.
func computeBackoff(checkID, scopeKey string, attempt int, spec models.BackoffSpec) time.Duration {
	base := time.Duration(spec.DelayMs) * time.Millisecond
	switch spec.Mode {
	case models.BackoffExponential:
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = base
		eb.Multiplier = 2
		eb.RandomizationFactor = 0
		var d time.Duration
		for i := 0; i < attempt; i++ {
			d = eb.NextBackOff()
		}
		base = d
	case models.BackoffFixed:
		// base already holds the fixed delay.
	}
	return base + jitter(checkID, scopeKey, attempt, base)
}

// jitter derives a small, deterministic offset (0-10% of base) from a hash
// of the retry's identity instead of a random source, so the same retry
// always computes the same delay.
func jitter(checkID, scopeKey string, attempt int, base time.Duration) time.Duration {
	h := fnv.New32a()
	h.Write([]byte(checkID))
	h.Write([]byte(scopeKey))
	h.Write([]byte{byte(attempt)})
	frac := float64(h.Sum32()%1000) / 1000.0 * 0.10
	return time.Duration(float64(base) * frac)
}
