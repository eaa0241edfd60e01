package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkrun-dev/engine/pkg/dispatch"
	"github.com/checkrun-dev/engine/pkg/models"
)

// scriptedProvider lets a test control each check's outcome per call count,
// keyed by check id and scope, so the same check id can behave differently
// across forEach iterations or retry attempts.
type scriptedProvider struct {
	mu     sync.Mutex
	calls  map[string]int
	script map[string]func(calls int, scope models.Scope) *models.CheckResult
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{calls: map[string]int{}, script: map[string]func(int, models.Scope) *models.CheckResult{}}
}

func (p *scriptedProvider) Type() string { return "stub" }

func (p *scriptedProvider) Execute(check *models.CheckDefinition, _ *models.PRInfo, _ map[string]*models.CheckResult, execCtx *dispatch.ExecContext) *models.CheckResult {
	key := check.ID + "@" + execCtx.Scope.Key()
	p.mu.Lock()
	p.calls[key]++
	n := p.calls[key]
	p.mu.Unlock()

	fn, ok := p.script[check.ID]
	if !ok {
		return &models.CheckResult{Output: "ok"}
	}
	return fn(n, execCtx.Scope)
}

func newTestEngine(p dispatch.Provider) *Engine {
	reg := dispatch.NewRegistry()
	reg.Register(p)
	return New(reg, DefaultOptions(), nil, zerolog.Nop())
}

// S1 linear: A -> B -> C, all succeed.
func TestRun_LinearChainExecutesInOrder(t *testing.T) {
	p := newScriptedProvider()
	e := newTestEngine(p)
	cfg := &models.RunConfig{
		Checks: map[string]*models.CheckDefinition{
			"A": {ID: "A", Type: "stub"},
			"B": {ID: "B", Type: "stub", DependsOn: []string{"A"}},
			"C": {ID: "C", Type: "stub", DependsOn: []string{"B"}},
		},
	}

	res, err := e.Run(context.Background(), cfg, []string{"C"}, &models.PRInfo{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, res.ChecksExecuted)
	assert.Empty(t, res.ReviewSummary.Issues)
}

// S2 cycle: A -> B, B -> A. Init must fail before anything executes.
func TestRun_CycleFailsAtInit(t *testing.T) {
	p := newScriptedProvider()
	e := newTestEngine(p)
	cfg := &models.RunConfig{
		Checks: map[string]*models.CheckDefinition{
			"A": {ID: "A", Type: "stub", DependsOn: []string{"B"}},
			"B": {ID: "B", Type: "stub", DependsOn: []string{"A"}},
		},
	}

	res, err := e.Run(context.Background(), cfg, []string{"A"}, &models.PRInfo{})
	require.Error(t, err)
	assert.Nil(t, res)
	var engErr *models.EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, models.RuleGraphCycle, engErr.RuleID)
}

// S3 forEach branching: root fans out 3 items; a filters to type A (2 of
// them), b filters to type B (1 of them); final depends on both and runs
// once per root iteration.
func TestRun_ForEachBranchingAggregatesPerBranch(t *testing.T) {
	p := newScriptedProvider()
	p.script["root"] = func(int, models.Scope) *models.CheckResult {
		return &models.CheckResult{Output: []any{
			map[string]any{"id": 1, "type": "A"},
			map[string]any{"id": 2, "type": "B"},
			map[string]any{"id": 3, "type": "A"},
		}}
	}
	var aCalls, bCalls int
	var mu sync.Mutex
	p.script["a"] = func(int, models.Scope) *models.CheckResult {
		mu.Lock()
		aCalls++
		mu.Unlock()
		return &models.CheckResult{Output: "a-ran"}
	}
	p.script["b"] = func(int, models.Scope) *models.CheckResult {
		mu.Lock()
		bCalls++
		mu.Unlock()
		return &models.CheckResult{Output: "b-ran"}
	}

	e := newTestEngine(p)
	cfg := &models.RunConfig{
		Checks: map[string]*models.CheckDefinition{
			"root":  {ID: "root", Type: "stub", ForEach: true},
			"a":     {ID: "a", Type: "stub", DependsOn: []string{"root"}, If: `outputs.root.type == "A"`},
			"b":     {ID: "b", Type: "stub", DependsOn: []string{"root"}, If: `outputs.root.type == "B"`},
			"final": {ID: "final", Type: "stub", DependsOn: []string{"a", "b"}},
		},
	}

	res, err := e.Run(context.Background(), cfg, []string{"final"}, &models.PRInfo{})
	require.NoError(t, err)
	assert.Equal(t, 2, aCalls)
	assert.Equal(t, 1, bCalls)
	assert.ElementsMatch(t, []string{"root", "a", "b", "final"}, res.ChecksExecuted)
}

// retry: build fails on its first attempt, on_fail.retry re-enqueues the
// same check at the same scope, and the second attempt succeeds — the
// evaluator tries retry before goto or run (spec.md §4.4's action order).
func TestRun_RetryReexecutesSameCheckOnFailure(t *testing.T) {
	p := newScriptedProvider()
	p.script["build"] = func(n int, _ models.Scope) *models.CheckResult {
		if n == 1 {
			return models.WithFatal("stub/execution_error", "build failed on first attempt")
		}
		return &models.CheckResult{Output: "built"}
	}

	e := newTestEngine(p)
	cfg := &models.RunConfig{
		Checks: map[string]*models.CheckDefinition{
			"build": {
				ID: "build", Type: "stub",
				OnFail: &models.RoutingBlock{
					Retry: &models.RetrySpec{Max: 1, Backoff: models.BackoffSpec{Mode: models.BackoffFixed, DelayMs: 1}},
				},
			},
		},
	}

	res, err := e.Run(context.Background(), cfg, []string{"build"}, &models.PRInfo{})
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls["build@"])
	assert.Contains(t, res.ChecksExecuted, "build")
}

// goto: build fails every attempt (no retry configured), on_fail.goto jumps
// back to setup (its ancestor), replaying setup then re-attempting build.
func TestRun_GotoReplaysAncestorThenSource(t *testing.T) {
	p := newScriptedProvider()
	var setupCalls int
	var mu sync.Mutex
	p.script["setup"] = func(int, models.Scope) *models.CheckResult {
		mu.Lock()
		setupCalls++
		mu.Unlock()
		return &models.CheckResult{Output: "configured"}
	}
	p.script["build"] = func(int, models.Scope) *models.CheckResult {
		return models.WithFatal("stub/execution_error", "build always fails")
	}

	e := newTestEngine(p)
	cfg := &models.RunConfig{
		RoutingMaxLoops: 2,
		Checks: map[string]*models.CheckDefinition{
			"setup": {ID: "setup", Type: "stub"},
			"build": {
				ID: "build", Type: "stub", DependsOn: []string{"setup"},
				OnFail: &models.RoutingBlock{Goto: "setup"},
			},
		},
	}

	res, err := e.Run(context.Background(), cfg, []string{"build"}, &models.PRInfo{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, setupCalls, 2)

	var sawLoopBudget bool
	for _, iss := range res.ReviewSummary.Issues {
		if iss.RuleID == models.RuleRoutingLoopBudget {
			sawLoopBudget = true
		}
	}
	assert.True(t, sawLoopBudget)
}

// goto_event: a routing block's GotoEvent override remaps event.event_name
// for the jump's replayed chain only (spec.md §4.4 point 4). setup's `if`
// only passes under a pull_request event; the initiating PRInfo is a push,
// so setup skips on the first pass and build's dependency gate sees that
// skip (not fatal) and still runs, fails, and goes to setup with a
// pr_-prefixed override. On replay setup's `if` should now see
// event.event_name == "pull_request" and actually execute.
func TestRun_GotoEventOverridesEventNameForReplayOnly(t *testing.T) {
	p := newScriptedProvider()
	var setupCalls int
	var mu sync.Mutex
	p.script["setup"] = func(int, models.Scope) *models.CheckResult {
		mu.Lock()
		setupCalls++
		mu.Unlock()
		return &models.CheckResult{Output: "configured"}
	}
	var buildAttempts int
	p.script["build"] = func(int, models.Scope) *models.CheckResult {
		mu.Lock()
		buildAttempts++
		attempt := buildAttempts
		mu.Unlock()
		if attempt == 1 {
			return models.WithFatal("stub/execution_error", "build needs setup to have run")
		}
		return &models.CheckResult{Output: "built"}
	}

	e := newTestEngine(p)
	cfg := &models.RunConfig{
		RoutingMaxLoops: 2,
		Checks: map[string]*models.CheckDefinition{
			"setup": {ID: "setup", Type: "stub", If: `event.event_name == "pull_request"`},
			"build": {
				ID: "build", Type: "stub", DependsOn: []string{"setup"},
				OnFail: &models.RoutingBlock{Goto: "setup", GotoEvent: "pr_merged"},
			},
		},
	}

	_, err := e.Run(context.Background(), cfg, []string{"build"}, &models.PRInfo{EventName: "push"})
	require.NoError(t, err)
	assert.Equal(t, 1, setupCalls, "setup's if only passes on replay, once goto_event overrides event_name")
}

// S5 loop budget: maxLoops 0 trips on the very first on_finish routing
// attempt; child and other never execute.
func TestRun_LoopBudgetExceededStopsOnFinishCascade(t *testing.T) {
	p := newScriptedProvider()
	p.script["parent"] = func(int, models.Scope) *models.CheckResult {
		return &models.CheckResult{Output: []any{1}}
	}
	var childCalled, otherCalled bool
	p.script["child"] = func(int, models.Scope) *models.CheckResult {
		childCalled = true
		return &models.CheckResult{Output: "ok"}
	}
	p.script["other"] = func(int, models.Scope) *models.CheckResult {
		otherCalled = true
		return &models.CheckResult{Output: "ok"}
	}

	e := newTestEngine(p)
	cfg := &models.RunConfig{
		RoutingMaxLoops: 0,
		Checks: map[string]*models.CheckDefinition{
			"parent": {
				ID: "parent", Type: "stub", ForEach: true,
				OnFinish: &models.RoutingBlock{Run: []string{"child"}, Goto: "other"},
			},
			"child": {ID: "child", Type: "stub"},
			"other": {ID: "other", Type: "stub"},
		},
	}

	res, err := e.Run(context.Background(), cfg, []string{"parent"}, &models.PRInfo{})
	require.NoError(t, err)
	assert.False(t, childCalled)
	assert.False(t, otherCalled)

	var sawLoopBudget bool
	for _, iss := range res.ReviewSummary.Issues {
		if iss.RuleID == models.RuleRoutingLoopBudget {
			sawLoopBudget = true
		}
	}
	assert.True(t, sawLoopBudget)
}

// S6 dependency failure propagation: A fatal, B and C skip as
// dependency_failed without ever invoking their provider.
func TestRun_DependencyFailurePropagatesAsSkip(t *testing.T) {
	p := newScriptedProvider()
	p.script["A"] = func(int, models.Scope) *models.CheckResult {
		return models.WithFatal("stub/execution_error", "boom")
	}
	var bCalled, cCalled bool
	p.script["B"] = func(int, models.Scope) *models.CheckResult {
		bCalled = true
		return &models.CheckResult{Output: "ok"}
	}
	p.script["C"] = func(int, models.Scope) *models.CheckResult {
		cCalled = true
		return &models.CheckResult{Output: "ok"}
	}

	e := newTestEngine(p)
	cfg := &models.RunConfig{
		Checks: map[string]*models.CheckDefinition{
			"A": {ID: "A", Type: "stub"},
			"B": {ID: "B", Type: "stub", DependsOn: []string{"A"}},
			"C": {ID: "C", Type: "stub", DependsOn: []string{"B"}},
		},
	}

	res, err := e.Run(context.Background(), cfg, []string{"C"}, &models.PRInfo{})
	require.NoError(t, err)
	assert.False(t, bCalled)
	assert.False(t, cCalled)
	assert.Contains(t, res.ChecksExecuted, "A")
	assert.NotContains(t, res.ChecksExecuted, "B")
	assert.NotContains(t, res.ChecksExecuted, "C")

	require.Len(t, res.ReviewSummary.Issues, 1)
	assert.Equal(t, "stub/execution_error", res.ReviewSummary.Issues[0].RuleID)
}

func TestDefaultOptions_AppliesWaveCapFloor(t *testing.T) {
	assert.Equal(t, 500, DefaultOptions().WaveCap)
	assert.Equal(t, 500, New(dispatch.NewRegistry(), Options{}, nil, zerolog.Nop()).opts.WaveCap)
}

func TestEngine_ObserverReceivesStateTransitions(t *testing.T) {
	p := newScriptedProvider()
	reg := dispatch.NewRegistry()
	reg.Register(p)

	var events []Event
	var mu sync.Mutex
	observer := ObserverFunc(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	e := New(reg, DefaultOptions(), observer, zerolog.Nop())
	cfg := &models.RunConfig{
		Checks: map[string]*models.CheckDefinition{
			"A": {ID: "A", Type: "stub"},
		},
	}

	_, err := e.Run(context.Background(), cfg, []string{"A"}, &models.PRInfo{})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	var sawCompleted bool
	for _, ev := range events {
		if ev.Status == "Completed" {
			sawCompleted = true
		}
	}
	assert.True(t, sawCompleted)
}

func TestRun_RespectsContextCancellation(t *testing.T) {
	p := newScriptedProvider()
	p.script["slow"] = func(int, models.Scope) *models.CheckResult {
		time.Sleep(5 * time.Millisecond)
		return &models.CheckResult{Output: "late"}
	}
	e := newTestEngine(p)
	cfg := &models.RunConfig{
		Checks: map[string]*models.CheckDefinition{
			"slow": {ID: "slow", Type: "stub"},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.Run(ctx, cfg, []string{"slow"}, &models.PRInfo{})
	require.NoError(t, err)
	require.NotNil(t, res)
}
