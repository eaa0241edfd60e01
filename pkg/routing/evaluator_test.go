package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkrun-dev/engine/pkg/condition"
	"github.com/checkrun-dev/engine/pkg/graph"
	"github.com/checkrun-dev/engine/pkg/models"
)

func buildGraph(t *testing.T, deps map[string][]string) *graph.Graph {
	t.Helper()
	checks := make(map[string]*models.CheckDefinition, len(deps))
	ids := make([]string, 0, len(deps))
	for id, d := range deps {
		checks[id] = &models.CheckDefinition{ID: id, DependsOn: d}
		ids = append(ids, id)
	}
	g, err := graph.Build(checks, ids)
	require.NoError(t, err)
	return g
}

func TestEvaluate_RetryIncrementsThenStops(t *testing.T) {
	g := buildGraph(t, map[string][]string{"a": nil})
	eval := New(g, condition.New(zerolog.Nop(), 0), 10)
	block := &models.RoutingBlock{Retry: &models.RetrySpec{Max: 2, Backoff: models.BackoffSpec{Mode: models.BackoffFixed, DelayMs: 100}}}

	d1 := eval.Evaluate(context.Background(), "a", models.Root(), block, condition.Env{})
	assert.Equal(t, ActionRetry, d1.Action)

	d2 := eval.Evaluate(context.Background(), "a", models.Root(), block, condition.Env{})
	assert.Equal(t, ActionRetry, d2.Action)

	d3 := eval.Evaluate(context.Background(), "a", models.Root(), block, condition.Env{})
	assert.Equal(t, ActionNone, d3.Action, "retry budget exhausted, no more retries")
}

func TestEvaluate_RetryDelayDeterministic(t *testing.T) {
	g := buildGraph(t, map[string][]string{"a": nil})
	block := &models.RoutingBlock{Retry: &models.RetrySpec{Max: 5, Backoff: models.BackoffSpec{Mode: models.BackoffExponential, DelayMs: 100}}}

	e1 := New(g, condition.New(zerolog.Nop(), 0), 10)
	d1 := e1.Evaluate(context.Background(), "a", models.Root(), block, condition.Env{})

	e2 := New(g, condition.New(zerolog.Nop(), 0), 10)
	d2 := e2.Evaluate(context.Background(), "a", models.Root(), block, condition.Env{})

	assert.Equal(t, d1.RetryDelay, d2.RetryDelay, "same check/scope/attempt always computes the same delay")
}

func TestEvaluate_RunListDeduplicated(t *testing.T) {
	g := buildGraph(t, map[string][]string{"a": nil, "b": nil, "c": nil})
	eval := New(g, condition.New(zerolog.Nop(), 0), 10)
	block := &models.RoutingBlock{Run: []string{"b", "c", "b"}}

	d := eval.Evaluate(context.Background(), "a", models.Root(), block, condition.Env{})
	assert.Equal(t, ActionRun, d.Action)
	assert.Equal(t, []string{"b", "c"}, d.RunIDs)
}

func TestEvaluate_RunExprResolvesDynamically(t *testing.T) {
	g := buildGraph(t, map[string][]string{"a": nil, "b": nil})
	eval := New(g, condition.New(zerolog.Nop(), 0), 10)
	block := &models.RoutingBlock{RunExpr: `["b"]`}

	d := eval.Evaluate(context.Background(), "a", models.Root(), block, condition.Env{})
	assert.Equal(t, ActionRun, d.Action)
	assert.Equal(t, []string{"b"}, d.RunIDs)
}

func TestEvaluate_GotoAncestorOnly(t *testing.T) {
	g := buildGraph(t, map[string][]string{"setup": nil, "build": {"setup"}})
	eval := New(g, condition.New(zerolog.Nop(), 0), 10)

	ok := &models.RoutingBlock{Goto: "setup"}
	d := eval.Evaluate(context.Background(), "build", models.Root(), ok, condition.Env{})
	assert.Equal(t, ActionGoto, d.Action)
	assert.Equal(t, "setup", d.GotoTarget)
	assert.NoError(t, d.Err)

	bad := &models.RoutingBlock{Goto: "build"}
	d2 := eval.Evaluate(context.Background(), "setup", models.Root(), bad, condition.Env{})
	require.Error(t, d2.Err)
	var engErr *models.EngineError
	assert.True(t, errors.As(d2.Err, &engErr))
	assert.Equal(t, models.RuleRoutingNonAncestor, engErr.RuleID)
}

func TestEvaluate_LoopBudgetExceeded(t *testing.T) {
	g := buildGraph(t, map[string][]string{"setup": nil, "build": {"setup"}})
	eval := New(g, condition.New(zerolog.Nop(), 0), 1)
	block := &models.RoutingBlock{Goto: "setup"}

	d1 := eval.Evaluate(context.Background(), "build", models.Root(), block, condition.Env{})
	require.NoError(t, d1.Err)
	assert.Equal(t, ActionGoto, d1.Action)

	d2 := eval.Evaluate(context.Background(), "build", models.Root(), block, condition.Env{})
	require.Error(t, d2.Err)
	var engErr *models.EngineError
	require.True(t, errors.As(d2.Err, &engErr))
	assert.Equal(t, models.RuleRoutingLoopBudget, engErr.RuleID)
}

func TestEvaluate_ScopesAreIndependent(t *testing.T) {
	g := buildGraph(t, map[string][]string{"a": nil})
	eval := New(g, condition.New(zerolog.Nop(), 0), 10)
	block := &models.RoutingBlock{Retry: &models.RetrySpec{Max: 1, Backoff: models.BackoffSpec{Mode: models.BackoffFixed, DelayMs: 10}}}

	scope0 := models.Root().Extend("matrix", 0)
	scope1 := models.Root().Extend("matrix", 1)

	d0 := eval.Evaluate(context.Background(), "a", scope0, block, condition.Env{})
	assert.Equal(t, ActionRetry, d0.Action)

	d1 := eval.Evaluate(context.Background(), "a", scope1, block, condition.Env{})
	assert.Equal(t, ActionRetry, d1.Action, "scope1's attempt counter is independent of scope0's")
}

func TestEvaluate_NoBlockIsNoop(t *testing.T) {
	g := buildGraph(t, map[string][]string{"a": nil})
	eval := New(g, condition.New(zerolog.Nop(), 0), 10)
	d := eval.Evaluate(context.Background(), "a", models.Root(), nil, condition.Env{})
	assert.Equal(t, ActionNone, d.Action)
}

func TestEvaluate_GotoCarriesEvent(t *testing.T) {
	g := buildGraph(t, map[string][]string{"setup": nil, "build": {"setup"}})
	eval := New(g, condition.New(zerolog.Nop(), 0), 10)
	block := &models.RoutingBlock{Goto: "setup", GotoEvent: "pr_synchronize"}

	d := eval.Evaluate(context.Background(), "build", models.Root(), block, condition.Env{})
	assert.Equal(t, ActionGoto, d.Action)
	assert.Equal(t, "pr_synchronize", d.GotoEvent)
}

func TestNormalizeGotoEvent(t *testing.T) {
	assert.Equal(t, "pull_request", NormalizeGotoEvent("pr_opened"))
	assert.Equal(t, "pull_request", NormalizeGotoEvent("pr_synchronize"))
	assert.Equal(t, "push", NormalizeGotoEvent("push"))
	assert.Equal(t, "", NormalizeGotoEvent(""))
}
