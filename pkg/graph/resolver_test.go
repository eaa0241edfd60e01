package graph

import (
	"errors"
	"testing"

	"github.com/checkrun-dev/engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defs(deps map[string][]string) map[string]*models.CheckDefinition {
	out := make(map[string]*models.CheckDefinition, len(deps))
	for id, d := range deps {
		out[id] = &models.CheckDefinition{ID: id, DependsOn: d}
	}
	return out
}

func ids(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}

func TestBuild_LinearWaves(t *testing.T) {
	checks := map[string][]string{
		"A": nil,
		"B": {"A"},
		"C": {"B"},
	}
	g, err := Build(defs(checks), ids(checks))
	require.NoError(t, err)
	require.Len(t, g.Waves, 3)
	assert.Equal(t, []string{"A"}, g.Waves[0])
	assert.Equal(t, []string{"B"}, g.Waves[1])
	assert.Equal(t, []string{"C"}, g.Waves[2])
}

func TestBuild_ParallelLevel(t *testing.T) {
	checks := map[string][]string{
		"A": nil,
		"B": nil,
		"C": {"A", "B"},
	}
	g, err := Build(defs(checks), ids(checks))
	require.NoError(t, err)
	require.Len(t, g.Waves, 2)
	assert.ElementsMatch(t, []string{"A", "B"}, g.Waves[0])
	assert.Equal(t, []string{"C"}, g.Waves[1])
}

func TestBuild_Cycle(t *testing.T) {
	checks := map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}
	_, err := Build(defs(checks), ids(checks))
	require.Error(t, err)

	var engErr *models.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, models.RuleGraphCycle, engErr.RuleID)
	assert.ElementsMatch(t, []string{"A", "B"}, engErr.Nodes)
	assert.True(t, errors.Is(err, models.ErrCycle))
}

func TestBuild_UnknownDependency(t *testing.T) {
	checks := map[string][]string{
		"A": {"missing"},
	}
	_, err := Build(defs(checks), []string{"A"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnknownDep))
}

func TestAllAncestors(t *testing.T) {
	checks := map[string][]string{
		"A": nil,
		"B": {"A"},
		"C": {"B"},
		"D": {"C", "A"},
	}
	g, err := Build(defs(checks), ids(checks))
	require.NoError(t, err)

	ancestors := g.AllAncestors("D")
	assert.True(t, ancestors["A"])
	assert.True(t, ancestors["B"])
	assert.True(t, ancestors["C"])
	assert.False(t, ancestors["D"])
}

func TestIsAncestor_GotoRule(t *testing.T) {
	checks := map[string][]string{
		"setup": nil,
		"build": {"setup"},
	}
	g, err := Build(defs(checks), ids(checks))
	require.NoError(t, err)

	assert.True(t, g.IsAncestor("build", "setup"))
	assert.False(t, g.IsAncestor("setup", "build"))
}
