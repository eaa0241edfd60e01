package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkrun-dev/engine/pkg/models"
)

func TestManager_RecordsCountersPerCheck(t *testing.T) {
	m := New()
	m.Record("lint", &models.CheckResult{}, 10*time.Millisecond)
	m.Record("lint", models.WithFatal("command/execution_error", "boom"), 20*time.Millisecond)
	m.Record("lint", models.Skip(models.ErrDependencyFailed), 0)

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	s := snap[0]
	assert.Equal(t, "lint", s.CheckID)
	assert.Equal(t, 3, s.TotalRuns)
	assert.Equal(t, 1, s.SuccessRuns)
	assert.Equal(t, 1, s.Failures)
	assert.Equal(t, 1, s.Skipped)
	assert.True(t, s.Fatal)
	assert.Equal(t, int64(30), s.DurationMs)
}

func TestFailFast_IgnoresSkippedAndAggregates(t *testing.T) {
	results := []*models.CheckResult{
		models.Skip(models.ErrDependencyFailed),
		{IsForEach: true, Issues: []models.Issue{{RuleID: "x/error"}}},
	}
	assert.False(t, FailFast(results))
}

func TestFailFast_TripsOnFatalIssue(t *testing.T) {
	results := []*models.CheckResult{
		models.WithFatal("command/execution_error", "boom"),
	}
	assert.True(t, FailFast(results))
}
