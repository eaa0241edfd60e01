// Package stats tracks per-check execution counters and fail-fast
// detection, grounded on spec.md §4.7.
package stats

import (
	"sync"
	"time"

	"github.com/checkrun-dev/engine/pkg/models"
)

// Manager accumulates per-check counters across a run. It is safe for
// concurrent use: the engine records each invocation from the task
// goroutine that ran it, not from the scheduler thread.
type Manager struct {
	mu       sync.Mutex
	counters map[string]*models.CheckStats
}

// New creates an empty Manager.
func New() *Manager {
	return &Manager{counters: make(map[string]*models.CheckStats)}
}

// Record folds one completed invocation of checkID into its counters.
func (m *Manager) Record(checkID string, result *models.CheckResult, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[checkID]
	if !ok {
		c = &models.CheckStats{CheckID: checkID}
		m.counters[checkID] = c
	}
	c.TotalRuns++
	c.DurationMs += duration.Milliseconds()
	switch {
	case result.Skipped:
		c.Skipped++
	case result.HasFatalIssue():
		c.Failures++
		c.Fatal = true
	default:
		c.SuccessRuns++
	}
}

// Snapshot returns the accumulated stats, one entry per check that has
// recorded at least one invocation.
func (m *Manager) Snapshot() []models.CheckStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CheckStats, 0, len(m.counters))
	for _, c := range m.counters {
		out = append(out, *c)
	}
	return out
}

// FailFast reports whether any non-skipped result in results carries a
// fatal issue. forEach aggregate entries are excluded: their issues are
// diagnostic roll-ups, not the per-iteration failures the engine already
// evaluated routing against.
func FailFast(results []*models.CheckResult) bool {
	for _, r := range results {
		if r.Skipped || r.IsForEach {
			continue
		}
		if r.HasFatalIssue() {
			return true
		}
	}
	return false
}
