// Package foreach computes the per-iteration scopes a forEach fan-out
// creates, zips scopes across multiple forEach parents, and builds the
// aggregated journal entry once all iterations settle, grounded on
// spec.md §4.5.
package foreach

import (
	"sort"

	"github.com/checkrun-dev/engine/pkg/models"
)

// ParentSpec names one forEach parent feeding a dependent's fan-out and the
// length of the list it produced at the dependent's base scope.
type ParentSpec struct {
	CheckID string
	Length  int
}

// Iteration is one resolved execution scope for a dependent zipped across
// one or more forEach parents.
type Iteration struct {
	Index      int
	Scope      models.Scope
	OutOfRange map[string]bool // parent check ids this iteration has no item for
}

// ZipScopes builds the per-iteration scopes a dependent of parents must
// execute at, starting from base. The aggregate length is the longest
// parent's length (spec_full §4.5's resolution of the unequal-length
// Open Question): shorter parents contribute no scope step for the
// out-of-range iterations, and OutOfRange flags them so the dependency
// gate can treat them as undefined rather than silently falling back to
// that parent's aggregate.
func ZipScopes(base models.Scope, parents []ParentSpec) []Iteration {
	if len(parents) == 0 {
		return nil
	}
	sorted := make([]ParentSpec, len(parents))
	copy(sorted, parents)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CheckID < sorted[j].CheckID })

	n := 0
	for _, p := range sorted {
		if p.Length > n {
			n = p.Length
		}
	}

	iterations := make([]Iteration, 0, n)
	for i := 0; i < n; i++ {
		scope := base
		outOfRange := map[string]bool{}
		for _, p := range sorted {
			if i < p.Length {
				scope = scope.Extend(p.CheckID, i)
			} else {
				outOfRange[p.CheckID] = true
			}
		}
		iterations = append(iterations, Iteration{Index: i, Scope: scope, OutOfRange: outOfRange})
	}
	return iterations
}

// Aggregate builds the single journal entry a forEach fan-out's dependent
// collapses into once every iteration has a result: an isForEach-marked
// CheckResult whose Output is the ordered list of per-iteration outputs.
// Skipped iterations (if-gated out or dependency_failed) are excluded from
// the list entirely rather than leaving a hole, matching the aggregate
// length to the iterations that actually ran.
func Aggregate(perIteration []*models.CheckResult) *models.CheckResult {
	outputs := make([]any, 0, len(perIteration))
	var issues []models.Issue
	for _, r := range perIteration {
		if r == nil || r.Skipped {
			continue
		}
		outputs = append(outputs, r.Output)
		issues = append(issues, r.Issues...)
	}
	return &models.CheckResult{IsForEach: true, Output: outputs, Issues: issues}
}

// FinishTracker records which forEach parents have produced at least one
// fanned-out result during the run, so on_finish can be correctly elided
// when a parent never actually forked (spec.md §4.5).
type FinishTracker struct {
	produced map[string]bool
}

// NewFinishTracker creates an empty tracker.
func NewFinishTracker() *FinishTracker {
	return &FinishTracker{produced: make(map[string]bool)}
}

// MarkProduced records that parentID fanned out at least one iteration.
func (t *FinishTracker) MarkProduced(parentID string) {
	t.produced[parentID] = true
}

// ShouldFireOnFinish reports whether on_finish should fire for parentID —
// false means it is elided as a no-op for this run.
func (t *FinishTracker) ShouldFireOnFinish(parentID string) bool {
	return t.produced[parentID]
}
