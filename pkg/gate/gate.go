// Package gate resolves a check's dependency results for one scope and
// decides whether it must be skipped, grounded on spec.md §4.6.
package gate

import (
	"github.com/checkrun-dev/engine/pkg/journal"
	"github.com/checkrun-dev/engine/pkg/models"
)

// Resolution is the outcome of building one check's dependency set.
type Resolution struct {
	// Results holds the resolved CheckResult for every dependency that has
	// produced one, keyed by check id, unwrapped at the reader's scope.
	Results map[string]*models.CheckResult
	// Skip is true when the check must not be invoked — a dependency is
	// missing, carries a fatal issue, or was itself skipped as
	// dependency_failed.
	Skip bool
	// FailedDependency names the dependency that triggered the skip, for
	// diagnostics.
	FailedDependency string
}

// Build resolves deps for checkID at scope against view, applying the
// prefix rule (spec.md §3) per dependency. A dependency that has not yet
// produced any value reachable from scope, whose resolved value carries a
// fatal issue, or that was itself skipped as dependency_failed, marks the
// check skip-eligible — the caller still records a
// journal entry (Skip(ErrDependencyFailed)) rather than silently dropping
// the check (spec.md §4.6, testable property 7).
func Build(view *journal.View, checkID string, scope models.Scope, deps []string) Resolution {
	return BuildZipped(view, checkID, scope, deps, nil)
}

// BuildZipped is Build extended with outOfRange, the set of forEach parent
// ids that have no item at this iteration (computed by
// pkg/foreach.ZipScopes). Those parents are left out of Results — the
// dependent still runs, reading `undefined` for that dependency — rather
// than skipped, so zipping across unequal-length forEach parents yields an
// aggregate as long as the longest parent instead of truncating to the
// shortest (spec_full §4.5).
func BuildZipped(view *journal.View, checkID string, scope models.Scope, deps []string, outOfRange map[string]bool) Resolution {
	results := make(map[string]*models.CheckResult, len(deps))
	for _, dep := range deps {
		if outOfRange[dep] {
			continue
		}
		result, ok := view.Get(dep)
		if !ok {
			return Resolution{Results: results, Skip: true, FailedDependency: dep}
		}
		if result.HasFatalIssue() || (result.Skipped && result.Error == models.ErrDependencyFailed) {
			return Resolution{Results: results, Skip: true, FailedDependency: dep}
		}
		results[dep] = result
	}
	return Resolution{Results: results}
}
