package journal

import (
	"encoding/json"

	"github.com/itchyny/gojq"

	"github.com/checkrun-dev/engine/pkg/models"
)

// View is a scoped, snapshotted read of a Journal. All reads through one
// View resolve against the same write frontier, giving routing loops and
// forEach a stable picture of outputs for the lifetime of one evaluation
// (spec.md §4.2, testable property 10).
type View struct {
	j      *Journal
	asOf   int64
	scope  models.Scope
}

// View builds a scoped view of the journal as of snapshotID, for reads
// made at scopePath.
func (j *Journal) View(snapshotID int64, scopePath models.Scope) *View {
	return &View{j: j, asOf: snapshotID, scope: scopePath}
}

// Get resolves checkID using the prefix rule (spec.md §3, property 5): the
// value of the latest entry for (checkID, s') where s' is the longest
// prefix of the view's scope at which checkID has an entry. Returns
// (nil, false) if checkID has no entry visible at any prefix.
//
// A forEach-producing check's individual items are written by the engine as
// their own per-item entries at each child scope (spec.md §4.2's "unwrapped
// value for the current scope") — Get needs no special-casing, the ordinary
// prefix rule finds the per-item entry when one exists and falls back to the
// single aggregate entry when it doesn't (RawEscapeHatch below).
func (v *View) Get(checkID string) (*models.CheckResult, bool) {
	e := v.resolve(checkID)
	if e == nil {
		return nil, false
	}
	return e.Value, true
}

// RawValue implements the "-raw" escape hatch (spec.md §4.2): it returns
// the value recorded at the *shortest* matching prefix rather than the
// longest. For a forEach parent that is the single aggregated entry
// written once all iterations complete, regardless of how deep into that
// parent's own fan-out the reader currently is.
func (v *View) RawValue(checkID string) (*models.CheckResult, bool) {
	entries := v.j.entriesFor(checkID, v.asOf)
	var best *Entry
	for _, e := range entries {
		if !e.Scope.IsPrefixOf(v.scope) {
			continue
		}
		if best == nil || len(e.Scope) < len(best.Scope) ||
			(len(e.Scope) == len(best.Scope) && e.Sequence > best.Sequence) {
			best = e
		}
	}
	if best == nil {
		return nil, false
	}
	return best.Value, true
}

// History returns every value ever recorded for checkID at the view's
// resolved scope (the same scope Get would resolve to), ordered oldest
// first — used by routing loops to reason about prior attempts.
func (v *View) History(checkID string) []*models.CheckResult {
	resolved := v.resolve(checkID)
	if resolved == nil {
		return nil
	}
	entries := v.j.entriesFor(checkID, v.asOf)
	var out []*models.CheckResult
	for _, e := range entries {
		if e.Scope.Equal(resolved.Scope) {
			out = append(out, e.Value)
		}
	}
	return out
}

// Query runs a jq filter over checkID's resolved output and returns the
// first emitted value. This is an optional convenience for routing/condition
// expressions that need to project a sub-field out of a JSON-shaped output
// without writing bespoke Go — it never errors the caller's expression
// evaluation silently: callers are expected to treat a query error the same
// as a missing dependency.
func (v *View) Query(checkID, filter string) (any, error) {
	result, ok := v.Get(checkID)
	if !ok {
		return nil, nil
	}
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, err
	}
	// Round-trip through JSON so gojq sees plain maps/slices/scalars
	// regardless of what concrete Go type Output held.
	raw, err := json.Marshal(result.Output)
	if err != nil {
		return nil, err
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, err
	}
	iter := query.Run(input)
	v2, ok := iter.Next()
	if !ok {
		return nil, nil
	}
	if err, isErr := v2.(error); isErr {
		return nil, err
	}
	return v2, nil
}

// resolve finds the entry satisfying the longest-matching-prefix rule.
func (v *View) resolve(checkID string) *Entry {
	entries := v.j.entriesFor(checkID, v.asOf)
	var best *Entry
	for _, e := range entries {
		if !e.Scope.IsPrefixOf(v.scope) {
			continue
		}
		if best == nil || len(e.Scope) > len(best.Scope) ||
			(len(e.Scope) == len(best.Scope) && e.Sequence > best.Sequence) {
			best = e
		}
	}
	return best
}
