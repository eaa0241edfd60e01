package models

import (
	"errors"
	"fmt"
)

// Rule id taxonomy, spec.md §7. These are not Go error types: CheckResult
// carries them as plain strings so they survive the journal and the
// returned AnalysisResult unchanged. EngineError carries Init-phase
// configuration errors, returned as a normal Go error, and the routing
// evaluator's mid-run errors (loop budget, non-ancestor goto), which the
// engine turns into fatal issues.
const (
	RuleGraphUnknownDep     = "graph/unknown_dep"
	RuleGraphCycle          = "graph/cycle"
	RuleRoutingNonAncestor  = "routing/non_ancestor_goto"
	RuleRoutingLoopBudget   = "routing/loop_budget"
	RuleEngineWaveCap       = "engine/wave_cap_exceeded"
	RuleDependencyFailed    = "dependency_failed"
	RuleHumanInputError     = "human-input-error"
)

// Sentinel errors callers can match on with errors.Is.
var (
	ErrCycle          = errors.New("dependency graph has a cycle")
	ErrUnknownDep     = errors.New("check references an unknown dependency")
	ErrNonAncestorGoto = errors.New("goto target is not an ancestor of the source check")
)

// EngineError is a fatal configuration or routing error. It carries a
// rule id (for callers that key behavior off the taxonomy) and wraps one
// of the sentinels above so errors.Is keeps working.
type EngineError struct {
	RuleID  string
	Message string
	Nodes   []string // offending node ids, when applicable (e.g. a cycle)
}

func (e *EngineError) Error() string {
	if len(e.Nodes) > 0 {
		return fmt.Sprintf("%s: %s %v", e.RuleID, e.Message, e.Nodes)
	}
	return fmt.Sprintf("%s: %s", e.RuleID, e.Message)
}

func (e *EngineError) Unwrap() error {
	switch e.RuleID {
	case RuleGraphCycle:
		return ErrCycle
	case RuleGraphUnknownDep:
		return ErrUnknownDep
	case RuleRoutingNonAncestor:
		return ErrNonAncestorGoto
	default:
		return nil
	}
}

// NewEngineError builds an EngineError with a formatted message.
func NewEngineError(ruleID, format string, args ...any) *EngineError {
	return &EngineError{RuleID: ruleID, Message: fmt.Sprintf(format, args...)}
}

// NewCycleError builds the RuleGraphCycle error carrying the offending
// node set, per spec.md §4.1.
func NewCycleError(nodes []string) *EngineError {
	return &EngineError{RuleID: RuleGraphCycle, Message: "cycle detected among checks", Nodes: nodes}
}
