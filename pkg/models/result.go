package models

import (
	"fmt"
	"strings"
)

// Severity classifies an Issue's importance.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityCritical Severity = "critical"
)

// Issue is a single finding attached to a CheckResult.
type Issue struct {
	Severity Severity
	Category string
	RuleID   string
	Message  string
	File     string
	Line     int
}

// IsFatal reports whether the issue's rule id marks the owning check as
// fatally failed, per spec.md §3: rule ids ending in /error,
// /execution_error, or _fail_if.
func (i Issue) IsFatal() bool {
	return strings.HasSuffix(i.RuleID, "/error") ||
		strings.HasSuffix(i.RuleID, "/execution_error") ||
		strings.HasSuffix(i.RuleID, "_fail_if")
}

// ErrorKind tags a CheckResult with a short, rule-id-shaped reason. Unlike
// Go error values, this is a plain string so it can travel through the
// journal and the returned AnalysisResult unchanged.
type ErrorKind string

const (
	ErrNone             ErrorKind = ""
	ErrDependencyFailed ErrorKind = "dependency_failed"
	ErrLoopBudget       ErrorKind = "routing/loop_budget"
	ErrWaveCapExceeded  ErrorKind = "engine/wave_cap_exceeded"
)

// CheckResult is the outcome of executing one check at one scope.
type CheckResult struct {
	Issues    []Issue
	Output    any
	IsForEach bool
	Skipped   bool
	Error     ErrorKind
}

// HasFatalIssue reports whether any issue in the result is fatal.
func (r *CheckResult) HasFatalIssue() bool {
	for _, iss := range r.Issues {
		if iss.IsFatal() {
			return true
		}
	}
	return false
}

// WithFatal returns a CheckResult carrying a single fatal issue with the
// given rule id and message — the common shape providers and the engine
// itself produce for configuration/scheduling/execution failures.
func WithFatal(ruleID, format string, args ...any) *CheckResult {
	return &CheckResult{
		Issues: []Issue{{
			Severity: SeverityCritical,
			RuleID:   ruleID,
			Message:  fmt.Sprintf(format, args...),
		}},
	}
}

// Skip returns a CheckResult marked skipped with the given ErrorKind.
func Skip(kind ErrorKind) *CheckResult {
	return &CheckResult{Skipped: true, Error: kind}
}
