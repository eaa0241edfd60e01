// Package providers implements reference dispatch.Provider backends:
// command, http, script, log, memory, human-input, ai, and mcp. Each normalizes
// its own failures into a fatal CheckResult (spec.md §4.8) rather than
// returning a Go error, and is grounded on one of the teacher's
// pkg/executor/builtin adapters.
package providers

import "github.com/checkrun-dev/engine/pkg/models"

// fatal builds a CheckResult with one fatal issue. ruleID must end in
// "/error" (or "/execution_error"/"_fail_if") for models.Issue.IsFatal to
// recognize it — every provider here follows "<type>/error".
func fatal(checkType, format string, args ...any) *models.CheckResult {
	return models.WithFatal(checkType+"/error", format, args...)
}
