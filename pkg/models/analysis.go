package models

import "time"

// PRInfo is the opaque, pass-through event context handed to providers and
// to ConditionEvaluator. The engine itself only ever reads EventName,
// Branch, BaseBranch and FilesChanged, to build the condition environment;
// everything else is pass-through for provider consumption.
type PRInfo struct {
	EventName    string
	Branch       string
	BaseBranch   string
	Author       string
	FilesChanged []string
	Extra        map[string]any
}

// CheckStats summarizes execution counters for one check across the run.
type CheckStats struct {
	CheckID     string
	TotalRuns   int
	SuccessRuns int
	Failures    int
	Skipped     int
	DurationMs  int64
	Fatal       bool
}

// JournalSummary is a caller-facing digest of the journal's final state.
type JournalSummary struct {
	EntryCount int
	Checks     []string
}

// AnalysisResult is what Run returns to the caller: spec.md §6.
type AnalysisResult struct {
	ChecksExecuted []string
	ExecutionTime  time.Duration
	Timestamp      time.Time
	ReviewSummary  ReviewSummary
	Stats          []CheckStats
	Journal        JournalSummary
}

// ReviewSummary aggregates every issue produced across the run.
type ReviewSummary struct {
	Issues []Issue
}
