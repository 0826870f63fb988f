package main

import "time"

// Item is one input unit, immutable once read from the source file.
type Item struct {
	Identifier  string // hostname or URL, non-empty
	Title       string // optional, falls back to Identifier in the report
	Description string // optional, empty means classification is skipped
}

// Issue is one failing audit check from the engine's report.
type Issue struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Details     []map[string]any `json:"details"`
}

// AuditOutcome is the normalized result of one audit attempt. Failed outcomes
// carry ErrorDetail and a nil Score; they are values, not errors.
type AuditOutcome struct {
	Score       *float64
	Issues      []Issue
	Failed      bool
	ErrorDetail string
}

// ResultRecord is one report row: an item's identity plus its audit outcome
// and category. Score stays nil when the audit failed or reported no score.
type ResultRecord struct {
	Identifier  string
	Title       string
	Description string
	Score       *float64
	Issues      []Issue
	Category    string
}

// CategoryUncategorized is the sentinel used when classification is skipped,
// fails, or returns something outside the configured set.
const CategoryUncategorized = "Uncategorized"

// BatchStats tracks separate counters for each per-item outcome.
type BatchStats struct {
	Total         int
	Audited       int
	AuditFailed   int
	Classified    int
	Uncategorized int
	Skipped       int
	StartedAt     time.Time
	FinishedAt    time.Time
}

func (s BatchStats) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
