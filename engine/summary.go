package engine

import (
	"github.com/zero-day-ai/redcell/classify"
	"github.com/zero-day-ai/redcell/knowledge"
)

// TechniqueUsage is the per-technique attempt accounting in the summary.
type TechniqueUsage struct {
	// TechniqueID is the catalog technique ID.
	TechniqueID string `json:"technique_id"`

	// Attempts is how many attempts instantiated this technique.
	Attempts int `json:"attempts"`

	// Evasions is how many of those attempts evaded detection.
	Evasions int `json:"evasions"`
}

// Summary is the run's final report. A run always yields one, even under
// partial failure or cancellation; AttemptsCompleted versus
// AttemptsIndeterminate distinguishes missing data from defensive success.
type Summary struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`

	// State is the run's terminal state.
	State State `json:"state"`

	// RoundsCompleted is how many full rounds executed.
	RoundsCompleted int `json:"rounds_completed"`

	// ConfusionMatrix is the terminal TP/FP/TN/FN/Indeterminate tally.
	ConfusionMatrix classify.Counts `json:"confusion_matrix"`

	// Metrics are the rates derived from the matrix.
	classify.Metrics

	// ExploitationCI is the Wilson 95% interval on the exploitation rate.
	ExploitationCI classify.ConfidenceInterval `json:"exploitation_ci"`

	// AttemptsCompleted is the number of attempts with a determinate label.
	AttemptsCompleted int `json:"attempts_completed"`

	// AttemptsIndeterminate is the number of attempts excluded from the
	// primary matrix buckets.
	AttemptsIndeterminate int `json:"attempts_indeterminate"`

	// TechniqueUsage is per-technique accounting, ascending technique ID.
	TechniqueUsage []TechniqueUsage `json:"technique_usage"`

	// KnowledgeBaseEntries are the findings contributed during the run.
	KnowledgeBaseEntries []knowledge.Entry `json:"knowledge_base_entries"`

	// Errors tallies attempt-scoped errors by kind.
	Errors map[string]int `json:"errors,omitempty"`
}
