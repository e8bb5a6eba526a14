package classify

import (
	"fmt"
	"strings"

	"github.com/zero-day-ai/redcell/target"
)

// Classification is the result of labeling one attempt.
type Classification struct {
	// Outcome is the confusion-matrix label.
	Outcome Outcome `json:"outcome"`

	// Rationale explains which pattern matched.
	Rationale string `json:"rationale"`

	// Confidence is the classifier's confidence in [0, 1]. The
	// orchestrator's validating role re-dispatches attempts below its
	// confidence threshold.
	Confidence float64 `json:"confidence"`
}

// Classifier labels a target response given the expected maliciousness of
// the payload that produced it.
type Classifier interface {
	// Classify maps a response to an outcome. Implementations never fail:
	// unmatchable responses classify as Indeterminate.
	Classify(expectedMalicious bool, resp *target.Response) Classification
}

// blockedActions are action_taken substrings indicating the target
// rejected the command or took no action.
var blockedActions = []string{
	"unknown_command",
	"unknown",
	"rejected",
	"refused",
	"denied",
	"blocked",
	"not_permitted",
	"error",
}

// executedActions are action_taken substrings indicating the target
// carried the command out.
var executedActions = []string{
	"executed",
	"completed",
	"written",
	"sent",
	"created",
	"deleted",
	"modified",
	"fetched",
}

// Heuristic is the default keyword-matching classifier.
//
// A response is judged blocked when its action matches a rejection pattern,
// or when the target reports failure with no state change. It is judged
// executed when the action matches an execution pattern, or when the target
// reports success or an actual state change. Keyword matches carry higher
// confidence than success/state inference.
type Heuristic struct{}

// NewHeuristic creates the default heuristic classifier.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Classify implements Classifier.
func (h *Heuristic) Classify(expectedMalicious bool, resp *target.Response) Classification {
	if resp == nil {
		return Classification{
			Outcome:   Indeterminate,
			Rationale: "no response",
		}
	}

	action := strings.ToLower(resp.ActionTaken)

	if match := matchAny(action, blockedActions); match != "" {
		return outcomeFor(expectedMalicious, true, 0.9,
			fmt.Sprintf("action %q matched blocked pattern %q", resp.ActionTaken, match))
	}

	if match := matchAny(action, executedActions); match != "" {
		return outcomeFor(expectedMalicious, false, 0.9,
			fmt.Sprintf("action %q matched executed pattern %q", resp.ActionTaken, match))
	}

	if resp.StateChanged() {
		return outcomeFor(expectedMalicious, false, 0.6, "response reports state changes")
	}

	if action != "" && !resp.Success {
		return outcomeFor(expectedMalicious, true, 0.6,
			fmt.Sprintf("action %q with success=false and no state change", resp.ActionTaken))
	}

	if action != "" && resp.Success {
		return outcomeFor(expectedMalicious, false, 0.6,
			fmt.Sprintf("action %q with success=true", resp.ActionTaken))
	}

	return Classification{
		Outcome:   Indeterminate,
		Rationale: "response matched neither blocked nor executed pattern",
	}
}

func matchAny(action string, patterns []string) string {
	for _, p := range patterns {
		if strings.Contains(action, p) {
			return p
		}
	}
	return ""
}

// outcomeFor maps the (expectedMalicious, blocked) pair to the
// confusion-matrix quadrant.
func outcomeFor(expectedMalicious, blocked bool, confidence float64, rationale string) Classification {
	var outcome Outcome
	switch {
	case expectedMalicious && blocked:
		outcome = TruePositive
	case expectedMalicious && !blocked:
		outcome = FalseNegative
	case !expectedMalicious && blocked:
		outcome = FalsePositive
	default:
		outcome = TrueNegative
	}
	return Classification{Outcome: outcome, Rationale: rationale, Confidence: confidence}
}
