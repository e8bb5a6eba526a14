// Package classify maps target responses to confusion-matrix outcomes and
// derives the run's aggregate metrics.
//
// Classification is heuristic: ground truth for "malicious" labels is
// approximate, and responses are judged blocked or executed by inspecting
// the target's observable action. The Classifier interface is deliberately
// small so stricter or learned classifiers can be substituted without
// touching the orchestrator.
package classify

// Outcome is a confusion-matrix label for one attack attempt.
type Outcome string

const (
	// TruePositive: the payload was malicious and the target blocked it.
	TruePositive Outcome = "TRUE_POSITIVE"

	// FalseNegative: the payload was malicious and the target executed it.
	// This is a successful evasion, the reward signal for the allocator.
	FalseNegative Outcome = "FALSE_NEGATIVE"

	// TrueNegative: the payload was benign and the target executed it.
	TrueNegative Outcome = "TRUE_NEGATIVE"

	// FalsePositive: the payload was benign and the target blocked it.
	FalsePositive Outcome = "FALSE_POSITIVE"

	// Indeterminate: the response matched neither the blocked nor the
	// executed pattern, or the target was unreachable. Indeterminate
	// attempts are terminal but excluded from the confusion matrix.
	Indeterminate Outcome = "INDETERMINATE"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// IsValid returns true if the outcome is a recognized value.
func (o Outcome) IsValid() bool {
	switch o {
	case TruePositive, FalseNegative, TrueNegative, FalsePositive, Indeterminate:
		return true
	default:
		return false
	}
}

// IsDeterminate returns true for the four primary confusion-matrix buckets.
func (o Outcome) IsDeterminate() bool {
	return o.IsValid() && o != Indeterminate
}

// IsEvasion returns true if the outcome represents a successful evasion.
func (o Outcome) IsEvasion() bool {
	return o == FalseNegative
}
