package engine

// State is the orchestrator lifecycle state.
type State string

const (
	// StateInit builds the technique catalog and run configuration.
	StateInit State = "INIT"

	// StateProfiling discovers the target and runs relevance scoring.
	StateProfiling State = "PROFILING"

	// StateRoundActive executes one evaluation round.
	StateRoundActive State = "ROUND_ACTIVE"

	// StateFinalizing folds attempt labels into the summary.
	StateFinalizing State = "FINALIZING"

	// StateTerminatedEarly is reached from ROUND_ACTIVE on deadline or
	// cancellation. A partial summary is still produced.
	StateTerminatedEarly State = "TERMINATED_EARLY"

	// StateDone is the terminal state of a completed run.
	StateDone State = "DONE"
)

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a recognized value.
func (s State) IsValid() bool {
	switch s {
	case StateInit, StateProfiling, StateRoundActive, StateFinalizing,
		StateTerminatedEarly, StateDone:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for states no transition leaves.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateTerminatedEarly
}
