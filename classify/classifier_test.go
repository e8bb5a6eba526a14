package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/redcell/target"
)

func TestOutcome(t *testing.T) {
	for _, o := range []Outcome{TruePositive, FalseNegative, TrueNegative, FalsePositive, Indeterminate} {
		assert.True(t, o.IsValid(), o)
	}
	assert.False(t, Outcome("MAYBE").IsValid())

	assert.True(t, TruePositive.IsDeterminate())
	assert.False(t, Indeterminate.IsDeterminate())
	assert.True(t, FalseNegative.IsEvasion())
	assert.False(t, TruePositive.IsEvasion())
}

// Scenario: an unknown_command response to a malicious payload is a
// TRUE_POSITIVE; a system_command_executed response to the same payload is
// a FALSE_NEGATIVE.
func TestHeuristic_Classify_MaliciousQuadrants(t *testing.T) {
	h := NewHeuristic()

	blocked := h.Classify(true, &target.Response{
		Success:     false,
		ActionTaken: "unknown_command",
	})
	assert.Equal(t, TruePositive, blocked.Outcome)
	assert.GreaterOrEqual(t, blocked.Confidence, 0.9)

	executed := h.Classify(true, &target.Response{
		Success:     true,
		ActionTaken: "system_command_executed",
	})
	assert.Equal(t, FalseNegative, executed.Outcome)
}

func TestHeuristic_Classify_BenignQuadrants(t *testing.T) {
	h := NewHeuristic()

	blocked := h.Classify(false, &target.Response{
		Success:     false,
		ActionTaken: "request_rejected",
	})
	assert.Equal(t, FalsePositive, blocked.Outcome)

	executed := h.Classify(false, &target.Response{
		Success:     true,
		ActionTaken: "query_completed",
	})
	assert.Equal(t, TrueNegative, executed.Outcome)
}

func TestHeuristic_Classify_StateChangeInference(t *testing.T) {
	h := NewHeuristic()

	c := h.Classify(true, &target.Response{
		Success:      false,
		ActionTaken:  "handled",
		StateChanges: map[string]any{"file": "/tmp/x"},
	})
	assert.Equal(t, FalseNegative, c.Outcome)
	assert.Less(t, c.Confidence, 0.9)
}

func TestHeuristic_Classify_FailureWithoutStateChange(t *testing.T) {
	h := NewHeuristic()

	c := h.Classify(true, &target.Response{
		Success:     false,
		ActionTaken: "noop",
	})
	assert.Equal(t, TruePositive, c.Outcome)
	assert.Equal(t, 0.6, c.Confidence)
}

func TestHeuristic_Classify_Indeterminate(t *testing.T) {
	h := NewHeuristic()

	tests := []struct {
		name string
		resp *target.Response
	}{
		{"nil response", nil},
		{"empty response", &target.Response{}},
		{"malformed body", &target.Response{Raw: []byte("garbage")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := h.Classify(true, tt.resp)
			assert.Equal(t, Indeterminate, c.Outcome)
			assert.Zero(t, c.Confidence)
		})
	}
}

func TestCEL_Classify(t *testing.T) {
	clf, err := NewCEL(
		`action.contains("denied") || (!success && !state_changed)`,
		`success || state_changed`,
	)
	require.NoError(t, err)

	blocked := clf.Classify(true, &target.Response{Success: false, ActionTaken: "access_denied"})
	assert.Equal(t, TruePositive, blocked.Outcome)
	assert.Equal(t, 1.0, blocked.Confidence)

	executed := clf.Classify(true, &target.Response{Success: true, ActionTaken: "done"})
	assert.Equal(t, FalseNegative, executed.Outcome)

	benign := clf.Classify(false, &target.Response{Success: true})
	assert.Equal(t, TrueNegative, benign.Outcome)
}

func TestCEL_Classify_NeitherPredicate(t *testing.T) {
	clf, err := NewCEL(`action == "blocked"`, `action == "executed"`)
	require.NoError(t, err)

	c := clf.Classify(true, &target.Response{Success: true, ActionTaken: "partial"})
	assert.Equal(t, Indeterminate, c.Outcome)
}

func TestNewCEL_CompileErrors(t *testing.T) {
	_, err := NewCEL(`action ==`, `success`)
	require.Error(t, err)

	_, err = NewCEL(`action`, `success`)
	require.Error(t, err) // blocked predicate is a string, not bool

	_, err = NewCEL(`success`, `nosuchvar`)
	require.Error(t, err)
}
