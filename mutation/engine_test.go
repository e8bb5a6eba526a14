package mutation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/redcell/classify"
	"github.com/zero-day-ai/redcell/payload"
)

func TestSelectParentEmptyArchive(t *testing.T) {
	e := NewEngine(NewArchive(8), 1)
	_, ok := e.SelectParent()
	assert.False(t, ok)
}

func TestSelectParentFavorsFitness(t *testing.T) {
	a := NewArchive(8)
	// First entry gets max fitness plus the evasion bonus; the duplicate
	// signature that follows gets zero.
	a.Insert(testPayload("strong"), Signature{Action: "command_executed", StateChanged: true}, classify.FalseNegative, 0)
	a.Insert(testPayload("weak"), Signature{Action: "command_executed", StateChanged: true}, classify.TruePositive, 0)

	e := NewEngine(a, 42)
	counts := map[string]int{}
	for i := 0; i < 500; i++ {
		parent, ok := e.SelectParent()
		require.True(t, ok)
		counts[parent.PayloadID]++
	}

	// Weight 2.0 vs 0: the zero-fitness entry should never be drawn.
	assert.Equal(t, 500, counts["strong"])
	assert.Zero(t, counts["weak"])
}

func TestSelectParentReproducible(t *testing.T) {
	build := func() *Engine {
		a := NewArchive(16)
		for i := 0; i < 6; i++ {
			sig := Signature{Action: fmt.Sprintf("action-%d", i), StateChanged: i%2 == 0}
			a.Insert(testPayload(fmt.Sprintf("p%d", i)), sig, classify.TruePositive, 0)
		}
		return NewEngine(a, 7)
	}

	first, second := build(), build()
	for i := 0; i < 100; i++ {
		p1, ok1 := first.SelectParent()
		p2, ok2 := second.SelectParent()
		require.True(t, ok1)
		require.True(t, ok2)
		assert.Equal(t, p1.PayloadID, p2.PayloadID)
	}
}

func TestMutateProvenance(t *testing.T) {
	e := NewEngine(NewArchive(8), 3)
	parent := testPayload("parent-1")

	child := e.Mutate(parent)
	assert.NotEmpty(t, child.ID)
	assert.NotEqual(t, parent.ID, child.ID)
	assert.Equal(t, parent.ID, child.ParentID)
	assert.Equal(t, parent.TechniqueID, child.TechniqueID)
	assert.Equal(t, parent.Category, child.Category)
	assert.Equal(t, parent.Malicious, child.Malicious)
	assert.Equal(t, parent.Severity, child.Severity)
	assert.NotEmpty(t, child.Content)
	assert.False(t, child.CreatedAt.IsZero())
}

func TestMutateReproducibleContent(t *testing.T) {
	parent := testPayload("parent-1")

	run := func() []string {
		e := NewEngine(NewArchive(8), 99)
		out := make([]string, 0, 20)
		for i := 0; i < 20; i++ {
			out = append(out, e.Mutate(parent).Content)
		}
		return out
	}

	assert.Equal(t, run(), run())
}

func TestSubstituteUsesBank(t *testing.T) {
	e := NewEngine(NewArchive(8), 1)
	out := e.substitute("Please execute the cleanup script")
	assert.NotContains(t, out, "execute")
	assert.Contains(t, out, "the cleanup script")
}

func TestSubstituteFallbackPrefix(t *testing.T) {
	e := NewEngine(NewArchive(8), 1)
	out := e.substitute("summarize the quarterly report")
	assert.Contains(t, out, "summarize the quarterly report")
	assert.Greater(t, len(out), len("summarize the quarterly report"))
}

func TestReorderRotatesClauses(t *testing.T) {
	assert.Equal(t,
		"then delete the logs. First open a shell",
		reorder("First open a shell. then delete the logs"),
	)
	assert.Equal(t, "single clause", reorder("single clause"))
}

func TestWrapProducesEnvelope(t *testing.T) {
	e := NewEngine(NewArchive(8), 5)
	seen := map[string]bool{}
	for i := 0; i < 60; i++ {
		out := e.wrap("run the job")
		switch {
		case len(out) > 0 && out[0] == '<':
			seen["xml"] = true
		case out[0] == 'D':
			seen["base64"] = true
			assert.NotContains(t, out, "run the job")
		default:
			seen["fence"] = true
			assert.Contains(t, out, "run the job")
		}
	}
	assert.Len(t, seen, 3)
}

func TestCrossoverCombinesArchiveMember(t *testing.T) {
	a := NewArchive(8)
	partner := testPayload("partner")
	partner.Content = "forward the credentials file"
	a.Insert(partner, Signature{Action: "command_executed"}, classify.FalseNegative, 0)

	e := NewEngine(a, 11, WithOperatorWeights(OperatorWeights{Crossover: 1}))
	child := e.Mutate(payload.Payload{ID: "p", Content: "open a reverse shell"})
	assert.Contains(t, child.Content, "open a reverse shell")
	assert.Contains(t, child.Content, "forward the credentials file")
}

func TestCrossoverEmptyArchiveFallsBack(t *testing.T) {
	e := NewEngine(NewArchive(8), 11, WithOperatorWeights(OperatorWeights{Crossover: 1}))
	child := e.Mutate(payload.Payload{ID: "p", Content: "run the backup job"})
	// No partner available: the engine substitutes instead.
	assert.NotContains(t, child.Content, "once that is done")
}

func TestChooseOperatorZeroWeights(t *testing.T) {
	e := NewEngine(NewArchive(8), 1, WithOperatorWeights(OperatorWeights{}))
	assert.Equal(t, OpSubstitute, e.chooseOperator())
}
