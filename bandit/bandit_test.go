package bandit

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redcell "github.com/zero-day-ai/redcell"
)

func TestNew(t *testing.T) {
	keys := []string{"persistence", "discovery"}

	a, err := New(PolicyThompson, keys, 1)
	require.NoError(t, err)
	assert.IsType(t, &Thompson{}, a)

	a, err = New(PolicyUniform, keys, 1)
	require.NoError(t, err)
	assert.IsType(t, &Uniform{}, a)

	a, err = New("", keys, 1)
	require.NoError(t, err)
	assert.IsType(t, &Thompson{}, a)

	_, err = New("epsilon-greedy", keys, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, redcell.ErrInvalidConfig)
}

func TestThompson_Choose_NoArms(t *testing.T) {
	a := NewThompson(nil, 1)
	_, err := a.Choose()
	require.Error(t, err)
	assert.True(t, errors.Is(err, redcell.ErrAllocation))
}

func TestThompson_Reproducible(t *testing.T) {
	keys := []string{"persistence", "discovery", "exfiltration"}

	run := func() []string {
		a := NewThompson(keys, 42)
		var choices []string
		for i := 0; i < 50; i++ {
			key, err := a.Choose()
			require.NoError(t, err)
			choices = append(choices, key)
			a.Update(key, i%3 == 0)
		}
		return choices
	}

	assert.Equal(t, run(), run())
}

// Scenario: a category with 8/8 rewarded outcomes versus a benign control
// with 0/8 must dominate selection once the posteriors separate.
func TestThompson_ConvergesOnRewardedArm(t *testing.T) {
	a := NewThompson([]string{"persistence", "benign-control"}, 7)

	for i := 0; i < 8; i++ {
		a.Update("persistence", true)
		a.Update("benign-control", false)
	}

	var persistence int
	const draws = 1000
	for i := 0; i < draws; i++ {
		key, err := a.Choose()
		require.NoError(t, err)
		if key == "persistence" {
			persistence++
		}
	}

	// Beta(9,1) vs Beta(1,9): persistence should win nearly always.
	assert.Greater(t, persistence, draws*9/10)
}

func TestThompson_PullAccounting(t *testing.T) {
	a := NewThompson([]string{"a", "b"}, 1)

	a.Update("a", true)
	a.Update("a", false)
	a.Update("b", true)

	arms := a.Snapshot()
	require.Len(t, arms, 2)

	assert.Equal(t, Arm{Key: "a", Successes: 1, Failures: 1, Pulls: 2}, arms[0])
	assert.Equal(t, Arm{Key: "b", Successes: 1, Failures: 0, Pulls: 1}, arms[1])

	for _, arm := range arms {
		assert.Equal(t, arm.Successes+arm.Failures, arm.Pulls)
	}
}

func TestThompson_LateRegisteredArm(t *testing.T) {
	a := NewThompson([]string{"a"}, 1)
	a.Update("new-category", true)

	arms := a.Snapshot()
	require.Len(t, arms, 2)
	assert.Equal(t, "new-category", arms[1].Key)
	assert.Equal(t, 1, arms[1].Pulls)
}

func TestThompson_ConcurrentUpdates(t *testing.T) {
	a := NewThompson([]string{"a"}, 1)

	var wg sync.WaitGroup
	const workers = 8
	const perWorker = 100
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				a.Update("a", w%2 == 0)
			}
		}(w)
	}
	wg.Wait()

	arms := a.Snapshot()
	require.Len(t, arms, 1)
	assert.Equal(t, workers*perWorker, arms[0].Pulls)
	assert.Equal(t, arms[0].Successes+arms[0].Failures, arms[0].Pulls)
}

func TestUniform_CoversAllArms(t *testing.T) {
	keys := []string{"a", "b", "c"}
	a := NewUniform(keys, 3)

	seen := make(map[string]int)
	for i := 0; i < 300; i++ {
		key, err := a.Choose()
		require.NoError(t, err)
		seen[key]++
	}

	for _, key := range keys {
		assert.Greater(t, seen[key], 0, key)
	}
}

func TestUniform_NoArms(t *testing.T) {
	a := NewUniform(nil, 1)
	_, err := a.Choose()
	require.Error(t, err)
	assert.True(t, errors.Is(err, redcell.ErrAllocation))
}

func TestSampleBeta_InUnitInterval(t *testing.T) {
	a := NewThompson([]string{"x"}, 5)
	for i := 0; i < 1000; i++ {
		v := sampleBeta(a.rng, 1, 1)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestSampleBeta_PosteriorShiftsWithEvidence(t *testing.T) {
	a := NewThompson([]string{"x"}, 5)

	var highSum, lowSum float64
	const n = 500
	for i := 0; i < n; i++ {
		highSum += sampleBeta(a.rng, 20, 2)
		lowSum += sampleBeta(a.rng, 2, 20)
	}

	assert.Greater(t, highSum/n, 0.8)
	assert.Less(t, lowSum/n, 0.2)
}
