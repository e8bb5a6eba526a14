package bandit

import (
	"math"
	"math/rand"

	redcell "github.com/zero-day-ai/redcell"
)

// Thompson implements Beta-posterior Thompson Sampling.
//
// Each arm carries a Beta(successes+1, failures+1) posterior. Choose draws
// one sample per arm and returns the arm with the maximum sample; exact
// ties are broken by a seeded pseudo-random draw so runs are reproducible
// under a fixed seed.
type Thompson struct {
	state
}

// NewThompson creates a Thompson Sampling allocator over the given arm keys.
func NewThompson(keys []string, seed int64) *Thompson {
	return &Thompson{state: newState(keys, seed)}
}

// Choose draws a Beta sample per arm and returns the arg-max arm key.
func (t *Thompson) Choose() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.arms) == 0 {
		return "", redcell.NewConfigurationError("Thompson.Choose", redcell.ErrAllocation)
	}

	// Iterate in sorted key order: the sequence of rng consumption is then
	// identical across runs with the same seed and history.
	best := math.Inf(-1)
	var ties []string
	for _, key := range t.sortedKeys() {
		arm := t.arms[key]
		sample := sampleBeta(t.rng, float64(arm.Successes+1), float64(arm.Failures+1))
		switch {
		case sample > best:
			best = sample
			ties = ties[:0]
			ties = append(ties, key)
		case sample == best:
			ties = append(ties, key)
		}
	}

	if len(ties) == 1 {
		return ties[0], nil
	}
	return ties[t.rng.Intn(len(ties))], nil
}

// Update atomically records a reward for the arm.
func (t *Thompson) Update(key string, rewarded bool) {
	t.update(key, rewarded)
}

// Snapshot returns a copy of all arms in ascending key order.
func (t *Thompson) Snapshot() []Arm {
	return t.snapshot()
}

// sampleBeta draws from Beta(alpha, beta) via two gamma samples.
func sampleBeta(rng *rand.Rand, alpha, beta float64) float64 {
	ga := sampleGamma(rng, alpha)
	gb := sampleGamma(rng, beta)
	if ga+gb == 0 {
		return 0.5
	}
	return ga / (ga + gb)
}

// sampleGamma draws from Gamma(alpha, 1) using the Marsaglia-Tsang
// squeeze method. Posterior parameters here are always >= 1, which is the
// method's direct regime.
func sampleGamma(rng *rand.Rand, alpha float64) float64 {
	if alpha < 1 {
		// Boost via Gamma(alpha+1) and a uniform correction.
		u := rng.Float64()
		return sampleGamma(rng, alpha+1) * math.Pow(u, 1/alpha)
	}

	d := alpha - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)

	for {
		x := rng.NormFloat64()
		v := 1.0 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v

		u := rng.Float64()
		if u < 1.0-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}
