package bandit

import (
	redcell "github.com/zero-day-ai/redcell"
)

// Uniform allocates attempts uniformly at random across arms. It is the
// fallback policy when Thompson Sampling is not wanted and the comparison
// baseline in evaluations of allocation efficiency.
type Uniform struct {
	state
}

// NewUniform creates a uniform-random allocator over the given arm keys.
func NewUniform(keys []string, seed int64) *Uniform {
	return &Uniform{state: newState(keys, seed)}
}

// Choose returns a uniformly random arm key.
func (u *Uniform) Choose() (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(u.arms) == 0 {
		return "", redcell.NewConfigurationError("Uniform.Choose", redcell.ErrAllocation)
	}

	keys := u.sortedKeys()
	return keys[u.rng.Intn(len(keys))], nil
}

// Update atomically records a reward for the arm.
func (u *Uniform) Update(key string, rewarded bool) {
	u.update(key, rewarded)
}

// Snapshot returns a copy of all arms in ascending key order.
func (u *Uniform) Snapshot() []Arm {
	return u.snapshot()
}
