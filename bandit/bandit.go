// Package bandit allocates the attempt budget across technique categories.
//
// The default policy is Thompson Sampling over a Beta posterior per arm:
// reward 1 means the payload evaded detection (a FALSE_NEGATIVE outcome),
// so the allocator concentrates budget on categories that keep producing
// successful evasions. A uniform-random policy is provided as a fallback
// and as a baseline for comparison.
//
// All allocators are safe for concurrent use: posterior updates are atomic
// read-modify-write operations behind a single lock.
package bandit

import (
	"math/rand"
	"sort"
	"sync"

	redcell "github.com/zero-day-ai/redcell"
)

// Arm tracks the reward history of one banditable choice (a technique
// category, or an individual technique under per-technique granularity).
type Arm struct {
	// Key identifies the category or technique.
	Key string `json:"key"`

	// Successes counts rewarded pulls (payload evaded detection).
	Successes int `json:"successes"`

	// Failures counts unrewarded pulls.
	Failures int `json:"failures"`

	// Pulls counts the attempts that contributed a reward signal to this
	// arm. It always equals Successes+Failures.
	Pulls int `json:"pulls"`
}

// Allocator chooses which arm to spend the next attempt on and absorbs
// reward feedback.
type Allocator interface {
	// Choose returns the key of the next arm to pull. Returns an
	// allocation error when no arms are registered.
	Choose() (string, error)

	// Update atomically records a reward signal for the arm. Unknown keys
	// are registered on first update so late-added categories still count.
	Update(key string, rewarded bool)

	// Snapshot returns a copy of all arms in ascending key order.
	Snapshot() []Arm
}

// Policy selects an allocator implementation.
type Policy string

const (
	// PolicyThompson is Beta-posterior Thompson Sampling (default).
	PolicyThompson Policy = "thompson"

	// PolicyUniform is uniform-random allocation, the less efficient
	// comparison baseline.
	PolicyUniform Policy = "uniform"
)

// IsValid returns true if the policy is a recognized value.
func (p Policy) IsValid() bool {
	switch p {
	case PolicyThompson, PolicyUniform:
		return true
	default:
		return false
	}
}

// New creates an allocator for the given policy, seeded for reproducible
// behavior under a fixed seed.
func New(policy Policy, keys []string, seed int64) (Allocator, error) {
	switch policy {
	case PolicyThompson, "":
		return NewThompson(keys, seed), nil
	case PolicyUniform:
		return NewUniform(keys, seed), nil
	default:
		return nil, redcell.NewConfigurationError("bandit.New", redcell.ErrInvalidConfig)
	}
}

// state is the shared arm bookkeeping embedded in both allocators.
type state struct {
	mu   sync.Mutex
	arms map[string]*Arm
	rng  *rand.Rand
}

func newState(keys []string, seed int64) state {
	arms := make(map[string]*Arm, len(keys))
	for _, key := range keys {
		arms[key] = &Arm{Key: key}
	}
	return state{arms: arms, rng: rand.New(rand.NewSource(seed))}
}

func (s *state) update(key string, rewarded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	arm, ok := s.arms[key]
	if !ok {
		arm = &Arm{Key: key}
		s.arms[key] = arm
	}

	if rewarded {
		arm.Successes++
	} else {
		arm.Failures++
	}
	arm.Pulls++
}

func (s *state) snapshot() []Arm {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Arm, 0, len(s.arms))
	for _, arm := range s.arms {
		out = append(out, *arm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// sortedKeys returns arm keys in ascending order. Callers must hold s.mu.
func (s *state) sortedKeys() []string {
	keys := make([]string, 0, len(s.arms))
	for key := range s.arms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
