// Package mutation evolves attack payloads with novelty search.
//
// Instead of maximizing raw success, the engine maintains a bounded archive
// of behaviorally distinct discoveries: each entry carries a small discrete
// signature of how the target reacted, and fitness is the distance to the
// entry's nearest neighbor in signature space plus a bonus for successful
// evasions. Parents are drawn with probability proportional to fitness, so
// search keeps diversifying instead of converging on one exploit family.
package mutation

import (
	"strings"
	"sync"

	"github.com/zero-day-ai/redcell/classify"
	"github.com/zero-day-ai/redcell/payload"
	"github.com/zero-day-ai/redcell/target"
)

// Signature is the behavioral fingerprint of a target response: the
// observable action taken plus whether any state changed.
type Signature struct {
	// Action is the normalized action_taken field.
	Action string `json:"action"`

	// StateChanged reports whether the response altered target state.
	StateChanged bool `json:"state_changed"`
}

// SignatureOf reduces a target response to its behavioral signature.
func SignatureOf(resp *target.Response) Signature {
	if resp == nil {
		return Signature{}
	}
	return Signature{
		Action:       strings.ToLower(resp.ActionTaken),
		StateChanged: resp.StateChanged(),
	}
}

// Distance measures behavioral difference between two signatures:
// a differing action contributes 1.0 and a differing state-change flag
// contributes 0.5, for a range of [0, 1.5].
func Distance(a, b Signature) float64 {
	var d float64
	if a.Action != b.Action {
		d += 1.0
	}
	if a.StateChanged != b.StateChanged {
		d += 0.5
	}
	return d
}

// maxDistance is the distance assigned to the first entry of an empty
// archive: with no neighbors, everything is maximally novel.
const maxDistance = 1.5

// evasionBonus is added to the fitness of entries whose payload evaded
// detection.
const evasionBonus = 0.5

// Entry is one archived discovery.
type Entry struct {
	// PayloadID identifies the payload that produced this behavior.
	PayloadID string `json:"payload_id"`

	// Payload is a snapshot of the archived payload, kept so it can serve
	// as a mutation parent in later rounds.
	Payload payload.Payload `json:"payload"`

	// Signature is the behavioral fingerprint of the response.
	Signature Signature `json:"signature"`

	// Fitness is nearest-neighbor distance plus the evasion bonus,
	// computed against the archive at insertion time.
	Fitness float64 `json:"fitness"`

	// Generation is the round index the entry was discovered in.
	Generation int `json:"generation"`
}

// Archive is the bounded novelty archive. Insertions and evictions are a
// single-writer critical section; the archive never exceeds its capacity.
type Archive struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

// NewArchive creates an archive with the given capacity. Capacities below
// one are treated as one.
func NewArchive(capacity int) *Archive {
	if capacity < 1 {
		capacity = 1
	}
	return &Archive{capacity: capacity}
}

// Insert adds a discovery to the archive. Fitness is the distance to the
// nearest existing neighbor plus the evasion bonus for FALSE_NEGATIVE
// outcomes. When the archive is full the single lowest-fitness entry,
// which may be the candidate itself, is dropped.
func (a *Archive) Insert(p payload.Payload, sig Signature, outcome classify.Outcome, generation int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fitness := a.nearestDistance(sig)
	if outcome.IsEvasion() {
		fitness += evasionBonus
	}

	entry := Entry{
		PayloadID:  p.ID,
		Payload:    p,
		Signature:  sig,
		Fitness:    fitness,
		Generation: generation,
	}

	if len(a.entries) < a.capacity {
		a.entries = append(a.entries, entry)
		return
	}

	// Full: evict the lowest-fitness entry unless the candidate is it.
	lowest := 0
	for i := 1; i < len(a.entries); i++ {
		if a.entries[i].Fitness < a.entries[lowest].Fitness {
			lowest = i
		}
	}
	if a.entries[lowest].Fitness < entry.Fitness {
		a.entries[lowest] = entry
	}
}

// nearestDistance returns the distance from sig to its nearest archive
// neighbor, or maxDistance for an empty archive. Callers must hold a.mu.
func (a *Archive) nearestDistance(sig Signature) float64 {
	if len(a.entries) == 0 {
		return maxDistance
	}
	nearest := maxDistance
	for i := range a.entries {
		if d := Distance(sig, a.entries[i].Signature); d < nearest {
			nearest = d
		}
	}
	return nearest
}

// Len returns the current number of archived entries.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Entries returns a snapshot of the archive contents.
func (a *Archive) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Entry(nil), a.entries...)
}
