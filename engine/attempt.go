package engine

import (
	"time"

	"github.com/zero-day-ai/redcell/classify"
	"github.com/zero-day-ai/redcell/payload"
	"github.com/zero-day-ai/redcell/target"
)

// AttackAttempt is one dispatched payload and everything learned from it.
// Exactly one terminal classification attaches to each attempt; the
// validating role may replace an indeterminate label before the attempt is
// folded into the confusion matrix, but never after.
type AttackAttempt struct {
	// ID uniquely identifies the attempt.
	ID string `json:"id"`

	// Payload is the dispatched payload.
	Payload payload.Payload `json:"payload"`

	// Round is the round the attempt was issued in.
	Round int `json:"round"`

	// AgentID names the role instance that issued the attempt.
	AgentID string `json:"agent_id"`

	// Category is the allocator arm the attempt was charged to.
	Category string `json:"category"`

	// DispatchedAt is the dispatch timestamp in UTC.
	DispatchedAt time.Time `json:"dispatched_at"`

	// Response is the target's response, nil when the target was
	// unreachable after retries.
	Response *target.Response `json:"response,omitempty"`

	// Classification is the attempt's terminal label.
	Classification classify.Classification `json:"classification"`

	// Validated reports whether the validating role re-dispatched this
	// attempt.
	Validated bool `json:"validated,omitempty"`
}
