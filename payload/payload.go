// Package payload turns ranked techniques into concrete attack and control
// payloads.
//
// The generator prefers technique-specific templates and falls back to a
// generic template parameterized by the technique category's keyword bank.
// Benign control payloads are interleaved at a fixed, deterministic stride
// so the control density of a run is verifiable after the fact.
package payload

import (
	"time"

	"github.com/google/uuid"
)

// Payload is a concrete command to be dispatched against a target.
// Payloads are immutable once created and are consumed exactly once as an
// attack attempt.
type Payload struct {
	// ID is the unique payload identifier.
	ID string `json:"id"`

	// Content is the command text sent to the target.
	Content string `json:"content"`

	// TechniqueID identifies the owning technique. Benign control payloads
	// carry the technique they are controls for.
	TechniqueID string `json:"technique_id"`

	// Category is the technique category label used for bandit allocation.
	Category string `json:"category"`

	// Malicious is true for attack payloads and false for benign controls.
	Malicious bool `json:"malicious"`

	// Severity is derived from the owning technique's tactic criticality.
	Severity Severity `json:"severity"`

	// ParentID is the ID of the payload this one was mutated from, if any.
	ParentID string `json:"parent_id,omitempty"`

	// CreatedAt is the payload creation timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// NewID returns a fresh payload identifier.
func NewID() string {
	return uuid.New().String()
}

// BenignCategory is the category label reserved for benign control
// payloads, giving the allocator a comparison arm that should never
// produce evasions.
const BenignCategory = "benign-control"
