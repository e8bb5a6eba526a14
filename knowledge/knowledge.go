// Package knowledge provides the append-only store of findings that the
// evaluation roles share across rounds. Entries are never reordered,
// rewritten, or deleted within a run; concurrent appends are serialized so
// no contribution is lost.
package knowledge

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind categorizes a knowledge base entry.
type Kind string

const (
	// KindTechniqueRecommendation suggests a technique worth extra budget.
	KindTechniqueRecommendation Kind = "technique_recommendation"

	// KindAnomalyNote records unexpected target behavior.
	KindAnomalyNote Kind = "anomaly_note"

	// KindCounterfactual records a malicious-vs-benign comparison verdict.
	KindCounterfactual Kind = "counterfactual_observation"
)

// Entry is one contributed finding.
type Entry struct {
	// ID uniquely identifies the entry.
	ID string `json:"id"`

	// AgentID names the contributing role instance.
	AgentID string `json:"agent_id"`

	// Round is the round index the finding was made in.
	Round int `json:"round"`

	// Kind categorizes the insight.
	Kind Kind `json:"kind"`

	// Insight is the finding itself.
	Insight string `json:"insight"`

	// Context carries structured detail, such as the payload and
	// technique IDs the finding refers to.
	Context map[string]string `json:"context,omitempty"`

	// CreatedAt is the append timestamp in UTC.
	CreatedAt time.Time `json:"created_at"`
}

// NewEntry builds an entry with a fresh ID and timestamp.
func NewEntry(agentID string, round int, kind Kind, insight string) Entry {
	return Entry{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		Round:     round,
		Kind:      kind,
		Insight:   insight,
		CreatedAt: time.Now().UTC(),
	}
}

// Base is the append-only knowledge store contract. Implementations must
// serialize concurrent appends and preserve insertion order.
type Base interface {
	// Append adds an entry to the end of the store.
	Append(ctx context.Context, entry Entry) error

	// Entries returns all entries in insertion order.
	Entries(ctx context.Context) ([]Entry, error)

	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)
}
