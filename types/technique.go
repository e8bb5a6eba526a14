package types

// SourceTag classifies where a technique originates.
type SourceTag string

const (
	// SourceBroadIT represents techniques drawn from broad IT security
	// taxonomies (e.g., enterprise attack matrices).
	SourceBroadIT SourceTag = "broad_it"

	// SourceAgentSpecific represents techniques specific to AI and
	// autonomous-agent systems (e.g., prompt injection, tool abuse).
	SourceAgentSpecific SourceTag = "agent_specific"
)

// String returns the string representation of the source tag.
func (s SourceTag) String() string {
	return string(s)
}

// IsValid returns true if the source tag is a recognized value.
func (s SourceTag) IsValid() bool {
	switch s {
	case SourceBroadIT, SourceAgentSpecific:
		return true
	default:
		return false
	}
}

// Tactic labels recognized by the engine. Techniques may carry tactics
// outside this set; these are the ones with defined severity mappings.
const (
	TacticExfiltration        = "exfiltration"
	TacticPrivilegeEscalation = "privilege_escalation"
	TacticPersistence         = "persistence"
	TacticCredentialAccess    = "credential_access"
	TacticDefenseEvasion      = "defense_evasion"
	TacticDiscovery           = "discovery"
	TacticExecution           = "execution"
	TacticCollection          = "collection"
	TacticImpact              = "impact"
)

// TechniqueProfile describes a catalogued attack technique.
//
// Profiles are immutable: they are loaded once at catalog build time and
// never mutated afterward.
type TechniqueProfile struct {
	// ID is the unique technique identifier (e.g., "T1059").
	ID string `json:"id" yaml:"id"`

	// Name is a human-readable display name.
	Name string `json:"name" yaml:"name"`

	// Source classifies the technique as broad-IT or AI/agent-specific.
	Source SourceTag `json:"source_tag" yaml:"source_tag"`

	// Tactics is the ordered set of tactic labels for this technique.
	Tactics []string `json:"tactics" yaml:"tactics"`

	// Description is free-text detail about the technique.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks if the TechniqueProfile has all required fields.
func (t *TechniqueProfile) Validate() error {
	if t.ID == "" {
		return &ValidationError{Field: "ID", Message: "technique ID is required"}
	}

	if t.Name == "" {
		return &ValidationError{Field: "Name", Message: "technique name is required"}
	}

	if !t.Source.IsValid() {
		return &ValidationError{Field: "Source", Message: "invalid source tag"}
	}

	return nil
}

// HasTactic returns true if the technique carries the specified tactic label.
func (t *TechniqueProfile) HasTactic(tactic string) bool {
	for _, label := range t.Tactics {
		if label == tactic {
			return true
		}
	}
	return false
}

// ScoredTechnique pairs a TechniqueProfile with its relevance score against
// a specific target. Created by the relevance scorer once per run; immutable.
type ScoredTechnique struct {
	// Technique is the underlying catalog profile.
	Technique TechniqueProfile `json:"technique"`

	// Score is the weighted relevance score.
	Score float64 `json:"score"`

	// Rank is the 1-based position in the ranked list.
	Rank int `json:"rank"`
}

// ValidationError represents a validation error for a profile field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
