package types

// RiskLevel is a coarse assessment of how much damage a compromised
// target could cause.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// String returns the string representation of the risk level.
func (r RiskLevel) String() string {
	return string(r)
}

// IsValid returns true if the risk level is a recognized value.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	default:
		return false
	}
}

// AgentType categorizes the kind of system under evaluation.
type AgentType string

const (
	// AgentTypeAutonomous represents an autonomous agent that plans and
	// executes actions without per-step human approval.
	AgentTypeAutonomous AgentType = "autonomous"

	// AgentTypeAssistant represents a conversational assistant that acts
	// only in response to direct user requests.
	AgentTypeAssistant AgentType = "assistant"

	// AgentTypeCopilot represents an embedded coding or workflow copilot.
	AgentTypeCopilot AgentType = "copilot"
)

// String returns the string representation of the agent type.
func (a AgentType) String() string {
	return string(a)
}

// IsValid returns true if the agent type is a recognized value.
func (a AgentType) IsValid() bool {
	switch a {
	case AgentTypeAutonomous, AgentTypeAssistant, AgentTypeCopilot:
		return true
	default:
		return false
	}
}

// TargetProfile describes the agent under evaluation.
//
// Built once per run from target discovery data. The relevance scorer
// fails fast on incomplete profiles since partial scoring would silently
// bias technique selection.
type TargetProfile struct {
	// Name is a human-readable name for the target.
	Name string `json:"name" yaml:"name"`

	// AgentType categorizes the target system.
	AgentType AgentType `json:"agent_type" yaml:"agent_type"`

	// Platforms lists the platforms the target operates on
	// (e.g., "linux", "kubernetes", "saas").
	Platforms []string `json:"platforms" yaml:"platforms"`

	// Capabilities are the declared capability flags of the target
	// (e.g., "shell_exec", "file_write", "http_fetch").
	Capabilities []string `json:"capabilities" yaml:"capabilities"`

	// Domains are domain tags describing the target's operating context
	// (e.g., "finance", "devops").
	Domains []string `json:"domains,omitempty" yaml:"domains,omitempty"`

	// Risk is the coarse risk level assigned to the target.
	Risk RiskLevel `json:"risk" yaml:"risk"`
}

// Validate checks that the profile carries every field the relevance
// scorer requires. An invalid profile aborts the run before any attempt
// is issued.
func (p *TargetProfile) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "Name", Message: "target name is required"}
	}

	if p.AgentType == "" {
		return &ValidationError{Field: "AgentType", Message: "agent type is required"}
	}

	if len(p.Platforms) == 0 {
		return &ValidationError{Field: "Platforms", Message: "at least one platform is required"}
	}

	if len(p.Capabilities) == 0 {
		return &ValidationError{Field: "Capabilities", Message: "at least one capability is required"}
	}

	if !p.Risk.IsValid() {
		return &ValidationError{Field: "Risk", Message: "invalid risk level"}
	}

	return nil
}

// HasCapability returns true if the target declares the given capability.
func (p *TargetProfile) HasCapability(capability string) bool {
	for _, c := range p.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// HasPlatform returns true if the target operates on the given platform.
func (p *TargetProfile) HasPlatform(platform string) bool {
	for _, pl := range p.Platforms {
		if pl == platform {
			return true
		}
	}
	return false
}
