package payload

import "github.com/zero-day-ai/redcell/types"

// Severity represents the severity level of an attack payload.
type Severity string

const (
	// SeverityCritical indicates payloads whose success implies immediate,
	// serious damage. Examples: data exfiltration, privilege escalation.
	SeverityCritical Severity = "critical"

	// SeverityHigh indicates payloads that establish attacker footholds.
	// Examples: persistence mechanisms, credential access.
	SeverityHigh Severity = "high"

	// SeverityMedium indicates payloads that weaken or probe defenses.
	// Examples: defense evasion, discovery.
	SeverityMedium Severity = "medium"

	// SeverityLow indicates payloads with limited direct impact.
	SeverityLow Severity = "low"
)

// severityWeights maps severity levels to numeric weights.
// Higher weights indicate more severe payloads.
var severityWeights = map[Severity]float64{
	SeverityCritical: 10.0,
	SeverityHigh:     7.5,
	SeverityMedium:   5.0,
	SeverityLow:      2.5,
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid returns true if the severity level is valid.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// Weight returns the numeric weight associated with the severity level.
// Returns 0.0 for invalid severity levels.
func (s Severity) Weight() float64 {
	return severityWeights[s]
}

// tacticSeverity maps tactic labels to the severity of payloads built
// from them.
var tacticSeverity = map[string]Severity{
	types.TacticExfiltration:        SeverityCritical,
	types.TacticPrivilegeEscalation: SeverityCritical,
	types.TacticPersistence:         SeverityHigh,
	types.TacticCredentialAccess:    SeverityHigh,
	types.TacticDefenseEvasion:      SeverityMedium,
	types.TacticDiscovery:           SeverityMedium,
}

// SeverityForTactics derives a payload severity from a technique's tactic
// labels, taking the most severe mapping. Tactics without a mapping
// contribute SeverityLow.
func SeverityForTactics(tactics []string) Severity {
	result := SeverityLow
	for _, tactic := range tactics {
		sev, ok := tacticSeverity[tactic]
		if !ok {
			continue
		}
		if sev.Weight() > result.Weight() {
			result = sev
		}
	}
	return result
}
