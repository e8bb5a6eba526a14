// Package scoring ranks catalog techniques by relevance to a target profile.
//
// Scoring is pure and deterministic: for a fixed target, catalog, and
// weighting table the ranked list is always identical, with ties broken by
// ascending technique ID. A malformed target profile fails the whole
// operation before any attempt is issued, because a partially scored
// catalog would silently bias technique selection.
package scoring

import (
	"sort"
	"strings"

	redcell "github.com/zero-day-ai/redcell"
	"github.com/zero-day-ai/redcell/types"
)

// Weights is the feature weighting table for relevance scoring.
// Each feature produces a value in [0, 1] which is multiplied by its weight.
type Weights struct {
	// Platform weights the platform-match indicator.
	Platform float64

	// Capability weights the capability-overlap fraction.
	Capability float64

	// Domain weights the domain-tag overlap indicator.
	Domain float64

	// Affinity weights the tactic-to-agent-type affinity.
	Affinity float64

	// Source weights the bonus for AI/agent-specific techniques when the
	// target is itself an autonomous agent.
	Source float64
}

// DefaultWeights returns the standard weighting table. Affinity and
// capability overlap dominate: what the target can do, and what attackers
// typically do to that kind of agent, matter more than where it runs.
func DefaultWeights() Weights {
	return Weights{
		Platform:   1.5,
		Capability: 2.0,
		Domain:     1.5,
		Affinity:   2.5,
		Source:     2.0,
	}
}

// tacticCapabilities maps tactic labels to the target capabilities they
// exercise. Capability overlap measures how much of the technique's
// required surface the target actually exposes.
var tacticCapabilities = map[string][]string{
	types.TacticExecution:           {"shell_exec", "code_exec", "tool_call"},
	types.TacticExfiltration:        {"http_fetch", "network", "email_send"},
	types.TacticPersistence:         {"file_write", "cron", "config_write"},
	types.TacticCredentialAccess:    {"env_read", "secrets_read", "file_read"},
	types.TacticPrivilegeEscalation: {"shell_exec", "sudo", "config_write"},
	types.TacticDefenseEvasion:      {"shell_exec", "file_write"},
	types.TacticDiscovery:           {"file_read", "network", "process_list"},
	types.TacticCollection:          {"file_read", "screen_capture", "clipboard"},
	types.TacticImpact:              {"file_write", "shell_exec"},
}

// tacticAffinity maps agent types to per-tactic affinity in [0, 1].
// Autonomous agents are most exposed to tactics that abuse their freedom
// to act; assistants mostly leak rather than act.
var tacticAffinity = map[types.AgentType]map[string]float64{
	types.AgentTypeAutonomous: {
		types.TacticExecution:           1.0,
		types.TacticPersistence:         0.9,
		types.TacticPrivilegeEscalation: 0.9,
		types.TacticDefenseEvasion:      0.8,
		types.TacticExfiltration:        0.8,
		types.TacticCredentialAccess:    0.7,
		types.TacticImpact:              0.7,
		types.TacticDiscovery:           0.5,
		types.TacticCollection:          0.5,
	},
	types.AgentTypeAssistant: {
		types.TacticCredentialAccess: 0.8,
		types.TacticExfiltration:     0.8,
		types.TacticCollection:       0.7,
		types.TacticDiscovery:        0.6,
		types.TacticExecution:        0.4,
		types.TacticDefenseEvasion:   0.4,
	},
	types.AgentTypeCopilot: {
		types.TacticExecution:        0.8,
		types.TacticPersistence:      0.6,
		types.TacticExfiltration:     0.6,
		types.TacticCredentialAccess: 0.6,
		types.TacticDiscovery:        0.4,
	},
}

// Scorer ranks techniques against a target profile.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// NewDefaultScorer creates a scorer with DefaultWeights.
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultWeights())
}

// Score ranks every catalog technique against the target and returns the
// full list ordered by descending score, ties broken by ascending
// technique ID. Rank fields are 1-based.
//
// Returns a fatal scoring error if the target profile is missing required
// fields.
func (s *Scorer) Score(target *types.TargetProfile, techniques []types.TechniqueProfile) ([]types.ScoredTechnique, error) {
	if target == nil {
		return nil, redcell.NewScoringError("Scorer.Score", &types.ValidationError{Field: "Target", Message: "target profile is required"})
	}
	if err := target.Validate(); err != nil {
		return nil, redcell.NewScoringError("Scorer.Score", err)
	}

	scored := make([]types.ScoredTechnique, 0, len(techniques))
	for i := range techniques {
		tech := techniques[i]
		scored = append(scored, types.ScoredTechnique{
			Technique: tech,
			Score:     s.score(target, &tech),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Technique.ID < scored[j].Technique.ID
	})

	for i := range scored {
		scored[i].Rank = i + 1
	}

	return scored, nil
}

// TopK returns the first k entries of a ranked list, or the whole list if
// it holds fewer than k entries.
func TopK(ranked []types.ScoredTechnique, k int) []types.ScoredTechnique {
	if k <= 0 || k >= len(ranked) {
		return ranked
	}
	return ranked[:k]
}

func (s *Scorer) score(target *types.TargetProfile, tech *types.TechniqueProfile) float64 {
	score := s.weights.Platform * platformMatch(target, tech)
	score += s.weights.Capability * capabilityOverlap(target, tech)
	score += s.weights.Domain * domainOverlap(target, tech)
	score += s.weights.Affinity * affinity(target.AgentType, tech)

	if tech.Source == types.SourceAgentSpecific && target.AgentType == types.AgentTypeAutonomous {
		score += s.weights.Source
	}

	return score
}

// platformMatch returns 1 if any target platform is mentioned in the
// technique's name or description, 0 otherwise.
func platformMatch(target *types.TargetProfile, tech *types.TechniqueProfile) float64 {
	text := strings.ToLower(tech.Name + " " + tech.Description)
	for _, platform := range target.Platforms {
		if platform != "" && strings.Contains(text, strings.ToLower(platform)) {
			return 1
		}
	}
	return 0
}

// capabilityOverlap returns the fraction of the technique's implicated
// capabilities that the target declares.
func capabilityOverlap(target *types.TargetProfile, tech *types.TechniqueProfile) float64 {
	seen := make(map[string]bool)
	var required, matched int
	for _, tactic := range tech.Tactics {
		for _, cap := range tacticCapabilities[tactic] {
			if seen[cap] {
				continue
			}
			seen[cap] = true
			required++
			if target.HasCapability(cap) {
				matched++
			}
		}
	}
	if required == 0 {
		return 0
	}
	return float64(matched) / float64(required)
}

// domainOverlap returns 1 if any target domain tag is mentioned in the
// technique's description, 0 otherwise.
func domainOverlap(target *types.TargetProfile, tech *types.TechniqueProfile) float64 {
	text := strings.ToLower(tech.Name + " " + tech.Description)
	for _, domain := range target.Domains {
		if domain != "" && strings.Contains(text, strings.ToLower(domain)) {
			return 1
		}
	}
	return 0
}

// affinity returns the maximum tactic affinity for the target's agent type
// across the technique's tactics.
func affinity(agentType types.AgentType, tech *types.TechniqueProfile) float64 {
	table := tacticAffinity[agentType]
	if table == nil {
		return 0
	}
	var max float64
	for _, tactic := range tech.Tactics {
		if v := table[tactic]; v > max {
			max = v
		}
	}
	return max
}
