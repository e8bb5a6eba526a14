package engine

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/redcell"
	"github.com/zero-day-ai/redcell/bandit"
	"github.com/zero-day-ai/redcell/types"
)

// TargetConfig supplies the profile fields target discovery cannot report
// about itself: how autonomous the agent is, what domains it operates in,
// and how much damage a compromise could do.
type TargetConfig struct {
	// Name overrides the discovered target name.
	Name string `yaml:"name,omitempty"`

	// AgentType is "autonomous", "assistant", or "copilot".
	AgentType string `yaml:"agent_type"`

	// Domains are the operational domain tags (e.g., "finance", "devops").
	Domains []string `yaml:"domains,omitempty"`

	// Risk is the coarse risk level: "low", "medium", "high", "critical".
	Risk string `yaml:"risk"`

	// Platforms supplements the discovered platform.
	Platforms []string `yaml:"platforms,omitempty"`

	// Capabilities supplements the discovered capability flags.
	Capabilities []string `yaml:"capabilities,omitempty"`
}

// Config is the evaluation run configuration, loaded from YAML.
type Config struct {
	// RunID identifies the run. Generated when empty.
	RunID string `yaml:"run_id,omitempty"`

	// Rounds is the number of evaluation rounds to execute.
	Rounds int `yaml:"rounds,omitempty"`

	// AttemptsPerRound is the attack attempt budget per round.
	AttemptsPerRound int `yaml:"attempts_per_round,omitempty"`

	// Workers is the number of concurrent exploiting workers per round.
	Workers int `yaml:"workers,omitempty"`

	// Deadline is the wall-clock budget for the whole run as a duration
	// string (e.g., "10m"). Empty means no deadline.
	Deadline string `yaml:"deadline,omitempty"`

	// GracePeriod is how long in-flight attempts may run after
	// cancellation before being abandoned.
	GracePeriod string `yaml:"grace_period,omitempty"`

	// TopK is the size of the active technique set after scoring.
	TopK int `yaml:"top_k,omitempty"`

	// MaliciousRatio is the malicious:total payload ratio; the remainder
	// are benign controls interleaved at a fixed stride.
	MaliciousRatio float64 `yaml:"malicious_ratio,omitempty"`

	// MutationMix is the fraction of candidates drawn from the mutation
	// engine in rounds after the first.
	MutationMix float64 `yaml:"mutation_mix,omitempty"`

	// Policy selects the allocator: "thompson" or "uniform".
	Policy string `yaml:"policy,omitempty"`

	// Seed drives every pseudo-random choice so runs are reproducible.
	Seed int64 `yaml:"seed,omitempty"`

	// ConfidenceThreshold is the classification confidence below which
	// the validating role re-dispatches an attempt.
	ConfidenceThreshold float64 `yaml:"confidence_threshold,omitempty"`

	// ArchiveCapacity bounds the novelty archive.
	ArchiveCapacity int `yaml:"archive_capacity,omitempty"`

	// Target describes the target beyond what discovery reports.
	Target TargetConfig `yaml:"target"`
}

// LoadConfig reads and validates a run configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, redcell.NewConfigurationError("engine.LoadConfig", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, redcell.NewConfigurationError("engine.LoadConfig",
			fmt.Errorf("failed to parse config: %w", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and fills defaults in place.
func (c *Config) Validate() error {
	if c.Rounds == 0 {
		c.Rounds = 3
	}
	if c.AttemptsPerRound == 0 {
		c.AttemptsPerRound = 10
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.TopK == 0 {
		c.TopK = 25
	}
	if c.MaliciousRatio == 0 {
		c.MaliciousRatio = 0.8
	}
	if c.MutationMix == 0 {
		c.MutationMix = 0.5
	}
	if c.Policy == "" {
		c.Policy = string(bandit.PolicyThompson)
	}
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = 0.75
	}
	if c.ArchiveCapacity == 0 {
		c.ArchiveCapacity = 32
	}

	switch {
	case c.Rounds < 0:
		return configError("rounds must be positive")
	case c.AttemptsPerRound < 0:
		return configError("attempts_per_round must be positive")
	case c.Workers < 0:
		return configError("workers must be positive")
	case c.MaliciousRatio < 0 || c.MaliciousRatio > 1:
		return configError("malicious_ratio must be in [0, 1]")
	case c.MutationMix < 0 || c.MutationMix > 1:
		return configError("mutation_mix must be in [0, 1]")
	case c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1:
		return configError("confidence_threshold must be in [0, 1]")
	case !bandit.Policy(c.Policy).IsValid():
		return configError(fmt.Sprintf("unknown policy %q", c.Policy))
	}

	if c.Deadline != "" {
		if _, err := time.ParseDuration(c.Deadline); err != nil {
			return configError(fmt.Sprintf("invalid deadline %q", c.Deadline))
		}
	}
	if c.GracePeriod != "" {
		if _, err := time.ParseDuration(c.GracePeriod); err != nil {
			return configError(fmt.Sprintf("invalid grace_period %q", c.GracePeriod))
		}
	}

	if c.Target.AgentType != "" && !types.AgentType(c.Target.AgentType).IsValid() {
		return configError(fmt.Sprintf("unknown agent_type %q", c.Target.AgentType))
	}
	if c.Target.Risk != "" && !types.RiskLevel(c.Target.Risk).IsValid() {
		return configError(fmt.Sprintf("unknown risk %q", c.Target.Risk))
	}

	return nil
}

// GetDeadline parses the deadline string. Returns zero when unset.
func (c *Config) GetDeadline() time.Duration {
	if c == nil || c.Deadline == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Deadline)
	if err != nil {
		return 0
	}
	return d
}

// GetGracePeriod parses the grace period string and returns a duration.
// Returns the default value if not set or invalid.
func (c *Config) GetGracePeriod() time.Duration {
	if c == nil || c.GracePeriod == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.GracePeriod)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

func configError(msg string) error {
	return redcell.NewConfigurationError("Config.Validate", errors.New(msg))
}
