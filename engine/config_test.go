package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/redcell"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Rounds)
	assert.Equal(t, 10, cfg.AttemptsPerRound)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 25, cfg.TopK)
	assert.Equal(t, 0.8, cfg.MaliciousRatio)
	assert.Equal(t, 0.5, cfg.MutationMix)
	assert.Equal(t, "thompson", cfg.Policy)
	assert.Equal(t, 0.75, cfg.ConfidenceThreshold)
	assert.Equal(t, 32, cfg.ArchiveCapacity)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative rounds", func(c *Config) { c.Rounds = -1 }},
		{"ratio above one", func(c *Config) { c.MaliciousRatio = 1.5 }},
		{"negative mutation mix", func(c *Config) { c.MutationMix = -0.1 }},
		{"unknown policy", func(c *Config) { c.Policy = "epsilon-greedy" }},
		{"bad deadline", func(c *Config) { c.Deadline = "soon" }},
		{"bad grace period", func(c *Config) { c.GracePeriod = "later" }},
		{"unknown agent type", func(c *Config) { c.Target.AgentType = "sentient" }},
		{"unknown risk", func(c *Config) { c.Target.Risk = "extreme" }},
		{"confidence above one", func(c *Config) { c.ConfidenceThreshold = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var e *redcell.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, redcell.KindConfiguration, e.Kind)
		})
	}
}

func TestConfigDurationGetters(t *testing.T) {
	cfg := Config{Deadline: "90s", GracePeriod: "250ms"}
	assert.Equal(t, 90*time.Second, cfg.GetDeadline())
	assert.Equal(t, 250*time.Millisecond, cfg.GetGracePeriod())

	var empty Config
	assert.Equal(t, time.Duration(0), empty.GetDeadline())
	assert.Equal(t, 5*time.Second, empty.GetGracePeriod())
}

func TestLoadConfig(t *testing.T) {
	const doc = `
run_id: run-7
rounds: 4
attempts_per_round: 12
deadline: 5m
policy: uniform
seed: 99
target:
  name: helpdesk-bot
  agent_type: autonomous
  risk: high
  domains: [customer-support]
  platforms: [linux]
  capabilities: [shell_exec]
`
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "run-7", cfg.RunID)
	assert.Equal(t, 4, cfg.Rounds)
	assert.Equal(t, 12, cfg.AttemptsPerRound)
	assert.Equal(t, 5*time.Minute, cfg.GetDeadline())
	assert.Equal(t, "uniform", cfg.Policy)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, "helpdesk-bot", cfg.Target.Name)
	assert.Equal(t, []string{"customer-support"}, cfg.Target.Domains)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rounds: [not a number"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestStateMachine(t *testing.T) {
	assert.True(t, StateDone.IsTerminal())
	assert.True(t, StateTerminatedEarly.IsTerminal())
	assert.False(t, StateRoundActive.IsTerminal())

	for _, s := range []State{StateInit, StateProfiling, StateRoundActive,
		StateFinalizing, StateTerminatedEarly, StateDone} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, State("PAUSED").IsValid())
}
