package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() TargetProfile {
	return TargetProfile{
		Name:         "ops-agent",
		AgentType:    AgentTypeAutonomous,
		Platforms:    []string{"linux", "kubernetes"},
		Capabilities: []string{"shell_exec", "file_write"},
		Domains:      []string{"devops"},
		Risk:         RiskHigh,
	}
}

func TestTargetProfile_Validate(t *testing.T) {
	t.Run("valid profile", func(t *testing.T) {
		p := validProfile()
		assert.NoError(t, p.Validate())
	})

	tests := []struct {
		name      string
		mutate    func(*TargetProfile)
		wantField string
	}{
		{"missing name", func(p *TargetProfile) { p.Name = "" }, "Name"},
		{"missing agent type", func(p *TargetProfile) { p.AgentType = "" }, "AgentType"},
		{"no platforms", func(p *TargetProfile) { p.Platforms = nil }, "Platforms"},
		{"no capabilities", func(p *TargetProfile) { p.Capabilities = nil }, "Capabilities"},
		{"invalid risk", func(p *TargetProfile) { p.Risk = "extreme" }, "Risk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(&p)

			err := p.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestTargetProfile_Membership(t *testing.T) {
	p := validProfile()

	assert.True(t, p.HasCapability("shell_exec"))
	assert.False(t, p.HasCapability("browser"))
	assert.True(t, p.HasPlatform("kubernetes"))
	assert.False(t, p.HasPlatform("windows"))
}

func TestRiskLevel_IsValid(t *testing.T) {
	for _, r := range []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical} {
		assert.True(t, r.IsValid(), r)
	}
	assert.False(t, RiskLevel("none").IsValid())
}
