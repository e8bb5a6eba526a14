package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/redcell/types"
)

func sampleProfiles() []types.TechniqueProfile {
	return []types.TechniqueProfile{
		{
			ID:      "T1059",
			Name:    "Command and Scripting Interpreter",
			Source:  types.SourceBroadIT,
			Tactics: []string{types.TacticExecution},
		},
		{
			ID:      "AML.T0051",
			Name:    "Prompt Injection",
			Source:  types.SourceAgentSpecific,
			Tactics: []string{types.TacticDefenseEvasion, types.TacticExecution},
		},
		{
			ID:      "T1041",
			Name:    "Exfiltration Over C2 Channel",
			Source:  types.SourceBroadIT,
			Tactics: []string{types.TacticExfiltration},
		},
	}
}

func TestNew(t *testing.T) {
	c, err := New(sampleProfiles())
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	p, ok := c.Get("T1059")
	require.True(t, ok)
	assert.Equal(t, "Command and Scripting Interpreter", p.Name)

	_, ok = c.Get("T9999")
	assert.False(t, ok)
}

func TestNew_RejectsDuplicates(t *testing.T) {
	profiles := sampleProfiles()
	profiles = append(profiles, profiles[0])

	_, err := New(profiles)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNew_RejectsInvalid(t *testing.T) {
	_, err := New([]types.TechniqueProfile{{ID: "T1", Source: types.SourceBroadIT}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid technique")
}

func TestCatalog_TechniquesOrdered(t *testing.T) {
	c, err := New(sampleProfiles())
	require.NoError(t, err)

	all := c.Techniques()
	require.Len(t, all, 3)
	// Ascending ID order regardless of insertion order.
	assert.Equal(t, "AML.T0051", all[0].ID)
	assert.Equal(t, "T1041", all[1].ID)
	assert.Equal(t, "T1059", all[2].ID)
}

func TestCatalog_Filters(t *testing.T) {
	c, err := New(sampleProfiles())
	require.NoError(t, err)

	agentSpecific := c.BySource(types.SourceAgentSpecific)
	require.Len(t, agentSpecific, 1)
	assert.Equal(t, "AML.T0051", agentSpecific[0].ID)

	execution := c.ByTactic(types.TacticExecution)
	require.Len(t, execution, 2)

	assert.Empty(t, c.ByTactic(types.TacticPersistence))
}

const sampleYAML = `
version: "1"
techniques:
  - id: T1059
    name: Command and Scripting Interpreter
    source_tag: broad_it
    tactics: [execution]
    description: Abuse of command interpreters.
  - id: AML.T0051
    name: Prompt Injection
    source_tag: agent_specific
    tactics: [defense_evasion, execution]
`

func TestLoadReader(t *testing.T) {
	c, err := LoadReader(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	p, ok := c.Get("AML.T0051")
	require.True(t, ok)
	assert.Equal(t, types.SourceAgentSpecific, p.Source)
}

func TestLoadReader_Empty(t *testing.T) {
	_, err := LoadReader(strings.NewReader("version: \"1\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no techniques")
}

func TestLoadReader_BadYAML(t *testing.T) {
	_, err := LoadReader(strings.NewReader("techniques: [\n"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "techniques.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
