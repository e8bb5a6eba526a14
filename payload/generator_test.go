package payload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redcell "github.com/zero-day-ai/redcell"
	"github.com/zero-day-ai/redcell/types"
)

func scored(id string, tactics ...string) types.ScoredTechnique {
	return types.ScoredTechnique{
		Technique: types.TechniqueProfile{
			ID:      id,
			Name:    "Technique " + id,
			Source:  types.SourceBroadIT,
			Tactics: tactics,
		},
		Score: 1.0,
		Rank:  1,
	}
}

func TestControlStride(t *testing.T) {
	tests := []struct {
		ratio float64
		want  int
	}{
		{1.0, 0},
		{1.5, 0},
		{0.8, 5},
		{0.5, 2},
		{0.9, 10},
		{0.0, 1},
		{-0.1, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ControlStride(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestGenerator_Generate_RatioAndStride(t *testing.T) {
	g := NewGenerator()
	batch, err := g.Generate(scored("T1059", types.TacticExecution), 20, 0.8)
	require.NoError(t, err)
	require.Len(t, batch, 20)

	var benign int
	for i, p := range batch {
		if !p.Malicious {
			benign++
			// Controls sit exactly at every 5th position.
			assert.Equal(t, 4, i%5, "control at unexpected index %d", i)
			assert.Equal(t, BenignCategory, p.Category)
			assert.Equal(t, SeverityLow, p.Severity)
		} else {
			assert.Equal(t, types.TacticExecution, p.Category)
		}
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "T1059", p.TechniqueID)
	}
	assert.Equal(t, 4, benign)
}

func TestGenerator_Generate_DeterministicContent(t *testing.T) {
	first, err := NewGenerator().Generate(scored("T1059", types.TacticExecution), 10, 0.8)
	require.NoError(t, err)
	second, err := NewGenerator().Generate(scored("T1059", types.TacticExecution), 10, 0.8)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		// IDs and timestamps differ; the content sequence must not.
		assert.Equal(t, first[i].Content, second[i].Content, "index %d", i)
		assert.Equal(t, first[i].Malicious, second[i].Malicious, "index %d", i)
	}
}

func TestGenerator_Generate_GenericFallback(t *testing.T) {
	g := NewGenerator()
	// No specific template for this ID; exfiltration bank exists.
	batch, err := g.Generate(scored("T9999", types.TacticExfiltration), 3, 1.0)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for _, p := range batch {
		assert.True(t, p.Malicious)
		assert.Equal(t, SeverityCritical, p.Severity)
		assert.NotEmpty(t, p.Content)
	}
}

func TestGenerator_Generate_UnknownCategory(t *testing.T) {
	g := NewGenerator()
	_, err := g.Generate(scored("T0000", "novel_tactic"), 5, 0.8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, redcell.ErrGeneration))
	assert.False(t, redcell.Fatal(err))
}

func TestGenerator_Generate_ZeroCount(t *testing.T) {
	batch, err := NewGenerator().Generate(scored("T1059", types.TacticExecution), 0, 0.8)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestGenerator_RegisterTemplates(t *testing.T) {
	g := NewGenerator()
	g.RegisterTemplates("T0042", "custom payload for T0042")

	batch, err := g.Generate(scored("T0042", "novel_tactic"), 2, 1.0)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "custom payload for T0042", batch[0].Content)
}

func TestSeverityForTactics(t *testing.T) {
	tests := []struct {
		name    string
		tactics []string
		want    Severity
	}{
		{"exfiltration is critical", []string{types.TacticExfiltration}, SeverityCritical},
		{"privilege escalation is critical", []string{types.TacticPrivilegeEscalation}, SeverityCritical},
		{"persistence is high", []string{types.TacticPersistence}, SeverityHigh},
		{"credential access is high", []string{types.TacticCredentialAccess}, SeverityHigh},
		{"defense evasion is medium", []string{types.TacticDefenseEvasion}, SeverityMedium},
		{"discovery is medium", []string{types.TacticDiscovery}, SeverityMedium},
		{"execution is low", []string{types.TacticExecution}, SeverityLow},
		{"max wins", []string{types.TacticDiscovery, types.TacticExfiltration}, SeverityCritical},
		{"empty is low", nil, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SeverityForTactics(tt.tactics))
		})
	}
}

// flakyDrafter fails a fixed number of times before succeeding.
type flakyDrafter struct {
	failures int
	calls    int
}

func (d *flakyDrafter) Draft(_ context.Context, tech types.TechniqueProfile) (string, error) {
	d.calls++
	if d.calls <= d.failures {
		return "", errors.New("rate limited")
	}
	return "drafted payload for " + tech.ID, nil
}

func TestRetryingDrafter_RecoversFromTransientFailure(t *testing.T) {
	inner := &flakyDrafter{failures: 2}
	d := NewRetryingDrafter(inner, 3, time.Millisecond, nil)

	content, err := d.Draft(context.Background(), types.TechniqueProfile{ID: "T1059"})
	require.NoError(t, err)
	assert.Equal(t, "drafted payload for T1059", content)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingDrafter_ExhaustsRetries(t *testing.T) {
	inner := &flakyDrafter{failures: 10}
	d := NewRetryingDrafter(inner, 2, time.Millisecond, nil)

	_, err := d.Draft(context.Background(), types.TechniqueProfile{ID: "T1059"})
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingDrafter_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakyDrafter{failures: 10}
	d := NewRetryingDrafter(inner, 5, 10*time.Millisecond, nil)

	_, err := d.Draft(ctx, types.TechniqueProfile{ID: "T1059"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
