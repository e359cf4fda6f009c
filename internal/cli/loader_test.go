package cli

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-dg/fluxion/internal/simspec"
	"github.com/fluxion-dg/fluxion/sym"
)

func writeConfig(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadRunDefaults(t *testing.T) {
	run, err := loadRun(nil)
	require.NoError(t, err)
	assert.Equal(t, "wave", run.Name)
	assert.Equal(t, 16, run.Elements)
	assert.Equal(t, "dirichlet", run.BC)
}

func TestLoadRunFromFile(t *testing.T) {
	path := writeConfig(t, `
		elements: 8
		bc:       "radiation"
	`)

	run, err := loadRun([]string{path})
	require.NoError(t, err)
	assert.Equal(t, 8, run.Elements)
	assert.Equal(t, "radiation", run.BC)
}

func TestLoadRunMissingFile(t *testing.T) {
	_, err := loadRun([]string{filepath.Join(t.TempDir(), "missing.cue")})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestWaveFromRunBoundaryMapping(t *testing.T) {
	cases := []struct {
		bc        string
		dirichlet sym.Tag
		neumann   sym.Tag
		radiation sym.Tag
	}{
		{"dirichlet", sym.TagAll, "", ""},
		{"neumann", "", sym.TagAll, ""},
		{"radiation", "", "", sym.TagAll},
	}
	for _, tc := range cases {
		t.Run(tc.bc, func(t *testing.T) {
			run, err := simspec.Default()
			require.NoError(t, err)
			run.BC = tc.bc

			wave := waveFromRun(run)
			assert.Equal(t, tc.dirichlet, wave.DirichletTag)
			assert.Equal(t, tc.neumann, wave.NeumannTag)
			assert.Equal(t, tc.radiation, wave.RadiationTag)
			assert.Equal(t, 1, wave.Dim)
		})
	}
}

func TestWaveFromRunSource(t *testing.T) {
	run, err := simspec.Default()
	require.NoError(t, err)

	wave := waveFromRun(run)
	assert.Equal(t, sourceName, wave.SourceName, "the default configuration drives a source")

	run.Source.Amplitude = 0
	wave = waveFromRun(run)
	assert.Empty(t, wave.SourceName)
}

func TestSetupProblemDefaults(t *testing.T) {
	p, err := setupProblem(nil)
	require.NoError(t, err)

	assert.Equal(t, 16*5, p.discr.NumNodes())
	require.NotNil(t, p.template)
	assert.Equal(t, 2, p.template.Len())

	// The step plan divides finalTime evenly and respects the stability
	// estimate scaled by dtScale.
	assert.InDelta(t, p.run.FinalTime, float64(p.steps)*p.dt, 1e-12)
	limit := p.run.DtScale * p.discr.DtScale(p.wave.MaxEigenvalue())
	assert.LessOrEqual(t, p.dt, limit*(1+1e-12))

	wantSteps := int(math.Ceil(p.run.FinalTime / limit))
	assert.Equal(t, wantSteps, p.steps)
}

func TestSetupProblemShortRun(t *testing.T) {
	path := writeConfig(t, `
		elements:  4
		order:     2
		finalTime: 0.05
	`)

	p, err := setupProblem([]string{path})
	require.NoError(t, err)
	assert.Equal(t, 12, p.discr.NumNodes())
	assert.InDelta(t, 0.05, float64(p.steps)*p.dt, 1e-12)
	assert.GreaterOrEqual(t, p.steps, 1)
}

func TestSetupProblemBadConfig(t *testing.T) {
	path := writeConfig(t, `elements: 0`)

	_, err := setupProblem([]string{path})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
