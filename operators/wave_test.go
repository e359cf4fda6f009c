package operators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-dg/fluxion/flux"
	"github.com/fluxion-dg/fluxion/lower"
	"github.com/fluxion-dg/fluxion/sym"
)

type tagCounts map[sym.Tag]int

func (g tagCounts) BoundaryNodeCount(tag sym.Tag) int { return g[tag] }

func TestStrongWaveTemplateShape(t *testing.T) {
	sw := StrongWave{
		Dim:          2,
		Speed:        1,
		FluxType:     FluxUpwind,
		DirichletTag: "wall",
		SourceName:   "source_u",
	}
	tmpl, err := sw.Template()
	require.NoError(t, err)
	require.Equal(t, 3, tmpl.Len(), "one u row and Dim v rows")

	row0, ok := tmpl.Comp(0).(*sym.Sum)
	require.True(t, ok)
	require.Len(t, row0.Terms(), 3, "local term, inverse mass term, source")
	assert.True(t, sym.Equal(sym.NewVar("source_u"), row0.Terms()[2]),
		"the source joins the u equation")

	row1, ok := tmpl.Comp(1).(*sym.Sum)
	require.True(t, ok)
	assert.Len(t, row1.Terms(), 2, "v rows carry no source")

	bound, err := lower.BindOperators(tmpl)
	require.NoError(t, err)
	bindings, err := sym.CollectFluxBindings(bound)
	require.NoError(t, err)
	assert.Len(t, bindings, 6, "per row: one interior flux and one Dirichlet flux")
}

func TestStrongWaveLowersToInteriorData(t *testing.T) {
	sw := StrongWave{
		Dim:          1,
		Speed:        1,
		FluxType:     FluxUpwind,
		DirichletTag: "left",
		NeumannTag:   "right",
	}
	tmpl, err := sw.Template()
	require.NoError(t, err)

	p := lower.Pipeline{Geometry: tagCounts{"left": 1, "right": 1}}
	lowered, err := p.Run(context.Background(), tmpl)
	require.NoError(t, err)

	bindings, err := sym.CollectFluxBindings(lowered)
	require.NoError(t, err)
	require.Len(t, bindings, 6, "two rows, each with interior, Dirichlet and Neumann fluxes")

	pairs := 0
	for _, b := range bindings {
		pair, ok := b.Field().(*sym.BoundaryPair)
		if !ok {
			continue
		}
		pairs++
		formula := b.Op().(sym.FluxOp).Formula()
		assert.Empty(t, flux.ExteriorComponents(formula),
			"boundary flux over %s still reads exterior data: %s", pair.Tag(), flux.Format(formula))
		bdry, ok := pair.BField().(*sym.Vector)
		require.True(t, ok)
		assert.Zero(t, bdry.Len(),
			"boundary flux over %s still carries boundary inputs", pair.Tag())
	}
	assert.Equal(t, 4, pairs)
}

func TestStrongWaveRadiationBoundary(t *testing.T) {
	sw := StrongWave{
		Dim:          2,
		Speed:        -1,
		FluxType:     FluxCentral,
		RadiationTag: "open",
	}
	tmpl, err := sw.Template()
	require.NoError(t, err)

	p := lower.Pipeline{Geometry: tagCounts{"open": 3}}
	lowered, err := p.Run(context.Background(), tmpl)
	require.NoError(t, err)

	bindings, err := sym.CollectFluxBindings(lowered)
	require.NoError(t, err)
	for _, b := range bindings {
		if _, ok := b.Field().(*sym.BoundaryPair); !ok {
			continue
		}
		formula := b.Op().(sym.FluxOp).Formula()
		assert.Empty(t, flux.ExteriorComponents(formula),
			"the characteristic radiation condition is built from traces and normals only")
	}
}

func TestStrongWaveFluxFormulas(t *testing.T) {
	upwind := StrongWave{Dim: 1, Speed: 2, FluxType: FluxUpwind}.fluxFormulas()
	central := StrongWave{Dim: 1, Speed: 2, FluxType: FluxCentral}.fluxFormulas()

	require.Len(t, upwind, 2)
	require.Len(t, central, 2)

	assert.Equal(t, []int{0, 1}, flux.ExteriorComponents(upwind[0]),
		"upwinding penalizes the u jump next to the v average")
	assert.Equal(t, []int{1}, flux.ExteriorComponents(central[0]),
		"the central u row sees only the v average")
	assert.Equal(t, []int{0, 1}, flux.ExteriorComponents(upwind[1]))
	assert.Equal(t, []int{0}, flux.ExteriorComponents(central[1]))
}

func TestStrongWaveMaxEigenvalue(t *testing.T) {
	assert.Equal(t, 2.0, StrongWave{Speed: -2}.MaxEigenvalue())
	assert.Equal(t, 0.5, StrongWave{Speed: 0.5}.MaxEigenvalue())
}

func TestStrongWaveErrors(t *testing.T) {
	tests := []struct {
		name    string
		sw      StrongWave
		wantErr string
	}{
		{
			name:    "no dimensions",
			sw:      StrongWave{Dim: 0, Speed: 1, FluxType: FluxUpwind},
			wantErr: "at least one dimension",
		},
		{
			name:    "unknown flux type",
			sw:      StrongWave{Dim: 1, Speed: 1, FluxType: "weak"},
			wantErr: "invalid flux type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sw.Template()
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
