package serial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewElementNodes(t *testing.T) {
	cases := []struct {
		order int
		want  []float64
	}{
		{order: 1, want: []float64{-1, 1}},
		{order: 2, want: []float64{-1, 0, 1}},
		{order: 3, want: []float64{-1, -math.Sqrt(1.0 / 5), math.Sqrt(1.0 / 5), 1}},
		{order: 4, want: []float64{-1, -math.Sqrt(3.0 / 7), 0, math.Sqrt(3.0 / 7), 1}},
	}
	for _, tc := range cases {
		el, err := NewElement(tc.order)
		require.NoError(t, err)
		require.Len(t, el.R, tc.order+1, "order %d", tc.order)
		require.Equal(t, tc.order+1, el.Np)
		for i, want := range tc.want {
			assert.InDelta(t, want, el.R[i], 1e-12, "order %d node %d", tc.order, i)
		}
	}
}

func TestElementDrExactness(t *testing.T) {
	el, err := NewElement(4)
	require.NoError(t, err)

	for p := 0; p <= el.Order; p++ {
		f := make([]float64, el.Np)
		want := make([]float64, el.Np)
		for i, r := range el.R {
			f[i] = math.Pow(r, float64(p))
			if p > 0 {
				want[i] = float64(p) * math.Pow(r, float64(p-1))
			}
		}
		got := mat.NewVecDense(el.Np, nil)
		got.MulVec(el.Dr, mat.NewVecDense(el.Np, f))
		for i := range want {
			assert.InDelta(t, want[i], got.AtVec(i), 1e-10, "degree %d node %d", p, i)
		}
	}
}

func TestElementMassMatrix(t *testing.T) {
	el, err := NewElement(3)
	require.NoError(t, err)

	// Row sums of the exact mass matrix are the integrals of the Lagrange
	// basis, which for order 3 are the Lobatto weights.
	wantRow := []float64{1.0 / 6, 5.0 / 6, 5.0 / 6, 1.0 / 6}
	for i := 0; i < el.Np; i++ {
		sum := 0.0
		for j := 0; j < el.Np; j++ {
			sum += el.M.At(i, j)
			assert.InDelta(t, el.M.At(i, j), el.M.At(j, i), 1e-12, "symmetry %d,%d", i, j)
		}
		assert.InDelta(t, wantRow[i], sum, 1e-12, "row %d", i)
	}

	var id mat.Dense
	id.Mul(el.InvM, el.M)
	for i := 0; i < el.Np; i++ {
		for j := 0; j < el.Np; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, id.At(i, j), 1e-10, "identity %d,%d", i, j)
		}
	}
}

func TestElementSummationByParts(t *testing.T) {
	el, err := NewElement(4)
	require.NoError(t, err)

	// Stiff + StiffT integrates (φᵢφⱼ)' exactly, so the sum collapses to
	// the boundary matrix diag(-1, 0, ..., 0, 1).
	var sbp mat.Dense
	sbp.Add(el.Stiff, el.StiffT)
	for i := 0; i < el.Np; i++ {
		for j := 0; j < el.Np; j++ {
			want := 0.0
			if i == 0 && j == 0 {
				want = -1
			}
			if i == el.Np-1 && j == el.Np-1 {
				want = 1
			}
			assert.InDelta(t, want, sbp.At(i, j), 1e-10, "%d,%d", i, j)
		}
	}
}

func TestElementLift(t *testing.T) {
	el, err := NewElement(3)
	require.NoError(t, err)

	rows, cols := el.Lift.Dims()
	require.Equal(t, el.Np, rows)
	require.Equal(t, 2, cols)
	assert.Equal(t, [2]int{0, el.Np - 1}, el.FaceNodes())
	for i := 0; i < el.Np; i++ {
		assert.Equal(t, el.InvM.At(i, 0), el.Lift.At(i, 0), "left column row %d", i)
		assert.Equal(t, el.InvM.At(i, el.Np-1), el.Lift.At(i, 1), "right column row %d", i)
	}
}

func TestNewElementErrors(t *testing.T) {
	_, err := NewElement(0)
	require.ErrorContains(t, err, "order must be at least 1")
}
