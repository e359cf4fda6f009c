// Package timestep advances states produced by compiled operator
// templates through time.
package timestep

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/fluxion-dg/fluxion/sym"
)

// RHS evaluates the right-hand side of the semi-discrete system at time
// t for state y, one field per state component. It must not modify y.
type RHS func(ctx context.Context, t float64, y []sym.FieldData) ([]sym.FieldData, error)

// Five-stage fourth-order low-storage coefficients.
var (
	rk4A = [5]float64{
		0,
		-567301805773.0 / 1357537059087.0,
		-2404267990393.0 / 2016746695238.0,
		-3550918686646.0 / 2091501179385.0,
		-1275806237668.0 / 842570457699.0,
	}
	rk4B = [5]float64{
		1432997174477.0 / 9575080441755.0,
		5161836677717.0 / 13612068292357.0,
		1720146321549.0 / 2090206949498.0,
		3134564353537.0 / 4481467310338.0,
		2277821191437.0 / 14882151754819.0,
	}
	rk4C = [5]float64{
		0,
		1432997174477.0 / 9575080441755.0,
		2526269341429.0 / 6820363962896.0,
		2006345519317.0 / 3224310063776.0,
		2802321613138.0 / 2924317926251.0,
	}
)

// RK4 is a five-stage low-storage fourth-order Runge-Kutta stepper. One
// residual state is carried between stages instead of four; the first
// stage scales it by zero, so a stepper may be reused across steps and
// across systems of different shapes. The zero value is ready to use,
// but a stepper must not be shared between concurrent step loops.
type RK4 struct {
	residual []sym.FieldData
}

// Step advances y from t to t+dt and returns the new state. y itself is
// not modified.
func (rk *RK4) Step(ctx context.Context, t, dt float64, y []sym.FieldData, rhs RHS) ([]sym.FieldData, error) {
	out := make([]sym.FieldData, len(y))
	for i, f := range y {
		out[i] = append(sym.FieldData(nil), f...)
	}
	rk.reshape(y)

	for s := 0; s < 5; s++ {
		k, err := rhs(ctx, t+rk4C[s]*dt, out)
		if err != nil {
			return nil, fmt.Errorf("rk4 stage %d: %w", s, err)
		}
		if err := checkShape(y, k); err != nil {
			return nil, fmt.Errorf("rk4 stage %d: %w", s, err)
		}
		for i := range out {
			floats.Scale(rk4A[s], rk.residual[i])
			floats.AddScaled(rk.residual[i], dt, k[i])
			floats.AddScaled(out[i], rk4B[s], rk.residual[i])
		}
	}
	return out, nil
}

// reshape makes the residual match y's shape. Contents are irrelevant:
// the first stage multiplies them by zero.
func (rk *RK4) reshape(y []sym.FieldData) {
	if len(rk.residual) != len(y) {
		rk.residual = make([]sym.FieldData, len(y))
	}
	for i, f := range y {
		if len(rk.residual[i]) != len(f) {
			rk.residual[i] = make(sym.FieldData, len(f))
		}
	}
}

func checkShape(y, k []sym.FieldData) error {
	if len(k) != len(y) {
		return fmt.Errorf("right-hand side returned %d fields for a %d-field state", len(k), len(y))
	}
	for i := range k {
		if len(k[i]) != len(y[i]) {
			return fmt.Errorf("right-hand side field %d has %d nodes, state has %d", i, len(k[i]), len(y[i]))
		}
	}
	return nil
}
