package serial

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/fluxion-dg/fluxion/flux"
	"github.com/fluxion-dg/fluxion/sym"
)

// ErrFluxExchange is returned when a template containing a flux exchange
// is evaluated on a serial discretization.
var ErrFluxExchange = errors.New("serial discretization cannot exchange flux data across ranks")

// DiffBase applies a differentiation-family operator with the chain rule
// for the uniform mesh.
func (d *Discretization) DiffBase(ctx context.Context, op sym.DiffOp, operand sym.Value) (sym.Value, error) {
	if op.Axis() != 0 {
		return nil, sym.NewBadOperandError("axis %d out of range for a 1-dimensional mesh", op.Axis())
	}
	var (
		a *mat.Dense
		c float64
	)
	switch op.(type) {
	case *sym.Diff:
		a, c = d.el.Dr, d.rx
	case *sym.Stiffness:
		a, c = d.el.Stiff, d.jac * d.rx
	case *sym.StiffnessT:
		a, c = d.el.StiffT, d.jac * d.rx
	case *sym.MInvST:
		a, c = d.el.MInvST, d.rx
	default:
		return nil, sym.NewBadOperandError("unknown differentiation operator %s", sym.FormatOp(op))
	}
	return d.mapVolume(operand, func(f sym.FieldData) (sym.Value, error) {
		return d.applyElementwise(a, c, f), nil
	})
}

// MassBase applies the mass or inverse mass matrix, scaled by the element
// Jacobian.
func (d *Discretization) MassBase(ctx context.Context, op sym.Operator, operand sym.Value) (sym.Value, error) {
	var (
		a *mat.Dense
		c float64
	)
	switch op.(type) {
	case *sym.Mass:
		a, c = d.el.M, d.jac
	case *sym.InverseMass:
		a, c = d.el.InvM, d.rx
	default:
		return nil, sym.NewBadOperandError("operator %s is not a mass operator", sym.FormatOp(op))
	}
	return d.mapVolume(operand, func(f sym.FieldData) (sym.Value, error) {
		return d.applyElementwise(a, c, f), nil
	})
}

// ElementwiseMax replaces each element's nodal values by the maximum over
// that element.
func (d *Discretization) ElementwiseMax(ctx context.Context, operand sym.Value) (sym.Value, error) {
	return d.mapVolume(operand, func(f sym.FieldData) (sym.Value, error) {
		np := d.el.Np
		out := make(sym.FieldData, len(f))
		for k := 0; k < d.k; k++ {
			m := floats.Max(f[k*np : (k+1)*np])
			for i := k * np; i < (k+1)*np; i++ {
				out[i] = m
			}
		}
		return out, nil
	})
}

// Boundarize restricts a volume value to the tagged boundary, in the tag's
// face order.
func (d *Discretization) Boundarize(ctx context.Context, op *sym.Boundarize, operand sym.Value) (sym.Value, error) {
	faces := d.boundaryFaces(op.Tag())
	var gather func(v sym.Value) (sym.Value, error)
	gather = func(v sym.Value) (sym.Value, error) {
		switch v := v.(type) {
		case sym.Scalar:
			out := make(sym.FieldData, len(faces))
			for p := range out {
				out[p] = float64(v)
			}
			return out, nil
		case sym.FieldData:
			if err := d.checkVolume(v); err != nil {
				return nil, err
			}
			out := make(sym.FieldData, len(faces))
			for p, fc := range faces {
				out[p] = v[fc.vol]
			}
			return out, nil
		case sym.TupleValue:
			out := make(sym.TupleValue, len(v))
			for i, c := range v {
				r, err := gather(c)
				if err != nil {
					return nil, err
				}
				out[i] = r
			}
			return out, nil
		}
		return nil, sym.NewBadOperandError("cannot restrict a boundary pair to a boundary")
	}
	return gather(operand)
}

// FluxExchange always fails: the serial discretization has no neighboring
// ranks.
func (d *Discretization) FluxExchange(ctx context.Context, op *sym.FluxExchange, operand sym.Value) (sym.Value, error) {
	return nil, fmt.Errorf("exchange of component %d with rank %d: %w", op.Index(), op.Rank(), ErrFluxExchange)
}

// BoundaryNormal returns the outward normal component over the tagged
// boundary.
func (d *Discretization) BoundaryNormal(ctx context.Context, tag sym.Tag, axis int) (sym.Value, error) {
	if axis != 0 {
		return nil, sym.NewBadOperandError("axis %d out of range for a 1-dimensional mesh", axis)
	}
	faces := d.boundaryFaces(tag)
	out := make(sym.FieldData, len(faces))
	for p, fc := range faces {
		out[p] = fc.normal
	}
	return out, nil
}

// FluxBase evaluates the operator's flux formula pointwise on faces and
// scatters the results back to the face nodes. A volume operand covers
// both orientations of every interior face; a pair operand covers the
// pair's tagged boundary faces. Lifting operators additionally apply the
// physical inverse mass matrix.
func (d *Discretization) FluxBase(ctx context.Context, op sym.FluxOp, operand sym.Value) (sym.Value, error) {
	formula := op.Formula()
	out := make(sym.FieldData, len(d.x))
	switch v := operand.(type) {
	case sym.PairValue:
		in, err := newTrace(v.Interior)
		if err != nil {
			return nil, err
		}
		ex, err := newTrace(v.Exterior)
		if err != nil {
			return nil, err
		}
		for p, fc := range d.boundaryFaces(v.Tag) {
			val, err := d.evalFormula(formula, in, fc.vol, ex, p, fc.normal, fc.h)
			if err != nil {
				return nil, err
			}
			out[fc.vol] += val
		}
	default:
		in, err := newTrace(operand)
		if err != nil {
			return nil, err
		}
		np := d.el.Np
		for k := 0; k+1 < d.k; k++ {
			l := k*np + np - 1
			r := (k + 1) * np
			lv, err := d.evalFormula(formula, in, l, in, r, 1, d.h)
			if err != nil {
				return nil, err
			}
			rv, err := d.evalFormula(formula, in, r, in, l, -1, d.h)
			if err != nil {
				return nil, err
			}
			out[l] += lv
			out[r] += rv
		}
	}
	if op.Lifting() {
		return d.applyElementwise(d.el.InvM, d.rx, out), nil
	}
	return out, nil
}

// applyElementwise applies the reference matrix a to each element block of
// f and scales the result by c.
func (d *Discretization) applyElementwise(a *mat.Dense, c float64, f sym.FieldData) sym.FieldData {
	np := d.el.Np
	out := make(sym.FieldData, len(f))
	for k := 0; k < d.k; k++ {
		src := mat.NewVecDense(np, f[k*np:(k+1)*np])
		dst := mat.NewVecDense(np, out[k*np:(k+1)*np])
		dst.MulVec(a, src)
	}
	if c != 1 {
		floats.Scale(c, out)
	}
	return out
}

// mapVolume applies f to each volume field of the operand, broadcasting
// scalars to constant fields and descending into tuples.
func (d *Discretization) mapVolume(operand sym.Value, f func(sym.FieldData) (sym.Value, error)) (sym.Value, error) {
	switch v := operand.(type) {
	case sym.Scalar:
		return f(d.VolumeField(float64(v)))
	case sym.FieldData:
		if err := d.checkVolume(v); err != nil {
			return nil, err
		}
		return f(v)
	case sym.TupleValue:
		out := make(sym.TupleValue, len(v))
		for i, c := range v {
			r, err := d.mapVolume(c, f)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return nil, sym.NewBadOperandError("operator applied to a boundary pair; bind it to a field")
}

// trace adapts one side of a flux operand to per-component point access.
// Scalar components broadcast to every face point.
type trace struct {
	comps []sym.Value
}

func newTrace(v sym.Value) (trace, error) {
	switch v := v.(type) {
	case sym.TupleValue:
		return trace{comps: v}, nil
	case sym.FieldData, sym.Scalar:
		return trace{comps: []sym.Value{v}}, nil
	}
	return trace{}, sym.NewBadOperandError("flux operand side must be a field, a scalar, or a tuple of fields")
}

func (tr trace) at(comp, idx int) (float64, error) {
	if comp < 0 || comp >= len(tr.comps) {
		return 0, sym.NewBadOperandError("flux formula references component %d of a %d-component operand", comp, len(tr.comps))
	}
	switch c := tr.comps[comp].(type) {
	case sym.Scalar:
		return float64(c), nil
	case sym.FieldData:
		if idx < 0 || idx >= len(c) {
			return 0, sym.NewBadOperandError("face point %d out of range for a %d-node field", idx, len(c))
		}
		return c[idx], nil
	}
	return 0, sym.NewBadOperandError("flux component %d is not pointwise data", comp)
}

// evalFormula evaluates a flux formula at one face point. Interior
// components read the in trace at inIdx, exterior components the ex trace
// at exIdx.
func (d *Discretization) evalFormula(f flux.Node, in trace, inIdx int, ex trace, exIdx int, normal, h float64) (float64, error) {
	switch f := f.(type) {
	case *flux.Const:
		return f.Value(), nil
	case *flux.Normal:
		if f.Axis() != 0 {
			return 0, sym.NewBadOperandError("normal axis %d out of range for a 1-dimensional mesh", f.Axis())
		}
		return normal, nil
	case *flux.FieldComponent:
		if f.IsInterior() {
			return in.at(f.Index(), inIdx)
		}
		return ex.at(f.Index(), exIdx)
	case *flux.PenaltyTerm:
		order := float64(d.el.Order)
		return math.Pow(order*order/h, f.Power()), nil
	case *flux.IfPositive:
		crit, err := d.evalFormula(f.Criterion(), in, inIdx, ex, exIdx, normal, h)
		if err != nil {
			return 0, err
		}
		if crit > 0 {
			return d.evalFormula(f.Then(), in, inIdx, ex, exIdx, normal, h)
		}
		return d.evalFormula(f.Else(), in, inIdx, ex, exIdx, normal, h)
	case *flux.Sum:
		total := 0.0
		for _, t := range f.Terms() {
			v, err := d.evalFormula(t, in, inIdx, ex, exIdx, normal, h)
			if err != nil {
				return 0, err
			}
			total += v
		}
		return total, nil
	case *flux.Product:
		total := 1.0
		for _, t := range f.Factors() {
			v, err := d.evalFormula(t, in, inIdx, ex, exIdx, normal, h)
			if err != nil {
				return 0, err
			}
			total *= v
		}
		return total, nil
	}
	return 0, sym.NewBadOperandError("unhandled flux node %T", f)
}
