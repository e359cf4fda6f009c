package sym

import (
	"context"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Value is a concrete quantity produced by evaluating a template. The
// interface is sealed: only types in this package implement it.
type Value interface {
	symValue()
}

// Scalar is a single number.
type Scalar float64

func (Scalar) symValue() {}

// FieldData holds the nodal values of one scalar field, over the volume or
// over a boundary region.
type FieldData []float64

func (FieldData) symValue() {}

// TupleValue is the value of a Vector: one value per component.
type TupleValue []Value

func (TupleValue) symValue() {}

// PairValue is the value of a BoundaryPair: both sides evaluated but kept
// separate, for a flux action to consume.
type PairValue struct {
	Interior Value
	Exterior Value
	Tag      Tag
}

func (PairValue) symValue() {}

// Environment binds variable and scalar parameter names to values.
type Environment map[string]Value

// OperatorActions supplies the numeric action of each operator family.
// Implementations hold the discretization-specific matrices and geometry;
// the evaluator holds none.
type OperatorActions interface {
	// DiffBase applies a differentiation-family operator.
	DiffBase(ctx context.Context, op DiffOp, operand Value) (Value, error)

	// MassBase applies Mass or InverseMass.
	MassBase(ctx context.Context, op Operator, operand Value) (Value, error)

	// FluxBase applies Flux or LiftingFlux. The operand is a volume field
	// for interior traces or a PairValue for a boundary term.
	FluxBase(ctx context.Context, op FluxOp, operand Value) (Value, error)

	// ElementwiseMax replaces each element's nodal values by the maximum
	// over that element.
	ElementwiseMax(ctx context.Context, operand Value) (Value, error)

	// Boundarize restricts a volume value to the tagged boundary.
	Boundarize(ctx context.Context, op *Boundarize, operand Value) (Value, error)

	// FluxExchange returns the field component received from the remote
	// rank.
	FluxExchange(ctx context.Context, op *FluxExchange, operand Value) (Value, error)

	// BoundaryNormal returns one component of the outward normal over the
	// tagged boundary.
	BoundaryNormal(ctx context.Context, tag Tag, axis int) (Value, error)
}

// Evaluator folds a fully lowered template against an environment,
// delegating each operator's numeric action to the backend. It performs no
// rewriting: the tree must already be bound and contracted, and a lone
// operator outside a Binding is an error.
type Evaluator struct {
	Env     Environment
	Actions OperatorActions
}

// Eval evaluates n. Each marked common subexpression is computed once per
// call; the cache does not survive across calls.
func (ev *Evaluator) Eval(ctx context.Context, n Node) (Value, error) {
	run := &evalRun{ev: ev, memo: map[Digest]Value{}}
	return run.eval(ctx, n)
}

type evalRun struct {
	ev   *Evaluator
	memo map[Digest]Value // keyed by the CSE child digest
}

func (r *evalRun) eval(ctx context.Context, n Node) (Value, error) {
	switch n := n.(type) {
	case *Var:
		v, ok := r.ev.Env[n.name]
		if !ok {
			return nil, NewUnboundVariableError(n.name)
		}
		return v, nil
	case *Subscript:
		agg, err := r.eval(ctx, n.agg)
		if err != nil {
			return nil, err
		}
		tup, ok := agg.(TupleValue)
		if !ok {
			return nil, badOperandErr("subscript applied to %s value", valueKind(agg))
		}
		if n.index < 0 || n.index >= len(tup) {
			return nil, badOperandErr("subscript index %d out of range for %d components", n.index, len(tup))
		}
		return tup[n.index], nil
	case *ScalarParam:
		v, ok := r.ev.Env[n.name]
		if !ok {
			return nil, NewUnboundVariableError(n.name)
		}
		return v, nil
	case *Const:
		return Scalar(n.value), nil
	case *NormalComponent:
		return r.ev.Actions.BoundaryNormal(ctx, n.tag, n.axis)
	case *Sum:
		if len(n.terms) == 0 {
			return Scalar(0), nil
		}
		acc, err := r.eval(ctx, n.terms[0])
		if err != nil {
			return nil, err
		}
		for _, t := range n.terms[1:] {
			v, err := r.eval(ctx, t)
			if err != nil {
				return nil, err
			}
			if acc, err = addValues(acc, v); err != nil {
				return nil, err
			}
		}
		return acc, nil
	case *Product:
		if len(n.factors) == 0 {
			return Scalar(1), nil
		}
		acc, err := r.eval(ctx, n.factors[0])
		if err != nil {
			return nil, err
		}
		for _, f := range n.factors[1:] {
			v, err := r.eval(ctx, f)
			if err != nil {
				return nil, err
			}
			if acc, err = mulValues(acc, v); err != nil {
				return nil, err
			}
		}
		return acc, nil
	case *Vector:
		tup := make(TupleValue, len(n.comps))
		for i, c := range n.comps {
			v, err := r.eval(ctx, c)
			if err != nil {
				return nil, err
			}
			tup[i] = v
		}
		return tup, nil
	case *CSE:
		key := n.child.Digest()
		if v, ok := r.memo[key]; ok {
			return v, nil
		}
		v, err := r.eval(ctx, n.child)
		if err != nil {
			return nil, err
		}
		r.memo[key] = v
		return v, nil
	case *Binding:
		return r.evalBinding(ctx, n)
	case *BoundaryPair:
		in, err := r.eval(ctx, n.field)
		if err != nil {
			return nil, err
		}
		ex, err := r.eval(ctx, n.bfield)
		if err != nil {
			return nil, err
		}
		return PairValue{Interior: in, Exterior: ex, Tag: n.tag}, nil
	case Operator:
		return nil, badOperandErr("operator %s outside a binding; bind the template first", FormatOp(n))
	}
	return nil, internalErr("eval: unhandled node %T", n)
}

func (r *evalRun) evalBinding(ctx context.Context, b *Binding) (Value, error) {
	operand, err := r.eval(ctx, b.field)
	if err != nil {
		return nil, err
	}
	switch op := b.op.(type) {
	case DiffOp:
		return r.ev.Actions.DiffBase(ctx, op, operand)
	case *Mass, *InverseMass:
		return r.ev.Actions.MassBase(ctx, op, operand)
	case *ElementwiseMax:
		return r.ev.Actions.ElementwiseMax(ctx, operand)
	case *Boundarize:
		return r.ev.Actions.Boundarize(ctx, op, operand)
	case *FluxExchange:
		return r.ev.Actions.FluxExchange(ctx, op, operand)
	case FluxOp:
		return r.ev.Actions.FluxBase(ctx, op, operand)
	}
	return nil, internalErr("eval: unhandled operator %T", b.op)
}

// addValues adds two values, broadcasting scalars over fields and tuples.
func addValues(a, b Value) (Value, error) {
	switch a := a.(type) {
	case Scalar:
		switch b := b.(type) {
		case Scalar:
			return a + b, nil
		case FieldData:
			out := slices.Clone(b)
			floats.AddConst(float64(a), out)
			return out, nil
		case TupleValue:
			return mapTuple(b, func(v Value) (Value, error) { return addValues(a, v) })
		}
	case FieldData:
		switch b := b.(type) {
		case Scalar:
			out := slices.Clone(a)
			floats.AddConst(float64(b), out)
			return out, nil
		case FieldData:
			if len(a) != len(b) {
				return nil, badOperandErr("field length mismatch: %d + %d", len(a), len(b))
			}
			out := make(FieldData, len(a))
			floats.AddTo(out, a, b)
			return out, nil
		}
	case TupleValue:
		switch b := b.(type) {
		case Scalar:
			return mapTuple(a, func(v Value) (Value, error) { return addValues(v, b) })
		case TupleValue:
			if len(a) != len(b) {
				return nil, badOperandErr("tuple length mismatch: %d + %d", len(a), len(b))
			}
			out := make(TupleValue, len(a))
			for i := range a {
				v, err := addValues(a[i], b[i])
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		}
	}
	return nil, badOperandErr("cannot add %s and %s values", valueKind(a), valueKind(b))
}

// mulValues multiplies two values, broadcasting scalars over fields and
// tuples.
func mulValues(a, b Value) (Value, error) {
	switch a := a.(type) {
	case Scalar:
		switch b := b.(type) {
		case Scalar:
			return a * b, nil
		case FieldData:
			out := slices.Clone(b)
			floats.Scale(float64(a), out)
			return out, nil
		case TupleValue:
			return mapTuple(b, func(v Value) (Value, error) { return mulValues(a, v) })
		}
	case FieldData:
		switch b := b.(type) {
		case Scalar:
			out := slices.Clone(a)
			floats.Scale(float64(b), out)
			return out, nil
		case FieldData:
			if len(a) != len(b) {
				return nil, badOperandErr("field length mismatch: %d * %d", len(a), len(b))
			}
			out := make(FieldData, len(a))
			floats.MulTo(out, a, b)
			return out, nil
		}
	case TupleValue:
		switch b := b.(type) {
		case Scalar:
			return mapTuple(a, func(v Value) (Value, error) { return mulValues(v, b) })
		case TupleValue:
			if len(a) != len(b) {
				return nil, badOperandErr("tuple length mismatch: %d * %d", len(a), len(b))
			}
			out := make(TupleValue, len(a))
			for i := range a {
				v, err := mulValues(a[i], b[i])
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		}
	}
	return nil, badOperandErr("cannot multiply %s and %s values", valueKind(a), valueKind(b))
}

func mapTuple(t TupleValue, f func(Value) (Value, error)) (Value, error) {
	out := make(TupleValue, len(t))
	for i, v := range t {
		r, err := f(v)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func valueKind(v Value) string {
	switch v.(type) {
	case Scalar:
		return "scalar"
	case FieldData:
		return "field"
	case TupleValue:
		return "tuple"
	case PairValue:
		return "boundary pair"
	}
	return "unknown"
}
