package lower

import "github.com/fluxion-dg/fluxion/sym"

// ContractInverseMass cancels inverse-mass applications against the
// operators they compose with. On a bound template it rewrites the
// operand of every InverseMass binding:
//
//	InverseMass(Mass(f))        -> f
//	InverseMass(Stiffness(f))   -> Diff(f)
//	InverseMass(StiffnessT(f))  -> MInvST(f)
//	InverseMass(Flux(f))        -> LiftingFlux(f)
//
// Sums distribute: each term contracts independently. Products contract
// only when at most one factor is symbolic; the inverse mass pushes
// through the constant factors onto it. A product of several symbolic
// factors keeps its InverseMass wrapper untouched, since a linear
// operator does not distribute over a general product. Anything else
// stays wrapped as well.
//
// The pass assumes operators are bound (run BindOperators first).
func ContractInverseMass(n sym.Node) (sym.Node, error) {
	return sym.Transform(n, sym.TransformerFunc(contractBindings))
}

func contractBindings(n sym.Node, rec sym.RewriteFunc) (sym.Node, error) {
	b, ok := n.(*sym.Binding)
	if !ok {
		return sym.RebuildChildren(n, rec)
	}
	if _, ok := b.Op().(*sym.InverseMass); !ok {
		field, err := rec(b.Field())
		if err != nil {
			return nil, err
		}
		if sym.Equal(field, b.Field()) {
			return b, nil
		}
		return sym.NewBinding(b.Op(), field), nil
	}
	return contractOperand(b.Field(), rec)
}

// contractOperand returns the contracted equivalent of an InverseMass
// application to n. The outer recursion handles nested bindings inside
// operands the rules do not cover, so deeper InverseMass applications
// still contract.
func contractOperand(n sym.Node, outer sym.RewriteFunc) (sym.Node, error) {
	switch n := n.(type) {
	case *sym.Binding:
		switch op := n.Op().(type) {
		case *sym.Mass:
			return n.Field(), nil
		case *sym.Stiffness:
			return sym.NewBinding(sym.NewDiff(op.Axis()), n.Field()), nil
		case *sym.StiffnessT:
			return sym.NewBinding(sym.NewMInvST(op.Axis()), n.Field()), nil
		case *sym.Flux:
			return sym.NewBinding(sym.NewLiftingFlux(op.Formula()), n.Field()), nil
		}
		inner, err := outer(n)
		if err != nil {
			return nil, err
		}
		return sym.NewBinding(sym.NewInverseMass(), inner), nil

	case *sym.Sum:
		terms := make([]sym.Node, len(n.Terms()))
		for i, t := range n.Terms() {
			r, err := contractOperand(t, outer)
			if err != nil {
				return nil, err
			}
			terms[i] = r
		}
		return sym.NewSum(terms...), nil

	case *sym.Product:
		return contractProduct(n, outer)

	case *sym.CSE:
		inner, err := outer(n)
		if err != nil {
			return nil, err
		}
		return sym.NewBinding(sym.NewInverseMass(), inner), nil

	default:
		return sym.NewBinding(sym.NewInverseMass(), n), nil
	}
}

func contractProduct(p *sym.Product, outer sym.RewriteFunc) (sym.Node, error) {
	symbolic := 0
	for _, f := range p.Factors() {
		if _, ok := f.(*sym.Const); !ok {
			symbolic++
		}
	}
	if symbolic != 1 {
		return sym.NewBinding(sym.NewInverseMass(), p), nil
	}
	factors := make([]sym.Node, len(p.Factors()))
	for i, f := range p.Factors() {
		if _, ok := f.(*sym.Const); ok {
			factors[i] = f
			continue
		}
		r, err := contractOperand(f, outer)
		if err != nil {
			return nil, err
		}
		factors[i] = r
	}
	return sym.NewProduct(factors...), nil
}
