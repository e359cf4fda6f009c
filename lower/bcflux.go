package lower

import (
	"github.com/fluxion-dg/fluxion/flux"
	"github.com/fluxion-dg/fluxion/sym"
)

// RewriteBCs rewrites every Flux binding over a boundary pair so that the
// boundary-side expression lives inside the flux formula itself. Where a
// boundary value is defined in terms of the volume field, the flux then
// reads the volume trace directly and the explicit boundary fetch
// disappears; whatever genuinely external data remains is collected into
// a minimal boundary input list.
//
// Boundary-side expressions may use free variables and subscripts
// (external boundary data), scalar parameters, constants, normal
// components of the pair's region, Boundarize bindings of volume
// expressions, and FluxExchange bindings. Arithmetic over those converts
// structurally into the flux sub-language. Any other operator applied to
// boundary data is an error, as is any tag disagreeing with the pair's.
//
// A rewritten term whose formula is literally zero drops to Const(0).
func RewriteBCs(n sym.Node) (sym.Node, error) {
	return sym.Transform(n, sym.TransformerFunc(rewriteBoundaryFluxes))
}

func rewriteBoundaryFluxes(n sym.Node, rec sym.RewriteFunc) (sym.Node, error) {
	b, ok := n.(*sym.Binding)
	if !ok {
		return sym.RebuildChildren(n, rec)
	}
	op, ok := b.Op().(*sym.Flux)
	if !ok {
		return sym.RebuildChildren(b, rec)
	}
	pair, ok := b.Field().(*sym.BoundaryPair)
	if !ok {
		return sym.RebuildChildren(b, rec)
	}
	return rewriteBoundaryFlux(op, pair)
}

func rewriteBoundaryFlux(op *sym.Flux, pair *sym.BoundaryPair) (sym.Node, error) {
	if err := checkDisjoint(pair); err != nil {
		return nil, err
	}

	m := newBoundaryMiner(pair)
	mined, err := m.mineField(pair.BField())
	if err != nil {
		return nil, err
	}

	formula, err := substituteExterior(op.Formula(), mined)
	if err != nil {
		return nil, err
	}
	if flux.IsZero(formula) {
		return sym.NewConst(0), nil
	}

	rebuilt, err := sym.NewBoundaryPair(sym.NewVector(m.vol...), sym.NewVector(m.bdry...), pair.Tag())
	if err != nil {
		return nil, err
	}
	return sym.NewBinding(sym.NewFlux(formula), rebuilt), nil
}

// checkDisjoint re-verifies the pair's namespace invariant at rewrite
// time: no quantity may feed both the volume and the boundary side.
func checkDisjoint(pair *sym.BoundaryPair) error {
	opts := sym.DependencyOptions{IncludeBindings: true}
	volDeps, err := sym.Dependencies(pair.Field(), opts)
	if err != nil {
		return err
	}
	bdryDeps, err := sym.Dependencies(pair.BField(), opts)
	if err != nil {
		return err
	}
	if shared := volDeps.Intersect(bdryDeps); shared.Len() > 0 {
		return sym.NewBoundaryNamespaceError(shared.Names())
	}
	return nil
}

// boundaryMiner converts a boundary-side expression into the flux
// sub-language, registering the interior and exterior inputs the
// converted formula references. The volume list is seeded with the
// pair's field components so interior references keep the positions the
// original formula assumed.
type boundaryMiner struct {
	tag     sym.Tag
	vol     []sym.Node
	volIdx  map[sym.Digest]int
	bdry    []sym.Node
	bdryIdx map[sym.Digest]int
}

func newBoundaryMiner(pair *sym.BoundaryPair) *boundaryMiner {
	m := &boundaryMiner{
		tag:     pair.Tag(),
		volIdx:  map[sym.Digest]int{},
		bdryIdx: map[sym.Digest]int{},
	}
	if vec, ok := pair.Field().(*sym.Vector); ok {
		for _, c := range vec.Comps() {
			m.registerVolume(c)
		}
	} else {
		m.registerVolume(pair.Field())
	}
	return m
}

func (m *boundaryMiner) registerVolume(n sym.Node) int {
	if i, ok := m.volIdx[n.Digest()]; ok {
		return i
	}
	i := len(m.vol)
	m.volIdx[n.Digest()] = i
	m.vol = append(m.vol, n)
	return i
}

func (m *boundaryMiner) registerBoundary(n sym.Node) int {
	if i, ok := m.bdryIdx[n.Digest()]; ok {
		return i
	}
	i := len(m.bdry)
	m.bdryIdx[n.Digest()] = i
	m.bdry = append(m.bdry, n)
	return i
}

// mineField mines a whole boundary side: a Vector mines per component, so
// exterior component i of the formula refers to component i of the side.
func (m *boundaryMiner) mineField(bfield sym.Node) ([]flux.Node, error) {
	vec, ok := bfield.(*sym.Vector)
	if !ok {
		f, err := m.mine(bfield)
		if err != nil {
			return nil, err
		}
		return []flux.Node{f}, nil
	}
	out := make([]flux.Node, vec.Len())
	for i, c := range vec.Comps() {
		f, err := m.mine(c)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func (m *boundaryMiner) mine(n sym.Node) (flux.Node, error) {
	switch n := n.(type) {
	case *sym.Var:
		return flux.Exterior(m.registerBoundary(n)), nil

	case *sym.Subscript:
		return flux.Exterior(m.registerBoundary(n)), nil

	case *sym.ScalarParam:
		// Uniform over the boundary; enters as one more boundary input
		// and broadcasts at evaluation time.
		return flux.Exterior(m.registerBoundary(n)), nil

	case *sym.Const:
		return flux.NewConst(n.Value()), nil

	case *sym.NormalComponent:
		if n.Tag() != m.tag {
			return nil, sym.NewTagMismatchError(n.Tag(), m.tag, "normal component")
		}
		return flux.NewNormal(n.Axis()), nil

	case *sym.Sum:
		terms := make([]flux.Node, len(n.Terms()))
		for i, t := range n.Terms() {
			f, err := m.mine(t)
			if err != nil {
				return nil, err
			}
			terms[i] = f
		}
		return flux.NewSum(terms...), nil

	case *sym.Product:
		factors := make([]flux.Node, len(n.Factors()))
		for i, t := range n.Factors() {
			f, err := m.mine(t)
			if err != nil {
				return nil, err
			}
			factors[i] = f
		}
		return flux.NewProduct(factors...), nil

	case *sym.CSE:
		return m.mine(n.Child())

	case *sym.Binding:
		switch op := n.Op().(type) {
		case *sym.Boundarize:
			if op.Tag() != m.tag {
				return nil, sym.NewTagMismatchError(op.Tag(), m.tag, "boundary restriction")
			}
			// The boundary value is the trace of a volume expression;
			// the flux reads it from the interior side.
			return flux.Interior(m.registerVolume(n.Field())), nil
		case *sym.FluxExchange:
			if op.BoundaryTag() != m.tag {
				return nil, sym.NewTagMismatchError(op.BoundaryTag(), m.tag, "flux exchange")
			}
			return flux.Exterior(m.registerBoundary(n)), nil
		}
		return nil, sym.NewIllegalBoundaryOpError(n.Op())

	case sym.Operator:
		return nil, sym.NewBadOperandError("operator %s outside a binding in a boundary expression", sym.FormatOp(n))

	case *sym.Vector:
		return nil, sym.NewBadOperandError("vector nested inside a boundary expression component")

	case *sym.BoundaryPair:
		return nil, sym.NewBadOperandError("boundary pair nested inside a boundary expression")

	default:
		return nil, sym.NewBadOperandError("unhandled node type %T in a boundary expression", n)
	}
}

// substituteExterior replaces each exterior field component of formula
// with the mined flux expression for that boundary-side component.
// Interior components refer to volume inputs and pass through.
func substituteExterior(formula flux.Node, mined []flux.Node) (flux.Node, error) {
	var substErr error
	out := flux.Substitute(formula, func(n flux.Node) (flux.Node, bool) {
		fc, ok := n.(*flux.FieldComponent)
		if !ok || fc.IsInterior() {
			return nil, false
		}
		if fc.Index() < 0 || fc.Index() >= len(mined) {
			if substErr == nil {
				substErr = sym.NewBadOperandError("flux references exterior component %d of a %d-component boundary field", fc.Index(), len(mined))
			}
			return nil, false
		}
		return mined[fc.Index()], true
	})
	if substErr != nil {
		return nil, substErr
	}
	return out, nil
}
