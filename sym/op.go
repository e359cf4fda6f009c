package sym

import "github.com/fluxion-dg/fluxion/flux"

// Operator is a discretization operator. Operators are themselves leaf
// nodes so templates can carry them unbound inside products; the binder
// pass turns those products into explicit Bindings.
//
// The interface is sealed. Capability interfaces (DiffOp, FluxOp) expose
// the parameters shared by an operator family, so backends can implement
// one action per family.
type Operator interface {
	Node
	symOperator()
}

// DiffOp is implemented by the differentiation-family operators, which
// act along a single axis: Diff, MInvST, Stiffness, StiffnessT.
type DiffOp interface {
	Operator
	Axis() int
}

// FluxOp is implemented by the flux-family operators Flux and LiftingFlux.
type FluxOp interface {
	Operator
	Formula() flux.Node
	Lifting() bool
}

// Diff differentiates along one axis in physical coordinates.
type Diff struct {
	axis int
	dig  Digest
}

func NewDiff(axis int) *Diff {
	return &Diff{axis: axis, dig: opDigest("diff", func(w *digestWriter) { w.num(int64(axis)) })}
}

func (d *Diff) Axis() int { return d.axis }
func (d *Diff) Digest() Digest { return d.dig }
func (*Diff) symNode() {}
func (*Diff) symOperator() {}

// MInvST applies the inverse mass matrix composed with the transposed
// stiffness matrix along one axis: the fused form the inverse-mass
// contraction produces from InverseMass after StiffnessT.
type MInvST struct {
	axis int
	dig  Digest
}

func NewMInvST(axis int) *MInvST {
	return &MInvST{axis: axis, dig: opDigest("m-inv-s-t", func(w *digestWriter) { w.num(int64(axis)) })}
}

func (m *MInvST) Axis() int { return m.axis }
func (m *MInvST) Digest() Digest { return m.dig }
func (*MInvST) symNode() {}
func (*MInvST) symOperator() {}

// Stiffness applies the stiffness matrix along one axis.
type Stiffness struct {
	axis int
	dig  Digest
}

func NewStiffness(axis int) *Stiffness {
	return &Stiffness{axis: axis, dig: opDigest("stiffness", func(w *digestWriter) { w.num(int64(axis)) })}
}

func (s *Stiffness) Axis() int { return s.axis }
func (s *Stiffness) Digest() Digest { return s.dig }
func (*Stiffness) symNode() {}
func (*Stiffness) symOperator() {}

// StiffnessT applies the transposed stiffness matrix along one axis.
type StiffnessT struct {
	axis int
	dig  Digest
}

func NewStiffnessT(axis int) *StiffnessT {
	return &StiffnessT{axis: axis, dig: opDigest("stiffness-t", func(w *digestWriter) { w.num(int64(axis)) })}
}

func (s *StiffnessT) Axis() int { return s.axis }
func (s *StiffnessT) Digest() Digest { return s.dig }
func (*StiffnessT) symNode() {}
func (*StiffnessT) symOperator() {}

// Mass applies the mass matrix.
type Mass struct {
	dig Digest
}

func NewMass() *Mass {
	return &Mass{dig: opDigest("mass", nil)}
}

func (m *Mass) Digest() Digest { return m.dig }
func (*Mass) symNode() {}
func (*Mass) symOperator() {}

// InverseMass applies the inverse mass matrix.
type InverseMass struct {
	dig Digest
}

func NewInverseMass() *InverseMass {
	return &InverseMass{dig: opDigest("inverse-mass", nil)}
}

func (m *InverseMass) Digest() Digest { return m.dig }
func (*InverseMass) symNode() {}
func (*InverseMass) symOperator() {}

// ElementwiseMax replaces each element's nodal values by the maximum over
// that element.
type ElementwiseMax struct {
	dig Digest
}

func NewElementwiseMax() *ElementwiseMax {
	return &ElementwiseMax{dig: opDigest("elementwise-max", nil)}
}

func (m *ElementwiseMax) Digest() Digest { return m.dig }
func (*ElementwiseMax) symNode() {}
func (*ElementwiseMax) symOperator() {}

// Boundarize restricts a volume expression to the boundary region named by
// Tag.
type Boundarize struct {
	tag Tag
	dig Digest
}

func NewBoundarize(tag Tag) *Boundarize {
	return &Boundarize{tag: tag, dig: opDigest("boundarize", func(w *digestWriter) { w.str(string(tag)) })}
}

func (b *Boundarize) Tag() Tag { return b.tag }
func (b *Boundarize) Digest() Digest { return b.dig }
func (*Boundarize) symNode() {}
func (*Boundarize) symOperator() {}

// FluxExchange stands for one field component received from a neighboring
// rank; it is boundary data over RankBoundaryTag(Rank).
type FluxExchange struct {
	index int
	rank  int
	dig   Digest
}

func NewFluxExchange(index, rank int) *FluxExchange {
	return &FluxExchange{
		index: index,
		rank:  rank,
		dig: opDigest("flux-exchange", func(w *digestWriter) {
			w.num(int64(index))
			w.num(int64(rank))
		}),
	}
}

func (f *FluxExchange) Index() int { return f.index }
func (f *FluxExchange) Rank() int { return f.rank }

// BoundaryTag returns the rank-boundary tag this exchange is data for.
func (f *FluxExchange) BoundaryTag() Tag { return RankBoundaryTag(f.rank) }

func (f *FluxExchange) Digest() Digest { return f.dig }
func (*FluxExchange) symNode() {}
func (*FluxExchange) symOperator() {}

// Flux computes the numerical flux described by Formula on faces: applied
// to a volume field it exchanges traces across interior faces, applied to
// a BoundaryPair it evaluates the pair's boundary term.
type Flux struct {
	formula flux.Node
	dig     Digest
}

func NewFlux(formula flux.Node) *Flux {
	return &Flux{formula: formula, dig: opDigest("flux", func(w *digestWriter) { w.fluxChild(formula) })}
}

func (f *Flux) Formula() flux.Node { return f.formula }
func (f *Flux) Lifting() bool { return false }
func (f *Flux) Digest() Digest { return f.dig }
func (*Flux) symNode() {}
func (*Flux) symOperator() {}

// LiftingFlux is the fused InverseMass-after-Flux form: the face flux
// scattered back to volume unknowns through the inverse mass matrix.
type LiftingFlux struct {
	formula flux.Node
	dig     Digest
}

func NewLiftingFlux(formula flux.Node) *LiftingFlux {
	return &LiftingFlux{formula: formula, dig: opDigest("lifting-flux", func(w *digestWriter) { w.fluxChild(formula) })}
}

func (f *LiftingFlux) Formula() flux.Node { return f.formula }
func (f *LiftingFlux) Lifting() bool { return true }
func (f *LiftingFlux) Digest() Digest { return f.dig }
func (*LiftingFlux) symNode() {}
func (*LiftingFlux) symOperator() {}

// IsFluxKind reports whether op is a flux-family operator.
func IsFluxKind(op Operator) bool {
	_, ok := op.(FluxOp)
	return ok
}

// IsDiffKind reports whether op is a differentiation-family operator.
func IsDiffKind(op Operator) bool {
	_, ok := op.(DiffOp)
	return ok
}

// IsMassKind reports whether op is Mass or InverseMass.
func IsMassKind(op Operator) bool {
	switch op.(type) {
	case *Mass, *InverseMass:
		return true
	}
	return false
}
