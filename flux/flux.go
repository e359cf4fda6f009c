// Package flux defines the face-local flux sub-language carried as the
// payload of flux operators.
//
// A flux expression describes, for a single face quadrature point, how the
// numerical flux is computed from the interior and exterior traces of the
// discrete fields. The surrounding symbolic layer treats flux expressions
// as opaque except for structural identity and for the one rewrite the
// boundary-condition pass performs: substituting mined boundary values for
// exterior field components.
//
// Node types:
//   - Const: numeric literal
//   - Normal: one component of the outward face normal
//   - FieldComponent: interior or exterior trace of an input field,
//     referenced by position in the owning boundary pair
//   - PenaltyTerm: stabilization term (order^2/h)^power
//   - IfPositive: branch on the sign of a criterion
//   - Sum, Product: n-ary arithmetic
package flux

import "fmt"

// Node is a flux expression. The interface is sealed: only types in this
// package implement it, which keeps backend type switches exhaustive.
type Node interface {
	Digest() Digest
	fluxNode()
}

// Const is a numeric literal.
type Const struct {
	value float64
	dig   Digest
}

// NewConst creates a literal. Negative zero is normalized to zero so that
// structurally equal expressions digest equally.
func NewConst(v float64) *Const {
	if v == 0 {
		v = 0
	}
	return &Const{value: v, dig: constDigest(v)}
}

func (c *Const) Value() float64 { return c.value }
func (c *Const) Digest() Digest { return c.dig }
func (*Const) fluxNode() {}

// Normal is one component of the outward unit normal of the face under
// evaluation.
type Normal struct {
	axis int
	dig  Digest
}

func NewNormal(axis int) *Normal {
	return &Normal{axis: axis, dig: normalDigest(axis)}
}

func (n *Normal) Axis() int { return n.axis }
func (n *Normal) Digest() Digest { return n.dig }
func (*Normal) fluxNode() {}

// FieldComponent references one input field of the owning boundary pair by
// position. Interior components take the trace of a volume input at the
// face; exterior components take the matching boundary-side input.
type FieldComponent struct {
	index    int
	interior bool
	dig      Digest
}

func NewFieldComponent(index int, interior bool) *FieldComponent {
	return &FieldComponent{index: index, interior: interior, dig: fieldComponentDigest(index, interior)}
}

// Interior is shorthand for an interior-trace component.
func Interior(index int) *FieldComponent { return NewFieldComponent(index, true) }

// Exterior is shorthand for an exterior-trace component.
func Exterior(index int) *FieldComponent { return NewFieldComponent(index, false) }

func (f *FieldComponent) Index() int { return f.index }
func (f *FieldComponent) IsInterior() bool { return f.interior }
func (f *FieldComponent) Digest() Digest { return f.dig }
func (*FieldComponent) fluxNode() {}

// PenaltyTerm is the jump-stabilization factor (order^2/h)^power for the
// face under evaluation.
type PenaltyTerm struct {
	power float64
	dig   Digest
}

func NewPenaltyTerm(power float64) *PenaltyTerm {
	return &PenaltyTerm{power: power, dig: penaltyDigest(power)}
}

func (p *PenaltyTerm) Power() float64 { return p.power }
func (p *PenaltyTerm) Digest() Digest { return p.dig }
func (*PenaltyTerm) fluxNode() {}

// IfPositive evaluates Then where Criterion is positive and Else otherwise.
type IfPositive struct {
	criterion Node
	then      Node
	els       Node
	dig       Digest
}

func NewIfPositive(criterion, then, els Node) *IfPositive {
	return &IfPositive{
		criterion: criterion,
		then:      then,
		els:       els,
		dig:       ifPositiveDigest(criterion, then, els),
	}
}

func (i *IfPositive) Criterion() Node { return i.criterion }
func (i *IfPositive) Then() Node { return i.then }
func (i *IfPositive) Else() Node { return i.els }
func (i *IfPositive) Digest() Digest { return i.dig }
func (*IfPositive) fluxNode() {}

// Sum is an n-ary sum. Term order is preserved.
type Sum struct {
	terms []Node
	dig   Digest
}

func NewSum(terms ...Node) *Sum {
	ts := make([]Node, len(terms))
	copy(ts, terms)
	return &Sum{terms: ts, dig: sumDigest(ts)}
}

// Terms returns the shared term slice; callers must not modify it.
func (s *Sum) Terms() []Node { return s.terms }
func (s *Sum) Digest() Digest { return s.dig }
func (*Sum) fluxNode() {}

// Product is an n-ary product. Factor order is preserved.
type Product struct {
	factors []Node
	dig     Digest
}

func NewProduct(factors ...Node) *Product {
	fs := make([]Node, len(factors))
	copy(fs, factors)
	return &Product{factors: fs, dig: productDigest(fs)}
}

func (p *Product) Factors() []Node { return p.factors }
func (p *Product) Digest() Digest { return p.dig }
func (*Product) fluxNode() {}

// Add builds a sum, flattening nested sums. No terms yields Const(0), a
// single term is returned as is.
func Add(terms ...Node) Node {
	flat := make([]Node, 0, len(terms))
	for _, t := range terms {
		if s, ok := t.(*Sum); ok {
			flat = append(flat, s.terms...)
			continue
		}
		flat = append(flat, t)
	}
	switch len(flat) {
	case 0:
		return NewConst(0)
	case 1:
		return flat[0]
	}
	return NewSum(flat...)
}

// Mul builds a product, flattening nested products. No factors yields
// Const(1), a single factor is returned as is.
func Mul(factors ...Node) Node {
	flat := make([]Node, 0, len(factors))
	for _, f := range factors {
		if p, ok := f.(*Product); ok {
			flat = append(flat, p.factors...)
			continue
		}
		flat = append(flat, f)
	}
	switch len(flat) {
	case 0:
		return NewConst(1)
	case 1:
		return flat[0]
	}
	return NewProduct(flat...)
}

// Negate multiplies by -1.
func Negate(n Node) Node { return Mul(NewConst(-1), n) }

// Scale multiplies by a constant.
func Scale(c float64, n Node) Node { return Mul(NewConst(c), n) }

// Equal reports structural equality via digests.
func Equal(a, b Node) bool { return a.Digest() == b.Digest() }

// IsZero reports whether n is the literal zero.
func IsZero(n Node) bool {
	c, ok := n.(*Const)
	return ok && c.value == 0
}

// Placeholder writes flux formulas against the components of the field an
// operator will be bound to: component i of the bound field appears as
// Int(i) and Ext(i) in the formula.
type Placeholder struct {
	n int
}

// NewPlaceholder creates a placeholder over n field components.
func NewPlaceholder(n int) Placeholder {
	if n < 1 {
		panic(fmt.Sprintf("flux: placeholder needs at least one component, got %d", n))
	}
	return Placeholder{n: n}
}

func (p Placeholder) check(i int) {
	if i < 0 || i >= p.n {
		panic(fmt.Sprintf("flux: component %d out of range [0,%d)", i, p.n))
	}
}

// Len returns the number of components.
func (p Placeholder) Len() int { return p.n }

// Int is the interior trace of component i.
func (p Placeholder) Int(i int) Node {
	p.check(i)
	return Interior(i)
}

// Ext is the exterior trace of component i.
func (p Placeholder) Ext(i int) Node {
	p.check(i)
	return Exterior(i)
}

// Avg is the face average (int+ext)/2 of component i.
func (p Placeholder) Avg(i int) Node {
	p.check(i)
	return Scale(0.5, Add(Interior(i), Exterior(i)))
}

// Jump is the face jump int-ext of component i.
func (p Placeholder) Jump(i int) Node {
	p.check(i)
	return Add(Interior(i), Negate(Exterior(i)))
}
