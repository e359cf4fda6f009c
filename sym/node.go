package sym

import (
	"strconv"
	"strings"
)

// Tag names a boundary region of the mesh. Tags are supplied by the
// discretization layer; the template layer only compares them.
type Tag string

// TagAll is the reserved wildcard naming the entire boundary.
const TagAll Tag = "all"

const rankBoundaryPrefix = "rank-boundary-"

// RankBoundaryTag names the shared boundary with a neighboring rank in a
// distributed run.
func RankBoundaryTag(rank int) Tag {
	return Tag(rankBoundaryPrefix + strconv.Itoa(rank))
}

// RankOfBoundaryTag reports the rank a rank-boundary tag names, and
// whether t is one.
func RankOfBoundaryTag(t Tag) (int, bool) {
	s, ok := strings.CutPrefix(string(t), rankBoundaryPrefix)
	if !ok {
		return 0, false
	}
	rank, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return rank, true
}

// Node is one node of an operator template. The interface is sealed: only
// types in this package implement it. Nodes are immutable; rewrites build
// new trees and share unchanged subtrees.
type Node interface {
	// Digest returns the node's content-addressed identity.
	Digest() Digest

	symNode() // seals the interface to this package
}

// Var is a named field variable: a volume-wide vector of unknowns bound at
// evaluation time through the environment.
type Var struct {
	name string
	dig  Digest
}

func NewVar(name string) *Var {
	w := newDigestWriter(domainVar)
	w.str(name)
	return &Var{name: name, dig: w.sum()}
}

func (v *Var) Name() string { return v.name }
func (v *Var) Digest() Digest { return v.dig }
func (*Var) symNode() {}

// Subscript references one component of a vector field variable. For
// dependency purposes a subscript is a leaf: u[0] and u[1] are distinct
// quantities.
type Subscript struct {
	agg   Node
	index int
	dig   Digest
}

func NewSubscript(agg Node, index int) *Subscript {
	w := newDigestWriter(domainSubscript)
	w.child(agg)
	w.num(int64(index))
	return &Subscript{agg: agg, index: index, dig: w.sum()}
}

func (s *Subscript) Aggregate() Node { return s.agg }
func (s *Subscript) Index() int { return s.index }
func (s *Subscript) Digest() Digest { return s.dig }
func (*Subscript) symNode() {}

// ScalarParam is a named placeholder for a user-supplied scalar, resolved
// through the environment at evaluation time.
type ScalarParam struct {
	name string
	dig  Digest
}

func NewScalarParam(name string) *ScalarParam {
	w := newDigestWriter(domainScalarParam)
	w.str(name)
	return &ScalarParam{name: name, dig: w.sum()}
}

func (p *ScalarParam) Name() string { return p.name }
func (p *ScalarParam) Digest() Digest { return p.dig }
func (*ScalarParam) symNode() {}

// Const is a numeric literal. Const(0) is the additive identity rewrite
// passes emit for eliminated terms; Const(1) the empty-product identity.
type Const struct {
	value float64
	dig   Digest
}

// NewConst creates a literal. Negative zero is normalized to zero so the
// additive identity has one digest.
func NewConst(v float64) *Const {
	if v == 0 {
		v = 0
	}
	w := newDigestWriter(domainConst)
	w.f64(v)
	return &Const{value: v, dig: w.sum()}
}

func (c *Const) Value() float64 { return c.value }
func (c *Const) Digest() Digest { return c.dig }
func (*Const) symNode() {}

// IsZero reports whether n is the literal zero.
func IsZero(n Node) bool {
	c, ok := n.(*Const)
	return ok && c.value == 0
}

// IsOne reports whether n is the literal one.
func IsOne(n Node) bool {
	c, ok := n.(*Const)
	return ok && c.value == 1
}

// NormalComponent is one component of the outward boundary normal over the
// region named by Tag, as a volume-level quantity usable in boundary-side
// expressions.
type NormalComponent struct {
	tag  Tag
	axis int
	dig  Digest
}

func NewNormalComponent(tag Tag, axis int) *NormalComponent {
	w := newDigestWriter(domainNormalComponent)
	w.str(string(tag))
	w.num(int64(axis))
	return &NormalComponent{tag: tag, axis: axis, dig: w.sum()}
}

func (n *NormalComponent) Tag() Tag { return n.tag }
func (n *NormalComponent) Axis() int { return n.axis }
func (n *NormalComponent) Digest() Digest { return n.dig }
func (*NormalComponent) symNode() {}

// Sum is an n-ary sum. Term order is preserved; no reordering or folding
// happens at construction.
type Sum struct {
	terms []Node
	dig   Digest
}

func NewSum(terms ...Node) *Sum {
	ts := make([]Node, len(terms))
	copy(ts, terms)
	w := newDigestWriter(domainSum)
	w.children(ts)
	return &Sum{terms: ts, dig: w.sum()}
}

// Terms returns the shared term slice; callers must not modify it.
func (s *Sum) Terms() []Node { return s.terms }
func (s *Sum) Digest() Digest { return s.dig }
func (*Sum) symNode() {}

// Product is an n-ary product. Factor order is preserved.
type Product struct {
	factors []Node
	dig     Digest
}

func NewProduct(factors ...Node) *Product {
	fs := make([]Node, len(factors))
	copy(fs, factors)
	w := newDigestWriter(domainProduct)
	w.children(fs)
	return &Product{factors: fs, dig: w.sum()}
}

func (p *Product) Factors() []Node { return p.factors }
func (p *Product) Digest() Digest { return p.dig }
func (*Product) symNode() {}

// Vector is a fixed-length tuple of component expressions: the
// representation of systems of equations and of vector-valued boundary
// pair sides.
type Vector struct {
	comps []Node
	dig   Digest
}

func NewVector(comps ...Node) *Vector {
	cs := make([]Node, len(comps))
	copy(cs, comps)
	w := newDigestWriter(domainVector)
	w.children(cs)
	return &Vector{comps: cs, dig: w.sum()}
}

func (v *Vector) Len() int { return len(v.comps) }

func (v *Vector) Comp(i int) Node { return v.comps[i] }

func (v *Vector) Comps() []Node { return v.comps }
func (v *Vector) Digest() Digest { return v.dig }
func (*Vector) symNode() {}

// CSE marks a common subexpression: evaluate the child once, reuse the
// result everywhere the same marker appears. Prefix is an optional naming
// hint for generated temporaries; Priority orders evaluation for backends
// that schedule (zero for the ordinary form).
type CSE struct {
	child    Node
	prefix   string
	priority int
	dig      Digest
}

func NewCSE(child Node, prefix string) *CSE {
	return newCSE(child, prefix, 0)
}

// NewPrioritizedCSE creates a CSE carrying an evaluation priority.
func NewPrioritizedCSE(child Node, prefix string, priority int) *CSE {
	return newCSE(child, prefix, priority)
}

func newCSE(child Node, prefix string, priority int) *CSE {
	w := newDigestWriter(domainCSE)
	w.child(child)
	w.str(prefix)
	w.num(int64(priority))
	return &CSE{child: child, prefix: prefix, priority: priority, dig: w.sum()}
}

func (c *CSE) Child() Node { return c.child }
func (c *CSE) Prefix() string { return c.prefix }
func (c *CSE) Priority() int { return c.priority }
func (c *CSE) Digest() Digest { return c.dig }
func (*CSE) symNode() {}

// Binding is an operator applied to an operand.
type Binding struct {
	op    Operator
	field Node
	dig   Digest
}

func NewBinding(op Operator, field Node) *Binding {
	w := newDigestWriter(domainBinding)
	w.child(op)
	w.child(field)
	return &Binding{op: op, field: field, dig: w.sum()}
}

func (b *Binding) Op() Operator { return b.op }
func (b *Binding) Field() Node { return b.field }
func (b *Binding) Digest() Digest { return b.dig }
func (*Binding) symNode() {}

// BoundaryPair pairs a volume expression with a boundary-restricted
// expression over the region Tag. It is the unit flux operators consume
// for boundary terms; both sides may be Vectors.
//
// Construction validates the pair: every tagged node in the boundary side
// must agree with Tag, and no quantity may be used as both a volume and a
// boundary dependency.
type BoundaryPair struct {
	field  Node
	bfield Node
	tag    Tag
	dig    Digest
}

func NewBoundaryPair(field, bfield Node, tag Tag) (*BoundaryPair, error) {
	if err := checkBoundaryTags(bfield, tag); err != nil {
		return nil, err
	}
	if err := checkNamespaces(field, bfield); err != nil {
		return nil, err
	}
	w := newDigestWriter(domainBoundaryPair)
	w.child(field)
	w.child(bfield)
	w.str(string(tag))
	return &BoundaryPair{field: field, bfield: bfield, tag: tag, dig: w.sum()}, nil
}

// MustBoundaryPair is like NewBoundaryPair but panics on error. Use only
// in tests or when inputs are known to be valid.
func MustBoundaryPair(field, bfield Node, tag Tag) *BoundaryPair {
	p, err := NewBoundaryPair(field, bfield, tag)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *BoundaryPair) Field() Node { return p.field }
func (p *BoundaryPair) BField() Node { return p.bfield }
func (p *BoundaryPair) Tag() Tag { return p.tag }
func (p *BoundaryPair) Digest() Digest { return p.dig }
func (*BoundaryPair) symNode() {}

// CountNodes returns the number of nodes in the tree, counting shared
// subtrees once per occurrence. Operator payloads count as one node.
func CountNodes(n Node) int {
	count := 0
	var walk func(Node)
	walk = func(n Node) {
		count++
		switch n := n.(type) {
		case *Subscript:
			walk(n.agg)
		case *Sum:
			for _, t := range n.terms {
				walk(t)
			}
		case *Product:
			for _, f := range n.factors {
				walk(f)
			}
		case *Vector:
			for _, c := range n.comps {
				walk(c)
			}
		case *CSE:
			walk(n.child)
		case *Binding:
			walk(n.op)
			walk(n.field)
		case *BoundaryPair:
			walk(n.field)
			walk(n.bfield)
		}
	}
	walk(n)
	return count
}
