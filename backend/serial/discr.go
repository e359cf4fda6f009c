package serial

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/fluxion-dg/fluxion/sym"
)

// Boundary tags registered by every serial discretization. The reserved
// sym.TagAll wildcard resolves to both, left before right.
const (
	TagLeft  sym.Tag = "left"
	TagRight sym.Tag = "right"
)

// faceNode is one boundary face point: where it lives in the volume, which
// way it points, and the width of the element that owns it.
type faceNode struct {
	vol    int
	normal float64
	h      float64
}

// Discretization tiles K reference elements uniformly over [a,b]. It is
// the geometry oracle for lowering and the operator actions for
// evaluation. A Discretization is immutable after construction and safe
// for concurrent use.
type Discretization struct {
	el      *Element
	k       int
	a, b    float64
	h       float64 // element width
	jac     float64 // dx/dr, h/2
	rx      float64 // dr/dx, 2/h
	x       []float64
	weights []float64 // physical quadrature weight per reference node
	tags    map[sym.Tag][]faceNode
}

// NewDiscretization builds a uniform mesh of numElements elements of
// polynomial order order on [a,b].
func NewDiscretization(order, numElements int, a, b float64) (*Discretization, error) {
	if numElements < 1 {
		return nil, fmt.Errorf("need at least one element, got %d", numElements)
	}
	if b <= a {
		return nil, fmt.Errorf("domain [%g, %g] is empty", a, b)
	}
	el, err := NewElement(order)
	if err != nil {
		return nil, fmt.Errorf("reference element: %w", err)
	}

	d := &Discretization{
		el:   el,
		k:    numElements,
		a:    a,
		b:    b,
		h:    (b - a) / float64(numElements),
		x:    make([]float64, numElements*el.Np),
		tags: make(map[sym.Tag][]faceNode),
	}
	d.jac = d.h / 2
	d.rx = 2 / d.h

	for k := 0; k < numElements; k++ {
		xa := a + float64(k)*d.h
		for i, r := range el.R {
			d.x[k*el.Np+i] = xa + (r+1)*d.jac
		}
	}

	d.weights = make([]float64, el.Np)
	for i := 0; i < el.Np; i++ {
		for j := 0; j < el.Np; j++ {
			d.weights[i] += el.M.At(i, j)
		}
		d.weights[i] *= d.jac
	}

	left := faceNode{vol: 0, normal: -1, h: d.h}
	right := faceNode{vol: numElements*el.Np - 1, normal: 1, h: d.h}
	d.tags[TagLeft] = []faceNode{left}
	d.tags[TagRight] = []faceNode{right}
	d.tags[sym.TagAll] = []faceNode{left, right}
	return d, nil
}

// Element returns the reference element.
func (d *Discretization) Element() *Element { return d.el }

// NumElements returns the element count K.
func (d *Discretization) NumElements() int { return d.k }

// Bounds returns the domain endpoints.
func (d *Discretization) Bounds() (a, b float64) { return d.a, d.b }

// Nodes returns the node coordinates, element-major; callers must not
// modify the returned slice.
func (d *Discretization) Nodes() []float64 { return d.x }

// NumNodes returns the total node count K*Np.
func (d *Discretization) NumNodes() int { return len(d.x) }

// BoundaryNodeCount reports the number of face points carrying tag.
// Unknown tags name empty regions.
func (d *Discretization) BoundaryNodeCount(tag sym.Tag) int {
	return len(d.boundaryFaces(tag))
}

func (d *Discretization) boundaryFaces(tag sym.Tag) []faceNode {
	return d.tags[tag]
}

// Interpolate evaluates f at every node.
func (d *Discretization) Interpolate(f func(x float64) float64) sym.FieldData {
	out := make(sym.FieldData, len(d.x))
	for i, xi := range d.x {
		out[i] = f(xi)
	}
	return out
}

// VolumeField returns a constant field over the volume.
func (d *Discretization) VolumeField(v float64) sym.FieldData {
	out := make(sym.FieldData, len(d.x))
	for i := range out {
		out[i] = v
	}
	return out
}

// FieldsOf flattens an evaluated value into per-component volume fields,
// broadcasting scalar components. Driver loops use it to hand compiled
// results to a time integrator.
func (d *Discretization) FieldsOf(v sym.Value) ([]sym.FieldData, error) {
	switch v := v.(type) {
	case sym.FieldData:
		if err := d.checkVolume(v); err != nil {
			return nil, err
		}
		return []sym.FieldData{v}, nil
	case sym.Scalar:
		return []sym.FieldData{d.VolumeField(float64(v))}, nil
	case sym.TupleValue:
		out := make([]sym.FieldData, len(v))
		for i, c := range v {
			fs, err := d.FieldsOf(c)
			if err != nil {
				return nil, err
			}
			if len(fs) != 1 {
				return nil, sym.NewBadOperandError("nested tuple in component %d", i)
			}
			out[i] = fs[0]
		}
		return out, nil
	}
	return nil, sym.NewBadOperandError("cannot flatten a boundary pair into fields")
}

// DtScale returns a stable time step estimate for a system whose largest
// characteristic speed is maxEigenvalue.
func (d *Discretization) DtScale(maxEigenvalue float64) float64 {
	if maxEigenvalue == 0 {
		return math.Inf(1)
	}
	return d.h / (float64(2*d.el.Order+1) * math.Abs(maxEigenvalue))
}

// Integral computes the integral of f over the domain, exact for nodal
// data sampled from polynomials of degree at most Order per element.
func (d *Discretization) Integral(f sym.FieldData) (float64, error) {
	if err := d.checkVolume(f); err != nil {
		return 0, err
	}
	total := 0.0
	np := d.el.Np
	for k := 0; k < d.k; k++ {
		total += floats.Dot(d.weights, f[k*np:(k+1)*np])
	}
	return total, nil
}

// MassInner computes the mass-weighted inner product ∫ a b over the
// domain.
func (d *Discretization) MassInner(a, b sym.FieldData) (float64, error) {
	if err := d.checkVolume(a); err != nil {
		return 0, err
	}
	if err := d.checkVolume(b); err != nil {
		return 0, err
	}
	np := d.el.Np
	mb := make([]float64, np)
	total := 0.0
	for k := 0; k < d.k; k++ {
		bk := b[k*np : (k+1)*np]
		for i := 0; i < np; i++ {
			mb[i] = floats.Dot(d.el.M.RawRowView(i), bk)
		}
		total += floats.Dot(a[k*np:(k+1)*np], mb)
	}
	return total * d.jac, nil
}

// NodalMax returns the largest absolute nodal value of f.
func (d *Discretization) NodalMax(f sym.FieldData) (float64, error) {
	if err := d.checkVolume(f); err != nil {
		return 0, err
	}
	max := 0.0
	for _, v := range f {
		if a := math.Abs(v); a > max {
			max = a
		}
	}
	return max, nil
}

func (d *Discretization) checkVolume(f sym.FieldData) error {
	if len(f) != len(d.x) {
		return sym.NewBadOperandError("field has %d nodes, discretization has %d", len(f), len(d.x))
	}
	return nil
}
