// Package operators builds symbolic right-hand-side templates for model
// PDE systems.
//
// A builder produces an ordinary expression tree over the sym node
// types: unbound discretization operators inside products, flux
// operators carrying face-local formulas, and boundary pairs for each
// named boundary region. The tree means nothing numerically until it has
// been lowered (package lower) and compiled against a discretization
// (package backend).
package operators

import (
	"fmt"
	"math"

	"github.com/fluxion-dg/fluxion/flux"
	"github.com/fluxion-dg/fluxion/sym"
)

// StateName is the variable the wave template is written over. Callers
// bind it to a tuple of 1+Dim fields: the scalar u followed by the
// velocity components.
const StateName = "w"

// FluxType selects the interior numerical flux of a wave template.
type FluxType string

const (
	// FluxUpwind penalizes the characteristic jumps; the template then
	// damps under-resolved modes.
	FluxUpwind FluxType = "upwind"
	// FluxCentral is the plain average flux, energy-conserving and
	// marginally stable.
	FluxCentral FluxType = "central"
)

// StrongWave describes the first-order strong-form wave system
//
//	du/dt = c div(v) + source
//	dv/dt = c grad(u)
//
// over state (u, v_0..v_{Dim-1}). Template builds its right-hand side:
// local derivative terms, an interior face flux, and one boundary flux
// per named region. A zero tag omits that boundary term.
//
// The boundary values are expressed through traces of the state, so
// lowering eliminates every explicit boundary fetch:
//
//	Dirichlet:  (-u, v)       reflects u, u = 0 on the region
//	Neumann:    (u, -v)       reflects v, du/dn = 0 on the region
//	Radiation:  characteristic splitting, outgoing waves leave
type StrongWave struct {
	Dim      int
	Speed    float64
	FluxType FluxType

	DirichletTag sym.Tag
	NeumannTag   sym.Tag
	RadiationTag sym.Tag

	// SourceName, when set, names a variable added to the u equation.
	SourceName string
}

// MaxEigenvalue bounds the characteristic speeds; time step estimates
// scale with its inverse.
func (sw StrongWave) MaxEigenvalue() float64 { return math.Abs(sw.Speed) }

// sign orients the upwind penalty and the radiation splitting with the
// propagation direction.
func (sw StrongWave) sign() float64 {
	if sw.Speed > 0 {
		return 1
	}
	return -1
}

// Template builds the right-hand-side template, one component per state
// field.
func (sw StrongWave) Template() (*sym.Vector, error) {
	if sw.Dim < 1 {
		return nil, fmt.Errorf("wave operator needs at least one dimension, got %d", sw.Dim)
	}
	switch sw.FluxType {
	case FluxUpwind, FluxCentral:
	default:
		return nil, fmt.Errorf("invalid flux type %q", sw.FluxType)
	}

	state := sym.MakeVectorField(StateName, 1+sw.Dim)
	u := state.Comp(0)
	v := state.Comps()[1:]

	pairs, err := sw.boundaryPairs(state, u, v)
	if err != nil {
		return nil, err
	}
	formulas := sw.fluxFormulas()
	nabla := sym.Nabla(sw.Dim)

	rows := make([]sym.Node, 1+sw.Dim)
	for r := range rows {
		var local sym.Node
		if r == 0 {
			div := make([]sym.Node, sw.Dim)
			for ax := range div {
				div[ax] = sym.Mul(nabla[ax], v[ax])
			}
			local = sym.ScaleBy(sw.Speed, sym.Add(div...))
		} else {
			local = sym.ScaleBy(sw.Speed, sym.Mul(nabla[r-1], u))
		}

		fluxTerms := []sym.Node{sym.Mul(sym.NewFlux(formulas[r]), state)}
		for _, p := range pairs {
			fluxTerms = append(fluxTerms, sym.Mul(sym.NewFlux(formulas[r]), p))
		}
		rows[r] = sym.Add(local, sym.Mul(sym.NewInverseMass(), sym.Add(fluxTerms...)))
	}

	if sw.SourceName != "" {
		rows[0] = sym.Add(rows[0], sym.NewVar(sw.SourceName))
	}
	return sym.NewVector(rows...), nil
}

// boundaryPairs builds one pair per configured region, in Dirichlet,
// Neumann, radiation order.
func (sw StrongWave) boundaryPairs(state *sym.Vector, u sym.Node, v []sym.Node) ([]*sym.BoundaryPair, error) {
	var pairs []*sym.BoundaryPair

	if tag := sw.DirichletTag; tag != "" {
		bc := make([]sym.Node, 1+sw.Dim)
		bc[0] = sym.Negate(boundarize(tag, u))
		for ax, vc := range v {
			bc[1+ax] = boundarize(tag, vc)
		}
		p, err := sym.NewBoundaryPair(state, sym.NewVector(bc...), tag)
		if err != nil {
			return nil, fmt.Errorf("dirichlet boundary %s: %w", tag, err)
		}
		pairs = append(pairs, p)
	}

	if tag := sw.NeumannTag; tag != "" {
		bc := make([]sym.Node, 1+sw.Dim)
		bc[0] = boundarize(tag, u)
		for ax, vc := range v {
			bc[1+ax] = sym.Negate(boundarize(tag, vc))
		}
		p, err := sym.NewBoundaryPair(state, sym.NewVector(bc...), tag)
		if err != nil {
			return nil, fmt.Errorf("neumann boundary %s: %w", tag, err)
		}
		pairs = append(pairs, p)
	}

	if tag := sw.RadiationTag; tag != "" {
		sign := sw.sign()
		normal := sym.MakeNormal(tag, sw.Dim)
		bu := boundarize(tag, u)
		dotNV := make([]sym.Node, sw.Dim)
		for ax, vc := range v {
			dotNV[ax] = sym.Mul(normal.Comp(ax), boundarize(tag, vc))
		}
		dotted := sym.Add(dotNV...)

		bc := make([]sym.Node, 1+sw.Dim)
		bc[0] = sym.ScaleBy(0.5, sym.Sub(bu, sym.ScaleBy(sign, dotted)))
		for ax := 0; ax < sw.Dim; ax++ {
			bc[1+ax] = sym.ScaleBy(0.5,
				sym.Mul(normal.Comp(ax), sym.Sub(dotted, sym.ScaleBy(sign, bu))))
		}
		p, err := sym.NewBoundaryPair(state, sym.NewVector(bc...), tag)
		if err != nil {
			return nil, fmt.Errorf("radiation boundary %s: %w", tag, err)
		}
		pairs = append(pairs, p)
	}

	return pairs, nil
}

// fluxFormulas builds the per-row interior flux, the strong-form
// difference between the one-sided flux and the chosen numerical flux,
// scaled by -Speed. Component 0 of the placeholder is u, components
// 1..Dim are v.
func (sw StrongWave) fluxFormulas() []flux.Node {
	ph := flux.NewPlaceholder(1 + sw.Dim)
	rows := make([]flux.Node, 1+sw.Dim)

	strongU := make([]flux.Node, sw.Dim)
	weakU := make([]flux.Node, sw.Dim)
	for ax := 0; ax < sw.Dim; ax++ {
		n := flux.NewNormal(ax)
		strongU[ax] = flux.Mul(n, ph.Int(1+ax))
		weakU[ax] = flux.Mul(n, ph.Avg(1+ax))
	}
	weak := flux.Add(weakU...)
	if sw.FluxType == FluxUpwind {
		weak = flux.Add(weak, flux.Scale(-0.5*sw.sign(), ph.Jump(0)))
	}
	rows[0] = flux.Scale(-sw.Speed, flux.Add(flux.Add(strongU...), flux.Negate(weak)))

	var jumpDotN flux.Node
	if sw.FluxType == FluxUpwind {
		jumps := make([]flux.Node, sw.Dim)
		for ax := 0; ax < sw.Dim; ax++ {
			jumps[ax] = flux.Mul(flux.NewNormal(ax), ph.Jump(1+ax))
		}
		jumpDotN = flux.Add(jumps...)
	}
	for ax := 0; ax < sw.Dim; ax++ {
		n := flux.NewNormal(ax)
		weak := flux.Mul(n, ph.Avg(0))
		if sw.FluxType == FluxUpwind {
			weak = flux.Add(weak, flux.Scale(-0.5*sw.sign(), flux.Mul(n, jumpDotN)))
		}
		rows[1+ax] = flux.Scale(-sw.Speed, flux.Add(flux.Mul(n, ph.Int(0)), flux.Negate(weak)))
	}
	return rows
}

func boundarize(tag sym.Tag, n sym.Node) sym.Node {
	return sym.NewBinding(sym.NewBoundarize(tag), n)
}
