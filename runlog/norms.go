package runlog

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/fluxion-dg/fluxion/sym"
)

// ErrUnnamedQuantity is returned when a norm quantity is constructed
// with neither an explicit name nor a named getter to derive one from.
var ErrUnnamedQuantity = errors.New("must specify a name")

// NormContext supplies the discrete inner products a norm quantity is
// computed with. The serial discretization implements it.
type NormContext interface {
	// Integral returns the volume integral of the field.
	Integral(f sym.FieldData) (float64, error)
	// MassInner returns the mass-weighted inner product of two fields.
	MassInner(a, b sym.FieldData) (float64, error)
	// NodalMax returns the largest absolute nodal value.
	NodalMax(f sym.FieldData) (float64, error)
}

// Getter reads the current value of a state variable from the step
// loop. Name is the variable's name and is used to derive quantity
// names ("u" gives "l2_u").
type Getter struct {
	Name string
	Get  func() sym.FieldData
}

type normKind int

const (
	normIntegral normKind = iota
	normL1
	normL2
	normLInf
)

var normPrefix = map[normKind]string{
	normIntegral: "int",
	normL1:       "l1",
	normL2:       "l2",
	normLInf:     "linf",
}

var normLabel = map[normKind]string{
	normIntegral: "integral",
	normL1:       "L1 norm",
	normL2:       "L2 norm",
	normLInf:     "Linf norm",
}

// Norm is a quantity computed from a state variable through a
// NormContext each tick.
type Norm struct {
	name        string
	description string
	kind        normKind
	get         func() sym.FieldData
	nc          NormContext
}

// NewIntegral logs the volume integral of the variable. An empty name
// derives "int_<var>" from the getter.
func NewIntegral(g Getter, nc NormContext, name string) (*Norm, error) {
	return newNorm(normIntegral, g, nc, name)
}

// NewL1Norm logs the integral of the absolute value of the variable.
// An empty name derives "l1_<var>" from the getter.
func NewL1Norm(g Getter, nc NormContext, name string) (*Norm, error) {
	return newNorm(normL1, g, nc, name)
}

// NewL2Norm logs the mass-weighted L2 norm of the variable. An empty
// name derives "l2_<var>" from the getter.
func NewL2Norm(g Getter, nc NormContext, name string) (*Norm, error) {
	return newNorm(normL2, g, nc, name)
}

// NewLInfNorm logs the largest absolute nodal value of the variable.
// An empty name derives "linf_<var>" from the getter.
func NewLInfNorm(g Getter, nc NormContext, name string) (*Norm, error) {
	return newNorm(normLInf, g, nc, name)
}

func newNorm(kind normKind, g Getter, nc NormContext, name string) (*Norm, error) {
	what := normLabel[kind]
	if name == "" {
		if g.Name == "" {
			return nil, fmt.Errorf("%s quantity: %w", what, ErrUnnamedQuantity)
		}
		name = normPrefix[kind] + "_" + g.Name
	}
	if g.Get == nil {
		return nil, fmt.Errorf("%s quantity %s: getter is nil", what, name)
	}
	if nc == nil {
		return nil, fmt.Errorf("%s quantity %s: norm context is nil", what, name)
	}

	subject := g.Name
	if subject == "" {
		subject = name
	}
	return &Norm{
		name:        name,
		description: what + " of " + subject,
		kind:        kind,
		get:         g.Get,
		nc:          nc,
	}, nil
}

func (n *Norm) Name() string        { return n.name }
func (n *Norm) Unit() string        { return "1" }
func (n *Norm) Description() string { return n.description }

func (n *Norm) Sample(ctx context.Context) (float64, error) {
	f := n.get()
	switch n.kind {
	case normIntegral:
		return n.nc.Integral(f)
	case normL1:
		abs := make(sym.FieldData, len(f))
		for i, v := range f {
			abs[i] = math.Abs(v)
		}
		return n.nc.Integral(abs)
	case normL2:
		v, err := n.nc.MassInner(f, f)
		if err != nil {
			return 0, err
		}
		// Roundoff can push a zero inner product slightly negative.
		return math.Sqrt(math.Max(v, 0)), nil
	case normLInf:
		return n.nc.NodalMax(f)
	}
	return 0, fmt.Errorf("unknown norm kind %d", n.kind)
}
