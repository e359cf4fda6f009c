package serial

import (
	"context"

	"github.com/fluxion-dg/fluxion/lower"
	"github.com/fluxion-dg/fluxion/sym"
)

var (
	_ sym.OperatorActions    = (*Discretization)(nil)
	_ lower.BoundaryGeometry = (*Discretization)(nil)
)

// CompileOptions adjusts template compilation. The zero value is the
// default.
type CompileOptions struct {
	// KeepEmptyFluxes skips the geometry-driven elimination of flux terms
	// over boundary regions without nodes, preserving them in the compiled
	// tree.
	KeepEmptyFluxes bool
}

// CompiledOp is a lowered template bound to the discretization that
// compiled it. It is safe for concurrent Call invocations.
type CompiledOp struct {
	discr *Discretization
	tree  sym.Node
}

// Compile lowers template against the discretization's geometry and binds
// it to the discretization's operator actions. A nil opts uses defaults.
func (d *Discretization) Compile(ctx context.Context, template sym.Node, opts *CompileOptions) (*CompiledOp, error) {
	p := lower.Pipeline{Geometry: d}
	if opts != nil && opts.KeepEmptyFluxes {
		p.Geometry = nil
	}
	tree, err := p.Run(ctx, template)
	if err != nil {
		return nil, err
	}
	return &CompiledOp{discr: d, tree: tree}, nil
}

// Tree returns the lowered template.
func (op *CompiledOp) Tree() sym.Node { return op.tree }

// Call evaluates the compiled template against env.
func (op *CompiledOp) Call(ctx context.Context, env sym.Environment) (sym.Value, error) {
	ev := &sym.Evaluator{Env: env, Actions: op.discr}
	return ev.Eval(ctx, op.tree)
}
