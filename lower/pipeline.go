package lower

import (
	"context"
	"fmt"

	"goa.design/clue/log"

	"github.com/fluxion-dg/fluxion/sym"
)

// Pipeline runs the lowering passes in order over one template: bind,
// rewrite boundary conditions, contract inverse masses, kill empty
// fluxes, fold constants. Boundary rewriting precedes contraction
// because it applies to plain Flux bindings and contraction renames
// those under an inverse mass to LiftingFlux.
//
// Geometry enables empty-flux elimination; leaving it nil skips that
// stage. The zero value runs the geometry-independent passes. A Pipeline
// carries no per-run state and is safe to reuse.
type Pipeline struct {
	Geometry BoundaryGeometry
}

type stage struct {
	name string
	run  func(sym.Node) (sym.Node, error)
}

// Run lowers template, logging each stage's node counts at debug level.
func (p Pipeline) Run(ctx context.Context, template sym.Node) (sym.Node, error) {
	stages := []stage{
		{"bind-operators", BindOperators},
		{"rewrite-boundary-conditions", RewriteBCs},
		{"contract-inverse-mass", ContractInverseMass},
	}
	if p.Geometry != nil {
		stages = append(stages, stage{"kill-empty-fluxes", func(n sym.Node) (sym.Node, error) {
			return KillEmptyFluxes(n, p.Geometry)
		}})
	}
	stages = append(stages, stage{"fold-constants", FoldConstants})

	n := template
	for _, st := range stages {
		out, err := st.run(n)
		if err != nil {
			return nil, fmt.Errorf("lower %s: %w", st.name, err)
		}
		log.Debug(ctx, log.KV{K: "msg", V: "lowered stage"},
			log.KV{K: "stage", V: st.name},
			log.KV{K: "nodes_in", V: sym.CountNodes(n)},
			log.KV{K: "nodes_out", V: sym.CountNodes(out)})
		n = out
	}
	return n, nil
}
