package lower

import "github.com/fluxion-dg/fluxion/sym"

// BoundaryGeometry reports how many discretization nodes lie on the
// boundary region a tag names. Lowering needs nothing else from the
// geometry.
type BoundaryGeometry interface {
	BoundaryNodeCount(tag sym.Tag) int
}

// KillEmptyFluxes replaces every flux-family binding over a boundary pair
// whose region holds no nodes with zero. Partitioned meshes routinely
// leave some ranks without a given boundary region; the term contributes
// nothing there and evaluating it would still cost a kernel launch.
func KillEmptyFluxes(n sym.Node, geo BoundaryGeometry) (sym.Node, error) {
	return sym.Transform(n, fluxKiller{geo: geo})
}

type fluxKiller struct {
	geo BoundaryGeometry
}

func (k fluxKiller) Transform(n sym.Node, rec sym.RewriteFunc) (sym.Node, error) {
	b, ok := n.(*sym.Binding)
	if !ok || !sym.IsFluxKind(b.Op()) {
		return sym.RebuildChildren(n, rec)
	}
	pair, ok := b.Field().(*sym.BoundaryPair)
	if !ok {
		return sym.RebuildChildren(b, rec)
	}
	if k.geo.BoundaryNodeCount(pair.Tag()) == 0 {
		return sym.NewConst(0), nil
	}
	return sym.RebuildChildren(b, rec)
}
