package lower

import "github.com/fluxion-dg/fluxion/sym"

// Split restricts a template to the state variables keep selects: every
// other state variable, and every subscripted component of one, becomes
// zero, and the result is constant-folded. Multirate time stepping uses
// this to carve the per-rate right-hand sides out of one coupled
// template.
func Split(template sym.Node, keep func(*sym.Var) bool) (sym.Node, error) {
	zeroed, err := sym.Substitute(template, func(n sym.Node) (sym.Node, bool) {
		switch n := n.(type) {
		case *sym.Var:
			if !keep(n) {
				return sym.NewConst(0), true
			}
		case *sym.Subscript:
			if v, ok := n.Aggregate().(*sym.Var); ok && !keep(v) {
				return sym.NewConst(0), true
			}
		}
		return nil, false
	})
	if err != nil {
		return nil, err
	}
	return FoldConstants(zeroed)
}
