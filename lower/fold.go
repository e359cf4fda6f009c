package lower

import "github.com/fluxion-dg/fluxion/sym"

// FoldConstants merges literal arithmetic bottom-up: constant terms of a
// sum combine into one leading constant, constant factors of a product
// likewise, additive and multiplicative identities drop out, and a
// product containing zero collapses to zero. Nested sums and products
// flatten as they fold. The pass cleans up the Const(0) terms boundary
// rewriting and empty-flux elimination leave inside sums.
func FoldConstants(n sym.Node) (sym.Node, error) {
	return sym.Transform(n, sym.TransformerFunc(foldNode))
}

func foldNode(n sym.Node, rec sym.RewriteFunc) (sym.Node, error) {
	switch n := n.(type) {
	case *sym.Sum:
		acc := 0.0
		rest := make([]sym.Node, 0, len(n.Terms()))
		for _, t := range n.Terms() {
			r, err := rec(t)
			if err != nil {
				return nil, err
			}
			switch r := r.(type) {
			case *sym.Const:
				acc += r.Value()
			case *sym.Sum:
				for _, inner := range r.Terms() {
					if c, ok := inner.(*sym.Const); ok {
						acc += c.Value()
						continue
					}
					rest = append(rest, inner)
				}
			default:
				rest = append(rest, r)
			}
		}
		return foldedSum(acc, rest), nil

	case *sym.Product:
		acc := 1.0
		rest := make([]sym.Node, 0, len(n.Factors()))
		for _, f := range n.Factors() {
			r, err := rec(f)
			if err != nil {
				return nil, err
			}
			switch r := r.(type) {
			case *sym.Const:
				acc *= r.Value()
			case *sym.Product:
				for _, inner := range r.Factors() {
					if c, ok := inner.(*sym.Const); ok {
						acc *= c.Value()
						continue
					}
					rest = append(rest, inner)
				}
			default:
				rest = append(rest, r)
			}
		}
		if acc == 0 {
			return sym.NewConst(0), nil
		}
		return foldedProduct(acc, rest), nil

	default:
		return sym.RebuildChildren(n, rec)
	}
}

func foldedSum(acc float64, rest []sym.Node) sym.Node {
	if acc != 0 {
		rest = append([]sym.Node{sym.NewConst(acc)}, rest...)
	}
	switch len(rest) {
	case 0:
		return sym.NewConst(0)
	case 1:
		return rest[0]
	}
	return sym.NewSum(rest...)
}

func foldedProduct(acc float64, rest []sym.Node) sym.Node {
	if acc != 1 {
		rest = append([]sym.Node{sym.NewConst(acc)}, rest...)
	}
	switch len(rest) {
	case 0:
		return sym.NewConst(1)
	case 1:
		return rest[0]
	}
	return sym.NewProduct(rest...)
}
