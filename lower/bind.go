package lower

import "github.com/fluxion-dg/fluxion/sym"

// BindOperators canonicalizes operator application: every product whose
// leading factor is an operator becomes an explicit Binding of that
// operator over the bound rest of the product. Templates write Mass*u as
// a product; evaluation wants Binding(Mass, u).
//
// Only the leading factor of a product is eligible. Operators deeper in a
// factor list stay where they are until recursion reaches the subproduct
// they lead. The pass is idempotent: a bound tree binds to itself.
func BindOperators(n sym.Node) (sym.Node, error) {
	return sym.Transform(n, sym.TransformerFunc(bindProducts))
}

func bindProducts(n sym.Node, rec sym.RewriteFunc) (sym.Node, error) {
	p, ok := n.(*sym.Product)
	if !ok {
		return sym.RebuildChildren(n, rec)
	}
	factors := p.Factors()
	if len(factors) == 0 {
		return p, nil
	}
	rest, err := rec(sym.Mul(factors[1:]...))
	if err != nil {
		return nil, err
	}
	if op, ok := factors[0].(sym.Operator); ok {
		return sym.NewBinding(op, rest), nil
	}
	return mulPair(factors[0], rest), nil
}

// mulPair rejoins a non-operator leading factor with the bound rest as a
// binary product, collapsing literal identities so repeated binding does
// not accumulate unit factors. The head is deliberately not flattened
// into the rest; rebinding must leave a bound tree alone.
func mulPair(a, b sym.Node) sym.Node {
	ca, aConst := a.(*sym.Const)
	cb, bConst := b.(*sym.Const)
	switch {
	case aConst && bConst:
		return sym.NewConst(ca.Value() * cb.Value())
	case sym.IsZero(a) || sym.IsZero(b):
		return sym.NewConst(0)
	case sym.IsOne(a):
		return b
	case sym.IsOne(b):
		return a
	}
	return sym.NewProduct(a, b)
}
