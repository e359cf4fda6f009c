package sym

// Substitute rebuilds n, replacing every node for which fn returns a
// replacement. Replacements are used as is, without further substitution
// inside them. CSE rewrites are memoized as in Transform.
func Substitute(n Node, fn func(Node) (Node, bool)) (Node, error) {
	return Transform(n, TransformerFunc(func(n Node, rec RewriteFunc) (Node, error) {
		if r, ok := fn(n); ok {
			return r, nil
		}
		return RebuildChildren(n, rec)
	}))
}

// SubstituteVars replaces variables by name. Subscripts of a replaced
// variable are not touched; include them in the map explicitly by
// substituting on the subscript nodes instead.
func SubstituteVars(n Node, repl map[string]Node) (Node, error) {
	return Substitute(n, func(n Node) (Node, bool) {
		v, ok := n.(*Var)
		if !ok {
			return nil, false
		}
		r, ok := repl[v.Name()]
		return r, ok
	})
}
