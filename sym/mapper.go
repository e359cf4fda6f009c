package sym

// RewriteFunc produces a replacement for one node. Traversal drivers hand
// a RewriteFunc to per-node handlers so the handler decides where to
// recurse.
type RewriteFunc func(Node) (Node, error)

// Transformer is one rewriting traversal: Transform receives each node
// together with the recursion handle for its subtrees. A transformer that
// does not care about a node calls RebuildChildren(n, rec) to rebuild it
// generically.
type Transformer interface {
	Transform(n Node, rec RewriteFunc) (Node, error)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(n Node, rec RewriteFunc) (Node, error)

func (f TransformerFunc) Transform(n Node, rec RewriteFunc) (Node, error) { return f(n, rec) }

// Transform rewrites n with tr, memoizing the rewrite of common
// subexpressions: the first CSE reached with a given child is rewritten
// through tr, and every structurally equal CSE reuses that result. The
// cache lives for this invocation only and is keyed by the child's
// digest, mirroring CSE identity.
func Transform(n Node, tr Transformer) (Node, error) {
	w := &walker{tr: tr, memo: map[Digest]Node{}}
	return w.rewrite(n)
}

// TransformNoCache rewrites n with tr without CSE memoization. It is
// semantically equivalent to Transform and exists so callers can bypass
// or validate the cache.
func TransformNoCache(n Node, tr Transformer) (Node, error) {
	w := &walker{tr: tr}
	return w.rewrite(n)
}

type walker struct {
	tr   Transformer
	memo map[Digest]Node // CSE rewrites by child digest; nil disables
}

func (w *walker) rewrite(n Node) (Node, error) {
	cse, ok := n.(*CSE)
	if !ok || w.memo == nil {
		return w.tr.Transform(n, w.rewrite)
	}
	key := cse.Child().Digest()
	if r, ok := w.memo[key]; ok {
		return r, nil
	}
	r, err := w.tr.Transform(cse, w.rewrite)
	if err != nil {
		return nil, err
	}
	w.memo[key] = r
	return r, nil
}

// RebuildChildren rebuilds n with rec applied to each child, preserving
// the node's shape. Leaves, including lone operators, return unchanged.
// If no child changes, n itself is returned so rewrites share unchanged
// subtrees. Rewriting the operator position of a Binding must yield an
// Operator; anything else is an error.
func RebuildChildren(n Node, rec RewriteFunc) (Node, error) {
	switch n := n.(type) {
	case *Var, *ScalarParam, *Const, *NormalComponent:
		return n, nil

	case Operator:
		return n, nil

	case *Subscript:
		agg, err := rec(n.Aggregate())
		if err != nil {
			return nil, err
		}
		if Equal(agg, n.Aggregate()) {
			return n, nil
		}
		return NewSubscript(agg, n.Index()), nil

	case *Sum:
		terms, changed, err := rebuildAll(n.Terms(), rec)
		if err != nil {
			return nil, err
		}
		if !changed {
			return n, nil
		}
		return NewSum(terms...), nil

	case *Product:
		factors, changed, err := rebuildAll(n.Factors(), rec)
		if err != nil {
			return nil, err
		}
		if !changed {
			return n, nil
		}
		return NewProduct(factors...), nil

	case *Vector:
		comps, changed, err := rebuildAll(n.Comps(), rec)
		if err != nil {
			return nil, err
		}
		if !changed {
			return n, nil
		}
		return NewVector(comps...), nil

	case *CSE:
		child, err := rec(n.Child())
		if err != nil {
			return nil, err
		}
		if Equal(child, n.Child()) {
			return n, nil
		}
		return NewPrioritizedCSE(child, n.Prefix(), n.Priority()), nil

	case *Binding:
		opNode, err := rec(n.Op())
		if err != nil {
			return nil, err
		}
		op, ok := opNode.(Operator)
		if !ok {
			return nil, badOperandErr("rewrite of operator position produced %T", opNode)
		}
		field, err := rec(n.Field())
		if err != nil {
			return nil, err
		}
		if Equal(op, n.Op()) && Equal(field, n.Field()) {
			return n, nil
		}
		return NewBinding(op, field), nil

	case *BoundaryPair:
		field, err := rec(n.Field())
		if err != nil {
			return nil, err
		}
		bfield, err := rec(n.BField())
		if err != nil {
			return nil, err
		}
		if Equal(field, n.Field()) && Equal(bfield, n.BField()) {
			return n, nil
		}
		p, err := NewBoundaryPair(field, bfield, n.Tag())
		if err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, internalErr("unhandled node type %T", n)
	}
}

func rebuildAll(ns []Node, rec RewriteFunc) ([]Node, bool, error) {
	out := make([]Node, len(ns))
	changed := false
	for i, n := range ns {
		r, err := rec(n)
		if err != nil {
			return nil, false, err
		}
		out[i] = r
		if !Equal(r, n) {
			changed = true
		}
	}
	return out, changed, nil
}

// identity is the transformer that rebuilds every node unchanged.
type identity struct{}

func (identity) Transform(n Node, rec RewriteFunc) (Node, error) {
	return RebuildChildren(n, rec)
}
