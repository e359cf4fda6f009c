package sym

// Recur recurses a reduction into a subtree.
type Recur[T any] func(Node) (T, error)

// Reducer folds a tree into a summary value. Combine must be associative;
// Zero is the value of nodes that contribute nothing. Per-variant hooks
// override the generic scheme, which reduces leaves to Zero and composites
// to the combination of their children (a Binding combines operator and
// operand, a CSE reduces through its child, a BoundaryPair combines both
// sides).
//
// Collectors and dependency analysis are Reducers over NodeSet; counters
// are Reducers over int.
type Reducer[T any] struct {
	Zero    func() T
	Combine func(a, b T) T

	// Leaf hooks.
	Var             func(*Var) (T, error)
	Subscript       func(*Subscript, Recur[T]) (T, error)
	ScalarParam     func(*ScalarParam) (T, error)
	Const           func(*Const) (T, error)
	NormalComponent func(*NormalComponent) (T, error)
	Operator        func(Operator) (T, error)

	// Composite hooks.
	Sum          func(*Sum, Recur[T]) (T, error)
	Product      func(*Product, Recur[T]) (T, error)
	Vector       func(*Vector, Recur[T]) (T, error)
	CSE          func(*CSE, Recur[T]) (T, error)
	Binding      func(*Binding, Recur[T]) (T, error)
	BoundaryPair func(*BoundaryPair, Recur[T]) (T, error)
}

// Reduce folds n.
func (r Reducer[T]) Reduce(n Node) (T, error) {
	switch n := n.(type) {
	case *Var:
		if r.Var != nil {
			return r.Var(n)
		}
		return r.Zero(), nil
	case *Subscript:
		if r.Subscript != nil {
			return r.Subscript(n, r.Reduce)
		}
		return r.Reduce(n.Aggregate())
	case *ScalarParam:
		if r.ScalarParam != nil {
			return r.ScalarParam(n)
		}
		return r.Zero(), nil
	case *Const:
		if r.Const != nil {
			return r.Const(n)
		}
		return r.Zero(), nil
	case *NormalComponent:
		if r.NormalComponent != nil {
			return r.NormalComponent(n)
		}
		return r.Zero(), nil
	case Operator:
		if r.Operator != nil {
			return r.Operator(n)
		}
		return r.Zero(), nil
	case *Sum:
		if r.Sum != nil {
			return r.Sum(n, r.Reduce)
		}
		return r.all(n.Terms())
	case *Product:
		if r.Product != nil {
			return r.Product(n, r.Reduce)
		}
		return r.all(n.Factors())
	case *Vector:
		if r.Vector != nil {
			return r.Vector(n, r.Reduce)
		}
		return r.all(n.Comps())
	case *CSE:
		if r.CSE != nil {
			return r.CSE(n, r.Reduce)
		}
		return r.Reduce(n.Child())
	case *Binding:
		if r.Binding != nil {
			return r.Binding(n, r.Reduce)
		}
		return r.all([]Node{n.Op(), n.Field()})
	case *BoundaryPair:
		if r.BoundaryPair != nil {
			return r.BoundaryPair(n, r.Reduce)
		}
		return r.all([]Node{n.Field(), n.BField()})
	default:
		var zero T
		return zero, internalErr("unhandled node type %T", n)
	}
}

func (r Reducer[T]) all(ns []Node) (T, error) {
	acc := r.Zero()
	for _, n := range ns {
		v, err := r.Reduce(n)
		if err != nil {
			var zero T
			return zero, err
		}
		acc = r.Combine(acc, v)
	}
	return acc, nil
}
