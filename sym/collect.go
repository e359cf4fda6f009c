package sym

import "sort"

// CollectBindings returns the distinct bound operators in n whose
// operator satisfies match, ordered by digest. Matching bindings are
// still traversed, so nested matches inside an operand are found too.
func CollectBindings(n Node, match func(Operator) bool) ([]*Binding, error) {
	r := Reducer[NodeSet]{
		Zero:    func() NodeSet { return NewNodeSet() },
		Combine: NodeSet.Union,
		Binding: func(b *Binding, rec Recur[NodeSet]) (NodeSet, error) {
			inner, err := rec(b.Field())
			if err != nil {
				return NodeSet{}, err
			}
			if match(b.Op()) {
				inner.Add(b)
			}
			return inner, nil
		},
	}
	set, err := r.Reduce(n)
	if err != nil {
		return nil, err
	}
	out := make([]*Binding, 0, set.Len())
	for _, m := range set.Sorted() {
		out = append(out, m.(*Binding))
	}
	return out, nil
}

// CollectFluxBindings returns the distinct flux-family bound operators in
// n, ordered by digest. Backends use this to plan face exchanges before
// evaluation.
func CollectFluxBindings(n Node) ([]*Binding, error) {
	return CollectBindings(n, IsFluxKind)
}

type tagSet map[Tag]struct{}

func (s tagSet) union(t tagSet) tagSet {
	for k := range t {
		s[k] = struct{}{}
	}
	return s
}

// CollectBoundaryTags returns every tag appearing in n, sorted: boundary
// pair tags, normal components, boundary restrictions, and the implied
// rank-boundary tags of flux exchanges.
func CollectBoundaryTags(n Node) ([]Tag, error) {
	r := Reducer[tagSet]{
		Zero:    func() tagSet { return tagSet{} },
		Combine: tagSet.union,
		NormalComponent: func(nc *NormalComponent) (tagSet, error) {
			return tagSet{nc.Tag(): {}}, nil
		},
		Operator: func(op Operator) (tagSet, error) {
			switch op := op.(type) {
			case *Boundarize:
				return tagSet{op.Tag(): {}}, nil
			case *FluxExchange:
				return tagSet{op.BoundaryTag(): {}}, nil
			}
			return tagSet{}, nil
		},
		BoundaryPair: func(p *BoundaryPair, rec Recur[tagSet]) (tagSet, error) {
			vol, err := rec(p.Field())
			if err != nil {
				return nil, err
			}
			bdry, err := rec(p.BField())
			if err != nil {
				return nil, err
			}
			set := vol.union(bdry)
			set[p.Tag()] = struct{}{}
			return set, nil
		},
	}
	set, err := r.Reduce(n)
	if err != nil {
		return nil, err
	}
	out := make([]Tag, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// CountFlops estimates the floating-point operations one evaluation of n
// performs at the template level: an n-term sum costs n-1 additions, an
// n-factor product n-1 multiplications. Operator applications and flux
// formulas are not costed; their work depends on the discretization.
func CountFlops(n Node) (int, error) {
	r := Reducer[int]{
		Zero:    func() int { return 0 },
		Combine: func(a, b int) int { return a + b },
		Sum: func(s *Sum, rec Recur[int]) (int, error) {
			return countNary(s.Terms(), rec)
		},
		Product: func(p *Product, rec Recur[int]) (int, error) {
			return countNary(p.Factors(), rec)
		},
	}
	return r.Reduce(n)
}

func countNary(ns []Node, rec Recur[int]) (int, error) {
	total := 0
	for _, n := range ns {
		c, err := rec(n)
		if err != nil {
			return 0, err
		}
		total += c
	}
	if len(ns) > 1 {
		total += len(ns) - 1
	}
	return total, nil
}
