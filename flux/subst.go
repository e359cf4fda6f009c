package flux

import "sort"

// Substitute rebuilds n, replacing every node for which fn returns a
// replacement. Replacements are used as is: Substitute does not descend
// into them. Nodes without a replacement are rebuilt from their
// substituted children; leaves without a replacement are returned
// unchanged.
func Substitute(n Node, fn func(Node) (Node, bool)) Node {
	if r, ok := fn(n); ok {
		return r
	}
	switch n := n.(type) {
	case *Const, *Normal, *FieldComponent, *PenaltyTerm:
		return n
	case *IfPositive:
		crit := Substitute(n.criterion, fn)
		then := Substitute(n.then, fn)
		els := Substitute(n.els, fn)
		if Equal(crit, n.criterion) && Equal(then, n.then) && Equal(els, n.els) {
			return n
		}
		return NewIfPositive(crit, then, els)
	case *Sum:
		terms, changed := substituteAll(n.terms, fn)
		if !changed {
			return n
		}
		return NewSum(terms...)
	case *Product:
		factors, changed := substituteAll(n.factors, fn)
		if !changed {
			return n
		}
		return NewProduct(factors...)
	}
	return n
}

func substituteAll(ns []Node, fn func(Node) (Node, bool)) ([]Node, bool) {
	out := make([]Node, len(ns))
	changed := false
	for i, n := range ns {
		out[i] = Substitute(n, fn)
		if !Equal(out[i], n) {
			changed = true
		}
	}
	return out, changed
}

// ExteriorComponents returns the distinct indices of exterior field
// components referenced by n, in ascending order.
func ExteriorComponents(n Node) []int {
	seen := map[int]bool{}
	collectExterior(n, seen)
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func collectExterior(n Node, seen map[int]bool) {
	switch n := n.(type) {
	case *FieldComponent:
		if !n.interior {
			seen[n.index] = true
		}
	case *IfPositive:
		collectExterior(n.criterion, seen)
		collectExterior(n.then, seen)
		collectExterior(n.els, seen)
	case *Sum:
		for _, t := range n.terms {
			collectExterior(t, seen)
		}
	case *Product:
		for _, f := range n.factors {
			collectExterior(f, seen)
		}
	}
}
