package sym

import "sort"

// NodeSet is a set of nodes keyed by structural identity. The zero value
// is not usable; call NewNodeSet.
type NodeSet struct {
	m map[Digest]Node
}

func NewNodeSet(ns ...Node) NodeSet {
	s := NodeSet{m: make(map[Digest]Node, len(ns))}
	for _, n := range ns {
		s.Add(n)
	}
	return s
}

func (s NodeSet) Len() int { return len(s.m) }

func (s NodeSet) Has(n Node) bool {
	_, ok := s.m[n.Digest()]
	return ok
}

func (s NodeSet) Add(n Node) {
	s.m[n.Digest()] = n
}

// Union returns a new set containing the members of both sets.
func (s NodeSet) Union(t NodeSet) NodeSet {
	u := NodeSet{m: make(map[Digest]Node, len(s.m)+len(t.m))}
	for d, n := range s.m {
		u.m[d] = n
	}
	for d, n := range t.m {
		u.m[d] = n
	}
	return u
}

// Intersect returns a new set containing the members present in both sets.
func (s NodeSet) Intersect(t NodeSet) NodeSet {
	u := NewNodeSet()
	for d, n := range s.m {
		if _, ok := t.m[d]; ok {
			u.m[d] = n
		}
	}
	return u
}

// Sorted returns the members ordered by digest, for deterministic output.
func (s NodeSet) Sorted() []Node {
	out := make([]Node, 0, len(s.m))
	for _, n := range s.m {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Digest(), out[j].Digest()
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return out
}

// Names returns the sorted names of the Var, Subscript, and ScalarParam
// members, formatting subscripts as name[i]. Members of other kinds are
// rendered with Format.
func (s NodeSet) Names() []string {
	out := make([]string, 0, len(s.m))
	for _, n := range s.m {
		out = append(out, Format(n))
	}
	sort.Strings(out)
	return out
}
