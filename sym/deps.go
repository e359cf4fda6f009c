package sym

// DependencyOptions control dependency analysis.
type DependencyOptions struct {
	// IncludeBindings treats each Binding as a leaf dependency in its own
	// right instead of traversing its operator and operand. This is how
	// boundary-pair validation distinguishes Boundarize(tag)(u), a
	// boundary quantity, from the volume quantity u it restricts.
	IncludeBindings bool
}

// Dependencies returns the set of quantities n depends on: variables,
// subscripted variable components, and scalar parameters. Constants,
// normal components, and lone operators contribute nothing. With
// IncludeBindings, bound operators are themselves leaf dependencies.
func Dependencies(n Node, opts DependencyOptions) (NodeSet, error) {
	r := Reducer[NodeSet]{
		Zero:    func() NodeSet { return NewNodeSet() },
		Combine: NodeSet.Union,
		Var: func(v *Var) (NodeSet, error) {
			return NewNodeSet(v), nil
		},
		Subscript: func(s *Subscript, _ Recur[NodeSet]) (NodeSet, error) {
			return NewNodeSet(s), nil
		},
		ScalarParam: func(p *ScalarParam) (NodeSet, error) {
			return NewNodeSet(p), nil
		},
	}
	if opts.IncludeBindings {
		r.Binding = func(b *Binding, _ Recur[NodeSet]) (NodeSet, error) {
			return NewNodeSet(b), nil
		}
	}
	return r.Reduce(n)
}
