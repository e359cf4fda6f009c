package sym

// checkBoundaryTags walks a boundary-side expression and verifies that
// every tagged node agrees with the enclosing pair's tag. The operands of
// Boundarize and FluxExchange bindings are volume data and are not
// inspected; nested boundary pairs scope their own tag.
func checkBoundaryTags(bfield Node, tag Tag) error {
	var walk func(Node) error
	walk = func(n Node) error {
		switch n := n.(type) {
		case *NormalComponent:
			if n.Tag() != tag {
				return NewTagMismatchError(n.Tag(), tag, "normal component")
			}
		case *Boundarize:
			if n.Tag() != tag {
				return NewTagMismatchError(n.Tag(), tag, "boundary restriction")
			}
		case *FluxExchange:
			if n.BoundaryTag() != tag {
				return NewTagMismatchError(n.BoundaryTag(), tag, "flux exchange")
			}
		case *Binding:
			switch op := n.Op().(type) {
			case *Boundarize:
				if op.Tag() != tag {
					return NewTagMismatchError(op.Tag(), tag, "boundary restriction")
				}
				return nil // operand is volume data
			case *FluxExchange:
				if op.BoundaryTag() != tag {
					return NewTagMismatchError(op.BoundaryTag(), tag, "flux exchange")
				}
				return nil
			}
			if err := walk(n.Op()); err != nil {
				return err
			}
			return walk(n.Field())
		case *BoundaryPair:
			return nil
		case *Subscript:
			return walk(n.Aggregate())
		case *Sum:
			for _, t := range n.Terms() {
				if err := walk(t); err != nil {
					return err
				}
			}
		case *Product:
			for _, f := range n.Factors() {
				if err := walk(f); err != nil {
					return err
				}
			}
		case *Vector:
			for _, c := range n.Comps() {
				if err := walk(c); err != nil {
					return err
				}
			}
		case *CSE:
			return walk(n.Child())
		}
		return nil
	}
	return walk(bfield)
}

// checkNamespaces verifies that no quantity appears in both the volume and
// the boundary dependency set of a pair. Dependencies are taken with
// bindings as leaves, so a Boundarize binding of u is a boundary
// dependency without making u itself one.
func checkNamespaces(field, bfield Node) error {
	volDeps, err := Dependencies(field, DependencyOptions{IncludeBindings: true})
	if err != nil {
		return err
	}
	bdryDeps, err := Dependencies(bfield, DependencyOptions{IncludeBindings: true})
	if err != nil {
		return err
	}
	shared := volDeps.Intersect(bdryDeps)
	if shared.Len() == 0 {
		return nil
	}
	return NewBoundaryNamespaceError(shared.Names())
}
