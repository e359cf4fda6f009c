package sym

// Add builds a sum, flattening nested sums. No terms yields Const(0), a
// single term is returned as is.
func Add(terms ...Node) Node {
	flat := make([]Node, 0, len(terms))
	for _, t := range terms {
		if s, ok := t.(*Sum); ok {
			flat = append(flat, s.Terms()...)
			continue
		}
		flat = append(flat, t)
	}
	switch len(flat) {
	case 0:
		return NewConst(0)
	case 1:
		return flat[0]
	}
	return NewSum(flat...)
}

// Mul builds a product, flattening nested products. No factors yields
// Const(1), a single factor is returned as is.
func Mul(factors ...Node) Node {
	flat := make([]Node, 0, len(factors))
	for _, f := range factors {
		if p, ok := f.(*Product); ok {
			flat = append(flat, p.Factors()...)
			continue
		}
		flat = append(flat, f)
	}
	switch len(flat) {
	case 0:
		return NewConst(1)
	case 1:
		return flat[0]
	}
	return NewProduct(flat...)
}

// Negate multiplies by -1.
func Negate(n Node) Node { return Mul(NewConst(-1), n) }

// ScaleBy multiplies by a constant.
func ScaleBy(c float64, n Node) Node { return Mul(NewConst(c), n) }

// Sub builds a - b.
func Sub(a, b Node) Node { return Add(a, Negate(b)) }

// MakeVectorField returns the n subscripted components of the named
// vector field.
func MakeVectorField(name string, n int) *Vector {
	v := NewVar(name)
	comps := make([]Node, n)
	for i := range comps {
		comps[i] = NewSubscript(v, i)
	}
	return NewVector(comps...)
}

// MakeNormal returns the outward boundary normal over tag as a vector of
// components.
func MakeNormal(tag Tag, dim int) *Vector {
	comps := make([]Node, dim)
	for ax := range comps {
		comps[ax] = NewNormalComponent(tag, ax)
	}
	return NewVector(comps...)
}

// Nabla returns the per-axis differentiation operators.
func Nabla(dim int) []Operator {
	ops := make([]Operator, dim)
	for ax := range ops {
		ops[ax] = NewDiff(ax)
	}
	return ops
}

// MakeStiffnessT returns the per-axis transposed stiffness operators.
func MakeStiffnessT(dim int) []Operator {
	ops := make([]Operator, dim)
	for ax := range ops {
		ops[ax] = NewStiffnessT(ax)
	}
	return ops
}
