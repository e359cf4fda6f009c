package lower

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-dg/fluxion/sym"
)

func TestBindOperators(t *testing.T) {
	u := sym.NewVar("u")
	v := sym.NewVar("v")
	c := sym.NewScalarParam("c")
	mass := sym.NewMass()
	stiff := sym.NewStiffness(0)

	tests := []struct {
		name string
		in   sym.Node
		want sym.Node
	}{
		{
			name: "operator leading a product binds",
			in:   sym.NewProduct(mass, u),
			want: sym.NewBinding(mass, u),
		},
		{
			name: "operator binds over the whole rest",
			in:   sym.NewProduct(stiff, c, u),
			want: sym.NewBinding(stiff, sym.NewProduct(c, u)),
		},
		{
			name: "non-operator head keeps its place",
			in:   sym.NewProduct(c, mass, u),
			want: sym.NewProduct(c, sym.NewBinding(mass, u)),
		},
		{
			name: "chained operators bind inside out",
			in:   sym.NewProduct(sym.NewInverseMass(), mass, u),
			want: sym.NewBinding(sym.NewInverseMass(), sym.NewBinding(mass, u)),
		},
		{
			name: "trailing operator is not bound",
			in:   sym.NewProduct(u, mass),
			want: sym.NewProduct(u, mass),
		},
		{
			name: "sums bind per term",
			in:   sym.Add(sym.NewProduct(mass, u), v),
			want: sym.Add(sym.NewBinding(mass, u), v),
		},
		{
			name: "bound trees stay bound",
			in:   sym.NewBinding(mass, u),
			want: sym.NewBinding(mass, u),
		},
		{
			name: "plain product nests behind the head",
			in:   sym.NewProduct(c, u, v),
			want: sym.NewProduct(c, sym.NewProduct(u, v)),
		},
		{
			name: "unit factor collapses",
			in:   sym.NewProduct(u, sym.NewConst(1)),
			want: u,
		},
		{
			name: "literal factors fold",
			in:   sym.NewProduct(sym.NewConst(2), sym.NewConst(3)),
			want: sym.NewConst(6),
		},
		{
			name: "empty product is unchanged",
			in:   sym.NewProduct(),
			want: sym.NewProduct(),
		},
		{
			name: "subexpression marker binds its child",
			in:   sym.NewCSE(sym.NewProduct(mass, u), "mu"),
			want: sym.NewCSE(sym.NewBinding(mass, u), "mu"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BindOperators(tt.in)
			require.NoError(t, err)
			assert.True(t, sym.Equal(tt.want, got),
				"got %s, want %s", sym.Format(got), sym.Format(tt.want))
		})
	}
}

func TestBindOperatorsSharesBoundTree(t *testing.T) {
	u := sym.NewVar("u")
	bound := sym.NewBinding(sym.NewMass(), sym.Add(u, sym.NewVar("v")))

	got, err := BindOperators(bound)
	require.NoError(t, err)
	assert.Same(t, sym.Node(bound), got, "an already-bound tree rebinds to itself")
}

// genTemplate generates raw templates the way frontends write them, with
// operators mixed into products as plain factors.
func genTemplate(depth int) gopter.Gen {
	leaf := gen.OneGenOf(
		gen.OneConstOf("u", "v", "w").Map(func(s string) sym.Node { return sym.NewVar(s) }),
		gen.OneConstOf("c", "nu").Map(func(s string) sym.Node { return sym.NewScalarParam(s) }),
		gen.Float64Range(-4, 4).Map(func(f float64) sym.Node { return sym.NewConst(f) }),
	)
	if depth <= 0 {
		return leaf
	}
	child := genTemplate(depth - 1)
	operator := gen.OneGenOf(
		gen.IntRange(0, 2).Map(func(ax int) sym.Node { return sym.NewStiffness(ax) }),
		gen.IntRange(0, 2).Map(func(ax int) sym.Node { return sym.NewStiffnessT(ax) }),
		gen.OneConstOf("m", "minv").Map(func(s string) sym.Node {
			if s == "m" {
				return sym.NewMass()
			}
			return sym.NewInverseMass()
		}),
	)
	return gen.OneGenOf(
		leaf,
		gopter.CombineGens(operator, child).Map(func(vals []any) sym.Node {
			return sym.NewProduct(vals[0].(sym.Node), vals[1].(sym.Node))
		}),
		gopter.CombineGens(child, child).Map(func(vals []any) sym.Node {
			return sym.Add(vals[0].(sym.Node), vals[1].(sym.Node))
		}),
		gopter.CombineGens(child, child).Map(func(vals []any) sym.Node {
			return sym.NewProduct(vals[0].(sym.Node), vals[1].(sym.Node))
		}),
		child.Map(func(n sym.Node) sym.Node { return sym.NewCSE(n, "tmp") }),
	)
}

func TestBindOperatorsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("binding twice equals binding once", prop.ForAll(
		func(n sym.Node) bool {
			once, err := BindOperators(n)
			if err != nil {
				return false
			}
			twice, err := BindOperators(once)
			if err != nil {
				return false
			}
			return sym.Equal(once, twice)
		},
		genTemplate(4),
	))

	properties.TestingRun(t)
}
