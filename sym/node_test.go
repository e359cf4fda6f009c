package sym

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeSealed(t *testing.T) {
	// Compile-time check that every kind implements Node.
	var _ Node = NewVar("u")
	var _ Node = NewSubscript(NewVar("w"), 0)
	var _ Node = NewScalarParam("c")
	var _ Node = NewConst(1)
	var _ Node = NewNormalComponent(TagAll, 0)
	var _ Node = NewSum(NewVar("u"))
	var _ Node = NewProduct(NewVar("u"))
	var _ Node = NewVector(NewVar("u"))
	var _ Node = NewCSE(NewVar("u"), "")
	var _ Node = NewBinding(NewMass(), NewVar("u"))
	var _ Node = MustBoundaryPair(NewVar("u"), NewConst(0), TagAll)

	var _ Operator = NewDiff(0)
	var _ Operator = NewMInvST(0)
	var _ Operator = NewStiffness(0)
	var _ Operator = NewStiffnessT(0)
	var _ Operator = NewMass()
	var _ Operator = NewInverseMass()
	var _ Operator = NewElementwiseMax()
	var _ Operator = NewBoundarize(TagAll)
	var _ Operator = NewFluxExchange(0, 1)
}

func TestDigestDeterminism(t *testing.T) {
	u1 := NewVar("u")
	u2 := NewVar("u")

	assert.Equal(t, u1.Digest(), u2.Digest(), "same name must produce same digest")
	assert.True(t, Equal(u1, u2))
	assert.Len(t, u1.Digest().String(), 64, "SHA-256 hex is 64 characters")
}

func TestDigestSeparatesKinds(t *testing.T) {
	u := NewVar("u")
	v := NewVar("v")

	tests := []struct {
		name string
		a, b Node
	}{
		{"different names", NewVar("u"), NewVar("v")},
		{"var vs scalar param", NewVar("c"), NewScalarParam("c")},
		{"sum vs product", NewSum(u, v), NewProduct(u, v)},
		{"term order", NewSum(u, v), NewSum(v, u)},
		{"subscript index", NewSubscript(u, 0), NewSubscript(u, 1)},
		{"const value", NewConst(1), NewConst(2)},
		{"normal tag", NewNormalComponent("left", 0), NewNormalComponent("right", 0)},
		{"normal axis", NewNormalComponent("left", 0), NewNormalComponent("left", 1)},
		{"cse prefix", NewCSE(u, "a"), NewCSE(u, "b")},
		{"cse priority", NewPrioritizedCSE(u, "a", 0), NewPrioritizedCSE(u, "a", 1)},
		{"diff axis", NewDiff(0), NewDiff(1)},
		{"operator kind", NewStiffness(0), NewStiffnessT(0)},
		{"mass vs inverse", NewMass(), NewInverseMass()},
		{"boundarize tag", NewBoundarize("left"), NewBoundarize("right")},
		{"exchange payload", NewFluxExchange(0, 1), NewFluxExchange(1, 0)},
		{"binding vs operand", NewBinding(NewMass(), u), u},
		{"var vs one-term sum", u, NewSum(u)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Equal(tt.a, tt.b))
			assert.NotEqual(t, tt.a.Digest(), tt.b.Digest())
		})
	}
}

func TestConstNegativeZero(t *testing.T) {
	pos := NewConst(0)
	neg := NewConst(math.Copysign(0, -1))

	assert.True(t, Equal(pos, neg), "negative zero must normalize to zero")
	assert.True(t, IsZero(neg))
	assert.False(t, math.Signbit(neg.Value()))
}

func TestIsZeroIsOne(t *testing.T) {
	assert.True(t, IsZero(NewConst(0)))
	assert.False(t, IsZero(NewConst(1)))
	assert.False(t, IsZero(NewVar("u")))
	assert.True(t, IsOne(NewConst(1)))
	assert.False(t, IsOne(NewConst(0)))
	assert.False(t, IsOne(NewVar("u")))
}

func TestAddFlattening(t *testing.T) {
	u, v, w := NewVar("u"), NewVar("v"), NewVar("w")

	assert.True(t, IsZero(Add()), "empty sum is the additive identity")
	assert.True(t, Equal(u, Add(u)), "one-term sum collapses to the term")

	nested := Add(Add(u, v), w)
	sum, ok := nested.(*Sum)
	require.True(t, ok)
	require.Len(t, sum.Terms(), 3, "nested sums must flatten")
	assert.True(t, Equal(nested, Add(u, Add(v, w))))
}

func TestMulFlattening(t *testing.T) {
	u, v, w := NewVar("u"), NewVar("v"), NewVar("w")

	assert.True(t, IsOne(Mul()), "empty product is the multiplicative identity")
	assert.True(t, Equal(u, Mul(u)), "one-factor product collapses to the factor")

	nested := Mul(Mul(u, v), w)
	prod, ok := nested.(*Product)
	require.True(t, ok)
	require.Len(t, prod.Factors(), 3, "nested products must flatten")
	assert.True(t, Equal(nested, Mul(u, Mul(v, w))))
}

func TestSubNegateScale(t *testing.T) {
	u, v := NewVar("u"), NewVar("v")

	assert.Equal(t, "u + -1*v", Format(Sub(u, v)))
	assert.Equal(t, "-1*u", Format(Negate(u)))
	assert.Equal(t, "2*u", Format(ScaleBy(2, u)))
}

func TestMakeVectorField(t *testing.T) {
	w := MakeVectorField("w", 3)

	require.Equal(t, 3, w.Len())
	for i := 0; i < 3; i++ {
		sub, ok := w.Comp(i).(*Subscript)
		require.True(t, ok)
		assert.Equal(t, i, sub.Index())
		assert.True(t, Equal(NewVar("w"), sub.Aggregate()))
	}
}

func TestMakeNormalAndNabla(t *testing.T) {
	n := MakeNormal("left", 2)
	require.Equal(t, 2, n.Len())
	for ax := 0; ax < 2; ax++ {
		nc, ok := n.Comp(ax).(*NormalComponent)
		require.True(t, ok)
		assert.Equal(t, Tag("left"), nc.Tag())
		assert.Equal(t, ax, nc.Axis())
	}

	nabla := Nabla(3)
	require.Len(t, nabla, 3)
	for ax, op := range nabla {
		d, ok := op.(*Diff)
		require.True(t, ok)
		assert.Equal(t, ax, d.Axis())
	}

	st := MakeStiffnessT(2)
	require.Len(t, st, 2)
	for ax, op := range st {
		s, ok := op.(*StiffnessT)
		require.True(t, ok)
		assert.Equal(t, ax, s.Axis())
	}
}

func TestRankBoundaryTag(t *testing.T) {
	tag := RankBoundaryTag(3)

	rank, ok := RankOfBoundaryTag(tag)
	require.True(t, ok)
	assert.Equal(t, 3, rank)

	_, ok = RankOfBoundaryTag("left")
	assert.False(t, ok)
	_, ok = RankOfBoundaryTag(Tag(rankBoundaryPrefix + "x"))
	assert.False(t, ok)
}

func TestBoundaryPairValidation(t *testing.T) {
	u := NewVar("u")

	tests := []struct {
		name    string
		field   Node
		bfield  Node
		tag     Tag
		wantErr func(error) bool
	}{
		{
			name:   "trace of the volume field is legal",
			field:  u,
			bfield: NewBinding(NewBoundarize("left"), u),
			tag:    "left",
		},
		{
			name:   "normal component with matching tag",
			field:  u,
			bfield: Mul(NewNormalComponent("left", 0), NewBinding(NewBoundarize("left"), u)),
			tag:    "left",
		},
		{
			name:   "flux exchange with matching rank tag",
			field:  u,
			bfield: NewBinding(NewFluxExchange(0, 7), u),
			tag:    RankBoundaryTag(7),
		},
		{
			name:    "shared variable on both sides",
			field:   u,
			bfield:  u,
			tag:     "left",
			wantErr: IsBoundaryNamespace,
		},
		{
			name:    "shared subscript on both sides",
			field:   NewSubscript(NewVar("w"), 0),
			bfield:  Add(NewSubscript(NewVar("w"), 0), NewConst(1)),
			tag:     "left",
			wantErr: IsBoundaryNamespace,
		},
		{
			name:    "normal component tag mismatch",
			field:   u,
			bfield:  NewNormalComponent("right", 0),
			tag:     "left",
			wantErr: IsTagMismatch,
		},
		{
			name:    "boundarize tag mismatch",
			field:   u,
			bfield:  NewBinding(NewBoundarize("right"), u),
			tag:     "left",
			wantErr: IsTagMismatch,
		},
		{
			name:    "flux exchange tag mismatch",
			field:   u,
			bfield:  NewBinding(NewFluxExchange(0, 7), u),
			tag:     RankBoundaryTag(8),
			wantErr: IsTagMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewBoundaryPair(tt.field, tt.bfield, tt.tag)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error category: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.tag, p.Tag())
		})
	}
}

func TestBoundaryPairSubscriptsAreDistinct(t *testing.T) {
	// Distinct components of one vector field may appear on opposite
	// sides: dependencies are per component, not per aggregate.
	w0 := NewSubscript(NewVar("w"), 0)
	w1 := NewSubscript(NewVar("w"), 1)

	_, err := NewBoundaryPair(w0, w1, "left")
	assert.NoError(t, err)
}

func TestBoundarizedVolumeFieldIsNotACollision(t *testing.T) {
	// u on the volume side and Boundarize(u) on the boundary side refer
	// to different quantities: the binding is the dependency, not u.
	u := NewVar("u")
	pair := MustBoundaryPair(u, NewBinding(NewBoundarize("left"), u), "left")

	assert.True(t, Equal(u, pair.Field()))
}

func TestMustBoundaryPairPanics(t *testing.T) {
	u := NewVar("u")
	assert.Panics(t, func() { MustBoundaryPair(u, u, "left") })
}

func TestCountNodes(t *testing.T) {
	u, v := NewVar("u"), NewVar("v")

	tests := []struct {
		name string
		node Node
		want int
	}{
		{"leaf", u, 1},
		{"sum", Add(u, v), 3},
		{"binding counts operator", NewBinding(NewMass(), u), 3},
		{"cse", NewCSE(Add(u, v), ""), 4},
		{"shared subtrees count per occurrence", Add(Mul(u, v), Mul(u, v)), 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountNodes(tt.node))
		})
	}
}
