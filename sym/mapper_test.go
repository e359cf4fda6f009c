package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// renameVars returns a transformer that renames every variable through m.
func renameVars(m map[string]string) Transformer {
	return TransformerFunc(func(n Node, rec RewriteFunc) (Node, error) {
		if v, ok := n.(*Var); ok {
			if to, ok := m[v.Name()]; ok {
				return NewVar(to), nil
			}
		}
		return RebuildChildren(n, rec)
	})
}

func waveishTemplate(t *testing.T) Node {
	t.Helper()
	u := NewVar("u")
	c := NewScalarParam("c")
	shared := NewCSE(Mul(c, NewBinding(NewStiffness(0), u)), "flux")
	pair := MustBoundaryPair(u, NewBinding(NewBoundarize("left"), u), "left")
	return Add(
		NewBinding(NewInverseMass(), shared),
		shared,
		NewBinding(NewFlux(upwindFormula()), pair),
	)
}

func TestIdentityRebuildReturnsSameTree(t *testing.T) {
	tmpl := waveishTemplate(t)

	got, err := Transform(tmpl, identity{})
	require.NoError(t, err)

	assert.Same(t, tmpl, got, "identity rebuild must share the unchanged tree")
}

func TestLeavesRebuildUnchanged(t *testing.T) {
	leaves := []Node{
		NewVar("u"),
		NewScalarParam("c"),
		NewConst(3),
		NewNormalComponent("left", 0),
		NewDiff(1),
		NewMass(),
	}
	for _, leaf := range leaves {
		got, err := RebuildChildren(leaf, func(n Node) (Node, error) {
			t.Fatalf("leaf %s must not recurse", Format(leaf))
			return n, nil
		})
		require.NoError(t, err)
		assert.Same(t, leaf, got)
	}
}

func TestTransformRenames(t *testing.T) {
	tmpl := waveishTemplate(t)

	got, err := Transform(tmpl, renameVars(map[string]string{"u": "q"}))
	require.NoError(t, err)

	deps, err := Dependencies(got, DependencyOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ScalarPar[c]", "q"}, deps.Names())
}

func TestTransformMatchesNoCache(t *testing.T) {
	tmpl := waveishTemplate(t)
	tr := renameVars(map[string]string{"u": "q"})

	cached, err := Transform(tmpl, tr)
	require.NoError(t, err)
	uncached, err := TransformNoCache(tmpl, tr)
	require.NoError(t, err)

	assert.True(t, Equal(cached, uncached), "cache must not change results")
}

func TestTransformVisitsSharedCSEOnce(t *testing.T) {
	u, v := NewVar("u"), NewVar("v")
	child := Mul(u, v)
	tmpl := Add(NewCSE(Mul(u, v), "a"), NewCSE(Mul(u, v), "a"))

	visits := 0
	tr := TransformerFunc(func(n Node, rec RewriteFunc) (Node, error) {
		if Equal(n, child) {
			visits++
		}
		return RebuildChildren(n, rec)
	})

	_, err := Transform(tmpl, tr)
	require.NoError(t, err)
	assert.Equal(t, 1, visits, "equal markers share one rewrite")

	visits = 0
	_, err = TransformNoCache(tmpl, tr)
	require.NoError(t, err)
	assert.Equal(t, 2, visits, "uncached traversal rewrites each occurrence")
}

func TestCSECacheIgnoresPrefix(t *testing.T) {
	// Markers with equal children share identity for caching even when
	// their naming hints differ.
	u := NewVar("u")
	tmpl := Add(NewCSE(u, "a"), NewCSE(u, "b"))

	rewrites := 0
	tr := TransformerFunc(func(n Node, rec RewriteFunc) (Node, error) {
		if _, ok := n.(*CSE); ok {
			rewrites++
		}
		return RebuildChildren(n, rec)
	})

	_, err := Transform(tmpl, tr)
	require.NoError(t, err)
	assert.Equal(t, 1, rewrites)
}

func TestRebuildBindingRequiresOperator(t *testing.T) {
	tmpl := NewBinding(NewMass(), NewVar("u"))

	tr := TransformerFunc(func(n Node, rec RewriteFunc) (Node, error) {
		if _, ok := n.(*Mass); ok {
			return NewVar("not-an-operator"), nil
		}
		return RebuildChildren(n, rec)
	})

	_, err := Transform(tmpl, tr)
	require.Error(t, err)
	var te *TemplateError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ErrCodeBadOperand, te.Code)
}

func TestRebuildRevalidatesBoundaryPair(t *testing.T) {
	u := NewVar("u")
	pair := MustBoundaryPair(u, NewNormalComponent("left", 0), "left")

	// Rewriting the boundary side to a wrong-tag normal must fail the
	// pair's construction checks.
	_, err := Substitute(pair, func(n Node) (Node, bool) {
		if nc, ok := n.(*NormalComponent); ok && nc.Tag() == "left" {
			return NewNormalComponent("right", nc.Axis()), true
		}
		return nil, false
	})
	require.Error(t, err)
	assert.True(t, IsTagMismatch(err))
}

func TestSubstituteReplacementNotDescended(t *testing.T) {
	u := NewVar("u")
	tmpl := Mul(NewConst(2), u)

	// u -> u + 1 must apply once, not recurse into its own replacement.
	got, err := Substitute(tmpl, func(n Node) (Node, bool) {
		if Equal(n, u) {
			return Add(u, NewConst(1)), true
		}
		return nil, false
	})
	require.NoError(t, err)
	assert.Equal(t, "2*(u + 1)", Format(got))
}

func TestSubstituteVars(t *testing.T) {
	u, v := NewVar("u"), NewVar("v")
	tmpl := Add(u, Mul(NewConst(3), u), v)

	got, err := SubstituteVars(tmpl, map[string]Node{"u": NewConst(0)})
	require.NoError(t, err)
	assert.Equal(t, "0 + 3*0 + v", Format(got))

	same, err := SubstituteVars(tmpl, map[string]Node{"missing": NewConst(0)})
	require.NoError(t, err)
	assert.Same(t, tmpl, same, "no replacement leaves the tree shared")
}

func TestReduceDefaults(t *testing.T) {
	tmpl := waveishTemplate(t)

	// A reducer with no hooks folds everything to its zero.
	r := Reducer[int]{
		Zero:    func() int { return 0 },
		Combine: func(a, b int) int { return a + b },
	}
	got, err := r.Reduce(tmpl)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestReduceCountsVars(t *testing.T) {
	u := NewVar("u")
	tmpl := Add(u, Mul(u, NewVar("v")), NewBinding(NewMass(), u))

	r := Reducer[int]{
		Zero:    func() int { return 0 },
		Combine: func(a, b int) int { return a + b },
		Var:     func(*Var) (int, error) { return 1, nil },
	}
	got, err := r.Reduce(tmpl)
	require.NoError(t, err)
	assert.Equal(t, 3, got, "every occurrence counts")
}
