package serial

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Element holds the reference operators of a one-dimensional nodal element
// of polynomial order Order on [-1,1]. All matrices act on the Np = Order+1
// nodal values of one element.
type Element struct {
	// Order is the polynomial order N.
	Order int

	// Np is the number of nodes per element, Order+1.
	Np int

	// R holds the Gauss-Lobatto node coordinates on [-1,1], ascending.
	R []float64

	// V is the generalized Vandermonde matrix: V[i][j] is the j-th
	// normalized Legendre polynomial evaluated at node i.
	V *mat.Dense

	// Dr differentiates nodal values with respect to r.
	Dr *mat.Dense

	// M is the exact reference mass matrix (V Vᵀ)⁻¹.
	M *mat.Dense

	// InvM is the reference inverse mass matrix V Vᵀ.
	InvM *mat.Dense

	// Stiff is the reference stiffness matrix M Dr.
	Stiff *mat.Dense

	// StiffT is the transposed reference stiffness matrix Drᵀ M.
	StiffT *mat.Dense

	// MInvST is the fused weak-derivative matrix InvM Drᵀ M.
	MInvST *mat.Dense

	// Lift maps the two face values of an element to a volume
	// contribution: the columns of InvM at the face nodes, Np by 2.
	Lift *mat.Dense
}

// NewElement builds the reference operators for polynomial order order.
func NewElement(order int) (*Element, error) {
	if order < 1 {
		return nil, fmt.Errorf("element order must be at least 1, got %d", order)
	}
	np := order + 1
	r := gaussLobatto(order)

	v := mat.NewDense(np, np, nil)
	vr := mat.NewDense(np, np, nil)
	for i, ri := range r {
		p, dp := normalizedLegendre(ri, order)
		v.SetRow(i, p)
		vr.SetRow(i, dp)
	}

	var vinv mat.Dense
	if err := vinv.Inverse(v); err != nil {
		return nil, fmt.Errorf("vandermonde inversion for order %d: %w", order, err)
	}

	dr := mat.NewDense(np, np, nil)
	dr.Mul(vr, &vinv)

	invM := mat.NewDense(np, np, nil)
	invM.Mul(v, v.T())

	m := mat.NewDense(np, np, nil)
	if err := m.Inverse(invM); err != nil {
		return nil, fmt.Errorf("mass matrix for order %d: %w", order, err)
	}

	stiff := mat.NewDense(np, np, nil)
	stiff.Mul(m, dr)
	stiffT := mat.NewDense(np, np, nil)
	stiffT.Mul(dr.T(), m)
	minvST := mat.NewDense(np, np, nil)
	minvST.Mul(invM, stiffT)

	lift := mat.NewDense(np, 2, nil)
	for i := 0; i < np; i++ {
		lift.Set(i, 0, invM.At(i, 0))
		lift.Set(i, 1, invM.At(i, np-1))
	}

	return &Element{
		Order:  order,
		Np:     np,
		R:      r,
		V:      v,
		Dr:     dr,
		M:      m,
		InvM:   invM,
		Stiff:  stiff,
		StiffT: stiffT,
		MInvST: minvST,
		Lift:   lift,
	}, nil
}

// FaceNodes returns the local indices of the left and right face nodes.
func (e *Element) FaceNodes() [2]int {
	return [2]int{0, e.Np - 1}
}

// gaussLobatto computes the order+1 Gauss-Lobatto nodes on [-1,1]. The
// interior nodes are the Gauss points of the Jacobi(1,1) polynomial of
// degree order-1, found as eigenvalues of its symmetric recurrence matrix.
func gaussLobatto(order int) []float64 {
	r := make([]float64, order+1)
	r[0], r[order] = -1, 1
	if order < 2 {
		return r
	}
	m := order - 1
	j := mat.NewSymDense(m, nil)
	for k := 1; k < m; k++ {
		j.SetSym(k-1, k, math.Sqrt(float64(k*(k+2))/float64((2*k+1)*(2*k+3))))
	}
	var eig mat.EigenSym
	if !eig.Factorize(j, false) {
		// The recurrence matrix is symmetric tridiagonal with bounded
		// entries; factorization cannot fail for it.
		panic(fmt.Sprintf("serial: gauss-lobatto eigensolve failed for order %d", order))
	}
	copy(r[1:order], eig.Values(nil))
	return r
}

// normalizedLegendre evaluates the normalized Legendre polynomials and
// their derivatives at r, degrees 0 through order. The polynomials are
// orthonormal on [-1,1].
func normalizedLegendre(r float64, order int) (p, dp []float64) {
	p = make([]float64, order+1)
	dp = make([]float64, order+1)
	p[0] = 1 / math.Sqrt2
	if order == 0 {
		return p, dp
	}
	p[1] = r * math.Sqrt(1.5)
	dp[1] = math.Sqrt(1.5)
	aPrev := 1 / math.Sqrt(3)
	for k := 1; k < order; k++ {
		aNext := float64(k+1) / math.Sqrt(float64((2*k+1)*(2*k+3)))
		p[k+1] = (r*p[k] - aPrev*p[k-1]) / aNext
		dp[k+1] = (p[k] + r*dp[k] - aPrev*dp[k-1]) / aNext
		aPrev = aNext
	}
	return p, dp
}
