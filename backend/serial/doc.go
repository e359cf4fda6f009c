// Package serial executes lowered operator templates on a single-process
// one-dimensional nodal discontinuous-Galerkin discretization.
//
// The package supplies the two collaborators the compiler needs to turn a
// template into numbers:
//
//   - a geometry oracle (boundary tags and their node counts) consumed by
//     the lowering pipeline, and
//   - the operator actions (differentiation, mass, flux lifting, boundary
//     restriction) consumed by the evaluator.
//
// ARCHITECTURE:
//
// Element holds the order-N reference operators on [-1,1]: Gauss-Lobatto
// nodes, the normalized-Legendre Vandermonde matrix, nodal differentiation
// and exact mass matrices, and the face lift. Discretization tiles K
// copies of the element over an interval, owns the boundary tag registry,
// and implements sym.OperatorActions with per-element dense matrix
// applications; fields are stored element-major, node i of element k at
// index k*Np+i. Compile runs the lowering pipeline with the discretization
// as geometry and returns a CompiledOp bound to its actions.
//
// The discretization is serial: templates containing flux exchanges
// compile but fail at evaluation time with ErrFluxExchange.
package serial
