// Package lower rewrites operator templates into directly evaluable form.
//
// A raw template mixes operators into products the way they are written on
// paper. Lowering runs a fixed sequence of tree-to-tree passes over it:
//
//  1. BindOperators turns operator-times-field products into explicit
//     bindings.
//  2. RewriteBCs expresses boundary-condition expressions inside the flux
//     sub-language so boundary terms need no separate data fetch.
//  3. ContractInverseMass cancels inverse-mass applications against mass,
//     stiffness, and flux bindings, fusing them into single precomputed
//     operators.
//  4. KillEmptyFluxes drops flux terms over boundary regions the geometry
//     reports empty.
//  5. FoldConstants merges literal arithmetic and removes the identity
//     terms earlier passes leave behind.
//
// ARCHITECTURE:
//
// Every pass is a pure function from one immutable tree to another, built
// on sym.Transform. A pass holds no state beyond the per-invocation
// common-subexpression memo inside Transform, so passes are safe to call
// repeatedly and from independent call sites. Pipeline sequences the
// passes and logs the node count entering and leaving each stage.
//
// Passes validate as they rewrite: a boundary pair rebuilt by a pass goes
// back through full construction-time validation, so a rewrite can never
// smuggle a tag mismatch or a volume/boundary namespace collision into the
// lowered tree.
package lower
