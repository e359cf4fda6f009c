// Package sym defines the symbolic operator-template representation and its
// traversal machinery.
//
// An operator template is an immutable expression tree mixing field
// variables, scalar parameters, geometric quantities, and discretization
// operators. Frontends build templates, the lower package rewrites them
// into directly evaluable form, and backends execute them through the
// evaluator in this package.
//
// ARCHITECTURE:
//
// Sealed node model:
// Node and Operator are sealed interfaces; every variant lives in this
// package. Traversals dispatch with exhaustive type switches whose default
// case returns an internal error, so an unhandled variant surfaces
// immediately instead of being silently skipped.
//
// Content-addressed identity:
// Every node computes a domain-separated SHA-256 digest over a canonical
// encoding at construction time. Structural equality is digest equality,
// which makes deduplication, memoization, and set membership O(1) and
// stable across process runs. Constructors are the only way to build
// nodes; no node mutates after construction.
//
// Traversal modes:
//   - Transform drives rewriting traversals, memoizing the rewrite of
//     common subexpressions per invocation. TransformNoCache is the
//     equivalent uncached entry point used to validate the cache.
//   - Reducer folds a tree into a summary value with a caller-supplied
//     associative combinator; collectors and dependency analysis build
//     on it.
//   - Evaluator computes a concrete Value bottom-up, dispatching bound
//     operators to a backend's operator-action table. Rewriting and
//     bound-operator dispatch are deliberately separate types, so the two
//     traversal modes cannot be combined by accident.
package sym
