// Package querynode provides the expression tree used to describe table
// query predicates, ordering keys, and selectors.
//
// The tree is a closed union of node kinds built directly by callers (or by
// the query-definition loader) rather than by reflecting over host-language
// syntax. The odata package walks the tree and renders wire fragments.
//
// NODE KINDS:
//
//	Constant   literal value (string, int, float, bool, null, date, instant)
//	Member     field reference, dotted for nested access ("Address.City")
//	Unary      not / negate
//	Binary     and, or, eq, ne, lt, le, gt, ge, add, sub, mul, div, mod
//	Call       function call (allow-list enforced by the compiler)
//	Convert    explicit conversion to a primitive Kind
//
// SEALED INTERFACES:
//
// Node and Value use the marker method pattern. Only types in this package
// implement them, so compilers can switch exhaustively over the kinds.
//
// Construction never fails. An unknown function name, an unsupported
// operator string, or an incompatible conversion is representable here and
// rejected only when the tree is compiled.
//
// IMMUTABILITY:
//
// Nodes are plain values. Builders derive new trees (sharing subtrees) and
// never modify a node in place, so one base query can be branched freely,
// including from several goroutines.
package querynode
