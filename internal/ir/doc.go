// Package ir defines the target-independent representation of one
// comprehension expression.
//
// The IR is pure data: a Comprehension names a result kind (list, set,
// dict, or reduction), the element expression, and an ordered sequence
// of generators, each binding one variable over a source with a flat
// conjunction of filter predicates. Backends consume the IR through
// internal/render; they never see source text.
//
// Structural invariants (established by the parser or document
// compiler, relied on by the classifier and emitters):
//   - predicates are a flat conjunction list, never a nested tree;
//   - generators are ordered outer-to-inner, and generator i may only
//     reference variables bound by generators 0..i-1;
//   - dict comprehensions carry a key expression, others do not.
package ir
