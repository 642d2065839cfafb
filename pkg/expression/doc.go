// Package expression evaluates conditional/switch predicates and general
// value expressions against execution state (node outputs, variables,
// inputs), backed by expr-lang/expr.
//
// Evaluate returns a boolean, used by the Edge Router for "true"/"false"
// handles on conditional nodes. EvaluateExpression returns an arbitrary
// value, used by switch nodes to compute a selector compared against
// "case-<value>" handles.
//
// Expressions reference node outputs through "node.<id>.<field>", user
// variables through "variables.<name>", and supplied inputs through
// "context.<name>", plus the implicit "item"/"input" bindings when a single
// value is being evaluated.
package expression
