// Package binding resolves a syntax tree against a catalog.
//
// Bind walks the syntax tree with a scope: the binding of the flow the
// current expression is evaluated in. Names are looked up through the scope
// chain (see Lookup), functions and operators through a Registry of typed
// signatures. The result is a tree of bindings: flow bindings (tables, links,
// filters, sorts, quotients) and value bindings (columns, literals, formulas,
// aggregates), each pointing at the flow binding it is evaluated in.
package binding
