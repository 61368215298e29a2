// Package dialect renders frames as SQL for a target backend.
//
// A Dialect bundles the function signatures a backend supports, the dump
// rule of every construct, literal spelling, identifier quoting and the
// strategies used to clip ordered flows. Rules are looked up by construct
// name; a dialect overrides the generic rule where its SQL differs.
// Dialects are built once per process and shared.
package dialect
