// Package flow is the relational intermediate representation.
//
// A Flow is a chain of relational steps hanging off the scalar root: table
// scans, link traversals, filters, orderings, groupings. A Code is a typed
// expression evaluated against a flow; the leaves that pull data out of a
// flow (columns, kernels, aggregates) are Units.
//
// Every flow and code carries a structural Key. Two nodes built from equal
// parts have equal keys, which is what lets the term compiler route every
// reference to the same flow to a single physical join.
//
// Encode lowers a bound query into a Segment tree of flows and codes.
package flow
