// Package engine runs the query pipeline.
//
// Translate takes a query through every compile stage and returns a Plan:
//
//	decode, scan, parse   syntax.Parse
//	bind                  binding.Bind (with the dialect's function registry)
//	encode                flow.Encode
//	compile               term.Compile (with the dialect's clip strategies)
//	reduce                frame.Reduce
//	dump                  dialect.DumpPlan
//
// Execute runs the statements of a plan through a store.Store, one per
// segment, and assembles a product.Product from their rows. Produce does
// both.
//
// Each stage logs one debug record on the engine's slog.Logger; executed
// plans are logged at info level and failed statements at error level.
// Plans carry an ID (a UUIDv7 unless WithIDGenerator says otherwise) so
// the records of one query can be correlated.
package engine
