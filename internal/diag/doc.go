// Package diag provides source positions and the error taxonomy shared by
// every stage of the query pipeline.
//
// diag imports nothing internal. Each stage reports failures as *Error with a
// Kind code; callers classify errors with the IsXError helpers, which see
// through wrapping.
package diag
