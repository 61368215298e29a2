// Package product turns the rows returned by a database into the result of
// a query and renders it.
//
// Raw driver values are converted with Unmarshal, which is driven by the
// domain of each field: the same query yields the same Product on every
// backend. Rows of nested segments are attached to their parent rows by
// the row keys the statements select ahead of the fields.
//
// Writers: WriteJSON, WriteCSV and WriteText.
package product
