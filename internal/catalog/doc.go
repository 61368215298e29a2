// Package catalog holds the read-only database metadata the binder resolves
// names against: schemas, tables, columns, unique keys and foreign keys.
//
// Entities live in arenas owned by the Catalog and refer to each other by
// index (TableID, ColumnID, ...), so back-references such as column -> table
// or foreign key -> target never form pointer cycles. A Catalog is built once
// through a Builder, which enforces its invariants, and is never mutated
// afterwards; it is safe to share between concurrent queries.
package catalog
