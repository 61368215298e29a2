// Package store runs compiled SQL against a database and reads database
// catalogs.
//
// A Store wraps a database/sql connection pool opened through one of the
// linked drivers:
//   - sqlite: github.com/mattn/go-sqlite3, one connection, foreign keys on
//   - pgsql: github.com/jackc/pgx/v5 through its database/sql adapter
//   - postgres: github.com/lib/pq
//
// Rows are returned as raw driver values; turning them into domain values
// is the job of package product. Every failure reported by the database is
// a DB error carrying the statement that caused it.
package store
