package testutil

import (
	"database/sql"
	_ "embed"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
)

// SchoolYAML is the catalog of the demo database.
//
//go:embed testdata/school.yaml
var SchoolYAML []byte

// SchoolSQL creates and fills the demo database.
//
//go:embed testdata/school.sql
var SchoolSQL string

// SchoolCatalog returns the catalog of the demo database: schools,
// departments, programs and courses, plus the exchange table with two
// links to school and the sample table of nullable scalars.
func SchoolCatalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.ParseYAML(SchoolYAML)
	require.NoError(t, err)
	return cat
}

// SchoolDB opens an in-memory SQLite database loaded with the demo data.
// The database is closed when the test ends.
func SchoolDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(SchoolSQL)
	require.NoError(t, err)
	return db
}
