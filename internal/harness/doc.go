// Package harness runs regression scenarios against the query pipeline.
//
// A scenario is a YAML file naming a catalog, SQL fixtures for a fresh
// in-memory SQLite database, the dialects to translate into and a list of
// queries with their expectations:
//
//	name: school-basics
//	description: filters and errors over the school database
//	catalog: ../../../testutil/testdata/school.yaml
//	fixtures:
//	  - ../../../testutil/testdata/school.sql
//	dialects: [sqlite, pgsql, mysql, mssql]
//	queries:
//	  - query: /school?campus='old'{code}
//	    expect:
//	      rows: [[art], [la], [ns]]
//	  - query: /schol
//	    expect:
//	      error: BIND_ERROR
//
// Every query is translated into every dialect; it is executed only for
// sqlite, the dialect of the fixtures database. Without a catalog, the
// catalog is introspected from the fixtures.
//
// Besides the expect clauses, RunWithGolden compares a snapshot of the
// outcome (error kinds, statement counts and the products as JSON) with a
// golden file under testdata/golden.
package harness
