package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/testutil"
)

func openSchool(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Exec(ctx, testutil.SchoolSQL))
	return s
}

func TestLookupEngine(t *testing.T) {
	e, err := LookupEngine("postgres")
	require.NoError(t, err)
	assert.Equal(t, "pgsql", e.Dialect)
	assert.Equal(t, "postgres", e.Driver)

	_, err = LookupEngine("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mssql, mysql, pgsql, postgres, sqlite")
}

func TestOpen_SQLite(t *testing.T) {
	s := openSchool(t)
	assert.Equal(t, "sqlite", s.Dialect())

	rows, err := s.Fetch(context.Background(), "SELECT COUNT(*) FROM school", 0)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(6)}}, rows)

	var fk int64
	require.NoError(t, s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, int64(1), fk)
}

func TestFetch_NullsAndOrder(t *testing.T) {
	s := openSchool(t)
	rows, err := s.Fetch(context.Background(), "SELECT code, campus FROM school WHERE campus IS NULL OR campus = 'south' ORDER BY code", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[1][1])
	assert.EqualValues(t, "edu", asString(rows[1][0]))
}

func TestFetch_MaxRows(t *testing.T) {
	s := openSchool(t)
	ctx := context.Background()

	rows, err := s.Fetch(ctx, "SELECT code FROM school", 6)
	require.NoError(t, err)
	assert.Len(t, rows, 6)

	_, err = s.Fetch(ctx, "SELECT code FROM school", 5)
	require.Error(t, err)
	assert.True(t, diag.IsDBError(err))
	assert.Contains(t, err.Error(), "exceeds 5 rows")
}

func TestFetch_DBError(t *testing.T) {
	s := openSchool(t)
	_, err := s.Fetch(context.Background(), "SELECT nothing FROM nowhere", 0)
	require.Error(t, err)
	assert.True(t, diag.IsDBError(err))

	var de *diag.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "SELECT nothing FROM nowhere", de.SQL)
}

func TestIntrospect_SQLite(t *testing.T) {
	s := openSchool(t)
	cat, err := s.Introspect(context.Background())
	require.NoError(t, err)

	school, ok := cat.LookupTable("main", "school")
	require.True(t, ok)
	require.Len(t, cat.Identity(school), 1)
	assert.Equal(t, "code", cat.Column(cat.Identity(school)[0]).Name)

	course, ok := cat.LookupTable("main", "course")
	require.True(t, ok)
	assert.Len(t, cat.Identity(course), 2)

	sample, ok := cat.LookupTable("main", "sample")
	require.True(t, ok)
	price, ok := cat.LookupColumn(sample, "price")
	require.True(t, ok)
	assert.Equal(t, domain.DecimalKind, cat.Column(price).Domain.Kind())
	assert.True(t, cat.Column(price).Nullable)
	born, _ := cat.LookupColumn(sample, "born")
	assert.Equal(t, domain.DateKind, cat.Column(born).Domain.Kind())

	name, _ := cat.LookupColumn(school, "name")
	assert.True(t, cat.IsUnique(school, []catalog.ColumnID{name}))

	exchange, ok := cat.LookupTable("main", "exchange")
	require.True(t, ok)
	assert.Len(t, cat.LookupLinks(exchange, "from_school"), 1)
	assert.Len(t, cat.LookupLinks(exchange, "school"), 2)
	assert.Len(t, cat.LookupLinks(school, "department"), 1)
}

func TestIntrospect_Unsupported(t *testing.T) {
	s := openSchool(t)
	s.engine.Dialect = "mysql"
	_, err := s.Introspect(context.Background())
	require.Error(t, err)
}

const pgFixture = `
CREATE TYPE campus AS ENUM ('old', 'north', 'south');
CREATE TABLE school (
    code VARCHAR(16) NOT NULL PRIMARY KEY,
    name VARCHAR(64) NOT NULL UNIQUE,
    campus campus
);
CREATE TABLE department (
    code VARCHAR(16) NOT NULL PRIMARY KEY,
    name VARCHAR(64) NOT NULL UNIQUE,
    school_code VARCHAR(16) REFERENCES school(code),
    budget NUMERIC(12,2)
);
INSERT INTO school VALUES ('art', 'School of Art & Design', 'old'), ('eng', 'School of Engineering', 'north');
INSERT INTO department VALUES ('be', 'Bioengineering', 'eng', 1000.50), ('lang', 'Languages', NULL, NULL);
`

// TestPostgres runs against a PostgreSQL container; set HTSQL_TEST_POSTGRES=1
// with a working Docker daemon to enable it.
func TestPostgres(t *testing.T) {
	if os.Getenv("HTSQL_TEST_POSTGRES") == "" {
		t.Skip("HTSQL_TEST_POSTGRES not set")
	}
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("htsql"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	for _, engine := range []string{"pgsql", "postgres"} {
		t.Run(engine, func(t *testing.T) {
			s, err := Open(ctx, engine, dsn)
			require.NoError(t, err)
			defer s.Close()
			if engine == "pgsql" {
				require.NoError(t, s.Exec(ctx, pgFixture))
			}

			rows, err := s.Fetch(ctx, "SELECT code FROM school ORDER BY code", 0)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "art", asString(rows[0][0]))

			cat, err := s.Introspect(ctx)
			require.NoError(t, err)
			school, ok := cat.LookupTable("public", "school")
			require.True(t, ok)
			campus, ok := cat.LookupColumn(school, "campus")
			require.True(t, ok)
			assert.Equal(t, domain.Enum{Labels: []string{"old", "north", "south"}}, cat.Column(campus).Domain)

			dept, ok := cat.LookupTable("public", "department")
			require.True(t, ok)
			budget, _ := cat.LookupColumn(dept, "budget")
			assert.Equal(t, domain.Decimal{Precision: 12, Scale: 2}, cat.Column(budget).Domain)
			assert.Len(t, cat.LookupLinks(dept, "school"), 1)
		})
	}
}
