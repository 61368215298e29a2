package store

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
)

// Engine pairs a database/sql driver with the SQL dialect spoken to it.
type Engine struct {
	Name    string
	Driver  string
	Dialect string
}

// engines are the supported database engines. The mysql and mssql drivers
// are not linked in; a program that registers them under these driver
// names can open such databases.
var engines = map[string]Engine{
	"sqlite":   {Name: "sqlite", Driver: "sqlite3", Dialect: "sqlite"},
	"pgsql":    {Name: "pgsql", Driver: "pgx", Dialect: "pgsql"},
	"postgres": {Name: "postgres", Driver: "postgres", Dialect: "pgsql"},
	"mysql":    {Name: "mysql", Driver: "mysql", Dialect: "mysql"},
	"mssql":    {Name: "mssql", Driver: "sqlserver", Dialect: "mssql"},
}

// Engines returns the names of the supported engines, sorted.
func Engines() []string {
	return slices.Sorted(maps.Keys(engines))
}

// LookupEngine returns the engine with the given name.
func LookupEngine(name string) (Engine, error) {
	e, ok := engines[name]
	if !ok {
		return Engine{}, fmt.Errorf("unknown database engine %q (supported: %s)", name, strings.Join(Engines(), ", "))
	}
	return e, nil
}

// Store executes SQL statements produced for one database.
type Store struct {
	db     *sql.DB
	engine Engine
}

// Open connects to a database of the given engine.
//
// SQLite databases are limited to one connection, so that ":memory:"
// databases keep their content across statements, and run with foreign
// keys enforced.
func Open(ctx context.Context, engine, dsn string) (*Store, error) {
	e, err := LookupEngine(engine)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(e.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if e.Driver == "sqlite3" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}
	return &Store{db: db, engine: e}, nil
}

// New wraps an open database of the given engine. The caller keeps
// ownership of db.
func New(db *sql.DB, engine string) (*Store, error) {
	e, err := LookupEngine(engine)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, engine: e}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Engine returns the engine of the database.
func (s *Store) Engine() Engine { return s.engine }

// Dialect returns the name of the SQL dialect of the database.
func (s *Store) Dialect() string { return s.engine.Dialect }

// Exec runs a script that returns no rows, such as a fixture.
func (s *Store) Exec(ctx context.Context, script string) error {
	if _, err := s.db.ExecContext(ctx, script); err != nil {
		return diag.NewDBError(script, err)
	}
	return nil
}

// Fetch runs a query and returns every row as driver values. With
// maxRows > 0, a result with more rows fails instead of being cut.
// Failures are DB errors carrying the statement.
func (s *Store) Fetch(ctx context.Context, query string, maxRows int) ([][]any, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, diag.NewDBError(query, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, diag.NewDBError(query, err)
	}
	var out [][]any
	for rows.Next() {
		if maxRows > 0 && len(out) == maxRows {
			return nil, diag.NewDBError(query, fmt.Errorf("result exceeds %d rows", maxRows))
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, diag.NewDBError(query, err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, diag.NewDBError(query, err)
	}
	return out, nil
}
