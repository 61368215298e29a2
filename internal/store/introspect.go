package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
)

// Introspect reads the tables, columns and keys of the database into a
// catalog. SQLite and PostgreSQL databases are supported; SQLite tables are
// placed in the schema "main".
func (s *Store) Introspect(ctx context.Context) (*catalog.Catalog, error) {
	var (
		def *catalog.Definition
		err error
	)
	switch s.engine.Dialect {
	case "sqlite":
		def, err = s.introspectSQLite(ctx)
	case "pgsql":
		def, err = s.introspectPostgres(ctx)
	default:
		return nil, fmt.Errorf("introspection is not supported for %s databases", s.engine.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("introspecting database: %w", err)
	}
	return catalog.FromDefinition(def)
}

func (s *Store) introspectSQLite(ctx context.Context) (*catalog.Definition, error) {
	names, err := s.Fetch(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name", 0)
	if err != nil {
		return nil, err
	}
	schema := catalog.SchemaDef{Name: "main"}
	for _, row := range names {
		table := asString(row[0])
		td := catalog.TableDef{Name: table}
		quoted := quoteIdent(table)

		cols, err := s.Fetch(ctx, "PRAGMA table_info("+quoted+")", 0)
		if err != nil {
			return nil, err
		}
		type pkCol struct {
			pos  int64
			name string
		}
		var pk []pkCol
		for _, c := range cols {
			// cid, name, type, notnull, dflt_value, pk
			name := asString(c[1])
			td.Columns = append(td.Columns, catalog.ColumnDef{
				Name:     name,
				Type:     asString(c[2]),
				Nullable: asInt(c[3]) == 0,
				Default:  c[4] != nil,
			})
			if n := asInt(c[5]); n > 0 {
				pk = append(pk, pkCol{pos: n, name: name})
			}
		}
		slices.SortFunc(pk, func(a, b pkCol) int { return int(a.pos - b.pos) })
		for _, c := range pk {
			td.PrimaryKey = append(td.PrimaryKey, c.name)
		}

		indexes, err := s.Fetch(ctx, "PRAGMA index_list("+quoted+")", 0)
		if err != nil {
			return nil, err
		}
		for _, idx := range indexes {
			// seq, name, unique, origin, partial
			if asInt(idx[2]) == 0 || asString(idx[3]) == "pk" || (len(idx) > 4 && asInt(idx[4]) != 0) {
				continue
			}
			info, err := s.Fetch(ctx, "PRAGMA index_info("+quoteIdent(asString(idx[1]))+")", 0)
			if err != nil {
				return nil, err
			}
			slices.SortFunc(info, func(a, b []any) int { return int(asInt(a[0]) - asInt(b[0])) })
			var key []string
			for _, c := range info {
				key = append(key, asString(c[2]))
			}
			td.UniqueKeys = append(td.UniqueKeys, key)
		}
		slices.SortFunc(td.UniqueKeys, func(a, b []string) int {
			return strings.Compare(strings.Join(a, ","), strings.Join(b, ","))
		})

		fks, err := s.Fetch(ctx, "PRAGMA foreign_key_list("+quoted+")", 0)
		if err != nil {
			return nil, err
		}
		byID := map[int64]*catalog.ForeignKeyDef{}
		var order []int64
		slices.SortFunc(fks, func(a, b []any) int {
			if d := asInt(a[0]) - asInt(b[0]); d != 0 {
				return int(d)
			}
			return int(asInt(a[1]) - asInt(b[1]))
		})
		for _, fk := range fks {
			// id, seq, table, from, to, ...
			id := asInt(fk[0])
			fd, ok := byID[id]
			if !ok {
				fd = &catalog.ForeignKeyDef{Target: asString(fk[2])}
				byID[id] = fd
				order = append(order, id)
			}
			fd.Columns = append(fd.Columns, asString(fk[3]))
			if fk[4] != nil {
				fd.TargetColumns = append(fd.TargetColumns, asString(fk[4]))
			}
		}
		for _, id := range order {
			fd := byID[id]
			// A partial list of target columns means the key refers to
			// the primary key of the target.
			if len(fd.TargetColumns) != len(fd.Columns) {
				fd.TargetColumns = nil
			}
			td.ForeignKeys = append(td.ForeignKeys, *fd)
		}
		schema.Tables = append(schema.Tables, td)
	}
	return &catalog.Definition{Schemas: []catalog.SchemaDef{schema}}, nil
}

const pgColumns = `
SELECT c.table_schema, c.table_name, c.column_name, c.data_type, c.udt_name,
       COALESCE(c.numeric_precision, 0), COALESCE(c.numeric_scale, 0),
       c.is_nullable = 'YES', c.column_default IS NOT NULL
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE t.table_type = 'BASE TABLE'
  AND c.table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY c.table_schema, c.table_name, c.ordinal_position`

const pgEnums = `
SELECT t.typname, string_agg(e.enumlabel, ',' ORDER BY e.enumsortorder)
FROM pg_type t
JOIN pg_enum e ON e.enumtypid = t.oid
GROUP BY t.typname`

const pgConstraints = `
SELECT n.nspname, c.relname, k.contype::text,
       (SELECT string_agg(a.attname, ',' ORDER BY u.ord)
        FROM unnest(k.conkey) WITH ORDINALITY AS u(attnum, ord)
        JOIN pg_attribute a ON a.attrelid = k.conrelid AND a.attnum = u.attnum),
       COALESCE(tn.nspname || '.' || tc.relname, ''),
       COALESCE((SELECT string_agg(a.attname, ',' ORDER BY u.ord)
        FROM unnest(k.confkey) WITH ORDINALITY AS u(attnum, ord)
        JOIN pg_attribute a ON a.attrelid = k.confrelid AND a.attnum = u.attnum), '')
FROM pg_constraint k
JOIN pg_class c ON c.oid = k.conrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
LEFT JOIN pg_class tc ON tc.oid = k.confrelid
LEFT JOIN pg_namespace tn ON tn.oid = tc.relnamespace
WHERE k.contype IN ('p', 'u', 'f')
  AND n.nspname NOT IN ('pg_catalog', 'information_schema')
ORDER BY n.nspname, c.relname, k.contype, k.conname`

func (s *Store) introspectPostgres(ctx context.Context) (*catalog.Definition, error) {
	enumRows, err := s.Fetch(ctx, pgEnums, 0)
	if err != nil {
		return nil, err
	}
	enums := map[string][]string{}
	for _, r := range enumRows {
		enums[asString(r[0])] = strings.Split(asString(r[1]), ",")
	}

	tables := map[string]*catalog.TableDef{}
	var schemas []string
	order := map[string][]string{}
	table := func(schema, name string) *catalog.TableDef {
		key := schema + "." + name
		if td, ok := tables[key]; ok {
			return td
		}
		if _, ok := order[schema]; !ok {
			schemas = append(schemas, schema)
		}
		order[schema] = append(order[schema], key)
		td := &catalog.TableDef{Name: name}
		tables[key] = td
		return td
	}

	cols, err := s.Fetch(ctx, pgColumns, 0)
	if err != nil {
		return nil, err
	}
	for _, r := range cols {
		td := table(asString(r[0]), asString(r[1]))
		cd := catalog.ColumnDef{
			Name:     asString(r[2]),
			Type:     asString(r[3]),
			Nullable: asBool(r[7]),
			Default:  asBool(r[8]),
		}
		switch cd.Type {
		case "USER-DEFINED":
			cd.Type = asString(r[4])
			cd.Labels = enums[cd.Type]
		case "numeric":
			if p := asInt(r[5]); p > 0 {
				cd.Type = fmt.Sprintf("numeric(%d,%d)", p, asInt(r[6]))
			}
		}
		td.Columns = append(td.Columns, cd)
	}

	keys, err := s.Fetch(ctx, pgConstraints, 0)
	if err != nil {
		return nil, err
	}
	for _, r := range keys {
		td, ok := tables[asString(r[0])+"."+asString(r[1])]
		if !ok {
			continue
		}
		columns := strings.Split(asString(r[3]), ",")
		switch asString(r[2]) {
		case "p":
			td.PrimaryKey = columns
		case "u":
			td.UniqueKeys = append(td.UniqueKeys, columns)
		case "f":
			td.ForeignKeys = append(td.ForeignKeys, catalog.ForeignKeyDef{
				Columns:       columns,
				Target:        asString(r[4]),
				TargetColumns: strings.Split(asString(r[5]), ","),
			})
		}
	}

	def := &catalog.Definition{}
	for _, schema := range schemas {
		sd := catalog.SchemaDef{Name: schema}
		for _, key := range order[schema] {
			sd.Tables = append(sd.Tables, *tables[key])
		}
		def.Schemas = append(def.Schemas, sd)
	}
	return def, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

func asInt(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case bool:
		if x {
			return 1
		}
	case string, []byte:
		var n int64
		fmt.Sscan(asString(x), &n)
		return n
	}
	return 0
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string, []byte:
		s := asString(x)
		return s == "t" || s == "true" || s == "1"
	}
	return asInt(v) != 0
}
