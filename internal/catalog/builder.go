package catalog

import (
	"errors"
	"fmt"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// Builder assembles a Catalog and validates its invariants on Build.
type Builder struct {
	cat  *Catalog
	errs []error
	done bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{cat: &Catalog{
		schemasByName: make(map[string]SchemaID),
		tablesByName:  make(map[string][]TableID),
	}}
}

func (b *Builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// AddSchema adds a schema, or returns the existing one with that name.
func (b *Builder) AddSchema(name string) SchemaID {
	if id, ok := b.cat.schemasByName[name]; ok {
		return id
	}
	id := SchemaID(len(b.cat.schemas))
	b.cat.schemas = append(b.cat.schemas, Schema{ID: id, Name: name})
	b.cat.schemasByName[name] = id
	return id
}

// AddTable adds a table to a schema.
func (b *Builder) AddTable(schema SchemaID, name string) TableID {
	id := TableID(len(b.cat.tables))
	for _, other := range b.cat.schemas[schema].Tables {
		if b.cat.tables[other].Name == name {
			b.fail("duplicate table %s.%s", b.cat.schemas[schema].Name, name)
		}
	}
	b.cat.tables = append(b.cat.tables, Table{
		ID:            id,
		Schema:        schema,
		Name:          name,
		PrimaryKey:    NoKey,
		columnsByName: make(map[string]ColumnID),
	})
	b.cat.schemas[schema].Tables = append(b.cat.schemas[schema].Tables, id)
	b.cat.tablesByName[name] = append(b.cat.tablesByName[name], id)
	return id
}

// AddColumn adds a column to a table. Column names are unique within a table.
func (b *Builder) AddColumn(table TableID, name string, d domain.Domain, nullable, hasDefault bool) ColumnID {
	t := &b.cat.tables[table]
	if _, ok := t.columnsByName[name]; ok {
		b.fail("duplicate column %s.%s", t.Name, name)
	}
	if d == nil {
		d = domain.Opaque{}
	}
	id := ColumnID(len(b.cat.columns))
	b.cat.columns = append(b.cat.columns, Column{
		ID:         id,
		Table:      table,
		Name:       name,
		Domain:     d,
		Nullable:   nullable,
		HasDefault: hasDefault,
	})
	t.Columns = append(t.Columns, id)
	t.columnsByName[name] = id
	return id
}

// AddUniqueKey declares a unique key. A table has at most one primary key.
func (b *Builder) AddUniqueKey(table TableID, cols []ColumnID, primary bool) KeyID {
	t := &b.cat.tables[table]
	if len(cols) == 0 {
		b.fail("empty unique key on %s", t.Name)
	}
	partial := false
	for _, col := range cols {
		if b.cat.columns[col].Table != table {
			b.fail("unique key on %s uses foreign column %s", t.Name, b.cat.columns[col].Name)
		}
		if b.cat.columns[col].Nullable {
			partial = true
		}
	}
	if primary {
		if t.PrimaryKey != NoKey {
			b.fail("table %s has more than one primary key", t.Name)
		}
		if partial {
			b.fail("primary key of %s includes a nullable column", t.Name)
		}
	}
	id := KeyID(len(b.cat.uniqueKeys))
	b.cat.uniqueKeys = append(b.cat.uniqueKeys, UniqueKey{
		ID:      id,
		Table:   table,
		Columns: append([]ColumnID(nil), cols...),
		Primary: primary,
		Partial: partial,
	})
	if primary && t.PrimaryKey == NoKey {
		t.PrimaryKey = id
	}
	t.UniqueKeys = append(t.UniqueKeys, id)
	return id
}

// AddForeignKey declares a foreign key from origin columns to target columns.
// Both column lists must have the same length.
func (b *Builder) AddForeignKey(origin TableID, originCols []ColumnID, target TableID, targetCols []ColumnID) ForeignKeyID {
	o := &b.cat.tables[origin]
	if len(originCols) == 0 || len(originCols) != len(targetCols) {
		b.fail("foreign key on %s maps %d columns to %d", o.Name, len(originCols), len(targetCols))
	}
	partial := false
	for _, col := range originCols {
		if b.cat.columns[col].Table != origin {
			b.fail("foreign key on %s uses foreign column %s", o.Name, b.cat.columns[col].Name)
		}
		if b.cat.columns[col].Nullable {
			partial = true
		}
	}
	for _, col := range targetCols {
		if b.cat.columns[col].Table != target {
			b.fail("foreign key on %s targets column %s outside %s", o.Name, b.cat.columns[col].Name, b.cat.tables[target].Name)
		}
	}
	id := ForeignKeyID(len(b.cat.foreignKeys))
	b.cat.foreignKeys = append(b.cat.foreignKeys, ForeignKey{
		ID:            id,
		Origin:        origin,
		OriginColumns: append([]ColumnID(nil), originCols...),
		Target:        target,
		TargetColumns: append([]ColumnID(nil), targetCols...),
		Partial:       partial,
	})
	o.ForeignKeys = append(o.ForeignKeys, id)
	b.cat.tables[target].ReferringKeys = append(b.cat.tables[target].ReferringKeys, id)
	return id
}

// Build validates the catalog and returns it. The builder must not be used
// afterwards.
func (b *Builder) Build() (*Catalog, error) {
	if b.done {
		return nil, errors.New("catalog builder already used")
	}
	b.done = true
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %w", errors.Join(b.errs...))
	}
	return b.cat, nil
}
