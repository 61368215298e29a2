package catalog

import (
	"fmt"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// SchemaID addresses a schema in its catalog.
type SchemaID int

// TableID addresses a table in its catalog.
type TableID int

// ColumnID addresses a column in its catalog.
type ColumnID int

// KeyID addresses a unique key in its catalog.
type KeyID int

// ForeignKeyID addresses a foreign key in its catalog.
type ForeignKeyID int

// NoKey marks a table without a primary key.
const NoKey KeyID = -1

// Schema is a namespace of tables.
type Schema struct {
	ID     SchemaID
	Name   string
	Tables []TableID
}

// Table is a relation with named columns.
type Table struct {
	ID            TableID
	Schema        SchemaID
	Name          string
	Columns       []ColumnID
	PrimaryKey    KeyID
	UniqueKeys    []KeyID
	ForeignKeys   []ForeignKeyID // keys originating in this table
	ReferringKeys []ForeignKeyID // keys targeting this table

	columnsByName map[string]ColumnID
}

// Column is a typed attribute of a table.
type Column struct {
	ID         ColumnID
	Table      TableID
	Name       string
	Domain     domain.Domain
	Nullable   bool
	HasDefault bool
}

// UniqueKey is a set of columns whose values identify a row.
type UniqueKey struct {
	ID      KeyID
	Table   TableID
	Columns []ColumnID
	Primary bool
	Partial bool
}

// ForeignKey maps origin columns to the columns of a target table.
// Partial is set when some origin column is nullable.
type ForeignKey struct {
	ID            ForeignKeyID
	Origin        TableID
	OriginColumns []ColumnID
	Target        TableID
	TargetColumns []ColumnID
	Partial       bool
}

// Catalog is an immutable arena of schema metadata.
type Catalog struct {
	schemas     []Schema
	tables      []Table
	columns     []Column
	uniqueKeys  []UniqueKey
	foreignKeys []ForeignKey

	schemasByName map[string]SchemaID
	tablesByName  map[string][]TableID
}

// Schemas returns all schemas in declaration order.
func (c *Catalog) Schemas() []Schema { return c.schemas }

// Tables returns all tables in declaration order.
func (c *Catalog) Tables() []Table { return c.tables }

// Schema returns the schema with the given id.
func (c *Catalog) Schema(id SchemaID) *Schema { return &c.schemas[id] }

// Table returns the table with the given id.
func (c *Catalog) Table(id TableID) *Table { return &c.tables[id] }

// Column returns the column with the given id.
func (c *Catalog) Column(id ColumnID) *Column { return &c.columns[id] }

// UniqueKey returns the unique key with the given id.
func (c *Catalog) UniqueKey(id KeyID) *UniqueKey { return &c.uniqueKeys[id] }

// ForeignKey returns the foreign key with the given id.
func (c *Catalog) ForeignKey(id ForeignKeyID) *ForeignKey { return &c.foreignKeys[id] }

// FindTables returns every table with the given name, across schemas.
func (c *Catalog) FindTables(name string) []TableID {
	return c.tablesByName[name]
}

// LookupSchema finds a schema by name.
func (c *Catalog) LookupSchema(name string) (SchemaID, bool) {
	id, ok := c.schemasByName[name]
	return id, ok
}

// LookupTable finds a table by schema and name.
func (c *Catalog) LookupTable(schema, name string) (TableID, bool) {
	for _, id := range c.tablesByName[name] {
		if c.schemas[c.tables[id].Schema].Name == schema {
			return id, true
		}
	}
	return 0, false
}

// LookupColumn finds a column of a table by name.
func (c *Catalog) LookupColumn(table TableID, name string) (ColumnID, bool) {
	id, ok := c.tables[table].columnsByName[name]
	return id, ok
}

// QualifiedName returns "schema.table".
func (c *Catalog) QualifiedName(id TableID) string {
	t := &c.tables[id]
	return c.schemas[t.Schema].Name + "." + t.Name
}

// ColumnName returns "table.column".
func (c *Catalog) ColumnName(id ColumnID) string {
	col := &c.columns[id]
	return c.tables[col.Table].Name + "." + col.Name
}

// Identity returns the columns that identify a row of the table: the
// primary key, else the first unique key over non-nullable columns, else
// every column.
func (c *Catalog) Identity(id TableID) []ColumnID {
	t := &c.tables[id]
	if t.PrimaryKey != NoKey {
		return c.uniqueKeys[t.PrimaryKey].Columns
	}
	for _, kid := range t.UniqueKeys {
		key := &c.uniqueKeys[kid]
		if !key.Partial {
			return key.Columns
		}
	}
	return t.Columns
}

// IsUnique reports whether the given columns cover some unique key of the
// table, so that their values identify at most one row.
func (c *Catalog) IsUnique(table TableID, cols []ColumnID) bool {
	set := make(map[ColumnID]bool, len(cols))
	for _, col := range cols {
		set[col] = true
	}
	for _, kid := range c.tables[table].UniqueKeys {
		covered := true
		for _, col := range c.uniqueKeys[kid].Columns {
			if !set[col] {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	return false
}

func (c *Catalog) String() string {
	return fmt.Sprintf("catalog(%d schemas, %d tables, %d columns)", len(c.schemas), len(c.tables), len(c.columns))
}
