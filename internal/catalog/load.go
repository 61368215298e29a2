package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// Definition is the serialized form of a catalog, shared by the YAML and CUE
// loaders.
type Definition struct {
	Schemas []SchemaDef `yaml:"schemas" json:"schemas"`
}

// SchemaDef describes one schema.
type SchemaDef struct {
	Name   string     `yaml:"name" json:"name"`
	Tables []TableDef `yaml:"tables" json:"tables"`
}

// TableDef describes one table.
type TableDef struct {
	Name        string          `yaml:"name" json:"name"`
	Columns     []ColumnDef     `yaml:"columns" json:"columns"`
	PrimaryKey  []string        `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	UniqueKeys  [][]string      `yaml:"unique_keys,omitempty" json:"unique_keys,omitempty"`
	ForeignKeys []ForeignKeyDef `yaml:"foreign_keys,omitempty" json:"foreign_keys,omitempty"`
}

// ColumnDef describes one column. Type is a backend type name such as
// "integer" or "varchar(32)"; Labels turns the column into an enum.
type ColumnDef struct {
	Name     string   `yaml:"name" json:"name"`
	Type     string   `yaml:"type" json:"type"`
	Nullable bool     `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	Default  bool     `yaml:"default,omitempty" json:"default,omitempty"`
	Labels   []string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// ForeignKeyDef describes one foreign key. Target is "table" or
// "schema.table"; TargetColumns defaults to the target primary key.
type ForeignKeyDef struct {
	Columns       []string `yaml:"columns" json:"columns"`
	Target        string   `yaml:"target" json:"target"`
	TargetColumns []string `yaml:"target_columns,omitempty" json:"target_columns,omitempty"`
}

// FromDefinition builds a catalog from its serialized form.
func FromDefinition(def *Definition) (*Catalog, error) {
	b := NewBuilder()
	var errs []error

	type pending struct {
		table TableID
		def   TableDef
	}
	var tables []pending

	for _, sd := range def.Schemas {
		sid := b.AddSchema(sd.Name)
		for _, td := range sd.Tables {
			tid := b.AddTable(sid, td.Name)
			for _, cd := range td.Columns {
				var d domain.Domain
				if len(cd.Labels) > 0 {
					d = domain.Enum{Labels: cd.Labels}
				} else {
					d = domain.ParseName(cd.Type)
				}
				b.AddColumn(tid, cd.Name, d, cd.Nullable, cd.Default)
			}
			tables = append(tables, pending{table: tid, def: td})
		}
	}

	columns := func(table TableID, names []string) ([]ColumnID, error) {
		ids := make([]ColumnID, 0, len(names))
		for _, name := range names {
			id, ok := b.cat.LookupColumn(table, name)
			if !ok {
				return nil, fmt.Errorf("unknown column %s.%s", b.cat.tables[table].Name, name)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	for _, p := range tables {
		if len(p.def.PrimaryKey) > 0 {
			cols, err := columns(p.table, p.def.PrimaryKey)
			if err != nil {
				errs = append(errs, err)
			} else {
				b.AddUniqueKey(p.table, cols, true)
			}
		}
		for _, uk := range p.def.UniqueKeys {
			cols, err := columns(p.table, uk)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			b.AddUniqueKey(p.table, cols, false)
		}
	}

	for _, p := range tables {
		for _, fd := range p.def.ForeignKeys {
			target, err := resolveTarget(b.cat, b.cat.tables[p.table].Schema, fd.Target)
			if err != nil {
				errs = append(errs, fmt.Errorf("foreign key on %s: %w", p.def.Name, err))
				continue
			}
			origin, err := columns(p.table, fd.Columns)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			var targetCols []ColumnID
			if len(fd.TargetColumns) > 0 {
				targetCols, err = columns(target, fd.TargetColumns)
				if err != nil {
					errs = append(errs, err)
					continue
				}
			} else if pk := b.cat.tables[target].PrimaryKey; pk != NoKey {
				targetCols = b.cat.uniqueKeys[pk].Columns
			} else {
				errs = append(errs, fmt.Errorf("foreign key on %s: target %s has no primary key", p.def.Name, fd.Target))
				continue
			}
			b.AddForeignKey(p.table, origin, target, targetCols)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return b.Build()
}

func resolveTarget(c *Catalog, home SchemaID, name string) (TableID, error) {
	if schema, table, ok := strings.Cut(name, "."); ok {
		id, found := c.LookupTable(schema, table)
		if !found {
			return 0, fmt.Errorf("unknown table %s", name)
		}
		return id, nil
	}
	if id, found := c.LookupTable(c.schemas[home].Name, name); found {
		return id, nil
	}
	ids := c.FindTables(name)
	switch len(ids) {
	case 0:
		return 0, fmt.Errorf("unknown table %s", name)
	case 1:
		return ids[0], nil
	}
	return 0, fmt.Errorf("ambiguous table %s", name)
}

// ParseYAML builds a catalog from a YAML document.
func ParseYAML(data []byte) (*Catalog, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return FromDefinition(&def)
}

// Load reads a catalog file, choosing the format by extension
// (.yaml, .yml or .cue).
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(data, path)
	case ".yaml", ".yml":
		return ParseYAML(data)
	}
	return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
}
