package catalog

import (
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// Export returns the serialized form of c. FromDefinition(Export(c))
// rebuilds an equivalent catalog.
func Export(c *Catalog) *Definition {
	def := &Definition{Schemas: make([]SchemaDef, 0, len(c.schemas))}
	for _, s := range c.schemas {
		sd := SchemaDef{Name: s.Name, Tables: make([]TableDef, 0, len(s.Tables))}
		for _, tid := range s.Tables {
			sd.Tables = append(sd.Tables, c.exportTable(tid))
		}
		def.Schemas = append(def.Schemas, sd)
	}
	return def
}

func (c *Catalog) exportTable(id TableID) TableDef {
	t := &c.tables[id]
	td := TableDef{Name: t.Name, Columns: make([]ColumnDef, 0, len(t.Columns))}
	for _, cid := range t.Columns {
		col := &c.columns[cid]
		cd := ColumnDef{Name: col.Name, Nullable: col.Nullable, Default: col.HasDefault}
		switch d := col.Domain.(type) {
		case domain.Enum:
			cd.Type = "text"
			cd.Labels = d.Labels
		case domain.Opaque:
			cd.Type = d.Name
		default:
			cd.Type = d.String()
		}
		td.Columns = append(td.Columns, cd)
	}
	names := func(ids []ColumnID) []string {
		out := make([]string, len(ids))
		for i, cid := range ids {
			out[i] = c.columns[cid].Name
		}
		return out
	}
	if t.PrimaryKey != NoKey {
		td.PrimaryKey = names(c.uniqueKeys[t.PrimaryKey].Columns)
	}
	for _, kid := range t.UniqueKeys {
		if kid == t.PrimaryKey {
			continue
		}
		td.UniqueKeys = append(td.UniqueKeys, names(c.uniqueKeys[kid].Columns))
	}
	for _, fid := range t.ForeignKeys {
		fk := &c.foreignKeys[fid]
		target := &c.tables[fk.Target]
		td.ForeignKeys = append(td.ForeignKeys, ForeignKeyDef{
			Columns:       names(fk.OriginColumns),
			Target:        c.schemas[target.Schema].Name + "." + target.Name,
			TargetColumns: names(fk.TargetColumns),
		})
	}
	return td
}
