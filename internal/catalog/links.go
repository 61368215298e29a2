package catalog

import (
	"sort"
	"strings"
)

// Join is one step of a traversal along a foreign key. A forward join goes
// from the origin table to the target; a reverse join goes back.
type Join struct {
	FK      ForeignKeyID
	Reverse bool
}

// JoinFrom returns the table the join starts at.
func (c *Catalog) JoinFrom(j Join) TableID {
	fk := &c.foreignKeys[j.FK]
	if j.Reverse {
		return fk.Target
	}
	return fk.Origin
}

// JoinTo returns the table the join arrives at.
func (c *Catalog) JoinTo(j Join) TableID {
	fk := &c.foreignKeys[j.FK]
	if j.Reverse {
		return fk.Origin
	}
	return fk.Target
}

// JoinColumns returns the paired columns of the join condition: from[i] on
// the starting table equals to[i] on the arriving table.
func (c *Catalog) JoinColumns(j Join) (from, to []ColumnID) {
	fk := &c.foreignKeys[j.FK]
	if j.Reverse {
		return fk.TargetColumns, fk.OriginColumns
	}
	return fk.OriginColumns, fk.TargetColumns
}

// IsSingular reports whether every starting row has at most one arriving
// row. Forward joins always are; reverse joins are when the foreign key
// columns are unique in the origin table.
func (c *Catalog) IsSingular(j Join) bool {
	if !j.Reverse {
		return true
	}
	fk := &c.foreignKeys[j.FK]
	return c.IsUnique(fk.Origin, fk.OriginColumns)
}

// Link is a named join available from a table.
type Link struct {
	Name string
	Join Join
}

var stemSuffixes = []string{"_id", "_code", "_fk", "_key"}

// stem strips a conventional key suffix from a column name.
func stem(name string) string {
	for _, suffix := range stemSuffixes {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// Links returns every link name usable from the table, sorted by name.
//
// A forward key is reachable under the target table name and, for a
// single-column key, under the column stem (mentor_id -> mentor). A reverse
// key is reachable under the origin table name and, for a single-column key,
// under "<origin>_via_<stem>". The same name may denote several joins; the
// binder reports such names as ambiguous.
func (c *Catalog) Links(table TableID) []Link {
	t := &c.tables[table]
	var links []Link
	add := func(name string, j Join) {
		for _, l := range links {
			if l.Name == name && l.Join == j {
				return
			}
		}
		links = append(links, Link{Name: name, Join: j})
	}
	for _, id := range t.ForeignKeys {
		fk := &c.foreignKeys[id]
		j := Join{FK: id}
		add(c.tables[fk.Target].Name, j)
		if len(fk.OriginColumns) == 1 {
			col := c.columns[fk.OriginColumns[0]].Name
			if s := stem(col); s != col {
				if _, clash := t.columnsByName[s]; !clash {
					add(s, j)
				}
			}
		}
	}
	for _, id := range t.ReferringKeys {
		fk := &c.foreignKeys[id]
		j := Join{FK: id, Reverse: true}
		origin := c.tables[fk.Origin].Name
		add(origin, j)
		if len(fk.OriginColumns) == 1 {
			add(origin+"_via_"+stem(c.columns[fk.OriginColumns[0]].Name), j)
		}
	}
	sort.SliceStable(links, func(i, k int) bool { return links[i].Name < links[k].Name })
	return links
}

// LookupLinks returns the joins reachable from the table under name.
func (c *Catalog) LookupLinks(table TableID, name string) []Join {
	var joins []Join
	for _, l := range c.Links(table) {
		if l.Name == name {
			joins = append(joins, l.Join)
		}
	}
	return joins
}
