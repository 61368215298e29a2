package binding

import (
	"slices"
	"sort"

	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
)

// Recipe describes how a name found in a scope turns into a binding.
type Recipe interface {
	recipe()
}

// ColumnRecipe is a column of the scope's table.
type ColumnRecipe struct {
	Column catalog.ColumnID
}

// TableRecipe is a link from the scope's table.
type TableRecipe struct {
	Join catalog.Join
}

// FreeTableRecipe is a table found at the root scope.
type FreeTableRecipe struct {
	Table catalog.TableID
}

// AmbiguousRecipe is a name with several candidate meanings.
type AmbiguousRecipe struct {
	Alternatives []string
}

// ComplexRecipe is a calculated attribute introduced by define.
type ComplexRecipe struct {
	Define *DefineBinding
}

// SelectionRecipe is an element of a selection, found by its title.
type SelectionRecipe struct {
	Element Binding
}

// KernelRecipe is a kernel of a quotient.
type KernelRecipe struct {
	Quotient *QuotientBinding
	Index    int
}

// ComplementRecipe is the seed of a quotient, seen from inside it.
type ComplementRecipe struct {
	Quotient *QuotientBinding
}

func (ColumnRecipe) recipe()     {}
func (TableRecipe) recipe()      {}
func (FreeTableRecipe) recipe()  {}
func (AmbiguousRecipe) recipe()  {}
func (ComplexRecipe) recipe()    {}
func (SelectionRecipe) recipe()  {}
func (KernelRecipe) recipe()     {}
func (ComplementRecipe) recipe() {}

// Found is the result of a successful lookup. Scope is the binding the
// recipe applies to: the scope the lookup started at, or the outer scope it
// was found in.
type Found struct {
	Recipe Recipe
	Scope  Binding
}

// Lookup resolves an attribute name starting at scope.
//
// Filters, sorts, definitions and selections delegate to their base. A table
// scope offers its columns, then its links. When outward is set and the table
// has no such attribute, the search continues in the scope the table was
// reached from, ending at the root, which offers tables.
func Lookup(cat *catalog.Catalog, scope Binding, name string, outward bool) (Found, bool) {
	head := scope
	for b := scope; b != nil; {
		switch x := b.(type) {
		case *DefineBinding:
			if !x.Reference && x.Name == name {
				return Found{ComplexRecipe{x}, head}, true
			}
		case *SelectionBinding:
			for _, el := range x.Elements {
				if t, ok := el.(*TitleBinding); ok && t.Title == name {
					return Found{SelectionRecipe{t.Arm}, head}, true
				}
			}
		case *TableBinding, *ChainBinding, *ComplementBinding:
			if table, ok := TableOf(cat, x); ok {
				if r, ok := tableAttribute(cat, table, name); ok {
					return Found{r, head}, true
				}
			}
			if !outward {
				return Found{}, false
			}
			head = x.Base()
		case *QuotientBinding:
			if r, ok := quotientAttribute(x, name); ok {
				return Found{r, head}, true
			}
			if !outward {
				return Found{}, false
			}
			head = x.Base()
		case *SegmentBinding:
			head = x.Base()
		case *RootBinding:
			if r, ok := rootAttribute(cat, name); ok {
				return Found{r, scope}, true
			}
			return Found{}, false
		}
		b = b.Base()
	}
	return Found{}, false
}

func tableAttribute(cat *catalog.Catalog, table catalog.TableID, name string) (Recipe, bool) {
	if col, ok := cat.LookupColumn(table, name); ok {
		return ColumnRecipe{col}, true
	}
	joins := cat.LookupLinks(table, name)
	switch len(joins) {
	case 0:
		return nil, false
	case 1:
		return TableRecipe{joins[0]}, true
	}
	return AmbiguousRecipe{linkAlternatives(cat, table, joins)}, true
}

// linkAlternatives lists, for each ambiguous join, the names that select
// it alone.
func linkAlternatives(cat *catalog.Catalog, table catalog.TableID, joins []catalog.Join) []string {
	links := cat.Links(table)
	count := make(map[string]int)
	for _, l := range links {
		count[l.Name]++
	}
	var names []string
	for _, j := range joins {
		for _, l := range links {
			if l.Join == j && count[l.Name] == 1 {
				names = append(names, l.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func quotientAttribute(q *QuotientBinding, name string) (Recipe, bool) {
	for i, n := range q.Names {
		if n == name {
			return KernelRecipe{q, i}, true
		}
	}
	if n := seedName(q.Seed); n != "" && n == name {
		return ComplementRecipe{q}, true
	}
	return nil, false
}

// seedName is the name under which a quotient exposes its seed: the name
// the seed was written with.
func seedName(seed Binding) string {
	for seed != nil {
		switch x := seed.(type) {
		case *TableBinding, *ChainBinding:
			return x.Mark().Text()
		case *SieveBinding, *SortBinding, *LocateBinding, *DefineBinding:
			seed = x.Base()
			continue
		}
		return ""
	}
	return ""
}

func rootAttribute(cat *catalog.Catalog, name string) (Recipe, bool) {
	tables := cat.FindTables(name)
	switch len(tables) {
	case 0:
		return nil, false
	case 1:
		return FreeTableRecipe{tables[0]}, true
	}
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = cat.QualifiedName(t)
	}
	sort.Strings(names)
	return AmbiguousRecipe{names}, true
}

// LookupReference resolves '$name' through every enclosing definition.
func LookupReference(scope Binding, name string) (Binding, bool) {
	for b := scope; b != nil; b = b.Base() {
		if d, ok := b.(*DefineBinding); ok && d.Reference && d.Name == name {
			return d.Value, true
		}
	}
	return nil, false
}

// Attributes lists the names available in a scope, for error hints.
func Attributes(cat *catalog.Catalog, scope Binding) []string {
	var names []string
	b := scope
	for b != nil {
		switch b.(type) {
		case *DefineBinding, *SieveBinding, *SortBinding, *LocateBinding, *SelectionBinding:
			if d, ok := b.(*DefineBinding); ok && !d.Reference {
				names = append(names, d.Name)
			}
			b = b.Base()
			continue
		}
		break
	}
	switch x := b.(type) {
	case *QuotientBinding:
		for _, n := range x.Names {
			if n != "" {
				names = append(names, n)
			}
		}
		if n := seedName(x.Seed); n != "" {
			names = append(names, n)
		}
	case *RootBinding:
		for _, t := range cat.Tables() {
			names = append(names, t.Name)
		}
	case nil:
	default:
		if table, ok := TableOf(cat, x); ok {
			for _, col := range cat.Table(table).Columns {
				names = append(names, cat.Column(col).Name)
			}
			for _, l := range cat.Links(table) {
				names = append(names, l.Name)
			}
		}
	}
	sort.Strings(names)
	return slices.Compact(names)
}
