package flow

import (
	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// Identity returns the codes that identify a row of f among the rows
// sharing the same base row: the key columns of a table, the kernels of a
// quotient.
func Identity(cat *catalog.Catalog, f Flow) []Code {
	axis := Axis(f)
	switch x := axis.(type) {
	case *Table:
		return columnUnits(cat, cat.Identity(x.Table), x)
	case *Fiber:
		return columnUnits(cat, cat.Identity(x.Target), x)
	case *Complement:
		table, _ := TableOf(x.Quotient.Seed)
		return columnUnits(cat, cat.Identity(table), x)
	case *Quotient:
		out := make([]Code, len(x.Kernels))
		for i := range x.Kernels {
			out[i] = NewKernelUnit(x, i)
		}
		return out
	}
	return nil
}

func columnUnits(cat *catalog.Catalog, cols []catalog.ColumnID, f Flow) []Code {
	out := make([]Code, len(cols))
	for i, col := range cols {
		out[i] = NewColumnUnit(cat, col, f)
	}
	return out
}

// RowKey returns codes whose values identify a row of f among all rows of
// the flow: the identities of every plural step of its chain.
func RowKey(cat *catalog.Catalog, f Flow) []Code {
	var out []Code
	chain := Chain(f)
	for i := len(chain) - 1; i >= 0; i-- {
		step := chain[i]
		switch step.(type) {
		case *Root, *Filtered, *Ordered:
			continue
		}
		if stepSingular(cat, step) {
			continue
		}
		out = append(out, Identity(cat, step)...)
	}
	return dedupe(out)
}

// Ordering returns the complete sort order of the rows of f: explicit sort
// keys, each axis completed by its identity, outer axes first. The result
// is a total order, so clipping the flow is deterministic.
func Ordering(cat *catalog.Catalog, f Flow) []OrderItem {
	outer, inner := ordering(cat, f)
	return dedupeOrder(append(outer, inner...))
}

// SplitOrdering is Ordering with the part contributed by the base of the
// nearest axis separated from the part of the axis itself.
func SplitOrdering(cat *catalog.Catalog, f Flow) (outer, inner []OrderItem) {
	return ordering(cat, f)
}

func ordering(cat *catalog.Catalog, f Flow) (outer, inner []OrderItem) {
	switch x := f.(type) {
	case *Root:
		return nil, nil
	case *Filtered:
		return ordering(cat, x.base)
	case *Ordered:
		outer, inner = ordering(cat, x.base)
		explicit := make([]OrderItem, 0, len(x.Order)+len(inner))
		for _, item := range x.Order {
			explicit = append(explicit, expand(item)...)
		}
		return outer, append(explicit, inner...)
	}
	outer = Ordering(cat, f.Base())
	if stepSingular(cat, f) {
		return outer, nil
	}
	for _, c := range Identity(cat, f) {
		inner = append(inner, OrderItem{Code: c, Dir: 1})
	}
	return outer, inner
}

// expand splits a composite sort key into its elements.
func expand(item OrderItem) []OrderItem {
	comp, ok := item.Code.(*Composite)
	if !ok {
		return []OrderItem{item}
	}
	var out []OrderItem
	for _, e := range comp.Elements {
		out = append(out, expand(OrderItem{Code: e, Dir: item.Dir})...)
	}
	return out
}

func dedupe(codes []Code) []Code {
	seen := make(map[Key]bool, len(codes))
	out := codes[:0:0]
	for _, c := range codes {
		if !seen[c.Key()] {
			seen[c.Key()] = true
			out = append(out, c)
		}
	}
	return out
}

func dedupeOrder(items []OrderItem) []OrderItem {
	seen := make(map[Key]bool, len(items))
	out := items[:0:0]
	for _, item := range items {
		if !seen[item.Code.Key()] {
			seen[item.Code.Key()] = true
			out = append(out, item)
		}
	}
	return out
}

// DedupeOrder drops repeated sort keys, keeping the first occurrence.
func DedupeOrder(items []OrderItem) []OrderItem { return dedupeOrder(items) }

// identityDomain is the domain of the tuple of codes.
func identityDomain(codes []Code) domain.Identity {
	var d domain.Identity
	for _, c := range codes {
		d.Fields = append(d.Fields, c.Domain())
	}
	return d
}
