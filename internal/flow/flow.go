package flow

import (
	"fmt"
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
)

// Flow is one step of a relational chain. Every flow but the root has a
// base; the rows of a flow are produced relative to the rows of its base.
type Flow interface {
	Base() Flow
	Key() Key
	String() string
	flow()
}

type flowNode struct {
	base Flow
	key  Key
}

func (f *flowNode) Base() Flow { return f.base }
func (f *flowNode) Key() Key   { return f.key }
func (*flowNode) flow()        {}

// Root is the scalar flow: exactly one row and no columns.
type Root struct{ flowNode }

// Table attaches every row of a table to each row of its base.
type Table struct {
	flowNode
	Table catalog.TableID
	Name  string
}

// Fiber follows a join from the rows of its base.
type Fiber struct {
	flowNode
	Join   catalog.Join
	Target catalog.TableID
	Name   string
}

// Filtered keeps the rows of its base satisfying Predicate.
type Filtered struct {
	flowNode
	Predicate Code
}

// OrderItem is one sort key: Dir is +1 for ascending, -1 for descending.
type OrderItem struct {
	Code Code
	Dir  int
}

// Ordered sorts the rows of its base and optionally clips them to the
// window [Offset, Offset+Limit) of every base row's partition.
type Ordered struct {
	flowNode
	Order  []OrderItem
	Limit  *int64
	Offset *int64
}

// IsClipped reports whether the flow restricts the number of rows.
func (f *Ordered) IsClipped() bool { return f.Limit != nil || f.Offset != nil }

// Quotient is the set of distinct kernel values of the Seed rows; one row
// per distinct value and base row. The seed is a flow whose chain passes
// through the quotient's base.
type Quotient struct {
	flowNode
	Seed    Flow
	Kernels []Code
}

// Complement is the group of seed rows behind each row of a quotient.
// Its base is the quotient or a flow derived from it.
type Complement struct {
	flowNode
	Quotient *Quotient
}

// NewRoot returns the scalar flow.
func NewRoot() *Root {
	return &Root{flowNode{key: newKey(domainFlow, "root").sum()}}
}

// NewTable returns a table flow over base.
func NewTable(base Flow, table catalog.TableID, name string) *Table {
	key := newKey(domainFlow, "table").key(base.Key()).int(int64(table)).sum()
	return &Table{flowNode: flowNode{base: base, key: key}, Table: table, Name: name}
}

// NewFiber returns the flow of rows reached by join from base.
func NewFiber(base Flow, join catalog.Join, target catalog.TableID, name string) *Fiber {
	kb := newKey(domainFlow, "fiber").key(base.Key()).int(int64(join.FK))
	if join.Reverse {
		kb.str("reverse")
	}
	return &Fiber{flowNode: flowNode{base: base, key: kb.sum()}, Join: join, Target: target, Name: name}
}

// NewFiltered returns the rows of base satisfying pred.
func NewFiltered(base Flow, pred Code) *Filtered {
	key := newKey(domainFlow, "filtered").key(base.Key()).key(pred.Key()).sum()
	return &Filtered{flowNode: flowNode{base: base, key: key}, Predicate: pred}
}

// NewOrdered returns base sorted by order and clipped by limit and offset.
func NewOrdered(base Flow, order []OrderItem, limit, offset *int64) *Ordered {
	kb := newKey(domainFlow, "ordered").key(base.Key())
	for _, item := range order {
		kb.key(item.Code.Key()).int(int64(item.Dir))
	}
	kb.opt(limit).opt(offset)
	return &Ordered{flowNode: flowNode{base: base, key: kb.sum()}, Order: order, Limit: limit, Offset: offset}
}

// NewQuotient returns the distinct kernel values of seed per row of base.
func NewQuotient(base, seed Flow, kernels []Code) *Quotient {
	kb := newKey(domainFlow, "quotient").key(base.Key()).key(seed.Key())
	for _, k := range kernels {
		kb.key(k.Key())
	}
	return &Quotient{flowNode: flowNode{base: base, key: kb.sum()}, Seed: seed, Kernels: kernels}
}

// NewComplement returns the seed rows behind each row of base, which is
// q or a flow derived from q.
func NewComplement(base Flow, q *Quotient) *Complement {
	key := newKey(domainFlow, "complement").key(base.Key()).key(q.Key()).sum()
	return &Complement{flowNode: flowNode{base: base, key: key}, Quotient: q}
}

func (f *Root) String() string  { return "@" }
func (f *Table) String() string { return f.base.String() + "/" + f.Name }
func (f *Fiber) String() string { return f.base.String() + "." + f.Name }

func (f *Filtered) String() string {
	return fmt.Sprintf("%s?%s", f.base, f.Predicate)
}

func (f *Ordered) String() string {
	parts := make([]string, len(f.Order))
	for i, item := range f.Order {
		parts[i] = item.String()
	}
	s := fmt.Sprintf("%s.sort(%s)", f.base, strings.Join(parts, ","))
	if f.Limit != nil {
		s += fmt.Sprintf(".limit(%d)", *f.Limit)
	}
	if f.Offset != nil {
		s += fmt.Sprintf(".offset(%d)", *f.Offset)
	}
	return s
}

func (f *Quotient) String() string {
	parts := make([]string, len(f.Kernels))
	for i, k := range f.Kernels {
		parts[i] = k.String()
	}
	return fmt.Sprintf("(%s^{%s})", f.Seed, strings.Join(parts, ","))
}

func (f *Complement) String() string { return f.base.String() + ".^" }

func (o OrderItem) String() string {
	if o.Dir < 0 {
		return o.Code.String() + "-"
	}
	return o.Code.String() + "+"
}

// Same reports whether two flows are structurally equal.
func Same(a, b Flow) bool {
	return a.Key() == b.Key()
}

// Axis returns the nearest flow in the chain of f that changes the row
// set shape: a table, fiber, quotient, complement or the root. Filters and
// orderings are skipped.
func Axis(f Flow) Flow {
	for {
		switch f.(type) {
		case *Filtered, *Ordered:
			f = f.Base()
		default:
			return f
		}
	}
}

// TableOf returns the table whose rows f ranges over.
func TableOf(f Flow) (catalog.TableID, bool) {
	switch x := Axis(f).(type) {
	case *Table:
		return x.Table, true
	case *Fiber:
		return x.Target, true
	case *Complement:
		return TableOf(x.Quotient.Seed)
	}
	return 0, false
}

// Chain returns the flows from f down to the root, f first.
func Chain(f Flow) []Flow {
	var out []Flow
	for ; f != nil; f = f.Base() {
		out = append(out, f)
	}
	return out
}

// IsAncestor reports whether a occurs in the chain of f (f included).
func IsAncestor(a, f Flow) bool {
	for ; f != nil; f = f.Base() {
		if Same(a, f) {
			return true
		}
	}
	return false
}

// stepSingular reports whether f yields at most one row per row of its
// base.
func stepSingular(cat *catalog.Catalog, f Flow) bool {
	switch x := f.(type) {
	case *Filtered, *Ordered:
		return true
	case *Fiber:
		return cat.IsSingular(x.Join)
	}
	return false
}

// Spans reports whether f is singular relative to ctx: every row of ctx
// is associated with at most one row of f. This holds when the chain of f
// reaches the chain of ctx through singular steps only.
func Spans(cat *catalog.Catalog, ctx, f Flow) bool {
	for ; f != nil; f = f.Base() {
		if IsAncestor(f, ctx) {
			return true
		}
		if !stepSingular(cat, f) {
			return false
		}
	}
	return true
}

// Meet returns the nearest flow in the chain of f that is also in the
// chain of ctx.
func Meet(ctx, f Flow) Flow {
	for ; f != nil; f = f.Base() {
		if IsAncestor(f, ctx) {
			return f
		}
	}
	return nil
}
