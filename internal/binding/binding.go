package binding

import (
	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/syntax"
)

// Binding is a node of the bound tree. Base is the flow binding the node is
// evaluated in; it is nil only for the root.
type Binding interface {
	Base() Binding
	Domain() domain.Domain
	Mark() diag.Mark
	binding()
}

type node struct {
	base Binding
	mark diag.Mark
}

func (n node) Base() Binding   { return n.base }
func (n node) Mark() diag.Mark { return n.mark }
func (node) binding()          {}

// flowNode is embedded by bindings that denote a set of rows.
type flowNode struct{ node }

func (flowNode) Domain() domain.Domain { return domain.Untyped{} }

// RootBinding is the scalar flow: a single row with no columns.
type RootBinding struct{ flowNode }

// TableBinding attaches every row of a table to each row of its base.
type TableBinding struct {
	flowNode
	Table catalog.TableID
}

// ChainBinding follows links from the rows of its base.
type ChainBinding struct {
	flowNode
	Joins []catalog.Join
}

// SieveBinding keeps the rows of its base satisfying Filter.
type SieveBinding struct {
	flowNode
	Filter Binding
}

// OrderItem is one sort key.
type OrderItem struct {
	Value Binding
	Dir   int // +1 ascending, -1 descending
}

// SortBinding orders the rows of its base and optionally clips them.
type SortBinding struct {
	flowNode
	Order  []OrderItem
	Limit  *int64
	Offset *int64
}

// LocateBinding selects the row of its base with the given identity.
type LocateBinding struct {
	flowNode
	Filter Binding
}

// QuotientBinding groups the rows of Seed by the values of Kernels.
// Its base is the scope the seed was bound in.
type QuotientBinding struct {
	flowNode
	Seed    Binding
	Kernels []Binding
	Names   []string // lookup names of the kernels, "" when unnamed
}

// ComplementBinding is the group of seed rows behind each quotient row.
type ComplementBinding struct {
	flowNode
	Quotient *QuotientBinding
}

// DefineBinding adds a named calculation to the scope of its base.
// Reference definitions ($name) are bound eagerly; attribute definitions
// keep their syntax and are bound wherever they are used.
type DefineBinding struct {
	flowNode
	Name      string
	Reference bool
	Params    []string
	HasParams bool
	Body      syntax.Node
	Value     Binding // bound body of a reference definition
}

// SelectionBinding attaches a record of elements to its base flow.
type SelectionBinding struct {
	flowNode
	Elements []Binding
}

// SegmentBinding is a query segment: the rows of Seed, each rendered as a
// record of Elements. The base is the enclosing flow, the root for the
// top-level segment.
type SegmentBinding struct {
	flowNode
	Seed     Binding
	Elements []Binding
}

// LiteralBinding is a constant. Value is nil for NULL.
type LiteralBinding struct {
	node
	Value any
	Dom   domain.Domain
}

func (b *LiteralBinding) Domain() domain.Domain { return b.Dom }

// ColumnBinding is a column of the table behind its base flow.
type ColumnBinding struct {
	node
	Column catalog.ColumnID
	Dom    domain.Domain
}

func (b *ColumnBinding) Domain() domain.Domain { return b.Dom }

// IdentityBinding is the identity of the rows of a flow: a composite of the
// identity columns.
type IdentityBinding struct {
	node
	Flow     Binding
	Elements []Binding
	Dom      domain.Identity
}

func (b *IdentityBinding) Domain() domain.Domain { return b.Dom }

// FormulaBinding applies a scalar signature to its arguments.
type FormulaBinding struct {
	node
	Sig  *Signature
	Args []Binding
	Dom  domain.Domain
}

func (b *FormulaBinding) Domain() domain.Domain { return b.Dom }

// AggregateBinding folds a plural argument into a value per row of its base.
// Arg is a flow binding for row counting (count, exists) or a value binding
// evaluated in a plural flow.
type AggregateBinding struct {
	node
	Sig *Signature
	Arg Binding
	Dom domain.Domain
}

func (b *AggregateBinding) Domain() domain.Domain { return b.Dom }

// CastBinding converts its argument to another domain.
type CastBinding struct {
	node
	Arm Binding
	Dom domain.Domain
}

func (b *CastBinding) Domain() domain.Domain { return b.Dom }

// KernelBinding is the value of a quotient kernel.
type KernelBinding struct {
	node
	Quotient *QuotientBinding
	Index    int
}

func (b *KernelBinding) Domain() domain.Domain {
	return b.Quotient.Kernels[b.Index].Domain()
}

// TitleBinding names its argument in the output.
type TitleBinding struct {
	node
	Arm   Binding
	Title string
}

func (b *TitleBinding) Domain() domain.Domain { return b.Arm.Domain() }

// DirectionBinding marks a sort direction on its argument.
type DirectionBinding struct {
	node
	Arm Binding
	Dir int
}

func (b *DirectionBinding) Domain() domain.Domain { return b.Arm.Domain() }

// QueryBinding is the bound form of a whole query.
type QueryBinding struct {
	Root    *RootBinding
	Segment *SegmentBinding
	Format  string // output format requested with a query pipe, "" for default
	Syntax  *syntax.QueryNode
}

// IsFlow reports whether b denotes a set of rows rather than a value.
func IsFlow(b Binding) bool {
	switch b.(type) {
	case *RootBinding, *TableBinding, *ChainBinding, *SieveBinding, *SortBinding,
		*LocateBinding, *QuotientBinding, *ComplementBinding, *DefineBinding,
		*SelectionBinding, *SegmentBinding:
		return true
	}
	return false
}

// Unwrap strips titles and directions.
func Unwrap(b Binding) Binding {
	for {
		switch x := b.(type) {
		case *TitleBinding:
			b = x.Arm
		case *DirectionBinding:
			b = x.Arm
		default:
			return b
		}
	}
}

// Title returns the output heading of an element: the explicit title if
// any, otherwise the text the element was written as.
func Title(b Binding) string {
	switch x := b.(type) {
	case *TitleBinding:
		return x.Title
	case *DirectionBinding:
		return Title(x.Arm)
	case *SegmentBinding:
		return Title(x.Seed)
	case *SelectionBinding:
		return Title(x.Base())
	}
	return b.Mark().Text()
}

// TableOf returns the table whose rows a flow binding ranges over.
func TableOf(cat *catalog.Catalog, b Binding) (catalog.TableID, bool) {
	for b != nil {
		switch x := b.(type) {
		case *TableBinding:
			return x.Table, true
		case *ChainBinding:
			return cat.JoinTo(x.Joins[len(x.Joins)-1]), true
		case *ComplementBinding:
			b = x.Quotient.Seed
			continue
		case *QuotientBinding, *RootBinding, *SegmentBinding:
			return 0, false
		}
		if !IsFlow(b) {
			return 0, false
		}
		b = b.Base()
	}
	return 0, false
}

func at(base Binding, mark diag.Mark) node {
	return node{base: base, mark: mark}
}

func flowAt(base Binding, mark diag.Mark) flowNode {
	return flowNode{node{base: base, mark: mark}}
}
