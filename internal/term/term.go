package term

import (
	"fmt"
	"maps"

	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
	"github.com/prometheusresearch/htsql-sub004/internal/flow"
)

// Tag identifies a term within one compiled segment.
type Tag int

// Routes maps the key of an axis flow, or of an aggregate unit, to the tag
// of the term that produces it.
type Routes map[flow.Key]Tag

// Term is a node of the physical plan.
type Term interface {
	Tag() Tag
	// Flow is the flow whose rows the term produces.
	Flow() flow.Flow
	Routes() Routes
	term()
}

type termNode struct {
	tag    Tag
	flow   flow.Flow
	routes Routes
}

func (t *termNode) Tag() Tag        { return t.tag }
func (t *termNode) Flow() flow.Flow { return t.flow }
func (t *termNode) Routes() Routes  { return t.routes }
func (*termNode) term()             {}

// Tie is a join condition: Outer is evaluated against the rows the term is
// attached to, Inner against the rows of the term. Total ties compare
// NULLs as equal.
type Tie struct {
	Outer flow.Code
	Inner flow.Code
	Total bool
}

// JoinKind is the kind of a JoinTerm.
type JoinKind int

const (
	CrossJoin JoinKind = iota
	InnerJoin
	LeftJoin
)

func (k JoinKind) String() string {
	switch k {
	case InnerJoin:
		return "inner"
	case LeftJoin:
		return "left"
	}
	return "cross"
}

// Strategy is a way of clipping an ordered flow.
type Strategy int

const (
	// ClipNative uses LIMIT and OFFSET.
	ClipNative Strategy = iota
	// ClipTop uses TOP; it cannot skip rows.
	ClipTop
	// ClipWindow numbers rows with ROW_NUMBER() and filters the range.
	ClipWindow
	// ClipVariables numbers rows with a session variable counter.
	ClipVariables
)

func (s Strategy) String() string {
	switch s {
	case ClipTop:
		return "top"
	case ClipWindow:
		return "window"
	case ClipVariables:
		return "variables"
	}
	return "native"
}

// ScalarTerm produces a single row without columns.
type ScalarTerm struct{ termNode }

// TableTerm scans a table.
type TableTerm struct {
	termNode
	Table  catalog.TableID
	Schema string
	Name   string
}

// JoinTerm attaches the rows of Right to the rows of Left.
type JoinTerm struct {
	termNode
	Left  Term
	Right Term
	Kind  JoinKind
	Ties  []Tie
}

// FilterTerm keeps the rows of Kid satisfying Predicate.
type FilterTerm struct {
	termNode
	Kid       Term
	Predicate flow.Code
}

// OrderTerm clips the rows of Kid. Within every partition, rows are
// numbered in Order and those in [Offset, Offset+Limit) are kept.
type OrderTerm struct {
	termNode
	Kid       Term
	Order     []flow.OrderItem
	Limit     *int64
	Offset    *int64
	Partition []flow.Code
	Strategy  Strategy
}

// PermanentTerm evaluates Kid on its own, as a derived table, before its
// rows are combined with anything else.
type PermanentTerm struct {
	termNode
	Kid Term
}

// ProjectionTerm groups the rows of Kid by the kernels of Quotient and by
// Group, the codes tying the seed to the base of the quotient.
type ProjectionTerm struct {
	termNode
	Kid      Term
	Quotient *flow.Quotient
	Group    []flow.Code
}

// CorrelationTerm evaluates an aggregate over the rows of Kid that match
// the current row by Ties.
type CorrelationTerm struct {
	termNode
	Kid  Term
	Unit *flow.AggregateUnit
	Ties []Tie
}

// EmbeddingTerm makes the correlated aggregates available to Kid's rows.
type EmbeddingTerm struct {
	termNode
	Kid          Term
	Correlations []*CorrelationTerm
}

// SegmentTerm is the compiled form of a segment.
type SegmentTerm struct {
	termNode
	Kid     Term
	Segment *flow.Segment
	// ParentKey is selected first so that rows can be matched with the
	// parent segment; Key follows when the segment has nested segments.
	ParentKey []flow.Code
	Key       []flow.Code
	Order     []flow.OrderItem
	Nested    []*SegmentTerm
}

// Columns returns the codes the segment query selects, in order: parent
// key, own key, then one code per value element.
func (t *SegmentTerm) Columns() []flow.Code {
	var out []flow.Code
	out = append(out, t.ParentKey...)
	out = append(out, t.Key...)
	for _, e := range t.Segment.Elements {
		if e.Code != nil {
			out = append(out, e.Code)
		}
	}
	return out
}

func mergeRoutes(a, b Routes) Routes {
	out := maps.Clone(a)
	if out == nil {
		out = make(Routes)
	}
	maps.Copy(out, b)
	return out
}

// Describe renders a term tree for debugging and tests.
func Describe(t Term) string {
	switch x := t.(type) {
	case *ScalarTerm:
		return "scalar"
	case *TableTerm:
		return fmt.Sprintf("table(%s)", x.Name)
	case *JoinTerm:
		return fmt.Sprintf("%s-join(%s, %s)", x.Kind, Describe(x.Left), Describe(x.Right))
	case *FilterTerm:
		return fmt.Sprintf("filter(%s)", Describe(x.Kid))
	case *OrderTerm:
		return fmt.Sprintf("clip-%s(%s)", x.Strategy, Describe(x.Kid))
	case *PermanentTerm:
		return fmt.Sprintf("permanent(%s)", Describe(x.Kid))
	case *ProjectionTerm:
		return fmt.Sprintf("project(%s)", Describe(x.Kid))
	case *CorrelationTerm:
		return fmt.Sprintf("correlate(%s)", Describe(x.Kid))
	case *EmbeddingTerm:
		s := "embed(" + Describe(x.Kid)
		for _, c := range x.Correlations {
			s += ", " + Describe(c)
		}
		return s + ")"
	case *SegmentTerm:
		return fmt.Sprintf("segment(%s)", Describe(x.Kid))
	}
	return fmt.Sprintf("%T", t)
}
