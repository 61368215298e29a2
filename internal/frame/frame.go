package frame

// Frame is a row source in a FROM clause: a table or a nested SELECT.
type Frame interface {
	frame()
}

// TableFrame is a catalog table.
type TableFrame struct {
	Schema string
	Name   string
}

// JoinKind is the way an anchor is combined with the anchors before it.
type JoinKind int

const (
	// FirstAnchor starts the FROM clause.
	FirstAnchor JoinKind = iota
	CrossJoin
	InnerJoin
	LeftJoin
)

// Anchor is one entry of a FROM clause.
type Anchor struct {
	Frame Frame
	Alias string
	Join  JoinKind
	On    Phrase // nil for cross joins and the first anchor
}

// Column is one entry of a SELECT list.
type Column struct {
	Phrase Phrase
	Alias  string
}

// Order is one entry of an ORDER BY clause; Dir is +1 or -1.
type Order struct {
	Phrase Phrase
	Dir    int
}

// Select is a SELECT statement. A nil Limit or Offset is absent.
type Select struct {
	Columns []Column
	From    []Anchor
	Where   Phrase
	GroupBy []Phrase
	OrderBy []Order
	Limit   *int64
	Offset  *int64
}

func (*TableFrame) frame() {}
func (*Select) frame()     {}

// Plan is the reduced form of a segment tree: one statement per segment.
// Layout gives the number of SQL columns each selected code occupies.
type Plan struct {
	Select *Select
	// KeyWidth and ParentKeyWidth count the leading columns holding the
	// row key and the parent row key.
	ParentKeyWidth int
	KeyWidth       int
	Layout         []int
	Nested         []*Plan
}
