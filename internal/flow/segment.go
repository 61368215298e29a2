package flow

import "github.com/prometheusresearch/htsql-sub004/internal/domain"

// Element is one field of a segment row: either a value or a nested
// segment.
type Element struct {
	Title   string
	Code    Code
	Segment *Segment
}

// Domain returns the output domain of the element.
func (e Element) Domain() domain.Domain {
	if e.Segment != nil {
		return e.Segment.Domain()
	}
	return e.Code.Domain()
}

// Segment is a part of the output: every row of Flow rendered as a record
// of Elements, in Order. Base is the flow of the enclosing segment row;
// the root for the top-level segment.
type Segment struct {
	Flow     Flow
	Base     Flow
	Elements []Element
	Order    []OrderItem
	// Key identifies a row of Flow; nested segments match their rows to
	// the parent row by it.
	Key []Code
}

// Domain returns the domain of the segment output: a list of records.
func (s *Segment) Domain() domain.Domain {
	rec := domain.Record{}
	for _, e := range s.Elements {
		rec.Fields = append(rec.Fields, domain.Field{Title: e.Title, Domain: e.Domain()})
	}
	return domain.List{Item: rec}
}

// Nested returns the nested segments in element order.
func (s *Segment) Nested() []*Segment {
	var out []*Segment
	for _, e := range s.Elements {
		if e.Segment != nil {
			out = append(out, e.Segment)
		}
	}
	return out
}

// Query is an encoded query.
type Query struct {
	Root    *Root
	Segment *Segment
	Format  string
}
