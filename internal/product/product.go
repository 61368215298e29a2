package product

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/flow"
	"github.com/prometheusresearch/htsql-sub004/internal/frame"
)

// Record is one row of a segment: one value per field of the segment
// domain. A nested segment is a []Record.
type Record []any

// Product is the result of a query: a list of records. It does not depend
// on the backend the query ran on.
type Product struct {
	// Title names the list in formats that need a name for it.
	Title  string
	Domain domain.List
	Rows   []Record
}

// Fields returns the fields of the records of p.
func (p *Product) Fields() []domain.Field {
	rec, _ := p.Domain.Item.(domain.Record)
	return rec.Fields
}

// Fetch returns the raw rows of the statement of a plan node.
type Fetch func(p *frame.Plan) ([][]any, error)

// Assemble builds the product of seg from the rows of the statements of
// plan. Statements are fetched in plan order, parent before nested, and
// nested segment rows are attached to their parent rows by key.
func Assemble(title string, seg *flow.Segment, plan *frame.Plan, fetch Fetch) (*Product, error) {
	rows, err := assemble(seg, plan, fetch)
	if err != nil {
		return nil, err
	}
	list, _ := seg.Domain().(domain.List)
	out := &Product{Title: title, Domain: list, Rows: make([]Record, len(rows))}
	for i, r := range rows {
		out.Rows[i] = r.record
	}
	return out, nil
}

// keyed is a record with the keys read from its statement.
type keyed struct {
	parent string
	key    string
	record Record
}

func assemble(seg *flow.Segment, plan *frame.Plan, fetch Fetch) ([]keyed, error) {
	nested := seg.Nested()
	if len(nested) != len(plan.Nested) {
		return nil, diag.Errorf(diag.KindInternal, diag.Mark{}, "segment has %d nested segments, plan has %d", len(nested), len(plan.Nested))
	}
	raw, err := fetch(plan)
	if err != nil {
		return nil, err
	}
	children := make([]map[string][]Record, len(nested))
	for i, n := range nested {
		rows, err := assemble(n, plan.Nested[i], fetch)
		if err != nil {
			return nil, err
		}
		byParent := make(map[string][]Record)
		for _, r := range rows {
			byParent[r.parent] = append(byParent[r.parent], r.record)
		}
		children[i] = byParent
	}

	out := make([]keyed, 0, len(raw))
	for _, row := range raw {
		need := plan.ParentKeyWidth + plan.KeyWidth
		for _, n := range plan.Layout {
			need += n
		}
		if len(row) != need {
			return nil, unmarshalError("expected %d columns, got %d", need, len(row))
		}
		k := keyed{
			parent: rowKey(row[:plan.ParentKeyWidth]),
			key:    rowKey(row[plan.ParentKeyWidth : plan.ParentKeyWidth+plan.KeyWidth]),
			record: make(Record, len(seg.Elements)),
		}
		pos := plan.ParentKeyWidth + plan.KeyWidth
		code, child := 0, 0
		for i, e := range seg.Elements {
			if e.Segment != nil {
				list := children[child][k.key]
				if list == nil {
					list = []Record{}
				}
				k.record[i] = list
				child++
				continue
			}
			n := plan.Layout[code]
			if n != valueWidth(e.Domain()) {
				return nil, unmarshalError("field %q spans %d columns, expected %d", e.Title, n, valueWidth(e.Domain()))
			}
			v, _, err := unmarshalColumns(row[pos:pos+n], e.Domain())
			if err != nil {
				return nil, err
			}
			k.record[i] = v
			pos += n
			code++
		}
		out = append(out, k)
	}
	return out, nil
}

// rowKey renders raw key values as a map key. Values of one key column
// come from the same column type, so the driver returns them in the same
// shape on both sides.
func rowKey(vals []any) string {
	var b strings.Builder
	for _, v := range vals {
		switch x := v.(type) {
		case nil:
			b.WriteString("n")
		case []byte:
			b.WriteString("s" + strconv.Quote(string(x)))
		case string:
			b.WriteString("s" + strconv.Quote(x))
		case int64:
			b.WriteString("i" + strconv.FormatInt(x, 10))
		default:
			fmt.Fprintf(&b, "%T:%v", v, v)
		}
		b.WriteByte(0)
	}
	return b.String()
}
