package dialect

import (
	"strconv"
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/frame"
)

// writer renders one statement.
type writer struct {
	d *Dialect
}

const indentUnit = "    "

// Dump renders a SELECT statement.
func (d *Dialect) Dump(sel *frame.Select) (string, error) {
	w := &writer{d: d}
	return w.selectSQL(sel, 0)
}

// DumpPlan renders the statement of every segment of a plan, parent
// before nested, depth first.
func (d *Dialect) DumpPlan(p *frame.Plan) ([]string, error) {
	sql, err := d.Dump(p.Select)
	if err != nil {
		return nil, err
	}
	out := []string{sql}
	for _, nested := range p.Nested {
		more, err := d.DumpPlan(nested)
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	return out, nil
}

func (w *writer) selectSQL(s *frame.Select, depth int) (string, error) {
	nl := "\n" + strings.Repeat(indentUnit, depth)
	var b strings.Builder
	b.WriteString("SELECT ")
	top := w.d.Paging == PagingTop && s.Limit != nil && s.Offset == nil
	if top {
		b.WriteString("TOP " + strconv.FormatInt(*s.Limit, 10) + " ")
	}
	cols := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		text, err := w.value(c.Phrase, depth)
		if err != nil {
			return "", err
		}
		if c.Alias != "" {
			text += " AS " + w.d.Quote(c.Alias)
		}
		cols = append(cols, text)
	}
	if len(cols) == 0 {
		cols = append(cols, "1 AS "+w.d.Quote("unit"))
	}
	b.WriteString(strings.Join(cols, ","+nl+"       "))

	for i, a := range s.From {
		src, err := w.frameSQL(a.Frame, depth)
		if err != nil {
			return "", err
		}
		src += " AS " + w.d.Quote(a.Alias)
		if i == 0 || a.Join == frame.FirstAnchor {
			b.WriteString(nl + "FROM " + src)
			continue
		}
		switch {
		case a.Join == frame.LeftJoin:
			b.WriteString(nl + "LEFT OUTER JOIN " + src)
		case a.Join == frame.InnerJoin && a.On != nil:
			b.WriteString(nl + "INNER JOIN " + src)
		default:
			b.WriteString(nl + "CROSS JOIN " + src)
			continue
		}
		on := "(1 = 1)"
		if a.On != nil {
			if on, err = w.predicate(a.On, depth); err != nil {
				return "", err
			}
		}
		b.WriteString(" ON " + on)
	}
	if s.Where != nil {
		where, err := w.predicate(s.Where, depth)
		if err != nil {
			return "", err
		}
		b.WriteString(nl + "WHERE " + where)
	}
	if len(s.GroupBy) > 0 {
		group := make([]string, len(s.GroupBy))
		for i, p := range s.GroupBy {
			text, err := w.value(p, depth)
			if err != nil {
				return "", err
			}
			group[i] = text
		}
		b.WriteString(nl + "GROUP BY " + strings.Join(group, ", "))
	}
	if len(s.OrderBy) > 0 {
		order, err := w.orderSQL(s.OrderBy, depth)
		if err != nil {
			return "", err
		}
		b.WriteString(nl + "ORDER BY " + order)
	}
	if !top {
		b.WriteString(w.paging(s, nl))
	}
	return b.String(), nil
}

func (w *writer) paging(s *frame.Select, nl string) string {
	if s.Limit == nil && s.Offset == nil {
		return ""
	}
	var limit, offset int64 = -1, 0
	if s.Limit != nil {
		limit = *s.Limit
	}
	if s.Offset != nil {
		offset = *s.Offset
	}
	switch w.d.Paging {
	case PagingLimitComma:
		if limit < 0 {
			return nl + "LIMIT " + strconv.FormatInt(offset, 10) + ", 18446744073709551615"
		}
		if offset == 0 {
			return nl + "LIMIT " + strconv.FormatInt(limit, 10)
		}
		return nl + "LIMIT " + strconv.FormatInt(offset, 10) + ", " + strconv.FormatInt(limit, 10)
	case PagingTop:
		out := nl + "OFFSET " + strconv.FormatInt(offset, 10) + " ROWS"
		if limit >= 0 {
			out += " FETCH NEXT " + strconv.FormatInt(limit, 10) + " ROWS ONLY"
		}
		return out
	}
	var out string
	if limit >= 0 {
		out = nl + "LIMIT " + strconv.FormatInt(limit, 10)
	} else if w.d.OffsetNeedsLimit {
		out = nl + "LIMIT -1"
	}
	if offset > 0 {
		out += nl + "OFFSET " + strconv.FormatInt(offset, 10)
	}
	return out
}

func (w *writer) orderSQL(items []frame.Order, depth int) (string, error) {
	out := make([]string, len(items))
	for i, o := range items {
		text, err := w.value(o.Phrase, depth)
		if err != nil {
			return "", err
		}
		if o.Dir < 0 {
			text += " DESC"
		} else {
			text += " ASC"
		}
		if w.d.NullsOrder && nullable(o.Phrase) {
			if o.Dir < 0 {
				text += " NULLS LAST"
			} else {
				text += " NULLS FIRST"
			}
		}
		out[i] = text
	}
	return strings.Join(out, ", "), nil
}

func nullable(p frame.Phrase) bool {
	switch x := p.(type) {
	case *frame.ColumnPhrase:
		return x.Nullable
	case *frame.LiteralPhrase:
		return x.Value == nil
	case *frame.RowNumberPhrase:
		return false
	}
	return true
}

func (w *writer) frameSQL(f frame.Frame, depth int) (string, error) {
	switch x := f.(type) {
	case *frame.TableFrame:
		name := w.d.Quote(x.Name)
		if x.Schema != "" && !w.d.SingleSchema && x.Schema != w.d.DefaultSchema {
			name = w.d.Quote(x.Schema) + "." + name
		}
		return name, nil
	case *frame.Select:
		inner, err := w.selectSQL(x, depth+1)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	}
	return "", internalError("unexpected frame %T", f)
}

// value renders p where a value is expected.
func (w *writer) value(p frame.Phrase, depth int) (string, error) {
	p = frame.AsValue(p)
	if from, ok := p.(*frame.FromPredicate); ok {
		cond, err := w.phrase(from.Arm, depth)
		if err != nil {
			return "", err
		}
		if w.d.BooleanValues {
			return cond, nil
		}
		return "(CASE WHEN " + cond + " THEN 1 WHEN NOT " + cond + " THEN 0 END)", nil
	}
	return w.phrase(p, depth)
}

// predicate renders p where a condition is expected.
func (w *writer) predicate(p frame.Phrase, depth int) (string, error) {
	p = frame.AsPredicate(p)
	if to, ok := p.(*frame.ToPredicate); ok {
		v, err := w.phrase(to.Arm, depth)
		if err != nil {
			return "", err
		}
		if w.d.BooleanValues {
			return v, nil
		}
		return "(" + v + " <> 0)", nil
	}
	return w.phrase(p, depth)
}

func (w *writer) phrase(p frame.Phrase, depth int) (string, error) {
	switch x := p.(type) {
	case *frame.LiteralPhrase:
		return w.d.Serialize(x.Value, x.Dom)
	case *frame.ColumnPhrase:
		return w.d.Quote(x.Alias) + "." + w.d.Quote(x.Name), nil
	case *frame.FormulaPhrase:
		return w.formula(x, depth)
	case *frame.CastPhrase:
		return w.cast(x, depth)
	case *frame.AggregatePhrase:
		f := &frame.FormulaPhrase{Construct: x.Construct, Dom: x.Dom}
		args := []string{"*"}
		if x.Arg != nil {
			arg, err := w.value(x.Arg, depth)
			if err != nil {
				return "", err
			}
			f.Args = []frame.Phrase{x.Arg}
			args = []string{arg}
		}
		rule, ok := w.d.Rule("agg:" + x.Construct)
		if !ok {
			return "", compileError("%s does not support the aggregate %s()", w.d.Name, x.Construct)
		}
		return rule(w, f, args)
	case *frame.SubqueryPhrase:
		inner, err := w.selectSQL(x.Select, depth+1)
		if err != nil {
			return "", err
		}
		if x.Exists {
			return "EXISTS (" + inner + ")", nil
		}
		return "(" + inner + ")", nil
	case *frame.RowNumberPhrase:
		return w.rowNumber(x, depth)
	case *frame.VariablePhrase:
		return "@" + x.Name, nil
	case *frame.AssignPhrase:
		v, err := w.value(x.Value, depth)
		if err != nil {
			return "", err
		}
		return "(@" + x.Name + " := " + v + ")", nil
	case *frame.ToPredicate:
		return w.predicate(x, depth)
	case *frame.FromPredicate:
		return w.value(x, depth)
	}
	return "", internalError("unexpected phrase %T", p)
}

func (w *writer) formula(f *frame.FormulaPhrase, depth int) (string, error) {
	rule, ok := w.d.Rule(f.Construct)
	if !ok {
		return "", compileError("%s does not support %s", w.d.Name, f.Construct)
	}
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		var err error
		if frame.IsPredicate(a) {
			args[i], err = w.predicate(a, depth)
		} else {
			args[i], err = w.value(a, depth)
		}
		if err != nil {
			return "", err
		}
	}
	return rule(w, f, args)
}

func (w *writer) cast(c *frame.CastPhrase, depth int) (string, error) {
	if c.Arm.Domain().Kind() == domain.BooleanKind && c.Dom.Kind() == domain.TextKind {
		cond, err := w.predicate(c.Arm, depth)
		if err != nil {
			return "", err
		}
		return "(CASE WHEN " + cond + " THEN " + w.d.literals.Text("true") +
			" WHEN NOT " + cond + " THEN " + w.d.literals.Text("false") + " END)", nil
	}
	arm, err := w.value(c.Arm, depth)
	if err != nil {
		return "", err
	}
	if rule, ok := w.d.Rule("cast:" + c.Dom.Kind().String()); ok {
		return rule(w, &frame.FormulaPhrase{Construct: "cast", Args: []frame.Phrase{c.Arm}, Dom: c.Dom}, []string{arm})
	}
	name, ok := w.d.Types[c.Dom.Kind()]
	if !ok {
		return "", compileError("%s cannot convert values to %s", w.d.Name, c.Dom)
	}
	return "CAST(" + arm + " AS " + name + ")", nil
}

func (w *writer) rowNumber(r *frame.RowNumberPhrase, depth int) (string, error) {
	var over []string
	if len(r.Partition) > 0 {
		parts := make([]string, len(r.Partition))
		for i, p := range r.Partition {
			text, err := w.value(p, depth)
			if err != nil {
				return "", err
			}
			parts[i] = text
		}
		over = append(over, "PARTITION BY "+strings.Join(parts, ", "))
	}
	if len(r.Order) > 0 {
		order, err := w.orderSQL(r.Order, depth)
		if err != nil {
			return "", err
		}
		over = append(over, "ORDER BY "+order)
	} else {
		over = append(over, "ORDER BY (SELECT NULL)")
	}
	return "ROW_NUMBER() OVER (" + strings.Join(over, " ") + ")", nil
}
