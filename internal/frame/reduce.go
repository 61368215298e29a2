package frame

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/apd/v3"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/flow"
	"github.com/prometheusresearch/htsql-sub004/internal/term"
)

// Reduce lowers a compiled segment tree into SELECT statements.
func Reduce(st *term.SegmentTerm) (*Plan, error) {
	r := &reducer{names: make(map[string]int)}
	plan, err := r.segment(st)
	if err != nil {
		return nil, err
	}
	for _, nested := range st.Nested {
		np, err := Reduce(nested)
		if err != nil {
			return nil, err
		}
		plan.Nested = append(plan.Nested, np)
	}
	return plan, nil
}

type reducer struct {
	names map[string]int
	vars  int
}

// location tells where the rows of a term are found from a scope.
type location struct {
	alias  string
	nested *nested
	corr   *term.CorrelationTerm
}

// scope is one SELECT under construction.
type scope struct {
	sel        *Select
	routes     term.Routes
	owned      map[term.Tag]location
	projection *term.ProjectionTerm
	subqueries map[term.Tag]Phrase
	outer      *scope
}

// nested is a derived table anchored in a scope. Its columns are exported
// on demand. When rows are numbered with session variables, counted wraps
// the sorted rows of inner and is the table the scope sees.
type nested struct {
	alias   string
	inner   *scope
	counted *Select
	exports map[string]string
	used    map[string]bool
}

func (n *nested) frame() *Select {
	if n.counted != nil {
		return n.counted
	}
	return n.inner.sel
}

func internalError(format string, args ...any) *diag.Error {
	return diag.Errorf(diag.KindInternal, diag.Mark{}, format, args...)
}

func compileError(format string, args ...any) *diag.Error {
	return diag.Errorf(diag.KindCompile, diag.Mark{}, format, args...)
}

func (r *reducer) newScope(routes term.Routes, outer *scope) *scope {
	return &scope{
		sel:        &Select{},
		routes:     routes,
		owned:      make(map[term.Tag]location),
		subqueries: make(map[term.Tag]Phrase),
		outer:      outer,
	}
}

// alias returns a fresh alias: the name itself on first use, then name_2,
// name_3 and so on.
func (r *reducer) alias(name string) string {
	r.names[name]++
	if n := r.names[name]; n > 1 {
		return fmt.Sprintf("%s_%d", name, n)
	}
	return name
}

func (r *reducer) segment(st *term.SegmentTerm) (*Plan, error) {
	s := r.newScope(st.Routes(), nil)
	kid := st.Kid
	var embeds []*term.EmbeddingTerm
	for {
		e, ok := kid.(*term.EmbeddingTerm)
		if !ok {
			break
		}
		embeds = append(embeds, e)
		kid = e.Kid
	}
	if o, ok := kid.(*term.OrderTerm); ok && flattens(o, st.Order) {
		if err := r.fill(s, o.Kid); err != nil {
			return nil, err
		}
		for _, e := range embeds {
			r.own(s, e)
		}
		s.sel.Limit, s.sel.Offset = o.Limit, o.Offset
	} else if err := r.fill(s, st.Kid); err != nil {
		return nil, err
	}

	plan := &Plan{Select: s.sel}
	add := func(c flow.Code) (int, error) {
		ps, err := r.flat(s, c)
		if err != nil {
			return 0, err
		}
		for _, p := range ps {
			s.sel.Columns = append(s.sel.Columns, Column{Phrase: AsValue(p)})
		}
		return len(ps), nil
	}
	for _, c := range st.ParentKey {
		n, err := add(c)
		if err != nil {
			return nil, err
		}
		plan.ParentKeyWidth += n
	}
	for _, c := range st.Key {
		n, err := add(c)
		if err != nil {
			return nil, err
		}
		plan.KeyWidth += n
	}
	for _, e := range st.Segment.Elements {
		if e.Code == nil {
			continue
		}
		n, err := add(e.Code)
		if err != nil {
			return nil, err
		}
		plan.Layout = append(plan.Layout, n)
	}
	order, err := r.order(s, st.Order)
	if err != nil {
		return nil, err
	}
	s.sel.OrderBy = order
	return plan, nil
}

// flattens reports whether a clip at the top of a segment can be applied
// by the segment statement itself.
func flattens(o *term.OrderTerm, order []flow.OrderItem) bool {
	if len(o.Partition) > 0 || (o.Strategy != term.ClipNative && o.Strategy != term.ClipTop) {
		return false
	}
	return slices.EqualFunc(o.Order, order, func(a, b flow.OrderItem) bool {
		return a.Dir == b.Dir && a.Code.Key() == b.Code.Key()
	})
}

func (r *reducer) own(s *scope, e *term.EmbeddingTerm) {
	for _, c := range e.Correlations {
		s.owned[c.Tag()] = location{corr: c}
	}
}

// fill adds the rows of t to the FROM clause of s.
func (r *reducer) fill(s *scope, t term.Term) error {
	switch x := t.(type) {
	case *term.ScalarTerm:
		return nil
	case *term.TableTerm:
		alias := r.alias(x.Name)
		s.sel.From = append(s.sel.From, Anchor{
			Frame: &TableFrame{Schema: x.Schema, Name: x.Name},
			Alias: alias,
			Join:  r.nextJoin(s, CrossJoin),
		})
		s.owned[x.Tag()] = location{alias: alias}
		return nil
	case *term.JoinTerm:
		if err := r.fill(s, x.Left); err != nil {
			return err
		}
		idx := len(s.sel.From)
		if err := r.fill(s, x.Right); err != nil {
			return err
		}
		if idx == 0 || idx >= len(s.sel.From) {
			return internalError("join without a left side")
		}
		on, err := r.ties(s, x.Ties)
		if err != nil {
			return err
		}
		switch x.Kind {
		case term.InnerJoin:
			s.sel.From[idx].Join = InnerJoin
		case term.LeftJoin:
			s.sel.From[idx].Join = LeftJoin
		default:
			s.sel.From[idx].Join = CrossJoin
		}
		if on != nil && x.Kind == term.CrossJoin {
			s.sel.From[idx].Join = InnerJoin
		}
		s.sel.From[idx].On = on
		return nil
	case *term.FilterTerm:
		if err := r.fill(s, x.Kid); err != nil {
			return err
		}
		p, err := r.phrase(s, x.Predicate)
		if err != nil {
			return err
		}
		s.sel.Where = And(s.sel.Where, p)
		return nil
	case *term.EmbeddingTerm:
		if err := r.fill(s, x.Kid); err != nil {
			return err
		}
		r.own(s, x)
		return nil
	case *term.OrderTerm, *term.PermanentTerm, *term.ProjectionTerm:
		return r.nest(s, t)
	}
	return internalError("unexpected term %s", term.Describe(t))
}

func (r *reducer) nextJoin(s *scope, kind JoinKind) JoinKind {
	if len(s.sel.From) == 0 {
		return FirstAnchor
	}
	return kind
}

// ties renders join conditions.
func (r *reducer) ties(s *scope, ties []term.Tie) (Phrase, error) {
	var conds []Phrase
	for _, tie := range ties {
		outer, err := r.flat(s, tie.Outer)
		if err != nil {
			return nil, err
		}
		inner, err := r.flat(s, tie.Inner)
		if err != nil {
			return nil, err
		}
		if len(outer) != len(inner) {
			return nil, internalError("tie of mismatched width")
		}
		construct := "equal"
		if tie.Total {
			construct = "total_equal"
		}
		for i := range outer {
			conds = append(conds, &FormulaPhrase{
				Construct: construct,
				Args:      []Phrase{AsValue(outer[i]), AsValue(inner[i])},
				Dom:       domain.Boolean{},
			})
		}
	}
	return And(conds...), nil
}

// nest anchors t in s as a derived table.
func (r *reducer) nest(s *scope, t term.Term) error {
	var inner *scope
	name := tableName(t)
	if name == "" {
		name = "subquery"
	}
	n := &nested{alias: r.alias(name), exports: make(map[string]string), used: make(map[string]bool)}
	var post Phrase
	switch x := t.(type) {
	case *term.PermanentTerm:
		inner = r.newScope(x.Kid.Routes(), s.outer)
		if err := r.fill(inner, x.Kid); err != nil {
			return err
		}
	case *term.ProjectionTerm:
		inner = r.newScope(x.Kid.Routes(), s.outer)
		inner.projection = x
		if err := r.fill(inner, x.Kid); err != nil {
			return err
		}
		for _, c := range append(append([]flow.Code(nil), x.Quotient.Kernels...), x.Group...) {
			ps, err := r.flat(inner, c)
			if err != nil {
				return err
			}
			for _, p := range ps {
				inner.sel.GroupBy = append(inner.sel.GroupBy, AsValue(p))
			}
		}
	case *term.OrderTerm:
		inner = r.newScope(x.Kid.Routes(), s.outer)
		if err := r.fill(inner, x.Kid); err != nil {
			return err
		}
		n.inner = inner
		var err error
		if post, err = r.clip(inner, n, x); err != nil {
			return err
		}
	default:
		return internalError("cannot nest %s", term.Describe(t))
	}
	n.inner = inner
	s.sel.From = append(s.sel.From, Anchor{Frame: n.frame(), Alias: n.alias, Join: r.nextJoin(s, CrossJoin)})
	s.owned[t.Tag()] = location{nested: n}
	for tag := range inner.owned {
		s.owned[tag] = location{nested: n}
	}
	if post != nil {
		s.sel.Where = And(s.sel.Where, post)
	}
	return nil
}

func tableName(t term.Term) string {
	for {
		switch x := t.(type) {
		case *term.TableTerm:
			return x.Name
		case *term.JoinTerm:
			t = x.Right
		case *term.FilterTerm:
			t = x.Kid
		case *term.OrderTerm:
			t = x.Kid
		case *term.PermanentTerm:
			t = x.Kid
		case *term.EmbeddingTerm:
			t = x.Kid
		default:
			return ""
		}
	}
}

// clip applies an order term to the statement of its nested scope. It
// returns the condition the enclosing statement applies, if any.
func (r *reducer) clip(inner *scope, n *nested, o *term.OrderTerm) (Phrase, error) {
	order, err := r.order(inner, o.Order)
	if err != nil {
		return nil, err
	}
	var partition []Phrase
	for _, c := range o.Partition {
		ps, err := r.flat(inner, c)
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			partition = append(partition, AsValue(p))
		}
	}
	switch o.Strategy {
	case term.ClipNative, term.ClipTop:
		inner.sel.OrderBy = order
		inner.sel.Limit, inner.sel.Offset = o.Limit, o.Offset
		return nil, nil
	case term.ClipWindow:
		row := n.export(&RowNumberPhrase{Partition: partition, Order: order})
		return window(row, o.Limit, o.Offset), nil
	case term.ClipVariables:
		row := r.counter(inner, n, partition, order)
		return window(row, o.Limit, o.Offset), nil
	}
	return nil, internalError("unknown clip strategy %s", o.Strategy)
}

// counter numbers the rows of inner with session variables: the counter
// restarts whenever the partition values change between consecutive rows.
// MySQL does not order variable assignments after the ORDER BY of the same
// SELECT, so inner only sorts the rows and the numbering happens in the
// statement wrapping it.
func (r *reducer) counter(inner *scope, n *nested, partition []Phrase, order []Order) Phrase {
	r.vars++
	rowVar := fmt.Sprintf("htsql_row_%d", r.vars)
	init := &Select{Columns: []Column{{Phrase: &AssignPhrase{Name: rowVar, Value: integer(0)}, Alias: rowVar}}}
	n.counted = &Select{From: []Anchor{
		{Frame: inner.sel, Alias: n.alias, Join: FirstAnchor},
		{Frame: init, Alias: r.alias("htsql_vars"), Join: CrossJoin},
	}}
	for _, c := range inner.sel.Columns {
		n.counted.Columns = append(n.counted.Columns, passThrough(n.alias, c))
	}
	var same []Phrase
	var marks []Phrase
	for i, p := range partition {
		v := fmt.Sprintf("htsql_part_%d_%d", r.vars, i)
		init.Columns = append(init.Columns, Column{Phrase: &AssignPhrase{Name: v, Value: &LiteralPhrase{Dom: p.Domain()}}, Alias: v})
		key := n.export(p)
		same = append(same, &FormulaPhrase{
			Construct: "total_equal",
			Args:      []Phrase{&VariablePhrase{Name: v, Dom: p.Domain()}, key},
			Dom:       domain.Boolean{},
		})
		marks = append(marks, &AssignPhrase{Name: v, Value: key})
	}
	next := &FormulaPhrase{
		Construct: "add",
		Args:      []Phrase{&VariablePhrase{Name: rowVar, Dom: domain.Integer{}}, integer(1)},
		Dom:       domain.Integer{},
	}
	var count Phrase = next
	if len(same) > 0 {
		count = &FormulaPhrase{Construct: "if", Args: []Phrase{And(same...), next, integer(1)}, Dom: domain.Integer{}}
	}
	for _, p := range partition {
		inner.sel.OrderBy = append(inner.sel.OrderBy, Order{Phrase: p, Dir: 1})
	}
	inner.sel.OrderBy = append(inner.sel.OrderBy, order...)
	// A derived table keeps its ORDER BY only under a LIMIT.
	inner.sel.Offset = new(int64)
	row := n.count(&AssignPhrase{Name: rowVar, Value: count})
	for _, m := range marks {
		n.count(m)
	}
	return row
}

func window(row Phrase, limit, offset *int64) Phrase {
	var lo int64
	if offset != nil {
		lo = *offset
	}
	cond := &FormulaPhrase{Construct: "greater", Args: []Phrase{row, integer(lo)}, Dom: domain.Boolean{}}
	if limit == nil {
		return cond
	}
	hi := &FormulaPhrase{Construct: "less_equal", Args: []Phrase{row, integer(lo + *limit)}, Dom: domain.Boolean{}}
	return And(cond, hi)
}

func integer(v int64) Phrase {
	return &LiteralPhrase{Value: v, Dom: domain.Integer{}}
}

// export adds p to the columns of the derived table and returns the
// phrase referring to it from outside.
func (n *nested) export(p Phrase) *ColumnPhrase {
	p = AsValue(p)
	key := String(p)
	name, ok := n.exports[key]
	if !ok {
		name = exportName(p)
		for i := 2; n.used[name]; i++ {
			name = fmt.Sprintf("%s_%d", exportName(p), i)
		}
		n.used[name] = true
		n.exports[key] = name
		n.inner.sel.Columns = append(n.inner.sel.Columns, Column{Phrase: p, Alias: name})
		if n.counted != nil {
			n.counted.Columns = append(n.counted.Columns, passThrough(n.alias, Column{Phrase: p, Alias: name}))
		}
	}
	return &ColumnPhrase{Alias: n.alias, Name: name, Dom: p.Domain(), Nullable: isNullable(p)}
}

// count adds p to the columns of the numbering statement.
func (n *nested) count(p Phrase) *ColumnPhrase {
	name := exportName(p)
	for i := 2; n.used[name]; i++ {
		name = fmt.Sprintf("%s_%d", exportName(p), i)
	}
	n.used[name] = true
	n.counted.Columns = append(n.counted.Columns, Column{Phrase: p, Alias: name})
	return &ColumnPhrase{Alias: n.alias, Name: name, Dom: p.Domain(), Nullable: true}
}

// passThrough selects column c of the derived table alias unchanged.
func passThrough(alias string, c Column) Column {
	ref := &ColumnPhrase{Alias: alias, Name: c.Alias, Dom: c.Phrase.Domain(), Nullable: isNullable(c.Phrase)}
	return Column{Phrase: ref, Alias: c.Alias}
}

func isNullable(p Phrase) bool {
	if c, ok := p.(*ColumnPhrase); ok {
		return c.Nullable
	}
	return true
}

func exportName(p Phrase) string {
	switch x := p.(type) {
	case *ColumnPhrase:
		return x.Name
	case *RowNumberPhrase:
		return "row_number"
	case *AssignPhrase:
		return x.Name
	case *AggregatePhrase:
		return x.Construct
	case *SubqueryPhrase:
		return "aggregate"
	}
	return "expr"
}

func (r *reducer) order(s *scope, items []flow.OrderItem) ([]Order, error) {
	var out []Order
	for _, item := range items {
		ps, err := r.flat(s, item.Code)
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			out = append(out, Order{Phrase: AsValue(p), Dir: item.Dir})
		}
	}
	return out, nil
}

// flat renders a code as one phrase per SQL column; identities span
// several columns.
func (r *reducer) flat(s *scope, c flow.Code) ([]Phrase, error) {
	switch x := c.(type) {
	case *flow.Composite:
		var out []Phrase
		for _, e := range x.Elements {
			ps, err := r.flat(s, e)
			if err != nil {
				return nil, err
			}
			out = append(out, ps...)
		}
		return out, nil
	case *flow.KernelUnit:
		return r.unit(s, x)
	}
	p, err := r.phrase(s, c)
	if err != nil {
		return nil, err
	}
	return []Phrase{p}, nil
}

// phrase renders a scalar code.
func (r *reducer) phrase(s *scope, c flow.Code) (Phrase, error) {
	switch x := c.(type) {
	case *flow.Literal:
		return &LiteralPhrase{Value: x.Value, Dom: x.Domain()}, nil
	case *flow.Cast:
		arm, err := r.phrase(s, x.Arm)
		if err != nil {
			return nil, err
		}
		if x.Domain().Kind() == domain.BooleanKind {
			return &CastPhrase{Arm: arm, Dom: x.Domain()}, nil
		}
		return &CastPhrase{Arm: AsValue(arm), Dom: x.Domain()}, nil
	case *flow.Formula:
		args := make([]Phrase, len(x.Args))
		for i, a := range x.Args {
			p, err := r.phrase(s, a)
			if err != nil {
				return nil, err
			}
			if conditionArgs(x.Sig.Construct, i) {
				args[i] = AsPredicate(p)
			} else {
				args[i] = AsValue(p)
			}
		}
		return &FormulaPhrase{Construct: x.Sig.Construct, Args: args, Dom: x.Domain()}, nil
	case *flow.ColumnUnit, *flow.AggregateUnit, *flow.KernelUnit:
		ps, err := r.unit(s, x.(flow.Unit))
		if err != nil {
			return nil, err
		}
		if len(ps) != 1 {
			return nil, compileError("an identity cannot be used in an expression")
		}
		return ps[0], nil
	case *flow.Composite:
		return nil, compileError("an identity cannot be used in an expression")
	}
	return nil, internalError("unexpected code %T", c)
}

func routeKey(u flow.Unit) flow.Key {
	if a, ok := u.(*flow.AggregateUnit); ok {
		return a.Key()
	}
	return flow.Axis(u.Flow()).Key()
}

// unit resolves a unit against the anchors visible from s, looking
// through derived tables and then outward into enclosing statements.
func (r *reducer) unit(s *scope, u flow.Unit) ([]Phrase, error) {
	key := routeKey(u)
	for cur := s; cur != nil; cur = cur.outer {
		if k, ok := u.(*flow.KernelUnit); ok && cur.projection != nil && flow.Same(cur.projection.Quotient, k.Quotient) {
			return r.flat(cur, k.Quotient.Kernels[k.Index])
		}
		tag, ok := cur.routes[key]
		if !ok {
			continue
		}
		loc, ok := cur.owned[tag]
		if !ok {
			continue
		}
		switch {
		case loc.alias != "":
			col, ok := u.(*flow.ColumnUnit)
			if !ok {
				return nil, internalError("unit %s routed to a table", u)
			}
			return []Phrase{&ColumnPhrase{Alias: loc.alias, Name: col.Name, Dom: col.Domain(), Nullable: col.Nullable}}, nil
		case loc.nested != nil:
			ps, err := r.unit(loc.nested.inner, u)
			if err != nil {
				return nil, err
			}
			out := make([]Phrase, len(ps))
			for i, p := range ps {
				out[i] = loc.nested.export(p)
			}
			return out, nil
		case loc.corr != nil:
			p, err := r.correlate(cur, loc.corr)
			if err != nil {
				return nil, err
			}
			return []Phrase{p}, nil
		}
	}
	return nil, internalError("%s is not routed", u)
}

// correlate renders an aggregate as a correlated subquery of s.
func (r *reducer) correlate(s *scope, corr *term.CorrelationTerm) (Phrase, error) {
	if p, ok := s.subqueries[corr.Tag()]; ok {
		return p, nil
	}
	inner := r.newScope(corr.Kid.Routes(), s)
	if err := r.fill(inner, corr.Kid); err != nil {
		return nil, err
	}
	on, err := r.ties(inner, corr.Ties)
	if err != nil {
		return nil, err
	}
	inner.sel.Where = And(inner.sel.Where, on)
	unit := corr.Unit
	var arg Phrase
	if unit.Arg != nil {
		if arg, err = r.phrase(inner, unit.Arg); err != nil {
			return nil, err
		}
	}
	var out Phrase
	switch unit.Sig.Construct {
	case "count":
		if arg != nil {
			inner.sel.Where = And(inner.sel.Where, arg)
		}
		inner.sel.Columns = []Column{{Phrase: &AggregatePhrase{Construct: "count", Dom: unit.Domain()}}}
		out = &SubqueryPhrase{Select: inner.sel, Dom: unit.Domain()}
	case "exists":
		if arg != nil {
			inner.sel.Where = And(inner.sel.Where, arg)
		}
		inner.sel.Columns = []Column{{Phrase: integer(1)}}
		out = &SubqueryPhrase{Select: inner.sel, Exists: true, Dom: domain.Boolean{}}
	case "every":
		inner.sel.Where = And(inner.sel.Where, &FormulaPhrase{
			Construct: "not",
			Args:      []Phrase{AsPredicate(arg)},
			Dom:       domain.Boolean{},
		})
		inner.sel.Columns = []Column{{Phrase: integer(1)}}
		out = &FormulaPhrase{
			Construct: "not",
			Args:      []Phrase{&SubqueryPhrase{Select: inner.sel, Exists: true, Dom: domain.Boolean{}}},
			Dom:       domain.Boolean{},
		}
	case "sum":
		sum := &AggregatePhrase{Construct: "sum", Arg: AsValue(arg), Dom: unit.Domain()}
		inner.sel.Columns = []Column{{Phrase: &FormulaPhrase{
			Construct: "if_null",
			Args:      []Phrase{sum, zero(unit.Domain())},
			Dom:       unit.Domain(),
		}}}
		out = &SubqueryPhrase{Select: inner.sel, Dom: unit.Domain()}
	default:
		inner.sel.Columns = []Column{{Phrase: &AggregatePhrase{Construct: unit.Sig.Construct, Arg: AsValue(arg), Dom: unit.Domain()}}}
		out = &SubqueryPhrase{Select: inner.sel, Dom: unit.Domain()}
	}
	s.subqueries[corr.Tag()] = out
	return out, nil
}

func zero(d domain.Domain) Phrase {
	switch d.Kind() {
	case domain.DecimalKind:
		return &LiteralPhrase{Value: apd.New(0, 0), Dom: d}
	case domain.FloatKind:
		return &LiteralPhrase{Value: float64(0), Dom: d}
	}
	return &LiteralPhrase{Value: int64(0), Dom: domain.Integer{}}
}
