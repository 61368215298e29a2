package term

import (
	"maps"

	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/flow"
)

// ClipPolicy chooses the clip strategy of a dialect for each situation.
type ClipPolicy struct {
	Plain       Strategy // no partition, no offset
	WithOffset  Strategy // no partition, with an offset
	Partitioned Strategy // a clip per row of an enclosing flow
}

// DefaultClip is the policy of dialects with LIMIT, OFFSET and window
// functions.
var DefaultClip = ClipPolicy{Plain: ClipNative, WithOffset: ClipNative, Partitioned: ClipWindow}

// Options configures the compiler.
type Options struct {
	Catalog *catalog.Catalog
	Clip    ClipPolicy
}

// Compile builds the term tree of a segment and of its nested segments.
func Compile(seg *flow.Segment, opts Options) (*SegmentTerm, error) {
	c := &compiler{cat: opts.Catalog, clip: opts.Clip}
	return c.segment(seg, nil)
}

type compiler struct {
	cat        *catalog.Catalog
	clip       ClipPolicy
	next       Tag
	aggregates int
}

func (c *compiler) node(f flow.Flow) termNode {
	c.next++
	return termNode{tag: c.next, flow: f, routes: make(Routes)}
}

func compileError(format string, args ...any) *diag.Error {
	return diag.Errorf(diag.KindCompile, diag.Mark{}, format, args...)
}

func internalError(format string, args ...any) *diag.Error {
	return diag.Errorf(diag.KindInternal, diag.Mark{}, format, args...)
}

func (c *compiler) segment(seg *flow.Segment, parent *flow.Segment) (*SegmentTerm, error) {
	chain := flow.Chain(seg.Flow)
	root := chain[len(chain)-1]
	kid, _, err := c.compile(seg.Flow, root)
	if err != nil {
		return nil, err
	}
	st := &SegmentTerm{termNode: c.node(seg.Flow), Segment: seg, Order: seg.Order}
	if parent != nil {
		st.ParentKey = parent.Key
	}
	if len(seg.Nested()) > 0 {
		st.Key = seg.Key
	}
	codes := st.Columns()
	for _, item := range seg.Order {
		codes = append(codes, item.Code)
	}
	if kid, err = c.inject(kid, root, codes...); err != nil {
		return nil, err
	}
	st.Kid = kid
	st.routes = kid.Routes()
	for _, nested := range seg.Nested() {
		nt, err := c.segment(nested, seg)
		if err != nil {
			return nil, err
		}
		st.Nested = append(st.Nested, nt)
	}
	return st, nil
}

// compile builds the term producing the rows of f for each row of
// baseline, which is f itself or one of its ancestors. The returned ties
// connect the term to the rows of baseline.
func (c *compiler) compile(f, baseline flow.Flow) (Term, []Tie, error) {
	if flow.Same(f, baseline) {
		return &ScalarTerm{termNode: c.node(f)}, nil, nil
	}
	switch x := f.(type) {
	case *flow.Table:
		return c.axis(x, baseline, func() (Term, []Tie, error) {
			return c.table(x, x.Table), nil, nil
		})
	case *flow.Fiber:
		return c.axis(x, baseline, func() (Term, []Tie, error) {
			return c.fiber(x)
		})
	case *flow.Quotient:
		return c.axis(x, baseline, func() (Term, []Tie, error) {
			return c.projection(x)
		})
	case *flow.Complement:
		return c.axis(x, baseline, func() (Term, []Tie, error) {
			return c.complement(x)
		})
	case *flow.Filtered:
		kid, ties, err := c.compile(x.Base(), baseline)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := kid.(*ScalarTerm); ok {
			return nil, nil, compileError("cannot filter the rows of an enclosing flow")
		}
		if kid, err = c.inject(kid, baseline, x.Predicate); err != nil {
			return nil, nil, err
		}
		t := &FilterTerm{termNode: c.node(x), Kid: kid, Predicate: x.Predicate}
		t.routes = kid.Routes()
		return t, ties, nil
	case *flow.Ordered:
		kid, ties, err := c.compile(x.Base(), baseline)
		if err != nil || !x.IsClipped() {
			return kid, ties, err
		}
		if _, ok := kid.(*ScalarTerm); ok {
			return nil, nil, compileError("cannot clip the rows of an enclosing flow")
		}
		return c.clipped(x, kid, ties, baseline)
	}
	return nil, nil, internalError("cannot compile %s relative to %s", f, baseline)
}

// axis compiles a flow that attaches new rows to the rows of its base.
// own builds the term of f relative to its immediate base.
func (c *compiler) axis(f, baseline flow.Flow, own func() (Term, []Tie, error)) (Term, []Tie, error) {
	t, ties, err := own()
	if err != nil {
		return nil, nil, err
	}
	if flow.Same(f.Base(), baseline) {
		return t, ties, nil
	}
	kid, kidTies, err := c.compile(f.Base(), baseline)
	if err != nil {
		return nil, nil, err
	}
	if kid, err = c.inject(kid, baseline, outerCodes(ties)...); err != nil {
		return nil, nil, err
	}
	kind := InnerJoin
	if len(ties) == 0 {
		kind = CrossJoin
	}
	return c.join(f, kid, t, kind, ties), kidTies, nil
}

func (c *compiler) table(f flow.Flow, id catalog.TableID) *TableTerm {
	tbl := c.cat.Table(id)
	t := &TableTerm{
		termNode: c.node(f),
		Table:    id,
		Schema:   c.cat.Schema(tbl.Schema).Name,
		Name:     tbl.Name,
	}
	t.routes[f.Key()] = t.tag
	return t
}

func (c *compiler) fiber(f *flow.Fiber) (Term, []Tie, error) {
	t := c.table(f, f.Target)
	from, to := c.cat.JoinColumns(f.Join)
	ties := make([]Tie, len(from))
	for i := range from {
		ties[i] = Tie{
			Outer: flow.NewColumnUnit(c.cat, from[i], f.Base()),
			Inner: flow.NewColumnUnit(c.cat, to[i], f),
		}
	}
	return t, ties, nil
}

// projection groups the seed rows by the kernels, separately for every
// row of the quotient's base.
func (c *compiler) projection(q *flow.Quotient) (Term, []Tie, error) {
	seed, ties, err := c.compile(q.Seed, q.Base())
	if err != nil {
		return nil, nil, err
	}
	group := innerCodes(ties)
	codes := append(append([]flow.Code(nil), q.Kernels...), group...)
	if seed, err = c.inject(seed, q.Base(), codes...); err != nil {
		return nil, nil, err
	}
	p := &ProjectionTerm{termNode: c.node(q), Kid: seed, Quotient: q, Group: group}
	p.routes = maps.Clone(seed.Routes())
	p.routes[q.Key()] = p.tag
	return p, ties, nil
}

// complement recovers the seed rows of every quotient row: the seed
// joined back by the kernel values.
func (c *compiler) complement(f *flow.Complement) (Term, []Tie, error) {
	q := f.Quotient
	seed, ties, err := c.compile(q.Seed, q.Base())
	if err != nil {
		return nil, nil, err
	}
	if seed, err = c.inject(seed, q.Base(), q.Kernels...); err != nil {
		return nil, nil, err
	}
	for i, k := range q.Kernels {
		ties = append(ties, Tie{Outer: flow.NewKernelUnit(q, i), Inner: k, Total: true})
	}
	axis := flow.Axis(q.Seed)
	tag, ok := seed.Routes()[axis.Key()]
	if !ok {
		return nil, nil, internalError("seed %s is not routed", q.Seed)
	}
	seed.Routes()[f.Key()] = tag
	return seed, ties, nil
}

// clipped keeps the rows of x within its window. Rows are numbered per
// partition: the rows sharing one row of the flow x is attached to.
func (c *compiler) clipped(x *flow.Ordered, kid Term, ties []Tie, baseline flow.Flow) (Term, []Tie, error) {
	if c.aggregates > 0 {
		return nil, nil, compileError("limit and offset are not supported inside an aggregate")
	}
	order := flow.Ordering(c.cat, x)
	kid, err := c.inject(kid, baseline, orderCodes(order)...)
	if err != nil {
		return nil, nil, err
	}
	var partition []flow.Code
	switch p := flow.Axis(x).Base(); {
	case p == nil:
	case isRoot(flow.Axis(p)):
	case c.routed(kid, p):
		partition = flow.RowKey(c.cat, p)
	default:
		partition = innerCodes(ties)
	}
	if kid, err = c.inject(kid, baseline, partition...); err != nil {
		return nil, nil, err
	}
	strategy := c.clip.Plain
	switch {
	case len(partition) > 0:
		strategy = c.clip.Partitioned
	case x.Offset != nil && *x.Offset > 0:
		strategy = c.clip.WithOffset
	}
	t := &OrderTerm{
		termNode:  c.node(x),
		Kid:       kid,
		Order:     order,
		Limit:     x.Limit,
		Offset:    x.Offset,
		Partition: partition,
		Strategy:  strategy,
	}
	t.routes = kid.Routes()
	return t, ties, nil
}

// inject makes the units of codes available to the rows of t: singular
// flows are attached with outer joins, aggregates are embedded as
// correlated terms.
func (c *compiler) inject(t Term, baseline flow.Flow, codes ...flow.Code) (Term, error) {
	for _, u := range flow.UnitsOf(codes...) {
		var err error
		if t, err = c.attach(t, baseline, u.Flow()); err != nil {
			return nil, err
		}
		if a, ok := u.(*flow.AggregateUnit); ok {
			if t, err = c.embed(t, a); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func (c *compiler) routable(t Term, baseline, axis flow.Flow) bool {
	if isRoot(axis) {
		return true
	}
	return c.routed(t, axis) || flow.IsAncestor(axis, baseline)
}

func (c *compiler) routed(t Term, f flow.Flow) bool {
	_, ok := t.Routes()[flow.Axis(f).Key()]
	return ok
}

// attach joins the rows of f, a flow singular relative to t, to t.
func (c *compiler) attach(t Term, baseline, f flow.Flow) (Term, error) {
	axis := flow.Axis(f)
	if c.routable(t, baseline, axis) {
		return t, nil
	}
	anchor := axis.Base()
	t, err := c.attach(t, baseline, anchor)
	if err != nil {
		return nil, err
	}
	own, ties, err := c.compile(f, anchor)
	if err != nil {
		return nil, err
	}
	return c.join(t.Flow(), t, own, LeftJoin, ties), nil
}

// embed adds the correlated term computing aggregate a.
func (c *compiler) embed(t Term, a *flow.AggregateUnit) (Term, error) {
	if _, ok := t.Routes()[a.Key()]; ok {
		return t, nil
	}
	anchor := flow.Meet(a.Flow(), a.Plural)
	if anchor == nil {
		return nil, internalError("aggregate %s is not related to %s", a, a.Flow())
	}
	c.aggregates++
	kid, ties, err := c.compile(a.Plural, anchor)
	if err == nil && a.Arg != nil {
		kid, err = c.inject(kid, anchor, a.Arg)
	}
	c.aggregates--
	if err != nil {
		return nil, err
	}
	corr := &CorrelationTerm{termNode: c.node(a.Plural), Kid: kid, Unit: a, Ties: ties}
	corr.routes = kid.Routes()

	e, ok := t.(*EmbeddingTerm)
	if !ok {
		e = &EmbeddingTerm{termNode: c.node(t.Flow()), Kid: t}
		e.routes = maps.Clone(t.Routes())
	}
	e.Correlations = append(e.Correlations, corr)
	e.routes[a.Key()] = corr.tag
	return e, nil
}

func (c *compiler) join(f flow.Flow, left, right Term, kind JoinKind, ties []Tie) *JoinTerm {
	if _, ok := right.(*TableTerm); !ok {
		right = c.permanent(right)
	}
	j := &JoinTerm{termNode: c.node(f), Left: left, Right: right, Kind: kind, Ties: ties}
	j.routes = mergeRoutes(left.Routes(), right.Routes())
	return j
}

func (c *compiler) permanent(t Term) Term {
	if p, ok := t.(*PermanentTerm); ok {
		return p
	}
	p := &PermanentTerm{termNode: c.node(t.Flow()), Kid: t}
	p.routes = maps.Clone(t.Routes())
	return p
}

func isRoot(f flow.Flow) bool {
	_, ok := f.(*flow.Root)
	return ok
}

func outerCodes(ties []Tie) []flow.Code {
	out := make([]flow.Code, len(ties))
	for i, t := range ties {
		out[i] = t.Outer
	}
	return out
}

func innerCodes(ties []Tie) []flow.Code {
	out := make([]flow.Code, len(ties))
	for i, t := range ties {
		out[i] = t.Inner
	}
	return out
}

func orderCodes(order []flow.OrderItem) []flow.Code {
	out := make([]flow.Code, len(order))
	for i, item := range order {
		out[i] = item.Code
	}
	return out
}
