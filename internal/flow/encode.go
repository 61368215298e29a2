package flow

import (
	"github.com/prometheusresearch/htsql-sub004/internal/binding"
	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// Encode lowers a bound query into flows and codes.
//
// Structurally equal flows and codes are interned, so every reference to
// the same relational step shares one node.
func Encode(cat *catalog.Catalog, q *binding.QueryBinding) (*Query, error) {
	e := &encoder{
		cat:       cat,
		root:      NewRoot(),
		interned:  make(map[Key]any),
		quotients: make(map[*binding.QuotientBinding]*Quotient),
	}
	seg, err := e.segment(q.Segment)
	if err != nil {
		return nil, err
	}
	return &Query{Root: e.root, Segment: seg, Format: q.Format}, nil
}

type encoder struct {
	cat       *catalog.Catalog
	root      *Root
	interned  map[Key]any
	quotients map[*binding.QuotientBinding]*Quotient
}

// intern returns the node previously registered under the key of n, or
// registers n.
func intern[T interface{ Key() Key }](e *encoder, n T) T {
	if prev, ok := e.interned[n.Key()]; ok {
		if same, ok := prev.(T); ok {
			return same
		}
	}
	e.interned[n.Key()] = n
	return n
}

func internalError(b binding.Binding, format string, args ...any) *diag.Error {
	return diag.Errorf(diag.KindInternal, b.Mark(), format, args...)
}

func (e *encoder) segment(s *binding.SegmentBinding) (*Segment, error) {
	f, err := e.flow(s.Seed)
	if err != nil {
		return nil, err
	}
	base, err := e.flow(s.Base())
	if err != nil {
		return nil, err
	}
	seg := &Segment{Flow: f, Base: base}
	var directed []OrderItem
	for _, el := range s.Elements {
		title := binding.Title(el)
		if inner, ok := binding.Unwrap(el).(*binding.SegmentBinding); ok {
			nested, err := e.segment(inner)
			if err != nil {
				return nil, err
			}
			seg.Elements = append(seg.Elements, Element{Title: title, Segment: nested})
			continue
		}
		c, err := e.code(el)
		if err != nil {
			return nil, err
		}
		if err := e.singular(f, c, el); err != nil {
			return nil, err
		}
		seg.Elements = append(seg.Elements, Element{Title: title, Code: c})
		if dir := direction(el); dir != 0 {
			directed = append(directed, expand(OrderItem{Code: c, Dir: dir})...)
		}
	}
	outer, inner := SplitOrdering(e.cat, f)
	order := append(outer, directed...)
	seg.Order = dedupeOrder(append(order, inner...))
	seg.Key = RowKey(e.cat, f)
	return seg, nil
}

// direction returns the sort direction attached to a selection element.
func direction(b binding.Binding) int {
	for {
		switch x := b.(type) {
		case *binding.DirectionBinding:
			return x.Dir
		case *binding.TitleBinding:
			b = x.Arm
		default:
			return 0
		}
	}
}

func (e *encoder) flow(b binding.Binding) (Flow, error) {
	switch x := b.(type) {
	case *binding.RootBinding:
		return e.root, nil
	case *binding.TableBinding:
		base, err := e.flow(x.Base())
		if err != nil {
			return nil, err
		}
		return intern(e, NewTable(base, x.Table, e.cat.Table(x.Table).Name)), nil
	case *binding.ChainBinding:
		f, err := e.flow(x.Base())
		if err != nil {
			return nil, err
		}
		for _, j := range x.Joins {
			target := e.cat.JoinTo(j)
			f = intern(e, NewFiber(f, j, target, e.cat.Table(target).Name))
		}
		return f, nil
	case *binding.SieveBinding:
		return e.filtered(x.Base(), x.Filter)
	case *binding.LocateBinding:
		return e.filtered(x.Base(), x.Filter)
	case *binding.SortBinding:
		return e.ordered(x)
	case *binding.QuotientBinding:
		return e.quotient(x)
	case *binding.ComplementBinding:
		base, err := e.flow(x.Base())
		if err != nil {
			return nil, err
		}
		q, err := e.quotient(x.Quotient)
		if err != nil {
			return nil, err
		}
		if !IsAncestor(q, base) {
			return nil, internalError(x, "complement outside of its projection")
		}
		return intern(e, NewComplement(base, q)), nil
	case *binding.DefineBinding, *binding.SelectionBinding:
		return e.flow(x.Base())
	case *binding.SegmentBinding:
		return nil, diag.Errorf(diag.KindBind, x.Mark(), "a nested segment is not allowed here")
	}
	return nil, internalError(b, "expected a flow, got %T", b)
}

func (e *encoder) filtered(baseB, filter binding.Binding) (Flow, error) {
	base, err := e.flow(baseB)
	if err != nil {
		return nil, err
	}
	pred, err := e.code(filter)
	if err != nil {
		return nil, err
	}
	if pred.Domain().Kind() != domain.BooleanKind {
		return nil, internalError(filter, "filter of type %s", pred.Domain())
	}
	if err := e.singular(base, pred, filter); err != nil {
		return nil, err
	}
	return intern(e, NewFiltered(base, pred)), nil
}

func (e *encoder) ordered(x *binding.SortBinding) (Flow, error) {
	base, err := e.flow(x.Base())
	if err != nil {
		return nil, err
	}
	var order []OrderItem
	for _, item := range x.Order {
		c, err := e.code(item.Value)
		if err != nil {
			return nil, err
		}
		if err := e.singular(base, c, item.Value); err != nil {
			return nil, err
		}
		order = append(order, OrderItem{Code: c, Dir: item.Dir})
	}
	return intern(e, NewOrdered(base, order, x.Limit, x.Offset)), nil
}

func (e *encoder) quotient(x *binding.QuotientBinding) (*Quotient, error) {
	if q, ok := e.quotients[x]; ok {
		return q, nil
	}
	base, err := e.flow(x.Base())
	if err != nil {
		return nil, err
	}
	seed, err := e.flow(x.Seed)
	if err != nil {
		return nil, err
	}
	if Same(seed, base) || !IsAncestor(base, seed) {
		return nil, diag.Errorf(diag.KindBind, x.Seed.Mark(), "expected a flow derived from the enclosing scope")
	}
	if Spans(e.cat, base, seed) {
		return nil, diag.Errorf(diag.KindBind, x.Seed.Mark(), "projection of a singular flow")
	}
	kernels := make([]Code, len(x.Kernels))
	for i, k := range x.Kernels {
		c, err := e.code(k)
		if err != nil {
			return nil, err
		}
		if err := e.singular(seed, c, k); err != nil {
			return nil, err
		}
		kernels[i] = c
	}
	q := intern(e, NewQuotient(base, seed, kernels))
	e.quotients[x] = q
	return q, nil
}

func (e *encoder) code(b binding.Binding) (Code, error) {
	switch x := b.(type) {
	case *binding.LiteralBinding:
		return intern(e, NewLiteral(x.Value, x.Dom)), nil
	case *binding.ColumnBinding:
		f, err := e.flow(x.Base())
		if err != nil {
			return nil, err
		}
		return intern(e, NewColumnUnit(e.cat, x.Column, f)), nil
	case *binding.IdentityBinding:
		elements, err := e.codes(x.Elements)
		if err != nil {
			return nil, err
		}
		return intern(e, NewComposite(elements, identityDomain(elements))), nil
	case *binding.FormulaBinding:
		args, err := e.codes(x.Args)
		if err != nil {
			return nil, err
		}
		return intern(e, NewFormula(x.Sig, args, x.Dom)), nil
	case *binding.CastBinding:
		arm, err := e.code(x.Arm)
		if err != nil {
			return nil, err
		}
		return intern(e, NewCast(arm, x.Dom)), nil
	case *binding.KernelBinding:
		q, err := e.quotient(x.Quotient)
		if err != nil {
			return nil, err
		}
		return intern(e, NewKernelUnit(q, x.Index)), nil
	case *binding.AggregateBinding:
		return e.aggregate(x)
	case *binding.TitleBinding:
		return e.code(x.Arm)
	case *binding.DirectionBinding:
		return e.code(x.Arm)
	}
	if binding.IsFlow(b) {
		return nil, diag.Errorf(diag.KindBind, b.Mark(), "expected a value, got a flow")
	}
	return nil, internalError(b, "unexpected binding %T", b)
}

func (e *encoder) codes(bs []binding.Binding) ([]Code, error) {
	out := make([]Code, len(bs))
	for i, b := range bs {
		c, err := e.code(b)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (e *encoder) aggregate(x *binding.AggregateBinding) (Code, error) {
	base, err := e.flow(x.Base())
	if err != nil {
		return nil, err
	}
	var plural Flow
	var arg Code
	if binding.IsFlow(x.Arg) {
		if plural, err = e.flow(x.Arg); err != nil {
			return nil, err
		}
	} else {
		if arg, err = e.code(x.Arg); err != nil {
			return nil, err
		}
		plural = e.dominant(arg)
		if plural == nil {
			return nil, diag.Errorf(diag.KindBind, x.Arg.Mark(), "%s() expects a plural argument", x.Sig.Name)
		}
		if err := e.singular(plural, arg, x.Arg); err != nil {
			return nil, err
		}
	}
	if Spans(e.cat, base, plural) {
		return nil, diag.Errorf(diag.KindBind, x.Arg.Mark(), "%s() expects a plural argument", x.Sig.Name)
	}
	if Meet(base, plural) == nil {
		return nil, internalError(x, "aggregate over an unrelated flow")
	}
	return intern(e, NewAggregateUnit(x.Sig, arg, plural, base, x.Dom)), nil
}

// dominant returns the flow of the unit of c with the longest chain, the
// flow every other unit should be singular relative to.
func (e *encoder) dominant(c Code) Flow {
	var best Flow
	depth := -1
	for _, u := range c.Units() {
		f := u.Flow()
		if d := len(Chain(f)); d > depth {
			best, depth = f, d
		}
	}
	return best
}

// singular checks that every unit of c yields at most one value per row of
// ctx.
func (e *encoder) singular(ctx Flow, c Code, at binding.Binding) error {
	for _, u := range c.Units() {
		if !Spans(e.cat, ctx, u.Flow()) {
			return diag.Errorf(diag.KindBind, at.Mark(), "expected a singular expression").
				WithHint("wrap plural links in an aggregate, such as count() or exists()")
		}
	}
	return nil
}
