package binding

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/syntax"
)

// Formats are the output formats a query pipe may request.
var Formats = []string{"json", "csv", "txt", "sql"}

// maxExpansion bounds nested expansion of calculated attributes.
const maxExpansion = 32

// Env carries what the binder needs besides the syntax tree.
type Env struct {
	Catalog  *catalog.Catalog
	Registry *Registry // the built-in signatures when nil
	Params   map[string]any
}

type binder struct {
	cat    *catalog.Catalog
	reg    *Registry
	params map[string]any
	depth  int
}

func bindError(n syntax.Node, format string, args ...any) *diag.Error {
	return diag.Errorf(diag.KindBind, n.Mark(), format, args...)
}

// Bind resolves a parsed query against env.
func Bind(q *syntax.QueryNode, env *Env) (*QueryBinding, error) {
	b := &binder{cat: env.Catalog, reg: env.Registry, params: env.Params}
	if b.reg == nil {
		reg, err := LoadRegistry("default", Builtins)
		if err != nil {
			return nil, err
		}
		b.reg = reg
	}
	root := &RootBinding{flowAt(nil, q.Mark())}
	out := &QueryBinding{Root: root, Syntax: q}

	seg := q.Segment
	if p, ok := seg.(*syntax.PipeNode); ok && !p.IsFlow {
		if p.HasCall && len(p.Args) > 0 {
			return nil, bindError(p, "format %q takes no arguments", p.Name)
		}
		if !isFormat(p.Name) {
			return nil, bindError(p, "unknown output format %q", p.Name).
				WithHint("expected one of: %s", strings.Join(Formats, ", "))
		}
		out.Format = p.Name
		seg = p.Larm
	}
	if _, ok := seg.(*syntax.SkipNode); ok {
		out.Segment = &SegmentBinding{flowNode: flowAt(root, q.Mark()), Seed: root}
		return out, nil
	}
	s, err := b.segment(seg, root)
	if err != nil {
		return nil, err
	}
	out.Segment = s
	return out, nil
}

func isFormat(name string) bool {
	for _, f := range Formats {
		if f == name {
			return true
		}
	}
	return false
}

func (b *binder) bind(n syntax.Node, scope Binding) (Binding, error) {
	switch n := n.(type) {
	case *syntax.IdentifierNode:
		return b.bindName(n, scope, true)
	case *syntax.ComposeNode:
		larm, err := b.bindFlow(n.Larm, scope)
		if err != nil {
			return nil, err
		}
		return b.bindIn(n.Rarm, larm)
	case *syntax.FilterNode:
		larm, err := b.bindFlow(n.Larm, scope)
		if err != nil {
			return nil, err
		}
		return b.sieve(n, larm, n.Rarm)
	case *syntax.ProjectNode:
		return b.bindProject(n, scope)
	case *syntax.SelectNode:
		larm, err := b.bindFlow(n.Larm, scope)
		if err != nil {
			return nil, err
		}
		return b.selection(n, larm, n.Rarm.Arms)
	case *syntax.RecordNode:
		return b.selection(n, scope, n.Arms)
	case *syntax.LocateNode:
		return b.bindLocate(n, scope)
	case *syntax.FunctionNode:
		return b.bindCall(n, n.Name, n.Args, scope)
	case *syntax.PipeNode:
		return b.bindPipe(n, scope)
	case *syntax.OperatorNode:
		return b.bindOperator(n, n.Symbol, []syntax.Node{n.Larm, n.Rarm}, scope)
	case *syntax.PrefixNode:
		return b.bindOperator(n, n.Symbol, []syntax.Node{n.Arm}, scope)
	case *syntax.DirectNode:
		arm, err := b.bindValue(n.Arm, scope)
		if err != nil {
			return nil, err
		}
		dir := 1
		if n.Symbol == "-" {
			dir = -1
		}
		return &DirectionBinding{node: at(scope, n.Mark()), Arm: arm, Dir: dir}, nil
	case *syntax.GroupNode:
		if _, ok := n.Arm.(*syntax.SkipNode); ok {
			return nil, bindError(n, "expected an expression")
		}
		return b.bind(n.Arm, scope)
	case *syntax.ReferenceNode:
		return b.bindReference(n, n.Name, scope)
	case *syntax.ComplementNode:
		return b.bindComplement(n, scope)
	case *syntax.StringNode:
		return &LiteralBinding{node: at(scope, n.Mark()), Value: n.Text, Dom: domain.Untyped{}}, nil
	case *syntax.IntegerNode:
		return b.integer(n, scope)
	case *syntax.DecimalNode:
		v, _, err := apd.NewFromString(n.Text)
		if err != nil {
			return nil, bindError(n, "invalid decimal literal %s", n.Text)
		}
		return &LiteralBinding{node: at(scope, n.Mark()), Value: v, Dom: domain.Decimal{}}, nil
	case *syntax.FloatNode:
		v, err := strconv.ParseFloat(n.Text, 64)
		if err != nil || math.IsInf(v, 0) {
			return nil, bindError(n, "invalid float literal %s", n.Text)
		}
		return &LiteralBinding{node: at(scope, n.Mark()), Value: v, Dom: domain.Float{}}, nil
	case *syntax.LinkNode:
		return nil, bindError(n, "the link operator '->' is not supported")
	case *syntax.AttachNode:
		return nil, bindError(n, "the attachment operator '@' is not supported")
	case *syntax.AssignNode:
		return nil, bindError(n, "an assignment is only allowed in a selection or in define()")
	case *syntax.CollectNode:
		return nil, bindError(n, "a nested segment is only allowed in a selection")
	case *syntax.WildcardNode:
		return nil, bindError(n, "a wildcard is only allowed in a selection")
	case *syntax.ListNode:
		return nil, bindError(n, "unexpected list of expressions")
	case *syntax.IdentityNode:
		return nil, bindError(n, "an identity is only allowed after a flow, as in table[id]")
	case *syntax.SkipNode:
		return nil, bindError(n, "expected an expression")
	}
	return nil, diag.Errorf(diag.KindInternal, n.Mark(), "unexpected syntax node %T", n)
}

// bindIn binds the right side of a composition: names are attributes of
// scope, not of its enclosing scopes.
func (b *binder) bindIn(n syntax.Node, scope Binding) (Binding, error) {
	if id, ok := n.(*syntax.IdentifierNode); ok {
		return b.bindName(id, scope, false)
	}
	return b.bind(n, scope)
}

func (b *binder) bindFlow(n syntax.Node, scope Binding) (Binding, error) {
	v, err := b.bind(n, scope)
	if err != nil {
		return nil, err
	}
	if !IsFlow(v) {
		return nil, bindError(n, "expected a flow, got a value of type %s", v.Domain())
	}
	return v, nil
}

// bindValue binds an expression used as a value. A flow denoting table rows
// becomes the identity of those rows.
func (b *binder) bindValue(n syntax.Node, scope Binding) (Binding, error) {
	v, err := b.bind(n, scope)
	if err != nil {
		return nil, err
	}
	return b.asValue(v, n)
}

func (b *binder) asValue(v Binding, n syntax.Node) (Binding, error) {
	if !IsFlow(v) {
		return v, nil
	}
	table, ok := TableOf(b.cat, v)
	if !ok {
		return nil, bindError(n, "expected a value, got a flow")
	}
	cols := b.cat.Identity(table)
	id := &IdentityBinding{node: at(v, n.Mark()), Flow: v}
	for _, col := range cols {
		c := b.cat.Column(col)
		id.Elements = append(id.Elements, &ColumnBinding{node: at(v, n.Mark()), Column: col, Dom: c.Domain})
		id.Dom.Fields = append(id.Dom.Fields, c.Domain)
	}
	return id, nil
}

func (b *binder) bindName(n *syntax.IdentifierNode, scope Binding, outward bool) (Binding, error) {
	found, ok := Lookup(b.cat, scope, n.Name, outward)
	if !ok {
		switch n.Name {
		case "true", "false":
			return &LiteralBinding{node: at(scope, n.Mark()), Value: n.Name == "true", Dom: domain.Boolean{}}, nil
		case "null":
			return &LiteralBinding{node: at(scope, n.Mark()), Dom: domain.Untyped{}}, nil
		}
		err := bindError(n, "unrecognized attribute %q", n.Name)
		if names := Attributes(b.cat, scope); len(names) > 0 {
			err.WithHint("available: %s", strings.Join(names, ", "))
		}
		return nil, err
	}
	return b.fromRecipe(found, n, nil)
}

func (b *binder) fromRecipe(found Found, n syntax.Node, args []Binding) (Binding, error) {
	name := n.Mark().Text()
	switch r := found.Recipe.(type) {
	case ColumnRecipe:
		col := b.cat.Column(r.Column)
		return &ColumnBinding{node: at(found.Scope, n.Mark()), Column: r.Column, Dom: col.Domain}, nil
	case TableRecipe:
		return &ChainBinding{flowNode: flowAt(found.Scope, n.Mark()), Joins: []catalog.Join{r.Join}}, nil
	case FreeTableRecipe:
		return &TableBinding{flowNode: flowAt(found.Scope, n.Mark()), Table: r.Table}, nil
	case AmbiguousRecipe:
		err := bindError(n, "ambiguous name %q: multiple candidates", name)
		if len(r.Alternatives) > 0 {
			err.WithHint("use one of: %s", strings.Join(r.Alternatives, ", "))
		}
		return nil, err
	case ComplexRecipe:
		return b.expand(r.Define, found.Scope, args, n)
	case SelectionRecipe:
		return r.Element, nil
	case KernelRecipe:
		return &KernelBinding{node: at(found.Scope, n.Mark()), Quotient: r.Quotient, Index: r.Index}, nil
	case ComplementRecipe:
		return &ComplementBinding{flowNode: flowAt(found.Scope, n.Mark()), Quotient: r.Quotient}, nil
	}
	return nil, diag.Errorf(diag.KindInternal, n.Mark(), "unexpected recipe %T", found.Recipe)
}

// expand binds the body of a calculated attribute where it is used.
func (b *binder) expand(def *DefineBinding, scope Binding, args []Binding, n syntax.Node) (Binding, error) {
	if len(args) != len(def.Params) {
		return nil, bindError(n, "%q expects %d argument(s), got %d", def.Name, len(def.Params), len(args))
	}
	if b.depth >= maxExpansion {
		return nil, bindError(n, "recursive definition of %q", def.Name)
	}
	b.depth++
	defer func() { b.depth-- }()

	for i, p := range def.Params {
		scope = &DefineBinding{flowNode: flowAt(scope, n.Mark()), Name: p, Reference: true, Value: args[i]}
	}
	v, err := b.bind(def.Body, scope)
	if err != nil {
		return nil, err
	}
	if IsFlow(v) {
		return v, nil
	}
	return &TitleBinding{node: at(scope, n.Mark()), Arm: v, Title: n.Mark().Text()}, nil
}

func (b *binder) bindReference(n syntax.Node, name string, scope Binding) (Binding, error) {
	if v, ok := LookupReference(scope, name); ok {
		return v, nil
	}
	if raw, ok := b.params[name]; ok {
		value, dom, err := literalOf(raw)
		if err != nil {
			return nil, bindError(n, "parameter $%s: %v", name, err)
		}
		return &LiteralBinding{node: at(scope, n.Mark()), Value: value, Dom: dom}, nil
	}
	return nil, bindError(n, "unrecognized reference $%s", name)
}

func (b *binder) bindComplement(n syntax.Node, scope Binding) (Binding, error) {
	for s := scope; s != nil; s = s.Base() {
		if q, ok := s.(*QuotientBinding); ok {
			return &ComplementBinding{flowNode: flowAt(scope, n.Mark()), Quotient: q}, nil
		}
		if !isWrapper(s) {
			break
		}
	}
	return nil, bindError(n, "'^' is only allowed inside a projection")
}

// isWrapper reports whether s delegates lookups to its base.
func isWrapper(s Binding) bool {
	switch s.(type) {
	case *SieveBinding, *SortBinding, *LocateBinding, *DefineBinding, *SelectionBinding:
		return true
	}
	return false
}

func (b *binder) integer(n *syntax.IntegerNode, scope Binding) (Binding, error) {
	if v, err := strconv.ParseInt(n.Text, 10, 64); err == nil {
		return &LiteralBinding{node: at(scope, n.Mark()), Value: v, Dom: domain.Integer{}}, nil
	}
	v, _, err := apd.NewFromString(n.Text)
	if err != nil {
		return nil, bindError(n, "invalid integer literal %s", n.Text)
	}
	return &LiteralBinding{node: at(scope, n.Mark()), Value: v, Dom: domain.Decimal{}}, nil
}

func (b *binder) sieve(n syntax.Node, base Binding, pred syntax.Node) (Binding, error) {
	v, err := b.bindValue(pred, base)
	if err != nil {
		return nil, err
	}
	filter, err := b.asBoolean(v, pred)
	if err != nil {
		return nil, err
	}
	return &SieveBinding{flowNode: flowAt(base, n.Mark()), Filter: filter}, nil
}

func (b *binder) bindProject(n *syntax.ProjectNode, scope Binding) (Binding, error) {
	seed, err := b.bindFlow(n.Larm, scope)
	if err != nil {
		return nil, err
	}
	var arms []syntax.Node
	switch r := n.Rarm.(type) {
	case *syntax.ListNode:
		arms = r.Arms
	case *syntax.RecordNode:
		arms = r.Arms
	default:
		arms = []syntax.Node{r}
	}
	q := &QuotientBinding{flowNode: flowAt(scope, n.Mark()), Seed: seed}
	for _, arm := range arms {
		var name string
		expr := arm
		switch a := arm.(type) {
		case *syntax.AssignNode:
			if a.LHS.Reference || a.LHS.HasParams || len(a.LHS.Path) != 1 {
				return nil, bindError(a.LHS, "expected a kernel name")
			}
			name, expr = a.LHS.Path[0], a.RHS
		case *syntax.IdentifierNode:
			name = a.Name
		case *syntax.ComposeNode:
			if id, ok := a.Rarm.(*syntax.IdentifierNode); ok {
				name = id.Name
			}
		}
		v, err := b.bindValue(expr, seed)
		if err != nil {
			return nil, err
		}
		if !domain.IsScalar(v.Domain()) {
			return nil, bindError(arm, "a kernel must be a scalar value, got %s", v.Domain())
		}
		q.Kernels = append(q.Kernels, v)
		q.Names = append(q.Names, name)
	}
	if len(q.Kernels) == 0 {
		return nil, bindError(n, "expected at least one kernel")
	}
	return q, nil
}

func (b *binder) bindLocate(n *syntax.LocateNode, scope Binding) (Binding, error) {
	base, err := b.bindFlow(n.Larm, scope)
	if err != nil {
		return nil, err
	}
	table, ok := TableOf(b.cat, base)
	if !ok {
		return nil, bindError(n, "expected a table flow before an identity")
	}
	labels, err := b.labels(n.Rarm, scope)
	if err != nil {
		return nil, err
	}
	cols := b.cat.Identity(table)
	if len(labels) != len(cols) {
		return nil, bindError(n.Rarm, "expected an identity of %d label(s), got %d", len(cols), len(labels))
	}
	var filter Binding
	for i, col := range cols {
		c := b.cat.Column(col)
		value, err := domain.Parse(c.Domain, labels[i].text)
		if err != nil {
			return nil, bindError(labels[i].node, "%v", err)
		}
		colB := &ColumnBinding{node: at(base, labels[i].node.Mark()), Column: col, Dom: c.Domain}
		lit := &LiteralBinding{node: at(base, labels[i].node.Mark()), Value: value, Dom: c.Domain}
		eq, err := b.formula(labels[i].node, "=", []Binding{colB, lit}, base)
		if err != nil {
			return nil, err
		}
		if filter == nil {
			filter = eq
		} else {
			filter, err = b.formula(n.Rarm, "&", []Binding{filter, eq}, base)
			if err != nil {
				return nil, err
			}
		}
	}
	return &LocateBinding{flowNode: flowAt(base, n.Mark()), Filter: filter}, nil
}

type label struct {
	text string
	node syntax.Node
}

// labels flattens an identity literal into its leaf labels.
func (b *binder) labels(id *syntax.IdentityNode, scope Binding) ([]label, error) {
	var out []label
	for _, arm := range id.Arms {
		switch a := arm.(type) {
		case *syntax.LabelNode:
			out = append(out, label{a.Text, a})
		case *syntax.StringNode:
			out = append(out, label{a.Text, a})
		case *syntax.IdentityNode:
			inner, err := b.labels(a, scope)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
		case *syntax.ReferenceNode:
			v, err := b.bindReference(a, a.Name, scope)
			if err != nil {
				return nil, err
			}
			lit, ok := v.(*LiteralBinding)
			if !ok || lit.Value == nil {
				return nil, bindError(a, "reference $%s in an identity must be a constant", a.Name)
			}
			out = append(out, label{domain.Format(lit.Dom, lit.Value), a})
		}
	}
	return out, nil
}

func (b *binder) selection(n syntax.Node, base Binding, arms []syntax.Node) (Binding, error) {
	els, err := b.elements(arms, base)
	if err != nil {
		return nil, err
	}
	return &SelectionBinding{flowNode: flowAt(base, n.Mark()), Elements: els}, nil
}

func (b *binder) elements(arms []syntax.Node, scope Binding) ([]Binding, error) {
	var els []Binding
	for _, arm := range arms {
		switch a := arm.(type) {
		case *syntax.WildcardNode:
			all, err := b.wildcard(a, scope)
			if err != nil {
				return nil, err
			}
			els = append(els, all...)
		case *syntax.AssignNode:
			if a.LHS.Reference || a.LHS.HasParams || len(a.LHS.Path) != 1 {
				return nil, bindError(a.LHS, "expected a plain name on the left of ':='")
			}
			v, err := b.element(a.RHS, scope)
			if err != nil {
				return nil, err
			}
			els = append(els, &TitleBinding{node: at(scope, a.Mark()), Arm: v, Title: a.LHS.Path[0]})
		default:
			v, err := b.element(arm, scope)
			if err != nil {
				return nil, err
			}
			els = append(els, v)
		}
	}
	return els, nil
}

func (b *binder) element(n syntax.Node, scope Binding) (Binding, error) {
	if c, ok := n.(*syntax.CollectNode); ok {
		return b.segment(c.Arm, scope)
	}
	return b.bindValue(n, scope)
}

func (b *binder) wildcard(n *syntax.WildcardNode, scope Binding) ([]Binding, error) {
	all := b.defaults(scope, n)
	if n.Index == "" {
		if len(all) == 0 {
			return nil, bindError(n, "nothing to expand")
		}
		return all, nil
	}
	i, err := strconv.Atoi(n.Index)
	if err != nil || i < 1 || i > len(all) {
		return nil, bindError(n, "wildcard index %s is out of range 1..%d", n.Index, len(all))
	}
	return all[i-1 : i], nil
}

// defaults returns the elements shown for a flow without a selection: the
// kernels of a quotient, otherwise the columns of the table.
func (b *binder) defaults(flow Binding, n syntax.Node) []Binding {
	s := flow
	for isWrapper(s) {
		s = s.Base()
	}
	if q, ok := s.(*QuotientBinding); ok {
		out := make([]Binding, len(q.Kernels))
		for i := range q.Kernels {
			k := &KernelBinding{node: at(flow, n.Mark()), Quotient: q, Index: i}
			title := q.Names[i]
			if title == "" {
				title = q.Kernels[i].Mark().Text()
			}
			out[i] = &TitleBinding{node: at(flow, n.Mark()), Arm: k, Title: title}
		}
		return out
	}
	table, ok := TableOf(b.cat, flow)
	if !ok {
		return nil
	}
	var out []Binding
	for _, col := range b.cat.Table(table).Columns {
		c := b.cat.Column(col)
		colB := &ColumnBinding{node: at(flow, n.Mark()), Column: col, Dom: c.Domain}
		out = append(out, &TitleBinding{node: at(flow, n.Mark()), Arm: colB, Title: c.Name})
	}
	return out
}

// segment binds n as a query segment nested in scope.
func (b *binder) segment(n syntax.Node, scope Binding) (*SegmentBinding, error) {
	v, err := b.bind(n, scope)
	if err != nil {
		return nil, err
	}
	seg := &SegmentBinding{flowNode: flowAt(scope, n.Mark())}
	switch {
	case selectionOf(v) != nil:
		seg.Seed, seg.Elements = v, selectionOf(v).Elements
	case IsFlow(v):
		seg.Seed, seg.Elements = v, b.defaults(v, n)
	default:
		seg.Seed, seg.Elements = scope, []Binding{v}
	}
	return seg, nil
}

// selectionOf finds the selection a flow is built on, looking through
// filters and sorts applied after it.
func selectionOf(v Binding) *SelectionBinding {
	for isWrapper(v) {
		if s, ok := v.(*SelectionBinding); ok {
			return s
		}
		v = v.Base()
	}
	return nil
}

func (b *binder) bindOperator(n syntax.Node, name string, arms []syntax.Node, scope Binding) (Binding, error) {
	args := make([]Binding, len(arms))
	for i, arm := range arms {
		v, err := b.bindValue(arm, scope)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if name == "+" && len(args) == 1 && domain.IsNumeric(args[0].Domain()) {
		return args[0], nil
	}
	return b.formula(n, name, args, scope)
}

// formula resolves a scalar signature and converts untyped literal
// arguments to the parameter domains.
func (b *binder) formula(n syntax.Node, name string, args []Binding, scope Binding) (Binding, error) {
	doms := make([]domain.Domain, len(args))
	for i, a := range args {
		doms[i] = a.Domain()
	}
	res := b.reg.Resolve(name, doms)
	if res == nil {
		return nil, b.noOverload(n, name, doms)
	}
	if res.Sig.Aggregate {
		return nil, bindError(n, "%q is an aggregate", name)
	}
	conv, err := b.convertArgs(args, res.Params)
	if err != nil {
		return nil, err
	}
	return &FormulaBinding{node: at(scope, n.Mark()), Sig: res.Sig, Args: conv, Dom: res.Result}, nil
}

func (b *binder) noOverload(n syntax.Node, name string, doms []domain.Domain) error {
	if !b.reg.Has(name) {
		return bindError(n, "unrecognized function %q", name)
	}
	parts := make([]string, len(doms))
	for i, d := range doms {
		parts[i] = d.String()
	}
	var sigs []string
	for _, s := range b.reg.Overloads(name) {
		sigs = append(sigs, s.String())
	}
	return bindError(n, "cannot apply %q to (%s)", name, strings.Join(parts, ", ")).
		WithHint("candidates: %s", strings.Join(sigs, "; "))
}

func (b *binder) convertArgs(args []Binding, params []domain.Domain) ([]Binding, error) {
	out := make([]Binding, len(args))
	for i, a := range args {
		out[i] = a
		lit, ok := a.(*LiteralBinding)
		if !ok || domain.Equal(lit.Dom, params[i]) || params[i].Kind() == domain.UntypedKind {
			continue
		}
		if lit.Value == nil {
			out[i] = &LiteralBinding{node: lit.node, Dom: params[i]}
			continue
		}
		v, err := domain.Convert(lit.Value, lit.Dom, params[i])
		if err != nil {
			return nil, diag.Errorf(diag.KindBind, lit.Mark(), "%v", err)
		}
		out[i] = &LiteralBinding{node: lit.node, Value: v, Dom: params[i]}
	}
	return out, nil
}

// Internal signatures used to test values for truth in a filter.
var (
	notNullSig  = &Signature{Name: "is_not_null", Construct: "is_not_null", Params: []domain.Kind{domain.AnyKind}, Result: domain.BooleanKind}
	notEmptySig = &Signature{Name: "is_not_empty", Construct: "is_not_empty", Params: []domain.Kind{domain.TextKind}, Result: domain.BooleanKind}
)

// asBoolean converts a value to a condition: booleans as is, text when
// neither NULL nor empty, anything else when not NULL.
func (b *binder) asBoolean(v Binding, n syntax.Node) (Binding, error) {
	switch v.Domain().Kind() {
	case domain.BooleanKind:
		return v, nil
	case domain.UntypedKind:
		lit, ok := v.(*LiteralBinding)
		if !ok {
			break
		}
		if lit.Value == nil {
			return &LiteralBinding{node: lit.node, Dom: domain.Boolean{}}, nil
		}
		conv, err := b.convertArgs([]Binding{lit}, []domain.Domain{domain.Boolean{}})
		if err != nil {
			return nil, err
		}
		return conv[0], nil
	case domain.TextKind, domain.EnumKind:
		return &FormulaBinding{node: at(v.Base(), n.Mark()), Sig: notEmptySig, Args: []Binding{v}, Dom: domain.Boolean{}}, nil
	}
	if !domain.IsScalar(v.Domain()) {
		return nil, bindError(n, "expected a condition, got %s", v.Domain())
	}
	return &FormulaBinding{node: at(v.Base(), n.Mark()), Sig: notNullSig, Args: []Binding{v}, Dom: domain.Boolean{}}, nil
}

// literalOf types a query parameter supplied by the caller.
func literalOf(v any) (any, domain.Domain, error) {
	switch x := v.(type) {
	case nil:
		return nil, domain.Untyped{}, nil
	case string:
		return x, domain.Untyped{}, nil
	case bool:
		return x, domain.Boolean{}, nil
	case int:
		return int64(x), domain.Integer{}, nil
	case int32:
		return int64(x), domain.Integer{}, nil
	case int64:
		return x, domain.Integer{}, nil
	case float64:
		if !domain.IsFinite(x) {
			return nil, nil, fmt.Errorf("non-finite float %v", x)
		}
		return x, domain.Float{}, nil
	case *apd.Decimal:
		return x, domain.Decimal{}, nil
	case time.Time:
		return x.UTC(), domain.DateTime{}, nil
	}
	return nil, nil, fmt.Errorf("unsupported parameter type %T", v)
}
