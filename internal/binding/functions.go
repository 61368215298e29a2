package binding

import (
	"strconv"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/syntax"
)

// flowFunctions take the current flow as their implicit operand.
var flowFunctions = map[string]bool{
	"filter": true,
	"sort":   true,
	"limit":  true,
	"offset": true,
	"define": true,
}

var aggregates = map[string]bool{
	"count": true, "exists": true, "every": true,
	"sum": true, "avg": true, "min": true, "max": true,
}

// bindCall binds f(args) in scope. Flow functions apply to scope itself.
func (b *binder) bindCall(n syntax.Node, name string, args []syntax.Node, scope Binding) (Binding, error) {
	if found, ok := Lookup(b.cat, scope, name, true); ok {
		if c, ok := found.Recipe.(ComplexRecipe); ok && c.Define.HasParams {
			vals, err := b.values(args, scope)
			if err != nil {
				return nil, err
			}
			return b.fromRecipe(found, n, vals)
		}
	}
	if flowFunctions[name] {
		if !IsFlow(scope) {
			return nil, bindError(n, "%s() expects a flow", name)
		}
		return b.flowCall(n, name, args, scope)
	}
	return b.valueCall(n, name, args, scope)
}

// bindPipe binds "x :f(args)": flow functions apply to x, other functions
// receive x as their first argument.
func (b *binder) bindPipe(n *syntax.PipeNode, scope Binding) (Binding, error) {
	if !n.IsFlow {
		return nil, bindError(n, "a format pipe is only allowed at the end of a query")
	}
	if flowFunctions[n.Name] {
		larm, err := b.bindFlow(n.Larm, scope)
		if err != nil {
			return nil, err
		}
		return b.flowCall(n, n.Name, n.Args, larm)
	}
	args := append([]syntax.Node{n.Larm}, n.Args...)
	return b.bindCall(n, n.Name, args, scope)
}

func (b *binder) values(args []syntax.Node, scope Binding) ([]Binding, error) {
	out := make([]Binding, len(args))
	for i, a := range args {
		v, err := b.bindValue(a, scope)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func arity(n syntax.Node, name string, args []syntax.Node, min, max int) error {
	if len(args) < min || len(args) > max {
		if min == max {
			return bindError(n, "%s() expects %d argument(s), got %d", name, min, len(args))
		}
		return bindError(n, "%s() expects %d to %d arguments, got %d", name, min, max, len(args))
	}
	return nil
}

func (b *binder) flowCall(n syntax.Node, name string, args []syntax.Node, this Binding) (Binding, error) {
	switch name {
	case "filter":
		if err := arity(n, name, args, 1, 1); err != nil {
			return nil, err
		}
		return b.sieve(n, this, args[0])
	case "sort":
		if len(args) == 0 {
			return nil, bindError(n, "sort() expects at least one argument")
		}
		sorted := &SortBinding{flowNode: flowAt(this, n.Mark())}
		for _, a := range args {
			v, err := b.bindValue(a, this)
			if err != nil {
				return nil, err
			}
			item := OrderItem{Value: v, Dir: 1}
			if d, ok := v.(*DirectionBinding); ok {
				item = OrderItem{Value: d.Arm, Dir: d.Dir}
			}
			if !domain.IsOrderable(item.Value.Domain()) && item.Value.Domain().Kind() != domain.IdentityKind {
				return nil, bindError(a, "cannot sort by a value of type %s", item.Value.Domain())
			}
			sorted.Order = append(sorted.Order, item)
		}
		return sorted, nil
	case "limit":
		if err := arity(n, name, args, 1, 2); err != nil {
			return nil, err
		}
		limit, err := b.count(args[0], this)
		if err != nil {
			return nil, err
		}
		sorted := &SortBinding{flowNode: flowAt(this, n.Mark()), Limit: &limit}
		if len(args) == 2 {
			offset, err := b.count(args[1], this)
			if err != nil {
				return nil, err
			}
			sorted.Offset = &offset
		}
		return sorted, nil
	case "offset":
		if err := arity(n, name, args, 1, 1); err != nil {
			return nil, err
		}
		offset, err := b.count(args[0], this)
		if err != nil {
			return nil, err
		}
		return &SortBinding{flowNode: flowAt(this, n.Mark()), Offset: &offset}, nil
	case "define":
		scope := this
		for _, a := range args {
			assign, ok := a.(*syntax.AssignNode)
			if !ok {
				return nil, bindError(a, "define() expects assignments")
			}
			lhs := assign.LHS
			if len(lhs.Path) != 1 {
				return nil, bindError(lhs, "expected a plain name on the left of ':='")
			}
			def := &DefineBinding{
				flowNode:  flowAt(scope, assign.Mark()),
				Name:      lhs.Path[0],
				Reference: lhs.Reference,
				Params:    lhs.Params,
				HasParams: lhs.HasParams,
				Body:      assign.RHS,
			}
			if lhs.Reference {
				if lhs.HasParams {
					return nil, bindError(lhs, "a reference cannot take parameters")
				}
				v, err := b.bindValue(assign.RHS, scope)
				if err != nil {
					return nil, err
				}
				def.Value = v
			}
			scope = def
		}
		return scope, nil
	}
	return nil, diag.Errorf(diag.KindInternal, n.Mark(), "unknown flow function %s", name)
}

// count binds a non-negative integer constant.
func (b *binder) count(n syntax.Node, scope Binding) (int64, error) {
	v, err := b.bind(n, scope)
	if err != nil {
		return 0, err
	}
	lit, ok := v.(*LiteralBinding)
	if ok && lit.Dom.Kind() == domain.UntypedKind {
		if s, isText := lit.Value.(string); isText {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				lit = &LiteralBinding{node: lit.node, Value: i, Dom: domain.Integer{}}
			}
		}
	}
	if !ok || lit.Dom.Kind() != domain.IntegerKind || lit.Value == nil {
		return 0, bindError(n, "expected a non-negative integer constant")
	}
	i := lit.Value.(int64)
	if i < 0 {
		return 0, bindError(n, "expected a non-negative integer constant")
	}
	return i, nil
}

func (b *binder) valueCall(n syntax.Node, name string, args []syntax.Node, scope Binding) (Binding, error) {
	switch name {
	case "true", "false", "null":
		if err := arity(n, name, args, 0, 0); err != nil {
			return nil, err
		}
		if name == "null" {
			return &LiteralBinding{node: at(scope, n.Mark()), Dom: domain.Untyped{}}, nil
		}
		return &LiteralBinding{node: at(scope, n.Mark()), Value: name == "true", Dom: domain.Boolean{}}, nil
	case "as":
		if err := arity(n, name, args, 2, 2); err != nil {
			return nil, err
		}
		v, err := b.element(args[0], scope)
		if err != nil {
			return nil, err
		}
		var title string
		switch t := args[1].(type) {
		case *syntax.IdentifierNode:
			title = t.Name
		case *syntax.StringNode:
			title = t.Text
		default:
			return nil, bindError(args[1], "expected a title")
		}
		return &TitleBinding{node: at(scope, n.Mark()), Arm: v, Title: title}, nil
	}
	if aggregates[name] {
		return b.aggregate(n, name, args, scope)
	}
	if kind, ok := castKinds[name]; ok && len(args) == 1 {
		return b.cast(n, kind, args[0], scope)
	}
	vals, err := b.values(args, scope)
	if err != nil {
		return nil, err
	}
	return b.formula(n, name, vals, scope)
}

func (b *binder) aggregate(n syntax.Node, name string, args []syntax.Node, scope Binding) (Binding, error) {
	if err := arity(n, name, args, 1, 1); err != nil {
		return nil, err
	}
	arg, err := b.bind(args[0], scope)
	if err != nil {
		return nil, err
	}
	if IsFlow(arg) {
		if name != "count" && name != "exists" {
			return nil, bindError(args[0], "%s() expects a value, got a flow", name)
		}
		res := b.reg.Resolve(name, []domain.Domain{domain.Boolean{}})
		if res == nil {
			return nil, b.noOverload(n, name, []domain.Domain{domain.Boolean{}})
		}
		return &AggregateBinding{node: at(scope, n.Mark()), Sig: res.Sig, Arg: arg, Dom: res.Result}, nil
	}
	switch name {
	case "count", "exists", "every":
		if arg, err = b.asBoolean(arg, args[0]); err != nil {
			return nil, err
		}
	}
	res := b.reg.Resolve(name, []domain.Domain{arg.Domain()})
	if res == nil {
		return nil, b.noOverload(n, name, []domain.Domain{arg.Domain()})
	}
	conv, err := b.convertArgs([]Binding{arg}, res.Params)
	if err != nil {
		return nil, err
	}
	return &AggregateBinding{node: at(scope, n.Mark()), Sig: res.Sig, Arg: conv[0], Dom: res.Result}, nil
}

func (b *binder) cast(n syntax.Node, kind domain.Kind, arg syntax.Node, scope Binding) (Binding, error) {
	v, err := b.bindValue(arg, scope)
	if err != nil {
		return nil, err
	}
	target, _ := domain.FromKind(kind)
	from := v.Domain()
	if from.Kind() == kind {
		return v, nil
	}
	if lit, ok := v.(*LiteralBinding); ok && from.Kind() == domain.UntypedKind {
		if lit.Value == nil {
			return &LiteralBinding{node: at(scope, n.Mark()), Dom: target}, nil
		}
		value, err := domain.Parse(target, lit.Value.(string))
		if err != nil {
			return nil, bindError(n, "%v", err)
		}
		return &LiteralBinding{node: at(scope, n.Mark()), Value: value, Dom: target}, nil
	}
	if kind == domain.BooleanKind {
		return b.asBoolean(v, arg)
	}
	if !domain.IsScalar(from) || !domain.CanCast(from.Kind(), kind) {
		return nil, bindError(n, "cannot convert a value of type %s to %s", from, target)
	}
	return &CastBinding{node: at(scope, n.Mark()), Arm: v, Dom: target}, nil
}
