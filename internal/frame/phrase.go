package frame

import (
	"fmt"
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// Phrase is an SQL expression.
type Phrase interface {
	Domain() domain.Domain
	phrase()
}

// LiteralPhrase is a constant; a nil Value is NULL.
type LiteralPhrase struct {
	Value any
	Dom   domain.Domain
}

// ColumnPhrase is a column of a FROM anchor.
type ColumnPhrase struct {
	Alias    string
	Name     string
	Dom      domain.Domain
	Nullable bool
}

// FormulaPhrase applies the construct named by Construct; its rendering is
// chosen by the dialect.
type FormulaPhrase struct {
	Construct string
	Args      []Phrase
	Dom       domain.Domain
}

// CastPhrase converts its argument to Dom.
type CastPhrase struct {
	Arm Phrase
	Dom domain.Domain
}

// AggregatePhrase is an aggregate function; a nil Arg is COUNT(*).
type AggregatePhrase struct {
	Construct string
	Arg       Phrase
	Dom       domain.Domain
}

// SubqueryPhrase is a scalar subquery, or an EXISTS test when Exists is
// set.
type SubqueryPhrase struct {
	Select *Select
	Exists bool
	Dom    domain.Domain
}

// RowNumberPhrase is ROW_NUMBER() OVER (PARTITION BY ... ORDER BY ...).
type RowNumberPhrase struct {
	Partition []Phrase
	Order     []Order
}

// VariablePhrase reads a session variable.
type VariablePhrase struct {
	Name string
	Dom  domain.Domain
}

// AssignPhrase sets a session variable and yields the assigned value.
type AssignPhrase struct {
	Name  string
	Value Phrase
}

// ToPredicate uses a value as a condition.
type ToPredicate struct{ Arm Phrase }

// FromPredicate uses a condition as a value.
type FromPredicate struct{ Arm Phrase }

func (p *LiteralPhrase) Domain() domain.Domain   { return p.Dom }
func (p *ColumnPhrase) Domain() domain.Domain    { return p.Dom }
func (p *FormulaPhrase) Domain() domain.Domain   { return p.Dom }
func (p *CastPhrase) Domain() domain.Domain      { return p.Dom }
func (p *AggregatePhrase) Domain() domain.Domain { return p.Dom }
func (p *SubqueryPhrase) Domain() domain.Domain  { return p.Dom }
func (p *RowNumberPhrase) Domain() domain.Domain { return domain.Integer{} }
func (p *VariablePhrase) Domain() domain.Domain  { return p.Dom }
func (p *AssignPhrase) Domain() domain.Domain    { return p.Value.Domain() }
func (p *ToPredicate) Domain() domain.Domain     { return domain.Boolean{} }
func (p *FromPredicate) Domain() domain.Domain   { return domain.Boolean{} }

func (*LiteralPhrase) phrase()   {}
func (*ColumnPhrase) phrase()    {}
func (*FormulaPhrase) phrase()   {}
func (*CastPhrase) phrase()      {}
func (*AggregatePhrase) phrase() {}
func (*SubqueryPhrase) phrase()  {}
func (*RowNumberPhrase) phrase() {}
func (*VariablePhrase) phrase()  {}
func (*AssignPhrase) phrase()    {}
func (*ToPredicate) phrase()     {}
func (*FromPredicate) phrase()   {}

// predicateConstructs yield conditions rather than values.
var predicateConstructs = map[string]bool{
	"equal":           true,
	"not_equal":       true,
	"total_equal":     true,
	"total_not_equal": true,
	"less":            true,
	"less_equal":      true,
	"greater":         true,
	"greater_equal":   true,
	"contains":        true,
	"not_contains":    true,
	"and":             true,
	"or":              true,
	"not":             true,
	"is_null":         true,
	"is_not_null":     true,
	"is_not_empty":    true,
}

// IsPredicate reports whether p is a condition.
func IsPredicate(p Phrase) bool {
	switch x := p.(type) {
	case *FormulaPhrase:
		return predicateConstructs[x.Construct]
	case *SubqueryPhrase:
		return x.Exists
	case *ToPredicate:
		return true
	}
	return false
}

// conditionArgs reports whether argument i of construct is a condition.
func conditionArgs(construct string, i int) bool {
	switch construct {
	case "and", "or", "not":
		return true
	case "if":
		return i == 0
	}
	return false
}

// AsPredicate converts p to a condition, folding a FromPredicate.
func AsPredicate(p Phrase) Phrase {
	if from, ok := p.(*FromPredicate); ok {
		return from.Arm
	}
	if IsPredicate(p) {
		return p
	}
	return &ToPredicate{Arm: p}
}

// AsValue converts p to a value, folding a ToPredicate.
func AsValue(p Phrase) Phrase {
	if to, ok := p.(*ToPredicate); ok {
		return to.Arm
	}
	if !IsPredicate(p) {
		return p
	}
	return &FromPredicate{Arm: p}
}

// And combines conditions; nil operands are skipped.
func And(ps ...Phrase) Phrase {
	var out Phrase
	for _, p := range ps {
		if p == nil {
			continue
		}
		p = AsPredicate(p)
		if out == nil {
			out = p
			continue
		}
		out = &FormulaPhrase{Construct: "and", Args: []Phrase{out, p}, Dom: domain.Boolean{}}
	}
	return out
}

// String renders a phrase in a dialect-neutral notation. It keys exported
// columns and serves debugging.
func String(p Phrase) string {
	switch x := p.(type) {
	case *LiteralPhrase:
		if x.Value == nil {
			return "null"
		}
		return fmt.Sprintf("%s:%s", x.Dom, domain.Format(x.Dom, x.Value))
	case *ColumnPhrase:
		return x.Alias + "." + x.Name
	case *FormulaPhrase:
		return x.Construct + "(" + strings.Join(strs(x.Args), ",") + ")"
	case *CastPhrase:
		return fmt.Sprintf("cast(%s,%s)", String(x.Arm), x.Dom)
	case *AggregatePhrase:
		if x.Arg == nil {
			return x.Construct + "(*)"
		}
		return x.Construct + "(" + String(x.Arg) + ")"
	case *SubqueryPhrase:
		return fmt.Sprintf("subquery(%p)", x.Select)
	case *RowNumberPhrase:
		return fmt.Sprintf("row_number(%s)", strings.Join(strs(x.Partition), ","))
	case *VariablePhrase:
		return "@" + x.Name
	case *AssignPhrase:
		return "@" + x.Name + ":=" + String(x.Value)
	case *ToPredicate:
		return "to_predicate(" + String(x.Arm) + ")"
	case *FromPredicate:
		return "from_predicate(" + String(x.Arm) + ")"
	}
	return fmt.Sprintf("%T", p)
}

func strs(ps []Phrase) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = String(p)
	}
	return out
}
