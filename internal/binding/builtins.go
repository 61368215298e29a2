package binding

import (
	"slices"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/memo"
)

const (
	anyK  = domain.AnyKind
	boolK = domain.BooleanKind
	intK  = domain.IntegerKind
	decK  = domain.DecimalKind
	fltK  = domain.FloatKind
	textK = domain.TextKind
	dateK = domain.DateKind
	timeK = domain.TimeKind
	dtK   = domain.DateTimeKind
)

func sig(name, construct string, result domain.Kind, params ...domain.Kind) Signature {
	return Signature{Name: name, Construct: construct, Params: params, Result: result}
}

func agg(name, construct string, result domain.Kind, params ...domain.Kind) Signature {
	s := sig(name, construct, result, params...)
	s.Aggregate = true
	return s
}

func numeric(name, construct string) []Signature {
	return []Signature{
		sig(name, construct, intK, intK, intK),
		sig(name, construct, decK, decK, decK),
		sig(name, construct, fltK, fltK, fltK),
	}
}

// Builtins returns the signatures shared by every dialect.
func Builtins() []Signature {
	var sigs []Signature
	sigs = append(sigs, numeric("+", "add")...)
	sigs = append(sigs,
		sig("+", "concat", textK, textK, textK),
		sig("+", "date_add", dateK, dateK, intK),
	)
	sigs = append(sigs, numeric("-", "subtract")...)
	sigs = append(sigs,
		sig("-", "date_subtract", dateK, dateK, intK),
		sig("-", "date_difference", intK, dateK, dateK),
	)
	sigs = append(sigs, numeric("*", "multiply")...)
	sigs = append(sigs,
		sig("/", "divide", decK, intK, intK),
		sig("/", "divide", decK, decK, decK),
		sig("/", "divide", fltK, fltK, fltK),

		sig("-", "negate", intK, intK),
		sig("-", "negate", decK, decK),
		sig("-", "negate", fltK, fltK),
		sig("+", "identity", intK, intK),
		sig("+", "identity", decK, decK),
		sig("+", "identity", fltK, fltK),

		sig("=", "equal", boolK, anyK, anyK),
		sig("!=", "not_equal", boolK, anyK, anyK),
		sig("==", "total_equal", boolK, anyK, anyK),
		sig("!==", "total_not_equal", boolK, anyK, anyK),
		sig("<", "less", boolK, anyK, anyK),
		sig("<=", "less_equal", boolK, anyK, anyK),
		sig(">", "greater", boolK, anyK, anyK),
		sig(">=", "greater_equal", boolK, anyK, anyK),
		sig("~", "contains", boolK, textK, textK),
		sig("!~", "not_contains", boolK, textK, textK),
		sig("&", "and", boolK, boolK, boolK),
		sig("|", "or", boolK, boolK, boolK),
		sig("!", "not", boolK, boolK),

		sig("is_null", "is_null", boolK, anyK),
		sig("null_if", "null_if", anyK, anyK, anyK),
		sig("if_null", "if_null", anyK, anyK, anyK),
		sig("if", "if", anyK, boolK, anyK, anyK),
		sig("length", "length", intK, textK),
		sig("upper", "upper", textK, textK),
		sig("lower", "lower", textK, textK),
		sig("trim", "trim", textK, textK),
		sig("substring", "substring", textK, textK, intK),
		sig("substring", "substring", textK, textK, intK, intK),
		sig("replace", "replace", textK, textK, textK, textK),
		sig("round", "round", decK, decK),
		sig("round", "round", fltK, fltK),
		sig("round", "round", decK, decK, intK),
		sig("abs", "abs", intK, intK),
		sig("abs", "abs", decK, decK),
		sig("abs", "abs", fltK, fltK),
		sig("year", "year", intK, dateK),
		sig("year", "year", intK, dtK),
		sig("month", "month", intK, dateK),
		sig("month", "month", intK, dtK),
		sig("day", "day", intK, dateK),
		sig("day", "day", intK, dtK),
		sig("today", "today", dateK),
		sig("now", "now", dtK),

		agg("count", "count", intK, boolK),
		agg("exists", "exists", boolK, boolK),
		agg("every", "every", boolK, boolK),
		agg("sum", "sum", intK, intK),
		agg("sum", "sum", decK, decK),
		agg("sum", "sum", fltK, fltK),
		agg("avg", "avg", decK, intK),
		agg("avg", "avg", decK, decK),
		agg("avg", "avg", fltK, fltK),
		agg("min", "min", anyK, anyK),
		agg("max", "max", anyK, anyK),
	)
	return sigs
}

// Override replaces the result kind of the overload of name with the given
// parameter kinds. Overloads that do not exist are left untouched.
func Override(sigs []Signature, name string, result domain.Kind, params ...domain.Kind) []Signature {
	out := slices.Clone(sigs)
	for i := range out {
		if out[i].Name == name && slices.Equal(out[i].Params, params) {
			out[i].Result = result
		}
	}
	return out
}

// LoadRegistry returns the memoized registry for a dialect, building it from
// the signatures returned by build on first use.
func LoadRegistry(dialect string, build func() []Signature) (*Registry, error) {
	return memo.Of(memo.Process(), "binding.registry."+dialect, func() (*Registry, error) {
		return NewRegistry(build())
	})
}

// castKinds maps the names of the cast functions to their target kinds.
var castKinds = map[string]domain.Kind{
	"boolean":  boolK,
	"integer":  intK,
	"decimal":  decK,
	"float":    fltK,
	"text":     textK,
	"date":     dateK,
	"time":     timeK,
	"datetime": dtK,
}
