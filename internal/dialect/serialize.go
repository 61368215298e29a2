package dialect

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// literalRules renders literals of the kinds whose spelling differs
// between backends. Date, Time and DateTime receive the canonical text
// form of the value.
type literalRules struct {
	Boolean  func(v bool) string
	Text     func(s string) string
	Date     func(s string) string
	Time     func(s string) string
	DateTime func(s string) string
}

func (l *literalRules) merge(o literalRules) {
	if o.Boolean != nil {
		l.Boolean = o.Boolean
	}
	if o.Text != nil {
		l.Text = o.Text
	}
	if o.Date != nil {
		l.Date = o.Date
	}
	if o.Time != nil {
		l.Time = o.Time
	}
	if o.DateTime != nil {
		l.DateTime = o.DateTime
	}
}

var genericLiterals = literalRules{
	Boolean: func(v bool) string {
		if v {
			return "TRUE"
		}
		return "FALSE"
	},
	Text:     quoteText,
	Date:     func(s string) string { return "DATE " + quoteText(s) },
	Time:     func(s string) string { return "TIME " + quoteText(s) },
	DateTime: func(s string) string { return "TIMESTAMP " + quoteText(s) },
}

// quoteText is the standard SQL string literal: quotes doubled.
func quoteText(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Serialize renders v, a value of dom, as an SQL literal. Values the
// backend cannot represent exactly are rejected rather than rounded.
func (d *Dialect) Serialize(v any, dom domain.Domain) (string, error) {
	if v == nil {
		return "NULL", nil
	}
	switch dom.Kind() {
	case domain.BooleanKind:
		b, ok := v.(bool)
		if !ok {
			return "", serializeError("expected a boolean, got %T", v)
		}
		return d.literals.Boolean(b), nil
	case domain.IntegerKind:
		n, ok := v.(int64)
		if !ok {
			return "", serializeError("expected an integer, got %T", v)
		}
		if n < 0 {
			if n == math.MinInt64 {
				return "", serializeError("integer %d is out of range for %s", n, d.Name)
			}
			return "(" + strconv.FormatInt(n, 10) + ")", nil
		}
		return strconv.FormatInt(n, 10), nil
	case domain.FloatKind:
		f, ok := v.(float64)
		if !ok {
			return "", serializeError("expected a float, got %T", v)
		}
		if !domain.IsFinite(f) {
			return "", serializeError("float value %v cannot be represented in %s", f, d.Name)
		}
		s := strconv.FormatFloat(f, 'e', -1, 64)
		if f < 0 {
			s = "(" + s + ")"
		}
		return s, nil
	case domain.DecimalKind:
		x, ok := v.(*apd.Decimal)
		if !ok {
			return "", serializeError("expected a decimal, got %T", v)
		}
		return d.decimal(x)
	case domain.TextKind, domain.EnumKind, domain.UntypedKind:
		s, ok := v.(string)
		if !ok {
			return "", serializeError("expected a string, got %T", v)
		}
		if strings.ContainsRune(s, 0) {
			return "", serializeError("string literals cannot contain NUL characters")
		}
		return d.literals.Text(s), nil
	case domain.DateKind, domain.TimeKind, domain.DateTimeKind:
		t, ok := v.(time.Time)
		if !ok {
			return "", serializeError("expected a %s, got %T", dom, v)
		}
		text := domain.Format(dom, t)
		switch dom.Kind() {
		case domain.DateKind:
			return d.literals.Date(text), nil
		case domain.TimeKind:
			return d.literals.Time(text), nil
		}
		return d.literals.DateTime(text), nil
	}
	return "", serializeError("cannot render a literal of type %s", dom)
}

func (d *Dialect) decimal(x *apd.Decimal) (string, error) {
	if x.Form != apd.Finite {
		return "", serializeError("decimal value %s cannot be represented in %s", x, d.Name)
	}
	if d.MaxDecimalDigits > 0 {
		if precision, _ := domain.DecimalDigits(x); precision > d.MaxDecimalDigits {
			return "", serializeError("decimal value %s exceeds the %d significant digits supported by %s",
				x.Text('f'), d.MaxDecimalDigits, d.Name)
		}
	}
	s := x.Text('f')
	if !strings.ContainsRune(s, '.') {
		// Keep the literal out of the integer type.
		s += ".0"
	}
	if x.Negative {
		s = "(" + s + ")"
	}
	return s, nil
}
