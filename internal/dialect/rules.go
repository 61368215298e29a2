package dialect

import (
	"fmt"
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/frame"
)

// Rule renders a formula given its arguments already rendered.
type Rule func(w *writer, f *frame.FormulaPhrase, args []string) (string, error)

// template renders the arguments into a fmt format; explicit argument
// indexes reorder them.
func template(format string) Rule {
	return func(_ *writer, _ *frame.FormulaPhrase, args []string) (string, error) {
		vals := make([]any, len(args))
		for i, a := range args {
			vals[i] = a
		}
		return fmt.Sprintf(format, vals...), nil
	}
}

// call renders name(arg, ...).
func call(name string) Rule {
	return func(_ *writer, _ *frame.FormulaPhrase, args []string) (string, error) {
		return name + "(" + strings.Join(args, ", ") + ")", nil
	}
}

// arithmetic renders a binary operator. Decimal results are refused by
// backends without exact decimals.
func arithmetic(op string) Rule {
	return func(w *writer, f *frame.FormulaPhrase, args []string) (string, error) {
		if err := w.exact(f); err != nil {
			return "", err
		}
		return "(" + args[0] + " " + op + " " + args[1] + ")", nil
	}
}

func (w *writer) exact(f *frame.FormulaPhrase) error {
	if f.Dom.Kind() == domain.DecimalKind && !w.d.DecimalArithmetic {
		return compileError("%s does not support decimal arithmetic", w.d.Name)
	}
	return nil
}

func divide(w *writer, f *frame.FormulaPhrase, args []string) (string, error) {
	if err := w.exact(f); err != nil {
		return "", err
	}
	left := args[0]
	if f.Args[0].Domain().Kind() == domain.IntegerKind && f.Args[1].Domain().Kind() == domain.IntegerKind {
		if name, ok := w.d.Types[f.Dom.Kind()]; ok && f.Dom.Kind() != domain.IntegerKind {
			left = "CAST(" + left + " AS " + name + ")"
		}
	}
	return "(" + left + " / " + args[1] + ")", nil
}

func negate(w *writer, f *frame.FormulaPhrase, args []string) (string, error) {
	if err := w.exact(f); err != nil {
		return "", err
	}
	return "(- " + args[0] + ")", nil
}

// contains is a case-insensitive substring test. Literal patterns are
// escaped; other patterns are matched verbatim.
func contains(like, concat string, escape bool) Rule {
	return func(w *writer, f *frame.FormulaPhrase, args []string) (string, error) {
		pattern, err := w.pattern(f.Args[1], args[1], concat)
		if err != nil {
			return "", err
		}
		s := "(" + args[0] + " " + like + " " + pattern
		if escape {
			s += " ESCAPE " + w.d.literals.Text(`\`)
		}
		return s + ")", nil
	}
}

func notContains(like, concat string, escape bool) Rule {
	inner := contains(like, concat, escape)
	return func(w *writer, f *frame.FormulaPhrase, args []string) (string, error) {
		s, err := inner(w, f, args)
		if err != nil {
			return "", err
		}
		return "(NOT " + s + ")", nil
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (w *writer) pattern(p frame.Phrase, rendered, concat string) (string, error) {
	if lit, ok := p.(*frame.LiteralPhrase); ok {
		s, ok := lit.Value.(string)
		if !ok {
			return rendered, nil
		}
		return w.d.Serialize("%"+likeEscaper.Replace(s)+"%", domain.Text{})
	}
	return fmt.Sprintf(concat, "'%'", rendered, "'%'"), nil
}

// genericRules are the renderings shared by every dialect unless it
// overrides them.
var genericRules = map[string]Rule{
	"add":             arithmetic("+"),
	"subtract":        arithmetic("-"),
	"multiply":        arithmetic("*"),
	"divide":          divide,
	"negate":          negate,
	"identity":        template("%s"),
	"concat":          template("(COALESCE(%s, '') || COALESCE(%s, ''))"),
	"date_add":        template("(%s + %s)"),
	"date_subtract":   template("(%s - %s)"),
	"date_difference": template("(%s - %s)"),

	"equal":           template("(%s = %s)"),
	"not_equal":       template("(%s <> %s)"),
	"total_equal":     template("(%s IS NOT DISTINCT FROM %s)"),
	"total_not_equal": template("(%s IS DISTINCT FROM %s)"),
	"less":            template("(%s < %s)"),
	"less_equal":      template("(%s <= %s)"),
	"greater":         template("(%s > %s)"),
	"greater_equal":   template("(%s >= %s)"),
	"contains":        contains("LIKE", "(%s || %s || %s)", true),
	"not_contains":    notContains("LIKE", "(%s || %s || %s)", true),

	"and":          template("(%s AND %s)"),
	"or":           template("(%s OR %s)"),
	"not":          template("(NOT %s)"),
	"is_null":      template("(%s IS NULL)"),
	"is_not_null":  template("(%s IS NOT NULL)"),
	"is_not_empty": template("(NULLIF(%s, '') IS NOT NULL)"),
	"null_if":      call("NULLIF"),
	"if_null":      call("COALESCE"),
	"if":           template("(CASE WHEN %s THEN %s ELSE %s END)"),

	"length":    call("CHARACTER_LENGTH"),
	"upper":     call("UPPER"),
	"lower":     call("LOWER"),
	"trim":      call("TRIM"),
	"substring": substring("SUBSTRING(%s FROM %s)", "SUBSTRING(%s FROM %s FOR %s)"),
	"replace":   call("REPLACE"),
	"round":     call("ROUND"),
	"abs":       call("ABS"),
	"year":      template("CAST(EXTRACT(YEAR FROM %s) AS INTEGER)"),
	"month":     template("CAST(EXTRACT(MONTH FROM %s) AS INTEGER)"),
	"day":       template("CAST(EXTRACT(DAY FROM %s) AS INTEGER)"),
	"today":     template("CURRENT_DATE"),
	"now":       template("LOCALTIMESTAMP"),

	"agg:count": aggregate("COUNT"),
	"agg:sum":   aggregate("SUM"),
	"agg:avg":   aggregate("AVG"),
	"agg:min":   aggregate("MIN"),
	"agg:max":   aggregate("MAX"),
}

func substring(two, three string) Rule {
	return func(_ *writer, _ *frame.FormulaPhrase, args []string) (string, error) {
		if len(args) == 2 {
			return fmt.Sprintf(two, args[0], args[1]), nil
		}
		return fmt.Sprintf(three, args[0], args[1], args[2]), nil
	}
}

// aggregate renders an aggregate function; the writer passes "*" for
// COUNT(*).
func aggregate(name string) Rule {
	return func(_ *writer, _ *frame.FormulaPhrase, args []string) (string, error) {
		return name + "(" + strings.Join(args, ", ") + ")", nil
	}
}
