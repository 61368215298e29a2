package dialect

import (
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/binding"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/term"
)

// sqlite keeps decimals as binary floats, so decimal literals are limited
// to the digits a double holds and decimal arithmetic is refused.
func sqlite() descriptor {
	return descriptor{
		dialect: Dialect{
			Name:              "sqlite",
			Clip:              term.ClipPolicy{Plain: term.ClipNative, WithOffset: term.ClipNative, Partitioned: term.ClipWindow},
			SingleSchema:      true,
			MaxDecimalDigits:  15,
			DecimalArithmetic: false,
			BooleanValues:     true,
			Paging:            PagingLimitOffset,
			OffsetNeedsLimit:  true,
			Quote:             doubleQuote,
			Types: map[domain.Kind]string{
				domain.IntegerKind: "INTEGER",
				domain.DecimalKind: "NUMERIC",
				domain.FloatKind:   "REAL",
				domain.TextKind:    "TEXT",
				domain.EnumKind:    "TEXT",
			},
		},
		literals: literalRules{
			Boolean: func(v bool) string {
				if v {
					return "1"
				}
				return "0"
			},
			Date:     quoteText,
			Time:     quoteText,
			DateTime: quoteText,
		},
		overrides: map[string]Rule{
			"total_equal":     template("(%s IS %s)"),
			"total_not_equal": template("(%s IS NOT %s)"),
			"date_add":        template("DATE(%s, (%s) || ' days')"),
			"date_subtract":   template("DATE(%s, (- %s) || ' days')"),
			"date_difference": template("CAST(JULIANDAY(%s) - JULIANDAY(%s) AS INTEGER)"),
			"length":          call("LENGTH"),
			"substring":       substring("SUBSTR(%s, %s)", "SUBSTR(%s, %s, %s)"),
			"year":            template("CAST(STRFTIME('%%Y', %s) AS INTEGER)"),
			"month":           template("CAST(STRFTIME('%%m', %s) AS INTEGER)"),
			"day":             template("CAST(STRFTIME('%%d', %s) AS INTEGER)"),
			"today":           template("DATE('now')"),
			"now":             template("DATETIME('now')"),
			"cast:date":       call("DATE"),
			"cast:time":       call("TIME"),
			"cast:datetime":   call("DATETIME"),
		},
		build: func() []binding.Signature {
			sigs := binding.Builtins()
			sigs = binding.Override(sigs, "/", domain.FloatKind, domain.IntegerKind, domain.IntegerKind)
			return binding.Override(sigs, "avg", domain.FloatKind, domain.IntegerKind)
		},
	}
}

func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
