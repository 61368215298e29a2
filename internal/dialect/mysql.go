package dialect

import (
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/binding"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/term"
)

// mysql has no window functions in the versions this dialect targets:
// partitioned clips number rows with session variables.
func mysql() descriptor {
	return descriptor{
		dialect: Dialect{
			Name:              "mysql",
			Clip:              term.ClipPolicy{Plain: term.ClipNative, WithOffset: term.ClipNative, Partitioned: term.ClipVariables},
			DecimalArithmetic: true,
			BooleanValues:     true,
			Paging:            PagingLimitComma,
			Quote:             backQuote,
			Types: map[domain.Kind]string{
				domain.IntegerKind:  "SIGNED INTEGER",
				domain.DecimalKind:  "DECIMAL(65,30)",
				domain.FloatKind:    "DOUBLE",
				domain.TextKind:     "CHAR",
				domain.EnumKind:     "CHAR",
				domain.DateKind:     "DATE",
				domain.TimeKind:     "TIME",
				domain.DateTimeKind: "DATETIME",
			},
		},
		literals: literalRules{
			Text: mysqlText,
		},
		overrides: map[string]Rule{
			"total_equal":     template("(%s <=> %s)"),
			"total_not_equal": template("(NOT (%s <=> %s))"),
			"concat":          template("CONCAT(COALESCE(%s, ''), COALESCE(%s, ''))"),
			"contains":        contains("LIKE", "CONCAT(%s, %s, %s)", false),
			"not_contains":    notContains("LIKE", "CONCAT(%s, %s, %s)", false),
			"date_add":        template("DATE_ADD(%s, INTERVAL %s DAY)"),
			"date_subtract":   template("DATE_SUB(%s, INTERVAL %s DAY)"),
			"date_difference": call("DATEDIFF"),
			"length":          call("CHAR_LENGTH"),
			"substring":       substring("SUBSTRING(%s, %s)", "SUBSTRING(%s, %s, %s)"),
			"year":            call("YEAR"),
			"month":           call("MONTH"),
			"day":             call("DAYOFMONTH"),
			"today":           template("CURDATE()"),
			"now":             template("NOW()"),
			"if":              call("IF"),
		},
		build: binding.Builtins,
	}
}

func backQuote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

var mysqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `''`)

func mysqlText(s string) string {
	return "'" + mysqlEscaper.Replace(s) + "'"
}
