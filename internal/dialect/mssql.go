package dialect

import (
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/binding"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/frame"
	"github.com/prometheusresearch/htsql-sub004/internal/term"
)

// mssql has no boolean values: conditions are converted to 1 and 0 and
// back. TOP cannot skip rows, so offsets number rows with ROW_NUMBER().
func mssql() descriptor {
	return descriptor{
		dialect: Dialect{
			Name:              "mssql",
			Clip:              term.ClipPolicy{Plain: term.ClipTop, WithOffset: term.ClipWindow, Partitioned: term.ClipWindow},
			DefaultSchema:     "dbo",
			DecimalArithmetic: true,
			Paging:            PagingTop,
			Quote:             bracketQuote,
			Types: map[domain.Kind]string{
				domain.BooleanKind:  "BIT",
				domain.IntegerKind:  "BIGINT",
				domain.DecimalKind:  "DECIMAL(38,10)",
				domain.FloatKind:    "FLOAT",
				domain.TextKind:     "NVARCHAR(MAX)",
				domain.EnumKind:     "NVARCHAR(MAX)",
				domain.DateKind:     "DATE",
				domain.TimeKind:     "TIME",
				domain.DateTimeKind: "DATETIME2",
			},
		},
		literals: literalRules{
			Boolean: func(v bool) string {
				if v {
					return "1"
				}
				return "0"
			},
			Text:     func(s string) string { return "N" + quoteText(s) },
			Date:     func(s string) string { return "CAST(" + quoteText(s) + " AS DATE)" },
			Time:     func(s string) string { return "CAST(" + quoteText(s) + " AS TIME)" },
			DateTime: func(s string) string { return "CAST(" + quoteText(s) + " AS DATETIME2)" },
		},
		overrides: map[string]Rule{
			"total_equal":     template("EXISTS (SELECT %s INTERSECT SELECT %s)"),
			"total_not_equal": template("(NOT EXISTS (SELECT %s INTERSECT SELECT %s))"),
			"concat":          template("(COALESCE(%s, N'') + COALESCE(%s, N''))"),
			"contains":        contains("LIKE", "(%s + %s + %s)", true),
			"not_contains":    notContains("LIKE", "(%s + %s + %s)", true),
			"date_add":        template("DATEADD(DAY, %[2]s, %[1]s)"),
			"date_subtract":   template("DATEADD(DAY, - %[2]s, %[1]s)"),
			"date_difference": template("DATEDIFF(DAY, %[2]s, %[1]s)"),
			"length":          call("LEN"),
			"trim":            template("LTRIM(RTRIM(%s))"),
			"substring":       substring("SUBSTRING(%[1]s, %[2]s, LEN(%[1]s))", "SUBSTRING(%s, %s, %s)"),
			"round":           mssqlRound,
			"year":            call("YEAR"),
			"month":           call("MONTH"),
			"day":             call("DAY"),
			"today":           template("CAST(GETDATE() AS DATE)"),
			"now":             template("GETDATE()"),
			"agg:avg":         mssqlAvg,
		},
		build: binding.Builtins,
	}
}

func bracketQuote(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func mssqlRound(_ *writer, _ *frame.FormulaPhrase, args []string) (string, error) {
	if len(args) == 1 {
		return "ROUND(" + args[0] + ", 0)", nil
	}
	return "ROUND(" + args[0] + ", " + args[1] + ")", nil
}

// mssqlAvg keeps the fraction: AVG of an integer column is an integer in
// SQL Server.
func mssqlAvg(w *writer, f *frame.FormulaPhrase, args []string) (string, error) {
	if len(f.Args) == 1 && f.Args[0].Domain().Kind() == domain.IntegerKind {
		return "AVG(CAST(" + args[0] + " AS " + w.d.Types[domain.DecimalKind] + "))", nil
	}
	return "AVG(" + strings.Join(args, ", ") + ")", nil
}
