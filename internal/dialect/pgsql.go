package dialect

import (
	"strings"

	"github.com/lib/pq"

	"github.com/prometheusresearch/htsql-sub004/internal/binding"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/term"
)

func pgsql() descriptor {
	return descriptor{
		dialect: Dialect{
			Name:              "pgsql",
			Clip:              term.DefaultClip,
			DefaultSchema:     "public",
			DecimalArithmetic: true,
			BooleanValues:     true,
			NullsOrder:        true,
			Paging:            PagingLimitOffset,
			Quote:             pq.QuoteIdentifier,
			Types: map[domain.Kind]string{
				domain.BooleanKind:  "BOOLEAN",
				domain.IntegerKind:  "BIGINT",
				domain.DecimalKind:  "NUMERIC",
				domain.FloatKind:    "FLOAT8",
				domain.TextKind:     "TEXT",
				domain.EnumKind:     "TEXT",
				domain.DateKind:     "DATE",
				domain.TimeKind:     "TIME",
				domain.DateTimeKind: "TIMESTAMP",
			},
		},
		literals: literalRules{
			Text: func(s string) string { return strings.TrimSpace(pq.QuoteLiteral(s)) },
		},
		overrides: map[string]Rule{
			"contains":     contains("ILIKE", "(%s || %s || %s)", false),
			"not_contains": notContains("ILIKE", "(%s || %s || %s)", false),
		},
		build: binding.Builtins,
	}
}
