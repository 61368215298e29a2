package dialect

import (
	"fmt"
	"maps"
	"slices"

	"github.com/prometheusresearch/htsql-sub004/internal/binding"
	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/memo"
	"github.com/prometheusresearch/htsql-sub004/internal/term"
)

// Paging is the way a dialect spells LIMIT and OFFSET.
type Paging int

const (
	// PagingLimitOffset is LIMIT n OFFSET m.
	PagingLimitOffset Paging = iota
	// PagingLimitComma is LIMIT m, n.
	PagingLimitComma
	// PagingTop is SELECT TOP n, with OFFSET m ROWS FETCH NEXT n ROWS ONLY
	// when rows are skipped.
	PagingTop
)

// Dialect describes a target SQL backend: its function signatures, the
// way it renders every construct and literal, and its clip strategies.
type Dialect struct {
	Name string

	// Clip chooses how ordered flows with a limit or an offset are cut.
	Clip term.ClipPolicy

	// DefaultSchema is omitted from qualified table names.
	DefaultSchema string

	// SingleSchema dialects never qualify table names.
	SingleSchema bool

	// MaxDecimalDigits bounds the significant digits of decimal literals;
	// zero means unbounded.
	MaxDecimalDigits int

	// DecimalArithmetic is false when the backend evaluates decimals in
	// binary floating point.
	DecimalArithmetic bool

	// BooleanValues is true when conditions and boolean values are
	// interchangeable in the backend.
	BooleanValues bool

	// NullsOrder makes NULL placement explicit in ORDER BY: first when
	// ascending, last when descending.
	NullsOrder bool

	Paging Paging

	// OffsetNeedsLimit dialects spell a bare offset as LIMIT -1 OFFSET m.
	OffsetNeedsLimit bool

	// Quote renders an identifier.
	Quote func(name string) string

	// Types names the SQL type of each domain kind in casts.
	Types map[domain.Kind]string

	literals literalRules
	rules    map[string]Rule
	registry *binding.Registry
}

// Registry returns the function signatures available in the dialect.
func (d *Dialect) Registry() *binding.Registry { return d.registry }

// Rule returns the dump rule of a construct.
func (d *Dialect) Rule(construct string) (Rule, bool) {
	r, ok := d.rules[construct]
	return r, ok
}

func (d *Dialect) String() string { return d.Name }

// descriptor holds what a dialect defines on top of the generic rules.
type descriptor struct {
	dialect   Dialect
	overrides map[string]Rule
	literals  literalRules
	build     func() []binding.Signature
}

var descriptors = map[string]func() descriptor{
	"sqlite": sqlite,
	"pgsql":  pgsql,
	"mysql":  mysql,
	"mssql":  mssql,
}

// aliases maps alternative spellings to dialect names.
var aliases = map[string]string{
	"sqlite3":    "sqlite",
	"postgres":   "pgsql",
	"postgresql": "pgsql",
	"pgx":        "pgsql",
	"sqlserver":  "mssql",
}

// Names returns the supported dialect names, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(descriptors))
}

// Lookup returns the dialect with the given name. Dialects are built once
// per process.
func Lookup(name string) (*Dialect, error) {
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	describe, ok := descriptors[name]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q (supported: %v)", name, Names())
	}
	return memo.Of(memo.Process(), "dialect."+name, func() (*Dialect, error) {
		desc := describe()
		reg, err := binding.LoadRegistry(name, desc.build)
		if err != nil {
			return nil, fmt.Errorf("load %s registry: %w", name, err)
		}
		d := desc.dialect
		d.registry = reg
		d.rules = maps.Clone(genericRules)
		maps.Copy(d.rules, desc.overrides)
		d.literals = genericLiterals
		d.literals.merge(desc.literals)
		return &d, nil
	})
}

// MustLookup is Lookup for dialect names known to be valid.
func MustLookup(name string) *Dialect {
	d, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return d
}

func compileError(format string, args ...any) *diag.Error {
	return diag.Errorf(diag.KindCompile, diag.Mark{}, format, args...)
}

func serializeError(format string, args ...any) *diag.Error {
	return diag.Errorf(diag.KindSerialize, diag.Mark{}, format, args...)
}

func internalError(format string, args ...any) *diag.Error {
	return diag.Errorf(diag.KindInternal, diag.Mark{}, format, args...)
}
