package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheusresearch/htsql-sub004/internal/binding"
	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/dialect"
	"github.com/prometheusresearch/htsql-sub004/internal/flow"
	"github.com/prometheusresearch/htsql-sub004/internal/frame"
	"github.com/prometheusresearch/htsql-sub004/internal/memo"
	"github.com/prometheusresearch/htsql-sub004/internal/product"
	"github.com/prometheusresearch/htsql-sub004/internal/store"
	"github.com/prometheusresearch/htsql-sub004/internal/syntax"
	"github.com/prometheusresearch/htsql-sub004/internal/term"
)

// DefaultMaxRows is the default bound on the rows of one statement.
const DefaultMaxRows = 10000

// Engine translates queries against one catalog into the SQL of one
// dialect and, when it has a store, executes them.
//
// An Engine holds no per-query state; Translate, Execute and Produce are
// safe for concurrent use.
type Engine struct {
	catalog *catalog.Catalog
	dialect *dialect.Dialect
	store   *store.Store
	logger  *slog.Logger
	cache   *memo.Cache
	ids     IDGenerator
	clip    term.ClipPolicy
	maxRows int
}

// Plan is a translated query: the statements to run and what is needed to
// assemble their rows into a product.
type Plan struct {
	// ID names the plan in logs.
	ID string

	// Query is the query text as given.
	Query string

	// Dialect is the name of the dialect the SQL is written in.
	Dialect string

	// Format is the output format requested with a query pipe, "" when
	// none was.
	Format string

	// Title heads the product.
	Title string

	// SQL holds one statement per segment, parent before nested.
	SQL []string

	Segment *flow.Segment
	Frame   *frame.Plan
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore sets the database that plans are executed against.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCache memoizes translations of queries without parameters.
// Entries are never evicted, so the cache suits a fixed query set such
// as a regression suite.
func WithCache(c *memo.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithMaxRows bounds the rows of each statement; a statement returning
// more fails. Zero disables the bound.
func WithMaxRows(n int) Option {
	return func(e *Engine) {
		e.maxRows = n
	}
}

// WithIDGenerator sets the generator of plan IDs.
//
// Default: UUIDv7Generator.
// Use NewFixedGenerator in tests for stable IDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClip overrides the clip strategies of the dialect.
func WithClip(p term.ClipPolicy) Option {
	return func(e *Engine) {
		e.clip = p
	}
}

// New creates an Engine translating queries against cat into dialect d.
func New(cat *catalog.Catalog, d *dialect.Dialect, opts ...Option) *Engine {
	e := &Engine{
		catalog: cat,
		dialect: d,
		logger:  slog.New(slog.DiscardHandler),
		ids:     UUIDv7Generator{},
		clip:    d.Clip,
		maxRows: DefaultMaxRows,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the catalog queries are bound against.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Dialect returns the dialect SQL is written in.
func (e *Engine) Dialect() *dialect.Dialect { return e.dialect }

// Translate compiles a query into a plan. Params supply the values of
// $name references.
func (e *Engine) Translate(query string, params map[string]any) (*Plan, error) {
	var (
		t   *Plan
		err error
	)
	if e.cache != nil && len(params) == 0 {
		key := fmt.Sprintf("translate.%s.%d.%d.%d.%s", e.dialect.Name, e.clip.Plain, e.clip.WithOffset, e.clip.Partitioned, query)
		t, err = memo.Of(e.cache, key, func() (*Plan, error) {
			return e.translate(query, nil)
		})
	} else {
		t, err = e.translate(query, params)
	}
	if err != nil {
		e.logger.Debug("query rejected", "query", query, "kind", diag.KindOf(err), "error", err)
		return nil, err
	}
	plan := *t
	plan.ID = e.ids.Generate()
	e.logger.Debug("query translated", "plan", plan.ID, "dialect", plan.Dialect, "statements", len(plan.SQL))
	return &plan, nil
}

func (e *Engine) translate(query string, params map[string]any) (*Plan, error) {
	q, err := syntax.Parse(query)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("query parsed", "query", query)

	qb, err := binding.Bind(q, &binding.Env{Catalog: e.catalog, Registry: e.dialect.Registry(), Params: params})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("query bound", "format", qb.Format)

	fq, err := flow.Encode(e.catalog, qb)
	if err != nil {
		return nil, err
	}
	st, err := term.Compile(fq.Segment, term.Options{Catalog: e.catalog, Clip: e.clip})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("query compiled", "term", term.Describe(st))

	fp, err := frame.Reduce(st)
	if err != nil {
		return nil, err
	}
	sql, err := e.dialect.DumpPlan(fp)
	if err != nil {
		return nil, err
	}
	for _, s := range sql {
		e.logger.Debug("sql dumped", "dialect", e.dialect.Name, "sql", s)
	}

	return &Plan{
		Query:   query,
		Dialect: e.dialect.Name,
		Format:  fq.Format,
		Title:   binding.Title(qb.Segment),
		SQL:     sql,
		Segment: fq.Segment,
		Frame:   fp,
	}, nil
}

// Execute runs the statements of a plan and assembles their rows.
func (e *Engine) Execute(ctx context.Context, plan *Plan) (*product.Product, error) {
	if e.store == nil {
		return nil, fmt.Errorf("engine has no database to execute plan %s", plan.ID)
	}
	if got := e.store.Dialect(); got != plan.Dialect {
		return nil, fmt.Errorf("plan %s is written in %s but the database speaks %s", plan.ID, plan.Dialect, got)
	}

	statements := 0
	fetch := func(p *frame.Plan) ([][]any, error) {
		sql, err := e.dialect.Dump(p.Select)
		if err != nil {
			return nil, err
		}
		rows, err := e.store.Fetch(ctx, sql, e.maxRows)
		if err != nil {
			e.logger.Error("statement failed", "plan", plan.ID, "sql", sql, "error", err)
			return nil, err
		}
		statements++
		e.logger.Debug("statement executed", "plan", plan.ID, "rows", len(rows))
		return rows, nil
	}
	p, err := product.Assemble(plan.Title, plan.Segment, plan.Frame, fetch)
	if err != nil {
		return nil, err
	}
	e.logger.Info("plan executed", "plan", plan.ID, "statements", statements, "rows", len(p.Rows))
	return p, nil
}

// Produce translates and executes a query.
func (e *Engine) Produce(ctx context.Context, query string, params map[string]any) (*product.Product, error) {
	plan, err := e.Translate(query, params)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, plan)
}
