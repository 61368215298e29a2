package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/dialect"
	"github.com/prometheusresearch/htsql-sub004/internal/engine"
	"github.com/prometheusresearch/htsql-sub004/internal/store"
)

// Harness runs the queries of one scenario.
type Harness struct {
	store   *store.Store // nil when the scenario has no fixtures
	catalog *catalog.Catalog
	engines []*engine.Engine
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, and
// plans get the fixed ID of the scenario.
//
// Execution flow:
// 1. Create a fresh in-memory database and run the fixtures
// 2. Load the catalog, or introspect it from the database
// 3. Translate every query into every dialect, executing it for sqlite
// 4. Check the expect clauses
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a context for the database work.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	if len(scenario.Fixtures) > 0 {
		st, err := store.Open(ctx, "sqlite", ":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		for _, path := range scenario.Fixtures {
			script, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read fixture: %w", err)
			}
			if err := st.Exec(ctx, string(script)); err != nil {
				return nil, fmt.Errorf("failed to load fixture %s: %w", path, err)
			}
		}
		h.store = st
	}

	var err error
	if scenario.Catalog != "" {
		h.catalog, err = catalog.Load(scenario.Catalog)
	} else {
		h.catalog, err = h.store.Introspect(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	ids := engine.NewFixedGenerator(scenario.planID())
	for _, name := range scenario.dialects() {
		d, err := dialect.Lookup(name)
		if err != nil {
			return nil, err
		}
		opts := []engine.Option{engine.WithLogger(h.logger), engine.WithIDGenerator(ids)}
		if h.store != nil && d.Name == executionDialect {
			opts = append(opts, engine.WithStore(h.store))
		}
		h.engines = append(h.engines, engine.New(h.catalog, d, opts...))
	}

	result := NewResult()
	for i, step := range scenario.Queries {
		for _, e := range h.engines {
			event := h.runQuery(ctx, e, step)
			event.Step = i
			result.AddTrace(event)
			for _, msg := range checkExpect(step, event) {
				result.AddError(fmt.Sprintf("query %d %s [%s]: %s", i+1, step.Query, event.Dialect, msg))
			}
		}
	}
	return result, nil
}

// runQuery translates a query and, when the engine has a database,
// executes the plan. Pipeline errors are recorded in the event.
func (h *Harness) runQuery(ctx context.Context, e *engine.Engine, step QueryStep) TraceEvent {
	event := TraceEvent{Query: step.Query, Dialect: e.Dialect().Name}
	fail := func(err error) TraceEvent {
		event.Error = string(diag.KindOf(err))
		if event.Error == "" {
			event.Error = "ERROR"
		}
		event.Message = err.Error()
		return event
	}

	plan, err := e.Translate(step.Query, step.Params)
	if err != nil {
		return fail(err)
	}
	event.Plan = plan.ID
	event.SQL = plan.SQL

	if h.store == nil || e.Dialect().Name != executionDialect {
		return event
	}
	p, err := e.Execute(ctx, plan)
	if err != nil {
		return fail(err)
	}
	event.Product = p
	return event
}
