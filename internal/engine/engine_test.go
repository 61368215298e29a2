package engine

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/dialect"
	"github.com/prometheusresearch/htsql-sub004/internal/memo"
	"github.com/prometheusresearch/htsql-sub004/internal/product"
	"github.com/prometheusresearch/htsql-sub004/internal/store"
	"github.com/prometheusresearch/htsql-sub004/internal/term"
	"github.com/prometheusresearch/htsql-sub004/internal/testutil"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(testutil.SchoolDB(t), "sqlite")
	require.NoError(t, err)
	return s
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithStore(setupTestStore(t)), WithIDGenerator(NewFixedGenerator("plan-1", "plan-2"))}, opts...)
	return New(testutil.SchoolCatalog(t), dialect.MustLookup("sqlite"), opts...)
}

func produce(t *testing.T, e *Engine, query string) *product.Product {
	t.Helper()
	p, err := e.Produce(context.Background(), query, nil)
	require.NoError(t, err, query)
	return p
}

func TestTranslate_Plan(t *testing.T) {
	e := newTestEngine(t)

	plan, err := e.Translate("/school{code, /department{code}}", nil)
	require.NoError(t, err)
	assert.Equal(t, "plan-1", plan.ID)
	assert.Equal(t, "sqlite", plan.Dialect)
	assert.Equal(t, "school", plan.Title)
	assert.Len(t, plan.SQL, 2)
	require.Len(t, plan.Frame.Nested, 1)

	plan, err = e.Translate("/school{code}/:csv", nil)
	require.NoError(t, err)
	assert.Equal(t, "plan-2", plan.ID)
	assert.Equal(t, "csv", plan.Format)
}

func TestTranslate_Errors(t *testing.T) {
	e := newTestEngine(t)
	cases := []struct {
		query string
		is    func(error) bool
	}{
		{"/school{code", diag.IsParseError},
		{"/school?code='art", diag.IsScanError},
		{"/schol", diag.IsBindError},
		{"/school{code, department.code}", diag.IsBindError},
		{"/school{count(department.limit(1))}", diag.IsCompileError},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			_, err := e.Translate(tc.query, nil)
			require.Error(t, err)
			assert.True(t, tc.is(err), "got %v", err)
		})
	}
}

func TestProduce_Aggregate(t *testing.T) {
	p := produce(t, newTestEngine(t), "/school{code, count(department)}")
	assert.Equal(t, "school", p.Title)
	assert.Equal(t, []product.Record{
		{"art", int64(0)},
		{"bus", int64(1)},
		{"edu", int64(0)},
		{"eng", int64(3)},
		{"la", int64(2)},
		{"ns", int64(4)},
	}, p.Rows)
}

func TestProduce_Filter(t *testing.T) {
	p := produce(t, newTestEngine(t), "/school?campus='old'{code}")
	assert.Equal(t, []product.Record{{"art"}, {"la"}, {"ns"}}, p.Rows)
}

func TestProduce_Parameters(t *testing.T) {
	e := newTestEngine(t)
	p, err := e.Produce(context.Background(), "/school?campus=$c{code}", map[string]any{"c": "old"})
	require.NoError(t, err)
	assert.Equal(t, []product.Record{{"art"}, {"la"}, {"ns"}}, p.Rows)
}

func TestProduce_Quotient(t *testing.T) {
	p := produce(t, newTestEngine(t), "/school^campus{campus, count(school)}")
	assert.Equal(t, []product.Record{
		{nil, int64(1)},
		{"north", int64(1)},
		{"old", int64(3)},
		{"south", int64(1)},
	}, p.Rows)
}

func TestProduce_NullSemantics(t *testing.T) {
	p := produce(t, newTestEngine(t), "/sample?id=1{x=x, x==x, x!==x, x!=x}")
	assert.Equal(t, []product.Record{{nil, true, false, nil}}, p.Rows)
}

func TestProduce_Nested(t *testing.T) {
	p := produce(t, newTestEngine(t), "/school?code='eng'|code='la'{code, /department{code}}")
	assert.Equal(t, []product.Record{
		{"eng", []product.Record{{"be"}, {"comp"}, {"ee"}}},
		{"la", []product.Record{{"arthis"}, {"hist"}}},
	}, p.Rows)
}

func TestProduce_PagingAgreesAcrossClips(t *testing.T) {
	windowClip := term.ClipPolicy{Plain: term.ClipWindow, WithOffset: term.ClipWindow, Partitioned: term.ClipWindow}
	queries := []string{
		"/school.limit(2)",
		"/school.limit(2, 3)",
		"/department.sort(name-).limit(3)",
		"/school{code, /department.limit(1){code}}",
	}
	native := newTestEngine(t)
	window := newTestEngine(t, WithClip(windowClip))
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			assert.Equal(t, produce(t, native, q).Rows, produce(t, window, q).Rows)
		})
	}
}

func TestExecute_MaxRows(t *testing.T) {
	e := newTestEngine(t, WithMaxRows(3))
	_, err := e.Produce(context.Background(), "/school", nil)
	require.Error(t, err)
	assert.True(t, diag.IsDBError(err))

	p := produce(t, e, "/school.limit(3)")
	assert.Len(t, p.Rows, 3)
}

func TestExecute_WithoutStore(t *testing.T) {
	e := New(testutil.SchoolCatalog(t), dialect.MustLookup("sqlite"))
	plan, err := e.Translate("/school", nil)
	require.NoError(t, err)
	_, err = e.Execute(context.Background(), plan)
	require.Error(t, err)
}

func TestExecute_DialectMismatch(t *testing.T) {
	e := New(testutil.SchoolCatalog(t), dialect.MustLookup("pgsql"), WithStore(setupTestStore(t)))
	plan, err := e.Translate("/school", nil)
	require.NoError(t, err)
	_, err = e.Execute(context.Background(), plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pgsql")
}

func TestTranslate_Cache(t *testing.T) {
	c := memo.New()
	e := newTestEngine(t, WithCache(c))

	first, err := e.Translate("/school{code}", nil)
	require.NoError(t, err)
	second, err := e.Translate("/school{code}", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, first.SQL, second.SQL)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = e.Translate("/school?code=$c", map[string]any{"c": "art"})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestEngine_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newTestEngine(t, WithLogger(logger))

	produce(t, e, "/school{code}")
	out := buf.String()
	assert.Contains(t, out, "msg=\"query parsed\"")
	assert.Contains(t, out, "msg=\"sql dumped\"")
	assert.Contains(t, out, "msg=\"plan executed\" plan=plan-1")
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Equal(t, "plan", NewFixedGenerator().Generate())
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
