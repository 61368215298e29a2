package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheusresearch/htsql-sub004/internal/binding"
	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/syntax"
	"github.com/prometheusresearch/htsql-sub004/internal/testutil"
)

func encode(t *testing.T, cat *catalog.Catalog, query string) (*Query, error) {
	t.Helper()
	q, err := syntax.Parse(query)
	require.NoError(t, err)
	qb, err := binding.Bind(q, &binding.Env{Catalog: cat})
	require.NoError(t, err)
	return Encode(cat, qb)
}

func mustEncode(t *testing.T, cat *catalog.Catalog, query string) *Query {
	t.Helper()
	q, err := encode(t, cat, query)
	require.NoError(t, err)
	return q
}

func column(t *testing.T, cat *catalog.Catalog, table, name string) catalog.ColumnID {
	t.Helper()
	id, ok := cat.LookupTable("demo", table)
	require.True(t, ok, "table %s", table)
	col, ok := cat.LookupColumn(id, name)
	require.True(t, ok, "column %s.%s", table, name)
	return col
}

func TestEncode_TableSegment(t *testing.T) {
	cat := testutil.SchoolCatalog(t)
	q := mustEncode(t, cat, "/school{name}")

	table, ok := TableOf(q.Segment.Flow)
	require.True(t, ok)
	assert.Equal(t, "school", cat.Table(table).Name)
	require.Len(t, q.Segment.Elements, 1)
	assert.Equal(t, "name", q.Segment.Elements[0].Title)
	assert.True(t, Same(q.Root, q.Segment.Base))
}

func TestEncode_StructuralKeys(t *testing.T) {
	cat := testutil.SchoolCatalog(t)
	a := mustEncode(t, cat, "/school?campus='old'{name}")
	b := mustEncode(t, cat, "/school?campus='old'{name}")
	c := mustEncode(t, cat, "/school?campus='north'{name}")

	assert.True(t, Same(a.Segment.Flow, b.Segment.Flow))
	assert.Equal(t, a.Segment.Elements[0].Code.Key(), b.Segment.Elements[0].Code.Key())
	assert.False(t, Same(a.Segment.Flow, c.Segment.Flow))
}

func TestOrdering_CompletedByIdentity(t *testing.T) {
	cat := testutil.SchoolCatalog(t)

	q := mustEncode(t, cat, "/school")
	order := Ordering(cat, q.Segment.Flow)
	require.Len(t, order, 1)
	assert.Equal(t, 1, order[0].Dir)
	code := NewColumnUnit(cat, column(t, cat, "school", "code"), q.Segment.Flow)
	assert.Equal(t, code.Key(), order[0].Code.Key())

	q = mustEncode(t, cat, "/school.sort(name-)")
	order = Ordering(cat, q.Segment.Flow)
	require.Len(t, order, 2)
	assert.Equal(t, -1, order[0].Dir)
	assert.Equal(t, 1, order[1].Dir)

	q = mustEncode(t, cat, "/program")
	assert.Len(t, Ordering(cat, q.Segment.Flow), 2)
	assert.Len(t, Identity(cat, q.Segment.Flow), 2)
}

func TestOrdering_DuplicateKeysDropped(t *testing.T) {
	cat := testutil.SchoolCatalog(t)
	q := mustEncode(t, cat, "/school.sort(code-, code+)")
	order := Ordering(cat, q.Segment.Flow)
	require.Len(t, order, 1)
	assert.Equal(t, -1, order[0].Dir)
}

func TestEncode_NestedSegment(t *testing.T) {
	cat := testutil.SchoolCatalog(t)
	q := mustEncode(t, cat, "/school{name, /department{name}}")

	nested := q.Segment.Nested()
	require.Len(t, nested, 1)
	assert.NotNil(t, q.Segment.Elements[1].Segment)
	table, ok := TableOf(nested[0].Flow)
	require.True(t, ok)
	assert.Equal(t, "department", cat.Table(table).Name)
	assert.Len(t, RowKey(cat, nested[0].Flow), 2)
}

func TestEncode_SingularRequired(t *testing.T) {
	cat := testutil.SchoolCatalog(t)
	cases := []struct {
		query string
		want  string
	}{
		{"/school{department.name}", "expected a singular expression"},
		{"/department{count(school)}", "expects a plural argument"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			_, err := encode(t, cat, tc.query)
			require.Error(t, err)
			assert.True(t, diag.IsBindError(err), "got %v", err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestEncode_Quotient(t *testing.T) {
	cat := testutil.SchoolCatalog(t)
	q := mustEncode(t, cat, "/school^campus{campus, count(school)}")

	quotient, ok := Axis(q.Segment.Flow).(*Quotient)
	require.True(t, ok)
	require.Len(t, quotient.Kernels, 1)
	assert.Len(t, Identity(cat, q.Segment.Flow), 1)
}
