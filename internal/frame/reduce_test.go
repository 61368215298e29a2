package frame_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheusresearch/htsql-sub004/internal/binding"
	"github.com/prometheusresearch/htsql-sub004/internal/dialect"
	"github.com/prometheusresearch/htsql-sub004/internal/flow"
	"github.com/prometheusresearch/htsql-sub004/internal/frame"
	"github.com/prometheusresearch/htsql-sub004/internal/syntax"
	"github.com/prometheusresearch/htsql-sub004/internal/term"
	"github.com/prometheusresearch/htsql-sub004/internal/testutil"
)

var windowClip = term.ClipPolicy{Plain: term.ClipWindow, WithOffset: term.ClipWindow, Partitioned: term.ClipWindow}

func reduce(t *testing.T, d *dialect.Dialect, clip term.ClipPolicy, query string) *frame.Plan {
	t.Helper()
	cat := testutil.SchoolCatalog(t)
	q, err := syntax.Parse(query)
	require.NoError(t, err)
	qb, err := binding.Bind(q, &binding.Env{Catalog: cat, Registry: d.Registry()})
	require.NoError(t, err)
	fq, err := flow.Encode(cat, qb)
	require.NoError(t, err)
	st, err := term.Compile(fq.Segment, term.Options{Catalog: cat, Clip: clip})
	require.NoError(t, err)
	p, err := frame.Reduce(st)
	require.NoError(t, err)
	return p
}

// fetch runs the statement of p and renders every value as text, "NULL"
// for NULL.
func fetch(t *testing.T, db *sql.DB, d *dialect.Dialect, p *frame.Plan) [][]string {
	t.Helper()
	text, err := d.Dump(p.Select)
	require.NoError(t, err)
	rows, err := db.Query(text)
	require.NoError(t, err, text)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	var out [][]string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = "NULL"
			if v.Valid {
				row[i] = v.String
			}
		}
		out = append(out, row)
	}
	require.NoError(t, rows.Err())
	return out
}

func sqlite(t *testing.T) (*dialect.Dialect, *sql.DB) {
	t.Helper()
	return dialect.MustLookup("sqlite"), testutil.SchoolDB(t)
}

func TestReduce_Layout(t *testing.T) {
	d := dialect.MustLookup("sqlite")
	p := reduce(t, d, d.Clip, "/school{code, count(department)}")

	assert.Equal(t, 0, p.ParentKeyWidth)
	assert.Equal(t, 0, p.KeyWidth)
	assert.Equal(t, []int{1, 1}, p.Layout)
	assert.Len(t, p.Select.Columns, 2)
	assert.Empty(t, p.Nested)
}

func TestReduce_CountPerSchool(t *testing.T) {
	d, db := sqlite(t)
	p := reduce(t, d, d.Clip, "/school{code, count(department)}")

	assert.Equal(t, [][]string{
		{"art", "0"},
		{"bus", "1"},
		{"edu", "0"},
		{"eng", "3"},
		{"la", "2"},
		{"ns", "4"},
	}, fetch(t, db, d, p))
}

func TestReduce_Filter(t *testing.T) {
	d, db := sqlite(t)
	p := reduce(t, d, d.Clip, "/school?campus='old'{code}")

	assert.Equal(t, [][]string{{"art"}, {"la"}, {"ns"}}, fetch(t, db, d, p))
}

func TestReduce_FilterOnAggregate(t *testing.T) {
	d, db := sqlite(t)
	p := reduce(t, d, d.Clip, "/school?count(department)>2{code}")

	assert.Equal(t, [][]string{{"eng"}, {"ns"}}, fetch(t, db, d, p))
}

func TestReduce_NullSemantics(t *testing.T) {
	d, db := sqlite(t)
	p := reduce(t, d, d.Clip, "/sample?id=1{x=x, x==x, x!==x, x!=x}")

	assert.Equal(t, [][]string{{"NULL", "1", "0", "NULL"}}, fetch(t, db, d, p))
}

func TestReduce_LinkedColumn(t *testing.T) {
	d, db := sqlite(t)
	p := reduce(t, d, d.Clip, "/department?code='lang'|code='acc'{code, school.name}")

	assert.Equal(t, [][]string{
		{"acc", "School of Business"},
		{"lang", "NULL"},
	}, fetch(t, db, d, p))
}

func TestReduce_Quotient(t *testing.T) {
	d, db := sqlite(t)
	p := reduce(t, d, d.Clip, "/school^campus{campus, count(school)}")

	assert.Equal(t, [][]string{
		{"NULL", "1"},
		{"north", "1"},
		{"old", "3"},
		{"south", "1"},
	}, fetch(t, db, d, p))
}

func TestReduce_NestedSegment(t *testing.T) {
	d, db := sqlite(t)
	p := reduce(t, d, d.Clip, "/school?code='eng'|code='la'{code, /department{code}}")

	assert.Equal(t, 1, p.KeyWidth)
	assert.Equal(t, []int{1}, p.Layout)
	require.Len(t, p.Nested, 1)
	nested := p.Nested[0]
	assert.Equal(t, 1, nested.ParentKeyWidth)
	assert.Equal(t, []int{1}, nested.Layout)

	assert.Equal(t, [][]string{
		{"eng", "be"},
		{"eng", "comp"},
		{"eng", "ee"},
		{"la", "arthis"},
		{"la", "hist"},
	}, fetch(t, db, d, nested))
}

func TestReduce_PagingDeterminism(t *testing.T) {
	queries := []string{
		"/school.limit(2){code}",
		"/school.limit(2, 1){code}",
		"/school.offset(4){code}",
		"/department.sort(school_code-).limit(3, 2){code, school_code}",
		"/school.limit(3){code, count(department)}",
		"/course.sort(credits+).limit(4, 1){department_code, no}",
	}
	d, db := sqlite(t)
	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			native := fetch(t, db, d, reduce(t, d, d.Clip, query))
			window := fetch(t, db, d, reduce(t, d, windowClip, query))
			assert.NotEmpty(t, native)
			assert.Equal(t, native, window)
		})
	}
}

func TestReduce_PartitionedClip(t *testing.T) {
	d, db := sqlite(t)
	p := reduce(t, d, d.Clip, "/school{code, /department.limit(1){code}}")
	require.Len(t, p.Nested, 1)

	rows := fetch(t, db, d, p.Nested[0])
	assert.Equal(t, [][]string{
		{"bus", "acc"},
		{"eng", "be"},
		{"la", "arthis"},
		{"ns", "astro"},
	}, rows)
}

func TestReduce_DumpsForEveryDialect(t *testing.T) {
	queries := []string{
		"/school{code, count(department)}",
		"/school.limit(2, 1){code}",
		"/school{code, /department.limit(1){code}}",
		"/school^campus{campus, count(school)}",
	}
	for _, name := range dialect.Names() {
		d := dialect.MustLookup(name)
		for _, query := range queries {
			t.Run(name+query, func(t *testing.T) {
				stmts, err := d.DumpPlan(reduce(t, d, d.Clip, query))
				require.NoError(t, err)
				for _, s := range stmts {
					assert.Contains(t, s, "SELECT")
				}
			})
		}
	}
}

// assigns reports whether a column of s sets a session variable.
func assigns(s *frame.Select) bool {
	for _, c := range s.Columns {
		if _, ok := c.Phrase.(*frame.AssignPhrase); ok {
			return true
		}
	}
	return false
}

// counters collects the statements of s, at any depth, that number rows
// with session variables.
func counters(s *frame.Select) []*frame.Select {
	var out []*frame.Select
	if assigns(s) && len(s.From) > 1 {
		out = append(out, s)
	}
	for _, a := range s.From {
		if sub, ok := a.Frame.(*frame.Select); ok {
			out = append(out, counters(sub)...)
		}
	}
	return out
}

func TestReduce_SessionCounterSortsBelowAssignments(t *testing.T) {
	d := dialect.MustLookup("mysql")
	p := reduce(t, d, d.Clip, "/school{code, /department.limit(1){code}}")
	require.Len(t, p.Nested, 1)

	found := counters(p.Nested[0].Select)
	require.Len(t, found, 1)
	counted := found[0]
	assert.Empty(t, counted.OrderBy)
	assert.Nil(t, counted.Limit)

	sorted, ok := counted.From[0].Frame.(*frame.Select)
	require.True(t, ok)
	assert.NotEmpty(t, sorted.OrderBy)
	assert.False(t, assigns(sorted))
	require.NotNil(t, sorted.Offset)
	assert.Equal(t, int64(0), *sorted.Offset)

	vars, ok := counted.From[1].Frame.(*frame.Select)
	require.True(t, ok)
	assert.True(t, assigns(vars))

	stmts, err := d.DumpPlan(p)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "LIMIT 0, 18446744073709551615")
}
