package product

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/flow"
	"github.com/prometheusresearch/htsql-sub004/internal/frame"
)

func decimal(t *testing.T, s string) *apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUnmarshal(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		dom  domain.Domain
		want any
	}{
		{"null", nil, domain.Integer{}, nil},
		{"text", "art", domain.Text{}, "art"},
		{"text bytes", []byte("art"), domain.Text{}, "art"},
		{"enum", "old", domain.Enum{Labels: []string{"old", "north"}}, "old"},
		{"bool", true, domain.Boolean{}, true},
		{"bool one", int64(1), domain.Boolean{}, true},
		{"bool zero", int64(0), domain.Boolean{}, false},
		{"bool text", "t", domain.Boolean{}, true},
		{"integer", int64(42), domain.Integer{}, int64(42)},
		{"integer text", []byte("42"), domain.Integer{}, int64(42)},
		{"integer decimal text", "12.000", domain.Integer{}, int64(12)},
		{"integer float", float64(3), domain.Integer{}, int64(3)},
		{"float", 0.5, domain.Float{}, 0.5},
		{"float integer", int64(2), domain.Float{}, float64(2)},
		{"date", "2010-04-01", domain.Date{}, date(2010, time.April, 1)},
		{"date timestamp", "2010-04-01 00:00:00", domain.Date{}, date(2010, time.April, 1)},
		{"date time", time.Date(2010, time.April, 1, 13, 0, 0, 0, time.UTC), domain.Date{}, date(2010, time.April, 1)},
		{"time", "13:45:00", domain.Time{}, time.Date(0, 1, 1, 13, 45, 0, 0, time.UTC)},
		{"datetime", "2010-04-01 13:45:00", domain.DateTime{}, time.Date(2010, time.April, 1, 13, 45, 0, 0, time.UTC)},
		{"identity", []any{"eng", []byte("uci")}, domain.Identity{Fields: []domain.Domain{domain.Text{}, domain.Text{}}}, []any{"eng", "uci"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Unmarshal(tc.raw, tc.dom)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUnmarshal_Decimal(t *testing.T) {
	cases := []struct {
		raw  any
		want string
	}{
		{"12.50", "12.50"},
		{[]byte("-0.001"), "-0.001"},
		{12.5, "12.5"},
		{int64(12), "12"},
	}
	for _, tc := range cases {
		got, err := Unmarshal(tc.raw, domain.Decimal{})
		require.NoError(t, err)
		d, ok := got.(*apd.Decimal)
		require.True(t, ok, "%T", got)
		assert.Equal(t, tc.want, d.Text('f'))
	}
}

func TestUnmarshal_ShapeMismatch(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		dom  domain.Domain
	}{
		{"boolean five", int64(5), domain.Boolean{}},
		{"boolean word", "yes", domain.Boolean{}},
		{"boolean float", 1.0, domain.Boolean{}},
		{"integer fraction", 1.5, domain.Integer{}},
		{"integer word", "many", domain.Integer{}},
		{"integer overflow", uint64(math.MaxUint64), domain.Integer{}},
		{"float word", "fast", domain.Float{}},
		{"decimal nan", math.NaN(), domain.Decimal{}},
		{"decimal word", "ten", domain.Decimal{}},
		{"text number", int64(1), domain.Text{}},
		{"enum label", "west", domain.Enum{Labels: []string{"old"}}},
		{"date word", "someday", domain.Date{}},
		{"date number", int64(20100401), domain.Date{}},
		{"identity width", []any{"eng"}, domain.Identity{Fields: []domain.Domain{domain.Text{}, domain.Text{}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unmarshal(tc.raw, tc.dom)
			require.Error(t, err)
			assert.True(t, diag.IsUnmarshalError(err), "got %v", err)
		})
	}
}

func TestUnmarshalColumns_Identity(t *testing.T) {
	id := domain.Identity{Fields: []domain.Domain{
		domain.Identity{Fields: []domain.Domain{domain.Text{}}},
		domain.Integer{},
	}}
	assert.Equal(t, 2, valueWidth(id))

	v, n, err := unmarshalColumns([]any{"comp", int64(230), "extra"}, id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []any{[]any{"comp"}, int64(230)}, v)

	v, n, err = unmarshalColumns([]any{nil, nil}, id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Nil(t, v)
}

// segment builds a segment with literal elements of the given titles and
// domains; nested marks the titles that are nested segments.
func segment(titles []string, doms []domain.Domain, nested map[string]*flow.Segment) *flow.Segment {
	seg := &flow.Segment{}
	for i, title := range titles {
		if n, ok := nested[title]; ok {
			seg.Elements = append(seg.Elements, flow.Element{Title: title, Segment: n})
			continue
		}
		seg.Elements = append(seg.Elements, flow.Element{Title: title, Code: flow.NewLiteral(nil, doms[i])})
	}
	return seg
}

func TestAssemble_Nested(t *testing.T) {
	inner := segment([]string{"code"}, []domain.Domain{domain.Text{}}, nil)
	outer := segment([]string{"code", "department"}, []domain.Domain{domain.Text{}, nil},
		map[string]*flow.Segment{"department": inner})

	innerPlan := &frame.Plan{Select: &frame.Select{}, ParentKeyWidth: 1, Layout: []int{1}}
	outerPlan := &frame.Plan{Select: &frame.Select{}, KeyWidth: 1, Layout: []int{1}, Nested: []*frame.Plan{innerPlan}}
	rows := map[*frame.Plan][][]any{
		outerPlan: {
			{"art", "art"},
			{"eng", []byte("eng")},
		},
		innerPlan: {
			{"eng", "be"},
			{"eng", "comp"},
		},
	}
	var order []*frame.Plan
	fetch := func(p *frame.Plan) ([][]any, error) {
		order = append(order, p)
		return rows[p], nil
	}

	p, err := Assemble("school", outer, outerPlan, fetch)
	require.NoError(t, err)
	assert.Equal(t, []*frame.Plan{outerPlan, innerPlan}, order)
	require.Len(t, p.Rows, 2)
	assert.Equal(t, Record{"art", []Record{}}, p.Rows[0])
	assert.Equal(t, Record{"eng", []Record{{"be"}, {"comp"}}}, p.Rows[1])
	require.Len(t, p.Fields(), 2)
	assert.Equal(t, domain.ListKind, p.Fields()[1].Domain.Kind())
}

func TestAssemble_FetchesInPlanOrder(t *testing.T) {
	course := segment([]string{"no"}, []domain.Domain{domain.Integer{}}, nil)
	department := segment([]string{"code", "course"}, []domain.Domain{domain.Text{}, nil},
		map[string]*flow.Segment{"course": course})
	program := segment([]string{"code"}, []domain.Domain{domain.Text{}}, nil)
	school := segment([]string{"code", "department", "program"}, []domain.Domain{domain.Text{}, nil, nil},
		map[string]*flow.Segment{"department": department, "program": program})

	coursePlan := &frame.Plan{Select: &frame.Select{}, ParentKeyWidth: 1, Layout: []int{1}}
	departmentPlan := &frame.Plan{Select: &frame.Select{}, ParentKeyWidth: 1, KeyWidth: 1, Layout: []int{1},
		Nested: []*frame.Plan{coursePlan}}
	programPlan := &frame.Plan{Select: &frame.Select{}, ParentKeyWidth: 1, Layout: []int{1}}
	schoolPlan := &frame.Plan{Select: &frame.Select{}, KeyWidth: 1, Layout: []int{1},
		Nested: []*frame.Plan{departmentPlan, programPlan}}

	var order []*frame.Plan
	fetch := func(p *frame.Plan) ([][]any, error) {
		order = append(order, p)
		return nil, nil
	}
	p, err := Assemble("school", school, schoolPlan, fetch)
	require.NoError(t, err)
	assert.Empty(t, p.Rows)
	assert.Equal(t, []*frame.Plan{schoolPlan, departmentPlan, coursePlan, programPlan}, order)
}

func TestAssemble_Errors(t *testing.T) {
	seg := segment([]string{"flag"}, []domain.Domain{domain.Boolean{}}, nil)
	plan := &frame.Plan{Select: &frame.Select{}, Layout: []int{1}}

	_, err := Assemble("", seg, plan, func(*frame.Plan) ([][]any, error) {
		return [][]any{{int64(5)}}, nil
	})
	assert.True(t, diag.IsUnmarshalError(err))

	_, err = Assemble("", seg, plan, func(*frame.Plan) ([][]any, error) {
		return [][]any{{int64(1), int64(2)}}, nil
	})
	assert.True(t, diag.IsUnmarshalError(err))

	boom := errors.New("boom")
	_, err = Assemble("", seg, plan, func(*frame.Plan) ([][]any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func nestedProduct(t *testing.T) *Product {
	dept := domain.List{Item: domain.Record{Fields: []domain.Field{{Title: "code", Domain: domain.Text{}}}}}
	return &Product{
		Title: "school",
		Domain: domain.List{Item: domain.Record{Fields: []domain.Field{
			{Title: "code", Domain: domain.Text{}},
			{Title: "count", Domain: domain.Integer{}},
			{Title: "price", Domain: domain.Decimal{}},
			{Title: "born", Domain: domain.Date{}},
			{Title: "flag", Domain: domain.Boolean{}},
			{Title: "department", Domain: dept},
		}}},
		Rows: []Record{
			{"art", int64(0), decimal(t, "12.50"), date(2010, time.April, 1), true, []Record{{"acc"}, {"a<b&c"}}},
			{"cafe\u0301", nil, nil, nil, nil, []Record{}},
		},
	}
}

func flatProduct(t *testing.T) *Product {
	return &Product{
		Title: "school",
		Domain: domain.List{Item: domain.Record{Fields: []domain.Field{
			{Title: "code", Domain: domain.Text{}},
			{Title: "count", Domain: domain.Integer{}},
			{Title: "price", Domain: domain.Decimal{}},
		}}},
		Rows: []Record{
			{"art", int64(0), decimal(t, "12.50")},
			{"café", int64(12), nil},
			{"bus", nil, decimal(t, "3.25")},
		},
	}
}

func TestWriters_Golden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nestedProduct(t)))
	g.Assert(t, "nested.json", buf.Bytes())

	buf.Reset()
	require.NoError(t, WriteText(&buf, flatProduct(t)))
	g.Assert(t, "flat.txt", buf.Bytes())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, flatProduct(t)))
	g.Assert(t, "flat.csv", buf.Bytes())
}

func TestWriteCSV_RejectsNested(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, nestedProduct(t))
	require.Error(t, err)
	assert.True(t, diag.IsSerializeError(err))
}

func TestWriteJSON_EmptyTitle(t *testing.T) {
	p := &Product{Domain: domain.List{Item: domain.Record{}}}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, p))
	assert.Equal(t, "{\n  \"data\": []\n}\n", buf.String())
}

func TestDisplayWidth(t *testing.T) {
	assert.Equal(t, 3, displayWidth("abc"))
	assert.Equal(t, 4, displayWidth("日本"))
}
