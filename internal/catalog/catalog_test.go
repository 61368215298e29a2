package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

func loadSchool(t *testing.T) *Catalog {
	t.Helper()
	cat, err := Load("testdata/school.yaml")
	require.NoError(t, err)
	return cat
}

func TestLoad_YAML(t *testing.T) {
	cat := loadSchool(t)

	school, ok := cat.LookupTable("ad", "school")
	require.True(t, ok)
	assert.Equal(t, "ad.school", cat.QualifiedName(school))

	campus, ok := cat.LookupColumn(school, "campus")
	require.True(t, ok)
	assert.True(t, cat.Column(campus).Nullable)
	assert.Equal(t, domain.Enum{Labels: []string{"old", "north", "south"}}, cat.Column(campus).Domain)

	code, _ := cat.LookupColumn(school, "code")
	assert.Equal(t, []ColumnID{code}, cat.Identity(school))
	assert.Len(t, cat.Table(school).ReferringKeys, 3)
}

func TestLoad_CUE(t *testing.T) {
	cat, err := Load("testdata/school.cue")
	require.NoError(t, err)

	school, ok := cat.LookupTable("ad", "school")
	require.True(t, ok)
	name, ok := cat.LookupColumn(school, "name")
	require.True(t, ok)
	assert.Equal(t, domain.Text{}, cat.Column(name).Domain, "type defaults to text")

	dept, _ := cat.LookupTable("ad", "department")
	require.Len(t, cat.Table(dept).ForeignKeys, 1)
	assert.True(t, cat.ForeignKey(cat.Table(dept).ForeignKeys[0]).Partial)
}

func TestLoad_CUERejectsUnknownField(t *testing.T) {
	_, err := Load("testdata/invalid.cue")
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), "colums")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load("testdata/school.json")
	assert.Error(t, err)
}

func TestBuilder_Invariants(t *testing.T) {
	t.Run("duplicate column", func(t *testing.T) {
		b := NewBuilder()
		tid := b.AddTable(b.AddSchema("s"), "t")
		b.AddColumn(tid, "a", domain.Integer{}, false, false)
		b.AddColumn(tid, "a", domain.Text{}, false, false)
		_, err := b.Build()
		assert.ErrorContains(t, err, "duplicate column t.a")
	})

	t.Run("two primary keys", func(t *testing.T) {
		b := NewBuilder()
		tid := b.AddTable(b.AddSchema("s"), "t")
		a := b.AddColumn(tid, "a", domain.Integer{}, false, false)
		c := b.AddColumn(tid, "c", domain.Integer{}, false, false)
		b.AddUniqueKey(tid, []ColumnID{a}, true)
		b.AddUniqueKey(tid, []ColumnID{c}, true)
		_, err := b.Build()
		assert.ErrorContains(t, err, "more than one primary key")
	})

	t.Run("foreign key arity", func(t *testing.T) {
		b := NewBuilder()
		s := b.AddSchema("s")
		t1 := b.AddTable(s, "t1")
		t2 := b.AddTable(s, "t2")
		a := b.AddColumn(t1, "a", domain.Integer{}, false, false)
		x := b.AddColumn(t2, "x", domain.Integer{}, false, false)
		y := b.AddColumn(t2, "y", domain.Integer{}, false, false)
		b.AddForeignKey(t1, []ColumnID{a}, t2, []ColumnID{x, y})
		_, err := b.Build()
		assert.ErrorContains(t, err, "maps 1 columns to 2")
	})

	t.Run("reuse", func(t *testing.T) {
		b := NewBuilder()
		_, err := b.Build()
		require.NoError(t, err)
		_, err = b.Build()
		assert.Error(t, err)
	})
}

func TestFromDefinition_UnknownTarget(t *testing.T) {
	_, err := FromDefinition(&Definition{Schemas: []SchemaDef{{
		Name: "s",
		Tables: []TableDef{{
			Name:        "t",
			Columns:     []ColumnDef{{Name: "x", Type: "integer"}},
			ForeignKeys: []ForeignKeyDef{{Columns: []string{"x"}, Target: "missing"}},
		}},
	}}})
	assert.ErrorContains(t, err, "unknown table missing")
}

func TestLinks(t *testing.T) {
	cat := loadSchool(t)
	school, _ := cat.LookupTable("ad", "school")
	exchange, _ := cat.LookupTable("ad", "exchange")
	department, _ := cat.LookupTable("ad", "department")

	t.Run("two keys to the same target are ambiguous by table name", func(t *testing.T) {
		joins := cat.LookupLinks(exchange, "school")
		assert.Len(t, joins, 2)
	})

	t.Run("column stems disambiguate", func(t *testing.T) {
		from := cat.LookupLinks(exchange, "from_school")
		to := cat.LookupLinks(exchange, "to_school")
		require.Len(t, from, 1)
		require.Len(t, to, 1)
		assert.NotEqual(t, from[0], to[0])
		assert.Equal(t, school, cat.JoinTo(from[0]))
	})

	t.Run("reverse links", func(t *testing.T) {
		joins := cat.LookupLinks(school, "department")
		require.Len(t, joins, 1)
		assert.True(t, joins[0].Reverse)
		assert.False(t, cat.IsSingular(joins[0]))
		assert.Equal(t, department, cat.JoinTo(joins[0]))

		via := cat.LookupLinks(school, "exchange_via_from_school")
		require.Len(t, via, 1)
	})

	t.Run("forward links are singular", func(t *testing.T) {
		joins := cat.LookupLinks(department, "school")
		require.Len(t, joins, 1)
		assert.True(t, cat.IsSingular(joins[0]))
		from, to := cat.JoinColumns(joins[0])
		assert.Equal(t, "school_code", cat.Column(from[0]).Name)
		assert.Equal(t, "code", cat.Column(to[0]).Name)
	})
}

func TestExport_RoundTrip(t *testing.T) {
	cat := loadSchool(t)
	def := Export(cat)

	rebuilt, err := FromDefinition(def)
	require.NoError(t, err)
	assert.Equal(t, def, Export(rebuilt))
	assert.Equal(t, cat.String(), rebuilt.String())

	data, err := yaml.Marshal(def)
	require.NoError(t, err)
	parsed, err := ParseYAML(data)
	require.NoError(t, err)
	assert.Equal(t, def, Export(parsed))
}
