package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	schoolCatalog  = "../testutil/testdata/school.yaml"
	schoolFixtures = "../testutil/testdata/school.sql"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ResolvesPaths(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/school.yaml")
	require.NoError(t, err)
	assert.Equal(t, "school-basics", s.Name)
	assert.Equal(t, filepath.Clean(schoolCatalog), filepath.Clean(s.Catalog))
	require.Len(t, s.Fixtures, 1)
	assert.Equal(t, filepath.Clean(schoolFixtures), filepath.Clean(s.Fixtures[0]))
	assert.Equal(t, []string{"sqlite", "pgsql", "mysql", "mssql"}, s.dialects())
	assert.Equal(t, "test-plan", s.planID())
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\ncatalog: c.yaml\nqueries:\n  - query: /school\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\ncatalog: c.yaml\nqueries:\n  - query: /school\n",
			wantErr: "description is required",
		},
		{
			name:    "no catalog or fixtures",
			content: "name: n\ndescription: d\nqueries:\n  - query: /school\n",
			wantErr: "a catalog or fixtures are required",
		},
		{
			name:    "no queries",
			content: "name: n\ndescription: d\ncatalog: c.yaml\n",
			wantErr: "queries list is required",
		},
		{
			name:    "empty query",
			content: "name: n\ndescription: d\ncatalog: c.yaml\nqueries:\n  - params: {a: 1}\n",
			wantErr: "query is required",
		},
		{
			name:    "unknown dialect",
			content: "name: n\ndescription: d\ncatalog: c.yaml\ndialects: [oracle]\nqueries:\n  - query: /school\n",
			wantErr: "oracle",
		},
		{
			name:    "error with rows",
			content: "name: n\ndescription: d\nfixtures: [f.sql]\nqueries:\n  - query: /school\n    expect:\n      error: BIND_ERROR\n      count: 1\n",
			wantErr: "excludes expected rows",
		},
		{
			name:    "rows without fixtures",
			content: "name: n\ndescription: d\ncatalog: c.yaml\nqueries:\n  - query: /school\n    expect:\n      count: 1\n",
			wantErr: "expected rows need fixtures",
		},
		{
			name:    "unknown field",
			content: "name: n\ndescription: d\ncatalog: c.yaml\nquerys:\n  - query: /school\n",
			wantErr: "failed to parse YAML",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_NotFound(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"school", "introspected"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(s.Queries)*len(s.dialects()))
		})
	}
}

func TestRun_TraceEvents(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/school.yaml")
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)

	first := result.Trace[0]
	assert.Equal(t, 0, first.Step)
	assert.Equal(t, "sqlite", first.Dialect)
	assert.Equal(t, "test-plan", first.Plan)
	require.NotNil(t, first.Product)
	assert.Len(t, first.Product.Rows, 3)

	// Only sqlite executes.
	second := result.Trace[1]
	assert.Equal(t, "pgsql", second.Dialect)
	assert.Nil(t, second.Product)
	assert.NotEmpty(t, second.SQL)

	last := result.Trace[len(result.Trace)-1]
	assert.True(t, last.Failed())
	assert.Equal(t, "BIND_ERROR", last.Error)
}

func TestRun_ExpectationFailures(t *testing.T) {
	s := &Scenario{
		Name:        "failing",
		Description: "every expectation is wrong",
		Catalog:     schoolCatalog,
		Fixtures:    []string{schoolFixtures},
		Queries: []QueryStep{
			{Query: "/school?campus='old'{code}", Expect: &ExpectClause{Rows: [][]any{{"art"}}}},
			{Query: "/school{code}", Expect: &ExpectClause{Count: intPtr(2)}},
			{Query: "/school{code}", Expect: &ExpectClause{Error: "BIND_ERROR"}},
			{Query: "/schol", Expect: &ExpectClause{Error: "PARSE_ERROR"}},
			{Query: "/schol"},
			{Query: "/school.limit(1)", Expect: &ExpectClause{SQL: map[string][]string{"sqlite": {"TOP 1"}}}},
		},
	}
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "rows: expected")
	assert.Contains(t, result.Errors[1], "count: expected 2, got 6")
	assert.Contains(t, result.Errors[2], "error: expected BIND_ERROR, got success")
	assert.Contains(t, result.Errors[3], "error: expected PARSE_ERROR")
	assert.Contains(t, result.Errors[4], "unexpected")
	assert.Contains(t, result.Errors[5], `statement containing "TOP 1"`)
}

func TestRun_MissingFixture(t *testing.T) {
	s := &Scenario{
		Name:        "broken",
		Description: "fixture file is missing",
		Catalog:     schoolCatalog,
		Fixtures:    []string{"testdata/missing.sql"},
		Queries:     []QueryStep{{Query: "/school"}},
	}
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read fixture")
}

func TestRun_TranslateOnly(t *testing.T) {
	s := &Scenario{
		Name:        "translate",
		Description: "no database, only translation",
		Catalog:     schoolCatalog,
		Dialects:    []string{"sqlite", "mysql"},
		PlanID:      "fixed",
		Queries:     []QueryStep{{Query: "/school{code}"}},
	}
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	for _, event := range result.Trace {
		assert.Equal(t, "fixed", event.Plan)
		assert.Nil(t, event.Product)
		assert.Len(t, event.SQL, 1)
	}
}

func TestRunWithGolden(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/golden.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertionError(t *testing.T) {
	err := &AssertionError{Type: "count", Expected: "2", Actual: "3"}
	assert.Equal(t, "count: expected 2, got 3", err.Error())
}

func intPtr(n int) *int { return &n }
