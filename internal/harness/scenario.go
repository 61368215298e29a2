package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/prometheusresearch/htsql-sub004/internal/dialect"
)

// Scenario defines a regression scenario: a database, a catalog and a list
// of queries with their expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is a YAML or CUE catalog file. When empty, the catalog is
	// introspected from the database built by Fixtures.
	// Paths are relative to the scenario file location.
	Catalog string `yaml:"catalog,omitempty"`

	// Fixtures are SQL scripts run, in order, against a fresh in-memory
	// SQLite database. Without fixtures queries are only translated.
	Fixtures []string `yaml:"fixtures,omitempty"`

	// Dialects lists the dialects every query is translated into.
	// Defaults to sqlite. Queries are executed only for sqlite.
	Dialects []string `yaml:"dialects,omitempty"`

	// PlanID is the fixed plan ID for deterministic logs.
	// If empty, defaults to "test-plan".
	PlanID string `yaml:"plan_id,omitempty"`

	// Queries are run in order.
	Queries []QueryStep `yaml:"queries"`
}

// QueryStep is one query with its parameters and expectations.
type QueryStep struct {
	Query string `yaml:"query"`

	// Params supply the values of $name references.
	Params map[string]any `yaml:"params,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the query only has to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a query.
type ExpectClause struct {
	// Error is the expected error kind (e.g., "BIND_ERROR").
	// When set, the query must fail in every dialect.
	Error string `yaml:"error,omitempty"`

	// Message is a substring of the expected error message.
	Message string `yaml:"message,omitempty"`

	// Rows are the expected rows, values written as text and NULL as
	// null; a nested segment is a list of rows.
	Rows [][]any `yaml:"rows,omitempty"`

	// Count is the expected number of rows.
	Count *int `yaml:"count,omitempty"`

	// SQL maps a dialect to substrings its first statement must contain.
	SQL map[string][]string `yaml:"sql,omitempty"`
}

// Execution dialect; the fixtures database is SQLite.
const executionDialect = "sqlite"

// LoadScenario reads and parses a scenario YAML file.
// Catalog and fixture paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "querys:" vs "queries:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(base, scenario.Catalog)
	}
	for i, fixture := range scenario.Fixtures {
		if !filepath.IsAbs(fixture) {
			scenario.Fixtures[i] = filepath.Join(base, fixture)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Catalog == "" && len(s.Fixtures) == 0 {
		return fmt.Errorf("a catalog or fixtures are required")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}
	for _, name := range s.Dialects {
		if _, err := dialect.Lookup(name); err != nil {
			return err
		}
	}
	for i, q := range s.Queries {
		if q.Query == "" {
			return fmt.Errorf("query %d: query is required", i)
		}
		if q.Expect == nil {
			continue
		}
		if q.Expect.Error != "" && (q.Expect.Rows != nil || q.Expect.Count != nil) {
			return fmt.Errorf("query %d: an expected error excludes expected rows", i)
		}
		if (q.Expect.Rows != nil || q.Expect.Count != nil) && len(s.Fixtures) == 0 {
			return fmt.Errorf("query %d: expected rows need fixtures", i)
		}
	}
	return nil
}

// dialects returns the dialects of the scenario, the default applied.
func (s *Scenario) dialects() []string {
	if len(s.Dialects) == 0 {
		return []string{executionDialect}
	}
	return s.Dialects
}

// planID returns the fixed plan ID, the default applied.
func (s *Scenario) planID() string {
	if s.PlanID == "" {
		return "test-plan"
	}
	return s.PlanID
}
