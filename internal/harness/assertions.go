package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
	"github.com/prometheusresearch/htsql-sub004/internal/product"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Expectation that failed: error, rows, count, sql
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// checkExpect validates one trace event against the expect clause of its
// step and returns the failures.
func checkExpect(step QueryStep, event TraceEvent) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	expect := step.Expect
	if expect == nil || expect.Error == "" {
		if event.Failed() {
			return []string{fmt.Sprintf("unexpected %s", event.Message)}
		}
	}
	if expect == nil {
		return nil
	}

	if expect.Error != "" {
		add(assertError(expect, event))
		return errs
	}
	if subs, ok := expect.SQL[event.Dialect]; ok {
		add(assertSQL(subs, event))
	}
	if event.Product == nil {
		return errs
	}
	if expect.Count != nil {
		add(assertCount(*expect.Count, event.Product))
	}
	if expect.Rows != nil {
		add(assertRows(expect.Rows, event.Product))
	}
	return errs
}

func assertError(expect *ExpectClause, event TraceEvent) error {
	if !event.Failed() {
		return &AssertionError{Type: "error", Expected: expect.Error, Actual: "success"}
	}
	if event.Error != expect.Error {
		return &AssertionError{Type: "error", Expected: expect.Error, Actual: event.Message}
	}
	if expect.Message != "" && !strings.Contains(event.Message, expect.Message) {
		return &AssertionError{
			Type:     "error",
			Expected: fmt.Sprintf("message containing %q", expect.Message),
			Actual:   fmt.Sprintf("%q", event.Message),
		}
	}
	return nil
}

func assertSQL(subs []string, event TraceEvent) error {
	if len(event.SQL) == 0 {
		return &AssertionError{Type: "sql", Expected: fmt.Sprintf("%q", subs), Actual: "no statements"}
	}
	for _, sub := range subs {
		if !strings.Contains(event.SQL[0], sub) {
			return &AssertionError{
				Type:     "sql",
				Expected: fmt.Sprintf("statement containing %q", sub),
				Actual:   event.SQL[0],
			}
		}
	}
	return nil
}

func assertCount(want int, p *product.Product) error {
	if len(p.Rows) != want {
		return &AssertionError{Type: "count", Expected: fmt.Sprint(want), Actual: fmt.Sprint(len(p.Rows))}
	}
	return nil
}

func assertRows(want [][]any, p *product.Product) error {
	expected := make([]any, len(want))
	for i, row := range want {
		expected[i] = expectedCell(row)
	}
	actual := productCells(p.Rows, p.Fields())
	if !reflect.DeepEqual(expected, actual) {
		return &AssertionError{Type: "rows", Expected: fmt.Sprint(expected), Actual: fmt.Sprint(actual)}
	}
	return nil
}

// expectedCell normalizes a YAML value: scalars become their text, lists
// are normalized element by element.
func expectedCell(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = expectedCell(item)
		}
		return out
	}
	return fmt.Sprint(v)
}

// productCells renders rows the way expectedCell normalizes them.
func productCells(rows []product.Record, fields []domain.Field) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		row := make([]any, len(fields))
		for k, f := range fields {
			switch v := r[k].(type) {
			case nil:
				row[k] = nil
			case []product.Record:
				list, _ := f.Domain.(domain.List)
				rec, _ := list.Item.(domain.Record)
				row[k] = productCells(v, rec.Fields)
			default:
				row[k] = domain.Format(f.Domain, v)
			}
		}
		out[i] = row
	}
	return out
}
