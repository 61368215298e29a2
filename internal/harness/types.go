package harness

import "github.com/prometheusresearch/htsql-sub004/internal/product"

// TraceEvent records one query translated into one dialect and, for the
// execution dialect, run.
type TraceEvent struct {
	Step    int      `json:"step"` // index of the query in the scenario
	Query   string   `json:"query"`
	Dialect string   `json:"dialect"`
	Plan    string   `json:"plan,omitempty"`
	SQL     []string `json:"sql,omitempty"`

	// Error is the error kind and Message the error text when the query
	// failed.
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`

	// Product is the query result; nil unless the query was executed.
	Product *product.Product `json:"-"`
}

// Failed reports whether the query failed.
func (e *TraceEvent) Failed() bool { return e.Error != "" }

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses match.
	Pass bool `json:"pass"`

	// Trace holds one event per query and dialect, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
