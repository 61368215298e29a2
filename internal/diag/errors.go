package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes pipeline errors.
type Kind string

const (
	// KindScan indicates malformed lexical input.
	KindScan Kind = "SCAN_ERROR"

	// KindParse indicates a token sequence that matches no grammar production.
	KindParse Kind = "PARSE_ERROR"

	// KindBind indicates an undefined or ambiguous name, an arity mismatch,
	// or incompatible operand domains.
	KindBind Kind = "BIND_ERROR"

	// KindCompile indicates a construct the active dialect cannot express.
	KindCompile Kind = "COMPILE_ERROR"

	// KindInternal indicates a broken invariant inside the pipeline itself.
	KindInternal Kind = "INTERNAL_ERROR"

	// KindSerialize indicates a value that cannot be rendered in the target dialect.
	KindSerialize Kind = "SERIALIZE_ERROR"

	// KindDB wraps an opaque backend failure.
	KindDB Kind = "DB_ERROR"

	// KindUnmarshal indicates a raw driver value that does not fit its domain.
	KindUnmarshal Kind = "UNMARSHAL_ERROR"
)

// Error is the error type produced by every pipeline stage.
//
// Errors from scanning, parsing and binding carry a Mark into the query text.
// Execution and unmarshal errors carry the failing SQL instead.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Mark locates the offending fragment of the query, if any.
	Mark Mark

	// SQL is the statement that failed, for DB and unmarshal errors.
	SQL string

	// Hint suggests a fix, e.g. the candidates of an ambiguous name.
	Hint string

	// Err is the underlying cause (a driver error, for instance).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if !e.Mark.IsZero() {
		fmt.Fprintf(&b, " (at %s)", e.Mark)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail renders the error with the query excerpt and hint, for terminals.
func (e *Error) Detail() string {
	var b strings.Builder
	b.WriteString(e.Error())
	if ex := e.Mark.Excerpt(); ex != "" {
		b.WriteString("\nWhile processing:\n")
		for _, line := range strings.Split(ex, "\n") {
			b.WriteString("    ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if e.SQL != "" {
		b.WriteString("\nWhile executing:\n    ")
		b.WriteString(strings.ReplaceAll(e.SQL, "\n", "\n    "))
		b.WriteString("\n")
	}
	if e.Hint != "" {
		b.WriteString("Hint: ")
		b.WriteString(e.Hint)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Errorf creates an error of the given kind at the given mark.
func Errorf(kind Kind, mark Mark, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Mark: mark}
}

// WithHint attaches a hint and returns the error for chaining.
func (e *Error) WithHint(format string, args ...any) *Error {
	e.Hint = fmt.Sprintf(format, args...)
	return e
}

// NewDBError wraps a driver failure together with the SQL that caused it.
func NewDBError(sql string, err error) *Error {
	return &Error{Kind: KindDB, Message: "failed to execute query", SQL: sql, Err: err}
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func isKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsScanError returns true if err is a scan error.
func IsScanError(err error) bool { return isKind(err, KindScan) }

// IsParseError returns true if err is a parse error.
func IsParseError(err error) bool { return isKind(err, KindParse) }

// IsBindError returns true if err is a bind error.
func IsBindError(err error) bool { return isKind(err, KindBind) }

// IsCompileError returns true if err is a user-facing compile error.
func IsCompileError(err error) bool { return isKind(err, KindCompile) }

// IsInternalError returns true if err signals a defect in the pipeline.
func IsInternalError(err error) bool { return isKind(err, KindInternal) }

// IsSerializeError returns true if err is a serialize error.
func IsSerializeError(err error) bool { return isKind(err, KindSerialize) }

// IsDBError returns true if err wraps a backend failure.
func IsDBError(err error) bool { return isKind(err, KindDB) }

// IsUnmarshalError returns true if err is an unmarshal error.
func IsUnmarshalError(err error) bool { return isKind(err, KindUnmarshal) }
