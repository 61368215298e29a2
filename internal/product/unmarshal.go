package product

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

func unmarshalError(format string, args ...any) *diag.Error {
	return diag.Errorf(diag.KindUnmarshal, diag.Mark{}, format, args...)
}

// Unmarshal converts a value returned by a database driver into the
// representation of d:
//
//	boolean           bool
//	integer           int64
//	float             float64
//	decimal           *apd.Decimal
//	text, enum        string
//	date, time,
//	datetime          time.Time (UTC)
//	identity          []any of the field values
//
// NULL is nil for every domain. Drivers differ in the shape they return
// for one domain; a shape that does not fit d is an UnmarshalError, never
// a silent coercion.
func Unmarshal(raw any, d domain.Domain) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	switch d := d.(type) {
	case domain.Untyped, domain.Text:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case domain.Enum:
		if s, ok := raw.(string); ok {
			for _, label := range d.Labels {
				if label == s {
					return s, nil
				}
			}
			return nil, unmarshalError("%q is not a label of %s", s, d)
		}
	case domain.Boolean:
		return unmarshalBoolean(raw)
	case domain.Integer:
		return unmarshalInteger(raw)
	case domain.Float:
		return unmarshalFloat(raw)
	case domain.Decimal:
		return unmarshalDecimal(raw)
	case domain.Date, domain.Time, domain.DateTime:
		return unmarshalTemporal(raw, d)
	case domain.Identity:
		vals, ok := raw.([]any)
		if !ok || len(vals) != len(d.Fields) {
			break
		}
		out := make([]any, len(vals))
		for i, v := range vals {
			x, err := Unmarshal(v, d.Fields[i])
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	case domain.Opaque:
		return raw, nil
	}
	return nil, unmarshalError("cannot read %T as %s", raw, d)
}

func unmarshalBoolean(raw any) (any, error) {
	switch x := raw.(type) {
	case bool:
		return x, nil
	case int64:
		switch x {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return nil, unmarshalError("integer %d is not a boolean", x)
	case string:
		switch strings.ToLower(x) {
		case "1", "t", "true":
			return true, nil
		case "0", "f", "false":
			return false, nil
		}
		return nil, unmarshalError("%q is not a boolean", x)
	}
	return nil, unmarshalError("cannot read %T as boolean", raw)
}

func unmarshalInteger(raw any) (any, error) {
	switch x := raw.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, unmarshalError("integer %d is out of range", x)
		}
		return int64(x), nil
	case float64:
		// Some backends return integer aggregates as floating point.
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return nil, unmarshalError("%v is not an integer", x)
		}
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			// DECIMAL-typed sums arrive as "12" or "12.000".
			dec, _, derr := apd.NewFromString(strings.TrimSpace(x))
			if derr != nil {
				return nil, unmarshalError("%q is not an integer", x)
			}
			if n, err = dec.Int64(); err != nil {
				return nil, unmarshalError("%q is not an integer", x)
			}
		}
		return n, nil
	}
	return nil, unmarshalError("cannot read %T as integer", raw)
}

func unmarshalFloat(raw any) (any, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, unmarshalError("%q is not a float", x)
		}
		return f, nil
	}
	return nil, unmarshalError("cannot read %T as float", raw)
}

func unmarshalDecimal(raw any) (any, error) {
	switch x := raw.(type) {
	case *apd.Decimal:
		return x, nil
	case int64:
		return apd.New(x, 0), nil
	case float64:
		if !domain.IsFinite(x) {
			return nil, unmarshalError("%v is not a decimal", x)
		}
		// The shortest representation that reads back as x.
		d, _, err := apd.NewFromString(strconv.FormatFloat(x, 'f', -1, 64))
		if err != nil {
			return nil, unmarshalError("%v is not a decimal", x)
		}
		return d, nil
	case string:
		d, _, err := apd.NewFromString(strings.TrimSpace(x))
		if err != nil || d.Form != apd.Finite {
			return nil, unmarshalError("%q is not a decimal", x)
		}
		return d, nil
	}
	return nil, unmarshalError("cannot read %T as decimal", raw)
}

func unmarshalTemporal(raw any, d domain.Domain) (any, error) {
	switch x := raw.(type) {
	case time.Time:
		switch d.Kind() {
		case domain.DateKind:
			y, m, day := x.Date()
			return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
		case domain.TimeKind:
			return time.Date(0, 1, 1, x.Hour(), x.Minute(), x.Second(), x.Nanosecond(), time.UTC), nil
		}
		return x.UTC(), nil
	case string:
		s := x
		if d.Kind() == domain.DateKind && len(s) > len("2006-01-02") {
			// Drivers without a DATE type may return a full timestamp.
			s = s[:len("2006-01-02")]
		}
		v, err := domain.Parse(d, s)
		if err != nil {
			return nil, unmarshalError("%v", err)
		}
		return v, nil
	}
	return nil, unmarshalError("cannot read %T as %s", raw, d)
}

// valueWidth returns the number of SQL columns holding a value of d.
func valueWidth(d domain.Domain) int {
	id, ok := d.(domain.Identity)
	if !ok {
		return 1
	}
	n := 0
	for _, f := range id.Fields {
		n += valueWidth(f)
	}
	return n
}

// unmarshalColumns reads a value of d spread over the leading columns of
// raw and returns the number of columns consumed.
func unmarshalColumns(raw []any, d domain.Domain) (any, int, error) {
	id, ok := d.(domain.Identity)
	if !ok {
		if len(raw) == 0 {
			return nil, 0, unmarshalError("missing column for %s", d)
		}
		v, err := Unmarshal(raw[0], d)
		return v, 1, err
	}
	out := make([]any, len(id.Fields))
	used := 0
	null := true
	for i, f := range id.Fields {
		v, n, err := unmarshalColumns(raw[used:], f)
		if err != nil {
			return nil, 0, err
		}
		out[i] = v
		used += n
		if v != nil {
			null = false
		}
	}
	if null {
		return nil, used, nil
	}
	return out, used, nil
}
