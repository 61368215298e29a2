package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05.999999999"
	dateTimeLayout = "2006-01-02 15:04:05.999999999"
)

var dateTimeLayouts = []string{
	dateTimeLayout,
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04",
	dateLayout,
}

var timeLayouts = []string{timeLayout, "15:04"}

// Parse converts the text form of a value into the representation of d.
func Parse(d Domain, text string) (any, error) {
	s := strings.TrimSpace(text)
	switch d := d.(type) {
	case Untyped, Text:
		return text, nil
	case Boolean:
		switch strings.ToLower(s) {
		case "true", "t", "1":
			return true, nil
		case "false", "f", "0":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", text)
	case Integer:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", text)
		}
		return v, nil
	case Float:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", text)
		}
		return v, nil
	case Decimal:
		v, _, err := apd.NewFromString(s)
		if err != nil || v.Form != apd.Finite {
			return nil, fmt.Errorf("invalid decimal %q", text)
		}
		return v, nil
	case Date:
		v, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q", text)
		}
		return v, nil
	case Time:
		for _, layout := range timeLayouts {
			if v, err := time.Parse(layout, s); err == nil {
				return v, nil
			}
		}
		return nil, fmt.Errorf("invalid time %q", text)
	case DateTime:
		for _, layout := range dateTimeLayouts {
			if v, err := time.Parse(layout, s); err == nil {
				return v.UTC(), nil
			}
		}
		return nil, fmt.Errorf("invalid datetime %q", text)
	case Enum:
		for _, label := range d.Labels {
			if label == text {
				return text, nil
			}
		}
		return nil, fmt.Errorf("invalid enum label %q: expected one of %s", text, strings.Join(d.Labels, ", "))
	}
	return nil, fmt.Errorf("cannot parse a value of domain %s", d)
}

// Format renders a value in its canonical text form. NULL renders as "".
func Format(d Domain, v any) string {
	if v == nil {
		return ""
	}
	switch d.Kind() {
	case DateKind:
		if t, ok := v.(time.Time); ok {
			return t.Format(dateLayout)
		}
	case TimeKind:
		if t, ok := v.(time.Time); ok {
			return t.Format(timeLayout)
		}
	case DateTimeKind:
		if t, ok := v.(time.Time); ok {
			return t.Format(dateTimeLayout)
		}
	}
	switch x := v.(type) {
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case *apd.Decimal:
		return x.Text('f')
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			var fd Domain = Untyped{}
			if id, ok := d.(Identity); ok && i < len(id.Fields) {
				fd = id.Fields[i]
			}
			parts[i] = Format(fd, item)
		}
		return strings.Join(parts, ".")
	}
	return fmt.Sprint(v)
}

// Convert performs an implicit conversion of v from one domain to another,
// as permitted by Distance. Untyped values are parsed.
func Convert(v any, from, to Domain) (any, error) {
	if v == nil || Equal(from, to) {
		return v, nil
	}
	if from.Kind() == UntypedKind {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("untyped value %v is not text", v)
		}
		return Parse(to, s)
	}
	switch to.Kind() {
	case DecimalKind:
		switch x := v.(type) {
		case int64:
			return apd.New(x, 0), nil
		case *apd.Decimal:
			return x, nil
		}
	case FloatKind:
		switch x := v.(type) {
		case int64:
			return float64(x), nil
		case *apd.Decimal:
			f, err := x.Float64()
			if err != nil {
				return nil, fmt.Errorf("decimal %s out of float range", x)
			}
			return f, nil
		case float64:
			return x, nil
		}
	case TextKind:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case DateTimeKind:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	case IntegerKind:
		if x, ok := v.(int64); ok {
			return x, nil
		}
	}
	return nil, fmt.Errorf("cannot convert %s value to %s", from, to)
}

// DecimalDigits returns the number of significant digits and the number of
// fractional digits of a finite decimal.
func DecimalDigits(d *apd.Decimal) (precision, scale int) {
	coeff := d.Coeff.String()
	if coeff == "0" {
		precision = 1
	} else {
		precision = len(coeff)
	}
	if d.Exponent < 0 {
		scale = int(-d.Exponent)
		if scale > precision {
			precision = scale
		}
	} else {
		precision += int(d.Exponent)
	}
	return precision, scale
}

// IsFinite reports whether f is neither infinite nor NaN.
func IsFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
