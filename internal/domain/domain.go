package domain

import (
	"fmt"
	"strings"
)

// Kind tags a Domain variant.
type Kind int

const (
	UntypedKind Kind = iota
	BooleanKind
	IntegerKind
	FloatKind
	DecimalKind
	TextKind
	DateKind
	TimeKind
	DateTimeKind
	EnumKind
	IdentityKind
	RecordKind
	ListKind
	OpaqueKind

	// AnyKind matches every domain in function signatures. No Domain has it.
	AnyKind
)

var kindNames = map[Kind]string{
	UntypedKind:  "untyped",
	BooleanKind:  "boolean",
	IntegerKind:  "integer",
	FloatKind:    "float",
	DecimalKind:  "decimal",
	TextKind:     "text",
	DateKind:     "date",
	TimeKind:     "time",
	DateTimeKind: "datetime",
	EnumKind:     "enum",
	IdentityKind: "identity",
	RecordKind:   "record",
	ListKind:     "list",
	OpaqueKind:   "opaque",
	AnyKind:      "any",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Domain is the sealed interface implemented by every domain variant.
type Domain interface {
	Kind() Kind
	String() string
	domain()
}

// Untyped is the domain of literals whose type is not yet known.
type Untyped struct{}

// Boolean is the domain of truth values.
type Boolean struct{}

// Integer is the domain of 64-bit signed integers.
type Integer struct{}

// Float is the domain of IEEE 754 double precision numbers.
type Float struct{}

// Decimal is the domain of exact decimal numbers.
// Precision and Scale are zero when unconstrained.
type Decimal struct {
	Precision int
	Scale     int
}

// Text is the domain of character strings.
type Text struct{}

// Date is the domain of calendar dates.
type Date struct{}

// Time is the domain of times of day.
type Time struct{}

// DateTime is the domain of timestamps.
type DateTime struct{}

// Enum is a text domain restricted to a fixed set of labels.
type Enum struct {
	Labels []string
}

// Identity is the domain of row identities: a tuple of key values.
type Identity struct {
	Fields []Domain
}

// Field is one named component of a Record.
type Field struct {
	Title  string
	Domain Domain
}

// Record is the domain of a selection: an ordered tuple of fields.
type Record struct {
	Fields []Field
}

// List is the domain of a plural value.
type List struct {
	Item Domain
}

// Opaque is a backend type the core cannot interpret.
type Opaque struct {
	Name string
}

func (Untyped) Kind() Kind  { return UntypedKind }
func (Boolean) Kind() Kind  { return BooleanKind }
func (Integer) Kind() Kind  { return IntegerKind }
func (Float) Kind() Kind    { return FloatKind }
func (Decimal) Kind() Kind  { return DecimalKind }
func (Text) Kind() Kind     { return TextKind }
func (Date) Kind() Kind     { return DateKind }
func (Time) Kind() Kind     { return TimeKind }
func (DateTime) Kind() Kind { return DateTimeKind }
func (Enum) Kind() Kind     { return EnumKind }
func (Identity) Kind() Kind { return IdentityKind }
func (Record) Kind() Kind   { return RecordKind }
func (List) Kind() Kind     { return ListKind }
func (Opaque) Kind() Kind   { return OpaqueKind }

func (Untyped) domain()  {}
func (Boolean) domain()  {}
func (Integer) domain()  {}
func (Float) domain()    {}
func (Decimal) domain()  {}
func (Text) domain()     {}
func (Date) domain()     {}
func (Time) domain()     {}
func (DateTime) domain() {}
func (Enum) domain()     {}
func (Identity) domain() {}
func (Record) domain()   {}
func (List) domain()     {}
func (Opaque) domain()   {}

func (Untyped) String() string  { return "untyped" }
func (Boolean) String() string  { return "boolean" }
func (Integer) String() string  { return "integer" }
func (Float) String() string    { return "float" }
func (Text) String() string     { return "text" }
func (Date) String() string     { return "date" }
func (Time) String() string     { return "time" }
func (DateTime) String() string { return "datetime" }

func (d Decimal) String() string {
	if d.Precision == 0 {
		return "decimal"
	}
	return fmt.Sprintf("decimal(%d,%d)", d.Precision, d.Scale)
}

func (d Enum) String() string {
	return "enum(" + strings.Join(d.Labels, ",") + ")"
}

func (d Identity) String() string {
	parts := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		parts[i] = f.String()
	}
	return "identity(" + strings.Join(parts, ",") + ")"
}

func (d Record) String() string {
	parts := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		parts[i] = f.Title + ":" + f.Domain.String()
	}
	return "record(" + strings.Join(parts, ",") + ")"
}

func (d List) String() string {
	return "list(" + d.Item.String() + ")"
}

func (d Opaque) String() string {
	if d.Name == "" {
		return "opaque"
	}
	return "opaque(" + d.Name + ")"
}

// Equal reports structural equality of two domains.
func Equal(a, b Domain) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Decimal:
		y := b.(Decimal)
		return x.Precision == y.Precision && x.Scale == y.Scale
	case Enum:
		y := b.(Enum)
		return equalStrings(x.Labels, y.Labels)
	case Identity:
		y := b.(Identity)
		if len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if !Equal(x.Fields[i], y.Fields[i]) {
				return false
			}
		}
		return true
	case Record:
		y := b.(Record)
		if len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Title != y.Fields[i].Title || !Equal(x.Fields[i].Domain, y.Fields[i].Domain) {
				return false
			}
		}
		return true
	case List:
		return Equal(x.Item, b.(List).Item)
	case Opaque:
		return x.Name == b.(Opaque).Name
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsScalar reports whether values of d are single SQL values.
func IsScalar(d Domain) bool {
	switch d.Kind() {
	case RecordKind, ListKind, IdentityKind:
		return false
	}
	return true
}

// IsNumeric reports whether d is Integer, Decimal or Float.
func IsNumeric(d Domain) bool {
	switch d.Kind() {
	case IntegerKind, DecimalKind, FloatKind:
		return true
	}
	return false
}

// IsOrderable reports whether values of d can appear in ORDER BY and min/max.
func IsOrderable(d Domain) bool {
	switch d.Kind() {
	case BooleanKind, IntegerKind, FloatKind, DecimalKind, TextKind, EnumKind,
		DateKind, TimeKind, DateTimeKind, UntypedKind:
		return true
	}
	return false
}

// FromKind returns the unparameterized domain of a scalar kind.
func FromKind(k Kind) (Domain, bool) {
	switch k {
	case UntypedKind:
		return Untyped{}, true
	case BooleanKind:
		return Boolean{}, true
	case IntegerKind:
		return Integer{}, true
	case FloatKind:
		return Float{}, true
	case DecimalKind:
		return Decimal{}, true
	case TextKind:
		return Text{}, true
	case DateKind:
		return Date{}, true
	case TimeKind:
		return Time{}, true
	case DateTimeKind:
		return DateTime{}, true
	}
	return nil, false
}

// ParseName maps a type name, as written in catalog files, to a domain.
// Unknown names map to Opaque.
func ParseName(name string) Domain {
	n := strings.ToLower(strings.TrimSpace(name))
	base := n
	if i := strings.IndexByte(n, '('); i >= 0 {
		base = strings.TrimSpace(n[:i])
	}
	switch base {
	case "bool", "boolean", "bit":
		return Boolean{}
	case "int", "integer", "smallint", "bigint", "tinyint", "int2", "int4", "int8", "serial", "bigserial":
		return Integer{}
	case "float", "double", "double precision", "real", "float4", "float8":
		return Float{}
	case "decimal", "numeric", "money":
		var p, s int
		if _, err := fmt.Sscanf(n[len(base):], "(%d,%d)", &p, &s); err != nil {
			if _, err := fmt.Sscanf(n[len(base):], "(%d)", &p); err != nil {
				p = 0
			}
		}
		return Decimal{Precision: p, Scale: s}
	case "text", "string", "varchar", "char", "character", "character varying", "nvarchar", "nchar", "clob":
		return Text{}
	case "date":
		return Date{}
	case "time":
		return Time{}
	case "datetime", "timestamp", "timestamptz", "datetime2", "timestamp with time zone", "timestamp without time zone":
		return DateTime{}
	case "":
		return Untyped{}
	}
	return Opaque{Name: n}
}
