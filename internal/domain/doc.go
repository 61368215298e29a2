// Package domain defines the value-type system of the query language.
//
// A Domain is one of a closed set of variants (Untyped, Boolean, Integer,
// Float, Decimal, Text, Date, Time, DateTime, Enum, Identity, Record, List,
// Opaque). Domains compare structurally and are related by a coercion partial
// order (see Coerce and Distance) that never narrows implicitly.
//
// Values of each domain use a fixed Go representation:
//
//	Boolean   bool
//	Integer   int64
//	Float     float64
//	Decimal   *apd.Decimal
//	Text      string
//	Enum      string
//	Date      time.Time (UTC midnight)
//	Time      time.Time (on 0000-01-01, UTC)
//	DateTime  time.Time (UTC)
//	Identity  []any
//	Untyped   string
//
// A nil value is NULL in every domain.
package domain
