package domain

// numericRank orders the numeric kinds by widening: Integer < Decimal < Float.
var numericRank = map[Kind]int{
	IntegerKind: 0,
	DecimalKind: 1,
	FloatKind:   2,
}

// Coerce returns the common domain of a and b, if one exists without
// narrowing either side.
//
//	untyped  + X        -> X
//	integer  + decimal  -> decimal
//	integer  + float    -> float
//	decimal  + float    -> float
//	enum     + text     -> text
//	enum(a)  + enum(b)  -> text, unless the labels agree
//	date     + datetime -> datetime
func Coerce(a, b Domain) (Domain, bool) {
	if Equal(a, b) {
		return a, true
	}
	ka, kb := a.Kind(), b.Kind()
	switch {
	case ka == UntypedKind:
		return b, true
	case kb == UntypedKind:
		return a, true
	case ka == kb:
		switch ka {
		case DecimalKind:
			return Decimal{}, true
		case EnumKind:
			return Text{}, true
		case OpaqueKind, RecordKind, ListKind, IdentityKind:
			return nil, false
		}
		return a, true
	}
	ra, oka := numericRank[ka]
	rb, okb := numericRank[kb]
	if oka && okb {
		if ra > rb {
			return a, true
		}
		return b, true
	}
	if (ka == EnumKind && kb == TextKind) || (ka == TextKind && kb == EnumKind) {
		return Text{}, true
	}
	if (ka == DateKind && kb == DateTimeKind) || (ka == DateTimeKind && kb == DateKind) {
		return DateTime{}, true
	}
	return nil, false
}

// CoerceAll folds Coerce over a list of domains.
// It returns Untyped for an empty list.
func CoerceAll(ds ...Domain) (Domain, bool) {
	var acc Domain = Untyped{}
	for _, d := range ds {
		var ok bool
		acc, ok = Coerce(acc, d)
		if !ok {
			return nil, false
		}
	}
	return acc, true
}

// Distance measures the implicit conversion from a value of domain from to
// the kind to. It returns 0 for an exact match and -1 when no implicit
// conversion exists. Overload resolution minimizes the sum of distances.
//
// Untyped literals prefer text (1) over every other kind (2), so that
// "'a' + 'b'" resolves to concatenation while "x + '1'" still resolves against
// the typed operand.
func Distance(from Domain, to Kind) int {
	k := from.Kind()
	switch {
	case to == AnyKind:
		return 3
	case k == to:
		return 0
	case k == UntypedKind:
		if to == TextKind {
			return 1
		}
		if _, ok := FromKind(to); ok {
			return 2
		}
		return -1
	}
	rf, okf := numericRank[k]
	rt, okt := numericRank[to]
	if okf && okt && rt > rf {
		return rt - rf
	}
	if k == EnumKind && to == TextKind {
		return 1
	}
	if k == DateKind && to == DateTimeKind {
		return 1
	}
	return -1
}

// CanCast reports whether an explicit conversion from one kind to another is
// defined. Every scalar converts to and from text; numbers convert among
// themselves; dates and datetimes convert both ways.
func CanCast(from, to Kind) bool {
	if from == to || from == UntypedKind {
		return true
	}
	if to == TextKind {
		switch from {
		case BooleanKind, IntegerKind, FloatKind, DecimalKind, EnumKind, DateKind, TimeKind, DateTimeKind:
			return true
		}
		return false
	}
	if from == TextKind || from == EnumKind {
		switch to {
		case BooleanKind, IntegerKind, FloatKind, DecimalKind, DateKind, TimeKind, DateTimeKind:
			return true
		}
		return false
	}
	_, okf := numericRank[from]
	_, okt := numericRank[to]
	if okf && okt {
		return true
	}
	if from == BooleanKind && to == IntegerKind || from == IntegerKind && to == BooleanKind {
		return true
	}
	switch {
	case from == DateKind && to == DateTimeKind,
		from == DateTimeKind && to == DateKind,
		from == DateTimeKind && to == TimeKind:
		return true
	}
	return false
}
