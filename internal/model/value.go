package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ValueKind tags the contents of a Value.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindString
	KindNumber
)

// Value is a metadata value: a string, a number, or absent.
type Value struct {
	kind ValueKind
	str  string
	num  decimal.Decimal
}

// Metadata maps keys to values produced by a rule.
type Metadata map[string]Value

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric Value.
func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }

// Absent returns the absent Value.
func Absent() Value { return Value{} }

// NullNumber returns a numeric Value, or absent when d is not valid.
func NullNumber(d decimal.NullDecimal) Value {
	if !d.Valid {
		return Absent()
	}
	return Number(d.Decimal)
}

// IsAbsent reports whether the Value holds nothing.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Matches reports whether two values are equal as cancel-out keys.
// Numbers compare by absolute value, strings exactly; anything else never matches.
func (v Value) Matches(other Value) bool {
	switch {
	case v.kind == KindNumber && other.kind == KindNumber:
		return v.num.Abs().Equal(other.num.Abs())
	case v.kind == KindString && other.kind == KindString:
		return v.str == other.str
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	default:
		return "<absent>"
	}
}

// Keys returns the metadata keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
