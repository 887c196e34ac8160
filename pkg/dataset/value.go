package dataset

import (
	"strconv"
)

type Kind uint8

const (
	KindNumeric Kind = iota
	KindSymbolic
	KindMissing
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindSymbolic:
		return "symbolic"
	case KindMissing:
		return "missing"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single feature value. The zero Value is numeric 0.
type Value struct {
	kind Kind
	num  float64
	sym  string
}

func Numeric(v float64) Value {
	return Value{kind: KindNumeric, num: v}
}

func Symbolic(s string) Value {
	return Value{kind: KindSymbolic, sym: s}
}

// Missing returns a value that is explicitly absent. It carries no number and
// makes every distance over it fail.
func Missing() Value {
	return Value{kind: KindMissing}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumeric
}

func (v Value) Symbol() (string, bool) {
	return v.sym, v.kind == KindSymbolic
}

func (v Value) IsMissing() bool {
	return v.kind == KindMissing
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumeric:
		return v.num == o.num
	case KindSymbolic:
		return v.sym == o.sym
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNumeric:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindSymbolic:
		return v.sym
	default:
		return "?"
	}
}
