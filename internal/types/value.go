// Package types defines the values that instruction operands carry and the
// reference interpreter computes with.
package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind represents the type of a value.
type Kind uint8

const (
	KindNull Kind = iota // Uninitialized value
	KindNum              // Numeric value
	KindStr              // String value
	KindBool             // Boolean value
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNum:
		return "num"
	case KindStr:
		return "str"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value represents a script value.
// Uses tagged union pattern; values are passed by value.
type Value struct {
	kind Kind
	num  float64 // also holds booleans as 0/1
	str  string
}

// Constructors

// Null returns a null (uninitialized) value.
func Null() Value {
	return Value{kind: KindNull}
}

// Num creates a numeric value.
func Num(n float64) Value {
	return Value{kind: KindNum, num: n}
}

// Str creates a string value.
func Str(s string) Value {
	return Value{kind: KindStr, str: s}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, num: 1}
	}
	return Value{kind: KindBool}
}

// Accessors

// Kind returns the value's type.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull returns true if the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsNum returns true if the value is a number.
func (v Value) IsNum() bool {
	return v.kind == KindNum
}

// IsStr returns true if the value is a string.
func (v Value) IsStr() bool {
	return v.kind == KindStr
}

// IsBool returns true if the value is a boolean.
func (v Value) IsBool() bool {
	return v.kind == KindBool
}

// Conversions

// AsNum returns the numeric representation of the value.
// Strings that do not parse as a number convert to 0; true is 1.
func (v Value) AsNum() float64 {
	switch v.kind {
	case KindNum, KindBool:
		return v.num
	case KindStr:
		n, err := ParseNum(v.str)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// AsStr returns the string representation of the value.
// Null converts to the empty string.
func (v Value) AsStr() string {
	switch v.kind {
	case KindNum:
		return FormatNum(v.num)
	case KindBool:
		return strconv.FormatBool(v.num != 0)
	default:
		return v.str
	}
}

// AsBool returns the truth value.
// Numbers: 0 and NaN are false. Strings: only the empty string is false.
func (v Value) AsBool() bool {
	switch v.kind {
	case KindNum:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindBool:
		return v.num != 0
	case KindStr:
		return v.str != ""
	default:
		return false
	}
}

// numeric reports the value as a number when it has one: numbers, booleans
// and null always do, strings only when the whole string parses.
func (v Value) numeric() (float64, bool) {
	if v.kind != KindStr {
		return v.num, true
	}
	n, err := ParseNum(v.str)
	return n, err == nil && strings.TrimSpace(v.str) != ""
}

// String returns a debug representation of the value.
func (v Value) String() string {
	switch v.kind {
	case KindNum:
		return fmt.Sprintf("Num(%s)", FormatNum(v.num))
	case KindStr:
		return fmt.Sprintf("Str(%q)", v.str)
	case KindBool:
		return fmt.Sprintf("Bool(%t)", v.num != 0)
	default:
		return "Null()"
	}
}

// Comparison

// Compare orders two values. Returns -1 if a < b, 0 if a == b, 1 if a > b.
//
// Two values that both have a numeric reading compare as numbers; otherwise
// both sides compare as strings.
func Compare(a, b Value) int {
	an, aok := a.numeric()
	bn, bok := b.numeric()
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.AsStr(), b.AsStr())
}

// Equal reports whether a and b compare equal. Null equals only null and
// the values that convert to it (0, false, "").
func Equal(a, b Value) bool {
	if a.kind == KindNull || b.kind == KindNull {
		return !a.AsBool() && !b.AsBool()
	}
	return Compare(a, b) == 0
}

// Number parsing and formatting

// ParseNum parses a string as a number (strict parsing).
// Surrounding blanks are ignored; the empty string is 0.
func ParseNum(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	switch strings.ToLower(s) {
	case "nan", "+nan", "-nan":
		return math.NaN(), nil
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	if strings.Contains(s, "_") {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(s, 64)
}

// FormatNum formats a number the way scripts print it: integers without a
// fraction, everything else with up to six significant digits.
func FormatNum(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	case n == math.Trunc(n) && math.Abs(n) < 1e16:
		return strconv.FormatInt(int64(n), 10)
	default:
		return strconv.FormatFloat(n, 'g', 6, 64)
	}
}
