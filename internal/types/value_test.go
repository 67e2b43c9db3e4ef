package types

import (
	"math"
	"testing"
)

func TestValueConstructors(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		kind Kind
	}{
		{"Null", Null(), KindNull},
		{"Num(0)", Num(0), KindNum},
		{"Num(-3.14)", Num(-3.14), KindNum},
		{"Str empty", Str(""), KindStr},
		{"Str hello", Str("hello"), KindStr},
		{"Bool true", Bool(true), KindBool},
		{"Bool false", Bool(false), KindBool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", tt.v.Kind(), tt.kind)
			}
		})
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Null(), false},
		{Num(0), false},
		{Num(math.NaN()), false},
		{Num(-1), true},
		{Str(""), false},
		{Str("0"), true},
		{Bool(true), true},
		{Bool(false), false},
	}
	for _, tt := range tests {
		if got := tt.v.AsBool(); got != tt.want {
			t.Errorf("%v.AsBool() = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestAsNumAndAsStr(t *testing.T) {
	tests := []struct {
		v   Value
		num float64
		str string
	}{
		{Null(), 0, ""},
		{Num(42), 42, "42"},
		{Num(0.5), 0.5, "0.5"},
		{Num(1.0 / 3), 1.0 / 3, "0.333333"},
		{Str(" 12 "), 12, " 12 "},
		{Str("abc"), 0, "abc"},
		{Bool(true), 1, "true"},
	}
	for _, tt := range tests {
		if got := tt.v.AsNum(); got != tt.num {
			t.Errorf("%v.AsNum() = %v, want %v", tt.v, got, tt.num)
		}
		if got := tt.v.AsStr(); got != tt.str {
			t.Errorf("%v.AsStr() = %q, want %q", tt.v, got, tt.str)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"numbers", Num(1), Num(2), -1},
		{"numeric string vs number", Str("10"), Num(9), 1},
		{"strings", Str("abc"), Str("abd"), -1},
		{"string vs number", Str("abc"), Num(1), 1},
		{"null vs zero", Null(), Num(0), 0},
		{"bool vs number", Bool(true), Num(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Null(), Str("")) {
		t.Error("null should equal the empty string")
	}
	if Equal(Null(), Str("x")) {
		t.Error("null should not equal a non-empty string")
	}
	if !Equal(Str("3"), Num(3)) {
		t.Error(`"3" should equal 3`)
	}
}

func TestParseNum(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"", 0, false},
		{"  7 ", 7, false},
		{"1e3", 1000, false},
		{"-inf", math.Inf(-1), false},
		{"1_000", 0, true},
		{"12abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseNum(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseNum(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseNum(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
