package compiler

import (
	"fmt"
	"strings"

	"github.com/kolkov/ucub/internal/types"
	"github.com/kolkov/ucub/token"
)

// Address is the position of an instruction in the final linear program.
type Address int

// Operand is either a literal value or a reference to an instruction address.
type Operand struct {
	ref   bool
	addr  Address
	value types.Value
}

// Lit returns a literal operand.
func Lit(v types.Value) Operand {
	return Operand{value: v}
}

// Int returns a numeric literal operand (slots, counts, indexes).
func Int(n int) Operand {
	return Operand{value: types.Num(float64(n))}
}

// Ref returns an operand referring to the instruction at a.
func Ref(a Address) Operand {
	return Operand{ref: true, addr: a}
}

// IsRef reports whether the operand is an address reference.
func (o Operand) IsRef() bool { return o.ref }

// Addr returns the referenced address; only meaningful when IsRef.
func (o Operand) Addr() Address { return o.addr }

// Value returns the literal value; only meaningful when !IsRef.
func (o Operand) Value() types.Value { return o.value }

// Int returns the literal value as an int.
func (o Operand) Int() int { return int(o.value.AsNum()) }

// String formats the operand for listings.
func (o Operand) String() string {
	if o.ref {
		return fmt.Sprintf("@%04d", o.addr)
	}
	switch o.value.Kind() {
	case types.KindStr:
		return fmt.Sprintf("%q", o.value.AsStr())
	case types.KindNull:
		return "null"
	default:
		return o.value.AsStr()
	}
}

// Instruction is one executable unit of the target machine.
type Instruction struct {
	Addr Address
	Op   Opcode
	Args []Operand
	Span token.Span // Source range; zero when unknown
}

// Target returns the branch target of a jump instruction.
func (in Instruction) Target() (Address, bool) {
	if !in.Op.IsJump() || len(in.Args) == 0 || !in.Args[0].IsRef() {
		return 0, false
	}
	return in.Args[0].Addr(), true
}

// String formats the instruction as one listing line.
func (in Instruction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04d: %s", in.Addr, in.Op)
	for _, a := range in.Args {
		sb.WriteByte(' ')
		sb.WriteString(a.String())
	}
	return sb.String()
}

// Sequence is an ordered list of instructions. Sequences compose by
// concatenation; addresses assigned at emission are never renumbered.
type Sequence []Instruction

// Append concatenates seqs onto s.
func (s Sequence) Append(seqs ...Sequence) Sequence {
	for _, t := range seqs {
		s = append(s, t...)
	}
	return s
}

// String returns the listing of a sequence, one instruction per line.
func (s Sequence) String() string {
	var sb strings.Builder
	for _, in := range s {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Start returns the address of the first instruction.
func (s Sequence) Start() (Address, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[0].Addr, true
}

// Find returns the index of the instruction at address a.
func (s Sequence) Find(a Address) (int, bool) {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if s[mid].Addr < a {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(s) && s[lo].Addr == a {
		return lo, true
	}
	return 0, false
}

// patch rewrites the branch target of the jump at address at.
func (s Sequence) patch(at, target Address) bool {
	i, ok := s.Find(at)
	if !ok || !s[i].Op.IsJump() {
		return false
	}
	s[i].Args = []Operand{Ref(target)}
	return true
}
