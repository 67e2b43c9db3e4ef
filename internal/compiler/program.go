package compiler

import (
	"fmt"
	"strings"

	"github.com/kolkov/ucub/token"
)

// Program represents a compiled unit ready for execution.
type Program struct {
	// Code is the instruction stream. Addresses run from Base without gaps
	// and the last instruction is Halt.
	Code Sequence

	// Base is the address of Code[0].
	Base Address

	// Functions contains compiled user-defined functions, by call index.
	Functions []Function

	// Globals holds global variable names by slot (for disassembly and debugging).
	Globals []string
}

// Function represents a compiled user-defined function.
type Function struct {
	// Name is the function name.
	Name string

	// Params contains parameter names; they occupy the first frame slots.
	Params []string

	// Entry is the address of the first body instruction.
	Entry Address

	// FrameSize is the number of local slots, parameters included.
	FrameSize int

	// Span is the declaration's source range.
	Span token.Span
}

// NumParams returns the number of parameters.
func (f *Function) NumParams() int {
	return len(f.Params)
}

// At returns the instruction at address a.
func (p *Program) At(a Address) (Instruction, bool) {
	i := int(a - p.Base)
	if i < 0 || i >= len(p.Code) {
		return Instruction{}, false
	}
	return p.Code[i], true
}

// End returns the address after the last instruction.
func (p *Program) End() Address {
	return p.Base + Address(len(p.Code))
}

// FunctionIndex returns the call index of the function named name.
func (p *Program) FunctionIndex(name string) (int, bool) {
	for i, fn := range p.Functions {
		if fn.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Verify checks the structural invariants of the instruction stream:
// contiguous increasing addresses, well-formed operands, every branch
// target naming an instruction of the unit, calls matching the function
// table, and a final Halt.
func (p *Program) Verify() error {
	if len(p.Code) == 0 {
		return invariantf(token.NoSpan, "empty program")
	}
	for i, in := range p.Code {
		if want := p.Base + Address(i); in.Addr != want {
			return invariantf(in.Span, "instruction %d has address %04d, want %04d", i, in.Addr, want)
		}
		if in.Op >= numOpcodes {
			return invariantf(in.Span, "%04d: unknown opcode %d", in.Addr, in.Op)
		}
		if want := in.Op.operandCount(); len(in.Args) != want {
			if in.Op.IsJump() && len(in.Args) == 0 {
				return invariantf(in.Span, "%04d: unresolved branch", in.Addr)
			}
			return invariantf(in.Span, "%04d: %s takes %d operands, has %d", in.Addr, in.Op, want, len(in.Args))
		}
		if err := p.verifyOperands(in); err != nil {
			return err
		}
	}
	if last := p.Code[len(p.Code)-1]; last.Op != Halt {
		return invariantf(last.Span, "%04d: unit ends with %s, want Halt", last.Addr, last.Op)
	}
	for _, fn := range p.Functions {
		if _, ok := p.At(fn.Entry); !ok {
			return invariantf(fn.Span, "function %q entry %04d outside the unit", fn.Name, fn.Entry)
		}
	}
	return nil
}

func (p *Program) verifyOperands(in Instruction) error {
	if in.Op.IsJump() {
		target, ok := in.Target()
		if !ok {
			return invariantf(in.Span, "%04d: %s operand is not an address", in.Addr, in.Op)
		}
		if _, ok := p.At(target); !ok {
			return invariantf(in.Span, "%04d: %s target %04d outside the unit", in.Addr, in.Op, target)
		}
		return nil
	}
	for _, a := range in.Args {
		if a.IsRef() {
			return invariantf(in.Span, "%04d: unexpected address operand for %s", in.Addr, in.Op)
		}
	}
	if in.Op == Call {
		idx, argc := in.Args[0].Int(), in.Args[1].Int()
		if idx < 0 || idx >= len(p.Functions) {
			return invariantf(in.Span, "%04d: call of unknown function %d", in.Addr, idx)
		}
		if fn := p.Functions[idx]; fn.NumParams() != argc {
			return invariantf(in.Span, "%04d: call of %q with %d arguments, want %d", in.Addr, fn.Name, argc, fn.NumParams())
		}
	}
	return nil
}

// Disassemble returns a human-readable disassembly of the program.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	if len(p.Globals) > 0 {
		sb.WriteString("=== Globals ===\n")
		for i, name := range p.Globals {
			fmt.Fprintf(&sb, "  [%d] %s\n", i, name)
		}
		sb.WriteString("\n")
	}

	if len(p.Functions) > 0 {
		sb.WriteString("=== Functions ===\n")
		for i, fn := range p.Functions {
			fmt.Fprintf(&sb, "  [%d] %s(%s) entry=%04d frame=%d\n",
				i, fn.Name, strings.Join(fn.Params, ", "), fn.Entry, fn.FrameSize)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("=== Code ===\n")
	p.disassembleCode(&sb, "  ")
	return sb.String()
}

// disassembleCode outputs the instruction stream with proper formatting.
func (p *Program) disassembleCode(sb *strings.Builder, indent string) {
	entries := make(map[Address]string, len(p.Functions))
	for _, fn := range p.Functions {
		entries[fn.Entry] = fn.Name
	}
	for _, in := range p.Code {
		if name, ok := entries[in.Addr]; ok {
			fmt.Fprintf(sb, "%s%s:\n", indent, name)
		}
		fmt.Fprintf(sb, "%s%04d: %s", indent, in.Addr, in.Op)

		switch in.Op {
		case Jump, JumpTrue, JumpFalse:
			if target, ok := in.Target(); ok {
				fmt.Fprintf(sb, " %+d -> %04d", target-in.Addr, target)
			} else {
				sb.WriteString(" <unresolved>")
			}
		case LoadGlobal, StoreGlobal:
			idx := in.Args[0].Int()
			if idx < len(p.Globals) {
				fmt.Fprintf(sb, " %s [%d]", p.Globals[idx], idx)
			} else {
				fmt.Fprintf(sb, " [%d]", idx)
			}
		case Call:
			idx := in.Args[0].Int()
			if idx < len(p.Functions) {
				fmt.Fprintf(sb, " %s", p.Functions[idx].Name)
			} else {
				fmt.Fprintf(sb, " [%d]", idx)
			}
			fmt.Fprintf(sb, " argc=%d", in.Args[1].Int())
		default:
			for _, a := range in.Args {
				sb.WriteByte(' ')
				sb.WriteString(a.String())
			}
		}
		if in.Span.IsValid() {
			fmt.Fprintf(sb, "\t; %s", in.Span)
		}
		sb.WriteByte('\n')
	}
}
