// Package compiler lowers a validated syntax tree into a flat,
// address-indexed instruction stream with resolved jump targets.
package compiler

import "fmt"

// Opcode represents a virtual machine instruction.
type Opcode uint8

const (
	// Nop does nothing.
	Nop Opcode = iota

	// Stack operations
	Push // Push literal: Push value
	Pop  // Discard top of stack
	Dupe // Duplicate top of stack

	// Variable access
	LoadGlobal // Load global: LoadGlobal slot
	LoadLocal  // Load frame local: LoadLocal slot

	// Variable assignment (value on stack, consumed)
	StoreGlobal // Store global: StoreGlobal slot
	StoreLocal  // Store frame local: StoreLocal slot

	// Binary operators: pop r, pop l, push l op r
	Add
	Subtract
	Multiply
	Divide
	Modulo
	Power
	Concat

	// Comparison operators (push a boolean)
	Equal
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual

	// Regex match: pop pattern, pop subject, push boolean
	Match
	NotMatch

	// Unary operators
	UnaryMinus
	Not
	Boolean // Convert top of stack to a boolean

	// Control flow
	Jump      // Unconditional jump: Jump target
	JumpTrue  // Pop, jump if true: JumpTrue target
	JumpFalse // Pop, jump if false: JumpFalse target

	// Functions
	Call       // Call user function: Call fnIndex argc
	Return     // Return top of stack
	ReturnNull // Return null

	// Halt ends execution of the unit.
	Halt

	// Number of opcodes (for validation)
	numOpcodes
)

var opcodeNames = [...]string{
	Nop:          "Nop",
	Push:         "Push",
	Pop:          "Pop",
	Dupe:         "Dupe",
	LoadGlobal:   "LoadGlobal",
	LoadLocal:    "LoadLocal",
	StoreGlobal:  "StoreGlobal",
	StoreLocal:   "StoreLocal",
	Add:          "Add",
	Subtract:     "Subtract",
	Multiply:     "Multiply",
	Divide:       "Divide",
	Modulo:       "Modulo",
	Power:        "Power",
	Concat:       "Concat",
	Equal:        "Equal",
	NotEqual:     "NotEqual",
	Less:         "Less",
	LessEqual:    "LessEqual",
	Greater:      "Greater",
	GreaterEqual: "GreaterEqual",
	Match:        "Match",
	NotMatch:     "NotMatch",
	UnaryMinus:   "UnaryMinus",
	Not:          "Not",
	Boolean:      "Boolean",
	Jump:         "Jump",
	JumpTrue:     "JumpTrue",
	JumpFalse:    "JumpFalse",
	Call:         "Call",
	Return:       "Return",
	ReturnNull:   "ReturnNull",
	Halt:         "Halt",
}

// String returns a human-readable name for the opcode.
func (op Opcode) String() string {
	if op < numOpcodes {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

// IsJump returns true for the opcodes whose first operand is a branch target.
func (op Opcode) IsJump() bool {
	return op == Jump || op == JumpTrue || op == JumpFalse
}

// operandCount returns the number of operands op takes.
func (op Opcode) operandCount() int {
	switch op {
	case Push, LoadGlobal, LoadLocal, StoreGlobal, StoreLocal, Jump, JumpTrue, JumpFalse:
		return 1
	case Call:
		return 2
	default:
		return 0
	}
}
