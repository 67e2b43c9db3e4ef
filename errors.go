package ucub

import (
	"fmt"

	"github.com/kolkov/ucub/ast"
	"github.com/kolkov/ucub/internal/vm"
)

// Sentinel errors, matched with errors.Is.
var (
	// ErrInvalidCondition is returned by the ast constructors when a loop or
	// if condition cannot produce a boolean.
	ErrInvalidCondition = ast.ErrInvalidCondition

	// ErrStepLimit is returned by Program.Run when the instruction budget
	// is exhausted.
	ErrStepLimit = vm.ErrStepLimit

	// ErrDivideByZero is returned by Program.Run on division or modulo by zero.
	ErrDivideByZero = vm.ErrDivideByZero
)

// CompileError represents a lowering failure.
type CompileError struct {
	Kind    string // "invariant" or "reference"
	Line    int    // 1-based line number, 0 if unknown
	Column  int    // 1-based column number
	Message string // Error description
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s error at %d:%d: %s", e.Kind, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// RuntimeError represents a fault raised by the reference interpreter.
type RuntimeError struct {
	Addr    int    // Address of the faulting instruction
	Line    int    // 1-based source line of the instruction, 0 if unknown
	Column  int    // 1-based source column
	Message string // Error description

	err error
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("runtime error at %d:%d (%04d): %s", e.Line, e.Column, e.Addr, e.Message)
	}
	return fmt.Sprintf("runtime error (%04d): %s", e.Addr, e.Message)
}

// Unwrap returns the underlying fault, such as ErrStepLimit.
func (e *RuntimeError) Unwrap() error {
	return e.err
}

func convertRuntimeError(fault *vm.Error) *RuntimeError {
	return &RuntimeError{
		Addr:    int(fault.Addr),
		Line:    fault.Span.Start.Line,
		Column:  fault.Span.Start.Column,
		Message: fault.Err.Error(),
		err:     fault.Err,
	}
}
