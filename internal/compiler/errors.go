package compiler

import (
	"fmt"

	"github.com/kolkov/ucub/token"
)

// ErrorKind classifies compilation failures.
type ErrorKind int

const (
	// KindInvariant reports inconsistent lowering state: loop-control stack
	// underflow, a loop-control or return statement outside its construct,
	// or a node missing a child its constructor guarantees.
	KindInvariant ErrorKind = iota

	// KindReference reports an unresolved name: unknown function, arity
	// mismatch, duplicate or nested function declaration.
	KindReference
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvariant:
		return "invariant"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Error represents a compilation error tied to the offending node.
type Error struct {
	Kind    ErrorKind
	Span    token.Span
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("%s: %s error: %s", e.Span.Start, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func invariantf(span token.Span, format string, args ...any) *Error {
	return &Error{Kind: KindInvariant, Span: span, Message: fmt.Sprintf(format, args...)}
}

func referencef(span token.Span, format string, args ...any) *Error {
	return &Error{Kind: KindReference, Span: span, Message: fmt.Sprintf(format, args...)}
}
