package ast

import (
	"errors"
	"fmt"

	"github.com/kolkov/ucub/token"
)

// Construction failures. Constructors wrap these in *Error.
var (
	// ErrInvalidCondition is returned when a node that cannot produce a
	// boolean (an assignment, a declaration, an arithmetic expression...) is
	// used as a condition.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrMissingBody is returned when a loop, conditional or function is
	// built without a body block.
	ErrMissingBody = errors.New("missing body")

	// ErrInvalidClause is returned for a for-loop init or post clause that is
	// not a simple statement.
	ErrInvalidClause = errors.New("invalid loop clause")

	// ErrInvalidElse is returned when an else branch is neither a block nor
	// an if statement.
	ErrInvalidElse = errors.New("invalid else branch")

	// ErrDuplicateParam is returned when a function names a parameter twice.
	ErrDuplicateParam = errors.New("duplicate parameter")

	// ErrMissingParam is returned for a nil entry in a parameter list.
	ErrMissingParam = errors.New("missing parameter")
)

// Error is a construction error tied to the source range of the node that
// could not be built.
type Error struct {
	Span token.Span // Range of the rejected node
	Node string     // Label of the construct being built ("while", "if"...)
	Err  error      // One of the Err* sentinels
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("%s: %s: %v", e.Span.Start, e.Node, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Node, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *Error) Unwrap() error {
	return e.Err
}

func errorAt(span token.Span, node string, err error) *Error {
	return &Error{Span: span, Node: node, Err: err}
}
