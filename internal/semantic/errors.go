// Package semantic resolves names before lowering.
//
// It performs:
//   - Function collection: every declaration is known before any call is
//     lowered, so calls may precede declarations
//   - Declaration checking: duplicate and nested functions
//   - Scope analysis: global and per-function symbol tables that hand out
//     variable slots
//
// Variables are created on first use: in the global scope at top level and
// as frame locals inside a function. Names are compared in NFC form.
package semantic

import (
	"fmt"
	"strings"

	"github.com/kolkov/ucub/token"
)

// Error represents a resolution error with source location.
type Error struct {
	Span    token.Span
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if !e.Span.IsValid() {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Span.Start, e.Message)
}

// Warning represents a non-fatal finding.
type Warning struct {
	Span    token.Span
	Message string
}

// String returns the warning as a formatted string.
func (w *Warning) String() string {
	return fmt.Sprintf("%s: warning: %s", w.Span.Start, w.Message)
}

// ErrorList is a collection of resolution errors in source order.
type ErrorList []*Error

// Add appends an error to the list.
func (el *ErrorList) Add(span token.Span, format string, args ...any) {
	*el = append(*el, &Error{
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	})
}

// Err returns an error if the list is non-empty, nil otherwise.
func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}

// Error implements the error interface for ErrorList.
func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	default:
		var sb strings.Builder
		sb.WriteString(el[0].Error())
		for _, e := range el[1:] {
			sb.WriteByte('\n')
			sb.WriteString(e.Error())
		}
		return sb.String()
	}
}

// WarningList is a collection of warnings.
type WarningList []*Warning

// Add appends a warning to the list.
func (wl *WarningList) Add(span token.Span, format string, args ...any) {
	*wl = append(*wl, &Warning{
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	})
}

const (
	errDuplicateFunc = "function %q already defined"
	errNestedFunc    = "function %q declared inside another function"
	warnUnusedFunc   = "function %q is declared but never called"
)
