package ast

import (
	"reflect"

	"github.com/kolkov/ucub/token"
)

// IsCondition reports whether n may be used where a boolean is expected.
//
// Valid conditions are boolean literals, variable references, comparisons,
// logical and match operators, logical negation, calls, and parenthesized
// conditions. Numeric and string literals, arithmetic, concatenation, unary
// minus and every statement (assignment and declaration included) are not.
// Neither is a nil node of any type.
func IsCondition(n Node) bool {
	if isNil(n) {
		return false
	}
	switch e := n.(type) {
	case *BoolLit, *Ident, *CallExpr:
		return true
	case *BinaryExpr:
		return e.Op.IsComparison() || e.Op.IsLogical() ||
			e.Op == token.MATCH || e.Op == token.NOT_MATCH
	case *UnaryExpr:
		return e.Op == token.NOT
	case *GroupExpr:
		return e.Expr != nil && IsCondition(e.Expr)
	default:
		return false
	}
}

// checkCondition rejects cond unless it satisfies IsCondition. The error
// carries the condition's range when known, otherwise the construct's.
func checkCondition(construct string, cond Node, span token.Span) error {
	if IsCondition(cond) {
		return nil
	}
	at := span
	if !isNil(cond) && cond.Span().IsValid() {
		at = cond.Span()
	}
	return errorAt(at, construct, ErrInvalidCondition)
}

// isSimpleStmt reports whether s may appear as a for-loop clause.
// Declarations are only allowed in the init clause.
func isSimpleStmt(s Stmt, init bool) bool {
	switch s.(type) {
	case *ExprStmt, *AssignStmt:
		return true
	case *VarDecl:
		return init
	default:
		return false
	}
}

// isNil reports whether n is nil or a nil pointer of a node type.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
