// Package token defines source positions and the operator tokens carried by
// syntax nodes. Scanning itself belongs to the front end.
package token

// Token represents an operator token.
type Token uint8

const (
	ILLEGAL Token = iota // <illegal>

	// Arithmetic
	operatorStart
	ADD        // +
	ADD_ASSIGN // +=
	SUB        // -
	SUB_ASSIGN // -=
	MUL        // *
	MUL_ASSIGN // *=
	DIV        // /
	DIV_ASSIGN // /=
	MOD        // %
	MOD_ASSIGN // %=
	POW        // ^
	POW_ASSIGN // ^=
	CONCAT     // ..

	ASSIGN     // =
	EQUALS     // ==
	NOT_EQUALS // !=
	LESS       // <
	LTE        // <=
	GREATER    // >
	GTE        // >=

	AND       // &&
	OR        // ||
	NOT       // !
	MATCH     // ~
	NOT_MATCH // !~
	operatorEnd
)

var tokenNames = [...]string{
	ILLEGAL:    "<illegal>",
	ADD:        "+",
	ADD_ASSIGN: "+=",
	SUB:        "-",
	SUB_ASSIGN: "-=",
	MUL:        "*",
	MUL_ASSIGN: "*=",
	DIV:        "/",
	DIV_ASSIGN: "/=",
	MOD:        "%",
	MOD_ASSIGN: "%=",
	POW:        "^",
	POW_ASSIGN: "^=",
	CONCAT:     "..",
	ASSIGN:     "=",
	EQUALS:     "==",
	NOT_EQUALS: "!=",
	LESS:       "<",
	LTE:        "<=",
	GREATER:    ">",
	GTE:        ">=",
	AND:        "&&",
	OR:         "||",
	NOT:        "!",
	MATCH:      "~",
	NOT_MATCH:  "!~",
}

// String returns the operator's source spelling.
func (t Token) String() string {
	if int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return "<illegal>"
}

// IsOperator returns true if the token is an operator.
func (t Token) IsOperator() bool {
	return t > operatorStart && t < operatorEnd
}

// IsComparison reports whether t compares two operands and yields a boolean.
func (t Token) IsComparison() bool {
	switch t {
	case EQUALS, NOT_EQUALS, LESS, LTE, GREATER, GTE:
		return true
	}
	return false
}

// IsLogical reports whether t is a short-circuit logical operator.
func (t Token) IsLogical() bool {
	return t == AND || t == OR
}

// IsAssign reports whether t is plain or augmented assignment.
func (t Token) IsAssign() bool {
	switch t {
	case ASSIGN, ADD_ASSIGN, SUB_ASSIGN, MUL_ASSIGN, DIV_ASSIGN, MOD_ASSIGN, POW_ASSIGN:
		return true
	}
	return false
}

// BaseOp returns the arithmetic operator behind an augmented assignment
// (ADD for ADD_ASSIGN and so on), or ILLEGAL for anything else.
func (t Token) BaseOp() Token {
	switch t {
	case ADD_ASSIGN:
		return ADD
	case SUB_ASSIGN:
		return SUB
	case MUL_ASSIGN:
		return MUL
	case DIV_ASSIGN:
		return DIV
	case MOD_ASSIGN:
		return MOD
	case POW_ASSIGN:
		return POW
	default:
		return ILLEGAL
	}
}
