package ast

import (
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/kolkov/ucub/token"
)

// -----------------------------------------------------------------------------
// Literals
// -----------------------------------------------------------------------------

// NumLit represents a numeric literal.
// Examples: 42, 3.14, 1e10
type NumLit struct {
	BaseExpr
	Value float64 // Parsed numeric value
	Raw   string  // Original source text (optional)
}

// StrLit represents a string literal.
type StrLit struct {
	BaseExpr
	Value string // Unescaped string value
}

// BoolLit represents true or false.
type BoolLit struct {
	BaseExpr
	Value bool
}

// -----------------------------------------------------------------------------
// References
// -----------------------------------------------------------------------------

// Ident represents a variable reference.
type Ident struct {
	BaseExpr
	Name string // NFC-normalized name
}

// -----------------------------------------------------------------------------
// Operations
// -----------------------------------------------------------------------------

// BinaryExpr represents a binary operation.
// Examples: a + b, x == y, s ~ "^a+", a && b, s .. t
type BinaryExpr struct {
	BaseExpr
	Left  Expr        // Left operand
	Op    token.Token // Operator token
	Right Expr        // Right operand
}

// UnaryExpr represents a unary operation: -x or !flag.
type UnaryExpr struct {
	BaseExpr
	Op   token.Token // SUB or NOT
	Expr Expr        // Operand
}

// GroupExpr represents a parenthesized expression.
type GroupExpr struct {
	BaseExpr
	Expr Expr
}

// CallExpr represents a call of a user-defined function.
// Example: fib(n - 1)
type CallExpr struct {
	BaseExpr
	Name string // NFC-normalized function name
	Args []Expr
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

// NewIdent returns an identifier with its name normalized to NFC.
func NewIdent(name string, span token.Span) *Ident {
	return &Ident{BaseExpr: MakeBaseExpr(span), Name: NormalizeName(name)}
}

// NewCallExpr returns a call expression with its callee name normalized to NFC.
func NewCallExpr(name string, args []Expr, span token.Span) *CallExpr {
	return &CallExpr{BaseExpr: MakeBaseExpr(span), Name: NormalizeName(name), Args: args}
}

// NormalizeName returns the canonical (NFC) spelling of an identifier, so that
// canonically equivalent spellings name the same entity.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// -----------------------------------------------------------------------------
// Children and labels
// -----------------------------------------------------------------------------

func (n *NumLit) Children() []Node  { return nil }
func (n *StrLit) Children() []Node  { return nil }
func (n *BoolLit) Children() []Node { return nil }
func (n *Ident) Children() []Node   { return nil }

func (n *BinaryExpr) Children() []Node { return nodes(n.Left, n.Right) }
func (n *UnaryExpr) Children() []Node  { return nodes(n.Expr) }
func (n *GroupExpr) Children() []Node  { return nodes(n.Expr) }

func (n *CallExpr) Children() []Node {
	out := make([]Node, 0, len(n.Args))
	for _, a := range n.Args {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}

func (n *NumLit) Label() string {
	if n.Raw != "" {
		return n.Raw
	}
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

func (n *StrLit) Label() string     { return strconv.Quote(n.Value) }
func (n *BoolLit) Label() string    { return strconv.FormatBool(n.Value) }
func (n *Ident) Label() string      { return n.Name }
func (n *BinaryExpr) Label() string { return n.Op.String() }
func (n *UnaryExpr) Label() string  { return n.Op.String() }
func (n *GroupExpr) Label() string  { return "()" }
func (n *CallExpr) Label() string   { return "call " + n.Name }

// Ensure all expression types implement Expr interface.
var (
	_ Expr = (*NumLit)(nil)
	_ Expr = (*StrLit)(nil)
	_ Expr = (*BoolLit)(nil)
	_ Expr = (*Ident)(nil)
	_ Expr = (*BinaryExpr)(nil)
	_ Expr = (*UnaryExpr)(nil)
	_ Expr = (*GroupExpr)(nil)
	_ Expr = (*CallExpr)(nil)
)
