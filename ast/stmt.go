package ast

import (
	"strings"

	"github.com/kolkov/ucub/token"
)

// -----------------------------------------------------------------------------
// Simple statements
// -----------------------------------------------------------------------------

// ExprStmt represents an expression used as a statement; its value is discarded.
// Example: log(x)
type ExprStmt struct {
	BaseStmt
	Expr Expr
}

// AssignStmt represents plain or augmented assignment to a variable.
// Examples: x = 5, total += n
type AssignStmt struct {
	BaseStmt
	Target *Ident
	Op     token.Token // ASSIGN or one of the *_ASSIGN tokens
	Value  Expr
}

// VarDecl declares a variable in the current scope, optionally initialized.
// Example: var count = 0
type VarDecl struct {
	BaseStmt
	Name  *Ident
	Value Expr // nil declares the variable as null
}

// BlockStmt represents a block of statements forming a lexical body.
type BlockStmt struct {
	BaseStmt
	Stmts []Stmt
}

// NewBlockStmt returns a block of stmts.
func NewBlockStmt(stmts []Stmt, span token.Span) *BlockStmt {
	return &BlockStmt{BaseStmt: MakeBaseStmt(span), Stmts: stmts}
}

// -----------------------------------------------------------------------------
// Conditional statements
// -----------------------------------------------------------------------------

// IfStmt represents if / if-else / else-if chains.
// Build it with NewIfStmt; the condition is validated once at construction.
type IfStmt struct {
	BaseStmt
	cond Node
	then *BlockStmt
	els  Stmt // nil, *BlockStmt or *IfStmt
}

// NewIfStmt validates cond and builds an if statement. els may be nil, a
// block, or another if statement (else-if).
func NewIfStmt(cond Node, then *BlockStmt, els Stmt, span token.Span) (*IfStmt, error) {
	if err := checkCondition("if", cond, span); err != nil {
		return nil, err
	}
	if then == nil {
		return nil, errorAt(span, "if", ErrMissingBody)
	}
	switch e := els.(type) {
	case nil:
	case *BlockStmt, *IfStmt:
		if isNil(e) {
			els = nil
		}
	default:
		return nil, errorAt(els.Span(), "if", ErrInvalidElse)
	}
	return &IfStmt{BaseStmt: MakeBaseStmt(span), cond: cond, then: then, els: els}, nil
}

// Cond returns the condition.
func (s *IfStmt) Cond() Node { return s.cond }

// Then returns the block taken when the condition holds.
func (s *IfStmt) Then() *BlockStmt { return s.then }

// Else returns the alternative branch, or nil.
func (s *IfStmt) Else() Stmt { return s.els }

// -----------------------------------------------------------------------------
// Loop statements
// -----------------------------------------------------------------------------

// WhileStmt represents a while loop.
// Example: while (x < 3) { x = x + 1 }
type WhileStmt struct {
	BaseStmt
	cond Node
	body *BlockStmt
}

// NewWhileStmt validates cond and builds a while loop.
func NewWhileStmt(cond Node, body *BlockStmt, span token.Span) (*WhileStmt, error) {
	if err := checkCondition("while", cond, span); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errorAt(span, "while", ErrMissingBody)
	}
	return &WhileStmt{BaseStmt: MakeBaseStmt(span), cond: cond, body: body}, nil
}

func (s *WhileStmt) Cond() Node       { return s.cond }
func (s *WhileStmt) Body() *BlockStmt { return s.body }

// DoWhileStmt represents a loop whose body runs before the first test.
// Example: do { x = x - 1 } while (x > 0)
type DoWhileStmt struct {
	BaseStmt
	cond Node
	body *BlockStmt
}

// NewDoWhileStmt validates cond and builds a do-while loop.
func NewDoWhileStmt(body *BlockStmt, cond Node, span token.Span) (*DoWhileStmt, error) {
	if err := checkCondition("do", cond, span); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errorAt(span, "do", ErrMissingBody)
	}
	return &DoWhileStmt{BaseStmt: MakeBaseStmt(span), cond: cond, body: body}, nil
}

func (s *DoWhileStmt) Cond() Node       { return s.cond }
func (s *DoWhileStmt) Body() *BlockStmt { return s.body }

// ForStmt represents a C-style for loop.
// Example: for (var i = 0; i < 10; i += 1) { ... }
type ForStmt struct {
	BaseStmt
	init Stmt
	cond Node
	post Stmt
	body *BlockStmt
}

// NewForStmt validates the clauses and builds a for loop. init, cond and
// post may each be nil; a nil condition loops until a break.
func NewForStmt(init Stmt, cond Node, post Stmt, body *BlockStmt, span token.Span) (*ForStmt, error) {
	if isNil(init) {
		init = nil
	}
	if isNil(post) {
		post = nil
	}
	if init != nil && !isSimpleStmt(init, true) {
		return nil, errorAt(init.Span(), "for", ErrInvalidClause)
	}
	if post != nil && !isSimpleStmt(post, false) {
		return nil, errorAt(post.Span(), "for", ErrInvalidClause)
	}
	if cond != nil {
		if err := checkCondition("for", cond, span); err != nil {
			return nil, err
		}
	}
	if body == nil {
		return nil, errorAt(span, "for", ErrMissingBody)
	}
	return &ForStmt{BaseStmt: MakeBaseStmt(span), init: init, cond: cond, post: post, body: body}, nil
}

func (s *ForStmt) Init() Stmt       { return s.init }
func (s *ForStmt) Cond() Node       { return s.cond }
func (s *ForStmt) Post() Stmt       { return s.post }
func (s *ForStmt) Body() *BlockStmt { return s.body }

// -----------------------------------------------------------------------------
// Control flow statements
// -----------------------------------------------------------------------------

// BreakStmt exits the innermost enclosing loop.
type BreakStmt struct {
	BaseStmt
}

// ContinueStmt jumps to the re-entry point of the innermost enclosing loop.
type ContinueStmt struct {
	BaseStmt
}

// ReturnStmt returns from the current function, optionally with a value.
type ReturnStmt struct {
	BaseStmt
	Value Expr // nil for bare return
}

// -----------------------------------------------------------------------------
// Declarations
// -----------------------------------------------------------------------------

// FuncDecl declares a function. Declarations are hoisted: a function may be
// called before the statement that declares it.
type FuncDecl struct {
	BaseStmt
	Name   string
	Params []*Ident
	Body   *BlockStmt
}

// NewFuncDecl builds a function declaration, normalizing its name and
// rejecting nil or repeated parameters.
func NewFuncDecl(name string, params []*Ident, body *BlockStmt, span token.Span) (*FuncDecl, error) {
	if body == nil {
		return nil, errorAt(span, "func", ErrMissingBody)
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p == nil {
			return nil, errorAt(span, "func", ErrMissingParam)
		}
		if seen[p.Name] {
			return nil, errorAt(p.Span(), "func", ErrDuplicateParam)
		}
		seen[p.Name] = true
	}
	return &FuncDecl{BaseStmt: MakeBaseStmt(span), Name: NormalizeName(name), Params: params, Body: body}, nil
}

// -----------------------------------------------------------------------------
// Children and labels
// -----------------------------------------------------------------------------

func (s *ExprStmt) Children() []Node { return nodes(s.Expr) }

func (s *AssignStmt) Children() []Node {
	if s.Target == nil {
		return nodes(s.Value)
	}
	return nodes(s.Target, s.Value)
}

func (s *VarDecl) Children() []Node {
	if s.Name == nil {
		return nodes(s.Value)
	}
	return nodes(s.Name, s.Value)
}

func (s *BlockStmt) Children() []Node {
	out := make([]Node, 0, len(s.Stmts))
	for _, st := range s.Stmts {
		if st != nil {
			out = append(out, st)
		}
	}
	return out
}

func (s *IfStmt) Children() []Node      { return nodes(s.cond, blockNode(s.then), s.els) }
func (s *WhileStmt) Children() []Node   { return nodes(s.cond, blockNode(s.body)) }
func (s *DoWhileStmt) Children() []Node { return nodes(blockNode(s.body), s.cond) }

func (s *ForStmt) Children() []Node {
	return nodes(s.init, s.cond, s.post, blockNode(s.body))
}

func (s *BreakStmt) Children() []Node    { return nil }
func (s *ContinueStmt) Children() []Node { return nil }
func (s *ReturnStmt) Children() []Node   { return nodes(s.Value) }

func (s *FuncDecl) Children() []Node {
	out := make([]Node, 0, len(s.Params)+1)
	for _, p := range s.Params {
		out = append(out, p)
	}
	if s.Body != nil {
		out = append(out, s.Body)
	}
	return out
}

func (s *ExprStmt) Label() string     { return "expr" }
func (s *AssignStmt) Label() string   { return s.Op.String() }
func (s *VarDecl) Label() string      { return "var" }
func (s *BlockStmt) Label() string    { return "block" }
func (s *IfStmt) Label() string       { return "if" }
func (s *WhileStmt) Label() string    { return "while" }
func (s *DoWhileStmt) Label() string  { return "do" }
func (s *ForStmt) Label() string      { return "for" }
func (s *BreakStmt) Label() string    { return "break" }
func (s *ContinueStmt) Label() string { return "continue" }
func (s *ReturnStmt) Label() string   { return "return" }

func (s *FuncDecl) Label() string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return "func " + s.Name + "(" + strings.Join(names, ", ") + ")"
}

func blockNode(b *BlockStmt) Node {
	if b == nil {
		return nil
	}
	return b
}

// Ensure all statement types implement Stmt interface.
var (
	_ Stmt = (*ExprStmt)(nil)
	_ Stmt = (*AssignStmt)(nil)
	_ Stmt = (*VarDecl)(nil)
	_ Stmt = (*BlockStmt)(nil)
	_ Stmt = (*IfStmt)(nil)
	_ Stmt = (*BreakStmt)(nil)
	_ Stmt = (*ContinueStmt)(nil)
	_ Stmt = (*ReturnStmt)(nil)
	_ Stmt = (*FuncDecl)(nil)

	_ Loop = (*WhileStmt)(nil)
	_ Loop = (*DoWhileStmt)(nil)
	_ Loop = (*ForStmt)(nil)
)
