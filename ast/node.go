// Package ast defines the syntax tree handed to the compiler by a front end.
//
// The node set is closed: every construct is one concrete type, and marker
// methods keep other packages from adding variants. Nodes are built once,
// validated by their constructors and treated as immutable afterwards.
//
// Node hierarchy:
//
//	Node (interface)
//	├── Expr (interface) - expressions that produce a value
//	│   ├── NumLit, StrLit, BoolLit - literals
//	│   ├── Ident - variable reference
//	│   ├── BinaryExpr, UnaryExpr, GroupExpr - operations
//	│   └── CallExpr - function call
//	├── Stmt (interface) - statements
//	│   ├── ExprStmt, AssignStmt, VarDecl - simple
//	│   ├── BlockStmt, IfStmt - structure
//	│   ├── WhileStmt, DoWhileStmt, ForStmt - loops (Loop interface)
//	│   ├── BreakStmt, ContinueStmt, ReturnStmt - control
//	│   └── FuncDecl - function declaration
//	└── Program - compiled unit root
package ast

import "github.com/kolkov/ucub/token"

// Node is the interface implemented by all AST nodes.
type Node interface {
	// Pos returns the position of the first character belonging to this node.
	Pos() token.Position

	// End returns the position of the first character immediately after this node.
	End() token.Position

	// Span returns the node's source range; the zero Span means unknown.
	Span() token.Span

	// Children returns the node's direct children in source order.
	// Absent optional children are omitted.
	Children() []Node

	// Label returns a short human-readable description of the node.
	Label() string
}

// Expr is the interface for all expression nodes.
type Expr interface {
	Node
	exprNode() // marker method to prevent external implementations
}

// Stmt is the interface for all statement nodes.
type Stmt interface {
	Node
	stmtNode() // marker method to prevent external implementations
}

// Loop is implemented by every loop-shaped statement.
type Loop interface {
	Stmt
	// Cond returns the loop condition; nil means always true.
	Cond() Node
	// Body returns the loop body.
	Body() *BlockStmt
}

// BaseExpr provides common fields for all expression nodes.
// Embedded in concrete expression types for position tracking.
type BaseExpr struct {
	StartPos token.Position // Position of first token
	EndPos   token.Position // Position after last token
}

func (b *BaseExpr) Pos() token.Position { return b.StartPos }
func (b *BaseExpr) End() token.Position { return b.EndPos }
func (b *BaseExpr) Span() token.Span    { return token.MakeSpan(b.StartPos, b.EndPos) }
func (b *BaseExpr) exprNode()           {}

// BaseStmt provides common fields for all statement nodes.
// Embedded in concrete statement types for position tracking.
type BaseStmt struct {
	StartPos token.Position // Position of first token
	EndPos   token.Position // Position after last token
}

func (b *BaseStmt) Pos() token.Position { return b.StartPos }
func (b *BaseStmt) End() token.Position { return b.EndPos }
func (b *BaseStmt) Span() token.Span    { return token.MakeSpan(b.StartPos, b.EndPos) }
func (b *BaseStmt) stmtNode()           {}

// MakeBaseExpr creates a BaseExpr covering span.
func MakeBaseExpr(span token.Span) BaseExpr {
	return BaseExpr{StartPos: span.Start, EndPos: span.End}
}

// MakeBaseStmt creates a BaseStmt covering span.
func MakeBaseStmt(span token.Span) BaseStmt {
	return BaseStmt{StartPos: span.Start, EndPos: span.End}
}

// nodes builds a child list, dropping absent children.
func nodes(ns ...Node) []Node {
	out := make([]Node, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}
