package ast

import "github.com/kolkov/ucub/token"

// Program is the root of one compiled unit: its top-level statements in
// source order. Function declarations may appear anywhere among them.
type Program struct {
	// Source file name (for error messages)
	Filename string

	// Stmts are the top-level statements.
	Stmts []Stmt

	// Position information for the entire program.
	StartPos token.Position
	EndPos   token.Position
}

// NewProgram returns a program rooted at stmts. An unknown span is
// widened to cover the statements' ranges.
func NewProgram(stmts []Stmt, span token.Span) *Program {
	if !span.IsValid() {
		for _, s := range stmts {
			if s != nil {
				span = span.Cover(s.Span())
			}
		}
	}
	return &Program{Stmts: stmts, StartPos: span.Start, EndPos: span.End, Filename: span.Start.Filename}
}

// Pos returns the position of the first token in the program.
func (p *Program) Pos() token.Position { return p.StartPos }

// End returns the position after the last token in the program.
func (p *Program) End() token.Position { return p.EndPos }

// Span returns the program's source range.
func (p *Program) Span() token.Span { return token.MakeSpan(p.StartPos, p.EndPos) }

// Children returns the top-level statements.
func (p *Program) Children() []Node {
	out := make([]Node, 0, len(p.Stmts))
	for _, s := range p.Stmts {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Label returns "program" or the program's file name.
func (p *Program) Label() string {
	if p.Filename != "" {
		return "program " + p.Filename
	}
	return "program"
}

var _ Node = (*Program)(nil)
