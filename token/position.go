package token

import "fmt"

// Position is a point in a source file. Line and Column are 1-based; the
// zero Position is unknown.
type Position struct {
	Filename string // Optional source name
	Line     int
	Column   int // Byte column on the line
}

// String formats the position as "file:line:col", or "line:col" without a
// file name.
func (p Position) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// IsValid reports whether the position is known.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Compare orders positions by line, then column. File names are ignored.
func (p Position) Compare(q Position) int {
	switch {
	case p.Line != q.Line:
		return cmpInt(p.Line, q.Line)
	default:
		return cmpInt(p.Column, q.Column)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Span is the source range [Start, End) of a node. The zero Span is unknown.
type Span struct {
	Start Position
	End   Position
}

// MakeSpan returns the span [start, end).
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// String formats the span as "line:col-col" on one line, "line:col-line:col"
// across lines, and "-" when unknown.
func (s Span) String() string {
	switch {
	case !s.IsValid():
		return "-"
	case s.Start.Line == s.End.Line:
		return fmt.Sprintf("%s-%d", s.Start, s.End.Column)
	default:
		return fmt.Sprintf("%s-%d:%d", s.Start, s.End.Line, s.End.Column)
	}
}

// IsValid reports whether the span carries a known start position.
func (s Span) IsValid() bool {
	return s.Start.IsValid()
}

// Contains reports whether p lies inside the span.
func (s Span) Contains(p Position) bool {
	return s.Start.Compare(p) <= 0 && p.Compare(s.End) < 0
}

// Cover returns the smallest span holding both s and t. An unknown span
// yields the other.
func (s Span) Cover(t Span) Span {
	switch {
	case !s.IsValid():
		return t
	case !t.IsValid():
		return s
	}
	out := s
	if t.Start.Compare(out.Start) < 0 {
		out.Start = t.Start
	}
	if t.End.Compare(out.End) > 0 {
		out.End = t.End
	}
	return out
}

// NoPos is the unknown Position.
var NoPos = Position{}

// NoSpan is the unknown Span.
var NoSpan = Span{}
