package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer provides pretty-printing for AST nodes.
// It outputs one node per line, children indented under their parent.
type Printer struct {
	w      io.Writer
	indent int
	spans  bool
	err    error
}

// NewPrinter creates a new Printer that writes to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// WithSpans makes the printer append each node's source range.
func (p *Printer) WithSpans() *Printer {
	p.spans = true
	return p
}

// Print writes a pretty-printed representation of the node to the writer.
func (p *Printer) Print(node Node) error {
	p.printNode(node)
	return p.err
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) writeIndent() {
	if p.err != nil {
		return
	}
	for i := 0; i < p.indent; i++ {
		_, p.err = io.WriteString(p.w, "    ")
	}
}

func (p *Printer) printNode(node Node) {
	p.writeIndent()
	if node == nil {
		p.printf("<nil>\n")
		return
	}
	if p.spans && node.Span().IsValid() {
		p.printf("%s @%s\n", node.Label(), node.Span())
	} else {
		p.printf("%s\n", node.Label())
	}
	p.indent++
	for _, c := range node.Children() {
		p.printNode(c)
	}
	p.indent--
}

// String returns a string representation of the node.
func String(node Node) string {
	var sb strings.Builder
	p := NewPrinter(&sb)
	_ = p.Print(node)
	return sb.String()
}

// Fprint writes the tree rooted at node to w, one node per line.
func Fprint(w io.Writer, node Node) error {
	return NewPrinter(w).Print(node)
}
