package compiler

import (
	"github.com/kolkov/ucub/ast"
	"github.com/kolkov/ucub/internal/semantic"
	"github.com/kolkov/ucub/token"
)

// Context is the mutable state of one lowering pass: the address allocator,
// the loop-control stacks and the variable scopes. It is created once per
// compiled unit and must not be shared between concurrent passes.
type Context struct {
	base Address
	next Address

	// One entry per open enclosing loop, innermost last.
	continues []Address
	breaks    [][]Address

	globals *semantic.SymbolTable
	scope   *semantic.SymbolTable
}

// NewContext returns a context whose first allocated address is base.
func NewContext(base Address) *Context {
	globals := semantic.NewSymbolTable(nil)
	return &Context{
		base:    base,
		next:    base,
		globals: globals,
		scope:   globals,
	}
}

// Base returns the first address of the unit.
func (c *Context) Base() Address {
	return c.base
}

// AllocateNextAddress returns a never-before-used address, strictly greater
// than every address allocated so far.
func (c *Context) AllocateNextAddress() Address {
	a := c.next
	c.next++
	return a
}

// PeekNextAddress returns the address AllocateNextAddress would return next,
// without consuming it.
func (c *Context) PeekNextAddress() Address {
	return c.next
}

// PushContinueTarget opens a loop whose re-entry point is a.
func (c *Context) PushContinueTarget(a Address) {
	c.continues = append(c.continues, a)
}

// PopContinueTarget closes the innermost loop's continue anchor. Popping an
// empty stack is an invariant error reported at n.
func (c *Context) PopContinueTarget(n ast.Node) (Address, error) {
	if len(c.continues) == 0 {
		return 0, invariantf(nodeSpan(n), "continue-target stack underflow at %s", nodeLabel(n))
	}
	i := len(c.continues) - 1
	a := c.continues[i]
	c.continues = c.continues[:i]
	return a, nil
}

// ContinueTarget returns the innermost loop's re-entry address.
func (c *Context) ContinueTarget() (Address, bool) {
	if len(c.continues) == 0 {
		return 0, false
	}
	return c.continues[len(c.continues)-1], true
}

// PushBreakTarget opens a break frame for a loop whose exit is not yet known.
func (c *Context) PushBreakTarget() {
	c.breaks = append(c.breaks, nil)
}

// AddBreak records a pending jump at a that must be patched to the
// innermost loop's exit. It returns false when no loop is open.
func (c *Context) AddBreak(a Address) bool {
	if len(c.breaks) == 0 {
		return false
	}
	i := len(c.breaks) - 1
	c.breaks[i] = append(c.breaks[i], a)
	return true
}

// PopBreakTarget closes the innermost break frame and returns the pending
// jumps it collected. Popping an empty stack is an invariant error reported at n.
func (c *Context) PopBreakTarget(n ast.Node) ([]Address, error) {
	if len(c.breaks) == 0 {
		return nil, invariantf(nodeSpan(n), "break-target stack underflow at %s", nodeLabel(n))
	}
	i := len(c.breaks) - 1
	pending := c.breaks[i]
	c.breaks = c.breaks[:i]
	return pending, nil
}

// LoopDepth returns the depth of the continue and break stacks.
func (c *Context) LoopDepth() (continues, breaks int) {
	return len(c.continues), len(c.breaks)
}

// EnterFunction opens the scope of a function body. Its parameters take
// the first frame slots. Loop-control stacks are emptied for the body, so
// no break or continue can cross the function boundary. The returned func
// restores the enclosing state.
func (c *Context) EnterFunction(params []string) (restore func()) {
	savedScope, savedContinues, savedBreaks := c.scope, c.continues, c.breaks
	c.scope = semantic.NewSymbolTable(c.globals)
	for _, p := range params {
		c.scope.Define(p, semantic.SymbolParam, token.NoPos)
	}
	c.continues, c.breaks = nil, nil
	return func() {
		c.scope, c.continues, c.breaks = savedScope, savedContinues, savedBreaks
	}
}

// InFunction reports whether a function body is being lowered.
func (c *Context) InFunction() bool {
	return !c.scope.IsGlobal()
}

// FrameSize returns the number of slots of the current function frame.
func (c *Context) FrameSize() int {
	if c.scope.IsGlobal() {
		return 0
	}
	return c.scope.Count()
}

// Lookup resolves a variable reference, declaring it in the current scope
// on first use.
func (c *Context) Lookup(name string, pos token.Position) *semantic.Symbol {
	return c.scope.Resolve(name, pos)
}

// Declare binds name in the current scope, shadowing any global of the same
// name inside a function.
func (c *Context) Declare(name string, pos token.Position) *semantic.Symbol {
	kind := semantic.SymbolLocal
	if c.scope.IsGlobal() {
		kind = semantic.SymbolGlobal
	}
	sym, _ := c.scope.Define(name, kind, pos)
	return sym
}

// Globals returns the global variable names in slot order.
func (c *Context) Globals() []string {
	return c.globals.Names()
}

func nodeSpan(n ast.Node) token.Span {
	if n == nil {
		return token.NoSpan
	}
	return n.Span()
}

func nodeLabel(n ast.Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.Label()
}
