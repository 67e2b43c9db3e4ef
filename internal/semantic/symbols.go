package semantic

import (
	"golang.org/x/text/unicode/norm"

	"github.com/kolkov/ucub/ast"
	"github.com/kolkov/ucub/token"
)

// SymbolKind defines the category of a symbol.
type SymbolKind int

const (
	SymbolGlobal SymbolKind = iota // Global variable (created on first use)
	SymbolLocal                    // Variable declared or first used inside a function
	SymbolParam                    // Function parameter
)

// String returns a human-readable name for the symbol kind.
func (k SymbolKind) String() string {
	switch k {
	case SymbolGlobal:
		return "global"
	case SymbolLocal:
		return "local"
	case SymbolParam:
		return "param"
	default:
		return "unknown"
	}
}

// Symbol holds information about a declared variable.
type Symbol struct {
	Name  string         // Symbol name (NFC)
	Kind  SymbolKind     // Category
	Index int            // Slot in its scope: global slot or frame slot
	Pos   token.Position // Declaration or first-use position
}

// IsGlobal returns true if the symbol lives in the global slots.
func (s *Symbol) IsGlobal() bool {
	return s.Kind == SymbolGlobal
}

// SymbolTable implements a two-level symbol table: the global scope and,
// for each function, a scope whose parent is the global one. Slots are
// numbered densely in declaration order within each table.
type SymbolTable struct {
	parent  *SymbolTable
	symbols map[string]*Symbol
	order   []*Symbol
}

// NewSymbolTable creates a new symbol table with the given parent.
// Pass nil for the global scope.
func NewSymbolTable(parent *SymbolTable) *SymbolTable {
	return &SymbolTable{
		parent:  parent,
		symbols: make(map[string]*Symbol),
	}
}

// IsGlobal returns true for the root scope.
func (st *SymbolTable) IsGlobal() bool {
	return st.parent == nil
}

// Define adds a new symbol to the current scope and gives it the next slot.
// If the name already exists in this scope, the existing symbol is returned
// with false.
func (st *SymbolTable) Define(name string, kind SymbolKind, pos token.Position) (*Symbol, bool) {
	name = norm.NFC.String(name)
	if sym, exists := st.symbols[name]; exists {
		return sym, false
	}
	sym := &Symbol{
		Name:  name,
		Kind:  kind,
		Index: len(st.order),
		Pos:   pos,
	}
	st.symbols[name] = sym
	st.order = append(st.order, sym)
	return sym, true
}

// Lookup searches for a symbol in this scope and all parent scopes.
// Returns the symbol and true if found, nil and false otherwise.
func (st *SymbolTable) Lookup(name string) (*Symbol, bool) {
	name = norm.NFC.String(name)
	for scope := st; scope != nil; scope = scope.parent {
		if sym, ok := scope.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// Resolve returns the symbol name refers to, declaring it in this scope
// when no enclosing scope knows it. Variables come into existence on first
// use: globally at top level, as frame locals inside a function.
func (st *SymbolTable) Resolve(name string, pos token.Position) *Symbol {
	if sym, ok := st.Lookup(name); ok {
		return sym
	}
	kind := SymbolLocal
	if st.IsGlobal() {
		kind = SymbolGlobal
	}
	sym, _ := st.Define(name, kind, pos)
	return sym
}

// Names returns the symbol names of this scope in slot order.
func (st *SymbolTable) Names() []string {
	names := make([]string, len(st.order))
	for i, sym := range st.order {
		names[i] = sym.Name
	}
	return names
}

// Count returns the number of symbols in the current scope.
func (st *SymbolTable) Count() int {
	return len(st.order)
}

// FuncInfo holds resolved information about a user-defined function.
type FuncInfo struct {
	Name   string        // Function name (NFC)
	Params []string      // Parameter names, in order
	Index  int           // Index in the function table
	Span   token.Span    // Declaration range
	Decl   *ast.FuncDecl // Declaration the entry was collected from
	Called bool          // Whether any call refers to the function
}

// Arity returns the number of parameters.
func (fi *FuncInfo) Arity() int {
	return len(fi.Params)
}
