package semantic

import (
	"github.com/kolkov/ucub/ast"
)

// ResolveResult contains the results of name resolution.
type ResolveResult struct {
	// User-defined functions by name
	Functions map[string]*FuncInfo

	// Functions in declaration order; FuncInfo.Index is the position here.
	FuncOrder []*FuncInfo

	// Errors encountered during resolution
	Errors ErrorList

	// Warnings (non-fatal issues)
	Warnings WarningList
}

// Lookup returns the function declared under name.
func (r *ResolveResult) Lookup(name string) (*FuncInfo, bool) {
	fi, ok := r.Functions[ast.NormalizeName(name)]
	return fi, ok
}

// Resolver performs name resolution on an AST.
type Resolver struct {
	result *ResolveResult
}

// Resolve collects the function declarations under root. Duplicate and
// nested declarations are errors; calls are only marked, not checked, so
// the lowering pass reports call errors in source order. The result is
// returned even when err is non-nil.
func Resolve(root ast.Node) (*ResolveResult, error) {
	r := &Resolver{
		result: &ResolveResult{
			Functions: make(map[string]*FuncInfo),
		},
	}

	// Phase 1: collect all function declarations
	r.collectFunctions(root)

	// Phase 2: mark called functions
	r.markCalls(root)

	// Phase 3: report functions nothing calls
	for _, fi := range r.result.FuncOrder {
		if !fi.Called {
			r.result.Warnings.Add(fi.Span, warnUnusedFunc, fi.Name)
		}
	}

	if err := r.result.Errors.Err(); err != nil {
		return r.result, err
	}
	return r.result, nil
}

// collectFunctions records every declaration without looking at bodies.
func (r *Resolver) collectFunctions(root ast.Node) {
	var visit func(n ast.Node, inFunc bool)
	visit = func(n ast.Node, inFunc bool) {
		if fn, ok := n.(*ast.FuncDecl); ok {
			if inFunc {
				r.result.Errors.Add(fn.Span(), errNestedFunc, fn.Name)
			} else {
				r.declare(fn)
			}
			inFunc = true
		}
		for _, c := range n.Children() {
			visit(c, inFunc)
		}
	}
	if root != nil {
		visit(root, false)
	}
}

func (r *Resolver) declare(fn *ast.FuncDecl) {
	if _, exists := r.result.Functions[fn.Name]; exists {
		r.result.Errors.Add(fn.Span(), errDuplicateFunc, fn.Name)
		return
	}
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name
	}
	fi := &FuncInfo{
		Name:   fn.Name,
		Params: params,
		Index:  len(r.result.FuncOrder),
		Span:   fn.Span(),
		Decl:   fn,
	}
	r.result.Functions[fn.Name] = fi
	r.result.FuncOrder = append(r.result.FuncOrder, fi)
}

func (r *Resolver) markCalls(root ast.Node) {
	for _, call := range ast.Collect[*ast.CallExpr](root) {
		if fi, ok := r.result.Functions[call.Name]; ok {
			fi.Called = true
		}
	}
}
