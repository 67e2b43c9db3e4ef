package ast

// Walk traverses an AST in depth-first order.
// For each node, it calls fn(node). If fn returns false,
// the children of that node are not visited.
//
// Example: Count all identifiers
//
//	count := 0
//	ast.Walk(program, func(n ast.Node) bool {
//	    if _, ok := n.(*ast.Ident); ok {
//	        count++
//	    }
//	    return true // continue traversal
//	})
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, c := range node.Children() {
		Walk(c, fn)
	}
}

// Inspect traverses an AST with parent tracking.
// For each node, it calls fn(node, parent). The parent is nil for the root node.
// If fn returns false, the children of that node are not visited.
func Inspect(node Node, fn func(node, parent Node) bool) {
	inspect(node, nil, fn)
}

func inspect(node, parent Node, fn func(node, parent Node) bool) {
	if node == nil || !fn(node, parent) {
		return
	}
	for _, c := range node.Children() {
		inspect(c, node, fn)
	}
}

// Collect returns every node of type T under root (root included), in
// depth-first source order.
//
//	funcs := ast.Collect[*ast.FuncDecl](program)
func Collect[T Node](root Node) []T {
	var out []T
	Walk(root, func(n Node) bool {
		if t, ok := n.(T); ok {
			out = append(out, t)
		}
		return true
	})
	return out
}

// Depth returns the maximum loop nesting depth under root.
func Depth(root Node) int {
	var deepest int
	var visit func(n Node, d int)
	visit = func(n Node, d int) {
		if _, ok := n.(Loop); ok {
			d++
			if d > deepest {
				deepest = d
			}
		}
		if _, ok := n.(*FuncDecl); ok {
			d = 0
		}
		for _, c := range n.Children() {
			visit(c, d)
		}
	}
	if root != nil {
		visit(root, 0)
	}
	return deepest
}
