// Package ucub lowers syntax trees of a small structured scripting language
// into a flat, address-indexed instruction stream with resolved jump targets.
//
// The package does not parse source text. A front end builds trees with the
// constructors of package [github.com/kolkov/ucub/ast], which validate loop
// and if conditions as the nodes are built:
//
//	cond := &ast.BinaryExpr{Left: ast.NewIdent("x", span), Op: token.LESS, Right: &ast.NumLit{Value: 3}}
//	loop, err := ast.NewWhileStmt(cond, body, span)
//	if errors.Is(err, ucub.ErrInvalidCondition) {
//	    // e.g. while (x = 5) { ... }
//	}
//
// # Compiling
//
// [Compile] lowers a tree into a [Program]. Every loop gets a continue target
// that is known before its body is lowered and an exit target resolved once
// the body's length is known; break statements are patched to the exit of
// their innermost loop.
//
//	prog, err := ucub.Compile(tree, &ucub.Config{BaseAddress: 100})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(prog.Disassemble())
//
// # Running
//
// [Program.Run] executes the unit on a reference interpreter, which exists
// to check lowered code rather than to serve as a production runtime. A step
// limit guards against programs that do not terminate:
//
//	res, err := prog.Run(&ucub.Config{StepLimit: 10_000})
//	if errors.Is(err, ucub.ErrStepLimit) {
//	    // endless loop
//	}
//	x, _ := res.Global("x")
//
// # Error Handling
//
// Errors are returned as specific types for detailed handling:
//   - [*ast.Error]: invalid node construction, such as an invalid condition
//   - [CompileError]: lowering failures (invariant or reference errors)
//   - [RuntimeError]: faults raised by the reference interpreter
//
// Compilation is fail-fast: the first error aborts the unit and no partial
// instruction stream is returned.
//
// # Logging
//
// Set [Config.Logger] to receive structured debug records from the
// compiler (one per lowered loop and one per unit) and from the interpreter.
package ucub
