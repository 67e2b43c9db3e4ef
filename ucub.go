package ucub

import (
	"errors"

	"github.com/kolkov/ucub/ast"
	"github.com/kolkov/ucub/internal/compiler"
)

// Version is the ucub version string.
const Version = "0.1.0"

// Compile lowers a syntax tree into a verified instruction stream.
// The returned Program can be inspected and executed multiple times.
//
// If config is nil, default configuration is used. Compilation stops at the
// first error, which is returned as a *CompileError.
//
// Example:
//
//	loop, err := ast.NewWhileStmt(cond, body, span)
//	if err != nil {
//	    log.Fatal(err) // invalid condition, caught at construction
//	}
//	prog, err := ucub.Compile(ast.NewProgram([]ast.Stmt{loop}, span), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(prog.Disassemble())
func Compile(tree *ast.Program, config *Config) (*Program, error) {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	cfg.applyDefaults()

	compiled, err := compiler.Compile(tree, compiler.Options{
		Base:   compiler.Address(cfg.BaseAddress),
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &Program{compiled: compiled, config: cfg}, nil
}

// MustCompile is like Compile but panics if the tree cannot be compiled.
// It simplifies initialization of global program variables.
func MustCompile(tree *ast.Program, config *Config) *Program {
	prog, err := Compile(tree, config)
	if err != nil {
		panic(err)
	}
	return prog
}

// Run compiles tree and executes it on the reference interpreter.
// For repeated execution, use Compile followed by Program.Run.
func Run(tree *ast.Program, config *Config) (*Result, error) {
	prog, err := Compile(tree, config)
	if err != nil {
		return nil, err
	}
	return prog.Run(nil)
}

// convertCompileError converts an internal compiler error to the public type.
func convertCompileError(err error) error {
	var ce *compiler.Error
	if errors.As(err, &ce) {
		return &CompileError{
			Kind:    ce.Kind.String(),
			Line:    ce.Span.Start.Line,
			Column:  ce.Span.Start.Column,
			Message: ce.Message,
		}
	}
	return &CompileError{Kind: "invariant", Message: err.Error()}
}
