package ucub

import (
	"errors"

	"github.com/kolkov/ucub/ast"
	"github.com/kolkov/ucub/internal/compiler"
	"github.com/kolkov/ucub/internal/types"
	"github.com/kolkov/ucub/internal/vm"
)

// Program represents a compiled unit ready for inspection and execution.
// It is safe for concurrent use; each call to Run creates an
// independent interpreter.
type Program struct {
	compiled *compiler.Program
	config   Config
}

// Result holds the state left by a run.
type Result struct {
	// Globals maps each global variable to its final value: nil, float64,
	// string or bool.
	Globals map[string]any

	// Steps is the number of instructions executed.
	Steps int
}

// Global returns the final value of the named global. Canonically
// equivalent spellings of name find the same variable.
func (r *Result) Global(name string) (any, bool) {
	v, ok := r.Globals[ast.NormalizeName(name)]
	return v, ok
}

// Run executes the program on the reference interpreter until it halts.
// If config is nil, the configuration given to Compile is used; only its
// execution options (Logger, StepLimit, POSIXRegex) apply here.
func (p *Program) Run(config *Config) (*Result, error) {
	cfg := p.config
	if config != nil {
		cfg = *config
		cfg.applyDefaults()
	}

	limit := cfg.StepLimit
	if limit < 0 {
		limit = 0
	}
	v := vm.NewWithConfig(p.compiled, vm.VMConfig{
		POSIXRegex: cfg.posixRegex(),
		StepLimit:  limit,
		Logger:     cfg.Logger,
	})

	if err := v.Run(); err != nil {
		var fault *vm.Error
		if errors.As(err, &fault) {
			return nil, convertRuntimeError(fault)
		}
		return nil, &RuntimeError{Message: err.Error(), err: err}
	}

	globals := v.Globals()
	res := &Result{Globals: make(map[string]any, len(globals)), Steps: v.Steps()}
	for name, val := range globals {
		res.Globals[name] = export(val)
	}
	return res, nil
}

// Disassemble returns a human-readable representation of the compiled unit
// with its globals and function table.
func (p *Program) Disassemble() string {
	return p.compiled.Disassemble()
}

// Listing returns the bare instruction stream, one "addr: Op args" line
// per instruction.
func (p *Program) Listing() string {
	return p.compiled.Code.String()
}

// Base returns the address of the first instruction.
func (p *Program) Base() int {
	return int(p.compiled.Base)
}

// Len returns the number of instructions in the unit.
func (p *Program) Len() int {
	return len(p.compiled.Code)
}

// export converts an interpreter value to its Go representation.
func export(v types.Value) any {
	switch v.Kind() {
	case types.KindNum:
		return v.AsNum()
	case types.KindStr:
		return v.AsStr()
	case types.KindBool:
		return v.AsBool()
	default:
		return nil
	}
}
