// Package vm implements a reference interpreter for compiled units.
//
// The VM exists to check that a lowered instruction stream behaves like the
// source program: loops terminate where they should, break and continue land
// on their targets, calls return to their caller. It favors clear fault
// reporting over speed.
package vm

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/kolkov/ucub/ast"
	"github.com/kolkov/ucub/internal/compiler"
	"github.com/kolkov/ucub/internal/runtime"
	"github.com/kolkov/ucub/internal/types"
	"github.com/kolkov/ucub/token"
)

// Runtime faults. They reach callers wrapped in *Error.
var (
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrDivideByZero   = errors.New("division by zero")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrCallDepth      = errors.New("call depth exceeded")
	ErrBadAddress     = errors.New("address outside the unit")
	ErrBadOpcode      = errors.New("unknown opcode")
	ErrNoFrame        = errors.New("no active call frame")
)

const (
	// DefaultStackSize is the initial stack capacity.
	DefaultStackSize = 256

	// DefaultStepLimit is the instruction budget of DefaultVMConfig.
	DefaultStepLimit = 1_000_000

	// MaxCallDepth bounds the number of active call frames.
	MaxCallDepth = 4096
)

// Error is a runtime fault tied to the instruction that raised it.
type Error struct {
	Addr compiler.Address
	Span token.Span
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("%s: runtime error at %04d: %v", e.Span.Start, e.Addr, e.Err)
	}
	return fmt.Sprintf("runtime error at %04d: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying fault.
func (e *Error) Unwrap() error {
	return e.Err
}

// Reporter receives every runtime fault before Run returns it.
type Reporter interface {
	Report(err *Error)
}

// VMConfig contains configuration options for the VM.
type VMConfig struct {
	// POSIXRegex selects leftmost-longest matching for ~ and !~.
	POSIXRegex bool

	// StepLimit caps the number of executed instructions.
	// Zero or negative means no cap.
	StepLimit int

	// Logger receives runtime faults at Debug level. Nil discards them.
	Logger *slog.Logger

	// Reporter, if set, is handed each fault.
	Reporter Reporter
}

// DefaultVMConfig returns the default VM configuration.
func DefaultVMConfig() VMConfig {
	return VMConfig{StepLimit: DefaultStepLimit}
}

// VM executes a compiled unit.
type VM struct {
	program *compiler.Program
	config  VMConfig
	logger  *slog.Logger

	// Value stack
	stackData []types.Value
	sp        int // Stack pointer (index of next free slot)

	// Call stack
	frames []CallFrame

	globals []types.Value

	regexCache *runtime.RegexCache

	steps int
}

// CallFrame represents a function call on the call stack.
type CallFrame struct {
	fn     *compiler.Function
	ret    int // Index of the instruction after the call
	bp     int // Stack position once the arguments are consumed
	locals []types.Value
}

// New creates a VM for prog with the default configuration.
func New(prog *compiler.Program) *VM {
	return NewWithConfig(prog, DefaultVMConfig())
}

// NewWithConfig creates a VM for prog.
func NewWithConfig(prog *compiler.Program, config VMConfig) *VM {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &VM{
		program:    prog,
		config:     config,
		logger:     logger,
		regexCache: runtime.NewRegexCache(0, runtime.RegexConfig{POSIX: config.POSIXRegex}),
	}
}

// Run executes the unit from its first instruction until Halt. Each call
// starts from fresh globals. Faults are returned as *Error.
func (vm *VM) Run() error {
	if err := vm.program.Verify(); err != nil {
		return err
	}
	vm.reset()
	err := vm.execute()
	if err == nil {
		return nil
	}
	var fault *Error
	if errors.As(err, &fault) {
		vm.logger.Debug("runtime fault",
			"addr", fault.Addr,
			"pos", fault.Span.Start,
			"err", fault.Err,
			"steps", vm.steps)
		if vm.config.Reporter != nil {
			vm.config.Reporter.Report(fault)
		}
	}
	return err
}

// Global returns the value of the global variable name after a run.
func (vm *VM) Global(name string) (types.Value, bool) {
	name = ast.NormalizeName(name)
	for i, g := range vm.program.Globals {
		if g == name && i < len(vm.globals) {
			return vm.globals[i], true
		}
	}
	return types.Null(), false
}

// Globals returns a copy of the global variables keyed by name.
func (vm *VM) Globals() map[string]types.Value {
	out := make(map[string]types.Value, len(vm.program.Globals))
	for i, name := range vm.program.Globals {
		if i < len(vm.globals) {
			out[name] = vm.globals[i]
		} else {
			out[name] = types.Null()
		}
	}
	return out
}

// Steps returns the number of instructions executed by the last run.
func (vm *VM) Steps() int {
	return vm.steps
}

func (vm *VM) reset() {
	if vm.stackData == nil {
		vm.stackData = make([]types.Value, DefaultStackSize)
	}
	vm.sp = 0
	vm.frames = vm.frames[:0]
	vm.globals = make([]types.Value, len(vm.program.Globals))
	for i := range vm.globals {
		vm.globals[i] = types.Null()
	}
	vm.steps = 0
}

// push pushes a value onto the stack.
func (vm *VM) push(v types.Value) {
	if vm.sp >= len(vm.stackData) {
		vm.growStack()
	}
	vm.stackData[vm.sp] = v
	vm.sp++
}

// pop removes and returns the top value. Callers check the depth first.
func (vm *VM) pop() types.Value {
	vm.sp--
	return vm.stackData[vm.sp]
}

// peekPop returns (second-from-top, top) and pops the top value.
func (vm *VM) peekPop() (types.Value, types.Value) {
	vm.sp--
	return vm.stackData[vm.sp-1], vm.stackData[vm.sp]
}

func (vm *VM) replaceTop(v types.Value) {
	vm.stackData[vm.sp-1] = v
}

// growStack doubles the stack capacity.
func (vm *VM) growStack() {
	newData := make([]types.Value, len(vm.stackData)*2)
	copy(newData, vm.stackData)
	vm.stackData = newData
}

// stackNeed returns how many values op consumes.
func stackNeed(in compiler.Instruction) int {
	switch in.Op {
	case compiler.Pop, compiler.Dupe, compiler.StoreGlobal, compiler.StoreLocal,
		compiler.UnaryMinus, compiler.Not, compiler.Boolean,
		compiler.JumpTrue, compiler.JumpFalse, compiler.Return:
		return 1
	case compiler.Add, compiler.Subtract, compiler.Multiply, compiler.Divide,
		compiler.Modulo, compiler.Power, compiler.Concat,
		compiler.Equal, compiler.NotEqual, compiler.Less, compiler.LessEqual,
		compiler.Greater, compiler.GreaterEqual, compiler.Match, compiler.NotMatch:
		return 2
	case compiler.Call:
		return in.Args[1].Int()
	default:
		return 0
	}
}

func (vm *VM) fault(in compiler.Instruction, err error) *Error {
	return &Error{Addr: in.Addr, Span: in.Span, Err: err}
}

// index converts a branch target to a code index.
func (vm *VM) index(in compiler.Instruction, target compiler.Address) (int, error) {
	i := int(target - vm.program.Base)
	if i < 0 || i >= len(vm.program.Code) {
		return 0, vm.fault(in, fmt.Errorf("%w: %04d", ErrBadAddress, target))
	}
	return i, nil
}

func (vm *VM) execute() error {
	code := vm.program.Code
	ip := 0
	for {
		if ip < 0 || ip >= len(code) {
			last := code[len(code)-1]
			return vm.fault(last, fmt.Errorf("%w: fell off at %04d", ErrBadAddress, vm.program.Base+compiler.Address(ip)))
		}
		in := code[ip]
		ip++

		if limit := vm.config.StepLimit; limit > 0 && vm.steps >= limit {
			return vm.fault(in, fmt.Errorf("%w (%d)", ErrStepLimit, limit))
		}
		vm.steps++

		if vm.sp < stackNeed(in) {
			return vm.fault(in, fmt.Errorf("%w: %s needs %d, have %d", ErrStackUnderflow, in.Op, stackNeed(in), vm.sp))
		}

		switch in.Op {
		case compiler.Nop:
			// Do nothing

		case compiler.Push:
			vm.push(in.Args[0].Value())

		case compiler.Pop:
			vm.sp--

		case compiler.Dupe:
			vm.push(vm.stackData[vm.sp-1])

		case compiler.LoadGlobal:
			vm.push(vm.globals[in.Args[0].Int()])

		case compiler.LoadLocal:
			frame, err := vm.frame(in)
			if err != nil {
				return err
			}
			vm.push(frame.locals[in.Args[0].Int()])

		case compiler.StoreGlobal:
			vm.globals[in.Args[0].Int()] = vm.pop()

		case compiler.StoreLocal:
			frame, err := vm.frame(in)
			if err != nil {
				return err
			}
			frame.locals[in.Args[0].Int()] = vm.pop()

		case compiler.Add, compiler.Subtract, compiler.Multiply, compiler.Divide,
			compiler.Modulo, compiler.Power:
			l, r := vm.peekPop()
			n, err := arith(in.Op, l.AsNum(), r.AsNum())
			if err != nil {
				return vm.fault(in, err)
			}
			vm.replaceTop(types.Num(n))

		case compiler.Concat:
			l, r := vm.peekPop()
			vm.replaceTop(types.Str(l.AsStr() + r.AsStr()))

		case compiler.Equal:
			l, r := vm.peekPop()
			vm.replaceTop(types.Bool(types.Equal(l, r)))

		case compiler.NotEqual:
			l, r := vm.peekPop()
			vm.replaceTop(types.Bool(!types.Equal(l, r)))

		case compiler.Less:
			l, r := vm.peekPop()
			vm.replaceTop(types.Bool(types.Compare(l, r) < 0))

		case compiler.LessEqual:
			l, r := vm.peekPop()
			vm.replaceTop(types.Bool(types.Compare(l, r) <= 0))

		case compiler.Greater:
			l, r := vm.peekPop()
			vm.replaceTop(types.Bool(types.Compare(l, r) > 0))

		case compiler.GreaterEqual:
			l, r := vm.peekPop()
			vm.replaceTop(types.Bool(types.Compare(l, r) >= 0))

		case compiler.Match, compiler.NotMatch:
			subject, pattern := vm.peekPop()
			matched, err := vm.regexCache.Match(pattern.AsStr(), subject.AsStr())
			if err != nil {
				return vm.fault(in, err)
			}
			vm.replaceTop(types.Bool(matched == (in.Op == compiler.Match)))

		case compiler.UnaryMinus:
			vm.replaceTop(types.Num(-vm.stackData[vm.sp-1].AsNum()))

		case compiler.Not:
			vm.replaceTop(types.Bool(!vm.stackData[vm.sp-1].AsBool()))

		case compiler.Boolean:
			vm.replaceTop(types.Bool(vm.stackData[vm.sp-1].AsBool()))

		case compiler.Jump:
			target, err := vm.target(in)
			if err != nil {
				return err
			}
			ip = target

		case compiler.JumpTrue, compiler.JumpFalse:
			cond := vm.pop().AsBool()
			if cond == (in.Op == compiler.JumpTrue) {
				target, err := vm.target(in)
				if err != nil {
					return err
				}
				ip = target
			}

		case compiler.Call:
			next, err := vm.call(in, ip)
			if err != nil {
				return err
			}
			ip = next

		case compiler.Return:
			next, err := vm.ret(in, vm.pop())
			if err != nil {
				return err
			}
			ip = next

		case compiler.ReturnNull:
			next, err := vm.ret(in, types.Null())
			if err != nil {
				return err
			}
			ip = next

		case compiler.Halt:
			return nil

		default:
			return vm.fault(in, fmt.Errorf("%w: %s", ErrBadOpcode, in.Op))
		}
	}
}

func (vm *VM) target(in compiler.Instruction) (int, error) {
	addr, ok := in.Target()
	if !ok {
		return 0, vm.fault(in, fmt.Errorf("%w: unresolved branch", ErrBadAddress))
	}
	return vm.index(in, addr)
}

// frame returns the active call frame.
func (vm *VM) frame(in compiler.Instruction) (*CallFrame, error) {
	if len(vm.frames) == 0 {
		return nil, vm.fault(in, fmt.Errorf("%w: %s at top level", ErrNoFrame, in.Op))
	}
	return &vm.frames[len(vm.frames)-1], nil
}

// call pops the arguments into a new frame and returns the entry index.
func (vm *VM) call(in compiler.Instruction, ret int) (int, error) {
	idx, argc := in.Args[0].Int(), in.Args[1].Int()
	if idx < 0 || idx >= len(vm.program.Functions) {
		return 0, vm.fault(in, fmt.Errorf("%w: function %d", ErrBadAddress, idx))
	}
	if len(vm.frames) >= MaxCallDepth {
		return 0, vm.fault(in, fmt.Errorf("%w (%d)", ErrCallDepth, MaxCallDepth))
	}
	fn := &vm.program.Functions[idx]
	entry, err := vm.index(in, fn.Entry)
	if err != nil {
		return 0, err
	}

	frame := CallFrame{
		fn:     fn,
		ret:    ret,
		locals: make([]types.Value, max(fn.FrameSize, argc)),
	}
	for i := range frame.locals {
		frame.locals[i] = types.Null()
	}
	for i := argc - 1; i >= 0; i-- {
		frame.locals[i] = vm.pop()
	}
	frame.bp = vm.sp
	vm.frames = append(vm.frames, frame)
	return entry, nil
}

// ret pops the active frame, pushes result and returns the caller's index.
func (vm *VM) ret(in compiler.Instruction, result types.Value) (int, error) {
	frame, err := vm.frame(in)
	if err != nil {
		return 0, err
	}
	next := frame.ret
	vm.sp = frame.bp
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.push(result)
	return next, nil
}

func arith(op compiler.Opcode, l, r float64) (float64, error) {
	switch op {
	case compiler.Add:
		return l + r, nil
	case compiler.Subtract:
		return l - r, nil
	case compiler.Multiply:
		return l * r, nil
	case compiler.Divide:
		if r == 0 {
			return 0, ErrDivideByZero
		}
		return l / r, nil
	case compiler.Modulo:
		if r == 0 {
			return 0, ErrDivideByZero
		}
		return math.Mod(l, r), nil
	case compiler.Power:
		return math.Pow(l, r), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrBadOpcode, op)
	}
}
