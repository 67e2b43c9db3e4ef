package compiler

import (
	"log/slog"

	"github.com/kolkov/ucub/ast"
	"github.com/kolkov/ucub/internal/semantic"
	"github.com/kolkov/ucub/internal/types"
	"github.com/kolkov/ucub/token"
)

// Options configures a compilation.
type Options struct {
	// Base is the address of the unit's first instruction.
	Base Address

	// Logger receives debug records about lowered constructs.
	// Nil discards them.
	Logger *slog.Logger
}

// Compile lowers prog into a verified program. Functions are collected
// before lowering, so a call may precede its declaration. Errors are
// reported in traversal order: the first one aborts the unit and no
// partial program is returned.
func Compile(prog *ast.Program, opts Options) (*Program, error) {
	if prog == nil {
		return nil, invariantf(token.NoSpan, "nil program")
	}
	c := newCompiler(NewContext(opts.Base), prog, opts.Logger)
	code, err := c.lowerStmts(prog.Stmts)
	if err != nil {
		return nil, err
	}
	code = append(code, c.emit(Halt, token.MakeSpan(prog.End(), prog.End())))

	if continues, breaks := c.ctx.LoopDepth(); continues != 0 || breaks != 0 {
		return nil, invariantf(prog.Span(), "unbalanced loop stacks after lowering: %d continue, %d break", continues, breaks)
	}

	p := &Program{
		Code:      code,
		Base:      opts.Base,
		Functions: c.funcs,
		Globals:   c.ctx.Globals(),
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	c.logger.Debug("compiled unit",
		"file", prog.Filename,
		"instructions", len(code),
		"functions", len(c.funcs),
		"globals", len(p.Globals))
	return p, nil
}

// Lower lowers a single function-free node on ctx and returns its
// instructions. A later Lower call on the same context continues the
// address sequence where this one stopped. Lower has no function table to
// return, so a node that declares or calls a function is rejected; use
// Compile for whole units.
func Lower(ctx *Context, n ast.Node) (Sequence, error) {
	if fns := ast.Collect[*ast.FuncDecl](n); len(fns) > 0 {
		return nil, invariantf(fns[0].Span(), "function %q declared in a lowered node; use Compile", fns[0].Name)
	}
	return newCompiler(ctx, n, nil).lower(n)
}

// compiler holds the state of one lowering pass.
type compiler struct {
	ctx      *Context
	resolved *semantic.ResolveResult
	funcs    []Function
	fn       *semantic.FuncInfo // Function being lowered, nil at top level
	logger   *slog.Logger
}

func newCompiler(ctx *Context, root ast.Node, logger *slog.Logger) *compiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	// Declaration errors are reported again by lowerFunc when traversal
	// reaches them, so an earlier error in the tree wins.
	resolved, _ := semantic.Resolve(root)
	for _, w := range resolved.Warnings {
		logger.Debug("resolve warning", "pos", w.Span.Start, "message", w.Message)
	}
	return &compiler{
		ctx:      ctx,
		resolved: resolved,
		funcs:    make([]Function, len(resolved.FuncOrder)),
		logger:   logger,
	}
}

// emit allocates the next address for an instruction.
func (c *compiler) emit(op Opcode, span token.Span, args ...Operand) Instruction {
	return Instruction{Addr: c.ctx.AllocateNextAddress(), Op: op, Args: args, Span: span}
}

// branch builds the instruction for a previously reserved address.
func branch(at Address, op Opcode, target Address, span token.Span) Instruction {
	return Instruction{Addr: at, Op: op, Args: []Operand{Ref(target)}, Span: span}
}

// lower dispatches on the closed node set.
func (c *compiler) lower(n ast.Node) (Sequence, error) {
	switch n := n.(type) {
	case nil:
		return nil, invariantf(token.NoSpan, "nil node")
	case *ast.Program:
		return c.lowerStmts(n.Stmts)
	case ast.Stmt:
		return c.lowerStmt(n)
	case ast.Expr:
		return c.lowerExpr(n)
	default:
		return nil, invariantf(n.Span(), "unexpected node type: %T", n)
	}
}

// -----------------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------------

// lowerStmts concatenates the sequences of stmts in source order.
func (c *compiler) lowerStmts(stmts []ast.Stmt) (Sequence, error) {
	var code Sequence
	for _, stmt := range stmts {
		seq, err := c.lowerStmt(stmt)
		if err != nil {
			return nil, err
		}
		code = code.Append(seq)
	}
	return code, nil
}

// lowerBlock lowers a block body. Blocks add no instructions of their own.
func (c *compiler) lowerBlock(b *ast.BlockStmt, owner ast.Node) (Sequence, error) {
	if b == nil {
		return nil, invariantf(owner.Span(), "%s without body", owner.Label())
	}
	return c.lowerStmts(b.Stmts)
}

func (c *compiler) lowerStmt(stmt ast.Stmt) (Sequence, error) {
	switch s := stmt.(type) {
	case nil:
		return nil, nil

	case *ast.ExprStmt:
		value, err := c.lowerExpr(s.Expr)
		if err != nil {
			return nil, err
		}
		return append(value, c.emit(Pop, s.Span())), nil

	case *ast.AssignStmt:
		return c.lowerAssign(s)

	case *ast.VarDecl:
		return c.lowerVarDecl(s)

	case *ast.BlockStmt:
		return c.lowerStmts(s.Stmts)

	case *ast.IfStmt:
		return c.lowerIf(s)

	case *ast.WhileStmt:
		return c.lowerWhile(s)

	case *ast.DoWhileStmt:
		return c.lowerDoWhile(s)

	case *ast.ForStmt:
		return c.lowerFor(s)

	case *ast.BreakStmt:
		at := c.ctx.AllocateNextAddress()
		if !c.ctx.AddBreak(at) {
			return nil, invariantf(s.Span(), "break outside loop")
		}
		// Target patched once the loop's exit address is known.
		return Sequence{{Addr: at, Op: Jump, Span: s.Span()}}, nil

	case *ast.ContinueStmt:
		target, ok := c.ctx.ContinueTarget()
		if !ok {
			return nil, invariantf(s.Span(), "continue outside loop")
		}
		return Sequence{c.emit(Jump, s.Span(), Ref(target))}, nil

	case *ast.ReturnStmt:
		if c.fn == nil {
			return nil, invariantf(s.Span(), "return outside function")
		}
		if s.Value == nil {
			return Sequence{c.emit(ReturnNull, s.Span())}, nil
		}
		value, err := c.lowerExpr(s.Value)
		if err != nil {
			return nil, err
		}
		return append(value, c.emit(Return, s.Span())), nil

	case *ast.FuncDecl:
		return c.lowerFunc(s)

	default:
		return nil, invariantf(stmt.Span(), "unexpected statement type: %T", stmt)
	}
}

func (c *compiler) lowerAssign(s *ast.AssignStmt) (Sequence, error) {
	if s.Target == nil {
		return nil, invariantf(s.Span(), "assignment without target")
	}
	sym := c.ctx.Lookup(s.Target.Name, s.Target.Pos())

	var code Sequence
	switch {
	case s.Op == token.ASSIGN:
		value, err := c.lowerExpr(s.Value)
		if err != nil {
			return nil, err
		}
		code = value
	case s.Op.IsAssign():
		op, err := binaryOp(s.Op.BaseOp(), s.Span())
		if err != nil {
			return nil, err
		}
		code = Sequence{c.load(sym, s.Target.Span())}
		value, err := c.lowerExpr(s.Value)
		if err != nil {
			return nil, err
		}
		code = code.Append(value)
		code = append(code, c.emit(op, s.Span()))
	default:
		return nil, invariantf(s.Span(), "invalid assignment operator %s", s.Op)
	}
	return append(code, c.store(sym, s.Span())), nil
}

func (c *compiler) lowerVarDecl(s *ast.VarDecl) (Sequence, error) {
	if s.Name == nil {
		return nil, invariantf(s.Span(), "declaration without name")
	}
	var code Sequence
	if s.Value != nil {
		value, err := c.lowerExpr(s.Value)
		if err != nil {
			return nil, err
		}
		code = value
	} else {
		code = Sequence{c.emit(Push, s.Span(), Lit(types.Null()))}
	}
	// Declared after the initializer: "var x = x" reads the outer x.
	sym := c.ctx.Declare(s.Name.Name, s.Name.Pos())
	return append(code, c.store(sym, s.Span())), nil
}

// lowerIf lowers
//
//	cond; JumpFalse Else; then; [Jump End; Else: else;] End:
func (c *compiler) lowerIf(s *ast.IfStmt) (Sequence, error) {
	cond, err := c.lowerCond(s.Cond(), s)
	if err != nil {
		return nil, err
	}
	branchAt := c.ctx.AllocateNextAddress()
	then, err := c.lowerBlock(s.Then(), s)
	if err != nil {
		return nil, err
	}

	if s.Else() == nil {
		end := c.ctx.PeekNextAddress()
		return cond.Append(Sequence{branch(branchAt, JumpFalse, end, s.Span())}, then), nil
	}

	skipAt := c.ctx.AllocateNextAddress()
	elseStart := c.ctx.PeekNextAddress()
	els, err := c.lowerStmt(s.Else())
	if err != nil {
		return nil, err
	}
	end := c.ctx.PeekNextAddress()
	return cond.Append(
		Sequence{branch(branchAt, JumpFalse, elseStart, s.Span())},
		then,
		Sequence{branch(skipAt, Jump, end, s.Span())},
		els,
	), nil
}

// -----------------------------------------------------------------------------
// Loops
// -----------------------------------------------------------------------------

// inLoop brackets the lowering of one loop. anchor is the loop's re-entry
// address. Both loop-control stacks are popped on every path; on success
// the breaks collected for this loop are patched to the address following
// the sequence lower returned.
func (c *compiler) inLoop(n ast.Loop, anchor Address, lower func() (Sequence, error)) (code Sequence, err error) {
	c.ctx.PushContinueTarget(anchor)
	c.ctx.PushBreakTarget()
	defer func() {
		breaks, berr := c.ctx.PopBreakTarget(n)
		popped, cerr := c.ctx.PopContinueTarget(n)
		switch {
		case err != nil:
		case berr != nil:
			err = berr
		case cerr != nil:
			err = cerr
		case popped != anchor:
			err = invariantf(n.Span(), "continue target %04d popped, want %04d", popped, anchor)
		default:
			exit := c.ctx.PeekNextAddress()
			for _, at := range breaks {
				if !code.patch(at, exit) {
					err = invariantf(n.Span(), "break at %04d not found in loop body", at)
					break
				}
			}
		}
		if err != nil {
			code = nil
		}
	}()
	return lower()
}

// lowerWhile lowers
//
//	C: cond; JumpFalse X; body; Jump C; X:
func (c *compiler) lowerWhile(s *ast.WhileStmt) (Sequence, error) {
	anchor := c.ctx.PeekNextAddress()
	return c.inLoop(s, anchor, func() (Sequence, error) {
		cond, err := c.lowerCond(s.Cond(), s)
		if err != nil {
			return nil, err
		}
		exitAt := c.ctx.AllocateNextAddress()
		body, err := c.lowerBlock(s.Body(), s)
		if err != nil {
			return nil, err
		}
		back := c.emit(Jump, s.Span(), Ref(anchor))
		exit := c.ctx.PeekNextAddress()
		c.logLoop(s, anchor, exit)
		return cond.Append(
			Sequence{branch(exitAt, JumpFalse, exit, spanOrNode(s.Cond(), s))},
			body,
			Sequence{back},
		), nil
	})
}

// lowerDoWhile lowers
//
//	Jump B; C: cond; JumpFalse X; B: body; Jump C; X:
//
// The body runs once before the first test; continue re-enters at the test.
func (c *compiler) lowerDoWhile(s *ast.DoWhileStmt) (Sequence, error) {
	entryAt := c.ctx.AllocateNextAddress()
	anchor := c.ctx.PeekNextAddress()
	return c.inLoop(s, anchor, func() (Sequence, error) {
		cond, err := c.lowerCond(s.Cond(), s)
		if err != nil {
			return nil, err
		}
		exitAt := c.ctx.AllocateNextAddress()
		bodyStart := c.ctx.PeekNextAddress()
		body, err := c.lowerBlock(s.Body(), s)
		if err != nil {
			return nil, err
		}
		back := c.emit(Jump, s.Span(), Ref(anchor))
		exit := c.ctx.PeekNextAddress()
		c.logLoop(s, anchor, exit)
		return Sequence{branch(entryAt, Jump, bodyStart, s.Span())}.Append(
			cond,
			Sequence{branch(exitAt, JumpFalse, exit, spanOrNode(s.Cond(), s))},
			body,
			Sequence{back},
		), nil
	})
}

// lowerFor lowers
//
//	init; [Jump C; P: post;] C: cond; JumpFalse X; body; Jump P|C; X:
//
// The re-entry point is the post step when there is one, so continue runs it.
// A missing condition is lowered as the literal true.
func (c *compiler) lowerFor(s *ast.ForStmt) (Sequence, error) {
	var code Sequence
	if s.Init() != nil {
		init, err := c.lowerStmt(s.Init())
		if err != nil {
			return nil, err
		}
		code = init
	}

	var skipAt Address
	if s.Post() != nil {
		skipAt = c.ctx.AllocateNextAddress()
	}
	anchor := c.ctx.PeekNextAddress()
	loop, err := c.inLoop(s, anchor, func() (Sequence, error) {
		var head Sequence
		if s.Post() != nil {
			post, err := c.lowerStmt(s.Post())
			if err != nil {
				return nil, err
			}
			condStart := c.ctx.PeekNextAddress()
			head = Sequence{branch(skipAt, Jump, condStart, s.Span())}.Append(post)
		}

		var cond Sequence
		if s.Cond() == nil {
			cond = Sequence{c.emit(Push, s.Span(), Lit(types.Bool(true)))}
		} else {
			var err error
			if cond, err = c.lowerCond(s.Cond(), s); err != nil {
				return nil, err
			}
		}
		exitAt := c.ctx.AllocateNextAddress()
		body, err := c.lowerBlock(s.Body(), s)
		if err != nil {
			return nil, err
		}
		back := c.emit(Jump, s.Span(), Ref(anchor))
		exit := c.ctx.PeekNextAddress()
		c.logLoop(s, anchor, exit)
		return head.Append(
			cond,
			Sequence{branch(exitAt, JumpFalse, exit, spanOrNode(s.Cond(), s))},
			body,
			Sequence{back},
		), nil
	})
	if err != nil {
		return nil, err
	}
	return code.Append(loop), nil
}

func (c *compiler) logLoop(n ast.Loop, anchor, exit Address) {
	continues, _ := c.ctx.LoopDepth()
	c.logger.Debug("lowered loop",
		"kind", n.Label(),
		"pos", n.Pos(),
		"continue", anchor,
		"exit", exit,
		"depth", continues)
}

// lowerCond lowers a condition so that it leaves one boolean on the stack.
// Conditions are validated when their node is built; a node that skipped
// its constructor is caught here.
func (c *compiler) lowerCond(n ast.Node, owner ast.Node) (Sequence, error) {
	if n == nil {
		return nil, invariantf(owner.Span(), "%s without condition", owner.Label())
	}
	e, ok := n.(ast.Expr)
	if !ok || !ast.IsCondition(e) {
		return nil, invariantf(spanOrNode(n, owner), "invalid condition in %s", owner.Label())
	}
	code, err := c.lowerExpr(e)
	if err != nil {
		return nil, err
	}
	if !producesBool(e) {
		code = append(code, c.emit(Boolean, e.Span()))
	}
	return code, nil
}

// producesBool reports whether e always leaves a boolean.
func producesBool(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.BoolLit:
		return true
	case *ast.BinaryExpr:
		return e.Op.IsComparison() || e.Op.IsLogical() || e.Op == token.MATCH || e.Op == token.NOT_MATCH
	case *ast.UnaryExpr:
		return e.Op == token.NOT
	case *ast.GroupExpr:
		return e.Expr != nil && producesBool(e.Expr)
	default:
		return false
	}
}

func spanOrNode(n ast.Node, owner ast.Node) token.Span {
	if n != nil && n.Span().IsValid() {
		return n.Span()
	}
	return owner.Span()
}

// -----------------------------------------------------------------------------
// Functions
// -----------------------------------------------------------------------------

// lowerFunc lowers a declaration in place:
//
//	Jump After; E: body; ReturnNull; After:
//
// Straight-line execution skips the body; calls enter at E.
func (c *compiler) lowerFunc(s *ast.FuncDecl) (Sequence, error) {
	if c.fn != nil {
		return nil, referencef(s.Span(), "function %q declared inside another function", s.Name)
	}
	fi, ok := c.resolved.Functions[s.Name]
	if !ok {
		return nil, invariantf(s.Span(), "function %q was not collected", s.Name)
	}
	if fi.Decl != s {
		return nil, referencef(s.Span(), "function %q already defined", s.Name)
	}

	skipAt := c.ctx.AllocateNextAddress()
	entry := c.ctx.PeekNextAddress()
	body, frame, err := c.inFunction(fi, func() (Sequence, error) {
		body, err := c.lowerBlock(s.Body, s)
		if err != nil {
			return nil, err
		}
		return append(body, c.emit(ReturnNull, s.Span())), nil
	})
	if err != nil {
		return nil, err
	}
	after := c.ctx.PeekNextAddress()

	c.funcs[fi.Index] = Function{
		Name:      fi.Name,
		Params:    fi.Params,
		Entry:     entry,
		FrameSize: frame,
		Span:      s.Span(),
	}
	c.logger.Debug("lowered function", "name", fi.Name, "entry", entry, "frame", frame)
	return Sequence{branch(skipAt, Jump, after, s.Span())}.Append(body), nil
}

// inFunction lowers a function body in its own scope and returns the body
// with the frame size it needs. The enclosing scope and loop stacks are
// restored on every path.
func (c *compiler) inFunction(fi *semantic.FuncInfo, lower func() (Sequence, error)) (Sequence, int, error) {
	restore := c.ctx.EnterFunction(fi.Params)
	c.fn = fi
	defer func() {
		c.fn = nil
		restore()
	}()
	code, err := lower()
	if err != nil {
		return nil, 0, err
	}
	return code, c.ctx.FrameSize(), nil
}

// -----------------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------------

var binaryOps = map[token.Token]Opcode{
	token.ADD:        Add,
	token.SUB:        Subtract,
	token.MUL:        Multiply,
	token.DIV:        Divide,
	token.MOD:        Modulo,
	token.POW:        Power,
	token.CONCAT:     Concat,
	token.EQUALS:     Equal,
	token.NOT_EQUALS: NotEqual,
	token.LESS:       Less,
	token.LTE:        LessEqual,
	token.GREATER:    Greater,
	token.GTE:        GreaterEqual,
	token.MATCH:      Match,
	token.NOT_MATCH:  NotMatch,
}

func binaryOp(tok token.Token, span token.Span) (Opcode, error) {
	op, ok := binaryOps[tok]
	if !ok {
		return 0, invariantf(span, "invalid binary operator %s", tok)
	}
	return op, nil
}

func (c *compiler) lowerExpr(expr ast.Expr) (Sequence, error) {
	switch e := expr.(type) {
	case nil:
		return nil, invariantf(token.NoSpan, "missing expression")

	case *ast.NumLit:
		return Sequence{c.emit(Push, e.Span(), Lit(types.Num(e.Value)))}, nil

	case *ast.StrLit:
		return Sequence{c.emit(Push, e.Span(), Lit(types.Str(e.Value)))}, nil

	case *ast.BoolLit:
		return Sequence{c.emit(Push, e.Span(), Lit(types.Bool(e.Value)))}, nil

	case *ast.Ident:
		sym := c.ctx.Lookup(e.Name, e.Pos())
		return Sequence{c.load(sym, e.Span())}, nil

	case *ast.GroupExpr:
		return c.lowerExpr(e.Expr)

	case *ast.UnaryExpr:
		return c.lowerUnary(e)

	case *ast.BinaryExpr:
		return c.lowerBinary(e)

	case *ast.CallExpr:
		return c.lowerCall(e)

	default:
		return nil, invariantf(expr.Span(), "unexpected expression type: %T", expr)
	}
}

func (c *compiler) lowerUnary(e *ast.UnaryExpr) (Sequence, error) {
	var op Opcode
	switch e.Op {
	case token.SUB:
		op = UnaryMinus
	case token.NOT:
		op = Not
	default:
		return nil, invariantf(e.Span(), "invalid unary operator %s", e.Op)
	}
	code, err := c.lowerExpr(e.Expr)
	if err != nil {
		return nil, err
	}
	return append(code, c.emit(op, e.Span())), nil
}

func (c *compiler) lowerBinary(e *ast.BinaryExpr) (Sequence, error) {
	if e.Op == token.AND || e.Op == token.OR {
		return c.lowerLogical(e)
	}
	op, err := binaryOp(e.Op, e.Span())
	if err != nil {
		return nil, err
	}
	left, err := c.lowerExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.lowerExpr(e.Right)
	if err != nil {
		return nil, err
	}
	return left.Append(right, Sequence{c.emit(op, e.Span())}), nil
}

// lowerLogical lowers short-circuit && and ||:
//
//	left; Dupe; JumpFalse|JumpTrue L; Pop; right; L: Boolean
func (c *compiler) lowerLogical(e *ast.BinaryExpr) (Sequence, error) {
	jump := JumpFalse
	if e.Op == token.OR {
		jump = JumpTrue
	}
	left, err := c.lowerExpr(e.Left)
	if err != nil {
		return nil, err
	}
	dupe := c.emit(Dupe, e.Span())
	jumpAt := c.ctx.AllocateNextAddress()
	pop := c.emit(Pop, e.Span())
	right, err := c.lowerExpr(e.Right)
	if err != nil {
		return nil, err
	}
	end := c.ctx.PeekNextAddress()
	return left.Append(
		Sequence{dupe, branch(jumpAt, jump, end, e.Span()), pop},
		right,
		Sequence{c.emit(Boolean, e.Span())},
	), nil
}

func (c *compiler) lowerCall(e *ast.CallExpr) (Sequence, error) {
	fi, ok := c.resolved.Lookup(e.Name)
	if !ok {
		return nil, referencef(e.Span(), "undefined function %q", e.Name)
	}
	switch n := len(e.Args); {
	case n > fi.Arity():
		return nil, referencef(e.Span(), "too many arguments in call to %q: have %d, want %d", e.Name, n, fi.Arity())
	case n < fi.Arity():
		return nil, referencef(e.Span(), "not enough arguments in call to %q: have %d, want %d", e.Name, n, fi.Arity())
	}
	var code Sequence
	for _, arg := range e.Args {
		seq, err := c.lowerExpr(arg)
		if err != nil {
			return nil, err
		}
		code = code.Append(seq)
	}
	return append(code, c.emit(Call, e.Span(), Int(fi.Index), Int(len(e.Args)))), nil
}

// load emits the load of a variable from its slot.
func (c *compiler) load(sym *semantic.Symbol, span token.Span) Instruction {
	if sym.IsGlobal() {
		return c.emit(LoadGlobal, span, Int(sym.Index))
	}
	return c.emit(LoadLocal, span, Int(sym.Index))
}

// store emits the store of the top of stack into a variable's slot.
func (c *compiler) store(sym *semantic.Symbol, span token.Span) Instruction {
	if sym.IsGlobal() {
		return c.emit(StoreGlobal, span, Int(sym.Index))
	}
	return c.emit(StoreLocal, span, Int(sym.Index))
}
