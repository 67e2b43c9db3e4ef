package vm_test

import (
	"errors"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kolkov/ucub/ast"
	"github.com/kolkov/ucub/internal/compiler"
	"github.com/kolkov/ucub/internal/runtime"
	"github.com/kolkov/ucub/internal/types"
	"github.com/kolkov/ucub/internal/vm"
	"github.com/kolkov/ucub/token"
)

func must[T any](v T, err error) T {
	GinkgoHelper()
	Expect(err).NotTo(HaveOccurred())
	return v
}

func line(n int) token.Span {
	return token.MakeSpan(token.Position{Line: n, Column: 1}, token.Position{Line: n, Column: 10})
}

func ident(name string) *ast.Ident { return ast.NewIdent(name, token.NoSpan) }
func num(v float64) *ast.NumLit    { return &ast.NumLit{Value: v} }
func str(s string) *ast.StrLit     { return &ast.StrLit{Value: s} }
func yes() *ast.BoolLit            { return &ast.BoolLit{Value: true} }

func bin(l ast.Expr, op token.Token, r ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{Left: l, Op: op, Right: r}
}

func set(name string, v ast.Expr) *ast.AssignStmt {
	return &ast.AssignStmt{Target: ident(name), Op: token.ASSIGN, Value: v}
}

func inc(name string, v ast.Expr) *ast.AssignStmt {
	return &ast.AssignStmt{Target: ident(name), Op: token.ADD_ASSIGN, Value: v}
}

func block(stmts ...ast.Stmt) *ast.BlockStmt { return ast.NewBlockStmt(stmts, token.NoSpan) }

func less(name string, n float64) *ast.BinaryExpr { return bin(ident(name), token.LESS, num(n)) }

func whenEq(name string, n float64, then ast.Stmt) *ast.IfStmt {
	return must(ast.NewIfStmt(bin(ident(name), token.EQUALS, num(n)), block(then), nil, token.NoSpan))
}

func compile(base compiler.Address, stmts ...ast.Stmt) *compiler.Program {
	GinkgoHelper()
	return must(compiler.Compile(ast.NewProgram(stmts, token.NoSpan), compiler.Options{Base: base}))
}

func run(prog *compiler.Program) *vm.VM {
	GinkgoHelper()
	m := vm.New(prog)
	Expect(m.Run()).To(Succeed())
	return m
}

func global(m *vm.VM, name string) types.Value {
	GinkgoHelper()
	v, ok := m.Global(name)
	Expect(ok).To(BeTrue(), "global %q", name)
	return v
}

var _ = Describe("VM", func() {
	Context("loops", func() {
		It("should run a while loop until its condition fails", func() {
			m := run(compile(0,
				set("x", num(0)),
				must(ast.NewWhileStmt(less("x", 3), block(inc("x", num(1))), token.NoSpan)),
			))

			Expect(global(m, "x").AsNum()).To(Equal(3.0))
		})

		It("should run the same layout at any base address", func() {
			m := run(compile(100,
				set("x", num(0)),
				must(ast.NewWhileStmt(less("x", 3), block(inc("x", num(1))), token.NoSpan)),
			))

			Expect(global(m, "x").AsNum()).To(Equal(3.0))
		})

		It("should run a do-while body once before testing", func() {
			m := run(compile(0,
				set("x", num(10)),
				must(ast.NewDoWhileStmt(block(inc("x", num(1))), less("x", 3), token.NoSpan)),
			))

			Expect(global(m, "x").AsNum()).To(Equal(11.0))
		})

		It("should run the post step on continue and leave on break", func() {
			m := run(compile(0,
				set("sum", num(0)),
				must(ast.NewForStmt(set("i", num(0)), less("i", 10), inc("i", num(1)), block(
					whenEq("i", 5, &ast.ContinueStmt{}),
					whenEq("i", 8, &ast.BreakStmt{}),
					inc("sum", ident("i")),
				), token.NoSpan)),
			))

			Expect(global(m, "sum").AsNum()).To(Equal(23.0))
			Expect(global(m, "i").AsNum()).To(Equal(8.0))
		})

		It("should break out of the innermost loop only", func() {
			inner := must(ast.NewForStmt(set("j", num(0)), less("j", 10), inc("j", num(1)), block(
				whenEq("j", 2, &ast.BreakStmt{}),
				inc("c", num(1)),
			), token.NoSpan))
			m := run(compile(0,
				set("c", num(0)),
				must(ast.NewForStmt(set("i", num(0)), less("i", 3), inc("i", num(1)), block(inner), token.NoSpan)),
			))

			Expect(global(m, "c").AsNum()).To(Equal(6.0))
			Expect(global(m, "i").AsNum()).To(Equal(3.0))
		})

		It("should stop an endless loop at the step limit", func() {
			prog := compile(0, must(ast.NewWhileStmt(yes(), block(), token.NoSpan)))
			m := vm.NewWithConfig(prog, vm.VMConfig{StepLimit: 1000})

			err := m.Run()

			Expect(errors.Is(err, vm.ErrStepLimit)).To(BeTrue())
			var fault *vm.Error
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(m.Steps()).To(Equal(1000))
		})
	})

	Context("functions", func() {
		It("should call a function declared after the call", func() {
			add := must(ast.NewFuncDecl("add", []*ast.Ident{ident("a"), ident("b")}, block(
				&ast.ReturnStmt{Value: bin(ident("a"), token.ADD, ident("b"))},
			), token.NoSpan))
			m := run(compile(0,
				set("y", ast.NewCallExpr("add", []ast.Expr{num(2), num(3)}, token.NoSpan)),
				add,
			))

			Expect(global(m, "y").AsNum()).To(Equal(5.0))
		})

		It("should recurse", func() {
			body := block(
				must(ast.NewIfStmt(bin(ident("n"), token.LTE, num(1)), block(&ast.ReturnStmt{Value: num(1)}), nil, token.NoSpan)),
				&ast.ReturnStmt{Value: bin(ident("n"), token.MUL,
					ast.NewCallExpr("fact", []ast.Expr{bin(ident("n"), token.SUB, num(1))}, token.NoSpan))},
			)
			m := run(compile(0,
				must(ast.NewFuncDecl("fact", []*ast.Ident{ident("n")}, body, token.NoSpan)),
				set("r", ast.NewCallExpr("fact", []ast.Expr{num(5)}, token.NoSpan)),
			))

			Expect(global(m, "r").AsNum()).To(Equal(120.0))
		})

		It("should return null from a function without return", func() {
			m := run(compile(0,
				must(ast.NewFuncDecl("noop", nil, block(), token.NoSpan)),
				set("r", ast.NewCallExpr("noop", nil, token.NoSpan)),
			))

			Expect(global(m, "r").IsNull()).To(BeTrue())
		})
	})

	Context("expressions", func() {
		It("should short-circuit logical operators to booleans", func() {
			m := run(compile(0,
				set("a", bin(bin(num(1), token.LESS, num(2)), token.AND, bin(num(2), token.LESS, num(3)))),
				set("o", bin(bin(num(2), token.LESS, num(1)), token.OR, num(0))),
			))

			Expect(global(m, "a")).To(Equal(types.Bool(true)))
			Expect(global(m, "o")).To(Equal(types.Bool(false)))
		})

		It("should match regular expressions", func() {
			m := run(compile(0,
				set("m", bin(str("hello"), token.MATCH, str("^h.*o$"))),
				set("n", bin(str("hello"), token.NOT_MATCH, str("x"))),
				set("s", bin(str("ab"), token.CONCAT, num(1))),
			))

			Expect(global(m, "m").AsBool()).To(BeTrue())
			Expect(global(m, "n").AsBool()).To(BeTrue())
			Expect(global(m, "s").AsStr()).To(Equal("ab1"))
		})

		It("should find globals by any canonical spelling", func() {
			m := run(compile(0, set("café", num(1))))

			Expect(global(m, "café").AsNum()).To(Equal(1.0))
			Expect(m.Globals()).To(HaveKey("café"))
		})

		It("should start each run from fresh globals", func() {
			m := run(compile(0, inc("x", num(1))))
			Expect(m.Run()).To(Succeed())

			Expect(global(m, "x").AsNum()).To(Equal(1.0))
		})
	})

	Context("faults", func() {
		var (
			mockCtrl     *gomock.Controller
			mockReporter *MockReporter
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			mockReporter = NewMockReporter(mockCtrl)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should report division by zero with its source range", func() {
			div := &ast.AssignStmt{
				BaseStmt: ast.MakeBaseStmt(line(3)),
				Target:   ident("x"),
				Op:       token.ASSIGN,
				Value:    &ast.BinaryExpr{BaseExpr: ast.MakeBaseExpr(line(3)), Left: num(1), Op: token.DIV, Right: num(0)},
			}
			prog := compile(0, div)

			var reported *vm.Error
			mockReporter.EXPECT().
				Report(gomock.Any()).
				Do(func(e *vm.Error) { reported = e })

			err := vm.NewWithConfig(prog, vm.VMConfig{Reporter: mockReporter}).Run()

			Expect(errors.Is(err, vm.ErrDivideByZero)).To(BeTrue())
			Expect(reported).NotTo(BeNil())
			Expect(reported.Span.Start.Line).To(Equal(3))
			in, ok := prog.At(reported.Addr)
			Expect(ok).To(BeTrue())
			Expect(in.Op).To(Equal(compiler.Divide))
		})

		It("should report a bad pattern", func() {
			prog := compile(0, set("m", bin(str("a"), token.MATCH, str("("))))
			mockReporter.EXPECT().Report(gomock.Any())

			err := vm.NewWithConfig(prog, vm.VMConfig{Reporter: mockReporter}).Run()

			var perr *runtime.PatternError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Pattern).To(Equal("("))
		})

		It("should report stack underflow in a hand-built unit", func() {
			prog := &compiler.Program{
				Base: 10,
				Code: compiler.Sequence{
					{Addr: 10, Op: compiler.Pop},
					{Addr: 11, Op: compiler.Halt},
				},
			}
			mockReporter.EXPECT().Report(gomock.Any())

			err := vm.NewWithConfig(prog, vm.VMConfig{Reporter: mockReporter}).Run()

			var fault *vm.Error
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.Err).To(MatchError(vm.ErrStackUnderflow))
			Expect(fault.Addr).To(Equal(compiler.Address(10)))
		})

		It("should not report a clean run", func() {
			prog := compile(0, set("x", num(1)))

			Expect(vm.NewWithConfig(prog, vm.VMConfig{Reporter: mockReporter}).Run()).To(Succeed())
		})

		It("should refuse a program that does not verify", func() {
			prog := &compiler.Program{Code: compiler.Sequence{{Addr: 0, Op: compiler.Jump}}}

			err := vm.New(prog).Run()

			var cerr *compiler.Error
			Expect(errors.As(err, &cerr)).To(BeTrue())
		})
	})
})
