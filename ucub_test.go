package ucub_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/kolkov/ucub"
	"github.com/kolkov/ucub/ast"
	"github.com/kolkov/ucub/token"
)

func span(line, col int) token.Span {
	return token.MakeSpan(token.Position{Line: line, Column: col}, token.Position{Line: line, Column: col + 5})
}

func ident(name string) *ast.Ident { return ast.NewIdent(name, token.NoSpan) }
func num(v float64) *ast.NumLit    { return &ast.NumLit{Value: v} }

func less(name string, n float64) *ast.BinaryExpr {
	return &ast.BinaryExpr{Left: ident(name), Op: token.LESS, Right: num(n)}
}

func assign(name string, op token.Token, v ast.Expr) *ast.AssignStmt {
	return &ast.AssignStmt{Target: ident(name), Op: op, Value: v}
}

func block(stmts ...ast.Stmt) *ast.BlockStmt { return ast.NewBlockStmt(stmts, token.NoSpan) }

func program(stmts ...ast.Stmt) *ast.Program { return ast.NewProgram(stmts, token.NoSpan) }

func mustNode[T any](v T, err error) func(t *testing.T) T {
	return func(t *testing.T) T {
		t.Helper()
		if err != nil {
			t.Fatalf("building node: %v", err)
		}
		return v
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *ast.Program
		want  map[string]any
	}{
		{
			name: "while counts to three",
			build: func(t *testing.T) *ast.Program {
				return program(
					assign("x", token.ASSIGN, num(0)),
					mustNode(ast.NewWhileStmt(less("x", 3), block(assign("x", token.ADD_ASSIGN, num(1))), token.NoSpan))(t),
				)
			},
			want: map[string]any{"x": 3.0},
		},
		{
			name: "do-while runs once",
			build: func(t *testing.T) *ast.Program {
				return program(
					assign("x", token.ASSIGN, num(7)),
					mustNode(ast.NewDoWhileStmt(block(assign("x", token.ADD_ASSIGN, num(1))), less("x", 3), token.NoSpan))(t),
				)
			},
			want: map[string]any{"x": 8.0},
		},
		{
			name: "for sums with continue",
			build: func(t *testing.T) *ast.Program {
				skip := mustNode(ast.NewIfStmt(
					&ast.BinaryExpr{Left: ident("i"), Op: token.EQUALS, Right: num(2)},
					block(&ast.ContinueStmt{}), nil, token.NoSpan))(t)
				return program(
					assign("sum", token.ASSIGN, num(0)),
					mustNode(ast.NewForStmt(
						assign("i", token.ASSIGN, num(0)), less("i", 5), assign("i", token.ADD_ASSIGN, num(1)),
						block(skip, assign("sum", token.ADD_ASSIGN, ident("i"))), token.NoSpan))(t),
				)
			},
			want: map[string]any{"sum": 8.0, "i": 5.0},
		},
		{
			name: "for without condition leaves on break",
			build: func(t *testing.T) *ast.Program {
				stop := mustNode(ast.NewIfStmt(
					&ast.BinaryExpr{Left: ident("n"), Op: token.GTE, Right: num(4)},
					block(&ast.BreakStmt{}), nil, token.NoSpan))(t)
				return program(
					assign("n", token.ASSIGN, num(0)),
					mustNode(ast.NewForStmt(nil, nil, nil, block(stop, assign("n", token.ADD_ASSIGN, num(1))), token.NoSpan))(t),
				)
			},
			want: map[string]any{"n": 4.0},
		},
		{
			name: "function called before declaration",
			build: func(t *testing.T) *ast.Program {
				sq := mustNode(ast.NewFuncDecl("square", []*ast.Ident{ident("v")}, block(
					&ast.ReturnStmt{Value: &ast.BinaryExpr{Left: ident("v"), Op: token.MUL, Right: ident("v")}},
				), token.NoSpan))(t)
				return program(
					assign("y", token.ASSIGN, ast.NewCallExpr("square", []ast.Expr{num(9)}, token.NoSpan)),
					sq,
				)
			},
			want: map[string]any{"y": 81.0},
		},
		{
			name: "string and boolean values",
			build: func(t *testing.T) *ast.Program {
				return program(
					assign("s", token.ASSIGN, &ast.BinaryExpr{Left: &ast.StrLit{Value: "n="}, Op: token.CONCAT, Right: num(2)}),
					assign("b", token.ASSIGN, &ast.BinaryExpr{Left: &ast.StrLit{Value: "abc"}, Op: token.MATCH, Right: &ast.StrLit{Value: "b+"}}),
					&ast.VarDecl{Name: ident("z")},
				)
			},
			want: map[string]any{"s": "n=2", "b": true, "z": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ucub.Run(tt.build(t), nil)
			if err != nil {
				t.Fatalf("Run error: %v", err)
			}
			for name, want := range tt.want {
				got, ok := res.Global(name)
				if !ok {
					t.Errorf("global %q missing", name)
					continue
				}
				if got != want {
					t.Errorf("%s = %#v, want %#v", name, got, want)
				}
			}
		})
	}
}

func TestStepLimit(t *testing.T) {
	loop := mustNode(ast.NewWhileStmt(&ast.BoolLit{Value: true}, block(), span(1, 1)))(t)
	prog, err := ucub.Compile(program(loop), &ucub.Config{StepLimit: 500})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	_, err = prog.Run(nil)
	if !errors.Is(err, ucub.ErrStepLimit) {
		t.Fatalf("Run error = %v, want ErrStepLimit", err)
	}
	var rerr *ucub.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("Run error %T is not *RuntimeError", err)
	}
	if rerr.Line != 1 {
		t.Errorf("Line = %d, want 1", rerr.Line)
	}

	// A larger budget on the same program still fails; the loop never ends.
	if _, err := prog.Run(&ucub.Config{StepLimit: 10_000}); !errors.Is(err, ucub.ErrStepLimit) {
		t.Errorf("Run error = %v, want ErrStepLimit", err)
	}
}

func TestDivideByZero(t *testing.T) {
	div := &ast.BinaryExpr{BaseExpr: ast.MakeBaseExpr(span(4, 9)), Left: num(1), Op: token.DIV, Right: num(0)}
	_, err := ucub.Run(program(assign("x", token.ASSIGN, div)), nil)

	if !errors.Is(err, ucub.ErrDivideByZero) {
		t.Fatalf("Run error = %v, want ErrDivideByZero", err)
	}
	var rerr *ucub.RuntimeError
	if !errors.As(err, &rerr) || rerr.Line != 4 || rerr.Column != 9 {
		t.Errorf("Run error = %#v, want position 4:9", err)
	}
}

func TestInvalidConditionRejectedAtConstruction(t *testing.T) {
	// while (x = 5) { }
	cond := &ast.AssignStmt{BaseStmt: ast.MakeBaseStmt(span(2, 8)), Target: ident("x"), Op: token.ASSIGN, Value: num(5)}

	loop, err := ast.NewWhileStmt(cond, block(), span(2, 1))
	if loop != nil {
		t.Fatalf("NewWhileStmt returned a node for an invalid condition")
	}
	if !errors.Is(err, ucub.ErrInvalidCondition) {
		t.Fatalf("error = %v, want ErrInvalidCondition", err)
	}
	var aerr *ast.Error
	if !errors.As(err, &aerr) {
		t.Fatalf("error %T is not *ast.Error", err)
	}
	if aerr.Span.Start.Line != 2 || aerr.Span.Start.Column != 8 {
		t.Errorf("error at %s, want 2:8", aerr.Span.Start)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		stmts    []ast.Stmt
		wantKind string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "break outside loop",
			stmts:    []ast.Stmt{&ast.BreakStmt{BaseStmt: ast.MakeBaseStmt(span(3, 5))}},
			wantKind: "invariant",
			wantLine: 3,
			wantMsg:  "break outside loop",
		},
		{
			name:     "continue outside loop",
			stmts:    []ast.Stmt{&ast.ContinueStmt{BaseStmt: ast.MakeBaseStmt(span(6, 1))}},
			wantKind: "invariant",
			wantLine: 6,
			wantMsg:  "continue outside loop",
		},
		{
			name: "undefined function",
			stmts: []ast.Stmt{
				&ast.ExprStmt{Expr: ast.NewCallExpr("missing", nil, span(1, 1))},
			},
			wantKind: "reference",
			wantLine: 1,
			wantMsg:  "missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := ucub.Compile(program(tt.stmts...), nil)
			if prog != nil {
				t.Fatalf("Compile returned a program")
			}
			var cerr *ucub.CompileError
			if !errors.As(err, &cerr) {
				t.Fatalf("error %v (%T) is not *CompileError", err, err)
			}
			if cerr.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", cerr.Kind, tt.wantKind)
			}
			if cerr.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", cerr.Line, tt.wantLine)
			}
			if !strings.Contains(cerr.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", cerr.Message, tt.wantMsg)
			}
		})
	}
}

func TestBaseAddress(t *testing.T) {
	loop := mustNode(ast.NewWhileStmt(less("x", 3), block(assign("x", token.ADD_ASSIGN, num(1))), token.NoSpan))(t)
	prog, err := ucub.Compile(program(loop), &ucub.Config{BaseAddress: 100})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	if prog.Base() != 100 {
		t.Errorf("Base() = %d, want 100", prog.Base())
	}
	want := "0100: LoadGlobal 0\n" +
		"0101: Push 3\n" +
		"0102: Less\n" +
		"0103: JumpFalse @0109\n" +
		"0104: LoadGlobal 0\n" +
		"0105: Push 1\n" +
		"0106: Add\n" +
		"0107: StoreGlobal 0\n" +
		"0108: Jump @0100\n" +
		"0109: Halt\n"
	if got := prog.Listing(); got != want {
		t.Errorf("Listing:\n%s\nwant:\n%s", got, want)
	}
	if prog.Len() != 10 {
		t.Errorf("Len() = %d, want 10", prog.Len())
	}
	if !strings.Contains(prog.Disassemble(), "x [0]") {
		t.Errorf("Disassemble does not name global x:\n%s", prog.Disassemble())
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	loop := mustNode(ast.NewWhileStmt(less("x", 3), block(assign("x", token.ADD_ASSIGN, num(1))), token.NoSpan))(t)
	if _, err := ucub.Compile(program(loop), &ucub.Config{Logger: logger}); err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`msg="lowered loop"`, "kind=while", "exit=9", `msg="compiled unit"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		r := recover()
		if _, ok := r.(*ucub.CompileError); !ok {
			t.Errorf("recovered %v (%T), want *CompileError", r, r)
		}
	}()
	ucub.MustCompile(program(&ast.BreakStmt{}), nil)
}

func TestProgramReusable(t *testing.T) {
	prog := ucub.MustCompile(program(assign("x", token.ADD_ASSIGN, num(1))), nil)
	for i := 0; i < 2; i++ {
		res, err := prog.Run(nil)
		if err != nil {
			t.Fatalf("Run %d error: %v", i, err)
		}
		if x, _ := res.Global("x"); x != 1.0 {
			t.Errorf("run %d: x = %v, want 1", i, x)
		}
	}
}
