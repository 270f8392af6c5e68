package interpreter

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/value"
)

func num(n int32) ast.Node          { return &ast.Const{Value: value.Number(n)} }
func ref(name string) *ast.Variable { return &ast.Variable{Name: name} }
func assign(name string, v ast.Node) ast.Node {
	return &ast.Assignment{Target: ref(name), Value: v}
}
func bin(l ast.Node, op ast.Operator, r ast.Node) ast.Node {
	return &ast.Binary{Left: l, Right: r, Op: op}
}
func write(args ...ast.Node) ast.Node { return &ast.BuiltinCall{Tag: ast.Write, Args: args} }
func read() ast.Node                  { return &ast.BuiltinCall{Tag: ast.Read} }

func program(t *testing.T, mainBody []ast.Node, defs ...*ast.FunctionDef) *ast.Program {
	t.Helper()
	defs = append(defs, &ast.FunctionDef{Name: ast.MainFunction, Body: mainBody})
	p, err := ast.NewProgram(defs...)
	if err != nil {
		t.Fatalf("NewProgram: %v", err)
	}
	return p
}

func run(t *testing.T, p *ast.Program, input string) (string, value.Value, error) {
	t.Helper()
	var out bytes.Buffer
	in := New(WithInput(strings.NewReader(input)), WithOutput(&out))
	v, err := in.Run(context.Background(), p)
	return out.String(), v, err
}

func TestRun_ReadMultiplyWrite(t *testing.T) {
	p := program(t, []ast.Node{
		assign("x", read()),
		assign("y", read()),
		assign("z", bin(bin(ref("x"), ast.OpMul, ref("y")), ast.OpMul, num(3))),
		write(ref("z")),
	})

	out, _, err := run(t, p, "2\n3\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "> > 18\n" {
		t.Errorf("expected %q, got %q", "> > 18\n", out)
	}
}

func TestRun_RepeatedRunsAreDeterministic(t *testing.T) {
	p := program(t, []ast.Node{
		assign("x", read()),
		write(ref("x")),
	})
	var out bytes.Buffer
	in := New(WithInput(strings.NewReader("5\n5\n")), WithOutput(&out))

	for i := 0; i < 2; i++ {
		if _, err := in.Run(context.Background(), p); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if out.String() != "> 5\n> 5\n" {
		t.Errorf("counters leaked between runs: %q", out.String())
	}
}

func TestRun_UnreadInputCarriesOver(t *testing.T) {
	p := program(t, []ast.Node{
		assign("x", read()),
		write(ref("x")),
	})
	var out bytes.Buffer
	in := New(WithInput(strings.NewReader("5\n7\n")), WithOutput(&out))

	for i := 0; i < 2; i++ {
		if _, err := in.Run(context.Background(), p); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if out.String() != "> 5\n> 7\n" {
		t.Errorf("output = %q, want %q", out.String(), "> 5\n> 7\n")
	}
	if _, err := in.Run(context.Background(), p); !langerr.Is(err, langerr.ErrorEndOfInput) {
		t.Errorf("expected END_OF_INPUT once input is used up, got %v", err)
	}
}

func TestRun_CalleeCannotSeeCallerLocals(t *testing.T) {
	peek := &ast.FunctionDef{Name: "peek", Body: []ast.Node{ref("secret")}}
	p := program(t, []ast.Node{
		assign("secret", num(1)),
		&ast.UserCall{Name: "peek"},
	}, peek)

	_, _, err := run(t, p, "")
	if !langerr.Is(err, langerr.ErrorUnresolvedReference) {
		t.Errorf("expected UNRESOLVED_REFERENCE, got %v", err)
	}
}

func TestRun_FunctionReturnsLastValue(t *testing.T) {
	square := &ast.FunctionDef{
		Name:   "square",
		Params: []string{"n"},
		Body:   []ast.Node{assign("r", bin(ref("n"), ast.OpMul, ref("n"))), ref("r")},
	}
	p := program(t, []ast.Node{
		write(&ast.UserCall{Name: "square", Args: []ast.Node{num(7)}}),
	}, square)

	out, _, err := run(t, p, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "49\n" {
		t.Errorf("expected 49, got %q", out)
	}
}

func TestRun_Recursion(t *testing.T) {
	// fact(n) = if n > 1 then n * fact(n - 1) else 1 fi
	fact := &ast.FunctionDef{
		Name:   "fact",
		Params: []string{"n"},
		Body: []ast.Node{&ast.Conditional{
			Cond: bin(ref("n"), ast.OpGt, num(1)),
			Then: []ast.Node{bin(ref("n"), ast.OpMul,
				&ast.UserCall{Name: "fact", Args: []ast.Node{bin(ref("n"), ast.OpSub, num(1))}})},
			Else: []ast.Node{num(1)},
		}},
	}
	p := program(t, []ast.Node{write(&ast.UserCall{Name: "fact", Args: []ast.Node{num(10)}})}, fact)

	out, _, err := run(t, p, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "3628800\n" {
		t.Errorf("expected 3628800, got %q", out)
	}
}

func TestRun_Errors(t *testing.T) {
	f := &ast.FunctionDef{Name: "f", Params: []string{"a"}, Body: []ast.Node{ref("a")}}
	loop := &ast.FunctionDef{Name: "loop", Body: []ast.Node{&ast.UserCall{Name: "loop"}}}

	tests := []struct {
		name    string
		body    []ast.Node
		errType langerr.ErrorType
	}{
		{"arity", []ast.Node{&ast.UserCall{Name: "f"}}, langerr.ErrorArityMismatch},
		{"unknown function", []ast.Node{&ast.UserCall{Name: "g"}}, langerr.ErrorUnresolvedReference},
		{"unbound variable", []ast.Node{write(ref("nope"))}, langerr.ErrorUnresolvedReference},
		{"index into number", []ast.Node{
			assign("a", num(1)),
			&ast.Variable{Name: "a", Indexes: []ast.Node{num(0)}},
		}, langerr.ErrorTypeMismatch},
		{"stack overflow", []ast.Node{&ast.UserCall{Name: "loop"}}, langerr.ErrorStackOverflow},
		{"end of input", []ast.Node{read()}, langerr.ErrorEndOfInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := program(t, tt.body, f, loop)
			in := New(WithInput(strings.NewReader("")), WithOutput(&bytes.Buffer{}), WithMaxCallDepth(50))
			_, err := in.Run(context.Background(), p)
			if !langerr.Is(err, tt.errType) {
				t.Errorf("expected %s, got %v", tt.errType, err)
			}
		})
	}
}

func TestRun_DuplicateFunctionInLiteralProgram(t *testing.T) {
	p := &ast.Program{Functions: []*ast.FunctionDef{
		{Name: "f"}, {Name: "f"}, {Name: ast.MainFunction},
	}}
	_, _, err := run(t, p, "")
	if !langerr.Is(err, langerr.ErrorDuplicateDefinition) {
		t.Errorf("expected DUPLICATE_DEFINITION, got %v", err)
	}
}

func TestConditional_Truthiness(t *testing.T) {
	tests := []struct {
		guard    int32
		expected string
	}{
		{1, "1\n"},
		{42, "1\n"},
		{0, "0\n"},
		{-5, "0\n"},
	}

	for _, tt := range tests {
		p := program(t, []ast.Node{&ast.Conditional{
			Cond: num(tt.guard),
			Then: []ast.Node{write(num(1))},
			Else: []ast.Node{write(num(0))},
		}})
		out, _, err := run(t, p, "")
		if err != nil {
			t.Fatalf("guard %d: %v", tt.guard, err)
		}
		if out != tt.expected {
			t.Errorf("guard %d: expected %q, got %q", tt.guard, tt.expected, out)
		}
	}
}

func TestConditional_ElifOrderAndEmptyElse(t *testing.T) {
	p := program(t, []ast.Node{
		assign("x", num(2)),
		&ast.Conditional{
			Cond: bin(ref("x"), ast.OpEq, num(1)),
			Then: []ast.Node{write(num(1))},
			Elifs: []ast.Elif{
				{Cond: bin(ref("x"), ast.OpEq, num(2)), Body: []ast.Node{write(num(2))}},
				{Cond: bin(ref("x"), ast.OpGt, num(0)), Body: []ast.Node{write(num(3))}},
			},
		},
		&ast.Conditional{Cond: num(0), Then: []ast.Node{write(num(9))}},
	})

	out, v, err := run(t, p, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "2\n" {
		t.Errorf("expected only the first matching elif, got %q", out)
	}
	if v != (value.Void{}) {
		t.Errorf("empty else should yield void, got %v", v)
	}
}

func TestLoops(t *testing.T) {
	tests := []struct {
		name     string
		body     []ast.Node
		expected string
	}{
		{
			name: "while",
			body: []ast.Node{
				assign("i", num(0)),
				&ast.WhileLoop{
					Cond: bin(num(3), ast.OpSub, ref("i")),
					Body: []ast.Node{write(ref("i")), assign("i", bin(ref("i"), ast.OpAdd, num(1)))},
				},
			},
			expected: "0\n1\n2\n",
		},
		{
			name: "for with negative guard keeps looping",
			body: []ast.Node{
				&ast.ForLoop{
					Init:      assign("i", num(-2)),
					Cond:      ref("i"),
					Increment: assign("i", bin(ref("i"), ast.OpAdd, num(1))),
					Body:      []ast.Node{write(ref("i"))},
				},
			},
			expected: "-2\n-1\n",
		},
		{
			name: "repeat runs once even when guard is already true",
			body: []ast.Node{
				&ast.RepeatLoop{Body: []ast.Node{write(num(7))}, Cond: num(1)},
			},
			expected: "7\n",
		},
		{
			name: "repeat continues while guard is zero",
			body: []ast.Node{
				assign("i", num(0)),
				&ast.RepeatLoop{
					Body: []ast.Node{assign("i", bin(ref("i"), ast.OpAdd, num(1))), write(ref("i"))},
					Cond: bin(ref("i"), ast.OpEq, num(3)),
				},
			},
			expected: "1\n2\n3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, program(t, tt.body), "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, out)
			}
		})
	}
}

func TestIndexAssignment_NestedAndAliased(t *testing.T) {
	grid := &ast.BuiltinCall{Tag: ast.Arrmake, Args: []ast.Node{
		num(2),
		&ast.ArrayLit{Elements: []ast.Node{num(0), num(0)}},
	}}
	p := program(t, []ast.Node{
		assign("g", grid),
		assign("alias", ref("g")),
		&ast.Assignment{
			Target: &ast.Variable{Name: "g", Indexes: []ast.Node{num(1), num(0)}},
			Value:  num(5),
		},
		write(&ast.Variable{Name: "alias", Indexes: []ast.Node{num(1), num(0)}}),
		write(&ast.Variable{Name: "g", Indexes: []ast.Node{num(0), num(0)}}),
	})

	out, _, err := run(t, p, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "5\n0\n" {
		t.Errorf("expected %q, got %q", "5\n0\n", out)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	p := program(t, []ast.Node{&ast.WhileLoop{Cond: num(1), Body: []ast.Node{&ast.Skip{}}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithOutput(&bytes.Buffer{})).Run(ctx, p)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !strings.Contains(err.Error(), context.Canceled.Error()) {
		t.Errorf("expected context canceled, got %v", err)
	}
}
