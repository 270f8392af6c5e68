package compiler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/interpreter"
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/value"
	"github.com/zurustar/stacklang/pkg/vm"
)

// outcome is what one backend produced for a program.
type outcome struct {
	output string
	result value.Value
	err    error
}

func interpret(program *ast.Program, input string) outcome {
	var out bytes.Buffer
	in := interpreter.New(interpreter.WithInput(strings.NewReader(input)), interpreter.WithOutput(&out))
	result, err := in.Run(context.Background(), program)
	return outcome{output: out.String(), result: result, err: err}
}

func execute(program *ast.Program, input string) outcome {
	code, errs := CompileProgram(program)
	if len(errs) > 0 {
		return outcome{err: errs[0]}
	}
	var out bytes.Buffer
	m := vm.New(code, vm.WithInput(strings.NewReader(input)), vm.WithOutput(&out))
	if err := m.Run(context.Background()); err != nil {
		return outcome{output: out.String(), err: err}
	}
	return outcome{output: out.String(), result: m.Result()}
}

// agree reports a description of the first difference between a and b.
func agree(a, b outcome) string {
	if a.output != b.output {
		return fmt.Sprintf("output %q vs %q", a.output, b.output)
	}
	if (a.err == nil) != (b.err == nil) {
		return fmt.Sprintf("error %v vs %v", a.err, b.err)
	}
	if a.err == nil && a.result.String() != b.result.String() {
		return fmt.Sprintf("result %s vs %s", a.result, b.result)
	}
	return ""
}

func TestBackendsAgree(t *testing.T) {
	tests := []struct {
		name   string
		source string
		input  string
		output string
		// vmOutput pins a known difference: the stack machine evaluates
		// user-call arguments right to left.
		vmOutput string
	}{
		{
			name:   "read multiply write",
			source: "x := read(); y := read(); z := x * y * 3; write(z)",
			input:  "2\n3\n",
			output: "> > 18\n",
		},
		{
			name: "recursion",
			source: `
				fun fact(n) begin if n < 2 then 1 else n * fact(n - 1) fi end
				write(fact(10))`,
			output: "3628800\n",
		},
		{
			name:   "for loop",
			source: "s := 0; for i := 1, i <= 10, i := i + 1 do s := s + i od; write(s)",
			output: "55\n",
		},
		{
			name:   "while stops on non-positive guard",
			source: "n := 5; while n do write(n); n := n - 2 od",
			output: "5\n3\n1\n",
		},
		{
			name:   "repeat runs until the guard is nonzero",
			source: "i := 0; repeat i := i + 1 until i == 3; write(i)",
			output: "3\n",
		},
		{
			name:   "repeat runs at least once",
			source: "i := 0; repeat i := i + 1 until 1; write(i)",
			output: "1\n",
		},
		{
			name:   "elif chain",
			source: "x := 2; if x == 1 then write(10) elif x == 2 then write(20) else write(30) fi",
			output: "20\n",
		},
		{
			name:   "logical operators",
			source: "write(3 && 0, 0 || 5, 2 & 3, 0 | 0, 0 !! 0)",
			output: "0\n1\n1\n0\n0\n",
		},
		{
			name: "short circuit skips the right operand",
			source: `
				fun boom() begin 1 / 0 end
				write(0 && boom(), 1 || boom())`,
			output: "0\n1\n",
		},
		{
			name:   "truncating division",
			source: "write(7 / 3, 7 % 3, -7 / 2, -7 % 2, -1 + 1)",
			output: "2\n1\n-3\n-1\n0\n",
		},
		{
			name:   "strings",
			source: `s := "hello"; write(strlen(s), strcat(s, " world"), strget(s, 1), strcmp(s, "help"))`,
			output: "5\nhello world\n101\n-1\n",
		},
		{
			name:   "string literals are fresh each time",
			source: `i := 0; while i < 2 do s := "ab"; write(s); strset(s, 0, 'x'); i := i + 1 od`,
			output: "ab\nab\n",
		},
		{
			name:   "arrays",
			source: "a := [1, 2, 3]; a[1] := 7; write(a[0] + a[1] + a[2], arrlen(a)); m := arrmake(2, [0, 0]); m[1][0] := 4; write(m[1][0], m[0][0])",
			output: "11\n3\n4\n0\n",
		},
		{
			name:   "characters",
			source: "c := 'A'; write(c, c == 'A', c < 'B')",
			output: "65\n1\n1\n",
		},
		{
			name: "caller bindings survive a call",
			source: `
				fun f(x) begin y := x * 10; y end
				x := 1; y := 2; write(f(5), x, y)`,
			output: "50\n1\n2\n",
		},
		{
			name: "return ends the block",
			source: `
				fun f(n) begin return n + 1; write(99) end
				write(f(1))`,
			output: "2\n",
		},
		{
			name: "user-call arguments with side effects",
			source: `
				fun g(a, b) begin a * 10 + b end
				write(g(read(), read()))`,
			input:    "1\n2\n",
			output:   "> > 12\n",
			vmOutput: "> > 21\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, errs := Parse(tt.source)
			if len(errs) > 0 {
				t.Fatalf("parse: %v", errs)
			}

			tree := interpret(program, tt.input)
			stack := execute(program, tt.input)

			if tree.err != nil {
				t.Fatalf("interpreter: %v", tree.err)
			}
			if tree.output != tt.output {
				t.Errorf("interpreter output %q, want %q", tree.output, tt.output)
			}
			if tt.vmOutput != "" {
				if stack.err != nil {
					t.Fatalf("vm: %v", stack.err)
				}
				if stack.output != tt.vmOutput {
					t.Errorf("vm output %q, want %q", stack.output, tt.vmOutput)
				}
				return
			}
			if diff := agree(tree, stack); diff != "" {
				t.Errorf("backends disagree: %s", diff)
			}
		})
	}
}

func TestBackendsAgreeOnErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		input   string
		errType langerr.ErrorType
	}{
		{"division by zero", "write(1 / 0)", "", langerr.ErrorDivisionByZero},
		{"callee cannot see caller locals", "fun f() begin y end\ny := 1; f()", "", langerr.ErrorUnresolvedReference},
		{"undefined function", "g(1)", "", langerr.ErrorUnresolvedReference},
		{"arity", "fun f(a) begin a end\nf(1, 2)", "", langerr.ErrorArityMismatch},
		{"index out of range", "a := [1]; a[1]", "", langerr.ErrorIndexOutOfRange},
		{"type mismatch", `1 + "a"`, "", langerr.ErrorTypeMismatch},
		{"end of input", "read()", "", langerr.ErrorEndOfInput},
		{"runaway recursion", "fun f(n) begin f(n + 1) end\nf(0)", "", langerr.ErrorStackOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, errs := Parse(tt.source)
			if len(errs) > 0 {
				t.Fatalf("parse: %v", errs)
			}

			tree := interpret(program, tt.input)
			stack := execute(program, tt.input)

			if !langerr.Is(tree.err, tt.errType) {
				t.Errorf("interpreter: expected %s, got %v", tt.errType, tree.err)
			}
			if !langerr.Is(stack.err, tt.errType) {
				t.Errorf("vm: expected %s, got %v", tt.errType, stack.err)
			}
		})
	}
}
