package codegen

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/compiler/compiler"
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/opcode"
	"github.com/zurustar/stacklang/pkg/value"
)

func num(n int32) ast.Node          { return &ast.Const{Value: value.Number(n)} }
func ref(name string) *ast.Variable { return &ast.Variable{Name: name} }
func bin(l ast.Node, op ast.Operator, r ast.Node) ast.Node {
	return &ast.Binary{Left: l, Right: r, Op: op}
}
func write(args ...ast.Node) ast.Node { return &ast.BuiltinCall{Tag: ast.Write, Args: args} }

func compileProgram(t *testing.T, mainBody []ast.Node, defs ...*ast.FunctionDef) opcode.Program {
	t.Helper()
	defs = append(defs, &ast.FunctionDef{Name: ast.MainFunction, Body: mainBody})
	p, err := ast.NewProgram(defs...)
	if err != nil {
		t.Fatalf("NewProgram: %v", err)
	}
	code, errs := compiler.New().Compile(p)
	if len(errs) > 0 {
		t.Fatalf("Compile: %v", errs)
	}
	return code
}

func generate(t *testing.T, code opcode.Program) []string {
	t.Helper()
	lines, err := New().Generate(code)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return lines
}

// expectSequence fails unless seq appears contiguously in lines.
func expectSequence(t *testing.T, lines []string, seq ...string) {
	t.Helper()
	for i := 0; i+len(seq) <= len(lines); i++ {
		match := true
		for j, s := range seq {
			if lines[i+j] != s {
				match = false
				break
			}
		}
		if match {
			return
		}
	}
	t.Errorf("sequence %q not found in:\n%s", seq, strings.Join(lines, "\n"))
}

func TestGenerate_HeaderAndEpilogue(t *testing.T) {
	lines := generate(t, compileProgram(t, []ast.Node{num(1)}))

	expectSequence(t, lines[:5], "\t.text", "\t.globl main", "main:", "\tpushl %ebp", "\tmovl %esp, %ebp")
	expectSequence(t, lines,
		".Lexit:",
		"\tmovl %ebp, %esp",
		"\tpopl %ebp",
		"\txorl %eax, %eax",
		"\tret",
	)
	expectSequence(t, lines, ".Lentry:", "\tcall _main", "\tpushl %eax", "\tjmp .Lexit")
}

func TestGenerate_FrameLayout(t *testing.T) {
	f := &ast.FunctionDef{
		Name:   "f",
		Params: []string{"a", "b"},
		Body: []ast.Node{
			&ast.Assignment{Target: ref("t"), Value: bin(ref("a"), ast.OpSub, ref("b"))},
			ref("t"),
		},
	}
	lines := generate(t, compileProgram(t, []ast.Node{&ast.UserCall{Name: "f", Args: []ast.Node{num(5), num(3)}}}, f))

	expectSequence(t, lines,
		"_f:",
		"\tpushl %ebp",
		"\tmovl %esp, %ebp",
		"\tsubl $4, %esp",
		"\tpushl 8(%ebp)",
		"\tpushl 12(%ebp)",
		"\tpopl %ecx",
		"\tpopl %eax",
		"\tsubl %ecx, %eax",
		"\tpushl %eax",
		"\tmovl (%esp), %eax",
		"\tmovl %eax, -4(%ebp)",
		"\taddl $4, %esp",
		"\tpushl -4(%ebp)",
		"\tpopl %eax",
		"\tmovl %ebp, %esp",
		"\tpopl %ebp",
		"\tret",
	)
	expectSequence(t, lines, "\tpushl $3", "\tpushl $5", "\tcall _f", "\taddl $8, %esp", "\tpushl %eax")
}

func TestGenerate_Operators(t *testing.T) {
	tests := []struct {
		op       ast.Operator
		expected []string
	}{
		{ast.OpAdd, []string{"\taddl %ecx, %eax"}},
		{ast.OpMul, []string{"\timull %ecx, %eax"}},
		{ast.OpDiv, []string{"\tcltd", "\tidivl %ecx", "\tpushl %eax"}},
		{ast.OpMod, []string{"\tcltd", "\tidivl %ecx", "\tmovl %edx, %eax"}},
		{ast.OpAnd, []string{"\tsetne %cl", "\tandb %cl, %al", "\tmovzbl %al, %eax"}},
		{ast.OpOr, []string{"\tsetne %cl", "\torb %cl, %al", "\tmovzbl %al, %eax"}},
		{ast.OpEq, []string{"\tcmpl %ecx, %eax", "\tsete %al", "\tmovzbl %al, %eax"}},
		{ast.OpNeq, []string{"\tsetne %al"}},
		{ast.OpLt, []string{"\tsetl %al"}},
		{ast.OpLte, []string{"\tsetle %al"}},
		{ast.OpGt, []string{"\tsetg %al"}},
		{ast.OpGte, []string{"\tsetge %al"}},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			lines := generate(t, compileProgram(t, []ast.Node{bin(num(7), tt.op, num(2))}))
			expectSequence(t, lines, "\tpushl $7", "\tpushl $2", "\tpopl %ecx", "\tpopl %eax")
			expectSequence(t, lines, tt.expected...)
		})
	}
}

func TestGenerate_ControlFlow(t *testing.T) {
	lines := generate(t, compileProgram(t, []ast.Node{
		&ast.Conditional{Cond: num(1), Then: []ast.Node{num(2)}, Else: []ast.Node{num(3)}},
	}))

	expectSequence(t, lines, "\tpopl %eax", "\tcmpl $0, %eax", "\tje .L1")
	expectSequence(t, lines, "\tjmp .L0", ".L1:", "\tpushl $3", ".L0:")
}

func TestGenerate_WriteArgumentsInOrder(t *testing.T) {
	lines := generate(t, compileProgram(t, []ast.Node{write(num(1), num(2))}))

	expectSequence(t, lines,
		"\tpushl $1",
		"\tpushl $2",
		"\tmovl 4(%esp), %eax",
		"\tpushl %eax",
		"\tcall "+WriteRoutine,
		"\taddl $4, %esp",
		"\tmovl 0(%esp), %eax",
		"\tpushl %eax",
		"\tcall "+WriteRoutine,
		"\taddl $4, %esp",
		"\taddl $8, %esp",
		"\tpushl $0",
	)
	expectSequence(t, lines, WriteRoutine+":")
	for _, l := range lines {
		if l == ReadRoutine+":" {
			t.Error("read routine emitted for a program that never reads")
		}
	}
}

func TestGenerate_RuntimeOnlyWhenUsed(t *testing.T) {
	lines := generate(t, compileProgram(t, []ast.Node{num(1)}))
	for _, l := range lines {
		if l == "\t.data" {
			t.Fatal("program without I/O should not carry runtime data")
		}
	}

	lines = generate(t, compileProgram(t, []ast.Node{
		&ast.Assignment{Target: ref("x"), Value: &ast.BuiltinCall{Tag: ast.Read}},
	}))
	expectSequence(t, lines, "\tcall "+ReadRoutine, "\tpushl %eax")
	expectSequence(t, lines, ReadRoutine+":")
	expectSequence(t, lines, "\tcall scanf")
}

func TestGenerate_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		body []ast.Node
	}{
		{"string constant", []ast.Node{&ast.Const{Value: value.NewStr("hi")}}},
		{"character constant", []ast.Node{&ast.Const{Value: value.Character('c')}}},
		{"array literal", []ast.Node{&ast.ArrayLit{Elements: []ast.Node{num(1)}}}},
		{"string builtin", []ast.Node{&ast.BuiltinCall{Tag: ast.Strmake, Args: []ast.Node{num(1), num(2)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Generate(compileProgram(t, tt.body))
			if !langerr.Is(err, langerr.ErrorUnsupported) {
				t.Errorf("expected UNSUPPORTED, got %v", err)
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	code := compileProgram(t, []ast.Node{write(bin(num(6), ast.OpMul, num(7)))})
	g := New()
	first, err := g.Generate(code)
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.Generate(code)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(first, "\n") != strings.Join(second, "\n") {
		t.Error("generating twice produced different output")
	}
}

// TestGenerate_Assembles feeds the output to the system assembler when one
// that understands 32-bit x86 is available.
func TestGenerate_Assembles(t *testing.T) {
	if runtime.GOARCH != "amd64" && runtime.GOARCH != "386" {
		t.Skip("assembler check needs an x86 host")
	}
	as, err := exec.LookPath("as")
	if err != nil {
		t.Skip("as not found")
	}

	f := &ast.FunctionDef{
		Name:   "twice",
		Params: []string{"n"},
		Body:   []ast.Node{bin(ref("n"), ast.OpMul, num(2))},
	}
	code := compileProgram(t, []ast.Node{
		&ast.Assignment{Target: ref("x"), Value: &ast.BuiltinCall{Tag: ast.Read}},
		&ast.WhileLoop{Cond: ref("x"), Body: []ast.Node{
			write(&ast.UserCall{Name: "twice", Args: []ast.Node{ref("x")}}),
			&ast.Assignment{Target: ref("x"), Value: bin(ref("x"), ast.OpSub, num(1))},
		}},
	}, f)
	lines := generate(t, code)

	dir := t.TempDir()
	src := filepath.Join(dir, "prog.s")
	if err := os.WriteFile(src, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := exec.Command(as, "--32", "-o", filepath.Join(dir, "prog.o"), src).CombinedOutput()
	if err != nil {
		t.Errorf("as rejected generated code: %v\n%s", err, out)
	}
}
