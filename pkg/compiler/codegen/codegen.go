// Package codegen lowers stack machine bytecode to 32-bit x86 assembly in
// GNU as (AT&T) syntax.
//
// The hardware stack plays the role of the operand stack: every bytecode
// value is one 32-bit word. Only Number and Void values have a machine
// representation, so programs using strings, characters or arrays are
// rejected with an UNSUPPORTED error.
package codegen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/opcode"
	"github.com/zurustar/stacklang/pkg/value"
)

const backend = "asm"

// Names of the support routines appended to the output.
const (
	ReadRoutine  = "__stacklang_read"
	WriteRoutine = "__stacklang_write"
)

// Generator converts bytecode to assembly lines.
type Generator struct {
	lines []string

	// frame maps names visible in the current function to %ebp offsets.
	frame map[string]int

	usesRead  bool
	usesWrite bool

	errors []error
}

// New creates a new code generator.
func New() *Generator {
	return &Generator{}
}

// Generate lowers program. All unsupported instructions are reported
// together.
func (g *Generator) Generate(program opcode.Program) ([]string, error) {
	g.lines = nil
	g.frame = nil
	g.usesRead = false
	g.usesWrite = false
	g.errors = nil

	g.emitRaw("\t.text")
	g.emitRaw("\t.globl main")
	g.emitRaw("main:")
	g.emit("pushl %%ebp")
	g.emit("movl %%esp, %%ebp")

	for i, op := range program {
		if err := g.generateOp(op); err != nil {
			g.errors = append(g.errors, fmt.Errorf("instruction %d (%s): %w", i, op, err))
		}
	}

	g.emit("movl %%ebp, %%esp")
	g.emit("popl %%ebp")
	g.emit("xorl %%eax, %%eax")
	g.emit("ret")

	g.generateRuntime()

	if len(g.errors) > 0 {
		return nil, errors.Join(g.errors...)
	}
	return g.lines, nil
}

// emit appends one indented instruction.
func (g *Generator) emit(format string, args ...any) {
	g.lines = append(g.lines, "\t"+fmt.Sprintf(format, args...))
}

func (g *Generator) emitRaw(line string) {
	g.lines = append(g.lines, line)
}

func (g *Generator) generateOp(op opcode.OpCode) error {
	switch op.Cmd {
	case opcode.Push:
		return g.generatePush(op.Value)
	case opcode.Pop:
		g.emit("addl $4, %%esp")
	case opcode.Ld:
		off, err := g.offset(op.Name)
		if err != nil {
			return err
		}
		g.emit("pushl %d(%%ebp)", off)
	case opcode.St:
		off, err := g.offset(op.Name)
		if err != nil {
			return err
		}
		g.emit("movl (%%esp), %%eax")
		g.emit("movl %%eax, %d(%%ebp)", off)
	case opcode.Binop:
		return g.generateBinop(op.Op)
	case opcode.Builtin:
		return g.generateBuiltin(op)
	case opcode.Label:
		g.emitRaw(op.Name + ":")
	case opcode.Jump:
		g.emit("jmp %s", op.Name)
	case opcode.Jif:
		g.emit("popl %%eax")
		g.emit("cmpl $0, %%eax")
		g.emit("je %s", op.Name)
	case opcode.Call:
		g.emit("call %s", op.Name)
		if op.N > 0 {
			g.emit("addl $%d, %%esp", 4*op.N)
		}
		g.emit("pushl %%eax")
	case opcode.Enter:
		g.generateEnter(op)
	case opcode.Ret:
		g.emit("popl %%eax")
		g.emit("movl %%ebp, %%esp")
		g.emit("popl %%ebp")
		g.emit("ret")
		g.frame = nil
	case opcode.Comm:
		g.emit("# %s", strings.ReplaceAll(op.Text, "\n", " "))
	default:
		return langerr.NewUnsupportedError(backend, op.String())
	}
	return nil
}

func (g *Generator) generatePush(v value.Value) error {
	switch pv := v.(type) {
	case value.Number:
		g.emit("pushl $%d", int32(pv))
	case value.Void:
		g.emit("pushl $0")
	default:
		return langerr.NewUnsupportedError(backend, v.Kind().String()+" constant "+v.String())
	}
	return nil
}

// generateEnter lays out the frame: parameter i lives above the return
// address at 8+4i(%ebp), local j below the saved %ebp at -4(j+1)(%ebp).
func (g *Generator) generateEnter(op opcode.OpCode) {
	g.frame = make(map[string]int, len(op.Params)+len(op.Locals))
	for i, name := range op.Params {
		g.frame[name] = 8 + 4*i
	}
	for j, name := range op.Locals {
		g.frame[name] = -4 * (j + 1)
	}

	g.emit("pushl %%ebp")
	g.emit("movl %%esp, %%ebp")
	if n := len(op.Locals); n > 0 {
		g.emit("subl $%d, %%esp", 4*n)
	}
}

func (g *Generator) offset(name string) (int, error) {
	off, ok := g.frame[name]
	if !ok {
		return 0, langerr.NewUndefinedVariableError(name)
	}
	return off, nil
}

var setcc = map[ast.Operator]string{
	ast.OpEq:  "sete",
	ast.OpNeq: "setne",
	ast.OpLt:  "setl",
	ast.OpLte: "setle",
	ast.OpGt:  "setg",
	ast.OpGte: "setge",
}

// generateBinop pops the right operand into %ecx and the left into %eax and
// pushes the result.
func (g *Generator) generateBinop(op ast.Operator) error {
	g.emit("popl %%ecx")
	g.emit("popl %%eax")

	switch op {
	case ast.OpAdd:
		g.emit("addl %%ecx, %%eax")
	case ast.OpSub:
		g.emit("subl %%ecx, %%eax")
	case ast.OpMul:
		g.emit("imull %%ecx, %%eax")
	case ast.OpDiv:
		g.emit("cltd")
		g.emit("idivl %%ecx")
	case ast.OpMod:
		g.emit("cltd")
		g.emit("idivl %%ecx")
		g.emit("movl %%edx, %%eax")
	case ast.OpAnd, ast.OpOr:
		combine := "andb"
		if op == ast.OpOr {
			combine = "orb"
		}
		g.emit("cmpl $0, %%eax")
		g.emit("setne %%al")
		g.emit("cmpl $0, %%ecx")
		g.emit("setne %%cl")
		g.emit("%s %%cl, %%al", combine)
		g.emit("movzbl %%al, %%eax")
	default:
		set, ok := setcc[op]
		if !ok {
			return langerr.NewUnsupportedError(backend, "operator "+op.String())
		}
		g.emit("cmpl %%ecx, %%eax")
		g.emit("%s %%al", set)
		g.emit("movzbl %%al, %%eax")
	}

	g.emit("pushl %%eax")
	return nil
}

func (g *Generator) generateBuiltin(op opcode.OpCode) error {
	switch op.Builtin {
	case ast.Read:
		g.usesRead = true
		g.emit("call %s", ReadRoutine)
		g.emit("pushl %%eax")
	case ast.Write:
		// The first argument is the deepest; each call leaves %esp unchanged.
		g.usesWrite = true
		for i := 0; i < op.N; i++ {
			g.emit("movl %d(%%esp), %%eax", 4*(op.N-1-i))
			g.emit("pushl %%eax")
			g.emit("call %s", WriteRoutine)
			g.emit("addl $4, %%esp")
		}
		if op.N > 0 {
			g.emit("addl $%d, %%esp", 4*op.N)
		}
		g.emit("pushl $0")
	default:
		return langerr.NewUnsupportedError(backend, op.String())
	}
	return nil
}
