// Package opcode defines the instruction set of the stack machine.
// This package is the foundation that the compiler, the VM and the native
// code generator all depend on. The compiler generates OpCode sequences,
// the VM executes them, and the code generator lowers them to assembly.
package opcode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/value"
)

// Cmd represents an OpCode command type.
// Each Cmd corresponds to a specific operation that the VM can execute.
type Cmd string

// OpCode command types for all supported operations.
const (
	// Push pushes a constant.
	// Fields: Value
	Push Cmd = "PUSH"

	// Pop discards the top of the stack.
	Pop Cmd = "POP"

	// Ld pushes the value of a simple variable.
	// Fields: Name
	Ld Cmd = "LD"

	// St pops a value, stores it into a variable and pushes it back.
	// Fields: Name
	St Cmd = "ST"

	// LdArr pops N indexes and pushes the addressed element of variable Name.
	// Fields: Name, N
	LdArr Cmd = "LD_ARR"

	// StArr pops a value and N indexes, stores the value into the addressed
	// element of variable Name and pushes the value back.
	// Fields: Name, N
	StArr Cmd = "ST_ARR"

	// MakeArr pops N values and pushes an array holding them in push order.
	// Fields: N
	MakeArr Cmd = "MAKE_ARR"

	// Binop pops the right then the left operand and pushes the result.
	// Fields: Op
	Binop Cmd = "BINOP"

	// Builtin pops N arguments and pushes the result of a builtin primitive.
	// Fields: Builtin, N
	Builtin Cmd = "BUILTIN"

	// Label marks a jump target. It does nothing when executed.
	// Fields: Name
	Label Cmd = "LABEL"

	// Jump transfers control to a label.
	// Fields: Name
	Jump Cmd = "JUMP"

	// Jif pops a condition and jumps to a label if it is zero.
	// Fields: Name
	Jif Cmd = "JIF"

	// Call pushes the return address and jumps to a function label.
	// Fields: Name (label), N (argument count)
	Call Cmd = "CALL"

	// Enter opens a call frame.
	// Fields: Params, Locals
	Enter Cmd = "ENTER"

	// Ret closes the current call frame and returns to the caller.
	Ret Cmd = "RET"

	// Comm is an annotation with no effect.
	// Fields: Text
	Comm Cmd = "COMM"
)

// EntryLabel is where execution starts; ExitLabel follows the last instruction.
const (
	EntryLabel = ".Lentry"
	ExitLabel  = ".Lexit"
)

// FunctionLabel returns the label of a user function.
func FunctionLabel(name string) string {
	return "_" + name
}

// OpCode represents a single instruction for the VM.
// Only the fields listed for its Cmd are meaningful.
type OpCode struct {
	Cmd     Cmd
	Value   value.Value
	Name    string
	N       int
	Op      ast.Operator
	Builtin ast.BuiltinTag
	Params  []string
	Locals  []string
	Text    string
}

// Program is a flat instruction sequence.
type Program []OpCode

func NewPush(v value.Value) OpCode       { return OpCode{Cmd: Push, Value: v} }
func NewPop() OpCode                     { return OpCode{Cmd: Pop} }
func NewLd(name string) OpCode           { return OpCode{Cmd: Ld, Name: name} }
func NewSt(name string) OpCode           { return OpCode{Cmd: St, Name: name} }
func NewLdArr(name string, n int) OpCode { return OpCode{Cmd: LdArr, Name: name, N: n} }
func NewStArr(name string, n int) OpCode { return OpCode{Cmd: StArr, Name: name, N: n} }
func NewMakeArr(n int) OpCode            { return OpCode{Cmd: MakeArr, N: n} }
func NewBinop(op ast.Operator) OpCode    { return OpCode{Cmd: Binop, Op: op} }
func NewLabel(name string) OpCode        { return OpCode{Cmd: Label, Name: name} }
func NewJump(name string) OpCode         { return OpCode{Cmd: Jump, Name: name} }
func NewJif(name string) OpCode          { return OpCode{Cmd: Jif, Name: name} }
func NewRet() OpCode                     { return OpCode{Cmd: Ret} }
func NewComm(text string) OpCode         { return OpCode{Cmd: Comm, Text: text} }

// NewBuiltin creates a builtin invocation with argc arguments.
func NewBuiltin(tag ast.BuiltinTag, argc int) OpCode {
	return OpCode{Cmd: Builtin, Builtin: tag, N: argc}
}

// NewCall creates a call to the function label with argc arguments.
func NewCall(label string, argc int) OpCode {
	return OpCode{Cmd: Call, Name: label, N: argc}
}

// NewEnter creates a frame opener. params and locals are copied.
func NewEnter(params, locals []string) OpCode {
	return OpCode{
		Cmd:    Enter,
		Params: append([]string{}, params...),
		Locals: append([]string{}, locals...),
	}
}

// String returns the canonical one-line rendering, e.g. "PUSH 3",
// "CALL _foo 2" or "ENTER [a, b] [x]".
func (op OpCode) String() string {
	switch op.Cmd {
	case Push:
		return "PUSH " + op.Value.String()
	case Ld, St, Label, Jump, Jif:
		return string(op.Cmd) + " " + op.Name
	case LdArr, StArr, Call:
		return fmt.Sprintf("%s %s %d", op.Cmd, op.Name, op.N)
	case MakeArr:
		return fmt.Sprintf("%s %d", op.Cmd, op.N)
	case Binop:
		return "BINOP " + op.Op.String()
	case Builtin:
		arity := op.Builtin.Arity()
		if arity == op.N || (arity == ast.Variadic && op.N == 1) {
			return op.Builtin.String()
		}
		return op.Builtin.String() + " " + strconv.Itoa(op.N)
	case Enter:
		return "ENTER [" + strings.Join(op.Params, ", ") + "] [" + strings.Join(op.Locals, ", ") + "]"
	case Comm:
		return "COMM " + strconv.Quote(op.Text)
	default:
		return string(op.Cmd)
	}
}

// Listing renders the program one instruction per line as "index: op".
func Listing(p Program) string {
	var buf strings.Builder
	for i, op := range p {
		fmt.Fprintf(&buf, "%d: %s\n", i, op)
	}
	return buf.String()
}

// ResolveLabels maps every label to its instruction index.
func ResolveLabels(p Program) (map[string]int, error) {
	labels := make(map[string]int)
	for i, op := range p {
		if op.Cmd != Label {
			continue
		}
		if _, exists := labels[op.Name]; exists {
			return nil, langerr.NewDuplicateDefinitionError("label", op.Name)
		}
		labels[op.Name] = i
	}
	return labels, nil
}
