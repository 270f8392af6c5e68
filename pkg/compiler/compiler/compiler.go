// Package compiler lowers a syntax tree into stack machine bytecode.
//
// Every node compiles to code whose net stack effect is exactly one value.
// Statement lists keep only the value of their last statement by popping
// the values in between, so a function body leaves its result on top of the
// stack for RET.
package compiler

import (
	"fmt"

	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/opcode"
	"github.com/zurustar/stacklang/pkg/value"
)

// Compiler generates bytecode from a Program.
type Compiler struct {
	code   opcode.Program
	labels int
	errors []error
}

// New creates a new Compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile lowers program to bytecode. Labels are numbered from zero on every
// call, so compiling the same program twice yields identical output.
// All errors found are returned together.
func (c *Compiler) Compile(program *ast.Program) (opcode.Program, []error) {
	c.code = nil
	c.labels = 0
	c.errors = nil

	if program == nil {
		return nil, []error{fmt.Errorf("program is nil")}
	}

	seen := make(map[string]bool, len(program.Functions))
	for _, f := range program.Functions {
		if seen[f.Name] {
			c.addError(langerr.NewDuplicateDefinitionError("function", f.Name))
		}
		seen[f.Name] = true
	}
	if !seen[ast.MainFunction] {
		c.addError(langerr.NewUndefinedFunctionError(ast.MainFunction))
	}
	if len(c.errors) > 0 {
		return nil, c.errors
	}

	c.emit(
		opcode.NewLabel(opcode.EntryLabel),
		opcode.NewCall(opcode.FunctionLabel(ast.MainFunction), 0),
		opcode.NewJump(opcode.ExitLabel),
	)
	for _, f := range program.Functions {
		c.compileFunction(f)
	}
	c.emit(opcode.NewLabel(opcode.ExitLabel))

	if len(c.errors) > 0 {
		return nil, c.errors
	}
	return c.code, nil
}

func (c *Compiler) emit(ops ...opcode.OpCode) {
	c.code = append(c.code, ops...)
}

func (c *Compiler) addError(err error) {
	c.errors = append(c.errors, err)
}

// newLabel returns a label unique within this compilation.
func (c *Compiler) newLabel() string {
	l := fmt.Sprintf(".L%d", c.labels)
	c.labels++
	return l
}

func (c *Compiler) compileFunction(f *ast.FunctionDef) {
	c.emit(
		opcode.NewComm(fmt.Sprintf("fun %s/%d", f.Name, len(f.Params))),
		opcode.NewLabel(opcode.FunctionLabel(f.Name)),
		opcode.NewEnter(f.Params, CollectLocals(f)),
	)
	c.compileBlock(f.Body)
	c.emit(opcode.NewRet())
}

// compileBlock leaves the value of the last statement, or void.
func (c *Compiler) compileBlock(stmts []ast.Node) {
	if len(stmts) == 0 {
		c.emit(opcode.NewPush(value.Void{}))
		return
	}
	for i, stmt := range stmts {
		if i > 0 {
			c.emit(opcode.NewPop())
		}
		c.compileNode(stmt)
	}
}

func (c *Compiler) compileNodes(nodes []ast.Node) {
	for _, n := range nodes {
		c.compileNode(n)
	}
}

func (c *Compiler) compileNode(node ast.Node) {
	switch n := node.(type) {
	case *ast.Const:
		c.emit(opcode.NewPush(n.Value))
	case *ast.Skip:
		c.emit(opcode.NewPush(value.Void{}))
	case *ast.Variable:
		if n.IsIndexed() {
			c.compileNodes(n.Indexes)
			c.emit(opcode.NewLdArr(n.Name, len(n.Indexes)))
		} else {
			c.emit(opcode.NewLd(n.Name))
		}
	case *ast.Binary:
		c.compileNode(n.Left)
		c.compileNode(n.Right)
		c.emit(opcode.NewBinop(n.Op))
	case *ast.UnaryMinus:
		c.emit(opcode.NewPush(value.Number(0)))
		c.compileNode(n.Arg)
		c.emit(opcode.NewBinop(ast.OpSub))
	case *ast.ArrayLit:
		c.compileNodes(n.Elements)
		c.emit(opcode.NewMakeArr(len(n.Elements)))
	case *ast.BuiltinCall:
		c.compileNodes(n.Args)
		c.emit(opcode.NewBuiltin(n.Tag, len(n.Args)))
	case *ast.UserCall:
		// Reverse order puts the first argument on top, where ENTER pops it first.
		for i := len(n.Args) - 1; i >= 0; i-- {
			c.compileNode(n.Args[i])
		}
		c.emit(opcode.NewCall(opcode.FunctionLabel(n.Name), len(n.Args)))
	case *ast.Assignment:
		c.compileAssignment(n)
	case *ast.Conditional:
		c.compileConditional(n)
	case *ast.WhileLoop:
		c.compileWhile(n)
	case *ast.ForLoop:
		c.compileFor(n)
	case *ast.RepeatLoop:
		c.compileRepeat(n)
	default:
		c.addError(langerr.New(langerr.ErrorUnsupported, "unknown node type: %T", node))
	}
}

func (c *Compiler) compileAssignment(a *ast.Assignment) {
	if a.Target.IsIndexed() {
		c.compileNodes(a.Target.Indexes)
		c.compileNode(a.Value)
		c.emit(opcode.NewStArr(a.Target.Name, len(a.Target.Indexes)))
		return
	}
	c.compileNode(a.Value)
	c.emit(opcode.NewSt(a.Target.Name))
}

// compilePositive leaves 1 if cond is positive and 0 otherwise.
func (c *Compiler) compilePositive(cond ast.Node) {
	c.compileNode(cond)
	c.emit(opcode.NewPush(value.Number(0)), opcode.NewBinop(ast.OpGt))
}

func (c *Compiler) compileConditional(cond *ast.Conditional) {
	after := c.newLabel()

	next := c.newLabel()
	c.compilePositive(cond.Cond)
	c.emit(opcode.NewJif(next))
	c.compileBlock(cond.Then)
	c.emit(opcode.NewJump(after), opcode.NewLabel(next))

	for _, elif := range cond.Elifs {
		next = c.newLabel()
		c.compilePositive(elif.Cond)
		c.emit(opcode.NewJif(next))
		c.compileBlock(elif.Body)
		c.emit(opcode.NewJump(after), opcode.NewLabel(next))
	}

	c.compileBlock(cond.Else)
	c.emit(opcode.NewLabel(after))
}

// compileWhile keeps the last body value on the stack across iterations,
// seeded with void for loops that never run.
func (c *Compiler) compileWhile(w *ast.WhileLoop) {
	start, end := c.newLabel(), c.newLabel()

	c.emit(opcode.NewPush(value.Void{}), opcode.NewLabel(start))
	c.compilePositive(w.Cond)
	c.emit(opcode.NewJif(end), opcode.NewPop())
	c.compileBlock(w.Body)
	c.emit(opcode.NewJump(start), opcode.NewLabel(end))
}

func (c *Compiler) compileFor(f *ast.ForLoop) {
	start, end := c.newLabel(), c.newLabel()

	c.compileNode(f.Init)
	c.emit(opcode.NewPop(), opcode.NewPush(value.Void{}), opcode.NewLabel(start))
	c.compileNode(f.Cond)
	c.emit(opcode.NewJif(end), opcode.NewPop())
	c.compileBlock(f.Body)
	c.compileNode(f.Increment)
	c.emit(opcode.NewPop(), opcode.NewJump(start), opcode.NewLabel(end))
}

// compileRepeat jumps back while the guard is zero.
func (c *Compiler) compileRepeat(r *ast.RepeatLoop) {
	start := c.newLabel()

	c.emit(opcode.NewPush(value.Void{}), opcode.NewLabel(start), opcode.NewPop())
	c.compileBlock(r.Body)
	c.compileNode(r.Cond)
	c.emit(opcode.NewJif(start))
}
