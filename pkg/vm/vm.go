// Package vm provides the stack machine that executes compiled bytecode.
//
// The machine keeps a single operand stack and one flat binding table.
// CALL pushes a return address, ENTER saves the bindings the callee is about
// to shadow, and RET restores them, so a callee never observes the locals of
// its caller.
package vm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/zurustar/stacklang/pkg/builtins"
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/logger"
	"github.com/zurustar/stacklang/pkg/opcode"
	"github.com/zurustar/stacklang/pkg/value"
)

// VM represents the virtual machine that executes OpCode instructions.
type VM struct {
	program opcode.Program
	labels  map[string]int
	ip      int

	stack     []slot
	scope     *Scope
	callStack []*StackFrame
	maxDepth  int

	rt     *builtins.Runtime
	input  *bufio.Reader
	output io.Writer

	timeout time.Duration
	steps   int

	log *slog.Logger
}

// Option is a functional option for configuring the VM.
type Option func(*VM)

// WithInput sets the stream READ consumes. Lines a run leaves unread stay
// available to the next run.
func WithInput(r io.Reader) Option {
	return func(vm *VM) {
		vm.input = bufio.NewReader(r)
	}
}

// WithOutput sets the stream WRITE prints to.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) {
		vm.output = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// WithMaxCallDepth overrides the call depth limit. main does not count.
func WithMaxCallDepth(depth int) Option {
	return func(vm *VM) {
		vm.maxDepth = depth
	}
}

// WithTimeout limits the wall clock time of Run.
func WithTimeout(timeout time.Duration) Option {
	return func(vm *VM) {
		vm.timeout = timeout
	}
}

// New creates a VM for program.
func New(program opcode.Program, opts ...Option) *VM {
	vm := &VM{
		program:  program,
		maxDepth: builtins.MaxStackDepth,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.input == nil {
		vm.input = bufio.NewReader(os.Stdin)
	}
	return vm
}

// Run executes the program from the entry label until the instruction
// pointer moves past the last instruction. Every call starts from an empty
// stack, an empty binding table and fresh builtin counters.
func (vm *VM) Run(ctx context.Context) error {
	if vm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, vm.timeout)
		defer cancel()
	}

	labels, err := opcode.ResolveLabels(vm.program)
	if err != nil {
		return fmt.Errorf("vm: %w", err)
	}
	entry, ok := labels[opcode.EntryLabel]
	if !ok {
		return fmt.Errorf("vm: %w", langerr.NewUndefinedLabelError(opcode.EntryLabel))
	}

	rtOpts := []builtins.Option{builtins.WithInput(vm.input)}
	if vm.output != nil {
		rtOpts = append(rtOpts, builtins.WithOutput(vm.output))
	}
	rtOpts = append(rtOpts, builtins.WithLogger(vm.log))

	vm.rt = builtins.NewRuntime(rtOpts...)
	vm.labels = labels
	vm.ip = entry
	vm.stack = vm.stack[:0]
	vm.scope = NewScope()
	vm.callStack = vm.callStack[:0]
	vm.steps = 0

	vm.log.Debug("VM started", "opcode_count", len(vm.program), "labels", len(labels), "timeout", vm.timeout)

	for vm.ip < len(vm.program) {
		select {
		case <-ctx.Done():
			vm.log.Debug("VM execution cancelled", "ip", vm.ip, "steps", vm.steps)
			return fmt.Errorf("vm: %w", ctx.Err())
		default:
		}

		op := vm.program[vm.ip]
		if err := vm.Execute(op); err != nil {
			return fmt.Errorf("vm: instruction %d (%s): %w", vm.ip, op, err)
		}
		vm.ip++
		vm.steps++
	}

	vm.log.Debug("VM completed", "steps", vm.steps)
	return nil
}

// Result returns the value left on top of the stack by the last Run, which
// is the value of main after a successful run.
func (vm *VM) Result() value.Value {
	if len(vm.stack) == 0 || vm.stack[len(vm.stack)-1].kind != slotValue {
		return value.Void{}
	}
	return vm.stack[len(vm.stack)-1].val
}

// Steps returns the number of instructions the last Run executed.
func (vm *VM) Steps() int {
	return vm.steps
}

// Execute runs a single instruction. Control transfers set ip to the target
// label's index; Run then advances past it.
func (vm *VM) Execute(op opcode.OpCode) error {
	switch op.Cmd {
	case opcode.Push:
		vm.push(op.Value.Copy())
	case opcode.Pop:
		_, err := vm.pop()
		return err
	case opcode.Ld:
		v, ok := vm.scope.Get(op.Name)
		if !ok {
			return langerr.NewUndefinedVariableError(op.Name)
		}
		vm.push(v)
	case opcode.St:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.scope.Set(op.Name, v)
		vm.push(v)
	case opcode.LdArr:
		return vm.executeLoadElement(op)
	case opcode.StArr:
		return vm.executeStoreElement(op)
	case opcode.MakeArr:
		elems, err := vm.popN(op.N)
		if err != nil {
			return err
		}
		vm.push(value.NewArray(elems))
	case opcode.Binop:
		return vm.executeBinop(op)
	case opcode.Builtin:
		args, err := vm.popN(op.N)
		if err != nil {
			return err
		}
		v, err := vm.rt.Call(op.Builtin, args)
		if err != nil {
			return err
		}
		vm.push(v)
	case opcode.Label, opcode.Comm:
	case opcode.Jump:
		return vm.jump(op.Name)
	case opcode.Jif:
		return vm.executeJif(op)
	case opcode.Call:
		return vm.executeCall(op)
	case opcode.Enter:
		return vm.executeEnter(op)
	case opcode.Ret:
		return vm.executeRet()
	default:
		return langerr.NewUnsupportedError("vm", op.String())
	}
	return nil
}

func (vm *VM) jump(label string) error {
	target, ok := vm.labels[label]
	if !ok {
		return langerr.NewUndefinedLabelError(label)
	}
	vm.ip = target
	return nil
}

func (vm *VM) executeBinop(op opcode.OpCode) error {
	r, err := vm.pop()
	if err != nil {
		return err
	}
	l, err := vm.pop()
	if err != nil {
		return err
	}
	n, err := builtins.Apply(l, r, op.Op)
	if err != nil {
		return err
	}
	vm.push(value.Number(n))
	return nil
}

func (vm *VM) executeJif(op opcode.OpCode) error {
	cond, err := vm.pop()
	if err != nil {
		return err
	}
	n, err := builtins.TakeInt(cond, "conditional jump")
	if err != nil {
		return err
	}
	if n == 0 {
		return vm.jump(op.Name)
	}
	return nil
}

func (vm *VM) executeLoadElement(op opcode.OpCode) error {
	indexes, err := vm.popN(op.N)
	if err != nil {
		return err
	}
	arr, ok := vm.scope.Get(op.Name)
	if !ok {
		return langerr.NewUndefinedVariableError(op.Name)
	}
	v, err := builtins.Element(arr, indexes)
	if err != nil {
		return err
	}
	vm.push(v)
	return nil
}

func (vm *VM) executeStoreElement(op opcode.OpCode) error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	indexes, err := vm.popN(op.N)
	if err != nil {
		return err
	}
	arr, ok := vm.scope.Get(op.Name)
	if !ok {
		return langerr.NewUndefinedVariableError(op.Name)
	}
	if err := builtins.SetElement(arr, indexes, v); err != nil {
		return err
	}
	vm.push(v)
	return nil
}

// executeCall checks the callee's ENTER against the argument count before
// transferring control.
func (vm *VM) executeCall(op opcode.OpCode) error {
	target, ok := vm.labels[op.Name]
	if !ok {
		return langerr.NewUndefinedFunctionError(strings.TrimPrefix(op.Name, "_"))
	}
	if target+1 >= len(vm.program) || vm.program[target+1].Cmd != opcode.Enter {
		return fmt.Errorf("label %s is not a function entry", op.Name)
	}
	if want := len(vm.program[target+1].Params); want != op.N {
		return langerr.NewArityMismatchError(strings.TrimPrefix(op.Name, "_"), want, op.N)
	}
	vm.pushSlot(slot{kind: slotReturn, addr: vm.ip})
	vm.ip = target
	return nil
}

func (vm *VM) executeEnter(op opcode.OpCode) error {
	ret, err := vm.popReturn()
	if err != nil {
		return err
	}
	// The first argument was pushed last.
	args := make([]value.Value, len(op.Params))
	for i := range args {
		if args[i], err = vm.pop(); err != nil {
			return err
		}
	}
	vm.pushSlot(slot{kind: slotReturn, addr: ret})

	names := make([]string, 0, len(op.Params)+len(op.Locals))
	names = append(names, op.Params...)
	names = append(names, op.Locals...)
	for _, name := range names {
		v, bound := vm.scope.Get(name)
		vm.pushSlot(slot{kind: slotSaved, val: v, bound: bound})
	}

	for _, name := range op.Locals {
		vm.scope.Delete(name)
	}
	for i, name := range op.Params {
		vm.scope.Set(name, args[i])
	}

	fn := "?"
	if vm.ip > 0 && vm.program[vm.ip-1].Cmd == opcode.Label {
		fn = strings.TrimPrefix(vm.program[vm.ip-1].Name, "_")
	}
	return vm.PushStackFrame(fn, names)
}

func (vm *VM) executeRet() error {
	frame, err := vm.PopStackFrame()
	if err != nil {
		return err
	}

	var result value.Value = value.Void{}
	if len(vm.stack) > frame.Base && vm.stack[len(vm.stack)-1].kind == slotValue {
		result = vm.stack[len(vm.stack)-1].val
	}
	if len(vm.stack) < frame.Base {
		return fmt.Errorf("stack underflow in %s", frame.FunctionName)
	}
	vm.stack = vm.stack[:frame.Base]

	for i := len(frame.Names) - 1; i >= 0; i-- {
		saved, err := vm.popSlot()
		if err != nil {
			return err
		}
		if saved.kind != slotSaved {
			return fmt.Errorf("corrupt frame for %s", frame.FunctionName)
		}
		if saved.bound {
			vm.scope.Set(frame.Names[i], saved.val)
		} else {
			vm.scope.Delete(frame.Names[i])
		}
	}

	ret, err := vm.popReturn()
	if err != nil {
		return err
	}
	vm.push(result)
	vm.ip = ret
	return nil
}
