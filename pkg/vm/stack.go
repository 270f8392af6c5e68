package vm

import (
	"fmt"

	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/value"
)

type slotKind int

const (
	slotValue slotKind = iota
	slotReturn
	slotSaved
)

// slot is one operand stack cell. Besides ordinary values the stack holds
// return addresses pushed by CALL and the bindings saved by ENTER.
type slot struct {
	kind  slotKind
	val   value.Value
	addr  int
	bound bool
}

// StackFrame records one active function call.
type StackFrame struct {
	FunctionName string
	// Names lists params then locals, in the order their saved values were pushed.
	Names []string
	// Base is the stack size right after ENTER finished.
	Base int
}

func (vm *VM) push(v value.Value) {
	vm.stack = append(vm.stack, slot{kind: slotValue, val: v})
}

func (vm *VM) pushSlot(s slot) {
	vm.stack = append(vm.stack, s)
}

func (vm *VM) popSlot() (slot, error) {
	if len(vm.stack) == 0 {
		return slot{}, fmt.Errorf("stack underflow")
	}
	s := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return s, nil
}

func (vm *VM) pop() (value.Value, error) {
	s, err := vm.popSlot()
	if err != nil {
		return nil, err
	}
	if s.kind != slotValue {
		return nil, fmt.Errorf("expected a value on the stack, found a call record")
	}
	return s.val, nil
}

// popN removes the top n values and returns them bottom first.
func (vm *VM) popN(n int) ([]value.Value, error) {
	if n > len(vm.stack) {
		return nil, fmt.Errorf("stack underflow: need %d values, have %d", n, len(vm.stack))
	}
	vals := make([]value.Value, n)
	start := len(vm.stack) - n
	for i, s := range vm.stack[start:] {
		if s.kind != slotValue {
			return nil, fmt.Errorf("expected a value on the stack, found a call record")
		}
		vals[i] = s.val
	}
	vm.stack = vm.stack[:start]
	return vals, nil
}

func (vm *VM) popReturn() (int, error) {
	s, err := vm.popSlot()
	if err != nil {
		return 0, err
	}
	if s.kind != slotReturn {
		return 0, fmt.Errorf("expected a return address on the stack")
	}
	return s.addr, nil
}

// PushStackFrame pushes a frame for a function whose saved bindings are
// already on the stack.
func (vm *VM) PushStackFrame(functionName string, names []string) error {
	if len(vm.callStack) > vm.maxDepth {
		return langerr.NewStackOverflowError(vm.maxDepth)
	}
	vm.callStack = append(vm.callStack, &StackFrame{
		FunctionName: functionName,
		Names:        names,
		Base:         len(vm.stack),
	})
	vm.log.Debug("Stack frame pushed", "function", functionName, "depth", len(vm.callStack))
	return nil
}

// PopStackFrame pops the innermost frame.
func (vm *VM) PopStackFrame() (*StackFrame, error) {
	if len(vm.callStack) == 0 {
		return nil, fmt.Errorf("cannot pop from empty call stack")
	}
	frame := vm.callStack[len(vm.callStack)-1]
	vm.callStack = vm.callStack[:len(vm.callStack)-1]
	vm.log.Debug("Stack frame popped", "function", frame.FunctionName, "depth", len(vm.callStack))
	return frame, nil
}

// GetStackDepth returns the current call stack depth, main included.
func (vm *VM) GetStackDepth() int {
	return len(vm.callStack)
}
