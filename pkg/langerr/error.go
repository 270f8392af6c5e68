// Package langerr provides the error taxonomy shared by the interpreter,
// the stack machine and the native code generator.
package langerr

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a runtime error.
type ErrorType string

// Every error type aborts execution; there is no recovery path.
const (
	ErrorDuplicateDefinition ErrorType = "DUPLICATE_DEFINITION"
	ErrorArityMismatch       ErrorType = "ARITY_MISMATCH"
	ErrorTypeMismatch        ErrorType = "TYPE_MISMATCH"
	ErrorUnresolvedReference ErrorType = "UNRESOLVED_REFERENCE"
	ErrorIndexOutOfRange     ErrorType = "INDEX_OUT_OF_RANGE"
	ErrorDivisionByZero      ErrorType = "DIVISION_BY_ZERO"
	ErrorStackOverflow       ErrorType = "STACK_OVERFLOW"
	ErrorEndOfInput          ErrorType = "END_OF_INPUT"
	ErrorUnsupported         ErrorType = "UNSUPPORTED"
)

// RuntimeError describes a failure detected while loading or evaluating a program.
type RuntimeError struct {
	Type    ErrorType
	Message string
	// Construct is the rendering of the offending node or instruction, if known.
	Construct string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Construct != "" {
		return fmt.Sprintf("[%s] %s in %s", e.Type, e.Message, e.Construct)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// New creates a RuntimeError.
func New(errType ErrorType, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithConstruct returns a copy of e annotated with the offending construct.
// An existing annotation is kept, so the innermost construct wins.
func (e *RuntimeError) WithConstruct(construct string) *RuntimeError {
	if e.Construct != "" {
		return e
	}
	c := *e
	c.Construct = construct
	return &c
}

// Is reports whether any error in err's chain is a RuntimeError of type t.
func Is(err error, t ErrorType) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Type == t
	}
	return false
}

// Annotate attaches construct to err when err is a RuntimeError without one.
// Other errors are returned unchanged.
func Annotate(err error, construct string) error {
	var re *RuntimeError
	if errors.As(err, &re) && re.Construct == "" {
		return re.WithConstruct(construct)
	}
	return err
}

// NewDuplicateDefinitionError reports a name defined twice.
func NewDuplicateDefinitionError(kind, name string) *RuntimeError {
	return New(ErrorDuplicateDefinition, "duplicate %s: %s", kind, name)
}

// NewArityMismatchError reports a call with the wrong number of arguments.
func NewArityMismatchError(callee string, want, got int) *RuntimeError {
	return New(ErrorArityMismatch, "%s expects %d argument(s), got %d", callee, want, got)
}

// NewTypeMismatchError reports an operand of the wrong kind.
func NewTypeMismatchError(operation, want string, got fmt.Stringer) *RuntimeError {
	return New(ErrorTypeMismatch, "%s requires %s, got %s", operation, want, got)
}

// NewUndefinedVariableError reports a read of an unbound variable.
func NewUndefinedVariableError(name string) *RuntimeError {
	return New(ErrorUnresolvedReference, "undefined variable: %s", name)
}

// NewUndefinedFunctionError reports a call to an unknown function.
func NewUndefinedFunctionError(name string) *RuntimeError {
	return New(ErrorUnresolvedReference, "undefined function: %s", name)
}

// NewUndefinedLabelError reports a jump or call to a label that does not exist.
func NewUndefinedLabelError(label string) *RuntimeError {
	return New(ErrorUnresolvedReference, "undefined label: %s", label)
}

// NewIndexOutOfRangeError reports an index outside [0, length).
func NewIndexOutOfRangeError(index, length int) *RuntimeError {
	return New(ErrorIndexOutOfRange, "index %d out of range (length %d)", index, length)
}

// NewDivisionByZeroError reports a zero divisor for / or %.
func NewDivisionByZeroError() *RuntimeError {
	return New(ErrorDivisionByZero, "division by zero")
}

// NewStackOverflowError reports a call chain deeper than limit.
func NewStackOverflowError(limit int) *RuntimeError {
	return New(ErrorStackOverflow, "stack overflow: maximum call depth %d exceeded", limit)
}

// NewEndOfInputError reports a read with no remaining input.
func NewEndOfInputError() *RuntimeError {
	return New(ErrorEndOfInput, "read: end of input")
}

// NewUnsupportedError reports a construct a backend cannot lower.
func NewUnsupportedError(backend, construct string) *RuntimeError {
	return New(ErrorUnsupported, "%s backend does not support %s", backend, construct)
}
