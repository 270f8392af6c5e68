package interpreter

import (
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/value"
)

// Environment holds the variables of one function activation.
// Scopes are flat: a callee never sees its caller's bindings.
type Environment struct {
	variables map[string]value.Value
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{
		variables: make(map[string]value.Value),
	}
}

// Get retrieves a variable, failing with an unresolved reference if unbound.
func (e *Environment) Get(name string) (value.Value, error) {
	v, ok := e.variables[name]
	if !ok {
		return nil, langerr.NewUndefinedVariableError(name)
	}
	return v, nil
}

// Set binds name to v.
func (e *Environment) Set(name string, v value.Value) {
	e.variables[name] = v
}

// Len returns the number of bound variables.
func (e *Environment) Len() int {
	return len(e.variables)
}
