package vm

import "github.com/zurustar/stacklang/pkg/value"

// Scope is the single flat binding table of the machine. Function calls do
// not create nested scopes; ENTER saves the bindings a function shadows and
// RET puts them back.
type Scope struct {
	variables map[string]value.Value
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{variables: make(map[string]value.Value)}
}

// Get returns the value bound to name.
func (s *Scope) Get(name string) (value.Value, bool) {
	v, ok := s.variables[name]
	return v, ok
}

// Set binds name to v.
func (s *Scope) Set(name string, v value.Value) {
	s.variables[name] = v
}

// Delete removes the binding of name, if any.
func (s *Scope) Delete(name string) {
	delete(s.variables, name)
}

// Len returns the number of bound names.
func (s *Scope) Len() int {
	return len(s.variables)
}
