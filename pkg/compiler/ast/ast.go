// Package ast defines the syntax tree consumed by every backend.
//
// Node is a closed sum type: the unexported node method keeps the set of
// implementations inside this package, and every backend switches over the
// concrete types exhaustively. Nodes are never mutated after construction.
package ast

import (
	"bytes"
	"strings"

	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/value"
)

// MainFunction is the name of the function that wraps the top-level statements.
const MainFunction = "main"

type Node interface {
	String() string
	node()
}

// Const is a literal value.
type Const struct {
	Value value.Value
}

func (*Const) node()            {}
func (c *Const) String() string { return c.Value.String() }

// Skip is the no-op statement.
type Skip struct{}

func (*Skip) node()          {}
func (*Skip) String() string { return "skip" }

// Variable is a simple variable when Indexes is empty, and an element
// access into a (possibly nested) array otherwise.
type Variable struct {
	Name    string
	Indexes []Node
}

func (*Variable) node() {}

// IsIndexed reports whether v addresses an array element.
func (v *Variable) IsIndexed() bool { return len(v.Indexes) > 0 }

func (v *Variable) String() string {
	var out bytes.Buffer
	out.WriteString(v.Name)
	for _, idx := range v.Indexes {
		out.WriteString("[")
		out.WriteString(idx.String())
		out.WriteString("]")
	}
	return out.String()
}

// Binary applies Op to Left and Right.
type Binary struct {
	Left  Node
	Right Node
	Op    Operator
}

func (*Binary) node() {}
func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}

// UnaryMinus negates Arg.
type UnaryMinus struct {
	Arg Node
}

func (*UnaryMinus) node()            {}
func (u *UnaryMinus) String() string { return "-" + u.Arg.String() }

// ArrayLit builds a new array from its evaluated elements.
type ArrayLit struct {
	Elements []Node
}

func (*ArrayLit) node()            {}
func (a *ArrayLit) String() string { return "[" + joinNodes(a.Elements, ", ") + "]" }

// BuiltinCall invokes a builtin primitive.
type BuiltinCall struct {
	Tag  BuiltinTag
	Args []Node
}

func (*BuiltinCall) node() {}
func (c *BuiltinCall) String() string {
	return c.Tag.SourceName() + "(" + joinNodes(c.Args, ", ") + ")"
}

// UserCall invokes a function defined in the program.
type UserCall struct {
	Name string
	Args []Node
}

func (*UserCall) node()            {}
func (c *UserCall) String() string { return c.Name + "(" + joinNodes(c.Args, ", ") + ")" }

// FunctionDef is a named function. Its value is the value of the last
// statement executed in Body.
type FunctionDef struct {
	Name   string
	Params []string
	Body   []Node
}

func (*FunctionDef) node() {}
func (f *FunctionDef) String() string {
	var out bytes.Buffer
	out.WriteString("fun ")
	out.WriteString(f.Name)
	out.WriteString("(")
	out.WriteString(strings.Join(f.Params, ", "))
	out.WriteString(") begin ")
	out.WriteString(joinNodes(f.Body, "; "))
	out.WriteString(" end")
	return out.String()
}

// Elif is one "elif cond then body" arm of a Conditional.
type Elif struct {
	Cond Node
	Body []Node
}

// Conditional is if/elif/else.
type Conditional struct {
	Cond  Node
	Then  []Node
	Elifs []Elif
	Else  []Node
}

func (*Conditional) node() {}
func (c *Conditional) String() string {
	var out bytes.Buffer
	out.WriteString("if ")
	out.WriteString(c.Cond.String())
	out.WriteString(" then ")
	out.WriteString(joinNodes(c.Then, "; "))
	for _, e := range c.Elifs {
		out.WriteString(" elif ")
		out.WriteString(e.Cond.String())
		out.WriteString(" then ")
		out.WriteString(joinNodes(e.Body, "; "))
	}
	if len(c.Else) > 0 {
		out.WriteString(" else ")
		out.WriteString(joinNodes(c.Else, "; "))
	}
	out.WriteString(" fi")
	return out.String()
}

// Assignment stores Value into Target.
type Assignment struct {
	Target *Variable
	Value  Node
}

func (*Assignment) node()            {}
func (a *Assignment) String() string { return a.Target.String() + " := " + a.Value.String() }

// WhileLoop runs Body while Cond is positive.
type WhileLoop struct {
	Cond Node
	Body []Node
}

func (*WhileLoop) node() {}
func (w *WhileLoop) String() string {
	return "while " + w.Cond.String() + " do " + joinNodes(w.Body, "; ") + " od"
}

// ForLoop runs Init once, then Body and Increment while Cond is nonzero.
type ForLoop struct {
	Init      Node
	Cond      Node
	Increment Node
	Body      []Node
}

func (*ForLoop) node() {}
func (f *ForLoop) String() string {
	return "for " + f.Init.String() + ", " + f.Cond.String() + ", " + f.Increment.String() +
		" do " + joinNodes(f.Body, "; ") + " od"
}

// RepeatLoop runs Body once, then again for as long as Cond evaluates to zero.
type RepeatLoop struct {
	Body []Node
	Cond Node
}

func (*RepeatLoop) node() {}
func (r *RepeatLoop) String() string {
	return "repeat " + joinNodes(r.Body, "; ") + " until " + r.Cond.String()
}

// Program is the ordered table of function definitions.
type Program struct {
	Functions []*FunctionDef
	index     map[string]*FunctionDef
}

func (*Program) node() {}
func (p *Program) String() string {
	parts := make([]string, len(p.Functions))
	for i, f := range p.Functions {
		parts[i] = f.String()
	}
	return strings.Join(parts, "\n")
}

// NewProgram builds a Program, rejecting duplicate function names.
func NewProgram(defs ...*FunctionDef) (*Program, error) {
	p := &Program{index: make(map[string]*FunctionDef, len(defs))}
	for _, def := range defs {
		if _, exists := p.index[def.Name]; exists {
			return nil, langerr.NewDuplicateDefinitionError("function", def.Name)
		}
		p.index[def.Name] = def
		p.Functions = append(p.Functions, def)
	}
	return p, nil
}

// Lookup returns the function named name.
func (p *Program) Lookup(name string) (*FunctionDef, bool) {
	if p.index == nil {
		for _, f := range p.Functions {
			if f.Name == name {
				return f, true
			}
		}
		return nil, false
	}
	f, ok := p.index[name]
	return f, ok
}

func joinNodes(nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}
