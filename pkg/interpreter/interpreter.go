// Package interpreter evaluates a program by walking its syntax tree.
//
// Every function activation gets a fresh Environment holding only its
// parameters. The value of a statement list is the value of its last
// statement, which is also how functions return values.
package interpreter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zurustar/stacklang/pkg/builtins"
	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/logger"
	"github.com/zurustar/stacklang/pkg/value"
)

// Interpreter is a tree-walking evaluator.
type Interpreter struct {
	functions map[string]*ast.FunctionDef
	rt        *builtins.Runtime
	ctx       context.Context

	depth    int
	maxDepth int

	input  *bufio.Reader
	output io.Writer
	log    *slog.Logger
}

// Option is a functional option for configuring the Interpreter.
type Option func(*Interpreter)

// WithInput sets the stream read() consumes. Lines a run leaves unread
// stay available to the next run.
func WithInput(r io.Reader) Option {
	return func(in *Interpreter) {
		in.input = bufio.NewReader(r)
	}
}

// WithOutput sets the stream write() prints to.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) {
		in.output = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(in *Interpreter) {
		in.log = log
	}
}

// WithMaxCallDepth overrides the call depth limit.
func WithMaxCallDepth(depth int) Option {
	return func(in *Interpreter) {
		in.maxDepth = depth
	}
}

// New creates an Interpreter. Input and output default to the console.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		maxDepth: builtins.MaxStackDepth,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.input == nil {
		in.input = bufio.NewReader(os.Stdin)
	}
	return in
}

// Run evaluates program's main function and returns its value.
// Each call starts from a fresh builtin runtime, so the echo prefix of
// write() does not depend on earlier runs.
func (in *Interpreter) Run(ctx context.Context, program *ast.Program) (value.Value, error) {
	rtOpts := []builtins.Option{builtins.WithInput(in.input)}
	if in.output != nil {
		rtOpts = append(rtOpts, builtins.WithOutput(in.output))
	}
	rtOpts = append(rtOpts, builtins.WithLogger(in.log))

	in.rt = builtins.NewRuntime(rtOpts...)
	in.ctx = ctx
	in.depth = 0

	in.log.Debug("Interpreter started", "functions", len(program.Functions))

	result, err := in.evalNode(program, NewEnvironment())
	if err != nil {
		return nil, fmt.Errorf("interpreter: %w", err)
	}
	return result, nil
}

// evalNode evaluates node in env. Errors carry the innermost offending construct.
func (in *Interpreter) evalNode(node ast.Node, env *Environment) (value.Value, error) {
	v, err := in.eval(node, env)
	if err != nil {
		return nil, langerr.Annotate(err, node.String())
	}
	return v, nil
}

func (in *Interpreter) eval(node ast.Node, env *Environment) (value.Value, error) {
	switch n := node.(type) {
	case *ast.Program:
		return in.evalProgram(n, env)
	case *ast.FunctionDef:
		return in.evalBlock(n.Body, env)
	case *ast.Const:
		// Literals are fresh on every evaluation; strset must not edit the source text.
		return n.Value.Copy(), nil
	case *ast.Skip:
		return value.Void{}, nil
	case *ast.Variable:
		return in.evalVariable(n, env)
	case *ast.Binary:
		l, err := in.evalNode(n.Left, env)
		if err != nil {
			return nil, err
		}
		r, err := in.evalNode(n.Right, env)
		if err != nil {
			return nil, err
		}
		result, err := builtins.Apply(l, r, n.Op)
		if err != nil {
			return nil, err
		}
		return value.Number(result), nil
	case *ast.UnaryMinus:
		arg, err := in.evalNode(n.Arg, env)
		if err != nil {
			return nil, err
		}
		result, err := builtins.Apply(value.Number(0), arg, ast.OpSub)
		if err != nil {
			return nil, err
		}
		return value.Number(result), nil
	case *ast.ArrayLit:
		elems, err := in.evalList(n.Elements, env)
		if err != nil {
			return nil, err
		}
		return value.NewArray(elems), nil
	case *ast.BuiltinCall:
		args, err := in.evalList(n.Args, env)
		if err != nil {
			return nil, err
		}
		return in.rt.Call(n.Tag, args)
	case *ast.UserCall:
		return in.evalUserCall(n, env)
	case *ast.Assignment:
		return in.evalAssignment(n, env)
	case *ast.Conditional:
		return in.evalConditional(n, env)
	case *ast.WhileLoop:
		return in.evalWhile(n, env)
	case *ast.ForLoop:
		return in.evalFor(n, env)
	case *ast.RepeatLoop:
		return in.evalRepeat(n, env)
	default:
		return nil, langerr.New(langerr.ErrorUnsupported, "unknown node type: %T", node)
	}
}

// evalProgram builds the function table and evaluates main.
func (in *Interpreter) evalProgram(p *ast.Program, env *Environment) (value.Value, error) {
	in.functions = make(map[string]*ast.FunctionDef, len(p.Functions))
	for _, f := range p.Functions {
		if _, exists := in.functions[f.Name]; exists {
			return nil, langerr.NewDuplicateDefinitionError("function", f.Name)
		}
		in.functions[f.Name] = f
		in.log.Debug("Function registered", "name", f.Name, "params", len(f.Params))
	}

	entry, ok := in.functions[ast.MainFunction]
	if !ok {
		return nil, langerr.NewUndefinedFunctionError(ast.MainFunction)
	}
	return in.evalBlock(entry.Body, env)
}

// evalBlock returns the value of the last statement, or Void when empty.
func (in *Interpreter) evalBlock(stmts []ast.Node, env *Environment) (value.Value, error) {
	var last value.Value = value.Void{}
	for _, stmt := range stmts {
		v, err := in.evalNode(stmt, env)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (in *Interpreter) evalList(nodes []ast.Node, env *Environment) ([]value.Value, error) {
	vals := make([]value.Value, 0, len(nodes))
	for _, n := range nodes {
		v, err := in.evalNode(n, env)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func (in *Interpreter) evalVariable(v *ast.Variable, env *Environment) (value.Value, error) {
	if !v.IsIndexed() {
		return env.Get(v.Name)
	}
	indexes, err := in.evalList(v.Indexes, env)
	if err != nil {
		return nil, err
	}
	base, err := env.Get(v.Name)
	if err != nil {
		return nil, err
	}
	return builtins.Element(base, indexes)
}

func (in *Interpreter) evalUserCall(call *ast.UserCall, env *Environment) (value.Value, error) {
	args, err := in.evalList(call.Args, env)
	if err != nil {
		return nil, err
	}

	fn, ok := in.functions[call.Name]
	if !ok {
		return nil, langerr.NewUndefinedFunctionError(call.Name)
	}
	if len(fn.Params) != len(args) {
		return nil, langerr.NewArityMismatchError(call.Name, len(fn.Params), len(args))
	}
	if err := in.ctx.Err(); err != nil {
		return nil, err
	}
	if in.depth >= in.maxDepth {
		return nil, langerr.NewStackOverflowError(in.maxDepth)
	}

	local := NewEnvironment()
	for i, name := range fn.Params {
		local.Set(name, args[i])
	}

	in.depth++
	defer func() { in.depth-- }()

	in.log.Debug("Calling function", "name", call.Name, "depth", in.depth)
	return in.evalBlock(fn.Body, local)
}

// evalAssignment evaluates index expressions first, then the right-hand
// side, and only then resolves the target.
func (in *Interpreter) evalAssignment(a *ast.Assignment, env *Environment) (value.Value, error) {
	if !a.Target.IsIndexed() {
		v, err := in.evalNode(a.Value, env)
		if err != nil {
			return nil, err
		}
		env.Set(a.Target.Name, v)
		return v, nil
	}

	indexes, err := in.evalList(a.Target.Indexes, env)
	if err != nil {
		return nil, err
	}
	v, err := in.evalNode(a.Value, env)
	if err != nil {
		return nil, err
	}
	base, err := env.Get(a.Target.Name)
	if err != nil {
		return nil, err
	}
	if err := builtins.SetElement(base, indexes, v); err != nil {
		return nil, err
	}
	return v, nil
}

// guard evaluates a loop or branch condition to an integer.
func (in *Interpreter) guard(cond ast.Node, env *Environment) (int32, error) {
	v, err := in.evalNode(cond, env)
	if err != nil {
		return 0, err
	}
	return builtins.TakeInt(v, "condition")
}

func (in *Interpreter) evalConditional(c *ast.Conditional, env *Environment) (value.Value, error) {
	g, err := in.guard(c.Cond, env)
	if err != nil {
		return nil, err
	}
	if g > 0 {
		return in.evalBlock(c.Then, env)
	}
	for _, elif := range c.Elifs {
		g, err := in.guard(elif.Cond, env)
		if err != nil {
			return nil, err
		}
		if g > 0 {
			return in.evalBlock(elif.Body, env)
		}
	}
	return in.evalBlock(c.Else, env)
}

func (in *Interpreter) evalWhile(w *ast.WhileLoop, env *Environment) (value.Value, error) {
	var last value.Value = value.Void{}
	for {
		if err := in.ctx.Err(); err != nil {
			return nil, err
		}
		g, err := in.guard(w.Cond, env)
		if err != nil {
			return nil, err
		}
		if g <= 0 {
			return last, nil
		}
		if last, err = in.evalBlock(w.Body, env); err != nil {
			return nil, err
		}
	}
}

func (in *Interpreter) evalFor(f *ast.ForLoop, env *Environment) (value.Value, error) {
	if _, err := in.evalNode(f.Init, env); err != nil {
		return nil, err
	}
	var last value.Value = value.Void{}
	for {
		if err := in.ctx.Err(); err != nil {
			return nil, err
		}
		g, err := in.guard(f.Cond, env)
		if err != nil {
			return nil, err
		}
		if g == 0 {
			return last, nil
		}
		if last, err = in.evalBlock(f.Body, env); err != nil {
			return nil, err
		}
		if _, err := in.evalNode(f.Increment, env); err != nil {
			return nil, err
		}
	}
}

// evalRepeat runs the body once, then again for as long as the guard is zero.
func (in *Interpreter) evalRepeat(r *ast.RepeatLoop, env *Environment) (value.Value, error) {
	for {
		if err := in.ctx.Err(); err != nil {
			return nil, err
		}
		last, err := in.evalBlock(r.Body, env)
		if err != nil {
			return nil, err
		}
		g, err := in.guard(r.Cond, env)
		if err != nil {
			return nil, err
		}
		if g != 0 {
			return last, nil
		}
	}
}
