package builtins

import (
	"bufio"
	"io"
	"log/slog"
	"os"

	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/logger"
	"github.com/zurustar/stacklang/pkg/value"
)

// MaxStackDepth is the deepest chain of user function calls either engine
// allows before failing with a stack overflow.
const MaxStackDepth = 10000

// Func is the signature of a builtin primitive. Arguments arrive evaluated
// and in source order; arity has already been checked.
type Func func(rt *Runtime, args []value.Value) (value.Value, error)

// Runtime is the per-run execution context for builtins. It owns the I/O
// streams and the read/write counters that drive the echo prefix, so two
// runs never share state.
type Runtime struct {
	reader   *bufio.Reader
	writer   io.Writer
	reads    int
	writes   int
	builtins map[ast.BuiltinTag]Func
	log      *slog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithInput sets the stream READ consumes lines from. A *bufio.Reader is
// used as is, so its buffered input outlives the Runtime.
func WithInput(r io.Reader) Option {
	return func(rt *Runtime) {
		if br, ok := r.(*bufio.Reader); ok {
			rt.reader = br
			return
		}
		rt.reader = bufio.NewReader(r)
	}
}

// WithOutput sets the stream WRITE prints to.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.writer = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.log = log
	}
}

// NewRuntime creates a Runtime with zeroed counters. Input and output
// default to the process console.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		reader:   bufio.NewReader(os.Stdin),
		writer:   os.Stdout,
		builtins: make(map[ast.BuiltinTag]Func),
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(rt)
	}

	rt.registerIOBuiltins()
	rt.registerStringBuiltins()
	rt.registerArrayBuiltins()
	return rt
}

// Reset zeroes the read and write counters.
func (rt *Runtime) Reset() {
	rt.reads = 0
	rt.writes = 0
}

// Reads returns the number of READ calls so far.
func (rt *Runtime) Reads() int { return rt.reads }

// Writes returns the number of lines written so far.
func (rt *Runtime) Writes() int { return rt.writes }

func (rt *Runtime) register(tag ast.BuiltinTag, fn Func) {
	rt.builtins[tag] = fn
}

// Call invokes the builtin tag with already evaluated args.
func (rt *Runtime) Call(tag ast.BuiltinTag, args []value.Value) (value.Value, error) {
	fn, ok := rt.builtins[tag]
	if !ok {
		return nil, langerr.NewUndefinedFunctionError(tag.String())
	}
	if !tag.AcceptsArgs(len(args)) {
		want := tag.Arity()
		if want == ast.Variadic {
			want = 1
		}
		return nil, langerr.NewArityMismatchError(tag.SourceName(), want, len(args))
	}
	return fn(rt, args)
}

// index validates v as an index into a sequence of length n.
func index(v value.Value, n int, operation string) (int, error) {
	i, err := TakeInt(v, operation)
	if err != nil {
		return 0, err
	}
	if i < 0 || int(i) >= n {
		return 0, langerr.NewIndexOutOfRangeError(int(i), n)
	}
	return int(i), nil
}

// size validates v as a non-negative length.
func size(v value.Value, operation string) (int, error) {
	n, err := TakeInt(v, operation)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, langerr.New(langerr.ErrorIndexOutOfRange, "%s: negative size %d", operation, n)
	}
	return int(n), nil
}

func takeStr(v value.Value, operation string) (*value.Str, error) {
	s, ok := v.(*value.Str)
	if !ok {
		return nil, langerr.NewTypeMismatchError(operation, "Str", v.Kind())
	}
	return s, nil
}

func takeChar(v value.Value, operation string) (rune, error) {
	c, ok := v.(value.Character)
	if !ok {
		return 0, langerr.NewTypeMismatchError(operation, "Character", v.Kind())
	}
	return rune(c), nil
}

func takeArray(v value.Value, operation string) (*value.Array, error) {
	a, ok := v.(*value.Array)
	if !ok {
		return nil, langerr.NewTypeMismatchError(operation, "Array", v.Kind())
	}
	return a, nil
}
