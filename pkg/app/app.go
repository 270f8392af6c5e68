// Package app wires the command line to the stacklang backends.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/zurustar/stacklang/pkg/cli"
	"github.com/zurustar/stacklang/pkg/compiler"
	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/compiler/codegen"
	"github.com/zurustar/stacklang/pkg/fileutil"
	"github.com/zurustar/stacklang/pkg/interpreter"
	"github.com/zurustar/stacklang/pkg/logger"
	"github.com/zurustar/stacklang/pkg/opcode"
	"github.com/zurustar/stacklang/pkg/vm"
)

// ErrUsage marks errors caused by bad command line arguments.
var ErrUsage = errors.New("usage error")

// Application manages one invocation of the stacklang command.
type Application struct {
	config *cli.Config
	log    *slog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Option configures an Application.
type Option func(*Application)

// WithStdio replaces the console streams.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(app *Application) {
		app.stdin = stdin
		app.stdout = stdout
		app.stderr = stderr
	}
}

// New creates an Application bound to the console.
func New(opts ...Option) *Application {
	app := &Application{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run parses args and executes the selected mode.
func (app *Application) Run(ctx context.Context, args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	app.config = config

	if config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	if err := logger.InitLoggerTo(config.LogLevel, app.stderr); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log = logger.GetLogger()

	app.log.Info("Application started", "source", config.SourcePath, "mode", config.Mode, "encoding", config.Encoding)

	s, err := compiler.LoadFile(config.SourcePath, config.Encoding)
	if err != nil {
		return err
	}
	app.log.Info("Source loaded", "path", s.Path, "size", humanize.Bytes(uint64(s.Size)))

	program, errs := compiler.Parse(s.Content)
	if len(errs) > 0 {
		return joinErrors("parse failed", errs)
	}
	app.log.Debug("Program parsed", "functions", len(program.Functions))

	switch config.Mode {
	case cli.ModeInterpret:
		return app.interpret(ctx, program)
	case cli.ModeStack:
		return app.execute(ctx, program)
	case cli.ModeAssemble:
		return app.assemble(program, s.Path)
	case cli.ModeListing:
		return app.listing(program)
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrUsage, config.Mode)
	}
}

func (app *Application) interpret(ctx context.Context, program *ast.Program) error {
	if app.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.config.Timeout)
		defer cancel()
	}
	in := interpreter.New(
		interpreter.WithInput(app.stdin),
		interpreter.WithOutput(app.stdout),
		interpreter.WithLogger(app.log),
	)
	result, err := in.Run(ctx, program)
	if err != nil {
		return err
	}
	app.log.Info("Program finished", "backend", "interpreter", "result", result)
	return nil
}

func (app *Application) compile(program *ast.Program) (opcode.Program, error) {
	code, errs := compiler.CompileProgram(program)
	if len(errs) > 0 {
		return nil, joinErrors("compile failed", errs)
	}
	app.log.Debug("Program compiled", "opcode_count", len(code))
	return code, nil
}

func (app *Application) execute(ctx context.Context, program *ast.Program) error {
	code, err := app.compile(program)
	if err != nil {
		return err
	}
	machine := vm.New(code,
		vm.WithInput(app.stdin),
		vm.WithOutput(app.stdout),
		vm.WithLogger(app.log),
		vm.WithTimeout(app.config.Timeout),
	)
	if err := machine.Run(ctx); err != nil {
		return err
	}
	app.log.Info("Program finished", "backend", "vm", "result", machine.Result(), "steps", humanize.Comma(int64(machine.Steps())))
	return nil
}

func (app *Application) assemble(program *ast.Program, sourcePath string) error {
	code, err := app.compile(program)
	if err != nil {
		return err
	}
	lines, err := codegen.New().Generate(code)
	if err != nil {
		return fmt.Errorf("assembly failed: %w", err)
	}

	text := strings.Join(lines, "\n") + "\n"
	outPath := fileutil.ReplaceExt(sourcePath, ".asm")
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	app.log.Info("Assembly written", "path", outPath, "lines", len(lines), "size", humanize.Bytes(uint64(len(text))))
	return nil
}

func (app *Application) listing(program *ast.Program) error {
	code, err := app.compile(program)
	if err != nil {
		return err
	}
	_, err = io.WriteString(app.stdout, opcode.Listing(code))
	return err
}

// joinErrors keeps a single error unwrappable as-is.
func joinErrors(what string, errs []error) error {
	if len(errs) == 1 {
		return fmt.Errorf("%s: %w", what, errs[0])
	}
	return fmt.Errorf("%s: %w", what, errors.Join(errs...))
}
