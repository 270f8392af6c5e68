// Package cli parses the stacklang command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/stacklang/pkg/logger"
	"github.com/zurustar/stacklang/pkg/script"
)

// Mode selects the backend that handles the program.
type Mode string

const (
	ModeInterpret Mode = "interp"  // tree-walking interpreter
	ModeStack     Mode = "stack"   // bytecode compiler + stack machine
	ModeAssemble  Mode = "asm"     // write x86 assembly next to the source
	ModeListing   Mode = "listing" // print the bytecode listing
)

// Environment variables consulted when the matching flag is absent.
const (
	EnvLogLevel = "STACKLANG_LOG_LEVEL"
	EnvTimeout  = "STACKLANG_TIMEOUT"
	EnvEncoding = "STACKLANG_ENCODING"
)

const defaultLogLevel = "warn"

// Config holds the settings parsed from the command line.
type Config struct {
	SourcePath string
	Mode       Mode
	Timeout    time.Duration // 0 means unlimited
	LogLevel   string        // debug, info, warn, error
	Encoding   string        // source file encoding label
	ShowHelp   bool
}

// boolFlags never consume the following argument.
var boolFlags = map[string]bool{
	"-i": true, "-s": true, "-o": true, "-l": true,
	"-h": true, "--help": true, "-help": true,
}

// ParseArgs parses args (without the program name) into a Config.
// Flags take precedence over environment variables.
func ParseArgs(args []string) (*Config, error) {
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("stacklang", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	var interp, stack, asm, listing bool
	fs.BoolVar(&interp, "i", false, "run with the tree-walking interpreter (default)")
	fs.BoolVar(&stack, "s", false, "run on the stack machine")
	fs.BoolVar(&asm, "o", false, "write x86 assembly to <file>.asm")
	fs.BoolVar(&listing, "l", false, "print the bytecode listing")

	var timeoutSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "abort after this many seconds")
	fs.IntVar(&timeoutSec, "t", 0, "abort after this many seconds (shorthand)")
	fs.StringVar(&config.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&config.Encoding, "encoding", "", "source encoding")
	fs.StringVar(&config.Encoding, "e", "", "source encoding (shorthand)")
	fs.BoolVar(&config.ShowHelp, "help", false, "show help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show help (shorthand)")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["timeout"] && !set["t"] {
		if timeoutEnv := os.Getenv(EnvTimeout); timeoutEnv != "" {
			t, err := strconv.Atoi(timeoutEnv)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %q", EnvTimeout, timeoutEnv)
			}
			timeoutSec = t
		}
	}
	if !set["log-level"] {
		if logLevelEnv := os.Getenv(EnvLogLevel); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}
	if !set["encoding"] && !set["e"] {
		config.Encoding = os.Getenv(EnvEncoding)
	}
	if config.Encoding == "" {
		config.Encoding = script.DefaultEncoding
	}

	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	if _, err := logger.ParseLevel(config.LogLevel); err != nil {
		return nil, fmt.Errorf("%w (must be debug, info, warn, or error)", err)
	}
	if _, err := script.LookupEncoding(config.Encoding); err != nil {
		return nil, err
	}

	mode, err := selectMode(interp, stack, asm, listing)
	if err != nil {
		return nil, err
	}
	config.Mode = mode

	if config.ShowHelp {
		return config, nil
	}

	switch fs.NArg() {
	case 0:
		return nil, errors.New("no source file given")
	case 1:
		config.SourcePath = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected one source file, got %d arguments", fs.NArg())
	}

	return config, nil
}

func selectMode(interp, stack, asm, listing bool) (Mode, error) {
	mode := ModeInterpret
	count := 0
	for _, m := range []struct {
		on   bool
		mode Mode
	}{
		{interp, ModeInterpret},
		{stack, ModeStack},
		{asm, ModeAssemble},
		{listing, ModeListing},
	} {
		if m.on {
			mode = m.mode
			count++
		}
	}
	if count > 1 {
		return "", errors.New("flags -i, -s, -o and -l are mutually exclusive")
	}
	return mode, nil
}

// reorderArgs moves flags (and their values) ahead of positional arguments.
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string
	terminated := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			terminated = true
			break
		}

		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			if !boolFlags[arg] && !strings.Contains(arg, "=") && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}

	if terminated {
		flags = append(flags, "--")
	}
	return append(flags, positional...)
}

// PrintHelp writes the usage message to w.
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `stacklang - run, compile and assemble stacklang programs

Usage:
  stacklang [-i | -s | -o | -l] [options] <file>

Modes:
  -i                          run with the tree-walking interpreter (default)
  -s                          compile to bytecode and run on the stack machine
  -o                          write 32-bit x86 assembly to <file>.asm
  -l                          print the bytecode listing

Options:
  -t, --timeout <seconds>     stop the program after this many seconds (default: unlimited)
  --log-level <level>         debug, info, warn, error (default: %s)
  -e, --encoding <name>       source encoding, e.g. utf-8, shift_jis, euc-jp (default: %s)
  -h, --help                  show this help

Environment Variables:
  %s=<level>
  %s=<seconds>
  %s=<name>

Examples:
  stacklang fact.stk
  stacklang -s --timeout 5 loop.stk
  stacklang -o fact.stk && gcc -m32 -x assembler fact.asm -o fact
  stacklang -l -e shift_jis sjis.stk
`, defaultLogLevel, script.DefaultEncoding, EnvLogLevel, EnvTimeout, EnvEncoding)
}
