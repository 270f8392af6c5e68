package builtins

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/value"
)

// registerIOBuiltins registers read and write.
func (rt *Runtime) registerIOBuiltins() {
	rt.register(ast.Read, func(rt *Runtime, _ []value.Value) (value.Value, error) {
		return rt.read()
	})

	rt.register(ast.Write, func(rt *Runtime, args []value.Value) (value.Value, error) {
		for _, arg := range args {
			if err := rt.write(arg); err != nil {
				return nil, err
			}
		}
		return value.Void{}, nil
	})
}

// read consumes one line. An integer parse wins; a single code point
// becomes a Character; anything else is a Str.
func (rt *Runtime) read() (value.Value, error) {
	rt.reads++

	line, err := rt.reader.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read: %w", err)
		}
		if line == "" {
			return nil, langerr.NewEndOfInputError()
		}
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	rt.log.Debug("read", "line", line, "reads", rt.reads)

	if n, err := strconv.ParseInt(line, 10, 32); err == nil {
		return value.Number(n), nil
	}
	if utf8.RuneCountInString(line) == 1 {
		r, _ := utf8.DecodeRuneInString(line)
		return value.Character(r), nil
	}
	return value.NewStr(line), nil
}

// Prefix returns the echo prefix for the next written line: one "> " per
// prior read, but only until the first line has been written.
func (rt *Runtime) Prefix() string {
	if rt.writes > 0 {
		return ""
	}
	return strings.Repeat("> ", rt.reads)
}

func (rt *Runtime) write(v value.Value) error {
	var scalar string
	switch sv := v.(type) {
	case value.Number:
		scalar = strconv.FormatInt(int64(sv), 10)
	case value.Character:
		scalar = strconv.FormatInt(int64(sv), 10)
	case *value.Str:
		scalar = sv.Text()
	default:
		return langerr.NewTypeMismatchError("write", "Number, Character or Str", v.Kind())
	}

	if _, err := fmt.Fprintln(rt.writer, rt.Prefix()+scalar); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	rt.writes++
	return nil
}
