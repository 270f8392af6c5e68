package builtins

import (
	"strings"

	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/value"
)

// registerStringBuiltins registers the string primitives. Indices are 0-based.
func (rt *Runtime) registerStringBuiltins() {
	rt.register(ast.Strlen, func(_ *Runtime, args []value.Value) (value.Value, error) {
		s, err := takeStr(args[0], "strlen")
		if err != nil {
			return nil, err
		}
		return value.Number(s.Len()), nil
	})

	rt.register(ast.Strget, func(_ *Runtime, args []value.Value) (value.Value, error) {
		s, err := takeStr(args[0], "strget")
		if err != nil {
			return nil, err
		}
		i, err := index(args[1], s.Len(), "strget")
		if err != nil {
			return nil, err
		}
		return value.Character(s.At(i)), nil
	})

	// strset mutates the buffer in place; every alias observes the change.
	rt.register(ast.Strset, func(_ *Runtime, args []value.Value) (value.Value, error) {
		s, err := takeStr(args[0], "strset")
		if err != nil {
			return nil, err
		}
		i, err := index(args[1], s.Len(), "strset")
		if err != nil {
			return nil, err
		}
		c, err := takeChar(args[2], "strset")
		if err != nil {
			return nil, err
		}
		s.Set(i, c)
		return value.Void{}, nil
	})

	// strsub(s, start, length)
	rt.register(ast.Strsub, func(_ *Runtime, args []value.Value) (value.Value, error) {
		s, err := takeStr(args[0], "strsub")
		if err != nil {
			return nil, err
		}
		start, err := TakeInt(args[1], "strsub")
		if err != nil {
			return nil, err
		}
		length, err := size(args[2], "strsub")
		if err != nil {
			return nil, err
		}
		if start < 0 || int(start)+length > s.Len() {
			return nil, langerr.NewIndexOutOfRangeError(int(start)+length, s.Len())
		}
		return value.NewStrFromRunes(s.Runes()[start : int(start)+length]), nil
	})

	rt.register(ast.Strdup, func(_ *Runtime, args []value.Value) (value.Value, error) {
		s, err := takeStr(args[0], "strdup")
		if err != nil {
			return nil, err
		}
		return s.Copy(), nil
	})

	rt.register(ast.Strcat, func(_ *Runtime, args []value.Value) (value.Value, error) {
		a, err := takeStr(args[0], "strcat")
		if err != nil {
			return nil, err
		}
		b, err := takeStr(args[1], "strcat")
		if err != nil {
			return nil, err
		}
		runes := make([]rune, 0, a.Len()+b.Len())
		runes = append(runes, a.Runes()...)
		runes = append(runes, b.Runes()...)
		return value.NewStrFromRunes(runes), nil
	})

	rt.register(ast.Strcmp, func(_ *Runtime, args []value.Value) (value.Value, error) {
		a, err := takeStr(args[0], "strcmp")
		if err != nil {
			return nil, err
		}
		b, err := takeStr(args[1], "strcmp")
		if err != nil {
			return nil, err
		}
		return value.Number(strings.Compare(a.Text(), b.Text())), nil
	})

	// strmake(n, c) builds n copies of c.
	rt.register(ast.Strmake, func(_ *Runtime, args []value.Value) (value.Value, error) {
		n, err := size(args[0], "strmake")
		if err != nil {
			return nil, err
		}
		c, err := takeChar(args[1], "strmake")
		if err != nil {
			return nil, err
		}
		runes := make([]rune, n)
		for i := range runes {
			runes[i] = c
		}
		return value.NewStrFromRunes(runes), nil
	})
}
