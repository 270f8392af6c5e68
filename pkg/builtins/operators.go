// Package builtins implements the operators and primitive functions shared
// by the tree-walking interpreter and the stack machine.
package builtins

import (
	"strings"

	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/langerr"
	"github.com/zurustar/stacklang/pkg/value"
)

// TakeInt returns the integer held by v, or a type mismatch naming operation.
func TakeInt(v value.Value, operation string) (int32, error) {
	n, ok := v.(value.Number)
	if !ok {
		return 0, langerr.NewTypeMismatchError(operation, "Number", v.Kind())
	}
	return int32(n), nil
}

type arithFunc func(l, r int32) (int32, error)

var arithmetic = map[ast.Operator]arithFunc{
	ast.OpAdd: func(l, r int32) (int32, error) { return l + r, nil },
	ast.OpSub: func(l, r int32) (int32, error) { return l - r, nil },
	ast.OpMul: func(l, r int32) (int32, error) { return l * r, nil },
	ast.OpDiv: func(l, r int32) (int32, error) {
		if r == 0 {
			return 0, langerr.NewDivisionByZeroError()
		}
		return l / r, nil
	},
	ast.OpMod: func(l, r int32) (int32, error) {
		if r == 0 {
			return 0, langerr.NewDivisionByZeroError()
		}
		return l % r, nil
	},
	ast.OpAnd: func(l, r int32) (int32, error) { return boolToInt(l != 0 && r != 0), nil },
	ast.OpOr:  func(l, r int32) (int32, error) { return boolToInt(l != 0 || r != 0), nil },
}

// comparison results for cmp < 0, cmp == 0, cmp > 0.
var comparisons = map[ast.Operator][3]bool{
	ast.OpEq:  {false, true, false},
	ast.OpNeq: {true, false, true},
	ast.OpLt:  {true, false, false},
	ast.OpGt:  {false, false, true},
	ast.OpLte: {true, true, false},
	ast.OpGte: {false, true, true},
}

// Apply evaluates l op r.
//
// Arithmetic operators and the logical & and | coerce both operands to
// integers; & and | treat nonzero as true and yield 0 or 1. Comparisons
// require operands of the same kind (Number, Character or Str) and yield 0
// or 1. Overflow wraps.
func Apply(l, r value.Value, op ast.Operator) (int32, error) {
	if fn, ok := arithmetic[op]; ok {
		a, err := TakeInt(l, "operator "+op.String())
		if err != nil {
			return 0, err
		}
		b, err := TakeInt(r, "operator "+op.String())
		if err != nil {
			return 0, err
		}
		return fn(a, b)
	}

	outcome, ok := comparisons[op]
	if !ok {
		return 0, langerr.New(langerr.ErrorUnsupported, "unknown operator %d", int(op))
	}
	cmp, err := compare(l, r, op)
	if err != nil {
		return 0, err
	}
	return boolToInt(outcome[cmp+1]), nil
}

func compare(l, r value.Value, op ast.Operator) (int, error) {
	mismatch := func() error {
		return langerr.New(langerr.ErrorTypeMismatch,
			"apply of operation %s not supported for %s and %s", op, l.Kind(), r.Kind())
	}
	switch lv := l.(type) {
	case value.Number:
		rv, ok := r.(value.Number)
		if !ok {
			return 0, mismatch()
		}
		return sign(int64(lv) - int64(rv)), nil
	case value.Character:
		rv, ok := r.(value.Character)
		if !ok {
			return 0, mismatch()
		}
		return sign(int64(lv) - int64(rv)), nil
	case *value.Str:
		rv, ok := r.(*value.Str)
		if !ok {
			return 0, mismatch()
		}
		return strings.Compare(lv.Text(), rv.Text()), nil
	default:
		return 0, mismatch()
	}
}

func sign(d int64) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
