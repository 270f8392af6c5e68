package builtins

import (
	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/value"
)

// registerArrayBuiltins registers arrmake and arrlen.
func (rt *Runtime) registerArrayBuiltins() {
	// arrmake(n, seed): every element is an independent copy of seed.
	rt.register(ast.Arrmake, func(_ *Runtime, args []value.Value) (value.Value, error) {
		n, err := size(args[0], "arrmake")
		if err != nil {
			return nil, err
		}
		elems := make([]value.Value, n)
		for i := range elems {
			elems[i] = args[1].Copy()
		}
		return value.NewArray(elems), nil
	})

	rt.register(ast.Arrlen, func(_ *Runtime, args []value.Value) (value.Value, error) {
		a, err := takeArray(args[0], "arrlen")
		if err != nil {
			return nil, err
		}
		return value.Number(a.Len()), nil
	})
}

// Element walks arr through indexes, each level of which must be an Array,
// and returns the addressed element.
func Element(arr value.Value, indexes []value.Value) (value.Value, error) {
	cur := arr
	for _, idx := range indexes {
		a, err := takeArray(cur, "array indexing")
		if err != nil {
			return nil, err
		}
		i, err := index(idx, a.Len(), "array indexing")
		if err != nil {
			return nil, err
		}
		cur = a.At(i)
	}
	return cur, nil
}

// SetElement walks arr through all but the last index and replaces the
// element at the last index in place. indexes must not be empty.
func SetElement(arr value.Value, indexes []value.Value, v value.Value) error {
	parent, err := Element(arr, indexes[:len(indexes)-1])
	if err != nil {
		return err
	}
	a, err := takeArray(parent, "array assignment")
	if err != nil {
		return err
	}
	i, err := index(indexes[len(indexes)-1], a.Len(), "array assignment")
	if err != nil {
		return err
	}
	a.Set(i, v)
	return nil
}
