package vm

import (
	"fmt"

	"github.com/zurustar/necroturtle/pkg/command"
	"github.com/zurustar/necroturtle/pkg/value"
)

// arrayMethod returns a method bound to arr. Only the iteration helpers
// rituals may call are available.
func (r *run) arrayMethod(arr *value.Array, name string) (command.Func, bool) {
	switch name {
	case "forEach":
		return func(args ...any) (any, error) {
			_, err := r.iterate(arr, name, args, func(v, _ any, _ int) bool { return false })
			return nil, err
		}, true

	case "map":
		return func(args ...any) (any, error) {
			out := make([]any, 0, len(arr.Elems))
			_, err := r.iterate(arr, name, args, func(_, res any, _ int) bool {
				out = append(out, res)
				return false
			})
			if err != nil {
				return nil, err
			}
			return value.NewArray(out...), nil
		}, true

	case "filter":
		return func(args ...any) (any, error) {
			var out []any
			_, err := r.iterate(arr, name, args, func(v, res any, _ int) bool {
				if value.Truthy(res) {
					out = append(out, v)
				}
				return false
			})
			if err != nil {
				return nil, err
			}
			return value.NewArray(out...), nil
		}, true

	case "some":
		return func(args ...any) (any, error) {
			hit, err := r.iterate(arr, name, args, func(_, res any, _ int) bool { return value.Truthy(res) })
			return hit >= 0, err
		}, true

	case "every":
		return func(args ...any) (any, error) {
			miss, err := r.iterate(arr, name, args, func(_, res any, _ int) bool { return !value.Truthy(res) })
			return miss < 0, err
		}, true

	case "find":
		return func(args ...any) (any, error) {
			var found any
			_, err := r.iterate(arr, name, args, func(v, res any, _ int) bool {
				if value.Truthy(res) {
					found = v
					return true
				}
				return false
			})
			return found, err
		}, true

	case "reduce":
		return func(args ...any) (any, error) {
			return r.reduce(arr, args)
		}, true
	}
	return nil, false
}

// iterate calls the callback in args[0] with (element, index, array) for
// each element present when iteration starts. visit sees the element and
// the callback's result and returns true to stop early. The stop index is
// returned, or -1 when every element was visited.
func (r *run) iterate(arr *value.Array, method string, args []any, visit func(elem, result any, i int) bool) (int, error) {
	if len(args) == 0 || !value.IsCallable(args[0]) {
		return -1, NewRuntimeError(ErrorTypeMismatch, fmt.Sprintf("%s: callback is not a function", method))
	}
	fn := args[0]
	n := len(arr.Elems)
	for i := 0; i < n && i < len(arr.Elems); i++ {
		if err := r.tick(); err != nil {
			return -1, err
		}
		elem := arr.Elems[i]
		res, err := value.Call(fn, elem, float64(i), arr)
		if err != nil {
			return -1, err
		}
		if visit(elem, res, i) {
			return i, nil
		}
	}
	return -1, nil
}

func (r *run) reduce(arr *value.Array, args []any) (any, error) {
	if len(args) == 0 || !value.IsCallable(args[0]) {
		return nil, NewRuntimeError(ErrorTypeMismatch, "reduce: callback is not a function")
	}
	fn := args[0]
	elems := append([]any(nil), arr.Elems...)

	start := 0
	var acc any
	if len(args) > 1 {
		acc = args[1]
	} else {
		if len(elems) == 0 {
			return nil, NewRuntimeError(ErrorTypeMismatch, "Reduce of empty array with no initial value")
		}
		acc = elems[0]
		start = 1
	}

	for i := start; i < len(elems); i++ {
		if err := r.tick(); err != nil {
			return nil, err
		}
		var err error
		if acc, err = value.Call(fn, acc, elems[i], float64(i), arr); err != nil {
			return nil, err
		}
	}
	return acc, nil
}
