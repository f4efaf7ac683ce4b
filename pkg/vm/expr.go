package vm

import (
	"fmt"
	"math"
	"strings"

	"github.com/zurustar/necroturtle/pkg/compiler/ast"
	"github.com/zurustar/necroturtle/pkg/value"
)

// maxArrayLength bounds index assignment past the end of an array.
const maxArrayLength = 1 << 20

func (r *run) eval(node ast.Expression, scope *Scope) (any, error) {
	switch n := node.(type) {
	case *ast.NumberLiteral:
		return n.Value, nil
	case *ast.StringLiteral:
		return n.Value, nil
	case *ast.BooleanLiteral:
		return n.Value, nil
	case *ast.NullLiteral:
		return nil, nil

	case *ast.Identifier:
		return lookup(n.Value, scope)

	case *ast.ArrayLiteral:
		elems := make([]any, len(n.Elements))
		for i, e := range n.Elements {
			v, err := r.eval(e, scope)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return value.NewArray(elems...), nil

	case *ast.ObjectLiteral:
		obj := value.NewObject()
		for i, key := range n.Keys {
			v, err := r.eval(n.Values[i], scope)
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		return obj, nil

	case *ast.FunctionLiteral:
		if n.Name != "" && !n.Arrow {
			inner := NewScope(scope)
			fn := r.closure(n, inner)
			_ = inner.Declare(n.Name, fn, "const")
			return fn, nil
		}
		return r.closure(n, scope), nil

	case *ast.PrefixExpression:
		return r.evalPrefix(n, scope)

	case *ast.InfixExpression:
		left, err := r.eval(n.Left, scope)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "&&":
			if !value.Truthy(left) {
				return left, nil
			}
			return r.eval(n.Right, scope)
		case "||":
			if value.Truthy(left) {
				return left, nil
			}
			return r.eval(n.Right, scope)
		}
		right, err := r.eval(n.Right, scope)
		if err != nil {
			return nil, err
		}
		v, err := value.Binary(n.Operator, left, right)
		if err != nil {
			return nil, NewRuntimeError(ErrorSyntax, err.Error())
		}
		return v, nil

	case *ast.ConditionalExpression:
		test, err := r.eval(n.Test, scope)
		if err != nil {
			return nil, err
		}
		if value.Truthy(test) {
			return r.eval(n.Consequence, scope)
		}
		return r.eval(n.Alternative, scope)

	case *ast.AssignExpression:
		return r.evalAssign(n, scope)

	case *ast.UpdateExpression:
		return r.evalUpdate(n, scope)

	case *ast.CallExpression:
		return r.evalCall(n, scope)

	case *ast.MemberExpression:
		obj, err := r.eval(n.Object, scope)
		if err != nil {
			return nil, err
		}
		return r.member(obj, n.Property)

	case *ast.IndexExpression:
		obj, err := r.eval(n.Left, scope)
		if err != nil {
			return nil, err
		}
		idx, err := r.eval(n.Index, scope)
		if err != nil {
			return nil, err
		}
		return r.index(obj, idx)
	}

	return nil, NewRuntimeError(ErrorSyntax, "unsupported expression: "+node.String())
}

// lookup resolves a name. NaN, Infinity and undefined are the only names a
// script can use without declaring them.
func lookup(name string, scope *Scope) (any, error) {
	if v, ok := scope.Get(name); ok {
		return v, nil
	}
	switch name {
	case "undefined":
		return nil, nil
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	}
	return nil, NewReferenceError(name)
}

func (r *run) evalPrefix(n *ast.PrefixExpression, scope *Scope) (any, error) {
	// typeof tolerates undeclared names
	if id, ok := n.Right.(*ast.Identifier); ok && n.Operator == "typeof" && !scope.Has(id.Value) {
		v, err := lookup(id.Value, scope)
		if err != nil {
			return "undefined", nil
		}
		return value.TypeOf(v), nil
	}

	right, err := r.eval(n.Right, scope)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "-":
		return value.Negate(right), nil
	case "+":
		return value.Number(right), nil
	case "!":
		return !value.Truthy(right), nil
	case "typeof":
		return value.TypeOf(right), nil
	}
	return nil, NewRuntimeError(ErrorSyntax, "unknown operator: "+n.Operator)
}

func (r *run) evalCall(n *ast.CallExpression, scope *Scope) (any, error) {
	callee, err := r.eval(n.Function, scope)
	if err != nil {
		return nil, err
	}

	args := make([]any, len(n.Arguments))
	for i, a := range n.Arguments {
		if args[i], err = r.eval(a, scope); err != nil {
			return nil, err
		}
	}

	if !value.IsCallable(callee) {
		return nil, NewRuntimeError(ErrorTypeMismatch, fmt.Sprintf("%s is not a function", n.Function.String()))
	}
	if err := r.tick(); err != nil {
		return nil, err
	}
	return value.Call(callee, args...)
}

func (r *run) member(obj any, prop string) (any, error) {
	switch o := obj.(type) {
	case nil:
		return nil, NewRuntimeError(ErrorTypeMismatch,
			fmt.Sprintf("Cannot read properties of undefined (reading '%s')", prop))
	case *value.Array:
		if prop == "length" {
			return float64(len(o.Elems)), nil
		}
		if m, ok := r.arrayMethod(o, prop); ok {
			return m, nil
		}
		return nil, nil
	case string:
		if prop == "length" {
			return float64(len([]rune(o))), nil
		}
		return nil, nil
	case *value.Object:
		v, _ := o.Get(prop)
		return v, nil
	}
	return nil, nil
}

func (r *run) index(obj, idx any) (any, error) {
	switch o := obj.(type) {
	case nil:
		return nil, NewRuntimeError(ErrorTypeMismatch,
			fmt.Sprintf("Cannot read properties of undefined (reading '%s')", value.ToString(idx)))
	case *value.Array:
		if i, ok := arrayIndex(idx); ok {
			if i < len(o.Elems) {
				return o.Elems[i], nil
			}
			return nil, nil
		}
		return r.member(o, value.ToString(idx))
	case string:
		if i, ok := arrayIndex(idx); ok {
			runes := []rune(o)
			if i < len(runes) {
				return string(runes[i]), nil
			}
			return nil, nil
		}
		return r.member(o, value.ToString(idx))
	}
	return r.member(obj, value.ToString(idx))
}

// arrayIndex reads idx as a non-negative integer index.
func arrayIndex(idx any) (int, bool) {
	f, ok := value.ToNumber(idx)
	if s, isStr := idx.(string); isStr && strings.TrimSpace(s) == "" {
		return 0, false
	}
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// reference is an assignable location.
type reference struct {
	get func() (any, error)
	set func(any) error
}

func (r *run) ref(target ast.Expression, scope *Scope) (*reference, error) {
	switch t := target.(type) {
	case *ast.Identifier:
		return &reference{
			get: func() (any, error) { return lookup(t.Value, scope) },
			set: func(v any) error { return scope.Assign(t.Value, v) },
		}, nil

	case *ast.MemberExpression:
		obj, err := r.eval(t.Object, scope)
		if err != nil {
			return nil, err
		}
		return r.propertyRef(obj, t.Property), nil

	case *ast.IndexExpression:
		obj, err := r.eval(t.Left, scope)
		if err != nil {
			return nil, err
		}
		idx, err := r.eval(t.Index, scope)
		if err != nil {
			return nil, err
		}
		if arr, ok := obj.(*value.Array); ok {
			if i, ok := arrayIndex(idx); ok {
				return &reference{
					get: func() (any, error) { return r.index(arr, idx) },
					set: func(v any) error {
						if i >= maxArrayLength {
							return NewRuntimeError(ErrorRange, "Invalid array length")
						}
						for len(arr.Elems) <= i {
							arr.Elems = append(arr.Elems, nil)
						}
						arr.Elems[i] = v
						return nil
					},
				}, nil
			}
		}
		return r.propertyRef(obj, value.ToString(idx)), nil
	}
	return nil, NewRuntimeError(ErrorSyntax, "Invalid assignment target")
}

func (r *run) propertyRef(obj any, prop string) *reference {
	return &reference{
		get: func() (any, error) { return r.member(obj, prop) },
		set: func(v any) error {
			o, ok := obj.(*value.Object)
			if !ok {
				return NewRuntimeError(ErrorTypeMismatch,
					fmt.Sprintf("Cannot set properties of %s (setting '%s')", value.TypeOf(obj), prop))
			}
			o.Set(prop, v)
			return nil
		},
	}
}

func (r *run) evalAssign(n *ast.AssignExpression, scope *Scope) (any, error) {
	ref, err := r.ref(n.Target, scope)
	if err != nil {
		return nil, err
	}

	v, err := r.eval(n.Value, scope)
	if err != nil {
		return nil, err
	}
	if fn, ok := v.(*Closure); ok && fn.name == "" {
		if id, ok := n.Target.(*ast.Identifier); ok {
			fn.name = id.Value
		}
	}

	if n.Operator != "=" {
		old, err := ref.get()
		if err != nil {
			return nil, err
		}
		if v, err = value.Arith(strings.TrimSuffix(n.Operator, "="), old, v); err != nil {
			return nil, NewRuntimeError(ErrorSyntax, err.Error())
		}
	}

	if err := ref.set(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *run) evalUpdate(n *ast.UpdateExpression, scope *Scope) (any, error) {
	ref, err := r.ref(n.Target, scope)
	if err != nil {
		return nil, err
	}
	old, err := ref.get()
	if err != nil {
		return nil, err
	}

	before := value.Number(old)
	after := before + 1
	if n.Operator == "--" {
		after = before - 1
	}
	if err := ref.set(after); err != nil {
		return nil, err
	}
	if n.Prefix {
		return after, nil
	}
	return before, nil
}
