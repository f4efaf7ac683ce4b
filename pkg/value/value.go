// Package value implements the dynamic values scripts compute with and the
// operator semantics shared by the constant folder and the evaluator.
//
// Representation:
//   - numbers are float64
//   - strings are string, booleans are bool
//   - undefined and null are both nil
//   - arrays are *Array, objects are *Object
//   - functions are anything implementing command.Callable
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zurustar/necroturtle/pkg/command"
)

// Array is a mutable, ordered list of values.
type Array struct {
	Elems []any
}

// NewArray creates an array holding elems.
func NewArray(elems ...any) *Array {
	return &Array{Elems: elems}
}

// Object is a string-keyed record that remembers insertion order.
type Object struct {
	keys   []string
	fields map[string]any
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{fields: make(map[string]any)}
}

// Get returns the field named key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Set stores a field, appending the key on first use.
func (o *Object) Set(key string, v any) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Keys returns field names in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Normalize converts Go numeric types to float64 so that values coming from
// capabilities compare equal to values computed by scripts.
func Normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return v
}

// ToNumber converts v to a number. ok is false when v has no numeric reading
// (non-numeric strings, arrays, objects, functions, undefined).
func ToNumber(v any) (float64, bool) {
	switch n := Normalize(v).(type) {
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), false
		}
		return f, true
	}
	return math.NaN(), false
}

// Number is ToNumber without the ok flag; failures yield NaN.
func Number(v any) float64 {
	f, _ := ToNumber(v)
	return f
}

// FormatNumber renders a number the way scripts print it: integers without a
// fractional part, NaN and the infinities by name.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ToString converts v to its string form.
func ToString(v any) string {
	switch s := Normalize(v).(type) {
	case nil:
		return "undefined"
	case string:
		return s
	case float64:
		return FormatNumber(s)
	case bool:
		if s {
			return "true"
		}
		return "false"
	case *Array:
		parts := make([]string, len(s.Elems))
		for i, e := range s.Elems {
			if e == nil {
				continue
			}
			parts[i] = ToString(e)
		}
		return strings.Join(parts, ",")
	case *Object:
		return "[object Object]"
	case command.Callable, command.Func:
		return "function"
	}
	return fmt.Sprintf("%v", v)
}

// Truthy reports whether v counts as true in a condition.
func Truthy(v any) bool {
	switch b := Normalize(v).(type) {
	case nil:
		return false
	case bool:
		return b
	case float64:
		return b != 0 && !math.IsNaN(b)
	case string:
		return b != ""
	}
	return true
}

// TypeOf returns the name reported by the typeof operator.
func TypeOf(v any) string {
	switch Normalize(v).(type) {
	case nil:
		return "undefined"
	case float64:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	case command.Callable, command.Func:
		return "function"
	}
	return "object"
}

// IsCallable reports whether v can be invoked.
func IsCallable(v any) bool {
	switch v.(type) {
	case command.Callable, command.Func:
		return true
	}
	return false
}

// Call invokes a callable value.
func Call(fn any, args ...any) (any, error) {
	switch f := fn.(type) {
	case command.Callable:
		return f.Call(args...)
	case command.Func:
		return f(args...)
	}
	return nil, fmt.Errorf("%s is not a function", ToString(fn))
}
