package value

import (
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/necroturtle/pkg/command"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float", 2.5, 2.5, true},
		{"int", 7, 7, true},
		{"true", true, 1, true},
		{"false", false, 0, true},
		{"numeric string", " 42 ", 42, true},
		{"blank string", "  ", 0, true},
		{"word", "bones", math.NaN(), false},
		{"undefined", nil, math.NaN(), false},
		{"array", NewArray(1.0), math.NaN(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToNumber(tt.in)
			if ok != tt.ok {
				t.Fatalf("ToNumber(%v) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if math.IsNaN(tt.want) {
				if !math.IsNaN(got) {
					t.Errorf("ToNumber(%v) = %v, want NaN", tt.in, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ToNumber(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToString(t *testing.T) {
	fn := command.Func(func(args ...any) (any, error) { return nil, nil })
	obj := NewObject()
	obj.Set("x", 1.0)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"integer", 100.0, "100"},
		{"fraction", 1.5, "1.5"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"NaN", math.NaN(), "NaN"},
		{"infinity", math.Inf(-1), "-Infinity"},
		{"huge", 1e21, "1e+21"},
		{"undefined", nil, "undefined"},
		{"bool", true, "true"},
		{"array with hole", NewArray(1.0, nil, "a"), "1,,a"},
		{"object", obj, "[object Object]"},
		{"function", fn, "function"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToString(tt.in); got != tt.want {
				t.Errorf("ToString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruthyAndTypeOf(t *testing.T) {
	fn := command.Func(func(args ...any) (any, error) { return nil, nil })
	tests := []struct {
		in     any
		truthy bool
		typ    string
	}{
		{nil, false, "undefined"},
		{0.0, false, "number"},
		{math.NaN(), false, "number"},
		{3, true, "number"},
		{"", false, "string"},
		{"0", true, "string"},
		{false, false, "boolean"},
		{NewArray(), true, "object"},
		{NewObject(), true, "object"},
		{fn, true, "function"},
	}

	for _, tt := range tests {
		if got := Truthy(tt.in); got != tt.truthy {
			t.Errorf("Truthy(%v) = %v, want %v", tt.in, got, tt.truthy)
		}
		if got := TypeOf(tt.in); got != tt.typ {
			t.Errorf("TypeOf(%v) = %q, want %q", tt.in, got, tt.typ)
		}
	}
}

func TestObjectKeepsInsertionOrder(t *testing.T) {
	o := NewObject()
	o.Set("y", 2.0)
	o.Set("x", 1.0)
	o.Set("y", 3.0)
	if got := o.Keys(); !reflect.DeepEqual(got, []string{"y", "x"}) {
		t.Errorf("Keys() = %v", got)
	}
	if v, ok := o.Get("y"); !ok || v != 3.0 {
		t.Errorf("Get(y) = %v, %v", v, ok)
	}
}

func TestBinary(t *testing.T) {
	arr := NewArray()
	tests := []struct {
		op          string
		left, right any
		want        any
	}{
		{"+", 1.0, 2, 3.0},
		{"+", "a", 1.0, "a1"},
		{"+", 1.0, "a", "1a"},
		{"-", "10", 4.0, 6.0},
		{"*", 3.0, true, 3.0},
		{"/", 1.0, 4.0, 0.25},
		{"**", 2.0, 10.0, 1024.0},
		{"%", 7.0, 3.0, 1.0},
		{"<", "a", "b", true},
		{"<", "10", 9.0, false},
		{">=", 5.0, 5, true},
		{"===", 1.0, 1, true},
		{"===", "1", 1.0, false},
		{"===", arr, arr, true},
		{"===", NewArray(), NewArray(), false},
		{"==", "1", 1.0, true},
		{"==", true, 1.0, true},
		{"==", nil, 0.0, false},
		{"!=", nil, nil, false},
		{"!==", 1.0, "1", true},
	}

	for _, tt := range tests {
		got, err := Binary(tt.op, tt.left, tt.right)
		if err != nil {
			t.Errorf("Binary(%q, %v, %v) error = %v", tt.op, tt.left, tt.right, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Binary(%q, %v, %v) = %v, want %v", tt.op, tt.left, tt.right, got, tt.want)
		}
	}

	if got, _ := Binary("%", 1.0, 0.0); !math.IsNaN(got.(float64)) {
		t.Errorf("1 %% 0 = %v, want NaN", got)
	}
	if _, err := Binary("<<", 1.0, 2.0); err == nil {
		t.Error("unsupported operator should fail")
	}
}

func TestCall(t *testing.T) {
	fn := command.Func(func(args ...any) (any, error) { return len(args), nil })
	if got, err := Call(fn, 1.0, 2.0); err != nil || got != 2 {
		t.Errorf("Call() = %v, %v", got, err)
	}
	if !IsCallable(fn) || IsCallable(5.0) {
		t.Error("IsCallable mismatch")
	}
	if _, err := Call(5.0); err == nil || err.Error() != "5 is not a function" {
		t.Errorf("Call(5) error = %v", err)
	}
}

// Feature: value, Property 1: 数値の加算は可換
func TestProperty1_AddCommutative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("a + b == b + a", prop.ForAll(
		func(a, b float64) bool {
			return Add(a, b) == Add(b, a)
		},
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: value, Property 2: 整数は文字列にしても同じ数に戻る
func TestProperty2_IntegerStringRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("ToNumber(ToString(n)) == n", prop.ForAll(
		func(n int) bool {
			f, ok := ToNumber(ToString(float64(n)))
			return ok && f == float64(n) && LooseEqual(ToString(n), n)
		},
		gen.IntRange(-1000000, 1000000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
