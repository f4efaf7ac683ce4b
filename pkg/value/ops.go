package value

import (
	"fmt"
	"math"
)

// Add implements the + operator: string concatenation when either side is
// a string, numeric addition otherwise.
func Add(left, right any) any {
	left, right = Normalize(left), Normalize(right)
	_, ls := left.(string)
	_, rs := right.(string)
	if ls || rs {
		return ToString(left) + ToString(right)
	}
	return Number(left) + Number(right)
}

// Arith implements the numeric binary operators.
func Arith(operator string, left, right any) (any, error) {
	if operator == "+" {
		return Add(left, right), nil
	}
	l, r := Number(left), Number(right)
	switch operator {
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		return l / r, nil
	case "%":
		if r == 0 {
			return math.NaN(), nil
		}
		return math.Mod(l, r), nil
	case "**":
		return math.Pow(l, r), nil
	}
	return nil, fmt.Errorf("unknown arithmetic operator: %s", operator)
}

// Compare implements the relational operators. Two strings compare
// lexically; anything else compares numerically and NaN is never ordered.
func Compare(operator string, left, right any) (bool, error) {
	left, right = Normalize(left), Normalize(right)
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			switch operator {
			case "<":
				return ls < rs, nil
			case "<=":
				return ls <= rs, nil
			case ">":
				return ls > rs, nil
			case ">=":
				return ls >= rs, nil
			}
			return false, fmt.Errorf("unknown comparison operator: %s", operator)
		}
	}
	l, r := Number(left), Number(right)
	switch operator {
	case "<":
		return l < r, nil
	case "<=":
		return l <= r, nil
	case ">":
		return l > r, nil
	case ">=":
		return l >= r, nil
	}
	return false, fmt.Errorf("unknown comparison operator: %s", operator)
}

// StrictEqual implements ===.
func StrictEqual(left, right any) bool {
	left, right = Normalize(left), Normalize(right)
	switch l := left.(type) {
	case nil:
		return right == nil
	case float64:
		r, ok := right.(float64)
		return ok && l == r
	case string:
		r, ok := right.(string)
		return ok && l == r
	case bool:
		r, ok := right.(bool)
		return ok && l == r
	case *Array:
		r, ok := right.(*Array)
		return ok && l == r
	case *Object:
		r, ok := right.(*Object)
		return ok && l == r
	}
	// functions compare by identity where Go allows it
	return isComparable(left) && isComparable(right) && left == right
}

// LooseEqual implements ==: like === except that numbers, numeric strings
// and booleans are compared by their numeric value.
func LooseEqual(left, right any) bool {
	left, right = Normalize(left), Normalize(right)
	if StrictEqual(left, right) {
		return true
	}
	if left == nil || right == nil {
		return false
	}
	if isPrimitive(left) && isPrimitive(right) {
		l, lok := ToNumber(left)
		r, rok := ToNumber(right)
		return lok && rok && l == r
	}
	return false
}

// Binary applies a binary operator that does not short-circuit.
func Binary(operator string, left, right any) (any, error) {
	switch operator {
	case "+", "-", "*", "/", "%", "**":
		return Arith(operator, left, right)
	case "<", "<=", ">", ">=":
		return Compare(operator, left, right)
	case "===":
		return StrictEqual(left, right), nil
	case "!==":
		return !StrictEqual(left, right), nil
	case "==":
		return LooseEqual(left, right), nil
	case "!=":
		return !LooseEqual(left, right), nil
	}
	return nil, fmt.Errorf("unsupported operator %s", operator)
}

// Negate implements unary minus.
func Negate(v any) any {
	return -Number(v)
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case float64, string, bool:
		return true
	}
	return false
}

func isComparable(v any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = v == v
	return true
}
