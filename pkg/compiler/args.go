package compiler

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/zurustar/necroturtle/pkg/compiler/ast"
	"github.com/zurustar/necroturtle/pkg/compiler/parser"
	"github.com/zurustar/necroturtle/pkg/value"
)

var (
	numberArg = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	quotedArg = regexp.MustCompile(`^['"].*['"]$`)
)

// ParseArgs classifies the comma separated argument text of a direct call.
// Each fragment becomes, in order of preference: a number literal, a quoted
// string, a boolean, the value of a constant expression, or the raw
// fragment itself.
func ParseArgs(argText string) []any {
	if strings.TrimSpace(argText) == "" {
		return []any{}
	}

	parts := SplitTopLevel(argText)
	args := make([]any, 0, len(parts))
	for _, part := range parts {
		args = append(args, classifyArg(strings.TrimSpace(part)))
	}
	return args
}

func classifyArg(part string) any {
	if numberArg.MatchString(part) {
		if f, err := strconv.ParseFloat(part, 64); err == nil {
			return f
		}
	}
	if len(part) >= 2 && quotedArg.MatchString(part) {
		return part[1 : len(part)-1]
	}
	switch part {
	case "true":
		return true
	case "false":
		return false
	}
	if v, err := EvalConstant(part); err == nil {
		return v
	}
	return part
}

// SplitTopLevel splits s on commas that are not nested inside parentheses,
// brackets, braces or quotes.
func SplitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			switch ch {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// EvalConstant evaluates a side-effect free expression over literals.
// Identifiers, calls, assignments and functions are rejected, so the result
// never depends on anything but the text itself. Only number, string and
// boolean results are accepted. Division by zero yields an infinity, the
// same value the extended grammar computes; NaN is rejected.
func EvalConstant(src string) (any, error) {
	expr, err := parser.ParseExpression(src)
	if err != nil {
		return nil, err
	}
	v, err := evalConst(expr)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case float64:
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%s is not a number", src)
		}
		return v, nil
	case string, bool:
		return v, nil
	}
	return nil, fmt.Errorf("%s is not a constant value", src)
}

func evalConst(node ast.Expression) (any, error) {
	switch n := node.(type) {
	case *ast.NumberLiteral:
		return n.Value, nil
	case *ast.StringLiteral:
		return n.Value, nil
	case *ast.BooleanLiteral:
		return n.Value, nil
	case *ast.NullLiteral:
		return nil, nil

	case *ast.PrefixExpression:
		right, err := evalConst(n.Right)
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
		return nil, fmt.Errorf("unsupported operator %s", n.Operator)

	case *ast.InfixExpression:
		left, err := evalConst(n.Left)
		if err != nil {
			return nil, err
		}
		// && and || short-circuit but both sides must still be constant.
		right, err := evalConst(n.Right)
		if err != nil {
			return nil, err
		}
		return applyInfix(n.Operator, left, right)

	case *ast.ConditionalExpression:
		test, err := evalConst(n.Test)
		if err != nil {
			return nil, err
		}
		cons, err := evalConst(n.Consequence)
		if err != nil {
			return nil, err
		}
		alt, err := evalConst(n.Alternative)
		if err != nil {
			return nil, err
		}
		if value.Truthy(test) {
			return cons, nil
		}
		return alt, nil
	}

	return nil, fmt.Errorf("%s is not a constant expression", node.String())
}

func applyInfix(op string, left, right any) (any, error) {
	switch op {
	case "&&":
		if !value.Truthy(left) {
			return left, nil
		}
		return right, nil
	case "||":
		if value.Truthy(left) {
			return left, nil
		}
		return right, nil
	}
	return value.Binary(op, left, right)
}
