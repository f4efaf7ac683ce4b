package vm

import (
	"github.com/zurustar/necroturtle/pkg/compiler/ast"
)

// Closure is a script function bound to the scope it was created in.
// It satisfies command.Callable, so capabilities such as ritual can call
// back into the script.
type Closure struct {
	fn   *ast.FunctionLiteral
	env  *Scope
	run  *run
	name string
}

func (r *run) closure(fn *ast.FunctionLiteral, env *Scope) *Closure {
	return &Closure{fn: fn, env: env, run: r, name: fn.Name}
}

// Name returns the function's name, or "" for an anonymous function.
func (c *Closure) Name() string {
	return c.name
}

// Call invokes the function. Missing arguments are undefined and extra
// ones are ignored.
func (c *Closure) Call(args ...any) (any, error) {
	r := c.run
	if err := r.ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	r.depth++
	defer func() { r.depth-- }()
	if r.depth > r.vm.maxDepth {
		return nil, NewStackOverflowError(r.depth, r.vm.maxDepth)
	}

	scope := NewFunctionScope(c.env)
	for i, p := range c.fn.Parameters {
		var arg any
		if i < len(args) {
			arg = args[i]
		}
		if err := scope.Declare(p.Value, arg, "let"); err != nil {
			return nil, withLine(err, p.Token.Line)
		}
	}

	if c.fn.ExprBody != nil {
		v, err := r.eval(c.fn.ExprBody, scope)
		if err != nil {
			return nil, withLine(err, c.fn.ExprBody.Pos().Line)
		}
		return v, nil
	}
	if c.fn.Body == nil {
		return nil, nil
	}

	v, comp, err := r.execBlock(c.fn.Body.Statements, scope)
	if err != nil {
		return nil, err
	}
	if comp == returnValue {
		return v, nil
	}
	return nil, nil
}

func (c *Closure) String() string {
	if c.name == "" {
		return "function"
	}
	return "function " + c.name
}
