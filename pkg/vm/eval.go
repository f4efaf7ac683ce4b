package vm

import (
	"errors"

	"github.com/zurustar/necroturtle/pkg/compiler/ast"
	"github.com/zurustar/necroturtle/pkg/value"
)

// completion tells the enclosing construct how a statement finished.
type completion int

const (
	normal completion = iota
	breakLoop
	continueLoop
	returnValue
)

// execBlock runs statements in scope. Function declarations are hoisted to
// the top of the block before anything runs.
func (r *run) execBlock(stmts []ast.Statement, scope *Scope) (any, completion, error) {
	for _, stmt := range stmts {
		decl, ok := stmt.(*ast.FunctionDeclaration)
		if !ok {
			continue
		}
		fn := r.closure(decl.Function, scope)
		if err := scope.Declare(decl.Name.Value, fn, "var"); err != nil {
			return nil, normal, withLine(err, decl.Pos().Line)
		}
	}

	for _, stmt := range stmts {
		v, c, err := r.exec(stmt, scope)
		if err != nil || c != normal {
			return v, c, err
		}
	}
	return nil, normal, nil
}

func (r *run) exec(stmt ast.Statement, scope *Scope) (any, completion, error) {
	if err := r.tick(); err != nil {
		return nil, normal, err
	}
	v, c, err := r.execStatement(stmt, scope)
	if err != nil {
		return nil, normal, withLine(err, stmt.Pos().Line)
	}
	return v, c, nil
}

func (r *run) execStatement(stmt ast.Statement, scope *Scope) (any, completion, error) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		_, err := r.eval(s.Expression, scope)
		return nil, normal, err

	case *ast.VarStatement:
		return nil, normal, r.declare(s, scope)

	case *ast.FunctionDeclaration, *ast.EmptyStatement:
		return nil, normal, nil

	case *ast.BlockStatement:
		return r.execBlock(s.Statements, NewScope(scope))

	case *ast.ReturnStatement:
		if s.ReturnValue == nil {
			return nil, returnValue, nil
		}
		v, err := r.eval(s.ReturnValue, scope)
		if err != nil {
			return nil, normal, err
		}
		return v, returnValue, nil

	case *ast.IfStatement:
		cond, err := r.eval(s.Condition, scope)
		if err != nil {
			return nil, normal, err
		}
		if value.Truthy(cond) {
			return r.exec(s.Consequence, scope)
		}
		if s.Alternative != nil {
			return r.exec(s.Alternative, scope)
		}
		return nil, normal, nil

	case *ast.ForStatement:
		return r.execFor(s, scope)

	case *ast.ForOfStatement:
		return r.execForOf(s, scope)

	case *ast.WhileStatement:
		for {
			cond, err := r.eval(s.Condition, scope)
			if err != nil {
				return nil, normal, err
			}
			if !value.Truthy(cond) {
				return nil, normal, nil
			}
			v, c, err := r.exec(s.Body, scope)
			if done, v, c, err := loopExit(v, c, err); done {
				return v, c, err
			}
		}

	case *ast.DoWhileStatement:
		for {
			v, c, err := r.exec(s.Body, scope)
			if done, v, c, err := loopExit(v, c, err); done {
				return v, c, err
			}
			cond, err := r.eval(s.Condition, scope)
			if err != nil {
				return nil, normal, err
			}
			if !value.Truthy(cond) {
				return nil, normal, nil
			}
		}

	case *ast.BreakStatement:
		return nil, breakLoop, nil

	case *ast.ContinueStatement:
		return nil, continueLoop, nil

	case *ast.SwitchStatement:
		return r.execSwitch(s, scope)
	}

	return nil, normal, NewRuntimeError(ErrorSyntax, "unsupported statement: "+stmt.String())
}

// loopExit interprets the completion of one loop iteration. done is true
// when the loop must stop; break is consumed here, return passes through.
func loopExit(v any, c completion, err error) (bool, any, completion, error) {
	switch {
	case err != nil:
		return true, nil, normal, err
	case c == breakLoop:
		return true, nil, normal, nil
	case c == returnValue:
		return true, v, c, nil
	}
	return false, nil, normal, nil
}

func (r *run) declare(s *ast.VarStatement, scope *Scope) error {
	target := scope
	if s.Kind == "var" {
		target = scope.varScope()
	}
	for _, d := range s.Declarations {
		var v any
		if d.Value != nil {
			var err error
			if v, err = r.eval(d.Value, scope); err != nil {
				return err
			}
		}
		if fn, ok := v.(*Closure); ok && fn.name == "" {
			fn.name = d.Name.Value
		}
		if err := target.Declare(d.Name.Value, v, s.Kind); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) execFor(s *ast.ForStatement, scope *Scope) (any, completion, error) {
	loop := NewScope(scope)
	perIteration := false
	if s.Init != nil {
		if vs, ok := s.Init.(*ast.VarStatement); ok && vs.Kind != "var" {
			perIteration = true
		}
		if _, _, err := r.exec(s.Init, loop); err != nil {
			return nil, normal, err
		}
	}

	for {
		if s.Condition != nil {
			cond, err := r.eval(s.Condition, loop)
			if err != nil {
				return nil, normal, err
			}
			if !value.Truthy(cond) {
				return nil, normal, nil
			}
		}

		v, c, err := r.exec(s.Body, loop)
		if done, v, c, err := loopExit(v, c, err); done {
			return v, c, err
		}

		if perIteration {
			loop = loop.clone()
		}
		if s.Update != nil {
			if _, err := r.eval(s.Update, loop); err != nil {
				return nil, normal, err
			}
		}
		if err := r.tick(); err != nil {
			return nil, normal, err
		}
	}
}

func (r *run) execForOf(s *ast.ForOfStatement, scope *Scope) (any, completion, error) {
	iterable, err := r.eval(s.Iterable, scope)
	if err != nil {
		return nil, normal, err
	}

	var items []any
	switch it := iterable.(type) {
	case *value.Array:
		items = append(items, it.Elems...)
	case string:
		for _, ch := range it {
			items = append(items, string(ch))
		}
	default:
		return nil, normal, NewRuntimeError(ErrorTypeMismatch, s.Iterable.String()+" is not iterable")
	}

	kind := s.Kind
	if kind == "var" {
		kind = "let"
	}
	for _, item := range items {
		iteration := NewScope(scope)
		if err := iteration.Declare(s.Name.Value, item, kind); err != nil {
			return nil, normal, err
		}
		v, c, err := r.exec(s.Body, iteration)
		if done, v, c, err := loopExit(v, c, err); done {
			return v, c, err
		}
	}
	return nil, normal, nil
}

// execSwitch matches cases with === and falls through until a break.
func (r *run) execSwitch(s *ast.SwitchStatement, scope *Scope) (any, completion, error) {
	disc, err := r.eval(s.Discriminant, scope)
	if err != nil {
		return nil, normal, err
	}

	start := -1
	for i, c := range s.Cases {
		if c.Test == nil {
			continue
		}
		test, err := r.eval(c.Test, scope)
		if err != nil {
			return nil, normal, err
		}
		if value.StrictEqual(disc, test) {
			start = i
			break
		}
	}
	if start < 0 {
		for i, c := range s.Cases {
			if c.Test == nil {
				start = i
				break
			}
		}
	}
	if start < 0 {
		return nil, normal, nil
	}

	body := NewScope(scope)
	for _, c := range s.Cases[start:] {
		for _, stmt := range c.Body {
			v, comp, err := r.exec(stmt, body)
			if err != nil {
				return nil, normal, err
			}
			switch comp {
			case breakLoop:
				return nil, normal, nil
			case continueLoop, returnValue:
				return v, comp, nil
			}
		}
	}
	return nil, normal, nil
}

// withLine attaches a 1-based source line to runtime errors that have none.
// Cancellation carries no line.
func withLine(err error, line int) error {
	var re *RuntimeError
	if errors.As(err, &re) && re.Line < 0 && re.Type != ErrorCancelled && line > 0 {
		re.Line = line
	}
	return err
}
