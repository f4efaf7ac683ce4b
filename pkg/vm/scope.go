package vm

import (
	"fmt"
	"sync"
)

// binding is one declared name.
type binding struct {
	value    any
	constant bool
}

// Scope represents a lexical scope in the evaluator.
// It supports hierarchical scoping with parent scope lookup.
type Scope struct {
	variables map[string]*binding
	parent    *Scope
	function  bool // var declarations stop here
	mu        sync.RWMutex
}

// NewScope creates a new scope with an optional parent scope.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		variables: make(map[string]*binding),
		parent:    parent,
	}
}

// NewFunctionScope creates the top scope of a function body. var
// declarations inside nested blocks land here.
func NewFunctionScope(parent *Scope) *Scope {
	s := NewScope(parent)
	s.function = true
	return s
}

// varScope returns the scope that owns var declarations made in s.
func (s *Scope) varScope() *Scope {
	for scope := s; scope != nil; scope = scope.parent {
		if scope.function || scope.parent == nil {
			return scope
		}
	}
	return s
}

// clone copies the local bindings of s into a fresh scope with the same
// parent. Counted loops use it to give each iteration its own let bindings.
func (s *Scope) clone() *Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := NewScope(s.parent)
	c.function = s.function
	for name, b := range s.variables {
		c.variables[name] = &binding{value: b.value, constant: b.constant}
	}
	return c
}

// Get retrieves a variable value by name.
// It first searches the current scope, then parent scopes.
func (s *Scope) Get(name string) (any, bool) {
	s.mu.RLock()
	b, ok := s.variables[name]
	s.mu.RUnlock()

	if ok {
		return b.value, true
	}
	if s.parent != nil {
		return s.parent.Get(name)
	}
	return nil, false
}

// Declare creates name in this scope. kind is "let", "const" or "var";
// let and const may not be declared twice in the same scope.
func (s *Scope) Declare(name string, value any, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.variables[name]; ok {
		if kind != "var" || existing.constant {
			return NewRuntimeError(ErrorSyntax, fmt.Sprintf("Identifier '%s' has already been declared", name))
		}
		existing.value = value
		return nil
	}
	s.variables[name] = &binding{value: value, constant: kind == "const"}
	return nil
}

// Assign updates the nearest existing binding of name. Assigning to an
// undeclared name or to a constant is an error.
func (s *Scope) Assign(name string, value any) error {
	for scope := s; scope != nil; scope = scope.parent {
		scope.mu.Lock()
		b, ok := scope.variables[name]
		if !ok {
			scope.mu.Unlock()
			continue
		}
		var err error
		if b.constant {
			err = NewRuntimeError(ErrorTypeMismatch, "Assignment to constant variable.")
		} else {
			b.value = value
		}
		scope.mu.Unlock()
		return err
	}
	return NewReferenceError(name)
}

// Has checks if a variable exists in this scope or any parent scope.
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// HasLocal checks if a variable exists only in the current scope.
func (s *Scope) HasLocal(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.variables[name]
	return ok
}

// Parent returns the parent scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Size returns the number of variables in the current scope (not including parent).
func (s *Scope) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.variables)
}
