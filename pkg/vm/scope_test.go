package vm

import (
	"errors"
	"testing"
)

func TestScope_DeclareAndGet(t *testing.T) {
	global := NewScope(nil)
	if err := global.Declare("a", 1.0, "let"); err != nil {
		t.Fatalf("Declare() error = %v", err)
	}
	child := NewScope(global)
	if err := child.Declare("a", 2.0, "let"); err != nil {
		t.Fatalf("shadowing in a child scope should be allowed: %v", err)
	}

	if v, _ := child.Get("a"); v != 2.0 {
		t.Errorf("child a = %v, want 2", v)
	}
	if v, _ := global.Get("a"); v != 1.0 {
		t.Errorf("global a = %v, want 1", v)
	}
	if !child.Has("a") || !child.HasLocal("a") || child.Size() != 1 {
		t.Error("child scope bookkeeping is wrong")
	}
	if child.Parent() != global {
		t.Error("Parent() should return the enclosing scope")
	}
}

func TestScope_Redeclaration(t *testing.T) {
	tests := []struct {
		first, second string
		wantErr       bool
	}{
		{"let", "let", true},
		{"const", "var", true},
		{"var", "let", true},
		{"var", "var", false},
	}

	for _, tt := range tests {
		t.Run(tt.first+"/"+tt.second, func(t *testing.T) {
			s := NewScope(nil)
			_ = s.Declare("x", 1.0, tt.first)
			err := s.Declare("x", 2.0, tt.second)
			if (err != nil) != tt.wantErr {
				t.Errorf("Declare() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScope_Assign(t *testing.T) {
	global := NewScope(nil)
	_ = global.Declare("n", 1.0, "let")
	_ = global.Declare("k", 1.0, "const")
	child := NewScope(global)

	if err := child.Assign("n", 5.0); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if v, _ := global.Get("n"); v != 5.0 {
		t.Errorf("n = %v, want 5", v)
	}

	var re *RuntimeError
	if err := child.Assign("k", 2.0); !errors.As(err, &re) || re.Type != ErrorTypeMismatch {
		t.Errorf("assigning a constant: error = %v", err)
	}
	if err := child.Assign("missing", 2.0); !errors.As(err, &re) || re.Type != ErrorReference {
		t.Errorf("assigning an undeclared name: error = %v", err)
	}
}

func TestScope_VarScopeAndClone(t *testing.T) {
	global := NewScope(nil)
	fn := NewFunctionScope(global)
	block := NewScope(NewScope(fn))
	if block.varScope() != fn {
		t.Error("var declarations should land in the function scope")
	}
	if NewScope(global).varScope() != global {
		t.Error("without a function scope var declarations land in the global scope")
	}

	_ = fn.Declare("i", 0.0, "let")
	c := fn.clone()
	_ = c.Assign("i", 1.0)
	if v, _ := fn.Get("i"); v != 0.0 {
		t.Errorf("clone shares bindings with the original: i = %v", v)
	}
}
