package vm

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/zurustar/necroturtle/pkg/command"
	"github.com/zurustar/necroturtle/pkg/compiler"
	"github.com/zurustar/necroturtle/pkg/value"
)

// recorder is a registry whose verbs log their calls.
type recorder struct {
	calls []string
	lines []int
}

func (rec *recorder) registry() command.Registry {
	verb := func(name string) command.Func {
		return func(args ...any) (any, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = value.ToString(a)
			}
			rec.calls = append(rec.calls, name+"("+strings.Join(parts, ",")+")")
			return nil, nil
		}
	}
	return command.Registry{
		"summon": verb("summon"),
		"twist":  verb("twist"),
		"banish": verb("banish"),
		"ritual": func(args ...any) (any, error) {
			n := int(value.Number(args[0]))
			for i := 0; i < n; i++ {
				if _, err := value.Call(args[1], float64(i)); err != nil {
					return nil, err
				}
			}
			return nil, nil
		},
		"echo": func(args ...any) (any, error) {
			return args[0], nil
		},
		"fail": func(args ...any) (any, error) {
			return nil, errors.New("the spirits refuse")
		},
	}
}

func (rec *recorder) run(t *testing.T, src string, opts ...Option) error {
	t.Helper()
	opts = append([]Option{WithLineNotifier(func(line int) { rec.lines = append(rec.lines, line) })}, opts...)
	return New(rec.registry(), opts...).Run(context.Background(), src)
}

func TestRun_RitualBlock(t *testing.T) {
	src := `ritual(4, () => {
  summon(100);
  twist(90);
});`

	rec := &recorder{}
	if err := rec.run(t, src); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		"summon(100)", "twist(90)",
		"summon(100)", "twist(90)",
		"summon(100)", "twist(90)",
		"summon(100)", "twist(90)",
	}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
	// ritual(, then summon and twist; repeats fall back to the first match.
	if wantLines := []int{0, 1, 2, 1, 2, 1, 2, 1, 2}; !reflect.DeepEqual(rec.lines, wantLines) {
		t.Errorf("lines = %v, want %v", rec.lines, wantLines)
	}
}

func TestRun_LineClaimsFirstUnreportedLine(t *testing.T) {
	// The comment on line 0 mentions summon( and is claimed first.
	src := "// summon(1) draws\nsummon(2);\nsummon(3);"

	rec := &recorder{}
	if err := rec.run(t, src); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := []int{0, 1}; !reflect.DeepEqual(rec.lines, want) {
		t.Errorf("lines = %v, want %v", rec.lines, want)
	}
	if len(rec.calls) != 2 {
		t.Errorf("calls = %v", rec.calls)
	}
}

func TestRun_EveryCallIsTraced(t *testing.T) {
	src := "ritual(3, () => {\n  summon(10);\n  twist(90);\n});\nbanish(5);"

	rec := &recorder{}
	if err := rec.run(t, src); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// 3 x (summon, twist) and the trailing banish
	if len(rec.calls) != 7 {
		t.Fatalf("calls = %v", rec.calls)
	}
	// one line per call, plus ritual( itself
	want := []int{0, 1, 2, 1, 2, 1, 2, 4}
	if !reflect.DeepEqual(rec.lines, want) {
		t.Errorf("lines = %v, want %v", rec.lines, want)
	}
}

func TestRun_Language(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "function declaration is hoisted",
			src:  "square(3);\nfunction square(n) { summon(n * n); }",
			want: []string{"summon(9)"},
		},
		{
			name: "recursion",
			src:  "function f(n) { if (n <= 0) return; summon(n); f(n - 1); }\nf(3);",
			want: []string{"summon(3)", "summon(2)", "summon(1)"},
		},
		{
			name: "arrow with expression body",
			src:  "const double = x => x * 2;\nsummon(double(21));",
			want: []string{"summon(42)"},
		},
		{
			name: "closures capture their scope",
			src:  "function counter() { let n = 0; return () => ++n; }\nconst c = counter(); c(); c();\nsummon(c());",
			want: []string{"summon(3)"},
		},
		{
			name: "counted loop with break and continue",
			src:  "for (let i = 0; i < 10; i++) { if (i % 2) continue; if (i > 4) break; summon(i); }",
			want: []string{"summon(0)", "summon(2)", "summon(4)"},
		},
		{
			name: "loop callbacks see their own iteration",
			src:  "const fs = [];\nfor (let i = 0; i < 3; i++) { fs[i] = () => i; }\nfs.forEach(f => summon(f()));",
			want: []string{"summon(0)", "summon(1)", "summon(2)"},
		},
		{
			name: "for of over array",
			src:  "for (const d of [10, 20]) { banish(d); }",
			want: []string{"banish(10)", "banish(20)"},
		},
		{
			name: "while and do while",
			src:  "let n = 2; while (n > 0) { summon(n); n--; }\ndo { twist(n); } while (false);",
			want: []string{"summon(2)", "summon(1)", "twist(0)"},
		},
		{
			name: "switch falls through",
			src:  "switch (2) { case 1: summon(1); case 2: summon(2); case 3: summon(3); break; default: summon(4); }",
			want: []string{"summon(2)", "summon(3)"},
		},
		{
			name: "switch default",
			src:  "switch ('x') { case 'y': summon(1); break; default: summon(4); }",
			want: []string{"summon(4)"},
		},
		{
			name: "array helpers",
			src: `const xs = [1, 2, 3, 4];
summon(xs.map(x => x * 10).filter(x => x > 15).reduce((a, b) => a + b, 0));
summon(xs.some(x => x > 3), xs.every(x => x > 3), xs.find(x => x > 2), xs.length);`,
			want: []string{"summon(90)", "summon(true,false,3,4)"},
		},
		{
			name: "objects and members",
			src:  "const p = {x: 3, y: 4};\np.x += 1;\nsummon(p.x * p.y, p['y']);",
			want: []string{"summon(16,4)"},
		},
		{
			name: "var escapes its block",
			src:  "if (true) { var v = 7; }\nsummon(v);",
			want: []string{"summon(7)"},
		},
		{
			name: "strings and typeof",
			src:  "summon('n=' + 1, typeof summon, typeof nothing, 'abc'.length);",
			want: []string{"summon(n=1,function,undefined,3)"},
		},
		{
			name: "capability return values reach the script",
			src:  "summon(echo(5) + 1);",
			want: []string{"summon(6)"},
		},
		{
			name: "short circuit skips the right side",
			src:  "false && summon(1);\ntrue || summon(2);\nnull || summon(3);",
			want: []string{"summon(3)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			if err := rec.run(t, tt.src); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !reflect.DeepEqual(rec.calls, tt.want) {
				t.Errorf("calls = %v, want %v", rec.calls, tt.want)
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		errType ErrorType
		message string
		line    int
	}{
		{"undeclared name", "summon(1);\nsummon(size);", ErrorReference, "size is not defined", 2},
		{"unknown verb", "conjure(1);", ErrorReference, "conjure is not defined", 1},
		{"const reassignment", "const a = 1;\na = 2;", ErrorTypeMismatch, "Assignment to constant variable.", 2},
		{"verb shadowing", "let summon = 1;", ErrorSyntax, "Identifier 'summon' has already been declared", 1},
		{"not a function", "const x = 3;\nx();", ErrorTypeMismatch, "x is not a function", 2},
		{"undefined member", "let o;\n\nsummon(o.x);", ErrorTypeMismatch, "Cannot read properties of undefined (reading 'x')", 3},
		{"for of non iterable", "for (const x of 5) {}", ErrorTypeMismatch, "is not iterable", 1},
		{"stack overflow", "function f() { f(); }\nf();", ErrorStackOverflow, "Maximum call stack size exceeded", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			err := rec.run(t, tt.src)
			var re *RuntimeError
			if !errors.As(err, &re) {
				t.Fatalf("error = %v (%T), want *RuntimeError", err, err)
			}
			if re.Type != tt.errType {
				t.Errorf("type = %s, want %s", re.Type, tt.errType)
			}
			if !strings.Contains(re.Message, tt.message) {
				t.Errorf("message = %q, want it to contain %q", re.Message, tt.message)
			}
			if re.Line != tt.line {
				t.Errorf("line = %d, want %d", re.Line, tt.line)
			}
		})
	}
}

func TestRun_SyntaxErrorIsCompileError(t *testing.T) {
	rec := &recorder{}
	err := rec.run(t, "ritual(2, () => {\n  summon(;\n});")
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v (%T), want *compiler.CompileError", err, err)
	}
	if ce.Phase != "parser" || ce.Line != 2 {
		t.Errorf("unexpected error %+v", ce)
	}
	if len(rec.calls) != 0 {
		t.Errorf("nothing should run after a syntax error, got %v", rec.calls)
	}
}

func TestRun_CapabilityErrorSurfaces(t *testing.T) {
	rec := &recorder{}
	err := rec.run(t, "summon(1);\nfail();\nsummon(2);")
	var ce *command.CapabilityError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v (%T), want *command.CapabilityError", err, err)
	}
	if err.Error() != "the spirits refuse" || ce.Verb != "fail" {
		t.Errorf("unexpected error %q from %q", err.Error(), ce.Verb)
	}
	if want := []string{"summon(1)"}; !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestRun_StepLimit(t *testing.T) {
	rec := &recorder{}
	err := rec.run(t, "while (true) {}", WithMaxSteps(5000))
	var re *RuntimeError
	if !errors.As(err, &re) || re.Type != ErrorStepLimit {
		t.Fatalf("error = %v, want step limit", err)
	}
	if !re.IsFatal() {
		t.Error("step limit should be fatal")
	}
}

func TestRun_MaxCallDepth(t *testing.T) {
	rec := &recorder{}
	src := "function f(n) { if (n > 0) f(n - 1); }\nf(20);"
	if err := rec.run(t, src, WithMaxCallDepth(50)); err != nil {
		t.Fatalf("depth 21 should fit in 50: %v", err)
	}
	err := rec.run(t, src, WithMaxCallDepth(10))
	var re *RuntimeError
	if !errors.As(err, &re) || re.Type != ErrorStackOverflow {
		t.Fatalf("error = %v, want stack overflow", err)
	}
}

func TestRun_Cancellation(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := &recorder{}
		err := New(rec.registry()).Run(ctx, "summon(1);")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
		if len(rec.calls) != 0 {
			t.Errorf("calls = %v", rec.calls)
		}
	})

	t.Run("inside an endless loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		reg := command.Registry{"summon": func(args ...any) (any, error) {
			calls++
			if calls == 3 {
				cancel()
			}
			return nil, nil
		}}
		err := New(reg, WithMaxSteps(0)).Run(ctx, "while (true) { summon(1); }")
		var re *RuntimeError
		if !errors.As(err, &re) || re.Type != ErrorCancelled {
			t.Fatalf("error = %v, want cancellation", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})
}

func TestRun_RegistryIsNotModified(t *testing.T) {
	rec := &recorder{}
	reg := rec.registry()
	before := reg.Names()
	if err := New(reg).Run(context.Background(), "function extra() {}\nvar v = 1;"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := reg.Names(); !reflect.DeepEqual(got, before) {
		t.Errorf("registry names = %v, want %v", got, before)
	}
}
